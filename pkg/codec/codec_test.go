package codec_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/keel/pkg/codec"
)

type prefs struct {
	Theme string `json:"theme" yaml:"theme"`
	Size  int    `json:"size" yaml:"size"`
}

func TestJSON_Typed(t *testing.T) {
	c := codec.JSON[prefs]()

	data, err := c.Encode(prefs{Theme: "dark", Size: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark","size":3}`, data)

	v, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, prefs{Theme: "dark", Size: 3}, v)
}

func TestDynamic_Numbers(t *testing.T) {
	loose, err := codec.Dynamic(false).Decode(`{"n": 9007199254740993}`)
	require.NoError(t, err)
	assert.IsType(t, float64(0), loose.(map[string]any)["n"])

	strict, err := codec.Dynamic(true).Decode(`{"n": 9007199254740993}`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), strict.(map[string]any)["n"])
}

func TestYAML_Typed(t *testing.T) {
	c := codec.YAML[prefs]()

	data, err := c.Encode(prefs{Theme: "light", Size: 1})
	require.NoError(t, err)
	assert.Contains(t, data, "theme: light")

	v, err := c.Decode("theme: dark\nsize: 2\n")
	require.NoError(t, err)
	assert.Equal(t, prefs{Theme: "dark", Size: 2}, v)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := codec.JSON[int]().Decode("{not json")
	assert.ErrorContains(t, err, "invalid json")

	_, err = codec.YAML[prefs]().Decode("theme: [unclosed")
	assert.ErrorContains(t, err, "invalid yaml")
}

func TestEncode_Unsupported(t *testing.T) {
	_, err := codec.Dynamic(false).Encode(make(chan int))
	assert.ErrorContains(t, err, "invalid json value")
}
