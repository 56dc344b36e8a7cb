// Package codec converts persisted subtrees to and from their stored string form.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec defines how one persisted subtree is written and read back.
type Codec interface {
	Encode(value any) (string, error)
	Decode(data string) (any, error)
}

// --- JSON ---

type jsonCodec[T any] struct {
	strict bool
}

// JSON returns a codec that decodes into T.
func JSON[T any]() Codec {
	return jsonCodec[T]{}
}

// Dynamic returns a JSON codec that decodes into untyped values
// (map[string]any, []any, float64, ...).
// Numbers are kept as json.Number when strict is set to avoid precision loss.
func Dynamic(strict bool) Codec {
	return jsonCodec[any]{strict: strict}
}

func (c jsonCodec[T]) Encode(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("invalid json value: %w", err)
	}
	return string(data), nil
}

func (c jsonCodec[T]) Decode(data string) (any, error) {
	var out T
	decoder := json.NewDecoder(bytes.NewReader([]byte(data)))
	if c.strict {
		decoder.UseNumber()
	}
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return out, nil
}

// --- YAML ---

type yamlCodec[T any] struct{}

// YAML returns a codec that decodes into T.
func YAML[T any]() Codec {
	return yamlCodec[T]{}
}

func (yamlCodec[T]) Encode(value any) (string, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("invalid yaml value: %w", err)
	}
	return string(data), nil
}

func (yamlCodec[T]) Decode(data string) (any, error) {
	var out T
	if err := yaml.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return out, nil
}
