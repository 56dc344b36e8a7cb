package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ConfigName is the project configuration file looked up by FindRoot and Load.
const ConfigName = "keel.yaml"

// ErrNoRoot is returned by FindRoot when no marker exists above the start
// directory.
var ErrNoRoot = errors.New("no project root found")

// rootMarkers are checked in order in every directory FindRoot visits.
var rootMarkers = []string{ConfigName, ".keel", ".git"}

// FindRoot returns the closest directory at or above startDir holding one of
// keel.yaml, .keel or .git.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if _, ok := marker(dir); ok {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoRoot
		}
		dir = parent
	}
}

// marker returns the first root marker present in dir.
func marker(dir string) (string, bool) {
	for _, name := range rootMarkers {
		if hasFile(dir, name) {
			return name, true
		}
	}
	return "", false
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
