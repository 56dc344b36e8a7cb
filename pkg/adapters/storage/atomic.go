package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// stagedSuffix ends the name of a value still being written. Staged files
// also start with a dot, so Keys never reports them.
const stagedSuffix = ".staged"

// replaceValue swaps the value stored at path for value. A concurrent Get
// sees the old value or the new one in full. The staged copy sits in the same
// directory so the final rename never crosses filesystems.
func replaceValue(path, value string, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	staged, err := os.CreateTemp(dir, "."+base+".*"+stagedSuffix)
	if err != nil {
		return fmt.Errorf("stage %s: %w", base, err)
	}

	committed := false
	defer func() {
		if !committed {
			staged.Close()
			os.Remove(staged.Name())
		}
	}()

	if err := staged.Chmod(perm); err != nil {
		return fmt.Errorf("stage %s: %w", base, err)
	}
	if _, err := io.WriteString(staged, value); err != nil {
		return fmt.Errorf("stage %s: %w", base, err)
	}
	if err := staged.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", base, err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("close %s: %w", base, err)
	}
	if err := os.Rename(staged.Name(), path); err != nil {
		return fmt.Errorf("commit %s: %w", base, err)
	}
	committed = true
	return nil
}
