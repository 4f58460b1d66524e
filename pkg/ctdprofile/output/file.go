// Package output provides serialization of processing results and guarded file writes.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrDuplicateOutput indicates the target file exists and overwriting was not permitted.
var ErrDuplicateOutput = errors.New("output file already exists")

// WriteFile writes data to path, creating parent directories as needed.
// An existing file is only replaced when overwrite is set. Data is written to a
// temporary file first, so a failed write never leaves a partial target behind.
func WriteFile(path string, data []byte, overwrite bool) error {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("%w: %s", ErrDuplicateOutput, path)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
