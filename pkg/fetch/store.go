package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// RecordPath is where the metadata of the statute stored at path is kept.
func RecordPath(path string) string { return path + ".json" }

// ReadRecord loads the metadata of a previously saved statute. It returns
// nil if the statute has never been fetched.
func ReadRecord(path string) (*Result, error) {
	data, err := os.ReadFile(RecordPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fetch record: %w", err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse fetch record %s: %w", RecordPath(path), err)
	}
	return &res, nil
}

// NeedsUpdate reports whether a landing page announces an amendment newer
// than the one already fetched.
func NeedsUpdate(prior *Result, l Landing) bool {
	return prior == nil || l.Amended.After(prior.Amended)
}

// Save writes the statute to path, compressed with xz when path ends in
// ".xz", and then its record. It reports false, writing only the record,
// when the content is unchanged since the prior fetch.
func Save(path string, res *Result) (bool, error) {
	prior, err := ReadRecord(path)
	if err != nil {
		return false, err
	}
	changed := prior == nil || prior.Digest != res.Digest
	if _, err := os.Stat(path); err != nil {
		changed = true
	}

	if changed {
		data := res.Data
		if strings.HasSuffix(path, ".xz") {
			if data, err = compress(res.Data); err != nil {
				return false, err
			}
		}
		if err := writeAtomic(path, data); err != nil {
			return false, err
		}
	}

	record, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode fetch record: %w", err)
	}
	if err := writeAtomic(RecordPath(path), record); err != nil {
		return false, err
	}
	return changed, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	return buf.Bytes(), nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
