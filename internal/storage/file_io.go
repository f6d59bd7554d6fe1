package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// writeJSONAtomic encodes v to path through a temp file in the same
// directory followed by a rename. With compress set the file is gzipped.
func writeJSONAtomic(path string, v interface{}, compress bool) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}

	var w io.Writer = tmpFile
	var gzw *gzip.Writer
	if compress {
		gzw = gzip.NewWriter(tmpFile)
		w = gzw
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		cleanup()
		return fmt.Errorf("encode: %w", err)
	}
	if gzw != nil {
		if err := gzw.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close gzip: %w", err)
		}
	}
	if err := tmpFile.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// readJSON decodes path into v, transparently gunzipping *.gz files.
func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		r = gzr
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func withCompressionSuffix(path string, compress bool) string {
	path = strings.TrimSuffix(path, ".gz")
	if compress {
		return path + ".gz"
	}
	return path
}
