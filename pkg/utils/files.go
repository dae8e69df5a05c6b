// Package utils holds file helpers shared by the command line.
package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultOutputPath swaps the extension of inPath for ext.
func DefaultOutputPath(inPath, ext string) string {
	old := filepath.Ext(inPath)
	if old == "" {
		return inPath + ext
	}
	return strings.TrimSuffix(inPath, old) + ext
}

// LookupEncoding resolves a WHATWG encoding label such as "utf-8",
// "windows-1252" or "shift_jis".
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// ReadSource reads a text file and decodes it from the named charset to UTF-8.
func ReadSource(path, charset string) (string, error) {
	enc, err := LookupEncoding(charset)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(transform.NewReader(f, enc.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("decode %s as %s: %w", path, charset, err)
	}
	return string(data), nil
}

// WriteFileLocked writes data to path while holding an advisory lock on
// path+".lock", so concurrent builds of the same output do not interleave.
func WriteFileLocked(path string, data []byte) error {
	lockPath := path + ".lock"
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", lockPath, err)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	return os.WriteFile(path, data, 0o644)
}
