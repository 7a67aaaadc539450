// SPDX-License-Identifier: MPL-2.0

package install

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxEntrySize bounds a single archive entry read into memory.
const maxEntrySize = 64 << 20

// readEntry returns the contents of name inside the archive.
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	f, err := zr.Open(strings.TrimPrefix(name, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInstaller, name, err)
	}
	defer func() { _ = f.Close() }() // Read-only archive entry.

	data, err := io.ReadAll(io.LimitReader(f, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedInstaller, name, maxEntrySize)
	}
	return data, nil
}

// hasEntry reports whether the archive contains name.
func hasEntry(zr *zip.Reader, name string) bool {
	_, err := fs.Stat(zr, strings.TrimPrefix(name, "/"))
	return err == nil
}

// extractEntry copies name from the archive to dest, writing through a
// temporary sibling.
func extractEntry(zr *zip.Reader, name, dest string) (err error) {
	src, err := zr.Open(strings.TrimPrefix(name, "/"))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedInstaller, name, err)
	}
	defer func() { _ = src.Close() }() // Read-only archive entry.

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name()) // Best-effort cleanup of a failed extract.
		}
	}()

	if _, err = io.Copy(tmp, src); err != nil {
		return fmt.Errorf("extract %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// manifestMainClass reads Main-Class from the jar's manifest.
func manifestMainClass(jarPath string) (_ string, err error) {
	zr, err := zip.OpenReader(jarPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", jarPath, err)
	}
	defer func() { _ = zr.Close() }() // Read-only archive.

	data, err := readEntry(&zr.Reader, "META-INF/MANIFEST.MF")
	if err != nil {
		return "", err
	}
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "Main-Class") {
			return strings.TrimSpace(value), nil
		}
	}
	return "", fmt.Errorf("%w: %s has no Main-Class", ErrMalformedInstaller, filepath.Base(jarPath))
}
