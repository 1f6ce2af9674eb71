package packager

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
)

// Packager turns a version's file manifest into a downloadable archive.
// The version store treats this as an external collaborator.
type Packager interface {
	Package(files map[string]string) ([]byte, error)
}

type zipPackager struct{}

func NewZipPackager() Packager { return &zipPackager{} }

// Package writes entries in sorted path order so identical manifests
// produce byte-identical archives.
func (zipPackager) Package(files map[string]string) ([]byte, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, p := range paths {
		f, err := w.Create(p)
		if err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("create archive entry %q: %w", p, err)
		}
		if _, err := f.Write([]byte(files[p])); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("write archive entry %q: %w", p, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
