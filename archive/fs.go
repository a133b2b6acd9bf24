// Package archive exposes zip archives used as include paths as fs.FS.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

// FS is a read only view of zip archive contents. Close must be called when
// archive is no longer needed.
type FS struct {
	fs.FS
	name string
	rc   *zip.ReadCloser
}

// IsArchive returns true if include path should be treated as zip archive:
// it has .zip extension or it is a regular file with zip signature.
func IsArchive(name string) bool {
	if strings.EqualFold(path.Ext(name), ".zip") {
		return true
	}
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	if fi, err := f.Stat(); err != nil || !fi.Mode().IsRegular() {
		return false
	}
	head := make([]byte, 262)
	n, _ := io.ReadFull(f, head)
	return filetype.Is(head[:n], "zip")
}

// OpenFS opens archive checking that none of its entries could escape the
// archive root. Archives with unsafe entries are rejected as a whole.
func OpenFS(name string) (*FS, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	for _, f := range rc.File {
		if !isSafePath(f.FileHeader.Name) {
			rc.Close()
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.FileHeader.Name)
		}
	}
	return &FS{FS: rc, name: name, rc: rc}, nil
}

// Name returns path to archive.
func (a *FS) Name() string {
	return a.name
}

// Display returns human readable location of the entry for diagnostics.
func (a *FS) Display(entry string) string {
	return a.name + ":" + entry
}

func (a *FS) Close() error {
	if a == nil || a.rc == nil {
		return nil
	}
	return a.rc.Close()
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
