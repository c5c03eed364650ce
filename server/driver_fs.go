package server

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// errNotRegular is returned when RETR names a directory or device.
var errNotRegular = errors.New("not a regular file")

// openForRetrieve resolves a RETR argument inside fsys and returns the open
// file with its size. Leading slashes are dropped, so "/a.txt" and "a.txt"
// name the same file. Anything that is not a regular file is reported as
// fs.ErrNotExist so the client sees the same 550 as for a missing file.
func openForRetrieve(fsys fs.FS, name string) (fs.File, int64, error) {
	clean := path.Clean("/" + strings.TrimSpace(name))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		clean = "."
	}
	if !fs.ValidPath(clean) {
		return nil, 0, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}

	f, err := fsys.Open(clean)
	if err != nil {
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, &fs.PathError{Op: "open", Path: name, Err: fmt.Errorf("%w: %w", errNotRegular, fs.ErrNotExist)}
	}

	return f, info.Size(), nil
}
