package server

import (
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestOpenForRetrieve(t *testing.T) {
	t.Parallel()
	fsys := testFiles()

	tests := []struct {
		name     string
		want     string
		wantSize int64
		wantErr  bool
	}{
		{name: "hello.txt", want: "Hello, FTP World!", wantSize: 17},
		{name: "/hello.txt", want: "Hello, FTP World!", wantSize: 17},
		{name: "sub/../hello.txt", want: "Hello, FTP World!", wantSize: 17},
		{name: "empty.txt", want: "", wantSize: 0},
		{name: "sub/inner.bin", want: "\x00\x01\x02\x03\xff", wantSize: 5},
		{name: "sub", wantErr: true},
		{name: ".", wantErr: true},
		{name: "", wantErr: true},
		{name: "../hello.txt", want: "Hello, FTP World!", wantSize: 17},
		{name: "missing.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, size, err := openForRetrieve(fsys, tt.name)
			if tt.wantErr {
				if !errors.Is(err, fs.ErrNotExist) {
					t.Fatalf("openForRetrieve(%q) err = %v, want fs.ErrNotExist", tt.name, err)
				}
				return
			}
			fatalIfErr(t, err, "openForRetrieve(%q)", tt.name)
			defer f.Close()

			if size != tt.wantSize {
				t.Errorf("size = %d, want %d", size, tt.wantSize)
			}
			b, err := io.ReadAll(f)
			fatalIfErr(t, err, "read")
			if string(b) != tt.want {
				t.Errorf("content = %q, want %q", b, tt.want)
			}
		})
	}
}

func TestOpenForRetrieve_DirectoryIsNotRegular(t *testing.T) {
	t.Parallel()
	_, _, err := openForRetrieve(testFiles(), "sub")
	if !errors.Is(err, errNotRegular) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want errNotRegular wrapping fs.ErrNotExist", err)
	}
}
