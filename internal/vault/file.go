package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/starford/obvault/internal/apperr"
)

// File is a handle to an auxiliary, non-note file of the vault such as
// schema.json. Creating it does no I/O.
type File struct {
	v    *Vault
	name string
}

// Child resolves name relative to the vault root. Existence is only checked
// when the file is read.
func (v *Vault) Child(name string) File {
	return File{v: v, name: name}
}

// Name returns the name the handle was created with.
func (f File) Name() string { return f.name }

// Path returns the absolute path of the file.
func (f File) Path() (string, error) {
	return f.v.safePath(f.name)
}

// ReadBytes returns the raw content. A missing file yields an error matching
// both apperr.ErrNotFound and fs.ErrNotExist.
func (f File) ReadBytes() ([]byte, error) {
	abs, err := f.Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("vault: read %s: %w: %w", f.name, apperr.ErrNotFound, err)
		}
		return nil, fmt.Errorf("vault: read %s: %w", f.name, err)
	}
	return data, nil
}

// ReadText returns the content as a string.
func (f File) ReadText() (string, error) {
	data, err := f.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
