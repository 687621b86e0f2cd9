// Package apperr holds the sentinel errors shared across obvault packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNotDirectory  = errors.New("not a directory")
	ErrPathEscape    = errors.New("path escapes vault root")
	ErrSchemaInvalid = errors.New("schema invalid")
	ErrInvalidInput  = errors.New("invalid input")
)
