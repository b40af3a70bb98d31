package crud

import "errors"

var (
	ErrNotFound  = errors.New("document not found")
	ErrInvalidID = errors.New("invalid document ID format")
)
