package book

import "errors"

var (
	ErrNotFound        = errors.New("book not found")
	ErrInvalidCopies   = errors.New("available copies out of range")
	ErrUnknownCategory = errors.New("unknown category")
)
