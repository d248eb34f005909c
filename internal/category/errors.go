package category

import "errors"

var (
	ErrDuplicateName = errors.New("duplicate category name")
	ErrNotFound      = errors.New("category not found")
	ErrInUse         = errors.New("category still has books")
)
