package borrow

import "errors"

var (
	ErrNotFound         = errors.New("borrow not found")
	ErrAlreadyRequested = errors.New("open borrow already exists for this book")
	ErrNoCopies         = errors.New("no copies available")
	ErrBadTransition    = errors.New("operation not allowed in current status")
	ErrAlreadyExtended  = errors.New("loan was already extended")
)
