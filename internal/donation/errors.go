package donation

import "errors"

var (
	ErrNotFound       = errors.New("donation request not found")
	ErrAlreadyDecided = errors.New("donation request was already decided")
)
