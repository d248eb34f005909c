package review

import "errors"

var (
	ErrAlreadyReviewed = errors.New("person already reviewed this book")
	ErrUnknownBook     = errors.New("book not found")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)
