package review

import "time"

type Review struct {
	ID        int64     `json:"id" db:"id"`
	PersonID  int64     `json:"user_id" db:"person_id"`
	BookID    int64     `json:"book_id" db:"book_id"`
	Rating    int       `json:"rating" db:"rating"`
	Review    string    `json:"review,omitempty" db:"review"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Username string `json:"username,omitempty" db:"username"`
}

// Summary is what the book page renders: the aggregate next to the
// most recent reviews.
type Summary struct {
	BookID  int64    `json:"book_id"`
	Average float64  `json:"average"`
	Count   int64    `json:"count"`
	Reviews []Review `json:"reviews"`
}
