package donation

import "time"

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Request struct {
	ID          int64      `json:"id" db:"id"`
	PersonID    int64      `json:"user_id" db:"person_id"`
	BookTitle   string     `json:"bookTitle" db:"book_title"`
	Author      string     `json:"author,omitempty" db:"author"`
	ISBN        string     `json:"isbn,omitempty" db:"isbn"`
	Description string     `json:"description,omitempty" db:"description"`
	Status      Status     `json:"status" db:"status"`
	AdminNotes  string     `json:"adminNotes,omitempty" db:"admin_notes"`
	DecidedAt   *time.Time `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`

	Username string `json:"username,omitempty" db:"username"`
}

// Decided requests are immutable; only pending ones accept a verdict.
func (r *Request) Decided() bool {
	return r.Status != StatusPending
}
