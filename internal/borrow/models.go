package borrow

import "time"

// Status is the loan state machine:
//
//	PENDING -> ACTIVE   (admin accepts; copies decrement)
//	PENDING -> REJECTED (admin rejects)
//	ACTIVE  -> OVERDUE  (sweep past due date)
//	ACTIVE | OVERDUE -> RETURNED (copies increment)
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusRejected Status = "REJECTED"
	StatusReturned Status = "RETURNED"
	StatusOverdue  Status = "OVERDUE"
)

const (
	// loan length on acceptance
	LoanDays = 14
	// a single extension adds this much
	ExtensionDays = 7
)

type Borrow struct {
	ID         int64      `json:"id" db:"id"`
	PersonID   int64      `json:"user_id" db:"person_id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	Status     Status     `json:"status" db:"status"`
	BorrowDate *time.Time `json:"borrow_date,omitempty" db:"borrow_date"`
	DueDate    *time.Time `json:"due_date,omitempty" db:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	Extended   bool       `json:"extended" db:"extended"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`

	// joined display fields
	Username     string `json:"username,omitempty" db:"username"`
	BookName     string `json:"book_name,omitempty" db:"book_name"`
	BookCoverURL string `json:"book_cover_url,omitempty" db:"book_cover_url"`
}

// CanBeExtended is what the dashboard renders next to an active loan.
func (b *Borrow) CanBeExtended(now time.Time) bool {
	if b.Status != StatusActive || b.Extended || b.DueDate == nil {
		return false
	}
	return !now.After(*b.DueDate)
}

// Stats is the user dashboard summary block.
type Stats struct {
	TotalBorrowed int64 `json:"total_borrowed"`
	Active        int64 `json:"active"`
	Overdue       int64 `json:"overdue"`
	Returned      int64 `json:"returned"`
	Pending       int64 `json:"pending"`
}

type ListFilter struct {
	PersonID   int64 // 0 means everyone (admin view)
	ActiveOnly bool
}
