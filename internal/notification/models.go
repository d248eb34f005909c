package notification

import "time"

type Kind string

const (
	KindBorrowAccepted  Kind = "BORROW_ACCEPTED"
	KindBorrowRejected  Kind = "BORROW_REJECTED"
	KindDonationDecided Kind = "DONATION_DECIDED"
)

type Notification struct {
	ID        int64     `json:"id" db:"id"`
	PersonID  int64     `json:"-" db:"person_id"`
	Kind      Kind      `json:"kind" db:"kind"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"is_read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
