package id

import "github.com/google/uuid"

// PublicID is the externally visible identifier for a person. Internal
// numeric ids never leave the database layer.
type PublicID string

// SessionID identifies a login session row.
type SessionID string

func NewPublicID() PublicID {
	return PublicID(uuid.NewString())
}

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}
