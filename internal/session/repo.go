package session

import (
	"context"
	"database/sql"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/pkg/id"
	"go.uber.org/zap"
)

// SessionRepo persists the server-side session rows behind the cookies.
// A row records who logged in, from where, and with which browser; the
// row id becomes the sid claim inside the issued tokens.
type SessionRepo interface {
	Create(ctx context.Context, personID int64, meta httpx.ClientMeta) (id.SessionID, error)
	Delete(ctx context.Context, sid id.SessionID) error
}

type sessionRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSessionRepo(db *sql.DB, logger *zap.Logger) SessionRepo {
	return &sessionRepo{db: db, logger: logger}
}

func (s *sessionRepo) Create(ctx context.Context, personID int64, meta httpx.ClientMeta) (id.SessionID, error) {
	var sid string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (person_id, last_seen_ip, user_agent)
		 VALUES ($1, $2, $3) RETURNING id`,
		personID, nullable(meta.IP), nullable(meta.UserAgent)).Scan(&sid)
	if err != nil {
		s.logger.Error("failed to create session", zap.Int64("person_id", personID), zap.Error(err))
		return "", err
	}
	return id.SessionID(sid), nil
}

// Delete is idempotent; deleting a session that is already gone is fine.
func (s *sessionRepo) Delete(ctx context.Context, sid id.SessionID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, string(sid))
	if err != nil {
		s.logger.Error("failed to delete session", zap.String("session_id", string(sid)), zap.Error(err))
	}
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
