package notification

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
)

type NotificationRepo interface {
	Create(ctx context.Context, personID int64, kind Kind, message string) error
	ListByPerson(ctx context.Context, personID int64, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, personID, notificationID int64) error
	UnreadCount(ctx context.Context, personID int64) (int, error)
}

type notificationRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewNotificationRepo(db *sql.DB, logger *zap.Logger) NotificationRepo {
	return &notificationRepo{db: db, logger: logger}
}

func (n *notificationRepo) Create(ctx context.Context, personID int64, kind Kind, message string) error {
	_, err := n.db.ExecContext(ctx,
		`INSERT INTO notifications (person_id, kind, message) VALUES ($1, $2, $3)`,
		personID, string(kind), message)
	if err != nil {
		n.logger.Error("failed to create notification", zap.Int64("person_id", personID), zap.Error(err))
	}
	return err
}

func (n *notificationRepo) ListByPerson(ctx context.Context, personID int64, limit int) ([]Notification, error) {
	rows, err := n.db.QueryContext(ctx,
		`SELECT id, person_id, kind, message, is_read, created_at
		 FROM notifications WHERE person_id = $1
		 ORDER BY created_at DESC LIMIT $2`, personID, limit)
	if err != nil {
		n.logger.Error("failed to list notifications", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var item Notification
		if err := rows.Scan(&item.ID, &item.PersonID, &item.Kind, &item.Message, &item.IsRead, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// MarkRead is scoped to the owner; marking someone else's notification
// silently does nothing.
func (n *notificationRepo) MarkRead(ctx context.Context, personID, notificationID int64) error {
	_, err := n.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND person_id = $2`,
		notificationID, personID)
	if err != nil {
		n.logger.Error("failed to mark notification read", zap.Error(err))
	}
	return err
}

func (n *notificationRepo) UnreadCount(ctx context.Context, personID int64) (int, error) {
	var count int
	err := n.db.QueryRowContext(ctx,
		`SELECT count(*) FROM notifications WHERE person_id = $1 AND is_read = FALSE`,
		personID).Scan(&count)
	if err != nil {
		n.logger.Error("failed to count unread notifications", zap.Error(err))
		return 0, err
	}
	return count, nil
}
