package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Publisher turns circulation decisions into inbox entries. Writes are
// best effort: a failed insert is logged and swallowed so that the
// decision itself never rolls back over a notification.
type Publisher struct {
	repo   NotificationRepo
	logger *zap.Logger
}

func NewPublisher(repo NotificationRepo, logger *zap.Logger) *Publisher {
	return &Publisher{repo: repo, logger: logger}
}

func (p *Publisher) BorrowAccepted(ctx context.Context, personID int64, bookName string, dueDate time.Time) {
	msg := fmt.Sprintf("Your borrow request for %q was accepted. Due back %s.",
		bookName, dueDate.Format("2006-01-02"))
	p.publish(ctx, personID, KindBorrowAccepted, msg)
}

func (p *Publisher) BorrowRejected(ctx context.Context, personID int64, bookName string) {
	msg := fmt.Sprintf("Your borrow request for %q was rejected.", bookName)
	p.publish(ctx, personID, KindBorrowRejected, msg)
}

func (p *Publisher) DonationDecided(ctx context.Context, personID int64, bookTitle string, approved bool) {
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	msg := fmt.Sprintf("Your donation request for %q was %s.", bookTitle, verdict)
	p.publish(ctx, personID, KindDonationDecided, msg)
}

func (p *Publisher) publish(ctx context.Context, personID int64, kind Kind, message string) {
	if err := p.repo.Create(ctx, personID, kind, message); err != nil {
		p.logger.Warn("notification dropped",
			zap.Int64("person_id", personID), zap.String("kind", string(kind)), zap.Error(err))
	}
}
