package donation

import (
	"context"
	"time"

	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

// Notifier tells the donor how their request was decided. Best effort.
type Notifier interface {
	DonationDecided(ctx context.Context, personID int64, bookTitle string, approved bool)
}

type DonationService interface {
	Submit(ctx context.Context, req *Request) (*Request, error)
	List(ctx context.Context, page httpx.Pageable) (*httpx.Page[Request], error)
	ListByPerson(ctx context.Context, personID int64, page httpx.Pageable) (*httpx.Page[Request], error)
	Approve(ctx context.Context, id int64, adminNotes string) (*Request, error)
	Reject(ctx context.Context, id int64, adminNotes string) (*Request, error)
}

type donationService struct {
	repo     DonationRepo
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewDonationService(repo DonationRepo, notifier Notifier, logger *zap.Logger) DonationService {
	return &donationService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *donationService) Submit(ctx context.Context, req *Request) (*Request, error) {
	id, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("donation request submitted",
		zap.Int64("donation_id", id), zap.Int64("person_id", req.PersonID))
	return s.repo.GetByID(ctx, id)
}

func (s *donationService) List(ctx context.Context, page httpx.Pageable) (*httpx.Page[Request], error) {
	return s.repo.List(ctx, page)
}

func (s *donationService) ListByPerson(ctx context.Context, personID int64, page httpx.Pageable) (*httpx.Page[Request], error) {
	return s.repo.ListByPerson(ctx, personID, page)
}

func (s *donationService) Approve(ctx context.Context, id int64, adminNotes string) (*Request, error) {
	return s.decide(ctx, id, StatusApproved, adminNotes)
}

func (s *donationService) Reject(ctx context.Context, id int64, adminNotes string) (*Request, error) {
	return s.decide(ctx, id, StatusRejected, adminNotes)
}

func (s *donationService) decide(ctx context.Context, id int64, status Status, adminNotes string) (*Request, error) {
	if err := s.repo.Decide(ctx, id, status, adminNotes, s.now().UTC()); err != nil {
		return nil, err
	}
	decided, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("donation request decided",
		zap.Int64("donation_id", id), zap.String("status", string(status)))
	s.notifier.DonationDecided(ctx, decided.PersonID, decided.BookTitle, status == StatusApproved)
	return decided, nil
}
