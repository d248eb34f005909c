package borrow

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/book"
	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

// BookCatalog is the slice of the catalog the circulation flow needs.
// book.BookRepo satisfies it.
type BookCatalog interface {
	GetByID(ctx context.Context, id int64) (*book.Book, error)
}

// Notifier delivers borrow decisions to the requester's inbox. Delivery
// is best effort; a failed notification never fails the transition.
type Notifier interface {
	BorrowAccepted(ctx context.Context, personID int64, bookName string, dueDate time.Time)
	BorrowRejected(ctx context.Context, personID int64, bookName string)
}

type BorrowService interface {
	Request(ctx context.Context, personID, bookID int64) (*Borrow, error)
	Accept(ctx context.Context, personID, bookID int64) (*Borrow, error)
	Reject(ctx context.Context, personID, bookID int64) (*Borrow, error)
	Return(ctx context.Context, personID, bookID int64) (*Borrow, error)
	Extend(ctx context.Context, personID, bookID int64) (*Borrow, error)
	List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Borrow], error)
	Overdue(ctx context.Context) ([]Borrow, error)
	Stats(ctx context.Context, personID int64) (*Stats, error)
	SweepOverdue(ctx context.Context) (int64, error)
}

type borrowService struct {
	repo     BorrowRepo
	catalog  BookCatalog
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewBorrowService(repo BorrowRepo, catalog BookCatalog, notifier Notifier, logger *zap.Logger) BorrowService {
	return &borrowService{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *borrowService) Request(ctx context.Context, personID, bookID int64) (*Borrow, error) {
	bk, err := s.catalog.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if bk.AvailableCopies <= 0 {
		return nil, ErrNoCopies
	}
	if _, err := s.repo.FindOpen(ctx, personID, bookID); err == nil {
		return nil, ErrAlreadyRequested
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id, err := s.repo.Create(ctx, personID, bookID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("borrow requested",
		zap.Int64("borrow_id", id), zap.Int64("person_id", personID), zap.Int64("book_id", bookID))
	return s.repo.GetByID(ctx, id)
}

func (s *borrowService) Accept(ctx context.Context, personID, bookID int64) (*Borrow, error) {
	open, err := s.repo.FindOpen(ctx, personID, bookID)
	if err != nil {
		return nil, err
	}
	if open.Status != StatusPending {
		return nil, ErrBadTransition
	}

	borrowDate := s.today()
	dueDate := borrowDate.AddDate(0, 0, LoanDays)
	if err := s.repo.Accept(ctx, open.ID, borrowDate, dueDate); err != nil {
		return nil, err
	}
	s.logger.Info("borrow accepted",
		zap.Int64("borrow_id", open.ID), zap.Time("due_date", dueDate))
	s.notifier.BorrowAccepted(ctx, personID, open.BookName, dueDate)
	return s.repo.GetByID(ctx, open.ID)
}

func (s *borrowService) Reject(ctx context.Context, personID, bookID int64) (*Borrow, error) {
	open, err := s.repo.FindOpen(ctx, personID, bookID)
	if err != nil {
		return nil, err
	}
	if open.Status != StatusPending {
		return nil, ErrBadTransition
	}
	if err := s.repo.Reject(ctx, open.ID); err != nil {
		return nil, err
	}
	s.logger.Info("borrow rejected", zap.Int64("borrow_id", open.ID))
	s.notifier.BorrowRejected(ctx, personID, open.BookName)
	return s.repo.GetByID(ctx, open.ID)
}

func (s *borrowService) Return(ctx context.Context, personID, bookID int64) (*Borrow, error) {
	open, err := s.repo.FindOpen(ctx, personID, bookID)
	if err != nil {
		return nil, err
	}
	if open.Status != StatusActive && open.Status != StatusOverdue {
		return nil, ErrBadTransition
	}
	if err := s.repo.Return(ctx, open.ID, s.today()); err != nil {
		return nil, err
	}
	s.logger.Info("borrow returned", zap.Int64("borrow_id", open.ID))
	return s.repo.GetByID(ctx, open.ID)
}

// Extend pushes the due date out once per loan. Overdue loans and loans
// that already used their extension are turned away.
func (s *borrowService) Extend(ctx context.Context, personID, bookID int64) (*Borrow, error) {
	open, err := s.repo.FindOpen(ctx, personID, bookID)
	if err != nil {
		return nil, err
	}
	if open.Extended {
		return nil, ErrAlreadyExtended
	}
	if !open.CanBeExtended(s.today()) {
		return nil, ErrBadTransition
	}

	newDue := open.DueDate.AddDate(0, 0, ExtensionDays)
	if err := s.repo.Extend(ctx, open.ID, newDue); err != nil {
		return nil, err
	}
	s.logger.Info("borrow extended",
		zap.Int64("borrow_id", open.ID), zap.Time("due_date", newDue))
	return s.repo.GetByID(ctx, open.ID)
}

func (s *borrowService) List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Borrow], error) {
	return s.repo.List(ctx, filter, page)
}

func (s *borrowService) Overdue(ctx context.Context) ([]Borrow, error) {
	return s.repo.Overdue(ctx)
}

func (s *borrowService) Stats(ctx context.Context, personID int64) (*Stats, error) {
	return s.repo.StatsByPerson(ctx, personID)
}

func (s *borrowService) SweepOverdue(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, s.today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("overdue sweep flipped loans", zap.Int64("count", n))
	}
	return n, nil
}

func (s *borrowService) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}
