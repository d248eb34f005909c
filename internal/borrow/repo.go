package borrow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

type BorrowRepo interface {
	Create(ctx context.Context, personID, bookID int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*Borrow, error)
	// FindOpen returns the caller's non-terminal borrow for a book, if any.
	FindOpen(ctx context.Context, personID, bookID int64) (*Borrow, error)
	List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Borrow], error)
	Accept(ctx context.Context, id int64, borrowDate, dueDate time.Time) error
	Reject(ctx context.Context, id int64) error
	Return(ctx context.Context, id int64, returnDate time.Time) error
	Extend(ctx context.Context, id int64, newDueDate time.Time) error
	Overdue(ctx context.Context) ([]Borrow, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	StatsByPerson(ctx context.Context, personID int64) (*Stats, error)
}

const borrowColumns = `b.id, b.person_id, b.book_id, b.status,
	b.borrow_date, b.due_date, b.return_date, b.extended, b.created_at,
	p.username, bk.name, bk.book_cover_url`

const borrowJoins = `
	FROM borrows b
	JOIN persons p ON p.id = b.person_id
	JOIN books bk ON bk.id = b.book_id`

type borrowRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewBorrowRepo(db *sql.DB, logger *zap.Logger) BorrowRepo {
	return &borrowRepo{db: db, logger: logger}
}

func (r *borrowRepo) Create(ctx context.Context, personID, bookID int64) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO borrows (person_id, book_id, status) VALUES ($1, $2, $3) RETURNING id`,
		personID, bookID, string(StatusPending)).Scan(&id)
	if err != nil {
		r.logger.Error("failed to create borrow",
			zap.Int64("person_id", personID), zap.Int64("book_id", bookID), zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (r *borrowRepo) GetByID(ctx context.Context, id int64) (*Borrow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+borrowColumns+borrowJoins+` WHERE b.id = $1`, id)
	out, err := scanBorrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to load borrow", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *borrowRepo) FindOpen(ctx context.Context, personID, bookID int64) (*Borrow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+borrowColumns+borrowJoins+`
		 WHERE b.person_id = $1 AND b.book_id = $2 AND b.status IN ($3, $4, $5)
		 ORDER BY b.created_at DESC LIMIT 1`,
		personID, bookID, string(StatusPending), string(StatusActive), string(StatusOverdue))
	out, err := scanBorrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to find open borrow", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *borrowRepo) List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Borrow], error) {
	where := []string{"TRUE"}
	args := []any{}
	if filter.PersonID != 0 {
		args = append(args, filter.PersonID)
		where = append(where, fmt.Sprintf("b.person_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		args = append(args,
			string(StatusPending), string(StatusActive), string(StatusOverdue))
		where = append(where, fmt.Sprintf("b.status IN ($%d, $%d, $%d)",
			len(args)-2, len(args)-1, len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM borrows b WHERE `+cond, args...).Scan(&total); err != nil {
		r.logger.Error("failed to count borrows", zap.Error(err))
		return nil, err
	}

	args = append(args, page.Size, page.Offset())
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+borrowColumns+borrowJoins+` WHERE `+cond+
			fmt.Sprintf(` ORDER BY b.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		r.logger.Error("failed to list borrows", zap.Error(err))
		return nil, err
	}
	content, err := collectBorrows(rows)
	if err != nil {
		return nil, err
	}
	return httpx.NewPage(content, page.Page, page.Size, total), nil
}

// Accept moves a pending request into circulation inside one transaction:
// the borrow flips to ACTIVE and the book loses one available copy.
func (r *borrowRepo) Accept(ctx context.Context, id int64, borrowDate, dueDate time.Time) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var bookID int64
		err := tx.QueryRowContext(ctx,
			`UPDATE borrows SET status = $2, borrow_date = $3, due_date = $4, updated_at = now()
			 WHERE id = $1 AND status = $5
			 RETURNING book_id`,
			id, string(StatusActive), borrowDate, dueDate, string(StatusPending)).Scan(&bookID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBadTransition
		}
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE books
			 SET available_copies = available_copies - 1, borrow_count = borrow_count + 1, updated_at = now()
			 WHERE id = $1 AND available_copies > 0`, bookID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNoCopies
		}
		return nil
	})
}

func (r *borrowRepo) Reject(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE borrows SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, string(StatusRejected), string(StatusPending))
	if err != nil {
		r.logger.Error("failed to reject borrow", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBadTransition
	}
	return nil
}

// Return closes a loan and puts the copy back on the shelf.
func (r *borrowRepo) Return(ctx context.Context, id int64, returnDate time.Time) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var bookID int64
		err := tx.QueryRowContext(ctx,
			`UPDATE borrows SET status = $2, return_date = $3, updated_at = now()
			 WHERE id = $1 AND status IN ($4, $5)
			 RETURNING book_id`,
			id, string(StatusReturned), returnDate,
			string(StatusActive), string(StatusOverdue)).Scan(&bookID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBadTransition
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE books
			 SET available_copies = LEAST(available_copies + 1, total_copies), updated_at = now()
			 WHERE id = $1`, bookID)
		return err
	})
}

func (r *borrowRepo) Extend(ctx context.Context, id int64, newDueDate time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE borrows SET due_date = $2, extended = TRUE, updated_at = now()
		 WHERE id = $1 AND status = $3 AND extended = FALSE`,
		id, newDueDate, string(StatusActive))
	if err != nil {
		r.logger.Error("failed to extend borrow", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBadTransition
	}
	return nil
}

func (r *borrowRepo) Overdue(ctx context.Context) ([]Borrow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+borrowColumns+borrowJoins+`
		 WHERE b.status = $1 ORDER BY b.due_date`, string(StatusOverdue))
	if err != nil {
		r.logger.Error("failed to list overdue borrows", zap.Error(err))
		return nil, err
	}
	return collectBorrows(rows)
}

// MarkOverdue flips every active loan whose due date has passed.
func (r *borrowRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE borrows SET status = $1, updated_at = now()
		 WHERE status = $2 AND due_date < $3`,
		string(StatusOverdue), string(StatusActive), asOf)
	if err != nil {
		r.logger.Error("overdue sweep failed", zap.Error(err))
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *borrowRepo) StatsByPerson(ctx context.Context, personID int64) (*Stats, error) {
	var out Stats
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*),
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE status = $3),
			count(*) FILTER (WHERE status = $4),
			count(*) FILTER (WHERE status = $5)
		 FROM borrows WHERE person_id = $1`,
		personID,
		string(StatusActive), string(StatusOverdue),
		string(StatusReturned), string(StatusPending),
	).Scan(&out.TotalBorrowed, &out.Active, &out.Overdue, &out.Returned, &out.Pending)
	if err != nil {
		r.logger.Error("failed to load borrow stats", zap.Int64("person_id", personID), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func (r *borrowRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBorrow(row rowScanner) (*Borrow, error) {
	var out Borrow
	var borrowDate, dueDate, returnDate sql.NullTime
	var cover sql.NullString
	err := row.Scan(
		&out.ID, &out.PersonID, &out.BookID, &out.Status,
		&borrowDate, &dueDate, &returnDate, &out.Extended, &out.CreatedAt,
		&out.Username, &out.BookName, &cover,
	)
	if err != nil {
		return nil, err
	}
	if borrowDate.Valid {
		out.BorrowDate = &borrowDate.Time
	}
	if dueDate.Valid {
		out.DueDate = &dueDate.Time
	}
	if returnDate.Valid {
		out.ReturnDate = &returnDate.Time
	}
	out.BookCoverURL = cover.String
	return &out, nil
}

func collectBorrows(rows *sql.Rows) ([]Borrow, error) {
	defer rows.Close()
	var out []Borrow
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
