package donation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

type DonationRepo interface {
	Create(ctx context.Context, req *Request) (int64, error)
	GetByID(ctx context.Context, id int64) (*Request, error)
	List(ctx context.Context, page httpx.Pageable) (*httpx.Page[Request], error)
	ListByPerson(ctx context.Context, personID int64, page httpx.Pageable) (*httpx.Page[Request], error)
	// Decide flips a pending request to the given verdict. A request
	// that was already decided stays untouched and ErrAlreadyDecided
	// comes back.
	Decide(ctx context.Context, id int64, status Status, adminNotes string, decidedAt time.Time) error
}

const donationColumns = `d.id, d.person_id, d.book_title, d.author, d.isbn,
	d.description, d.status, d.admin_notes, d.decided_at, d.created_at, p.username`

const donationJoins = `
	FROM donation_requests d
	JOIN persons p ON p.id = d.person_id`

type donationRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDonationRepo(db *sql.DB, logger *zap.Logger) DonationRepo {
	return &donationRepo{db: db, logger: logger}
}

func (r *donationRepo) Create(ctx context.Context, req *Request) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO donation_requests (person_id, book_title, author, isbn, description)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.PersonID, req.BookTitle,
		nullable(req.Author), nullable(req.ISBN), nullable(req.Description)).Scan(&id)
	if err != nil {
		r.logger.Error("failed to create donation request",
			zap.Int64("person_id", req.PersonID), zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (r *donationRepo) GetByID(ctx context.Context, id int64) (*Request, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+donationColumns+donationJoins+` WHERE d.id = $1`, id)
	out, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to load donation request", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *donationRepo) List(ctx context.Context, page httpx.Pageable) (*httpx.Page[Request], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM donation_requests`).Scan(&total); err != nil {
		r.logger.Error("failed to count donation requests", zap.Error(err))
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+donationColumns+donationJoins+`
		 ORDER BY d.status = 'PENDING' DESC, d.created_at DESC
		 LIMIT $1 OFFSET $2`, page.Size, page.Offset())
	if err != nil {
		r.logger.Error("failed to list donation requests", zap.Error(err))
		return nil, err
	}
	content, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	return httpx.NewPage(content, page.Page, page.Size, total), nil
}

func (r *donationRepo) ListByPerson(ctx context.Context, personID int64, page httpx.Pageable) (*httpx.Page[Request], error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM donation_requests WHERE person_id = $1`, personID).Scan(&total); err != nil {
		r.logger.Error("failed to count donation requests", zap.Error(err))
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+donationColumns+donationJoins+`
		 WHERE d.person_id = $1
		 ORDER BY d.created_at DESC
		 LIMIT $2 OFFSET $3`, personID, page.Size, page.Offset())
	if err != nil {
		r.logger.Error("failed to list donation requests by person", zap.Error(err))
		return nil, err
	}
	content, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	return httpx.NewPage(content, page.Page, page.Size, total), nil
}

func (r *donationRepo) Decide(ctx context.Context, id int64, status Status, adminNotes string, decidedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE donation_requests
		 SET status = $2, admin_notes = $3, decided_at = $4
		 WHERE id = $1 AND status = $5`,
		id, string(status), nullable(adminNotes), decidedAt, string(StatusPending))
	if err != nil {
		r.logger.Error("failed to decide donation request", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, getErr := r.GetByID(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrAlreadyDecided
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var out Request
	var author, isbn, description, adminNotes sql.NullString
	var decidedAt sql.NullTime
	err := row.Scan(
		&out.ID, &out.PersonID, &out.BookTitle, &author, &isbn,
		&description, &out.Status, &adminNotes, &decidedAt, &out.CreatedAt,
		&out.Username,
	)
	if err != nil {
		return nil, err
	}
	out.Author = author.String
	out.ISBN = isbn.String
	out.Description = description.String
	out.AdminNotes = adminNotes.String
	if decidedAt.Valid {
		out.DecidedAt = &decidedAt.Time
	}
	return &out, nil
}

func collectRequests(rows *sql.Rows) ([]Request, error) {
	defer rows.Close()
	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
