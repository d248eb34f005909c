package review

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"go.uber.org/zap"
)

type ReviewRepo interface {
	// Create enforces one review per person per book through the
	// unique constraint; a second attempt maps to ErrAlreadyReviewed.
	Create(ctx context.Context, r *Review) (int64, error)
	SummaryByBook(ctx context.Context, bookID int64, limit int) (*Summary, error)
}

type reviewRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewReviewRepo(db *sql.DB, logger *zap.Logger) ReviewRepo {
	return &reviewRepo{db: db, logger: logger}
}

func (r *reviewRepo) Create(ctx context.Context, rev *Review) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reviews (person_id, book_id, rating, review)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		rev.PersonID, rev.BookID, rev.Rating, nullable(rev.Review)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return 0, ErrAlreadyReviewed
			case pgerrcode.ForeignKeyViolation:
				return 0, ErrUnknownBook
			case pgerrcode.CheckViolation:
				return 0, ErrInvalidRating
			}
		}
		r.logger.Error("failed to create review",
			zap.Int64("person_id", rev.PersonID), zap.Int64("book_id", rev.BookID), zap.Error(err))
		return 0, err
	}
	return id, nil
}

func (r *reviewRepo) SummaryByBook(ctx context.Context, bookID int64, limit int) (*Summary, error) {
	out := Summary{BookID: bookID, Reviews: []Review{}}

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(avg(rating), 0), count(*) FROM reviews WHERE book_id = $1`,
		bookID).Scan(&avg, &out.Count)
	if err != nil {
		r.logger.Error("failed to aggregate reviews", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, err
	}
	out.Average = avg.Float64

	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.person_id, r.book_id, r.rating, r.review, r.created_at, p.username
		 FROM reviews r
		 JOIN persons p ON p.id = r.person_id
		 WHERE r.book_id = $1
		 ORDER BY r.created_at DESC
		 LIMIT $2`, bookID, limit)
	if err != nil {
		r.logger.Error("failed to list reviews", zap.Int64("book_id", bookID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rev Review
		var text sql.NullString
		if err := rows.Scan(&rev.ID, &rev.PersonID, &rev.BookID, &rev.Rating,
			&text, &rev.CreatedAt, &rev.Username); err != nil {
			return nil, err
		}
		rev.Review = text.String
		out.Reviews = append(out.Reviews, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
