package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

type BookRepo interface {
	Create(ctx context.Context, dto *BookDTO) (int64, error)
	Update(ctx context.Context, id int64, dto *BookDTO) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Book, error)
	List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Book], error)
	Search(ctx context.Context, query string, page httpx.Pageable) (*httpx.Page[Book], error)
	Popular(ctx context.Context, limit int) ([]Book, error)
	Recommended(ctx context.Context, limit int) ([]Book, error)
	NewCollection(ctx context.Context, limit int) ([]Book, error)
	Featured(ctx context.Context) ([]Book, error)
	SetAvailability(ctx context.Context, id int64, availableCopies int) error
	SetCategory(ctx context.Context, id int64, categoryID *int64) error
	SetFeatured(ctx context.Context, id int64, featured bool) error
}

const bookColumns = `id, name, author, isbn, about, short_details, category_id,
	total_copies, available_copies, publication_year,
	book_cover_url, pdf_file_url, audio_file_url,
	is_featured, borrow_count, created_at, updated_at`

const (
	insertBookQuery = `
		INSERT INTO books (name, author, isbn, about, short_details, category_id,
			total_copies, available_copies, publication_year,
			book_cover_url, pdf_file_url, audio_file_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
		`
	updateBookQuery = `
		UPDATE books
		SET name = $2, author = $3, isbn = $4, about = $5, short_details = $6,
			category_id = $7, total_copies = $8, available_copies = $9,
			publication_year = $10, book_cover_url = $11, pdf_file_url = $12,
			audio_file_url = $13, updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE
		`
	softDeleteBookQuery = `
		UPDATE books SET is_deleted = TRUE, updated_at = now()
		WHERE id = $1 AND is_deleted = FALSE
		`
)

type bookRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewBookRepo(db *sql.DB, logger *zap.Logger) BookRepo {
	return &bookRepo{db: db, logger: logger}
}

func (b *bookRepo) Create(ctx context.Context, dto *BookDTO) (int64, error) {
	var bookID int64
	err := b.db.QueryRowContext(ctx, insertBookQuery,
		strings.TrimSpace(dto.Name),
		strings.TrimSpace(dto.Author),
		dto.ISBN,
		dto.About,
		dto.ShortDetails,
		dto.CategoryID,
		dto.TotalCopies,
		dto.AvailableCopies,
		dto.PublicationYear,
		dto.BookCoverURL,
		dto.PDFFileURL,
		dto.AudioFileURL,
	).Scan(&bookID)
	if err != nil {
		if isForeignKey(err) {
			return 0, ErrUnknownCategory
		}
		b.logger.Error("failed to insert book", zap.Error(err))
		return 0, err
	}
	return bookID, nil
}

func (b *bookRepo) Update(ctx context.Context, id int64, dto *BookDTO) error {
	res, err := b.db.ExecContext(ctx, updateBookQuery,
		id,
		strings.TrimSpace(dto.Name),
		strings.TrimSpace(dto.Author),
		dto.ISBN,
		dto.About,
		dto.ShortDetails,
		dto.CategoryID,
		dto.TotalCopies,
		dto.AvailableCopies,
		dto.PublicationYear,
		dto.BookCoverURL,
		dto.PDFFileURL,
		dto.AudioFileURL,
	)
	if err != nil {
		if isForeignKey(err) {
			return ErrUnknownCategory
		}
		b.logger.Error("failed to update book", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (b *bookRepo) Delete(ctx context.Context, id int64) error {
	res, err := b.db.ExecContext(ctx, softDeleteBookQuery, id)
	if err != nil {
		b.logger.Error("failed to delete book", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (b *bookRepo) GetByID(ctx context.Context, id int64) (*Book, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 AND is_deleted = FALSE`, id)
	out, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		b.logger.Error("failed to load book", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (b *bookRepo) List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Book], error) {
	where := []string{"is_deleted = FALSE"}
	args := []any{}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.NonFeatured {
		where = append(where, "is_featured = FALSE")
	}
	if filter.OnlyAvail {
		where = append(where, "available_copies > 0")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := b.db.QueryRowContext(ctx,
		`SELECT count(*) FROM books WHERE `+cond, args...).Scan(&total); err != nil {
		b.logger.Error("failed to count books", zap.Error(err))
		return nil, err
	}

	args = append(args, page.Size, page.Offset())
	rows, err := b.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE `+cond+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		b.logger.Error("failed to list books", zap.Error(err))
		return nil, err
	}
	content, err := collectBooks(rows)
	if err != nil {
		return nil, err
	}
	return httpx.NewPage(content, page.Page, page.Size, total), nil
}

func (b *bookRepo) Search(ctx context.Context, query string, page httpx.Pageable) (*httpx.Page[Book], error) {
	pattern := "%" + strings.TrimSpace(query) + "%"

	var total int64
	if err := b.db.QueryRowContext(ctx,
		`SELECT count(*) FROM books
		 WHERE is_deleted = FALSE AND (name ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1)`,
		pattern).Scan(&total); err != nil {
		b.logger.Error("failed to count search results", zap.Error(err))
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE is_deleted = FALSE AND (name ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1)
		 ORDER BY name LIMIT $2 OFFSET $3`,
		pattern, page.Size, page.Offset())
	if err != nil {
		b.logger.Error("failed to search books", zap.String("query", query), zap.Error(err))
		return nil, err
	}
	content, err := collectBooks(rows)
	if err != nil {
		return nil, err
	}
	return httpx.NewPage(content, page.Page, page.Size, total), nil
}

func (b *bookRepo) Popular(ctx context.Context, limit int) ([]Book, error) {
	return b.shelf(ctx, `ORDER BY borrow_count DESC, created_at DESC`, limit)
}

// Recommended ranks by review average, falling back to circulation for
// books nobody rated yet.
func (b *bookRepo) Recommended(ctx context.Context, limit int) ([]Book, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT `+prefixed(bookColumns, "bk.")+`
		 FROM books bk
		 LEFT JOIN reviews r ON r.book_id = bk.id
		 WHERE bk.is_deleted = FALSE
		 GROUP BY bk.id
		 ORDER BY COALESCE(avg(r.rating), 0) DESC, bk.borrow_count DESC
		 LIMIT $1`, limit)
	if err != nil {
		b.logger.Error("failed to load recommended books", zap.Error(err))
		return nil, err
	}
	return collectBooks(rows)
}

func (b *bookRepo) NewCollection(ctx context.Context, limit int) ([]Book, error) {
	return b.shelf(ctx, `ORDER BY created_at DESC`, limit)
}

func (b *bookRepo) Featured(ctx context.Context) ([]Book, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE is_deleted = FALSE AND is_featured = TRUE
		 ORDER BY updated_at DESC`)
	if err != nil {
		b.logger.Error("failed to load featured books", zap.Error(err))
		return nil, err
	}
	return collectBooks(rows)
}

func (b *bookRepo) SetAvailability(ctx context.Context, id int64, availableCopies int) error {
	res, err := b.db.ExecContext(ctx,
		`UPDATE books SET available_copies = $2, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id, availableCopies)
	if err != nil {
		if isCheckViolation(err) {
			return ErrInvalidCopies
		}
		b.logger.Error("failed to set availability", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (b *bookRepo) SetCategory(ctx context.Context, id int64, categoryID *int64) error {
	res, err := b.db.ExecContext(ctx,
		`UPDATE books SET category_id = $2, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id, categoryID)
	if err != nil {
		if isForeignKey(err) {
			return ErrUnknownCategory
		}
		b.logger.Error("failed to set category", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (b *bookRepo) SetFeatured(ctx context.Context, id int64, featured bool) error {
	res, err := b.db.ExecContext(ctx,
		`UPDATE books SET is_featured = $2, updated_at = now()
		 WHERE id = $1 AND is_deleted = FALSE`, id, featured)
	if err != nil {
		b.logger.Error("failed to set featured", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return requireRow(res)
}

func (b *bookRepo) shelf(ctx context.Context, order string, limit int) ([]Book, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE is_deleted = FALSE `+order+` LIMIT $1`, limit)
	if err != nil {
		b.logger.Error("failed to load book shelf", zap.Error(err))
		return nil, err
	}
	return collectBooks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*Book, error) {
	var out Book
	var isbn, about, short, cover, pdf, audio sql.NullString
	err := row.Scan(
		&out.ID, &out.Name, &out.Author, &isbn, &about, &short, &out.CategoryID,
		&out.TotalCopies, &out.AvailableCopies, &out.PublicationYear,
		&cover, &pdf, &audio,
		&out.IsFeatured, &out.BorrowCount, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	out.ISBN = isbn.String
	out.About = about.String
	out.ShortDetails = short.String
	out.BookCoverURL = cover.String
	out.PDFFileURL = pdf.String
	out.AudioFileURL = audio.String
	return &out, nil
}

func collectBooks(rows *sql.Rows) ([]Book, error) {
	defer rows.Close()
	var out []Book
	for rows.Next() {
		bk, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *bk)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func isForeignKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation
}

func prefixed(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
