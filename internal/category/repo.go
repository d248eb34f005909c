package category

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"go.uber.org/zap"
)

type CategoryRepo interface {
	Create(ctx context.Context, name string) (int64, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]Category, error)
}

type categoryRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCategoryRepo(db *sql.DB, logger *zap.Logger) CategoryRepo {
	return &categoryRepo{db: db, logger: logger}
}

func (c *categoryRepo) Create(ctx context.Context, name string) (int64, error) {
	var categoryID int64
	err := c.db.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`,
		strings.TrimSpace(name)).Scan(&categoryID)
	if err != nil {
		if isUnique(err) {
			return 0, ErrDuplicateName
		}
		c.logger.Error("failed to create category", zap.Error(err))
		return 0, err
	}
	return categoryID, nil
}

func (c *categoryRepo) Rename(ctx context.Context, id int64, name string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE categories SET name = $2, updated_at = now() WHERE id = $1`,
		id, strings.TrimSpace(name))
	if err != nil {
		if isUnique(err) {
			return ErrDuplicateName
		}
		c.logger.Error("failed to rename category", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete refuses to remove a category that still owns books; unfiling
// them first is an explicit admin action, not a side effect.
func (c *categoryRepo) Delete(ctx context.Context, id int64) error {
	var inUse bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE category_id = $1 AND is_deleted = FALSE)`,
		id).Scan(&inUse)
	if err != nil {
		c.logger.Error("failed to check category usage", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if inUse {
		return ErrInUse
	}

	res, err := c.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		c.logger.Error("failed to delete category", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *categoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		c.logger.Error("failed to list categories", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var cat Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
