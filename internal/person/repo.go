package person

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/openshelf/openshelf/pkg/id"
	"go.uber.org/zap"
)

type PersonDTO struct {
	Email    string
	Username string
	Password string
}

type PersonRepo interface {
	Create(ctx context.Context, dto *PersonDTO) (id.PublicID, error)
	GetByEmail(ctx context.Context, email string) (*Person, error)
	GetByPublicID(ctx context.Context, publicID id.PublicID) (*Person, error)
}

const (
	insertPersonQuery = `
						INSERT INTO persons (email, username, password, role, is_active, is_deleted)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING public_id
						`
	selectPersonQuery = `
						SELECT id, public_id, email, username, password, role, is_active, is_deleted, created_at, updated_at
						FROM persons
						WHERE is_deleted = FALSE
						`
)

type personRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPersonRepo(db *sql.DB, logger *zap.Logger) PersonRepo {
	return &personRepo{
		db:     db,
		logger: logger,
	}
}

func (p *personRepo) Create(ctx context.Context, dto *PersonDTO) (id.PublicID, error) {
	row := p.db.QueryRowContext(ctx,
		insertPersonQuery,
		strings.ToLower(strings.TrimSpace(dto.Email)),
		strings.TrimSpace(dto.Username),
		dto.Password,
		RoleUser,
		true,
		false,
	)

	var publicID id.PublicID
	if err := row.Scan(&publicID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case "persons_email_key":
				return "", ErrDuplicateEmail
			case "persons_username_key":
				return "", ErrDuplicateUsername
			default:
				// unique index on lower(email) reports through Detail
				det := strings.ToLower(pgErr.Detail)
				if strings.Contains(det, "(email)") {
					return "", ErrDuplicateEmail
				}
				if strings.Contains(det, "(username)") {
					return "", ErrDuplicateUsername
				}
			}
		}
		p.logger.Error("failed to create person", zap.Error(err))
		return "", err
	}

	p.logger.Debug("person created", zap.String("public_id", string(publicID)))
	return publicID, nil
}

func (p *personRepo) GetByEmail(ctx context.Context, email string) (*Person, error) {
	row := p.db.QueryRowContext(ctx, selectPersonQuery+` AND lower(email) = lower($1)`, strings.TrimSpace(email))
	return p.scan(row)
}

func (p *personRepo) GetByPublicID(ctx context.Context, publicID id.PublicID) (*Person, error) {
	row := p.db.QueryRowContext(ctx, selectPersonQuery+` AND public_id = $1`, string(publicID))
	return p.scan(row)
}

func (p *personRepo) scan(row *sql.Row) (*Person, error) {
	var out Person
	err := row.Scan(
		&out.ID,
		&out.PublicID,
		&out.Email,
		&out.Username,
		&out.Password,
		&out.Role,
		&out.IsActive,
		&out.IsDeleted,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error("failed to load person", zap.Error(err))
		return nil, err
	}
	return &out, nil
}
