package auth

import (
	"context"
	"errors"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
	"github.com/openshelf/openshelf/internal/token"
	"github.com/openshelf/openshelf/pkg/id"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, email, username, password string) (id.PublicID, error)
	Login(ctx context.Context, email, password string, meta httpx.ClientMeta) (*LoginResult, error)
	Logout(ctx context.Context, sessionID id.SessionID) error
}

type LoginResult struct {
	Person    *person.Person
	SessionID id.SessionID
	Tokens    *token.IssueResult
}

type authService struct {
	personRepo   person.PersonRepo
	sessionRepo  session.SessionRepo
	tokenService token.TokenService
	refreshRepo  token.RefreshTokenRepo
	logger       *zap.Logger
}

func NewAuthenticationService(
	personRepo person.PersonRepo,
	sessionRepo session.SessionRepo,
	tokenService token.TokenService,
	refreshRepo token.RefreshTokenRepo,
	logger *zap.Logger,
) AuthService {
	return &authService{
		personRepo:   personRepo,
		sessionRepo:  sessionRepo,
		tokenService: tokenService,
		refreshRepo:  refreshRepo,
		logger:       logger,
	}
}

func (a *authService) Register(ctx context.Context, email, username, password string) (id.PublicID, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		a.logger.Error("failed to hash password", zap.Error(err))
		return "", err
	}

	publicID, err := a.personRepo.Create(ctx, &person.PersonDTO{
		Email:    email,
		Username: username,
		Password: string(hashed),
	})
	if err != nil {
		return "", err
	}

	return publicID, nil
}

func (a *authService) Login(ctx context.Context, email, password string, meta httpx.ClientMeta) (*LoginResult, error) {
	p, err := a.personRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !p.IsActive {
		return nil, ErrUserNotActive
	}

	sid, err := a.sessionRepo.Create(ctx, p.ID, meta)
	if err != nil {
		return nil, err
	}

	tokens, err := a.tokenService.Issue(ctx, p, sid, token.IssueMeta{
		UserAgent: meta.UserAgent,
		IP:        meta.IP,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("login",
		zap.String("public_id", string(p.PublicID)),
		zap.String("session_id", string(sid)),
	)
	return &LoginResult{Person: p, SessionID: sid, Tokens: tokens}, nil
}

// Logout kills the session row and every refresh token chained to it.
// Logging out an already-dead session is a no-op, not an error.
func (a *authService) Logout(ctx context.Context, sessionID id.SessionID) error {
	if sessionID == "" {
		return nil
	}
	if err := a.refreshRepo.RevokeBySession(ctx, sessionID); err != nil {
		return err
	}
	return a.sessionRepo.Delete(ctx, sessionID)
}
