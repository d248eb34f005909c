package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/session"
	"github.com/openshelf/openshelf/internal/token"
	"go.uber.org/zap"
)

type AuthenticationHandler interface {
	Routes() chi.Router
}

type authenticationHandler struct {
	logger       *zap.Logger
	authService  AuthService
	tokenService token.TokenService
	cookieCfg    *config.CookieConfig
	validator    *validator.Validate
}

func NewAuthenticationHandler(authService AuthService, tokenService token.TokenService, cookieCfg *config.CookieConfig, l *zap.Logger) AuthenticationHandler {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &authenticationHandler{
		logger:       l,
		authService:  authService,
		tokenService: tokenService,
		cookieCfg:    cookieCfg,
		validator:    v,
	}
}

func (a *authenticationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", a.Register)
	r.Post("/login", a.Login)
	r.Post("/logout", a.Logout)
	r.Post("/refresh", a.Refresh)
	r.With(Authn(a.tokenService, a.logger)).Get("/me", a.Me)
	return r
}

func (a *authenticationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var req registerPersonRequest
	if !a.decode(w, r, &req) {
		return
	}

	publicID, err := a.authService.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		a.logger.Warn("failed to register user", zap.Error(err))
		switch err {
		case person.ErrDuplicateEmail:
			httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
				Code:    httpx.ErrConflict,
				Message: "email already exists",
			})
		case person.ErrDuplicateUsername:
			httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
				Code:    httpx.ErrConflict,
				Message: "username already exists",
			})
		default:
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "internal server error",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerPersonResponse{
		PublicID: string(publicID),
	})
}

func (a *authenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.authService.Login(ctx, req.Email, req.Password, httpx.ClientMetaFromRequest(r))
	if err != nil {
		switch err {
		case ErrInvalidCredentials:
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
				Code:    httpx.ErrUnauthorized,
				Message: "invalid email or password",
			})
		case ErrUserNotActive:
			httpx.WriteError(w, http.StatusForbidden, httpx.ErrorResponse[any]{
				Code:    httpx.ErrForbidden,
				Message: "account is not active",
			})
		default:
			a.logger.Error("login failed", zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "internal server error",
			})
		}
		return
	}

	// persist the session record: both keys, one response
	claims, derr := token.DecodeUnverified(res.Tokens.AccessToken)
	if derr != nil {
		a.logger.Error("issued token is not decodable", zap.Error(derr))
		httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInternal,
			Message: "internal server error",
		})
		return
	}
	session.Write(w, a.cookieCfg, res.Tokens.AccessToken, claims, res.Tokens.RefreshExpiresAt)

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken:      res.Tokens.AccessToken,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshToken:     res.Tokens.RefreshToken,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
		Role:             string(res.Person.Role),
		PublicID:         string(res.Person.PublicID),
	})
}

func (a *authenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// best effort: kill the server-side session if the token still reads
	if claims, err := token.DecodeUnverified(session.TokenFromRequest(r)); err == nil {
		if err := a.authService.Logout(ctx, claims.SID); err != nil {
			a.logger.Warn("failed to destroy session", zap.Error(err))
		}
	}

	session.Clear(w, a.cookieCfg)
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func (a *authenticationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req refreshRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.tokenService.Refresh(ctx, req.RefreshToken, token.IssueMeta{
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		a.logger.Debug("refresh rejected", zap.Error(err))
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "invalid refresh token",
		})
		return
	}

	if claims, derr := token.DecodeUnverified(res.AccessToken); derr == nil {
		session.Write(w, a.cookieCfg, res.AccessToken, claims, res.RefreshExpiresAt)
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshToken:     res.RefreshToken,
		RefreshExpiresAt: res.RefreshExpiresAt,
	})
}

func (a *authenticationHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "missing access token",
		})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, meResponse{
		PublicID:  string(claims.Sub),
		SessionID: string(claims.SID),
		Role:      string(claims.Role),
	})
}

func (a *authenticationHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeStrict(w, r, dst); err != nil {
		if httpx.IsUnsupportedMedia(err) {
			httpx.WriteError(w, http.StatusUnsupportedMediaType, httpx.ErrorResponse[any]{
				Code:    httpx.ErrUnsupportedMedia,
				Message: "Content-Type must be application/json",
			})
			return false
		}
		a.logger.Warn("failed to decode request body", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "invalid request body",
		})
		return false
	}

	if err := a.validator.Struct(dst); err != nil {
		a.logger.Warn("validation failed", zap.Error(err))
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[[]httpx.FieldError]{
			Code:    httpx.ErrValidationFailed,
			Message: "validation failed",
			Details: httpx.ValidationDetails(err),
		})
		return false
	}
	return true
}

type registerPersonRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=8,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type registerPersonResponse struct {
	PublicID string `json:"public_id"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	Role             string    `json:"role,omitempty"`
	PublicID         string    `json:"public_id,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type meResponse struct {
	PublicID  string `json:"public_id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
}
