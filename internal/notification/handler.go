package notification

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/person"
	"go.uber.org/zap"
)

type NotificationHandler interface {
	Routes() chi.Router
}

type notificationHandler struct {
	logger     *zap.Logger
	repo       NotificationRepo
	personRepo person.PersonRepo
	authn      []func(http.Handler) http.Handler
}

func NewNotificationHandler(repo NotificationRepo, personRepo person.PersonRepo, l *zap.Logger, authn ...func(http.Handler) http.Handler) NotificationHandler {
	return &notificationHandler{
		logger:     l,
		repo:       repo,
		personRepo: personRepo,
		authn:      authn,
	}
}

func (h *notificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authn...)
	r.Get("/list", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Put("/{id}/read", h.MarkRead)
	return r
}

func (h *notificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	items, err := h.repo.ListByPerson(ctx, personID, 50)
	if err != nil {
		h.internal(w, err)
		return
	}
	if items == nil {
		items = []Notification{}
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *notificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	count, err := h.repo.UnreadCount(ctx, personID)
	if err != nil {
		h.internal(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *notificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || notificationID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "invalid id",
		})
		return
	}
	if err := h.repo.MarkRead(ctx, personID, notificationID); err != nil {
		h.internal(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// caller maps the verified token subject onto the internal person id.
func (h *notificationHandler) caller(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "missing access token",
		})
		return 0, false
	}
	p, err := h.personRepo.GetByPublicID(ctx, claims.Sub)
	if err != nil {
		h.logger.Warn("token subject has no person row", zap.String("sub", string(claims.Sub)))
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "unknown account",
		})
		return 0, false
	}
	return p.ID, true
}

func (h *notificationHandler) internal(w http.ResponseWriter, err error) {
	h.logger.Error("notification operation failed", zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}
