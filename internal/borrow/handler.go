package borrow

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/book"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/person"
	"go.uber.org/zap"
)

type BorrowHandler interface {
	Routes() chi.Router
}

type borrowHandler struct {
	logger     *zap.Logger
	service    BorrowService
	personRepo person.PersonRepo
	validator  *validator.Validate
	authn      []func(http.Handler) http.Handler
	adminOnly  []func(http.Handler) http.Handler
}

// NewBorrowHandler wires the circulation endpoints. Every route requires
// a verified token; the decision routes additionally require admin.
func NewBorrowHandler(service BorrowService, personRepo person.PersonRepo, l *zap.Logger,
	authn []func(http.Handler) http.Handler, adminOnly []func(http.Handler) http.Handler) BorrowHandler {
	return &borrowHandler{
		logger:     l,
		service:    service,
		personRepo: personRepo,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		authn:      authn,
		adminOnly:  adminOnly,
	}
}

func (h *borrowHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authn...)

	r.Post("/create", h.Create)
	r.Get("/my", h.Mine)
	r.Get("/stats", h.Stats)
	r.Put("/return", h.Return)
	r.Put("/date_extend", h.Extend)

	r.Group(func(r chi.Router) {
		r.Use(h.adminOnly...)
		r.Get("/list", h.List)
		r.Get("/overdue", h.OverdueList)
		r.Get("/user/{id}/history", h.History)
		r.Put("/accept", h.Accept)
		r.Put("/reject", h.Reject)
	})

	return r
}

type createBorrowRequest struct {
	BookID int64 `json:"bookId" validate:"required,gt=0"`
}

func (h *borrowHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	var req createBorrowRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.Request(ctx, personID, req.BookID)
	if err != nil {
		h.borrowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

// Mine lists the caller's own borrows, newest first. ?active=true keeps
// only loans still in flight.
func (h *borrowHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	filter := ListFilter{
		PersonID:   personID,
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	page, err := h.service.List(ctx, filter, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list borrows", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *borrowHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(ctx, personID)
	if err != nil {
		h.internal(w, "failed to load borrow stats", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *borrowHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.selfTransition(w, r, h.service.Return)
}

func (h *borrowHandler) Extend(w http.ResponseWriter, r *http.Request) {
	h.selfTransition(w, r, h.service.Extend)
}

func (h *borrowHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	filter := ListFilter{
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	page, err := h.service.List(ctx, filter, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list borrows", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *borrowHandler) OverdueList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	items, err := h.service.Overdue(ctx)
	if err != nil {
		h.internal(w, "failed to list overdue borrows", err)
		return
	}
	if items == nil {
		items = []Borrow{}
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *borrowHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || personID <= 0 {
		h.badParam(w, "id")
		return
	}
	page, err := h.service.List(ctx, ListFilter{PersonID: personID}, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to load borrow history", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *borrowHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.adminDecision(w, r, h.service.Accept)
}

func (h *borrowHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.adminDecision(w, r, h.service.Reject)
}

type transition func(ctx context.Context, personID, bookID int64) (*Borrow, error)

// adminDecision resolves the target borrow from userId and bookId query
// params, matching how the admin screens call these endpoints.
func (h *borrowHandler) adminDecision(w http.ResponseWriter, r *http.Request, apply transition) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || personID <= 0 {
		h.badParam(w, "userId")
		return
	}
	bookID, err := strconv.ParseInt(r.URL.Query().Get("bookId"), 10, 64)
	if err != nil || bookID <= 0 {
		h.badParam(w, "bookId")
		return
	}
	b, err := apply(ctx, personID, bookID)
	if err != nil {
		h.borrowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *borrowHandler) selfTransition(w http.ResponseWriter, r *http.Request, apply transition) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	bookID, err := strconv.ParseInt(r.URL.Query().Get("bookId"), 10, 64)
	if err != nil || bookID <= 0 {
		h.badParam(w, "bookId")
		return
	}
	b, err := apply(ctx, personID, bookID)
	if err != nil {
		h.borrowError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *borrowHandler) caller(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
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

func (h *borrowHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func (h *borrowHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeStrict(w, r, dst); err != nil {
		if httpx.IsUnsupportedMedia(err) {
			httpx.WriteError(w, http.StatusUnsupportedMediaType, httpx.ErrorResponse[any]{
				Code:    httpx.ErrUnsupportedMedia,
				Message: "Content-Type must be application/json",
			})
			return false
		}
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "invalid request body",
		})
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[[]httpx.FieldError]{
			Code:    httpx.ErrValidationFailed,
			Message: "validation failed",
			Details: httpx.ValidationDetails(err),
		})
		return false
	}
	return true
}

func (h *borrowHandler) badParam(w http.ResponseWriter, name string) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
		Code:    httpx.ErrValidationFailed,
		Message: "invalid " + name,
	})
}

func (h *borrowHandler) borrowError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound, book.ErrNotFound:
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: "borrow not found",
		})
	case ErrAlreadyRequested:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "an open borrow already exists for this book",
		})
	case ErrNoCopies:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "no copies available",
		})
	case ErrAlreadyExtended:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "loan was already extended",
		})
	case ErrBadTransition:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "operation not allowed in current status",
		})
	default:
		h.internal(w, "borrow operation failed", err)
	}
}

func (h *borrowHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}
