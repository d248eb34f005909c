package donation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/openshelf/openshelf/internal/person"
	"go.uber.org/zap"
)

type DonationHandler interface {
	Routes() chi.Router
}

type donationHandler struct {
	logger     *zap.Logger
	service    DonationService
	personRepo person.PersonRepo
	validator  *validator.Validate
	authn      []func(http.Handler) http.Handler
	adminOnly  []func(http.Handler) http.Handler
}

func NewDonationHandler(service DonationService, personRepo person.PersonRepo, l *zap.Logger,
	authn []func(http.Handler) http.Handler, adminOnly []func(http.Handler) http.Handler) DonationHandler {
	return &donationHandler{
		logger:     l,
		service:    service,
		personRepo: personRepo,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		authn:      authn,
		adminOnly:  adminOnly,
	}
}

func (h *donationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.authn...)

	r.Post("/create", h.Create)
	r.Get("/my", h.Mine)

	r.Group(func(r chi.Router) {
		r.Use(h.adminOnly...)
		r.Get("/list", h.List)
		r.Get("/user/{id}", h.ByPerson)
		r.Put("/approve/{id}", h.Approve)
		r.Put("/reject/{id}", h.Reject)
	})

	return r
}

type donationRequest struct {
	BookTitle   string `json:"bookTitle"   validate:"required,min=1,max=256"`
	Author      string `json:"author"      validate:"omitempty,max=256"`
	ISBN        string `json:"isbn"        validate:"omitempty,max=32"`
	Description string `json:"description" validate:"omitempty,max=4096"`
}

func (h *donationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	var req donationRequest
	if !h.decode(w, r, &req) {
		return
	}
	created, err := h.service.Submit(ctx, &Request{
		PersonID:    personID,
		BookTitle:   req.BookTitle,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Description: req.Description,
	})
	if err != nil {
		h.donationError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *donationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.caller(ctx, w, r)
	if !ok {
		return
	}
	page, err := h.service.ListByPerson(ctx, personID, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list donation requests", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *donationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	page, err := h.service.List(ctx, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list donation requests", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *donationHandler) ByPerson(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	personID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	page, err := h.service.ListByPerson(ctx, personID, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list donation requests", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *donationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *donationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *donationHandler) decide(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, id int64, adminNotes string) (*Request, error)) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	donationID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	decided, err := apply(ctx, donationID, r.URL.Query().Get("adminNotes"))
	if err != nil {
		h.donationError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, decided)
}

func (h *donationHandler) caller(ctx context.Context, w http.ResponseWriter, r *http.Request) (int64, bool) {
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

func (h *donationHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func (h *donationHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || v <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "invalid id",
		})
		return 0, false
	}
	return v, true
}

func (h *donationHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
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

func (h *donationHandler) donationError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: "donation request not found",
		})
	case ErrAlreadyDecided:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "donation request was already decided",
		})
	default:
		h.internal(w, "donation operation failed", err)
	}
}

func (h *donationHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}
