package review

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

type ReviewHandler interface {
	Routes() chi.Router
}

type reviewHandler struct {
	logger     *zap.Logger
	repo       ReviewRepo
	personRepo person.PersonRepo
	validator  *validator.Validate
	authn      []func(http.Handler) http.Handler
}

// NewReviewHandler wires the review endpoints. Reading a book's reviews
// is public; writing one requires a verified token.
func NewReviewHandler(repo ReviewRepo, personRepo person.PersonRepo, l *zap.Logger,
	authn ...func(http.Handler) http.Handler) ReviewHandler {
	return &reviewHandler{
		logger:     l,
		repo:       repo,
		personRepo: personRepo,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		authn:      authn,
	}
}

func (h *reviewHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/list/book/{bookID}", h.ListByBook)
	r.Group(func(r chi.Router) {
		r.Use(h.authn...)
		r.Post("/create", h.Create)
	})
	return r
}

type createReviewRequest struct {
	BookID int64  `json:"bookId" validate:"required,gt=0"`
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review string `json:"review" validate:"omitempty,max=4096"`
}

func (h *reviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	claims, ok := auth.ClaimsFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "missing access token",
		})
		return
	}
	p, err := h.personRepo.GetByPublicID(ctx, claims.Sub)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "unknown account",
		})
		return
	}

	var req createReviewRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.repo.Create(ctx, &Review{
		PersonID: p.ID,
		BookID:   req.BookID,
		Rating:   req.Rating,
		Review:   req.Review,
	})
	if err != nil {
		h.reviewError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *reviewHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil || bookID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "invalid bookID",
		})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "invalid limit",
			})
			return
		}
		limit = parsed
	}

	summary, err := h.repo.SummaryByBook(ctx, bookID, limit)
	if err != nil {
		h.internal(w, "failed to load review summary", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}

func (h *reviewHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func (h *reviewHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
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

func (h *reviewHandler) reviewError(w http.ResponseWriter, err error) {
	switch err {
	case ErrAlreadyReviewed:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "you already reviewed this book",
		})
	case ErrUnknownBook:
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: "book not found",
		})
	case ErrInvalidRating:
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "rating must be between 1 and 5",
		})
	default:
		h.internal(w, "review operation failed", err)
	}
}

func (h *reviewHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}
