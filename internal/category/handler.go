package category

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

type CategoryHandler interface {
	Routes() chi.Router
}

type categoryHandler struct {
	logger    *zap.Logger
	repo      CategoryRepo
	validator *validator.Validate
	adminOnly []func(http.Handler) http.Handler
}

func NewCategoryHandler(repo CategoryRepo, l *zap.Logger, adminOnly ...func(http.Handler) http.Handler) CategoryHandler {
	return &categoryHandler{
		logger:    l,
		repo:      repo,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		adminOnly: adminOnly,
	}
}

func (h *categoryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/list", h.List)

	r.Group(func(r chi.Router) {
		r.Use(h.adminOnly...)
		r.Post("/create", h.Create)
		r.Put("/edit/{id}", h.Rename)
		r.Delete("/delete/{id}", h.Delete)
	})
	return r
}

func (h *categoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	categories, err := h.repo.List(ctx)
	if err != nil {
		h.internal(w, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.WriteJSON(w, http.StatusOK, categories)
}

func (h *categoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	categoryID, err := h.repo.Create(ctx, req.Name)
	if err != nil {
		h.categoryError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]int64{"id": categoryID})
}

func (h *categoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.repo.Rename(ctx, categoryID, req.Name); err != nil {
		h.categoryError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *categoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	categoryID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(ctx, categoryID); err != nil {
		h.categoryError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *categoryHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
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

func (h *categoryHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeStrict(w, r, dst); err != nil {
		status := http.StatusBadRequest
		code := httpx.ErrInvalidJSON
		if httpx.IsUnsupportedMedia(err) {
			status = http.StatusUnsupportedMediaType
			code = httpx.ErrUnsupportedMedia
		}
		httpx.WriteError(w, status, httpx.ErrorResponse[any]{
			Code:    code,
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

func (h *categoryHandler) categoryError(w http.ResponseWriter, err error) {
	switch err {
	case ErrDuplicateName:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "category name already exists",
		})
	case ErrNotFound:
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: "category not found",
		})
	case ErrInUse:
		httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
			Code:    httpx.ErrConflict,
			Message: "category still has books",
		})
	default:
		h.internal(w, err)
	}
}

func (h *categoryHandler) internal(w http.ResponseWriter, err error) {
	h.logger.Error("category operation failed", zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}
