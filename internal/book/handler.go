package book

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

type BookHandler interface {
	Routes() chi.Router
	FeaturedRoutes() chi.Router
}

type bookHandler struct {
	logger    *zap.Logger
	service   BookService
	validator *validator.Validate
	adminOnly []func(http.Handler) http.Handler
}

// NewBookHandler wires the catalog endpoints. adminOnly is the verified
// authn + admin-role middleware chain applied to every mutation.
func NewBookHandler(service BookService, l *zap.Logger, adminOnly ...func(http.Handler) http.Handler) BookHandler {
	return &bookHandler{
		logger:    l,
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		adminOnly: adminOnly,
	}
}

func (h *bookHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/list", h.List)
	r.Get("/search", h.Search)
	r.Get("/retrieve/{id}", h.Retrieve)
	r.Get("/{id}/is_available", h.IsAvailable)
	r.Get("/popular-books", h.Popular)
	r.Get("/recommended-books", h.Recommended)
	r.Get("/new-collection", h.NewCollection)
	r.Get("/category/{categoryID}", h.ByCategory)
	r.Get("/available", h.Available)

	r.Group(func(r chi.Router) {
		r.Use(h.adminOnly...)
		r.Post("/create", h.Create)
		r.Put("/edit/{id}", h.Update)
		r.Delete("/delete/{id}", h.Delete)
		r.Patch("/{id}/availability", h.PatchAvailability)
		r.Patch("/{id}/category", h.PatchCategory)
		r.Patch("/{id}/featured", h.PatchFeatured)
	})

	return r
}

// FeaturedRoutes serves the banner list the home page loads from
// /featured-books.
func (h *bookHandler) FeaturedRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/list", h.Featured)
	return r
}

func (h *bookHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	filter := ListFilter{
		NonFeatured: r.URL.Query().Get("non_featured") == "true",
	}
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		cid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.badParam(w, "categoryId")
			return
		}
		filter.CategoryID = &cid
	}

	page, err := h.service.List(ctx, filter, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list books", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *bookHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	query := r.URL.Query().Get("query")
	page, err := h.service.Search(ctx, query, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to search books", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *bookHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	bk, err := h.service.Get(ctx, bookID)
	if err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, bk)
}

func (h *bookHandler) IsAvailable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	available, err := h.service.IsAvailable(ctx, bookID)
	if err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *bookHandler) Popular(w http.ResponseWriter, r *http.Request) {
	h.shelf(w, r, h.service.Popular)
}

func (h *bookHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	h.shelf(w, r, h.service.Recommended)
}

func (h *bookHandler) NewCollection(w http.ResponseWriter, r *http.Request) {
	h.shelf(w, r, h.service.NewCollection)
}

func (h *bookHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	books, err := h.service.Featured(ctx)
	if err != nil {
		h.internal(w, "failed to load featured books", err)
		return
	}
	if books == nil {
		books = []Book{}
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *bookHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	categoryID, ok := h.pathID(w, r, "categoryID")
	if !ok {
		return
	}
	page, err := h.service.List(ctx, ListFilter{CategoryID: &categoryID}, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list books by category", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *bookHandler) Available(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	page, err := h.service.List(ctx, ListFilter{OnlyAvail: true}, httpx.PageableFromRequest(r))
	if err != nil {
		h.internal(w, "failed to list available books", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *bookHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	bookID, err := h.service.Create(ctx, req.dto())
	if err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]int64{"id": bookID})
}

func (h *bookHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.Update(ctx, bookID, req.dto()); err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *bookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, bookID); err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *bookHandler) PatchAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	copies, err := strconv.Atoi(r.URL.Query().Get("availableCopies"))
	if err != nil {
		h.badParam(w, "availableCopies")
		return
	}
	if err := h.service.SetAvailability(ctx, bookID, copies); err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *bookHandler) PatchCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var categoryID *int64
	if raw := r.URL.Query().Get("categoryId"); raw != "" {
		cid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.badParam(w, "categoryId")
			return
		}
		categoryID = &cid
	}
	if err := h.service.SetCategory(ctx, bookID, categoryID); err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *bookHandler) PatchFeatured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	featured := r.URL.Query().Get("featured") == "true"
	if err := h.service.SetFeatured(ctx, bookID, featured); err != nil {
		h.bookError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *bookHandler) shelf(w http.ResponseWriter, r *http.Request, load func(context.Context, int) ([]Book, error)) {
	ctx, cancel := h.ctx(r)
	defer cancel()

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 50 {
			h.badParam(w, "limit")
			return
		}
		limit = parsed
	}

	books, err := load(ctx, limit)
	if err != nil {
		h.internal(w, "failed to load book shelf", err)
		return
	}
	if books == nil {
		books = []Book{}
	}
	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *bookHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func (h *bookHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		h.badParam(w, name)
		return 0, false
	}
	return v, true
}

func (h *bookHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
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

func (h *bookHandler) badParam(w http.ResponseWriter, name string) {
	httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
		Code:    httpx.ErrValidationFailed,
		Message: "invalid " + name,
	})
}

func (h *bookHandler) bookError(w http.ResponseWriter, err error) {
	switch err {
	case ErrNotFound:
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: "book not found",
		})
	case ErrInvalidCopies:
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "available copies out of range",
		})
	case ErrUnknownCategory:
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "unknown category",
		})
	default:
		h.internal(w, "book operation failed", err)
	}
}

func (h *bookHandler) internal(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}

type bookRequest struct {
	Name            string `json:"name"             validate:"required,min=1,max=256"`
	Author          string `json:"author"           validate:"required,min=1,max=256"`
	ISBN            string `json:"isbn"             validate:"omitempty,max=32"`
	About           string `json:"about"            validate:"omitempty,max=8192"`
	ShortDetails    string `json:"short_details"    validate:"omitempty,max=1024"`
	CategoryID      *int64 `json:"categoryId"       validate:"omitempty,gt=0"`
	TotalCopies     int    `json:"total_copies"     validate:"gte=0"`
	AvailableCopies int    `json:"available_copies" validate:"gte=0,ltefield=TotalCopies"`
	PublicationYear *int   `json:"publication_year" validate:"omitempty,gte=0,lte=2100"`
	BookCoverURL    string `json:"book_cover_url"   validate:"omitempty,url"`
	PDFFileURL      string `json:"pdf_file_url"     validate:"omitempty,url"`
	AudioFileURL    string `json:"audio_file_url"   validate:"omitempty,url"`
}

func (r *bookRequest) dto() *BookDTO {
	return &BookDTO{
		Name:            r.Name,
		Author:          r.Author,
		ISBN:            r.ISBN,
		About:           r.About,
		ShortDetails:    r.ShortDetails,
		CategoryID:      r.CategoryID,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: r.AvailableCopies,
		PublicationYear: r.PublicationYear,
		BookCoverURL:    r.BookCoverURL,
		PDFFileURL:      r.PDFFileURL,
		AudioFileURL:    r.AudioFileURL,
	}
}
