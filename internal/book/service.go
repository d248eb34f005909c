package book

import (
	"context"
	"fmt"

	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/httpx"
	"go.uber.org/zap"
)

type BookService interface {
	Create(ctx context.Context, dto *BookDTO) (int64, error)
	Update(ctx context.Context, id int64, dto *BookDTO) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Book, error)
	IsAvailable(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Book], error)
	Search(ctx context.Context, query string, page httpx.Pageable) (*httpx.Page[Book], error)
	Popular(ctx context.Context, limit int) ([]Book, error)
	Recommended(ctx context.Context, limit int) ([]Book, error)
	NewCollection(ctx context.Context, limit int) ([]Book, error)
	Featured(ctx context.Context) ([]Book, error)
	SetAvailability(ctx context.Context, id int64, availableCopies int) error
	SetCategory(ctx context.Context, id int64, categoryID *int64) error
	SetFeatured(ctx context.Context, id int64, featured bool) error
}

const featuredCacheKey = "books:featured"

type bookService struct {
	repo   BookRepo
	cache  cache.ListCache
	logger *zap.Logger
}

func NewBookService(repo BookRepo, listCache cache.ListCache, logger *zap.Logger) BookService {
	return &bookService{repo: repo, cache: listCache, logger: logger}
}

func (s *bookService) Create(ctx context.Context, dto *BookDTO) (int64, error) {
	return s.repo.Create(ctx, dto)
}

func (s *bookService) Update(ctx context.Context, id int64, dto *BookDTO) error {
	return s.repo.Update(ctx, id, dto)
}

func (s *bookService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, featuredCacheKey)
	return nil
}

func (s *bookService) Get(ctx context.Context, id int64) (*Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *bookService) IsAvailable(ctx context.Context, id int64) (bool, error) {
	bk, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return bk.Available(), nil
}

func (s *bookService) List(ctx context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Book], error) {
	return s.repo.List(ctx, filter, page)
}

func (s *bookService) Search(ctx context.Context, query string, page httpx.Pageable) (*httpx.Page[Book], error) {
	return s.repo.Search(ctx, query, page)
}

// The homepage shelves are read on every visit and change rarely, so
// they sit behind a short-TTL cache. Staleness up to the TTL is fine;
// only the featured list gets explicit invalidation since admins curate
// it interactively.
func (s *bookService) Popular(ctx context.Context, limit int) ([]Book, error) {
	return s.cachedShelf(ctx, fmt.Sprintf("books:popular:%d", limit), limit, s.repo.Popular)
}

func (s *bookService) Recommended(ctx context.Context, limit int) ([]Book, error) {
	return s.cachedShelf(ctx, fmt.Sprintf("books:recommended:%d", limit), limit, s.repo.Recommended)
}

func (s *bookService) NewCollection(ctx context.Context, limit int) ([]Book, error) {
	return s.cachedShelf(ctx, fmt.Sprintf("books:new:%d", limit), limit, s.repo.NewCollection)
}

func (s *bookService) Featured(ctx context.Context) ([]Book, error) {
	var cached []Book
	if s.cache.GetJSON(ctx, featuredCacheKey, &cached) {
		return cached, nil
	}
	books, err := s.repo.Featured(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, featuredCacheKey, books)
	return books, nil
}

func (s *bookService) SetAvailability(ctx context.Context, id int64, availableCopies int) error {
	if availableCopies < 0 {
		return ErrInvalidCopies
	}
	return s.repo.SetAvailability(ctx, id, availableCopies)
}

func (s *bookService) SetCategory(ctx context.Context, id int64, categoryID *int64) error {
	return s.repo.SetCategory(ctx, id, categoryID)
}

func (s *bookService) SetFeatured(ctx context.Context, id int64, featured bool) error {
	if err := s.repo.SetFeatured(ctx, id, featured); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, featuredCacheKey)
	return nil
}

func (s *bookService) cachedShelf(ctx context.Context, key string, limit int, load func(context.Context, int) ([]Book, error)) ([]Book, error) {
	var cached []Book
	if s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}
	books, err := load(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, books)
	return books, nil
}
