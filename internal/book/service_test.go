package book

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/openshelf/openshelf/internal/cache"
	"github.com/openshelf/openshelf/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBookRepo struct {
	BookRepo
	popularCalls  int
	featuredCalls int
	featured      []Book
}

func (f *fakeBookRepo) Popular(_ context.Context, limit int) ([]Book, error) {
	f.popularCalls++
	return []Book{{ID: 1, Name: "Dune"}, {ID: 2, Name: "Solaris"}}[:min(limit, 2)], nil
}

func (f *fakeBookRepo) Featured(_ context.Context) ([]Book, error) {
	f.featuredCalls++
	return f.featured, nil
}

func (f *fakeBookRepo) SetFeatured(_ context.Context, id int64, featured bool) error {
	if featured {
		f.featured = append(f.featured, Book{ID: id, IsFeatured: true})
	}
	return nil
}

func newCachedService(t *testing.T) (BookService, *fakeBookRepo) {
	t.Helper()
	srv := miniredis.RunT(t)
	listCache := cache.New(&config.RedisConfig{Addr: srv.Addr(), ListTTL: time.Minute}, zap.NewNop())
	repo := &fakeBookRepo{}
	return NewBookService(repo, listCache, zap.NewNop()), repo
}

func TestPopular_CachesSecondRead(t *testing.T) {
	svc, repo := newCachedService(t)
	ctx := context.Background()

	first, err := svc.Popular(ctx, 2)
	require.NoError(t, err)
	second, err := svc.Popular(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.popularCalls)
}

func TestPopular_LimitIsPartOfTheKey(t *testing.T) {
	svc, repo := newCachedService(t)
	ctx := context.Background()

	_, err := svc.Popular(ctx, 1)
	require.NoError(t, err)
	_, err = svc.Popular(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.popularCalls)
}

func TestSetFeatured_InvalidatesFeaturedList(t *testing.T) {
	svc, repo := newCachedService(t)
	ctx := context.Background()

	// warm the cache with an empty featured list
	books, err := svc.Featured(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)

	require.NoError(t, svc.SetFeatured(ctx, 42, true))

	books, err = svc.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(42), books[0].ID)
	assert.Equal(t, 2, repo.featuredCalls)
}

func TestSetAvailability_RejectsNegative(t *testing.T) {
	svc, _ := newCachedService(t)
	err := svc.SetAvailability(context.Background(), 1, -1)
	assert.ErrorIs(t, err, ErrInvalidCopies)
}
