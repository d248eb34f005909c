package book

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBookService struct {
	BookService
	books   map[int64]*Book
	created *BookDTO
}

func (f *fakeBookService) Get(_ context.Context, id int64) (*Book, error) {
	bk, ok := f.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return bk, nil
}

func (f *fakeBookService) IsAvailable(ctx context.Context, id int64) (bool, error) {
	bk, err := f.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return bk.Available(), nil
}

func (f *fakeBookService) Create(_ context.Context, dto *BookDTO) (int64, error) {
	f.created = dto
	return 7, nil
}

func (f *fakeBookService) List(_ context.Context, filter ListFilter, page httpx.Pageable) (*httpx.Page[Book], error) {
	var content []Book
	for _, bk := range f.books {
		if filter.OnlyAvail && !bk.Available() {
			continue
		}
		content = append(content, *bk)
	}
	return httpx.NewPage(content, page.Page, page.Size, int64(len(content))), nil
}

func newBookRouter(svc BookService) http.Handler {
	h := NewBookHandler(svc, zap.NewNop()) // no admin gate in unit tests
	return h.Routes()
}

func TestRetrieve_Found(t *testing.T) {
	svc := &fakeBookService{books: map[int64]*Book{
		3: {ID: 3, Name: "Dune", Author: "Frank Herbert", AvailableCopies: 1, TotalCopies: 2},
	}}
	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/retrieve/3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data Book `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Dune", body.Data.Name)
}

func TestRetrieve_NotFound(t *testing.T) {
	svc := &fakeBookService{books: map[int64]*Book{}}
	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/retrieve/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetrieve_BadID(t *testing.T) {
	svc := &fakeBookService{}
	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/retrieve/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIsAvailable(t *testing.T) {
	svc := &fakeBookService{books: map[int64]*Book{
		1: {ID: 1, AvailableCopies: 0, TotalCopies: 1},
		2: {ID: 2, AvailableCopies: 1, TotalCopies: 1},
	}}
	router := newBookRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/1/is_available", nil))
	assert.Contains(t, rec.Body.String(), `"available":false`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/2/is_available", nil))
	assert.Contains(t, rec.Body.String(), `"available":true`)
}

func TestCreate_Valid(t *testing.T) {
	svc := &fakeBookService{}
	payload := map[string]any{
		"name":             "Dune",
		"author":           "Frank Herbert",
		"total_copies":     3,
		"available_copies": 3,
	}
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Dune", svc.created.Name)
}

func TestCreate_AvailableExceedsTotal(t *testing.T) {
	svc := &fakeBookService{}
	payload := map[string]any{
		"name":             "Dune",
		"author":           "Frank Herbert",
		"total_copies":     1,
		"available_copies": 5,
	}
	raw, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/create", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Nil(t, svc.created)
}

func TestCreate_RejectsUnknownFields(t *testing.T) {
	svc := &fakeBookService{}
	req := httptest.NewRequest(http.MethodPost, "/create",
		bytes.NewReader([]byte(`{"name":"x","author":"y","surprise":true}`)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShelf_BadLimit(t *testing.T) {
	svc := &fakeBookService{}
	rec := httptest.NewRecorder()
	newBookRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/popular-books?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
