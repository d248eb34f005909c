package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/token"
	"github.com/openshelf/openshelf/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReviewRepo struct {
	created []Review
	summary *Summary
}

func (f *fakeReviewRepo) Create(_ context.Context, r *Review) (int64, error) {
	for _, existing := range f.created {
		if existing.PersonID == r.PersonID && existing.BookID == r.BookID {
			return 0, ErrAlreadyReviewed
		}
	}
	f.created = append(f.created, *r)
	return int64(len(f.created)), nil
}

func (f *fakeReviewRepo) SummaryByBook(_ context.Context, bookID int64, _ int) (*Summary, error) {
	if f.summary != nil {
		return f.summary, nil
	}
	return &Summary{BookID: bookID, Reviews: []Review{}}, nil
}

type fakePersonRepo struct {
	person *person.Person
}

func (f *fakePersonRepo) Create(_ context.Context, _ *person.PersonDTO) (id.PublicID, error) {
	return "", nil
}

func (f *fakePersonRepo) GetByEmail(_ context.Context, _ string) (*person.Person, error) {
	return nil, person.ErrNotFound
}

func (f *fakePersonRepo) GetByPublicID(_ context.Context, publicID id.PublicID) (*person.Person, error) {
	if f.person != nil && f.person.PublicID == publicID {
		return f.person, nil
	}
	return nil, person.ErrNotFound
}

// injectClaims stands in for the verified-token middleware.
func injectClaims(sub id.PublicID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &token.Claims{Sub: sub}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func newTestHandler(t *testing.T) (http.Handler, *fakeReviewRepo) {
	t.Helper()
	repo := &fakeReviewRepo{}
	people := &fakePersonRepo{person: &person.Person{ID: 7, PublicID: "pub-7"}}
	h := NewReviewHandler(repo, people, zap.NewNop(), injectClaims("pub-7"))
	return h.Routes(), repo
}

func TestCreate_StoresCallerReview(t *testing.T) {
	router, repo := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/create",
		strings.NewReader(`{"bookId": 3, "rating": 5, "review": "great read"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, int64(7), repo.created[0].PersonID)
	assert.Equal(t, int64(3), repo.created[0].BookID)
	assert.Equal(t, 5, repo.created[0].Rating)
}

func TestCreate_SecondReviewConflicts(t *testing.T) {
	router, _ := newTestHandler(t)

	body := `{"bookId": 3, "rating": 4}`
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/create", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "attempt %d", i+1)
	}
}

func TestCreate_RatingOutOfRange(t *testing.T) {
	router, repo := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/create",
		strings.NewReader(`{"bookId": 3, "rating": 6}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, repo.created)
}

func TestListByBook_ReturnsSummary(t *testing.T) {
	router, repo := newTestHandler(t)
	repo.summary = &Summary{
		BookID:  3,
		Average: 4.5,
		Count:   2,
		Reviews: []Review{{ID: 1, Rating: 5}, {ID: 2, Rating: 4}},
	}

	req := httptest.NewRequest(http.MethodGet, "/list/book/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4.5, body.Data.Average)
	assert.Equal(t, int64(2), body.Data.Count)
	assert.Len(t, body.Data.Reviews, 2)
}

func TestListByBook_BadID(t *testing.T) {
	router, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/list/book/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
