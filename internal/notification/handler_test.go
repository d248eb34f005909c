package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/auth"
	"github.com/openshelf/openshelf/internal/person"
	"github.com/openshelf/openshelf/internal/token"
	"github.com/openshelf/openshelf/pkg/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotificationRepo struct {
	nextID int64
	items  []Notification
}

func (f *fakeNotificationRepo) Create(_ context.Context, personID int64, kind Kind, message string) error {
	f.nextID++
	f.items = append(f.items, Notification{
		ID: f.nextID, PersonID: personID, Kind: kind,
		Message: message, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeNotificationRepo) ListByPerson(_ context.Context, personID int64, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range f.items {
		if n.PersonID == personID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, personID, notificationID int64) error {
	for i, n := range f.items {
		if n.ID == notificationID && n.PersonID == personID {
			f.items[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, personID int64) (int, error) {
	count := 0
	for _, n := range f.items {
		if n.PersonID == personID && !n.IsRead {
			count++
		}
	}
	return count, nil
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

func injectClaims(sub id.PublicID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &token.Claims{Sub: sub}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func newTestRouter(t *testing.T, repo *fakeNotificationRepo) http.Handler {
	t.Helper()
	people := &fakePersonRepo{person: &person.Person{ID: 7, PublicID: "pub-7"}}
	h := NewNotificationHandler(repo, people, zap.NewNop(), injectClaims("pub-7"))
	return h.Routes()
}

func seedInbox(repo *fakeNotificationRepo) {
	ctx := context.Background()
	_ = repo.Create(ctx, 7, KindBorrowAccepted, "accepted")
	_ = repo.Create(ctx, 7, KindDonationDecided, "decided")
	_ = repo.Create(ctx, 8, KindBorrowRejected, "someone else's")
}

func TestList_OnlyCallersNotifications(t *testing.T) {
	repo := &fakeNotificationRepo{}
	seedInbox(repo)
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []Notification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	for _, n := range body.Data {
		assert.NotEqual(t, "someone else's", n.Message)
	}
}

func TestUnreadCount_DropsAfterMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	seedInbox(repo)
	router := newTestRouter(t, repo)

	unread := func() int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unread-count", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data map[string]int `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body.Data["unread"]
	}

	assert.Equal(t, 2, unread())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/1/read", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, unread())
}

func TestMarkRead_SomeoneElsesStaysUnread(t *testing.T) {
	repo := &fakeNotificationRepo{}
	seedInbox(repo)
	router := newTestRouter(t, repo)

	// id 3 belongs to person 8; the owner-scoped update is a no-op
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/3/read", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, repo.items[2].IsRead)
}

func TestMarkRead_BadID(t *testing.T) {
	repo := &fakeNotificationRepo{}
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/abc/read", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
