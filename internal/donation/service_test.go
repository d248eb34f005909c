package donation

import (
	"context"
	"testing"
	"time"

	"github.com/openshelf/openshelf/internal/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDonationRepo struct {
	nextID   int64
	requests map[int64]*Request
}

func newFakeDonationRepo() *fakeDonationRepo {
	return &fakeDonationRepo{requests: map[int64]*Request{}}
}

func (f *fakeDonationRepo) Create(_ context.Context, req *Request) (int64, error) {
	f.nextID++
	cp := *req
	cp.ID = f.nextID
	cp.Status = StatusPending
	f.requests[f.nextID] = &cp
	return f.nextID, nil
}

func (f *fakeDonationRepo) GetByID(_ context.Context, id int64) (*Request, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeDonationRepo) List(_ context.Context, page httpx.Pageable) (*httpx.Page[Request], error) {
	return httpx.NewPage([]Request{}, page.Page, page.Size, 0), nil
}

func (f *fakeDonationRepo) ListByPerson(_ context.Context, _ int64, page httpx.Pageable) (*httpx.Page[Request], error) {
	return httpx.NewPage([]Request{}, page.Page, page.Size, 0), nil
}

func (f *fakeDonationRepo) Decide(_ context.Context, id int64, status Status, adminNotes string, decidedAt time.Time) error {
	req, ok := f.requests[id]
	if !ok {
		return ErrNotFound
	}
	if req.Decided() {
		return ErrAlreadyDecided
	}
	req.Status = status
	req.AdminNotes = adminNotes
	req.DecidedAt = &decidedAt
	return nil
}

type fakeNotifier struct {
	decided  int
	approved bool
}

func (f *fakeNotifier) DonationDecided(_ context.Context, _ int64, _ string, approved bool) {
	f.decided++
	f.approved = approved
}

func newTestService(t *testing.T) (DonationService, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	return NewDonationService(newFakeDonationRepo(), notifier, zap.NewNop()), notifier
}

func TestSubmit_StartsPending(t *testing.T) {
	svc, _ := newTestService(t)

	req, err := svc.Submit(context.Background(), &Request{PersonID: 1, BookTitle: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Nil(t, req.DecidedAt)
}

func TestApprove_SetsVerdictAndNotifies(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, &Request{PersonID: 1, BookTitle: "Dune"})
	require.NoError(t, err)

	decided, err := svc.Approve(ctx, req.ID, "shelf B")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, "shelf B", decided.AdminNotes)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, 1, notifier.decided)
	assert.True(t, notifier.approved)
}

func TestReject_Notifies(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, &Request{PersonID: 1, BookTitle: "Dune"})
	require.NoError(t, err)

	decided, err := svc.Reject(ctx, req.ID, "duplicate copy")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, decided.Status)
	assert.Equal(t, 1, notifier.decided)
	assert.False(t, notifier.approved)
}

func TestDecide_IsFinal(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	req, err := svc.Submit(ctx, &Request{PersonID: 1, BookTitle: "Dune"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, req.ID, "")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, req.ID, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, 1, notifier.decided)
}

func TestDecide_UnknownRequest(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Approve(context.Background(), 99, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
