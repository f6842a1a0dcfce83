package service

import (
	"context"
	"maps"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	bookingserrors "rentio/internal/bookings/errors"
	"rentio/internal/bookings/validator"
	notifications "rentio/internal/notifications/service"
	"rentio/pkg/auth"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	apperrors "rentio/pkg/errors"
	"rentio/pkg/logger"
	"rentio/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bookingID = "0b8f3c2a-6d4e-4f1a-9b7c-2e5d8a1f3c4b"
	refundID  = "7a1e9d3c-2b4f-4c8e-8d6a-5f0b1c2d3e4f"
	missingID = "9c2d4e6f-8a0b-4c1d-9e2f-3a4b5c6d7e8f"
)

var (
	renter   = &auth.User{ID: "renter-1", Roles: []auth.Role{auth.RoleRenter}}
	owner    = &auth.User{ID: "owner-1", Roles: []auth.Role{auth.RoleIndividualLister}}
	admin    = &auth.User{ID: "admin-1", Roles: []auth.Role{auth.RoleAdmin}}
	stranger = &auth.User{ID: "stranger-1", Roles: []auth.Role{auth.RoleRenter}}
)

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	// staleOnce makes the next ApplyTransition behave as if another writer
	// changed the status first.
	staleOnce bool
}

func (m *memBookingRepo) FindByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (m *memBookingRepo) ApplyTransition(_ context.Context, id string, from model.BookingStatus, t model.BookingTransition) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleOnce {
		m.staleOnce = false
		return nil, bookingserrors.ErrStatusChanged
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if b.Status != from {
		return nil, bookingserrors.ErrStatusChanged
	}
	b.Status, b.PaymentStatus = t.Status, t.PaymentStatus
	if t.ConfirmedAt != nil {
		b.ConfirmedAt = t.ConfirmedAt
	}
	if t.CancelledAt != nil {
		b.CancelledAt = t.CancelledAt
	}
	if t.CancellationReason != "" {
		b.CancellationReason = t.CancellationReason
	}
	m.bookings[id] = b
	return &b, nil
}

func (m *memBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.mu.Lock()
	snapshot := maps.Clone(m.bookings)
	m.mu.Unlock()
	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.bookings = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type memRefundRepo struct {
	refunds map[string]model.RefundRequest
}

func (m *memRefundRepo) Create(_ context.Context, refund *model.RefundRequest) error {
	for _, r := range m.refunds {
		if r.BookingID == refund.BookingID && r.Status == model.RefundPending {
			return bookingserrors.ErrRefundAlreadyRequested
		}
	}
	if refund.ID == "" {
		refund.ID = refundID
	}
	refund.Status = model.RefundPending
	m.refunds[refund.ID] = *refund
	return nil
}

func (m *memRefundRepo) FindByID(_ context.Context, id string) (*model.RefundRequest, error) {
	r, ok := m.refunds[id]
	if !ok {
		return nil, bookingserrors.ErrRefundNotFound
	}
	return &r, nil
}

func (m *memRefundRepo) Approve(_ context.Context, id, adminID string, at time.Time) (*model.RefundRequest, error) {
	r, ok := m.refunds[id]
	if !ok {
		return nil, bookingserrors.ErrRefundNotFound
	}
	if r.Status != model.RefundPending {
		return nil, bookingserrors.ErrRefundNotPending
	}
	r.Status, r.ResolvedBy, r.ResolvedAt = model.RefundApproved, adminID, &at
	m.refunds[id] = r
	return &r, nil
}

type stubListingRepo struct{}

func (stubListingRepo) FindByID(_ context.Context, id string) (*model.Listing, error) {
	return &model.Listing{ID: id, OwnerID: "owner-1", Title: "Surfboard"}, nil
}

type recordingNotifier struct {
	calls []string
	last  notifications.BookingContext
}

func (r *recordingNotifier) record(name string, bc notifications.BookingContext) {
	r.calls = append(r.calls, name)
	r.last = bc
}

func (r *recordingNotifier) PaymentAwaitingConfirmation(_ context.Context, bc notifications.BookingContext) {
	r.record("awaiting_confirmation", bc)
}
func (r *recordingNotifier) InstantBookConfirmed(_ context.Context, bc notifications.BookingContext) {
	r.record("instant_book_confirmed", bc)
}
func (r *recordingNotifier) PaymentFailed(_ context.Context, bc notifications.BookingContext) {
	r.record("payment_failed", bc)
}
func (r *recordingNotifier) OwnerConfirmed(_ context.Context, bc notifications.BookingContext) {
	r.record("owner_confirmed", bc)
}
func (r *recordingNotifier) Rejected(_ context.Context, bc notifications.BookingContext) {
	r.record("rejected", bc)
}
func (r *recordingNotifier) Cancelled(_ context.Context, bc notifications.BookingContext) {
	r.record("cancelled", bc)
}
func (r *recordingNotifier) Started(_ context.Context, bc notifications.BookingContext) {
	r.record("started", bc)
}
func (r *recordingNotifier) Completed(_ context.Context, bc notifications.BookingContext) {
	r.record("completed", bc)
}
func (r *recordingNotifier) RefundRequested(_ context.Context, bc notifications.BookingContext) {
	r.record("refund_requested", bc)
}
func (r *recordingNotifier) RefundApproved(_ context.Context, bc notifications.BookingContext) {
	r.record("refund_approved", bc)
}

type recordingBootstrapper struct {
	bookings []string
}

func (r *recordingBootstrapper) Bootstrap(_ context.Context, booking *model.Booking, _ string) (bool, error) {
	r.bookings = append(r.bookings, booking.ID)
	return true, nil
}

type recordingPublisher struct {
	events []model.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event model.BookingEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	repo          *memBookingRepo
	refunds       *memRefundRepo
	notifier      *recordingNotifier
	conversations *recordingBootstrapper
	publisher     *recordingPublisher
	service       BookingService
}

func newFixture(t *testing.T, status model.BookingStatus, paymentStatus model.PaymentStatus) *fixture {
	t.Helper()
	log := logger.Discard()
	f := &fixture{
		repo: &memBookingRepo{bookings: map[string]model.Booking{
			bookingID: {
				ID:            bookingID,
				BookingNumber: "RNT-2001",
				Status:        status,
				PaymentStatus: paymentStatus,
				RenterID:      renter.ID,
				OwnerID:       owner.ID,
				ListingID:     "listing-1",
			},
		}},
		refunds:       &memRefundRepo{refunds: map[string]model.RefundRequest{}},
		notifier:      &recordingNotifier{},
		conversations: &recordingBootstrapper{},
		publisher:     &recordingPublisher{},
	}
	cfg := &config.Config{ServiceName: config.ServiceBookings, Log: log}
	f.service = NewBookingService(
		f.repo,
		f.refunds,
		stubListingRepo{},
		validator.NewBookingValidator(log),
		f.notifier,
		f.conversations,
		f.publisher,
		cfg,
	)
	return f
}

func (f *fixture) booking() model.Booking {
	return f.repo.bookings[bookingID]
}

func requireStatus(t *testing.T, err error, want int) {
	t.Helper()
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, want, appErr.StatusCode(), appErr.Error())
}

func TestGetByID(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentPending)

	b, err := f.service.GetByID(context.Background(), renter, bookingID)
	require.NoError(t, err)
	assert.Equal(t, "RNT-2001", b.BookingNumber)

	_, err = f.service.GetByID(context.Background(), owner, " "+bookingID+" ")
	require.NoError(t, err)

	_, err = f.service.GetByID(context.Background(), stranger, bookingID)
	requireStatus(t, err, http.StatusForbidden)

	_, err = f.service.GetByID(context.Background(), nil, bookingID)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = f.service.GetByID(context.Background(), renter, "not-a-uuid")
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.service.GetByID(context.Background(), renter, missingID)
	requireStatus(t, err, http.StatusNotFound)
}

func TestConfirm(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentCompleted)

	b, err := f.service.Confirm(context.Background(), owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, model.PaymentCompleted, b.PaymentStatus)
	assert.NotNil(t, b.ConfirmedAt)

	assert.Equal(t, []string{bookingID}, f.conversations.bookings)
	assert.Equal(t, []string{"owner_confirmed"}, f.notifier.calls)
	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, model.EventConfirmed, ev.Type)
	assert.Equal(t, model.BookingPending, ev.FromStatus)
	assert.Equal(t, model.BookingConfirmed, ev.ToStatus)
	assert.Equal(t, owner.ID, ev.ActorID)

	_, err = f.service.Confirm(context.Background(), owner, bookingID)
	requireStatus(t, err, http.StatusConflict)
}

func TestConfirm_Rejections(t *testing.T) {
	tests := []struct {
		name          string
		user          *auth.User
		status        model.BookingStatus
		paymentStatus model.PaymentStatus
		wantStatus    int
	}{
		{"renter cannot confirm", renter, model.BookingPending, model.PaymentCompleted, http.StatusForbidden},
		{"unpaid booking", owner, model.BookingPending, model.PaymentPending, http.StatusConflict},
		{"cancelled booking", owner, model.BookingCancelled, model.PaymentFailed, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status, tt.paymentStatus)
			_, err := f.service.Confirm(context.Background(), tt.user, bookingID)
			requireStatus(t, err, tt.wantStatus)
			assert.Equal(t, tt.status, f.booking().Status)
			assert.Empty(t, f.notifier.calls)
			assert.Empty(t, f.conversations.bookings)
		})
	}
}

func TestConfirm_AdminAllowed(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentCompleted)
	_, err := f.service.Confirm(context.Background(), admin, bookingID)
	require.NoError(t, err)
}

func TestBookingWithoutOwnerID_UsesListingOwner(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentCompleted)
	b := f.booking()
	b.OwnerID = ""
	f.repo.bookings[bookingID] = b

	_, err := f.service.GetByID(context.Background(), owner, bookingID)
	require.NoError(t, err)

	_, err = f.service.Confirm(context.Background(), stranger, bookingID)
	requireStatus(t, err, http.StatusForbidden)

	confirmed, err := f.service.Confirm(context.Background(), owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, confirmed.Status)
	assert.Equal(t, owner.ID, confirmed.OwnerID)
	assert.Equal(t, model.BookingConfirmed, f.booking().Status)

	_, err = f.service.Start(context.Background(), owner, bookingID)
	require.NoError(t, err)
}

func TestConfirm_ConcurrentChange(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentCompleted)
	f.repo.staleOnce = true

	_, err := f.service.Confirm(context.Background(), owner, bookingID)
	requireStatus(t, err, http.StatusConflict)
	assert.Empty(t, f.publisher.events)
}

func TestReject(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentCompleted)

	_, err := f.service.Reject(context.Background(), owner, bookingID, &validator.ReasonRequest{Reason: "no"})
	requireStatus(t, err, http.StatusUnprocessableEntity)

	b, err := f.service.Reject(context.Background(), owner, bookingID, &validator.ReasonRequest{Reason: "  Item is being repaired  "})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.Equal(t, model.PaymentCompleted, b.PaymentStatus)
	assert.Equal(t, "Item is being repaired", b.CancellationReason)
	assert.NotNil(t, b.CancelledAt)
	assert.Equal(t, []string{"rejected"}, f.notifier.calls)
	assert.Equal(t, "Item is being repaired", f.notifier.last.Reason)
}

func TestReject_ConfirmedBookingCannotBeRejected(t *testing.T) {
	f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)
	_, err := f.service.Reject(context.Background(), owner, bookingID, &validator.ReasonRequest{Reason: "Changed my mind"})
	requireStatus(t, err, http.StatusConflict)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name       string
		user       *auth.User
		status     model.BookingStatus
		wantStatus int
	}{
		{"renter cancels pending", renter, model.BookingPending, 0},
		{"renter cancels confirmed", renter, model.BookingConfirmed, 0},
		{"owner cancels confirmed", owner, model.BookingConfirmed, 0},
		{"in progress cannot be cancelled", renter, model.BookingInProgress, http.StatusConflict},
		{"completed cannot be cancelled", owner, model.BookingCompleted, http.StatusConflict},
		{"stranger cannot cancel", stranger, model.BookingConfirmed, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status, model.PaymentCompleted)
			b, err := f.service.Cancel(context.Background(), tt.user, bookingID, &validator.ReasonRequest{Reason: "Plans changed"})
			if tt.wantStatus != 0 {
				requireStatus(t, err, tt.wantStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.BookingCancelled, b.Status)
			assert.Equal(t, []string{"cancelled"}, f.notifier.calls)
			assert.Equal(t, tt.user.ID, f.notifier.last.ActorID)
		})
	}
}

func TestCancel_MissingBody(t *testing.T) {
	f := newFixture(t, model.BookingPending, model.PaymentPending)
	_, err := f.service.Cancel(context.Background(), renter, bookingID, nil)
	requireStatus(t, err, http.StatusBadRequest)
}

func TestStartAndComplete(t *testing.T) {
	f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)

	_, err := f.service.Complete(context.Background(), owner, bookingID)
	requireStatus(t, err, http.StatusConflict)

	_, err = f.service.Start(context.Background(), renter, bookingID)
	requireStatus(t, err, http.StatusForbidden)

	b, err := f.service.Start(context.Background(), owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingInProgress, b.Status)

	b, err = f.service.Complete(context.Background(), owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCompleted, b.Status)

	assert.Equal(t, []string{"started", "completed"}, f.notifier.calls)
	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, model.EventStarted, f.publisher.events[0].Type)
	assert.Equal(t, model.EventCompleted, f.publisher.events[1].Type)
}

func TestRequestRefund(t *testing.T) {
	f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)

	refund, err := f.service.RequestRefund(context.Background(), renter, bookingID,
		&validator.RefundRequestBody{Reason: "The item arrived broken"})
	require.NoError(t, err)
	assert.Equal(t, model.RefundPending, refund.Status)
	assert.Equal(t, renter.ID, refund.RenterID)
	assert.Equal(t, []string{"refund_requested"}, f.notifier.calls)

	_, err = f.service.RequestRefund(context.Background(), renter, bookingID,
		&validator.RefundRequestBody{Reason: "Asking again please"})
	requireStatus(t, err, http.StatusConflict)
}

func TestRequestRefund_Rejections(t *testing.T) {
	t.Run("unpaid booking", func(t *testing.T) {
		f := newFixture(t, model.BookingPending, model.PaymentPending)
		_, err := f.service.RequestRefund(context.Background(), renter, bookingID,
			&validator.RefundRequestBody{Reason: "Please refund me"})
		requireStatus(t, err, http.StatusConflict)
	})

	t.Run("owner cannot request", func(t *testing.T) {
		f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)
		_, err := f.service.RequestRefund(context.Background(), owner, bookingID,
			&validator.RefundRequestBody{Reason: "Please refund me"})
		requireStatus(t, err, http.StatusForbidden)
	})

	t.Run("reason too short", func(t *testing.T) {
		f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)
		_, err := f.service.RequestRefund(context.Background(), renter, bookingID,
			&validator.RefundRequestBody{Reason: "x"})
		requireStatus(t, err, http.StatusUnprocessableEntity)
	})
}

func TestApproveRefund(t *testing.T) {
	tests := []struct {
		name       string
		status     model.BookingStatus
		wantStatus model.BookingStatus
	}{
		{"confirmed booking is cancelled", model.BookingConfirmed, model.BookingCancelled},
		{"pending booking is cancelled", model.BookingPending, model.BookingCancelled},
		{"in progress booking keeps status", model.BookingInProgress, model.BookingInProgress},
		{"completed booking keeps status", model.BookingCompleted, model.BookingCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.status, model.PaymentCompleted)
			_, err := f.service.RequestRefund(context.Background(), renter, bookingID,
				&validator.RefundRequestBody{Reason: "The item arrived broken"})
			require.NoError(t, err)

			approved, err := f.service.ApproveRefund(context.Background(), admin, refundID)
			require.NoError(t, err)
			assert.Equal(t, model.RefundApproved, approved.Status)
			assert.Equal(t, admin.ID, approved.ResolvedBy)

			b := f.booking()
			assert.Equal(t, tt.wantStatus, b.Status)
			assert.Equal(t, model.PaymentRefunded, b.PaymentStatus)
			assert.Equal(t, "refund_approved", f.notifier.calls[len(f.notifier.calls)-1])

			_, err = f.service.ApproveRefund(context.Background(), admin, refundID)
			requireStatus(t, err, http.StatusConflict)
		})
	}
}

func TestApproveRefund_Rejections(t *testing.T) {
	f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)
	_, err := f.service.RequestRefund(context.Background(), renter, bookingID,
		&validator.RefundRequestBody{Reason: "The item arrived broken"})
	require.NoError(t, err)

	_, err = f.service.ApproveRefund(context.Background(), owner, refundID)
	requireStatus(t, err, http.StatusForbidden)

	_, err = f.service.ApproveRefund(context.Background(), admin, missingID)
	requireStatus(t, err, http.StatusNotFound)

	_, err = f.service.ApproveRefund(context.Background(), admin, "bad-id")
	requireStatus(t, err, http.StatusBadRequest)

	assert.Equal(t, model.RefundPending, f.refunds.refunds[refundID].Status)
}

func TestApproveRefund_RollsBackOnBookingFailure(t *testing.T) {
	f := newFixture(t, model.BookingConfirmed, model.PaymentCompleted)
	_, err := f.service.RequestRefund(context.Background(), renter, bookingID,
		&validator.RefundRequestBody{Reason: "The item arrived broken"})
	require.NoError(t, err)

	f.repo.staleOnce = true
	_, err = f.service.ApproveRefund(context.Background(), admin, refundID)
	requireStatus(t, err, http.StatusConflict)
	assert.Equal(t, model.BookingConfirmed, f.booking().Status)
	assert.True(t, strings.Contains(err.Error(), "status changed"))
}
