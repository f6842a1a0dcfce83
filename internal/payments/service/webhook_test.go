package service

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"sync"
	"testing"
	"time"

	bookingserrors "rentio/internal/bookings/errors"
	listingsrepo "rentio/internal/listings/repository"
	notifications "rentio/internal/notifications/service"
	paymentserrors "rentio/internal/payments/errors"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	apperrors "rentio/pkg/errors"
	"rentio/pkg/logger"
	"rentio/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore implements the payment, ledger and booking repositories over maps.
// ExecuteTransaction serialises callers and restores every map when the
// callback fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	payments map[string]model.Payment
	bookings map[string]model.Booking
	ledger   map[string]model.ProcessedWebhook

	applyErr error
}

func newMemStore() *memStore {
	return &memStore{
		payments: map[string]model.Payment{},
		bookings: map[string]model.Booking{},
		ledger:   map[string]model.ProcessedWebhook{},
	}
}

func (m *memStore) FindByGatewayID(_ context.Context, gatewayID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.CheckoutID == gatewayID {
			return &p, nil
		}
	}
	for _, p := range m.payments {
		if p.ProviderID == gatewayID {
			return &p, nil
		}
	}
	return nil, paymentserrors.ErrPaymentNotFound
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status model.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return paymentserrors.ErrPaymentNotFound
	}
	p.Status = status
	m.payments[id] = p
	return nil
}

func (m *memStore) Record(_ context.Context, entry *model.ProcessedWebhook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledger[entry.EventID]; ok {
		return paymentserrors.ErrEventAlreadyProcessed
	}
	m.ledger[entry.EventID] = *entry
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) ApplyTransition(_ context.Context, id string, from model.BookingStatus, t model.BookingTransition) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if b.Status != from {
		return nil, bookingserrors.ErrStatusChanged
	}
	b.Status = t.Status
	b.PaymentStatus = t.PaymentStatus
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

func (m *memStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	payments, bookings, ledger := maps.Clone(m.payments), maps.Clone(m.bookings), maps.Clone(m.ledger)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.payments, m.bookings, m.ledger = payments, bookings, ledger
		m.mu.Unlock()
		return err
	}
	return nil
}

type mockListingRepo struct {
	listing *model.Listing
	err     error
}

func (m *mockListingRepo) FindByID(_ context.Context, _ string) (*model.Listing, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.listing, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	last  notifications.BookingContext
}

func (r *recordingNotifier) record(name string, bc notifications.BookingContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

// countingBootstrapper mirrors the unique booking_id index.
type countingBootstrapper struct {
	mu        sync.Mutex
	byBooking map[string]string
	err       error
}

func (c *countingBootstrapper) Bootstrap(_ context.Context, booking *model.Booking, ownerID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byBooking[booking.ID]; ok {
		return false, nil
	}
	c.byBooking[booking.ID] = ownerID
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.BookingEvent) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	store         *memStore
	listings      *mockListingRepo
	notifier      *recordingNotifier
	conversations *countingBootstrapper
	publisher     *recordingPublisher
	service       WebhookService
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:         newMemStore(),
		listings:      &mockListingRepo{listing: &model.Listing{ID: "listing-1", OwnerID: "owner-1", Title: "Tent"}},
		notifier:      &recordingNotifier{},
		conversations: &countingBootstrapper{byBooking: map[string]string{}},
		publisher:     &recordingPublisher{},
		now:           time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	f.store.bookings["booking-1"] = model.Booking{
		ID:            "booking-1",
		BookingNumber: "RNT-1001",
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentPending,
		RenterID:      "renter-1",
		OwnerID:       "owner-1",
		ListingID:     "listing-1",
	}
	f.store.payments["payment-1"] = model.Payment{
		ID:         "payment-1",
		BookingID:  "booking-1",
		Provider:   model.ProviderYoco,
		CheckoutID: "ch_abc",
		ProviderID: "pay_abc",
		Status:     model.PaymentPending,
	}

	cfg := &config.Config{ServiceName: config.ServicePayments, Log: logger.Discard()}
	svc := NewWebhookService(f.store, f.store, f.store, f.listings, f.notifier, f.conversations, f.publisher, cfg)
	svc.(*webhookService).now = func() time.Time { return f.now }
	f.service = svc
	return f
}

func webhookEvent(id, status string, metadata map[string]any) *model.WebhookEvent {
	return &model.WebhookEvent{
		ID:   id,
		Type: "payment.succeeded",
		Payload: &model.WebhookPayload{
			ID:       "ch_abc",
			Status:   status,
			Amount:   100000,
			Currency: "ZAR",
			Metadata: metadata,
		},
	}
}

func TestProcessWebhook_InstantBook(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", map[string]any{"instant_book": true}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, model.EventPaymentSucceeded, res.EventType)

	booking := f.store.bookings["booking-1"]
	assert.Equal(t, model.BookingConfirmed, booking.Status)
	assert.Equal(t, model.PaymentCompleted, booking.PaymentStatus)
	require.NotNil(t, booking.ConfirmedAt)
	assert.True(t, booking.ConfirmedAt.Equal(f.now))
	assert.Nil(t, booking.CancelledAt)

	assert.Equal(t, model.PaymentCompleted, f.store.payments["payment-1"].Status)
	assert.Len(t, f.store.ledger, 1)
	assert.Equal(t, map[string]string{"booking-1": "owner-1"}, f.conversations.byBooking)
	assert.Equal(t, []string{"instant_book_confirmed"}, f.notifier.calls)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, model.BookingPending, ev.FromStatus)
	assert.Equal(t, model.BookingConfirmed, ev.ToStatus)
	assert.Equal(t, config.ServicePayments, ev.Source)
}

func TestProcessWebhook_NoMetadataIsInstantBook(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, f.store.bookings["booking-1"].Status)
}

func TestProcessWebhook_ListingRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	instantBook := false
	f.listings.listing.InstantBook = &instantBook

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.NoError(t, err)
	assert.Equal(t, model.EventAwaitingConfirmation, res.EventType)
	assert.Equal(t, model.BookingPending, f.store.bookings["booking-1"].Status)
	assert.Equal(t, model.PaymentCompleted, f.store.bookings["booking-1"].PaymentStatus)
	assert.Empty(t, f.conversations.byBooking)
}

func TestProcessWebhook_RequiresConfirmation(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
	}{
		{"requires_confirmation true", map[string]any{"requires_confirmation": true}},
		{"requires_confirmation string", map[string]any{"requires_confirmation": "true"}},
		{"instant_book false", map[string]any{"instant_book": false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
				webhookEvent("evt_1", "succeeded", tt.metadata))
			require.NoError(t, err)
			assert.Equal(t, OutcomeApplied, res.Outcome)
			assert.Equal(t, model.EventAwaitingConfirmation, res.EventType)

			booking := f.store.bookings["booking-1"]
			assert.Equal(t, model.BookingPending, booking.Status)
			assert.Equal(t, model.PaymentCompleted, booking.PaymentStatus)
			assert.Nil(t, booking.ConfirmedAt)

			assert.Empty(t, f.conversations.byBooking)
			assert.Equal(t, []string{"awaiting_confirmation"}, f.notifier.calls)
		})
	}
}

func TestProcessWebhook_PaymentFailed(t *testing.T) {
	f := newFixture(t)

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "failed", nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	booking := f.store.bookings["booking-1"]
	assert.Equal(t, model.BookingCancelled, booking.Status)
	assert.Equal(t, model.PaymentFailed, booking.PaymentStatus)
	require.NotNil(t, booking.CancelledAt)
	assert.Equal(t, failedPaymentReason, booking.CancellationReason)

	assert.Equal(t, model.PaymentFailed, f.store.payments["payment-1"].Status)
	assert.Equal(t, []string{"payment_failed"}, f.notifier.calls)
	assert.Empty(t, f.conversations.byBooking)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, model.EventPaymentFailed, f.publisher.events[0].Type)
}

func TestProcessWebhook_DuplicateEvent(t *testing.T) {
	f := newFixture(t)
	event := webhookEvent("evt_1", "succeeded", nil)

	_, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco, event)
	require.NoError(t, err)

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	assert.Len(t, f.conversations.byBooking, 1)
	assert.Len(t, f.notifier.calls, 1)
	assert.Len(t, f.publisher.events, 1)
}

func TestProcessWebhook_ConcurrentDoubleDelivery(t *testing.T) {
	f := newFixture(t)
	event := webhookEvent("evt_1", "succeeded", nil)

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i := range outcomes {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco, event)
			assert.NoError(t, err)
			if res != nil {
				outcomes[i] = res.Outcome
			}
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []Outcome{OutcomeApplied, OutcomeDuplicate}, outcomes)
	assert.Len(t, f.conversations.byBooking, 1)
}

func TestProcessWebhook_SecondEventForConfirmedBookingIgnored(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.NoError(t, err)

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_2", "succeeded", nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Len(t, f.conversations.byBooking, 1)
	assert.Len(t, f.notifier.calls, 1)
}

func TestProcessWebhook_SuccessForCancelledBookingIgnored(t *testing.T) {
	f := newFixture(t)
	b := f.store.bookings["booking-1"]
	b.Status = model.BookingCancelled
	b.PaymentStatus = model.PaymentFailed
	f.store.bookings["booking-1"] = b

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	assert.Equal(t, model.PaymentCompleted, f.store.payments["payment-1"].Status)
	assert.Equal(t, model.BookingCancelled, f.store.bookings["booking-1"].Status)
	assert.Equal(t, model.PaymentFailed, f.store.bookings["booking-1"].PaymentStatus)
	assert.Empty(t, f.notifier.calls)
	assert.Empty(t, f.publisher.events)
	assert.Empty(t, f.conversations.byBooking)
}

func TestProcessWebhook_FailedRetryForPaidBookingIgnored(t *testing.T) {
	f := newFixture(t)
	b := f.store.bookings["booking-1"]
	b.Status = model.BookingConfirmed
	b.PaymentStatus = model.PaymentCompleted
	f.store.bookings["booking-1"] = b
	f.store.payments["payment-2"] = model.Payment{
		ID:         "payment-2",
		BookingID:  "booking-1",
		CheckoutID: "ch_retry",
		Status:     model.PaymentPending,
	}

	event := webhookEvent("evt_9", "failed", nil)
	event.Payload.ID = "ch_retry"

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco, event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, model.PaymentFailed, f.store.payments["payment-2"].Status)
	assert.Equal(t, model.BookingConfirmed, f.store.bookings["booking-1"].Status)
	assert.Equal(t, model.PaymentCompleted, f.store.bookings["booking-1"].PaymentStatus)
	assert.Empty(t, f.notifier.calls)
}

func TestProcessWebhook_PendingButPaidBookingIgnoresFailure(t *testing.T) {
	f := newFixture(t)
	b := f.store.bookings["booking-1"]
	b.PaymentStatus = model.PaymentCompleted
	f.store.bookings["booking-1"] = b

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "failed", nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, model.BookingPending, f.store.bookings["booking-1"].Status)
}

func TestProcessWebhook_MatchesProviderID(t *testing.T) {
	f := newFixture(t)
	event := webhookEvent("evt_1", "succeeded", nil)
	event.Payload.ID = "pay_abc"

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco, event)
	require.NoError(t, err)
	assert.Equal(t, "payment-1", res.PaymentID)
}

func TestProcessWebhook_PaymentNotFound(t *testing.T) {
	f := newFixture(t)
	event := webhookEvent("evt_1", "succeeded", nil)
	event.Payload.ID = "chk_123"

	_, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco, event)
	require.Error(t, err)

	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode())
	assert.Equal(t, "Payment not found", appErr.Message)
	assert.Empty(t, f.store.ledger)
}

func TestProcessWebhook_TransitionFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.applyErr = errors.New("write conflict")

	_, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperrors.AsAppError(err).StatusCode())

	assert.Empty(t, f.store.ledger)
	assert.Equal(t, model.PaymentPending, f.store.payments["payment-1"].Status)
	assert.Equal(t, model.BookingPending, f.store.bookings["booking-1"].Status)
	assert.Empty(t, f.notifier.calls)

	// A redelivery after the failure is processed normally.
	f.store.applyErr = nil
	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
}

func TestProcessWebhook_SideEffectFailuresSwallowed(t *testing.T) {
	f := newFixture(t)
	f.listings.err = listingsrepo.ErrListingNotFound
	f.conversations.err = errors.New("conversation insert failed")
	f.publisher.err = errors.New("kafka down")

	res, err := f.service.ProcessWebhook(context.Background(), model.ProviderYoco,
		webhookEvent("evt_1", "succeeded", nil))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, model.BookingConfirmed, f.store.bookings["booking-1"].Status)

	assert.Equal(t, []string{"instant_book_confirmed"}, f.notifier.calls)
	assert.Nil(t, f.notifier.last.Listing)
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	succeeded := &model.WebhookPayload{Status: "succeeded"}
	failed := &model.WebhookPayload{Status: "failed"}
	instantSucceeded := &model.WebhookPayload{Status: "succeeded", Metadata: map[string]any{"instant_book": true}}
	yes, no := true, false
	instantListing := &model.Listing{InstantBook: &yes}
	approvalListing := &model.Listing{InstantBook: &no}

	tests := []struct {
		name          string
		status        model.BookingStatus
		paymentStatus model.PaymentStatus
		listing       *model.Listing
		payload       *model.WebhookPayload
		wantPayment   model.PaymentStatus
		wantStatus    model.BookingStatus
		wantMove      bool
	}{
		{"pending succeeds", model.BookingPending, model.PaymentPending, nil, succeeded, model.PaymentCompleted, model.BookingConfirmed, true},
		{"processing succeeds", model.BookingPending, model.PaymentProcessing, nil, succeeded, model.PaymentCompleted, model.BookingConfirmed, true},
		{"retry after failure succeeds", model.BookingPending, model.PaymentFailed, nil, succeeded, model.PaymentCompleted, model.BookingConfirmed, true},
		{"pending fails", model.BookingPending, model.PaymentPending, nil, failed, model.PaymentFailed, model.BookingCancelled, true},
		{"confirmed ignores success", model.BookingConfirmed, model.PaymentCompleted, nil, succeeded, model.PaymentCompleted, "", false},
		{"in progress ignores failure", model.BookingInProgress, model.PaymentCompleted, nil, failed, model.PaymentFailed, "", false},
		{"refunded ignores success", model.BookingPending, model.PaymentRefunded, nil, succeeded, model.PaymentCompleted, "", false},
		{"completed ignores success", model.BookingCompleted, model.PaymentCompleted, nil, succeeded, model.PaymentCompleted, "", false},
		{"listing needs approval", model.BookingPending, model.PaymentPending, approvalListing, succeeded, model.PaymentCompleted, model.BookingPending, true},
		{"listing instant book", model.BookingPending, model.PaymentPending, instantListing, succeeded, model.PaymentCompleted, model.BookingConfirmed, true},
		{"metadata overrides listing", model.BookingPending, model.PaymentPending, approvalListing, instantSucceeded, model.PaymentCompleted, model.BookingConfirmed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := &model.Booking{Status: tt.status, PaymentStatus: tt.paymentStatus}
			d := decide(booking, tt.listing, tt.payload, now)

			assert.Equal(t, tt.wantPayment, d.paymentStatus)
			if !tt.wantMove {
				assert.Nil(t, d.transition)
				return
			}
			require.NotNil(t, d.transition)
			assert.Equal(t, tt.wantStatus, d.transition.Status)
		})
	}
}
