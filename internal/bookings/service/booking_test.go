package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	bookingserrors "shelterbook/internal/bookings/errors"
	"shelterbook/internal/bookings/validator"
	shelterserrors "shelterbook/internal/shelters/errors"
	"shelterbook/pkg/config"
	mongotx "shelterbook/pkg/db/mongo"
	apperrors "shelterbook/pkg/errors"
	"shelterbook/pkg/logger"
	"shelterbook/pkg/model"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ────────────────────────────────────────────────
// In-memory stores for testing
// ────────────────────────────────────────────────

type memoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking

	createFunc func(ctx context.Context, booking *model.Booking) error
	countFunc  func(ctx context.Context, filter model.BookingFilter) (int64, error)
	findFunc   func(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
}

func newMemoryBookingRepository() *memoryBookingRepository {
	return &memoryBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (m *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, booking); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	booking.ID = primitive.NewObjectID().Hex()
	booking.CreatedAt = time.Now().UTC()
	stored := *booking
	m.bookings[booking.ID] = &stored
	return nil
}

func (m *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (m *memoryBookingRepository) FindOverlapping(ctx context.Context, shelterID string, start, end time.Time) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.ShelterID != shelterID || b.IsCancelled() {
			continue
		}
		if b.StartTime.Before(end) && start.Before(b.EndTime) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryBookingRepository) MarkCancelled(ctx context.Context, id string, at time.Time) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	if b.IsCancelled() {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrAlreadyCancelled, id)
	}
	b.Status = config.Cancelled
	b.CancelledAt = &at
	out := *b
	return &out, nil
}

func (m *memoryBookingRepository) Find(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, filter, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *memoryBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *memoryBookingRepository) DeleteByShelter(ctx context.Context, shelterID string) (int64, error) {
	return 0, nil
}

func (m *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func (m *memoryBookingRepository) active(shelterID string) []*model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.ShelterID == shelterID && !b.IsCancelled() {
			out = append(out, b)
		}
	}
	return out
}

type mockShelterStore struct {
	shelters map[string]*model.Shelter
	bumps    atomic.Int64
	bumpErr  error
}

func (m *mockShelterStore) BumpBookingVersion(ctx context.Context, id string) (*model.Shelter, error) {
	if m.bumpErr != nil {
		return nil, m.bumpErr
	}
	m.bumps.Add(1)
	s, ok := m.shelters[id]
	if !ok {
		return nil, shelterserrors.ErrNotFound
	}
	out := *s
	return &out, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
	err       error
}

func (p *recordingPublisher) BookingConfirmed(ctx context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, b.ID)
	return p.err
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b.ID)
	return p.err
}

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

var (
	shelterID = primitive.NewObjectID().Hex()
	tomorrow  = time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
)

func testConfig() *config.Config {
	return &config.Config{
		Log:           logger.New(logger.Config{Output: io.Discard, Service: "test"}),
		AdmissionWait: 2 * time.Second,
	}
}

func newTestService(repo *memoryBookingRepository, shelter *model.Shelter, pub *recordingPublisher) (BookingService, *mockShelterStore) {
	cfg := testConfig()
	store := &mockShelterStore{shelters: map[string]*model.Shelter{}}
	if shelter != nil {
		store.shelters[shelter.ID] = shelter
	}
	svc := NewBookingService(repo, store, pub, validator.NewBookingValidator(cfg.Log), cfg)
	return svc, store
}

func testShelter(capacity int, policy config.BookingPolicy) *model.Shelter {
	return &model.Shelter{
		ID:       shelterID,
		OwnerID:  "owner-1",
		Name:     "Harbor Hall",
		Capacity: capacity,
		Policy:   policy,
		IsActive: true,
	}
}

func request(typ config.BookingType, guests int, fromHour, toHour int) *model.Booking {
	return &model.Booking{
		ShelterID: shelterID,
		BookerID:  "booker-1",
		StartTime: tomorrow.Add(time.Duration(fromHour) * time.Hour),
		EndTime:   tomorrow.Add(time.Duration(toHour) * time.Hour),
		Guests:    guests,
		Type:      typ,
	}
}

func assertConflictReason(t *testing.T, err error, reason string) {
	t.Helper()
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus != http.StatusConflict {
		t.Fatalf("expected 409, got %d (%v)", appErr.HTTPStatus, err)
	}
	if appErr.Details["reason"] != reason {
		t.Errorf("expected reason %q, got %v", reason, appErr.Details["reason"])
	}
}

// ────────────────────────────────────────────────
// Tests for Create()
// ────────────────────────────────────────────────

func TestCreate_ConfirmsAndPublishes(t *testing.T) {
	repo := newMemoryBookingRepository()
	pub := &recordingPublisher{}
	svc, store := newTestService(repo, testShelter(10, config.Both), pub)

	b := request(" Inclusive ", 3, 10, 12)
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Status != config.Confirmed {
		t.Errorf("expected confirmed, got %s", b.Status)
	}
	if b.Type != config.Inclusive {
		t.Errorf("expected normalized type, got %q", b.Type)
	}
	if b.ID == "" {
		t.Error("expected stored booking to get an id")
	}
	if store.bumps.Load() != 1 {
		t.Errorf("expected one booking version bump, got %d", store.bumps.Load())
	}
	if len(pub.confirmed) != 1 || pub.confirmed[0] != b.ID {
		t.Errorf("expected confirmed event for %s, got %v", b.ID, pub.confirmed)
	}
}

func TestCreate_CapacityScenario(t *testing.T) {
	repo := newMemoryBookingRepository()
	svc, _ := newTestService(repo, testShelter(10, config.Both), &recordingPublisher{})
	ctx := context.Background()

	if err := svc.Create(ctx, request(config.Inclusive, 6, 10, 12)); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	assertConflictReason(t, svc.Create(ctx, request(config.Inclusive, 5, 11, 13)), ReasonCapacityExceeded)
	if err := svc.Create(ctx, request(config.Inclusive, 4, 11, 13)); err != nil {
		t.Fatalf("booking filling capacity: %v", err)
	}
	assertConflictReason(t, svc.Create(ctx, request(config.Exclusive, 1, 9, 11)), ReasonBookingConflict)
	if err := svc.Create(ctx, request(config.Exclusive, 1, 13, 14)); err != nil {
		t.Fatalf("adjacent exclusive booking: %v", err)
	}
}

func TestCreate_Rejections(t *testing.T) {
	inactive := testShelter(5, config.Both)
	inactive.IsActive = false

	tests := []struct {
		name       string
		shelter    *model.Shelter
		booking    *model.Booking
		wantStatus int
		wantReason string
	}{
		{
			name:       "shelter inactive",
			shelter:    inactive,
			booking:    request(config.Inclusive, 1, 10, 11),
			wantStatus: http.StatusConflict,
			wantReason: ReasonShelterInactive,
		},
		{
			name:       "policy violation",
			shelter:    testShelter(5, config.InclusiveOnly),
			booking:    request(config.Exclusive, 1, 10, 11),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "capacity exceeded on empty shelter",
			shelter:    testShelter(2, config.Both),
			booking:    request(config.Inclusive, 3, 10, 11),
			wantStatus: http.StatusConflict,
			wantReason: ReasonCapacityExceeded,
		},
		{
			name:       "end before start",
			shelter:    testShelter(5, config.Both),
			booking:    request(config.Inclusive, 1, 11, 10),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "zero guests",
			shelter:    testShelter(5, config.Both),
			booking:    request(config.Inclusive, 0, 10, 11),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown type",
			shelter:    testShelter(5, config.Both),
			booking:    request("shared", 1, 10, 11),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "shelter missing",
			shelter:    nil,
			booking:    request(config.Inclusive, 1, 10, 11),
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryBookingRepository()
			pub := &recordingPublisher{}
			svc, _ := newTestService(repo, tt.shelter, pub)

			err := svc.Create(context.Background(), tt.booking)
			if err == nil {
				t.Fatal("expected error")
			}
			appErr := apperrors.AsAppError(err)
			if appErr.HTTPStatus != tt.wantStatus {
				t.Errorf("expected status %d, got %d (%v)", tt.wantStatus, appErr.HTTPStatus, err)
			}
			if tt.wantReason != "" && appErr.Details["reason"] != tt.wantReason {
				t.Errorf("expected reason %q, got %v", tt.wantReason, appErr.Details["reason"])
			}
			if len(repo.bookings) != 0 {
				t.Errorf("rejected booking must not be stored")
			}
			if len(pub.confirmed) != 0 {
				t.Errorf("rejected booking must not be published")
			}
		})
	}
}

func TestCreate_StoreFailures(t *testing.T) {
	repo := newMemoryBookingRepository()
	repo.createFunc = func(ctx context.Context, booking *model.Booking) error {
		return errors.New("write failed")
	}
	svc, _ := newTestService(repo, testShelter(5, config.Both), &recordingPublisher{})

	err := svc.Create(context.Background(), request(config.Inclusive, 1, 10, 11))
	if apperrors.AsAppError(err).HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected internal error, got %v", err)
	}

	repo = newMemoryBookingRepository()
	svc, store := newTestService(repo, testShelter(5, config.Both), &recordingPublisher{})
	store.bumpErr = errors.New("write conflict")
	err = svc.Create(context.Background(), request(config.Inclusive, 1, 10, 11))
	if apperrors.AsAppError(err).HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestCreate_PublishFailureDoesNotFail(t *testing.T) {
	repo := newMemoryBookingRepository()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newTestService(repo, testShelter(5, config.Both), pub)

	b := request(config.Exclusive, 1, 10, 11)
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("publish failure must not fail the booking: %v", err)
	}
	if b.Status != config.Confirmed {
		t.Errorf("expected confirmed, got %s", b.Status)
	}
}

func TestCreate_ConcurrentAdmissionKeepsInvariants(t *testing.T) {
	repo := newMemoryBookingRepository()
	svc, _ := newTestService(repo, testShelter(10, config.Both), &recordingPublisher{})

	const workers = 40
	var wg sync.WaitGroup
	var accepted atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var b *model.Booking
			switch i % 4 {
			case 0:
				b = request(config.Exclusive, 1, i%6, i%6+1)
			default:
				b = request(config.Inclusive, 1+i%3, i%6, i%6+2)
			}
			b.BookerID = fmt.Sprintf("booker-%d", i)
			if err := svc.Create(context.Background(), b); err == nil {
				accepted.Add(1)
			} else if apperrors.AsAppError(err).HTTPStatus != http.StatusConflict {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if accepted.Load() == 0 {
		t.Fatal("expected some bookings to be admitted")
	}

	held := repo.active(shelterID)
	for hour := 0; hour < 8; hour++ {
		from := tomorrow.Add(time.Duration(hour) * time.Hour)
		to := from.Add(time.Hour)
		guests, exclusive, inclusive := 0, 0, 0
		for _, b := range held {
			if !(b.StartTime.Before(to) && from.Before(b.EndTime)) {
				continue
			}
			if b.Type == config.Exclusive {
				exclusive++
			} else {
				inclusive++
				guests += b.Guests
			}
		}
		if exclusive > 1 || (exclusive == 1 && inclusive > 0) {
			t.Errorf("hour %d: exclusive booking overlaps others (%d exclusive, %d inclusive)", hour, exclusive, inclusive)
		}
		if guests > 10 {
			t.Errorf("hour %d: %d guests exceed capacity", hour, guests)
		}
	}
}

func TestCreate_GateTimeout(t *testing.T) {
	repo := newMemoryBookingRepository()
	svc, _ := newTestService(repo, testShelter(5, config.Both), &recordingPublisher{})
	impl := svc.(*bookingService)
	impl.cfg.AdmissionWait = 20 * time.Millisecond

	unlock, err := impl.locks.Lock(context.Background(), shelterID)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	err = svc.Create(context.Background(), request(config.Inclusive, 1, 10, 11))
	if apperrors.AsAppError(err).HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while shelter gate is held, got %v", err)
	}
}

// ────────────────────────────────────────────────
// Tests for Cancel()
// ────────────────────────────────────────────────

func TestCancel(t *testing.T) {
	repo := newMemoryBookingRepository()
	pub := &recordingPublisher{}
	svc, _ := newTestService(repo, testShelter(1, config.Both), pub)
	ctx := context.Background()

	b := request(config.Exclusive, 1, 10, 11)
	if err := svc.Create(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != config.Cancelled || cancelled.CancelledAt == nil {
		t.Errorf("expected cancelled booking with timestamp, got %+v", cancelled)
	}
	if len(pub.cancelled) != 1 {
		t.Errorf("expected cancelled event, got %v", pub.cancelled)
	}

	_, err = svc.Cancel(ctx, b.ID)
	assertConflictReason(t, err, ReasonAlreadyCancelled)

	if err := svc.Create(ctx, request(config.Exclusive, 1, 10, 11)); err != nil {
		t.Errorf("cancelled booking must free its window: %v", err)
	}
}

func TestCancel_Errors(t *testing.T) {
	repo := newMemoryBookingRepository()
	svc, _ := newTestService(repo, testShelter(1, config.Both), &recordingPublisher{})

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"empty id", "", http.StatusBadRequest},
		{"malformed id", "not-an-id", http.StatusBadRequest},
		{"missing", primitive.NewObjectID().Hex(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Cancel(context.Background(), tt.id)
			if got := apperrors.AsAppError(err).HTTPStatus; got != tt.wantStatus {
				t.Errorf("expected %d, got %d (%v)", tt.wantStatus, got, err)
			}
		})
	}
}

// ────────────────────────────────────────────────
// Tests for GetByID() and Search()
// ────────────────────────────────────────────────

func TestGetByID(t *testing.T) {
	repo := newMemoryBookingRepository()
	svc, _ := newTestService(repo, testShelter(3, config.Both), &recordingPublisher{})

	b := request(config.Inclusive, 2, 10, 11)
	if err := svc.Create(context.Background(), b); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Guests != 2 || got.Status != config.Confirmed {
		t.Errorf("unexpected booking %+v", got)
	}

	_, err = svc.GetByID(context.Background(), primitive.NewObjectID().Hex())
	if apperrors.AsAppError(err).HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestSearch_ConcurrentCountAndFind(t *testing.T) {
	repo := newMemoryBookingRepository()
	repo.countFunc = func(ctx context.Context, filter model.BookingFilter) (int64, error) {
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	}
	repo.findFunc = func(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
		time.Sleep(10 * time.Millisecond)
		if filter.BookerID != "booker-9" || limit != 5 || offset != 10 {
			return nil, fmt.Errorf("unexpected arguments %+v %d %d", filter, limit, offset)
		}
		return []*model.Booking{{ID: "a"}, {ID: "b"}}, nil
	}
	svc, _ := newTestService(repo, nil, &recordingPublisher{})

	bookings, total, err := svc.Search(context.Background(), model.BookingFilter{BookerID: " booker-9 "}, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 42 || len(bookings) != 2 {
		t.Errorf("expected 2 of 42, got %d of %d", len(bookings), total)
	}
}

func TestSearch_InvalidFilters(t *testing.T) {
	repo := newMemoryBookingRepository()
	svc, _ := newTestService(repo, nil, &recordingPublisher{})
	later := tomorrow.Add(time.Hour)

	tests := []struct {
		name       string
		filter     model.BookingFilter
		wantStatus int
	}{
		{"neither key", model.BookingFilter{}, http.StatusBadRequest},
		{"both keys", model.BookingFilter{ShelterID: shelterID, BookerID: "b"}, http.StatusBadRequest},
		{"inverted range", model.BookingFilter{ShelterID: shelterID, StartTime: &later, EndTime: &tomorrow}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Search(context.Background(), tt.filter, 10, 0)
			if got := apperrors.AsAppError(err).HTTPStatus; got != tt.wantStatus {
				t.Errorf("expected %d, got %d (%v)", tt.wantStatus, got, err)
			}
		})
	}
}

func TestSearch_CountError(t *testing.T) {
	repo := newMemoryBookingRepository()
	repo.countFunc = func(ctx context.Context, filter model.BookingFilter) (int64, error) {
		return 0, errors.New("db down")
	}
	svc, _ := newTestService(repo, nil, &recordingPublisher{})

	_, _, err := svc.Search(context.Background(), model.BookingFilter{ShelterID: shelterID}, 10, 0)
	if apperrors.AsAppError(err).HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}

func TestMapAdmissionError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{bookingserrors.ErrInvalidWindow, http.StatusUnprocessableEntity},
		{bookingserrors.ErrInvalidGuests, http.StatusUnprocessableEntity},
		{bookingserrors.ErrPolicyViolation, http.StatusUnprocessableEntity},
		{bookingserrors.ErrShelterInactive, http.StatusConflict},
		{bookingserrors.ErrBookingConflict, http.StatusConflict},
		{bookingserrors.ErrCapacityExceeded, http.StatusConflict},
		{bookingserrors.ErrAlreadyCancelled, http.StatusConflict},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("%w: detail", tt.err)
			if got := apperrors.AsAppError(mapAdmissionError(wrapped)).HTTPStatus; got != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, got)
			}
		})
	}
}
