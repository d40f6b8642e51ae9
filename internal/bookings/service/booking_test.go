package service

import (
	"context"
	"testing"
	"time"

	"orari/internal/availability/resolver"
	bookingserrors "orari/internal/bookings/errors"
	"orari/internal/bookings/overlap"
	"orari/internal/bookings/validator"
	"orari/pkg/config"
	mongotx "orari/pkg/db/mongo"
	apperrors "orari/pkg/errors"
	"orari/pkg/logger"
	"orari/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockBookingRepository struct {
	createFunc         func(ctx context.Context, booking *model.Booking) error
	findByIDFunc       func(ctx context.Context, id string) (*model.Booking, error)
	deleteFunc         func(ctx context.Context, id string) error
	realBookingsInFunc func(ctx context.Context, orgID string, from, to time.Time) ([]*model.Booking, error)

	created []*model.Booking
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = "64f000000000000000000001"
	m.created = append(m.created, booking)
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingRepository) RealBookingsIn(ctx context.Context, orgID string, from, to time.Time) ([]*model.Booking, error) {
	if m.realBookingsInFunc != nil {
		return m.realBookingsInFunc(ctx, orgID, from, to)
	}
	return nil, nil
}

func (m *mockBookingRepository) OverridesIn(context.Context, string, time.Time, time.Time) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepository) CountRealByServiceBetween(context.Context, string, time.Time, time.Time) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockLockRepository struct {
	acquireFunc func(ctx context.Context, orgID, date string) (*model.BookingLock, error)
	released    []*model.BookingLock
}

func (m *mockLockRepository) Acquire(ctx context.Context, orgID, date string) (*model.BookingLock, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx, orgID, date)
	}
	return &model.BookingLock{ID: orgID + ":" + date, Token: "tok"}, nil
}

func (m *mockLockRepository) Release(_ context.Context, lock *model.BookingLock) error {
	m.released = append(m.released, lock)
	return nil
}

type mockOrgSource struct {
	org *model.Organization
}

func (m *mockOrgSource) FindBySlug(_ context.Context, slug string) (*model.Organization, error) {
	if m.org != nil && m.org.Slug == slug {
		return m.org, nil
	}
	return nil, apperrors.NotFoundWithID("Organization", slug)
}

type mockServiceSource struct {
	services map[string]*model.Service
}

func (m *mockServiceSource) FindByID(_ context.Context, id string) (*model.Service, error) {
	if svc, ok := m.services[id]; ok {
		return svc, nil
	}
	return nil, apperrors.NotFoundWithID("Service", id)
}

func (m *mockServiceSource) ParamsFor(_ context.Context, id string) (model.SchedulingParams, error) {
	if svc, ok := m.services[id]; ok {
		return svc.SchedulingParams, nil
	}
	return model.SchedulingParams{}, nil
}

type mockFreezeKeeper struct {
	ensured []string
	removed []string
}

func (m *mockFreezeKeeper) EnsureForBooking(_ context.Context, _ *model.Organization, svc *model.Service, _ model.SchedulingParams, date string) error {
	m.ensured = append(m.ensured, svc.ID+":"+date)
	return nil
}

func (m *mockFreezeKeeper) RemoveIfUnbooked(_ context.Context, _ *model.Organization, serviceID, date string) error {
	m.removed = append(m.removed, serviceID+":"+date)
	return nil
}

type mockSink struct {
	changed []model.ChangeKind
	deleted []model.ChangeKind
}

func (m *mockSink) OnBookingChanged(_ context.Context, _ *model.Booking, kind model.ChangeKind) {
	m.changed = append(m.changed, kind)
}

func (m *mockSink) OnBookingDeleted(_ context.Context, _ *model.Booking, kind model.ChangeKind) {
	m.deleted = append(m.deleted, kind)
}

type emptyWindowSource struct{ hasAny bool }

func (s emptyWindowSource) WindowsFor(context.Context, string, model.Scope, string, model.Weekday) ([]model.WeeklyWindow, error) {
	return nil, nil
}

func (s emptyWindowSource) OrgHasAny(context.Context, string) (bool, error) {
	return s.hasAny, nil
}

type noFreezeSource struct{}

func (noFreezeSource) Get(context.Context, string, string) (*model.SettingsFreeze, error) {
	return nil, nil
}

type noSoloSource struct{}

func (noSoloSource) SoloServicesFor(context.Context, string, string) ([]*model.Service, error) {
	return nil, nil
}

// ────────────────────────────────────────────────
// Fixture
// ────────────────────────────────────────────────

type fixture struct {
	repo     *mockBookingRepository
	locks    *mockLockRepository
	freezes  *mockFreezeKeeper
	sink     *mockSink
	org      *model.Organization
	svc      *model.Service
	windows  emptyWindowSource
	services *mockServiceSource
}

func newFixture() *fixture {
	return &fixture{
		repo:    &mockBookingRepository{},
		locks:   &mockLockRepository{},
		freezes: &mockFreezeKeeper{},
		sink:    &mockSink{},
		org:     &model.Organization{ID: "org1", Slug: "acme", Timezone: "UTC"},
		svc: &model.Service{
			ID:    "svc1",
			OrgID: "org1",
			Name:  "Consultation",
			SchedulingParams: model.SchedulingParams{
				DurationMin:  60,
				IncrementMin: 30,
			},
			MaxBookingDays: 30,
			AssigneeIDs:    []string{"member1"},
		},
		// No weekly rows anywhere: the org is fully open by default.
		windows: emptyWindowSource{hasAny: false},
	}
}

func (f *fixture) build() BookingService {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		LockTTL:      10 * time.Second,
	}
	f.services = &mockServiceSource{services: map[string]*model.Service{f.svc.ID: f.svc}}
	res := resolver.New(f.windows, f.repo, noFreezeSource{}, noSoloSource{}, log)
	detector := overlap.New(f.repo, f.services, log)
	return NewBookingService(
		f.repo,
		f.locks,
		validator.NewBookingValidator(log),
		res,
		detector,
		&mockOrgSource{org: f.org},
		f.services,
		f.freezes,
		f.sink,
		f.sink,
		cfg,
	)
}

// futureStart lands at noon two days out: far enough for default notice,
// inside the default horizon, and never straddling midnight.
func futureStart() time.Time {
	d := time.Now().UTC().Add(48 * time.Hour)
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError with code %s, got %v", code, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreateBooking(t *testing.T) {
	f := newFixture()
	svc := f.build()
	start := futureStart()

	booking, warning, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{
		Start:      start,
		ClientName: "Dana",
	})
	if err != nil {
		t.Fatal(err)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %s", warning)
	}
	if !booking.End.Equal(start.Add(time.Hour)) {
		t.Errorf("end = %s, want start+60m", booking.End)
	}
	if booking.MemberID != "member1" {
		t.Errorf("member = %q, want sole assignee", booking.MemberID)
	}
	if len(f.repo.created) != 1 {
		t.Fatalf("expected exactly one insert, got %d", len(f.repo.created))
	}
	if len(f.freezes.ensured) != 1 {
		t.Errorf("expected freeze to be ensured, got %v", f.freezes.ensured)
	}
	if len(f.sink.changed) != 1 || f.sink.changed[0] != model.ChangeCreated {
		t.Errorf("expected created event, got %v", f.sink.changed)
	}
	if len(f.locks.released) != 1 {
		t.Errorf("expected lock release, got %d", len(f.locks.released))
	}
}

func TestCreateBookingBodyConflict(t *testing.T) {
	f := newFixture()
	start := futureStart()
	f.repo.realBookingsInFunc = func(_ context.Context, _ string, from, to time.Time) ([]*model.Booking, error) {
		b := &model.Booking{ID: "64f000000000000000000009", OrgID: "org1", ServiceID: "svc1", Start: start, End: start.Add(time.Hour)}
		if b.Start.Before(to) && b.End.After(from) {
			return []*model.Booking{b}, nil
		}
		return nil, nil
	}
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: start})
	assertCode(t, err, "CONFLICT")
	if len(f.repo.created) != 0 {
		t.Error("conflicting booking must not be inserted")
	}
	if len(f.freezes.ensured) != 0 {
		t.Error("freeze must not be touched on conflict")
	}
	if len(f.locks.released) != 1 {
		t.Error("lock must be released even on conflict")
	}
}

func TestCreateBookingBufferConflictRejectedWithoutSquish(t *testing.T) {
	f := newFixture()
	f.svc.SchedulingParams.BufferAfterMin = 30
	start := futureStart()
	// Existing booking right after the candidate's buffered tail starts.
	f.repo.realBookingsInFunc = func(context.Context, string, time.Time, time.Time) ([]*model.Booking, error) {
		return []*model.Booking{{
			ID: "64f000000000000000000009", OrgID: "org1", ServiceID: "svc1",
			Start: start.Add(75 * time.Minute), End: start.Add(135 * time.Minute),
		}}, nil
	}
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: start})
	assertCode(t, err, "CONFLICT")
}

func TestCreateBookingBufferConflictSquished(t *testing.T) {
	f := newFixture()
	f.svc.SchedulingParams.BufferAfterMin = 30
	f.svc.SchedulingParams.AllowSquishedBookings = true
	start := futureStart()
	f.repo.realBookingsInFunc = func(context.Context, string, time.Time, time.Time) ([]*model.Booking, error) {
		return []*model.Booking{{
			ID: "64f000000000000000000009", OrgID: "org1", ServiceID: "svc1",
			Start: start.Add(75 * time.Minute), End: start.Add(135 * time.Minute),
		}}, nil
	}
	svc := f.build()

	booking, warning, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: start})
	if err != nil {
		t.Fatal(err)
	}
	if warning != WarningSquished {
		t.Errorf("warning = %q, want %q", warning, WarningSquished)
	}
	if booking == nil || len(f.repo.created) != 1 {
		t.Error("squished booking must still be inserted")
	}
}

func TestCreateBookingClosedDay(t *testing.T) {
	f := newFixture()
	// Org has weekly rows somewhere, but none apply: the day is closed.
	f.windows = emptyWindowSource{hasAny: true}
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: futureStart()})
	assertCode(t, err, "AVAILABILITY_ERROR")
}

func TestCreateBookingBelowMinNotice(t *testing.T) {
	f := newFixture()
	f.svc.MinNoticeHours = 72
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: futureStart()})
	assertCode(t, err, "AVAILABILITY_ERROR")
}

func TestCreateBookingBeyondHorizon(t *testing.T) {
	f := newFixture()
	f.svc.MaxBookingDays = 1
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: futureStart()})
	assertCode(t, err, "AVAILABILITY_ERROR")
}

func TestCreateBookingLockContention(t *testing.T) {
	f := newFixture()
	f.locks.acquireFunc = func(context.Context, string, string) (*model.BookingLock, error) {
		return nil, bookingserrors.ErrLockHeld
	}
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: futureStart()})
	assertCode(t, err, "CONCURRENCY_ERROR")
	if len(f.repo.created) != 0 {
		t.Error("no insert may happen without the lock")
	}
}

func TestCreateBookingUnknownOrg(t *testing.T) {
	f := newFixture()
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "ghost", "svc1", &CreateBookingRequest{Start: futureStart()})
	assertCode(t, err, "NOT_FOUND")
}

func TestCreateBookingServiceFromOtherOrg(t *testing.T) {
	f := newFixture()
	f.svc.OrgID = "org2"
	svc := f.build()

	_, _, err := svc.Create(context.Background(), "acme", "svc1", &CreateBookingRequest{Start: futureStart()})
	assertCode(t, err, "NOT_FOUND")
}

// ────────────────────────────────────────────────
// Cancel
// ────────────────────────────────────────────────

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	start := futureStart()
	f.repo.findByIDFunc = func(_ context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, OrgID: "org1", ServiceID: "svc1", Start: start, End: start.Add(time.Hour)}, nil
	}
	svc := f.build()

	err := svc.Cancel(context.Background(), "acme", "64f000000000000000000001")
	if err != nil {
		t.Fatal(err)
	}
	if len(f.freezes.removed) != 1 {
		t.Errorf("expected freeze cleanup, got %v", f.freezes.removed)
	}
	if len(f.sink.deleted) != 1 || f.sink.deleted[0] != model.ChangeCancelled {
		t.Errorf("expected cancelled audit event, got %v", f.sink.deleted)
	}
}

func TestCancelOverrideSkipsFreezeCleanup(t *testing.T) {
	f := newFixture()
	start := futureStart()
	f.repo.findByIDFunc = func(_ context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, OrgID: "org1", Start: start, End: start.Add(time.Hour), IsBlocking: true}, nil
	}
	svc := f.build()

	if err := svc.Cancel(context.Background(), "acme", "64f000000000000000000001"); err != nil {
		t.Fatal(err)
	}
	if len(f.freezes.removed) != 0 {
		t.Errorf("overrides carry no freeze, got cleanup %v", f.freezes.removed)
	}
}

func TestCancelBookingWrongOrg(t *testing.T) {
	f := newFixture()
	f.repo.findByIDFunc = func(_ context.Context, id string) (*model.Booking, error) {
		return &model.Booking{ID: id, OrgID: "org2"}, nil
	}
	svc := f.build()

	err := svc.Cancel(context.Background(), "acme", "64f000000000000000000001")
	assertCode(t, err, "NOT_FOUND")
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture()
	svc := f.build()

	_, err := svc.GetByID(context.Background(), "acme", "64f000000000000000000001")
	assertCode(t, err, "NOT_FOUND")
}
