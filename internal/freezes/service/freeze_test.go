package service

import (
	"context"
	"testing"
	"time"

	"orari/pkg/logger"
	"orari/pkg/model"
)

type mockFreezeRepository struct {
	stored     map[string]*model.SettingsFreeze
	inserted   []*model.SettingsFreeze
	backfilled map[string][]model.WeeklyWindow
	deleted    []string
}

func newMockFreezeRepository() *mockFreezeRepository {
	return &mockFreezeRepository{
		stored:     map[string]*model.SettingsFreeze{},
		backfilled: map[string][]model.WeeklyWindow{},
	}
}

func (m *mockFreezeRepository) Get(_ context.Context, serviceID, date string) (*model.SettingsFreeze, error) {
	return m.stored[model.FreezeKey(serviceID, date)], nil
}

func (m *mockFreezeRepository) Insert(_ context.Context, freeze *model.SettingsFreeze) error {
	m.inserted = append(m.inserted, freeze)
	m.stored[freeze.ID] = freeze
	return nil
}

func (m *mockFreezeRepository) BackfillSnapshot(_ context.Context, id string, snapshot []model.WeeklyWindow) error {
	m.backfilled[id] = snapshot
	return nil
}

func (m *mockFreezeRepository) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type stubWindowSource struct {
	hasAny  bool
	windows map[string][]model.WeeklyWindow
}

func (s *stubWindowSource) WindowsFor(_ context.Context, _ string, scope model.Scope, ownerID string, _ model.Weekday) ([]model.WeeklyWindow, error) {
	return s.windows[string(scope)+":"+ownerID], nil
}

func (s *stubWindowSource) OrgHasAny(context.Context, string) (bool, error) {
	return s.hasAny, nil
}

type stubCounter struct {
	count int64
}

func (s *stubCounter) CountRealByServiceBetween(context.Context, string, time.Time, time.Time) (int64, error) {
	return s.count, nil
}

func testOrg() *model.Organization {
	return &model.Organization{ID: "org1", Slug: "acme", Timezone: "UTC"}
}

func testService() *model.Service {
	return &model.Service{
		ID:    "svc1",
		OrgID: "org1",
		SchedulingParams: model.SchedulingParams{
			DurationMin:  60,
			IncrementMin: 30,
		},
		AssigneeIDs: []string{"member1"},
	}
}

func build(repo *mockFreezeRepository, windows *stubWindowSource, counter *stubCounter) *FreezeService {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	return NewFreezeService(repo, windows, counter, log)
}

// 2026-03-02 is a Monday.
const mondayDate = "2026-03-02"

func TestEnsureCreatesFreezeWithServiceSnapshot(t *testing.T) {
	repo := newMockFreezeRepository()
	windows := &stubWindowSource{
		hasAny: true,
		windows: map[string][]model.WeeklyWindow{
			"service:svc1": {{OrgID: "org1", Scope: model.ScopeService, OwnerID: "svc1", Weekday: model.Monday, Start: "09:00", End: "12:00", Active: true}},
		},
	}
	s := build(repo, windows, &stubCounter{})

	if err := s.EnsureForBooking(context.Background(), testOrg(), testService(), testService().SchedulingParams, mondayDate); err != nil {
		t.Fatal(err)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.inserted))
	}
	freeze := repo.inserted[0]
	if freeze.ID != "svc1:"+mondayDate {
		t.Errorf("freeze ID = %q", freeze.ID)
	}
	if freeze.Params.DurationMin != 60 {
		t.Errorf("frozen duration = %d", freeze.Params.DurationMin)
	}
	if len(freeze.WindowsSnapshot) != 1 || freeze.WindowsSnapshot[0].Start != "09:00" {
		t.Errorf("snapshot = %v", freeze.WindowsSnapshot)
	}
}

func TestEnsureExistingFreezeIsImmutable(t *testing.T) {
	repo := newMockFreezeRepository()
	repo.stored["svc1:"+mondayDate] = &model.SettingsFreeze{
		ID: "svc1:" + mondayDate, OrgID: "org1", ServiceID: "svc1", Date: mondayDate,
		Params:          model.SchedulingParams{DurationMin: 45},
		WindowsSnapshot: []model.WeeklyWindow{{Weekday: model.Monday, Start: "10:00", End: "11:00", Active: true}},
	}
	s := build(repo, &stubWindowSource{hasAny: true}, &stubCounter{})

	// The live service now says 60 minutes; the frozen 45 must survive.
	if err := s.EnsureForBooking(context.Background(), testOrg(), testService(), testService().SchedulingParams, mondayDate); err != nil {
		t.Fatal(err)
	}
	if len(repo.inserted) != 0 {
		t.Error("existing freeze must not be re-inserted")
	}
	if len(repo.backfilled) != 0 {
		t.Error("freeze with a snapshot must not be backfilled")
	}
	if repo.stored["svc1:"+mondayDate].Params.DurationMin != 45 {
		t.Error("frozen params were overwritten")
	}
}

func TestEnsureBackfillsMissingSnapshot(t *testing.T) {
	repo := newMockFreezeRepository()
	repo.stored["svc1:"+mondayDate] = &model.SettingsFreeze{
		ID: "svc1:" + mondayDate, OrgID: "org1", ServiceID: "svc1", Date: mondayDate,
		Params: model.SchedulingParams{DurationMin: 45},
	}
	windows := &stubWindowSource{
		hasAny: true,
		windows: map[string][]model.WeeklyWindow{
			"org:org1": {{OrgID: "org1", Scope: model.ScopeOrg, OwnerID: "org1", Weekday: model.Monday, Start: "09:00", End: "17:00", Active: true}},
		},
	}
	s := build(repo, windows, &stubCounter{})

	if err := s.EnsureForBooking(context.Background(), testOrg(), testService(), testService().SchedulingParams, mondayDate); err != nil {
		t.Fatal(err)
	}
	snapshot, ok := repo.backfilled["svc1:"+mondayDate]
	if !ok {
		t.Fatal("expected a snapshot backfill")
	}
	if len(snapshot) != 1 || snapshot[0].Start != "09:00" {
		t.Errorf("backfilled snapshot = %v", snapshot)
	}
	if len(repo.inserted) != 0 {
		t.Error("backfill must not insert a new freeze")
	}
}

func TestEnsureSnapshotSentinelForWindowlessOrg(t *testing.T) {
	repo := newMockFreezeRepository()
	s := build(repo, &stubWindowSource{hasAny: false}, &stubCounter{})

	if err := s.EnsureForBooking(context.Background(), testOrg(), testService(), testService().SchedulingParams, mondayDate); err != nil {
		t.Fatal(err)
	}
	if len(repo.inserted) != 1 {
		t.Fatal("expected freeze insert")
	}
	snapshot := repo.inserted[0].WindowsSnapshot
	if len(snapshot) != 1 || snapshot[0].Start != "00:00" || snapshot[0].End != "23:59" {
		t.Errorf("expected full-day sentinel snapshot, got %v", snapshot)
	}
}

func TestRemoveIfUnbookedDeletesEmptyDate(t *testing.T) {
	repo := newMockFreezeRepository()
	s := build(repo, &stubWindowSource{}, &stubCounter{count: 0})

	if err := s.RemoveIfUnbooked(context.Background(), testOrg(), "svc1", mondayDate); err != nil {
		t.Fatal(err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "svc1:"+mondayDate {
		t.Errorf("expected freeze deletion, got %v", repo.deleted)
	}
}

func TestRemoveIfUnbookedKeepsBookedDate(t *testing.T) {
	repo := newMockFreezeRepository()
	s := build(repo, &stubWindowSource{}, &stubCounter{count: 2})

	if err := s.RemoveIfUnbooked(context.Background(), testOrg(), "svc1", mondayDate); err != nil {
		t.Fatal(err)
	}
	if len(repo.deleted) != 0 {
		t.Errorf("freeze must stay while bookings remain, got deletions %v", repo.deleted)
	}
}
