package service

import (
	"context"
	"testing"
	"time"

	"orari/internal/windows/repository"
	"orari/internal/windows/validator"
	"orari/pkg/config"
	mongotx "orari/pkg/db/mongo"
	apperrors "orari/pkg/errors"
	"orari/pkg/logger"
	"orari/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type mockWindowRepository struct {
	byOwner  map[string][]model.WeeklyWindow
	hasAny   bool
	replaced []model.WeeklyWindow
	calls    int
}

var _ repository.WindowRepository = (*mockWindowRepository)(nil)

func (m *mockWindowRepository) WindowsFor(context.Context, string, model.Scope, string, model.Weekday) ([]model.WeeklyWindow, error) {
	return nil, nil
}

func (m *mockWindowRepository) OrgHasAny(context.Context, string) (bool, error) {
	return m.hasAny, nil
}

func (m *mockWindowRepository) FindByOwner(_ context.Context, _ string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error) {
	return m.byOwner[string(scope)+":"+ownerID], nil
}

func (m *mockWindowRepository) ReplaceAll(_ context.Context, _ string, _ model.Scope, _ string, windows []model.WeeklyWindow) error {
	m.replaced = windows
	m.calls++
	return nil
}

func (m *mockWindowRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type stubOrgSource struct {
	org *model.Organization
}

func (s *stubOrgSource) FindBySlug(_ context.Context, slug string) (*model.Organization, error) {
	if s.org != nil && s.org.Slug == slug {
		return s.org, nil
	}
	return nil, apperrors.NotFoundWithID("Organization", slug)
}

type stubServiceSource struct {
	services map[string]*model.Service
}

func (s *stubServiceSource) FindByID(_ context.Context, id string) (*model.Service, error) {
	if svc, ok := s.services[id]; ok {
		return svc, nil
	}
	return nil, apperrors.NotFoundWithID("Service", id)
}

func (s *stubServiceSource) SoloServicesFor(_ context.Context, _, memberID string) ([]*model.Service, error) {
	var out []*model.Service
	for _, svc := range s.services {
		if svc.IsSolo() && svc.SoleAssignee() == memberID {
			out = append(out, svc)
		}
	}
	return out, nil
}

type fixture struct {
	repo     *mockWindowRepository
	services *stubServiceSource
	org      *model.Organization
}

func newFixture() *fixture {
	return &fixture{
		repo:     &mockWindowRepository{byOwner: map[string][]model.WeeklyWindow{}, hasAny: true},
		services: &stubServiceSource{services: map[string]*model.Service{}},
		org:      &model.Organization{ID: "org1", Slug: "acme", Timezone: "UTC"},
	}
}

func (f *fixture) build() WindowService {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	cfg := &config.Config{Log: log, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	return NewWindowService(
		f.repo,
		validator.NewWindowValidator(log),
		validator.NewPartitionValidator(f.repo, f.services, log),
		&stubOrgSource{org: f.org},
		f.services,
		cfg,
	)
}

func row(weekday model.Weekday, start, end string) model.WeeklyWindow {
	return model.WeeklyWindow{Weekday: weekday, Start: start, End: end, Active: true}
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

func TestSaveOrgWindows(t *testing.T) {
	f := newFixture()
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   model.ScopeOrg,
		OwnerID: "org1",
		Windows: []model.WeeklyWindow{
			row(model.Monday, "09:00", "12:00"),
			row(model.Monday, "14:00", "17:00"),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.repo.calls != 1 {
		t.Fatalf("expected one ReplaceAll, got %d", f.repo.calls)
	}
	for _, w := range f.repo.replaced {
		if w.OrgID != "org1" || w.Scope != model.ScopeOrg || w.OwnerID != "org1" {
			t.Errorf("row not normalized: %+v", w)
		}
	}
}

func TestSaveWindowsRejectsOverlappingRows(t *testing.T) {
	f := newFixture()
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   model.ScopeOrg,
		OwnerID: "org1",
		Windows: []model.WeeklyWindow{
			row(model.Monday, "09:00", "12:00"),
			row(model.Monday, "11:00", "14:00"),
		},
	})
	assertCode(t, err, "VALIDATION_ERROR")
	if f.repo.calls != 0 {
		t.Error("invalid set must not be persisted")
	}
}

func TestSaveWindowsRejectsMalformedTimes(t *testing.T) {
	f := newFixture()
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   model.ScopeOrg,
		OwnerID: "org1",
		Windows: []model.WeeklyWindow{row(model.Monday, "9am", "5pm")},
	})
	assertCode(t, err, "VALIDATION_ERROR")
}

func TestSaveWindowsRejectsInvertedRange(t *testing.T) {
	f := newFixture()
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   model.ScopeOrg,
		OwnerID: "org1",
		Windows: []model.WeeklyWindow{row(model.Monday, "12:00", "09:00")},
	})
	assertCode(t, err, "VALIDATION_ERROR")
}

func TestSaveServiceWindowsPartitionRejection(t *testing.T) {
	f := newFixture()
	f.services.services["svcA"] = &model.Service{
		ID: "svcA", OrgID: "org1", Name: "A",
		SchedulingParams: model.SchedulingParams{DurationMin: 30, IncrementMin: 30},
		AssigneeIDs:      []string{"member1"},
	}
	f.services.services["svcB"] = &model.Service{
		ID: "svcB", OrgID: "org1", Name: "B",
		SchedulingParams: model.SchedulingParams{DurationMin: 60, IncrementMin: 30},
		AssigneeIDs:      []string{"member1"},
	}
	f.repo.byOwner["member:member1"] = []model.WeeklyWindow{
		{OrgID: "org1", Scope: model.ScopeMember, OwnerID: "member1", Weekday: model.Monday, Start: "09:00", End: "17:00", Active: true},
	}
	f.repo.byOwner["service:svcA"] = []model.WeeklyWindow{
		{OrgID: "org1", Scope: model.ScopeService, OwnerID: "svcA", Weekday: model.Monday, Start: "09:00", End: "10:00", Active: true},
	}
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   model.ScopeService,
		OwnerID: "svcB",
		Windows: []model.WeeklyWindow{row(model.Monday, "09:30", "11:00")},
	})
	assertCode(t, err, "CONSTRAINT_ERROR")
	if f.repo.calls != 0 {
		t.Error("rejected partition must not be persisted")
	}
}

func TestSaveServiceWindowsMultiAssigneeSkipsPartition(t *testing.T) {
	f := newFixture()
	f.services.services["svcC"] = &model.Service{
		ID: "svcC", OrgID: "org1", Name: "C",
		SchedulingParams: model.SchedulingParams{DurationMin: 30, IncrementMin: 30},
		AssigneeIDs:      []string{"member1", "member2"},
	}
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   model.ScopeService,
		OwnerID: "svcC",
		Windows: []model.WeeklyWindow{row(model.Monday, "03:00", "23:00")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.repo.calls != 1 {
		t.Error("multi-assignee service windows must persist without partition checks")
	}
}

func TestSaveWindowsUnknownScope(t *testing.T) {
	f := newFixture()
	svc := f.build()

	err := svc.SaveWindows(context.Background(), "acme", &SaveWindowsRequest{
		Scope:   "team",
		OwnerID: "x",
		Windows: []model.WeeklyWindow{row(model.Monday, "09:00", "12:00")},
	})
	assertCode(t, err, "INVALID_INPUT")
}
