package validator

import (
	"context"
	"testing"

	apperrors "orari/pkg/errors"
	"orari/pkg/logger"
	"orari/pkg/model"
)

type stubWindowSource struct {
	hasAny  bool
	byOwner map[string][]model.WeeklyWindow
}

func (s *stubWindowSource) OrgHasAny(context.Context, string) (bool, error) {
	return s.hasAny, nil
}

func (s *stubWindowSource) FindByOwner(_ context.Context, _ string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error) {
	return s.byOwner[string(scope)+":"+ownerID], nil
}

type stubSoloSource struct {
	solos []*model.Service
}

func (s *stubSoloSource) SoloServicesFor(context.Context, string, string) ([]*model.Service, error) {
	return s.solos, nil
}

func window(scope model.Scope, owner string, weekday model.Weekday, start, end string) model.WeeklyWindow {
	return model.WeeklyWindow{
		OrgID:   "org1",
		Scope:   scope,
		OwnerID: owner,
		Weekday: weekday,
		Start:   start,
		End:     end,
		Active:  true,
	}
}

func soloService(id string, durationMin int) *model.Service {
	return &model.Service{
		ID:    id,
		OrgID: "org1",
		Name:  "Service " + id,
		SchedulingParams: model.SchedulingParams{
			DurationMin:  durationMin,
			IncrementMin: 30,
		},
		MaxBookingDays: 30,
		AssigneeIDs:    []string{"member1"},
	}
}

func newPartitionValidator(windows *stubWindowSource, solos *stubSoloSource) *PartitionValidator {
	log := logger.New(logger.Config{Level: "error", Service: "test"})
	return NewPartitionValidator(windows, solos, log)
}

func testOrg() *model.Organization {
	return &model.Organization{ID: "org1", Slug: "acme", Timezone: "UTC"}
}

func TestValidateSubsetWithinMemberWindows(t *testing.T) {
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"member:member1": {window(model.ScopeMember, "member1", model.Monday, "09:00", "17:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{})

	svc := soloService("svcA", 30)
	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcA", model.Monday, "10:00", "12:00")}

	if err := v.ValidateServiceWindows(context.Background(), testOrg(), svc, "member1", proposed); err != nil {
		t.Fatalf("subset window rejected: %v", err)
	}
}

func TestValidateSubsetViolation(t *testing.T) {
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"member:member1": {window(model.ScopeMember, "member1", model.Monday, "09:00", "12:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{})

	svc := soloService("svcA", 30)
	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcA", model.Monday, "11:00", "14:00")}

	err := v.ValidateServiceWindows(context.Background(), testOrg(), svc, "member1", proposed)
	assertConstraint(t, err)
}

func TestValidateSubsetFallsBackToOrgWindows(t *testing.T) {
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"org:org1": {window(model.ScopeOrg, "org1", model.Monday, "08:00", "18:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{})

	svc := soloService("svcA", 30)
	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcA", model.Monday, "09:00", "10:00")}

	if err := v.ValidateServiceWindows(context.Background(), testOrg(), svc, "member1", proposed); err != nil {
		t.Fatalf("org-contained window rejected: %v", err)
	}
}

func TestValidateFullyOpenOrgSkipsSubsetCheck(t *testing.T) {
	v := newPartitionValidator(&stubWindowSource{hasAny: false}, &stubSoloSource{})

	svc := soloService("svcA", 30)
	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcA", model.Sunday, "03:00", "23:00")}

	if err := v.ValidateServiceWindows(context.Background(), testOrg(), svc, "member1", proposed); err != nil {
		t.Fatalf("fully-open org must accept any service windows: %v", err)
	}
}

func TestValidateDisjointnessAcrossDifferentSignatures(t *testing.T) {
	// Member delivers solo services A (30 min) and B (60 min). Proposing
	// B-windows over A's Monday 09:00-10:00 must be rejected.
	svcA := soloService("svcA", 30)
	svcB := soloService("svcB", 60)
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"member:member1": {window(model.ScopeMember, "member1", model.Monday, "09:00", "17:00")},
			"service:svcA":   {window(model.ScopeService, "svcA", model.Monday, "09:00", "10:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{solos: []*model.Service{svcA, svcB}})

	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcB", model.Monday, "09:30", "11:00")}

	err := v.ValidateServiceWindows(context.Background(), testOrg(), svcB, "member1", proposed)
	appErr := assertConstraint(t, err)
	if appErr.Details["conflicting_service"] != "Service svcA" {
		t.Errorf("constraint must name the conflicting service, got %v", appErr.Details)
	}
}

func TestValidateOverlapAllowedForIdenticalSignatures(t *testing.T) {
	svcA := soloService("svcA", 30)
	svcB := soloService("svcB", 30)
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"member:member1": {window(model.ScopeMember, "member1", model.Monday, "09:00", "17:00")},
			"service:svcA":   {window(model.ScopeService, "svcA", model.Monday, "09:00", "10:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{solos: []*model.Service{svcA, svcB}})

	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcB", model.Monday, "09:00", "10:00")}

	if err := v.ValidateServiceWindows(context.Background(), testOrg(), svcB, "member1", proposed); err != nil {
		t.Fatalf("identical signatures may share windows: %v", err)
	}
}

func TestValidateSiblingWithoutWindowsClaimsMemberAvailability(t *testing.T) {
	svcA := soloService("svcA", 30)
	svcB := soloService("svcB", 60)
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"member:member1": {window(model.ScopeMember, "member1", model.Monday, "09:00", "17:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{solos: []*model.Service{svcA, svcB}})

	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcB", model.Monday, "09:00", "10:00")}

	err := v.ValidateServiceWindows(context.Background(), testOrg(), svcB, "member1", proposed)
	assertConstraint(t, err)
}

func TestValidateDifferentWeekdaysNeverConflict(t *testing.T) {
	svcA := soloService("svcA", 30)
	svcB := soloService("svcB", 60)
	windows := &stubWindowSource{
		hasAny: true,
		byOwner: map[string][]model.WeeklyWindow{
			"member:member1": {
				window(model.ScopeMember, "member1", model.Monday, "09:00", "17:00"),
				window(model.ScopeMember, "member1", model.Tuesday, "09:00", "17:00"),
			},
			"service:svcA": {window(model.ScopeService, "svcA", model.Monday, "09:00", "17:00")},
		},
	}
	v := newPartitionValidator(windows, &stubSoloSource{solos: []*model.Service{svcA, svcB}})

	proposed := []model.WeeklyWindow{window(model.ScopeService, "svcB", model.Tuesday, "09:00", "17:00")}

	if err := v.ValidateServiceWindows(context.Background(), testOrg(), svcB, "member1", proposed); err != nil {
		t.Fatalf("different weekdays must not conflict: %v", err)
	}
}

func assertConstraint(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected ConstraintError, got %v", err)
	}
	if appErr.Code != "CONSTRAINT_ERROR" {
		t.Fatalf("expected CONSTRAINT_ERROR, got %s", appErr.Code)
	}
	return appErr
}
