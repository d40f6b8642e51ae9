package validator

import (
	"errors"
	"testing"

	"orari/pkg/logger"
	"orari/pkg/model"
)

func newTestWindowValidator() *WindowValidator {
	return NewWindowValidator(logger.New(logger.Config{Level: "error", Service: "test"}))
}

func row(weekday model.Weekday, start, end string) model.WeeklyWindow {
	return model.WeeklyWindow{
		OrgID:   "org1",
		Scope:   model.ScopeOrg,
		OwnerID: "org1",
		Weekday: weekday,
		Start:   start,
		End:     end,
		Active:  true,
	}
}

func TestValidateSet_Valid(t *testing.T) {
	v := newTestWindowValidator()

	windows := []model.WeeklyWindow{
		row(0, "09:00", "12:00"),
		row(0, "13:00", "17:00"),
		row(1, "09:00", "17:00"),
	}

	if err := v.ValidateSet(windows); err != nil {
		t.Fatalf("expected valid set, got: %v", err)
	}
}

func TestValidateSet_AdjacentRowsAllowed(t *testing.T) {
	v := newTestWindowValidator()

	windows := []model.WeeklyWindow{
		row(2, "09:00", "12:00"),
		row(2, "12:00", "15:00"),
	}

	if err := v.ValidateSet(windows); err != nil {
		t.Fatalf("back-to-back rows should be allowed, got: %v", err)
	}
}

func TestValidateSet_MalformedTime(t *testing.T) {
	v := newTestWindowValidator()

	err := v.ValidateSet([]model.WeeklyWindow{row(0, "9am", "17:00")})
	if err == nil {
		t.Fatal("expected validation error for malformed start time")
	}

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(verrs), verrs)
	}
	if verrs[0].Field != "windows[0].Start" {
		t.Errorf("expected field windows[0].Start, got %s", verrs[0].Field)
	}
}

func TestValidateSet_EndBeforeStart(t *testing.T) {
	v := newTestWindowValidator()

	err := v.ValidateSet([]model.WeeklyWindow{row(3, "17:00", "09:00")})
	if err == nil {
		t.Fatal("expected validation error for inverted range")
	}
}

func TestValidateSet_EqualStartEnd(t *testing.T) {
	v := newTestWindowValidator()

	err := v.ValidateSet([]model.WeeklyWindow{row(3, "09:00", "09:00")})
	if err == nil {
		t.Fatal("expected validation error for zero-length window")
	}
}

func TestValidateSet_OverlapSameWeekday(t *testing.T) {
	v := newTestWindowValidator()

	windows := []model.WeeklyWindow{
		row(4, "09:00", "13:00"),
		row(4, "12:00", "17:00"),
	}

	err := v.ValidateSet(windows)
	if err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestValidateSet_SameTimesDifferentWeekdays(t *testing.T) {
	v := newTestWindowValidator()

	windows := []model.WeeklyWindow{
		row(0, "09:00", "17:00"),
		row(1, "09:00", "17:00"),
	}

	if err := v.ValidateSet(windows); err != nil {
		t.Fatalf("identical times on different weekdays should pass, got: %v", err)
	}
}

func TestValidateSet_MissingScope(t *testing.T) {
	v := newTestWindowValidator()

	w := row(0, "09:00", "17:00")
	w.Scope = ""

	err := v.ValidateSet([]model.WeeklyWindow{w})
	if err == nil {
		t.Fatal("expected validation error for missing scope")
	}
}
