package resolver

import (
	"context"
	"fmt"
	"time"

	"orari/pkg/logger"
	"orari/pkg/model"
)

// WindowSource supplies weekly windows by scope and owner.
type WindowSource interface {
	WindowsFor(ctx context.Context, orgID string, scope model.Scope, ownerID string, weekday model.Weekday) ([]model.WeeklyWindow, error)
	OrgHasAny(ctx context.Context, orgID string) (bool, error)
}

// OverrideSource supplies one-off date exceptions overlapping a span.
type OverrideSource interface {
	OverridesIn(ctx context.Context, orgID string, from, to time.Time) ([]*model.Booking, error)
}

// FreezeSource supplies the settings freeze for a (service, date), or nil
// when none exists.
type FreezeSource interface {
	Get(ctx context.Context, serviceID, date string) (*model.SettingsFreeze, error)
}

// SoloServiceSource lists the services delivered solely by one member.
type SoloServiceSource interface {
	SoloServicesFor(ctx context.Context, orgID, memberID string) ([]*model.Service, error)
}

// DayPlan is the resolved availability of one (service, date): the open
// windows in org-local time plus the scheduling params slot generation
// must use for that date. Frozen dates carry the snapshot params so live
// edits never move slots that clients already booked around.
type DayPlan struct {
	Date    time.Time
	Windows []model.TimeWindow
	Params  model.SchedulingParams
	Frozen  bool
}

// Resolver composes weekly windows, date overrides and settings freezes
// into effective availability.
type Resolver struct {
	windows   WindowSource
	overrides OverrideSource
	freezes   FreezeSource
	services  SoloServiceSource
	log       *logger.Logger
}

func New(
	windows WindowSource,
	overrides OverrideSource,
	freezes FreezeSource,
	services SoloServiceSource,
	log *logger.Logger,
) *Resolver {
	return &Resolver{
		windows:   windows,
		overrides: overrides,
		freezes:   freezes,
		services:  services,
		log:       log,
	}
}

// ResolveDay computes the effective windows for a (service, date) in the
// organization's local time. Precedence, first match wins for the whole
// date:
//
//  1. Date overrides, when any exist, replace weekly sources entirely:
//     open spans minus blocking spans.
//  2. A settings freeze supplies its window snapshot verbatim.
//  3. Service-scoped weekly windows, used exclusively, never merged.
//  4. Member-scoped windows, only for a solo service whose member has no
//     sibling solo services.
//  5. Org-scoped weekly windows.
//  6. An org with no weekly rows anywhere is fully open (legacy default);
//     an org with rows elsewhere but none applicable today is closed.
//
// Override presence superseding weekly windows for the whole date (rather
// than merging per sub-window) mirrors the long-standing product behavior.
func (r *Resolver) ResolveDay(ctx context.Context, org *model.Organization, svc *model.Service, date time.Time) (DayPlan, error) {
	loc := org.Location()
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	plan := DayPlan{Date: dayStart, Params: svc.SchedulingParams}

	// Frozen params bind before any window source is consulted: even when
	// overrides replace the day's windows, a booked date keeps the params
	// it was booked under.
	freeze, err := r.freezes.Get(ctx, svc.ID, dayStart.Format(model.DateLayout))
	if err != nil {
		return plan, fmt.Errorf("load freeze: %w", err)
	}
	if freeze != nil {
		plan.Frozen = true
		plan.Params = freeze.Params
	}

	overrides, err := r.overrides.OverridesIn(ctx, org.ID, dayStart, dayEnd)
	if err != nil {
		return plan, fmt.Errorf("load overrides: %w", err)
	}
	if len(overrides) > 0 {
		plan.Windows = windowsFromOverrides(overrides, dayStart, dayEnd)
		return plan, nil
	}

	if freeze != nil && freeze.HasSnapshot() {
		windows, err := materialize(freeze.WindowsSnapshot, dayStart, loc)
		if err != nil {
			return plan, err
		}
		plan.Windows = windows
		return plan, nil
	}
	// A freeze without a snapshot falls through to the live ladder for
	// windows while keeping the frozen params.

	windows, err := r.resolveWeekly(ctx, org, svc, dayStart, loc)
	if err != nil {
		return plan, err
	}
	plan.Windows = windows
	return plan, nil
}

func (r *Resolver) resolveWeekly(ctx context.Context, org *model.Organization, svc *model.Service, dayStart time.Time, loc *time.Location) ([]model.TimeWindow, error) {
	weekday := model.WeekdayOf(dayStart)

	serviceWindows, err := r.windows.WindowsFor(ctx, org.ID, model.ScopeService, svc.ID, weekday)
	if err != nil {
		return nil, fmt.Errorf("load service windows: %w", err)
	}
	if len(serviceWindows) > 0 {
		return materialize(serviceWindows, dayStart, loc)
	}

	if memberID := svc.SoleAssignee(); memberID != "" {
		inherits, err := r.memberMayDonateWindows(ctx, org.ID, memberID, svc.ID)
		if err != nil {
			return nil, err
		}
		if inherits {
			memberWindows, err := r.windows.WindowsFor(ctx, org.ID, model.ScopeMember, memberID, weekday)
			if err != nil {
				return nil, fmt.Errorf("load member windows: %w", err)
			}
			if len(memberWindows) > 0 {
				return materialize(memberWindows, dayStart, loc)
			}
		}
	}

	orgWindows, err := r.windows.WindowsFor(ctx, org.ID, model.ScopeOrg, org.ID, weekday)
	if err != nil {
		return nil, fmt.Errorf("load org windows: %w", err)
	}
	if len(orgWindows) > 0 {
		return materialize(orgWindows, dayStart, loc)
	}

	hasAny, err := r.windows.OrgHasAny(ctx, org.ID)
	if err != nil {
		return nil, fmt.Errorf("check org windows: %w", err)
	}
	if !hasAny {
		return []model.TimeWindow{model.FullDayWindow(dayStart, loc)}, nil
	}
	return nil, nil
}

// memberMayDonateWindows reports whether the member behind a solo service
// has no sibling solo services. A member spread across differently-shaped
// solo services must partition windows explicitly at write time; nothing
// is inferred here.
func (r *Resolver) memberMayDonateWindows(ctx context.Context, orgID, memberID, serviceID string) (bool, error) {
	solos, err := r.services.SoloServicesFor(ctx, orgID, memberID)
	if err != nil {
		return false, fmt.Errorf("load solo services: %w", err)
	}
	for _, s := range solos {
		if s.ID != serviceID {
			return false, nil
		}
	}
	return true, nil
}

// windowsFromOverrides builds the day's windows purely from override rows:
// the merged open spans minus every blocking span. A date with only
// blocking overrides resolves to no availability at all.
func windowsFromOverrides(overrides []*model.Booking, dayStart, dayEnd time.Time) []model.TimeWindow {
	bounds := model.TimeWindow{Start: dayStart, End: dayEnd}

	var open, blocked []model.TimeWindow
	for _, o := range overrides {
		span := o.Window().Clamp(bounds)
		if span.IsZero() {
			continue
		}
		if o.IsBlocking {
			blocked = append(blocked, span)
		} else {
			open = append(open, span)
		}
	}

	var result []model.TimeWindow
	for _, w := range model.MergeWindows(open) {
		result = append(result, w.SubtractAll(blocked)...)
	}
	return result
}

func materialize(rows []model.WeeklyWindow, dayStart time.Time, loc *time.Location) ([]model.TimeWindow, error) {
	weekday := model.WeekdayOf(dayStart)
	var windows []model.TimeWindow
	for _, row := range rows {
		if !row.Active || row.Weekday != weekday {
			continue
		}
		w, err := row.OnDate(dayStart, loc)
		if err != nil {
			return nil, fmt.Errorf("materialize window: %w", err)
		}
		windows = append(windows, w)
	}
	return model.MergeWindows(windows), nil
}
