package validator

import (
	"context"
	"fmt"

	apperrors "orari/pkg/errors"
	"orari/pkg/logger"
	"orari/pkg/model"
)

// WindowSource reads persisted weekly windows for the partition checks.
type WindowSource interface {
	OrgHasAny(ctx context.Context, orgID string) (bool, error)
	FindByOwner(ctx context.Context, orgID string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error)
}

// SoloServiceSource lists the services delivered solely by one member.
type SoloServiceSource interface {
	SoloServicesFor(ctx context.Context, orgID, memberID string) ([]*model.Service, error)
}

// PartitionValidator guards service-window saves for members who deliver
// several solo services. Differently-configured services cannot share the
// same weekly time: their windows must partition the member's
// availability explicitly rather than be disentangled at read time.
type PartitionValidator struct {
	windows  WindowSource
	services SoloServiceSource
	log      *logger.Logger
}

func NewPartitionValidator(windows WindowSource, services SoloServiceSource, log *logger.Logger) *PartitionValidator {
	return &PartitionValidator{
		windows:  windows,
		services: services,
		log:      log,
	}
}

// ValidateServiceWindows runs two checks over the proposed service-scoped
// set:
//
//   - Subset: each proposed row must fit inside the member's effective
//     availability (member-scoped rows when any exist, else org rows; a
//     truly window-less org is fully open).
//   - Disjointness: rows may not overlap the effective windows of a
//     sibling solo service whose scheduling signature differs.
//
// Any violation rejects the whole save.
func (v *PartitionValidator) ValidateServiceWindows(ctx context.Context, org *model.Organization, svc *model.Service, memberID string, proposed []model.WeeklyWindow) error {
	memberWindows, err := v.windows.FindByOwner(ctx, org.ID, model.ScopeMember, memberID)
	if err != nil {
		return apperrors.Internal("Failed to load member windows", err)
	}

	effective := activeOnly(memberWindows)
	if len(effective) == 0 {
		orgWindows, err := v.windows.FindByOwner(ctx, org.ID, model.ScopeOrg, org.ID)
		if err != nil {
			return apperrors.Internal("Failed to load organization windows", err)
		}
		effective = activeOnly(orgWindows)
	}

	fullyOpen := false
	if len(effective) == 0 {
		hasAny, err := v.windows.OrgHasAny(ctx, org.ID)
		if err != nil {
			return apperrors.Internal("Failed to probe organization windows", err)
		}
		if hasAny {
			// Rows exist elsewhere, so the member's effective
			// availability here is empty: nothing can be a subset of it.
			if active := activeOnly(proposed); len(active) > 0 {
				return constraintError(active[0], "member has no effective availability to carve from", "")
			}
		}
		// A truly window-less org is fully open; the subset check is
		// vacuous there.
		fullyOpen = true
	}

	if !fullyOpen {
		for _, p := range activeOnly(proposed) {
			if !containedInAny(p, effective) {
				return constraintError(p, "outside the member's availability", "")
			}
		}
	}

	siblings, err := v.services.SoloServicesFor(ctx, org.ID, memberID)
	if err != nil {
		return apperrors.Internal("Failed to load member's solo services", err)
	}

	signature := svc.Signature()
	for _, sibling := range siblings {
		if sibling.ID == svc.ID || sibling.Signature() == signature {
			continue
		}

		siblingWindows, err := v.windows.FindByOwner(ctx, org.ID, model.ScopeService, sibling.ID)
		if err != nil {
			return apperrors.Internal("Failed to load sibling service windows", err)
		}
		siblingEffective := activeOnly(siblingWindows)
		if len(siblingEffective) == 0 {
			// No explicit windows yet: the sibling inherits the member's
			// availability, so everything the member offers is claimed.
			siblingEffective = activeOnly(memberWindows)
		}

		for _, p := range activeOnly(proposed) {
			for _, s := range siblingEffective {
				if p.Weekday == s.Weekday && wallOverlaps(p, s) {
					return constraintError(p, "overlaps a differently-configured solo service", sibling.Name)
				}
			}
		}
	}

	return nil
}

func activeOnly(windows []model.WeeklyWindow) []model.WeeklyWindow {
	var out []model.WeeklyWindow
	for _, w := range windows {
		if w.Active {
			out = append(out, w)
		}
	}
	return out
}

func containedInAny(p model.WeeklyWindow, effective []model.WeeklyWindow) bool {
	pStart, okS := wallMinutes(p.Start)
	pEnd, okE := wallMinutes(p.End)
	if !okS || !okE {
		return false
	}
	for _, e := range effective {
		if e.Weekday != p.Weekday {
			continue
		}
		eStart, okS := wallMinutes(e.Start)
		eEnd, okE := wallMinutes(e.End)
		if okS && okE && eStart <= pStart && eEnd >= pEnd {
			return true
		}
	}
	return false
}

func wallOverlaps(a, b model.WeeklyWindow) bool {
	aStart, _ := wallMinutes(a.Start)
	aEnd, _ := wallMinutes(a.End)
	bStart, _ := wallMinutes(b.Start)
	bEnd, _ := wallMinutes(b.End)
	return aStart < bEnd && bStart < aEnd
}

func constraintError(p model.WeeklyWindow, reason, conflictingService string) error {
	message := fmt.Sprintf("Window %s-%s on weekday %d %s", p.Start, p.End, p.Weekday, reason)
	details := map[string]any{
		"weekday": int(p.Weekday),
		"start":   p.Start,
		"end":     p.End,
	}
	if conflictingService != "" {
		details["conflicting_service"] = conflictingService
		message = fmt.Sprintf("%s (%s)", message, conflictingService)
	}
	return apperrors.Constraint(message, details)
}
