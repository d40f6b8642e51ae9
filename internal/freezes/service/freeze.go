package service

import (
	"context"
	"fmt"
	"time"

	"orari/internal/freezes/repository"
	"orari/pkg/logger"
	"orari/pkg/model"
)

// WindowSource reads the weekly windows captured into freeze snapshots.
type WindowSource interface {
	WindowsFor(ctx context.Context, orgID string, scope model.Scope, ownerID string, weekday model.Weekday) ([]model.WeeklyWindow, error)
	OrgHasAny(ctx context.Context, orgID string) (bool, error)
}

// BookingCounter reports how many real bookings a service holds on a day.
type BookingCounter interface {
	CountRealByServiceBetween(ctx context.Context, serviceID string, from, to time.Time) (int64, error)
}

// FreezeService drives the settings-freeze lifecycle: created on the
// first real booking of a (service, date), immutable afterwards, removed
// when the date's booking count falls back to zero.
type FreezeService struct {
	repo     repository.FreezeRepository
	windows  WindowSource
	bookings BookingCounter
	log      *logger.Logger
}

func NewFreezeService(repo repository.FreezeRepository, windows WindowSource, bookings BookingCounter, log *logger.Logger) *FreezeService {
	return &FreezeService{
		repo:     repo,
		windows:  windows,
		bookings: bookings,
		log:      log,
	}
}

// Get satisfies the resolver's freeze lookup.
func (s *FreezeService) Get(ctx context.Context, serviceID, date string) (*model.SettingsFreeze, error) {
	return s.repo.Get(ctx, serviceID, date)
}

// EnsureForBooking freezes the (service, date) pair if it is not frozen
// yet, snapshotting params and the weekly windows in effect. An existing
// freeze keeps its params untouched; only a missing snapshot is
// backfilled.
func (s *FreezeService) EnsureForBooking(ctx context.Context, org *model.Organization, svc *model.Service, params model.SchedulingParams, date string) error {
	existing, err := s.repo.Get(ctx, svc.ID, date)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.HasSnapshot() {
			return nil
		}
		snapshot, err := s.captureSnapshot(ctx, org, svc, date)
		if err != nil {
			return err
		}
		if err := s.repo.BackfillSnapshot(ctx, existing.ID, snapshot); err != nil {
			return err
		}
		s.log.Info("Backfilled freeze snapshot", "service_id", svc.ID, "date", date)
		return nil
	}

	snapshot, err := s.captureSnapshot(ctx, org, svc, date)
	if err != nil {
		return err
	}
	freeze := &model.SettingsFreeze{
		ID:              model.FreezeKey(svc.ID, date),
		OrgID:           org.ID,
		ServiceID:       svc.ID,
		Date:            date,
		Params:          params,
		WindowsSnapshot: snapshot,
	}
	if err := s.repo.Insert(ctx, freeze); err != nil {
		return err
	}
	s.log.Info("Settings freeze created", "service_id", svc.ID, "date", date)
	return nil
}

// RemoveIfUnbooked drops the freeze once its date holds no real bookings.
func (s *FreezeService) RemoveIfUnbooked(ctx context.Context, org *model.Organization, serviceID, date string) error {
	loc := org.Location()
	day, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return fmt.Errorf("invalid freeze date %q: %w", date, err)
	}

	count, err := s.bookings.CountRealByServiceBetween(ctx, serviceID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if err := s.repo.Delete(ctx, model.FreezeKey(serviceID, date)); err != nil {
		return err
	}
	s.log.Info("Settings freeze removed", "service_id", serviceID, "date", date)
	return nil
}

// captureSnapshot records the windows in effect for the date's weekday:
// service-scoped rows when present, else org-scoped rows, else a full-day
// sentinel row for a window-less org.
func (s *FreezeService) captureSnapshot(ctx context.Context, org *model.Organization, svc *model.Service, date string) ([]model.WeeklyWindow, error) {
	day, err := time.ParseInLocation(model.DateLayout, date, org.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid freeze date %q: %w", date, err)
	}
	weekday := model.WeekdayOf(day)

	rows, err := s.windows.WindowsFor(ctx, org.ID, model.ScopeService, svc.ID, weekday)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}

	rows, err = s.windows.WindowsFor(ctx, org.ID, model.ScopeOrg, org.ID, weekday)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}

	hasAny, err := s.windows.OrgHasAny(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	if !hasAny {
		return []model.WeeklyWindow{{
			OrgID:   org.ID,
			Scope:   model.ScopeService,
			OwnerID: svc.ID,
			Weekday: weekday,
			Start:   "00:00",
			End:     "23:59",
			Active:  true,
		}}, nil
	}
	return nil, nil
}
