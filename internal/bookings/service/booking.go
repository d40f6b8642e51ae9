package service

import (
	"context"
	"errors"
	"time"

	"orari/internal/availability/resolver"
	bookingserrors "orari/internal/bookings/errors"
	"orari/internal/bookings/overlap"
	"orari/internal/bookings/repository"
	"orari/internal/bookings/validator"
	"orari/pkg/config"
	apperrors "orari/pkg/errors"
	"orari/pkg/events"
	"orari/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// OrganizationSource resolves organizations by their URL slug.
type OrganizationSource interface {
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
}

// ServiceSource resolves bookable services.
type ServiceSource interface {
	FindByID(ctx context.Context, id string) (*model.Service, error)
}

// FreezeKeeper maintains the settings-freeze lifecycle around booking
// creation and cancellation.
type FreezeKeeper interface {
	EnsureForBooking(ctx context.Context, org *model.Organization, svc *model.Service, params model.SchedulingParams, date string) error
	RemoveIfUnbooked(ctx context.Context, org *model.Organization, serviceID, date string) error
}

// CreateBookingRequest is the client-facing creation payload. The end
// time is derived from the service duration, never supplied.
type CreateBookingRequest struct {
	Start       time.Time `json:"start"`
	ClientName  string    `json:"client_name"`
	ClientPhone string    `json:"client_phone"`
}

// WarningSquished is returned alongside a created booking that was
// admitted into another booking's buffer space.
const WarningSquished = "booking was placed inside reserved buffer time"

type BookingService interface {
	Create(ctx context.Context, orgSlug, serviceID string, req *CreateBookingRequest) (*model.Booking, string, error)
	GetByID(ctx context.Context, orgSlug, id string) (*model.Booking, error)
	Cancel(ctx context.Context, orgSlug, id string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	validator *validator.BookingValidator
	resolver  *resolver.Resolver
	detector  *overlap.Detector
	orgs      OrganizationSource
	services  ServiceSource
	freezes   FreezeKeeper
	notify    events.NotificationSink
	audit     events.AuditSink
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	bookingValidator *validator.BookingValidator,
	res *resolver.Resolver,
	detector *overlap.Detector,
	orgs OrganizationSource,
	services ServiceSource,
	freezes FreezeKeeper,
	notify events.NotificationSink,
	audit events.AuditSink,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: bookingValidator,
		resolver:  res,
		detector:  detector,
		orgs:      orgs,
		services:  services,
		freezes:   freezes,
		notify:    notify,
		audit:     audit,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, orgSlug, serviceID string, req *CreateBookingRequest) (*model.Booking, string, error) {
	org, svc, err := s.loadOrgService(ctx, orgSlug, serviceID)
	if err != nil {
		return nil, "", err
	}

	loc := org.Location()
	start := req.Start.In(loc)

	plan, err := s.resolver.ResolveDay(ctx, org, svc, start)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to resolve availability", err)
	}

	booking := &model.Booking{
		OrgID:       org.ID,
		ServiceID:   svc.ID,
		MemberID:    svc.SoleAssignee(),
		Start:       start,
		End:         start.Add(plan.Params.Duration()),
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
	}
	if err := s.validate(booking); err != nil {
		return nil, "", err
	}
	if err := s.checkBookable(org, svc, plan, booking); err != nil {
		return nil, "", err
	}

	date := booking.DateKey(loc)
	lock, err := s.lockRepo.Acquire(ctx, org.ID, date)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return nil, "", apperrors.Concurrency("Another booking for this day is in progress, retry shortly")
		}
		return nil, "", apperrors.Internal("Failed to acquire booking lock", err)
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(ctx, lock); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lock.ID, "error", releaseErr)
		}
	}()

	var warning string
	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := s.detector.Check(sessCtx, booking, plan.Params)
		if err != nil {
			return apperrors.Internal("Failed to check for conflicts", err)
		}
		if res != nil {
			if !res.BufferOnly {
				return apperrors.Conflict("Requested time is no longer available")
			}
			if !plan.Params.AllowSquishedBookings {
				return apperrors.Conflict("Requested time collides with reserved buffer")
			}
			warning = WarningSquished
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"org_id", org.ID,
			"service_id", svc.ID,
			"start", booking.Start,
			"error", err,
		)
		return nil, "", err
	}

	// Post-commit bookkeeping is best effort; the booking already stands.
	if err := s.freezes.EnsureForBooking(ctx, org, svc, plan.Params, date); err != nil {
		s.cfg.Log.Error("Failed to ensure settings freeze", "service_id", svc.ID, "date", date, "error", err)
	}
	s.notify.OnBookingChanged(ctx, booking, model.ChangeCreated)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"org_id", org.ID,
		"service_id", svc.ID,
		"start", booking.Start,
		"squished", warning != "",
	)
	return booking, warning, nil
}

func (s *bookingService) GetByID(ctx context.Context, orgSlug, id string) (*model.Booking, error) {
	org, err := s.loadOrg(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(err, id)
	}
	if booking.OrgID != org.ID {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, orgSlug, id string) error {
	org, err := s.loadOrg(ctx, orgSlug)
	if err != nil {
		return err
	}
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return s.mapLookupError(err, id)
	}
	if booking.OrgID != org.ID {
		return apperrors.NotFoundWithID("Booking", id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to delete booking", err)
	}

	if booking.IsReal() {
		date := booking.DateKey(org.Location())
		if err := s.freezes.RemoveIfUnbooked(ctx, org, booking.ServiceID, date); err != nil {
			s.cfg.Log.Error("Failed to clean up settings freeze", "service_id", booking.ServiceID, "date", date, "error", err)
		}
	}
	s.audit.OnBookingDeleted(ctx, booking, model.ChangeCancelled)

	s.cfg.Log.Info("Booking cancelled", "id", id, "org_id", org.ID)
	return nil
}

// --- Helpers ---

func (s *bookingService) loadOrg(ctx context.Context, slug string) (*model.Organization, error) {
	if slug == "" {
		return nil, apperrors.InvalidInput("Organization slug cannot be empty")
	}
	org, err := s.orgs.FindBySlug(ctx, slug)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Internal("Failed to load organization", err)
	}
	return org, nil
}

func (s *bookingService) loadOrgService(ctx context.Context, slug, serviceID string) (*model.Organization, *model.Service, error) {
	org, err := s.loadOrg(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	if serviceID == "" {
		return nil, nil, apperrors.InvalidInput("Service ID cannot be empty")
	}
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, nil, err
		}
		return nil, nil, apperrors.Internal("Failed to load service", err)
	}
	if svc.OrgID != org.ID {
		return nil, nil, apperrors.NotFoundWithID("Service", serviceID)
	}
	return org, svc, nil
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		return apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()})
	}
	return nil
}

// checkBookable verifies notice, horizon, trial and window-containment
// rules against the resolved plan. The slot grid itself is advisory; any
// start satisfying these rules is accepted, subject to the transactional
// conflict check.
func (s *bookingService) checkBookable(org *model.Organization, svc *model.Service, plan resolver.DayPlan, booking *model.Booking) error {
	now := time.Now().In(org.Location())

	if booking.Start.Before(now.Add(time.Duration(svc.MinNoticeHours) * time.Hour)) {
		return apperrors.Availability("Start time is below the minimum notice period", map[string]any{
			"min_notice_hours": svc.MinNoticeHours,
		})
	}
	if booking.Start.After(now.AddDate(0, 0, svc.MaxBookingDays)) {
		return apperrors.Availability("Start time is beyond the booking horizon", map[string]any{
			"max_booking_days": svc.MaxBookingDays,
		})
	}
	if org.TrialEndsAt != nil && booking.Start.After(*org.TrialEndsAt) {
		return apperrors.Availability("Organization's trial period ends before the requested time", nil)
	}

	for _, window := range plan.Windows {
		if !window.ContainsInstant(booking.Start) {
			continue
		}
		if booking.End.After(window.End) && !plan.Params.AllowEndsAfterAvailability {
			break
		}
		return nil
	}
	return apperrors.Availability("Requested time is outside the service's availability", nil)
}

func (s *bookingService) mapLookupError(err error, id string) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal("Failed to retrieve booking", err)
}
