package service

import (
	"context"
	"time"

	"orari/internal/availability/slots"
	"orari/pkg/config"
	apperrors "orari/pkg/errors"
	"orari/pkg/model"
)

// OrganizationSource resolves organizations by their URL slug.
type OrganizationSource interface {
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
}

// ServiceSource resolves bookable services.
type ServiceSource interface {
	FindByID(ctx context.Context, id string) (*model.Service, error)
}

// Query tunes one availability request.
type Query struct {
	From time.Time
	To   time.Time
	// StepMin overrides the slot increment for variable-increment
	// services.
	StepMin int
	// EdgeBuffers requires the trailing buffer to fit inside the window.
	EdgeBuffers bool
	// Internal marks a staff caller; only they see buffer annotations.
	Internal bool
}

// SlotView is the wire form of one candidate slot. ViolatesBuffer is
// omitted entirely for public callers.
type SlotView struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	ViolatesBuffer *bool     `json:"violates_buffer,omitempty"`
}

type AvailabilityService interface {
	Slots(ctx context.Context, orgSlug, serviceID string, q Query) ([]SlotView, error)
	Days(ctx context.Context, orgSlug, serviceID string, q Query) (map[string]bool, error)
}

type availabilityService struct {
	generator *slots.Generator
	orgs      OrganizationSource
	services  ServiceSource
	cfg       *config.Config
}

func NewAvailabilityService(generator *slots.Generator, orgs OrganizationSource, services ServiceSource, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		generator: generator,
		orgs:      orgs,
		services:  services,
		cfg:       cfg,
	}
}

func (s *availabilityService) Slots(ctx context.Context, orgSlug, serviceID string, q Query) ([]SlotView, error) {
	org, svc, err := s.loadOrgService(ctx, orgSlug, serviceID)
	if err != nil {
		return nil, err
	}
	if err := validateRange(q); err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(ctx, org, svc, q.From, q.To, slots.Options{
		StepMin:     q.StepMin,
		EdgeBuffers: q.EdgeBuffers,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to generate slots", err)
	}

	views := make([]SlotView, 0, len(generated))
	for _, slot := range generated {
		view := SlotView{Start: slot.Start, End: slot.End}
		if q.Internal {
			violates := slot.ViolatesBuffer
			view.ViolatesBuffer = &violates
		}
		views = append(views, view)
	}
	return views, nil
}

// Days summarizes the range as date -> has-any-slot, one entry per
// calendar day in the organization's timezone.
func (s *availabilityService) Days(ctx context.Context, orgSlug, serviceID string, q Query) (map[string]bool, error) {
	org, svc, err := s.loadOrgService(ctx, orgSlug, serviceID)
	if err != nil {
		return nil, err
	}
	if err := validateRange(q); err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(ctx, org, svc, q.From, q.To, slots.Options{})
	if err != nil {
		return nil, apperrors.Internal("Failed to generate slots", err)
	}

	loc := org.Location()
	days := make(map[string]bool)
	from := q.From.In(loc)
	to := q.To.In(loc)
	for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		days[day.Format(model.DateLayout)] = false
	}
	for _, slot := range generated {
		days[slot.Start.In(loc).Format(model.DateLayout)] = true
	}
	return days, nil
}

func (s *availabilityService) loadOrgService(ctx context.Context, slug, serviceID string) (*model.Organization, *model.Service, error) {
	if slug == "" {
		return nil, nil, apperrors.InvalidInput("Organization slug cannot be empty")
	}
	if serviceID == "" {
		return nil, nil, apperrors.InvalidInput("Service ID cannot be empty")
	}
	org, err := s.orgs.FindBySlug(ctx, slug)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, nil, err
		}
		return nil, nil, apperrors.Internal("Failed to load organization", err)
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

func validateRange(q Query) error {
	if q.From.IsZero() || q.To.IsZero() {
		return apperrors.InvalidInput("from and to are required")
	}
	if !q.To.After(q.From) {
		return apperrors.InvalidInput("to must be after from")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
