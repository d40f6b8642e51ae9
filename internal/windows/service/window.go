package service

import (
	"context"

	"orari/internal/windows/repository"
	"orari/internal/windows/validator"
	"orari/pkg/config"
	apperrors "orari/pkg/errors"
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

// SaveWindowsRequest replaces the full weekly-window set of one owner.
// Rows carry wall-clock times; the weekday arrives already converted to
// storage numbering by the handler.
type SaveWindowsRequest struct {
	Scope   model.Scope
	OwnerID string
	Windows []model.WeeklyWindow
}

type WindowService interface {
	SaveWindows(ctx context.Context, orgSlug string, req *SaveWindowsRequest) error
	GetWindows(ctx context.Context, orgSlug string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error)
}

type windowService struct {
	repo      repository.WindowRepository
	validator *validator.WindowValidator
	partition *validator.PartitionValidator
	orgs      OrganizationSource
	services  ServiceSource
	cfg       *config.Config
}

func NewWindowService(
	repo repository.WindowRepository,
	windowValidator *validator.WindowValidator,
	partition *validator.PartitionValidator,
	orgs OrganizationSource,
	services ServiceSource,
	cfg *config.Config,
) WindowService {
	return &windowService{
		repo:      repo,
		validator: windowValidator,
		partition: partition,
		orgs:      orgs,
		services:  services,
		cfg:       cfg,
	}
}

func (s *windowService) SaveWindows(ctx context.Context, orgSlug string, req *SaveWindowsRequest) error {
	org, err := s.loadOrg(ctx, orgSlug)
	if err != nil {
		return err
	}
	if !req.Scope.Valid() {
		return apperrors.InvalidInput("Scope must be one of org, member, service")
	}
	if req.OwnerID == "" {
		return apperrors.InvalidInput("Owner ID cannot be empty")
	}

	rows := make([]model.WeeklyWindow, len(req.Windows))
	for i, w := range req.Windows {
		w.ID = ""
		w.OrgID = org.ID
		w.Scope = req.Scope
		w.OwnerID = req.OwnerID
		rows[i] = w
	}

	if err := s.validator.ValidateSet(rows); err != nil {
		return apperrors.Validation("Invalid weekly windows", map[string]any{"error": err.Error()})
	}

	if req.Scope == model.ScopeService {
		if err := s.validatePartition(ctx, org, req.OwnerID, rows); err != nil {
			return err
		}
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.ReplaceAll(sessCtx, org.ID, req.Scope, req.OwnerID, rows); err != nil {
			return apperrors.Internal("Failed to save weekly windows", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to save weekly windows",
			"org_id", org.ID,
			"scope", req.Scope,
			"owner_id", req.OwnerID,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Weekly windows replaced",
		"org_id", org.ID,
		"scope", req.Scope,
		"owner_id", req.OwnerID,
		"count", len(rows),
	)
	return nil
}

func (s *windowService) GetWindows(ctx context.Context, orgSlug string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error) {
	org, err := s.loadOrg(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	if !scope.Valid() {
		return nil, apperrors.InvalidInput("Scope must be one of org, member, service")
	}

	windows, err := s.repo.FindByOwner(ctx, org.ID, scope, ownerID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load weekly windows", err)
	}
	return windows, nil
}

// validatePartition applies the solo-member guardrails to service-scoped
// saves. Services with zero or multiple assignees carry their own windows
// and need no partitioning.
func (s *windowService) validatePartition(ctx context.Context, org *model.Organization, serviceID string, rows []model.WeeklyWindow) error {
	svc, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Failed to load service", err)
	}
	if svc.OrgID != org.ID {
		return apperrors.NotFoundWithID("Service", serviceID)
	}
	if !svc.IsSolo() {
		return nil
	}
	return s.partition.ValidateServiceWindows(ctx, org, svc, svc.SoleAssignee(), rows)
}

func (s *windowService) loadOrg(ctx context.Context, slug string) (*model.Organization, error) {
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
