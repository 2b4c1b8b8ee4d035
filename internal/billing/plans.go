package billing

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/buchungsbutler/voiceagent/internal/apperr"
	"github.com/buchungsbutler/voiceagent/internal/models"
)

type PlanInput struct {
	Name            string  `json:"name"`
	PricePerMinute  float64 `json:"price_per_minute"`
	MonthlyFee      float64 `json:"monthly_fee"`
	IncludedMinutes int     `json:"included_minutes"`
	Description     string  `json:"description"`
	IsActive        *bool   `json:"is_active,omitempty"`
}

func (in PlanInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperr.Invalid("name is required")
	case in.PricePerMinute < 0, in.MonthlyFee < 0, in.IncludedMinutes < 0:
		return apperr.Invalid("prices and minutes must not be negative")
	}
	return nil
}

func (in PlanInput) apply(p *models.PricingPlan) {
	p.Name = strings.TrimSpace(in.Name)
	p.PricePerMinute = in.PricePerMinute
	p.MonthlyFee = in.MonthlyFee
	p.IncludedMinutes = in.IncludedMinutes
	p.Description = in.Description
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

type PackageInput struct {
	Name     string  `json:"name"`
	Minutes  int     `json:"minutes"`
	Price    float64 `json:"price"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func (in PackageInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return apperr.Invalid("name is required")
	case in.Minutes <= 0:
		return apperr.Invalid("minutes must be positive")
	case in.Price < 0:
		return apperr.Invalid("price must not be negative")
	}
	return nil
}

func (in PackageInput) apply(p *models.MinutePackage) {
	p.Name = strings.TrimSpace(in.Name)
	p.Minutes = in.Minutes
	p.Price = in.Price
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func (s *Service) ListPlans(ctx context.Context) ([]models.PricingPlan, error) {
	return s.store.ListPlans(ctx)
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*models.PricingPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.PricingPlan{IsActive: true}
	in.apply(p)
	if err := s.store.CreatePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, in PlanInput) (*models.PricingPlan, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.store.UpdatePlan(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	return s.store.DeletePlan(ctx, id)
}

func (s *Service) ListPackages(ctx context.Context) ([]models.MinutePackage, error) {
	return s.store.ListPackages(ctx)
}

func (s *Service) CreatePackage(ctx context.Context, in PackageInput) (*models.MinutePackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := &models.MinutePackage{IsActive: true}
	in.apply(p)
	if err := s.store.CreatePackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePackage(ctx context.Context, id uuid.UUID, in PackageInput) (*models.MinutePackage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.store.UpdatePackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePackage(ctx context.Context, id uuid.UUID) error {
	return s.store.DeletePackage(ctx, id)
}
