// Package catalog serves read access to parts, categories and vehicle fitments.
package catalog

import (
	"context"
	"fmt"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/repository"

	"github.com/samber/lo"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
	MaxFeatured    = 8
)

// Page describes a slice of a paginated listing
type Page struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// NewPage clamps page and perPage to their valid ranges
func NewPage(page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	return Page{CurrentPage: page, PerPage: perPage}
}

func (p Page) withTotal(total int) Page {
	p.Total = total
	p.LastPage = 1
	if total > 0 {
		p.LastPage = (total + p.PerPage - 1) / p.PerPage
	}
	return p
}

// Listing is one page of parts
type Listing struct {
	Parts []domain.Part `json:"data"`
	Meta  Page          `json:"meta"`
}

type Service struct {
	categories repository.CategoryRepository
	parts      repository.PartRepository
	vehicles   repository.VehicleRepository
	fitments   repository.FitmentRepository
	featured   int
}

// NewService builds the catalog. featuredLimit is capped at MaxFeatured.
func NewService(repos *repository.Repositories, featuredLimit int) *Service {
	if featuredLimit <= 0 || featuredLimit > MaxFeatured {
		featuredLimit = MaxFeatured
	}
	return &Service{
		categories: repos.Categories,
		parts:      repos.Parts,
		vehicles:   repos.Vehicles,
		fitments:   repos.Fitments,
		featured:   featuredLimit,
	}
}

// List returns active parts matching filter. Limit and Offset of filter are derived from page.
func (s *Service) List(ctx context.Context, filter repository.PartFilter, page Page) (*Listing, error) {
	const op = "catalog.Service.List"

	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("min_price", "must not exceed max_price"))
	}

	filter.Limit = page.PerPage
	filter.Offset = (page.CurrentPage - 1) * page.PerPage

	parts, total, err := s.parts.List(ctx, filter)
	if err != nil {
		logger.Error(ctx, "list parts", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Listing{Parts: parts, Meta: page.withTotal(total)}, nil
}

// Featured returns active, featured, in-stock parts
func (s *Service) Featured(ctx context.Context) ([]domain.Part, error) {
	const op = "catalog.Service.Featured"

	parts, err := s.parts.Featured(ctx, s.featured)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return parts, nil
}

// Get returns an active part or domain.ErrNotFound
func (s *Service) Get(ctx context.Context, id int64) (*domain.Part, error) {
	const op = "catalog.Service.Get"

	part, err := s.parts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if part == nil || !part.IsActive {
		return nil, fmt.Errorf("%s: part %d: %w", op, id, domain.ErrNotFound)
	}
	return part, nil
}

// ByCategory lists the active parts of a category identified by slug
func (s *Service) ByCategory(ctx context.Context, slug string, page Page) (*domain.PartsCategory, *Listing, error) {
	const op = "catalog.Service.ByCategory"

	category, err := s.categories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if category == nil || !category.IsActive {
		return nil, nil, fmt.Errorf("%s: category %q: %w", op, slug, domain.ErrNotFound)
	}

	listing, err := s.List(ctx, repository.PartFilter{CategorySlug: slug}, page)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return category, listing, nil
}

// SearchByVehicle returns the active parts fitted to a vehicle model
func (s *Service) SearchByVehicle(ctx context.Context, vehicleModelID *int64) (*domain.VehicleModel, []domain.Part, error) {
	const op = "catalog.Service.SearchByVehicle"

	if vehicleModelID == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("vehicle_model_id", "is required"))
	}

	model, err := s.vehicles.GetModelByID(ctx, *vehicleModelID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if model == nil {
		return nil, nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("vehicle_model_id", "does not exist"))
	}

	parts, err := s.fitments.PartsForModel(ctx, model.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return model, parts, nil
}

// CompatibleModels returns the vehicle models a part fits
func (s *Service) CompatibleModels(ctx context.Context, partID int64) ([]domain.CompatibleModel, error) {
	const op = "catalog.Service.CompatibleModels"

	if _, err := s.Get(ctx, partID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	models, err := s.fitments.ModelsForPart(ctx, partID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return models, nil
}

// LowStock returns active parts at or below their minimum level
func (s *Service) LowStock(ctx context.Context) ([]domain.Part, error) {
	const op = "catalog.Service.LowStock"

	parts, err := s.parts.ListActiveLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return parts, nil
}

// Categories lists every category
func (s *Service) Categories(ctx context.Context) ([]domain.PartsCategory, error) {
	const op = "catalog.Service.Categories"

	list, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// MakeModels is an active vehicle make with its active models
type MakeModels struct {
	domain.VehicleMake
	Models []domain.VehicleModel `json:"models"`
}

// Vehicles returns the active make and model tree used to pick a vehicle for fitment search
func (s *Service) Vehicles(ctx context.Context) ([]MakeModels, error) {
	const op = "catalog.Service.Vehicles"

	makes, err := s.vehicles.ListMakes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tree := make([]MakeModels, 0, len(makes))
	for _, mk := range lo.Filter(makes, func(mk domain.VehicleMake, _ int) bool { return mk.IsActive }) {
		models, err := s.vehicles.ListModelsByMake(ctx, mk.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tree = append(tree, MakeModels{
			VehicleMake: mk,
			Models:      lo.Filter(models, func(m domain.VehicleModel, _ int) bool { return m.IsActive }),
		})
	}
	return tree, nil
}
