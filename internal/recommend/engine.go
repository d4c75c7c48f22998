// Package recommend selects catalog parts to suggest for a service request.
package recommend

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/repository"
)

// DefaultPlaceholderImage is shown for parts without a primary image.
const DefaultPlaceholderImage = "https://via.placeholder.com/300x300?text=No+Image"

// CandidateSource returns active, in-stock parts matching a query, ordered by id.
type CandidateSource interface {
	Candidates(ctx context.Context, q repository.CandidateQuery) ([]domain.Part, error)
}

// RecommendedPart is the projection returned to booking clients.
type RecommendedPart struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Brand          string         `json:"brand"`
	SKU            string         `json:"sku"`
	Price          float64        `json:"price"`
	StockQuantity  int            `json:"stock_quantity"`
	Category       *string        `json:"category"`
	ImageURL       string         `json:"image_url"`
	Specifications map[string]any `json:"specifications"`
}

type Engine struct {
	parts       CandidateSource
	rules       Rules
	placeholder string
}

// NewEngine builds an engine. Empty placeholder selects DefaultPlaceholderImage; nil rules select DefaultRules.
func NewEngine(parts CandidateSource, rules Rules, placeholder string) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholderImage
	}
	return &Engine{parts: parts, rules: rules, placeholder: placeholder}
}

// Recommend returns at most the rule's limit of parts for the service type.
// A service type that does not require parts always yields an empty list.
func (e *Engine) Recommend(ctx context.Context, st *domain.ServiceType, vehicleModelID *int64) ([]RecommendedPart, error) {
	const op = "recommend.Engine.Recommend"

	if st == nil || !st.RequiresParts {
		return []RecommendedPart{}, nil
	}

	rule := e.rules.For(st.Slug)
	if rule.RequiresVehicle && vehicleModelID == nil {
		return []RecommendedPart{}, nil
	}

	parts, err := e.parts.Candidates(ctx, repository.CandidateQuery{
		CategoryKeywords: rule.Keywords,
		VehicleModelID:   vehicleModelID,
		Limit:            rule.Limit,
	})
	if err != nil {
		logger.With(logger.String("service_type", st.Slug)).Error(ctx, "load recommendation candidates", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	parts = lo.Filter(parts, func(p domain.Part, _ int) bool {
		return p.IsActive && p.IsInStock()
	})
	if len(parts) > rule.Limit {
		parts = parts[:rule.Limit]
	}

	return lo.Map(parts, func(p domain.Part, _ int) RecommendedPart {
		return e.project(p)
	}), nil
}

func (e *Engine) project(p domain.Part) RecommendedPart {
	var category *string
	if p.Category != nil {
		name := p.Category.Name
		category = &name
	}

	image := p.PrimaryImageURL
	if image == "" {
		image = e.placeholder
	}

	return RecommendedPart{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Brand:          p.Brand,
		SKU:            p.SKU,
		Price:          p.Price.InexactFloat64(),
		StockQuantity:  p.StockQuantity,
		Category:       category,
		ImageURL:       image,
		Specifications: p.Specifications,
	}
}
