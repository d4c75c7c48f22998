// Package seed loads a YAML catalog of categories, vehicles, service types and parts into storage.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/repository"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog mirrors the on-disk seed schema
type Catalog struct {
	Categories   []Category    `yaml:"categories"`
	Vehicles     []Make        `yaml:"vehicles"`
	ServiceTypes []ServiceType `yaml:"service_types"`
	Parts        []Part        `yaml:"parts"`
}

type Category struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type Make struct {
	Make   string  `yaml:"make"`
	Models []Model `yaml:"models"`
}

type Model struct {
	Name      string `yaml:"name"`
	YearStart int    `yaml:"year_start"`
	YearEnd   int    `yaml:"year_end"`
	BodyType  string `yaml:"body_type"`
}

type ServiceType struct {
	Name              string `yaml:"name"`
	Slug              string `yaml:"slug"`
	Description       string `yaml:"description"`
	BasePrice         string `yaml:"base_price"`
	RequiresParts     bool   `yaml:"requires_parts"`
	EstimatedDuration int    `yaml:"estimated_duration"`
	SortOrder         int    `yaml:"sort_order"`
}

type Part struct {
	SKU            string                 `yaml:"sku"`
	Name           string                 `yaml:"name"`
	Description    string                 `yaml:"description"`
	Category       string                 `yaml:"category"`
	Brand          string                 `yaml:"brand"`
	Price          string                 `yaml:"price"`
	CostPrice      string                 `yaml:"cost_price"`
	StockQuantity  int                    `yaml:"stock_quantity"`
	MinStockLevel  int                    `yaml:"min_stock_level"`
	Featured       bool                   `yaml:"featured"`
	Inactive       bool                   `yaml:"inactive"`
	Tire           *Tire                  `yaml:"tire"`
	Specifications map[string]any         `yaml:"specifications"`
	Images         []Image                `yaml:"images"`
	Fits           []Fit                  `yaml:"fits"`
}

type Tire struct {
	Size         string `yaml:"size"`
	LoadIndex    string `yaml:"load_index"`
	SpeedRating  string `yaml:"speed_rating"`
	Type         string `yaml:"type"`
	TreadPattern string `yaml:"tread_pattern"`
}

func (t *Tire) attributes() *domain.TireAttributes {
	if t == nil {
		return nil
	}
	return &domain.TireAttributes{
		Size:         t.Size,
		LoadIndex:    t.LoadIndex,
		SpeedRating:  t.SpeedRating,
		Type:         t.Type,
		TreadPattern: t.TreadPattern,
	}
}

type Image struct {
	URL     string `yaml:"url"`
	Primary bool   `yaml:"primary"`
}

type Fit struct {
	Make  string `yaml:"make"`
	Model string `yaml:"model"`
	Type  string `yaml:"type"`
	Notes string `yaml:"notes"`
}

// Stats counts the records created by Apply. Existing records are skipped.
type Stats struct {
	Categories   int
	Makes        int
	Models       int
	ServiceTypes int
	Parts        int
	Fitments     int
}

// Parse decodes and validates a YAML catalog
func Parse(data []byte) (*Catalog, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("seed: catalog is empty")
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("seed: decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the catalog at path. An empty path selects the embedded starter catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("seed: catalog %s does not exist", path)
		}
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) validate() error {
	ve := &domain.ValidationError{}
	slugs := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Name == "" || cat.Slug == "" {
			ve.Add(fmt.Sprintf("categories[%d]", i), "name and slug are required")
		}
		slugs[cat.Slug] = true
	}
	for i, st := range c.ServiceTypes {
		if st.Slug == "" {
			ve.Add(fmt.Sprintf("service_types[%d]", i), "slug is required")
		}
		if _, err := decimal.NewFromString(st.BasePrice); err != nil {
			ve.Add(fmt.Sprintf("service_types[%d].base_price", i), "must be a decimal")
		}
	}
	for i, p := range c.Parts {
		field := fmt.Sprintf("parts[%d]", i)
		if p.SKU == "" || p.Name == "" {
			ve.Add(field, "sku and name are required")
		}
		if _, err := decimal.NewFromString(p.Price); err != nil {
			ve.Add(field+".price", "must be a decimal")
		}
		if p.CostPrice != "" {
			if _, err := decimal.NewFromString(p.CostPrice); err != nil {
				ve.Add(field+".cost_price", "must be a decimal")
			}
		}
		if p.Category != "" && !slugs[p.Category] {
			ve.Add(field+".category", fmt.Sprintf("unknown category %q", p.Category))
		}
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

type seeder struct {
	repos      *repository.Repositories
	stats      Stats
	categories map[string]int64
	models     map[string]int64
}

// Apply writes the catalog. It is idempotent: records already present are left untouched.
func Apply(ctx context.Context, repos *repository.Repositories, c *Catalog) (*Stats, error) {
	const op = "seed.Apply"

	s := &seeder{
		repos:      repos,
		categories: make(map[string]int64),
		models:     make(map[string]int64),
	}

	steps := []func(context.Context, *Catalog) error{
		s.seedCategories,
		s.seedVehicles,
		s.seedServiceTypes,
		s.seedParts,
	}
	for _, step := range steps {
		if err := step(ctx, c); err != nil {
			return &s.stats, fmt.Errorf("%s: %w", op, err)
		}
	}

	logger.Info(ctx, "catalog seeded",
		logger.Int("categories", s.stats.Categories),
		logger.Int("models", s.stats.Models),
		logger.Int("service_types", s.stats.ServiceTypes),
		logger.Int("parts", s.stats.Parts),
		logger.Int("fitments", s.stats.Fitments))
	return &s.stats, nil
}

func (s *seeder) seedCategories(ctx context.Context, c *Catalog) error {
	for _, cat := range c.Categories {
		existing, err := s.repos.Categories.GetBySlug(ctx, cat.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			s.categories[cat.Slug] = existing.ID
			continue
		}
		created := &domain.PartsCategory{Name: cat.Name, Slug: cat.Slug, IsActive: true}
		if err := s.repos.Categories.Create(ctx, created); err != nil {
			return fmt.Errorf("category %s: %w", cat.Slug, err)
		}
		s.categories[cat.Slug] = created.ID
		s.stats.Categories++
	}
	return nil
}

func modelKey(mk, model string) string {
	return strings.ToLower(mk) + "/" + strings.ToLower(model)
}

func (s *seeder) seedVehicles(ctx context.Context, c *Catalog) error {
	for _, v := range c.Vehicles {
		mk, err := s.repos.Vehicles.GetMakeByName(ctx, v.Make)
		if err != nil {
			return err
		}
		if mk == nil {
			mk = &domain.VehicleMake{Name: v.Make, IsActive: true}
			if err := s.repos.Vehicles.CreateMake(ctx, mk); err != nil {
				return fmt.Errorf("make %s: %w", v.Make, err)
			}
			s.stats.Makes++
		}

		existing, err := s.repos.Vehicles.ListModelsByMake(ctx, mk.ID)
		if err != nil {
			return err
		}
		for _, m := range existing {
			s.models[modelKey(mk.Name, m.Name)] = m.ID
		}

		for _, m := range v.Models {
			key := modelKey(mk.Name, m.Name)
			if _, ok := s.models[key]; ok {
				continue
			}
			model := &domain.VehicleModel{
				MakeID:    mk.ID,
				Name:      m.Name,
				YearStart: m.YearStart,
				YearEnd:   m.YearEnd,
				BodyType:  m.BodyType,
				IsActive:  true,
			}
			if err := s.repos.Vehicles.CreateModel(ctx, model); err != nil {
				return fmt.Errorf("model %s %s: %w", v.Make, m.Name, err)
			}
			s.models[key] = model.ID
			s.stats.Models++
		}
	}
	return nil
}

func (s *seeder) seedServiceTypes(ctx context.Context, c *Catalog) error {
	for _, st := range c.ServiceTypes {
		existing, err := s.repos.ServiceTypes.GetBySlug(ctx, st.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		err = s.repos.ServiceTypes.Create(ctx, &domain.ServiceType{
			Name:              st.Name,
			Slug:              st.Slug,
			Description:       st.Description,
			BasePrice:         decimal.RequireFromString(st.BasePrice),
			RequiresParts:     st.RequiresParts,
			EstimatedDuration: st.EstimatedDuration,
			IsActive:          true,
			SortOrder:         st.SortOrder,
		})
		if err != nil {
			return fmt.Errorf("service type %s: %w", st.Slug, err)
		}
		s.stats.ServiceTypes++
	}
	return nil
}

func (s *seeder) seedParts(ctx context.Context, c *Catalog) error {
	for _, p := range c.Parts {
		existing, err := s.repos.Parts.GetBySKU(ctx, p.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		part := &domain.Part{
			SKU:            p.SKU,
			Name:           p.Name,
			Description:    p.Description,
			Brand:          p.Brand,
			Tire:           p.Tire.attributes(),
			Specifications: p.Specifications,
			Price:          decimal.RequireFromString(p.Price),
			StockQuantity:  p.StockQuantity,
			MinStockLevel:  p.MinStockLevel,
			IsActive:       !p.Inactive,
			IsFeatured:     p.Featured,
		}
		if p.CostPrice != "" {
			part.CostPrice = decimal.RequireFromString(p.CostPrice)
		}
		if id, ok := s.categories[p.Category]; ok {
			part.CategoryID = &id
		}
		if err := s.repos.Parts.Create(ctx, part); err != nil {
			return fmt.Errorf("part %s: %w", p.SKU, err)
		}
		s.stats.Parts++

		for i, img := range p.Images {
			err := s.repos.Parts.AddImage(ctx, &domain.PartImage{PartID: part.ID, URL: img.URL, IsPrimary: img.Primary, SortOrder: i})
			if err != nil {
				return fmt.Errorf("part %s image: %w", p.SKU, err)
			}
		}

		for _, f := range p.Fits {
			modelID, ok := s.models[modelKey(f.Make, f.Model)]
			if !ok {
				logger.Warn(ctx, "seed fitment skipped: unknown vehicle",
					logger.String("sku", p.SKU), logger.String("make", f.Make), logger.String("model", f.Model))
				continue
			}
			err := s.repos.Fitments.Attach(ctx, domain.Fitment{PartID: part.ID, VehicleModelID: modelID, FitmentType: f.Type, Notes: f.Notes})
			if err != nil {
				return fmt.Errorf("part %s fitment: %w", p.SKU, err)
			}
			s.stats.Fitments++
		}
	}
	return nil
}
