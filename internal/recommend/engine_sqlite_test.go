package recommend_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tirehub/internal/domain"
	"tirehub/internal/recommend"
	"tirehub/internal/repository"
	"tirehub/internal/repository/sqlite"
)

type catalog struct {
	repos *repository.Repositories
}

func newCatalog(t *testing.T) catalog {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "recommend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return catalog{repos: sqlite.NewRepositories(db)}
}

func (c catalog) category(t *testing.T, name string) int64 {
	t.Helper()
	cat := &domain.PartsCategory{Name: name, Slug: gofakeit.UUID(), IsActive: true}
	require.NoError(t, c.repos.Categories.Create(context.Background(), cat))
	return cat.ID
}

func (c catalog) part(t *testing.T, categoryID int64, qty int) *domain.Part {
	t.Helper()
	p := &domain.Part{
		SKU:           gofakeit.UUID(),
		Name:          gofakeit.ProductName(),
		CategoryID:    &categoryID,
		Brand:         gofakeit.Company(),
		Price:         decimal.RequireFromString("35.00"),
		CostPrice:     decimal.RequireFromString("20.00"),
		StockQuantity: qty,
		MinStockLevel: 1,
		IsActive:      true,
	}
	require.NoError(t, c.repos.Parts.Create(context.Background(), p))
	return p
}

func TestRecommendOilChangeWithoutVehicle(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	oil := c.category(t, "Engine Oil")
	filters := c.category(t, "Oil Filters")
	brakes := c.category(t, "Brake Pads")

	c.part(t, oil, 12)
	c.part(t, oil, 4)
	c.part(t, oil, 0)
	c.part(t, filters, 9)
	c.part(t, brakes, 6)

	engine := recommend.NewEngine(c.repos.Parts, nil, "")
	got, err := engine.Recommend(context.Background(), &domain.ServiceType{Slug: "oil-change", RequiresParts: true}, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, p := range got {
		require.NotNil(t, p.Category)
		assert.Contains(t, *p.Category, "Oil")
		assert.Equal(t, recommend.DefaultPlaceholderImage, p.ImageURL)
		assert.Positive(t, p.StockQuantity)
	}
}

func TestRecommendTireChangeCapsAtTen(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	tires := c.category(t, "Winter Tires")
	brakes := c.category(t, "Brakes")

	var first []int64
	for i := 0; i < 15; i++ {
		p := c.part(t, tires, 5)
		if i < 10 {
			first = append(first, p.ID)
		}
	}
	for i := 0; i < 3; i++ {
		c.part(t, brakes, 5)
	}

	engine := recommend.NewEngine(c.repos.Parts, nil, "")
	got, err := engine.Recommend(context.Background(), &domain.ServiceType{Slug: "tire-change", RequiresParts: true}, nil)
	require.NoError(t, err)
	require.Len(t, got, 10)

	ids := make([]int64, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
		assert.Equal(t, "Winter Tires", *p.Category)
	}
	assert.Equal(t, first, ids)
}

func TestRecommendRestrictsToVehicleFitment(t *testing.T) {
	t.Parallel()

	c := newCatalog(t)
	ctx := context.Background()
	batteries := c.category(t, "Car Batteries")

	mk := &domain.VehicleMake{Name: gofakeit.UUID(), IsActive: true}
	require.NoError(t, c.repos.Vehicles.CreateMake(ctx, mk))
	model := &domain.VehicleModel{MakeID: mk.ID, Name: "Corolla", YearStart: 2018, YearEnd: 2023, IsActive: true}
	require.NoError(t, c.repos.Vehicles.CreateModel(ctx, model))

	fitted := c.part(t, batteries, 3)
	c.part(t, batteries, 3)
	require.NoError(t, c.repos.Fitments.Attach(ctx, domain.Fitment{PartID: fitted.ID, VehicleModelID: model.ID, FitmentType: "exact"}))

	engine := recommend.NewEngine(c.repos.Parts, nil, "")
	got, err := engine.Recommend(ctx, &domain.ServiceType{Slug: "battery-replacement", RequiresParts: true}, &model.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fitted.ID, got[0].ID)
}
