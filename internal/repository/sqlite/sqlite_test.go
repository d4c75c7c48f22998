package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tirehub/internal/domain"
	"tirehub/internal/numbering"
	"tirehub/internal/repository"
)

func newTestDB(t *testing.T) (*DB, *repository.Repositories) {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "tirehub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db, NewRepositories(db)
}

func createCategory(t *testing.T, repos *repository.Repositories, name string) *domain.PartsCategory {
	t.Helper()
	c := &domain.PartsCategory{Name: name, Slug: gofakeit.UUID(), IsActive: true}
	require.NoError(t, repos.Categories.Create(context.Background(), c))
	return c
}

func createPart(t *testing.T, repos *repository.Repositories, categoryID int64, qty, minLevel int, active bool) *domain.Part {
	t.Helper()
	p := &domain.Part{
		SKU:            gofakeit.UUID(),
		Name:           gofakeit.ProductName(),
		Description:    gofakeit.Sentence(6),
		CategoryID:     &categoryID,
		Brand:          gofakeit.Company(),
		Price:          decimal.RequireFromString("49.90"),
		CostPrice:      decimal.RequireFromString("30.00"),
		StockQuantity:  qty,
		MinStockLevel:  minLevel,
		IsActive:       active,
		Specifications: map[string]any{"viscosity": "5W-30"},
	}
	require.NoError(t, repos.Parts.Create(context.Background(), p))
	return p
}

func createVehicleModel(t *testing.T, repos *repository.Repositories) *domain.VehicleModel {
	t.Helper()
	ctx := context.Background()
	mk := &domain.VehicleMake{Name: gofakeit.UUID(), IsActive: true}
	require.NoError(t, repos.Vehicles.CreateMake(ctx, mk))
	m := &domain.VehicleModel{MakeID: mk.ID, Name: gofakeit.CarModel(), YearStart: 2015, YearEnd: 2022, IsActive: true}
	require.NoError(t, repos.Vehicles.CreateModel(ctx, m))
	return m
}

func createUser(t *testing.T, repos *repository.Repositories, role string) *domain.User {
	t.Helper()
	u := &domain.User{Email: gofakeit.Email(), PasswordHash: "x", Name: gofakeit.Name(), Role: role}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return u
}

func createServiceType(t *testing.T, repos *repository.Repositories, slug string, requiresParts bool) *domain.ServiceType {
	t.Helper()
	st := &domain.ServiceType{
		Name:              slug,
		Slug:              slug,
		BasePrice:         decimal.RequireFromString("60.00"),
		RequiresParts:     requiresParts,
		EstimatedDuration: 45,
		IsActive:          true,
	}
	require.NoError(t, repos.ServiceTypes.Create(context.Background(), st))
	return st
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	db, _ := newTestDB(t)
	require.NoError(t, db.Migrate())
}

func TestPartRoundTrip(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	cat := createCategory(t, repos, "Winter Tires")
	p := createPart(t, repos, cat.ID, 4, 2, true)
	p.Tire = &domain.TireAttributes{Size: "205/55R16", LoadIndex: "91", SpeedRating: "H"}
	require.NoError(t, repos.Parts.Update(ctx, p))

	require.NoError(t, repos.Parts.AddImage(ctx, &domain.PartImage{PartID: p.ID, URL: "https://img/1.png", IsPrimary: true}))
	require.NoError(t, repos.Parts.AddImage(ctx, &domain.PartImage{PartID: p.ID, URL: "https://img/2.png", IsPrimary: true}))

	got, err := repos.Parts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.SKU, got.SKU)
	assert.True(t, decimal.RequireFromString("49.90").Equal(got.Price))
	require.NotNil(t, got.Category)
	assert.Equal(t, "Winter Tires", got.Category.Name)
	require.NotNil(t, got.Tire)
	assert.Equal(t, "205/55R16", got.Tire.Size)
	assert.Equal(t, "5W-30", got.Specifications["viscosity"])
	assert.Equal(t, "https://img/2.png", got.PrimaryImageURL)

	missing, err := repos.Parts.GetByID(ctx, p.ID+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPartSKUIsUnique(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	cat := createCategory(t, repos, "Brakes")
	p := createPart(t, repos, cat.ID, 1, 0, true)

	dup := &domain.Part{SKU: p.SKU, Name: "dup", Price: decimal.Zero, CostPrice: decimal.Zero, IsActive: true}
	err := repos.Parts.Create(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestPartListFilters(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	tires := createCategory(t, repos, "Tires")
	oil := createCategory(t, repos, "Engine Oil")
	for i := 0; i < 3; i++ {
		createPart(t, repos, tires.ID, 5, 1, true)
	}
	createPart(t, repos, tires.ID, 0, 1, true)
	createPart(t, repos, tires.ID, 5, 1, false)
	createPart(t, repos, oil.ID, 5, 1, true)

	parts, total, err := repos.Parts.List(ctx, repository.PartFilter{CategorySlug: tires.Slug, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, parts, 2)

	_, total, err = repos.Parts.List(ctx, repository.PartFilter{CategorySlug: tires.Slug, InStock: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	minPrice := decimal.RequireFromString("50")
	_, total, err = repos.Parts.List(ctx, repository.PartFilter{MinPrice: &minPrice})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCandidatesMatchKeywordsAndStock(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	oil := createCategory(t, repos, "Engine Oil")
	filters := createCategory(t, repos, "Air Filters")
	tires := createCategory(t, repos, "Tires")
	createPart(t, repos, oil.ID, 10, 2, true)
	createPart(t, repos, oil.ID, 10, 2, true)
	createPart(t, repos, oil.ID, 0, 2, true)
	createPart(t, repos, oil.ID, 10, 2, false)
	createPart(t, repos, filters.ID, 3, 1, true)
	for i := 0; i < 5; i++ {
		createPart(t, repos, tires.ID, 8, 2, true)
	}

	got, err := repos.Parts.Candidates(ctx, repository.CandidateQuery{
		CategoryKeywords: []string{"oil", "FILTER"},
		Limit:            8,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.NotEqual(t, "Tires", p.Category.Name)
		assert.True(t, p.IsInStock())
		if i > 0 {
			assert.Less(t, got[i-1].ID, p.ID)
		}
	}
}

func TestCandidatesRestrictToFitment(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	tires := createCategory(t, repos, "All Season Tyres")
	model := createVehicleModel(t, repos)
	fitted := createPart(t, repos, tires.ID, 4, 1, true)
	createPart(t, repos, tires.ID, 4, 1, true)

	require.NoError(t, repos.Fitments.Attach(ctx, domain.Fitment{PartID: fitted.ID, VehicleModelID: model.ID, FitmentType: "exact"}))

	got, err := repos.Parts.Candidates(ctx, repository.CandidateQuery{
		CategoryKeywords: []string{"Tire", "Tyre"},
		VehicleModelID:   &model.ID,
		Limit:            10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, fitted.ID, got[0].ID)
}

func TestFitmentAttachUpserts(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	cat := createCategory(t, repos, "Batteries")
	part := createPart(t, repos, cat.ID, 2, 1, true)
	model := createVehicleModel(t, repos)

	require.NoError(t, repos.Fitments.Attach(ctx, domain.Fitment{PartID: part.ID, VehicleModelID: model.ID, FitmentType: "universal"}))
	require.NoError(t, repos.Fitments.Attach(ctx, domain.Fitment{PartID: part.ID, VehicleModelID: model.ID, FitmentType: "exact", Notes: "OEM"}))

	models, err := repos.Fitments.ModelsForPart(ctx, part.ID)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "exact", models[0].FitmentType)
	assert.Equal(t, "OEM", models[0].Notes)
	require.NotNil(t, models[0].Make)

	parts, err := repos.Fitments.PartsForModel(ctx, model.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, part.ID, parts[0].ID)

	require.NoError(t, repos.Fitments.Detach(ctx, part.ID, model.ID))
	parts, err = repos.Fitments.PartsForModel(ctx, model.ID)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestListActiveLowStock(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	cat := createCategory(t, repos, "Brake Pads")
	atThreshold := createPart(t, repos, cat.ID, 3, 3, true)
	below := createPart(t, repos, cat.ID, 0, 2, true)
	createPart(t, repos, cat.ID, 4, 3, true)
	createPart(t, repos, cat.ID, 1, 5, false)

	got, err := repos.Parts.ListActiveLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, atThreshold.ID, got[0].ID)
	assert.Equal(t, below.ID, got[1].ID)
}

func TestServiceRequestLineItemsAndNumbers(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	customer := createUser(t, repos, domain.RoleCustomer)
	st := createServiceType(t, repos, "oil-change", true)
	cat := createCategory(t, repos, "Engine Oil")
	part := createPart(t, repos, cat.ID, 10, 1, true)

	last, err := repos.Numbers.LastNumber(ctx, numbering.ServiceRequest, 2025)
	require.NoError(t, err)
	assert.Empty(t, last)

	sr := &domain.ServiceRequest{
		RequestNumber: "SR-2025-00001",
		UserID:        customer.ID,
		ServiceTypeID: st.ID,
		Latitude:      decimal.RequireFromString("-33.448890123"),
		Longitude:     decimal.RequireFromString("-70.669265"),
		Status:        domain.RequestStatusPending,
		Priority:      domain.PriorityNormal,
		LaborCost:     decimal.RequireFromString("60.00"),
		PaymentStatus: domain.PaymentStatusPending,
	}
	require.NoError(t, repos.ServiceRequests.Create(ctx, sr))

	dup := *sr
	dup.ID = 0
	err = repos.ServiceRequests.Create(ctx, &dup)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	last, err = repos.Numbers.LastNumber(ctx, numbering.ServiceRequest, 2025)
	require.NoError(t, err)
	assert.Equal(t, "SR-2025-00001", last)

	last, err = repos.Numbers.LastNumber(ctx, numbering.ServiceRequest, 2026)
	require.NoError(t, err)
	assert.Empty(t, last)

	item := &domain.ServiceRequestPart{
		ServiceRequestID: sr.ID,
		PartID:           part.ID,
		Quantity:         3,
		UnitPrice:        decimal.RequireFromString("12.35"),
		Subtotal:         decimal.RequireFromString("1.00"),
	}
	require.NoError(t, repos.ServiceRequests.AddPart(ctx, item))

	item.Quantity = 4
	require.NoError(t, repos.ServiceRequests.UpdatePart(ctx, item))

	items, err := repos.ServiceRequests.ListParts(ctx, sr.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, decimal.RequireFromString("49.40").Equal(items[0].Subtotal), "got %s", items[0].Subtotal)
	assert.Equal(t, domain.PartStatusPending, items[0].Status)
	require.NotNil(t, items[0].Part)
	assert.Equal(t, part.SKU, items[0].Part.SKU)

	require.NoError(t, repos.ServiceRequests.UpdateCosts(ctx, sr.ID, items[0].Subtotal, sr.LaborCost.Add(items[0].Subtotal)))

	got, err := repos.ServiceRequests.GetByNumber(ctx, "SR-2025-00001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("109.40").Equal(got.TotalCost))
	assert.Equal(t, "-33.4488901", got.Latitude.StringFixed(7))
	assert.Equal(t, "oil-change", got.ServiceType.Slug)

	now := time.Now()
	rating := 5
	got.Status = domain.RequestStatusCompleted
	got.CompletedAt = &now
	got.Rating = &rating
	require.NoError(t, repos.ServiceRequests.Update(ctx, got))

	reloaded, err := repos.ServiceRequests.GetByID(ctx, sr.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.CompletedAt)
	require.NotNil(t, reloaded.Rating)
	assert.Equal(t, 5, *reloaded.Rating)
	assert.Equal(t, "SR-2025-00001", reloaded.RequestNumber)
}

func TestQuotationNumbersAreSeparate(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	customer := createUser(t, repos, domain.RoleCustomer)
	st := createServiceType(t, repos, "brake-service", true)
	sr := &domain.ServiceRequest{
		RequestNumber: "SR-2025-00007",
		UserID:        customer.ID,
		ServiceTypeID: st.ID,
		Status:        domain.RequestStatusPending,
		Priority:      domain.PriorityNormal,
		PaymentStatus: domain.PaymentStatusPending,
	}
	require.NoError(t, repos.ServiceRequests.Create(ctx, sr))

	from := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &domain.Quotation{
		QuotationNumber:  "QT-2025-00003",
		ServiceRequestID: sr.ID,
		LaborCost:        decimal.RequireFromString("60"),
		TotalAmount:      decimal.RequireFromString("60"),
		ValidFrom:        from,
		ValidUntil:       from.AddDate(0, 0, 30),
		Status:           domain.QuotationStatusDraft,
	}
	require.NoError(t, repos.Quotations.Create(ctx, q))
	require.NoError(t, repos.Quotations.UpdateStatus(ctx, q.ID, domain.QuotationStatusSent))

	last, err := repos.Numbers.LastNumber(ctx, numbering.Quotation, 2025)
	require.NoError(t, err)
	assert.Equal(t, "QT-2025-00003", last)

	got, err := repos.Quotations.GetByID(ctx, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SentAt)
	assert.Equal(t, domain.QuotationStatusSent, got.Status)
	assert.True(t, got.ValidUntil.Equal(from.AddDate(0, 0, 30)))
}

func TestUsersByRoleAndSettings(t *testing.T) {
	t.Parallel()

	_, repos := newTestDB(t)
	ctx := context.Background()

	createUser(t, repos, domain.RoleAdmin)
	createUser(t, repos, domain.RoleAdmin)
	createUser(t, repos, domain.RoleMechanic)

	admins, err := repos.Users.ListByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	n, err := repos.Users.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	v, err := repos.Settings.Get(ctx, "low_stock_last_run")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, repos.Settings.Set(ctx, "low_stock_last_run", "2025-01-01T00:00:00Z"))
	v, err = repos.Settings.Get(ctx, "low_stock_last_run")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00Z", v)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword("s3cret", hash))
	assert.False(t, CheckPassword("wrong", hash))
}
