package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
)

type MockCandidateSource struct {
	mock.Mock
}

func (m *MockCandidateSource) Candidates(ctx context.Context, q repository.CandidateQuery) ([]domain.Part, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Part), args.Error(1)
}

func fakePart(id int64, category string) domain.Part {
	return domain.Part{
		ID:            id,
		SKU:           gofakeit.UUID(),
		Name:          gofakeit.ProductName(),
		Brand:         gofakeit.Company(),
		Price:         decimal.RequireFromString("89.50"),
		StockQuantity: gofakeit.IntRange(1, 20),
		IsActive:      true,
		Category:      &domain.PartsCategory{Name: category},
	}
}

func TestEngineRecommend(t *testing.T) {
	t.Parallel()

	vehicleID := int64(42)

	type deps struct {
		source *MockCandidateSource
	}

	tests := []struct {
		name    string
		st      *domain.ServiceType
		vehicle *int64
		setup   func(d deps)
		assert  func(t *testing.T, got []RecommendedPart, err error, d deps)
	}{
		{
			name:    "service without parts returns empty list",
			st:      &domain.ServiceType{Slug: "tire-change", RequiresParts: false},
			vehicle: &vehicleID,
			assert: func(t *testing.T, got []RecommendedPart, err error, d deps) {
				require.NoError(t, err)
				assert.NotNil(t, got)
				assert.Empty(t, got)
				d.source.AssertNotCalled(t, "Candidates", mock.Anything, mock.Anything)
			},
		},
		{
			name: "unknown slug without vehicle returns empty list",
			st:   &domain.ServiceType{Slug: "windshield-repair", RequiresParts: true},
			assert: func(t *testing.T, got []RecommendedPart, err error, d deps) {
				require.NoError(t, err)
				assert.Empty(t, got)
				d.source.AssertNotCalled(t, "Candidates", mock.Anything, mock.Anything)
			},
		},
		{
			name:    "unknown slug with vehicle filters by fitment only",
			st:      &domain.ServiceType{Slug: "windshield-repair", RequiresParts: true},
			vehicle: &vehicleID,
			setup: func(d deps) {
				d.source.On("Candidates", mock.Anything, repository.CandidateQuery{
					VehicleModelID: &vehicleID,
					Limit:          10,
				}).Return([]domain.Part{fakePart(1, "Glass")}, nil).Once()
			},
			assert: func(t *testing.T, got []RecommendedPart, err error, d deps) {
				require.NoError(t, err)
				require.Len(t, got, 1)
				d.source.AssertExpectations(t)
			},
		},
		{
			name:    "battery rule passes keywords, vehicle and cap",
			st:      &domain.ServiceType{Slug: "battery-jump-start", RequiresParts: true},
			vehicle: &vehicleID,
			setup: func(d deps) {
				parts := make([]domain.Part, 0, 7)
				for i := int64(1); i <= 7; i++ {
					parts = append(parts, fakePart(i, "Car Batteries"))
				}
				d.source.On("Candidates", mock.Anything, repository.CandidateQuery{
					CategoryKeywords: []string{"Battery", "Batteries"},
					VehicleModelID:   &vehicleID,
					Limit:            5,
				}).Return(parts, nil).Once()
			},
			assert: func(t *testing.T, got []RecommendedPart, err error, d deps) {
				require.NoError(t, err)
				assert.Len(t, got, 5)
				d.source.AssertExpectations(t)
			},
		},
		{
			name: "drops inactive and out of stock candidates",
			st:   &domain.ServiceType{Slug: "brake-service", RequiresParts: true},
			setup: func(d deps) {
				inactive := fakePart(2, "Brakes")
				inactive.IsActive = false
				empty := fakePart(3, "Brakes")
				empty.StockQuantity = 0
				d.source.On("Candidates", mock.Anything, mock.Anything).
					Return([]domain.Part{fakePart(1, "Brakes"), inactive, empty}, nil).Once()
			},
			assert: func(t *testing.T, got []RecommendedPart, err error, d deps) {
				require.NoError(t, err)
				require.Len(t, got, 1)
				assert.Equal(t, int64(1), got[0].ID)
			},
		},
		{
			name: "repository error propagates",
			st:   &domain.ServiceType{Slug: "oil-change", RequiresParts: true},
			setup: func(d deps) {
				d.source.On("Candidates", mock.Anything, mock.Anything).
					Return(nil, errors.New("disk I/O error")).Once()
			},
			assert: func(t *testing.T, got []RecommendedPart, err error, d deps) {
				require.Error(t, err)
				assert.ErrorContains(t, err, "disk I/O error")
				assert.Nil(t, got)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := deps{source: &MockCandidateSource{}}
			if tt.setup != nil {
				tt.setup(d)
			}

			got, err := NewEngine(d.source, nil, "").Recommend(context.Background(), tt.st, tt.vehicle)
			tt.assert(t, got, err, d)
		})
	}
}

func TestEngineRequiresPartsGateIgnoresCatalog(t *testing.T) {
	t.Parallel()

	source := &MockCandidateSource{}
	engine := NewEngine(source, nil, "")
	vehicleID := int64(7)

	for slug := range DefaultRules() {
		st := &domain.ServiceType{Slug: slug, RequiresParts: false}
		for _, vehicle := range []*int64{nil, &vehicleID} {
			got, err := engine.Recommend(context.Background(), st, vehicle)
			require.NoError(t, err)
			assert.Empty(t, got, slug)
		}
	}
	source.AssertNotCalled(t, "Candidates", mock.Anything, mock.Anything)
}

func TestEngineProjection(t *testing.T) {
	t.Parallel()

	withImage := fakePart(1, "Engine Oil")
	withImage.PrimaryImageURL = "https://cdn.example.com/oil.png"
	withImage.Specifications = map[string]any{"viscosity": "5W-30"}
	withImage.Price = decimal.RequireFromString("24.99")

	noCategory := fakePart(2, "")
	noCategory.Category = nil

	source := &MockCandidateSource{}
	source.On("Candidates", mock.Anything, mock.Anything).Return([]domain.Part{withImage, noCategory}, nil).Once()

	got, err := NewEngine(source, nil, "https://img.local/none.png").
		Recommend(context.Background(), &domain.ServiceType{Slug: "oil-change", RequiresParts: true}, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 24.99, got[0].Price)
	require.NotNil(t, got[0].Category)
	assert.Equal(t, "Engine Oil", *got[0].Category)
	assert.Equal(t, "https://cdn.example.com/oil.png", got[0].ImageURL)
	assert.Equal(t, "5W-30", got[0].Specifications["viscosity"])

	assert.Nil(t, got[1].Category)
	assert.Equal(t, "https://img.local/none.png", got[1].ImageURL)
}

func TestRulesFor(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	assert.Equal(t, 10, rules.For("fast-tire-change").Limit)
	assert.Equal(t, 8, rules.For("oil-change").Limit)
	assert.Equal(t, []string{"Brake"}, rules.For("brake-service").Keywords)
	assert.Equal(t, DefaultRule, rules.For("detailing"))
	assert.True(t, rules.For("detailing").RequiresVehicle)
}
