package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
	"tirehub/internal/repository/sqlite"
)

func newRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return sqlite.NewRepositories(db)
}

func TestLoadDefaultCatalog(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Categories)
	assert.NotEmpty(t, c.ServiceTypes)
	assert.NotEmpty(t, c.Parts)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParseValidation(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("  \n"))
	require.Error(t, err)

	_, err = Parse([]byte("parts: [not: {closed"))
	require.Error(t, err)

	_, err = Parse([]byte(`
categories:
  - {name: Batteries, slug: batteries}
parts:
  - {sku: B-1, name: Battery, category: wipers, price: "abc"}
`))
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "parts[0].price")
	assert.Contains(t, verr.Fields, "parts[0].category")
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := newRepos(t)

	c, err := Load("")
	require.NoError(t, err)

	stats, err := Apply(ctx, repos, c)
	require.NoError(t, err)
	assert.Equal(t, len(c.Categories), stats.Categories)
	assert.Equal(t, len(c.ServiceTypes), stats.ServiceTypes)
	assert.Equal(t, len(c.Parts), stats.Parts)
	assert.Positive(t, stats.Fitments)

	again, err := Apply(ctx, repos, c)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, *again)
}

func TestApplyFromFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repos := newRepos(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - {name: Summer Tires, slug: summer-tires}
vehicles:
  - make: Mazda
    models:
      - {name: "3", year_start: 2019, year_end: 2024}
service_types:
  - {name: Tire Change, slug: tire-change, base_price: "60", requires_parts: true, estimated_duration: 45}
parts:
  - sku: TIR-1
    name: Test Tire
    category: summer-tires
    price: "99.5"
    stock_quantity: 4
    min_stock_level: 2
    tire: {size: 205/55R16, load_index: "91", speed_rating: V}
    images:
      - {url: /img/tire.jpg, primary: true}
    fits:
      - {make: Mazda, model: "3", type: exact}
      - {make: Mazda, model: "6"}
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	stats, err := Apply(ctx, repos, c)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fitments)

	part, err := repos.Parts.GetBySKU(ctx, "TIR-1")
	require.NoError(t, err)
	require.NotNil(t, part)
	assert.Equal(t, "99.50", part.Price.StringFixed(2))
	assert.Equal(t, "/img/tire.jpg", part.PrimaryImageURL)
	require.NotNil(t, part.Tire)
	assert.Equal(t, "91", part.Tire.LoadIndex)
	require.NotNil(t, part.Category)
	assert.Equal(t, "summer-tires", part.Category.Slug)

	st, err := repos.ServiceTypes.GetBySlug(ctx, "tire-change")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.RequiresParts)
	assert.Equal(t, "60.00", st.BasePrice.StringFixed(2))
}
