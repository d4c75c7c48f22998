package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tirehub/internal/domain"
	"tirehub/internal/repository/sqlite"
)

func setupEnv(t *testing.T, seedData bool) string {
	t.Helper()
	dir := t.TempDir()

	t.Setenv("DEBUG", "true")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "app.db"))
	for _, key := range []string{"JWT_SECRET", "ADMIN_PASSWORD", "ADMIN_EMAIL", "ADMIN_NAME", "KAFKA_BROKERS", "SEED_PATH", "NOTIFY_TEMPLATES_DIR", "APP_ENV", "LOW_STOCK_MONITOR_ENABLED"} {
		unsetenv(t, key)
	}
	t.Setenv("LOG_LEVEL", "error")
	if seedData {
		t.Setenv("SEED_DATA", "true")
	} else {
		t.Setenv("SEED_DATA", "false")
	}

	return filepath.Join(dir, "missing.json")
}

// unsetenv clears key for the duration of the test
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func newApp(t *testing.T, seedData bool) *App {
	t.Helper()
	a, err := New(context.Background(), setupEnv(t, seedData))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestEnsureAdmin(t *testing.T) {
	a := newApp(t, false)
	ctx := context.Background()

	require.NoError(t, a.EnsureAdmin(ctx))
	require.NoError(t, a.EnsureAdmin(ctx))

	count, err := a.Repos().Users.Count(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	admin, err := a.Repos().Users.GetByEmail(ctx, "admin@tirehub.local")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, "Administrator", admin.Name)
	assert.True(t, sqlite.CheckPassword("admin123", admin.PasswordHash))
}

func TestSeedCatalog(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		a := newApp(t, false)
		require.NoError(t, a.SeedCatalog(context.Background()))

		categories, err := a.Repos().Categories.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, categories)
	})

	t.Run("enabled", func(t *testing.T) {
		a := newApp(t, true)
		require.NoError(t, a.SeedCatalog(context.Background()))

		categories, err := a.Repos().Categories.List(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, categories)
	})
}

func TestServerHealth(t *testing.T) {
	a := newApp(t, false)

	srv, err := a.Server(context.Background())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMonitorIsShared(t *testing.T) {
	a := newApp(t, false)

	first, err := a.Monitor(context.Background())
	require.NoError(t, err)
	second, err := a.Monitor(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	report, err := first.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Parts)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	path := setupEnv(t, false)
	unsetenv(t, "DATABASE_PATH")

	a, err := New(context.Background(), path)
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestSweepRunsWithoutServerSettings(t *testing.T) {
	path := setupEnv(t, false)
	t.Setenv("DEBUG", "false")

	a, err := New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	monitor, err := a.Monitor(context.Background())
	require.NoError(t, err)
	_, err = monitor.Run(context.Background())
	require.NoError(t, err)

	_, err = a.Server(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestWorkers(t *testing.T) {
	t.Run("monitor disabled", func(t *testing.T) {
		a := newApp(t, false)
		workers, err := a.Workers(context.Background())
		require.NoError(t, err)
		assert.Len(t, workers, 1)
	})

	t.Run("monitor enabled", func(t *testing.T) {
		path := setupEnv(t, false)
		t.Setenv("LOW_STOCK_MONITOR_ENABLED", "true")
		a, err := New(context.Background(), path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		workers, err := a.Workers(context.Background())
		require.NoError(t, err)
		assert.Len(t, workers, 2)
	})

	t.Run("broken notifier fails before anything starts", func(t *testing.T) {
		path := setupEnv(t, false)
		t.Setenv("LOW_STOCK_MONITOR_ENABLED", "true")
		t.Setenv("NOTIFY_TEMPLATES_DIR", filepath.Join(t.TempDir(), "absent"))
		a, err := New(context.Background(), path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = a.Close() })

		workers, err := a.Workers(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize templates")
		assert.Nil(t, workers)
	})
}
