package templates

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertPart struct {
	Name          string
	SKU           string
	StockQuantity int
	MinStockLevel int
	Price         decimal.Decimal
}

type alertData struct {
	GeneratedAt time.Time
	Parts       []alertPart
}

func TestRenderLowStockAlert(t *testing.T) {
	t.Parallel()

	m, err := NewManager("", false)
	require.NoError(t, err)

	data := alertData{
		GeneratedAt: time.Date(2025, 5, 2, 8, 15, 0, 0, time.UTC),
		Parts: []alertPart{
			{Name: "Pirelli P7 205/55R16", SKU: "TIR-P7-2055516", StockQuantity: 2, MinStockLevel: 4, Price: decimal.RequireFromString("112.5")},
			{Name: "Bosch S4 Battery", SKU: "BAT-S4-60", StockQuantity: 0, MinStockLevel: 1, Price: decimal.RequireFromString("149.99")},
		},
	}

	subject, body, err := m.RenderMessage(LowStockAlert, data)
	require.NoError(t, err)
	assert.Equal(t, "Low stock alert: 2 parts at or below minimum", subject)
	assert.Contains(t, body, "1. Pirelli P7 205/55R16 (SKU TIR-P7-2055516): 2 on hand, minimum 4, price $112.50")
	assert.Contains(t, body, "2. Bosch S4 Battery (SKU BAT-S4-60): 0 on hand, minimum 1, price $149.99")
	assert.Contains(t, body, "tirehub 2025-05-02 08:15")

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf, LowStockAlert, data))
	assert.Equal(t, body, buf.String())

	single := alertData{Parts: data.Parts[:1]}
	subject, _, err = m.RenderMessage(LowStockAlert, single)
	require.NoError(t, err)
	assert.Equal(t, "Low stock alert: 1 part at or below minimum", subject)
}

func TestRenderUnknownTemplate(t *testing.T) {
	t.Parallel()

	m, err := NewManager("", false)
	require.NoError(t, err)

	_, _, err = m.RenderMessage("mail/missing.tmpl", nil)
	require.Error(t, err)
}

func TestDebugManagerReadsDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "layouts"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mail"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "layouts", "base.tmpl"), []byte(`{{define "base"}}[{{template "content" .}}]{{end}}`), 0o644))
	page := filepath.Join(dir, "mail", "ping.tmpl")
	require.NoError(t, os.WriteFile(page, []byte(`{{define "subject"}}ping{{end}}{{define "content"}}v1{{end}}`), 0o644))

	m, err := NewManager(dir, true)
	require.NoError(t, err)

	_, body, err := m.RenderMessage("mail/ping.tmpl", nil)
	require.NoError(t, err)
	assert.Equal(t, "[v1]", body)

	require.NoError(t, os.WriteFile(page, []byte(`{{define "subject"}}ping{{end}}{{define "content"}}v2{{end}}`), 0o644))
	_, body, err = m.RenderMessage("mail/ping.tmpl", nil)
	require.NoError(t, err)
	assert.Equal(t, "[v2]", body)

	_, err = NewManager(filepath.Join(dir, "nope"), false)
	require.Error(t, err)
}
