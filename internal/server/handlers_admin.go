package server

import (
	"errors"
	"net/http"

	"tirehub/internal/domain"
	"tirehub/internal/stockmonitor"
)

type lowStockEntry struct {
	ID            int64  `json:"id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

func lowStockEntries(parts []domain.Part) []lowStockEntry {
	entries := make([]lowStockEntry, 0, len(parts))
	for _, p := range parts {
		entries = append(entries, lowStockEntry{
			ID:            p.ID,
			SKU:           p.SKU,
			Name:          p.Name,
			StockQuantity: p.StockQuantity,
			MinStockLevel: p.MinStockLevel,
		})
	}
	return entries
}

// handleLowStock lists active parts at or below their minimum stock level
func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	parts, err := s.catalog.LowStock(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  lowStockEntries(parts),
		"count": len(parts),
	})
}

type sweepResponse struct {
	*stockmonitor.Report
	Error string `json:"error,omitempty"`
}

// handleLowStockSweep runs one monitor sweep on demand
func (s *Server) handleLowStockSweep(w http.ResponseWriter, r *http.Request) {
	report, err := s.monitor.Run(r.Context())
	switch {
	case errors.Is(err, domain.ErrNoAdmins):
		writeJSON(w, http.StatusConflict, sweepResponse{Report: report, Error: domain.ErrNoAdmins.Error()})
	case err != nil:
		s.writeError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, sweepResponse{Report: report})
	}
}
