package domain

import "github.com/shopspring/decimal"

// IsInStock reports whether at least one unit is on hand.
func (p *Part) IsInStock() bool {
	return p.StockQuantity > 0
}

// IsLowStock reports whether the quantity is at or below the minimum level.
func (p *Part) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// PrepareForSave recomputes Subtotal from Quantity and UnitPrice.
// Repositories call it before every insert and update of a line item.
func (sp *ServiceRequestPart) PrepareForSave() {
	sp.Subtotal = sp.UnitPrice.Mul(decimal.NewFromInt(int64(sp.Quantity)))
	if sp.Status == "" {
		sp.Status = PartStatusPending
	}
}

// SumSubtotals adds up the line item subtotals.
func SumSubtotals(items []ServiceRequestPart) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// RecalculateTotals sets PartsCost from the given line items and TotalCost = LaborCost + PartsCost.
func (sr *ServiceRequest) RecalculateTotals(items []ServiceRequestPart) {
	sr.PartsCost = SumSubtotals(items)
	sr.TotalCost = sr.LaborCost.Add(sr.PartsCost)
}
