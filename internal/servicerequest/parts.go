package servicerequest

import (
	"context"
	"fmt"

	"tirehub/internal/domain"
	"tirehub/internal/logger"
	"tirehub/internal/numbering"
)

// AddPart attaches a catalog part to a request, snapshotting its current price.
// The parent rollup is not recomputed; call CalculateTotalCost afterwards.
func (s *Service) AddPart(ctx context.Context, requestID, partID int64, quantity int) (*domain.ServiceRequestPart, error) {
	const op = "servicerequest.Service.AddPart"
	log := logger.With(logger.Int64("service_request_id", requestID), logger.Int64("part_id", partID))

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("quantity", "must be at least 1"))
	}

	sr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sr.Status == domain.RequestStatusCompleted {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("status", "completed requests cannot change parts"))
	}

	part, err := s.repos.Parts.GetByID(ctx, partID)
	if err != nil {
		log.Error(ctx, "get part", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if part == nil || !part.IsActive {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("part_id", "does not exist"))
	}

	item := &domain.ServiceRequestPart{
		ServiceRequestID: requestID,
		PartID:           partID,
		Part:             part,
		Quantity:         quantity,
		UnitPrice:        part.Price,
		Status:           domain.PartStatusPending,
	}
	if err := s.repos.ServiceRequests.AddPart(ctx, item); err != nil {
		log.Error(ctx, "add line item", logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}

// UpdatePartQuantity changes a line item quantity. The unit price snapshot is kept.
func (s *Service) UpdatePartQuantity(ctx context.Context, itemID int64, quantity int) (*domain.ServiceRequestPart, error) {
	const op = "servicerequest.Service.UpdatePartQuantity"

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("quantity", "must be at least 1"))
	}

	item, err := s.loadPart(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	item.Quantity = quantity
	if err := s.repos.ServiceRequests.UpdatePart(ctx, item); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}

// RemovePart deletes a line item that is still pending.
func (s *Service) RemovePart(ctx context.Context, itemID int64) (*domain.ServiceRequestPart, error) {
	const op = "servicerequest.Service.RemovePart"

	item, err := s.loadPart(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if item.Status != domain.PartStatusPending {
		return nil, fmt.Errorf("%s: %w", op, domain.NewValidationError("status", "only pending parts can be removed"))
	}
	if err := s.repos.ServiceRequests.DeletePart(ctx, itemID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}

// ConfirmPart marks a line item confirmed regardless of its current status.
func (s *Service) ConfirmPart(ctx context.Context, itemID int64) (*domain.ServiceRequestPart, error) {
	const op = "servicerequest.Service.ConfirmPart"

	item, err := s.setPartStatus(ctx, itemID, domain.PartStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}

// InstallPart marks a line item installed regardless of its current status.
func (s *Service) InstallPart(ctx context.Context, itemID int64) (*domain.ServiceRequestPart, error) {
	const op = "servicerequest.Service.InstallPart"

	item, err := s.setPartStatus(ctx, itemID, domain.PartStatusInstalled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return item, nil
}

func (s *Service) setPartStatus(ctx context.Context, itemID int64, status string) (*domain.ServiceRequestPart, error) {
	item, err := s.loadPart(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.Status = status
	if err := s.repos.ServiceRequests.UpdatePart(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) loadPart(ctx context.Context, itemID int64) (*domain.ServiceRequestPart, error) {
	item, err := s.repos.ServiceRequests.GetPart(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("service request part %d: %w", itemID, domain.ErrNotFound)
	}
	return item, nil
}

// CalculateTotalCost recomputes parts_cost from the line items and
// total_cost = labor_cost + parts_cost, and persists both.
func (s *Service) CalculateTotalCost(ctx context.Context, requestID int64) (*domain.ServiceRequest, error) {
	const op = "servicerequest.Service.CalculateTotalCost"

	sr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items, err := s.repos.ServiceRequests.ListParts(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sr.RecalculateTotals(items)
	sr.Parts = items
	if err := s.repos.ServiceRequests.UpdateCosts(ctx, sr.ID, sr.PartsCost, sr.TotalCost); err != nil {
		logger.Error(ctx, "persist rollup", logger.Int64("service_request_id", requestID), logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sr, nil
}

// QuotationParams is the input of CreateQuotation
type QuotationParams struct {
	Terms string
	Notes string
}

// CreateQuotation issues a draft quotation snapshotting the request costs.
func (s *Service) CreateQuotation(ctx context.Context, requestID int64, params QuotationParams) (*domain.Quotation, error) {
	const op = "servicerequest.Service.CreateQuotation"

	sr, err := s.load(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	number, err := s.numbers.Next(ctx, numbering.Quotation, now.Year())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	duration := 0
	if sr.ServiceType != nil {
		duration = sr.ServiceType.EstimatedDuration
	}

	q := &domain.Quotation{
		QuotationNumber:   number,
		ServiceRequestID:  sr.ID,
		LaborCost:         sr.LaborCost,
		PartsCost:         sr.PartsCost,
		TotalAmount:       sr.LaborCost.Add(sr.PartsCost),
		ValidFrom:         now,
		ValidUntil:        now.Add(s.validity),
		EstimatedDuration: duration,
		Status:            domain.QuotationStatusDraft,
		Terms:             params.Terms,
		Notes:             params.Notes,
		CreatedAt:         now,
	}
	if err := s.repos.Quotations.Create(ctx, q); err != nil {
		logger.Error(ctx, "create quotation", logger.String("quotation_number", number), logger.ErrorF(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

// SendQuotation marks a quotation sent.
func (s *Service) SendQuotation(ctx context.Context, id int64) (*domain.Quotation, error) {
	const op = "servicerequest.Service.SendQuotation"

	q, err := s.repos.Quotations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if q == nil {
		return nil, fmt.Errorf("%s: quotation %d: %w", op, id, domain.ErrNotFound)
	}
	if q.Status != domain.QuotationStatusDraft {
		return nil, fmt.Errorf("%s: %w: %s -> %s", op, domain.ErrInvalidTransition, q.Status, domain.QuotationStatusSent)
	}
	if err := s.repos.Quotations.UpdateStatus(ctx, id, domain.QuotationStatusSent); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.repos.Quotations.GetByID(ctx, id)
}

// Quotations lists the quotations issued for a request, oldest first
func (s *Service) Quotations(ctx context.Context, requestID int64) ([]domain.Quotation, error) {
	const op = "servicerequest.Service.Quotations"

	if _, err := s.load(ctx, requestID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := s.repos.Quotations.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}
