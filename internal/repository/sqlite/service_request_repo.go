package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
)

// ServiceRequestRepo implements repository.ServiceRequestRepository
type ServiceRequestRepo struct {
	db *DB
}

// NewServiceRequestRepo creates a new ServiceRequestRepo
func NewServiceRequestRepo(db *DB) repository.ServiceRequestRepository {
	return &ServiceRequestRepo{db: db}
}

const serviceRequestColumns = `
	sr.id, sr.request_number, sr.user_id, sr.service_type_id, sr.mechanic_id, sr.vehicle_model_id,
	sr.vehicle_make, sr.vehicle_model, sr.vehicle_year, sr.vehicle_plate,
	sr.latitude, sr.longitude, sr.address, sr.notes, sr.status, sr.priority,
	sr.scheduled_at, sr.accepted_at, sr.started_at, sr.completed_at,
	sr.labor_cost, sr.parts_cost, sr.total_cost,
	sr.payment_status, sr.payment_method, sr.transaction_id, sr.paid_at,
	sr.rating, sr.feedback, sr.mechanic_notes, sr.created_at, sr.updated_at,
	st.id, st.name, st.slug, st.base_price, st.requires_parts, st.estimated_duration, st.is_active, st.sort_order`

const serviceRequestFrom = `
	FROM service_requests sr
	JOIN service_types st ON st.id = sr.service_type_id`

func (r *ServiceRequestRepo) Create(ctx context.Context, sr *domain.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (
			request_number, user_id, service_type_id, mechanic_id, vehicle_model_id,
			vehicle_make, vehicle_model, vehicle_year, vehicle_plate,
			latitude, longitude, address, notes, status, priority, scheduled_at,
			labor_cost, parts_cost, total_cost, payment_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if sr.CreatedAt.IsZero() {
		sr.CreatedAt = now
	}
	sr.UpdatedAt = sr.CreatedAt

	result, err := r.db.ExecContext(ctx, query,
		sr.RequestNumber, sr.UserID, sr.ServiceTypeID, nullInt64(sr.MechanicID), nullInt64(sr.VehicleModelID),
		nullString(sr.VehicleMake), nullString(sr.VehicleModel), sr.VehicleYear, nullString(sr.VehiclePlate),
		sr.Latitude.StringFixed(7), sr.Longitude.StringFixed(7), nullString(sr.Address), nullString(sr.Notes),
		sr.Status, sr.Priority, nullTime(sr.ScheduledAt),
		sr.LaborCost.StringFixed(2), sr.PartsCost.StringFixed(2), sr.TotalCost.StringFixed(2),
		sr.PaymentStatus, sr.CreatedAt, sr.UpdatedAt)
	if err != nil {
		return wrapWriteErr("create service request", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get service request ID: %w", err)
	}
	sr.ID = id
	return nil
}

func (r *ServiceRequestRepo) GetByID(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + serviceRequestFrom + ` WHERE sr.id = ?`
	sr, err := scanServiceRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service request: %w", err)
	}
	return sr, nil
}

func (r *ServiceRequestRepo) GetByNumber(ctx context.Context, number string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + serviceRequestFrom + ` WHERE sr.request_number = ?`
	sr, err := scanServiceRequest(r.db.QueryRowContext(ctx, query, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service request by number: %w", err)
	}
	return sr, nil
}

// Update writes every mutable column. The request number is never rewritten.
func (r *ServiceRequestRepo) Update(ctx context.Context, sr *domain.ServiceRequest) error {
	query := `
		UPDATE service_requests SET
			mechanic_id = ?, vehicle_model_id = ?, vehicle_make = ?, vehicle_model = ?, vehicle_year = ?,
			vehicle_plate = ?, latitude = ?, longitude = ?, address = ?, notes = ?,
			status = ?, priority = ?, scheduled_at = ?, accepted_at = ?, started_at = ?, completed_at = ?,
			labor_cost = ?, parts_cost = ?, total_cost = ?,
			payment_status = ?, payment_method = ?, transaction_id = ?, paid_at = ?,
			rating = ?, feedback = ?, mechanic_notes = ?, updated_at = ?
		WHERE id = ?
	`
	sr.UpdatedAt = time.Now()

	var rating sql.NullInt64
	if sr.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*sr.Rating), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		nullInt64(sr.MechanicID), nullInt64(sr.VehicleModelID), nullString(sr.VehicleMake), nullString(sr.VehicleModel), sr.VehicleYear,
		nullString(sr.VehiclePlate), sr.Latitude.StringFixed(7), sr.Longitude.StringFixed(7), nullString(sr.Address), nullString(sr.Notes),
		sr.Status, sr.Priority, nullTime(sr.ScheduledAt), nullTime(sr.AcceptedAt), nullTime(sr.StartedAt), nullTime(sr.CompletedAt),
		sr.LaborCost.StringFixed(2), sr.PartsCost.StringFixed(2), sr.TotalCost.StringFixed(2),
		sr.PaymentStatus, nullString(sr.PaymentMethod), nullString(sr.TransactionID), nullTime(sr.PaidAt),
		rating, nullString(sr.Feedback), nullString(sr.MechanicNotes), sr.UpdatedAt,
		sr.ID)
	if err != nil {
		return wrapWriteErr("update service request", err)
	}
	return nil
}

// UpdateCosts persists the rollup columns only
func (r *ServiceRequestRepo) UpdateCosts(ctx context.Context, id int64, partsCost, totalCost decimal.Decimal) error {
	query := `UPDATE service_requests SET parts_cost = ?, total_cost = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, partsCost.StringFixed(2), totalCost.StringFixed(2), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update service request costs: %w", err)
	}
	return nil
}

func (r *ServiceRequestRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + serviceRequestFrom + `
		WHERE sr.user_id = ? ORDER BY sr.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list service requests: %w", err)
	}
	defer rows.Close()

	requests := []domain.ServiceRequest{}
	for rows.Next() {
		sr, err := scanServiceRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service request: %w", err)
		}
		requests = append(requests, *sr)
	}
	return requests, rows.Err()
}

// AddPart inserts a line item. The subtotal is recomputed before the write.
func (r *ServiceRequestRepo) AddPart(ctx context.Context, item *domain.ServiceRequestPart) error {
	item.PrepareForSave()

	query := `
		INSERT INTO service_request_parts (service_request_id, part_id, quantity, unit_price, subtotal, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		item.ServiceRequestID, item.PartID, item.Quantity,
		item.UnitPrice.StringFixed(2), item.Subtotal.StringFixed(2), item.Status, now, now)
	if err != nil {
		return wrapWriteErr("add service request part", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get service request part ID: %w", err)
	}
	item.ID = id
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

func (r *ServiceRequestRepo) GetPart(ctx context.Context, id int64) (*domain.ServiceRequestPart, error) {
	query := `
		SELECT id, service_request_id, part_id, quantity, unit_price, subtotal, status, created_at, updated_at
		FROM service_request_parts WHERE id = ?
	`
	item := &domain.ServiceRequestPart{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.ServiceRequestID, &item.PartID, &item.Quantity,
		&item.UnitPrice, &item.Subtotal, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service request part: %w", err)
	}
	return item, nil
}

// UpdatePart rewrites quantity, unit price, status and the recomputed subtotal
func (r *ServiceRequestRepo) UpdatePart(ctx context.Context, item *domain.ServiceRequestPart) error {
	item.PrepareForSave()
	item.UpdatedAt = time.Now()

	query := `
		UPDATE service_request_parts
		SET quantity = ?, unit_price = ?, subtotal = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		item.Quantity, item.UnitPrice.StringFixed(2), item.Subtotal.StringFixed(2), item.Status, item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update service request part: %w", err)
	}
	return nil
}

func (r *ServiceRequestRepo) DeletePart(ctx context.Context, id int64) error {
	query := `DELETE FROM service_request_parts WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete service request part: %w", err)
	}
	return nil
}

// ListParts returns the line items of a request with their catalog part, ordered by id
func (r *ServiceRequestRepo) ListParts(ctx context.Context, requestID int64) ([]domain.ServiceRequestPart, error) {
	query := `
		SELECT srp.id, srp.service_request_id, srp.part_id, srp.quantity, srp.unit_price, srp.subtotal,
			   srp.status, srp.created_at, srp.updated_at,
			   p.sku, p.name, p.brand
		FROM service_request_parts srp
		JOIN parts p ON p.id = srp.part_id
		WHERE srp.service_request_id = ?
		ORDER BY srp.id
	`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service request parts: %w", err)
	}
	defer rows.Close()

	items := []domain.ServiceRequestPart{}
	for rows.Next() {
		var item domain.ServiceRequestPart
		part := &domain.Part{}
		var brand sql.NullString
		if err := rows.Scan(
			&item.ID, &item.ServiceRequestID, &item.PartID, &item.Quantity, &item.UnitPrice, &item.Subtotal,
			&item.Status, &item.CreatedAt, &item.UpdatedAt,
			&part.SKU, &part.Name, &brand,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service request part: %w", err)
		}
		part.ID = item.PartID
		part.Brand = brand.String
		item.Part = part
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanServiceRequest(row rowScanner) (*domain.ServiceRequest, error) {
	sr := &domain.ServiceRequest{ServiceType: &domain.ServiceType{}}
	var (
		mechanicID, vehicleModelID, vehicleYear, rating         sql.NullInt64
		vehicleMake, vehicleModel, vehiclePlate                 sql.NullString
		address, notes, paymentMethod, transactionID            sql.NullString
		feedback, mechanicNotes                                 sql.NullString
		scheduledAt, acceptedAt, startedAt, completedAt, paidAt sql.NullTime
	)
	err := row.Scan(
		&sr.ID, &sr.RequestNumber, &sr.UserID, &sr.ServiceTypeID, &mechanicID, &vehicleModelID,
		&vehicleMake, &vehicleModel, &vehicleYear, &vehiclePlate,
		&sr.Latitude, &sr.Longitude, &address, &notes, &sr.Status, &sr.Priority,
		&scheduledAt, &acceptedAt, &startedAt, &completedAt,
		&sr.LaborCost, &sr.PartsCost, &sr.TotalCost,
		&sr.PaymentStatus, &paymentMethod, &transactionID, &paidAt,
		&rating, &feedback, &mechanicNotes, &sr.CreatedAt, &sr.UpdatedAt,
		&sr.ServiceType.ID, &sr.ServiceType.Name, &sr.ServiceType.Slug, &sr.ServiceType.BasePrice,
		&sr.ServiceType.RequiresParts, &sr.ServiceType.EstimatedDuration, &sr.ServiceType.IsActive, &sr.ServiceType.SortOrder,
	)
	if err != nil {
		return nil, err
	}

	sr.MechanicID = int64Ptr(mechanicID)
	sr.VehicleModelID = int64Ptr(vehicleModelID)
	sr.VehicleMake = vehicleMake.String
	sr.VehicleModel = vehicleModel.String
	sr.VehicleYear = int(vehicleYear.Int64)
	sr.VehiclePlate = vehiclePlate.String
	sr.Address = address.String
	sr.Notes = notes.String
	sr.ScheduledAt = timePtr(scheduledAt)
	sr.AcceptedAt = timePtr(acceptedAt)
	sr.StartedAt = timePtr(startedAt)
	sr.CompletedAt = timePtr(completedAt)
	sr.PaymentMethod = paymentMethod.String
	sr.TransactionID = transactionID.String
	sr.PaidAt = timePtr(paidAt)
	if rating.Valid {
		v := int(rating.Int64)
		sr.Rating = &v
	}
	sr.Feedback = feedback.String
	sr.MechanicNotes = mechanicNotes.String
	return sr, nil
}
