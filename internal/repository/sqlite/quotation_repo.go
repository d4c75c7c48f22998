package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
)

// QuotationRepo implements repository.QuotationRepository
type QuotationRepo struct {
	db *DB
}

// NewQuotationRepo creates a new QuotationRepo
func NewQuotationRepo(db *DB) repository.QuotationRepository {
	return &QuotationRepo{db: db}
}

const quotationColumns = `id, quotation_number, service_request_id, labor_cost, parts_cost, total_amount,
	valid_from, valid_until, estimated_duration, status, sent_at, terms, notes, created_at`

func (r *QuotationRepo) Create(ctx context.Context, q *domain.Quotation) error {
	query := `
		INSERT INTO quotations (quotation_number, service_request_id, labor_cost, parts_cost, total_amount,
			valid_from, valid_until, estimated_duration, status, sent_at, terms, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	result, err := r.db.ExecContext(ctx, query,
		q.QuotationNumber, q.ServiceRequestID,
		q.LaborCost.StringFixed(2), q.PartsCost.StringFixed(2), q.TotalAmount.StringFixed(2),
		q.ValidFrom, q.ValidUntil, q.EstimatedDuration, q.Status, nullTime(q.SentAt),
		nullString(q.Terms), nullString(q.Notes), q.CreatedAt)
	if err != nil {
		return wrapWriteErr("create quotation", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get quotation ID: %w", err)
	}
	q.ID = id
	return nil
}

func (r *QuotationRepo) GetByID(ctx context.Context, id int64) (*domain.Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE id = ?`
	q, err := scanQuotation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	return q, nil
}

func (r *QuotationRepo) ListByRequest(ctx context.Context, requestID int64) ([]domain.Quotation, error) {
	query := `SELECT ` + quotationColumns + ` FROM quotations WHERE service_request_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	defer rows.Close()

	quotations := []domain.Quotation{}
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		quotations = append(quotations, *q)
	}
	return quotations, rows.Err()
}

// UpdateStatus sets the status; moving to sent stamps sent_at
func (r *QuotationRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	var query string
	var args []interface{}

	if status == domain.QuotationStatusSent {
		query = `UPDATE quotations SET status = ?, sent_at = ? WHERE id = ?`
		args = []interface{}{status, time.Now(), id}
	} else {
		query = `UPDATE quotations SET status = ? WHERE id = ?`
		args = []interface{}{status, id}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update quotation status: %w", err)
	}
	return nil
}

func scanQuotation(row rowScanner) (*domain.Quotation, error) {
	q := &domain.Quotation{}
	var sentAt sql.NullTime
	var terms, notes sql.NullString
	err := row.Scan(&q.ID, &q.QuotationNumber, &q.ServiceRequestID,
		&q.LaborCost, &q.PartsCost, &q.TotalAmount,
		&q.ValidFrom, &q.ValidUntil, &q.EstimatedDuration, &q.Status, &sentAt,
		&terms, &notes, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.SentAt = timePtr(sentAt)
	q.Terms = terms.String
	q.Notes = notes.String
	return q, nil
}
