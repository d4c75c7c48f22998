package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
)

// FitmentRepo implements repository.FitmentRepository
type FitmentRepo struct {
	db *DB
}

// NewFitmentRepo creates a new FitmentRepo
func NewFitmentRepo(db *DB) repository.FitmentRepository {
	return &FitmentRepo{db: db}
}

// Attach links a part to a vehicle model. Attaching an existing pair updates its metadata.
func (r *FitmentRepo) Attach(ctx context.Context, f domain.Fitment) error {
	query := `
		INSERT INTO part_vehicle_fitments (part_id, vehicle_model_id, fitment_type, notes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(part_id, vehicle_model_id) DO UPDATE SET
			fitment_type = excluded.fitment_type,
			notes = excluded.notes
	`
	_, err := r.db.ExecContext(ctx, query, f.PartID, f.VehicleModelID, nullString(f.FitmentType), nullString(f.Notes))
	if err != nil {
		return wrapWriteErr("attach fitment", err)
	}
	return nil
}

func (r *FitmentRepo) Detach(ctx context.Context, partID, vehicleModelID int64) error {
	query := `DELETE FROM part_vehicle_fitments WHERE part_id = ? AND vehicle_model_id = ?`
	if _, err := r.db.ExecContext(ctx, query, partID, vehicleModelID); err != nil {
		return fmt.Errorf("failed to detach fitment: %w", err)
	}
	return nil
}

// PartsForModel returns active parts fitted to the vehicle model, ordered by id
func (r *FitmentRepo) PartsForModel(ctx context.Context, vehicleModelID int64) ([]domain.Part, error) {
	query, args, err := selectParts().
		Join("part_vehicle_fitments f ON f.part_id = p.id").
		Where(sq.Eq{"f.vehicle_model_id": vehicleModelID, "p.is_active": true}).
		OrderBy("p.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build fitment query: %w", err)
	}
	return queryParts(ctx, r.db, query, args...)
}

// ModelsForPart returns the vehicle models a part fits, with fitment metadata
func (r *FitmentRepo) ModelsForPart(ctx context.Context, partID int64) ([]domain.CompatibleModel, error) {
	query := `
		SELECT m.id, m.make_id, m.name, m.year_start, m.year_end, m.body_type, m.is_active,
			   mk.id, mk.name, mk.is_active,
			   f.fitment_type, f.notes
		FROM part_vehicle_fitments f
		JOIN vehicle_models m ON m.id = f.vehicle_model_id
		JOIN vehicle_makes mk ON mk.id = m.make_id
		WHERE f.part_id = ?
		ORDER BY mk.name, m.name
	`
	rows, err := r.db.QueryContext(ctx, query, partID)
	if err != nil {
		return nil, fmt.Errorf("failed to list compatible models: %w", err)
	}
	defer rows.Close()

	models := []domain.CompatibleModel{}
	for rows.Next() {
		cm := domain.CompatibleModel{}
		cm.Make = &domain.VehicleMake{}
		var yearStart, yearEnd sql.NullInt64
		var bodyType, fitmentType, notes sql.NullString
		if err := rows.Scan(
			&cm.ID, &cm.MakeID, &cm.Name, &yearStart, &yearEnd, &bodyType, &cm.IsActive,
			&cm.Make.ID, &cm.Make.Name, &cm.Make.IsActive,
			&fitmentType, &notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan compatible model: %w", err)
		}
		cm.YearStart = int(yearStart.Int64)
		cm.YearEnd = int(yearEnd.Int64)
		cm.BodyType = bodyType.String
		cm.FitmentType = fitmentType.String
		cm.Notes = notes.String
		models = append(models, cm)
	}
	return models, rows.Err()
}
