package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
)

// CategoryRepo implements repository.CategoryRepository
type CategoryRepo struct {
	db *DB
}

func NewCategoryRepo(db *DB) repository.CategoryRepository {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, c *domain.PartsCategory) error {
	query := `INSERT INTO parts_categories (name, slug, is_active) VALUES (?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query, c.Name, c.Slug, c.IsActive)
	if err != nil {
		return wrapWriteErr("create category", err)
	}
	id, _ := result.LastInsertId()
	c.ID = id
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*domain.PartsCategory, error) {
	query := `SELECT id, name, slug, is_active FROM parts_categories WHERE id = ?`
	c := &domain.PartsCategory{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Slug, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*domain.PartsCategory, error) {
	query := `SELECT id, name, slug, is_active FROM parts_categories WHERE slug = ?`
	c := &domain.PartsCategory{}
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by slug: %w", err)
	}
	return c, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]domain.PartsCategory, error) {
	query := `SELECT id, name, slug, is_active FROM parts_categories ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.PartsCategory{}
	for rows.Next() {
		var c domain.PartsCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.IsActive); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// VehicleRepo implements repository.VehicleRepository
type VehicleRepo struct {
	db *DB
}

func NewVehicleRepo(db *DB) repository.VehicleRepository {
	return &VehicleRepo{db: db}
}

func (r *VehicleRepo) CreateMake(ctx context.Context, mk *domain.VehicleMake) error {
	query := `INSERT INTO vehicle_makes (name, is_active) VALUES (?, ?)`
	result, err := r.db.ExecContext(ctx, query, mk.Name, mk.IsActive)
	if err != nil {
		return wrapWriteErr("create vehicle make", err)
	}
	id, _ := result.LastInsertId()
	mk.ID = id
	return nil
}

func (r *VehicleRepo) GetMakeByName(ctx context.Context, name string) (*domain.VehicleMake, error) {
	query := `SELECT id, name, is_active FROM vehicle_makes WHERE name = ?`
	mk := &domain.VehicleMake{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&mk.ID, &mk.Name, &mk.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle make: %w", err)
	}
	return mk, nil
}

func (r *VehicleRepo) ListMakes(ctx context.Context) ([]domain.VehicleMake, error) {
	query := `SELECT id, name, is_active FROM vehicle_makes ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle makes: %w", err)
	}
	defer rows.Close()

	makes := []domain.VehicleMake{}
	for rows.Next() {
		var mk domain.VehicleMake
		if err := rows.Scan(&mk.ID, &mk.Name, &mk.IsActive); err != nil {
			return nil, err
		}
		makes = append(makes, mk)
	}
	return makes, rows.Err()
}

func (r *VehicleRepo) CreateModel(ctx context.Context, m *domain.VehicleModel) error {
	query := `
		INSERT INTO vehicle_models (make_id, name, year_start, year_end, body_type, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		m.MakeID, m.Name, m.YearStart, m.YearEnd, nullString(m.BodyType), m.IsActive)
	if err != nil {
		return wrapWriteErr("create vehicle model", err)
	}
	id, _ := result.LastInsertId()
	m.ID = id
	return nil
}

func (r *VehicleRepo) GetModelByID(ctx context.Context, id int64) (*domain.VehicleModel, error) {
	query := `
		SELECT m.id, m.make_id, m.name, m.year_start, m.year_end, m.body_type, m.is_active,
			   mk.id, mk.name, mk.is_active
		FROM vehicle_models m
		JOIN vehicle_makes mk ON m.make_id = mk.id
		WHERE m.id = ?
	`
	m := &domain.VehicleModel{Make: &domain.VehicleMake{}}
	var yearStart, yearEnd sql.NullInt64
	var bodyType sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.MakeID, &m.Name, &yearStart, &yearEnd, &bodyType, &m.IsActive,
		&m.Make.ID, &m.Make.Name, &m.Make.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle model: %w", err)
	}
	m.YearStart = int(yearStart.Int64)
	m.YearEnd = int(yearEnd.Int64)
	m.BodyType = bodyType.String
	return m, nil
}

func (r *VehicleRepo) ListModelsByMake(ctx context.Context, makeID int64) ([]domain.VehicleModel, error) {
	query := `
		SELECT id, make_id, name, year_start, year_end, body_type, is_active
		FROM vehicle_models WHERE make_id = ? ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, makeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicle models: %w", err)
	}
	defer rows.Close()

	models := []domain.VehicleModel{}
	for rows.Next() {
		var m domain.VehicleModel
		var yearStart, yearEnd sql.NullInt64
		var bodyType sql.NullString
		if err := rows.Scan(&m.ID, &m.MakeID, &m.Name, &yearStart, &yearEnd, &bodyType, &m.IsActive); err != nil {
			return nil, err
		}
		m.YearStart = int(yearStart.Int64)
		m.YearEnd = int(yearEnd.Int64)
		m.BodyType = bodyType.String
		models = append(models, m)
	}
	return models, rows.Err()
}

// ServiceTypeRepo implements repository.ServiceTypeRepository
type ServiceTypeRepo struct {
	db *DB
}

func NewServiceTypeRepo(db *DB) repository.ServiceTypeRepository {
	return &ServiceTypeRepo{db: db}
}

const serviceTypeColumns = `id, name, slug, description, base_price, requires_parts, estimated_duration, is_active, sort_order`

func (r *ServiceTypeRepo) Create(ctx context.Context, st *domain.ServiceType) error {
	query := `
		INSERT INTO service_types (name, slug, description, base_price, requires_parts, estimated_duration, is_active, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		st.Name, st.Slug, nullString(st.Description), st.BasePrice.StringFixed(2),
		st.RequiresParts, st.EstimatedDuration, st.IsActive, st.SortOrder)
	if err != nil {
		return wrapWriteErr("create service type", err)
	}
	id, _ := result.LastInsertId()
	st.ID = id
	return nil
}

func (r *ServiceTypeRepo) GetByID(ctx context.Context, id int64) (*domain.ServiceType, error) {
	query := `SELECT ` + serviceTypeColumns + ` FROM service_types WHERE id = ?`
	st, err := scanServiceType(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service type: %w", err)
	}
	return st, nil
}

func (r *ServiceTypeRepo) GetBySlug(ctx context.Context, slug string) (*domain.ServiceType, error) {
	query := `SELECT ` + serviceTypeColumns + ` FROM service_types WHERE slug = ?`
	st, err := scanServiceType(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get service type by slug: %w", err)
	}
	return st, nil
}

func (r *ServiceTypeRepo) List(ctx context.Context, activeOnly bool) ([]domain.ServiceType, error) {
	query := `SELECT ` + serviceTypeColumns + ` FROM service_types`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list service types: %w", err)
	}
	defer rows.Close()

	types := []domain.ServiceType{}
	for rows.Next() {
		st, err := scanServiceType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *st)
	}
	return types, rows.Err()
}

func scanServiceType(row rowScanner) (*domain.ServiceType, error) {
	st := &domain.ServiceType{}
	var description sql.NullString
	err := row.Scan(&st.ID, &st.Name, &st.Slug, &description, &st.BasePrice,
		&st.RequiresParts, &st.EstimatedDuration, &st.IsActive, &st.SortOrder)
	if err != nil {
		return nil, err
	}
	st.Description = description.String
	return st, nil
}
