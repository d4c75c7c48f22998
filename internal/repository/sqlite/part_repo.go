package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tirehub/internal/domain"
	"tirehub/internal/repository"
)

// PartRepo implements repository.PartRepository
type PartRepo struct {
	db *DB
}

// NewPartRepo creates a new PartRepo
func NewPartRepo(db *DB) repository.PartRepository {
	return &PartRepo{db: db}
}

var partColumns = []string{
	"p.id", "p.sku", "p.name", "p.description", "p.category_id",
	"c.id", "c.name", "c.slug", "c.is_active",
	"p.brand", "p.tire_size", "p.load_index", "p.speed_rating", "p.tire_type", "p.tread_pattern",
	"p.specifications", "p.price", "p.cost_price", "p.stock_quantity", "p.min_stock_level",
	"p.is_active", "p.is_featured", "p.created_at", "p.updated_at",
	"(SELECT pi.url FROM part_images pi WHERE pi.part_id = p.id AND pi.is_primary = 1 ORDER BY pi.sort_order, pi.id LIMIT 1)",
}

func selectParts() sq.SelectBuilder {
	return sb.Select(partColumns...).
		From("parts p").
		LeftJoin("parts_categories c ON c.id = p.category_id")
}

func (r *PartRepo) Create(ctx context.Context, part *domain.Part) error {
	specs, err := encodeSpecs(part.Specifications)
	if err != nil {
		return err
	}
	tire := part.Tire
	if tire == nil {
		tire = &domain.TireAttributes{}
	}

	now := time.Now()
	query, args, err := sb.Insert("parts").
		Columns("sku", "name", "description", "category_id", "brand",
			"tire_size", "load_index", "speed_rating", "tire_type", "tread_pattern",
			"specifications", "price", "cost_price", "stock_quantity", "min_stock_level",
			"is_active", "is_featured", "created_at", "updated_at").
		Values(part.SKU, part.Name, nullString(part.Description), nullInt64(part.CategoryID), nullString(part.Brand),
			nullString(tire.Size), nullString(tire.LoadIndex), nullString(tire.SpeedRating), nullString(tire.Type), nullString(tire.TreadPattern),
			specs, part.Price.StringFixed(2), part.CostPrice.StringFixed(2), part.StockQuantity, part.MinStockLevel,
			part.IsActive, part.IsFeatured, now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build part insert: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapWriteErr("create part", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get part ID: %w", err)
	}
	part.ID = id
	part.CreatedAt = now
	part.UpdatedAt = now
	return nil
}

func (r *PartRepo) GetByID(ctx context.Context, id int64) (*domain.Part, error) {
	return r.getOne(ctx, sq.Eq{"p.id": id})
}

func (r *PartRepo) GetBySKU(ctx context.Context, sku string) (*domain.Part, error) {
	return r.getOne(ctx, sq.Eq{"p.sku": sku})
}

func (r *PartRepo) getOne(ctx context.Context, where sq.Sqlizer) (*domain.Part, error) {
	query, args, err := selectParts().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build part query: %w", err)
	}
	part, err := scanPart(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get part: %w", err)
	}
	return part, nil
}

func (r *PartRepo) Update(ctx context.Context, part *domain.Part) error {
	specs, err := encodeSpecs(part.Specifications)
	if err != nil {
		return err
	}
	tire := part.Tire
	if tire == nil {
		tire = &domain.TireAttributes{}
	}

	part.UpdatedAt = time.Now()
	query, args, err := sb.Update("parts").
		SetMap(map[string]interface{}{
			"sku":             part.SKU,
			"name":            part.Name,
			"description":     nullString(part.Description),
			"category_id":     nullInt64(part.CategoryID),
			"brand":           nullString(part.Brand),
			"tire_size":       nullString(tire.Size),
			"load_index":      nullString(tire.LoadIndex),
			"speed_rating":    nullString(tire.SpeedRating),
			"tire_type":       nullString(tire.Type),
			"tread_pattern":   nullString(tire.TreadPattern),
			"specifications":  specs,
			"price":           part.Price.StringFixed(2),
			"cost_price":      part.CostPrice.StringFixed(2),
			"stock_quantity":  part.StockQuantity,
			"min_stock_level": part.MinStockLevel,
			"is_active":       part.IsActive,
			"is_featured":     part.IsFeatured,
			"updated_at":      part.UpdatedAt,
		}).
		Where(sq.Eq{"id": part.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build part update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return wrapWriteErr("update part", err)
	}
	return nil
}

// List returns one page of active parts and the total match count
func (r *PartRepo) List(ctx context.Context, f repository.PartFilter) ([]domain.Part, int, error) {
	conds := sq.And{sq.Eq{"p.is_active": true}}

	if f.CategorySlug != "" {
		conds = append(conds, sq.Eq{"c.slug": f.CategorySlug})
	}
	if f.TireSize != "" {
		conds = append(conds, sq.Eq{"p.tire_size": f.TireSize})
	}
	if f.Brand != "" {
		conds = append(conds, sq.Eq{"p.brand": f.Brand})
	}
	if f.MinPrice != nil {
		conds = append(conds, sq.Expr("CAST(p.price AS REAL) >= ?", f.MinPrice.InexactFloat64()))
	}
	if f.MaxPrice != nil {
		conds = append(conds, sq.Expr("CAST(p.price AS REAL) <= ?", f.MaxPrice.InexactFloat64()))
	}
	if f.InStock {
		conds = append(conds, sq.Gt{"p.stock_quantity": 0})
	}
	if f.Featured {
		conds = append(conds, sq.Eq{"p.is_featured": true})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + s + "%"
		conds = append(conds, sq.Or{
			sq.Like{"p.name": pattern},
			sq.Like{"p.sku": pattern},
			sq.Like{"p.brand": pattern},
			sq.Like{"p.description": pattern},
		})
	}

	countQuery, countArgs, err := sb.Select("COUNT(*)").
		From("parts p").
		LeftJoin("parts_categories c ON c.id = p.category_id").
		Where(conds).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build part count: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count parts: %w", err)
	}

	q := selectParts().Where(conds).OrderBy(partOrder(f.SortBy, f.SortOrder), "p.id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	parts, err := r.query(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return parts, total, nil
}

func partOrder(sortBy, sortOrder string) string {
	dir := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		dir = "ASC"
	}
	switch sortBy {
	case "name":
		return "p.name " + dir
	case "price":
		return "CAST(p.price AS REAL) " + dir
	case "stock_quantity":
		return "p.stock_quantity " + dir
	default:
		return "p.created_at " + dir
	}
}

// Featured returns active, featured, in-stock parts
func (r *PartRepo) Featured(ctx context.Context, limit int) ([]domain.Part, error) {
	q := selectParts().
		Where(sq.Eq{"p.is_active": true, "p.is_featured": true}).
		Where(sq.Gt{"p.stock_quantity": 0}).
		OrderBy("p.id").
		Limit(uint64(limit))
	return r.query(ctx, q)
}

// ListActiveLowStock returns active parts whose quantity is at or below the minimum level
func (r *PartRepo) ListActiveLowStock(ctx context.Context) ([]domain.Part, error) {
	q := selectParts().
		Where(sq.Eq{"p.is_active": true}).
		Where("p.stock_quantity <= p.min_stock_level").
		OrderBy("p.id")
	return r.query(ctx, q)
}

// Candidates returns active, in-stock parts for recommendations, ordered by id
func (r *PartRepo) Candidates(ctx context.Context, cq repository.CandidateQuery) ([]domain.Part, error) {
	q := selectParts().
		Where(sq.Eq{"p.is_active": true}).
		Where(sq.Gt{"p.stock_quantity": 0})

	if len(cq.CategoryKeywords) > 0 {
		or := sq.Or{}
		for _, kw := range cq.CategoryKeywords {
			or = append(or, sq.Expr("LOWER(c.name) LIKE ?", "%"+strings.ToLower(kw)+"%"))
		}
		q = q.Where(or)
	}
	if cq.VehicleModelID != nil {
		q = q.Where(sq.Expr(
			"EXISTS (SELECT 1 FROM part_vehicle_fitments f WHERE f.part_id = p.id AND f.vehicle_model_id = ?)",
			*cq.VehicleModelID,
		))
	}

	q = q.OrderBy("p.id")
	if cq.Limit > 0 {
		q = q.Limit(uint64(cq.Limit))
	}
	return r.query(ctx, q)
}

// AddImage attaches an image; a new primary image demotes the previous one
func (r *PartRepo) AddImage(ctx context.Context, img *domain.PartImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if img.IsPrimary {
		if _, err := tx.ExecContext(ctx, `UPDATE part_images SET is_primary = 0 WHERE part_id = ?`, img.PartID); err != nil {
			return fmt.Errorf("failed to reset primary image: %w", err)
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO part_images (part_id, url, is_primary, sort_order, created_at) VALUES (?, ?, ?, ?, ?)`,
		img.PartID, img.URL, img.IsPrimary, img.SortOrder, now)
	if err != nil {
		return wrapWriteErr("add part image", err)
	}
	id, _ := result.LastInsertId()
	img.ID = id
	img.CreatedAt = now

	return tx.Commit()
}

func (r *PartRepo) query(ctx context.Context, q sq.SelectBuilder) ([]domain.Part, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build part query: %w", err)
	}
	return queryParts(ctx, r.db, query, args...)
}

func queryParts(ctx context.Context, db *DB, query string, args ...interface{}) ([]domain.Part, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parts: %w", err)
	}
	defer rows.Close()

	parts := []domain.Part{}
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		parts = append(parts, *p)
	}
	return parts, rows.Err()
}

func scanPart(row rowScanner) (*domain.Part, error) {
	p := &domain.Part{}
	var (
		description, brand, specs, imageURL sql.NullString
		tireSize, loadIndex, speedRating    sql.NullString
		tireType, treadPattern              sql.NullString
		categoryID, catID                   sql.NullInt64
		catName, catSlug                    sql.NullString
		catActive                           sql.NullBool
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &description, &categoryID,
		&catID, &catName, &catSlug, &catActive,
		&brand, &tireSize, &loadIndex, &speedRating, &tireType, &treadPattern,
		&specs, &p.Price, &p.CostPrice, &p.StockQuantity, &p.MinStockLevel,
		&p.IsActive, &p.IsFeatured, &p.CreatedAt, &p.UpdatedAt,
		&imageURL,
	)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Brand = brand.String
	p.PrimaryImageURL = imageURL.String
	p.CategoryID = int64Ptr(categoryID)
	if catID.Valid {
		p.Category = &domain.PartsCategory{
			ID:       catID.Int64,
			Name:     catName.String,
			Slug:     catSlug.String,
			IsActive: catActive.Bool,
		}
	}

	tire := domain.TireAttributes{
		Size:         tireSize.String,
		LoadIndex:    loadIndex.String,
		SpeedRating:  speedRating.String,
		Type:         tireType.String,
		TreadPattern: treadPattern.String,
	}
	if tire != (domain.TireAttributes{}) {
		p.Tire = &tire
	}

	if specs.Valid && specs.String != "" {
		if err := json.Unmarshal([]byte(specs.String), &p.Specifications); err != nil {
			return nil, fmt.Errorf("failed to decode specifications of part %d: %w", p.ID, err)
		}
	}
	return p, nil
}

func encodeSpecs(specs map[string]any) (sql.NullString, error) {
	if len(specs) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode specifications: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
