package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tirehub/internal/numbering"
)

// NumberStore implements numbering.Store over the service_requests and quotations tables
type NumberStore struct {
	db *DB
}

func NewNumberStore(db *DB) numbering.Store {
	return &NumberStore{db: db}
}

// LastNumber returns the most recently created number of kind issued in year
func (s *NumberStore) LastNumber(ctx context.Context, kind numbering.Kind, year int) (string, error) {
	var table, column string
	switch kind {
	case numbering.ServiceRequest:
		table, column = "service_requests", "request_number"
	case numbering.Quotation:
		table, column = "quotations", "quotation_number"
	default:
		return "", fmt.Errorf("unknown document kind %q", kind)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIKE ? ORDER BY id DESC LIMIT 1`, column, table, column)
	var number string
	err := s.db.QueryRowContext(ctx, query, numbering.YearPrefix(kind, year)+"%").Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last %s number: %w", kind, err)
	}
	return number, nil
}
