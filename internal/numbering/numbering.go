// Package numbering issues year-scoped sequential document numbers such as SR-2025-00001.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies an independent number sequence.
type Kind string

const (
	ServiceRequest Kind = "SR"
	Quotation      Kind = "QT"
)

// Prefix returns the document prefix of the kind.
func (k Kind) Prefix() string {
	return string(k)
}

// Store returns the most recently issued number of kind in year, or "" when none exists yet.
type Store interface {
	LastNumber(ctx context.Context, kind Kind, year int) (string, error)
}

// Generator derives the next number from the last one issued.
//
// Two concurrent callers can observe the same last number. The storage layer
// declares number columns UNIQUE so the second insert fails; no retry is made.
type Generator struct {
	store Store
}

func NewGenerator(store Store) *Generator {
	return &Generator{store: store}
}

// Next returns the number following the last one issued for kind in year.
func (g *Generator) Next(ctx context.Context, kind Kind, year int) (string, error) {
	const op = "numbering.Generator.Next"

	last, err := g.store.LastNumber(ctx, kind, year)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	seq := 1
	if last != "" {
		n, err := Sequence(last)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		seq = n + 1
	}

	return Format(kind, year, seq), nil
}

// Format renders PREFIX-YYYY-NNNNN. Sequences above 99999 widen past five digits.
func Format(kind Kind, year, seq int) string {
	return fmt.Sprintf("%s-%04d-%05d", kind.Prefix(), year, seq)
}

// Sequence extracts the trailing sequence of a formatted number.
func Sequence(number string) (int, error) {
	idx := strings.LastIndexByte(number, '-')
	if idx < 0 || idx == len(number)-1 {
		return 0, fmt.Errorf("malformed document number %q", number)
	}
	n, err := strconv.Atoi(number[idx+1:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed document number %q", number)
	}
	return n, nil
}

// YearPrefix is the LIKE pattern prefix matching every number of kind in year.
func YearPrefix(kind Kind, year int) string {
	return fmt.Sprintf("%s-%04d-", kind.Prefix(), year)
}
