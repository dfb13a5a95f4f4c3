package report

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedIdentifier is returned when an artifact name carries no usable period.
	ErrMalformedIdentifier = errors.New("malformed artifact identifier")
	// ErrInvalidPeriod is returned when a requested period is not YYYY-MM.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrNoValidData is returned when every batch for a period was excluded.
	ErrNoValidData = errors.New("no valid data for period")
	// ErrPeriodNotFound is returned when no artifact resolves to the requested period.
	ErrPeriodNotFound = errors.New("period not found")
	// ErrUnknownCategory is returned for category names outside the registry.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnknownDimension is returned when a view has no such classification.
	ErrUnknownDimension = errors.New("unknown dimension")
	// ErrUnknownBucket is returned when a dimension has no such bucket.
	ErrUnknownBucket = errors.New("unknown bucket")
	// ErrNoViolations is returned when violation grouping is requested for a category without it.
	ErrNoViolations = errors.New("category has no violation breakdown")
)

const periodLayout = "2006-01"

// Period is a year-month grouping key such as "2024-01".
type Period string

// ParsePeriod validates a YYYY-MM string.
func ParsePeriod(s string) (Period, error) {
	if len(s) != len(periodLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period(t.Format(periodLayout)), nil
}

// String implements fmt.Stringer.
func (p Period) String() string {
	return string(p)
}

// Row maps a column name to its cell text. A missing key is a null cell.
type Row map[string]string

// Value returns the cell for col and whether it holds a non-empty value.
func (r Row) Value(col string) (string, bool) {
	v, ok := r[col]
	return v, ok && v != ""
}

// Project returns a copy of the row restricted to cols.
func (r Row) Project(cols []string) Row {
	out := make(Row, len(cols))
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// Table is an ordered sequence of rows sharing one column schema.
// Tables handed to this package are treated as read-only.
type Table struct {
	Columns []string
	Rows    []Row
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the table schema.
func (t *Table) HasColumn(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// PresentColumns filters cols down to those the table carries, keeping order.
func (t *Table) PresentColumns(cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}
