package report

import "fmt"

// Exclusion reasons for whole batches.
const (
	ReasonFetchFailed = "fetch failed"
	ReasonEmpty       = "empty"
	ReasonNoSchema    = "no expected columns"
)

// Batch is one artifact's table, or the error met while fetching it.
type Batch struct {
	ID    string
	Table *Table
	Err   error
}

// Exclusion records why a batch did not contribute rows.
type Exclusion struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Aggregated is the row-wise union of a period's batches.
type Aggregated struct {
	Table    *Table
	Included []string
	Excluded []Exclusion
}

// Aggregate concatenates batches in the given order.
//
// Batches that failed to load, hold no rows, or carry none of the expected
// columns are skipped and listed in Excluded. An empty expected list disables
// the schema check. ErrNoValidData is returned, together with the exclusions,
// when nothing remains.
func Aggregate(expected []string, batches []Batch) (Aggregated, error) {
	var (
		out  Aggregated
		rows int
		keep = make([]bool, len(batches))
	)
	for i, b := range batches {
		if reason, detail := excludeBatch(expected, b); reason != "" {
			out.Excluded = append(out.Excluded, Exclusion{ID: b.ID, Reason: reason, Detail: detail})
			continue
		}
		keep[i] = true
		out.Included = append(out.Included, b.ID)
		rows += b.Table.Len()
	}
	if len(out.Included) == 0 {
		return out, fmt.Errorf("%w: %d batches excluded", ErrNoValidData, len(out.Excluded))
	}

	table := &Table{Rows: make([]Row, 0, rows)}
	seen := make(map[string]struct{})
	for i, b := range batches {
		if !keep[i] {
			continue
		}
		for _, c := range b.Table.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			table.Columns = append(table.Columns, c)
		}
		table.Rows = append(table.Rows, b.Table.Rows...)
	}
	out.Table = table
	return out, nil
}

func excludeBatch(expected []string, b Batch) (string, string) {
	switch {
	case b.Err != nil:
		return ReasonFetchFailed, b.Err.Error()
	case b.Table.Len() == 0:
		return ReasonEmpty, ""
	case len(expected) > 0 && len(b.Table.PresentColumns(expected)) == 0:
		return ReasonNoSchema, ""
	}
	return "", ""
}
