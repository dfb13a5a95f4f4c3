package dashboard

import (
	"time"

	"github.com/JakeFAU/crawl-reports/internal/report"
)

// Rows-only categories are recorded under this dimension and bucket.
const (
	TotalDimension = "Total"
	TotalBucket    = "Rows"
)

// Snapshot is the persisted count of one bucket of one view.
type Snapshot struct {
	ID           string    `json:"id" yaml:"id"`
	Category     string    `json:"category" yaml:"category"`
	Period       string    `json:"period" yaml:"period"`
	Dimension    string    `json:"dimension" yaml:"dimension"`
	Bucket       string    `json:"bucket" yaml:"bucket"`
	Count        int       `json:"count" yaml:"count"`
	TotalRows    int       `json:"total_rows" yaml:"total_rows"`
	ExcludedRows int       `json:"excluded_rows" yaml:"excluded_rows"`
	ComputedAt   time.Time `json:"computed_at" yaml:"computed_at"`
}

// SnapshotsFromView flattens every bucket count of v. A view without
// dimensions yields a single row-total snapshot.
func SnapshotsFromView(v *report.View, at time.Time) []Snapshot {
	base := Snapshot{
		Category:   v.Category.Name,
		Period:     v.Period.String(),
		TotalRows:  v.TotalRows,
		ComputedAt: at,
	}
	if len(v.Summaries) == 0 {
		snap := base
		snap.Dimension = TotalDimension
		snap.Bucket = TotalBucket
		snap.Count = v.TotalRows
		return []Snapshot{snap}
	}
	var out []Snapshot
	for _, sum := range v.Summaries {
		for _, b := range sum.Buckets {
			snap := base
			snap.Dimension = sum.Dimension
			snap.Bucket = b.Bucket
			snap.Count = b.Count
			snap.ExcludedRows = sum.Excluded
			out = append(out, snap)
		}
	}
	return out
}
