package report

import "sort"

// Row exclusion reasons reported by rules.
const (
	ReasonMissingValue = "missing value"
	ReasonNotNumeric   = "not numeric"
	ReasonOutOfRange   = "out of range"
	ReasonUnrecognized = "unrecognized value"
	ReasonUnknown      = "unknown"
	ReasonRedirect     = "redirect"
)

// Rule maps each row of a table onto one bucket of a single dimension.
type Rule interface {
	// Dimension names the classification, e.g. "Impact".
	Dimension() string
	// Fields lists the columns the rule reads.
	Fields() []string
	// Buckets returns the presentation order of buckets for t.
	Buckets(t *Table) []string
	// Assign returns the row's bucket, or an empty bucket and the reason the
	// row was excluded.
	Assign(row Row) (bucket string, reason string)
}

// rowOrderer is implemented by rules whose bucket members have a natural order.
type rowOrderer interface {
	Less(a, b Row) bool
}

// columnHinter is implemented by rules that know which columns describe a bucket.
type columnHinter interface {
	Columns(bucket string) []string
}

// BucketCount is one entry of an ordered bucket histogram.
type BucketCount struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

// Summary holds the counts of one dimension over a table.
type Summary struct {
	Dimension       string         `json:"dimension"`
	Buckets         []BucketCount  `json:"buckets"`
	Excluded        int            `json:"excluded"`
	ExcludedReasons map[string]int `json:"excluded_reasons,omitempty"`
}

// Count returns the count for bucket, zero when absent.
func (s Summary) Count(bucket string) int {
	for _, b := range s.Buckets {
		if b.Bucket == bucket {
			return b.Count
		}
	}
	return 0
}

// Classified is the number of rows that landed in some bucket.
func (s Summary) Classified() int {
	n := 0
	for _, b := range s.Buckets {
		n += b.Count
	}
	return n
}

// HasBucket reports whether bucket is part of the dimension.
func (s Summary) HasBucket(bucket string) bool {
	for _, b := range s.Buckets {
		if b.Bucket == bucket {
			return true
		}
	}
	return false
}

// Classify counts every row of t into the rule's buckets. Empty buckets are
// kept so the order of the rule is always visible.
func Classify(rule Rule, t *Table) Summary {
	buckets := rule.Buckets(t)
	counts := make(map[string]int, len(buckets))
	summary := Summary{Dimension: rule.Dimension()}
	if t != nil {
		for _, row := range t.Rows {
			bucket, reason := rule.Assign(row)
			if bucket == "" {
				summary.Excluded++
				if summary.ExcludedReasons == nil {
					summary.ExcludedReasons = make(map[string]int)
				}
				summary.ExcludedReasons[reason]++
				continue
			}
			counts[bucket]++
		}
	}
	summary.Buckets = make([]BucketCount, 0, len(buckets))
	for _, b := range buckets {
		summary.Buckets = append(summary.Buckets, BucketCount{Bucket: b, Count: counts[b]})
	}
	return summary
}

// Members returns the rows of t assigned to bucket, in table order unless the
// rule defines its own ordering.
func Members(rule Rule, t *Table, bucket string) []Row {
	if t == nil {
		return nil
	}
	var out []Row
	for _, row := range t.Rows {
		if b, _ := rule.Assign(row); b == bucket {
			out = append(out, row)
		}
	}
	if o, ok := rule.(rowOrderer); ok {
		sort.SliceStable(out, func(i, j int) bool { return o.Less(out[i], out[j]) })
	}
	return out
}

// BucketColumns returns the columns that best describe bucket's rows.
// It falls back to the rule's fields.
func BucketColumns(rule Rule, bucket string) []string {
	if h, ok := rule.(columnHinter); ok {
		if cols := h.Columns(bucket); len(cols) > 0 {
			return cols
		}
	}
	return rule.Fields()
}
