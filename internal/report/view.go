package report

import "fmt"

// Artifact is one stored batch handed to BuildView: its identifier and either
// the decoded table or the error met while fetching it.
type Artifact struct {
	ID    string
	Table *Table
	Err   error
}

// SchemaWarning reports a column a dimension needs but the data lacks.
// The dimension is skipped; the rest of the view still renders.
type SchemaWarning struct {
	Dimension string `json:"dimension"`
	Column    string `json:"column"`
}

// String implements fmt.Stringer.
func (w SchemaWarning) String() string {
	return fmt.Sprintf("missing column %q (%s)", w.Column, w.Dimension)
}

// View is the query-ready result for one category and period. Counts are
// computed when the view is built; bucket members are computed on request.
type View struct {
	Category  Category
	Period    Period
	Artifacts []string
	TotalRows int
	Excluded  []Exclusion
	// Malformed lists input identifiers that resolved to no period. They
	// belong to no view and are never counted as excluded batches.
	Malformed []string
	Warnings  []SchemaWarning
	Summaries []Summary

	table *Table
	rules map[string]Rule
}

// BuildView resolves every artifact's period, aggregates those matching
// period, and classifies the result with the category's rules.
//
// Artifacts whose names do not resolve are listed in Malformed.
// ErrPeriodNotFound is returned when nothing resolves to period. When every
// matching batch was excluded, ErrNoValidData is returned together with a
// partial view carrying Artifacts and Excluded but no table.
func BuildView(category string, period Period, artifacts []Artifact) (*View, error) {
	c, err := LookupCategory(category)
	if err != nil {
		return nil, err
	}
	v := &View{Category: c, Period: period, rules: make(map[string]Rule)}

	var batches []Batch
	for _, a := range artifacts {
		p, err := ResolvePeriod(c, a.ID)
		if err != nil {
			v.Malformed = append(v.Malformed, a.ID)
			continue
		}
		if p != period {
			continue
		}
		v.Artifacts = append(v.Artifacts, a.ID)
		batches = append(batches, Batch(a))
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrPeriodNotFound, c.Name, period)
	}

	agg, err := Aggregate(c.Expected, batches)
	v.Excluded = append(v.Excluded, agg.Excluded...)
	if err != nil {
		return v, fmt.Errorf("%s %s: %w", c.Name, period, err)
	}
	v.table = agg.Table
	v.TotalRows = agg.Table.Len()

	for _, rule := range c.Rules {
		missing := false
		for _, f := range rule.Fields() {
			if !v.table.HasColumn(f) {
				v.Warnings = append(v.Warnings, SchemaWarning{Dimension: rule.Dimension(), Column: f})
				missing = true
			}
		}
		if missing {
			continue
		}
		v.rules[rule.Dimension()] = rule
		v.Summaries = append(v.Summaries, Classify(rule, v.table))
	}
	return v, nil
}

// Table returns the aggregated table. Callers must not modify it.
func (v *View) Table() *Table {
	return v.table
}

// Columns returns the table columns in presentation order: the category's
// display columns that are present, then any others.
func (v *View) Columns() []string {
	if v.table == nil {
		return nil
	}
	if len(v.Category.DisplayColumns) == 0 {
		return v.table.Columns
	}
	out := v.table.PresentColumns(v.Category.DisplayColumns)
	listed := make(map[string]struct{}, len(out))
	for _, c := range out {
		listed[c] = struct{}{}
	}
	for _, c := range v.table.Columns {
		if _, ok := listed[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Dimensions lists the classified dimensions in category order.
func (v *View) Dimensions() []string {
	out := make([]string, len(v.Summaries))
	for i, s := range v.Summaries {
		out[i] = s.Dimension
	}
	return out
}

// Summary returns the counts for dimension.
func (v *View) Summary(dimension string) (Summary, error) {
	for _, s := range v.Summaries {
		if s.Dimension == dimension {
			return s, nil
		}
	}
	return Summary{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
}

// Rows returns the members of one bucket.
func (v *View) Rows(dimension, bucket string) ([]Row, error) {
	rule, err := v.bucketRule(dimension, bucket)
	if err != nil {
		return nil, err
	}
	return Members(rule, v.table, bucket), nil
}

// BucketColumns returns the columns that describe a bucket's rows, limited to
// those the table carries.
func (v *View) BucketColumns(dimension, bucket string) ([]string, error) {
	rule, err := v.bucketRule(dimension, bucket)
	if err != nil {
		return nil, err
	}
	return v.table.PresentColumns(BucketColumns(rule, bucket)), nil
}

// Violations groups the rows of one severity bucket by violation identifier.
func (v *View) Violations(severity string) ([]Violation, error) {
	spec := v.Category.Violations
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoViolations, v.Category.Name)
	}
	rows, err := v.Rows(spec.Dimension, severity)
	if err != nil {
		return nil, err
	}
	return GroupViolations(*spec, rows), nil
}

// ExcludedReasons tallies excluded batches by reason.
func (v *View) ExcludedReasons() map[string]int {
	out := make(map[string]int)
	for _, e := range v.Excluded {
		out[e.Reason]++
	}
	return out
}

// BucketNames returns the bucket names of dimension in order, or nil when the
// dimension is unknown.
func (v *View) BucketNames(dimension string) []string {
	s, err := v.Summary(dimension)
	if err != nil {
		return nil
	}
	out := make([]string, len(s.Buckets))
	for i, b := range s.Buckets {
		out[i] = b.Bucket
	}
	return out
}

func (v *View) bucketRule(dimension, bucket string) (Rule, error) {
	rule, ok := v.rules[dimension]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, dimension)
	}
	s, err := v.Summary(dimension)
	if err != nil {
		return nil, err
	}
	if !s.HasBucket(bucket) {
		return nil, fmt.Errorf("%w: %q not in %v", ErrUnknownBucket, bucket, v.BucketNames(dimension))
	}
	return rule, nil
}
