package report

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Buckets shared by several rule kinds.
const (
	BucketTooShort    = "Too Short"
	BucketWithinRange = "Within Range"
	BucketTooLong     = "Too Long"
	BucketPresent     = "Present"
	BucketMissing     = "Missing"
	BucketSingle      = "Single"
	BucketMultiple    = "Multiple"
)

// OrderedRule buckets a categorical field into a fixed, ordered value set.
// Matching ignores case and surrounding space.
type OrderedRule struct {
	Name  string
	Field string
	Order []string
	Show  []string
}

// Dimension implements Rule.
func (r OrderedRule) Dimension() string { return r.Name }

// Fields implements Rule.
func (r OrderedRule) Fields() []string { return []string{r.Field} }

// Buckets implements Rule.
func (r OrderedRule) Buckets(*Table) []string { return r.Order }

// Assign implements Rule.
func (r OrderedRule) Assign(row Row) (string, string) {
	v, ok := row.Value(r.Field)
	if !ok {
		return "", ReasonMissingValue
	}
	v = strings.TrimSpace(v)
	for _, o := range r.Order {
		if strings.EqualFold(o, v) {
			return o, ""
		}
	}
	return "", ReasonUnrecognized
}

// Columns implements columnHinter.
func (r OrderedRule) Columns(string) []string { return r.Show }

// Band is a closed numeric interval with a label.
type Band struct {
	Name string
	Min  float64
	Max  float64
}

// BandRule buckets a numeric field into contiguous bands sorted by Max.
// Values are never clamped: anything outside [first.Min, last.Max] is excluded.
// A value between two bands' integer bounds falls into the first band whose
// Max it does not exceed.
type BandRule struct {
	Name  string
	Field string
	Bands []Band
	Show  []string
}

// Dimension implements Rule.
func (r BandRule) Dimension() string { return r.Name }

// Fields implements Rule.
func (r BandRule) Fields() []string { return []string{r.Field} }

// Buckets implements Rule.
func (r BandRule) Buckets(*Table) []string {
	out := make([]string, len(r.Bands))
	for i, b := range r.Bands {
		out[i] = b.Name
	}
	return out
}

// Assign implements Rule.
func (r BandRule) Assign(row Row) (string, string) {
	v, reason := numericField(row, r.Field)
	if reason != "" {
		return "", reason
	}
	if len(r.Bands) == 0 || v < r.Bands[0].Min || v > r.Bands[len(r.Bands)-1].Max {
		return "", ReasonOutOfRange
	}
	for _, b := range r.Bands {
		if v <= b.Max {
			return b.Name, ""
		}
	}
	return "", ReasonOutOfRange
}

// Less orders band members by ascending value.
func (r BandRule) Less(a, b Row) bool {
	va, _ := numericField(a, r.Field)
	vb, _ := numericField(b, r.Field)
	return va < vb
}

// Columns implements columnHinter.
func (r BandRule) Columns(string) []string { return r.Show }

// DynamicRule buckets a field by its distinct values, sorted lexicographically.
// Absent values and those listed in Unknown (case-insensitive) are excluded.
type DynamicRule struct {
	Name    string
	Field   string
	Unknown []string
	Show    []string
	// ShowFor overrides Show for specific buckets, matched case-insensitively.
	ShowFor map[string][]string
}

// Dimension implements Rule.
func (r DynamicRule) Dimension() string { return r.Name }

// Fields implements Rule.
func (r DynamicRule) Fields() []string { return []string{r.Field} }

// Buckets implements Rule.
func (r DynamicRule) Buckets(t *Table) []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, row := range t.Rows {
		b, _ := r.Assign(row)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Assign implements Rule.
func (r DynamicRule) Assign(row Row) (string, string) {
	v, ok := row.Value(r.Field)
	if !ok {
		return "", ReasonUnknown
	}
	for _, u := range r.Unknown {
		if strings.EqualFold(u, v) {
			return "", ReasonUnknown
		}
	}
	return v, ""
}

// Columns implements columnHinter.
func (r DynamicRule) Columns(bucket string) []string {
	for k, cols := range r.ShowFor {
		if strings.EqualFold(k, bucket) {
			return cols
		}
	}
	return r.Show
}

// LengthRule flags a length field as too short or too long.
// A length of zero is always too short. Lower and Upper are disjoint by
// construction, so a row matches at most one issue bucket.
type LengthRule struct {
	Name  string
	Field string
	Lower float64
	Upper float64
	Show  []string
}

// Dimension implements Rule.
func (r LengthRule) Dimension() string { return r.Name }

// Fields implements Rule.
func (r LengthRule) Fields() []string { return []string{r.Field} }

// Buckets implements Rule.
func (r LengthRule) Buckets(*Table) []string {
	return []string{BucketTooShort, BucketWithinRange, BucketTooLong}
}

// Assign implements Rule.
func (r LengthRule) Assign(row Row) (string, string) {
	n, reason := numericField(row, r.Field)
	if reason != "" {
		return "", reason
	}
	return r.Bucket(n), ""
}

// Bucket classifies a single length.
func (r LengthRule) Bucket(n float64) string {
	switch {
	case n < r.Lower || n == 0:
		return BucketTooShort
	case n > r.Upper:
		return BucketTooLong
	default:
		return BucketWithinRange
	}
}

// Columns implements columnHinter.
func (r LengthRule) Columns(string) []string { return r.Show }

// PresenceRule classifies a text field as present or missing. Empty cells and
// the Sentinel value count as missing. No row is ever excluded.
type PresenceRule struct {
	Name     string
	Field    string
	Sentinel string
	Show     []string
}

// Dimension implements Rule.
func (r PresenceRule) Dimension() string { return r.Name }

// Fields implements Rule.
func (r PresenceRule) Fields() []string { return []string{r.Field} }

// Buckets implements Rule.
func (r PresenceRule) Buckets(*Table) []string { return []string{BucketPresent, BucketMissing} }

// Assign implements Rule.
func (r PresenceRule) Assign(row Row) (string, string) {
	v, ok := row.Value(r.Field)
	if !ok || (r.Sentinel != "" && v == r.Sentinel) {
		return BucketMissing, ""
	}
	return BucketPresent, ""
}

// Columns implements columnHinter.
func (r PresenceRule) Columns(string) []string { return r.Show }

// HeadingRule counts the non-empty occurrences of a repeated heading field.
// Pages whose status code falls in [RedirectMin, RedirectMax] are excluded;
// a status that is not numeric does not exclude the page.
type HeadingRule struct {
	Name        string
	Headings    []string
	StatusField string
	RedirectMin float64
	RedirectMax float64
	Show        []string
}

// Dimension implements Rule.
func (r HeadingRule) Dimension() string { return r.Name }

// Fields implements Rule.
func (r HeadingRule) Fields() []string {
	out := append([]string(nil), r.Headings...)
	return append(out, r.StatusField)
}

// Buckets implements Rule.
func (r HeadingRule) Buckets(*Table) []string {
	return []string{BucketMissing, BucketSingle, BucketMultiple}
}

// Assign implements Rule.
func (r HeadingRule) Assign(row Row) (string, string) {
	if status, reason := numericField(row, r.StatusField); reason == "" &&
		status >= r.RedirectMin && status <= r.RedirectMax {
		return "", ReasonRedirect
	}
	if len(r.Headings) == 0 {
		return BucketMissing, ""
	}
	// A page without a first heading has no H1, whatever later columns hold.
	if _, ok := row.Value(r.Headings[0]); !ok {
		return BucketMissing, ""
	}
	n := 0
	for _, h := range r.Headings {
		if _, ok := row.Value(h); ok {
			n++
		}
	}
	switch n {
	case 0:
		return BucketMissing, ""
	case 1:
		return BucketSingle, ""
	default:
		return BucketMultiple, ""
	}
}

// Columns implements columnHinter.
func (r HeadingRule) Columns(string) []string { return r.Show }

func numericField(row Row, field string) (float64, string) {
	raw, ok := row.Value(field)
	if !ok {
		return 0, ReasonMissingValue
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, ReasonNotNumeric
	}
	return v, ""
}
