package report

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"
)

// ResolvePeriod extracts the YYYY-MM period embedded in an artifact name.
//
// The name may carry a path prefix and any extension. After stripping both,
// it must split on "_" into exactly the category's segment count, start with
// the category prefix, and hold a date token at the category's date position.
// Only the year-month part of the token is read, so "2024-01", "2024-01-05"
// and "2024-01-05T10:00" all resolve to "2024-01".
func ResolvePeriod(c Category, identifier string) (Period, error) {
	name := path.Base(identifier)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if !strings.HasPrefix(name, c.Prefix) {
		return "", fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedIdentifier, identifier, c.Prefix)
	}
	segments := strings.Split(name, "_")
	if len(segments) != c.Segments {
		return "", fmt.Errorf("%w: %q has %d segments, want %d",
			ErrMalformedIdentifier, identifier, len(segments), c.Segments)
	}
	token := segments[c.DateSegment]
	if len(token) < len(periodLayout) {
		return "", fmt.Errorf("%w: %q has no date token", ErrMalformedIdentifier, identifier)
	}
	if len(token) > len(periodLayout) && unicode.IsDigit(rune(token[len(periodLayout)])) {
		return "", fmt.Errorf("%w: %q has a malformed date token", ErrMalformedIdentifier, identifier)
	}
	t, err := time.Parse(periodLayout, token[:len(periodLayout)])
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedIdentifier, identifier, err)
	}
	return Period(t.Format(periodLayout)), nil
}

// PeriodGroups is the result of grouping a category's artifacts by month.
type PeriodGroups struct {
	// Periods lists every resolved period in ascending order.
	Periods []Period
	// Members maps a period to its identifiers, in input order.
	Members map[Period][]string
	// Malformed lists identifiers that did not resolve.
	Malformed []string
}

// Count returns the number of artifacts grouped under p.
func (g PeriodGroups) Count(p Period) int {
	return len(g.Members[p])
}

// GroupPeriods resolves every identifier and groups them by period.
func GroupPeriods(c Category, identifiers []string) PeriodGroups {
	groups := PeriodGroups{Members: make(map[Period][]string)}
	for _, id := range identifiers {
		p, err := ResolvePeriod(c, id)
		if err != nil {
			groups.Malformed = append(groups.Malformed, id)
			continue
		}
		if _, seen := groups.Members[p]; !seen {
			groups.Periods = append(groups.Periods, p)
		}
		groups.Members[p] = append(groups.Members[p], id)
	}
	sort.Slice(groups.Periods, func(i, j int) bool { return groups.Periods[i] < groups.Periods[j] })
	return groups
}
