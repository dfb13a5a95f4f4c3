package report

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoRule(t *testing.T, dimension string) Rule {
	t.Helper()
	r, ok := mustCategory(t, CategorySEO).Rule(dimension)
	require.True(t, ok, dimension)
	return r
}

func TestSEOScoreBoundaries(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionSEOScore)
	tests := []struct {
		score  string
		bucket string
		reason string
	}{
		{"0", "Very Bad (0-49)", ""},
		{"49", "Very Bad (0-49)", ""},
		{"49.5", "Bad (50-69)", ""},
		{"50", "Bad (50-69)", ""},
		{"69", "Bad (50-69)", ""},
		{"70", "Average (70-79)", ""},
		{"80", "Good (80-89)", ""},
		{"89", "Good (80-89)", ""},
		{"90", "Very Good (90-100)", ""},
		{"100", "Very Good (90-100)", ""},
		{"100.5", "", ReasonOutOfRange},
		{"-1", "", ReasonOutOfRange},
		{"abc", "", ReasonNotNumeric},
		{"NaN", "", ReasonNotNumeric},
		{"", "", ReasonMissingValue},
	}
	for _, tt := range tests {
		bucket, reason := rule.Assign(Row{"SEO Score": tt.score})
		assert.Equal(t, tt.bucket, bucket, "score %q", tt.score)
		assert.Equal(t, tt.reason, reason, "score %q", tt.score)
	}
}

func TestSEOScoreScenarioPartition(t *testing.T) {
	t.Parallel()

	tbl := &Table{Columns: []string{"Original Url", "SEO Score"}}
	for _, score := range []int{10, 55, 75, 85, 95} {
		for i := 0; i < 20; i++ {
			tbl.Rows = append(tbl.Rows, Row{"SEO Score": strconv.Itoa(score)})
		}
	}

	got := Classify(seoRule(t, DimensionSEOScore), tbl)
	want := Summary{
		Dimension: DimensionSEOScore,
		Buckets: []BucketCount{
			{Bucket: "Very Bad (0-49)", Count: 20},
			{Bucket: "Bad (50-69)", Count: 20},
			{Bucket: "Average (70-79)", Count: 20},
			{Bucket: "Good (80-89)", Count: 20},
			{Bucket: "Very Good (90-100)", Count: 20},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 100, got.Classified())
}

func TestSEOScoreExcludedRowsAreCounted(t *testing.T) {
	t.Parallel()

	tbl := &Table{Rows: []Row{
		{"SEO Score": "42"}, {"SEO Score": "n/a"}, {"SEO Score": "120"}, {}, {"SEO Score": "91"},
	}}
	got := Classify(seoRule(t, DimensionSEOScore), tbl)

	assert.Equal(t, 2, got.Classified())
	assert.Equal(t, 3, got.Excluded)
	assert.Equal(t, map[string]int{ReasonNotNumeric: 1, ReasonOutOfRange: 1, ReasonMissingValue: 1}, got.ExcludedReasons)
	assert.Equal(t, tbl.Len(), got.Classified()+got.Excluded)
}

func TestBandMembersSortedByScore(t *testing.T) {
	t.Parallel()

	tbl := &Table{Rows: []Row{
		{"Original Url": "c", "SEO Score": "40"},
		{"Original Url": "a", "SEO Score": "3"},
		{"Original Url": "b", "SEO Score": "12.5"},
	}}
	rows := Members(seoRule(t, DimensionSEOScore), tbl, "Very Bad (0-49)")
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0]["Original Url"])
	assert.Equal(t, "b", rows[1]["Original Url"])
	assert.Equal(t, "c", rows[2]["Original Url"])
}

func TestTitleLength(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionTitleLength).(LengthRule)
	tests := []struct {
		length float64
		want   string
	}{
		{0, BucketTooShort},
		{29, BucketTooShort},
		{30, BucketWithinRange},
		{60, BucketWithinRange},
		{61, BucketTooLong},
	}
	for _, tt := range tests {
		got := rule.Bucket(tt.length)
		assert.Equal(t, tt.want, got, "length %v", tt.length)
		assert.Equal(t, tt.length < rule.Lower || tt.length == 0, got == BucketTooShort, "length %v", tt.length)
		assert.Equal(t, tt.length > rule.Upper, got == BucketTooLong, "length %v", tt.length)
	}

	_, reason := rule.Assign(Row{"Title 1 Length": "long"})
	assert.Equal(t, ReasonNotNumeric, reason)
}

func TestDescriptionLength(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionDescLength)
	for raw, want := range map[string]string{
		"0": BucketTooShort, "49": BucketTooShort, "50": BucketWithinRange, "160": BucketWithinRange, "161": BucketTooLong,
	} {
		got, _ := rule.Assign(Row{"Meta Description 1 Length": raw})
		assert.Equal(t, want, got, raw)
	}
}

func TestPresence(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionTitlePresence)
	tbl := &Table{Rows: []Row{
		{"Title 1": "Home"},
		{"Title 1": ""},
		{"Title 1": "Missing"},
		{},
	}}
	got := Classify(rule, tbl)
	assert.Equal(t, []BucketCount{{BucketPresent, 1}, {BucketMissing, 3}}, got.Buckets)
	assert.Zero(t, got.Excluded)
}

func TestIndexabilityDynamicBuckets(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionIndexability)
	tbl := &Table{Rows: []Row{
		{"Indexability Status": "Redirected"},
		{"Indexability Status": "Canonicalised"},
		{"Indexability Status": "nan"},
		{"Indexability Status": "Unknown"},
		{},
		{"Indexability Status": "Redirected"},
		{"Indexability Status": "Duplicate"},
	}}

	got := Classify(rule, tbl)
	assert.Equal(t, []BucketCount{{"Canonicalised", 1}, {"Duplicate", 1}, {"Redirected", 2}}, got.Buckets)
	assert.Equal(t, 3, got.Excluded)
	assert.Equal(t, map[string]int{ReasonUnknown: 3}, got.ExcludedReasons)

	assert.Equal(t, []string{"Original Url", "Status Code", "Redirect URL"}, BucketColumns(rule, "redirected"))
	assert.Equal(t, []string{"Original Url"}, BucketColumns(rule, "Duplicate"))
}

func TestHeadingExcludesRedirects(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionH1)
	tbl := &Table{Rows: []Row{
		{"Status Code": "200"},
		{"Status Code": "200", "H1-1": "Welcome"},
		{"Status Code": "200", "H1-1": "Welcome", "H1-2": "Again"},
		{"Status Code": "301"},
		{"Status Code": "300", "H1-1": "a", "H1-2": "b"},
		{"Status Code": "399", "H1-1": "x"},
		{"Status Code": "400"},
		{"Status Code": "unknown", "H1-1": "x"},
	}}

	got := Classify(rule, tbl)
	assert.Equal(t, []BucketCount{{BucketMissing, 2}, {BucketSingle, 2}, {BucketMultiple, 1}}, got.Buckets)
	assert.Equal(t, 3, got.Excluded)
	assert.Equal(t, map[string]int{ReasonRedirect: 3}, got.ExcludedReasons)
}

func TestHeadingWithoutFirstIsMissing(t *testing.T) {
	t.Parallel()

	rule := seoRule(t, DimensionH1)
	tests := []struct {
		row  Row
		want string
	}{
		{Row{"Status Code": "200", "H1-2": "Second only"}, BucketMissing},
		{Row{"Status Code": "200", "H1-1": "", "H1-2": "Second only"}, BucketMissing},
		{Row{"Status Code": "200", "H1-1": "First", "H1-2": ""}, BucketSingle},
		{Row{"Status Code": "200", "H1-1": "First", "H1-2": "Second"}, BucketMultiple},
	}
	for _, tt := range tests {
		got, reason := rule.Assign(tt.row)
		assert.Empty(t, reason)
		assert.Equal(t, tt.want, got, "row %v", tt.row)
	}
}

func TestSeverityOrderAndUnrecognized(t *testing.T) {
	t.Parallel()

	rule, ok := mustCategory(t, CategoryAccessibility).Rule(DimensionImpact)
	require.True(t, ok)
	tbl := &Table{Rows: []Row{
		{"Impact": "minor"}, {"Impact": "Critical"}, {"Impact": "bogus"}, {}, {"Impact": "minor"},
	}}
	got := Classify(rule, tbl)
	assert.Equal(t, []BucketCount{{"critical", 1}, {"serious", 0}, {"moderate", 0}, {"minor", 2}}, got.Buckets)
	assert.Equal(t, map[string]int{ReasonUnrecognized: 1, ReasonMissingValue: 1}, got.ExcludedReasons)
}

func TestGroupViolations(t *testing.T) {
	t.Parallel()

	spec := *mustCategory(t, CategoryAccessibility).Violations
	rows := []Row{
		{"Violation ID": "label", "Description": "first label", "Recommendation": "add label", "URL": "/a", "Element": "input", "Location": "L1"},
		{"Violation ID": "contrast", "Description": "low contrast", "Recommendation": "darken", "URL": "/b", "Element": "p", "Location": "L2"},
		{"Violation ID": "contrast", "Description": "other text", "Recommendation": "other", "URL": "/c", "Element": "span", "Location": "L3"},
		{"Description": "no id"},
		{"Violation ID": "alt", "Description": "alt", "Recommendation": "add alt", "URL": "/d"},
	}

	got := GroupViolations(spec, rows)
	require.Len(t, got, 3)
	assert.Equal(t, "contrast", got[0].ID)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "low contrast", got[0].Description)
	assert.Equal(t, "darken", got[0].Recommendation)
	assert.Equal(t, []Row{
		{"URL": "/b", "Element": "p", "Location": "L2"},
		{"URL": "/c", "Element": "span", "Location": "L3"},
	}, got[0].Locations)
	assert.Equal(t, "label", got[1].ID)
	assert.Equal(t, "alt", got[2].ID)
	assert.Equal(t, []Row{{"URL": "/d"}}, got[2].Locations)
}
