package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seoTable(rows ...Row) *Table {
	return &Table{
		Columns: []string{
			"Original Url", "Status Code", "Indexability Status", "Title 1", "Title 1 Length",
			"Meta Description 1", "Meta Description 1 Length", "H1-1", "H1-2", "SEO Score",
		},
		Rows: rows,
	}
}

func TestBuildViewSEO(t *testing.T) {
	t.Parallel()

	jan1 := seoTable(
		Row{"Original Url": "/a", "Status Code": "200", "SEO Score": "95", "Title 1": "Home", "Title 1 Length": "45",
			"Meta Description 1 Length": "0", "H1-1": "Home", "Indexability Status": "Canonicalised"},
		Row{"Original Url": "/b", "Status Code": "301", "SEO Score": "40", "Title 1 Length": "0",
			"Meta Description 1 Length": "170", "Indexability Status": "Redirected"},
	)
	jan2 := seoTable(
		Row{"Original Url": "/c", "Status Code": "200", "SEO Score": "bad", "Title 1": "C", "Title 1 Length": "70",
			"Meta Description 1 Length": "80", "H1-1": "x", "H1-2": "y"},
	)
	feb := seoTable(Row{"Original Url": "/z", "SEO Score": "10"})

	view, err := BuildView(CategorySEO, "2024-01", []Artifact{
		{ID: "seo_report_2024-01-05.csv.gz", Table: jan1},
		{ID: "seo_report_2024-01-19.csv.gz", Table: jan2},
		{ID: "seo_report_2024-01-25.csv.gz", Err: errors.New("storage unavailable")},
		{ID: "seo_report_2024-02-02.csv.gz", Table: feb},
		{ID: "seo_report_draft.csv.gz"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, view.TotalRows)
	assert.Equal(t, []string{
		"seo_report_2024-01-05.csv.gz", "seo_report_2024-01-19.csv.gz", "seo_report_2024-01-25.csv.gz",
	}, view.Artifacts)
	assert.Equal(t, map[string]int{ReasonFetchFailed: 1}, view.ExcludedReasons())
	assert.Equal(t, []string{"seo_report_draft.csv.gz"}, view.Malformed)
	assert.Empty(t, view.Warnings)
	assert.Equal(t, []string{
		DimensionSEOScore, DimensionIndexability, DimensionTitlePresence, DimensionTitleLength,
		DimensionDescPresence, DimensionDescLength, DimensionH1,
	}, view.Dimensions())

	score, err := view.Summary(DimensionSEOScore)
	require.NoError(t, err)
	assert.Equal(t, 1, score.Count("Very Good (90-100)"))
	assert.Equal(t, 1, score.Count("Very Bad (0-49)"))
	assert.Equal(t, 1, score.Excluded)

	h1, err := view.Summary(DimensionH1)
	require.NoError(t, err)
	assert.Equal(t, []BucketCount{{BucketMissing, 0}, {BucketSingle, 1}, {BucketMultiple, 1}}, h1.Buckets)
	assert.Equal(t, 1, h1.Excluded)

	rows, err := view.Rows(DimensionTitleLength, BucketTooShort)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "/b", rows[0]["Original Url"])

	cols, err := view.BucketColumns(DimensionIndexability, "Redirected")
	require.NoError(t, err)
	assert.Equal(t, []string{"Original Url", "Status Code"}, cols)

	_, err = view.Rows(DimensionSEOScore, "Excellent")
	require.ErrorIs(t, err, ErrUnknownBucket)
	_, err = view.Rows("Nope", "x")
	require.ErrorIs(t, err, ErrUnknownDimension)
	_, err = view.Violations("critical")
	require.ErrorIs(t, err, ErrNoViolations)
}

func TestBuildViewSchemaWarningsArePartial(t *testing.T) {
	t.Parallel()

	tbl := &Table{
		Columns: []string{"Original Url", "SEO Score", "Title 1"},
		Rows:    []Row{{"Original Url": "/a", "SEO Score": "72", "Title 1": "A"}},
	}
	view, err := BuildView(CategorySEO, "2024-03", []Artifact{{ID: "seo_report_2024-03-01.csv.gz", Table: tbl}})
	require.NoError(t, err)

	assert.Equal(t, []string{DimensionSEOScore, DimensionTitlePresence}, view.Dimensions())
	assert.Contains(t, view.Warnings, SchemaWarning{Dimension: DimensionTitleLength, Column: "Title 1 Length"})
	assert.Contains(t, view.Warnings, SchemaWarning{Dimension: DimensionH1, Column: "H1-1"})
	assert.Contains(t, view.Warnings, SchemaWarning{Dimension: DimensionH1, Column: "Status Code"})
	assert.Equal(t, `missing column "H1-1" (H1 Tags)`, SchemaWarning{Dimension: DimensionH1, Column: "H1-1"}.String())
}

func TestBuildViewAccessibilityViolations(t *testing.T) {
	t.Parallel()

	tbl := &Table{
		Columns: accessibilityColumns,
		Rows: []Row{
			{"URL": "/a", "Impact": "critical", "Violation ID": "label", "Description": "d1", "Recommendation": "r1"},
			{"URL": "/b", "Impact": "serious", "Violation ID": "contrast", "Description": "d2", "Recommendation": "r2"},
			{"URL": "/c", "Impact": "critical", "Violation ID": "label", "Description": "d3", "Recommendation": "r3"},
		},
	}
	view, err := BuildView("Accessibility", "2024-05", []Artifact{{ID: "accessibility_report_2024-05-01.csv.gz", Table: tbl}})
	require.NoError(t, err)

	violations, err := view.Violations("critical")
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, 2, violations[0].Count)
	assert.Equal(t, "d1", violations[0].Description)

	moderate, err := view.Violations("moderate")
	require.NoError(t, err)
	assert.Empty(t, moderate)
}

func TestBuildViewBrokenLinksHasRawRowsOnly(t *testing.T) {
	t.Parallel()

	tbl := &Table{Columns: []string{"Source", "Target", "Status"}, Rows: []Row{{"Source": "/a", "Target": "/x", "Status": "404"}}}
	view, err := BuildView(CategoryBrokenLinks, "2024-06", []Artifact{
		{ID: "broken_links_report_2024-06-03.csv.gz", Table: tbl},
		{ID: "broken_links_report_2024-06-10.csv.gz", Table: &Table{}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalRows)
	assert.Empty(t, view.Summaries)
	assert.Equal(t, []string{"Source", "Target", "Status"}, view.Columns())
	assert.Equal(t, map[string]int{ReasonEmpty: 1}, view.ExcludedReasons())
}

func TestBuildViewErrors(t *testing.T) {
	t.Parallel()

	_, err := BuildView("lighthouse", "2024-01", nil)
	require.ErrorIs(t, err, ErrUnknownCategory)

	_, err = BuildView(CategorySEO, "2024-09", []Artifact{{ID: "seo_report_2024-01-05.csv.gz", Table: seoTable(Row{})}})
	require.ErrorIs(t, err, ErrPeriodNotFound)

	_, err = BuildView(CategorySEO, "2024-01", []Artifact{{ID: "seo_report_2024-01-05.csv.gz", Table: &Table{}}})
	require.ErrorIs(t, err, ErrNoValidData)
}

func TestBuildViewNoValidDataKeepsExclusions(t *testing.T) {
	t.Parallel()

	view, err := BuildView(CategorySEO, "2024-01", []Artifact{
		{ID: "seo_report_2024-01-05.csv.gz", Table: &Table{Columns: seoTable().Columns}},
		{ID: "seo_report_2024-01-12.csv.gz", Table: &Table{Columns: []string{"Other"}, Rows: []Row{{"Other": "x"}}}},
		{ID: "seo_report_final.csv.gz"},
	})
	require.ErrorIs(t, err, ErrNoValidData)
	require.NotNil(t, view)

	assert.Equal(t, []string{"seo_report_2024-01-05.csv.gz", "seo_report_2024-01-12.csv.gz"}, view.Artifacts)
	assert.Equal(t, map[string]int{ReasonEmpty: 1, ReasonNoSchema: 1}, view.ExcludedReasons())
	assert.Equal(t, []string{"seo_report_final.csv.gz"}, view.Malformed)
	assert.Zero(t, view.TotalRows)
	assert.Nil(t, view.Table())
	assert.Nil(t, view.Columns())
	assert.Empty(t, view.Summaries)
}

func TestMalformedNamesAreNotExcludedBatches(t *testing.T) {
	t.Parallel()

	empty := &Table{Columns: seoTable().Columns}
	view, err := BuildView(CategorySEO, "2024-02", []Artifact{
		{ID: "seo_report_2024-02-01.csv.gz", Table: empty},
		{ID: "seo_report_2024-02-08.csv.gz", Table: empty},
		{ID: "seo_report_2024-02-15.csv.gz", Table: seoTable(Row{"Original Url": "/a", "SEO Score": "81"})},
		{ID: "seo_report_final.csv.gz", Table: seoTable(Row{"Original Url": "/b"})},
	})
	require.NoError(t, err)

	assert.Len(t, view.Excluded, 2)
	assert.Equal(t, map[string]int{ReasonEmpty: 2}, view.ExcludedReasons())
	assert.Equal(t, []string{"seo_report_final.csv.gz"}, view.Malformed)
	assert.Equal(t, 1, view.TotalRows)
}

func TestViewColumnsFollowDisplayOrder(t *testing.T) {
	t.Parallel()

	tbl := &Table{Columns: []string{"Custom", "SEO Score", "Original Url"}, Rows: []Row{{"SEO Score": "50"}}}
	view, err := BuildView(CategorySEO, "2024-01", []Artifact{{ID: "seo_report_2024-01-05.csv.gz", Table: tbl}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Original Url", "Custom", "SEO Score"}, view.Columns())
}
