package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/crawl-reports/internal/dashboard"
	"github.com/JakeFAU/crawl-reports/internal/report"
)

const accessibilityCSV = `URL,Element,Location,Impact,Violation ID,Description,Recommendation
https://example.com/a,img,body,critical,image-alt,Images must have alternate text,Add an alt attribute
https://example.com/b,img,main,Critical,image-alt,Images must have alternate text,Add an alt attribute
https://example.com/c,input,form,serious,label,Form elements must have labels,Add a label
`

// writeFixture lays out an artifact directory and a config file pointing at it.
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(data, 0o750))
	files := map[string]string{
		"accessibility_report_2024-05-01.csv": accessibilityCSV,
		"accessibility_report_draft.csv":      accessibilityCSV,
		"accessibility_report_2024-06-01.csv": "URL,Element,Location,Impact,Violation ID,Description,Recommendation\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(data, name), []byte(body), 0o600))
	}
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`
storage:
  backend: local
  local:
    base_dir: %s
cache:
  enabled: false
logging:
  level: error
`, data)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--config", writeFixture(t), "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPeriodsTable(t *testing.T) {
	out, err := execute(t, "periods", "accessibility")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05")
	assert.Contains(t, out, "skipped artifact with malformed name")
	assert.Contains(t, out, "accessibility_report_draft.csv")
}

func TestViewJSON(t *testing.T) {
	out, err := execute(t, "view", "accessibility", "2024-05", "-o", "json")
	require.NoError(t, err)

	var doc viewDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "accessibility", doc.Category)
	assert.Equal(t, "2024-05", doc.Period)
	assert.Equal(t, 3, doc.TotalRows)
	require.Len(t, doc.Summaries, 1)
	assert.Equal(t, report.DimensionImpact, doc.Summaries[0].Dimension)
	assert.Equal(t, []bucketDoc{
		{Bucket: "critical", Count: 2},
		{Bucket: "serious", Count: 1},
		{Bucket: "moderate", Count: 0},
		{Bucket: "minor", Count: 0},
	}, doc.Summaries[0].Buckets)
}

func TestViewTable(t *testing.T) {
	out, err := execute(t, "view", "accessibility", "2024-05")
	require.NoError(t, err)
	assert.Contains(t, out, "accessibility 2024-05: 3 rows from 1 artifacts")
	assert.Contains(t, out, "critical")
	assert.Contains(t, out, "66.7%")
}

func TestViolationsYAML(t *testing.T) {
	out, err := execute(t, "violations", "accessibility", "2024-05", "--impact", "critical", "-o", "yaml")
	require.NoError(t, err)

	var violations []report.Violation
	require.NoError(t, yaml.Unmarshal([]byte(out), &violations))
	require.Len(t, violations, 1)
	assert.Equal(t, "image-alt", violations[0].ID)
	assert.Equal(t, 2, violations[0].Count)
	assert.Equal(t, "Add an alt attribute", violations[0].Recommendation)
}

func TestViolationsImpactIgnoresCase(t *testing.T) {
	out, err := execute(t, "violations", "accessibility", "2024-05", "--impact", " Critical", "-o", "json")
	require.NoError(t, err)

	var violations []report.Violation
	require.NoError(t, json.Unmarshal([]byte(out), &violations))
	require.Len(t, violations, 1)
	assert.Equal(t, 2, violations[0].Count)
}

func TestViewNoDataListsExclusions(t *testing.T) {
	out, err := execute(t, "view", "accessibility", "2024-06", "-o", "json")
	require.NoError(t, err)

	var doc viewDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "no_data", doc.Status)
	assert.Equal(t, []string{"accessibility_report_2024-06-01.csv"}, doc.Artifacts)
	require.Len(t, doc.Excluded, 1)
	assert.Equal(t, report.ReasonEmpty, doc.Excluded[0].Reason)

	out, err = execute(t, "view", "accessibility", "2024-06")
	require.NoError(t, err)
	assert.Contains(t, out, "no valid data")
	assert.Contains(t, out, "excluded accessibility_report_2024-06-01.csv (empty)")
}

func TestViolationsEmptyImpact(t *testing.T) {
	out, err := execute(t, "violations", "accessibility", "2024-05", "--impact", "minor")
	require.NoError(t, err)
	assert.Contains(t, out, "no minor violations in 2024-05")
}

func TestRowsLimit(t *testing.T) {
	out, err := execute(t, "rows", "accessibility", "2024-05", report.DimensionImpact, "critical", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "https://example.com/a")
	assert.NotContains(t, out, "https://example.com/b")
	assert.Contains(t, out, "showing 1 of 2 rows")
}

func TestRowsUnknownBucket(t *testing.T) {
	_, err := execute(t, "rows", "accessibility", "2024-05", report.DimensionImpact, "blocker")
	require.ErrorIs(t, err, report.ErrUnknownBucket)
}

func TestHistoryWithoutDatabase(t *testing.T) {
	_, err := execute(t, "history", "accessibility")
	require.ErrorIs(t, err, dashboard.ErrHistoryUnavailable)
}

func TestPrecomputeJSON(t *testing.T) {
	out, err := execute(t, "precompute", "-o", "json")
	require.NoError(t, err)

	var res dashboard.PrecomputeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Views)
	assert.Equal(t, 1, res.NoData)
	assert.Empty(t, res.Failures)
}

func TestUnsupportedOutput(t *testing.T) {
	_, err := execute(t, "categories", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestShare(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", share(1, 0))
	assert.Equal(t, "50.0%", share(1, 2))
	assert.Equal(t, "1,234", count(1234))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "abc", truncate("abc", 3))
}
