package report

import (
	"fmt"
	"strings"
)

// Category names.
const (
	CategoryAccessibility = "accessibility"
	CategoryBrokenLinks   = "broken_links"
	CategorySEO           = "seo"
)

// Dimension names.
const (
	DimensionImpact        = "Impact"
	DimensionSEOScore      = "SEO Score"
	DimensionIndexability  = "Indexability Status"
	DimensionTitlePresence = "Title Presence"
	DimensionTitleLength   = "Title Length"
	DimensionDescPresence  = "Meta Description Presence"
	DimensionDescLength    = "Meta Description Length"
	DimensionH1            = "H1 Tags"
)

const (
	columnOriginalURL        = "Original Url"
	columnStatusCode         = "Status Code"
	columnTitle              = "Title 1"
	columnTitleLength        = "Title 1 Length"
	columnDescription        = "Meta Description 1"
	columnDescriptionLength  = "Meta Description 1 Length"
	columnIndexabilityStatus = "Indexability Status"
	columnSEOScore           = "SEO Score"
	columnRedirectURL        = "Redirect URL"
	columnH1First            = "H1-1"
	columnH1Second           = "H1-2"
	columnViolationID        = "Violation ID"
	columnImpact             = "Impact"
	columnViolationDesc      = "Description"
	columnRecommendation     = "Recommendation"
)

// Category is the configuration of one report type: how its artifacts are
// named, which columns it expects, and which rules classify it.
type Category struct {
	Name  string
	Title string
	// Prefix is the artifact name prefix, e.g. "seo_report_".
	Prefix string
	// Segments is the number of "_"-separated tokens in an artifact name.
	Segments int
	// DateSegment is the index of the date token.
	DateSegment int
	// Expected lists the columns an artifact of this category should carry.
	// Empty disables the schema check.
	Expected []string
	// DisplayColumns orders the raw table for presentation. Empty means all.
	DisplayColumns []string
	Rules          []Rule
	Violations     *ViolationSpec
}

// Rule returns the rule for dimension.
func (c Category) Rule(dimension string) (Rule, bool) {
	for _, r := range c.Rules {
		if r.Dimension() == dimension {
			return r, true
		}
	}
	return nil, false
}

// Severities is the fixed order of accessibility impact levels.
var Severities = []string{"critical", "serious", "moderate", "minor"}

// SEOBands are the fixed SEO score bands.
var SEOBands = []Band{
	{Name: "Very Bad (0-49)", Min: 0, Max: 49},
	{Name: "Bad (50-69)", Min: 50, Max: 69},
	{Name: "Average (70-79)", Min: 70, Max: 79},
	{Name: "Good (80-89)", Min: 80, Max: 89},
	{Name: "Very Good (90-100)", Min: 90, Max: 100},
}

var accessibilityColumns = []string{
	"URL", "Element", "Location", columnImpact, columnViolationID, columnViolationDesc, columnRecommendation,
}

var seoColumns = []string{
	columnOriginalURL,
	"Address",
	"Content Type",
	columnStatusCode,
	"Status",
	"Indexability",
	columnIndexabilityStatus,
	columnTitle,
	columnTitleLength,
	"Title 1 Pixel Width",
	columnDescription,
	columnDescriptionLength,
	"Meta Description 1 Pixel Width",
	"Meta Keywords 1",
	"Meta Keywords 1 Length",
	columnH1First,
	"H1-1 Length",
	columnH1Second,
	"H1-2 Length",
	"H2-1",
	"H2-1 Length",
	"H2-2",
	"H2-2 Length",
	"Meta Robots 1",
	"X-Robots-Tag 1",
	"Meta Refresh 1",
	"Canonical Link Element 1",
}

var registry = []Category{
	{
		Name:           CategoryAccessibility,
		Title:          "Accessibility",
		Prefix:         "accessibility_report_",
		Segments:       3,
		DateSegment:    2,
		Expected:       accessibilityColumns,
		DisplayColumns: accessibilityColumns,
		Rules: []Rule{
			OrderedRule{
				Name:  DimensionImpact,
				Field: columnImpact,
				Order: Severities,
				Show:  []string{"URL", columnViolationID, columnViolationDesc},
			},
		},
		Violations: &ViolationSpec{
			Dimension:           DimensionImpact,
			IDField:             columnViolationID,
			DescriptionField:    columnViolationDesc,
			RecommendationField: columnRecommendation,
			LocationFields:      []string{"URL", "Element", "Location"},
		},
	},
	{
		Name:        CategoryBrokenLinks,
		Title:       "Broken Links",
		Prefix:      "broken_links_report_",
		Segments:    4,
		DateSegment: 3,
	},
	{
		Name:           CategorySEO,
		Title:          "SEO",
		Prefix:         "seo_report_",
		Segments:       3,
		DateSegment:    2,
		Expected:       seoColumns,
		DisplayColumns: seoColumns,
		Rules: []Rule{
			BandRule{
				Name:  DimensionSEOScore,
				Field: columnSEOScore,
				Bands: SEOBands,
				Show:  []string{columnOriginalURL, columnSEOScore},
			},
			DynamicRule{
				Name:    DimensionIndexability,
				Field:   columnIndexabilityStatus,
				Unknown: []string{"nan", "Unknown"},
				Show:    []string{columnOriginalURL},
				ShowFor: map[string][]string{
					"Redirected": {columnOriginalURL, columnStatusCode, columnRedirectURL},
				},
			},
			PresenceRule{
				Name:     DimensionTitlePresence,
				Field:    columnTitle,
				Sentinel: BucketMissing,
				Show:     []string{columnOriginalURL, columnTitle},
			},
			LengthRule{
				Name:  DimensionTitleLength,
				Field: columnTitleLength,
				Lower: 30,
				Upper: 60,
				Show:  []string{columnOriginalURL, columnTitle, columnTitleLength},
			},
			PresenceRule{
				Name:     DimensionDescPresence,
				Field:    columnDescription,
				Sentinel: BucketMissing,
				Show:     []string{columnOriginalURL, columnDescription},
			},
			LengthRule{
				Name:  DimensionDescLength,
				Field: columnDescriptionLength,
				Lower: 50,
				Upper: 160,
				Show:  []string{columnOriginalURL, columnDescription, columnDescriptionLength},
			},
			HeadingRule{
				Name:        DimensionH1,
				Headings:    []string{columnH1First, columnH1Second},
				StatusField: columnStatusCode,
				RedirectMin: 300,
				RedirectMax: 399,
				Show:        []string{columnOriginalURL, columnH1First, columnH1Second},
			},
		},
	},
}

// Categories returns every supported category in presentation order.
func Categories() []Category {
	out := make([]Category, len(registry))
	copy(out, registry)
	return out
}

// LookupCategory finds a category by name, ignoring case.
func LookupCategory(name string) (Category, error) {
	for _, c := range registry {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}
