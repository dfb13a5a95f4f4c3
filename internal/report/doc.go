// Package report turns raw crawl-report artifacts into categorized views.
//
// The package is pure computation: it resolves artifact names to monthly
// periods, concatenates same-period tables, and runs category-specific
// classification rules over the result. Fetching artifacts is the caller's job.
package report
