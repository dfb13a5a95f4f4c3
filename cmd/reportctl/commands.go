package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-reports/internal/dashboard"
	"github.com/JakeFAU/crawl-reports/internal/report"
)

type categoryDoc struct {
	Name       string   `json:"name" yaml:"name"`
	Title      string   `json:"title" yaml:"title"`
	Dimensions []string `json:"dimensions" yaml:"dimensions"`
}

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the report categories served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			var docs []categoryDoc
			for _, c := range app.Service().Categories() {
				doc := categoryDoc{Name: c.Name, Title: c.Title, Dimensions: []string{}}
				for _, r := range c.Rules {
					doc.Dimensions = append(doc.Dimensions, r.Dimension())
				}
				docs = append(docs, doc)
			}
			p := newPrinter(cmd, opts)
			return p.emit(docs, func() {
				t := p.table("", table.Row{"Category", "Title", "Dimensions"})
				for _, d := range docs {
					t.AppendRow(table.Row{d.Name, d.Title, strings.Join(d.Dimensions, ", ")})
				}
				t.Render()
			})
		},
	}
}

func newPeriodsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "periods <category>",
		Short: "List the months a category has reports for",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			listing, err := app.Service().Periods(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p := newPrinter(cmd, opts)
			return p.emit(listing, func() {
				if len(listing.Periods) == 0 {
					p.warn("no %s reports found", listing.Category)
				} else {
					t := p.table(listing.Category, table.Row{"Period", "Artifacts"}, rightAligned(2)...)
					for _, info := range listing.Periods {
						t.AppendRow(table.Row{info.Period, count(info.Artifacts)})
					}
					t.Render()
				}
				for _, name := range listing.Malformed {
					p.warn("skipped artifact with malformed name: %s", name)
				}
			})
		},
	}
}

type viewDoc struct {
	Category  string         `json:"category" yaml:"category"`
	Period    string         `json:"period" yaml:"period"`
	Status    string         `json:"status" yaml:"status"`
	Artifacts []string       `json:"artifacts" yaml:"artifacts"`
	TotalRows int            `json:"total_rows" yaml:"total_rows"`
	Excluded  []exclusionDoc `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Warnings  []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Summaries []summaryDoc   `json:"summaries" yaml:"summaries"`
}

type exclusionDoc struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type summaryDoc struct {
	Dimension string         `json:"dimension" yaml:"dimension"`
	Buckets   []bucketDoc    `json:"buckets" yaml:"buckets"`
	Excluded  int            `json:"excluded" yaml:"excluded"`
	Reasons   map[string]int `json:"excluded_reasons,omitempty" yaml:"excluded_reasons,omitempty"`
}

type bucketDoc struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Count  int    `json:"count" yaml:"count"`
}

func newViewDoc(v *report.View) viewDoc {
	doc := viewDoc{
		Category:  v.Category.Name,
		Period:    v.Period.String(),
		Status:    "ok",
		Artifacts: v.Artifacts,
		TotalRows: v.TotalRows,
		Summaries: make([]summaryDoc, 0, len(v.Summaries)),
	}
	for _, e := range v.Excluded {
		doc.Excluded = append(doc.Excluded, exclusionDoc(e))
	}
	for _, w := range v.Warnings {
		doc.Warnings = append(doc.Warnings, w.String())
	}
	for _, s := range v.Summaries {
		sd := summaryDoc{Dimension: s.Dimension, Excluded: s.Excluded, Reasons: s.ExcludedReasons}
		for _, b := range s.Buckets {
			sd.Buckets = append(sd.Buckets, bucketDoc(b))
		}
		doc.Summaries = append(doc.Summaries, sd)
	}
	return doc
}

func newViewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "view <category> <period>",
		Short: "Show the classified bucket counts of one month",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			period, err := report.ParsePeriod(args[1])
			if err != nil {
				return err
			}
			v, err := app.Service().View(cmd.Context(), args[0], period)
			noData := errors.Is(err, report.ErrNoValidData) && v != nil
			if err != nil && !noData {
				return err
			}
			doc := newViewDoc(v)
			if noData {
				doc.Status = "no_data"
			}
			p := newPrinter(cmd, opts)
			return p.emit(doc, func() { renderView(p, doc) })
		},
	}
}

func renderView(p printer, doc viewDoc) {
	if doc.Status == "no_data" {
		p.fail("%s %s: no valid data, every batch was excluded", doc.Category, doc.Period)
	} else {
		p.heading("%s %s: %s rows from %d artifacts", doc.Category, doc.Period, count(doc.TotalRows), len(doc.Artifacts))
	}
	for _, e := range doc.Excluded {
		if e.Detail != "" {
			p.warn("excluded %s (%s: %s)", e.ID, e.Reason, e.Detail)
			continue
		}
		p.warn("excluded %s (%s)", e.ID, e.Reason)
	}
	for _, w := range doc.Warnings {
		p.warn("%s", w)
	}
	for _, s := range doc.Summaries {
		t := p.table(s.Dimension, table.Row{"Bucket", "Count", "Share"}, rightAligned(2, 3)...)
		for _, b := range s.Buckets {
			t.AppendRow(table.Row{b.Bucket, count(b.Count), share(b.Count, doc.TotalRows)})
		}
		if s.Excluded > 0 {
			t.AppendFooter(table.Row{"excluded", count(s.Excluded), share(s.Excluded, doc.TotalRows)})
		}
		t.Render()
	}
}

func newRowsCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "rows <category> <period> [<dimension> <bucket>]",
		Short: "Print the rows of one bucket, or the raw table without a bucket",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 2 && len(args) != 4 {
				return fmt.Errorf("accepts 2 or 4 args, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			period, err := report.ParsePeriod(args[1])
			if err != nil {
				return err
			}
			v, err := app.Service().View(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}

			var (
				rows    []report.Row
				columns []string
				title   string
			)
			if len(args) == 4 {
				if rows, err = v.Rows(args[2], args[3]); err != nil {
					return err
				}
				if columns, err = v.BucketColumns(args[2], args[3]); err != nil {
					return err
				}
				if all {
					columns = v.Columns()
				}
				title = fmt.Sprintf("%s / %s", args[2], args[3])
			} else {
				rows = v.Table().Rows
				columns = v.Columns()
				title = fmt.Sprintf("%s %s", v.Category.Name, v.Period)
			}
			total := len(rows)
			if limit > 0 && len(rows) > limit {
				rows = rows[:limit]
			}

			docs := make([]report.Row, len(rows))
			for i, r := range rows {
				docs[i] = r.Project(columns)
			}
			p := newPrinter(cmd, opts)
			return p.emit(docs, func() {
				header := make(table.Row, len(columns))
				for i, c := range columns {
					header[i] = c
				}
				t := p.table(title, header)
				for _, r := range rows {
					line := make(table.Row, len(columns))
					for i, c := range columns {
						line[i] = truncate(r[c], 60)
					}
					t.AppendRow(line)
				}
				t.Render()
				if len(rows) < total {
					p.warn("showing %s of %s rows", count(len(rows)), count(total))
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to print (0 prints all)")
	cmd.Flags().BoolVar(&all, "all-columns", false, "print every column instead of the bucket's summary columns")
	return cmd
}

func newViolationsCmd(opts *rootOptions) *cobra.Command {
	var impact string
	cmd := &cobra.Command{
		Use:   "violations <category> <period>",
		Short: "Group the rows of one impact level by violation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			period, err := report.ParsePeriod(args[1])
			if err != nil {
				return err
			}
			v, err := app.Service().View(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			impact = strings.ToLower(strings.TrimSpace(impact))
			violations, err := v.Violations(impact)
			if err != nil {
				return err
			}
			p := newPrinter(cmd, opts)
			return p.emit(violations, func() {
				if len(violations) == 0 {
					p.ok("no %s violations in %s", impact, v.Period)
					return
				}
				t := p.table(fmt.Sprintf("%s violations", impact),
					table.Row{"Violation", "Count", "Description", "Recommendation"}, rightAligned(2)...)
				for _, vi := range violations {
					t.AppendRow(table.Row{vi.ID, count(vi.Count), truncate(vi.Description, 60), truncate(vi.Recommendation, 60)})
				}
				t.Render()
			})
		},
	}
	cmd.Flags().StringVar(&impact, "impact", "critical", "impact level: "+strings.Join(report.Severities, ", "))
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var dimension string
	cmd := &cobra.Command{
		Use:   "history <category>",
		Short: "Show persisted bucket counts across months",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			snaps, err := app.Service().History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if dimension != "" {
				filtered := snaps[:0]
				for _, s := range snaps {
					if strings.EqualFold(s.Dimension, dimension) {
						filtered = append(filtered, s)
					}
				}
				snaps = filtered
			}
			p := newPrinter(cmd, opts)
			return p.emit(snaps, func() {
				t := p.table(args[0], table.Row{"Period", "Dimension", "Bucket", "Count", "Rows", "Computed"}, rightAligned(4, 5)...)
				for _, s := range snaps {
					t.AppendRow(table.Row{s.Period, s.Dimension, s.Bucket, count(s.Count), count(s.TotalRows), s.ComputedAt.Format("2006-01-02 15:04")})
				}
				t.Render()
			})
		},
	}
	cmd.Flags().StringVar(&dimension, "dimension", "", "only show one dimension")
	return cmd
}

func newPrecomputeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "precompute",
		Short: "Build every view, persist its counts and publish notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := app.Service().Precompute(cmd.Context())
			if err != nil {
				return err
			}
			p := newPrinter(cmd, opts)
			if err := p.emit(res, func() { renderPrecompute(p, res) }); err != nil {
				return err
			}
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d views failed", len(res.Failures))
			}
			return nil
		},
	}
}

func renderPrecompute(p printer, res dashboard.PrecomputeResult) {
	t := p.table("precompute", table.Row{"Views", "No data", "Snapshots", "Published", "Failed"}, rightAligned(1, 2, 3, 4, 5)...)
	t.AppendRow(table.Row{count(res.Views), count(res.NoData), count(res.Snapshots), count(res.Published), count(len(res.Failures))})
	t.Render()
	for _, f := range res.Failures {
		if f.Period == "" {
			p.fail("%s: %s", f.Category, f.Error)
			continue
		}
		p.fail("%s %s: %s", f.Category, f.Period, f.Error)
	}
}
