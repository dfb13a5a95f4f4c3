package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/crawl-reports/internal/config"
	"github.com/JakeFAU/crawl-reports/internal/server"
)

type appKeyType string

const appKey appKeyType = "app"

type rootOptions struct {
	cfgFile string
	output  string
	noColor bool
	verbose bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "reportctl",
		Short: "Inspect and precompute crawl reports.",
		Long: `reportctl reads accessibility, broken link and SEO crawl reports from the
configured artifact storage, groups them by month, and prints the classified
results.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parseFormat(opts.output); err != nil {
				return err
			}
			if opts.noColor {
				color.NoColor = true //nolint:reassign // library global
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !opts.verbose {
				cfg.Logging.Level = "error"
			}
			app, err := server.Build(cmd.Context(), &cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize report service: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app, ok := cmd.Context().Value(appKey).(*server.App); ok && app != nil {
				return app.Close(cmd.Context())
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetContext(context.Background())

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (defaults and REPORTS_* env vars apply when empty)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", string(formatTable), "output format: table, json or yaml")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at the configured level instead of errors only")

	cmd.AddCommand(
		newCategoriesCmd(opts),
		newPeriodsCmd(opts),
		newViewCmd(opts),
		newRowsCmd(opts),
		newViolationsCmd(opts),
		newHistoryCmd(opts),
		newPrecomputeCmd(opts),
	)
	return cmd
}

func resolveApp(ctx context.Context) (*server.App, error) {
	app, ok := ctx.Value(appKey).(*server.App)
	if !ok || app == nil {
		return nil, errors.New("report service not initialized")
	}
	return app, nil
}

func newPrinter(cmd *cobra.Command, opts *rootOptions) printer {
	f, _ := parseFormat(opts.output) //nolint:errcheck // validated in PersistentPreRunE
	return printer{w: cmd.OutOrStdout(), format: f}
}
