// Package main is reportctl, a command line client for crawl reports.
//
// reportctl builds the same report service the HTTP server runs, from the
// same configuration, and prints its results as tables, JSON, or YAML:
//
//	reportctl --config config.yaml periods seo
//	reportctl view accessibility 2024-05
//	reportctl rows seo 2024-01 "Title Length" "Too Short (<30)" --limit 20
//	reportctl violations accessibility 2024-05 --impact critical -o yaml
//	reportctl precompute
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
