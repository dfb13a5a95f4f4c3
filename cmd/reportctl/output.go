package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", s)
	}
}

type printer struct {
	w      io.Writer
	format outputFormat
}

// emit writes doc as JSON or YAML, or calls render for the table format.
func (p printer) emit(doc any, render func()) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case formatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		render()
		return nil
	}
}

func (p printer) table(title string, header table.Row, configs ...table.ColumnConfig) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)
	if len(configs) > 0 {
		t.SetColumnConfigs(configs)
	}
	return t
}

func (p printer) heading(format string, args ...any) {
	color.New(color.Bold).Fprintf(p.w, format+"\n", args...)
}

func (p printer) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.w, "! "+format+"\n", args...)
}

func (p printer) fail(format string, args ...any) {
	color.New(color.FgRed).Fprintf(p.w, "x "+format+"\n", args...)
}

func (p printer) ok(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(p.w, format+"\n", args...)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func share(n, total int) string {
	if total == 0 {
		return "-"
	}
	return humanize.FormatFloat("#,###.#", 100*float64(n)/float64(total)) + "%"
}

var numberColumn = table.ColumnConfig{Align: text.AlignRight, AlignHeader: text.AlignRight}

func rightAligned(numbers ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, len(numbers))
	for i, n := range numbers {
		c := numberColumn
		c.Number = n
		out[i] = c
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
