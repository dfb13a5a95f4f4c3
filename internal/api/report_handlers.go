package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-reports/internal/artifact"
	"github.com/JakeFAU/crawl-reports/internal/dashboard"
	"github.com/JakeFAU/crawl-reports/internal/report"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
	reportTimeout   = 30 * time.Second
)

// ReportService is the query surface the handlers need.
type ReportService interface {
	Categories() []report.Category
	Periods(ctx context.Context, category string) (dashboard.PeriodListing, error)
	View(ctx context.Context, category string, period report.Period) (*report.View, error)
	History(ctx context.Context, category string) ([]dashboard.Snapshot, error)
	Invalidate() bool
	Ready(ctx context.Context) error
}

// ReportHandler exposes the read-only report endpoints.
type ReportHandler struct {
	svc     ReportService
	timeout time.Duration
	logger  *zap.Logger
}

// NewReportHandler wires the service and logger.
func NewReportHandler(svc ReportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, timeout: reportTimeout, logger: logger}
}

// ListCategories handles GET /v1/categories.
func (h *ReportHandler) ListCategories(w http.ResponseWriter, _ *http.Request) {
	cats := h.svc.Categories()
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		dto := categoryDTO{Name: c.Name, Title: c.Title, Violations: c.Violations != nil, Dimensions: []string{}}
		for _, r := range c.Rules {
			dto.Dimensions = append(dto.Dimensions, r.Dimension())
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

// ListPeriods handles GET /v1/reports/{category}/periods.
func (h *ReportHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	listing, err := h.svc.Periods(ctx, chi.URLParam(r, "category"))
	if err != nil {
		h.fail(w, "list periods failed", err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// GetView handles GET /v1/reports/{category}/periods/{period}. A period
// whose batches were all excluded answers 200 with status "no_data".
func (h *ReportHandler) GetView(w http.ResponseWriter, r *http.Request) {
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	dto := viewDTO{
		Category:   view.Category.Name,
		Period:     view.Period.String(),
		Status:     "ok",
		TotalRows:  view.TotalRows,
		Artifacts:  view.Artifacts,
		Excluded:   view.Excluded,
		Warnings:   view.Warnings,
		Columns:    view.Columns(),
		Dimensions: view.Summaries,
	}
	writeJSON(w, http.StatusOK, dto)
}

// BucketRows handles GET .../dimensions/{dimension}/buckets/{bucket}.
func (h *ReportHandler) BucketRows(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r, defaultRowLimit, maxRowLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	dimension := pathParam(r, "dimension")
	bucket := pathParam(r, "bucket")
	rows, err := view.Rows(dimension, bucket)
	if err != nil {
		h.fail(w, "bucket rows failed", err)
		return
	}
	cols, err := view.BucketColumns(dimension, bucket)
	if err != nil {
		h.fail(w, "bucket columns failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rowsDTO{
		Dimension: dimension,
		Bucket:    bucket,
		Total:     len(rows),
		Columns:   cols,
		Rows:      project(page(rows, limit, offset), cols),
	})
}

// RawRows handles GET .../periods/{period}/raw.
func (h *ReportHandler) RawRows(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r, defaultRowLimit, maxRowLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	rows := view.Table().Rows
	cols := view.Columns()
	writeJSON(w, http.StatusOK, rowsDTO{
		Total:   len(rows),
		Columns: cols,
		Rows:    project(page(rows, limit, offset), cols),
	})
}

// Violations handles GET .../periods/{period}/violations?impact=.
func (h *ReportHandler) Violations(w http.ResponseWriter, r *http.Request) {
	impact := strings.TrimSpace(r.URL.Query().Get("impact"))
	if impact == "" {
		writeError(w, http.StatusBadRequest, "impact is required")
		return
	}
	view, ok := h.view(w, r)
	if !ok {
		return
	}
	violations, err := view.Violations(strings.ToLower(impact))
	if err != nil {
		h.fail(w, "violations failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"impact":     strings.ToLower(impact),
		"violations": violations,
	})
}

// History handles GET /v1/reports/{category}/history.
func (h *ReportHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	snaps, err := h.svc.History(ctx, chi.URLParam(r, "category"))
	if err != nil {
		h.fail(w, "history failed", err)
		return
	}
	if snaps == nil {
		snaps = []dashboard.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

// InvalidateCache handles POST /v1/cache/invalidate.
func (h *ReportHandler) InvalidateCache(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"invalidated": h.svc.Invalidate()})
}

// view loads the view named by the route and writes the response itself when
// it cannot.
func (h *ReportHandler) view(w http.ResponseWriter, r *http.Request) (*report.View, bool) {
	category := chi.URLParam(r, "category")
	period, err := report.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.svc.View(ctx, category, period)
	if errors.Is(err, report.ErrNoValidData) {
		dto := viewDTO{
			Category: strings.ToLower(category),
			Period:   period.String(),
			Status:   "no_data",
			Message:  err.Error(),
		}
		if view != nil {
			dto.Artifacts = view.Artifacts
			dto.Excluded = view.Excluded
		}
		writeJSON(w, http.StatusOK, dto)
		return nil, false
	}
	if err != nil {
		h.fail(w, "view failed", err)
		return nil, false
	}
	return view, true
}

func (h *ReportHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	writeError(w, status, err.Error())
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrUnknownCategory),
		errors.Is(err, report.ErrPeriodNotFound),
		errors.Is(err, report.ErrUnknownDimension),
		errors.Is(err, report.ErrUnknownBucket),
		errors.Is(err, report.ErrNoViolations):
		return http.StatusNotFound
	case errors.Is(err, report.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, artifact.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, dashboard.ErrHistoryUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func page(rows []report.Row, limit, offset int) []report.Row {
	if offset >= len(rows) {
		return nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func project(rows []report.Row, cols []string) []report.Row {
	out := make([]report.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Project(cols))
	}
	return out
}

type categoryDTO struct {
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	Dimensions []string `json:"dimensions"`
	Violations bool     `json:"violations"`
}

type viewDTO struct {
	Category   string                 `json:"category"`
	Period     string                 `json:"period"`
	Status     string                 `json:"status"`
	Message    string                 `json:"message,omitempty"`
	TotalRows  int                    `json:"total_rows"`
	Artifacts  []string               `json:"artifacts,omitempty"`
	Excluded   []report.Exclusion     `json:"excluded,omitempty"`
	Warnings   []report.SchemaWarning `json:"warnings,omitempty"`
	Columns    []string               `json:"columns,omitempty"`
	Dimensions []report.Summary       `json:"dimensions,omitempty"`
}

type rowsDTO struct {
	Dimension string       `json:"dimension,omitempty"`
	Bucket    string       `json:"bucket,omitempty"`
	Total     int          `json:"total"`
	Columns   []string     `json:"columns"`
	Rows      []report.Row `json:"rows"`
}
