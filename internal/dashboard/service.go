// Package dashboard serves report views over an artifact store: it lists a
// category's periods, fetches and classifies a period's artifacts, and
// precomputes snapshots for every period.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/crawl-reports/internal/artifact"
	"github.com/JakeFAU/crawl-reports/internal/report"
	"github.com/JakeFAU/crawl-reports/internal/telemetry"
)

// ErrHistoryUnavailable is returned by History when no snapshot store is configured.
var ErrHistoryUnavailable = errors.New("snapshot history is not configured")

const defaultFetchConcurrency = 4

// Config controls the service.
type Config struct {
	// FetchConcurrency bounds parallel artifact fetches and precompute builds.
	FetchConcurrency int
	// Categories restricts the served categories. Empty serves all.
	Categories []string
	// Topic receives one notification per precomputed view.
	Topic string
}

// SnapshotStore persists precomputed bucket counts.
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, snaps []Snapshot) error
	ListSnapshots(ctx context.Context, category string) ([]Snapshot, error)
}

// Publisher delivers precompute notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock supplies snapshot timestamps.
type Clock interface {
	Now() time.Time
}

type invalidator interface {
	Invalidate()
}

// Option configures optional collaborators.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSnapshots enables snapshot persistence and history.
func WithSnapshots(store SnapshotStore) Option {
	return func(s *Service) { s.snapshots = store }
}

// WithPublisher enables precompute notifications.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock sets the clock used to stamp snapshots and notifications.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.now = c.Now
		}
	}
}

// Service answers report queries.
type Service struct {
	store      artifact.Store
	snapshots  SnapshotStore
	publisher  Publisher
	categories []report.Category
	limit      int
	topic      string
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// New builds a Service over store.
func New(store artifact.Store, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	categories, err := enabledCategories(cfg.Categories)
	if err != nil {
		return nil, err
	}
	limit := cfg.FetchConcurrency
	if limit <= 0 {
		limit = defaultFetchConcurrency
	}
	s := &Service{
		store:      store,
		categories: categories,
		limit:      limit,
		topic:      cfg.Topic,
		logger:     zap.NewNop(),
		tracer:     telemetry.Tracer(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func enabledCategories(names []string) ([]report.Category, error) {
	if len(names) == 0 {
		return report.Categories(), nil
	}
	out := make([]report.Category, 0, len(names))
	for _, name := range names {
		c, err := report.LookupCategory(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Categories returns the served categories.
func (s *Service) Categories() []report.Category {
	out := make([]report.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s *Service) category(name string) (report.Category, error) {
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return report.Category{}, fmt.Errorf("%w: %q", report.ErrUnknownCategory, name)
}

// PeriodInfo is one available period and how many artifacts it groups.
type PeriodInfo struct {
	Period    report.Period `json:"period"`
	Artifacts int           `json:"artifacts"`
}

// PeriodListing is the period index of one category.
type PeriodListing struct {
	Category  string       `json:"category"`
	Periods   []PeriodInfo `json:"periods"`
	Malformed []string     `json:"malformed,omitempty"`
}

// Periods lists the periods category has artifacts for, ascending.
func (s *Service) Periods(ctx context.Context, category string) (PeriodListing, error) {
	c, err := s.category(category)
	if err != nil {
		return PeriodListing{}, err
	}
	groups, err := s.groups(ctx, c)
	if err != nil {
		return PeriodListing{}, err
	}
	out := PeriodListing{Category: c.Name, Malformed: groups.Malformed, Periods: make([]PeriodInfo, 0, len(groups.Periods))}
	for _, p := range groups.Periods {
		out.Periods = append(out.Periods, PeriodInfo{Period: p, Artifacts: groups.Count(p)})
	}
	return out, nil
}

func (s *Service) groups(ctx context.Context, c report.Category) (report.PeriodGroups, error) {
	ids, err := s.store.ListIdentifiers(ctx, c)
	if err != nil {
		return report.PeriodGroups{}, err
	}
	groups := report.GroupPeriods(c, ids)
	if len(groups.Malformed) > 0 {
		s.logger.Warn("artifacts with malformed names",
			zap.String("category", c.Name),
			zap.Strings("artifacts", groups.Malformed),
		)
	}
	return groups, nil
}

// View fetches and classifies the artifacts of one period. When every batch
// was excluded it returns the partial view together with
// report.ErrNoValidData so callers can report the exclusions.
func (s *Service) View(ctx context.Context, category string, period report.Period) (view *report.View, err error) {
	start := time.Now()
	c, err := s.category(category)
	if err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "dashboard.View", trace.WithAttributes(
		attribute.String("report.category", c.Name),
		attribute.String("report.period", period.String()),
	))
	defer func() {
		telemetry.ObserveView(c.Name, viewOutcome(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	groups, err := s.groups(ctx, c)
	if err != nil {
		return nil, err
	}
	members := groups.Members[period]
	if len(members) == 0 {
		return nil, fmt.Errorf("%w: %s %s", report.ErrPeriodNotFound, c.Name, period)
	}

	artifacts, err := s.fetch(ctx, c, members)
	if err != nil {
		return nil, err
	}

	view, err = report.BuildView(c.Name, period, artifacts)
	if view != nil {
		s.observe(view)
	}
	if err != nil {
		s.logger.Warn("view not built", zap.String("category", c.Name), zap.String("period", period.String()), zap.Error(err))
		return view, err
	}
	span.SetAttributes(
		attribute.Int("report.rows", view.TotalRows),
		attribute.Int("report.excluded", len(view.Excluded)),
	)
	s.logger.Info("view built",
		zap.String("category", c.Name),
		zap.String("period", period.String()),
		zap.Int("artifacts", len(view.Artifacts)),
		zap.Int("rows", view.TotalRows),
		zap.Int("excluded", len(view.Excluded)),
		zap.Int("warnings", len(view.Warnings)),
	)
	return view, nil
}

// fetch downloads ids concurrently. A failed fetch is kept on its artifact
// and later excluded; only cancellation aborts the whole fetch.
func (s *Service) fetch(ctx context.Context, c report.Category, ids []string) ([]report.Artifact, error) {
	out := make([]report.Artifact, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			table, err := s.store.Fetch(gctx, id)
			out[i] = report.Artifact{ID: id, Table: table, Err: err}
			if err != nil {
				telemetry.ObserveArtifactFetch(c.Name, "error")
				s.logger.Warn("artifact fetch failed", zap.String("category", c.Name), zap.String("artifact", id), zap.Error(err))
				return nil
			}
			telemetry.ObserveArtifactFetch(c.Name, "ok")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch %s artifacts: %w", c.Name, err)
	}
	return out, nil
}

func (s *Service) observe(v *report.View) {
	for reason, n := range v.ExcludedReasons() {
		telemetry.ObserveExcludedBatches(v.Category.Name, reason, n)
	}
	for _, sum := range v.Summaries {
		for reason, n := range sum.ExcludedReasons {
			telemetry.ObserveExcludedRows(v.Category.Name, sum.Dimension, reason, n)
		}
	}
}

func viewOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, report.ErrNoValidData):
		return "no_data"
	case errors.Is(err, report.ErrPeriodNotFound), errors.Is(err, report.ErrUnknownCategory):
		return "not_found"
	default:
		return "error"
	}
}

// History returns the persisted snapshots of category.
func (s *Service) History(ctx context.Context, category string) ([]Snapshot, error) {
	c, err := s.category(category)
	if err != nil {
		return nil, err
	}
	if s.snapshots == nil {
		return nil, ErrHistoryUnavailable
	}
	snaps, err := s.snapshots.ListSnapshots(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("list %s snapshots: %w", c.Name, err)
	}
	return snaps, nil
}

// Invalidate drops cached artifacts when the store caches them. It reports
// whether anything was invalidated.
func (s *Service) Invalidate() bool {
	inv, ok := s.store.(invalidator)
	if !ok {
		return false
	}
	inv.Invalidate()
	s.logger.Info("artifact cache invalidated")
	return true
}

// Ready checks that the artifact store answers a listing.
func (s *Service) Ready(ctx context.Context) error {
	if len(s.categories) == 0 {
		return nil
	}
	if _, err := s.store.ListIdentifiers(ctx, s.categories[0]); err != nil {
		return fmt.Errorf("artifact store not ready: %w", err)
	}
	return nil
}
