package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/crawl-reports/internal/report"
	"github.com/JakeFAU/crawl-reports/internal/telemetry"
)

// Notification is published once per precomputed view.
type Notification struct {
	Category        string    `json:"category"`
	Period          string    `json:"period"`
	TotalRows       int       `json:"total_rows"`
	ExcludedBatches int       `json:"excluded_batches"`
	Warnings        []string  `json:"warnings,omitempty"`
	ComputedAt      time.Time `json:"computed_at"`
}

// Attributes implements the publisher's message attribute hook.
func (n Notification) Attributes() map[string]string {
	return map[string]string{
		"category": n.Category,
		"period":   n.Period,
	}
}

// PrecomputeFailure names a view precompute could not produce.
type PrecomputeFailure struct {
	Category string `json:"category" yaml:"category"`
	Period   string `json:"period,omitempty" yaml:"period,omitempty"`
	Error    string `json:"error" yaml:"error"`
}

// PrecomputeResult summarizes one precompute run.
type PrecomputeResult struct {
	Views     int                 `json:"views" yaml:"views"`
	NoData    int                 `json:"no_data" yaml:"no_data"`
	Snapshots int                 `json:"snapshots" yaml:"snapshots"`
	Published int                 `json:"published" yaml:"published"`
	Failures  []PrecomputeFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type viewKey struct {
	category report.Category
	period   report.Period
}

// Precompute builds every period of every served category, persists the
// bucket counts and publishes a notification per view. Per-view failures
// are collected in the result; only cancellation is returned as an error.
func (s *Service) Precompute(ctx context.Context) (PrecomputeResult, error) {
	var (
		mu  sync.Mutex
		res PrecomputeResult
	)
	fail := func(category string, period report.Period, err error) {
		mu.Lock()
		defer mu.Unlock()
		res.Failures = append(res.Failures, PrecomputeFailure{Category: category, Period: period.String(), Error: err.Error()})
	}

	var keys []viewKey
	for _, c := range s.categories {
		groups, err := s.groups(ctx, c)
		if err != nil {
			s.logger.Error("list periods failed", zap.String("category", c.Name), zap.Error(err))
			telemetry.ObservePrecompute("error")
			fail(c.Name, "", err)
			continue
		}
		for _, p := range groups.Periods {
			keys = append(keys, viewKey{category: c, period: p})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			outcome, snaps, published, err := s.precomputeOne(gctx, key)
			telemetry.ObservePrecompute(outcome)
			mu.Lock()
			switch outcome {
			case "ok":
				res.Views++
			case "no_data":
				res.NoData++
			}
			res.Snapshots += snaps
			if published {
				res.Published++
			}
			mu.Unlock()
			if err != nil {
				fail(key.category.Name, key.period, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return res, err
	}
	s.logger.Info("precompute finished",
		zap.Int("views", res.Views),
		zap.Int("no_data", res.NoData),
		zap.Int("snapshots", res.Snapshots),
		zap.Int("failures", len(res.Failures)),
	)
	return res, nil
}

func (s *Service) precomputeOne(ctx context.Context, key viewKey) (string, int, bool, error) {
	view, err := s.View(ctx, key.category.Name, key.period)
	if errors.Is(err, report.ErrNoValidData) {
		return "no_data", 0, false, nil
	}
	if err != nil {
		return "error", 0, false, err
	}
	at := s.now().UTC()

	saved := 0
	if s.snapshots != nil {
		snaps := SnapshotsFromView(view, at)
		if err := s.snapshots.SaveSnapshots(ctx, snaps); err != nil {
			return "error", 0, false, err
		}
		saved = len(snaps)
	}

	if s.publisher == nil || s.topic == "" {
		return "ok", saved, false, nil
	}
	note := Notification{
		Category:        view.Category.Name,
		Period:          view.Period.String(),
		TotalRows:       view.TotalRows,
		ExcludedBatches: len(view.Excluded),
		ComputedAt:      at,
	}
	for _, w := range view.Warnings {
		note.Warnings = append(note.Warnings, w.String())
	}
	id, err := s.publisher.Publish(ctx, s.topic, note)
	if err != nil {
		return "error", saved, false, err
	}
	s.logger.Debug("precompute notification published",
		zap.String("category", note.Category),
		zap.String("period", note.Period),
		zap.String("message_id", id),
	)
	return "ok", saved, true, nil
}
