package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/airquality-etl/internal/domain"
	"github.com/couchcryptid/airquality-etl/internal/observability"
)

// Extractor reads the complete raw source table.
type Extractor interface {
	Extract(ctx context.Context) (domain.RawTable, error)
}

// Loader consumes a finished analysis: table exports, report, charts, broker.
type Loader interface {
	Name() string
	Load(ctx context.Context, analysis domain.Analysis) error
}

// Pipeline orchestrates one extract-analyze-load batch run.
type Pipeline struct {
	extractor Extractor
	loaders   []Loader
	mapping   domain.ColumnMapping
	cfg       domain.AnalysisConfig
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu     sync.RWMutex
	latest *domain.Analysis
	ready  atomic.Bool
}

// New creates a Pipeline with the given stages and observability. Loaders run
// in the order given.
func New(e Extractor, mapping domain.ColumnMapping, cfg domain.AnalysisConfig, logger *slog.Logger, metrics *observability.Metrics, loaders ...Loader) *Pipeline {
	return &Pipeline{
		extractor: e,
		loaders:   loaders,
		mapping:   mapping,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed and every loader succeeded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("analysis has not completed yet")
	}
	return nil
}

// Latest returns the most recent analysis, if any run got that far.
func (p *Pipeline) Latest() (domain.Analysis, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return domain.Analysis{}, false
	}
	return *p.latest, true
}

// Run extracts the source, analyzes it, and hands the result to every loader.
// All loaders are attempted; their errors are joined. The analysis is returned
// whenever it was computed, even if a loader failed.
func (p *Pipeline) Run(ctx context.Context) (domain.Analysis, error) {
	start := time.Now()

	analysis, err := p.analyze(ctx)
	if err != nil {
		p.metrics.Runs.WithLabelValues(outcomeOf(err)).Inc()
		return domain.Analysis{}, err
	}

	p.mu.Lock()
	p.latest = &analysis
	p.mu.Unlock()

	p.metrics.HourlyRecords.Set(float64(len(analysis.Records)))
	p.metrics.ExtremeRecords.Set(float64(len(analysis.Extremes)))
	p.metrics.Threshold.Set(analysis.Threshold)

	if err := p.load(ctx, analysis); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return analysis, err
	}

	p.metrics.Runs.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("run complete",
		"run_id", analysis.RunID,
		"duration", time.Since(start),
	)
	return analysis, nil
}

func (p *Pipeline) analyze(ctx context.Context) (domain.Analysis, error) {
	table, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsRead.Add(float64(len(table.Rows)))

	norm, err := domain.Normalize(table.Headers, table.Rows, p.mapping)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("normalize: %w", err)
	}
	for reason, n := range norm.DropReasons {
		p.metrics.RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
	for _, d := range norm.Drops {
		p.logger.Debug("row dropped", "row", d.Index, "reason", d.Reason)
	}
	p.logger.Info("source normalized",
		"rows", len(table.Rows),
		"readings", len(norm.Readings),
		"dropped", norm.Dropped,
	)

	analysis, err := domain.Analyze(norm.Readings, p.cfg)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			p.logger.Error("no usable readings after cleaning", "rows", len(table.Rows), "dropped", norm.Dropped)
		}
		return domain.Analysis{}, err
	}
	analysis.Coverage = analysis.Coverage.WithNormalization(len(table.Rows), norm)

	p.logger.Info("analysis complete",
		"hours", len(analysis.Records),
		"threshold", analysis.Threshold,
		"extreme", len(analysis.Extremes),
		"extreme_share", analysis.ExtremeShare(),
	)
	return analysis, nil
}

// load runs every loader, continuing past failures.
func (p *Pipeline) load(ctx context.Context, analysis domain.Analysis) error {
	var errs []error
	for _, l := range p.loaders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := l.Load(ctx, analysis); err != nil {
			p.logger.Error("load failed", "sink", l.Name(), "error", err)
			p.metrics.LoadErrors.WithLabelValues(l.Name()).Inc()
			errs = append(errs, fmt.Errorf("load %s: %w", l.Name(), err))
			continue
		}
		p.logger.Debug("load complete", "sink", l.Name())
	}
	return errors.Join(errs...)
}

func outcomeOf(err error) string {
	if errors.Is(err, domain.ErrInsufficientData) {
		return "insufficient_data"
	}
	return "error"
}
