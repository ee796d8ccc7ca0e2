package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/energex-outages-etl/internal/domain"
	"github.com/couchcryptid/energex-outages-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Fetcher retrieves the raw source pages.
type Fetcher interface {
	FetchDemand(ctx context.Context) (string, error)
	FetchOutages(ctx context.Context) (string, error)
}

// Store appends a row to the named table. keys names the row's unique key
// columns; a row whose key already exists replaces the stored one.
type Store interface {
	Save(ctx context.Context, table string, keys []string, row domain.Row) error
}

// Report summarises a completed run.
type Report struct {
	RunID       string
	RetrievedAt time.Time
	Demand      domain.DemandRecord
	Outages     int
	Summary     domain.SummaryRecord
}

// Pipeline runs one extract-transform-load pass over the Energex pages.
type Pipeline struct {
	fetcher Fetcher
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New creates a Pipeline. A nil clock uses real time.
func New(f Fetcher, s Store, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		fetcher: f,
		store:   s,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
	}
}

// Run fetches both pages, extracts their records, and saves them in order:
// demand, each outage, then the summary. The first fetch or save error stops
// the run; rows saved before it are kept.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := p.clock.Now()
	now := start.In(domain.Brisbane)
	report := Report{RunID: uuid.NewString(), RetrievedAt: now}
	logger := p.logger.With("run_id", report.RunID)

	demandPage, err := p.fetch(ctx, logger, "demand", p.fetcher.FetchDemand)
	if err != nil {
		return report, err
	}
	report.Demand = domain.ClassifyDemand(demandPage, now)
	p.observeDemand(logger, report.Demand)
	if err := p.save(ctx, domain.TableDemand, report.Demand.Row()); err != nil {
		return report, err
	}

	outagesPage, err := p.fetch(ctx, logger, "outages", p.fetcher.FetchOutages)
	if err != nil {
		return report, err
	}
	outages := domain.ExtractOutages(outagesPage)
	p.metrics.OutagesExtracted.Set(float64(len(outages)))
	for _, o := range outages {
		if err := p.save(ctx, domain.TableData, o.Row()); err != nil {
			return report, err
		}
		report.Outages++
	}

	report.Summary = domain.ExtractSummary(outagesPage, now)
	p.observeSummary(logger, report.Summary)
	if err := p.save(ctx, domain.TableSummary, report.Summary.Row()); err != nil {
		return report, err
	}

	p.metrics.RunDuration.Set(p.clock.Since(start).Seconds())
	p.metrics.LastSuccess.Set(float64(p.clock.Now().Unix()))
	return report, nil
}

func (p *Pipeline) fetch(ctx context.Context, logger *slog.Logger, source string, get func(context.Context) (string, error)) (string, error) {
	start := p.clock.Now()
	page, err := get(ctx)
	p.metrics.FetchDuration.WithLabelValues(source).Observe(p.clock.Since(start).Seconds())
	if err != nil {
		p.metrics.FetchErrors.WithLabelValues(source).Inc()
		return "", fmt.Errorf("fetch %s: %w", source, err)
	}
	logger.Debug("fetched page", "source", source, "bytes", len(page))
	return page, nil
}

func (p *Pipeline) save(ctx context.Context, table string, row domain.Row) error {
	if err := p.store.Save(ctx, table, domain.KeyColumns, row); err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	p.metrics.RowsSaved.WithLabelValues(table).Inc()
	return nil
}

func (p *Pipeline) observeDemand(logger *slog.Logger, d domain.DemandRecord) {
	p.metrics.NetworkDemand.Set(float64(d.Demand))
	if d.Rating == nil {
		p.metrics.DemandRating.Set(0)
		logger.Warn("demand could not be classified", "demand", d.Demand)
		return
	}
	p.metrics.DemandRating.Set(float64(*d.Rating))
}

func (p *Pipeline) observeSummary(logger *slog.Logger, s domain.SummaryRecord) {
	if !s.Available() {
		p.metrics.SummaryAvailable.Set(0)
		logger.Info("outages summary unavailable")
		return
	}
	p.metrics.SummaryAvailable.Set(1)
	if s.TotalCust != nil {
		p.metrics.AffectedCustomers.Set(float64(*s.TotalCust))
	}
	if s.UpdatedAt == nil {
		logger.Warn("outages summary time could not be parsed")
	}
}
