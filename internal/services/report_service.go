package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"budgetplanner/internal/core"
	"budgetplanner/internal/export"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/report"
	"budgetplanner/internal/store"
)

// RecentLimit is how many transactions the dashboard and report list.
const RecentLimit = 10

// TransactionLister is the read side the report needs.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string, q store.TransactionQuery) ([]core.Transaction, error)
}

// ReportView is the report screen payload.
type ReportView struct {
	Range         string                 `json:"range"`
	From          core.Date              `json:"from"`
	Totals        report.Totals          `json:"totals"`
	SavingsRate   string                 `json:"savings_rate"`
	Pie           []report.PieSlice      `json:"pie"`
	Trend         []report.TrendPoint    `json:"trend"`
	TopCategories []report.CategoryTotal `json:"top_categories"`
	Recent        []core.Transaction     `json:"recent"`
}

// ReportService fetches a user's ranged transactions and runs them through
// the aggregator and presenter. Identical concurrent fetches share one
// store call.
type ReportService struct {
	source TransactionLister
	group  singleflight.Group
	now    func() time.Time
	logger *applog.StructuredLogger
}

func NewReportService(source TransactionLister, logger *applog.Logger) *ReportService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &ReportService{
		source: source,
		now:    time.Now,
		logger: applog.NewStructuredLogger(logger.WithComponent(applog.ComponentReport)),
	}
}

// WithClock replaces the time source used to resolve ranges.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

type fetchResult struct {
	txs []core.Transaction
	rng core.DateRange
	key string
}

// fetch resolves rangeKey and loads the transactions in it, oldest first.
// A caller whose ctx ends stops waiting; the shared call carries on for
// the others.
func (s *ReportService) fetch(ctx context.Context, userID, rangeKey string) (fetchResult, error) {
	if userID == "" {
		return fetchResult{}, core.ErrMissingUser
	}
	rng, applied := report.TrailingRange(rangeKey, s.now())
	flightKey := userID + "|" + applied + "|" + rng.From.String()

	ch := s.group.DoChan(flightKey, func() (any, error) {
		txs, err := s.source.ListTransactions(context.WithoutCancel(ctx), userID, store.TransactionQuery{Range: rng})
		if err != nil {
			return nil, err
		}
		return txs, nil
	})
	select {
	case <-ctx.Done():
		return fetchResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return fetchResult{}, fmt.Errorf("fetch %s: %w", applied, res.Err)
		}
		return fetchResult{txs: res.Val.([]core.Transaction), rng: rng, key: applied}, nil
	}
}

// Build returns the report for rangeKey with the top n categories.
func (s *ReportService) Build(ctx context.Context, userID, rangeKey string, top int) (ReportView, error) {
	fr, err := s.fetch(ctx, userID, rangeKey)
	if err != nil {
		return ReportView{}, err
	}
	r, err := report.Aggregate(fr.txs)
	if err != nil {
		s.logger.LogError(ctx, "Aggregation failed", err,
			applog.ComponentReport, applog.OpAggregate, applog.ErrorTypeInternal)
		return ReportView{}, fmt.Errorf("aggregate %s: %w", fr.key, err)
	}
	s.logger.LogReportBuilt(ctx, userID, fr.key, len(fr.txs))

	if top <= 0 {
		top = report.DefaultTopCategories
	}
	recent := fr.txs
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	return ReportView{
		Range:         fr.key,
		From:          fr.rng.From,
		Totals:        r.Totals,
		SavingsRate:   r.Totals.SavingsRate().StringFixed(1),
		Pie:           report.PieSeries(r, report.ByName),
		Trend:         report.TrendSeries(r),
		TopCategories: report.TopCategories(r, top),
		Recent:        recent,
	}, nil
}

// Export renders the ranged transactions in format f.
func (s *ReportService) Export(ctx context.Context, userID, rangeKey string, f export.Format) (export.Document, error) {
	fr, err := s.fetch(ctx, userID, rangeKey)
	if err != nil {
		return export.Document{}, err
	}
	in := export.Input{
		Transactions: fr.txs,
		Range:        fr.rng,
		RangeKey:     fr.key,
		GeneratedAt:  s.now(),
	}
	if f != export.CSV {
		if in.Report, err = report.Aggregate(fr.txs); err != nil {
			return export.Document{}, fmt.Errorf("aggregate %s: %w", fr.key, err)
		}
	}
	doc, err := export.Render(f, in)
	if err != nil {
		s.logger.LogError(ctx, "Export failed", err,
			applog.ComponentReport, applog.OpExport, applog.ErrorTypeInternal)
		return export.Document{}, err
	}
	return doc, nil
}
