package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// DashboardService serves the analytics views. Month summaries are cached per
// (owner, year, month) and dropped when a write touches that month.
type DashboardService struct {
	engines   *EngineFactory
	summaries *cache.LRUCache[analytics.Summary]
	logger    *log.Logger
	now       func() time.Time
}

func NewDashboardService(engines *EngineFactory, summaries *cache.LRUCache[analytics.Summary], logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		engines:   engines,
		summaries: summaries,
		logger:    logger.WithComponent(log.ComponentDashboard),
		now:       time.Now,
	}
}

// WithClock overrides the reference instant used for default periods.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Now is the reference instant of the service.
func (s *DashboardService) Now() time.Time {
	return s.now()
}

func summaryKey(owner string, year, month int) string {
	return fmt.Sprintf("%s|%04d-%02d", owner, year, month)
}

// Summary aggregates month/year, or the current month when month is zero.
func (s *DashboardService) Summary(ctx context.Context, owner string, month, year int) (analytics.Summary, error) {
	if err := requireOwner(owner); err != nil {
		return analytics.Summary{}, err
	}

	loc := s.engines.Location()
	var period core.Period
	if month == 0 && year == 0 {
		period = core.DefaultPeriod(s.now(), loc)
	} else {
		if err := core.ValidateMonthYear(month, year); err != nil {
			return analytics.Summary{}, err
		}
		period = core.MonthPeriod(month, year, loc)
	}

	key := summaryKey(owner, period.Year(), period.Month())
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(key); ok {
			s.logger.DebugContext(ctx, "Summary served from cache", log.FieldOwner, owner, log.FieldMonth, period.Month(), log.FieldYear, period.Year())
			return cached, nil
		}
	}

	engine, err := s.engines.For(owner)
	if err != nil {
		return analytics.Summary{}, err
	}
	summary, err := engine.Summary(ctx, period)
	if err != nil {
		return analytics.Summary{}, err
	}
	if s.summaries != nil {
		s.summaries.Set(key, summary)
	}
	return summary, nil
}

// InvalidateMonth drops the cached summary of the month containing at.
func (s *DashboardService) InvalidateMonth(owner string, at time.Time) {
	if s.summaries == nil {
		return
	}
	p := core.DefaultPeriod(at, s.engines.Location())
	s.summaries.Delete(summaryKey(owner, p.Year(), p.Month()))
}

func (s *DashboardService) Trend(ctx context.Context, owner string, months int) ([]analytics.TrendPoint, error) {
	engine, err := s.engines.For(owner)
	if err != nil {
		return nil, err
	}
	return engine.Trend(ctx, months, s.now())
}

func (s *DashboardService) Recent(ctx context.Context, owner string, limit int) ([]core.Transaction, error) {
	engine, err := s.engines.For(owner)
	if err != nil {
		return nil, err
	}
	return engine.Recent(ctx, limit)
}

func (s *DashboardService) Alerts(ctx context.Context, owner string) ([]analytics.Alert, error) {
	engine, err := s.engines.For(owner)
	if err != nil {
		return nil, err
	}
	return engine.Alerts(ctx, s.now())
}

func (s *DashboardService) Stats(ctx context.Context, owner string) (analytics.Statistics, error) {
	engine, err := s.engines.For(owner)
	if err != nil {
		return analytics.Statistics{}, err
	}
	return engine.Stats(ctx, s.now())
}

func (s *DashboardService) Tracking(ctx context.Context, owner string, month, year int) ([]analytics.TrackingRecord, error) {
	engine, err := s.engines.For(owner)
	if err != nil {
		return nil, err
	}
	return engine.Tracking(ctx, month, year)
}
