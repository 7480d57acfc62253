// Package positions computes per-account concentration from persisted trades.
package positions

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/clearinghouse/src/alerting"
	"github.com/username/clearinghouse/src/logger"
	"github.com/username/clearinghouse/src/models"
	"github.com/username/clearinghouse/src/store"
)

const (
	ckPositionsForDate = "res_positions_%s"
	ckAlarmsForDate    = "res_alarms_%s"
)

// Service is the read-time aggregator behind the positions and alarms
// endpoints. Results are memoized per date with a short TTL; ingestion runs
// in a separate process, so freshness is bounded by the cache window.
type Service struct {
	store       *store.TradeStore
	reportCache *cache.Cache
	threshold   float64
	sink        alerting.Sink
}

// NewService creates the aggregator. threshold is the concentration alarm
// threshold in percent; sink may be nil to disable compliance alerts.
func NewService(tradeStore *store.TradeStore, reportCache *cache.Cache, threshold float64, sink alerting.Sink) *Service {
	return &Service{store: tradeStore, reportCache: reportCache, threshold: threshold, sink: sink}
}

// PositionsFor returns each (account, ticker) pair's share of that account's
// total gross exposure on the given date. Percentages use absolute market
// values so BUY/SELL sign never nets out concentration.
func (s *Service) PositionsFor(ctx context.Context, date time.Time) ([]models.Position, error) {
	cacheKey := fmt.Sprintf(ckPositionsForDate, date.Format(models.DateLayout))
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.Position), nil
	}

	exposures, err := s.store.ExposuresByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(exposures))
	for _, e := range exposures {
		percentage := 0.0
		if e.AccountTotal != 0 {
			percentage = round2(e.TickerValue / e.AccountTotal * 100)
		}
		positions = append(positions, models.Position{
			AccountID:   e.AccountID,
			Ticker:      e.Ticker,
			MarketValue: e.TickerValue,
			Percentage:  percentage,
		})
	}

	s.reportCache.Set(cacheKey, positions, cache.DefaultExpiration)
	return positions, nil
}

// AlarmsFor returns the positions strictly above the threshold. A position
// sitting exactly on the threshold does not trigger. Each fresh violation set
// is pushed to the alert sink once per cache window.
func (s *Service) AlarmsFor(ctx context.Context, date time.Time) ([]models.Alarm, error) {
	cacheKey := fmt.Sprintf(ckAlarmsForDate, date.Format(models.DateLayout))
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.Alarm), nil
	}

	positions, err := s.PositionsFor(ctx, date)
	if err != nil {
		return nil, err
	}

	alarms := make([]models.Alarm, 0)
	for _, p := range positions {
		if p.Percentage > s.threshold {
			alarms = append(alarms, models.Alarm{
				AccountID:  p.AccountID,
				Ticker:     p.Ticker,
				Percentage: p.Percentage,
				Violation:  true,
			})
		}
	}

	if s.sink != nil {
		dateStr := date.Format(models.DateLayout)
		for _, a := range alarms {
			alerting.ComplianceViolation(s.sink, a.AccountID, a.Ticker, a.Percentage, s.threshold, dateStr)
		}
	}

	s.reportCache.Set(cacheKey, alarms, cache.DefaultExpiration)
	return alarms, nil
}

// Invalidate drops all memoized reports.
func (s *Service) Invalidate() {
	s.reportCache.Flush()
	logger.L.Debug("Positions report cache flushed")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
