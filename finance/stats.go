package finance

import (
	"context"
	"time"

	"github.com/fintrack/go/apiclient"
)

type Summary struct {
	Income   float64 `json:"income"`
	Expense  float64 `json:"expense"`
	Savings  float64 `json:"savings"`
	DateFrom string  `json:"date_from"`
	DateTo   string  `json:"date_to"`
}

type CategorySpending struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

type SpendingByCategory struct {
	Categories []CategorySpending `json:"categories"`
}

type ComprehensiveStats struct {
	Summary
	Categories []CategorySpending `json:"categories"`
}

// Stats reads the analytics endpoints. Zero times leave that end of the range
// to the server.
type Stats struct {
	api *apiclient.Client
}

func (s *Stats) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	var out Summary
	if err := s.api.GetJSON(ctx, "/analytics/stats/summary", dateRange(from, to), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Stats) SpendingByCategory(ctx context.Context, from, to time.Time) (*SpendingByCategory, error) {
	var out SpendingByCategory
	if err := s.api.GetJSON(ctx, "/analytics/stats/spending-by-category", dateRange(from, to), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Stats) Comprehensive(ctx context.Context, from, to time.Time) (*ComprehensiveStats, error) {
	var out ComprehensiveStats
	if err := s.api.GetJSON(ctx, "/analytics/stats/comprehensive", dateRange(from, to), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
