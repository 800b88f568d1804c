package service

import (
	"context"
	"strings"
	"time"
)

const (
	defaultTrendDays = 14
	maxTrendDays     = 60
)

type DayPoint struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Airline string  `json:"airline"`
	Price   float64 `json:"price"`
}

// TrendService builds the dashboard fare chart: the cheapest predicted one-way
// fare for each day of a window.
type TrendService struct {
	sel *Selector
}

func NewTrendService(sel *Selector) *TrendService {
	return &TrendService{sel: sel}
}

func (t *TrendService) Daily(ctx context.Context, origin, dest string, from time.Time, days int) ([]DayPoint, error) {
	origin, dest = strings.TrimSpace(origin), strings.TrimSpace(dest)
	if origin == "" || dest == "" {
		return nil, &InvalidQueryError{Field: "route", Reason: "origin and destination are required"}
	}
	if strings.EqualFold(origin, dest) {
		return nil, &InvalidQueryError{Field: "destination", Reason: "must differ from origin"}
	}
	if days <= 0 {
		days = defaultTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	out := make([]DayPoint, 0, days)
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		quotes, err := t.sel.OneWay(ctx, origin, dest, d)
		if err != nil {
			return nil, err
		}
		out = append(out, DayPoint{
			Date:    d.Format(DateLayout),
			Airline: quotes[0].Airline,
			Price:   round2(quotes[0].Price),
		})
	}
	return out, nil
}

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
