package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/you/go-airfare-oracle/internal/oracle"
	"golang.org/x/sync/errgroup"
)

// SelectorConfig carries the values the selector treats as process-wide
// constants. Airlines order doubles as the tie-break order.
type SelectorConfig struct {
	Airlines       []string
	Markup         float64
	TotalStops     string
	AdditionalInfo string
	Routes         int
	MaxParallel    int
	Timeout        time.Duration
}

// Selector picks the cheapest outbound/return airline combination for a route.
type Selector struct {
	oracle   oracle.Oracle
	airlines []string
	markup   float64
	stops    string
	info     string
	routes   int
	parallel int
	timeout  time.Duration
}

// DefaultMarkup is used when the configured markup is not a positive finite number.
const DefaultMarkup = 1.08

func NewSelector(o oracle.Oracle, cfg SelectorConfig) *Selector {
	parallel := cfg.MaxParallel
	if parallel < 1 {
		parallel = 1
	}
	markup := cfg.Markup
	if !(markup > 0) || math.IsInf(markup, 0) {
		markup = DefaultMarkup
	}
	return &Selector{
		oracle:   o,
		airlines: append([]string(nil), cfg.Airlines...),
		markup:   markup,
		stops:    cfg.TotalStops,
		info:     cfg.AdditionalInfo,
		routes:   cfg.Routes,
		parallel: parallel,
		timeout:  cfg.Timeout,
	}
}

func (s *Selector) Airlines() []string { return append([]string(nil), s.airlines...) }

// LegQuotes holds both sides of a round trip, each sorted by price ascending.
type LegQuotes struct {
	Outbound []Quote `json:"outbound"`
	Return   []Quote `json:"return"`
}

type legRequest struct {
	leg         Leg
	date        time.Time
	source      string
	destination string
}

// Quotes asks the oracle for every airline in both directions. The return leg
// is priced destination->origin. Any failed or unusable quote fails the query.
func (s *Selector) Quotes(ctx context.Context, q RouteQuery) (LegQuotes, error) {
	if len(s.airlines) == 0 {
		return LegQuotes{}, ErrNoAirlines
	}

	info := s.info
	if q.Info != "" {
		info = q.Info
	}

	legs := []legRequest{
		{leg: Outbound, date: q.Outbound, source: q.Origin, destination: q.Destination},
		{leg: Return, date: q.Return, source: q.Destination, destination: q.Origin},
	}
	quoted, err := s.quoteLegs(ctx, legs, info)
	if err != nil {
		return LegQuotes{}, err
	}
	return LegQuotes{Outbound: quoted[0], Return: quoted[1]}, nil
}

// OneWay returns sorted quotes for a single leg.
func (s *Selector) OneWay(ctx context.Context, origin, destination string, date time.Time) ([]Quote, error) {
	if len(s.airlines) == 0 {
		return nil, ErrNoAirlines
	}
	quoted, err := s.quoteLegs(ctx, []legRequest{
		{leg: Outbound, date: date, source: origin, destination: destination},
	}, s.info)
	if err != nil {
		return nil, err
	}
	return quoted[0], nil
}

// Cheapest picks the outbound and return airlines independently.
func (s *Selector) Cheapest(ctx context.Context, q RouteQuery) (Combination, error) {
	lq, err := s.Quotes(ctx, q)
	if err != nil {
		return Combination{}, err
	}
	return s.combine(lq.Outbound[0], lq.Return[0]), nil
}

// RankPaired pairs the i-th cheapest outbound with the i-th cheapest return.
// This is not a minimum-cost assignment over all pairs; Cheapest is.
func (s *Selector) RankPaired(ctx context.Context, q RouteQuery) ([]Combination, error) {
	lq, err := s.Quotes(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]Combination, len(lq.Outbound))
	for i := range lq.Outbound {
		out[i] = s.combine(lq.Outbound[i], lq.Return[i])
	}
	return out, nil
}

func (s *Selector) combine(out, ret Quote) Combination {
	total := out.Price + ret.Price
	return Combination{Outbound: out, Return: ret, Total: total, Price: total * s.markup}
}

func (s *Selector) quoteLegs(ctx context.Context, legs []legRequest, info string) ([][]Quote, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Results are written by index so completion order cannot leak into ranking.
	results := make([][]Quote, len(legs))
	for i := range results {
		results[i] = make([]Quote, len(s.airlines))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for li, lr := range legs {
		for ai, airline := range s.airlines {
			g.Go(func() error {
				price, err := s.oracle.Predict(gctx, oracle.Features{
					Airline:        airline,
					Date:           lr.date.Format(DateLayout),
					Source:         lr.source,
					Destination:    lr.destination,
					TotalStops:     s.stops,
					AdditionalInfo: info,
					Routes:         s.routes,
				})
				if err != nil {
					return &QuoteError{Airline: airline, Leg: lr.leg, Err: err}
				}
				if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
					return &QuoteError{Airline: airline, Leg: lr.leg, Err: ErrInvalidQuote}
				}
				results[li][ai] = Quote{Airline: airline, Price: price}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, quotes := range results {
		sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].Price < quotes[j].Price })
	}
	return results, nil
}
