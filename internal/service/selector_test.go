package service

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fourAirlines = []string{"A", "B", "C", "D"}

func testConfig(airlines []string) SelectorConfig {
	return SelectorConfig{
		Airlines:       airlines,
		Markup:         1.08,
		TotalStops:     "non-stop",
		AdditionalInfo: "No info",
		Routes:         1,
		MaxParallel:    4,
		Timeout:        5 * time.Second,
	}
}

func mustQuery(t *testing.T, origin, dest, out, ret string) RouteQuery {
	t.Helper()
	q, err := NewRouteQuery(origin, dest, out, ret, "")
	require.NoError(t, err)
	return q
}

func scenarioOracle() *OracleMock {
	return newOracleMock().round("Delhi", "Cochin",
		map[string]float64{"A": 100, "B": 80, "C": 120, "D": 90},
		map[string]float64{"A": 60, "B": 70, "C": 50, "D": 65},
	)
}

func TestCheapest_Scenario(t *testing.T) {
	sel := NewSelector(scenarioOracle(), testConfig(fourAirlines))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	c, err := sel.Cheapest(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, Quote{Airline: "B", Price: 80}, c.Outbound)
	require.Equal(t, Quote{Airline: "C", Price: 50}, c.Return)
	require.Equal(t, "B, C", c.Airlines())
	require.InDelta(t, 130, c.Total, 1e-9)
	require.InDelta(t, 140.40, c.Price, 1e-9)
}

func TestCheapest_Minimality(t *testing.T) {
	m := scenarioOracle()
	sel := NewSelector(m, testConfig(fourAirlines))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	lq, err := sel.Quotes(context.Background(), q)
	require.NoError(t, err)
	c, err := sel.Cheapest(context.Background(), q)
	require.NoError(t, err)

	for _, o := range lq.Outbound {
		if c.Outbound.Price > o.Price {
			t.Fatalf("outbound %s (%v) cheaper than chosen %s (%v)", o.Airline, o.Price, c.Outbound.Airline, c.Outbound.Price)
		}
	}
	for _, r := range lq.Return {
		if c.Return.Price > r.Price {
			t.Fatalf("return %s (%v) cheaper than chosen %s (%v)", r.Airline, r.Price, c.Return.Airline, c.Return.Price)
		}
	}
	require.InDelta(t, (lq.Outbound[0].Price+lq.Return[0].Price)*1.08, c.Price, 1e-9)
}

func TestRankPaired(t *testing.T) {
	sel := NewSelector(scenarioOracle(), testConfig(fourAirlines))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	combos, err := sel.RankPaired(context.Background(), q)
	require.NoError(t, err)

	want := []struct {
		airlines string
		total    float64
	}{
		{"B, C", 130},
		{"D, A", 150},
		{"A, D", 165},
		{"C, B", 190},
	}
	require.Len(t, combos, len(want))
	for i, w := range want {
		require.Equal(t, w.airlines, combos[i].Airlines(), "rank %d", i)
		require.InDelta(t, w.total, combos[i].Total, 1e-9, "rank %d", i)
		require.InDelta(t, w.total*1.08, combos[i].Price, 1e-9, "rank %d", i)
	}
	for i := 1; i < len(combos); i++ {
		if combos[i-1].Price > combos[i].Price {
			t.Fatalf("rank %d more expensive than rank %d", i-1, i)
		}
	}

	cheapest, err := sel.Cheapest(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, cheapest, combos[0])
}

func TestQuotes_ReturnLegSwapsCities(t *testing.T) {
	m := scenarioOracle()
	sel := NewSelector(m, testConfig(fourAirlines))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	_, err := sel.Quotes(context.Background(), q)
	require.NoError(t, err)

	calls := m.Calls()
	require.Len(t, calls, 2*len(fourAirlines))

	seen := map[string]int{}
	for _, c := range calls {
		switch c.Date {
		case "2024-03-01":
			require.Equal(t, "Delhi", c.Source)
			require.Equal(t, "Cochin", c.Destination)
		case "2024-03-08":
			require.Equal(t, "Cochin", c.Source)
			require.Equal(t, "Delhi", c.Destination)
		default:
			t.Fatalf("unexpected date %q", c.Date)
		}
		require.Equal(t, "non-stop", c.TotalStops)
		require.Equal(t, "No info", c.AdditionalInfo)
		require.Equal(t, 1, c.Routes)
		seen[c.Airline]++
	}
	for _, a := range fourAirlines {
		require.Equal(t, 2, seen[a], "airline %s", a)
	}
}

func TestQuotes_InfoOverride(t *testing.T) {
	m := scenarioOracle()
	sel := NewSelector(m, testConfig(fourAirlines))
	q, err := NewRouteQuery("Delhi", "Cochin", "2024-03-01", "2024-03-08", "In-flight meal not included")
	require.NoError(t, err)

	_, err = sel.Quotes(context.Background(), q)
	require.NoError(t, err)
	for _, c := range m.Calls() {
		require.Equal(t, "In-flight meal not included", c.AdditionalInfo)
	}
}

func TestQuotes_TiesKeepCandidateOrder(t *testing.T) {
	m := newOracleMock().round("Delhi", "Cochin",
		map[string]float64{"A": 100, "B": 90, "C": 90, "D": 100},
		map[string]float64{"A": 50, "B": 50, "C": 50, "D": 50},
	)
	sel := NewSelector(m, testConfig([]string{"D", "C", "B", "A"}))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	for i := 0; i < 20; i++ {
		lq, err := sel.Quotes(context.Background(), q)
		require.NoError(t, err)
		require.Equal(t, []string{"C", "B", "D", "A"}, airlinesOf(lq.Outbound))
		require.Equal(t, []string{"D", "C", "B", "A"}, airlinesOf(lq.Return))
	}
}

func airlinesOf(qs []Quote) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Airline
	}
	return out
}

func TestCheapest_EmptyAirlines(t *testing.T) {
	m := scenarioOracle()
	sel := NewSelector(m, testConfig(nil))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	_, err := sel.Cheapest(context.Background(), q)
	require.ErrorIs(t, err, ErrNoAirlines)
	_, err = sel.RankPaired(context.Background(), q)
	require.ErrorIs(t, err, ErrNoAirlines)
	_, err = sel.OneWay(context.Background(), "Delhi", "Cochin", q.Outbound)
	require.ErrorIs(t, err, ErrNoAirlines)
	require.Empty(t, m.Calls())
}

func TestCheapest_InvalidQuotes(t *testing.T) {
	tests := []struct {
		name  string
		price float64
	}{
		{"nan", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := scenarioOracle()
			m.prices[legKey("C", "Cochin", "Delhi")] = tt.price
			sel := NewSelector(m, testConfig(fourAirlines))
			q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

			_, err := sel.Cheapest(context.Background(), q)
			require.ErrorIs(t, err, ErrInvalidQuote)

			var qe *QuoteError
			require.True(t, errors.As(err, &qe))
			require.Equal(t, "C", qe.Airline)
			require.Equal(t, Return, qe.Leg)
		})
	}
}

func TestCheapest_OracleFailure(t *testing.T) {
	m := scenarioOracle()
	m.fail[legKey("B", "Delhi", "Cochin")] = "model unavailable"
	sel := NewSelector(m, testConfig(fourAirlines))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	_, err := sel.Cheapest(context.Background(), q)
	require.Error(t, err)
	require.Equal(t, "outbound quote for B: model unavailable", err.Error())
}

func TestCheapest_Timeout(t *testing.T) {
	m := scenarioOracle()
	m.delay = 2 * time.Second
	cfg := testConfig(fourAirlines)
	cfg.Timeout = 100 * time.Millisecond
	sel := NewSelector(m, cfg)
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	_, err := sel.Cheapest(context.Background(), q)
	require.Error(t, err)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline exceeded, got %v", err)
	}
}

func TestCheapest_Idempotent(t *testing.T) {
	sel := NewSelector(scenarioOracle(), testConfig(fourAirlines))
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")

	c1, err := sel.RankPaired(context.Background(), q)
	require.NoError(t, err)
	c2, err := sel.RankPaired(context.Background(), q)
	require.NoError(t, err)
	if !reflect.DeepEqual(c1, c2) {
		t.Fatalf("results differ\nfirst=%+v\nsecond=%+v", c1, c2)
	}
}

func TestNewRouteQuery(t *testing.T) {
	tests := []struct {
		name      string
		origin    string
		dest      string
		out, back string
		field     string
	}{
		{"missing origin", "", "Cochin", "2024-03-01", "2024-03-08", "origin"},
		{"missing destination", "Delhi", " ", "2024-03-01", "2024-03-08", "destination"},
		{"same city", "Delhi", "delhi", "2024-03-01", "2024-03-08", "destination"},
		{"bad outbound", "Delhi", "Cochin", "01.03.2024", "2024-03-08", "outbound date"},
		{"missing return", "Delhi", "Cochin", "2024-03-01", "", "return date"},
		{"return before outbound", "Delhi", "Cochin", "2024-03-08", "2024-03-01", "return date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRouteQuery(tt.origin, tt.dest, tt.out, tt.back, "")
			var ie *InvalidQueryError
			require.True(t, errors.As(err, &ie), "got %v", err)
			require.Equal(t, tt.field, ie.Field)
		})
	}

	q, err := NewRouteQuery(" Delhi ", "Cochin", "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	require.Equal(t, "Delhi", q.Origin)
	require.True(t, q.Outbound.Equal(q.Return))
}

func TestNewSelector_FallsBackToDefaultMarkup(t *testing.T) {
	q := mustQuery(t, "Delhi", "Cochin", "2024-03-01", "2024-03-08")
	for _, markup := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		cfg := testConfig(fourAirlines)
		cfg.Markup = markup
		c, err := NewSelector(scenarioOracle(), cfg).Cheapest(context.Background(), q)
		require.NoError(t, err)
		require.InDelta(t, 140.40, c.Price, 1e-9, "markup %v", markup)
	}
}
