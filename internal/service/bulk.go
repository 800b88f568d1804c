package service

import (
	"context"

	"github.com/you/go-airfare-oracle/internal/sheets"
	"golang.org/x/sync/errgroup"
)

// TripPlan is the priced result for one business trip row. Error is set
// instead of Combination when that row could not be priced.
type TripPlan struct {
	Trip        sheets.Trip  `json:"trip"`
	Combination *Combination `json:"combination,omitempty"`
	Airlines    string       `json:"airlines,omitempty"`
	Price       float64      `json:"price,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// BulkPlanner prices many trips with the cheapest-combination rule.
type BulkPlanner struct {
	sel      *Selector
	parallel int
}

func NewBulkPlanner(sel *Selector, parallel int) *BulkPlanner {
	if parallel < 1 {
		parallel = 1
	}
	return &BulkPlanner{sel: sel, parallel: parallel}
}

// Plan prices every trip. A bad row is reported on that row only; an empty
// airline set aborts the batch.
func (b *BulkPlanner) Plan(ctx context.Context, trips []sheets.Trip) ([]TripPlan, error) {
	if len(b.sel.airlines) == 0 {
		return nil, ErrNoAirlines
	}

	plans := make([]TripPlan, len(trips))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallel)
	for i, trip := range trips {
		g.Go(func() error {
			plans[i] = b.planOne(gctx, trip)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (b *BulkPlanner) planOne(ctx context.Context, trip sheets.Trip) TripPlan {
	plan := TripPlan{Trip: trip}
	q, err := NewRouteQuery(trip.Origin, trip.Destination, trip.DepartureDate, trip.ReturnDate, "")
	if err != nil {
		plan.Error = err.Error()
		return plan
	}
	c, err := b.sel.Cheapest(ctx, q)
	if err != nil {
		plan.Error = err.Error()
		return plan
	}
	plan.Combination = &c
	plan.Airlines = c.Airlines()
	plan.Price = c.Price
	return plan
}
