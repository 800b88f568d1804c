package oracle

import (
	"context"
	"strconv"
	"strings"
)

// Features is one row of model input. Field meaning follows the columns the
// regression model was trained on.
type Features struct {
	Airline        string
	Date           string // YYYY-MM-DD
	Source         string
	Destination    string
	TotalStops     string
	AdditionalInfo string
	Routes         int
}

// Key identifies a feature row; two rows with the same key get the same price.
func (f Features) Key() string {
	return strings.Join([]string{
		f.Airline, f.Date, f.Source, f.Destination, f.TotalStops, f.AdditionalInfo, strconv.Itoa(f.Routes),
	}, "|")
}

// Oracle predicts a ticket price for one flight leg. Implementations must be
// deterministic for identical inputs within one process lifetime.
type Oracle interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, f Features) (float64, error)

func (fn Func) Predict(ctx context.Context, f Features) (float64, error) {
	return fn(ctx, f)
}
