package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var (
	// ErrNoAirlines means the selector was built without candidate airlines.
	ErrNoAirlines = errors.New("configuration error: candidate airline set is empty")
	// ErrInvalidQuote marks an oracle answer that is NaN, infinite or negative.
	ErrInvalidQuote = errors.New("invalid quote")
)

// InvalidQueryError reports a rejected request field.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Leg is the direction a quote was requested for.
type Leg string

const (
	Outbound Leg = "outbound"
	Return   Leg = "return"
)

// QuoteError wraps a failed or unusable oracle answer.
type QuoteError struct {
	Airline string
	Leg     Leg
	Err     error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("%s quote for %s: %v", e.Leg, e.Airline, e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// RouteQuery is one outbound + return request.
type RouteQuery struct {
	Origin      string
	Destination string
	Outbound    time.Time
	Return      time.Time
	// Info overrides the configured additional-info feature when set.
	Info string
}

func NewRouteQuery(origin, destination, outbound, back, info string) (RouteQuery, error) {
	origin = strings.TrimSpace(origin)
	destination = strings.TrimSpace(destination)
	if origin == "" {
		return RouteQuery{}, &InvalidQueryError{Field: "origin", Reason: "required"}
	}
	if destination == "" {
		return RouteQuery{}, &InvalidQueryError{Field: "destination", Reason: "required"}
	}
	if strings.EqualFold(origin, destination) {
		return RouteQuery{}, &InvalidQueryError{Field: "destination", Reason: "must differ from origin"}
	}
	out, err := parseDate("outbound date", outbound)
	if err != nil {
		return RouteQuery{}, err
	}
	ret, err := parseDate("return date", back)
	if err != nil {
		return RouteQuery{}, err
	}
	if ret.Before(out) {
		return RouteQuery{}, &InvalidQueryError{Field: "return date", Reason: "must not be before outbound date"}
	}
	return RouteQuery{
		Origin:      origin,
		Destination: destination,
		Outbound:    out,
		Return:      ret,
		Info:        strings.TrimSpace(info),
	}, nil
}

func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &InvalidQueryError{Field: field, Reason: "required"}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &InvalidQueryError{Field: field, Reason: "use YYYY-MM-DD"}
	}
	return t, nil
}

// Quote is one airline's predicted price for one leg.
type Quote struct {
	Airline string  `json:"airline"`
	Price   float64 `json:"price"`
}

// Combination pairs an outbound and a return quote.
type Combination struct {
	Outbound Quote   `json:"outbound"`
	Return   Quote   `json:"return"`
	Total    float64 `json:"total"`
	// Price is Total with the markup applied.
	Price float64 `json:"price"`
}

func (c Combination) Airlines() string {
	return c.Outbound.Airline + ", " + c.Return.Airline
}
