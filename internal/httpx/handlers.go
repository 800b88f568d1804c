package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/you/go-airfare-oracle/internal/service"
	"github.com/you/go-airfare-oracle/internal/store"
)

// API holds the dependencies of the protected routes.
type API struct {
	Selector          *service.Selector
	Trend             *service.TrendService
	Bulk              *service.BulkPlanner
	Searches          store.Recorder
	DepartureCities   []string
	DestinationCities []string
	StreamInterval    time.Duration
	Now               func() time.Time
}

// Register mounts the protected routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/data", a.RankedHandler)
	mux.HandleFunc("GET /api/data/lowestcost", a.LowestCostHandler)
	mux.HandleFunc("GET /api/data/trend", a.TrendHandler)
	mux.HandleFunc("GET /api/cities", a.CitiesHandler)
	mux.HandleFunc("GET /api/searches", a.SearchesHandler)
	mux.HandleFunc("POST /api/trips", a.TripsHandler)
	mux.HandleFunc("POST /api/trips/report", a.TripsReportHandler)
	mux.HandleFunc("GET /sse/{dep}/{dest}", a.SubscribeSSEHandler)
	mux.HandleFunc("GET /ws/{dep}/{dest}", a.SubscribeWSHandler)
}

type combinationResponse struct {
	Airlines string        `json:"airlines"`
	Price    float64       `json:"price"`
	Total    float64       `json:"total"`
	Outbound service.Quote `json:"outbound"`
	Return   service.Quote `json:"return"`
}

func toResponse(c service.Combination) combinationResponse {
	return combinationResponse{
		Airlines: c.Airlines(),
		Price:    c.Price,
		Total:    c.Total,
		Outbound: c.Outbound,
		Return:   c.Return,
	}
}

type rankedResponse struct {
	DepartureCity   string                `json:"departure_city"`
	DestinationCity string                `json:"destination_city"`
	DepartureDate   string                `json:"departure_date"`
	BackDate        string                `json:"back_date"`
	Prices          []combinationResponse `json:"prices"`
}

// RankedHandler answers with every rank-paired combination, cheapest rank first.
func (a *API) RankedHandler(w http.ResponseWriter, r *http.Request) {
	q, err := a.routeQuery(r.URL.Query().Get("dep"), r.URL.Query().Get("dest"), r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	combos, err := a.Selector.RankPaired(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := rankedResponse{
		DepartureCity:   q.Origin,
		DestinationCity: q.Destination,
		DepartureDate:   q.Outbound.Format(service.DateLayout),
		BackDate:        q.Return.Format(service.DateLayout),
		Prices:          make([]combinationResponse, 0, len(combos)),
	}
	for _, c := range combos {
		res.Prices = append(res.Prices, toResponse(c))
	}
	a.record(r.Context(), "ranked", q, combos[0])
	writeJSON(w, r, http.StatusOK, res)
}

// LowestCostHandler answers with the single cheapest combination.
func (a *API) LowestCostHandler(w http.ResponseWriter, r *http.Request) {
	q, err := a.routeQuery(r.URL.Query().Get("dep"), r.URL.Query().Get("dest"), r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	c, err := a.Selector.Cheapest(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a.record(r.Context(), "lowestcost", q, c)
	writeJSON(w, r, http.StatusOK, toResponse(c))
}

func (a *API) TrendHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	origin, dest, err := a.checkCities(qs.Get("dep"), qs.Get("dest"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	from := a.now().UTC().Truncate(24 * time.Hour)
	if s := qs.Get("from"); s != "" {
		if from, err = time.Parse(service.DateLayout, s); err != nil {
			writeError(w, r, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
	}
	days := 0
	if s := qs.Get("days"); s != "" {
		if days, err = strconv.Atoi(s); err != nil {
			writeError(w, r, http.StatusBadRequest, "days must be an integer")
			return
		}
	}

	points, err := a.Trend.Daily(r.Context(), origin, dest, from, days)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, points)
}

func (a *API) CitiesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{
		"departure_cities":   a.DepartureCities,
		"destination_cities": a.DestinationCities,
		"airlines":           a.Selector.Airlines(),
	})
}

func (a *API) SearchesHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := a.Searches.Recent(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "list searches failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"searches": recs})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) routeQuery(dep, dest string, r *http.Request) (service.RouteQuery, error) {
	origin, destination, err := a.checkCities(dep, dest)
	if err != nil {
		return service.RouteQuery{}, err
	}
	qs := r.URL.Query()
	return service.NewRouteQuery(origin, destination, qs.Get("depdate"), qs.Get("backdate"), qs.Get("info"))
}

// checkCities returns the canonical spelling of both cities. An empty list
// accepts any city.
func (a *API) checkCities(dep, dest string) (string, string, error) {
	origin, ok := lookupCity(a.DepartureCities, dep)
	if !ok {
		return "", "", &service.InvalidQueryError{Field: "origin", Reason: "unknown city " + strconv.Quote(dep)}
	}
	destination, ok := lookupCity(a.DestinationCities, dest)
	if !ok {
		return "", "", &service.InvalidQueryError{Field: "destination", Reason: "unknown city " + strconv.Quote(dest)}
	}
	return origin, destination, nil
}

func lookupCity(known []string, city string) (string, bool) {
	city = strings.TrimSpace(city)
	if len(known) == 0 || city == "" {
		return city, true
	}
	for _, k := range known {
		if strings.EqualFold(k, city) {
			return k, true
		}
	}
	return "", false
}

func (a *API) record(ctx context.Context, kind string, q service.RouteQuery, c service.Combination) {
	if a.Searches == nil {
		return
	}
	err := a.Searches.Record(ctx, store.SearchRecord{
		Kind:        kind,
		Origin:      q.Origin,
		Destination: q.Destination,
		Outbound:    q.Outbound.Format(service.DateLayout),
		Return:      q.Return.Format(service.DateLayout),
		Airlines:    c.Airlines(),
		Price:       c.Price,
	})
	if err != nil {
		slog.WarnContext(ctx, "record search failed", "req_id", RequestID(ctx), "error", err)
	}
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
