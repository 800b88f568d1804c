package httpx

import (
	"log/slog"
	"net/http"

	"github.com/you/go-airfare-oracle/internal/report"
	"github.com/you/go-airfare-oracle/internal/service"
	"github.com/you/go-airfare-oracle/internal/sheets"
)

const maxUploadBytes = 10 << 20

// TripsHandler prices every business trip of an uploaded sheet.
func (a *API) TripsHandler(w http.ResponseWriter, r *http.Request) {
	plans, ok := a.planUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"trips": plans})
}

// TripsReportHandler returns the priced trips as a PDF.
func (a *API) TripsReportHandler(w http.ResponseWriter, r *http.Request) {
	plans, ok := a.planUpload(w, r)
	if !ok {
		return
	}
	pdf, err := report.TripsPDF(plans, a.now())
	if err != nil {
		slog.ErrorContext(r.Context(), "render trips report failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=business-trips.pdf")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (a *API) planUpload(w http.ResponseWriter, r *http.Request) ([]service.TripPlan, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart field \"file\" is required")
		return nil, false
	}
	defer file.Close()

	trips, err := sheets.Parse(file, header.Filename)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(trips) == 0 {
		writeError(w, r, http.StatusBadRequest, "file has no trips")
		return nil, false
	}

	plans, err := a.Bulk.Plan(r.Context(), trips)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	slog.InfoContext(r.Context(), "bulk trips planned", "req_id", RequestID(r.Context()), "rows", len(plans))
	return plans, true
}
