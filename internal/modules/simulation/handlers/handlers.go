// Package handlers provides HTTP handlers for scenario simulation:
// running a configured portfolio over historical prices, exporting the
// record series as CSV, and rolling-return analysis of a kept run.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ycliang/growthsim/internal/domain"
	"github.com/ycliang/growthsim/internal/modules/analysis"
	"github.com/ycliang/growthsim/internal/modules/marketdata"
	"github.com/ycliang/growthsim/internal/modules/simulation"
)

const dateLayout = "2006-01-02"

// Handler handles simulation HTTP requests
type Handler struct {
	provider *marketdata.Provider
	store    *simulation.RunStore
	log      zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(provider *marketdata.Provider, store *simulation.RunStore, log zerolog.Logger) *Handler {
	return &Handler{
		provider: provider,
		store:    store,
		log:      log.With().Str("handler", "simulation").Logger(),
	}
}

// SimulateRequest is the body of POST /api/v1/simulate.
type SimulateRequest struct {
	Config    domain.ConfigInput `json:"config"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
}

// RollingRequest is the body of POST /api/v1/rolling. It references a
// previous run by id.
type RollingRequest struct {
	RunID        string  `json:"run_id"`
	HoldingYears int     `json:"holding_years"`
	TargetReturn float64 `json:"target_return"`
}

// HandleSimulate handles POST /api/v1/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := domain.NewPortfolioConfig(req.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := h.provider.GetSeries(r.Context(), cfg.Symbols(), start, end, cfg.DividendReinvestment)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to fetch price history")
		http.Error(w, "Failed to fetch price history", http.StatusBadGateway)
		return
	}

	engine := simulation.NewEngine(cfg, h.log)
	result, err := engine.Run(series.Table)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) || errors.Is(err, domain.ErrSymbolNotInTable) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.log.Error().Err(err).Msg("Simulation failed")
		http.Error(w, "Simulation failed", http.StatusInternalServerError)
		return
	}

	result.Summary.AdjustedStart = series.AdjustedStart
	h.store.Put(result)

	h.log.Info().
		Str("run_id", result.Summary.RunID).
		Int("trading_days", result.Summary.TradingDays).
		Msg("Simulation finished")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"summary": result.Summary,
			"records": result.Records,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleExport handles GET /api/v1/simulate/{id}/export
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request, id string) {
	result, err := h.store.Get(id)
	if err != nil {
		http.Error(w, "Run not found or expired", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "simulation_"+id+".csv"))

	if err := simulation.WriteCSV(w, result.Records); err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("CSV export failed")
	}
}

// HandleRolling handles POST /api/v1/rolling
func (h *Handler) HandleRolling(w http.ResponseWriter, r *http.Request) {
	var req RollingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.store.Get(req.RunID)
	if err != nil {
		http.Error(w, "Run not found or expired", http.StatusNotFound)
		return
	}

	rolling, err := analysis.RollingReturns(result.Records, req.HoldingYears, req.TargetReturn)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientHistory) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rolling,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q, expected YYYY-MM-DD", startStr)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q, expected YYYY-MM-DD", endStr)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date must be after start_date")
	}
	return start, end, nil
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
