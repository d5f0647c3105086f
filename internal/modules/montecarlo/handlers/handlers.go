// Package handlers provides HTTP handlers for bootstrap stress tests,
// including a websocket variant that streams trial progress.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ycliang/growthsim/internal/domain"
	"github.com/ycliang/growthsim/internal/modules/marketdata"
	"github.com/ycliang/growthsim/internal/modules/montecarlo"
)

const dateLayout = "2006-01-02"

// Handler handles stress-test HTTP requests
type Handler struct {
	provider  *marketdata.Provider
	tester    *montecarlo.Tester
	maxTrials int
	log       zerolog.Logger
}

// NewHandler creates a new stress-test handler. maxTrials bounds the
// per-request trial count.
func NewHandler(provider *marketdata.Provider, tester *montecarlo.Tester, maxTrials int, log zerolog.Logger) *Handler {
	return &Handler{
		provider:  provider,
		tester:    tester,
		maxTrials: maxTrials,
		log:       log.With().Str("handler", "montecarlo").Logger(),
	}
}

// StressRequest is the body of POST /api/v1/stress and the first frame
// of the websocket stream. Symbols and the date range select the
// historical returns the bootstrap draws from.
type StressRequest struct {
	Symbols              []string                `json:"symbols"`
	StartDate            string                  `json:"start_date"`
	EndDate              string                  `json:"end_date"`
	DividendReinvestment bool                    `json:"dividend_reinvestment"`
	Params               montecarlo.StressParams `json:"params"`
}

// HandleStress handles POST /api/v1/stress
func (h *Handler) HandleStress(w http.ResponseWriter, r *http.Request) {
	var req StressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.runStress(r, req, nil)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// runStress validates the request, fetches and blends the historical
// returns, and runs the batch.
func (h *Handler) runStress(r *http.Request, req StressRequest, progress montecarlo.ProgressCallback) (*montecarlo.StressResult, error) {
	if req.Params.Trials > h.maxTrials {
		return nil, &requestError{
			status: http.StatusBadRequest,
			msg:    fmt.Sprintf("trials %d exceeds the maximum of %d", req.Params.Trials, h.maxTrials),
		}
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, msg: "invalid start_date, expected YYYY-MM-DD"}
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, &requestError{status: http.StatusBadRequest, msg: "invalid end_date, expected YYYY-MM-DD"}
	}

	series, err := h.provider.GetSeries(r.Context(), normalizeSymbols(req.Symbols), start, end, req.DividendReinvestment)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return nil, &requestError{status: http.StatusNotFound, msg: err.Error()}
		}
		h.log.Error().Err(err).Msg("Failed to fetch price history")
		return nil, &requestError{status: http.StatusBadGateway, msg: "failed to fetch price history"}
	}

	returns, err := montecarlo.BlendedReturns(series.Table, series.Table.Symbols)
	if err != nil {
		return nil, &requestError{status: http.StatusUnprocessableEntity, msg: err.Error()}
	}

	result, err := h.tester.Run(r.Context(), returns, req.Params, progress)
	if err != nil {
		if errors.Is(err, domain.ErrNoData) {
			return nil, &requestError{status: http.StatusUnprocessableEntity, msg: err.Error()}
		}
		return nil, &requestError{status: http.StatusBadRequest, msg: err.Error()}
	}

	return result, nil
}

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		http.Error(w, reqErr.msg, reqErr.status)
		return
	}
	h.log.Error().Err(err).Msg("Stress test failed")
	http.Error(w, "Stress test failed", http.StatusInternalServerError)
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
