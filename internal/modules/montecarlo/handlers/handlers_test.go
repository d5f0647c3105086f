package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ycliang/growthsim/internal/modules/marketdata"
	"github.com/ycliang/growthsim/internal/modules/montecarlo"
)

// fakeYahoo serves thirty days of gently rising candles for VT.
func fakeYahoo(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := strings.TrimPrefix(r.URL.Path, "/v8/finance/chart/")
		if symbol != "VT" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var timestamps, closes []string
		date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		price := 100.0
		for i := 0; i < 30; i++ {
			timestamps = append(timestamps, fmt.Sprintf("%d", date.Unix()))
			closes = append(closes, fmt.Sprintf("%g", price))
			price *= 1.002
			date = date.AddDate(0, 0, 1)
		}

		fmt.Fprintf(w, `{"chart":{"result":[{"meta":{"currency":"USD","symbol":"%s"},"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
			symbol, strings.Join(timestamps, ","), strings.Join(closes, ","))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, yahooURL string, maxTrials int) chi.Router {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	provider := marketdata.NewProvider(marketdata.NewClient(yahooURL, log), nil, log)
	tester := montecarlo.NewTester(2, log)

	r := chi.NewRouter()
	NewHandler(provider, tester, maxTrials, log).RegisterRoutes(r)
	return r
}

func stressBody(symbol string, trials int) string {
	return fmt.Sprintf(`{
		"symbols": ["%s"],
		"start_date": "2024-01-01",
		"end_date": "2024-02-15",
		"params": {
			"sim_years": 1,
			"trials": %d,
			"initial_capital": 100000,
			"seed": 1
		}
	}`, symbol, trials)
}

func TestHandleStress_RoundTrip(t *testing.T) {
	srv := fakeYahoo(t)
	router := newTestRouter(t, srv.URL, 1000)

	req := httptest.NewRequest("POST", "/stress", strings.NewReader(stressBody("vt", 100)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(100), data["trials"])
	// Gently rising history with no flows: every trial survives.
	assert.Equal(t, float64(1), data["success_rate"])
	assert.Len(t, data["paths"].([]interface{}), 50)
}

func TestHandleStress_TrialsOverLimit(t *testing.T) {
	srv := fakeYahoo(t)
	router := newTestRouter(t, srv.URL, 1000)

	req := httptest.NewRequest("POST", "/stress", strings.NewReader(stressBody("VT", 5000)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStress_UnknownSymbol(t *testing.T) {
	srv := fakeYahoo(t)
	router := newTestRouter(t, srv.URL, 1000)

	req := httptest.NewRequest("POST", "/stress", strings.NewReader(stressBody("NOPE", 100)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleStress_InvalidDates(t *testing.T) {
	srv := fakeYahoo(t)
	router := newTestRouter(t, srv.URL, 1000)

	body := `{"symbols": ["VT"], "start_date": "nope", "end_date": "2024-02-15", "params": {"sim_years": 1, "trials": 10}}`
	req := httptest.NewRequest("POST", "/stress", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStressStream_ProgressThenResult(t *testing.T) {
	yahooSrv := fakeYahoo(t)
	router := newTestRouter(t, yahooSrv.URL, 1000)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stress/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The result frame carries 50 full NAV paths.
	conn.SetReadLimit(1 << 24)

	var req StressRequest
	require.NoError(t, json.Unmarshal([]byte(stressBody("VT", 200)), &req))
	require.NoError(t, wsjson.Write(ctx, conn, req))

	var sawProgress bool
	for {
		var frame streamFrame
		require.NoError(t, wsjson.Read(ctx, conn, &frame))

		switch frame.Type {
		case "progress":
			sawProgress = true
			assert.Equal(t, 200, frame.Total)
			assert.LessOrEqual(t, frame.Completed, 200)
		case "result":
			require.NotNil(t, frame.Result)
			assert.Equal(t, 200, frame.Result.Trials)
			assert.True(t, sawProgress, "expected progress frames before the result")
			return
		default:
			t.Fatalf("unexpected frame type %q: %s", frame.Type, frame.Error)
		}
	}
}
