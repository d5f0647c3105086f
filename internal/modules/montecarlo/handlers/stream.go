package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ycliang/growthsim/internal/modules/montecarlo"
)

// streamFrame is one websocket message: progress frames while the batch
// runs, then a single result or error frame.
type streamFrame struct {
	Type      string                   `json:"type"` // "progress", "result", "error"
	Completed int                      `json:"completed,omitempty"`
	Total     int                      `json:"total,omitempty"`
	Result    *montecarlo.StressResult `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// HandleStressStream handles GET /api/v1/stress/stream. The client
// sends one StressRequest frame; the server streams progress frames
// (roughly one per percent) followed by the final result.
func (h *Handler) HandleStressStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	ctx := r.Context()

	var req StressRequest
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = wsjson.Read(readCtx, conn, &req)
	cancel()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read stress request frame")
		return
	}

	step := req.Params.Trials / 100
	if step < 1 {
		step = 1
	}

	progress := func(completed, total int) {
		if completed%step != 0 && completed != total {
			return
		}
		frame := streamFrame{Type: "progress", Completed: completed, Total: total}
		if err := wsjson.Write(ctx, conn, frame); err != nil {
			h.log.Debug().Err(err).Msg("Progress frame write failed")
		}
	}

	result, err := h.runStress(r, req, progress)
	if err != nil {
		_ = wsjson.Write(ctx, conn, streamFrame{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	if err := wsjson.Write(ctx, conn, streamFrame{Type: "result", Result: result}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to write result frame")
		return
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
