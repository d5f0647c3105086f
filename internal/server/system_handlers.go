package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
	}
}

// SystemHealthResponse represents the system health response
type SystemHealthResponse struct {
	Status      string  `json:"status"`
	UptimeHours float64 `json:"uptime_hours"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
	Timestamp   string  `json:"timestamp"`
}

// HandleSystemHealth returns process uptime and host CPU/RAM usage
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemHealthResponse{
		Status:      "healthy",
		UptimeHours: time.Since(h.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system health response")
	}
}

// getSystemStats calculates CPU and RAM usage percentages. The 100ms
// sampling window keeps the endpoint responsive for polling clients.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
