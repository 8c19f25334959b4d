package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/govsim/internal/render"
	"github.com/aristath/govsim/internal/session"
)

// SystemHandlers serves process and host health
type SystemHandlers struct {
	log          zerolog.Logger
	startedAt    time.Time
	sessions     *session.Store
	datasetStore bool
	stats        func() (cpuPercent, ramPercent float64)
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(sessions *session.Store, datasetStore bool, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		log:          log.With().Str("handler", "system").Logger(),
		startedAt:    time.Now(),
		sessions:     sessions,
		datasetStore: datasetStore,
	}
	h.stats = h.getSystemStats
	return h
}

// SystemStatusResponse represents the service status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	Goroutines    int     `json:"goroutines"`
	Sessions      int     `json:"sessions"`
	DatasetStore  bool    `json:"dataset_store"`
	GoVersion     string  `json:"go_version"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.stats()

	render.Data(w, r, http.StatusOK, SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		Sessions:      h.sessions.Len(),
		DatasetStore:  h.datasetStore,
		GoVersion:     runtime.Version(),
	}, h.log)
}

// getSystemStats samples CPU over 100ms and reads memory usage
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
