package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/govsim/internal/modules/governance"
	"github.com/aristath/govsim/internal/session"
)

func TestSystemHandlers_HandleSystemStatus(t *testing.T) {
	sessions := session.NewStore()
	sessions.Record("a", &governance.Assessment{Score: 5})
	sessions.Record("b", &governance.Assessment{Score: 6})
	sessions.Get("c")

	h := NewSystemHandlers(sessions, true, zerolog.Nop())
	h.stats = func() (float64, float64) { return 12.5, 40 }

	req := httptest.NewRequest(http.MethodGet, "/api/system/status", nil)
	w := httptest.NewRecorder()
	h.HandleSystemStatus(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data SystemStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	status := envelope.Data
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, 12.5, status.CPUPercent)
	assert.Equal(t, 40.0, status.RAMPercent)
	assert.Equal(t, 2, status.Sessions)
	assert.True(t, status.DatasetStore)
	assert.Greater(t, status.Goroutines, 0)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
	assert.NotEmpty(t, status.GoVersion)
}

func TestSystemHandlers_GetSystemStats(t *testing.T) {
	h := NewSystemHandlers(session.NewStore(), false, zerolog.Nop())

	cpuPercent, ramPercent := h.getSystemStats()
	assert.GreaterOrEqual(t, cpuPercent, 0.0)
	assert.GreaterOrEqual(t, ramPercent, 0.0)
	assert.LessOrEqual(t, ramPercent, 100.0)
}
