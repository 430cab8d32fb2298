package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braillekbd/keyboard"
	"braillekbd/monitoring"
)

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "42s", formatUptime(42))
	assert.Equal(t, "2m 5s", formatUptime(125))
	assert.Equal(t, "1h 1m 1s", formatUptime(3661))
}

func TestCellText(t *testing.T) {
	info := keyboard.Info{
		Name:            "left",
		Device:          "/dev/ttyUSB0",
		State:           keyboard.StateConnected,
		BufferedMode:    true,
		BufferLen:       3,
		ControlPending:  2,
		ControlsDropped: 1,
		Stats:           keyboard.Stats{LinesReceived: 10, LinesRejected: 4},
	}

	want := []string{"left", "/dev/ttyUSB0", "connected", "on", "3", "2 (1 lost)", "10", "4", "-"}
	for col, w := range want {
		assert.Equal(t, w, cellText(info, col), "column %d", col)
	}
	assert.Len(t, want, len(dashboardHeaders))

	info.Stats.LastLineTime = time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)
	assert.Equal(t, "13:04:05", cellText(info, 8))
}

func TestSortedKeyboards(t *testing.T) {
	rows := sortedKeyboards(map[string]keyboard.Info{
		"right": {Name: "right"},
		"left":  {Name: "left"},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "left", rows[0].Name)
	assert.Equal(t, "right", rows[1].Name)
}

func TestGetHealth_DegradedStillDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(monitoring.HealthResponse{
			Status:    "degraded",
			Keyboards: map[string]keyboard.Info{"main": {Name: "main", State: keyboard.StateDisconnected}},
		})
	}))
	defer srv.Close()

	health, err := NewDashboardTab(srv.URL).getHealth()
	require.NoError(t, err)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, keyboard.StateDisconnected, health.Keyboards["main"].State)

	_, err = NewDashboardTab("http://127.0.0.1:1").getHealth()
	assert.Error(t, err)
}
