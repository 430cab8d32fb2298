package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"braillekbd/keyboard"
	"braillekbd/monitoring"
)

var dashboardHeaders = []string{"Keyboard", "Device", "State", "Buffered", "Buffer", "Controls", "Lines", "Rejected", "Last Line"}

// DashboardTab represents the dashboard UI
type DashboardTab struct {
	apiURL          string
	client          *http.Client
	statusLabel     *widget.Label
	instanceLabel   *widget.Label
	versionLabel    *widget.Label
	uptimeLabel     *widget.Label
	keyboardTable   *widget.Table
	refreshInterval time.Duration
	rows            []keyboard.Info

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewDashboardTab creates a new dashboard tab
func NewDashboardTab(apiURL string) *DashboardTab {
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	return &DashboardTab{
		apiURL:          apiURL,
		client:          &http.Client{Timeout: 3 * time.Second},
		refreshInterval: 2 * time.Second,
	}
}

// Build constructs the dashboard UI
func (d *DashboardTab) Build() *fyne.Container {
	// Status section
	d.statusLabel = widget.NewLabel("Status: Unknown")
	d.instanceLabel = widget.NewLabel("Instance: -")
	d.versionLabel = widget.NewLabel("Version: -")
	d.uptimeLabel = widget.NewLabel("Uptime: -")

	statusCard := widget.NewCard("Driver Status", d.apiURL, container.NewVBox(
		d.statusLabel,
		d.instanceLabel,
		d.versionLabel,
		d.uptimeLabel,
	))

	// Keyboard table
	d.keyboardTable = widget.NewTable(
		func() (int, int) {
			return len(d.rows) + 1, len(dashboardHeaders) // +1 for header row
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, cell fyne.CanvasObject) {
			label := cell.(*widget.Label)

			// Header row
			if id.Row == 0 {
				label.SetText(dashboardHeaders[id.Col])
				label.TextStyle = fyne.TextStyle{Bold: true}
				label.Importance = widget.MediumImportance
				return
			}

			if id.Row-1 >= len(d.rows) {
				return
			}
			label.TextStyle = fyne.TextStyle{}
			label.Importance = widget.MediumImportance
			info := d.rows[id.Row-1]
			label.SetText(cellText(info, id.Col))

			// Color code the state
			if id.Col == 2 {
				switch info.State {
				case keyboard.StateConnected:
					label.Importance = widget.SuccessImportance
				case keyboard.StateDisconnected:
					label.Importance = widget.DangerImportance
				default:
					label.Importance = widget.WarningImportance
				}
			}
		},
	)

	widths := []float32{100, 140, 110, 80, 70, 80, 70, 80, 90}
	for col, w := range widths {
		d.keyboardTable.SetColumnWidth(col, w)
	}

	tableCard := widget.NewCard("Keyboards", "", container.NewScroll(d.keyboardTable))

	refreshBtn := widget.NewButton("Refresh Now", func() {
		go d.fetchHealth()
	})

	autoRefreshCheck := widget.NewCheck("Auto-refresh (2s)", func(checked bool) {
		if checked {
			d.startAutoRefresh()
		} else {
			d.Stop()
		}
	})
	autoRefreshCheck.SetChecked(true)

	controls := container.NewHBox(
		refreshBtn,
		autoRefreshCheck,
	)

	return container.NewBorder(
		container.NewVBox(statusCard, controls),
		nil,
		nil,
		nil,
		tableCard,
	)
}

// Stop ends the auto-refresh loop
func (d *DashboardTab) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *DashboardTab) startAutoRefresh() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.autoRefresh(ctx)
}

func (d *DashboardTab) autoRefresh(ctx context.Context) {
	ticker := time.NewTicker(d.refreshInterval)
	defer ticker.Stop()

	d.fetchHealth()
	for {
		select {
		case <-ticker.C:
			d.fetchHealth()
		case <-ctx.Done():
			return
		}
	}
}

// fetchHealth retrieves health data from the API. Runs off the UI
// goroutine; widget updates go through fyne.Do.
func (d *DashboardTab) fetchHealth() {
	health, err := d.getHealth()
	if err != nil {
		fyne.Do(func() { d.statusLabel.SetText("Status: Error - " + err.Error()) })
		return
	}
	rows := sortedKeyboards(health.Keyboards)

	fyne.Do(func() {
		d.statusLabel.SetText(fmt.Sprintf("Status: %s", health.Status))
		d.instanceLabel.SetText(fmt.Sprintf("Instance: %s", health.InstanceID))
		d.versionLabel.SetText(fmt.Sprintf("Version: %s", health.Version))
		d.uptimeLabel.SetText(fmt.Sprintf("Uptime: %s", formatUptime(health.UptimeSec)))
		d.rows = rows
		d.keyboardTable.Refresh()
	})
}

// getHealth decodes /health. A degraded driver answers 503 with the
// same body, so the status code is not treated as failure.
func (d *DashboardTab) getHealth() (*monitoring.HealthResponse, error) {
	resp, err := d.client.Get(d.apiURL + "/health")
	if err != nil {
		return nil, fmt.Errorf("cannot connect to driver")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read response")
	}

	var health monitoring.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("invalid response")
	}
	return &health, nil
}

func sortedKeyboards(m map[string]keyboard.Info) []keyboard.Info {
	rows := make([]keyboard.Info, 0, len(m))
	for _, info := range m {
		rows = append(rows, info)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func cellText(info keyboard.Info, col int) string {
	switch col {
	case 0:
		return info.Name
	case 1:
		return info.Device
	case 2:
		return string(info.State)
	case 3:
		if info.BufferedMode {
			return "on"
		}
		return "off"
	case 4:
		return fmt.Sprintf("%d", info.BufferLen)
	case 5:
		if info.ControlsDropped > 0 {
			return fmt.Sprintf("%d (%d lost)", info.ControlPending, info.ControlsDropped)
		}
		return fmt.Sprintf("%d", info.ControlPending)
	case 6:
		return fmt.Sprintf("%d", info.Stats.LinesReceived)
	case 7:
		return fmt.Sprintf("%d", info.Stats.LinesRejected)
	case 8:
		if info.Stats.LastLineTime.IsZero() {
			return "-"
		}
		return info.Stats.LastLineTime.Format("15:04:05")
	}
	return ""
}

// formatUptime formats uptime seconds into a readable string
func formatUptime(seconds int64) string {
	duration := time.Duration(seconds) * time.Second
	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	secs := int(duration.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%ds", secs)
}
