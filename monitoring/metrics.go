package monitoring

import (
	"fmt"
	"net/http"
	"sort"

	"braillekbd/keyboard"
	"braillekbd/output"
)

// MetricsHandler creates an HTTP handler for Prometheus metrics
type MetricsHandler struct {
	hub *keyboard.Hub
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(hub *keyboard.Hub) *MetricsHandler {
	return &MetricsHandler{
		hub: hub,
	}
}

type counter struct {
	name, help, kind string
	value            func(keyboard.Info) int64
}

var keyboardMetrics = []counter{
	{"braillekbd_lines_total", "Device lines received", "counter",
		func(i keyboard.Info) int64 { return i.Stats.LinesReceived }},
	{"braillekbd_lines_rejected_total", "Malformed device lines dropped", "counter",
		func(i keyboard.Info) int64 { return i.Stats.LinesRejected }},
	{"braillekbd_cells_total", "Cells accepted into the input buffer", "counter",
		func(i keyboard.Info) int64 { return i.Stats.CellsAccepted }},
	{"braillekbd_cells_discarded_total", "Cells discarded while buffered mode was off", "counter",
		func(i keyboard.Info) int64 { return i.Stats.CellsDiscarded }},
	{"braillekbd_controls_total", "Control signals queued", "counter",
		func(i keyboard.Info) int64 { return i.Stats.ControlsQueued }},
	{"braillekbd_controls_dropped_total", "Control signals dropped on a full queue", "counter",
		func(i keyboard.Info) int64 { return i.ControlsDropped }},
	{"braillekbd_faults_total", "Transport faults", "counter",
		func(i keyboard.Info) int64 { return i.Stats.Faults }},
	{"braillekbd_up", "Keyboard transport status (1=connected, 0=not connected)", "gauge",
		func(i keyboard.Info) int64 {
			if i.Available {
				return 1
			}
			return 0
		}},
	{"braillekbd_buffer_cells", "Cells in the input buffer", "gauge",
		func(i keyboard.Info) int64 { return int64(i.BufferLen) }},
	{"braillekbd_control_pending", "Control signals waiting for a consumer", "gauge",
		func(i keyboard.Info) int64 { return int64(i.ControlPending) }},
}

// ServeHTTP handles the /metrics endpoint in Prometheus format
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	infos := h.hub.Infos()
	names := make([]string, 0, len(infos))
	for name := range infos {
		names = append(names, name)
	}
	sort.Strings(names)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	for i, m := range keyboardMetrics {
		if i > 0 {
			fmt.Fprintln(w, "")
		}
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		for _, name := range names {
			info := infos[name]
			fmt.Fprintf(w, "%s{keyboard=%q,device=%q} %d\n", m.name, name, info.Device, m.value(info))
		}
	}

	actuators := []string{output.ActuatorLed, output.ActuatorVibrate}

	// Actuator commands
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP braillekbd_commands_written_total Actuator commands written to the device")
	fmt.Fprintln(w, "# TYPE braillekbd_commands_written_total counter")
	for _, name := range names {
		for _, a := range actuators {
			fmt.Fprintf(w, "braillekbd_commands_written_total{keyboard=%q,actuator=%q} %d\n",
				name, a, infos[name].Actuators[a].Written)
		}
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP braillekbd_command_errors_total Actuator writes that failed")
	fmt.Fprintln(w, "# TYPE braillekbd_command_errors_total counter")
	for _, name := range names {
		for _, a := range actuators {
			fmt.Fprintf(w, "braillekbd_command_errors_total{keyboard=%q,actuator=%q} %d\n",
				name, a, infos[name].Actuators[a].Errors)
		}
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP braillekbd_actuator_pending Actuator commands waiting to be written")
	fmt.Fprintln(w, "# TYPE braillekbd_actuator_pending gauge")
	for _, name := range names {
		for _, a := range actuators {
			fmt.Fprintf(w, "braillekbd_actuator_pending{keyboard=%q,actuator=%q} %d\n",
				name, a, infos[name].ActuatorPending[a])
		}
	}

	// Last line timestamp
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP braillekbd_last_line_timestamp Unix timestamp of the last device line")
	fmt.Fprintln(w, "# TYPE braillekbd_last_line_timestamp gauge")
	for _, name := range names {
		if t := infos[name].Stats.LastLineTime; !t.IsZero() {
			fmt.Fprintf(w, "braillekbd_last_line_timestamp{keyboard=%q} %d\n", name, t.Unix())
		}
	}
}
