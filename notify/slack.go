package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"braillekbd/config"
)

// SlackNotifier posts lifecycle and transport fault notices to a Slack
// incoming webhook
type SlackNotifier struct {
	config     *config.SlackConfig
	instanceID string
	logger     *slog.Logger
	client     *http.Client

	faultMu   sync.Mutex
	lastFault map[string]time.Time
	now       func() time.Time
}

// SlackMessage represents a Slack webhook message
type SlackMessage struct {
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack message attachment
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(cfg *config.SlackConfig, instanceID string, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		config:     cfg,
		instanceID: instanceID,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		lastFault: make(map[string]time.Time),
		now:       time.Now,
	}
}

// IsEnabled returns true if Slack notifications are configured
func (s *SlackNotifier) IsEnabled() bool {
	return s.config.WebhookURL != ""
}

// NotifyStartup reports how many keyboards came up connected
func (s *SlackNotifier) NotifyStartup(keyboards, connected int) error {
	if !s.IsEnabled() || !s.config.NotifyStartup {
		return nil
	}

	msg := SlackMessage{
		Attachments: []SlackAttachment{
			{
				Color: startupColor(keyboards, connected),
				Title: "Braille keyboard driver started",
				Fields: []SlackField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Keyboards", Value: fmt.Sprintf("%d/%d connected", connected, keyboards), Short: true},
				},
				Footer:    "braillekbd",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return s.send(msg)
}

// NotifyShutdown sends a shutdown notification with totals across keyboards
func (s *SlackNotifier) NotifyShutdown(linesReceived, faults int64, uptime time.Duration) error {
	if !s.IsEnabled() || !s.config.NotifyShutdown {
		return nil
	}

	msg := SlackMessage{
		Attachments: []SlackAttachment{
			{
				Color: "warning",
				Title: "Braille keyboard driver stopped",
				Fields: []SlackField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Uptime", Value: formatDuration(uptime), Short: true},
					{Title: "Lines Received", Value: fmt.Sprintf("%d", linesReceived), Short: true},
					{Title: "Transport Faults", Value: fmt.Sprintf("%d", faults), Short: true},
				},
				Footer:    "braillekbd",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return s.send(msg)
}

// NotifyFault reports a lost or unopenable keyboard transport
func (s *SlackNotifier) NotifyFault(keyboard, device string, err error) error {
	if !s.IsEnabled() || !s.config.NotifyErrors {
		return nil
	}
	if !s.allowFault(keyboard) {
		s.logger.Debug("Suppressing repeated fault notification", "keyboard", keyboard, "error", err)
		return nil
	}

	msg := SlackMessage{
		Attachments: []SlackAttachment{
			{
				Color: "danger",
				Title: "Keyboard transport fault",
				Fields: []SlackField{
					{Title: "Instance", Value: s.instanceID, Short: true},
					{Title: "Keyboard", Value: keyboard, Short: true},
					{Title: "Device", Value: device, Short: true},
					{Title: "Error", Value: err.Error(), Short: false},
				},
				Footer:    "braillekbd",
				Timestamp: time.Now().Unix(),
			},
		},
	}

	return s.send(msg)
}

func (s *SlackNotifier) send(msg SlackMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Slack returned non-OK status: %d", resp.StatusCode)
	}

	s.logger.Debug("Slack notification sent")
	return nil
}

// allowFault reports whether a fault notice for keyboard may be sent now,
// and if so records it
func (s *SlackNotifier) allowFault(keyboard string) bool {
	interval := s.config.GetFaultInterval()
	if interval <= 0 {
		return true
	}

	s.faultMu.Lock()
	defer s.faultMu.Unlock()

	now := s.now()
	if last, ok := s.lastFault[keyboard]; ok && now.Sub(last) < interval {
		return false
	}
	s.lastFault[keyboard] = now
	return true
}

func startupColor(keyboards, connected int) string {
	if connected < keyboards {
		return "warning"
	}
	return "good"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
