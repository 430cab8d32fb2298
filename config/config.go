package config

import (
	"encoding/json"
	"os"
	"time"
)

const (
	BackendHardware = "hardware"
	BackendMock     = "mock"
)

// Config is the root configuration structure
type Config struct {
	App        AppConfig        `json:"app"`
	Keyboards  []KeyboardConfig `json:"keyboards"`
	Driver     DriverConfig     `json:"driver"`
	Feedback   FeedbackConfig   `json:"feedback"`
	Translit   TranslitConfig   `json:"translit"`
	Logging    LoggingConfig    `json:"logging"`
	Monitoring MonitoringConfig `json:"monitoring"`
	Slack      SlackConfig      `json:"slack"`
	Recovery   RecoveryConfig   `json:"recovery"`
}

// AppConfig contains application metadata
type AppConfig struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
}

// KeyboardConfig defines one keyboard endpoint
type KeyboardConfig struct {
	Name        string `json:"name"`
	Device      string `json:"device"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Backend     string `json:"backend"`
	SettleMs    *int   `json:"settle_ms,omitempty"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
}

// DriverConfig sizes the driver's buffers and queues
type DriverConfig struct {
	BufferCapacity    int `json:"buffer_capacity"`
	ControlCapacity   int `json:"control_capacity"`
	ActuatorQueueSize int `json:"actuator_queue_size"`
	EnqueueTimeoutMs  int `json:"enqueue_timeout_ms"`
}

// FeedbackConfig controls LED sequencing
type FeedbackConfig struct {
	LedStepMs int `json:"led_step_ms"`
}

// TranslitConfig selects the default transliterator
type TranslitConfig struct {
	Default string `json:"default"`
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level      string `json:"level"`
	BasePath   string `json:"base_path"`
	Filename   string `json:"filename"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// MonitoringConfig defines HTTP monitoring settings
type MonitoringConfig struct {
	Port int `json:"port"`
}

// SlackConfig defines Slack notification settings
type SlackConfig struct {
	WebhookURL     string `json:"webhook_url"`
	NotifyStartup  bool   `json:"notify_startup"`
	NotifyShutdown bool   `json:"notify_shutdown"`
	NotifyErrors   bool   `json:"notify_errors"`
	// FaultIntervalSec suppresses repeat fault notices for the same
	// keyboard within the interval
	FaultIntervalSec int `json:"fault_interval_sec"`
}

// RecoveryConfig defines reconnection behavior
type RecoveryConfig struct {
	Reconnect            bool `json:"reconnect"`
	ReconnectDelaySec    int  `json:"reconnect_delay_sec"`
	MaxReconnectDelaySec int  `json:"max_reconnect_delay_sec"`
	ExponentialBackoff   bool `json:"exponential_backoff"`
}

// Load reads and parses a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults
	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults sets default values for unspecified fields
func (c *Config) ApplyDefaults() {
	// App defaults
	if c.App.Name == "" {
		c.App.Name = "braillekbd"
	}
	if c.App.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.App.InstanceID = hostname
	}

	// Keyboard defaults
	for i := range c.Keyboards {
		kb := &c.Keyboards[i]
		if kb.Name == "" {
			kb.Name = kb.Device
		}
		if kb.BaudRate == 0 {
			kb.BaudRate = 9600
		}
		if kb.DataBits == 0 {
			kb.DataBits = 8
		}
		if kb.StopBits == 0 {
			kb.StopBits = 1
		}
		if kb.Parity == "" {
			kb.Parity = "none"
		}
		if kb.Backend == "" {
			kb.Backend = BackendHardware
		}
		if kb.SettleMs == nil {
			settle := 2000
			kb.SettleMs = &settle
		}
	}

	// Driver defaults
	if c.Driver.BufferCapacity == 0 {
		c.Driver.BufferCapacity = 100
	}
	if c.Driver.ControlCapacity == 0 {
		c.Driver.ControlCapacity = 10
	}
	if c.Driver.ActuatorQueueSize == 0 {
		c.Driver.ActuatorQueueSize = 32
	}
	if c.Driver.EnqueueTimeoutMs == 0 {
		c.Driver.EnqueueTimeoutMs = 2000
	}

	if c.Feedback.LedStepMs == 0 {
		c.Feedback.LedStepMs = 2000
	}

	if c.Translit.Default == "" {
		c.Translit.Default = "en"
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Filename == "" {
		c.Logging.Filename = "braillekbd.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}

	// Monitoring defaults
	if c.Monitoring.Port == 0 {
		c.Monitoring.Port = 8080
	}

	if c.Slack.FaultIntervalSec == 0 {
		c.Slack.FaultIntervalSec = 300
	}

	// Recovery defaults
	if c.Recovery.ReconnectDelaySec == 0 {
		c.Recovery.ReconnectDelaySec = 5
	}
	if c.Recovery.MaxReconnectDelaySec == 0 {
		c.Recovery.MaxReconnectDelaySec = 300
	}
}

// GetSettle returns the post-open settle delay
func (k *KeyboardConfig) GetSettle() time.Duration {
	if k.SettleMs == nil {
		return 0
	}
	return time.Duration(*k.SettleMs) * time.Millisecond
}

// GetEnqueueTimeout returns the actuator enqueue bound as a duration
func (c *DriverConfig) GetEnqueueTimeout() time.Duration {
	return time.Duration(c.EnqueueTimeoutMs) * time.Millisecond
}

// GetLedStep returns the LED sequence step as a duration
func (c *FeedbackConfig) GetLedStep() time.Duration {
	return time.Duration(c.LedStepMs) * time.Millisecond
}

// GetFaultInterval returns the fault notice suppression window
func (c *SlackConfig) GetFaultInterval() time.Duration {
	return time.Duration(c.FaultIntervalSec) * time.Second
}

// GetReconnectDelay returns the initial reconnect delay as a duration
func (c *RecoveryConfig) GetReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySec) * time.Second
}

// GetMaxReconnectDelay returns the maximum reconnect delay as a duration
func (c *RecoveryConfig) GetMaxReconnectDelay() time.Duration {
	return time.Duration(c.MaxReconnectDelaySec) * time.Second
}
