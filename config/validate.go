package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError contains details about configuration validation failures
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors. availableTranslit lists the
// registered transliterator names.
func Validate(cfg *Config, availableTranslit []string) error {
	var errors ValidationErrors

	// Validate keyboards
	if len(cfg.Keyboards) == 0 {
		errors = append(errors, ValidationError{
			Field:   "keyboards",
			Message: "at least one keyboard must be configured",
		})
	}

	namesSeen := make(map[string]bool)
	devicesSeen := make(map[string]bool)
	for i, kb := range cfg.Keyboards {
		kbErrors := validateKeyboard(kb, i, namesSeen, devicesSeen)
		errors = append(errors, kbErrors...)
	}

	// Validate driver sizing
	if cfg.Driver.BufferCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "driver.buffer_capacity",
			Message: "must be at least 1",
		})
	}
	if cfg.Driver.ControlCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "driver.control_capacity",
			Message: "must be at least 1",
		})
	}
	if cfg.Driver.ActuatorQueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "driver.actuator_queue_size",
			Message: "must be at least 1",
		})
	}
	if cfg.Driver.EnqueueTimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "driver.enqueue_timeout_ms",
			Message: "must be at least 1",
		})
	}

	if cfg.Feedback.LedStepMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "feedback.led_step_ms",
			Message: "must be at least 1",
		})
	}

	// Validate transliteration
	if !containsString(availableTranslit, strings.ToLower(cfg.Translit.Default)) {
		errors = append(errors, ValidationError{
			Field:   "translit.default",
			Message: fmt.Sprintf("unknown transliterator: %s (available: %s)", cfg.Translit.Default, strings.Join(availableTranslit, ", ")),
		})
	}

	// Validate logging
	validLevels := []string{"debug", "info", "warn", "error"}
	if !containsString(validLevels, cfg.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s", cfg.Logging.Level),
		})
	}
	if cfg.Logging.BasePath != "" {
		if info, err := os.Stat(cfg.Logging.BasePath); err != nil || !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "logging.base_path",
				Message: fmt.Sprintf("directory does not exist: %s", cfg.Logging.BasePath),
			})
		}
	}

	// Validate monitoring
	if cfg.Monitoring.Port < 1 || cfg.Monitoring.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.port",
			Message: "must be between 1 and 65535",
		})
	}

	// Validate Slack
	if cfg.Slack.WebhookURL != "" && !strings.HasPrefix(cfg.Slack.WebhookURL, "https://") {
		errors = append(errors, ValidationError{
			Field:   "slack.webhook_url",
			Message: "must be an https URL",
		})
	}
	if cfg.Slack.FaultIntervalSec < 0 {
		errors = append(errors, ValidationError{
			Field:   "slack.fault_interval_sec",
			Message: "must not be negative",
		})
	}

	// Validate recovery
	if cfg.Recovery.ReconnectDelaySec < 1 {
		errors = append(errors, ValidationError{
			Field:   "recovery.reconnect_delay_sec",
			Message: "must be at least 1 second",
		})
	}
	if cfg.Recovery.MaxReconnectDelaySec < cfg.Recovery.ReconnectDelaySec {
		errors = append(errors, ValidationError{
			Field:   "recovery.max_reconnect_delay_sec",
			Message: "must be greater than or equal to reconnect_delay_sec",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateKeyboard(kb KeyboardConfig, index int, namesSeen, devicesSeen map[string]bool) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("keyboards[%d]", index)

	if kb.Name != "" {
		if namesSeen[kb.Name] {
			errors = append(errors, ValidationError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate name: %s", kb.Name),
			})
		}
		namesSeen[kb.Name] = true
	}

	// Check device
	if kb.Device == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".device",
			Message: "device path is required",
		})
	} else if devicesSeen[kb.Device] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".device",
			Message: fmt.Sprintf("duplicate device: %s", kb.Device),
		})
	} else {
		devicesSeen[kb.Device] = true
	}

	// Check baud rate
	validBaudRates := []int{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
	if !contains(validBaudRates, kb.BaudRate) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".baud_rate",
			Message: fmt.Sprintf("invalid baud rate: %d", kb.BaudRate),
		})
	}

	validParity := []string{"none", "odd", "even", "mark", "space"}
	if !containsString(validParity, strings.ToLower(kb.Parity)) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".parity",
			Message: fmt.Sprintf("invalid parity: %s", kb.Parity),
		})
	}

	// Check backend
	validBackends := []string{BackendHardware, BackendMock}
	if !containsString(validBackends, strings.ToLower(kb.Backend)) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".backend",
			Message: fmt.Sprintf("invalid backend: %s (must be 'hardware' or 'mock')", kb.Backend),
		})
	}

	if kb.SettleMs != nil && *kb.SettleMs < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".settle_ms",
			Message: "must not be negative",
		})
	}

	return errors
}

func contains(slice []int, val int) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}

func containsString(slice []string, val string) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}
