package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"keyboards":[{"device":"/dev/ttyACM0","enabled":true}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	kb := cfg.Keyboards[0]
	require.Equal(t, "/dev/ttyACM0", kb.Name)
	require.Equal(t, 9600, kb.BaudRate)
	require.Equal(t, 8, kb.DataBits)
	require.Equal(t, 1, kb.StopBits)
	require.Equal(t, "none", kb.Parity)
	require.Equal(t, BackendHardware, kb.Backend)
	require.Equal(t, 2*time.Second, kb.GetSettle())

	require.Equal(t, 100, cfg.Driver.BufferCapacity)
	require.Equal(t, 10, cfg.Driver.ControlCapacity)
	require.Equal(t, 32, cfg.Driver.ActuatorQueueSize)
	require.Equal(t, 2*time.Second, cfg.Driver.GetEnqueueTimeout())
	require.Equal(t, 2*time.Second, cfg.Feedback.GetLedStep())
	require.Equal(t, "en", cfg.Translit.Default)
	require.Equal(t, 8080, cfg.Monitoring.Port)
	require.False(t, cfg.Recovery.Reconnect)
	require.Equal(t, 5*time.Second, cfg.Recovery.GetReconnectDelay())
	require.Equal(t, 300*time.Second, cfg.Recovery.GetMaxReconnectDelay())
	require.Equal(t, 5*time.Minute, cfg.Slack.GetFaultInterval())

	require.NoError(t, Validate(cfg, []string{"en"}))
}

func TestLoad_ExplicitZeroSettle(t *testing.T) {
	path := writeConfig(t, `{"keyboards":[{"device":"mock0","backend":"mock","settle_ms":0}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, cfg.Keyboards[0].GetSettle())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{not json`))
	require.Error(t, err)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		Keyboards: []KeyboardConfig{
			{Name: "kb", Device: "/dev/ttyACM0", BaudRate: 1234, Backend: "bluetooth", Parity: "none"},
			{Name: "kb", Device: "/dev/ttyACM0", BaudRate: 9600, Backend: BackendMock, Parity: "weird"},
		},
	}
	cfg.ApplyDefaults()
	cfg.Translit.Default = "klingon"
	cfg.Slack.WebhookURL = "http://hooks.example.com/x"

	err := Validate(cfg, []string{"en"})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make(map[string]bool)
	for _, v := range verrs {
		fields[v.Field] = true
	}
	for _, f := range []string{
		"keyboards[0].baud_rate",
		"keyboards[0].backend",
		"keyboards[1].name",
		"keyboards[1].device",
		"keyboards[1].parity",
		"translit.default",
		"slack.webhook_url",
	} {
		require.True(t, fields[f], "missing error for %s in %v", f, err)
	}
}

func TestValidate_NoKeyboards(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	err := Validate(cfg, []string{"en"})
	require.ErrorContains(t, err, "at least one keyboard")
}
