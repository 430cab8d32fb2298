package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"braillekbd/config"
	"braillekbd/translit"
)

// ConfigHandler serves the configuration file. POST replaces it after
// validation; ?dry_run=true validates without writing. Saved changes apply
// on the next restart.
type ConfigHandler struct {
	configPath string
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(configPath string) *ConfigHandler {
	return &ConfigHandler{
		configPath: configPath,
	}
}

// ServeHTTP handles config requests
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		h.getConfig(w)
	case http.MethodPost:
		h.saveConfig(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ConfigHandler) getConfig(w http.ResponseWriter) {
	cfg, err := config.Load(h.configPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(cfg)
}

func (h *ConfigHandler) saveConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Validate what Load will produce, defaults included. The file keeps
	// the fields as posted.
	checked := cfg
	checked.Keyboards = append([]config.KeyboardConfig(nil), cfg.Keyboards...)
	checked.ApplyDefaults()
	if err := config.Validate(&checked, translit.List()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	enabled := 0
	for _, kb := range checked.Keyboards {
		if kb.Enabled {
			enabled++
		}
	}

	if r.URL.Query().Get("dry_run") == "true" {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "valid",
			"keyboards": enabled,
		})
		return
	}

	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := writeFileAtomic(h.configPath, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "success",
		"keyboards": enabled,
		"message":   "Configuration saved. Restart the service to apply changes.",
	})
}

// writeFileAtomic replaces path so a reader never sees a half-written file
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
