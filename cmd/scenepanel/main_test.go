package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scenepanel/internal/profile"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "web:\n  api_key: secret\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Web.Listen != "127.0.0.1:8080" || cfg.Web.APIKey != "secret" {
		t.Errorf("web = %+v", cfg.Web)
	}
	if cfg.Store.Path != "scenepanel.db" || cfg.Scenes.Path != "scenes.db" || cfg.Scenes.NameMaxLength != 32 {
		t.Errorf("paths = %q %q %d", cfg.Store.Path, cfg.Scenes.Path, cfg.Scenes.NameMaxLength)
	}
	if cfg.Zwint.BaudRate != 115200 || cfg.Automation.ScriptsDir != "scripts" || cfg.MQTT.TopicPrefix != "scenepanel" {
		t.Errorf("config = %+v", cfg)
	}
	if err := cfg.validate(profile.DefaultRegistry()); err != nil {
		t.Errorf("validate defaults: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := loadConfig(writeConfig(t, "web: [\n")); err == nil {
		t.Error("bad yaml accepted")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"ok", "controllers:\n  - {device: 10, profile: EVOLVELCD1}\n", ""},
		{"mqtt without broker", "mqtt: {enabled: true}\n", "mqtt.broker"},
		{"zwint without port", "zwint: {enabled: true}\n", "zwint.port"},
		{"short scene names", "scenes: {name_max_length: 4}\n", "name_max_length"},
		{"unknown profile", "controllers:\n  - {device: 10, profile: NOPE}\n", "unknown profile"},
		{"bad device", "controllers:\n  - {device: 0, profile: EVOLVELCD1}\n", "invalid device"},
		{"duplicate device", "controllers:\n  - {device: 10, profile: EVOLVELCD1}\n  - {device: 10, profile: COOPERRFWC5}\n", "bound twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeConfig(t, tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			err = cfg.validate(profile.DefaultRegistry())
			if tt.want == "" {
				if err != nil {
					t.Errorf("validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestPanelConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "scenes: {name_max_length: 22}\ncontrollers:\n  - {device: 30, profile: COOPERRFWC5}\n"))
	if err != nil {
		t.Fatal(err)
	}
	pc := cfg.panelConfig()
	if pc.SceneNameMaxLength != 22 || pc.Bindings[30] != "COOPERRFWC5" {
		t.Errorf("panel config = %+v", pc)
	}
}
