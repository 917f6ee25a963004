package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/llmchat/internal/config"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"12345678", "********"},
		{"sk-test-1234567890", "********7890"},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestConfig_ShowMasksKeys(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "config", "show")

	if strings.Contains(out, "sk-test-1234567890") {
		t.Error("config show must not print API keys")
	}
	if !strings.Contains(out, "********7890") {
		t.Errorf("expected the masked key:\n%s", out)
	}
	if !strings.Contains(out, `"gpt-test"`) {
		t.Errorf("expected the service model:\n%s", out)
	}
}

func TestConfig_Path(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "config", "path")

	if strings.TrimSpace(out) != filepath.Join(td.dir, "config.json") {
		t.Errorf("stdout = %q", out)
	}
}

func TestConfig_Init(t *testing.T) {
	td := newTestDeps(t, testConfig())

	if err := td.run(t, "config", "init"); err == nil {
		t.Error("init should refuse to overwrite an existing file")
	}

	path := filepath.Join(td.dir, "config.json")
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	td.mustRun(t, "config", "init")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}

func TestConfig_SetDefault(t *testing.T) {
	cfg := testConfig()
	second := cfg.Services[0]
	second.ID = "local"
	second.Name = "Local"
	cfg.Services = append(cfg.Services, second)
	td := newTestDeps(t, cfg)

	out := td.mustRun(t, "config", "set-default", "local")
	if !strings.Contains(out, "Default service set to local") {
		t.Errorf("stdout = %q", out)
	}

	saved, err := config.LoadConfigFrom(filepath.Join(td.dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if saved.DefaultService != "local" {
		t.Errorf("DefaultService = %q, want local", saved.DefaultService)
	}

	if err := td.run(t, "config", "set-default", "missing"); err == nil {
		t.Error("expected an error for an unknown service")
	}
}

func TestConfig_Themes(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "config", "themes")

	for _, want := range []string{"MARKDOWN STYLE", "UI PALETTE", "✓"} {
		if !strings.Contains(out, want) {
			t.Errorf("themes output missing %q:\n%s", want, out)
		}
	}
}

func TestServices(t *testing.T) {
	td := newTestDeps(t, testConfig())

	out := td.mustRun(t, "services")

	for _, want := range []string{"ID", "test", "Test", "gpt-test", "✓"} {
		if !strings.Contains(out, want) {
			t.Errorf("services output missing %q:\n%s", want, out)
		}
	}
}

func TestServices_None(t *testing.T) {
	cfg := testConfig()
	cfg.Services = nil
	td := newTestDeps(t, cfg)

	out := td.mustRun(t, "services")

	if !strings.Contains(out, "No services configured.") {
		t.Errorf("stdout = %q", out)
	}
}
