package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected Version to be '1.0', got %s", cfg.Version)
	}

	if cfg.UI.SubmitPolicy != SubmitOnEnter {
		t.Errorf("Expected default submit policy to be 'enter', got %s", cfg.UI.SubmitPolicy)
	}

	if cfg.UI.BannerTTL != 2000*time.Millisecond {
		t.Errorf("Expected default BannerTTL to be 2s, got %v", cfg.UI.BannerTTL)
	}

	if cfg.UI.ButtonRevert != 1500*time.Millisecond {
		t.Errorf("Expected default ButtonRevert to be 1.5s, got %v", cfg.UI.ButtonRevert)
	}

	if cfg.Terminal.Visible {
		t.Error("Expected terminal panel to start hidden")
	}

	if cfg.Terminal.MaxLines != 0 {
		t.Errorf("Expected unbounded terminal by default, got %d", cfg.Terminal.MaxLines)
	}

	if !strings.Contains(cfg.Logging.ChatLogDir, ".jarvisui") {
		t.Errorf("Expected ChatLogDir to contain '.jarvisui', got %s", cfg.Logging.ChatLogDir)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "ctrl-enter policy",
			mutate:  func(c *Config) { c.UI.SubmitPolicy = SubmitOnCtrlEnter },
			wantErr: false,
		},
		{
			name:    "unknown policy",
			mutate:  func(c *Config) { c.UI.SubmitPolicy = "shift-enter" },
			wantErr: true,
			errMsg:  "invalid submit policy",
		},
		{
			name:    "non-loopback listen address",
			mutate:  func(c *Config) { c.Bridge.ListenAddr = "0.0.0.0:17345" },
			wantErr: true,
			errMsg:  "loopback",
		},
		{
			name:    "localhost listen address",
			mutate:  func(c *Config) { c.Bridge.ListenAddr = "localhost:0" },
			wantErr: false,
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Bridge.ListenAddr = "127.0.0.1" },
			wantErr: true,
			errMsg:  "invalid bridge.listen_addr",
		},
		{
			name:    "negative max lines",
			mutate:  func(c *Config) { c.Terminal.MaxLines = -1 },
			wantErr: true,
			errMsg:  "max_lines",
		},
		{
			name: "max height below min height",
			mutate: func(c *Config) {
				c.UI.InputMinHeight = 4
				c.UI.InputMaxHeight = 2
			},
			wantErr: true,
			errMsg:  "input_max_height",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.LogFormat = "xml" },
			wantErr: true,
			errMsg:  "log_format",
		},
		{
			name:    "bad export format",
			mutate:  func(c *Config) { c.UI.ExportFormat = "pdf" },
			wantErr: true,
			errMsg:  "export_format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error message = %v, want to contain %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidateSubmitPolicySentinel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.UI.SubmitPolicy = "bogus"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidSubmitPolicy) {
		t.Errorf("Expected ErrInvalidSubmitPolicy, got %v", err)
	}
}

func TestParseSubmitPolicy(t *testing.T) {
	if p, err := ParseSubmitPolicy("ctrl-enter"); err != nil || p != SubmitOnCtrlEnter {
		t.Errorf("Expected ctrl-enter, got %q, %v", p, err)
	}
	if _, err := ParseSubmitPolicy("alt-enter"); !errors.Is(err, ErrInvalidSubmitPolicy) {
		t.Errorf("Expected ErrInvalidSubmitPolicy, got %v", err)
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jarvisui.yaml")
	data := `ui:
  submit_policy: ctrl-enter
  banner_ttl: 3s
terminal:
  visible: true
  max_lines: 500
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.UI.SubmitPolicy != SubmitOnCtrlEnter {
		t.Errorf("Expected ctrl-enter policy, got %s", cfg.UI.SubmitPolicy)
	}
	if cfg.UI.BannerTTL != 3*time.Second {
		t.Errorf("Expected BannerTTL 3s, got %v", cfg.UI.BannerTTL)
	}
	if cfg.UI.ButtonRevert != 1500*time.Millisecond {
		t.Errorf("Expected default ButtonRevert, got %v", cfg.UI.ButtonRevert)
	}
	if !cfg.Terminal.Visible || cfg.Terminal.MaxLines != 500 {
		t.Errorf("Expected terminal visible with 500 lines, got %+v", cfg.Terminal)
	}
	if cfg.Bridge.ListenAddr != "127.0.0.1:17345" {
		t.Errorf("Expected default listen address, got %s", cfg.Bridge.ListenAddr)
	}
	if cfg.Bridge.WriteTimeout != 5*time.Second || cfg.Bridge.QueueSize != 64 {
		t.Errorf("Expected default write timeout and queue size, got %v and %d", cfg.Bridge.WriteTimeout, cfg.Bridge.QueueSize)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  submit_policy: tab\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected error for invalid submit policy")
	}
	if !errors.Is(err, ErrInvalidSubmitPolicy) {
		t.Errorf("Expected wrapped ErrInvalidSubmitPolicy, got %v", err)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "jarvisui.yaml")

	cfg := NewDefaultConfig()
	cfg.UI.SubmitPolicy = SubmitOnCtrlEnter
	cfg.Bridge.Token = "secret"
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if loaded.UI.SubmitPolicy != SubmitOnCtrlEnter || loaded.Bridge.Token != "secret" {
		t.Errorf("Expected saved values to load back, got %+v / %+v", loaded.UI, loaded.Bridge)
	}
}

func TestConfigWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jarvisui.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  submit_policy: enter\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cw, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher returned error: %v", err)
	}

	var gotOld, gotNew *Config
	cw.OnConfigChange(func(oldConfig, newConfig *Config) {
		gotOld, gotNew = oldConfig, newConfig
	})

	if err := os.WriteFile(path, []byte("ui:\n  submit_policy: ctrl-enter\n"), 0600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	cw.reload()

	if gotOld == nil || gotNew == nil {
		t.Fatal("Expected callback to be invoked")
	}
	if gotOld.UI.SubmitPolicy != SubmitOnEnter || gotNew.UI.SubmitPolicy != SubmitOnCtrlEnter {
		t.Errorf("Expected enter -> ctrl-enter, got %s -> %s", gotOld.UI.SubmitPolicy, gotNew.UI.SubmitPolicy)
	}
	if watchedConfig(cw).UI.SubmitPolicy != SubmitOnCtrlEnter {
		t.Errorf("Expected watcher to hold new config, got %s", watchedConfig(cw).UI.SubmitPolicy)
	}

	// An invalid edit keeps the last good config.
	if err := os.WriteFile(path, []byte("ui:\n  submit_policy: tab\n"), 0600); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}
	cw.reload()
	if watchedConfig(cw).UI.SubmitPolicy != SubmitOnCtrlEnter {
		t.Errorf("Expected invalid reload to be ignored, got %s", watchedConfig(cw).UI.SubmitPolicy)
	}

	cw.StopWatching()
	cw.StopWatching()
}

func watchedConfig(cw *ConfigWatcher) *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}
