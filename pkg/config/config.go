// Package config provides configuration management for jarvisui.
// It defines the structure for YAML configuration files and handles
// loading, validation, and default value application.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SubmitPolicy selects which key gesture sends the input box.
type SubmitPolicy string

const (
	// SubmitOnEnter sends on plain Enter; Shift+Enter inserts a newline.
	SubmitOnEnter SubmitPolicy = "enter"
	// SubmitOnCtrlEnter inserts a newline on Enter and sends on Ctrl+Enter.
	SubmitOnCtrlEnter SubmitPolicy = "ctrl-enter"
)

// ErrInvalidSubmitPolicy is returned by Validate for unknown submit policies.
var ErrInvalidSubmitPolicy = errors.New("invalid submit policy")

// Config is the top-level configuration structure for jarvisui.
type Config struct {
	// Version is the configuration file format version
	Version string `yaml:"version"`
	// UI defines transcript and input behavior
	UI UIConfig `yaml:"ui"`
	// Terminal defines the diagnostic log panel
	Terminal TerminalConfig `yaml:"terminal"`
	// Bridge defines the backend WebSocket endpoint
	Bridge BridgeConfig `yaml:"bridge"`
	// Logging defines logging behavior
	Logging LoggingConfig `yaml:"logging"`
	// Metrics defines the Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics"`
}

// UIConfig defines how the transcript and input box behave.
type UIConfig struct {
	// Title is shown in the title bar
	Title string `yaml:"title"`
	// Greeting is the system line appended on startup
	Greeting string `yaml:"greeting"`
	// Placeholder is the input box placeholder text
	Placeholder string `yaml:"placeholder"`
	// SubmitPolicy is "enter" or "ctrl-enter"
	SubmitPolicy SubmitPolicy `yaml:"submit_policy"`
	// LocalEcho renders submitted input as a user message without waiting for the backend
	LocalEcho bool `yaml:"local_echo"`
	// BannerTTL is how long a copy confirmation banner stays visible
	BannerTTL time.Duration `yaml:"banner_ttl"`
	// ButtonRevert is how long a copy button shows its confirmation glyph
	ButtonRevert time.Duration `yaml:"button_revert"`
	// InputMinHeight is the smallest height of the input box in lines
	InputMinHeight int `yaml:"input_min_height"`
	// InputMaxHeight is the largest height the input box grows to
	InputMaxHeight int `yaml:"input_max_height"`
	// ExportFormat is the transcript export format: "markdown", "json" or "html"
	ExportFormat string `yaml:"export_format"`
}

// TerminalConfig defines the collapsible diagnostic panel.
type TerminalConfig struct {
	// Visible is the initial visibility of the panel
	Visible bool `yaml:"visible"`
	// MaxLines bounds the panel history (0 = unbounded)
	MaxLines int `yaml:"max_lines"`
	// Height is the panel height in lines when visible
	Height int `yaml:"height"`
	// LogLevel is the minimum level of application logs mirrored into the panel
	LogLevel string `yaml:"log_level"`
}

// BridgeConfig defines the local endpoint the native backend connects to.
type BridgeConfig struct {
	// ListenAddr must be a loopback address (default: 127.0.0.1:17345)
	ListenAddr string `yaml:"listen_addr"`
	// Token is the shared secret the backend presents in its hello message
	Token string `yaml:"token"`
	// HandshakeTimeout bounds how long a new connection may take to say hello
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// WriteTimeout drops a backend that stops reading (default: 5s)
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// QueueSize is how many outbound calls may wait for the backend (default: 64)
	QueueSize int `yaml:"queue_size"`
}

// LoggingConfig defines application and chat logging behavior.
type LoggingConfig struct {
	// Level is the application log level: "debug", "info", "warn", "error"
	Level string `yaml:"level"`
	// File receives application logs while the TUI owns the terminal
	File string `yaml:"file"`
	// Enabled determines if the chat transcript is logged to disk
	Enabled bool `yaml:"enabled"`
	// ChatLogDir is the directory where chat logs are stored
	ChatLogDir string `yaml:"chat_log_dir"`
	// LogFormat is either "text" or "json"
	LogFormat string `yaml:"log_format"`
}

// MetricsConfig defines the Prometheus metrics server.
type MetricsConfig struct {
	// Enabled starts the metrics server alongside the TUI
	Enabled bool `yaml:"enabled"`
	// Addr is the metrics listen address (default: 127.0.0.1:9099)
	Addr string `yaml:"addr"`
}

// NewDefaultConfig creates a configuration with sensible defaults.
// Logs go under ~/.jarvisui.
func NewDefaultConfig() *Config {
	c := &Config{
		Terminal: TerminalConfig{Visible: false},
		Logging:  LoggingConfig{Enabled: false},
	}
	c.applyDefaults()
	return c
}

// LoadConfig loads and validates a configuration from a YAML file.
// It applies default values for any missing optional fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SaveConfig writes the configuration to a YAML file.
// The file is created with 0600 permissions since it may hold the bridge token.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.UI.SubmitPolicy {
	case SubmitOnEnter, SubmitOnCtrlEnter:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidSubmitPolicy, c.UI.SubmitPolicy, SubmitOnEnter, SubmitOnCtrlEnter)
	}

	if c.UI.BannerTTL < 0 || c.UI.ButtonRevert < 0 {
		return fmt.Errorf("copy notification delays cannot be negative")
	}

	if c.UI.InputMinHeight < 1 {
		return fmt.Errorf("ui.input_min_height must be at least 1")
	}
	if c.UI.InputMaxHeight < c.UI.InputMinHeight {
		return fmt.Errorf("ui.input_max_height (%d) must be >= ui.input_min_height (%d)", c.UI.InputMaxHeight, c.UI.InputMinHeight)
	}

	validExports := map[string]bool{
		"markdown": true,
		"json":     true,
		"html":     true,
	}
	if !validExports[c.UI.ExportFormat] {
		return fmt.Errorf("invalid ui.export_format: %s", c.UI.ExportFormat)
	}

	if c.Terminal.MaxLines < 0 {
		return fmt.Errorf("terminal.max_lines cannot be negative")
	}

	host, _, err := net.SplitHostPort(c.Bridge.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid bridge.listen_addr %q: %w", c.Bridge.ListenAddr, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("bridge.listen_addr must bind to loopback, got %q", c.Bridge.ListenAddr)
		}
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.LogFormat] {
		return fmt.Errorf("invalid logging.log_format: %s", c.Logging.LogFormat)
	}

	return nil
}

// nolint:gocyclo // Config defaults are inherently sequential; complexity is acceptable for readability
func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	if c.UI.Title == "" {
		c.UI.Title = "Jarvis Co-Pilot"
	}
	if c.UI.Greeting == "" {
		c.UI.Greeting = "Jarvis is ready. Awaiting wake word..."
	}
	if c.UI.Placeholder == "" {
		c.UI.Placeholder = "Ask Jarvis..."
	}
	if c.UI.SubmitPolicy == "" {
		c.UI.SubmitPolicy = SubmitOnEnter
	}
	if c.UI.BannerTTL == 0 {
		c.UI.BannerTTL = 2000 * time.Millisecond
	}
	if c.UI.ButtonRevert == 0 {
		c.UI.ButtonRevert = 1500 * time.Millisecond
	}
	if c.UI.InputMinHeight == 0 {
		c.UI.InputMinHeight = 1
	}
	if c.UI.InputMaxHeight == 0 {
		c.UI.InputMaxHeight = 8
	}
	if c.UI.ExportFormat == "" {
		c.UI.ExportFormat = "markdown"
	}

	if c.Terminal.Height == 0 {
		c.Terminal.Height = 8
	}
	if c.Terminal.LogLevel == "" {
		c.Terminal.LogLevel = "warn"
	}

	if c.Bridge.ListenAddr == "" {
		c.Bridge.ListenAddr = "127.0.0.1:17345"
	}
	if c.Bridge.HandshakeTimeout == 0 {
		c.Bridge.HandshakeTimeout = 10 * time.Second
	}
	if c.Bridge.WriteTimeout == 0 {
		c.Bridge.WriteTimeout = 5 * time.Second
	}
	if c.Bridge.QueueSize == 0 {
		c.Bridge.QueueSize = 64
	}
	if c.Bridge.Token == "" {
		if env := os.Getenv("JARVISUI_BRIDGE_TOKEN"); env != "" {
			c.Bridge.Token = env
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(homeDir, ".jarvisui", "jarvisui.log")
	}
	if c.Logging.ChatLogDir == "" {
		c.Logging.ChatLogDir = filepath.Join(homeDir, ".jarvisui", "chats")
	}
	if c.Logging.LogFormat == "" {
		c.Logging.LogFormat = "text"
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = "127.0.0.1:9099"
	}
}

// ParseSubmitPolicy converts a flag value into a SubmitPolicy.
func ParseSubmitPolicy(s string) (SubmitPolicy, error) {
	switch p := SubmitPolicy(s); p {
	case SubmitOnEnter, SubmitOnCtrlEnter:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSubmitPolicy, s)
	}
}
