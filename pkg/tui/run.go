package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/shawkym/jarvisui/pkg/bridge"
	"github.com/shawkym/jarvisui/pkg/clipboard"
	"github.com/shawkym/jarvisui/pkg/config"
	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/logger"
	"github.com/shawkym/jarvisui/pkg/metrics"
)

// RunOptions configures Run.
type RunOptions struct {
	// ConfigPath enables hot reload when WatchConfig is set
	ConfigPath  string
	WatchConfig bool
	Metrics     *metrics.Metrics
}

// Run starts the bridge endpoint and the TUI and blocks until the user quits.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	logWriter := NewLogWriter(256)
	log.AddMirror(logWriter, log.ParseLevel(cfg.Terminal.LogLevel))

	var chatLogger *logger.ChatLogger
	if cfg.Logging.Enabled {
		var err error
		chatLogger, err = logger.NewChatLogger(cfg.Logging.ChatLogDir, cfg.Logging.LogFormat, nil)
		if err != nil {
			return fmt.Errorf("failed to create chat logger: %w", err)
		}
		defer chatLogger.Close()
		log.WithField("path", chatLogger.Path()).Info("chat log enabled")
	}

	var program *tea.Program
	server := bridge.NewServer(bridge.Config{
		ListenAddr:       cfg.Bridge.ListenAddr,
		Token:            cfg.Bridge.Token,
		HandshakeTimeout: cfg.Bridge.HandshakeTimeout,
		WriteTimeout:     cfg.Bridge.WriteTimeout,
		QueueSize:        cfg.Bridge.QueueSize,
	}, func(event any) {
		program.Send(event)
	}, opts.Metrics)

	modelOpts := Options{
		Config:    cfg,
		Backend:   server,
		Clipboard: clipboard.SystemWriter{},
		Metrics:   opts.Metrics,
		LogLines:  logWriter.Lines(),
	}
	if chatLogger != nil {
		modelOpts.ChatLog = chatLogger
	}

	program = tea.NewProgram(New(modelOpts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if server.Connected() {
			log.Info("disconnecting backend")
		}
		if err := server.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("bridge shutdown failed")
		}
	}()

	if opts.WatchConfig && opts.ConfigPath != "" {
		watcher, err := config.NewConfigWatcher(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		watcher.OnConfigChange(func(_, newConfig *config.Config) {
			go program.Send(ConfigReloadedMsg{Config: newConfig})
		})
		go watcher.StartWatching()
		defer watcher.StopWatching()
	}

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
