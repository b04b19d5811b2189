package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shawkym/jarvisui/pkg/config"
	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/metrics"
	"github.com/shawkym/jarvisui/pkg/tui"
)

var (
	listenAddr   string
	bridgeToken  string
	submitPolicy string
	metricsAddr  string
	watchConfig  bool
	localEcho    bool
	showTerminal bool
	chatLogDir   string
	noLog        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Jarvis terminal UI",
	Long: `Start the terminal UI and the local bridge endpoint. The assistant
backend connects to ws://<listen>/ws; until it has completed the handshake,
typed queries and the mic and mute controls are not forwarded.`,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&listenAddr, "listen", "", "Bridge listen address, loopback only (default 127.0.0.1:17345)")
	runCmd.Flags().StringVar(&bridgeToken, "token", "", "Shared secret the backend must present (env JARVISUI_BRIDGE_TOKEN)")
	runCmd.Flags().StringVar(&submitPolicy, "submit-policy", "", "Submit gesture: enter or ctrl-enter")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	runCmd.Flags().BoolVar(&watchConfig, "watch-config", false, "Watch the config file and apply changes live (requires a config file)")
	runCmd.Flags().BoolVar(&localEcho, "local-echo", false, "Show typed queries in the transcript immediately")
	runCmd.Flags().BoolVar(&showTerminal, "terminal", false, "Start with the terminal panel open")
	runCmd.Flags().StringVar(&chatLogDir, "log-dir", "", "Directory to save chat logs (enables chat logging)")
	runCmd.Flags().BoolVar(&noLog, "no-log", false, "Disable chat logging")

	bindRunFlags(runCmd.Flags())
}

// bindRunFlags exposes the run flags to viper under their config keys so
// that flags, JARVISUI_* variables and the config file share one lookup.
func bindRunFlags(flags *pflag.FlagSet) {
	bindings := map[string]string{
		"bridge.listen_addr": "listen",
		"bridge.token":       "token",
		"ui.submit_policy":   "submit-policy",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
		}
	}
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadRunConfig()
	if err != nil {
		return err
	}
	if err := applyRunOverrides(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The TUI owns stdout from here on; application logs go to a file.
	logFile, err := openLogFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	level := log.ParseLevel(cfg.Logging.Level)
	if viper.GetBool("verbose") {
		level = log.DebugLevel
	}
	log.InitLogger(logFile, level, true)

	log.WithFields(map[string]interface{}{
		"config_path":   path,
		"listen_addr":   cfg.Bridge.ListenAddr,
		"submit_policy": cfg.UI.SubmitPolicy,
		"chat_log":      cfg.Logging.Enabled,
	}).Info("starting jarvisui")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Info("interrupted, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		server := metrics.NewServer(metrics.ServerConfig{Addr: cfg.Metrics.Addr})
		m = server.GetMetrics()
		go func() {
			if err := server.Start(); err != nil {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
			defer stop()
			_ = server.Stop(stopCtx)
		}()
	}

	return tui.Run(ctx, cfg, tui.RunOptions{
		ConfigPath:  path,
		WatchConfig: watchConfig,
		Metrics:     m,
	})
}

// loadRunConfig resolves the configuration: --config, then the file viper
// discovered, then built-in defaults.
func loadRunConfig() (*config.Config, string, error) {
	path := cfgFile
	if path == "" {
		path = viper.ConfigFileUsed()
	}
	if path == "" {
		log.Debug("no configuration file, using defaults")
		return config.NewDefaultConfig(), "", nil
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, path, nil
}

func applyRunOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if addr := viper.GetString("bridge.listen_addr"); addr != "" {
		cfg.Bridge.ListenAddr = addr
	}
	if token := viper.GetString("bridge.token"); token != "" {
		cfg.Bridge.Token = token
	}
	if p := viper.GetString("ui.submit_policy"); p != "" {
		policy, err := config.ParseSubmitPolicy(p)
		if err != nil {
			return err
		}
		cfg.UI.SubmitPolicy = policy
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
		cfg.Metrics.Enabled = true
	}
	if flags.Changed("local-echo") {
		cfg.UI.LocalEcho = localEcho
	}
	if flags.Changed("terminal") {
		cfg.Terminal.Visible = showTerminal
	}
	if noLog {
		cfg.Logging.Enabled = false
	}
	if chatLogDir != "" {
		cfg.Logging.ChatLogDir = chatLogDir
		cfg.Logging.Enabled = true
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
