package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shawkym/jarvisui/internal/version"
	"github.com/shawkym/jarvisui/pkg/log"
)

var (
	cfgFile     string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "jarvisui",
	Short: "Terminal front end for the Jarvis desktop assistant",
	Long: `jarvisui renders the Jarvis conversation in the terminal. The native
assistant backend attaches over a local WebSocket bridge and pushes messages,
terminal output and microphone state; typed queries and the mic and mute
controls are sent back over the same connection.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionString())
			os.Exit(0)
		}
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jarvisui.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "Show version information")

	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding verbose flag: %v\n", err)
	}
}

func initConfig() {
	level := zerolog.InfoLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	log.InitLogger(os.Stderr, level, true)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		log.WithField("config_file", cfgFile).Debug("using specified config file")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			log.WithError(err).Error("failed to get home directory")
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".jarvisui")
	}

	viper.SetEnvPrefix("JARVISUI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.WithField("config_file", viper.ConfigFileUsed()).Debug("found configuration file")
	} else {
		log.WithError(err).Debug("no config file found, using defaults")
	}
}
