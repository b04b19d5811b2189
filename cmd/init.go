package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shawkym/jarvisui/pkg/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a jarvisui configuration file",
	Long: `Create a jarvisui configuration file. Without --defaults the command asks
for the submit policy, bridge address and logging options. The file is written
to $HOME/.jarvisui.yaml unless a path is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("defaults", false, "Write the default configuration without prompting")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	outputPath, err := initOutputPath(args)
	if err != nil {
		return err
	}
	useDefaults, _ := cmd.Flags().GetBool("defaults")
	force, _ := cmd.Flags().GetBool("force")

	reader := bufio.NewReader(os.Stdin)

	if _, err := os.Stat(outputPath); err == nil && !force {
		if useDefaults {
			return fmt.Errorf("%s already exists (use --force to overwrite)", outputPath)
		}
		fmt.Printf("⚠️  Configuration file '%s' already exists.\n", outputPath)
		if !promptYesNo(reader, "Overwrite?", false) {
			fmt.Println("❌ Canceled.")
			return nil
		}
		fmt.Println()
	}

	cfg := config.NewDefaultConfig()
	cfg.Bridge.Token = uuid.NewString()

	if !useDefaults {
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Println("  jarvisui Configuration")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		fmt.Println()

		fmt.Println("How should the input box send a query?")
		fmt.Println("  1. Enter sends, Shift+Enter inserts a newline")
		fmt.Println("  2. Enter inserts a newline, Ctrl+Enter sends")
		policy := promptChoice(reader, "Submit policy", []string{string(config.SubmitOnEnter), string(config.SubmitOnCtrlEnter)}, 1)
		cfg.UI.SubmitPolicy = config.SubmitPolicy(policy)
		cfg.UI.LocalEcho = promptYesNo(reader, "Show typed queries before the backend echoes them?", false)
		fmt.Println()

		cfg.Bridge.ListenAddr = promptString(reader, fmt.Sprintf("Bridge listen address (default: %s)", cfg.Bridge.ListenAddr), cfg.Bridge.ListenAddr)
		cfg.Bridge.Token = promptString(reader, "Bridge token (default: generated)", cfg.Bridge.Token)
		fmt.Println()

		cfg.Terminal.Visible = promptYesNo(reader, "Open the terminal panel on start?", false)
		cfg.Terminal.MaxLines = promptInt(reader, "Terminal history limit (0 for unlimited)", 1000)
		fmt.Println()

		cfg.Logging.Enabled = promptYesNo(reader, "Save chat logs?", false)
		if cfg.Logging.Enabled {
			cfg.Logging.ChatLogDir = promptString(reader, fmt.Sprintf("Chat log directory (default: %s)", cfg.Logging.ChatLogDir), cfg.Logging.ChatLogDir)
		}
		cfg.Metrics.Enabled = promptYesNo(reader, "Serve Prometheus metrics?", false)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.SaveConfig(outputPath); err != nil {
		return err
	}

	fmt.Printf("\n✅ Configuration saved to %s\n", outputPath)
	fmt.Printf("   Start the UI with: jarvisui run --config %s\n", outputPath)
	return nil
}

func initOutputPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".jarvisui.yaml"), nil
}

func promptString(reader *bufio.Reader, prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s: ", prompt)
	} else {
		fmt.Printf("%s (leave empty to skip): ", prompt)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

func promptInt(reader *bufio.Reader, prompt string, defaultValue int) int {
	for {
		fmt.Printf("%s (default: %d): ", prompt, defaultValue)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input == "" {
			return defaultValue
		}

		value, err := strconv.Atoi(input)
		if err != nil || value < 0 {
			fmt.Printf("  ❌ Invalid number. Please try again.\n")
			continue
		}
		return value
	}
}

func promptYesNo(reader *bufio.Reader, prompt string, defaultValue bool) bool {
	defaultStr := "y/N"
	if defaultValue {
		defaultStr = "Y/n"
	}

	for {
		fmt.Printf("%s [%s]: ", prompt, defaultStr)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input == "" {
			return defaultValue
		}

		if input == "y" || input == "yes" {
			return true
		}
		if input == "n" || input == "no" {
			return false
		}

		fmt.Println("  ❌ Please answer 'y' or 'n'")
	}
}

func promptChoice(reader *bufio.Reader, prompt string, choices []string, defaultIndex int) string {
	for {
		fmt.Printf("%s (1-%d, default: %d): ", prompt, len(choices), defaultIndex)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input == "" {
			return choices[defaultIndex-1]
		}

		choice, err := strconv.Atoi(input)
		if err != nil || choice < 1 || choice > len(choices) {
			fmt.Printf("  ❌ Please select a number between 1 and %d\n", len(choices))
			continue
		}

		return choices[choice-1]
	}
}
