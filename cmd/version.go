package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shawkym/jarvisui/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the jarvisui version, the bridge protocol version and the Go runtime it was built with.`,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	PrintLogo()
	for _, line := range version.GetDetails() {
		fmt.Println(line)
	}
}
