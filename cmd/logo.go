package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var logoStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("99")).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 2)

// PrintLogo prints the jarvisui banner
func PrintLogo() {
	fmt.Println(logoStyle.Render("J A R V I S  ·  terminal co-pilot"))
}
