package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shawkym/jarvisui/pkg/config"
	"github.com/shawkym/jarvisui/pkg/indicator"
	"github.com/shawkym/jarvisui/pkg/markup"
	"github.com/shawkym/jarvisui/pkg/transcript"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1)

	systemStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("244"))

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			PaddingLeft(2)

	assistantBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				PaddingLeft(2)

	codeStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("86")).
			MarginLeft(2).
			Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	copiedButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("82")).
			Padding(0, 1)

	listeningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	thinkingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Strikethrough(true)

	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	activeInputPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63"))

	inactiveInputPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	terminalHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("244"))

	logStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("248"))
)

// screen is the vertical layout of one frame. Rows are zero based.
type screen struct {
	conversationHeight int
	bannerRow          int
	statusRow          int
	inputHeight        int
	terminalRow        int
	terminalHeight     int
	micStart, micEnd   int
	muteStart, muteEnd int
}

func (m Model) screen() screen {
	s := screen{inputHeight: m.userInput.Height()}
	if m.panel.Visible() {
		s.terminalHeight = m.cfg.Terminal.Height
	}

	// title, banners, status, input border, terminal header, help
	fixed := 1 + 1 + 1 + s.inputHeight + 2 + 1 + s.terminalHeight + 1
	s.conversationHeight = m.height - fixed
	if s.conversationHeight < 3 {
		s.conversationHeight = 3
	}

	s.bannerRow = 1 + s.conversationHeight
	s.statusRow = s.bannerRow + 1
	s.terminalRow = s.statusRow + 1 + s.inputHeight + 2

	mic, mute, _ := m.statusSegments()
	s.micStart, s.micEnd = 0, lipgloss.Width(mic)
	s.muteStart = s.micEnd + 1
	s.muteEnd = s.muteStart + lipgloss.Width(mute)
	return s
}

// layout resizes the sub-components to the current window.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	s := m.screen()

	m.conversation.Width = m.width
	m.conversation.Height = s.conversationHeight
	m.logView.Width = m.width
	m.logView.Height = m.cfg.Terminal.Height
	m.userInput.SetWidth(m.width - 2)

	m.conversation.SetContent(m.renderConversation())
	m.logView.SetContent(m.renderLogLines())
	m.logView.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing Jarvis..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.cfg.UI.Title))
	b.WriteString("\n")
	b.WriteString(m.conversation.View())
	b.WriteString("\n")
	b.WriteString(m.renderBanners())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	inputPanelStyle := inactiveInputPanelStyle
	if m.focus == inputFocus {
		inputPanelStyle = activeInputPanelStyle
	}
	b.WriteString(inputPanelStyle.Width(m.width - 2).Render(m.userInput.View()))
	b.WriteString("\n")

	b.WriteString(m.renderTerminalHeader())
	b.WriteString("\n")
	if m.panel.Visible() {
		b.WriteString(m.logView.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderHelp())

	return lipgloss.NewStyle().MaxWidth(m.width).MaxHeight(m.height).Render(b.String())
}

func (m Model) renderConversation() string {
	width := m.conversation.Width - 4
	if width < 20 {
		width = 20
	}

	selectedID := ""
	if m.focus == transcriptFocus {
		if affs := m.transcript.Affordances(); m.selected >= 0 && m.selected < len(affs) {
			selectedID = affs[m.selected].ButtonID
		}
	}

	parts := make([]string, 0, m.transcript.Len())
	for i := 0; i < m.transcript.Len(); i++ {
		parts = append(parts, m.renderMessage(m.transcript.At(i), width, selectedID))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg transcript.Message, width int, selectedID string) string {
	if msg.Role == transcript.RoleSystem {
		return systemStyle.Width(width).Render(plainText(msg.Blocks))
	}

	bubble := assistantBubbleStyle
	name := "Jarvis"
	if msg.Role == transcript.RoleUser {
		bubble = userBubbleStyle
		name = "You"
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(bubble.GetForeground()).Render(name))
	b.WriteString(" ")
	b.WriteString(timestampStyle.Render(msg.Timestamp.Format("15:04:05")))

	for _, block := range msg.Blocks {
		b.WriteString("\n")
		if block.Kind == markup.CodeBlockKind {
			id := msg.CodeButtonID(block.Code)
			b.WriteString("  ")
			b.WriteString(m.renderButton(id, fmt.Sprintf("copy code %d", block.Code+1), selectedID))
			b.WriteString("\n")
			b.WriteString(codeStyle.Width(width - 2).Render(block.Text))
			continue
		}
		b.WriteString(bubble.Width(width).Render(block.Prefix + block.Text))
	}

	b.WriteString("\n  ")
	b.WriteString(m.renderButton(msg.CopyButtonID(), "copy", selectedID))
	return b.String()
}

func (m Model) renderButton(id, base, selectedID string) string {
	style := buttonStyle
	if m.notifier.Copied(id) {
		style = copiedButtonStyle
	}
	if id == selectedID {
		style = style.Reverse(true)
	}
	return style.Render("[" + m.notifier.Label(id, base) + "]")
}

func (m Model) renderBanners() string {
	banners := m.notifier.Banners()
	if len(banners) == 0 {
		return ""
	}
	out := make([]string, 0, len(banners))
	for _, b := range banners {
		out = append(out, bannerStyle.Render(b.Text))
	}
	return strings.Join(out, " ")
}

// statusSegments returns the mic control, the mute control and the bridge
// state as rendered on the status row.
func (m Model) statusSegments() (string, string, string) {
	mv := m.mic.Visual()
	micText := mv.Glyph
	if mv.Label != "" {
		micText += " " + mv.Label
	}
	micStyle := buttonStyle
	switch {
	case mv.HasClass(indicator.ClassListening):
		micStyle = listeningStyle
	case mv.HasClass(indicator.ClassThinking):
		micStyle = thinkingStyle
	}
	mic := micStyle.Render("[" + micText + "]")

	uv := m.mute.Visual()
	muteText := uv.Glyph
	if uv.Label != "" {
		muteText += " " + uv.Label
	}
	muteStyle := buttonStyle
	if uv.HasClass(indicator.ClassMuted) {
		muteStyle = mutedStyle
	}
	mute := muteStyle.Render("[" + muteText + "]")

	state := disconnectedStyle.Render("○ backend offline")
	if m.connected {
		label := "● backend connected"
		if m.client != "" {
			label += " (" + m.client + ")"
		}
		state = connectedStyle.Render(label)
	} else if m.gate.Ready() {
		state = disconnectedStyle.Render("○ backend disconnected")
	}
	return mic, mute, state
}

func (m Model) renderStatus() string {
	mic, mute, state := m.statusSegments()
	return mic + " " + mute + "  " + state
}

func (m Model) renderTerminalHeader() string {
	arrow := "▸"
	if m.panel.Visible() {
		arrow = "▾"
	}
	header := fmt.Sprintf("%s Terminal (%d)", arrow, m.panel.Len())
	if dropped := m.panel.Total() - m.panel.Len(); dropped > 0 {
		header = fmt.Sprintf("%s Terminal (%d, %d older dropped)", arrow, m.panel.Len(), dropped)
	}
	style := terminalHeaderStyle
	if m.focus == terminalFocus {
		style = style.Reverse(true)
	}
	return style.Render(header)
}

func (m Model) renderLogLines() string {
	lines := m.panel.Lines()
	for i, line := range lines {
		lines[i] = logStyle.Render(line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	send := "Enter"
	if m.input.Policy() == config.SubmitOnCtrlEnter {
		send = "Ctrl+Enter"
	}
	help := []string{
		helpKeyStyle.Render(send) + helpDescStyle.Render(" Send"),
		helpKeyStyle.Render("Tab") + helpDescStyle.Render(" Focus"),
		helpKeyStyle.Render("Ctrl+L") + helpDescStyle.Render(" Listen"),
		helpKeyStyle.Render("Ctrl+T") + helpDescStyle.Render(" Mute"),
		helpKeyStyle.Render("Ctrl+O") + helpDescStyle.Render(" Terminal"),
		helpKeyStyle.Render("Ctrl+E") + helpDescStyle.Render(" Export"),
		helpKeyStyle.Render("Ctrl+C") + helpDescStyle.Render(" Quit"),
	}
	return strings.Join(help, " • ")
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	s := m.screen()

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if msg.Y >= 1 && msg.Y <= s.conversationHeight {
			var cmd tea.Cmd
			m.conversation, cmd = m.conversation.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch {
	case msg.Y == s.statusRow && msg.X >= s.micStart && msg.X < s.micEnd:
		m.gate.ToggleListening()
	case msg.Y == s.statusRow && msg.X >= s.muteStart && msg.X < s.muteEnd:
		m.toggleMute()
	case msg.Y == s.terminalRow:
		m.toggleTerminal()
	}
	return m, nil
}

func plainText(blocks []markup.Block) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		lines = append(lines, b.Prefix+b.Text)
	}
	return strings.Join(lines, "\n")
}
