// Package tui hosts the assistant's terminal front end: the transcript,
// status indicators, input box and diagnostic panel, driven by events from
// the backend bridge.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shawkym/jarvisui/pkg/bridge"
	"github.com/shawkym/jarvisui/pkg/clipboard"
	"github.com/shawkym/jarvisui/pkg/config"
	"github.com/shawkym/jarvisui/pkg/export"
	"github.com/shawkym/jarvisui/pkg/indicator"
	"github.com/shawkym/jarvisui/pkg/input"
	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/metrics"
	"github.com/shawkym/jarvisui/pkg/middleware"
	"github.com/shawkym/jarvisui/pkg/terminal"
	"github.com/shawkym/jarvisui/pkg/transcript"
)

type focus int

const (
	inputFocus focus = iota
	transcriptFocus
	terminalFocus
)

// ConfigReloadedMsg carries a configuration that was changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

type logUpdate struct {
	line string
}

// Options wires a Model to its collaborators.
type Options struct {
	Config *config.Config
	// Backend is injected into the gate when the backend becomes ready
	Backend   bridge.Backend
	Clipboard clipboard.Writer
	Metrics   *metrics.Metrics
	ChatLog   middleware.ChatLog
	// LogLines delivers mirrored application log lines
	LogLines <-chan string
}

// Model is the UI state store. Every field is mutated on the update loop
// only; View is a pure projection of it.
type Model struct {
	cfg        *config.Config
	transcript *transcript.Transcript
	notifier   *clipboard.Notifier
	mic        *indicator.Mic
	mute       *indicator.Mute
	panel      *terminal.Panel
	gate       *bridge.Gate
	backend    bridge.Backend
	input      *input.Controller
	chain      *middleware.Chain
	metrics    *metrics.Metrics
	logLines   <-chan string

	conversation viewport.Model
	logView      viewport.Model
	userInput    textarea.Model

	focus     focus
	selected  int
	connected bool
	client    string
	sequence  int
	width     int
	height    int
	ready     bool
}

// New builds the model and appends the greeting.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	ta := textarea.New()
	ta.Placeholder = cfg.UI.Placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = "> "
	ta.SetHeight(cfg.UI.InputMinHeight)
	ta.Focus()

	m := Model{
		cfg:          cfg,
		transcript:   transcript.New(),
		notifier:     clipboard.NewNotifier(opts.Clipboard, cfg.UI.BannerTTL, cfg.UI.ButtonRevert),
		mic:          indicator.NewMic(),
		mute:         indicator.NewMute(),
		panel:        terminal.New(cfg.Terminal.Visible, cfg.Terminal.MaxLines),
		gate:         bridge.NewGate(opts.Metrics),
		backend:      opts.Backend,
		input:        input.NewController(cfg.UI.SubmitPolicy, cfg.UI.InputMinHeight, cfg.UI.InputMaxHeight),
		chain:        middleware.NewInboundChain(middleware.InboundOptions{ChatLog: opts.ChatLog, Metrics: opts.Metrics}),
		metrics:      opts.Metrics,
		logLines:     opts.LogLines,
		conversation: viewport.New(80, 10),
		logView:      viewport.New(80, cfg.Terminal.Height),
		userInput:    ta,
		selected:     -1,
	}

	if cfg.UI.Greeting != "" {
		m.addMessage(middleware.Message{Role: string(transcript.RoleSystem), Content: cfg.UI.Greeting}, middleware.SourceLocal)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForLog())
}

func (m Model) waitForLog() tea.Cmd {
	if m.logLines == nil {
		return nil
	}
	ch := m.logLines
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return logUpdate{line: line}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case bridge.ReadyEvent:
		if m.gate.Inject(m.backend) {
			log.WithField("client", msg.Client).Info("backend bridge ready")
		}

	case bridge.ConnectionEvent:
		m.connected = msg.Connected
		m.client = msg.Client

	case bridge.AddMessageEvent:
		m.addMessage(middleware.Message{
			Role:    msg.Role,
			Content: msg.HTMLContent,
			RawText: msg.RawText,
			Format:  msg.Format,
		}, middleware.SourceBackend)

	case bridge.TerminalOutputEvent:
		m.appendTerminal(msg.Text)

	case bridge.MicStateEvent:
		state, ok := indicator.ParseMicState(msg.State)
		if !ok {
			log.WithField("state", msg.State).Warn("unknown mic state, showing idle")
		}
		m.mic.Set(state)
		log.WithField("state", m.mic.State()).Debug("mic state changed")

	case clipboard.CopiedMsg:
		result := "ok"
		if msg.Err != nil {
			result = "error"
		}
		m.metrics.RecordCopy(msg.Button.Kind, result)
		cmds = append(cmds, m.notifier.Update(msg))
		m.refreshConversation(false)

	case clipboard.RevertMsg, clipboard.BannerExpiredMsg:
		cmds = append(cmds, m.notifier.Update(msg))
		m.refreshConversation(false)

	case logUpdate:
		m.appendTerminal(msg.line)
		cmds = append(cmds, m.waitForLog())

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)

	default:
		if m.focus == inputFocus {
			var cmd tea.Cmd
			m.userInput, cmd = m.userInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.cycleFocus()
		return m, nil
	case "ctrl+l":
		m.gate.ToggleListening()
		return m, nil
	case "ctrl+t":
		m.toggleMute()
		return m, nil
	case "ctrl+o":
		m.toggleTerminal()
		return m, nil
	case "ctrl+e":
		m.exportTranscript()
		return m, nil
	}

	switch m.focus {
	case transcriptFocus:
		return m.handleTranscriptKey(msg)
	case terminalFocus:
		switch msg.String() {
		case "enter", " ":
			m.toggleTerminal()
		case "up", "k":
			m.logView.ScrollUp(1)
		case "down", "j":
			m.logView.ScrollDown(1)
		}
		return m, nil
	}

	switch m.input.Classify(msg) {
	case input.GestureSubmit:
		m.submit()
		return m, nil
	case input.GestureNewline:
		m.userInput.InsertString("\n")
		m.resizeInput()
		return m, nil
	}

	var cmd tea.Cmd
	m.userInput, cmd = m.userInput.Update(msg)
	m.resizeInput()
	return m, cmd
}

func (m Model) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	affs := m.transcript.Affordances()

	switch msg.String() {
	case "up", "k":
		if len(affs) > 0 {
			if m.selected <= 0 {
				m.selected = 0
			} else {
				m.selected--
			}
			m.refreshConversation(false)
		}
	case "down", "j":
		if len(affs) > 0 {
			if m.selected < len(affs)-1 {
				m.selected++
			}
			m.refreshConversation(false)
		}
	case "pgup":
		m.conversation.HalfPageUp()
	case "pgdown":
		m.conversation.HalfPageDown()
	case "enter", "c":
		return m, m.activateSelected()
	case "esc":
		m.focus = inputFocus
		m.refreshConversation(false)
		return m, m.userInput.Focus()
	}
	return m, nil
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % 3
	switch m.focus {
	case inputFocus:
		m.userInput.Focus()
	case transcriptFocus:
		m.userInput.Blur()
		if n := len(m.transcript.Affordances()); n > 0 && (m.selected < 0 || m.selected >= n) {
			m.selected = n - 1
		}
	default:
		m.userInput.Blur()
	}
	m.refreshConversation(false)
}

// submit forwards the input box when it holds text and the backend is
// ready. Otherwise the text stays where it is.
func (m *Model) submit() {
	text, ok := m.input.Submit(m.userInput.Value(), m.gate)
	if !ok {
		return
	}
	m.userInput.Reset()
	m.resizeInput()

	if m.cfg.UI.LocalEcho {
		m.addMessage(middleware.Message{Role: string(transcript.RoleUser), Content: text}, middleware.SourceLocal)
	}
}

func (m *Model) toggleMute() {
	muted := m.mute.Toggle()
	m.gate.ToggleMute(muted)
}

func (m *Model) toggleTerminal() {
	m.panel.Toggle()
	m.layout()
}

// addMessage runs msg through the inbound chain and appends the result.
// The conversation is scrolled to the bottom after every append.
func (m *Model) addMessage(msg middleware.Message, source string) {
	m.sequence++
	ctx := &middleware.MessageContext{
		Source:   source,
		Sequence: m.sequence,
		Metadata: make(map[string]interface{}),
	}

	out, err := m.chain.Process(ctx, &msg)
	if err != nil || out == nil {
		return
	}

	role, _ := transcript.ParseRole(out.Role)
	m.transcript.Append(transcript.NewMessage(role, out.Content, out.RawText))
	if last, ok := m.transcript.Last(); ok {
		log.WithFields(map[string]interface{}{
			"id":          last.ID,
			"role":        last.Role,
			"code_blocks": len(last.CodeBlocks),
		}).Debug("message appended")
	}
	m.refreshConversation(true)
}

func (m *Model) appendTerminal(text string) {
	m.panel.Append(text)
	m.metrics.RecordTerminalLine()
	m.logView.SetContent(m.renderLogLines())
	m.logView.GotoBottom()
}

func (m *Model) activateSelected() tea.Cmd {
	affs := m.transcript.Affordances()
	if m.selected < 0 || m.selected >= len(affs) {
		return nil
	}
	a := affs[m.selected]

	text, err := m.transcript.CopyText(a)
	if err != nil {
		log.WithError(err).WithField("button", a.ButtonID).Debug("copy target unavailable")
		m.appendTerminal(copyFailureLine(a, err))
		return nil
	}
	return m.notifier.NotifyCopy(clipboard.Button{ID: a.ButtonID, Kind: string(a.Kind)}, text)
}

func copyFailureLine(a transcript.Affordance, err error) string {
	if errors.Is(err, transcript.ErrNoCodeElement) {
		return fmt.Sprintf("[warn] code block %d has no code element, nothing copied", a.CodeIndex+1)
	}
	return "[warn] copy failed: " + err.Error()
}

// exportTranscript writes the transcript next to the chat logs and reports
// the outcome in the terminal panel.
func (m *Model) exportTranscript() {
	format, err := export.ParseFormat(m.cfg.UI.ExportFormat)
	if err != nil {
		m.appendTerminal("[warn] " + err.Error())
		return
	}

	exporter := export.NewExporter(export.ExportOptions{
		Format:            format,
		IncludeTimestamps: true,
		Title:             m.cfg.UI.Title,
	})
	path, err := exporter.WriteFile(m.cfg.Logging.ChatLogDir, m.transcript.Messages())
	if err != nil {
		log.WithError(err).Debug("transcript export failed")
		m.appendTerminal("[warn] transcript export failed: " + err.Error())
		return
	}
	m.appendTerminal("[info] transcript exported to " + path)
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.cfg = cfg
	log.SetLevel(log.ParseLevel(cfg.Logging.Level))
	m.input.SetPolicy(cfg.UI.SubmitPolicy)
	m.input.SetHeights(cfg.UI.InputMinHeight, cfg.UI.InputMaxHeight)
	m.notifier.SetDelays(cfg.UI.BannerTTL, cfg.UI.ButtonRevert)
	m.panel.SetMaxLines(cfg.Terminal.MaxLines)
	m.userInput.Placeholder = cfg.UI.Placeholder
	m.resizeInput()
	m.logView.SetContent(m.renderLogLines())
	log.WithField("submit_policy", cfg.UI.SubmitPolicy).Info("configuration applied")
}

func (m *Model) resizeInput() {
	h := m.input.Height(m.userInput.Value(), m.userInput.Width())
	if h != m.userInput.Height() {
		m.userInput.SetHeight(h)
		m.layout()
	}
}

// refreshConversation re-renders the transcript. With follow set the view
// jumps to the latest message.
func (m *Model) refreshConversation(follow bool) {
	m.conversation.SetContent(m.renderConversation())
	if follow {
		m.conversation.GotoBottom()
	}
}
