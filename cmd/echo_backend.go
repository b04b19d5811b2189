package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shawkym/jarvisui/pkg/bridge"
	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/logger"
	"github.com/shawkym/jarvisui/pkg/markup"
)

var (
	echoURL      string
	echoToken    string
	echoThinking time.Duration
)

var echoBackendCmd = &cobra.Command{
	Use:   "echo-backend",
	Short: "Run a development backend that echoes queries",
	Long: `Connect to a running jarvisui as its backend and answer every query by
echoing it back as an assistant message. The mic button cycles through
listening and idle, and mute changes are reported in the terminal panel.
Useful for trying the UI without the voice assistant.`,
	RunE: runEchoBackend,
}

func init() {
	rootCmd.AddCommand(echoBackendCmd)

	echoBackendCmd.Flags().StringVar(&echoURL, "url", "", "Bridge URL (default ws://<bridge.listen_addr>/ws)")
	echoBackendCmd.Flags().StringVar(&echoToken, "token", "", "Bridge token (default bridge.token or JARVISUI_BRIDGE_TOKEN)")
	echoBackendCmd.Flags().DurationVar(&echoThinking, "thinking", 300*time.Millisecond, "How long the mic shows thinking before each reply")
}

func runEchoBackend(cmd *cobra.Command, args []string) error {
	url, token := echoURL, echoToken
	if url == "" || token == "" {
		cfg, _, err := loadRunConfig()
		if err != nil {
			return err
		}
		if url == "" {
			url = "ws://" + cfg.Bridge.ListenAddr + "/ws"
		}
		if token == "" {
			token = firstNonEmpty(viper.GetString("bridge.token"), cfg.Bridge.Token)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := bridge.Dial(dialCtx, url, token, "echo-backend")
	dialCancel()
	if err != nil {
		return fmt.Errorf("failed to attach to jarvisui: %w", err)
	}
	defer client.Close()

	chatLog, err := logger.NewChatLogger("", "text", os.Stdout)
	if err != nil {
		return err
	}
	defer chatLog.Close()
	chatLog.LogSystem("attached to " + url)
	log.WithField("url", url).Info("echo backend attached")

	go func() {
		<-ctx.Done()
		client.Close()
	}()

	b := &echoBackend{client: client, chatLog: chatLog, thinking: echoThinking}
	if err := b.greet(); err != nil {
		return err
	}
	return b.serve(ctx)
}

type echoBackend struct {
	client    *bridge.Client
	chatLog   *logger.ChatLogger
	thinking  time.Duration
	listening bool
}

func (b *echoBackend) greet() error {
	if err := b.client.UpdateMicButton("idle"); err != nil {
		return fmt.Errorf("failed to reset mic: %w", err)
	}
	return b.client.AddTerminalOutput("echo backend attached")
}

func (b *echoBackend) serve(ctx context.Context) error {
	for {
		call, err := b.client.ReadCall()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.chatLog.LogSystem("detached")
				return nil
			}
			return fmt.Errorf("bridge read failed: %w", err)
		}
		if err := b.handle(call); err != nil {
			b.chatLog.LogError(call.Method, err)
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
		}
	}
}

func (b *echoBackend) handle(call bridge.Call) error {
	switch call.Method {
	case bridge.MethodProcessUserQuery:
		return b.reply(call.Text)
	case bridge.MethodToggleListening:
		b.listening = !b.listening
		state := "idle"
		if b.listening {
			state = "listening"
		}
		b.chatLog.LogSystem("mic " + state)
		return b.client.UpdateMicButton(state)
	case bridge.MethodToggleMute:
		text := "audio unmuted"
		if call.IsMuted {
			text = "audio muted"
		}
		b.chatLog.LogSystem(text)
		return b.client.AddTerminalOutput(text)
	default:
		log.WithField("method", call.Method).Debug("ignoring unknown call")
		return nil
	}
}

func (b *echoBackend) reply(text string) error {
	now := time.Now()
	b.chatLog.LogMessage("user", text, now)
	if err := b.client.AddMessage("user", markup.EscapeHTML(text), text); err != nil {
		return err
	}

	if err := b.client.UpdateMicButton("thinking"); err != nil {
		return err
	}
	time.Sleep(b.thinking)

	answer := echoAnswer(text)
	b.chatLog.LogMessage("assistant", answer, time.Now())
	if err := b.client.AddMarkdown("assistant", answer); err != nil {
		return err
	}
	return b.client.UpdateMicButton("idle")
}

// echoAnswer quotes the query back. Multi-line input is returned as a code
// block so the code copy control can be tried.
func echoAnswer(text string) string {
	if strings.Contains(text, "\n") {
		return "You said:\n\n```\n" + text + "\n```"
	}
	return "You said: *" + text + "*"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
