package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shawkym/jarvisui/internal/version"
)

const protocolVersion = version.ProtocolVersion

// Methods sent by the UI to the backend.
const (
	MethodProcessUserQuery = "process_user_query"
	MethodToggleListening  = "toggle_listening"
	MethodToggleMute       = "toggle_mute"
)

// Methods sent by the backend to the UI.
const (
	MethodAddMessage        = "add_message"
	MethodAddTerminalOutput = "add_terminal_output"
	MethodUpdateMicButton   = "update_mic_button"
)

type helloMessage struct {
	Type    string `json:"type"`
	Token   string `json:"token,omitempty"`
	Client  string `json:"client,omitempty"`
	Version int    `json:"version,omitempty"`
	// Requires is the oldest jarvisui release the backend works with
	Requires string `json:"requires,omitempty"`
}

type welcomeMessage struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
}

// notification is a JSON-RPC 2.0 request without an id. Neither side ever
// answers, so every call is fire-and-forget.
type notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func newNotification(method string, params any) (notification, error) {
	n := notification{JSONRPC: "2.0", Method: method}
	if params == nil {
		return n, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return n, fmt.Errorf("encode %s params: %w", method, err)
	}
	n.Params = raw
	return n, nil
}

// QueryParams carries process_user_query.
type QueryParams struct {
	Text string `json:"text"`
}

// MuteParams carries toggle_mute.
type MuteParams struct {
	IsMuted bool `json:"is_muted"`
}

// AddMessageParams carries add_message. RawText and Format are optional;
// Format "markdown" asks the UI to render HTMLContent as Markdown.
type AddMessageParams struct {
	Role        string `json:"role"`
	HTMLContent string `json:"html_content"`
	RawText     string `json:"raw_text,omitempty"`
	Format      string `json:"format,omitempty"`
}

// TerminalOutputParams carries add_terminal_output.
type TerminalOutputParams struct {
	Text string `json:"text"`
}

// MicParams carries update_mic_button.
type MicParams struct {
	State string `json:"state"`
}

// decodeParams accepts both named params (an object) and positional params
// (an array, as webview bridges pass them). Positional values fill the
// named fields in order.
func decodeParams(raw json.RawMessage, dst any, fields ...string) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(raw, dst)
	}

	var positional []json.RawMessage
	if err := json.Unmarshal(raw, &positional); err != nil {
		return err
	}
	named := make(map[string]json.RawMessage, len(fields))
	for i, name := range fields {
		if i < len(positional) {
			named[name] = positional[i]
		}
	}
	obj, err := json.Marshal(named)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj, dst)
}
