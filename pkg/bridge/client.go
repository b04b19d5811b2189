package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Call is a UI-originated call as seen by the backend.
type Call struct {
	Method  string
	Text    string
	IsMuted bool
}

// Client is the backend side of the bridge. Backends written in Go, the
// echo backend and tests use it to attach to a running UI.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Dial connects to url (ws://host:port/ws), sends hello and waits for welcome.
func Dial(ctx context.Context, url, token, client string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if err := conn.WriteJSON(helloMessage{Type: "hello", Token: token, Client: client, Version: protocolVersion}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var welcome welcomeMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if strings.ToLower(welcome.Type) != "welcome" {
		_ = conn.Close()
		return nil, fmt.Errorf("expected welcome, got %q", welcome.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	return &Client{conn: conn}, nil
}

// AddMessage appends an HTML message to the transcript. rawText may be empty.
func (c *Client) AddMessage(role, htmlContent, rawText string) error {
	return c.notify(MethodAddMessage, AddMessageParams{Role: role, HTMLContent: htmlContent, RawText: rawText})
}

// AddMarkdown appends a message whose content is Markdown source.
func (c *Client) AddMarkdown(role, markdown string) error {
	return c.notify(MethodAddMessage, AddMessageParams{Role: role, HTMLContent: markdown, Format: "markdown"})
}

// AddTerminalOutput appends a line to the log panel.
func (c *Client) AddTerminalOutput(text string) error {
	return c.notify(MethodAddTerminalOutput, TerminalOutputParams{Text: text})
}

// UpdateMicButton changes the microphone indicator.
func (c *Client) UpdateMicButton(state string) error {
	return c.notify(MethodUpdateMicButton, MicParams{State: state})
}

// ReadCall blocks until the UI sends the next call. Unknown methods are
// returned with only Method set.
func (c *Client) ReadCall() (Call, error) {
	var n notification
	if err := c.conn.ReadJSON(&n); err != nil {
		return Call{}, err
	}

	call := Call{Method: n.Method}
	switch n.Method {
	case MethodProcessUserQuery:
		var p QueryParams
		if err := decodeParams(n.Params, &p, "text"); err != nil {
			return call, err
		}
		call.Text = p.Text
	case MethodToggleMute:
		var p MuteParams
		if err := decodeParams(n.Params, &p, "is_muted"); err != nil {
			return call, err
		}
		call.IsMuted = p.IsMuted
	}
	return call, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) notify(method string, params any) error {
	n, err := newNotification(method, params)
	if err != nil {
		return err
	}
	return c.writeRaw(n)
}

func (c *Client) writeRaw(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

