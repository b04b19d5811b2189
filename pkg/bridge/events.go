package bridge

// ReadyEvent is emitted once, when the first backend completes the
// handshake. Reconnects do not emit it again.
type ReadyEvent struct {
	Client  string
	Version int
}

// ConnectionEvent is emitted on every connect and disconnect.
type ConnectionEvent struct {
	Connected bool
	Client    string
}

// AddMessageEvent asks the UI to append a transcript entry.
type AddMessageEvent AddMessageParams

// TerminalOutputEvent asks the UI to append a line to the log panel.
type TerminalOutputEvent TerminalOutputParams

// MicStateEvent asks the UI to show a new microphone state.
type MicStateEvent MicParams
