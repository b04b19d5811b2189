// Package bridge connects the UI to the native backend. The backend dials a
// loopback WebSocket endpoint, says hello, and from then on both sides
// exchange JSON-RPC notifications: the UI forwards user actions, the
// backend pushes messages, terminal output and mic state.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shawkym/jarvisui/internal/version"
	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/metrics"
)

var (
	// ErrNotConnected is returned by outbound calls while no backend is connected.
	ErrNotConnected = errors.New("backend is not connected")
	// ErrUnauthorized rejects a hello carrying the wrong token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrQueueFull is returned when the backend is not reading its calls.
	ErrQueueFull = errors.New("backend send queue is full")
	// ErrAlreadyConnected rejects a second backend while no token is set.
	ErrAlreadyConnected = errors.New("a backend is already connected")
)

// Config configures the endpoint.
type Config struct {
	ListenAddr       string
	Token            string
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each write to the backend; a backend that stops
	// reading for longer is dropped
	WriteTimeout time.Duration
	// QueueSize is the number of outbound calls buffered per connection
	QueueSize int
}

func (c Config) withDefaults() Config {
	out := c
	out.ListenAddr = strings.TrimSpace(out.ListenAddr)
	out.Token = strings.TrimSpace(out.Token)
	if out.ListenAddr == "" {
		out.ListenAddr = "127.0.0.1:17345"
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = 10 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 5 * time.Second
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 64
	}
	return out
}

// peer is one attached backend. After the welcome only its writer
// goroutine writes to conn.
type peer struct {
	conn   *websocket.Conn
	client string
	out    chan notification
	done   chan struct{}
	once   sync.Once
}

func newPeer(conn *websocket.Conn, client string, queueSize int) *peer {
	return &peer{
		conn:   conn,
		client: client,
		out:    make(chan notification, queueSize),
		done:   make(chan struct{}),
	}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// Server hosts the endpoint. Inbound notifications and connection changes
// are delivered to the emit callback as event values; the TUI passes its
// program's Send so events land on the update loop. Outbound calls only
// enqueue and never wait for the backend.
type Server struct {
	cfg     Config
	emit    func(event any)
	metrics *metrics.Metrics

	mu      sync.RWMutex
	ln      net.Listener
	httpSrv *http.Server
	addr    string
	peer    *peer

	readyOnce sync.Once
}

// NewServer creates a server. emit may be nil while testing outbound calls.
func NewServer(cfg Config, emit func(event any), m *metrics.Metrics) *Server {
	if emit == nil {
		emit = func(any) {}
	}
	return &Server{cfg: cfg.withDefaults(), emit: emit, metrics: m}
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Connected reports whether a backend is currently attached.
func (s *Server) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peer != nil
}

// Start binds the loopback listener and serves /ws in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return nil
	}
	cfg := s.cfg
	s.mu.Unlock()

	host, _, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid bridge listen address %q: %w", cfg.ListenAddr, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("bridge listen address must be loopback, got %q", cfg.ListenAddr)
		}
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.ListenAddr, err)
	}
	addr := ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.mu.Lock()
	s.ln = ln
	s.httpSrv = httpSrv
	s.addr = addr
	s.mu.Unlock()

	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("bridge server stopped")
		}
	}()

	if cfg.Token == "" {
		log.WithField("addr", addr).Warn("bridge token not set, the first local backend to connect is trusted")
	}
	log.WithField("addr", addr).Info("bridge listening for backend")
	return nil
}

// Close drops the backend connection and stops the listener.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	p := s.peer
	s.httpSrv = nil
	s.peer = nil
	s.ln = nil
	s.addr = ""
	s.mu.Unlock()

	if p != nil {
		p.close()
	}
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

// ProcessUserQuery submits user text to the backend.
func (s *Server) ProcessUserQuery(text string) error {
	return s.notify(MethodProcessUserQuery, QueryParams{Text: text})
}

// ToggleListening asks the backend to start or stop listening.
func (s *Server) ToggleListening() error {
	return s.notify(MethodToggleListening, struct{}{})
}

// ToggleMute reports the new mute state.
func (s *Server) ToggleMute(isMuted bool) error {
	return s.notify(MethodToggleMute, MuteParams{IsMuted: isMuted})
}

// notify queues a call for the current backend. It never blocks.
func (s *Server) notify(method string, params any) error {
	s.mu.RLock()
	p := s.peer
	s.mu.RUnlock()
	if p == nil {
		return ErrNotConnected
	}

	n, err := newNotification(method, params)
	if err != nil {
		return err
	}

	select {
	case <-p.done:
		return ErrNotConnected
	default:
	}
	select {
	case p.out <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// handleWS upgrades native backends only. Browsers always send an Origin
// header and native clients do not, so any Origin is refused.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		log.WithFields(map[string]interface{}{
			"origin": origin,
			"remote": r.RemoteAddr,
		}).Warn("rejected browser connection to bridge")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return r.Header.Get("Origin") == "" },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := s.accept(conn); err != nil {
		log.WithError(err).WithField("remote", r.RemoteAddr).Warn("rejected backend connection")
		_ = conn.Close()
	}
}

func (s *Server) accept(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	var hello helloMessage
	if err := json.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("parse hello: %w", err)
	}
	if err := checkHello(hello, s.cfg.Token); err != nil {
		return err
	}
	_ = conn.SetReadDeadline(time.Time{})

	p := newPeer(conn, strings.TrimSpace(hello.Client), s.cfg.QueueSize)

	// Without a token nothing proves a newcomer is the real backend, so it
	// may not replace a live one.
	s.mu.Lock()
	old := s.peer
	if old != nil && s.cfg.Token == "" {
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.peer = p
	s.mu.Unlock()
	if old != nil {
		old.close()
	}

	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteJSON(welcomeMessage{Type: "welcome", Version: protocolVersion}); err != nil {
		s.detach(p)
		p.close()
		return err
	}

	s.metrics.SetBridgeConnected(true)
	log.WithFields(map[string]interface{}{
		"client":  hello.Client,
		"version": hello.Version,
	}).Info("backend connected")

	s.readyOnce.Do(func() {
		s.emit(ReadyEvent{Client: hello.Client, Version: hello.Version})
	})
	s.emit(ConnectionEvent{Connected: true, Client: hello.Client})

	go s.writeLoop(p)
	go s.readLoop(p)
	return nil
}

// checkHello validates a hello against the token and the versions this
// build supports.
func checkHello(hello helloMessage, token string) error {
	if strings.ToLower(strings.TrimSpace(hello.Type)) != "hello" {
		return fmt.Errorf("expected hello, got %q", hello.Type)
	}
	if token != "" && hello.Token != token {
		return ErrUnauthorized
	}
	if hello.Version > protocolVersion {
		return fmt.Errorf("backend speaks protocol %d, this build supports up to %d", hello.Version, protocolVersion)
	}
	if req := strings.TrimSpace(hello.Requires); req != "" && !version.AtLeast(req) {
		return fmt.Errorf("backend requires jarvisui %s or newer, running %s", req, version.GetShortVersion())
	}
	return nil
}

// detach forgets p if it is still the current backend and reports whether it was.
func (s *Server) detach(p *peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peer != p {
		return false
	}
	s.peer = nil
	return true
}

func (s *Server) writeLoop(p *peer) {
	for {
		select {
		case <-p.done:
			return
		case n := <-p.out:
			_ = p.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := p.conn.WriteJSON(n); err != nil {
				log.WithError(err).WithFields(map[string]interface{}{
					"client": p.client,
					"method": n.Method,
				}).Warn("bridge write failed, dropping backend")
				p.close()
				return
			}
		}
	}
}

func (s *Server) readLoop(p *peer) {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			break
		}
		s.handleMessage(data)
	}

	current := s.detach(p)
	p.close()

	if current {
		s.metrics.SetBridgeConnected(false)
		log.WithField("client", p.client).Info("backend disconnected")
		s.emit(ConnectionEvent{Connected: false})
	}
}

func (s *Server) handleMessage(data []byte) {
	var n notification
	if err := json.Unmarshal(data, &n); err != nil {
		log.WithError(err).Debug("ignoring malformed bridge frame")
		return
	}
	if strings.TrimSpace(n.JSONRPC) != "2.0" {
		return
	}

	event, err := decodeInbound(n)
	if err != nil {
		log.WithError(err).WithField("method", n.Method).Warn("ignoring bridge notification")
		return
	}
	s.emit(event)
}

func decodeInbound(n notification) (any, error) {
	switch n.Method {
	case MethodAddMessage:
		var p AddMessageParams
		if err := decodeParams(n.Params, &p, "role", "html_content", "raw_text", "format"); err != nil {
			return nil, err
		}
		return AddMessageEvent(p), nil
	case MethodAddTerminalOutput:
		var p TerminalOutputParams
		if err := decodeParams(n.Params, &p, "text"); err != nil {
			return nil, err
		}
		return TerminalOutputEvent(p), nil
	case MethodUpdateMicButton:
		var p MicParams
		if err := decodeParams(n.Params, &p, "state"); err != nil {
			return nil, err
		}
		return MicStateEvent(p), nil
	default:
		return nil, fmt.Errorf("unknown method %q", n.Method)
	}
}
