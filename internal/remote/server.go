// ABOUTME: WebSocket remote-control server for a running player
// ABOUTME: Executes protocol commands and pushes status to connected controllers
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yako-player/yako-go/internal/version"
	"github.com/yako-player/yako-go/pkg/audio/decode"
	"github.com/yako-player/yako-go/pkg/protocol"
	"github.com/yako-player/yako-go/pkg/yako"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// DefaultStatusInterval is how often status is pushed to each session
	DefaultStatusInterval = 500 * time.Millisecond

	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
	sendQueueSize = 32
)

// Controller is the player surface the server drives. *yako.Player
// implements it.
type Controller interface {
	Open(uri string) error
	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(level float64) error
	SetMute(muted bool) error
	Status() yako.PlayerState
	MediaInfo() decode.MediaInfo
}

// Config holds server configuration
type Config struct {
	// Addr is the listen address, e.g. ":8928"
	Addr string
	// Name is reported in server/hello
	Name   string
	Player Controller
	// StatusInterval overrides DefaultStatusInterval
	StatusInterval time.Duration
	Logger         *zap.SugaredLogger
}

// Server accepts controller sessions over WebSocket
type Server struct {
	config   Config
	serverID string
	log      *zap.SugaredLogger

	upgrader   websocket.Upgrader
	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener

	sessions   map[string]*session
	sessionsMu sync.RWMutex
	isShutdown bool

	wg sync.WaitGroup
}

// session is one connected controller
type session struct {
	id       string
	name     string
	conn     *websocket.Conn
	sendChan chan protocol.Message
	done     chan struct{}
	once     sync.Once
}

func (s *session) close() {
	s.once.Do(func() { close(s.done) })
}

// New creates a server. Call Start to listen, or mount Handler yourself.
func New(config Config) *Server {
	if config.StatusInterval <= 0 {
		config.StatusInterval = DefaultStatusInterval
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		log:      config.Logger,
		mux:      http.NewServeMux(),
		// The default origin check admits CLI controllers, which send no
		// Origin, and refuses pages served from other origins
		upgrader: websocket.Upgrader{},
		sessions: make(map[string]*session),
	}
	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the protocol endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Remote: HTTP server error: %v", err)
		}
	}()

	s.log.Infof("Remote: listening on %s", ln.Addr())
	return nil
}

// Addr returns the bound listen address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Start
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Stop disconnects all sessions and shuts the listener down
func (s *Server) Stop(ctx context.Context) error {
	s.sessionsMu.Lock()
	s.isShutdown = true
	for _, sess := range s.sessions {
		sess.close()
	}
	s.sessionsMu.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}

// Sessions returns the number of connected controllers
func (s *Server) Sessions() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// Notify pushes st to every session. Wire it to the player's OnStateChange.
func (s *Server) Notify(st yako.PlayerState) {
	msg := protocol.Message{Type: protocol.TypeServerStatus, Payload: StatusFrom(st)}

	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	for _, sess := range s.sessions {
		select {
		case sess.sendChan <- msg:
		default:
			// periodic pushes catch a slow controller up
		}
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("Remote: WebSocket upgrade error: %v", err)
		return
	}
	s.log.Debugf("Remote: new connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// handleConnection runs the handshake and the read loop of one session
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(protocol.HandshakeTimeout))
	var msg protocol.Message
	if err := conn.ReadJSON(&msg); err != nil {
		s.log.Debugf("Remote: error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	if msg.Type != protocol.TypeClientHello {
		s.log.Warnf("Remote: expected %s, got %s", protocol.TypeClientHello, msg.Type)
		return
	}
	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg, &hello); err != nil {
		s.log.Warnf("Remote: %v", err)
		return
	}

	sess := &session{
		id:       uuid.New().String(),
		name:     hello.Name,
		conn:     conn,
		sendChan: make(chan protocol.Message, sendQueueSize),
		done:     make(chan struct{}),
	}

	s.sessionsMu.Lock()
	if s.isShutdown {
		s.sessionsMu.Unlock()
		s.log.Debugf("Remote: rejecting connection during shutdown")
		return
	}
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()

	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, sess.id)
		s.sessionsMu.Unlock()
		sess.close()
		s.log.Infof("Remote: controller disconnected: %s (%s)", sess.name, sess.id)
	}()

	serverHello := protocol.ServerHello{
		ServerID:  s.serverID,
		SessionID: sess.id,
		Name:      s.config.Name,
		Version:   protocol.Version,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
		SupportedCommands: protocol.Commands,
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(protocol.Message{Type: protocol.TypeServerHello, Payload: serverHello}); err != nil {
		s.log.Warnf("Remote: error sending server hello: %v", err)
		return
	}
	s.log.Infof("Remote: controller connected: %s (%s)", hello.Name, sess.id)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessionWriter(sess)
	}()

	// the writer closes conn on exit, which ends this loop
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugf("Remote: WebSocket error: %v", err)
			}
			return
		}
		if !s.handleMessage(sess, data) {
			return
		}
	}
}

// sessionWriter owns all writes to the session's connection
func (s *Server) sessionWriter(sess *session) {
	defer sess.conn.Close()

	status := time.NewTicker(s.config.StatusInterval)
	defer status.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	write := func(msg protocol.Message) bool {
		sess.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := sess.conn.WriteJSON(msg); err != nil {
			s.log.Debugf("Remote: error writing %s: %v", msg.Type, err)
			return false
		}
		return true
	}

	for {
		select {
		case <-sess.done:
			sess.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		case msg := <-sess.sendChan:
			if !write(msg) {
				return
			}
		case <-status.C:
			if !write(protocol.Message{Type: protocol.TypeServerStatus, Payload: StatusFrom(s.config.Player.Status())}) {
				return
			}
		case <-ping.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one client message. It returns false when the
// session should end.
func (s *Server) handleMessage(sess *session, data []byte) bool {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warnf("Remote: error unmarshaling message: %v", err)
		return true
	}

	switch msg.Type {
	case protocol.TypeClientCommand:
		var cmd protocol.Command
		if err := protocol.DecodePayload(msg, &cmd); err != nil {
			s.log.Warnf("Remote: %v", err)
			return true
		}
		s.handleCommand(sess, cmd)
	case protocol.TypeClientGoodbye:
		var bye protocol.ClientGoodbye
		_ = protocol.DecodePayload(msg, &bye)
		s.log.Debugf("Remote: goodbye from %s: %s", sess.name, bye.Reason)
		return false
	default:
		s.log.Debugf("Remote: unknown message type: %s", msg.Type)
	}
	return true
}

// handleCommand executes cmd and queues its replies in order
func (s *Server) handleCommand(sess *session, cmd protocol.Command) {
	s.log.Debugf("Remote: %s from %s", cmd.Command, sess.name)

	var replies []protocol.Message
	err := cmd.Validate()
	if err == nil {
		replies, err = s.execute(cmd)
	}

	res := protocol.Result{ID: cmd.ID, Command: cmd.Command, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
		s.log.Infof("Remote: %s failed: %v", cmd.Command, err)
	}
	replies = append(replies, protocol.Message{Type: protocol.TypeServerResult, Payload: res})

	for _, msg := range replies {
		select {
		case sess.sendChan <- msg:
		case <-sess.done:
			return
		}
	}
}

// execute runs a validated command against the player
func (s *Server) execute(cmd protocol.Command) ([]protocol.Message, error) {
	p := s.config.Player

	switch cmd.Command {
	case protocol.CommandOpen:
		return nil, p.Open(cmd.URI)
	case protocol.CommandPlay:
		return nil, p.Play()
	case protocol.CommandPause:
		return nil, p.Pause()
	case protocol.CommandStop:
		return nil, p.Stop()
	case protocol.CommandSeek:
		pos := time.Duration(*cmd.Position * float64(time.Second))
		return nil, p.Seek(pos)
	case protocol.CommandVolume:
		return nil, p.SetVolume(*cmd.Volume)
	case protocol.CommandMute:
		return nil, p.SetMute(*cmd.Muted)
	case protocol.CommandStatus:
		return []protocol.Message{{Type: protocol.TypeServerStatus, Payload: StatusFrom(p.Status())}}, nil
	case protocol.CommandInfo:
		st := p.Status()
		if st.URI == "" {
			return nil, yako.ErrNoSource
		}
		return []protocol.Message{{Type: protocol.TypeServerInfo, Payload: InfoFrom(st.URI, p.MediaInfo())}}, nil
	}
	return nil, fmt.Errorf("unknown command %q", cmd.Command)
}

// StatusFrom converts a player snapshot into its wire form
func StatusFrom(st yako.PlayerState) protocol.Status {
	return protocol.Status{
		State:       st.State,
		URI:         st.URI,
		Title:       st.Title,
		Artist:      st.Artist,
		PositionMs:  st.Position.Milliseconds(),
		DurationMs:  st.Duration.Milliseconds(),
		Bitrate:     st.Bitrate,
		Volume:      st.Volume,
		Muted:       st.Muted,
		EndOfStream: st.EndOfStream,
		Available:   st.Available,
		SampleRate:  st.Device.SampleRate,
		Channels:    st.Device.Channels,
	}
}

// InfoFrom converts media info into its wire form
func InfoFrom(uri string, info decode.MediaInfo) protocol.Info {
	return protocol.Info{
		URI:        uri,
		Title:      info.Title,
		Artist:     info.Artist,
		Album:      info.Album,
		Codec:      info.Format.Codec,
		DurationMs: info.Duration.Milliseconds(),
		Bitrate:    info.Bitrate,
		SampleRate: info.Format.SampleRate,
		Channels:   info.Format.Channels,
		BitDepth:   info.Format.BitDepth,
		CoverMIME:  info.CoverMIME,
	}
}
