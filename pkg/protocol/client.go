// ABOUTME: WebSocket client for the yako remote-control protocol
// ABOUTME: Handles connection, handshake, command round trips and status routing
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandshakeTimeout bounds the wait for server/hello
const HandshakeTimeout = 5 * time.Second

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string
	ClientID   string
	Name       string
	Logger     *zap.SugaredLogger
}

// Client represents a WebSocket client
type Client struct {
	config Config
	log    *zap.SugaredLogger
	conn   *websocket.Conn
	mu     sync.RWMutex

	// serializes writes, gorilla connections allow one writer
	writeMu sync.Mutex

	// Message channels
	Statuses chan Status
	Infos    chan Info

	pending map[string]chan Result
	server  ServerHello

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:   config,
		log:      config.Logger,
		Statuses: make(chan Status, 10),
		Infos:    make(chan Info, 1),
		pending:  make(map[string]chan Result),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	c.log.Debugf("Client: connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := Message{
		Type: TypeClientHello,
		Payload: ClientHello{
			ClientID: c.config.ClientID,
			Name:     c.config.Name,
			Version:  Version,
		},
	}
	if err := c.sendJSON(hello); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(HandshakeTimeout))
	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	if msg.Type != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, msg.Type)
	}
	var server ServerHello
	if err := DecodePayload(msg, &server); err != nil {
		return err
	}
	if server.Version != Version {
		return fmt.Errorf("protocol version %d not supported", server.Version)
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	c.log.Debugf("Client: handshake complete with %s (session %s)", server.Name, server.SessionID)
	return nil
}

// Server returns the hello received from the player
func (c *Client) Server() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Debugf("Client: read error: %v", err)
			}
			return
		}
		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes a JSON message to its channel
func (c *Client) handleJSONMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warnf("Client: failed to parse message: %v", err)
		return
	}

	switch msg.Type {
	case TypeServerStatus:
		var st Status
		if err := DecodePayload(msg, &st); err != nil {
			c.log.Warnf("Client: %v", err)
			return
		}
		// Drop the oldest status when nobody is reading
		for {
			select {
			case c.Statuses <- st:
				return
			default:
			}
			select {
			case <-c.Statuses:
			default:
			}
		}

	case TypeServerInfo:
		var info Info
		if err := DecodePayload(msg, &info); err != nil {
			c.log.Warnf("Client: %v", err)
			return
		}
		select {
		case c.Infos <- info:
		case <-c.ctx.Done():
		}

	case TypeServerResult:
		var res Result
		if err := DecodePayload(msg, &res); err != nil {
			c.log.Warnf("Client: %v", err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[res.ID]
		delete(c.pending, res.ID)
		c.mu.Unlock()
		if ok {
			ch <- res
		}

	default:
		c.log.Debugf("Client: unknown message type: %s", msg.Type)
	}
}

// Send issues cmd and waits for its result. A result with OK false is
// returned as an error.
func (c *Client) Send(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}

	ch := make(chan Result, 1)
	c.mu.Lock()
	c.pending[cmd.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, cmd.ID)
		c.mu.Unlock()
	}()

	if err := c.sendJSON(Message{Type: TypeClientCommand, Payload: cmd}); err != nil {
		return Result{}, err
	}

	select {
	case res := <-ch:
		if !res.OK {
			return res, fmt.Errorf("%s: %s", res.Command, res.Error)
		}
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-c.ctx.Done():
		return Result{}, ErrNotConnected
	}
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	return c.sendJSON(Message{
		Type:    TypeClientGoodbye,
		Payload: ClientGoodbye{Reason: reason},
	})
}

// Done is closed once the connection is gone
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.log.Debugf("Client: connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
