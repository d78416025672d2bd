// Package realtime maintains the persistent socket to the club service. It
// authenticates after every connect, replays team subscriptions once the
// server acknowledges the session, and schedules a reconnection after any
// disconnect that was not requested by the caller.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// ConnState is the realtime channel's connection state.
type ConnState string

const (
	StateDisconnected   ConnState = "disconnected"
	StateConnecting     ConnState = "connecting"
	StateAuthenticating ConnState = "authenticating"
	StateOpen           ConnState = "open"
	StateClosing        ConnState = "closing"
)

// Server message types.
const (
	TypeConnected = "connected"
	TypeError     = "error"
)

const writeTimeout = 5 * time.Second

// TokenSource provides the bearer token for the authentication handshake.
// The session manager satisfies it.
type TokenSource interface {
	AccessToken() string
}

// Message is a server-pushed event: {type, data}.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type authMessage struct {
	Token string `json:"token"`
}

type controlMessage struct {
	Action string `json:"action"`
	TeamID string `json:"team_id"`
}

// Channel is the realtime connection. All state transitions happen here;
// collaborators only read the state and receive messages.
type Channel struct {
	url            string
	reconnectDelay time.Duration
	tokens         TokenSource
	httpClient     *http.Client
	clock          clock.Clock
	log            zerolog.Logger
	onMessage      func(Message)
	onState        func(ConnState)

	mu             sync.Mutex
	state          ConnState
	conn           *websocket.Conn
	connCtx        context.Context
	closing        bool
	reconnectTimer *clock.Timer

	// subscriptions in insertion order, replayed after every handshake
	subs   []string
	subSet map[string]bool

	writeMu sync.Mutex
}

// ChannelOption defines a function type to modify the Channel instance.
type ChannelOption func(*Channel)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) ChannelOption {
	return func(c *Channel) {
		c.log = log
	}
}

// WithClock sets the clock driving the reconnection timer (primarily for
// testing).
func WithClock(cl clock.Clock) ChannelOption {
	return func(c *Channel) {
		c.clock = cl
	}
}

// WithHTTPClient sets the HTTP client used for the websocket handshake.
func WithHTTPClient(hc *http.Client) ChannelOption {
	return func(c *Channel) {
		c.httpClient = hc
	}
}

// WithMessageHandler sets the callback receiving server-pushed messages,
// including "error" messages (which never close the connection themselves).
func WithMessageHandler(fn func(Message)) ChannelOption {
	return func(c *Channel) {
		c.onMessage = fn
	}
}

// WithStateHandler sets a callback observing every state transition.
func WithStateHandler(fn func(ConnState)) ChannelOption {
	return func(c *Channel) {
		c.onState = fn
	}
}

// NewChannel creates a disconnected Channel for the given websocket URL.
func NewChannel(url string, reconnectDelay time.Duration, tokens TokenSource, options ...ChannelOption) *Channel {
	c := &Channel{
		url:            url,
		reconnectDelay: reconnectDelay,
		tokens:         tokens,
		httpClient:     http.DefaultClient,
		clock:          clock.New(),
		log:            zerolog.Nop(),
		state:          StateDisconnected,
		subSet:         make(map[string]bool),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the connection. It is a no-op without an access token or
// when a connection attempt is already underway. The ctx governs the whole
// connection lifetime, including reconnects.
func (c *Channel) Connect(ctx context.Context) {
	token := c.tokens.AccessToken()
	if token == "" {
		c.log.Debug().Msg("Realtime connect skipped: no access token")
		return
	}

	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.closing = false
	c.connCtx = ctx
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.run(ctx, token)
}

// Disconnect tears the connection down and cancels any pending reconnection
// attempt. Safe to call in any state.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closing = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	if conn != nil {
		c.setStateLocked(StateClosing)
	} else if c.state != StateDisconnected {
		c.setStateLocked(StateDisconnected)
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
}

// Send transmits a message when the channel is open. In any other state the
// message is silently dropped, never queued.
func (c *Channel) Send(v any) {
	c.mu.Lock()
	if c.state != StateOpen || c.conn == nil {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.mu.Unlock()
	c.write(conn, v)
}

// SubscribeToTeam adds the team to the subscription set. When open the
// subscribe message goes out immediately; otherwise it is replayed after the
// next successful handshake.
func (c *Channel) SubscribeToTeam(teamID string) {
	c.mu.Lock()
	if !c.subSet[teamID] {
		c.subSet[teamID] = true
		c.subs = append(c.subs, teamID)
	}
	open := c.state == StateOpen
	conn := c.conn
	c.mu.Unlock()

	if open && conn != nil {
		c.write(conn, controlMessage{Action: "subscribe_team", TeamID: teamID})
	}
}

// UnsubscribeFromTeam removes the team from the subscription set and, when
// open, tells the server immediately.
func (c *Channel) UnsubscribeFromTeam(teamID string) {
	c.mu.Lock()
	if c.subSet[teamID] {
		delete(c.subSet, teamID)
		for i, id := range c.subs {
			if id == teamID {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
	}
	open := c.state == StateOpen
	conn := c.conn
	c.mu.Unlock()

	if open && conn != nil {
		c.write(conn, controlMessage{Action: "unsubscribe_team", TeamID: teamID})
	}
}

// Subscriptions returns the subscription set in insertion order.
func (c *Channel) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.subs))
	copy(out, c.subs)
	return out
}

func (c *Channel) run(ctx context.Context, token string) {
	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPClient: c.httpClient})
	if err != nil {
		c.log.Warn().Err(err).Msg("Realtime dial failed")
		c.transportClosed(ctx)
		return
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
		c.transportClosed(ctx)
		return
	}
	c.conn = conn
	c.setStateLocked(StateAuthenticating)
	c.mu.Unlock()

	// Authentication handshake: the token is always the first message.
	if !c.write(conn, authMessage{Token: token}) {
		_ = conn.Close(websocket.StatusInternalError, "auth write failed")
		c.transportClosed(ctx)
		return
	}

	c.readLoop(ctx, conn)
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.log.Debug().Err(err).Msg("Realtime transport closed")
			c.transportClosed(ctx)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed payloads never affect connection state.
			c.log.Warn().Err(err).Msg("Dropping malformed realtime message")
			continue
		}

		switch msg.Type {
		case TypeConnected:
			c.onAuthenticated()
		case TypeError:
			c.log.Warn().RawJSON("data", nonNilJSON(msg.Data)).Msg("Realtime server error message")
		}

		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// onAuthenticated handles the server handshake acknowledgement: the channel
// opens and every subscription is replayed in insertion order.
func (c *Channel) onAuthenticated() {
	c.mu.Lock()
	if c.state != StateAuthenticating {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateOpen)
	conn := c.conn
	replay := make([]string, len(c.subs))
	copy(replay, c.subs)
	c.mu.Unlock()

	for _, teamID := range replay {
		c.write(conn, controlMessage{Action: "subscribe_team", TeamID: teamID})
	}
}

// transportClosed moves the channel to DISCONNECTED and schedules a single
// reconnection attempt unless the close was requested via Disconnect.
func (c *Channel) transportClosed(ctx context.Context) {
	c.mu.Lock()
	c.conn = nil
	if c.state != StateDisconnected {
		c.setStateLocked(StateDisconnected)
	}
	if c.closing || ctx.Err() != nil || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = c.clock.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		c.mu.Unlock()
		c.Connect(ctx)
	})
	c.mu.Unlock()
}

func (c *Channel) write(conn *websocket.Conn, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Err(err).Msg("Failed to encode realtime message")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.log.Debug().Err(err).Msg("Realtime write failed")
		return false
	}
	return true
}

// setStateLocked must be called with c.mu held.
func (c *Channel) setStateLocked(state ConnState) {
	if c.state == state {
		return
	}
	c.state = state
	if c.onState != nil {
		go c.onState(state)
	}
}

func nonNilJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
