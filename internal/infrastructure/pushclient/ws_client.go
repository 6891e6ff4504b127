package pushclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"
	"wallet_client/internal/pkg/metrics"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionGetBalance  = "get_balance"
	walletChannel     = "wallet"

	defaultWriteTimeout = 10 * time.Second
)

// ErrNotConnected is returned by RequestBalances while no connection is up.
var ErrNotConnected = fmt.Errorf("%w: push channel not connected", entity.ErrNetwork)

// Options configure the push channel client.
type Options struct {
	URL                  string
	AuthToken            string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	PingInterval         time.Duration
	WriteTimeout         time.Duration
}

type outbound struct {
	Action    string `json:"action"`
	Channel   string `json:"channel,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type inbound struct {
	Type            string                 `json:"type"`
	Event           string                 `json:"event"`
	RequestID       string                 `json:"requestId"`
	WalletBalances  jsoniter.RawMessage    `json:"walletBalances"`
	WalletAddresses entity.WalletAddresses `json:"walletAddresses"`
	Data            jsoniter.RawMessage    `json:"data"`
}

type subscription struct {
	id uint64
	fn func(entity.PushMessage)
}

// Client is a reconnecting websocket subscription to wallet events.
type Client struct {
	opts   Options
	logger port.Logger
	dialer *websocket.Dialer

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	connected atomic.Bool

	subsMu sync.RWMutex
	subs   []subscription
	nextID uint64
}

// New creates a client; Run connects it.
func New(opts Options, logger port.Logger) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = 5
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Client{
		opts:   opts,
		logger: logger,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
	}
}

// Connected reports whether a connection is live.
func (c *Client) Connected() bool { return c.connected.Load() }

// Subscribe registers handler for every inbound message. Handlers run on the read
// goroutine in registration order.
func (c *Client) Subscribe(handler func(entity.PushMessage)) func() {
	c.subsMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscription{id: id, fn: handler})
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			defer c.subsMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// RequestBalances asks the server to push current balances tagged with requestID.
func (c *Client) RequestBalances(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.writeJSON(ctx, conn, outbound{Action: actionGetBalance, RequestID: requestID})
}

// Run keeps the subscription alive until ctx is done. Dropped connections are retried
// after a fixed delay; after MaxReconnectAttempts consecutive failed dials it gives up
// and returns nil.
func (c *Client) Run(ctx context.Context) error {
	if c.opts.URL == "" {
		c.logger.Info("Push channel disabled, no URL configured")
		return nil
	}

	failures := 0
	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			metrics.PushReconnects.WithLabelValues("failure").Inc()
			c.logger.Warn("Push channel connect failed", "attempt", failures, "max_attempts", c.opts.MaxReconnectAttempts, "error", err)
			if failures >= c.opts.MaxReconnectAttempts {
				c.logger.Warn("Giving up on push channel, balances refresh over REST only", "attempts", failures)
				return nil
			}
		} else {
			failures = 0
			metrics.PushReconnects.WithLabelValues("success").Inc()
			c.logger.Info("Push channel connected", "url", c.opts.URL)
			c.serve(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("Push channel disconnected, reconnecting", "delay", c.opts.ReconnectDelay)
		}

		timer := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.opts.AuthToken)
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// serve owns conn until it fails or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	c.setConn(conn)
	defer c.setConn(nil)
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	if err := c.writeJSON(ctx, conn, outbound{Action: actionSubscribe, Channel: walletChannel}); err != nil {
		c.logger.Warn("Failed to subscribe on push channel", "error", err)
		return
	}

	readWindow := c.opts.PingInterval * 2
	_ = conn.SetReadDeadline(time.Now().Add(readWindow))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWindow))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("Push channel read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWindow))

		msg, err := decodeMessage(data)
		if err != nil {
			c.logger.Debug("Skipping undecodable push message", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

// keepalive pings the server and, when ctx ends, unsubscribes and closes the connection.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			if err := c.writeJSON(context.Background(), conn, outbound{Action: actionUnsubscribe, Channel: walletChannel}); err != nil {
				c.logger.Debug("Unsubscribe on shutdown failed", "error", err)
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout)); err != nil {
				c.logger.Debug("Push channel ping failed", "error", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *Client) writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	deadline := time.Now().Add(c.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("%w: push channel write: %v", entity.ErrNetwork, err)
	}
	return nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected.Store(conn != nil)
}

func (c *Client) dispatch(msg entity.PushMessage) {
	c.subsMu.RLock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.subsMu.RUnlock()

	for _, s := range subs {
		s.fn(msg)
	}
}

// decodeMessage reads an event whose fields may sit at the top level or under "data".
func decodeMessage(data []byte) (entity.PushMessage, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return entity.PushMessage{}, err
	}
	if len(in.WalletBalances) == 0 && len(in.Data) > 0 && string(in.Data) != "null" {
		var nested inbound
		if err := json.Unmarshal(in.Data, &nested); err == nil {
			in.WalletBalances = nested.WalletBalances
			if in.WalletAddresses == nil {
				in.WalletAddresses = nested.WalletAddresses
			}
			if in.RequestID == "" {
				in.RequestID = nested.RequestID
			}
		}
	}
	msgType := in.Type
	if msgType == "" {
		msgType = in.Event
	}
	if msgType == "" && len(in.WalletBalances) == 0 {
		return entity.PushMessage{}, errors.New("message has neither type nor balances")
	}
	return entity.PushMessage{
		Type:            msgType,
		RequestID:       in.RequestID,
		WalletBalances:  in.WalletBalances,
		WalletAddresses: in.WalletAddresses,
	}, nil
}

var _ port.PushChannel = (*Client)(nil)
