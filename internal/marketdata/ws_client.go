package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSClientConfig configures WebSocket client behavior.
type WSClientConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// subscribeRequest is the wire message selecting instruments to stream.
type subscribeRequest struct {
	Op          string   `json:"op"`
	Instruments []string `json:"instruments"`
}

// WSClient streams quote ticks using gorilla/websocket. It reconnects
// with exponential backoff and resubscribes after each reconnect.
type WSClient struct {
	endpoint string
	config   WSClientConfig
	logger   zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// instruments to resubscribe after reconnect
	instruments   []string
	instrumentsMu sync.Mutex

	ticks chan QuoteTick
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewWSClient creates a client and connects to the endpoint.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig, logger zerolog.Logger) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger.With().Str("component", "ws_client").Logger(),
		ticks:    make(chan QuoteTick, 1024),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *WSClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe selects the instruments to stream. Safe to call once
// after connecting; the set is replayed on every reconnect.
func (c *WSClient) Subscribe(instruments []string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	c.instrumentsMu.Lock()
	c.instruments = append([]string(nil), instruments...)
	c.instrumentsMu.Unlock()

	return c.sendSubscribe(instruments)
}

func (c *WSClient) sendSubscribe(instruments []string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(subscribeRequest{Op: "subscribe", Instruments: instruments})
}

// Ticks returns the stream of quote ticks. Closed on shutdown.
func (c *WSClient) Ticks() <-chan QuoteTick {
	return c.ticks
}

// readLoop reads messages until shutdown, reconnecting on errors.
func (c *WSClient) readLoop() {
	defer c.wg.Done()
	defer close(c.ticks)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()
		if conn == nil {
			if !c.reconnect() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn().Err(err).Msg("read failed, reconnecting")
			if !c.reconnect() {
				return
			}
			continue
		}

		var tick QuoteTick
		if err := json.Unmarshal(data, &tick); err != nil {
			c.logger.Warn().Err(err).Msg("malformed tick dropped")
			continue
		}

		select {
		case c.ticks <- tick:
		case <-c.done:
			return
		}
	}
}

// reconnect retries with exponential backoff until connected or shut
// down. Returns false when the client is closing.
func (c *WSClient) reconnect() bool {
	delay := c.config.ReconnectDelay
	for {
		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		if err := c.connect(context.Background()); err != nil {
			c.logger.Warn().Err(err).Dur("retry_in", delay).Msg("reconnect failed")
			delay *= 2
			if delay > c.config.MaxReconnectDelay {
				delay = c.config.MaxReconnectDelay
			}
			continue
		}

		c.instrumentsMu.Lock()
		instruments := append([]string(nil), c.instruments...)
		c.instrumentsMu.Unlock()
		if len(instruments) > 0 {
			if err := c.sendSubscribe(instruments); err != nil {
				c.logger.Warn().Err(err).Msg("resubscribe failed")
				continue
			}
		}

		c.logger.Info().Msg("reconnected")
		return true
	}
}

// pingLoop keeps the connection alive.
func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			if conn != nil {
				conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.logger.Warn().Err(err).Msg("ping failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Close shuts the client down and waits for its goroutines.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}
