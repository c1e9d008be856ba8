package volstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	drepo "BorrowDesk/internal/domain/repository"
	applogger "BorrowDesk/pkg/logger"
)

// Config holds the volatility stream connection settings.
type Config struct {
	URL            string
	APIKey         string
	Tickers        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Client ingests the provider's volatility WebSocket feed into the
// volatility store, where the stream-backed market-data source reads it.
type Client struct {
	cfg   Config
	store drepo.VolatilityStore
	log   *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a stream client.
func New(cfg Config, store drepo.VolatilityStore, log *applogger.Logger) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Client{cfg: cfg, store: store, log: log}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.cfg.URL, c.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("volstream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.log.Info("volstream: connected", applogger.String("url", c.cfg.URL))
	return nil
}

// Subscribe subscribes to the configured tickers.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("volstream not connected")
	}
	for _, t := range c.cfg.Tickers {
		msg := map[string]string{"type": "subscribe", "ticker": t}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	c.log.Info("volstream: subscribed", applogger.Strings("tickers", c.cfg.Tickers))
	return nil
}

type wsSample struct {
	Ticker    string `json:"ticker"`
	VolIndex  string `json:"vol_index"`
	EventRisk int    `json:"event_risk"`
	T         int64  `json:"t"` // ms
}

type wsMessage struct {
	Type string     `json:"type"`
	Data []wsSample `json:"data"`
}

// Run connects, subscribes, and ingests frames until ctx is cancelled,
// reconnecting on read failures.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.connectAndSubscribe(ctx); err != nil {
			c.log.Error("volstream: connect failed", applogger.Error(err))
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.readLoop(ctx)
		_ = c.Close()

		select {
		case <-ctx.Done():
			return
		default:
			c.log.Warn("volstream: connection lost, reconnecting")
			if !c.sleep(ctx) {
				return
			}
		}
	}
}

func (c *Client) connectAndSubscribe(ctx context.Context) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, b, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("volstream: read failed", applogger.Error(err))
			}
			return
		}

		var m wsMessage
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "vol" {
			// ignore non-sample frames
			continue
		}
		for _, d := range m.Data {
			c.ingest(ctx, d)
		}
	}
}

func (c *Client) ingest(ctx context.Context, d wsSample) {
	vol, err := decimal.NewFromString(d.VolIndex)
	if err != nil {
		c.log.Warn("volstream: bad vol_index",
			applogger.String("ticker", d.Ticker),
			applogger.String("vol_index", d.VolIndex),
		)
		return
	}
	if d.EventRisk < 0 || d.EventRisk > 10 {
		c.log.Warn("volstream: event risk out of range",
			applogger.String("ticker", d.Ticker),
			applogger.Int("event_risk", d.EventRisk),
		)
		return
	}

	sample := models.VolatilitySample{
		Ticker:    d.Ticker,
		Timestamp: time.UnixMilli(d.T).UTC(),
		VolIndex:  vol,
		EventRisk: d.EventRisk,
	}
	if err := c.store.Append(ctx, sample); err != nil {
		c.log.Error("volstream: append failed",
			applogger.String("ticker", d.Ticker),
			applogger.Error(err),
		)
	}
}

// sleep waits the reconnect delay, returning false if ctx ended first.
func (c *Client) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cfg.ReconnectDelay):
		return true
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
