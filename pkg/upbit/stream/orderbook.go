// Package stream maintains the per-market order-book websocket feeds.
package stream

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tickflow/internal/model"
	"tickflow/pkg/logger"
)

const (
	reconnectBase = 2 * time.Second
	reconnectMax  = 60 * time.Second
)

// SIMPLE-format orderbook message.
type wsOrderbookLevel struct {
	AskPrice  float64 `json:"ap"`
	BidPrice  float64 `json:"bp"`
	AskSize   float64 `json:"as"`
	BidSize   float64 `json:"bs"`
	Timestamp int64   `json:"tms"`
}

type wsOrderbook struct {
	Type         string             `json:"ty"`
	Code         string             `json:"cd"`
	TotalAskSize float64            `json:"tas"`
	TotalBidSize float64            `json:"tbs"`
	Timestamp    int64              `json:"tms"`
	Units        []wsOrderbookLevel `json:"obu"`
}

// OrderbookFeed keeps one websocket subscription for one market and stores
// the latest snapshot. It becomes ready on the first snapshot after each
// (re)connect and reconnects with capped exponential backoff until closed.
type OrderbookFeed struct {
	url          string
	code         string // 종목코드 (ex. KRW-BTC)
	pingInterval time.Duration

	mu       sync.RWMutex
	conn     *websocket.Conn
	writeMu  sync.Mutex
	snapshot *model.OrderbookSnapshot
	ready    bool
	updated  bool
	closed   bool
	closeCh  chan struct{}
}

func NewOrderbookFeed(url, code string, pingInterval time.Duration) *OrderbookFeed {
	if pingInterval <= 0 {
		pingInterval = 5 * time.Second
	}
	return &OrderbookFeed{
		url:          url,
		code:         code,
		pingInterval: pingInterval,
		closeCh:      make(chan struct{}),
	}
}

// Connect starts the connection manager. It returns immediately; readiness
// is signalled through Ready once the first snapshot lands.
func (f *OrderbookFeed) Connect() {
	go f.run()
}

func (f *OrderbookFeed) run() {
	backoff := reconnectBase

	for {
		if f.isClosed() {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			logger.Warn("Orderbook feed dial failed.",
				logger.Pair("code", f.code),
				logger.Pair("retryIn", backoff.String()),
				logger.Pair("error", err.Error()))
			if !f.sleep(backoff) {
				return
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}
		backoff = reconnectBase

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		if err := f.subscribe(conn); err != nil {
			logger.Warn("Orderbook feed subscribe failed.",
				logger.Pair("code", f.code),
				logger.Pair("error", err.Error()))
			_ = conn.Close()
			continue
		}
		logger.Info("Orderbook feed connected.", logger.Pair("code", f.code))

		connDone := make(chan struct{})
		go f.pingLoop(conn, connDone)

		f.readLoop(conn) // blocks until the connection drops
		close(connDone)
		_ = conn.Close()

		// stale snapshot must not look live across a reconnect
		f.mu.Lock()
		f.ready = false
		f.conn = nil
		f.mu.Unlock()

		if f.isClosed() {
			return
		}
		logger.Warn("Orderbook feed lost connection. Reconnecting...",
			logger.Pair("code", f.code))
	}
}

// subscribe sends the ticket-keyed request for this market's orderbook in
// SIMPLE format.
func (f *OrderbookFeed) subscribe(conn *websocket.Conn) error {
	params := []interface{}{
		map[string]string{"ticket": uuid.NewString()},
		map[string]interface{}{
			"type":  "orderbook",
			"codes": []string{f.code},
		},
		map[string]string{"format": "SIMPLE"},
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return conn.WriteJSON(params)
}

// The exchange drops connections idle for ~120s; a bare text PING well under
// that keeps it alive. No application-level pong comes back.
func (f *OrderbookFeed) pingLoop(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(f.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte("PING"))
			f.writeMu.Unlock()
			if err != nil {
				logger.Warn("Orderbook feed ping failed.",
					logger.Pair("code", f.code),
					logger.Pair("error", err.Error()))
				return
			}
		case <-connDone:
			return
		case <-f.closeCh:
			return
		}
	}
}

func (f *OrderbookFeed) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !f.isClosed() {
				logger.Warn("Orderbook feed read failed.",
					logger.Pair("code", f.code),
					logger.Pair("error", err.Error()))
			}
			return
		}
		f.handleMessage(msg)
	}
}

func (f *OrderbookFeed) handleMessage(msg []byte) {
	var payload wsOrderbook
	if err := json.Unmarshal(msg, &payload); err != nil {
		logger.Warn("Orderbook feed unmarshal failed.",
			logger.Pair("code", f.code),
			logger.Pair("error", err.Error()))
		return
	}
	if payload.Type != "orderbook" {
		return
	}

	snapshot := &model.OrderbookSnapshot{
		Market:       payload.Code,
		Timestamp:    time.UnixMilli(payload.Timestamp),
		TotalAskSize: payload.TotalAskSize,
		TotalBidSize: payload.TotalBidSize,
		Levels:       make([]model.OrderbookLevel, 0, len(payload.Units)),
	}
	for _, u := range payload.Units {
		snapshot.Levels = append(snapshot.Levels, model.OrderbookLevel{
			AskPrice: u.AskPrice,
			BidPrice: u.BidPrice,
			AskSize:  u.AskSize,
			BidSize:  u.BidSize,
		})
	}

	f.mu.Lock()
	f.snapshot = snapshot
	f.ready = true
	f.updated = true
	f.mu.Unlock()
}

// Ready reports whether a snapshot has arrived on the current connection.
func (f *OrderbookFeed) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ready
}

// Updated reports whether a new snapshot arrived since the last MarkRead.
func (f *OrderbookFeed) Updated() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}

func (f *OrderbookFeed) MarkRead() {
	f.mu.Lock()
	f.updated = false
	f.mu.Unlock()
}

// Latest returns the stored snapshot. The bool is false before readiness.
func (f *OrderbookFeed) Latest() (model.OrderbookSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.snapshot == nil {
		return model.OrderbookSnapshot{}, false
	}
	return *f.snapshot, true
}

// Close tears the connection down for good; no reconnect follows.
func (f *OrderbookFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.ready = false
	close(f.closeCh)
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (f *OrderbookFeed) isClosed() bool {
	select {
	case <-f.closeCh:
		return true
	default:
		return false
	}
}

func (f *OrderbookFeed) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-f.closeCh:
		return false
	}
}
