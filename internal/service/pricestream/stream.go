// Package pricestream maintains a live price feed over WebSocket and keeps
// the latest tick per symbol in cache for fast reads.
package pricestream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/pkg/cache"
	"ThreadForge/pkg/logger"

	"github.com/gorilla/websocket"
)

// Config holds stream connection settings.
type Config struct {
	WebSocketURL   string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// tickTTL bounds how stale a cached tick may get before readers treat the
// symbol as having no live data.
const tickTTL = 5 * time.Minute

// Stream consumes a Binance-style combined miniTicker feed. Connection
// drops trigger reconnects with a fixed delay until Stop is called.
type Stream struct {
	cfg    Config
	cache  cache.Service
	logger *logger.Logger

	mu     sync.RWMutex
	latest map[string]models.TickerUpdate

	cancel context.CancelFunc
	done   chan struct{}
}

func NewStream(cfg Config, c cache.Service, lgr *logger.Logger) *Stream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Stream{
		cfg:    cfg,
		cache:  c,
		logger: lgr,
		latest: make(map[string]models.TickerUpdate),
		done:   make(chan struct{}),
	}
}

// Start launches the connection loop in the background.
func (s *Stream) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		for {
			if err := s.run(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("price stream disconnected", logger.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ReconnectDelay):
			}
		}
	}()
}

// Stop terminates the stream and waits for the loop to exit.
func (s *Stream) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Latest returns the most recent in-memory tick for a symbol.
func (s *Stream) Latest(symbol string) (models.TickerUpdate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.latest[strings.ToUpper(symbol)]
	return t, ok
}

func (s *Stream) run(ctx context.Context) error {
	url := s.streamURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	s.logger.Info("price stream connected",
		logger.String("url", s.cfg.WebSocketURL),
		logger.Int("symbols", len(s.cfg.Symbols)),
	)

	go s.pingLoop(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		s.handleMessage(ctx, msg)
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

type combinedEnvelope struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		Symbol    string `json:"s"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		EventTime int64  `json:"E"`
	} `json:"data"`
}

func (s *Stream) handleMessage(ctx context.Context, msg []byte) {
	var env combinedEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		s.logger.Warn("price stream message decode failed", logger.Error(err))
		return
	}
	if env.Data.Symbol == "" {
		return
	}

	price, err := strconv.ParseFloat(env.Data.Close, 64)
	if err != nil {
		return
	}
	volume, _ := strconv.ParseFloat(env.Data.Volume, 64)

	tick := models.TickerUpdate{
		Symbol:    env.Data.Symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: time.UnixMilli(env.Data.EventTime).UTC(),
	}

	s.mu.Lock()
	s.latest[tick.Symbol] = tick
	s.mu.Unlock()

	key := "stream:price:" + strings.ToLower(tick.Symbol)
	if err := s.cache.Set(ctx, key, tick, tickTTL); err != nil {
		s.logger.Warn("tick cache write failed", logger.Error(err))
	}
}

func (s *Stream) streamURL() string {
	parts := make([]string, 0, len(s.cfg.Symbols))
	for _, sym := range s.cfg.Symbols {
		parts = append(parts, strings.ToLower(sym)+"@miniTicker")
	}
	return strings.TrimRight(s.cfg.WebSocketURL, "/") + "/stream?streams=" + strings.Join(parts, "/")
}
