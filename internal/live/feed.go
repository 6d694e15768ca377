package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/gorilla/websocket"

	"github.com/opspanel/opspanel/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer before the
	// connection is considered dead.
	readWait = 90 * time.Second
)

// Invalidator marks cached data for a resource as stale. Satisfied by the
// cache coordinator.
type Invalidator interface {
	Invalidate(ctx context.Context, resource model.Resource)
}

// Feed maintains a websocket connection to the change feed and invalidates
// the cache for every matching event.
type Feed struct {
	cfg         Config
	invalidator Invalidator
	filter      cel.Program
	logger      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewFeed builds a feed. The filter expression from the configuration is
// compiled once; an empty expression matches all events.
func NewFeed(cfg Config, invalidator Invalidator, logger *slog.Logger) (*Feed, error) {
	var prg cel.Program
	if cfg.Filter != "" {
		matcher, err := NewMatcher()
		if err != nil {
			return nil, err
		}
		prg, err = matcher.Compile(cfg.Filter)
		if err != nil {
			return nil, err
		}
	}
	return &Feed{
		cfg:         cfg,
		invalidator: invalidator,
		filter:      prg,
		logger:      logger.With("component", "live"),
	}, nil
}

// Start connects and keeps the feed alive until Stop is called or the
// context is canceled. It is a no-op when the feed is disabled.
func (f *Feed) Start(ctx context.Context) {
	if !f.cfg.Enabled {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	done := make(chan struct{})
	f.done = done

	go f.run(runCtx, done)
}

// Stop closes the connection and waits for the run loop to exit.
func (f *Feed) Stop() {
	f.mu.Lock()
	cancel := f.cancel
	done := f.done
	f.cancel = nil
	f.done = nil
	f.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run dials, pumps messages, and reconnects with exponential backoff.
func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	backoff := f.cfg.ReconnectMin
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("connect failed", "url", f.cfg.URL, "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > f.cfg.ReconnectMax {
				backoff = f.cfg.ReconnectMax
			}
			continue
		}

		f.logger.Info("change feed connected", "url", f.cfg.URL)
		backoff = f.cfg.ReconnectMin

		f.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("change feed disconnected, reconnecting")
	}
}

// readLoop pumps messages from one connection until it fails or the context
// is canceled.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readWait))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Warn("read failed", "error", err)
			}
			return
		}
		f.handleMessage(ctx, message)
	}
}

func (f *Feed) handleMessage(ctx context.Context, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		f.logger.Warn("unmarshalling message", "error", err)
		return
	}

	switch env.Type {
	case TypePing:
		// Keepalive only.
	case TypeChange:
		var event ChangeEvent
		if err := json.Unmarshal(env.Payload, &event); err != nil {
			f.logger.Warn("unmarshalling change payload", "error", err)
			return
		}
		f.handleChange(ctx, event)
	default:
		f.logger.Debug("ignoring message", "type", env.Type)
	}
}

func (f *Feed) handleChange(ctx context.Context, event ChangeEvent) {
	resource := model.Resource(event.Resource)
	if !resource.IsValid() {
		f.logger.Debug("change for unknown resource", "resource", event.Resource)
		return
	}

	ok, err := Match(f.filter, event)
	if err != nil {
		f.logger.Warn("filter evaluation failed", "error", err)
		return
	}
	if !ok {
		return
	}

	f.logger.Debug("invalidating", "resource", resource, "operation", event.Operation, "id", event.ID)
	f.invalidator.Invalidate(ctx, resource)
}
