// Package stream maintains the persistent quote websocket. One symbol
// is streamed at a time; switching symbols unsubscribes the previous
// one. The connection is re-dialed every five seconds forever, and the
// active subscription is re-issued after each reconnect.
package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/market"
)

const reconnectDelay = 5 * time.Second

// Config locates and authenticates the provider socket.
type Config struct {
	URL    string
	APIKey string
}

// Trade is a trade-print event. Informational only: candles and
// breakouts are built from quotes, never from prints.
type Trade struct {
	Symbol string
	Price  float64
	Size   float64
	Time   time.Time
}

type command struct {
	symbol string
	done   func(error)
}

// Stream is the websocket adapter. All socket writes happen on the run
// goroutine; Subscribe marshals onto it through the command channel.
type Stream struct {
	cfg Config
	log *zap.SugaredLogger

	onQuote func(market.Quote)
	onTrade func(Trade)

	commands  chan command
	connected atomic.Bool
	redial    time.Duration

	// owned by the run goroutine
	active string
}

func New(cfg Config, log *zap.SugaredLogger) *Stream {
	return &Stream{
		cfg:      cfg,
		log:      log,
		commands: make(chan command, 16),
		redial:   reconnectDelay,
	}
}

// OnQuote registers the quote consumer. Must be called before Connect.
func (s *Stream) OnQuote(fn func(market.Quote)) { s.onQuote = fn }

// OnTrade registers an optional trade-print consumer.
func (s *Stream) OnTrade(fn func(Trade)) { s.onTrade = fn }

// Connect starts the adapter loop. It returns immediately; dialing and
// reconnecting happen in the background until ctx is cancelled.
func (s *Stream) Connect(ctx context.Context) {
	go s.run(ctx)
}

// Connected reports whether the socket is currently authenticated.
func (s *Stream) Connected() bool { return s.connected.Load() }

// Subscribe switches the streamed symbol. It may be called from any
// goroutine; the switch is applied on the adapter loop and the result
// reported through done, when given. While disconnected the request
// queues and applies after the next reconnect.
func (s *Stream) Subscribe(symbol string, done func(error)) {
	select {
	case s.commands <- command{symbol: symbol, done: done}:
	default:
		if done != nil {
			done(errors.New("subscribe queue full"))
		}
	}
}

// WaitReady blocks until the socket is authenticated, backing off
// between checks, or until ctx is cancelled or the deadline elapses.
func (s *Stream) WaitReady(ctx context.Context, max time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = max

	return backoff.Retry(func() error {
		if s.Connected() {
			return nil
		}
		return errors.New("stream not connected")
	}, backoff.WithContext(bo, ctx))
}

func (s *Stream) run(ctx context.Context) {
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			return // context cancelled
		}
		s.session(ctx, conn)
		s.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		s.log.Warnw("stream disconnected, redialing", "delay", s.redial)
		select {
		case <-time.After(s.redial):
		case <-ctx.Done():
			return
		}
	}
}

// dial retries at a constant interval forever; the provider being down
// must never take the process down with it.
func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, nil)
		if err != nil {
			s.log.Warnw("dial failed", "url", s.cfg.URL, "error", err)
			return err
		}
		conn = c
		return nil
	}
	bo := backoff.WithContext(backoff.NewConstantBackOff(s.redial), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return conn, nil
}

type controlMsg struct {
	Action string `json:"action"`
	Params string `json:"params"`
}

// session runs one connection: authenticate, restore the subscription,
// then pump messages and commands until the socket drops.
func (s *Stream) session(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	if err := conn.WriteJSON(controlMsg{Action: "auth", Params: s.cfg.APIKey}); err != nil {
		s.log.Errorw("auth write failed", "error", err)
		return
	}
	if s.active != "" {
		if err := s.writeSubscribe(conn, s.active); err != nil {
			s.log.Errorw("resubscribe failed", "symbol", s.active, "error", err)
			return
		}
		s.log.Infow("resubscribed after reconnect", "symbol", s.active)
	}
	s.connected.Store(true)

	msgs := make(chan []byte, 256)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(msgs)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				s.log.Warnw("read failed", "error", err)
				return
			}
			select {
			case msgs <- data:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.commands:
			s.applySubscribe(conn, cmd)
		case data, ok := <-msgs:
			if !ok {
				return
			}
			s.dispatch(data)
		}
	}
}

func (s *Stream) applySubscribe(conn *websocket.Conn, cmd command) {
	var err error
	if s.active != "" && s.active != cmd.symbol {
		if err = s.writeUnsubscribe(conn, s.active); err != nil {
			s.log.Errorw("unsubscribe failed", "symbol", s.active, "error", err)
		}
	}
	if err == nil {
		err = s.writeSubscribe(conn, cmd.symbol)
	}
	if err == nil {
		s.active = cmd.symbol
		s.log.Infow("subscribed", "symbol", cmd.symbol)
	}
	if cmd.done != nil {
		cmd.done(err)
	}
}

func (s *Stream) writeSubscribe(conn *websocket.Conn, symbol string) error {
	return conn.WriteJSON(controlMsg{Action: "subscribe", Params: "T." + symbol + ",Q." + symbol})
}

func (s *Stream) writeUnsubscribe(conn *websocket.Conn, symbol string) error {
	return conn.WriteJSON(controlMsg{Action: "unsubscribe", Params: "T." + symbol + ",Q." + symbol})
}
