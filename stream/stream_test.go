package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rustyeddy/scalper/market"
)

func testStream() (*Stream, *[]market.Quote, *[]Trade) {
	var quotes []market.Quote
	var trades []Trade
	s := New(Config{}, zap.NewNop().Sugar())
	s.OnQuote(func(q market.Quote) { quotes = append(quotes, q) })
	s.OnTrade(func(tr Trade) { trades = append(trades, tr) })
	return s, &quotes, &trades
}

func TestDispatchQuoteEvent(t *testing.T) {
	s, quotes, _ := testStream()

	s.dispatch([]byte(`[{"ev":"Q","sym":"AAPL","bp":9.99,"ap":10.00,"bs":2,"as":3,"t":1709649000000}]`))

	if len(*quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(*quotes))
	}
	q := (*quotes)[0]
	if q.Symbol != "AAPL" || q.Bid != 9.99 || q.Ask != 10.00 || q.BidSize != 2 || q.AskSize != 3 {
		t.Fatalf("quote: %+v", q)
	}
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if !q.Time.Equal(want) {
		t.Fatalf("time: got %v want %v", q.Time, want)
	}
}

func TestDispatchTradeEvent(t *testing.T) {
	s, quotes, trades := testStream()

	s.dispatch([]byte(`[{"ev":"T","sym":"AAPL","p":10.01,"s":100,"t":1709649000000}]`))

	if len(*trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(*trades))
	}
	tr := (*trades)[0]
	if tr.Symbol != "AAPL" || tr.Price != 10.01 || tr.Size != 100 {
		t.Fatalf("trade: %+v", tr)
	}
	if len(*quotes) != 0 {
		t.Fatal("trade print leaked into the quote path")
	}
}

func TestDispatchMalformedFrameDropped(t *testing.T) {
	s, quotes, trades := testStream()

	s.dispatch([]byte(`{not json`))
	s.dispatch([]byte(`[{"ev":"Q","sym":""}]`))

	if len(*quotes) != 0 || len(*trades) != 0 {
		t.Fatalf("handlers fired on bad frames: %d quotes, %d trades", len(*quotes), len(*trades))
	}
}

func TestDispatchStatusObject(t *testing.T) {
	s, quotes, _ := testStream()

	s.dispatch([]byte(`{"ev":"status","status":"auth_success","message":"authenticated"}`))

	if len(*quotes) != 0 {
		t.Fatal("status frame produced a quote")
	}
}

func TestConnectAuthSubscribeReceive(t *testing.T) {
	upgrader := websocket.Upgrader{}
	control := make(chan controlMsg, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for i := 0; i < 2; i++ { // auth, then subscribe
			var msg controlMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			control <- msg
		}
		payload := `[{"ev":"Q","sym":"AAPL","bp":9.99,"ap":10.00,"bs":2,"as":3,"t":1709649000000}]`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quotes := make(chan market.Quote, 1)
	s := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "test-key"}, zap.NewNop().Sugar())
	s.OnQuote(func(q market.Quote) { quotes <- q })
	s.Connect(ctx)

	if err := s.WaitReady(ctx, 5*time.Second); err != nil {
		t.Fatalf("wait ready: %v", err)
	}

	subErr := make(chan error, 1)
	s.Subscribe("AAPL", func(err error) { subErr <- err })
	select {
	case err := <-subErr:
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe callback never fired")
	}

	auth := <-control
	if auth.Action != "auth" || auth.Params != "test-key" {
		t.Fatalf("auth message: %+v", auth)
	}
	sub := <-control
	if sub.Action != "subscribe" || sub.Params != "T.AAPL,Q.AAPL" {
		t.Fatalf("subscribe message: %+v", sub)
	}

	select {
	case q := <-quotes:
		if q.Symbol != "AAPL" || q.Ask != 10.00 {
			t.Fatalf("quote: %+v", q)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("quote never delivered")
	}
}

func TestRedialWaitsBetweenSessions(t *testing.T) {
	upgrader := websocket.Upgrader{}
	dials := make(chan time.Time, 8)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		dials <- time.Now()
		conn.Close() // drop the session immediately to force a redial
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "test-key"}, zap.NewNop().Sugar())
	s.redial = 100 * time.Millisecond
	s.Connect(ctx)

	var stamps []time.Time
	for len(stamps) < 3 {
		select {
		case at := <-dials:
			stamps = append(stamps, at)
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d dials before timeout", len(stamps))
		}
	}
	cancel()

	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap < s.redial {
			t.Fatalf("dial %d followed dial %d after %v, want at least %v", i+1, i, gap, s.redial)
		}
	}
}

func TestReconnectReplaysSubscription(t *testing.T) {
	upgrader := websocket.Upgrader{}
	control := make(chan controlMsg, 8)
	var conns int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		n := atomic.AddInt32(&conns, 1)
		for i := 0; i < 2; i++ { // auth, then subscribe
			var msg controlMsg
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			control <- msg
		}
		if n == 1 {
			return // kill the first session once it is subscribed
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), APIKey: "test-key"}, zap.NewNop().Sugar())
	s.redial = 50 * time.Millisecond
	s.Connect(ctx)

	if err := s.WaitReady(ctx, 5*time.Second); err != nil {
		t.Fatalf("wait ready: %v", err)
	}
	subErr := make(chan error, 1)
	s.Subscribe("AAPL", func(err error) { subErr <- err })
	select {
	case err := <-subErr:
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe callback never fired")
	}

	// auth and subscribe on the first connection, then the same pair
	// replayed on the second without another Subscribe call.
	want := []controlMsg{
		{Action: "auth", Params: "test-key"},
		{Action: "subscribe", Params: "T.AAPL,Q.AAPL"},
		{Action: "auth", Params: "test-key"},
		{Action: "subscribe", Params: "T.AAPL,Q.AAPL"},
	}
	for i, w := range want {
		select {
		case msg := <-control:
			if msg != w {
				t.Fatalf("control message %d: got %+v want %+v", i, msg, w)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("control message %d never arrived", i)
		}
	}
	if got := atomic.LoadInt32(&conns); got < 2 {
		t.Fatalf("got %d connections, want at least 2", got)
	}
}
