package stream

import (
	"encoding/json"
	"time"

	"github.com/rustyeddy/scalper/market"
)

// event is one provider frame entry. Quote events carry bp/ap/bs/as,
// trade prints carry p/s; timestamps are epoch milliseconds.
type event struct {
	Ev       string  `json:"ev"`
	Sym      string  `json:"sym"`
	BidPrice float64 `json:"bp"`
	AskPrice float64 `json:"ap"`
	BidSize  float64 `json:"bs"`
	AskSize  float64 `json:"as"`
	Price    float64 `json:"p"`
	Size     float64 `json:"s"`
	Millis   int64   `json:"t"`
	Status   string  `json:"status"`
	Message  string  `json:"message"`
}

// dispatch parses one frame and fans its events out to the registered
// handlers. Frames arrive as arrays; single objects are tolerated.
// Malformed frames are logged and dropped.
func (s *Stream) dispatch(data []byte) {
	var events []event
	if err := json.Unmarshal(data, &events); err != nil {
		var single event
		if err := json.Unmarshal(data, &single); err != nil {
			s.log.Warnw("malformed frame dropped", "error", err)
			return
		}
		events = []event{single}
	}

	for _, ev := range events {
		switch ev.Ev {
		case "Q":
			if ev.Sym == "" {
				continue
			}
			if s.onQuote != nil {
				s.onQuote(market.Quote{
					Symbol:  ev.Sym,
					Bid:     ev.BidPrice,
					Ask:     ev.AskPrice,
					BidSize: ev.BidSize,
					AskSize: ev.AskSize,
					Time:    time.UnixMilli(ev.Millis).UTC(),
				})
			}
		case "T":
			if ev.Sym == "" {
				continue
			}
			if s.onTrade != nil {
				s.onTrade(Trade{
					Symbol: ev.Sym,
					Price:  ev.Price,
					Size:   ev.Size,
					Time:   time.UnixMilli(ev.Millis).UTC(),
				})
			}
		case "status":
			s.log.Debugw("provider status", "status", ev.Status, "message", ev.Message)
		default:
			s.log.Debugw("unknown event type", "ev", ev.Ev)
		}
	}
}
