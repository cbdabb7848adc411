package market

import (
	"errors"
	"sync"
)

// ErrNoQuote is returned when a symbol has not produced a quote yet.
var ErrNoQuote = errors.New("no quote for symbol")

// QuoteStore keeps the last observed quote per symbol. The tick loop
// writes it; the command surface reads it for display without touching
// the loop's own state.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]Quote)}
}

func (qs *QuoteStore) Set(q Quote) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.quotes[q.Symbol] = q
}

func (qs *QuoteStore) Get(symbol string) (Quote, error) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	q, ok := qs.quotes[symbol]
	if !ok {
		return Quote{}, ErrNoQuote
	}
	return q, nil
}
