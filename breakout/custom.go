package breakout

import "go.uber.org/zap"

// CustomLevel is a degenerate tracker for a user-supplied price: no
// pullback logic, just a one-shot crossing check. Changing or clearing
// the level re-arms it.
type CustomLevel struct {
	symbol    string
	log       *zap.SugaredLogger
	level     float64
	set       bool
	triggered bool
}

func NewCustomLevel(symbol string, log *zap.SugaredLogger) *CustomLevel {
	return &CustomLevel{symbol: symbol, log: log}
}

// SetLevel installs a new level and resets the trigger.
func (c *CustomLevel) SetLevel(price float64) {
	c.level = price
	c.set = true
	c.triggered = false
	c.log.Infow("custom level set", "symbol", c.symbol, "level", price)
}

// Clear removes the level entirely.
func (c *CustomLevel) Clear() {
	c.level = 0
	c.set = false
	c.triggered = false
	c.log.Infow("custom level cleared", "symbol", c.symbol)
}

// Level returns the armed level, false once triggered or unset.
func (c *CustomLevel) Level() (float64, bool) {
	if !c.set || c.triggered {
		return 0, false
	}
	return c.level, true
}

// CheckTick fires once when price reaches the level.
func (c *CustomLevel) CheckTick(price float64) bool {
	if !c.set || c.triggered || price < c.level {
		return false
	}
	c.triggered = true
	c.log.Infow("custom level crossed", "symbol", c.symbol, "price", price, "level", c.level)
	return true
}
