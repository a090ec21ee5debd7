package runner

import "time"

// Ticker delivers tick signals to Run.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker returns a Ticker backed by time.Ticker.
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// ManualTicker is fed by the caller, one Fire per tick.
type ManualTicker struct {
	ch chan time.Time
}

// NewManualTicker creates a ManualTicker with an unbuffered channel, so Fire
// returns once Run has taken the tick.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time)}
}

// C implements Ticker.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop implements Ticker.
func (m *ManualTicker) Stop() {}

// Fire sends one tick.
func (m *ManualTicker) Fire() {
	m.ch <- time.Now()
}
