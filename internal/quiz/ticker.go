package quiz

import (
	"sync"
	"time"
)

// Ticker delivers countdown ticks to a Runner.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker returns a Ticker backed by time.Ticker firing every second.
func NewTimeTicker() Ticker {
	return &timeTicker{t: time.NewTicker(tickInterval)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// ManualTicker is a Ticker fired explicitly, used by tests and tooling.
type ManualTicker struct {
	c        chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewManualTicker creates an unfired ManualTicker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

func (m *ManualTicker) C() <-chan time.Time { return m.c }

// Stop makes further Fire calls return false.
func (m *ManualTicker) Stop() {
	m.stopOnce.Do(func() { close(m.stopped) })
}

// Fire hands one tick to the consumer. It blocks until the tick is received
// and returns false once the ticker has been stopped.
func (m *ManualTicker) Fire(now time.Time) bool {
	select {
	case <-m.stopped:
		return false
	default:
	}
	select {
	case m.c <- now:
		return true
	case <-m.stopped:
		return false
	}
}
