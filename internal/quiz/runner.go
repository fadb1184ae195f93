package quiz

import (
	"context"
	"sync"
	"time"
)

// RunnerOptions wires a Runner to its surroundings. Callbacks run on the
// runner goroutine and must not call back into the Runner.
type RunnerOptions struct {
	// Ticker drives the countdown of a timed session. Nil means a real
	// one-second ticker. Tutor sessions never tick.
	Ticker Ticker

	// Clock defaults to time.Now.
	Clock func() time.Time

	// OnTick observes the session after every countdown tick.
	OnTick func(Snapshot)

	// OnTerminal is called exactly once, after the ticker has been stopped,
	// when the session is submitted manually or by expiry.
	OnTerminal func(Snapshot)
}

type command struct {
	fn  func(*Session) error
	err chan error
}

// Runner serialises user commands and countdown ticks for one Session on a
// single goroutine.
type Runner struct {
	session *Session
	opts    RunnerOptions
	ticker  Ticker

	cmds      chan command
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewRunner starts the event loop for s.
func NewRunner(s *Session, opts RunnerOptions) *Runner {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	r := &Runner{
		session: s,
		opts:    opts,
		cmds:    make(chan command),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	if s.Mode() == ModeTimed && !s.Terminal() {
		r.ticker = opts.Ticker
		if r.ticker == nil {
			r.ticker = NewTimeTicker()
		}
	} else if opts.Ticker != nil {
		opts.Ticker.Stop()
	}

	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer close(r.stopped)

	var ticks <-chan time.Time
	if r.ticker != nil {
		ticks = r.ticker.C()
	}

	for {
		select {
		case <-r.quit:
			r.stopTicker()
			return

		case cmd := <-r.cmds:
			wasTerminal := r.session.Terminal()
			cmd.err <- cmd.fn(r.session)
			if !wasTerminal && r.session.Terminal() {
				ticks = nil
				r.finish()
			}

		case now := <-ticks:
			expired := r.session.Tick(now)
			if r.opts.OnTick != nil {
				r.opts.OnTick(r.session.Snapshot())
			}
			if expired {
				ticks = nil
				r.finish()
			}
		}
	}
}

// finish runs on the terminal transition.
func (r *Runner) finish() {
	r.stopTicker()
	if r.opts.OnTerminal != nil {
		r.opts.OnTerminal(r.session.Snapshot())
	}
}

func (r *Runner) stopTicker() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

// Do runs fn on the runner goroutine and returns its error.
func (r *Runner) Do(ctx context.Context, fn func(*Session) error) error {
	cmd := command{fn: fn, err: make(chan error, 1)}

	select {
	case r.cmds <- cmd:
	case <-r.quit:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.err:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the session state.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var sn Snapshot
	err := r.Do(ctx, func(s *Session) error {
		sn = s.Snapshot()
		return nil
	})
	return sn, err
}

// Submit submits the session through the event loop.
func (r *Runner) Submit(ctx context.Context) (Result, error) {
	var res Result
	err := r.Do(ctx, func(s *Session) error {
		res, _ = s.Submit(r.opts.Clock())
		return nil
	})
	return res, err
}

// Close stops the countdown and the event loop. Pending ticks are dropped
// and an unsubmitted session is discarded without scoring.
func (r *Runner) Close() {
	r.closeOnce.Do(func() { close(r.quit) })
	<-r.stopped
}

// Done is closed when the event loop has exited.
func (r *Runner) Done() <-chan struct{} { return r.stopped }
