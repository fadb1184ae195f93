package quiz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type terminalRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	ticks int
}

func (r *terminalRecorder) onTerminal(sn Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, sn)
}

func (r *terminalRecorder) onTick(Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
}

func (r *terminalRecorder) tickCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

func (r *terminalRecorder) calls() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func startRunner(t *testing.T, s *Session) (*Runner, *ManualTicker, *terminalRecorder) {
	t.Helper()
	ticker := NewManualTicker()
	rec := &terminalRecorder{}
	r := NewRunner(s, RunnerOptions{
		Ticker:     ticker,
		Clock:      func() time.Time { return t0.Add(time.Minute) },
		OnTick:     rec.onTick,
		OnTerminal: rec.onTerminal,
	})
	t.Cleanup(r.Close)
	return r, ticker, rec
}

func TestRunner_AutoSubmitsOnExpiry(t *testing.T) {
	r, ticker, rec := startRunner(t, newTimed(t, 10*time.Second, LabelA, LabelB))
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		require.True(t, ticker.Fire(t0.Add(time.Duration(i)*time.Second)), "tick %d", i)
	}
	assert.False(t, ticker.Fire(t0.Add(11*time.Second)), "ticker must be stopped after expiry")

	sn, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, sn.Terminal())
	assert.Zero(t, sn.Remaining)
	assert.True(t, sn.AutoSubmitted)

	calls := rec.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, &Result{Total: 2, Correct: 0, Incorrect: 2, Accuracy: 0}, calls[0].Result)
	assert.Equal(t, 10, rec.tickCount())
}

func TestRunner_ManualSubmitCancelsTicking(t *testing.T) {
	r, ticker, rec := startRunner(t, newTimed(t, 10*time.Second, LabelC))
	ctx := context.Background()

	require.True(t, ticker.Fire(t0.Add(time.Second)))
	require.NoError(t, r.Do(ctx, func(s *Session) error {
		return s.SelectAnswer(1, LabelC)
	}))

	res, err := r.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 1, Correct: 1, Incorrect: 0, Accuracy: 1}, res)

	assert.False(t, ticker.Fire(t0.Add(2*time.Second)))

	again, err := r.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	sn, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, sn.Remaining)
	assert.False(t, sn.AutoSubmitted)
	assert.Len(t, rec.calls(), 1)
}

func TestRunner_CommandErrorsPropagate(t *testing.T) {
	r, _, _ := startRunner(t, newTimed(t, time.Minute, LabelA))

	err := r.Do(context.Background(), func(s *Session) error {
		return s.SelectAnswer(5, LabelA)
	})
	assert.ErrorIs(t, err, ErrInvalidAnswerSelection)
}

func TestRunner_CloseStopsEverything(t *testing.T) {
	ticker := NewManualTicker()
	rec := &terminalRecorder{}
	r := NewRunner(newTimed(t, 10*time.Second, LabelA), RunnerOptions{
		Ticker:     ticker,
		OnTerminal: rec.onTerminal,
	})

	r.Close()
	r.Close()

	assert.False(t, ticker.Fire(t0))
	_, err := r.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Empty(t, rec.calls())

	select {
	case <-r.Done():
	default:
		t.Fatal("runner loop still running")
	}
}

func TestRunner_TutorNeverTicks(t *testing.T) {
	ticker := NewManualTicker()
	r := NewRunner(newTutor(t, LabelA), RunnerOptions{Ticker: ticker})
	defer r.Close()

	assert.False(t, ticker.Fire(t0))
}

func TestRunner_ContextCancelled(t *testing.T) {
	r, _, _ := startRunner(t, newTutor(t, LabelA))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, func(*Session) error { return nil })
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
