package quiz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func questions(keys ...Label) []Question {
	qs := make([]Question, len(keys))
	for i, k := range keys {
		qs[i] = Question{ID: int64(i + 1), CorrectOption: k}
	}
	return qs
}

func newTimed(t *testing.T, budget time.Duration, keys ...Label) *Session {
	t.Helper()
	s, err := New(questions(keys...), Config{Mode: ModeTimed, Budget: budget}, t0)
	require.NoError(t, err)
	return s
}

func newTutor(t *testing.T, keys ...Label) *Session {
	t.Helper()
	s, err := New(questions(keys...), Config{Mode: ModeTutor}, t0)
	require.NoError(t, err)
	return s
}

func TestNew_FreshSessionState(t *testing.T) {
	s := newTimed(t, 2*time.Hour, LabelA, LabelB, LabelC)

	assert.Equal(t, 0, s.Position())
	assert.Equal(t, StateReady, s.State())
	assert.False(t, s.Terminal())
	assert.Equal(t, 2*time.Hour, s.Remaining())
	assert.Empty(t, s.Snapshot().Selections)
	assert.Nil(t, s.Snapshot().Result)
}

func TestNew_EmptySequence(t *testing.T) {
	s, err := New(nil, Config{Mode: ModeTimed, Budget: time.Minute}, t0)
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
	assert.Nil(t, s)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(questions(LabelA), Config{Mode: ModeTimed, Budget: 500 * time.Millisecond}, t0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(questions(LabelA), Config{Mode: "practice"}, t0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	dup := []Question{{ID: 7, CorrectOption: LabelA}, {ID: 7, CorrectOption: LabelB}}
	_, err = New(dup, Config{Mode: ModeTutor}, t0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_TutorHasNoCountdown(t *testing.T) {
	s := newTutor(t, LabelA)
	assert.Zero(t, s.Remaining())
	assert.False(t, s.Tick(t0))
	assert.Zero(t, s.Remaining())
}

func TestNavigation_EdgesAreNoOps(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB, LabelC)

	before := s.Snapshot()
	s.Retreat()
	assert.Equal(t, before, s.Snapshot())

	s.Advance()
	s.Advance()
	assert.Equal(t, 2, s.Position())

	before = s.Snapshot()
	s.Advance()
	assert.Equal(t, before, s.Snapshot())

	s.Retreat()
	assert.Equal(t, 1, s.Position())
	assert.Equal(t, int64(2), s.Current().ID)
}

func TestNavigation_PreservesAnswers(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB)
	require.NoError(t, s.SelectAnswer(1, LabelD))

	s.Advance()
	_, ok := s.Selection(s.Current().ID)
	assert.False(t, ok)

	s.Retreat()
	sel, ok := s.Selection(s.Current().ID)
	assert.True(t, ok)
	assert.Equal(t, LabelD, sel)
}

func TestSelectAnswer_LastSelectionWins(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB)

	for _, l := range []Label{LabelA, LabelC, LabelB, LabelD} {
		require.NoError(t, s.SelectAnswer(2, l))
	}

	sn := s.Snapshot()
	assert.Len(t, sn.Selections, 1)
	assert.Equal(t, LabelD, sn.Selections[2])
	assert.Equal(t, 0, sn.Position)
	assert.Equal(t, time.Minute, sn.Remaining)
}

func TestSelectAnswer_Invalid(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA)
	before := s.Snapshot()

	assert.ErrorIs(t, s.SelectAnswer(1, Label("E")), ErrInvalidAnswerSelection)
	assert.ErrorIs(t, s.SelectAnswer(99, LabelA), ErrInvalidAnswerSelection)
	assert.Equal(t, before, s.Snapshot())
}

func TestSelectAnswer_RejectedOnceTerminal(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB)
	require.NoError(t, s.SelectAnswer(1, LabelA))
	s.Submit(t0.Add(time.Second))

	before := s.Snapshot()
	assert.ErrorIs(t, s.SelectAnswer(1, LabelB), ErrSessionTerminal)
	assert.ErrorIs(t, s.SelectAnswer(2, LabelB), ErrSessionTerminal)
	assert.Equal(t, before, s.Snapshot())
}

func TestSubmit_Idempotent(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB, LabelC, LabelD)
	require.NoError(t, s.SelectAnswer(1, LabelA))
	require.NoError(t, s.SelectAnswer(2, LabelB))

	first, ok := s.Submit(t0.Add(10 * time.Second))
	require.True(t, ok)
	second, ok := s.Submit(t0.Add(20 * time.Second))
	assert.False(t, ok)

	assert.Equal(t, first, second)
	assert.True(t, s.Terminal())
	assert.Equal(t, t0.Add(10*time.Second), s.Snapshot().SubmittedAt)
}

func TestSubmit_Accuracy(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB, LabelC, LabelD)
	require.NoError(t, s.SelectAnswer(1, LabelA))
	require.NoError(t, s.SelectAnswer(2, LabelB))
	require.NoError(t, s.SelectAnswer(3, LabelC))
	require.NoError(t, s.SelectAnswer(4, LabelA))

	res, _ := s.Submit(t0)
	assert.Equal(t, Result{Total: 4, Correct: 3, Incorrect: 1, Accuracy: 0.75}, res)
}

func TestSubmit_SingleCorrectAnswer(t *testing.T) {
	s := newTimed(t, time.Minute, LabelC)
	require.NoError(t, s.SelectAnswer(1, LabelC))

	res, _ := s.Submit(t0)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 0, res.Incorrect)
	assert.Equal(t, 1.0, res.Accuracy)
}

func TestSubmit_UnansweredCountsIncorrect(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB)
	require.NoError(t, s.SelectAnswer(1, LabelA))

	res, _ := s.Submit(t0)
	assert.Equal(t, Result{Total: 2, Correct: 1, Incorrect: 1, Accuracy: 0.5}, res)
}

func TestSubmit_ResetsPositionForReview(t *testing.T) {
	s := newTimed(t, time.Minute, LabelA, LabelB, LabelC)
	s.Advance()
	s.Advance()

	s.Submit(t0)
	assert.Equal(t, 0, s.Position())

	s.Advance()
	assert.Equal(t, 1, s.Position())
}

func TestTick_TenSecondBudget(t *testing.T) {
	s := newTimed(t, 10*time.Second, LabelA, LabelB)
	require.NoError(t, s.SelectAnswer(2, LabelB))

	expirations := 0
	for i := 1; i <= 15; i++ {
		if s.Tick(t0.Add(time.Duration(i) * time.Second)) {
			expirations++
		}
		if i < 10 {
			assert.False(t, s.Terminal(), "tick %d", i)
			assert.Equal(t, time.Duration(10-i)*time.Second, s.Remaining())
		}
	}

	assert.Equal(t, 1, expirations)
	assert.True(t, s.Terminal())
	assert.Zero(t, s.Remaining())

	sn := s.Snapshot()
	assert.True(t, sn.AutoSubmitted)
	assert.Equal(t, map[int64]Label{2: LabelB}, sn.Selections)
	assert.Equal(t, &Result{Total: 2, Correct: 1, Incorrect: 1, Accuracy: 0.5}, sn.Result)
	assert.Equal(t, t0.Add(10*time.Second), sn.SubmittedAt)
}

func TestTick_NoInteractionAllUnanswered(t *testing.T) {
	s := newTimed(t, 10*time.Second, LabelA, LabelB, LabelC)
	for i := 0; i < 10; i++ {
		s.Tick(t0)
	}

	res, terminal := s.Result()
	assert.True(t, terminal)
	assert.Empty(t, s.Snapshot().Selections)
	assert.Equal(t, Result{Total: 3, Correct: 0, Incorrect: 3, Accuracy: 0}, res)
}

func TestTick_AfterManualSubmitIsNoOp(t *testing.T) {
	s := newTimed(t, 10*time.Second, LabelA)
	s.Tick(t0)
	s.Submit(t0)

	remaining := s.Remaining()
	assert.False(t, s.Tick(t0))
	assert.Equal(t, remaining, s.Remaining())
	assert.False(t, s.Snapshot().AutoSubmitted)
}

func TestReveal_LocksQuestion(t *testing.T) {
	s := newTutor(t, LabelB, LabelC)
	require.NoError(t, s.SelectAnswer(1, LabelA))

	fb, err := s.Reveal(1)
	require.NoError(t, err)
	assert.Equal(t, Feedback{QuestionID: 1, Selected: LabelA, Correct: LabelB, IsCorrect: false}, fb)

	assert.ErrorIs(t, s.SelectAnswer(1, LabelB), ErrQuestionLocked)
	sel, _ := s.Selection(1)
	assert.Equal(t, LabelA, sel)

	again, err := s.Reveal(1)
	require.NoError(t, err)
	assert.Equal(t, fb, again)

	s.Advance()
	assert.False(t, s.Revealed(s.Current().ID))
	require.NoError(t, s.SelectAnswer(2, LabelC))
	fb, err = s.Reveal(2)
	require.NoError(t, err)
	assert.True(t, fb.IsCorrect)
}

func TestReveal_Preconditions(t *testing.T) {
	tutor := newTutor(t, LabelA)
	_, err := tutor.Reveal(1)
	assert.ErrorIs(t, err, ErrNothingToReveal)
	_, err = tutor.Reveal(42)
	assert.ErrorIs(t, err, ErrInvalidAnswerSelection)

	timed := newTimed(t, time.Minute, LabelA)
	require.NoError(t, timed.SelectAnswer(1, LabelA))
	_, err = timed.Reveal(1)
	assert.ErrorIs(t, err, ErrNotTutorMode)
}

func TestTutor_SubmitScoresRevealedAndUnrevealed(t *testing.T) {
	s := newTutor(t, LabelA, LabelB, LabelC)
	require.NoError(t, s.SelectAnswer(1, LabelA))
	_, err := s.Reveal(1)
	require.NoError(t, err)
	require.NoError(t, s.SelectAnswer(2, LabelB))

	res, _ := s.Submit(t0)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 1, res.Incorrect)

	_, err = s.Reveal(3)
	assert.ErrorIs(t, err, ErrSessionTerminal)
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel(" c ")
	require.NoError(t, err)
	assert.Equal(t, LabelC, l)

	_, err = ParseLabel("e")
	assert.ErrorIs(t, err, ErrInvalidAnswerSelection)
}

func TestScore_EmptyTotal(t *testing.T) {
	assert.Equal(t, Result{}, Score(nil, nil))
}

func TestSnapshot_Critical(t *testing.T) {
	s := newTimed(t, 6*time.Minute, LabelA)
	assert.False(t, s.Snapshot().Critical(5*time.Minute))

	for i := 0; i < 60; i++ {
		s.Tick(t0)
	}
	assert.True(t, s.Snapshot().Critical(5*time.Minute))
}
