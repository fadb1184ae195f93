package quiz

import (
	"fmt"
	"time"
)

// State is the macro state of a session.
type State string

const (
	StateReady    State = "ready"
	StateTerminal State = "terminal"
)

// tickInterval is the countdown granularity.
const tickInterval = time.Second

// Session is one practice or exam attempt.
type Session struct {
	mode      Mode
	questions []Question
	index     map[int64]int

	position   int
	selections map[int64]Label
	revealed   map[int64]bool

	budget    time.Duration
	remaining time.Duration

	terminal      bool
	autoSubmitted bool
	result        Result

	startedAt   time.Time
	submittedAt time.Time
}

// New builds a session positioned on the first question with no answers.
func New(questions []Question, cfg Config, now time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	switch cfg.Mode {
	case ModeTutor, ModeTimed:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, cfg.Mode)
	}

	s := &Session{
		mode:       cfg.Mode,
		questions:  make([]Question, len(questions)),
		index:      make(map[int64]int, len(questions)),
		selections: make(map[int64]Label),
		revealed:   make(map[int64]bool),
		startedAt:  now,
	}
	copy(s.questions, questions)

	for i, q := range questions {
		if _, dup := s.index[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrInvalidConfig, q.ID)
		}
		s.index[q.ID] = i
	}

	if cfg.Mode == ModeTimed {
		budget := cfg.Budget.Truncate(tickInterval)
		if budget < tickInterval {
			return nil, fmt.Errorf("%w: timed budget must be at least %s", ErrInvalidConfig, tickInterval)
		}
		s.budget = budget
		s.remaining = budget
	}

	return s, nil
}

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.mode }

// State returns ready or terminal.
func (s *Session) State() State {
	if s.terminal {
		return StateTerminal
	}
	return StateReady
}

// Terminal reports whether the session has been scored.
func (s *Session) Terminal() bool { return s.terminal }

// Position returns the 0-based index of the displayed question.
func (s *Session) Position() int { return s.position }

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// Current returns the displayed question.
func (s *Session) Current() Question { return s.questions[s.position] }

// Remaining returns the countdown value. Always zero in tutor mode.
func (s *Session) Remaining() time.Duration { return s.remaining }

// Selection returns the recorded label for a question.
func (s *Session) Selection(id int64) (Label, bool) {
	l, ok := s.selections[id]
	return l, ok
}

// Advance moves to the next question. It is a no-op on the last one.
func (s *Session) Advance() {
	if s.position < len(s.questions)-1 {
		s.position++
	}
}

// Retreat moves to the previous question. It is a no-op on the first one.
func (s *Session) Retreat() {
	if s.position > 0 {
		s.position--
	}
}

// SelectAnswer records label for question id, replacing any earlier choice.
// The session is left untouched when an error is returned.
func (s *Session) SelectAnswer(id int64, label Label) error {
	if s.terminal {
		return ErrSessionTerminal
	}
	if _, ok := s.index[id]; !ok || !label.Valid() {
		return ErrInvalidAnswerSelection
	}
	if s.revealed[id] {
		return ErrQuestionLocked
	}
	s.selections[id] = label
	return nil
}

// Reveal shows correctness for one answered question and locks it.
// Revealing an already revealed question returns the same feedback.
func (s *Session) Reveal(id int64) (Feedback, error) {
	if s.mode != ModeTutor {
		return Feedback{}, ErrNotTutorMode
	}
	i, ok := s.index[id]
	if !ok {
		return Feedback{}, ErrInvalidAnswerSelection
	}
	sel, answered := s.selections[id]
	if !s.revealed[id] {
		if s.terminal {
			return Feedback{}, ErrSessionTerminal
		}
		if !answered {
			return Feedback{}, ErrNothingToReveal
		}
		s.revealed[id] = true
	}

	q := s.questions[i]
	return Feedback{
		QuestionID: id,
		Selected:   sel,
		Correct:    q.CorrectOption,
		IsCorrect:  sel == q.CorrectOption,
	}, nil
}

// Revealed reports whether a tutor-mode question has been revealed.
func (s *Session) Revealed(id int64) bool { return s.revealed[id] }

// Tick advances the countdown by one interval. When the countdown reaches
// zero the session submits itself and Tick reports true. Ticks on a tutor
// session or a terminal session change nothing.
func (s *Session) Tick(now time.Time) bool {
	if s.mode != ModeTimed || s.terminal {
		return false
	}
	s.remaining -= tickInterval
	if s.remaining > 0 {
		return false
	}
	s.remaining = 0
	s.autoSubmitted = true
	s.Submit(now)
	return true
}

// Submit scores the session and freezes its answers. The position is reset
// to the first question for review. Later calls return the stored result and
// first=false.
func (s *Session) Submit(now time.Time) (res Result, first bool) {
	if s.terminal {
		return s.result, false
	}
	s.result = Score(s.questions, s.selections)
	s.terminal = true
	s.submittedAt = now
	s.position = 0
	return s.result, true
}

// Result returns the score once terminal.
func (s *Session) Result() (Result, bool) {
	return s.result, s.terminal
}

// Snapshot is a detached copy of the session state.
type Snapshot struct {
	Mode          Mode
	State         State
	Position      int
	Total         int
	Current       Question
	Selections    map[int64]Label
	Revealed      map[int64]bool
	Budget        time.Duration
	Remaining     time.Duration
	AutoSubmitted bool
	Result        *Result
	StartedAt     time.Time
	SubmittedAt   time.Time
}

// Terminal reports whether the snapshot was taken after submission.
func (sn Snapshot) Terminal() bool { return sn.State == StateTerminal }

// Critical reports whether a running countdown is at or below threshold.
func (sn Snapshot) Critical(threshold time.Duration) bool {
	return sn.Mode == ModeTimed && !sn.Terminal() && sn.Remaining <= threshold
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	sn := Snapshot{
		Mode:          s.mode,
		State:         s.State(),
		Position:      s.position,
		Total:         len(s.questions),
		Current:       s.questions[s.position],
		Selections:    make(map[int64]Label, len(s.selections)),
		Revealed:      make(map[int64]bool, len(s.revealed)),
		Budget:        s.budget,
		Remaining:     s.remaining,
		AutoSubmitted: s.autoSubmitted,
		StartedAt:     s.startedAt,
		SubmittedAt:   s.submittedAt,
	}
	for id, l := range s.selections {
		sn.Selections[id] = l
	}
	for id := range s.revealed {
		sn.Revealed[id] = true
	}
	if s.terminal {
		r := s.result
		sn.Result = &r
	}
	return sn
}
