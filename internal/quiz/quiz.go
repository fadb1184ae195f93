// Package quiz implements the practice/exam session state machine.
//
// A Session owns one attempt: the ordered questions, the current position,
// the selected labels, an optional countdown and the final score. It does no
// I/O and holds no locks; callers that share a Session between goroutines
// drive it through a Runner.
package quiz

import (
	"errors"
	"strings"
	"time"
)

// Engine errors.
var (
	ErrNoQuestionsAvailable   = errors.New("no questions available")
	ErrInvalidAnswerSelection = errors.New("invalid answer selection")
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrAccessExpired          = errors.New("access expired")

	ErrInvalidConfig   = errors.New("invalid session config")
	ErrSessionTerminal = errors.New("session already submitted")
	ErrQuestionLocked  = errors.New("question already revealed")
	ErrNotTutorMode    = errors.New("reveal is only available in tutor mode")
	ErrNothingToReveal = errors.New("select an answer before revealing")
	ErrSessionClosed   = errors.New("session closed")
)

// Mode selects when correctness is shown.
type Mode string

const (
	ModeTutor Mode = "tutor"
	ModeTimed Mode = "timed"
)

// ParseMode converts a request value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeTutor:
		return ModeTutor, nil
	case ModeTimed:
		return ModeTimed, nil
	}
	return "", ErrInvalidConfig
}

// Label is one of the four choice letters.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
	LabelD Label = "D"
)

// Labels lists the choices in display order.
var Labels = []Label{LabelA, LabelB, LabelC, LabelD}

// Valid reports whether l is A, B, C or D.
func (l Label) Valid() bool {
	switch l {
	case LabelA, LabelB, LabelC, LabelD:
		return true
	}
	return false
}

// ParseLabel accepts "a".."d" in any case with surrounding spaces.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", ErrInvalidAnswerSelection
	}
	return l, nil
}

// Question is the part of a question record the engine needs.
type Question struct {
	ID            int64
	CorrectOption Label
}

// Config is supplied by the caller when a session is created.
// Budget is ignored in tutor mode.
type Config struct {
	Mode   Mode
	Budget time.Duration
}

// Result is the score computed at submission.
type Result struct {
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Accuracy  float64 `json:"accuracy"`
}

// Feedback is returned by a tutor-mode reveal.
type Feedback struct {
	QuestionID int64 `json:"question_id"`
	Selected   Label `json:"selected"`
	Correct    Label `json:"correct_option"`
	IsCorrect  bool  `json:"is_correct"`
}

// Score counts matches between selections and the answer key.
// Unanswered questions count as incorrect.
func Score(questions []Question, selections map[int64]Label) Result {
	r := Result{Total: len(questions)}
	for _, q := range questions {
		if sel, ok := selections[q.ID]; ok && sel == q.CorrectOption {
			r.Correct++
		}
	}
	r.Incorrect = r.Total - r.Correct
	if r.Total > 0 {
		r.Accuracy = float64(r.Correct) / float64(r.Total)
	}
	return r
}
