package websocket

import (
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/quiz"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionState   Action = "state"
	ActionSelect  Action = "select"
	ActionAdvance Action = "advance"
	ActionRetreat Action = "retreat"
	ActionReveal  Action = "reveal"
	ActionSubmit  Action = "submit"
	ActionPing    Action = "ping"
)

// RequestEnvelope carries every client action; fields unused by an action
// are ignored.
type RequestEnvelope struct {
	Action     Action `json:"action"`
	QuestionID int64  `json:"question_id,omitempty"`
	Label      string `json:"label,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventTick      Event = "tick"
	EventRevealed  Event = "revealed"
	EventSubmitted Event = "submitted"
	EventClosed    Event = "closed"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse pushes the whole session view.
type StateResponse struct {
	Event   Event              `json:"event"`
	Session *model.SessionView `json:"session"`
}

// RevealedResponse answers a tutor-mode reveal.
type RevealedResponse struct {
	Event    Event              `json:"event"`
	Feedback quiz.Feedback      `json:"feedback"`
	Session  *model.SessionView `json:"session"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
