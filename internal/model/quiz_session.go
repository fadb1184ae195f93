package model

import (
	"github.com/apexqbank/apex-backend/internal/quiz"
	"github.com/google/uuid"
)

// Session presets mirroring the short practice set and the full mock exam.
const (
	PresetPractice = "practice"
	PresetExam     = "exam"
)

// StartQuizRequest opens a quiz session.
type StartQuizRequest struct {
	Mode            string `json:"mode" binding:"required,oneof=tutor timed"`
	Preset          string `json:"preset" binding:"omitempty,oneof=practice exam"`
	Limit           int    `json:"limit" binding:"omitempty,min=1"`
	DurationSeconds int    `json:"duration_seconds" binding:"omitempty,min=10,max=21600"`
	Subject         string `json:"subject" binding:"max=100"`
}

// SelectAnswerRequest records a choice for one question. The label is
// checked by the session so a bad choice reports INVALID_ANSWER_SELECTION.
type SelectAnswerRequest struct {
	QuestionID int64  `json:"question_id" binding:"required,min=1"`
	Label      string `json:"label" binding:"required,max=8"`
}

// RevealRequest asks for tutor-mode feedback on one question.
type RevealRequest struct {
	QuestionID int64 `json:"question_id" binding:"required,min=1"`
}

// QuestionView is a question as shown to a learner during a session.
// The key and explanation are only filled once they may be seen.
type QuestionView struct {
	ID            int64             `json:"id"`
	Subject       string            `json:"subject,omitempty"`
	QuestionText  string            `json:"question_text"`
	ImageURL      *string           `json:"image_url,omitempty"`
	Options       map[string]string `json:"options"`
	Selected      *string           `json:"selected"`
	Revealed      bool              `json:"revealed"`
	CorrectOption *string           `json:"correct_option,omitempty"`
	IsCorrect     *bool             `json:"is_correct,omitempty"`
	Explanation   *string           `json:"explanation,omitempty"`
	Reference     *string           `json:"reference,omitempty"`
}

// SessionView is the rendering-friendly state of a quiz session.
type SessionView struct {
	ID               uuid.UUID        `json:"id"`
	Mode             string           `json:"mode"`
	State            string           `json:"state"`
	Position         int              `json:"position"`
	Total            int              `json:"total"`
	Answered         int              `json:"answered"`
	BudgetSeconds    int              `json:"budget_seconds"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Critical         bool             `json:"critical"`
	AutoSubmitted    bool             `json:"auto_submitted"`
	Current          *QuestionView    `json:"current"`
	Selections       map[int64]string `json:"selections"`
	Result           *quiz.Result     `json:"result,omitempty"`
	AttemptID        *uuid.UUID       `json:"attempt_id,omitempty"`
}

// RevealResponse is returned by a tutor-mode reveal.
type RevealResponse struct {
	Feedback quiz.Feedback `json:"feedback"`
	Session  *SessionView  `json:"session"`
}
