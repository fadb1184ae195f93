package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptRecord is written once when a quiz session is submitted.
type AttemptRecord struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Mode            string           `json:"mode"`
	QuestionIDs     []int64          `json:"question_ids"`
	Selections      map[int64]string `json:"selections"`
	Total           int              `json:"total"`
	Correct         int              `json:"correct"`
	Incorrect       int              `json:"incorrect"`
	Accuracy        float64          `json:"accuracy"`
	AutoSubmitted   bool             `json:"auto_submitted"`
	StartedAt       time.Time        `json:"started_at"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	DurationSeconds int              `json:"duration_seconds"`
}

// AttemptStats summarises a learner's history.
type AttemptStats struct {
	Attempts          int     `json:"attempts"`
	QuestionsAnswered int     `json:"questions_answered"`
	AverageAccuracy   float64 `json:"average_accuracy"`
	BestAccuracy      float64 `json:"best_accuracy"`
	TotalSeconds      int     `json:"total_seconds"`
}

// ReviewItem pairs a question with what the learner picked.
type ReviewItem struct {
	Question  *Question `json:"question"`
	Selected  *string   `json:"selected"`
	IsCorrect bool      `json:"is_correct"`
}

// AttemptReview is the full review of a stored attempt.
type AttemptReview struct {
	Attempt *AttemptRecord `json:"attempt"`
	Items   []ReviewItem   `json:"items"`
}
