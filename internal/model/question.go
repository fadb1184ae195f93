package model

import (
	"time"

	"github.com/apexqbank/apex-backend/internal/quiz"
)

// Question is one multiple-choice item of the bank.
type Question struct {
	ID            int64     `json:"id"`
	Subject       string    `json:"subject"`
	QuestionText  string    `json:"question_text"`
	ImageURL      *string   `json:"image_url,omitempty"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption string    `json:"correct_option"`
	Explanation   *string   `json:"explanation,omitempty"`
	Reference     *string   `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Option returns the text of a choice.
func (q *Question) Option(l quiz.Label) string {
	switch l {
	case quiz.LabelA:
		return q.OptionA
	case quiz.LabelB:
		return q.OptionB
	case quiz.LabelC:
		return q.OptionC
	case quiz.LabelD:
		return q.OptionD
	}
	return ""
}

// WellFormed reports whether all four choices are filled and the key is A-D.
func (q *Question) WellFormed() bool {
	for _, l := range quiz.Labels {
		if q.Option(l) == "" {
			return false
		}
	}
	return quiz.Label(q.CorrectOption).Valid()
}

// Engine returns the scoring view of the question.
func (q *Question) Engine() quiz.Question {
	return quiz.Question{ID: q.ID, CorrectOption: quiz.Label(q.CorrectOption)}
}

// QuestionFilter narrows a question fetch. Results are ordered by id ascending.
type QuestionFilter struct {
	Limit   int
	Subject string
}

// QuestionRequest is the payload for creating or replacing a question.
type QuestionRequest struct {
	Subject       string  `json:"subject" binding:"max=100"`
	QuestionText  string  `json:"question_text" binding:"required,min=1,max=4000"`
	ImageURL      *string `json:"image_url" binding:"omitempty,url,max=1000"`
	OptionA       string  `json:"option_a" binding:"required,max=1000"`
	OptionB       string  `json:"option_b" binding:"required,max=1000"`
	OptionC       string  `json:"option_c" binding:"required,max=1000"`
	OptionD       string  `json:"option_d" binding:"required,max=1000"`
	CorrectOption string  `json:"correct_option" binding:"required,answer_label"`
	Explanation   *string `json:"explanation" binding:"omitempty,max=8000"`
	Reference     *string `json:"reference" binding:"omitempty,max=1000"`
}

// ToQuestion converts the request into a Question with a normalised key.
func (r *QuestionRequest) ToQuestion() *Question {
	label, _ := quiz.ParseLabel(r.CorrectOption)
	return &Question{
		Subject:       r.Subject,
		QuestionText:  r.QuestionText,
		ImageURL:      r.ImageURL,
		OptionA:       r.OptionA,
		OptionB:       r.OptionB,
		OptionC:       r.OptionC,
		OptionD:       r.OptionD,
		CorrectOption: string(label),
		Explanation:   r.Explanation,
		Reference:     r.Reference,
	}
}

// ImportQuestionsRequest is the payload for bulk question import.
type ImportQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,max=1000,dive"`
}
