package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

// QuizQuestion is one question inside a quiz component.
//
// CorrectAnswer is held as a string for all question types: a 0-based
// option index for multiple_choice, "true"/"false" for true_false, and the
// expected text for short_answer.
type QuizQuestion struct {
	ID            string       `bson:"id" json:"id"`
	Type          QuestionType `bson:"type" json:"type"`
	Question      string       `bson:"question" json:"question"`
	Options       []string     `bson:"options,omitempty" json:"options,omitempty"` // multiple_choice only
	CorrectAnswer string       `bson:"correctAnswer" json:"correct_answer"`
	Explanation   string       `bson:"explanation,omitempty" json:"explanation,omitempty"`
	Points        int          `bson:"points" json:"points"`
}

// quizQuestionJSON mirrors QuizQuestion with a loose correct_answer so that
// authoring clients may send the multiple-choice index as a JSON number.
type quizQuestionJSON struct {
	ID            string          `json:"id"`
	Type          QuestionType    `json:"type"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
	Points        int             `json:"points"`
}

func (q *QuizQuestion) UnmarshalJSON(data []byte) error {
	var loose quizQuestionJSON
	if err := json.Unmarshal(data, &loose); err != nil {
		return err
	}
	q.ID = loose.ID
	q.Type = loose.Type
	q.Question = loose.Question
	q.Options = loose.Options
	q.Explanation = loose.Explanation
	q.Points = loose.Points
	if q.Points == 0 {
		q.Points = 1 // default weight
	}
	if len(loose.CorrectAnswer) == 0 {
		q.CorrectAnswer = ""
		return nil
	}
	var asString string
	if err := json.Unmarshal(loose.CorrectAnswer, &asString); err == nil {
		q.CorrectAnswer = asString
		return nil
	}
	var asNumber int
	if err := json.Unmarshal(loose.CorrectAnswer, &asNumber); err == nil {
		q.CorrectAnswer = strconv.Itoa(asNumber)
		return nil
	}
	return fmt.Errorf("correct_answer must be a string or an option index")
}

// Validate checks the per-type invariants of a question definition.
func (q *QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is empty")
	}
	if q.Points < 1 {
		return errors.New("points must be at least 1")
	}
	switch q.Type {
	case QuestionMultipleChoice:
		if len(q.Options) < 2 {
			return errors.New("multiple choice requires at least 2 options")
		}
		idx, err := strconv.Atoi(q.CorrectAnswer)
		if err != nil || idx < 0 || idx >= len(q.Options) {
			return errors.New("correct answer must be a valid option index")
		}
	case QuestionTrueFalse:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return errors.New(`correct answer must be "true" or "false"`)
		}
	case QuestionShortAnswer:
		if strings.TrimSpace(q.CorrectAnswer) == "" {
			return errors.New("correct answer text is empty")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}
