// Package quiz evaluates learner attempts against a quiz definition. The
// engine is stateless and deterministic: the same definition and answers
// always produce the same result. Attempt persistence and the attempt
// ceiling live with the caller; the engine only needs the current attempt
// number to refuse scoring past the ceiling.
package quiz

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"openlearn/course-app/internal/domain"
)

// ErrAttemptsExceeded is returned by EvaluateAttempt when the attempt
// ceiling has already been reached before scoring.
var ErrAttemptsExceeded = errors.New("quiz attempt limit reached")

// QuestionResult is the per-question correctness detail of an attempt.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `json:"pointsAwarded"`
	Explanation   string `json:"explanation,omitempty"`
}

// AttemptResult summarizes one scored attempt.
type AttemptResult struct {
	TotalScore  int              `json:"totalScore"`
	MaxScore    int              `json:"maxScore"`
	Passed      bool             `json:"passed"`
	TimedOut    bool             `json:"timedOut"`
	PerQuestion []QuestionResult `json:"perQuestion"`
}

// Score evaluates one answer against one question. Exact match only, no
// partial credit:
//
//   - multiple_choice: the selected option index must equal the correct one
//   - true_false: both sides normalized to "true"/"false" strings
//   - short_answer: whitespace-trimmed, case-sensitive string comparison
//     (a documented limitation, no fuzzy matching)
func Score(question domain.QuizQuestion, answer domain.QuizAnswer) QuestionResult {
	result := QuestionResult{QuestionID: question.ID, Explanation: question.Explanation}

	switch question.Type {
	case domain.QuestionMultipleChoice:
		correctIdx, err := strconv.Atoi(question.CorrectAnswer)
		result.IsCorrect = err == nil && answer.OptionIndex != nil && *answer.OptionIndex == correctIdx
	case domain.QuestionTrueFalse:
		result.IsCorrect = normalizeBool(answer.Value) == normalizeBool(question.CorrectAnswer) &&
			normalizeBool(answer.Value) != ""
	case domain.QuestionShortAnswer:
		result.IsCorrect = strings.TrimSpace(answer.Value) == strings.TrimSpace(question.CorrectAnswer)
	}

	if result.IsCorrect {
		result.PointsAwarded = question.Points
	}
	return result
}

// EvaluateAttempt scores one attempt against the quiz definition.
//
// attemptNumber is 1-based. When the definition caps attempts and the
// ceiling is already reached, ErrAttemptsExceeded is returned before any
// scoring. An elapsed time beyond the limit does not discard answers; the
// attempt is scored as submitted and flagged TimedOut for the caller to
// surface.
func EvaluateAttempt(quiz domain.QuizContent, answers []domain.QuizAnswer, attemptNumber int, elapsed time.Duration) (AttemptResult, error) {
	if quiz.AttemptsAllowed != -1 && attemptNumber > quiz.AttemptsAllowed {
		return AttemptResult{}, ErrAttemptsExceeded
	}

	byQuestion := make(map[string]domain.QuizAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := AttemptResult{PerQuestion: make([]QuestionResult, 0, len(quiz.Questions))}
	for _, question := range quiz.Questions {
		qr := Score(question, byQuestion[question.ID])
		result.MaxScore += question.Points
		result.TotalScore += qr.PointsAwarded
		result.PerQuestion = append(result.PerQuestion, qr)
	}

	if result.MaxScore > 0 {
		percentage := float64(result.TotalScore) / float64(result.MaxScore) * 100
		result.Passed = percentage >= float64(quiz.PassingScore)
	} else {
		// No scorable points: only a zero threshold is met vacuously.
		result.Passed = quiz.PassingScore <= 0
	}

	if quiz.TimeLimit > 0 && elapsed > time.Duration(quiz.TimeLimit)*time.Minute {
		result.TimedOut = true
	}

	return result, nil
}

func normalizeBool(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "t", "1":
		return "true"
	case "false", "f", "0":
		return "false"
	}
	return ""
}
