package service

import (
	"context"
	"testing"
	"time"

	"openlearn/course-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func optionIndex(i int) *int { return &i }

type quizFixture struct {
	svc        QuizService
	components *fakeComponentRepo
	attempts   *fakeAttemptRepo
	teacherID  primitive.ObjectID
	studentID  primitive.ObjectID
	quizID     primitive.ObjectID
}

func newQuizFixture(t *testing.T, content *domain.QuizContent) *quizFixture {
	t.Helper()
	components := newFakeComponentRepo()
	attempts := newFakeAttemptRepo()

	f := &quizFixture{
		svc:        NewQuizService(components, attempts, zap.NewNop()),
		components: components,
		attempts:   attempts,
		teacherID:  primitive.NewObjectID(),
		studentID:  primitive.NewObjectID(),
	}

	component := &domain.Component{
		CourseID:  primitive.NewObjectID(),
		ModuleID:  primitive.NewObjectID(),
		TeacherID: f.teacherID,
		Type:      domain.TypeQuiz,
		Title:     "Checkpoint",
		Content:   content,
	}
	id, err := components.Create(context.Background(), component)
	require.NoError(t, err)
	f.quizID = id
	return f
}

func twoQuestionQuiz(attemptsAllowed int) *domain.QuizContent {
	return &domain.QuizContent{
		PassingScore:    50,
		AttemptsAllowed: attemptsAllowed,
		Questions: []domain.QuizQuestion{
			{ID: "q1", Type: domain.QuestionMultipleChoice, Question: "Pick a", Options: []string{"a", "b"}, CorrectAnswer: "0", Points: 1},
			{ID: "q2", Type: domain.QuestionTrueFalse, Question: "Go is compiled", CorrectAnswer: "true", Points: 1},
		},
	}
}

func TestSubmitAttemptScoresAndPersists(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(-1))

	outcome, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, []domain.QuizAnswer{
		{QuestionID: "q1", OptionIndex: optionIndex(0)},
		{QuestionID: "q2", Value: "false"},
	}, time.Now().Add(-time.Minute))
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Attempt.AttemptNumber)
	assert.Equal(t, 1, outcome.Attempt.TotalScore)
	assert.Equal(t, 2, outcome.Attempt.MaxScore)
	assert.True(t, outcome.Attempt.Passed) // 50% meets the 50 threshold
	assert.False(t, outcome.Attempt.TimedOut)
	require.Len(t, outcome.PerQuestion, 2)
	assert.True(t, outcome.PerQuestion[0].IsCorrect)
	assert.False(t, outcome.PerQuestion[1].IsCorrect)

	stored, err := f.attempts.GetByComponentAndStudent(context.Background(), f.quizID, f.studentID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, outcome.Attempt.ID, stored[0].ID)
}

func TestSubmitAttemptNumbersDerivedFromHistory(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(-1))

	answers := []domain.QuizAnswer{{QuestionID: "q1", OptionIndex: optionIndex(0)}}

	first, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, answers, time.Now())
	require.NoError(t, err)
	second, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, answers, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Attempt.AttemptNumber)
	assert.Equal(t, 2, second.Attempt.AttemptNumber)

	// Another student's count starts fresh.
	other, err := f.svc.SubmitAttempt(context.Background(), primitive.NewObjectID(), f.quizID, answers, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, other.Attempt.AttemptNumber)
}

func TestSubmitAttemptCeilingEnforcedByStoredHistory(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(1))

	answers := []domain.QuizAnswer{{QuestionID: "q2", Value: "true"}}

	_, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, answers, time.Now())
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, answers, time.Now())
	assert.ErrorIs(t, err, ErrAttemptsExceeded)

	stored, err := f.attempts.GetByComponentAndStudent(context.Background(), f.quizID, f.studentID)
	require.NoError(t, err)
	assert.Len(t, stored, 1) // the rejected attempt left no record
}

func TestSubmitAttemptTimedOutStillScored(t *testing.T) {
	content := twoQuestionQuiz(-1)
	content.TimeLimit = 1
	f := newQuizFixture(t, content)

	outcome, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, []domain.QuizAnswer{
		{QuestionID: "q1", OptionIndex: optionIndex(0)},
		{QuestionID: "q2", Value: "true"},
	}, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)

	assert.True(t, outcome.Attempt.TimedOut)
	assert.Equal(t, 2, outcome.Attempt.TotalScore)
	assert.True(t, outcome.Attempt.Passed)
}

func TestSubmitAttemptRejectsNonQuiz(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(-1))

	reading := &domain.Component{
		TeacherID: f.teacherID,
		Type:      domain.TypeReading,
		Title:     "Notes",
		Content:   &domain.ReadingContent{Text: "<p>hello</p>"},
	}
	readingID, err := f.components.Create(context.Background(), reading)
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(context.Background(), f.studentID, readingID, nil, time.Now())
	assert.ErrorIs(t, err, ErrNotAQuiz)
}

func TestSubmitAttemptRejectsIncompleteQuiz(t *testing.T) {
	f := newQuizFixture(t, &domain.QuizContent{PassingScore: 70, AttemptsAllowed: -1})

	_, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, nil, time.Now())
	assert.ErrorIs(t, err, ErrQuizIncomplete)
}

func TestSubmitAttemptUnknownComponent(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(-1))

	_, err := f.svc.SubmitAttempt(context.Background(), f.studentID, primitive.NewObjectID(), nil, time.Now())
	assert.ErrorIs(t, err, ErrComponentNotFound)
}

func TestGetMyAttemptsScopedToStudent(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(-1))

	answers := []domain.QuizAnswer{{QuestionID: "q2", Value: "true"}}
	_, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, answers, time.Now())
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(context.Background(), primitive.NewObjectID(), f.quizID, answers, time.Now())
	require.NoError(t, err)

	mine, err := f.svc.GetMyAttempts(context.Background(), f.studentID, f.quizID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.studentID, mine[0].StudentID)
}

func TestGetAttemptsRestrictedToAuthor(t *testing.T) {
	f := newQuizFixture(t, twoQuestionQuiz(-1))

	answers := []domain.QuizAnswer{{QuestionID: "q2", Value: "true"}}
	_, err := f.svc.SubmitAttempt(context.Background(), f.studentID, f.quizID, answers, time.Now())
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(context.Background(), primitive.NewObjectID(), f.quizID, answers, time.Now())
	require.NoError(t, err)

	all, err := f.svc.GetAttempts(context.Background(), f.teacherID, f.quizID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.GetAttempts(context.Background(), primitive.NewObjectID(), f.quizID)
	assert.ErrorIs(t, err, ErrAttemptsForbidden)
}
