package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuizAnswer is one learner answer keyed to a question. OptionIndex carries
// the selected option for multiple_choice; Value carries "true"/"false" or
// the short-answer text.
type QuizAnswer struct {
	QuestionID  string `bson:"questionId" json:"questionId"`
	OptionIndex *int   `bson:"optionIndex,omitempty" json:"optionIndex,omitempty"`
	Value       string `bson:"value,omitempty" json:"value,omitempty"`
}

// QuizAttempt is one scored execution of a quiz component by a student.
// Per-question detail is recomputable from the answers and the quiz
// definition, so only the summary is persisted.
type QuizAttempt struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ComponentID   primitive.ObjectID `bson:"componentId" json:"componentId"`
	StudentID     primitive.ObjectID `bson:"studentId" json:"studentId"`
	AttemptNumber int                `bson:"attemptNumber" json:"attemptNumber"`
	Answers       []QuizAnswer       `bson:"answers" json:"answers"`
	TotalScore    int                `bson:"totalScore" json:"totalScore"`
	MaxScore      int                `bson:"maxScore" json:"maxScore"`
	Passed        bool               `bson:"passed" json:"passed"`
	TimedOut      bool               `bson:"timedOut" json:"timedOut"`
	StartedAt     time.Time          `bson:"startedAt" json:"startedAt"`
	CompletedAt   time.Time          `bson:"completedAt" json:"completedAt"`
}
