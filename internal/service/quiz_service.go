package service

import (
	"context"
	"errors"
	"time"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/quiz"
	"openlearn/course-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrNotAQuiz          = errors.New("component is not a quiz")
	ErrAttemptsExceeded  = quiz.ErrAttemptsExceeded
	ErrQuizIncomplete    = errors.New("quiz definition is not complete enough to attempt")
	ErrAttemptsForbidden = errors.New("access denied to this quiz's attempts")
)

// AttemptOutcome pairs the persisted attempt summary with the per-question
// detail of the scoring pass. Detail is returned to the caller but not
// stored; it is recomputable from the answers and the definition.
type AttemptOutcome struct {
	Attempt     *domain.QuizAttempt   `json:"attempt"`
	PerQuestion []quiz.QuestionResult `json:"perQuestion"`
}

type QuizService interface {
	// SubmitAttempt scores one quiz execution and appends it to the
	// student's attempt history.
	SubmitAttempt(ctx context.Context, studentID, componentID primitive.ObjectID, answers []domain.QuizAnswer, startedAt time.Time) (*AttemptOutcome, error)
	GetMyAttempts(ctx context.Context, studentID, componentID primitive.ObjectID) ([]domain.QuizAttempt, error)
	// GetAttempts lists every student's attempts; restricted to the quiz's
	// author.
	GetAttempts(ctx context.Context, teacherID, componentID primitive.ObjectID) ([]domain.QuizAttempt, error)
}

// quizService implements the QuizService interface.
type quizService struct {
	componentRepo repository.ComponentRepository
	attemptRepo   repository.AttemptRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewQuizService creates a new instance of quizService.
func NewQuizService(componentRepo repository.ComponentRepository, attemptRepo repository.AttemptRepository, logger *zap.Logger) QuizService {
	return &quizService{
		componentRepo: componentRepo,
		attemptRepo:   attemptRepo,
		logger:        logger,
		now:           time.Now,
	}
}

// SubmitAttempt scores the answers against the quiz definition and persists
// the attempt summary. The attempt number is derived from the stored
// history, so the ceiling check cannot be bypassed by a stale client.
func (s *quizService) SubmitAttempt(ctx context.Context, studentID, componentID primitive.ObjectID, answers []domain.QuizAnswer, startedAt time.Time) (*AttemptOutcome, error) {
	if studentID == primitive.NilObjectID || componentID == primitive.NilObjectID {
		return nil, errors.New("student ID and component ID are required")
	}

	definition, err := s.quizDefinition(ctx, componentID)
	if err != nil {
		return nil, err
	}

	priorAttempts, err := s.attemptRepo.CountByComponentAndStudent(ctx, componentID, studentID)
	if err != nil {
		return nil, err
	}
	attemptNumber := priorAttempts + 1

	completedAt := s.now().UTC()
	elapsed := completedAt.Sub(startedAt)
	if startedAt.IsZero() {
		elapsed = 0
	}

	result, err := quiz.EvaluateAttempt(*definition, answers, attemptNumber, elapsed)
	if err != nil {
		return nil, err
	}

	attempt := &domain.QuizAttempt{
		ComponentID:   componentID,
		StudentID:     studentID,
		AttemptNumber: attemptNumber,
		Answers:       answers,
		TotalScore:    result.TotalScore,
		MaxScore:      result.MaxScore,
		Passed:        result.Passed,
		TimedOut:      result.TimedOut,
		StartedAt:     startedAt.UTC(),
		CompletedAt:   completedAt,
	}

	attemptID, err := s.attemptRepo.Create(ctx, attempt)
	if err != nil {
		return nil, err
	}
	attempt.ID = attemptID

	if result.TimedOut {
		s.logger.Info("quiz attempt exceeded its time limit",
			zap.String("componentId", componentID.Hex()),
			zap.String("studentId", studentID.Hex()),
			zap.Int("attemptNumber", attemptNumber))
	}

	return &AttemptOutcome{Attempt: attempt, PerQuestion: result.PerQuestion}, nil
}

// GetMyAttempts lists the student's own attempt history, oldest first.
func (s *quizService) GetMyAttempts(ctx context.Context, studentID, componentID primitive.ObjectID) ([]domain.QuizAttempt, error) {
	if studentID == primitive.NilObjectID || componentID == primitive.NilObjectID {
		return nil, errors.New("student ID and component ID are required")
	}
	return s.attemptRepo.GetByComponentAndStudent(ctx, componentID, studentID)
}

// GetAttempts lists every attempt on a quiz for its author.
func (s *quizService) GetAttempts(ctx context.Context, teacherID, componentID primitive.ObjectID) ([]domain.QuizAttempt, error) {
	component, err := s.componentRepo.GetByID(ctx, componentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}
	if component.Type != domain.TypeQuiz {
		return nil, ErrNotAQuiz
	}
	if component.TeacherID != teacherID {
		return nil, ErrAttemptsForbidden
	}
	return s.attemptRepo.GetByComponentID(ctx, componentID)
}

// quizDefinition loads a component and extracts a complete quiz definition.
func (s *quizService) quizDefinition(ctx context.Context, componentID primitive.ObjectID) (*domain.QuizContent, error) {
	component, err := s.componentRepo.GetByID(ctx, componentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}

	definition, ok := component.Content.(*domain.QuizContent)
	if !ok {
		return nil, ErrNotAQuiz
	}
	if complete, _ := definition.Complete(); !complete {
		return nil, ErrQuizIncomplete
	}
	return definition, nil
}
