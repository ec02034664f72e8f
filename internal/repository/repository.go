package repository

import (
	"context"

	"openlearn/course-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound        = RepositoryError("not found")
	ErrUpdateFailed    = RepositoryError("update failed")
	ErrDeleteFailed    = RepositoryError("delete failed")
	ErrVersionConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	EnrollStudent(ctx context.Context, studentID, courseID primitive.ObjectID) error
	// CountRoster returns the number of students enrolled in a course.
	CountRoster(ctx context.Context, courseID primitive.ObjectID) (int, error)
}

// ModuleRepository defines the interface for interacting with course modules.
type ModuleRepository interface {
	Create(ctx context.Context, module *domain.CourseModule) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CourseModule, error)
	GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.CourseModule, error)
}

// ComponentRepository defines the interface for interacting with authored
// course components.
type ComponentRepository interface {
	Create(ctx context.Context, component *domain.Component) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Component, error)
	GetByModuleID(ctx context.Context, moduleID primitive.ObjectID) ([]domain.Component, error)
	// Update persists title, order, mandatory flag, metadata and content.
	// The component's type is immutable and never rewritten.
	Update(ctx context.Context, component *domain.Component) error
	Delete(ctx context.Context, id, teacherID primitive.ObjectID) error
}

// ActivityRepository defines the interface for interacting with activities.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Activity, error)
	GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.Activity, error)
	Update(ctx context.Context, activity *domain.Activity) error
	Delete(ctx context.Context, id, teacherID primitive.ObjectID) error
}

// SubmissionRepository defines the interface for interacting with activity
// submissions. One record exists per (activity, student).
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.ActivitySubmission) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ActivitySubmission, error)
	GetByActivityAndStudent(ctx context.Context, activityID, studentID primitive.ObjectID) (*domain.ActivitySubmission, error)
	GetByActivityID(ctx context.Context, activityID primitive.ObjectID) ([]domain.ActivitySubmission, error)
	// Update matches on the submission's version and bumps it; a stale
	// writer gets ErrVersionConflict instead of silently overwriting.
	Update(ctx context.Context, submission *domain.ActivitySubmission) error
}

// AttemptRepository defines the interface for interacting with quiz
// attempt history.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *domain.QuizAttempt) (primitive.ObjectID, error)
	CountByComponentAndStudent(ctx context.Context, componentID, studentID primitive.ObjectID) (int, error)
	GetByComponentAndStudent(ctx context.Context, componentID, studentID primitive.ObjectID) ([]domain.QuizAttempt, error)
	GetByComponentID(ctx context.Context, componentID primitive.ObjectID) ([]domain.QuizAttempt, error)
}
