package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/filepolicy"
	"openlearn/course-app/internal/repository"
	"openlearn/course-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrActivityNotFound      = errors.New("activity not found")
	ErrActivityAccessDenied  = errors.New("access denied to modify this activity")
	ErrActivityInactive      = errors.New("activity is not accepting submissions")
	ErrPastDeadline          = errors.New("the submission deadline has passed")
	ErrInvalidFiles          = errors.New("submitted files violate the activity's file policy")
	ErrSubmissionNotFound    = errors.New("submission not found")
	ErrNotSubmitted          = errors.New("no submission exists to grade")
	ErrInvalidScore          = errors.New("score must be between 0 and the activity's max score")
	ErrSubmissionConflict    = errors.New("submission changed while it was being processed, reload and retry")
	ErrSubmissionFileMissing = errors.New("submission has no such file")
)

// FileValidationError carries every policy violation found in a submitted
// file set, not just the first. Matches ErrInvalidFiles with errors.Is.
type FileValidationError struct {
	Violations []string
}

func (e *FileValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidFiles, strings.Join(e.Violations, "; "))
}

func (e *FileValidationError) Unwrap() error { return ErrInvalidFiles }

// SubmittedFile describes one uploaded object being attached to a
// submission. The object itself was already PUT via a presigned URL.
type SubmittedFile struct {
	ObjectKey    string `json:"objectKey"`
	OriginalName string `json:"originalName"`
	FileSize     int64  `json:"fileSize"`
	MimeType     string `json:"mimeType"`
}

// ActivityInput carries the fields a teacher sets when creating or
// updating an activity.
type ActivityInput struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Type             domain.ActivityType `json:"type"`
	MaxScore         float64             `json:"maxScore"`
	DueDate          time.Time           `json:"dueDate"`
	AllowedFileTypes []string            `json:"allowedFileTypes"`
	MaxFileSize      int64               `json:"maxFileSize"`
	MaxFiles         int                 `json:"maxFiles"`
}

type ActivityService interface {
	// Teacher side
	CreateActivity(ctx context.Context, teacherID, courseID primitive.ObjectID, moduleID *primitive.ObjectID, input ActivityInput) (*domain.Activity, error)
	GetActivity(ctx context.Context, activityID primitive.ObjectID) (*domain.Activity, error)
	GetActivitiesByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.Activity, error)
	UpdateActivity(ctx context.Context, teacherID, activityID primitive.ObjectID, input ActivityInput) (*domain.Activity, error)
	DeleteActivity(ctx context.Context, teacherID, activityID primitive.ObjectID) error
	GradeSubmission(ctx context.Context, teacherID, submissionID primitive.ObjectID, score float64, feedback string) (*domain.ActivitySubmission, error)
	GetSubmissions(ctx context.Context, teacherID, activityID primitive.ObjectID) ([]domain.ActivitySubmission, error)
	GetActivityStats(ctx context.Context, teacherID, activityID primitive.ObjectID) (*domain.ActivityStats, error)

	// Student side
	RequestSubmissionUploadURL(ctx context.Context, studentID, activityID primitive.ObjectID, fileName string, fileSize int64, contentType string) (*UploadURLResponse, error)
	Submit(ctx context.Context, studentID, activityID primitive.ObjectID, files []SubmittedFile, notes string) (*domain.ActivitySubmission, error)
	GetMySubmission(ctx context.Context, studentID, activityID primitive.ObjectID) (*domain.ActivitySubmission, error)
	GetSubmissionFileDownloadURL(ctx context.Context, requesterID, submissionID, fileID primitive.ObjectID) (string, error)
}

// activityService implements the ActivityService interface.
type activityService struct {
	activityRepo   repository.ActivityRepository
	submissionRepo repository.SubmissionRepository
	userRepo       repository.UserRepository
	fileStorage    storage.FileStorage
	logger         *zap.Logger
	now            func() time.Time // Injected for deadline tests
}

// NewActivityService creates a new instance of activityService.
func NewActivityService(
	activityRepo repository.ActivityRepository,
	submissionRepo repository.SubmissionRepository,
	userRepo repository.UserRepository,
	fileStorage storage.FileStorage,
	logger *zap.Logger,
) ActivityService {
	return &activityService{
		activityRepo:   activityRepo,
		submissionRepo: submissionRepo,
		userRepo:       userRepo,
		fileStorage:    fileStorage,
		logger:         logger,
		now:            time.Now,
	}
}

// === Teacher Side ===

// CreateActivity posts a new gradable activity to a course.
func (s *activityService) CreateActivity(ctx context.Context, teacherID, courseID primitive.ObjectID, moduleID *primitive.ObjectID, input ActivityInput) (*domain.Activity, error) {
	if teacherID == primitive.NilObjectID || courseID == primitive.NilObjectID {
		return nil, errors.New("teacher ID and course ID are required")
	}

	activity := &domain.Activity{
		CourseID:         courseID,
		ModuleID:         moduleID,
		CreatedBy:        teacherID,
		Title:            input.Title,
		Description:      input.Description,
		Type:             input.Type,
		MaxScore:         input.MaxScore,
		DueDate:          input.DueDate,
		IsActive:         true,
		AllowedFileTypes: input.AllowedFileTypes,
		MaxFileSize:      input.MaxFileSize,
		MaxFiles:         input.MaxFiles,
	}
	if err := activity.ValidateForCreate(s.now()); err != nil {
		return nil, err
	}

	activityID, err := s.activityRepo.Create(ctx, activity)
	if err != nil {
		return nil, err
	}
	activity.ID = activityID
	return activity, nil
}

// GetActivity retrieves a single activity.
func (s *activityService) GetActivity(ctx context.Context, activityID primitive.ObjectID) (*domain.Activity, error) {
	activity, err := s.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return activity, nil
}

// GetActivitiesByCourse lists a course's activities.
func (s *activityService) GetActivitiesByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.Activity, error) {
	if courseID == primitive.NilObjectID {
		return nil, errors.New("course ID is required")
	}
	return s.activityRepo.GetByCourseID(ctx, courseID)
}

// UpdateActivity edits an activity's posting fields, enforcing ownership.
// Submissions already made keep the maxScore they were submitted under.
func (s *activityService) UpdateActivity(ctx context.Context, teacherID, activityID primitive.ObjectID, input ActivityInput) (*domain.Activity, error) {
	activity, err := s.getOwnedActivity(ctx, teacherID, activityID)
	if err != nil {
		return nil, err
	}

	activity.Title = input.Title
	activity.Description = input.Description
	activity.Type = input.Type
	activity.MaxScore = input.MaxScore
	activity.DueDate = input.DueDate
	activity.AllowedFileTypes = input.AllowedFileTypes
	activity.MaxFileSize = input.MaxFileSize
	activity.MaxFiles = input.MaxFiles

	if activity.Title == "" {
		return nil, errors.New("title is required")
	}
	if activity.MaxScore <= 0 {
		return nil, errors.New("max score must be positive")
	}

	if err := s.activityRepo.Update(ctx, activity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	return activity, nil
}

// DeleteActivity removes an activity. The repository filter enforces
// ownership at the DB level.
func (s *activityService) DeleteActivity(ctx context.Context, teacherID, activityID primitive.ObjectID) error {
	if teacherID == primitive.NilObjectID || activityID == primitive.NilObjectID {
		return errors.New("teacher ID and activity ID are required")
	}
	err := s.activityRepo.Delete(ctx, activityID, teacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrActivityNotFound
		}
		return err
	}
	return nil
}

// GradeSubmission records a score and feedback on a submission. Re-grading
// an already graded submission overwrites the grade in place.
func (s *activityService) GradeSubmission(ctx context.Context, teacherID, submissionID primitive.ObjectID, score float64, feedback string) (*domain.ActivitySubmission, error) {
	if teacherID == primitive.NilObjectID || submissionID == primitive.NilObjectID {
		return nil, errors.New("teacher ID and submission ID are required")
	}

	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotSubmitted
		}
		return nil, err
	}

	activity, err := s.getOwnedActivity(ctx, teacherID, submission.ActivityID)
	if err != nil {
		return nil, err
	}

	if score < 0 || score > submission.MaxScore {
		return nil, ErrInvalidScore
	}

	now := s.now().UTC()
	submission.Status = domain.SubmissionGraded
	submission.Score = &score
	submission.Feedback = feedback
	submission.GradedAt = &now
	submission.GradedBy = &teacherID

	if err := s.submissionRepo.Update(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// The student resubmitted while this grade was in flight.
			s.logger.Warn("grading lost a race with a resubmission",
				zap.String("submissionId", submissionID.Hex()),
				zap.String("activityId", activity.ID.Hex()))
			return nil, ErrSubmissionConflict
		}
		return nil, err
	}
	return submission, nil
}

// GetSubmissions lists all submissions for an activity the teacher owns.
func (s *activityService) GetSubmissions(ctx context.Context, teacherID, activityID primitive.ObjectID) ([]domain.ActivitySubmission, error) {
	if _, err := s.getOwnedActivity(ctx, teacherID, activityID); err != nil {
		return nil, err
	}
	return s.submissionRepo.GetByActivityID(ctx, activityID)
}

// GetActivityStats aggregates the activity's submissions against the course
// roster. Computed fresh on every call, never cached.
func (s *activityService) GetActivityStats(ctx context.Context, teacherID, activityID primitive.ObjectID) (*domain.ActivityStats, error) {
	activity, err := s.getOwnedActivity(ctx, teacherID, activityID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissionRepo.GetByActivityID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	rosterSize, err := s.userRepo.CountRoster(ctx, activity.CourseID)
	if err != nil {
		return nil, err
	}

	stats := domain.ComputeStats(activity, submissions, rosterSize)
	return &stats, nil
}

// === Student Side ===

// RequestSubmissionUploadURL validates one candidate file against the
// activity's policy and hands back a presigned PUT URL. Submit later
// re-validates the full file set, so a single oversized set cannot sneak in
// one file at a time.
func (s *activityService) RequestSubmissionUploadURL(ctx context.Context, studentID, activityID primitive.ObjectID, fileName string, fileSize int64, contentType string) (*UploadURLResponse, error) {
	if studentID == primitive.NilObjectID || activityID == primitive.NilObjectID {
		return nil, errors.New("student ID and activity ID are required")
	}

	activity, err := s.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.IsActive {
		return nil, ErrActivityInactive
	}

	policy := submissionPolicy(activity)
	policy.MaxFiles = 0 // The per-file check cannot see the final set size.
	check := filepolicy.Validate([]filepolicy.FileInfo{{Name: fileName, Size: fileSize}}, policy)
	if !check.Valid {
		return nil, &FileValidationError{Violations: check.Errors}
	}

	objectKey := path.Join("submissions", activityID.Hex(), studentID.Hex(),
		fmt.Sprintf("%s.%s", uuid.NewString(), filepolicy.Extension(fileName)))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}
	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// Submit records a student's work for an activity. A first submit past the
// deadline is rejected; an existing non-graded submission is replaced in
// place so at most one row ever exists per (activity, student).
func (s *activityService) Submit(ctx context.Context, studentID, activityID primitive.ObjectID, files []SubmittedFile, notes string) (*domain.ActivitySubmission, error) {
	if studentID == primitive.NilObjectID || activityID == primitive.NilObjectID {
		return nil, errors.New("student ID and activity ID are required")
	}

	activity, err := s.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.IsActive {
		return nil, ErrActivityInactive
	}

	now := s.now().UTC()

	existing, err := s.submissionRepo.GetByActivityAndStudent(ctx, activityID, studentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if existing == nil && now.After(activity.DueDate) {
		return nil, ErrPastDeadline
	}
	if existing != nil && existing.Status == domain.SubmissionGraded {
		return nil, ErrPastDeadline
	}

	candidates := make([]filepolicy.FileInfo, len(files))
	for i, f := range files {
		candidates[i] = filepolicy.FileInfo{Name: f.OriginalName, Size: f.FileSize}
	}
	check := filepolicy.Validate(candidates, submissionPolicy(activity))
	if !check.Valid {
		return nil, &FileValidationError{Violations: check.Errors}
	}

	attached := make([]domain.ActivityFile, len(files))
	for i, f := range files {
		attached[i] = domain.ActivityFile{
			ID:           primitive.NewObjectID(),
			OriginalName: f.OriginalName,
			FileName:     path.Base(f.ObjectKey),
			FilePath:     f.ObjectKey,
			FileSize:     f.FileSize,
			MimeType:     f.MimeType,
			UploadedAt:   now,
		}
	}

	if existing != nil {
		existing.Files = attached
		existing.Notes = notes
		existing.SubmittedAt = now
		if err := s.submissionRepo.Update(ctx, existing); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return nil, ErrSubmissionConflict
			}
			return nil, err
		}
		return existing, nil
	}

	submission := &domain.ActivitySubmission{
		ActivityID:  activityID,
		StudentID:   studentID,
		Status:      domain.SubmissionSubmitted,
		SubmittedAt: now,
		Files:       attached,
		Notes:       notes,
		MaxScore:    activity.MaxScore,
	}
	submissionID, err := s.submissionRepo.Create(ctx, submission)
	if err != nil {
		return nil, err
	}
	submission.ID = submissionID
	return submission, nil
}

// GetMySubmission retrieves the student's own submission for an activity.
func (s *activityService) GetMySubmission(ctx context.Context, studentID, activityID primitive.ObjectID) (*domain.ActivitySubmission, error) {
	submission, err := s.submissionRepo.GetByActivityAndStudent(ctx, activityID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

// GetSubmissionFileDownloadURL returns a presigned GET URL for one file of
// a submission. Allowed for the submitting student and the activity owner.
func (s *activityService) GetSubmissionFileDownloadURL(ctx context.Context, requesterID, submissionID, fileID primitive.ObjectID) (string, error) {
	submission, err := s.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrSubmissionNotFound
		}
		return "", err
	}

	if submission.StudentID != requesterID {
		activity, err := s.GetActivity(ctx, submission.ActivityID)
		if err != nil {
			return "", err
		}
		if activity.CreatedBy != requesterID {
			return "", ErrActivityAccessDenied
		}
	}

	for _, f := range submission.Files {
		if f.ID == fileID {
			downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, f.FilePath, storage.DefaultPresignedURLExpiry)
			if err != nil {
				return "", ErrDownloadURLError
			}
			return downloadURL, nil
		}
	}
	return "", ErrSubmissionFileMissing
}

// === Helpers ===

// getOwnedActivity loads an activity and verifies the teacher posted it.
func (s *activityService) getOwnedActivity(ctx context.Context, teacherID, activityID primitive.ObjectID) (*domain.Activity, error) {
	activity, err := s.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.CreatedBy != teacherID {
		return nil, ErrActivityAccessDenied
	}
	return activity, nil
}

// submissionPolicy converts an activity's stored constraints into a
// validator policy.
func submissionPolicy(activity *domain.Activity) filepolicy.Policy {
	return filepolicy.Policy{
		MaxFiles:          activity.MaxFiles,
		MaxFileSize:       activity.MaxFileSize,
		AllowedExtensions: activity.AllowedFileTypes,
	}
}
