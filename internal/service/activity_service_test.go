package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type activityFixture struct {
	svc        *activityService
	activities *fakeActivityRepo
	subs       *fakeSubmissionRepo
	users      *fakeUserRepo
	teacherID  primitive.ObjectID
	studentID  primitive.ObjectID
	courseID   primitive.ObjectID
}

func newActivityFixture(t *testing.T) *activityFixture {
	t.Helper()
	activities := newFakeActivityRepo()
	subs := newFakeSubmissionRepo()
	users := newFakeUserRepo()
	svc := NewActivityService(activities, subs, users, &fakeStorage{}, zap.NewNop()).(*activityService)
	return &activityFixture{
		svc:        svc,
		activities: activities,
		subs:       subs,
		users:      users,
		teacherID:  primitive.NewObjectID(),
		studentID:  primitive.NewObjectID(),
		courseID:   primitive.NewObjectID(),
	}
}

func (f *activityFixture) createActivity(t *testing.T, due time.Time) *domain.Activity {
	t.Helper()
	activity, err := f.svc.CreateActivity(context.Background(), f.teacherID, f.courseID, nil, ActivityInput{
		Title:            "Final essay",
		Type:             domain.ActivityEssay,
		MaxScore:         100,
		DueDate:          due,
		AllowedFileTypes: []string{"pdf"},
		MaxFileSize:      1024 * 1024,
		MaxFiles:         2,
	})
	require.NoError(t, err)
	return activity
}

func pdfFile(name string) SubmittedFile {
	return SubmittedFile{
		ObjectKey:    "submissions/x/" + name,
		OriginalName: name,
		FileSize:     1024,
		MimeType:     "application/pdf",
	}
}

func TestCreateActivityRejectsPastDueDate(t *testing.T) {
	f := newActivityFixture(t)
	_, err := f.svc.CreateActivity(context.Background(), f.teacherID, f.courseID, nil, ActivityInput{
		Title:       "Late poster",
		Type:        domain.ActivityAssignment,
		MaxScore:    10,
		DueDate:     time.Now().Add(-time.Hour),
		MaxFileSize: 1,
		MaxFiles:    1,
	})
	assert.Error(t, err)
}

func TestSubmitCreatesSubmission(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("essay.pdf")}, "first draft")
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionSubmitted, submission.Status)
	assert.Equal(t, activity.MaxScore, submission.MaxScore)
	assert.Equal(t, "first draft", submission.Notes)
	require.Len(t, submission.Files, 1)
	assert.False(t, submission.IsLate(activity))
}

func TestResubmitReplacesInPlace(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	first, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("v1.pdf")}, "v1")
	require.NoError(t, err)

	second, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("v2.pdf")}, "v2")
	require.NoError(t, err)

	// Same row, replaced content.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "v2", second.Notes)
	require.Len(t, second.Files, 1)
	assert.Equal(t, "v2.pdf", second.Files[0].OriginalName)

	all, err := f.subs.GetByActivityID(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSubmitPastDeadlineWithoutPriorSubmission(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(time.Hour))

	// The deadline passes before the first submit.
	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("late.pdf")}, "")
	assert.ErrorIs(t, err, ErrPastDeadline)
}

func TestResubmitAfterDeadlineAllowedWhileUngraded(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(time.Hour))

	_, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("v1.pdf")}, "")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	late, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("v2.pdf")}, "")
	require.NoError(t, err)
	assert.True(t, late.IsLate(activity))
}

func TestSubmitAfterGradingRejected(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("v1.pdf")}, "")
	require.NoError(t, err)

	_, err = f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 90, "good")
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("v2.pdf")}, "")
	assert.ErrorIs(t, err, ErrPastDeadline)
}

func TestSubmitInvalidFilesCarriesAllViolations(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	// Three files against maxFiles=2, one of them an exe.
	files := []SubmittedFile{pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("c.exe")}

	_, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, files, "")
	require.ErrorIs(t, err, ErrInvalidFiles)

	var fileErr *FileValidationError
	require.ErrorAs(t, err, &fileErr)
	assert.Len(t, fileErr.Violations, 2)
}

func TestGradeSubmission(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)

	graded, err := f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 85, "solid work")
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 85.0, *graded.Score)
	assert.Equal(t, "solid work", graded.Feedback)
	require.NotNil(t, graded.GradedBy)
	assert.Equal(t, f.teacherID, *graded.GradedBy)
	assert.NotNil(t, graded.GradedAt)
}

func TestGradeSubmissionScoreBounds(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)

	_, err = f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, -1, "")
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 101, "")
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 100, "full marks")
	assert.NoError(t, err)
}

func TestRegradeOverwritesInPlace(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)

	_, err = f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 70, "first pass")
	require.NoError(t, err)

	regraded, err := f.svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 80, "after appeal")
	require.NoError(t, err)
	assert.Equal(t, 80.0, *regraded.Score)
	assert.Equal(t, "after appeal", regraded.Feedback)

	all, err := f.subs.GetByActivityID(context.Background(), activity.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGradeByNonOwnerDenied(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)

	_, err = f.svc.GradeSubmission(context.Background(), primitive.NewObjectID(), submission.ID, 50, "")
	assert.ErrorIs(t, err, ErrActivityAccessDenied)
}

func TestGradeMissingSubmission(t *testing.T) {
	f := newActivityFixture(t)
	_, err := f.svc.GradeSubmission(context.Background(), f.teacherID, primitive.NewObjectID(), 50, "")
	assert.ErrorIs(t, err, ErrNotSubmitted)
}

// conflictingSubmissionRepo fails the first update with a version conflict,
// standing in for a resubmission racing the grade.
type conflictingSubmissionRepo struct {
	*fakeSubmissionRepo
	conflicted bool
}

func (r *conflictingSubmissionRepo) Update(ctx context.Context, submission *domain.ActivitySubmission) error {
	if !r.conflicted {
		r.conflicted = true
		return repository.ErrVersionConflict
	}
	return r.fakeSubmissionRepo.Update(ctx, submission)
}

func TestGradeConflictSurfacesAsRetryable(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)

	conflicting := &conflictingSubmissionRepo{fakeSubmissionRepo: f.subs}
	svc := NewActivityService(f.activities, conflicting, f.users, &fakeStorage{}, zap.NewNop())

	_, err = svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 85, "")
	assert.ErrorIs(t, err, ErrSubmissionConflict)

	// The retry after reloading succeeds.
	_, err = svc.GradeSubmission(context.Background(), f.teacherID, submission.ID, 85, "")
	assert.NoError(t, err)
}

func TestGetActivityStats(t *testing.T) {
	f := newActivityFixture(t)
	f.users.rosterSize = 10
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	sub1, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), primitive.NewObjectID(), activity.ID, []SubmittedFile{pdfFile("b.pdf")}, "")
	require.NoError(t, err)

	_, err = f.svc.GradeSubmission(context.Background(), f.teacherID, sub1.ID, 85, "")
	require.NoError(t, err)

	stats, err := f.svc.GetActivityStats(context.Background(), f.teacherID, activity.ID)
	require.NoError(t, err)

	assert.Equal(t, 10, stats.TotalStudents)
	assert.Equal(t, 2, stats.Submitted)
	assert.Equal(t, 1, stats.Graded)
	assert.Equal(t, 8, stats.Pending)
	require.NotNil(t, stats.AverageScore)
	assert.Equal(t, 85.0, *stats.AverageScore)
}

func TestRequestSubmissionUploadURLChecksPolicy(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	resp, err := f.svc.RequestSubmissionUploadURL(context.Background(), f.studentID, activity.ID, "essay.pdf", 1024, "application/pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.UploadURL)
	assert.NotEmpty(t, resp.ObjectKey)

	_, err = f.svc.RequestSubmissionUploadURL(context.Background(), f.studentID, activity.ID, "virus.exe", 1024, "application/octet-stream")
	assert.ErrorIs(t, err, ErrInvalidFiles)
}

func TestSubmissionFileDownloadAuthorization(t *testing.T) {
	f := newActivityFixture(t)
	activity := f.createActivity(t, time.Now().Add(24*time.Hour))

	submission, err := f.svc.Submit(context.Background(), f.studentID, activity.ID, []SubmittedFile{pdfFile("a.pdf")}, "")
	require.NoError(t, err)
	fileID := submission.Files[0].ID

	// Owner student and activity author may download.
	_, err = f.svc.GetSubmissionFileDownloadURL(context.Background(), f.studentID, submission.ID, fileID)
	assert.NoError(t, err)
	_, err = f.svc.GetSubmissionFileDownloadURL(context.Background(), f.teacherID, submission.ID, fileID)
	assert.NoError(t, err)

	// Anyone else is denied.
	_, err = f.svc.GetSubmissionFileDownloadURL(context.Background(), primitive.NewObjectID(), submission.ID, fileID)
	assert.ErrorIs(t, err, ErrActivityAccessDenied)

	_, err = f.svc.GetSubmissionFileDownloadURL(context.Background(), f.studentID, submission.ID, primitive.NewObjectID())
	assert.True(t, errors.Is(err, ErrSubmissionFileMissing))
}
