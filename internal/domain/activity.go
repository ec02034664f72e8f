package domain

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityType categorizes a gradable assignment.
type ActivityType string

const (
	ActivityAssignment   ActivityType = "assignment"
	ActivityProject      ActivityType = "project"
	ActivityEssay        ActivityType = "essay"
	ActivityPresentation ActivityType = "presentation"
)

// SubmissionStatus tracks a submission's lifecycle. Draft work lives only
// on the client; a submission record exists once it reaches submitted.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
)

// Activity is an assignment a teacher posts to a course.
type Activity struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CourseID    primitive.ObjectID  `bson:"courseId" json:"courseId"`
	ModuleID    *primitive.ObjectID `bson:"moduleId,omitempty" json:"moduleId,omitempty"`
	CreatedBy   primitive.ObjectID  `bson:"createdBy" json:"createdBy"` // Teacher; only they may edit
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Type        ActivityType        `bson:"type" json:"type"`
	MaxScore    float64             `bson:"maxScore" json:"maxScore"`
	DueDate     time.Time           `bson:"dueDate" json:"dueDate"`
	IsActive    bool                `bson:"isActive" json:"isActive"`

	// Per-activity submission file policy.
	AllowedFileTypes []string `bson:"allowedFileTypes" json:"allowedFileTypes"`
	MaxFileSize      int64    `bson:"maxFileSize" json:"maxFileSize"` // bytes
	MaxFiles         int      `bson:"maxFiles" json:"maxFiles"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ValidateForCreate checks the creation-time invariants.
func (a *Activity) ValidateForCreate(now time.Time) error {
	if a.Title == "" {
		return errors.New("title is required")
	}
	switch a.Type {
	case ActivityAssignment, ActivityProject, ActivityEssay, ActivityPresentation:
	default:
		return errors.New("unknown activity type")
	}
	if a.MaxScore <= 0 {
		return errors.New("max score must be positive")
	}
	if !a.DueDate.After(now) {
		return errors.New("due date must be in the future")
	}
	if a.MaxFiles < 1 {
		return errors.New("max files must be at least 1")
	}
	if a.MaxFileSize <= 0 {
		return errors.New("max file size must be positive")
	}
	return nil
}

// ActivityFile is one uploaded artifact attached to a submission. It is
// owned exclusively by its submission and never shared.
type ActivityFile struct {
	ID           primitive.ObjectID `bson:"id" json:"id"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	FileName     string             `bson:"fileName" json:"fileName"` // Stored object name
	FilePath     string             `bson:"filePath" json:"filePath"` // Object key in storage
	FileSize     int64              `bson:"fileSize" json:"fileSize"`
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

// ActivitySubmission is one student's work product for one activity. At
// most one exists per (activity, student); resubmission replaces it.
type ActivitySubmission struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ActivityID  primitive.ObjectID  `bson:"activityId" json:"activityId"`
	StudentID   primitive.ObjectID  `bson:"studentId" json:"studentId"`
	Status      SubmissionStatus    `bson:"status" json:"status"`
	SubmittedAt time.Time           `bson:"submittedAt" json:"submittedAt"`
	Files       []ActivityFile      `bson:"files" json:"files"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`
	MaxScore    float64             `bson:"maxScore" json:"maxScore"` // Copied from the activity at submit time
	Score       *float64            `bson:"score,omitempty" json:"score,omitempty"`
	Feedback    string              `bson:"feedback,omitempty" json:"feedback,omitempty"`
	GradedAt    *time.Time          `bson:"gradedAt,omitempty" json:"gradedAt,omitempty"`
	GradedBy    *primitive.ObjectID `bson:"gradedBy,omitempty" json:"gradedBy,omitempty"`

	// Version guards the resubmit/grade race: repository updates match on
	// it and bump it, so a stale writer fails instead of silently winning.
	Version int64 `bson:"version" json:"-"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsLate reports whether the submission arrived after the due date.
// Derived, never stored.
func (s *ActivitySubmission) IsLate(activity *Activity) bool {
	return s.SubmittedAt.After(activity.DueDate)
}

// ActivityStats is the derived aggregate view over one activity's
// submissions plus the course roster size.
type ActivityStats struct {
	TotalStudents int      `json:"totalStudents"`
	Submitted     int      `json:"submitted"`
	Graded        int      `json:"graded"`
	Pending       int      `json:"pending"`
	OnTime        int      `json:"onTime"`
	Late          int      `json:"late"`
	AverageScore  *float64 `json:"averageScore,omitempty"` // nil when nothing is graded
}

// ComputeStats aggregates a submission snapshot. Pure; independent of any
// refresh cycle.
func ComputeStats(activity *Activity, submissions []ActivitySubmission, rosterSize int) ActivityStats {
	stats := ActivityStats{TotalStudents: rosterSize}
	var scoreSum float64
	for i := range submissions {
		sub := &submissions[i]
		stats.Submitted++
		if sub.Status == SubmissionGraded {
			stats.Graded++
			if sub.Score != nil {
				scoreSum += *sub.Score
			}
		}
		if sub.IsLate(activity) {
			stats.Late++
		} else {
			stats.OnTime++
		}
	}
	stats.Pending = stats.TotalStudents - stats.Submitted
	if stats.Graded > 0 {
		avg := scoreSum / float64(stats.Graded)
		stats.AverageScore = &avg
	}
	return stats
}
