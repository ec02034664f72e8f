// internal/api/activity_handler.go
package api

import (
	"errors"
	"net/http"
	"time"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// --- DTOs ---

type ActivityRequest struct {
	CourseID         string    `json:"courseId" binding:"required"`
	ModuleID         string    `json:"moduleId"`
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	Type             string    `json:"type" binding:"required,oneof=assignment project essay presentation"`
	MaxScore         float64   `json:"maxScore" binding:"required,gt=0"`
	DueDate          time.Time `json:"dueDate" binding:"required"`
	AllowedFileTypes []string  `json:"allowedFileTypes"`
	MaxFileSize      int64     `json:"maxFileSize" binding:"required,gt=0"`
	MaxFiles         int       `json:"maxFiles" binding:"required,gte=1"`
}

type SubmitRequest struct {
	Files []SubmittedFileRequest `json:"files" binding:"required,min=1,dive"`
	Notes string                 `json:"notes"`
}

type SubmittedFileRequest struct {
	ObjectKey    string `json:"objectKey" binding:"required"`
	OriginalName string `json:"originalName" binding:"required"`
	FileSize     int64  `json:"fileSize" binding:"required,gt=0"`
	MimeType     string `json:"mimeType"`
}

type GradeRequest struct {
	Score    float64 `json:"score" binding:"min=0"`
	Feedback string  `json:"feedback"`
}

func (r ActivityRequest) toInput() service.ActivityInput {
	return service.ActivityInput{
		Title:            r.Title,
		Description:      r.Description,
		Type:             domain.ActivityType(r.Type),
		MaxScore:         r.MaxScore,
		DueDate:          r.DueDate,
		AllowedFileTypes: r.AllowedFileTypes,
		MaxFileSize:      r.MaxFileSize,
		MaxFiles:         r.MaxFiles,
	}
}

// --- Teacher Endpoints ---

// CreateActivity godoc
// @Summary Post a gradable activity to a course
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activity body ActivityRequest true "Activity details"
// @Success 201 {object} domain.Activity
// @Failure 400 {object} gin.H "Invalid input"
// @Router /teacher/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	courseID, err := primitive.ObjectIDFromHex(req.CourseID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format")
		return
	}

	var moduleID *primitive.ObjectID
	if req.ModuleID != "" {
		id, err := primitive.ObjectIDFromHex(req.ModuleID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid module ID format")
			return
		}
		moduleID = &id
	}

	activity, err := h.activityService.CreateActivity(c.Request.Context(), teacherID, courseID, moduleID, req.toInput())
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, activity)
}

// GetCourseActivities godoc
// @Summary List a course's activities
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Success 200 {array} domain.Activity
// @Router /courses/{courseId}/activities [get]
func (h *ActivityHandler) GetCourseActivities(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("courseId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format")
		return
	}

	activities, err := h.activityService.GetActivitiesByCourse(c.Request.Context(), courseID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list activities")
		return
	}
	c.JSON(http.StatusOK, activities)
}

// GetActivity godoc
// @Summary Get one activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {object} domain.Activity
// @Failure 404 {object} gin.H "Activity not found"
// @Router /activities/{id} [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	activity, err := h.activityService.GetActivity(c.Request.Context(), activityID)
	if err != nil {
		if errors.Is(err, service.ErrActivityNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to fetch activity")
		}
		return
	}
	c.JSON(http.StatusOK, activity)
}

// UpdateActivity godoc
// @Summary Edit an activity's posting fields
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Param activity body ActivityRequest true "Activity details"
// @Success 200 {object} domain.Activity
// @Failure 403 {object} gin.H "Not the author"
// @Failure 404 {object} gin.H "Activity not found"
// @Router /teacher/activities/{id} [put]
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	activity, err := h.activityService.UpdateActivity(c.Request.Context(), teacherID, activityID, req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActivityNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, activity)
}

// DeleteActivity godoc
// @Summary Delete an activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 204 "Deleted"
// @Failure 404 {object} gin.H "Activity not found"
// @Router /teacher/activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	if err := h.activityService.DeleteActivity(c.Request.Context(), teacherID, activityID); err != nil {
		if errors.Is(err, service.ErrActivityNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete activity")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSubmissions godoc
// @Summary List all submissions for an activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {array} domain.ActivitySubmission
// @Failure 403 {object} gin.H "Not the author"
// @Router /teacher/activities/{id}/submissions [get]
func (h *ActivityHandler) GetSubmissions(c *gin.Context) {
	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	submissions, err := h.activityService.GetSubmissions(c.Request.Context(), teacherID, activityID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActivityNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to list submissions")
		}
		return
	}
	c.JSON(http.StatusOK, submissions)
}

// GetStats godoc
// @Summary Aggregate an activity's submissions against the course roster
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {object} domain.ActivityStats
// @Failure 403 {object} gin.H "Not the author"
// @Router /teacher/activities/{id}/stats [get]
func (h *ActivityHandler) GetStats(c *gin.Context) {
	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	stats, err := h.activityService.GetActivityStats(c.Request.Context(), teacherID, activityID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrActivityNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to compute stats")
		}
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GradeSubmission godoc
// @Summary Grade a submission
// @Description Re-grading an already graded submission overwrites the grade in place.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param grade body GradeRequest true "Score and feedback"
// @Success 200 {object} domain.ActivitySubmission
// @Failure 400 {object} gin.H "Score out of range"
// @Failure 404 {object} gin.H "No submission to grade"
// @Failure 409 {object} gin.H "Submission changed while grading"
// @Router /teacher/submissions/{id}/grade [post]
func (h *ActivityHandler) GradeSubmission(c *gin.Context) {
	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	submissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid submission ID format")
		return
	}

	submission, err := h.activityService.GradeSubmission(c.Request.Context(), teacherID, submissionID, req.Score, req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotSubmitted):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidScore):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrSubmissionConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to grade submission")
		}
		return
	}
	c.JSON(http.StatusOK, submission)
}

// --- Student Endpoints ---

// RequestSubmissionUploadURL godoc
// @Summary Request a presigned upload URL for a submission file
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Param file body UploadURLRequest true "File details"
// @Success 200 {object} service.UploadURLResponse
// @Failure 400 {object} gin.H "File violates the activity's file policy"
// @Router /student/activities/{id}/upload-url [post]
func (h *ActivityHandler) RequestSubmissionUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	studentID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	resp, err := h.activityService.RequestSubmissionUploadURL(c.Request.Context(), studentID, activityID, req.FileName, req.FileSize, req.ContentType)
	if err != nil {
		h.abortSubmitError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Submit godoc
// @Summary Submit work for an activity
// @Description A first submit past the deadline is rejected; resubmitting before grading replaces the previous file set in place.
// @Tags Activities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Param submission body SubmitRequest true "Uploaded files and notes"
// @Success 200 {object} domain.ActivitySubmission
// @Failure 400 {object} gin.H "Files violate the policy (all violations listed)"
// @Failure 409 {object} gin.H "Deadline passed or already graded"
// @Router /student/activities/{id}/submit [post]
func (h *ActivityHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	studentID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	files := make([]service.SubmittedFile, len(req.Files))
	for i, f := range req.Files {
		files[i] = service.SubmittedFile{
			ObjectKey:    f.ObjectKey,
			OriginalName: f.OriginalName,
			FileSize:     f.FileSize,
			MimeType:     f.MimeType,
		}
	}

	submission, err := h.activityService.Submit(c.Request.Context(), studentID, activityID, files, req.Notes)
	if err != nil {
		h.abortSubmitError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}

// GetMySubmission godoc
// @Summary Get the authenticated student's submission for an activity
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 200 {object} domain.ActivitySubmission
// @Failure 404 {object} gin.H "No submission yet"
// @Router /student/activities/{id}/submission [get]
func (h *ActivityHandler) GetMySubmission(c *gin.Context) {
	studentID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	activityID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid activity ID format")
		return
	}

	submission, err := h.activityService.GetMySubmission(c.Request.Context(), studentID, activityID)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to fetch submission")
		}
		return
	}
	c.JSON(http.StatusOK, submission)
}

// GetSubmissionFileURL godoc
// @Summary Get a presigned download URL for one submission file
// @Tags Activities
// @Produce json
// @Security BearerAuth
// @Param id path string true "Submission ID"
// @Param fileId path string true "File ID"
// @Success 200 {object} gin.H "downloadUrl"
// @Failure 403 {object} gin.H "Not the student or the activity's author"
// @Failure 404 {object} gin.H "Submission or file not found"
// @Router /submissions/{id}/files/{fileId}/download-url [get]
func (h *ActivityHandler) GetSubmissionFileURL(c *gin.Context) {
	requesterID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	submissionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid submission ID format")
		return
	}
	fileID, err := primitive.ObjectIDFromHex(c.Param("fileId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid file ID format")
		return
	}

	url, err := h.activityService.GetSubmissionFileDownloadURL(c.Request.Context(), requesterID, submissionID, fileID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound), errors.Is(err, service.ErrSubmissionFileMissing):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrActivityAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate download URL")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// abortSubmitError maps the submit-path service errors to HTTP responses.
// File policy violations return the full violation list.
func (h *ActivityHandler) abortSubmitError(c *gin.Context, err error) {
	var fileErr *service.FileValidationError
	switch {
	case errors.As(err, &fileErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":      service.ErrInvalidFiles.Error(),
			"violations": fileErr.Violations,
		})
	case errors.Is(err, service.ErrActivityNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrPastDeadline), errors.Is(err, service.ErrSubmissionConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrActivityInactive):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to process submission")
	}
}
