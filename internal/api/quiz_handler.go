// internal/api/quiz_handler.go
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

type QuizHandler struct {
	quizService service.QuizService
}

func NewQuizHandler(quizService service.QuizService) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

// --- DTOs ---

type QuizAnswerRequest struct {
	QuestionID  string `json:"questionId" binding:"required"`
	OptionIndex *int   `json:"optionIndex,omitempty"`
	Value       string `json:"value,omitempty"`
}

type SubmitAttemptRequest struct {
	Answers   []QuizAnswerRequest `json:"answers" binding:"required,dive"`
	StartedAt time.Time           `json:"startedAt" binding:"required"`
}

// --- Handler Methods ---

// SubmitAttempt godoc
// @Summary Submit a quiz attempt for scoring
// @Description Scores the answers, appends the attempt to the student's history and returns per-question detail. Rejected once the attempt ceiling is reached.
// @Tags Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz component ID"
// @Param attempt body SubmitAttemptRequest true "Answers and start time"
// @Success 200 {object} service.AttemptOutcome
// @Failure 400 {object} gin.H "Component is not a quiz or the definition is incomplete"
// @Failure 403 {object} gin.H "Attempt limit reached"
// @Failure 404 {object} gin.H "Component not found"
// @Router /student/quizzes/{id}/attempts [post]
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	var req SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	studentID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	componentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid component ID format")
		return
	}

	answers := make([]domain.QuizAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = domain.QuizAnswer{
			QuestionID:  a.QuestionID,
			OptionIndex: a.OptionIndex,
			Value:       a.Value,
		}
	}

	outcome, err := h.quizService.SubmitAttempt(c.Request.Context(), studentID, componentID, answers, req.StartedAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrComponentNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAttemptsExceeded):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrNotAQuiz), errors.Is(err, service.ErrQuizIncomplete):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to score attempt")
		}
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// GetMyAttempts godoc
// @Summary List the authenticated student's attempts on a quiz
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz component ID"
// @Success 200 {array} domain.QuizAttempt
// @Router /student/quizzes/{id}/attempts [get]
func (h *QuizHandler) GetMyAttempts(c *gin.Context) {
	studentID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	componentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid component ID format")
		return
	}

	attempts, err := h.quizService.GetMyAttempts(c.Request.Context(), studentID, componentID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list attempts")
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// GetAttempts godoc
// @Summary List every student's attempts on a quiz (author only)
// @Tags Quizzes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Quiz component ID"
// @Success 200 {array} domain.QuizAttempt
// @Failure 403 {object} gin.H "Not the quiz's author"
// @Failure 404 {object} gin.H "Component not found"
// @Router /teacher/quizzes/{id}/attempts [get]
func (h *QuizHandler) GetAttempts(c *gin.Context) {
	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	componentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid component ID format")
		return
	}

	attempts, err := h.quizService.GetAttempts(c.Request.Context(), teacherID, componentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrComponentNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAttemptsForbidden):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrNotAQuiz):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to list attempts")
		}
		return
	}
	c.JSON(http.StatusOK, attempts)
}
