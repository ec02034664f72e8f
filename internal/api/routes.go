package api

import (
	"net/http"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	componentService service.ComponentService,
	activityService service.ActivityService,
	quizService service.QuizService,
) {

	authHandler := NewAuthHandler(authService)
	componentHandler := NewComponentHandler(componentService)
	activityHandler := NewActivityHandler(activityService)
	quizHandler := NewQuizHandler(quizService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role})
		})

		// --- Shared Read Routes ---
		protected.GET("/courses/:courseId/modules", componentHandler.GetModules)
		protected.GET("/courses/:courseId/activities", activityHandler.GetCourseActivities)
		protected.GET("/modules/:moduleId/components", componentHandler.GetModuleComponents)
		protected.GET("/components/:id", componentHandler.GetComponent)
		protected.GET("/components/:id/completeness", componentHandler.GetCompleteness)
		protected.GET("/components/:id/download-url", componentHandler.GetDownloadURL)
		protected.GET("/activities/:id", activityHandler.GetActivity)
		protected.GET("/submissions/:id/files/:fileId/download-url", activityHandler.GetSubmissionFileURL)

		// --- Teacher Routes ---
		teacherGroup := protected.Group("/teacher")
		teacherGroup.Use(RoleMiddleware(domain.RoleTeacher))
		{
			teacherGroup.POST("/modules", componentHandler.CreateModule)
			teacherGroup.PUT("/modules/:moduleId/components/order", componentHandler.ReorderComponents)

			teacherGroup.POST("/components", componentHandler.CreateComponent)
			teacherGroup.PATCH("/components/:id", componentHandler.UpdateComponent)
			teacherGroup.DELETE("/components/:id", componentHandler.DeleteComponent)
			teacherGroup.POST("/components/:id/upload-url", componentHandler.RequestUploadURL)
			teacherGroup.POST("/components/:id/confirm-upload", componentHandler.ConfirmUpload)

			teacherGroup.POST("/activities", activityHandler.CreateActivity)
			teacherGroup.PUT("/activities/:id", activityHandler.UpdateActivity)
			teacherGroup.DELETE("/activities/:id", activityHandler.DeleteActivity)
			teacherGroup.GET("/activities/:id/submissions", activityHandler.GetSubmissions)
			teacherGroup.GET("/activities/:id/stats", activityHandler.GetStats)
			teacherGroup.POST("/submissions/:id/grade", activityHandler.GradeSubmission)

			teacherGroup.GET("/quizzes/:id/attempts", quizHandler.GetAttempts)
		}

		// --- Student Routes ---
		studentGroup := protected.Group("/student")
		studentGroup.Use(RoleMiddleware(domain.RoleStudent))
		{
			studentGroup.POST("/courses/:courseId/enroll", authHandler.Enroll)

			studentGroup.POST("/activities/:id/upload-url", activityHandler.RequestSubmissionUploadURL)
			studentGroup.POST("/activities/:id/submit", activityHandler.Submit)
			studentGroup.GET("/activities/:id/submission", activityHandler.GetMySubmission)

			studentGroup.POST("/quizzes/:id/attempts", quizHandler.SubmitAttempt)
			studentGroup.GET("/quizzes/:id/attempts", quizHandler.GetMyAttempts)
		}
	}
}
