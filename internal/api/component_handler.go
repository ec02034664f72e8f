// internal/api/component_handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ComponentHandler struct {
	componentService service.ComponentService
}

func NewComponentHandler(componentService service.ComponentService) *ComponentHandler {
	return &ComponentHandler{componentService: componentService}
}

// --- DTOs ---

type CreateModuleRequest struct {
	CourseID    string `json:"courseId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Sequence    int    `json:"sequence"`
}

type CreateComponentRequest struct {
	CourseID    string `json:"courseId" binding:"required"`
	ModuleID    string `json:"moduleId" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=banner video image reading document audio quiz"`
	Title       string `json:"title" binding:"required"`
	Order       int    `json:"order"`
	IsMandatory bool   `json:"isMandatory"`
}

type UpdateComponentRequest struct {
	Title       *string         `json:"title,omitempty"`
	Order       *int            `json:"order,omitempty"`
	IsMandatory *bool           `json:"isMandatory,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

type ReorderRequest struct {
	ComponentIDs []string `json:"componentIds" binding:"required,min=1"`
}

type UploadURLRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	FileSize    int64  `json:"fileSize" binding:"required,gt=0"`
	ContentType string `json:"contentType" binding:"required"`
}

type ConfirmUploadRequest struct {
	ObjectKey   string `json:"objectKey" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	FileSize    int64  `json:"fileSize" binding:"required,gt=0"`
	ContentType string `json:"contentType" binding:"required"`
}

// --- Module Endpoints ---

// CreateModule godoc
// @Summary Create a course module
// @Tags Components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param module body CreateModuleRequest true "Module details"
// @Success 201 {object} domain.CourseModule
// @Failure 400 {object} gin.H "Invalid input"
// @Router /teacher/modules [post]
func (h *ComponentHandler) CreateModule(c *gin.Context) {
	var req CreateModuleRequest
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

	module, err := h.componentService.CreateModule(c.Request.Context(), teacherID, courseID, req.Title, req.Description, req.Sequence)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create module")
		return
	}
	c.JSON(http.StatusCreated, module)
}

// GetModules godoc
// @Summary List a course's modules in sequence order
// @Tags Components
// @Produce json
// @Security BearerAuth
// @Param courseId path string true "Course ID"
// @Success 200 {array} domain.CourseModule
// @Router /courses/{courseId}/modules [get]
func (h *ComponentHandler) GetModules(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("courseId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format")
		return
	}

	modules, err := h.componentService.GetModulesByCourse(c.Request.Context(), courseID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list modules")
		return
	}
	c.JSON(http.StatusOK, modules)
}

// --- Component Endpoints ---

// CreateComponent godoc
// @Summary Create a content component of a fixed kind
// @Description The component's type is immutable after creation; its content starts as the kind's minimal default.
// @Tags Components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param component body CreateComponentRequest true "Component details"
// @Success 201 {object} domain.Component
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Module not found"
// @Router /teacher/components [post]
func (h *ComponentHandler) CreateComponent(c *gin.Context) {
	var req CreateComponentRequest
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
	moduleID, err := primitive.ObjectIDFromHex(req.ModuleID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid module ID format")
		return
	}

	component, err := h.componentService.CreateComponent(c.Request.Context(), teacherID, courseID, moduleID,
		domain.ComponentType(req.Type), req.Title, req.Order, req.IsMandatory)
	if err != nil {
		if errors.Is(err, service.ErrModuleNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrInvalidComponentType) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to create component")
		}
		return
	}
	c.JSON(http.StatusCreated, component)
}

// GetComponent godoc
// @Summary Get one component with its content
// @Tags Components
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Success 200 {object} domain.Component
// @Failure 404 {object} gin.H "Component not found"
// @Router /components/{id} [get]
func (h *ComponentHandler) GetComponent(c *gin.Context) {
	componentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid component ID format")
		return
	}

	component, err := h.componentService.GetComponent(c.Request.Context(), componentID)
	if err != nil {
		if errors.Is(err, service.ErrComponentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to fetch component")
		}
		return
	}
	c.JSON(http.StatusOK, component)
}

// GetModuleComponents godoc
// @Summary List a module's components in display order
// @Tags Components
// @Produce json
// @Security BearerAuth
// @Param moduleId path string true "Module ID"
// @Success 200 {array} domain.Component
// @Router /modules/{moduleId}/components [get]
func (h *ComponentHandler) GetModuleComponents(c *gin.Context) {
	moduleID, err := primitive.ObjectIDFromHex(c.Param("moduleId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid module ID format")
		return
	}

	components, err := h.componentService.GetComponentsByModule(c.Request.Context(), moduleID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list components")
		return
	}
	c.JSON(http.StatusOK, components)
}

// UpdateComponent godoc
// @Summary Edit a component's fields and content
// @Description Content is a partial payload shaped like the component's kind; fields from any other kind are rejected. Reading text is sanitized on the way in.
// @Tags Components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Param update body UpdateComponentRequest true "Fields to change"
// @Success 200 {object} service.ContentUpdateResult
// @Failure 400 {object} gin.H "Content does not match the component's type"
// @Failure 403 {object} gin.H "Not the author"
// @Failure 404 {object} gin.H "Component not found"
// @Router /teacher/components/{id} [patch]
func (h *ComponentHandler) UpdateComponent(c *gin.Context) {
	var req UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

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

	result, err := h.componentService.UpdateComponent(c.Request.Context(), teacherID, componentID, service.ComponentUpdate{
		Title:       req.Title,
		Order:       req.Order,
		IsMandatory: req.IsMandatory,
		Content:     req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrComponentNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrComponentAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, domain.ErrInvalidContentShape):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to update component")
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReorderComponents godoc
// @Summary Rewrite the display order of a module's components
// @Tags Components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param moduleId path string true "Module ID"
// @Param order body ReorderRequest true "Component IDs in the desired order"
// @Success 204 "Reordered"
// @Failure 400 {object} gin.H "ID list does not match the module's components"
// @Router /teacher/modules/{moduleId}/components/order [put]
func (h *ComponentHandler) ReorderComponents(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	teacherID, err := objectIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}
	moduleID, err := primitive.ObjectIDFromHex(c.Param("moduleId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid module ID format")
		return
	}

	orderedIDs := make([]primitive.ObjectID, len(req.ComponentIDs))
	for i, idStr := range req.ComponentIDs {
		id, err := primitive.ObjectIDFromHex(idStr)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid component ID format: "+idStr)
			return
		}
		orderedIDs[i] = id
	}

	if err := h.componentService.ReorderComponents(c.Request.Context(), teacherID, moduleID, orderedIDs); err != nil {
		if errors.Is(err, service.ErrComponentAccessDenied) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteComponent godoc
// @Summary Delete a component
// @Tags Components
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Success 204 "Deleted"
// @Failure 404 {object} gin.H "Component not found"
// @Router /teacher/components/{id} [delete]
func (h *ComponentHandler) DeleteComponent(c *gin.Context) {
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

	if err := h.componentService.DeleteComponent(c.Request.Context(), teacherID, componentID); err != nil {
		if errors.Is(err, service.ErrComponentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to delete component")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCompleteness godoc
// @Summary Report whether a component is ready to publish
// @Tags Components
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Success 200 {object} service.CompletenessReport
// @Failure 404 {object} gin.H "Component not found"
// @Router /components/{id}/completeness [get]
func (h *ComponentHandler) GetCompleteness(c *gin.Context) {
	componentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid component ID format")
		return
	}

	report, err := h.componentService.CheckCompleteness(c.Request.Context(), componentID)
	if err != nil {
		if errors.Is(err, service.ErrComponentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to check completeness")
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// --- File Endpoints ---

// RequestUploadURL godoc
// @Summary Request a presigned upload URL for a component's file
// @Description Validates the candidate file against the kind's upload policy first. The returned object key must be echoed back on confirm.
// @Tags Components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Param file body UploadURLRequest true "File details"
// @Success 200 {object} service.UploadURLResponse
// @Failure 400 {object} gin.H "File violates the upload policy or the kind carries no file"
// @Router /teacher/components/{id}/upload-url [post]
func (h *ComponentHandler) RequestUploadURL(c *gin.Context) {
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

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

	resp, err := h.componentService.RequestFileUploadURL(c.Request.Context(), teacherID, componentID, req.FileName, req.FileSize, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrComponentNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrComponentAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrNoFileForType), errors.Is(err, service.ErrFilePolicyViolation):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to generate upload URL")
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmUpload godoc
// @Summary Record a completed file upload on a component
// @Tags Components
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Param upload body ConfirmUploadRequest true "Uploaded object details"
// @Success 200 {object} domain.Component
// @Failure 400 {object} gin.H "Kind carries no file"
// @Router /teacher/components/{id}/confirm-upload [post]
func (h *ComponentHandler) ConfirmUpload(c *gin.Context) {
	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

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

	component, err := h.componentService.ConfirmFileUpload(c.Request.Context(), teacherID, componentID, req.ObjectKey, req.FileName, req.FileSize, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrComponentNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrComponentAccessDenied):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrNoFileForType):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to confirm upload")
		}
		return
	}
	c.JSON(http.StatusOK, component)
}

// GetDownloadURL godoc
// @Summary Get a presigned download URL for a component's file
// @Tags Components
// @Produce json
// @Security BearerAuth
// @Param id path string true "Component ID"
// @Success 200 {object} gin.H "downloadUrl"
// @Failure 404 {object} gin.H "Component not found"
// @Router /components/{id}/download-url [get]
func (h *ComponentHandler) GetDownloadURL(c *gin.Context) {
	componentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid component ID format")
		return
	}

	url, err := h.componentService.GetFileDownloadURL(c.Request.Context(), componentID)
	if err != nil {
		if errors.Is(err, service.ErrComponentNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else {
			abortWithError(c, http.StatusBadRequest, err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}
