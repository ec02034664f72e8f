package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"openlearn/course-app/internal/config"
	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/filepolicy"
	"openlearn/course-app/internal/repository"
	"openlearn/course-app/internal/sanitize"
	"openlearn/course-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// --- Error Definitions ---
var (
	ErrComponentNotFound     = errors.New("component not found")
	ErrComponentAccessDenied = errors.New("access denied to modify this component")
	ErrModuleNotFound        = errors.New("course module not found")
	ErrInvalidComponentType  = errors.New("unknown component type")
	ErrNoFileForType         = errors.New("this component type does not carry an uploaded file")
	ErrFilePolicyViolation   = errors.New("file violates the upload policy")
	ErrUploadURLError        = errors.New("failed to generate upload URL")
	ErrDownloadURLError      = errors.New("failed to generate download URL")
)

// UploadURLResponse carries a presigned PUT URL plus the object key the
// client must report back on confirm.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

// ContentUpdateResult is the outcome of a content edit. SanitizerAltered is
// set when author-supplied rich text was rewritten on the way in, so the
// editor can tell the author their markup changed.
type ContentUpdateResult struct {
	Component        *domain.Component `json:"component"`
	SanitizerAltered bool              `json:"sanitizerAltered"`
	UsedFallback     bool              `json:"usedFallback"`
}

// CompletenessReport mirrors Content.Complete for API consumers.
type CompletenessReport struct {
	Complete bool     `json:"complete"`
	Reasons  []string `json:"reasons,omitempty"`
}

// ComponentUpdate carries the editable top-level fields of a component.
// Nil pointers leave the current value in place; Content is a kind-shaped
// partial payload applied through the domain patch rules.
type ComponentUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Order       *int            `json:"order,omitempty"`
	IsMandatory *bool           `json:"isMandatory,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
}

type ComponentService interface {
	// Module management
	CreateModule(ctx context.Context, teacherID, courseID primitive.ObjectID, title, description string, sequence int) (*domain.CourseModule, error)
	GetModulesByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.CourseModule, error)

	// Component lifecycle
	CreateComponent(ctx context.Context, teacherID, courseID, moduleID primitive.ObjectID, componentType domain.ComponentType, title string, order int, isMandatory bool) (*domain.Component, error)
	GetComponent(ctx context.Context, componentID primitive.ObjectID) (*domain.Component, error)
	GetComponentsByModule(ctx context.Context, moduleID primitive.ObjectID) ([]domain.Component, error)
	UpdateComponent(ctx context.Context, teacherID, componentID primitive.ObjectID, update ComponentUpdate) (*ContentUpdateResult, error)
	ReorderComponents(ctx context.Context, teacherID, moduleID primitive.ObjectID, orderedIDs []primitive.ObjectID) error
	DeleteComponent(ctx context.Context, teacherID, componentID primitive.ObjectID) error
	CheckCompleteness(ctx context.Context, componentID primitive.ObjectID) (*CompletenessReport, error)

	// File attachment (two-phase: request URL, upload out of band, confirm)
	RequestFileUploadURL(ctx context.Context, teacherID, componentID primitive.ObjectID, fileName string, fileSize int64, contentType string) (*UploadURLResponse, error)
	ConfirmFileUpload(ctx context.Context, teacherID, componentID primitive.ObjectID, objectKey, fileName string, fileSize int64, contentType string) (*domain.Component, error)
	GetFileDownloadURL(ctx context.Context, componentID primitive.ObjectID) (string, error)
}

// componentService implements the ComponentService interface.
type componentService struct {
	componentRepo repository.ComponentRepository
	moduleRepo    repository.ModuleRepository
	fileStorage   storage.FileStorage
	uploadCfg     config.UploadConfig
	logger        *zap.Logger
}

// NewComponentService creates a new instance of componentService.
func NewComponentService(
	componentRepo repository.ComponentRepository,
	moduleRepo repository.ModuleRepository,
	fileStorage storage.FileStorage,
	uploadCfg config.UploadConfig,
	logger *zap.Logger,
) ComponentService {
	return &componentService{
		componentRepo: componentRepo,
		moduleRepo:    moduleRepo,
		fileStorage:   fileStorage,
		uploadCfg:     uploadCfg,
		logger:        logger,
	}
}

// === Module Management ===

// CreateModule creates a new module shell inside a course.
func (s *componentService) CreateModule(ctx context.Context, teacherID, courseID primitive.ObjectID, title, description string, sequence int) (*domain.CourseModule, error) {
	if teacherID == primitive.NilObjectID || courseID == primitive.NilObjectID {
		return nil, errors.New("teacher ID and course ID are required")
	}
	if title == "" {
		return nil, errors.New("module title is required")
	}

	module := &domain.CourseModule{
		CourseID:    courseID,
		TeacherID:   teacherID,
		Title:       title,
		Description: description,
		Sequence:    sequence,
	}

	moduleID, err := s.moduleRepo.Create(ctx, module)
	if err != nil {
		return nil, err
	}
	module.ID = moduleID
	return module, nil
}

// GetModulesByCourse lists a course's modules in sequence order.
func (s *componentService) GetModulesByCourse(ctx context.Context, courseID primitive.ObjectID) ([]domain.CourseModule, error) {
	if courseID == primitive.NilObjectID {
		return nil, errors.New("course ID is required")
	}
	return s.moduleRepo.GetByCourseID(ctx, courseID)
}

// === Component Lifecycle ===

// CreateComponent creates a component of the given kind with its minimal
// default content. The kind is fixed for the component's lifetime.
func (s *componentService) CreateComponent(ctx context.Context, teacherID, courseID, moduleID primitive.ObjectID, componentType domain.ComponentType, title string, order int, isMandatory bool) (*domain.Component, error) {
	if teacherID == primitive.NilObjectID || courseID == primitive.NilObjectID || moduleID == primitive.NilObjectID {
		return nil, errors.New("teacher ID, course ID and module ID are required")
	}
	if title == "" {
		return nil, errors.New("component title is required")
	}
	if !domain.ValidComponentType(componentType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidComponentType, componentType)
	}

	// Confirm the module exists before attaching a component to it.
	module, err := s.moduleRepo.GetByID(ctx, moduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, err
	}
	if module.CourseID != courseID {
		return nil, errors.New("module does not belong to this course")
	}

	component := &domain.Component{
		CourseID:    courseID,
		ModuleID:    moduleID,
		TeacherID:   teacherID,
		Type:        componentType,
		Title:       title,
		Order:       order,
		IsMandatory: isMandatory,
		Content:     domain.NewContent(componentType),
	}

	componentID, err := s.componentRepo.Create(ctx, component)
	if err != nil {
		return nil, err
	}
	component.ID = componentID
	return component, nil
}

// GetComponent retrieves a single component.
func (s *componentService) GetComponent(ctx context.Context, componentID primitive.ObjectID) (*domain.Component, error) {
	component, err := s.componentRepo.GetByID(ctx, componentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}
	return component, nil
}

// GetComponentsByModule lists a module's components in display order.
func (s *componentService) GetComponentsByModule(ctx context.Context, moduleID primitive.ObjectID) ([]domain.Component, error) {
	if moduleID == primitive.NilObjectID {
		return nil, errors.New("module ID is required")
	}
	return s.componentRepo.GetByModuleID(ctx, moduleID)
}

// UpdateComponent applies a partial edit to a component, enforcing
// ownership. Content payloads are patched through the kind's shape rules, so
// a payload with another kind's fields is rejected without touching the
// stored record. Reading text passes through the sanitizer on the way in.
func (s *componentService) UpdateComponent(ctx context.Context, teacherID, componentID primitive.ObjectID, update ComponentUpdate) (*ContentUpdateResult, error) {
	component, err := s.getOwnedComponent(ctx, teacherID, componentID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		if *update.Title == "" {
			return nil, errors.New("component title cannot be empty")
		}
		component.Title = *update.Title
	}
	if update.Order != nil {
		component.Order = *update.Order
	}
	if update.IsMandatory != nil {
		component.IsMandatory = *update.IsMandatory
	}

	result := &ContentUpdateResult{}
	if len(update.Content) > 0 {
		if err := domain.ApplyContentPatch(component.Content, update.Content); err != nil {
			return nil, err
		}
		result.SanitizerAltered, result.UsedFallback = s.sanitizeReading(component)
	}

	if err := s.componentRepo.Update(ctx, component); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}

	result.Component = component
	return result, nil
}

// sanitizeReading cleans reading text in place and recomputes its word
// count. Text the deny-list flags as actively hostile is replaced with an
// escaped plain-text fallback rather than cleaned markup.
func (s *componentService) sanitizeReading(component *domain.Component) (altered, fallback bool) {
	reading, ok := component.Content.(*domain.ReadingContent)
	if !ok || reading.Text == "" {
		return false, false
	}

	original := reading.Text
	if !sanitize.IsSafe(original) {
		reading.Text = sanitize.PlainTextFallback(original)
		s.logger.Warn("hostile markup in reading content, stored as plain text",
			zap.String("componentId", component.ID.Hex()),
			zap.String("teacherId", component.TeacherID.Hex()))
		fallback = true
	} else {
		reading.Text = sanitize.Sanitize(original)
	}

	altered = reading.Text != original
	if altered && !fallback {
		s.logger.Info("sanitizer rewrote reading content",
			zap.String("componentId", component.ID.Hex()))
	}

	reading.WordCount = len(strings.Fields(sanitize.ExtractPlainText(reading.Text)))
	return altered, fallback
}

// ReorderComponents rewrites the order of a module's components to match
// orderedIDs. Every component in the module must appear exactly once.
func (s *componentService) ReorderComponents(ctx context.Context, teacherID, moduleID primitive.ObjectID, orderedIDs []primitive.ObjectID) error {
	components, err := s.componentRepo.GetByModuleID(ctx, moduleID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(components) {
		return fmt.Errorf("expected %d component IDs, got %d", len(components), len(orderedIDs))
	}

	byID := make(map[primitive.ObjectID]*domain.Component, len(components))
	for i := range components {
		byID[components[i].ID] = &components[i]
	}

	for position, id := range orderedIDs {
		component, ok := byID[id]
		if !ok {
			return fmt.Errorf("component %s is not in this module", id.Hex())
		}
		if component.TeacherID != teacherID {
			return ErrComponentAccessDenied
		}
		if component.Order == position {
			continue
		}
		component.Order = position
		if err := s.componentRepo.Update(ctx, component); err != nil {
			return err
		}
	}
	return nil
}

// DeleteComponent removes a component, enforcing ownership through the
// repository filter.
func (s *componentService) DeleteComponent(ctx context.Context, teacherID, componentID primitive.ObjectID) error {
	if teacherID == primitive.NilObjectID || componentID == primitive.NilObjectID {
		return errors.New("teacher ID and component ID are required")
	}
	err := s.componentRepo.Delete(ctx, componentID, teacherID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrComponentNotFound
		}
		return err
	}
	return nil
}

// CheckCompleteness reports whether the component is ready to publish.
func (s *componentService) CheckCompleteness(ctx context.Context, componentID primitive.ObjectID) (*CompletenessReport, error) {
	component, err := s.GetComponent(ctx, componentID)
	if err != nil {
		return nil, err
	}
	complete, reasons := component.Complete()
	return &CompletenessReport{Complete: complete, Reasons: reasons}, nil
}

// === File Attachment ===

// RequestFileUploadURL validates the candidate file against the kind's
// upload policy and hands back a presigned PUT URL. Nothing is recorded on
// the component yet; an interrupted upload leaves no trace.
func (s *componentService) RequestFileUploadURL(ctx context.Context, teacherID, componentID primitive.ObjectID, fileName string, fileSize int64, contentType string) (*UploadURLResponse, error) {
	component, err := s.getOwnedComponent(ctx, teacherID, componentID)
	if err != nil {
		return nil, err
	}

	policy, ok := s.policyForType(component.Type)
	if !ok {
		return nil, ErrNoFileForType
	}

	check := filepolicy.Validate([]filepolicy.FileInfo{{Name: fileName, Size: fileSize}}, policy)
	if !check.Valid {
		return nil, fmt.Errorf("%w: %s", ErrFilePolicyViolation, strings.Join(check.Errors, "; "))
	}

	objectKey := path.Join("components", component.ID.Hex(),
		fmt.Sprintf("%s.%s", uuid.NewString(), filepolicy.Extension(fileName)))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmFileUpload points the component's content at the uploaded object
// and records the detected file properties. Called only after the client
// finished the PUT against the presigned URL.
func (s *componentService) ConfirmFileUpload(ctx context.Context, teacherID, componentID primitive.ObjectID, objectKey, fileName string, fileSize int64, contentType string) (*domain.Component, error) {
	if objectKey == "" {
		return nil, errors.New("object key is required")
	}

	component, err := s.getOwnedComponent(ctx, teacherID, componentID)
	if err != nil {
		return nil, err
	}

	if !domain.SetFileReference(component.Content, objectKey) {
		return nil, ErrNoFileForType
	}

	if component.Metadata == nil {
		component.Metadata = make(map[string]interface{})
	}
	component.Metadata["fileName"] = fileName
	component.Metadata["fileSize"] = fileSize
	component.Metadata["mimeType"] = contentType

	if err := s.componentRepo.Update(ctx, component); err != nil {
		return nil, err
	}
	return component, nil
}

// GetFileDownloadURL returns a presigned GET URL for the component's file.
func (s *componentService) GetFileDownloadURL(ctx context.Context, componentID primitive.ObjectID) (string, error) {
	component, err := s.GetComponent(ctx, componentID)
	if err != nil {
		return "", err
	}

	objectKey := fileReference(component.Content)
	if objectKey == "" {
		return "", errors.New("component has no uploaded file")
	}

	downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", ErrDownloadURLError
	}
	return downloadURL, nil
}

// === Helpers ===

// getOwnedComponent loads a component and verifies the teacher authored it.
func (s *componentService) getOwnedComponent(ctx context.Context, teacherID, componentID primitive.ObjectID) (*domain.Component, error) {
	if teacherID == primitive.NilObjectID || componentID == primitive.NilObjectID {
		return nil, errors.New("teacher ID and component ID are required")
	}
	component, err := s.componentRepo.GetByID(ctx, componentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrComponentNotFound
		}
		return nil, err
	}
	if component.TeacherID != teacherID {
		return nil, ErrComponentAccessDenied
	}
	return component, nil
}

// policyForType maps a component kind to its configured upload policy.
// Kinds without a file slot return false.
func (s *componentService) policyForType(t domain.ComponentType) (filepolicy.Policy, bool) {
	var cfg config.UploadPolicyConfig
	switch t {
	case domain.TypeBanner, domain.TypeImage:
		cfg = s.uploadCfg.Image
	case domain.TypeVideo:
		cfg = s.uploadCfg.Video
	case domain.TypeAudio:
		cfg = s.uploadCfg.Audio
	case domain.TypeDocument:
		cfg = s.uploadCfg.Document
	default:
		return filepolicy.Policy{}, false
	}
	return filepolicy.Policy{
		MaxFiles:          cfg.MaxFiles,
		MaxFileSize:       cfg.MaxFileSizeMB * 1024 * 1024,
		AllowedExtensions: cfg.AllowedExtensions,
	}, true
}

// fileReference extracts the stored object key from a file-bearing variant.
func fileReference(c domain.Content) string {
	switch v := c.(type) {
	case *domain.BannerContent:
		return v.Img
	case *domain.VideoContent:
		return v.Src
	case *domain.ImageContent:
		return v.Src
	case *domain.DocumentContent:
		return v.FileURL
	case *domain.AudioContent:
		return v.Src
	default:
		return ""
	}
}
