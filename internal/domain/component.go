package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Component represents one authored content block inside a course module.
// Its Type is fixed at creation; Content always holds the matching variant.
type Component struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID    primitive.ObjectID `bson:"courseId" json:"courseId"`
	ModuleID    primitive.ObjectID `bson:"moduleId" json:"moduleId"`
	TeacherID   primitive.ObjectID `bson:"teacherId" json:"teacherId"` // Author; only they may edit
	Type        ComponentType      `bson:"type" json:"type"`
	Title       string             `bson:"title" json:"title"`
	Order       int                `bson:"order" json:"order"` // Position within the module
	IsMandatory bool               `bson:"isMandatory" json:"isMandatory"`

	// Content is the kind-specific variant. Persisted as a sub-document and
	// rehydrated through DecodeContentBSON by the repository.
	Content Content `bson:"-" json:"content"`

	// Metadata holds free-form detected properties (file size, duration,
	// mime type) reported by the upload collaborator.
	Metadata map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Complete reports whether the component is ready to publish.
func (c *Component) Complete() (bool, []string) {
	if c.Content == nil {
		return false, []string{"content is missing"}
	}
	return c.Content.Complete()
}
