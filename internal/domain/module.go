package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseModule groups an ordered run of components inside a course.
type CourseModule struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID    primitive.ObjectID `bson:"courseId" json:"courseId"`
	TeacherID   primitive.ObjectID `bson:"teacherId" json:"teacherId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Sequence    int                `bson:"sequence" json:"sequence"` // Order within the course
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
