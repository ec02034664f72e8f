package mongo

import (
	"context"
	"errors"
	"time"

	"openlearn/course-app/internal/domain"
	"openlearn/course-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const componentCollectionName = "components"

// componentDoc is the stored shape of a component. Content is kept as a
// raw sub-document and rehydrated into the right variant on load, so the
// closed union survives the round trip.
type componentDoc struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty"`
	CourseID    primitive.ObjectID     `bson:"courseId"`
	ModuleID    primitive.ObjectID     `bson:"moduleId"`
	TeacherID   primitive.ObjectID     `bson:"teacherId"`
	Type        domain.ComponentType   `bson:"type"`
	Title       string                 `bson:"title"`
	Order       int                    `bson:"order"`
	IsMandatory bool                   `bson:"isMandatory"`
	Content     bson.Raw               `bson:"content"`
	Metadata    map[string]interface{} `bson:"metadata,omitempty"`
	CreatedAt   time.Time              `bson:"createdAt"`
	UpdatedAt   time.Time              `bson:"updatedAt"`
}

func (d *componentDoc) toDomain() (*domain.Component, error) {
	content, err := domain.DecodeContentBSON(d.Type, d.Content)
	if err != nil {
		return nil, err
	}
	return &domain.Component{
		ID:          d.ID,
		CourseID:    d.CourseID,
		ModuleID:    d.ModuleID,
		TeacherID:   d.TeacherID,
		Type:        d.Type,
		Title:       d.Title,
		Order:       d.Order,
		IsMandatory: d.IsMandatory,
		Content:     content,
		Metadata:    d.Metadata,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// mongoComponentRepository implements repository.ComponentRepository
type mongoComponentRepository struct {
	collection *mongo.Collection
}

// NewMongoComponentRepository creates a new Component repository backed by MongoDB.
func NewMongoComponentRepository(db *mongo.Database) repository.ComponentRepository {
	return &mongoComponentRepository{
		collection: db.Collection(componentCollectionName),
	}
}

// Create inserts a new component into the database.
func (r *mongoComponentRepository) Create(ctx context.Context, component *domain.Component) (primitive.ObjectID, error) {
	if component.ModuleID == primitive.NilObjectID || component.TeacherID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("component requires moduleId and teacherId")
	}
	if component.Content == nil || component.Content.Type() != component.Type {
		return primitive.NilObjectID, domain.ErrInvalidContentShape
	}

	component.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	component.CreatedAt = now
	component.UpdatedAt = now

	rawContent, err := bson.Marshal(component.Content)
	if err != nil {
		return primitive.NilObjectID, err
	}

	doc := componentDoc{
		ID:          component.ID,
		CourseID:    component.CourseID,
		ModuleID:    component.ModuleID,
		TeacherID:   component.TeacherID,
		Type:        component.Type,
		Title:       component.Title,
		Order:       component.Order,
		IsMandatory: component.IsMandatory,
		Content:     rawContent,
		Metadata:    component.Metadata,
		CreatedAt:   component.CreatedAt,
		UpdatedAt:   component.UpdatedAt,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted component ID")
	}

	return insertedID, nil
}

// GetByID retrieves a component by its ID.
func (r *mongoComponentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Component, error) {
	var doc componentDoc
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

// GetByModuleID retrieves all components of a module, in display order.
func (r *mongoComponentRepository) GetByModuleID(ctx context.Context, moduleID primitive.ObjectID) ([]domain.Component, error) {
	filter := bson.M{"moduleId": moduleID}
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []componentDoc
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	components := make([]domain.Component, 0, len(docs))
	for i := range docs {
		component, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		components = append(components, *component)
	}
	return components, nil
}

// Update modifies an existing component. The type field is immutable and
// deliberately absent from the update document.
func (r *mongoComponentRepository) Update(ctx context.Context, component *domain.Component) error {
	if component.ID == primitive.NilObjectID {
		return errors.New("component ID is required for update")
	}
	if component.Content == nil || component.Content.Type() != component.Type {
		return domain.ErrInvalidContentShape
	}

	rawContent, err := bson.Marshal(component.Content)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": component.ID}
	update := bson.M{"$set": bson.M{
		"title":       component.Title,
		"order":       component.Order,
		"isMandatory": component.IsMandatory,
		"content":     bson.Raw(rawContent),
		"metadata":    component.Metadata,
		"updatedAt":   time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a component, enforcing authorship at the DB level.
func (r *mongoComponentRepository) Delete(ctx context.Context, id, teacherID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "teacherId": teacherID}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureComponentIndexes creates necessary indexes for the components collection.
func EnsureComponentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Module pages list components in display order
			Keys:    bson.D{{Key: "moduleId", Value: 1}, {Key: "order", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "teacherId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
