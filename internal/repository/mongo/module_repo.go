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

const moduleCollectionName = "modules"

// mongoModuleRepository implements repository.ModuleRepository
type mongoModuleRepository struct {
	collection *mongo.Collection
}

// NewMongoModuleRepository creates a new CourseModule repository backed by MongoDB.
func NewMongoModuleRepository(db *mongo.Database) repository.ModuleRepository {
	return &mongoModuleRepository{
		collection: db.Collection(moduleCollectionName),
	}
}

// Create inserts a new course module.
func (r *mongoModuleRepository) Create(ctx context.Context, module *domain.CourseModule) (primitive.ObjectID, error) {
	if module.CourseID == primitive.NilObjectID || module.TeacherID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("module requires courseId and teacherId")
	}

	module.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	module.CreatedAt = now
	module.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, module)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted module ID")
	}

	return insertedID, nil
}

// GetByID retrieves a module by its ID.
func (r *mongoModuleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CourseModule, error) {
	var module domain.CourseModule
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&module)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &module, nil
}

// GetByCourseID retrieves all modules of a course in sequence order.
func (r *mongoModuleRepository) GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.CourseModule, error) {
	var modules []domain.CourseModule
	filter := bson.M{"courseId": courseID}
	findOptions := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &modules); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return modules, nil
}

// EnsureModuleIndexes creates necessary indexes for the modules collection.
func EnsureModuleIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
