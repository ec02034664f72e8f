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

const attemptCollectionName = "quiz_attempts"

// mongoAttemptRepository implements repository.AttemptRepository
type mongoAttemptRepository struct {
	collection *mongo.Collection
}

// NewMongoAttemptRepository creates a new quiz attempt repository backed by MongoDB.
func NewMongoAttemptRepository(db *mongo.Database) repository.AttemptRepository {
	return &mongoAttemptRepository{
		collection: db.Collection(attemptCollectionName),
	}
}

// Create inserts a new attempt record.
func (r *mongoAttemptRepository) Create(ctx context.Context, attempt *domain.QuizAttempt) (primitive.ObjectID, error) {
	if attempt.ComponentID == primitive.NilObjectID || attempt.StudentID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("attempt requires componentId and studentId")
	}

	attempt.ID = primitive.NewObjectID()
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, attempt)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted attempt ID")
	}

	return insertedID, nil
}

// CountByComponentAndStudent returns how many attempts a student has made
// on one quiz component.
func (r *mongoAttemptRepository) CountByComponentAndStudent(ctx context.Context, componentID, studentID primitive.ObjectID) (int, error) {
	filter := bson.M{"componentId": componentID, "studentId": studentID}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// GetByComponentAndStudent retrieves a student's attempt history on one
// quiz component, oldest first.
func (r *mongoAttemptRepository) GetByComponentAndStudent(ctx context.Context, componentID, studentID primitive.ObjectID) ([]domain.QuizAttempt, error) {
	return r.find(ctx, bson.M{"componentId": componentID, "studentId": studentID})
}

// GetByComponentID retrieves every attempt on one quiz component.
func (r *mongoAttemptRepository) GetByComponentID(ctx context.Context, componentID primitive.ObjectID) ([]domain.QuizAttempt, error) {
	return r.find(ctx, bson.M{"componentId": componentID})
}

func (r *mongoAttemptRepository) find(ctx context.Context, filter bson.M) ([]domain.QuizAttempt, error) {
	var attempts []domain.QuizAttempt
	findOptions := options.Find().SetSort(bson.D{{Key: "attemptNumber", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return attempts, nil
}

// EnsureAttemptIndexes creates necessary indexes for the quiz attempts collection.
func EnsureAttemptIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "componentId", Value: 1}, {Key: "studentId", Value: 1}, {Key: "attemptNumber", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
