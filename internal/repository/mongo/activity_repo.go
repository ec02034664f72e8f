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

const activityCollectionName = "activities"

// mongoActivityRepository implements repository.ActivityRepository
type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new Activity repository backed by MongoDB.
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	return &mongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// Create inserts a new activity into the database.
func (r *mongoActivityRepository) Create(ctx context.Context, activity *domain.Activity) (primitive.ObjectID, error) {
	if activity.CourseID == primitive.NilObjectID || activity.CreatedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("activity requires courseId and createdBy")
	}

	activity.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now
	activity.IsActive = true

	result, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted activity ID")
	}

	return insertedID, nil
}

// GetByID retrieves an activity by its ID.
func (r *mongoActivityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Activity, error) {
	var activity domain.Activity
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&activity)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &activity, nil
}

// GetByCourseID retrieves all activities of a course, newest due first.
func (r *mongoActivityRepository) GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.Activity, error) {
	var activities []domain.Activity
	filter := bson.M{"courseId": courseID}
	findOptions := options.Find().SetSort(bson.D{{Key: "dueDate", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return activities, nil
}

// Update modifies an existing activity.
func (r *mongoActivityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	if activity.ID == primitive.NilObjectID {
		return errors.New("activity ID is required for update")
	}

	filter := bson.M{"_id": activity.ID}
	update := bson.M{"$set": bson.M{
		"title":            activity.Title,
		"description":      activity.Description,
		"maxScore":         activity.MaxScore,
		"dueDate":          activity.DueDate,
		"isActive":         activity.IsActive,
		"allowedFileTypes": activity.AllowedFileTypes,
		"maxFileSize":      activity.MaxFileSize,
		"maxFiles":         activity.MaxFiles,
		"updatedAt":        time.Now().UTC(),
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

// Delete removes an activity, enforcing authorship at the DB level.
// Orphaned submissions are a collaborator concern handled by the caller.
func (r *mongoActivityRepository) Delete(ctx context.Context, id, teacherID primitive.ObjectID) error {
	filter := bson.M{"_id": id, "createdBy": teacherID}
	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureActivityIndexes creates necessary indexes for the activities collection.
func EnsureActivityIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "dueDate", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
