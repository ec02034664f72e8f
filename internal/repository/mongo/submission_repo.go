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

const submissionCollectionName = "submissions"

// mongoSubmissionRepository implements repository.SubmissionRepository
type mongoSubmissionRepository struct {
	collection *mongo.Collection
}

// NewMongoSubmissionRepository creates a new Submission repository backed by MongoDB.
func NewMongoSubmissionRepository(db *mongo.Database) repository.SubmissionRepository {
	return &mongoSubmissionRepository{
		collection: db.Collection(submissionCollectionName),
	}
}

// Create inserts a new submission. The unique (activityId, studentId)
// index backs the one-row-per-student invariant.
func (r *mongoSubmissionRepository) Create(ctx context.Context, submission *domain.ActivitySubmission) (primitive.ObjectID, error) {
	if submission.ActivityID == primitive.NilObjectID || submission.StudentID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("submission requires activityId and studentId")
	}

	submission.ID = primitive.NewObjectID()
	submission.Version = 1
	submission.UpdatedAt = time.Now().UTC()
	if submission.Status == "" {
		submission.Status = domain.SubmissionSubmitted
	}

	result, err := r.collection.InsertOne(ctx, submission)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted submission ID")
	}

	return insertedID, nil
}

// GetByID retrieves a submission by its ID.
func (r *mongoSubmissionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ActivitySubmission, error) {
	var submission domain.ActivitySubmission
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&submission)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// GetByActivityAndStudent retrieves the single submission for one student
// on one activity.
func (r *mongoSubmissionRepository) GetByActivityAndStudent(ctx context.Context, activityID, studentID primitive.ObjectID) (*domain.ActivitySubmission, error) {
	var submission domain.ActivitySubmission
	filter := bson.M{"activityId": activityID, "studentId": studentID}

	err := r.collection.FindOne(ctx, filter).Decode(&submission)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &submission, nil
}

// GetByActivityID retrieves all submissions for an activity.
func (r *mongoSubmissionRepository) GetByActivityID(ctx context.Context, activityID primitive.ObjectID) ([]domain.ActivitySubmission, error) {
	var submissions []domain.ActivitySubmission
	filter := bson.M{"activityId": activityID}
	findOptions := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &submissions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return submissions, nil
}

// Update persists a submission, matching on the version the caller read.
// A concurrent writer that got there first leaves the version bumped, so
// this write matches nothing and reports ErrVersionConflict instead of
// silently overwriting (the resubmit-while-grading race).
func (r *mongoSubmissionRepository) Update(ctx context.Context, submission *domain.ActivitySubmission) error {
	if submission.ID == primitive.NilObjectID {
		return errors.New("submission ID is required for update")
	}

	filter := bson.M{"_id": submission.ID, "version": submission.Version}
	update := bson.M{
		"$set": bson.M{
			"status":      submission.Status,
			"submittedAt": submission.SubmittedAt,
			"files":       submission.Files,
			"notes":       submission.Notes,
			"score":       submission.Score,
			"feedback":    submission.Feedback,
			"gradedAt":    submission.GradedAt,
			"gradedBy":    submission.GradedBy,
			"updatedAt":   time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing row from a stale version.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": submission.ID})
		if countErr == nil && count > 0 {
			return repository.ErrVersionConflict
		}
		return repository.ErrNotFound
	}
	submission.Version++
	return nil
}

// EnsureSubmissionIndexes creates necessary indexes for the submissions collection.
func EnsureSubmissionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// One submission per student per activity
			Keys:    bson.D{{Key: "activityId", Value: 1}, {Key: "studentId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "studentId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
