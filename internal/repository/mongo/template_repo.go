package mongo

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const templateCollectionName = "plan_templates"

// mongoTemplateRepository implements repository.TemplateRepository
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new PlanTemplate repository backed by MongoDB.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new template at version 1.
func (r *mongoTemplateRepository) Create(ctx context.Context, template *domain.PlanTemplate) (primitive.ObjectID, error) {
	if template.Name == "" {
		return primitive.NilObjectID, errors.New("template name is required")
	}

	template.ID = primitive.NewObjectID()
	template.Version = 1
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, template)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a template by its ID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanTemplate, error) {
	var template domain.PlanTemplate
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// List retrieves templates, optionally only active ones, newest first.
func (r *mongoTemplateRepository) List(ctx context.Context, activeOnly bool) ([]domain.PlanTemplate, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []domain.PlanTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// Update persists the editable fields, guarded by the version token.
// The filter matches on (_id, version); if another editor won the race the
// match count is zero and we report ErrStaleVersion, unless the template is
// gone entirely.
func (r *mongoTemplateRepository) Update(ctx context.Context, template *domain.PlanTemplate, expectedVersion int) error {
	if template.ID == primitive.NilObjectID {
		return errors.New("template ID is required for update")
	}

	filter := bson.M{
		"_id":     template.ID,
		"version": expectedVersion,
	}
	update := bson.M{
		"$set": bson.M{
			"name":      template.Name,
			"note":      template.Note,
			"level":     template.Level,
			"sections":  template.Sections,
			"isActive":  template.IsActive,
			"updatedAt": time.Now().UTC(),
			// Usage fields are owned by IncrementUsage / SetUsageCount.
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if result.MatchedCount == 0 {
		// Either the template is gone or someone else bumped the version.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": template.ID})
		if countErr != nil {
			return countErr
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrStaleVersion
	}

	return nil
}

// IncrementUsage bumps the usage counter and stamps lastUsedAt. This write
// does not touch the version token: a recorded session must not invalidate
// an editor's pending update.
func (r *mongoTemplateRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID, usedAt time.Time) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$set": bson.M{"lastUsedAt": usedAt.UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetUsageCount overwrites the denormalized counter. Reconciliation only.
func (r *mongoTemplateRepository) SetUsageCount(ctx context.Context, id primitive.ObjectID, count int) error {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"usageCount": count}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTemplateIndexes creates necessary indexes for the plan_templates collection.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
