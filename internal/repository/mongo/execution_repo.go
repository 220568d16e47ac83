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

const executionCollectionName = "executions"

// mongoExecutionRepository implements repository.ExecutionRepository.
// The collection is append-only: there is no update or delete path, matching
// the interface. History, once written, stays written.
type mongoExecutionRepository struct {
	collection *mongo.Collection
}

// NewMongoExecutionRepository creates a new Execution repository backed by MongoDB.
func NewMongoExecutionRepository(db *mongo.Database) repository.ExecutionRepository {
	return &mongoExecutionRepository{
		collection: db.Collection(executionCollectionName),
	}
}

// Create inserts the execution. The unconditional unique index on
// (slotId, date) makes a second record for the same class a duplicate-key
// error, surfaced as repository.ErrDuplicateKey.
func (r *mongoExecutionRepository) Create(ctx context.Context, execution *domain.Execution) (primitive.ObjectID, error) {
	if execution.TemplateID == primitive.NilObjectID || execution.SlotID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("execution template ID and slot ID are required")
	}
	if execution.Date.IsZero() {
		return primitive.NilObjectID, errors.New("execution date is required")
	}

	execution.ID = primitive.NewObjectID()
	if execution.RecordedAt.IsZero() {
		execution.RecordedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, execution)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves an execution by its ID.
func (r *mongoExecutionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Execution, error) {
	var execution domain.Execution
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&execution)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &execution, nil
}

// GetBySlotDate retrieves the execution recorded for a slot on a day, if any.
func (r *mongoExecutionRepository) GetBySlotDate(ctx context.Context, slotID primitive.ObjectID, date domain.Date) (*domain.Execution, error) {
	var execution domain.Execution
	filter := bson.M{
		"slotId": slotID,
		"date":   string(date),
	}

	err := r.collection.FindOne(ctx, filter).Decode(&execution)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &execution, nil
}

// ListRange retrieves executions within a date window, newest day first.
// Either end may be zero to leave the range open.
func (r *mongoExecutionRepository) ListRange(ctx context.Context, from, to domain.Date) ([]domain.Execution, error) {
	filter := bson.M{}
	if rangeFilter := dateRangeFilter(from, to); len(rangeFilter) > 0 {
		filter["date"] = rangeFilter
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "recordedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var executions []domain.Execution
	if err = cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

// ListByMember retrieves the practice history of one member, newest first.
// memberIds is a multikey index, so this stays cheap as history grows.
func (r *mongoExecutionRepository) ListByMember(ctx context.Context, memberID primitive.ObjectID) ([]domain.Execution, error) {
	filter := bson.M{"memberIds": memberID}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var executions []domain.Execution
	if err = cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

// ListByTemplate retrieves every execution of one template, newest first.
func (r *mongoExecutionRepository) ListByTemplate(ctx context.Context, templateID primitive.ObjectID) ([]domain.Execution, error) {
	filter := bson.M{"templateId": templateID}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var executions []domain.Execution
	if err = cursor.All(ctx, &executions); err != nil {
		return nil, err
	}
	return executions, nil
}

// CountByTemplateSince counts executions of the template dated on or after
// the given day.
func (r *mongoExecutionRepository) CountByTemplateSince(ctx context.Context, templateID primitive.ObjectID, since domain.Date) (int, error) {
	filter := bson.M{
		"templateId": templateID,
		"date":       bson.M{"$gte": string(since)},
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// CountsByTemplate tallies the full history per template in one aggregation.
func (r *mongoExecutionRepository) CountsByTemplate(ctx context.Context) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$templateId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		TemplateID primitive.ObjectID `bson:"_id"`
		Count      int                `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		counts[row.TemplateID] = row.Count
	}
	return counts, nil
}

// EnsureExecutionIndexes creates the executions indexes. The unique
// (slotId, date) index backs the one-record-per-class rule and, unlike the
// allocations index, it is unconditional: history has no cancelled state.
func EnsureExecutionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "slotId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().
				SetName("one_execution_per_slot_date").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "date", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "templateId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index(),
		},
		{
			// Multikey index over the attendance list
			Keys:    bson.D{{Key: "memberIds", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
