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

const allocationCollectionName = "allocations"

// mongoAllocationRepository implements repository.AllocationRepository
type mongoAllocationRepository struct {
	collection *mongo.Collection
}

// NewMongoAllocationRepository creates a new Allocation repository backed by MongoDB.
func NewMongoAllocationRepository(db *mongo.Database) repository.AllocationRepository {
	return &mongoAllocationRepository{
		collection: db.Collection(allocationCollectionName),
	}
}

// dateRangeFilter builds a {$gte, $lte} filter over the string date field.
// Dates are fixed-width YYYY-MM-DD, so lexicographic range queries are
// equivalent to date comparisons. A zero end leaves that side open.
func dateRangeFilter(from, to domain.Date) bson.M {
	rangeFilter := bson.M{}
	if !from.IsZero() {
		rangeFilter["$gte"] = string(from)
	}
	if !to.IsZero() {
		rangeFilter["$lte"] = string(to)
	}
	return rangeFilter
}

// Create inserts a new allocation in scheduled state. The partial unique
// index on (slotId, date) turns a concurrent double-booking into a
// duplicate-key error, which we surface as repository.ErrDuplicateKey.
func (r *mongoAllocationRepository) Create(ctx context.Context, allocation *domain.Allocation) (primitive.ObjectID, error) {
	if allocation.TemplateID == primitive.NilObjectID || allocation.SlotID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("allocation template ID and slot ID are required")
	}
	if allocation.Date.IsZero() {
		return primitive.NilObjectID, errors.New("allocation date is required")
	}

	allocation.ID = primitive.NewObjectID()
	allocation.Status = domain.AllocationScheduled
	allocation.Active = true
	now := time.Now().UTC()
	allocation.CreatedAt = now
	allocation.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, allocation)
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

// GetByID retrieves an allocation by its ID.
func (r *mongoAllocationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Allocation, error) {
	var allocation domain.Allocation
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&allocation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

// GetActiveBySlotDate returns the one non-cancelled allocation occupying the
// slot on the given day, if any.
func (r *mongoAllocationRepository) GetActiveBySlotDate(ctx context.Context, slotID primitive.ObjectID, date domain.Date) (*domain.Allocation, error) {
	var allocation domain.Allocation
	filter := bson.M{
		"slotId": slotID,
		"date":   string(date),
		"active": true,
	}

	err := r.collection.FindOne(ctx, filter).Decode(&allocation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

// ListByDate retrieves all allocations for one calendar day, cancelled ones
// included; callers filter by status if they need to.
func (r *mongoAllocationRepository) ListByDate(ctx context.Context, date domain.Date) ([]domain.Allocation, error) {
	filter := bson.M{"date": string(date)}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var allocations []domain.Allocation
	if err = cursor.All(ctx, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

// ListRange retrieves allocations within a date window, oldest day first.
func (r *mongoAllocationRepository) ListRange(ctx context.Context, from, to domain.Date) ([]domain.Allocation, error) {
	filter := bson.M{}
	if rangeFilter := dateRangeFilter(from, to); len(rangeFilter) > 0 {
		filter["date"] = rangeFilter
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var allocations []domain.Allocation
	if err = cursor.All(ctx, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

// ListScheduledThrough retrieves allocations still marked scheduled with a
// date on or before the given day. The reconciler walks these looking for
// sessions that were recorded but never flipped to executed.
func (r *mongoAllocationRepository) ListScheduledThrough(ctx context.Context, date domain.Date) ([]domain.Allocation, error) {
	filter := bson.M{
		"status": domain.AllocationScheduled,
		"date":   bson.M{"$lte": string(date)},
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var allocations []domain.Allocation
	if err = cursor.All(ctx, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

// MarkExecuted transitions scheduled -> executed and links the execution.
// The filter includes the status, so a cancelled or already-executed
// allocation never matches; the caller disambiguates the ErrNotFound.
func (r *mongoAllocationRepository) MarkExecuted(ctx context.Context, id, executionID primitive.ObjectID) error {
	filter := bson.M{
		"_id":    id,
		"status": domain.AllocationScheduled,
	}
	update := bson.M{
		"$set": bson.M{
			"status":      domain.AllocationExecuted,
			"executionId": executionID,
			"updatedAt":   time.Now().UTC(),
		},
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

// Cancel transitions scheduled -> cancelled. Clearing the active flag
// releases the (slotId, date) unique key so the day can be re-planned.
func (r *mongoAllocationRepository) Cancel(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":    id,
		"status": domain.AllocationScheduled,
	}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.AllocationCancelled,
			"active":    false,
			"updatedAt": time.Now().UTC(),
		},
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

// EnsureAllocationIndexes creates the allocations indexes. The partial unique
// index is the scheduling invariant itself — one live session plan per slot
// per day — so callers should treat a failure here as fatal.
//
// The partial filter matches on the active flag rather than status, because
// partialFilterExpression does not support $ne over the status values.
func EnsureAllocationIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "slotId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().
				SetName("one_active_per_slot_date").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "templateId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
