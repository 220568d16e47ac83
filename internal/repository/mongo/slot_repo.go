package mongo

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const slotCollectionName = "slots"

// mongoSlotRepository implements repository.SlotRepository. Like the exercise
// catalog, the timetable is reference data loaded by the seed tool.
type mongoSlotRepository struct {
	collection *mongo.Collection
}

// NewMongoSlotRepository creates a new Slot repository backed by MongoDB.
func NewMongoSlotRepository(db *mongo.Database) repository.SlotRepository {
	return &mongoSlotRepository{
		collection: db.Collection(slotCollectionName),
	}
}

// GetByID retrieves a slot by its ID.
func (r *mongoSlotRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Slot, error) {
	var slot domain.Slot
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &slot, nil
}

// List retrieves the timetable in start-time order.
func (r *mongoSlotRepository) List(ctx context.Context, activeOnly bool) ([]domain.Slot, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var slots []domain.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// EnsureSlotIndexes creates necessary indexes for the slots collection.
func EnsureSlotIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "startTime", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
