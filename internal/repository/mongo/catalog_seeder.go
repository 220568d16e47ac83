package mongo

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoCatalogSeeder implements repository.CatalogSeeder. Reference data
// (exercise catalog, timetable slots) is exported from the curriculum tooling
// with stable ids, so loading a snapshot is a wholesale replace.
type mongoCatalogSeeder struct {
	exercises *mongo.Collection
	slots     *mongo.Collection
}

// NewMongoCatalogSeeder creates a seeder writing to the exercises and slots
// collections.
func NewMongoCatalogSeeder(db *mongo.Database) repository.CatalogSeeder {
	return &mongoCatalogSeeder{
		exercises: db.Collection(exerciseCollectionName),
		slots:     db.Collection(slotCollectionName),
	}
}

// ReplaceExercises drops the current catalog and inserts the snapshot.
// Entries must arrive with their ids already set: plan items and execution
// snapshots reference exercises by id, so ids have to survive re-seeding.
// Drop-and-insert is not atomic; the seed tool runs against a quiet database
// during maintenance, which is acceptable for reference data.
func (s *mongoCatalogSeeder) ReplaceExercises(ctx context.Context, exercises []domain.Exercise) error {
	docs := make([]interface{}, 0, len(exercises))
	now := time.Now().UTC()
	for i := range exercises {
		ex := exercises[i]
		if ex.ID == primitive.NilObjectID {
			return fmt.Errorf("exercise %q: snapshot entries must carry an id", ex.Name)
		}
		if ex.CreatedAt.IsZero() {
			ex.CreatedAt = now
		}
		ex.UpdatedAt = now
		docs = append(docs, ex)
	}

	if err := s.exercises.Drop(ctx); err != nil {
		return fmt.Errorf("dropping exercises: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.exercises.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("inserting exercises: %w", err)
	}
	return nil
}

// ReplaceSlots drops the current timetable and inserts the snapshot.
func (s *mongoCatalogSeeder) ReplaceSlots(ctx context.Context, slots []domain.Slot) error {
	docs := make([]interface{}, 0, len(slots))
	now := time.Now().UTC()
	for i := range slots {
		sl := slots[i]
		if sl.ID == primitive.NilObjectID {
			return fmt.Errorf("slot %q: snapshot entries must carry an id", sl.Name)
		}
		if sl.CreatedAt.IsZero() {
			sl.CreatedAt = now
		}
		sl.UpdatedAt = now
		docs = append(docs, sl)
	}

	if err := s.slots.Drop(ctx); err != nil {
		return fmt.Errorf("dropping slots: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := s.slots.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("inserting slots: %w", err)
	}
	return nil
}
