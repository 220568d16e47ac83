// Command seed loads catalog snapshots (exercises, timetable slots) into
// MongoDB. Snapshots are JSON exports from the curriculum tooling; entries
// carry stable ids so plan items and execution history keep resolving across
// re-seeds. Run it against a quiet database:
//
//	seed -config . -exercises exercises.json -slots slots.json
package main

import (
	"alcyxob/yoga-studio/internal/config"
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/logger"
	"alcyxob/yoga-studio/internal/repository/mongo"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	exercisesPath := flag.String("exercises", "", "path to an exercise catalog snapshot (JSON)")
	slotsPath := flag.String("slots", "", "path to a timetable slot snapshot (JSON)")
	flag.Parse()

	if *exercisesPath == "" && *slotsPath == "" {
		flag.Usage()
		log.Fatal("FATAL: nothing to seed, pass -exercises and/or -slots")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	logg, err := logger.New(cfg.Log.JSON)
	if err != nil {
		log.Fatalf("FATAL: Could not initialize logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logg.Fatalw("could not connect to MongoDB", "error", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logg.Errorw("failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	seeder := mongo.NewMongoCatalogSeeder(appDB)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *exercisesPath != "" {
		exercises, err := loadExercises(*exercisesPath)
		if err != nil {
			logg.Fatalw("exercise snapshot rejected", "path", *exercisesPath, "error", err)
		}
		if err := seeder.ReplaceExercises(ctx, exercises); err != nil {
			logg.Fatalw("could not replace exercises", "error", err)
		}
		// Drop wipes indexes along with the data, so re-create them here.
		if err := mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercises")); err != nil {
			logg.Warnw("could not create exercise indexes", "error", err)
		}
		logg.Infow("exercise catalog replaced", "count", len(exercises))
	}

	if *slotsPath != "" {
		slots, err := loadSlots(*slotsPath)
		if err != nil {
			logg.Fatalw("slot snapshot rejected", "path", *slotsPath, "error", err)
		}
		if err := seeder.ReplaceSlots(ctx, slots); err != nil {
			logg.Fatalw("could not replace slots", "error", err)
		}
		if err := mongo.EnsureSlotIndexes(ctx, appDB.Collection("slots")); err != nil {
			logg.Warnw("could not create slot indexes", "error", err)
		}
		logg.Infow("timetable slots replaced", "count", len(slots))
	}
}

// loadExercises parses and validates an exercise snapshot. Beyond per-entry
// validation, flow steps must resolve to ids present in the same snapshot,
// otherwise a flow would point at nothing the moment the seed lands.
func loadExercises(path string) ([]domain.Exercise, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var exercises []domain.Exercise
	if err := json.Unmarshal(data, &exercises); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	ids := make(map[primitive.ObjectID]bool, len(exercises))
	for i := range exercises {
		ex := &exercises[i]
		if ex.ID == primitive.NilObjectID {
			return nil, fmt.Errorf("exercise %q: entries must carry an id", ex.Name)
		}
		if ids[ex.ID] {
			return nil, fmt.Errorf("exercise %q: duplicate id %s", ex.Name, ex.ID.Hex())
		}
		ids[ex.ID] = true
		if err := ex.Validate(); err != nil {
			return nil, err
		}
	}
	for i := range exercises {
		ex := &exercises[i]
		for _, stepID := range ex.StepIDs {
			if !ids[stepID] {
				return nil, fmt.Errorf("exercise %q: flow step %s is not in the snapshot", ex.Name, stepID.Hex())
			}
		}
	}
	return exercises, nil
}

// loadSlots parses and validates a timetable snapshot.
func loadSlots(path string) ([]domain.Slot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var slots []domain.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	ids := make(map[primitive.ObjectID]bool, len(slots))
	for i := range slots {
		sl := &slots[i]
		if sl.ID == primitive.NilObjectID {
			return nil, fmt.Errorf("slot %q: entries must carry an id", sl.Name)
		}
		if ids[sl.ID] {
			return nil, fmt.Errorf("slot %q: duplicate id %s", sl.Name, sl.ID.Hex())
		}
		ids[sl.ID] = true
		if sl.Name == "" {
			return nil, fmt.Errorf("slot %s: name is required", sl.ID.Hex())
		}
		if _, err := time.Parse("15:04", sl.StartTime); err != nil {
			return nil, fmt.Errorf("slot %q: start time %q is not HH:MM", sl.Name, sl.StartTime)
		}
		if sl.DurationMin <= 0 {
			return nil, fmt.Errorf("slot %q: duration must be positive", sl.Name)
		}
	}
	return slots, nil
}
