package mongo

import (
	"alcyxob/yoga-studio/internal/domain"
	"alcyxob/yoga-studio/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const attendanceCollectionName = "attendance"

// attendanceDocument is the shape member management writes: one document per
// (slot, date) holding the ids of members marked present. We only read it.
type attendanceDocument struct {
	SlotID    primitive.ObjectID   `bson:"slotId"`
	Date      string               `bson:"date"`
	MemberIDs []primitive.ObjectID `bson:"memberIds"`
}

// mongoAttendanceReader implements repository.AttendanceReader
type mongoAttendanceReader struct {
	collection *mongo.Collection
}

// NewMongoAttendanceReader creates a reader over the attendance collection
// owned by the member-management system.
func NewMongoAttendanceReader(db *mongo.Database) repository.AttendanceReader {
	return &mongoAttendanceReader{
		collection: db.Collection(attendanceCollectionName),
	}
}

// GetPresentMembers returns the members marked present for the slot and date.
// A missing document just means nobody was marked yet — an empty class is not
// an error, and recording must not fail because attendance wasn't taken.
func (r *mongoAttendanceReader) GetPresentMembers(ctx context.Context, slotID primitive.ObjectID, date domain.Date) ([]primitive.ObjectID, error) {
	var doc attendanceDocument
	filter := bson.M{
		"slotId": slotID,
		"date":   string(date),
	}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []primitive.ObjectID{}, nil
		}
		return nil, err
	}
	return doc.MemberIDs, nil
}
