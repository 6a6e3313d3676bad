package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/leviathanch/Google-Companion/domain/entities"
	"github.com/leviathanch/Google-Companion/domain/repositories"
)

type TranscriptRepository struct {
	collection *mongo.Collection
}

var _ repositories.TranscriptSink = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a MongoDB-backed transcript sink.
func NewTranscriptRepository(db *mongo.Database) *TranscriptRepository {
	return &TranscriptRepository{
		collection: db.Collection("transcripts"),
	}
}

// SaveTranscript implements repositories.TranscriptSink
func (r *TranscriptRepository) SaveTranscript(ctx context.Context, msg entities.TranscriptMessage) error {
	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// Recent returns the latest transcript messages, oldest first.
func (r *TranscriptRepository) Recent(ctx context.Context, limit int64) ([]entities.TranscriptMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transcripts: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []entities.TranscriptMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode transcripts: %w", err)
	}

	// Newest-first from the index, reverse for display order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
