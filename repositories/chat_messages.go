package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-relay/db"
	"chat-relay/models"
)

type ChatMessageRepository struct {
	col *mongo.Collection
}

func NewChatMessageRepository(d *mongo.Database) *ChatMessageRepository {
	return &ChatMessageRepository{col: d.Collection(db.CollectionMessages)}
}

// Append stores a message at the end of the session's sequence.
func (r *ChatMessageRepository) Append(ctx context.Context, sessionID int64, role, content string) (*models.ChatMessage, error) {
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("invalid message role %q", role)
	}
	m := &models.ChatMessage{
		ID:        primitive.NewObjectID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return m, nil
}

// ListBySession returns the session's messages oldest first.
// _id breaks ties between equal timestamps.
func (r *ChatMessageRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.ChatMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
