package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-relay/db"
	"chat-relay/models"
)

type ChatSessionRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewChatSessionRepository(d *mongo.Database) *ChatSessionRepository {
	return &ChatSessionRepository{
		col:      d.Collection(db.CollectionSessions),
		counters: d.Collection(db.CollectionCounters),
	}
}

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// nextID atomically allocates the next session id from the counters collection.
func (r *ChatSessionRepository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": db.CollectionSessions},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	return c.Seq, nil
}

// Create inserts a new session. ownerCode may be empty for anonymous sessions.
func (r *ChatSessionRepository) Create(ctx context.Context, ownerCode string) (*models.ChatSession, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}
	s := &models.ChatSession{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		OwnerCode: ownerCode,
	}
	if _, err := r.col.InsertOne(ctx, s); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// FindByID returns ErrNotFound if the session does not exist.
func (r *ChatSessionRepository) FindByID(ctx context.Context, id int64) (*models.ChatSession, error) {
	var s models.ChatSession
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// FindByIDAndOwner only matches a session created by ownerCode.
func (r *ChatSessionRepository) FindByIDAndOwner(ctx context.Context, id int64, ownerCode string) (*models.ChatSession, error) {
	if ownerCode == "" {
		return nil, ErrNotFound
	}
	var s models.ChatSession
	if err := r.col.FindOne(ctx, bson.M{"_id": id, "owner_code": ownerCode}).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}
