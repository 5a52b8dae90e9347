package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"chat-relay/db"
	"chat-relay/models"
)

type CompletionLogRepository struct {
	col *mongo.Collection
}

func NewCompletionLogRepository(d *mongo.Database) *CompletionLogRepository {
	return &CompletionLogRepository{col: d.Collection(db.CollectionCompletionLogs)}
}

func (r *CompletionLogRepository) Insert(ctx context.Context, log models.CompletionLog) error {
	if log.RequestedAt.IsZero() {
		log.RequestedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, log)
	return err
}
