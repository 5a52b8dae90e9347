package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompletionLog stores one upstream completion call (system monitoring purpose)
// Collection: completion_logs
type CompletionLog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID    int64              `bson:"session_id" json:"session_id"`
	Provider     string             `bson:"provider" json:"provider"`
	ModelName    string             `bson:"model_name" json:"model_name"`
	MessageCount int                `bson:"message_count" json:"message_count"`
	DurationMs   int64              `bson:"duration_ms" json:"duration_ms"`
	Success      bool               `bson:"success" json:"success"`
	StatusCode   int                `bson:"status_code,omitempty" json:"status_code,omitempty"`
	ErrorCode    *string            `bson:"error_code,omitempty" json:"error_code,omitempty"`
	ReplyExcerpt string             `bson:"reply_excerpt" json:"reply_excerpt"`
	RequestedAt  time.Time          `bson:"requested_at" json:"requested_at"`
	CompletedAt  time.Time          `bson:"completed_at" json:"completed_at"`
}
