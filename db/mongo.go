package db

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"chat-relay/internal/logger"
	"chat-relay/config"
)

const (
	CollectionSessions       = "chat_sessions"
	CollectionMessages       = "chat_messages"
	CollectionCounters       = "counters"
	CollectionCompletionLogs = "completion_logs"
)

var (
	clientOnce sync.Once
	client     *mongo.Client
	db         *mongo.Database
)

// Init initializes the global Mongo client and database using config values.
func Init(ctx context.Context) error {
	var initErr error
	clientOnce.Do(func() {
		cfg := config.GetConfig()

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cl, d, err := Connect(ctx, cfg.MongoURI, cfg.Mongo.DBName)
		if err != nil {
			initErr = err
			return
		}
		client = cl
		db = d
		logger.Log.Info("MongoDB connected and indexes ensured")
	})
	return initErr
}

// Connect opens a client, verifies it with a ping and ensures indexes on dbName.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	cl, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := cl.Ping(ctx, readpref.Primary()); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, nil, err
	}
	d := cl.Database(dbName)
	if err := ensureIndexes(ctx, d); err != nil {
		_ = cl.Disconnect(context.Background())
		return nil, nil, err
	}
	return cl, d, nil
}

func Database() *mongo.Database { return db }

// Ping checks the global client against the primary.
func Ping(ctx context.Context) error {
	if client == nil {
		return mongo.ErrClientDisconnected
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the global client if it was initialized.
func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	// chat_sessions: owner lookup for export
	{
		mi := mongo.IndexModel{
			Keys:    bson.D{{Key: "owner_code", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_owner_code"),
		}
		if _, err := d.Collection(CollectionSessions).Indexes().CreateOne(ctx, mi); err != nil {
			return err
		}
	}

	// chat_messages: ordered scan per session
	{
		if _, err := d.Collection(CollectionMessages).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("idx_session_timestamp"),
		}); err != nil {
			return err
		}
	}

	// completion_logs: per session, newest first
	{
		if _, err := d.Collection(CollectionCompletionLogs).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "requested_at", Value: -1}},
			Options: options.Index().SetName("idx_session_requested_at"),
		}); err != nil {
			return err
		}
	}
	return nil
}
