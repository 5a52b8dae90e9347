package services

import (
	"context"

	"chat-relay/cmd/api/clients/completionclient"
	"chat-relay/models"
)

// SessionStore 는 repositories.ChatSessionRepository 가 구현한다.
// 없는 세션은 repositories.ErrNotFound 로 알린다.
type SessionStore interface {
	Create(ctx context.Context, ownerCode string) (*models.ChatSession, error)
	FindByID(ctx context.Context, id int64) (*models.ChatSession, error)
	FindByIDAndOwner(ctx context.Context, id int64, ownerCode string) (*models.ChatSession, error)
}

// MessageStore 는 repositories.ChatMessageRepository 가 구현한다.
type MessageStore interface {
	Append(ctx context.Context, sessionID int64, role, content string) (*models.ChatMessage, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)
}

type CompletionLogStore interface {
	Insert(ctx context.Context, log models.CompletionLog) error
}

// CompletionProvider 는 completionclient.Client(OpenRouter) 와 geminiclient.Client 가 구현한다.
type CompletionProvider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, messages []completionclient.Message) (string, error)
}
