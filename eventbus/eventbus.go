package eventbus

import (
	"context"
	"encoding/json"
	"errors"
)

// Event 는 버스를 통해 전달되는 메시지 봉투다.
type Event struct {
	ID      string          `json:"id"`
	Key     string          `json:"key,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// EventHandler 는 구독한 이벤트를 처리하는 함수 시그니처다.
// 에러는 로그로만 남기고 재시도하지 않는다.
type EventHandler func(ctx context.Context, event Event) error

// EventBus 는 이벤트 발행/구독의 추상화다.
type EventBus interface {
	Publish(ctx context.Context, topic string, event Event) error
	// Subscribe 는 ctx 가 끝날 때까지 블록하며 topic 의 이벤트를 handler 로 넘긴다.
	Subscribe(ctx context.Context, groupID string, topic string, handler EventHandler) error
	Close()
}

var ErrClosed = errors.New("eventbus closed")
