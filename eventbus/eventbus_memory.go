package eventbus

import (
	"context"
	"sync"
)

// MemoryEventBus 는 한 프로세스 안에서만 동작하는 EventBus 다.
// Relay 와 구독 로직을 브로커 없이 테스트할 때 쓴다. groupID 는 무시하고 모든 구독자에게 전달한다.
type MemoryEventBus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	closed bool
	buffer int
}

func NewMemoryEventBus(buffer int) *MemoryEventBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryEventBus{subs: map[string][]chan Event{}, buffer: buffer}
}

// Publish 는 구독자 큐가 가득 차 있으면 그 구독자에 대해서만 이벤트를 버린다.
func (m *MemoryEventBus) Publish(ctx context.Context, topic string, event Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for _, ch := range m.subs[topic] {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func (m *MemoryEventBus) Subscribe(ctx context.Context, _ string, topic string, handler EventHandler) error {
	ch := make(chan Event, m.buffer)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.subs[topic] = append(m.subs[topic], ch)
	m.mu.Unlock()

	defer m.remove(topic, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-ch:
			if !ok {
				return ErrClosed
			}
			_ = handler(ctx, evt)
		}
	}
}

func (m *MemoryEventBus) remove(topic string, ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[topic]
	for i, c := range list {
		if c == ch {
			m.subs[topic] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Close 이후의 Publish/Subscribe 는 ErrClosed 를 반환한다.
func (m *MemoryEventBus) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for topic, list := range m.subs {
		for _, ch := range list {
			close(ch)
		}
		delete(m.subs, topic)
	}
}
