package broadcast

import (
	"context"
	"encoding/json"

	"chat-relay/eventbus"
)

type relayMessage struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Relay 는 발행을 eventbus 토픽으로 보내고, 같은 토픽을 구독해 로컬 Hub 에 전달한다.
// 인스턴스마다 groupID 가 달라야 모든 인스턴스가 같은 메시지를 받는다.
type Relay struct {
	bus   eventbus.EventBus
	topic string
	hub   *Hub
}

func NewRelay(bus eventbus.EventBus, topic string, hub *Hub) *Relay {
	return &Relay{bus: bus, topic: topic, hub: hub}
}

func (r *Relay) Publish(ctx context.Context, room string, payload []byte) error {
	evt, err := eventbus.NewJSONEvent("", room, relayMessage{Room: room, Payload: payload})
	if err != nil {
		return err
	}
	return r.bus.Publish(ctx, r.topic, evt)
}

// Run 은 ctx 가 끝날 때까지 블록한다.
func (r *Relay) Run(ctx context.Context, groupID string) error {
	return eventbus.SubscribeJSON(ctx, r.bus, groupID, r.topic, func(ctx context.Context, msg relayMessage, _ eventbus.Event) error {
		return r.hub.Publish(ctx, msg.Room, msg.Payload)
	})
}
