package broadcast

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"chat-relay/internal/logger"
)

var ErrHubClosed = errors.New("broadcast hub closed")

// Publisher 는 방(room) 단위로 메시지를 내보낸다.
// Hub 는 같은 프로세스 안에서, Relay 는 eventbus 를 거쳐 모든 인스턴스로 보낸다.
type Publisher interface {
	Publish(ctx context.Context, room string, payload []byte) error
}

// Member 는 한 방에 참여한 연결 하나다. send 는 Hub 만 닫는다.
type Member struct {
	ID   string
	Room string
	send chan []byte
}

// Send 는 이 멤버에게 보낼 메시지 큐다. Hub 가 멤버를 내보내면 닫힌다.
func (m *Member) Send() <-chan []byte { return m.send }

type envelope struct {
	room    string
	payload []byte
}

type sizeQuery struct {
	room  string
	reply chan int
}

// Hub 는 방 목록을 소유하는 단일 고루틴이다. 참여/이탈/발행은 채널로 직렬화된다.
type Hub struct {
	rooms      map[string]map[*Member]struct{}
	register   chan *Member
	unregister chan *Member
	publish    chan envelope
	sizes      chan sizeQuery
	sendBuffer int
	done       chan struct{}
}

func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		rooms:      map[string]map[*Member]struct{}{},
		register:   make(chan *Member),
		unregister: make(chan *Member),
		publish:    make(chan envelope),
		sizes:      make(chan sizeQuery),
		sendBuffer: sendBuffer,
		done:       make(chan struct{}),
	}
}

// Run 은 ctx 가 끝날 때까지 블록한다. 종료 시 모든 멤버의 큐를 닫는다.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, members := range h.rooms {
				for m := range members {
					close(m.send)
				}
			}
			h.rooms = map[string]map[*Member]struct{}{}
			return

		case m := <-h.register:
			members, ok := h.rooms[m.Room]
			if !ok {
				members = map[*Member]struct{}{}
				h.rooms[m.Room] = members
			}
			members[m] = struct{}{}
			logger.DebugWithFields("broadcast member joined", logger.Fields{
				"room":      m.Room,
				"member_id": m.ID,
				"members":   len(members),
			})

		case m := <-h.unregister:
			h.remove(m)

		case env := <-h.publish:
			for m := range h.rooms[env.room] {
				select {
				case m.send <- env.payload:
				default:
					// 큐가 가득 찬 멤버는 방에서 내보낸다.
					logger.WarnWithFields("broadcast member dropped", logger.Fields{
						"room":      m.Room,
						"member_id": m.ID,
						"reason":    "send buffer full",
					})
					h.remove(m)
				}
			}

		case q := <-h.sizes:
			q.reply <- len(h.rooms[q.room])
		}
	}
}

func (h *Hub) remove(m *Member) {
	members, ok := h.rooms[m.Room]
	if !ok {
		return
	}
	if _, ok := members[m]; !ok {
		return
	}
	delete(members, m)
	close(m.send)
	if len(members) == 0 {
		delete(h.rooms, m.Room)
	}
}

// Join 은 새 멤버를 room 에 등록한다.
func (h *Hub) Join(ctx context.Context, room string) (*Member, error) {
	m := &Member{ID: uuid.NewString(), Room: room, send: make(chan []byte, h.sendBuffer)}
	select {
	case h.register <- m:
		return m, nil
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Leave 는 여러 번 호출해도 된다.
func (h *Hub) Leave(m *Member) {
	select {
	case h.unregister <- m:
	case <-h.done:
	}
}

// Publish 는 room 의 모든 멤버(보낸 사람 포함)에게 payload 를 전달한다.
func (h *Hub) Publish(ctx context.Context, room string, payload []byte) error {
	select {
	case h.publish <- envelope{room: room, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoomSize 는 room 에 현재 참여 중인 멤버 수다. 테스트에서 참여 완료를 기다릴 때 쓴다.
func (h *Hub) RoomSize(ctx context.Context, room string) (int, error) {
	q := sizeQuery{room: room, reply: make(chan int, 1)}
	select {
	case h.sizes <- q:
		return <-q.reply, nil
	case <-h.done:
		return 0, ErrHubClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
