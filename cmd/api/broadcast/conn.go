package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/cmd/api/dto"
	"chat-relay/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Server 는 WebSocket 연결을 받아 방에 참여시키고, 들어온 프레임을 Publisher 로 내보낸다.
type Server struct {
	hub            *Hub
	publisher      Publisher
	upgrader       websocket.Upgrader
	publishTimeout time.Duration
}

// NewServer 는 checkOrigin 이 nil 이면 모든 Origin 을 허용한다.
func NewServer(hub *Hub, publisher Publisher, checkOrigin func(r *http.Request) bool) *Server {
	if publisher == nil {
		publisher = hub
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		hub:            hub,
		publisher:      publisher,
		publishTimeout: writeWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve 는 연결이 끝날 때까지 블록한다.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, room string) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	ctx := context.WithoutCancel(r.Context())
	member, err := s.hub.Join(ctx, room)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return err
	}

	go writePump(conn, member)
	s.readPump(ctx, conn, member)
	return nil
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, m *Member) {
	defer func() {
		s.hub.Leave(m)
		conn.Close()
		logger.DebugWithFields("broadcast member left", logger.Fields{"room": m.Room, "member_id": m.ID})
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Log.Warnf("websocket read error room=%s member_id=%s err=%v", m.Room, m.ID, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			logger.WarnWithFields("broadcast frame dropped", logger.Fields{"room": m.Room, "member_id": m.ID, "reason": "non-text frame"})
			continue
		}

		payload, err := EncodeFrame(data)
		if err != nil {
			logger.WarnWithFields("broadcast frame dropped", logger.Fields{"room": m.Room, "member_id": m.ID, "reason": err.Error()})
			continue
		}
		if err := s.publish(ctx, m.Room, payload); err != nil {
			logger.WarnWithFields("broadcast publish failed", logger.Fields{"room": m.Room, "member_id": m.ID, "error": err.Error()})
			if errors.Is(err, ErrHubClosed) {
				return
			}
		}
	}
}

// publish 는 Publisher 가 멈춰도 읽기 루프가 publishTimeout 이상 막히지 않게 한다.
func (s *Server) publish(ctx context.Context, room string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	return s.publisher.Publish(ctx, room, payload)
}

// writePump 는 큐가 닫히면 close 프레임을 보내고 끝낸다.
func writePump(conn *websocket.Conn, m *Member) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-m.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var errInvalidFrame = errors.New("frame is not a JSON object with a string message")

// EncodeFrame 은 클라이언트 프레임에서 message 만 꺼내 {"message": ...} 로 다시 인코딩한다.
// message 가 없으면 빈 문자열이 된다.
func EncodeFrame(data []byte) ([]byte, error) {
	var in struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errInvalidFrame
	}
	out := dto.WSMessageDTO{}
	if in.Message != nil {
		out.Message = *in.Message
	}
	return json.Marshal(out)
}
