package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-relay/cmd/api/broadcast"
	"chat-relay/internal/logger"
)

// BroadcastHandler godoc
// @Summary      브로드캐스트 채널
// @Description  WebSocket 으로 업그레이드한 뒤 {"message": "..."} 프레임을 같은 방의 모든 연결(보낸 사람 포함)에 중계합니다.
// @Description  room 을 생략하면 기본 방(chat_room)에 참여합니다. 메시지는 저장하지 않습니다.
// @Tags         broadcast
// @Param        room  path  string  false  "방 이름"
// @Success      101  {string}  string  "Switching Protocols"
// @Failure      400  {string}  string  "Bad Request"
// @Router       /ws/chat/{room} [get]
func BroadcastHandler(server *broadcast.Server, defaultRoom string) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := c.Param("room")
		if room == "" {
			room = defaultRoom
		}
		if err := server.Serve(c.Writer, c.Request, room); err != nil {
			logger.Log.Debugf("websocket serve ended room=%s err=%v", room, err)
		}
	}
}
