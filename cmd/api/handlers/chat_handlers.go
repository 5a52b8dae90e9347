package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/cmd/api/auth"
	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/dto"
	"chat-relay/cmd/api/services"
)

// ChatHandler godoc
// @Summary      메시지 보내기
// @Description  현재 세션에 사용자 메시지를 저장하고, 전체 대화를 완성 API 로 보내 응답과 후속 질문 제안을 돌려줍니다.
// @Description  세션 상태는 chat_state 쿠키 또는 X-Chat-State 헤더로 주고받습니다.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        X-Chat-State  header  string              false  "클라이언트 세션 상태 (base64url JSON)"
// @Param        body          body    dto.ChatRequestDTO  true   "사용자 메시지"
// @Success      200  {object}  dto.ChatResponseDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /api/chat/ [post]
func ChatHandler(svc *services.ChatService, codec clientstate.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.ChatRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: services.CodeInvalidRequest})
			return
		}

		res, err := svc.Chat(c.Request.Context(), services.ChatInput{
			Message:  req.Message,
			Language: req.Language,
			State:    codec.Read(c),
			UserCode: auth.UserCodeFromContext(c),
		})
		codec.Write(c, res.State)

		if err != nil {
			_ = c.Error(err)
			chatErr := services.AsChatError(err)
			c.JSON(chatErr.StatusCode(), dto.ErrorResponseDTO{Error: chatErr.Code})
			return
		}

		c.JSON(http.StatusOK, dto.ChatResponseDTO{Reply: res.Reply, Suggestions: res.Suggestions})
	}
}
