package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-relay/cmd/api/auth"
	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/dto"
	"chat-relay/cmd/api/services"
	"chat-relay/cmd/api/trace"
	"chat-relay/internal/logger"
)

const sessionNotFoundBody = "Session not found"

// ClearConversationHandler godoc
// @Summary      대화 초기화
// @Description  현재 세션을 이전 목록으로 옮기고 새 세션을 시작합니다. 아무 데이터도 삭제하지 않습니다.
// @Tags         history
// @Produce      json
// @Param        X-Chat-State  header  string  false  "클라이언트 세션 상태 (base64url JSON)"
// @Success      200  {object}  dto.ClearConversationResponseDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /api/clear_conversation/ [post]
func ClearConversationHandler(svc *services.HistoryService, codec clientstate.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.Clear(c.Request.Context(), codec.Read(c), auth.UserCodeFromContext(c))
		if err != nil {
			internalError(c, "clear conversation failed", err)
			return
		}
		codec.Write(c, res.State)
		c.JSON(http.StatusOK, dto.ClearConversationResponseDTO{
			Status:       services.StatusConversationCleared,
			NewSessionID: res.NewSessionID,
		})
	}
}

// ChatHistoryHandler godoc
// @Summary      이전 세션 조회
// @Description  클라이언트 상태에 기록된 이전 세션들을 순서대로 메시지와 함께 반환합니다.
// @Tags         history
// @Produce      json
// @Param        X-Chat-State  header  string  false  "클라이언트 세션 상태 (base64url JSON)"
// @Success      200  {object}  dto.HistoryResponseDTO
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /api/chat_history/ [get]
func ChatHistoryHandler(svc *services.HistoryService, codec clientstate.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.History(c.Request.Context(), codec.Read(c), auth.UserCodeFromContext(c))
		if err != nil {
			internalError(c, "load chat history failed", err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// ExportChatHandler godoc
// @Summary      세션 내보내기
// @Description  본인 소유 세션을 평문 대화록 파일로 내려받습니다.
// @Tags         history
// @Security     BearerAuth
// @Param        session_id  path  int  true  "세션 ID"
// @Produce      plain
// @Success      200  {string}  string  "대화록"
// @Failure      401  {object}  dto.ErrorResponseDTO
// @Failure      404  {string}  string  "Session not found"
// @Failure      500  {object}  dto.ErrorResponseDTO
// @Router       /api/export_chat/{session_id}/ [get]
func ExportChatHandler(svc *services.HistoryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
		if err != nil || id <= 0 {
			c.String(http.StatusNotFound, sessionNotFoundBody)
			return
		}

		file, err := svc.Export(c.Request.Context(), id, auth.UserCodeFromContext(c))
		if errors.Is(err, services.ErrSessionNotFound) {
			c.String(http.StatusNotFound, sessionNotFoundBody)
			return
		}
		if err != nil {
			internalError(c, "export chat failed", err)
			return
		}

		c.Header("Content-Disposition", "attachment; filename="+file.Filename)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(file.Content))
	}
}

// internalError 는 원인을 로그에만 남기고 클라이언트에는 코드만 보낸다.
func internalError(c *gin.Context, msg string, err error) {
	_ = c.Error(err)
	logger.ErrorWithFields(msg, logger.Fields{
		"request_id": trace.RequestIDFromContext(c.Request.Context()),
		"path":       c.Request.URL.Path,
		"error":      err.Error(),
	})
	c.JSON(http.StatusInternalServerError, dto.ErrorResponseDTO{Error: services.CodeInternal})
}
