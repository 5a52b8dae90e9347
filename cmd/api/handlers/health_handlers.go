package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-relay/cmd/api/dto"
)

// Pinger 는 의존 저장소의 연결 상태를 확인한다. db.Ping 이 만족한다.
type Pinger func(ctx context.Context) error

// HealthHandler godoc
// @Summary      헬스체크
// @Tags         health
// @Produce      json
// @Success      200  {object}  dto.StatusResponseDTO
// @Failure      503  {object}  dto.StatusResponseDTO
// @Router       /health [get]
func HealthHandler(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if ping != nil {
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, dto.StatusResponseDTO{Status: "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, dto.StatusResponseDTO{Status: "ok"})
	}
}
