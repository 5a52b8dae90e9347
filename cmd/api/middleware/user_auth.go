package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-relay/cmd/api/auth"
	"chat-relay/internal/logger"
)

var errAuthDisabled = errors.New("auth_disabled")

// UserAuth 는 Bearer JWT 가 필수인 엔드포인트에 사용한다.
// 검증에 성공하면 user_code 를 컨텍스트에 저장한다.
// parser 가 nil 이면(JWT_SECRET 미설정) 모든 요청을 401 로 거절한다.
func UserAuth(parser auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if parser == nil {
			auth.AbortWithUnauthorized(c, errAuthDisabled)
			return
		}
		userCode, err := auth.Authenticate(c, parser)
		if err != nil {
			logger.Log.Debugf("user auth rejected path=%s err=%v", c.Request.URL.Path, err)
			auth.AbortWithUnauthorized(c, err)
			return
		}
		c.Set(auth.ContextKeyUserCode, userCode)
		c.Next()
	}
}

// OptionalUserAuth 는 익명 접근을 허용하는 엔드포인트에 사용한다.
//   - Authorization 헤더가 없으면 익명으로 통과한다.
//   - 헤더가 있으나 유효하지 않으면 401 로 거절한다.
func OptionalUserAuth(parser auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" || parser == nil {
			c.Next()
			return
		}
		userCode, err := auth.Authenticate(c, parser)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(auth.ContextKeyUserCode, userCode)
		c.Next()
	}
}
