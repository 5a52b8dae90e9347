package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ErrMissingHeader = errors.New("missing_authorization_header")
	ErrInvalidFormat = errors.New("invalid_authorization_header")
	ErrEmptyToken    = errors.New("empty_token")
	ErrInvalidToken  = errors.New("invalid_token")
)

// ContextKeyUserCode 는 인증 미들웨어가 gin 컨텍스트에 user_code 를 저장할 때 쓰는 키다.
const ContextKeyUserCode = "user_code"

// TokenParser 는 액세스 토큰에서 (user_code, role) 을 꺼낸다. *JWTManager 가 구현한다.
type TokenParser interface {
	Parse(token string) (string, string, error)
}

// ExtractBearerToken extracts the Bearer token from the Authorization header.
func ExtractBearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidFormat
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// Authenticate 는 Authorization 헤더를 검증하고 user_code 를 반환한다.
// 토큰 파싱 실패는 원인과 관계없이 ErrInvalidToken 으로 정규화한다.
func Authenticate(c *gin.Context, parser TokenParser) (string, error) {
	token, err := ExtractBearerToken(c)
	if err != nil {
		return "", err
	}
	userCode, _, err := parser.Parse(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return userCode, nil
}

// UserCodeFromContext 는 미들웨어가 저장한 user_code 를 꺼낸다. 익명 요청이면 빈 문자열이다.
func UserCodeFromContext(c *gin.Context) string {
	return c.GetString(ContextKeyUserCode)
}

// AbortWithUnauthorized aborts the request with 401 status and error JSON.
func AbortWithUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}
