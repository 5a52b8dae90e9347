package services

import (
	"errors"
	"net/http"
)

// ErrorKind 는 요청/응답 경로의 에러 분류다.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindValidation
	KindUpstream
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUpstream:
		return "upstream"
	case KindNotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// 클라이언트에 노출되는 에러 코드. 원인(Cause)은 로그에만 남긴다.
const (
	CodeInvalidRequest       = "invalid_request"
	CodeMessageEmpty         = "message_empty"
	CodeUpstreamInvalidJSON  = "upstream_invalid_json"
	CodeUpstreamStatusError  = "upstream_status_error"
	CodeUpstreamMissingReply = "upstream_missing_reply"
	CodeUpstreamUnreachable  = "upstream_unreachable"
	CodeSessionNotFound      = "session_not_found"
	CodeInternal             = "internal_error"
)

var ErrSessionNotFound = errors.New("session not found")

type ChatError struct {
	Kind  ErrorKind
	Code  string
	Cause error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return e.Code + ": " + e.Cause.Error()
	}
	return e.Code
}

func (e *ChatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// StatusCode 는 에러 분류를 HTTP 상태 코드로 바꾼다.
func (e *ChatError) StatusCode() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AsChatError 는 err 에서 *ChatError 를 꺼낸다. 분류되지 않은 에러는 Unexpected 로 본다.
func AsChatError(err error) *ChatError {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr
	}
	return newChatError(KindUnexpected, CodeInternal, err)
}

func newChatError(kind ErrorKind, code string, cause error) *ChatError {
	return &ChatError{Kind: kind, Code: code, Cause: cause}
}
