package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/clients/completionclient"
	"chat-relay/cmd/api/trace"
	"chat-relay/internal/logger"
	"chat-relay/models"
	"chat-relay/repositories"
)

// ChatService 는 사용자 메시지를 저장하고, 세션의 전체 대화를 완성 API 로 전달한 뒤
// 응답을 assistant 메시지로 저장한다. 재시도는 하지 않는다.
type ChatService struct {
	sessions SessionStore
	messages MessageStore
	logs     CompletionLogStore
	provider CompletionProvider
	now      func() time.Time
}

func NewChatService(sessions SessionStore, messages MessageStore, logs CompletionLogStore, provider CompletionProvider) *ChatService {
	return &ChatService{
		sessions: sessions,
		messages: messages,
		logs:     logs,
		provider: provider,
		now:      time.Now,
	}
}

type ChatInput struct {
	Message  string
	Language string
	State    clientstate.State
	UserCode string
}

// ChatResult.State 는 에러가 나더라도 채워진다.
// 세션이 새로 만들어진 뒤 완성 API 가 실패해도, 다음 요청이 같은 세션을 이어가야 하기 때문이다.
type ChatResult struct {
	SessionID   int64
	Reply       string
	Suggestions []string
	State       clientstate.State
}

// Chat 은 검증 → 세션 결정 → user 메시지 저장 → 대화 재구성 → 완성 API 호출 →
// assistant 메시지 저장 순서로 진행한다. 실패는 항상 *ChatError 로 감싸서 반환한다.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatResult, error) {
	result := ChatResult{State: in.State.Clone()}

	message := strings.TrimSpace(in.Message)
	if message == "" {
		return result, newChatError(KindValidation, CodeMessageEmpty, nil)
	}

	session, state, err := s.ResolveSession(ctx, result.State, in.UserCode)
	if err != nil {
		return result, s.unexpected(ctx, "resolve session failed", err)
	}
	result.State = state
	result.SessionID = session.ID

	if _, err := s.messages.Append(ctx, session.ID, models.RoleUser, message); err != nil {
		return result, s.unexpected(ctx, "store user message failed", err)
	}

	history, err := s.messages.ListBySession(ctx, session.ID)
	if err != nil {
		return result, s.unexpected(ctx, "load conversation failed", err)
	}
	conversation := BuildConversation(history, in.Language)

	reply, err := s.complete(ctx, session.ID, conversation)
	if err != nil {
		return result, err
	}

	if _, err := s.messages.Append(ctx, session.ID, models.RoleAssistant, reply); err != nil {
		return result, s.unexpected(ctx, "store assistant message failed", err)
	}

	result.Reply = reply
	result.Suggestions = SuggestFollowUps(message)
	return result, nil
}

// ResolveSession 은 클라이언트 상태의 현재 세션이 살아 있고 호출자가 볼 수 있으면 재사용하고,
// 아니면 새 세션을 만들어 상태에 기록한다.
func (s *ChatService) ResolveSession(ctx context.Context, state clientstate.State, userCode string) (*models.ChatSession, clientstate.State, error) {
	if state.Current > 0 {
		session, err := s.sessions.FindByID(ctx, state.Current)
		switch {
		case err == nil && session.VisibleTo(userCode):
			return session, state, nil
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, state, err
		}
	}

	session, err := s.sessions.Create(ctx, userCode)
	if err != nil {
		return nil, state, err
	}
	state.Current = session.ID
	return session, state, nil
}

// BuildConversation 은 저장된 메시지를 오래된 순의 role/content 목록으로 바꾼다.
// language 가 있으면 저장하지 않는 system 턴을 맨 앞에 둔다.
func BuildConversation(history []models.ChatMessage, language string) []completionclient.Message {
	out := make([]completionclient.Message, 0, len(history)+1)
	if lang := strings.TrimSpace(language); lang != "" {
		out = append(out, completionclient.Message{Role: "system", Content: "Respond in " + lang + "."})
	}
	for _, m := range history {
		out = append(out, completionclient.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (s *ChatService) complete(ctx context.Context, sessionID int64, conversation []completionclient.Message) (string, error) {
	start := s.now()
	reply, err := s.provider.Complete(ctx, conversation)
	completed := s.now()

	var chatErr *ChatError
	if err != nil {
		chatErr = classifyUpstreamError(err)
		logger.ErrorWithFields("completion call failed", logger.Fields{
			"request_id": trace.RequestIDFromContext(ctx),
			"session_id": sessionID,
			"provider":   s.provider.Name(),
			"code":       chatErr.Code,
			"error":      err.Error(),
		})
	}
	s.recordCompletion(ctx, sessionID, len(conversation), start, completed, reply, err, chatErr)
	if chatErr != nil {
		return "", chatErr
	}
	return reply, nil
}

// recordCompletion 은 호출 로그를 남긴다. 저장 실패는 채팅 결과에 영향을 주지 않는다.
func (s *ChatService) recordCompletion(ctx context.Context, sessionID int64, count int, start, completed time.Time, reply string, err error, chatErr *ChatError) {
	if s.logs == nil {
		return
	}
	entry := models.CompletionLog{
		SessionID:    sessionID,
		Provider:     s.provider.Name(),
		ModelName:    s.provider.Model(),
		MessageCount: count,
		DurationMs:   completed.Sub(start).Milliseconds(),
		Success:      err == nil,
		ReplyExcerpt: truncate(reply, 200),
		RequestedAt:  start.UTC(),
		CompletedAt:  completed.UTC(),
	}
	var httpErr *completionclient.HTTPError
	if errors.As(err, &httpErr) {
		entry.StatusCode = httpErr.StatusCode
	}
	if chatErr != nil {
		code := chatErr.Code
		entry.ErrorCode = &code
	}
	if insertErr := s.logs.Insert(context.WithoutCancel(ctx), entry); insertErr != nil {
		logger.Log.Warnf("completion log insert failed session_id=%d err=%v", sessionID, insertErr)
	}
}

func classifyUpstreamError(err error) *ChatError {
	var httpErr *completionclient.HTTPError
	switch {
	case errors.Is(err, completionclient.ErrInvalidJSON):
		return newChatError(KindUpstream, CodeUpstreamInvalidJSON, err)
	case errors.As(err, &httpErr):
		return newChatError(KindUpstream, CodeUpstreamStatusError, err)
	case errors.Is(err, completionclient.ErrMissingReply):
		return newChatError(KindUpstream, CodeUpstreamMissingReply, err)
	default:
		return newChatError(KindUpstream, CodeUpstreamUnreachable, err)
	}
}

func (s *ChatService) unexpected(ctx context.Context, msg string, err error) *ChatError {
	logger.ErrorWithFields(msg, logger.Fields{
		"request_id": trace.RequestIDFromContext(ctx),
		"error":      err.Error(),
	})
	return newChatError(KindUnexpected, CodeInternal, err)
}

// truncate returns s truncated to max runes.
func truncate(s string, max int) string {
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	return string(rs[:max])
}
