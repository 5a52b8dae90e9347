package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/dto"
	"chat-relay/models"
	"chat-relay/repositories"
)

const StatusConversationCleared = "Conversation cleared"

// HistoryService 는 대화 초기화, 이전 세션 조회, 세션 내보내기를 담당한다.
// 어떤 작업도 세션이나 메시지를 삭제하지 않는다.
type HistoryService struct {
	sessions SessionStore
	messages MessageStore
}

func NewHistoryService(sessions SessionStore, messages MessageStore) *HistoryService {
	return &HistoryService{sessions: sessions, messages: messages}
}

type ClearResult struct {
	NewSessionID int64
	State        clientstate.State
}

// Clear 는 현재 세션을 이전 목록에 보관하고 새 세션으로 전환한다.
func (s *HistoryService) Clear(ctx context.Context, state clientstate.State, userCode string) (ClearResult, error) {
	next := state.Clone()
	next.Archive()

	session, err := s.sessions.Create(ctx, userCode)
	if err != nil {
		return ClearResult{State: state}, fmt.Errorf("create session: %w", err)
	}
	next.Current = session.ID
	return ClearResult{NewSessionID: session.ID, State: next}, nil
}

// History 는 클라이언트가 보낸 이전 세션 목록 순서대로 세션과 메시지를 돌려준다.
// 없는 세션과 다른 사용자의 세션은 조용히 건너뛴다.
func (s *HistoryService) History(ctx context.Context, state clientstate.State, userCode string) (dto.HistoryResponseDTO, error) {
	out := dto.HistoryResponseDTO{History: []dto.HistorySessionDTO{}}
	for _, id := range state.Previous {
		session, err := s.sessions.FindByID(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return dto.HistoryResponseDTO{}, fmt.Errorf("load session %d: %w", id, err)
		}
		if !session.VisibleTo(userCode) {
			continue
		}

		msgs, err := s.messages.ListBySession(ctx, id)
		if err != nil {
			return dto.HistoryResponseDTO{}, fmt.Errorf("load messages %d: %w", id, err)
		}
		out.History = append(out.History, mapHistorySession(*session, msgs))
	}
	return out, nil
}

func mapHistorySession(session models.ChatSession, msgs []models.ChatMessage) dto.HistorySessionDTO {
	d := dto.HistorySessionDTO{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt.UTC().Format(dto.TimestampLayout),
		Messages:  make([]dto.HistoryMessageDTO, 0, len(msgs)),
	}
	for _, m := range msgs {
		d.Messages = append(d.Messages, dto.HistoryMessageDTO{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp.UTC().Format(dto.TimestampLayout),
		})
	}
	return d
}

type ExportFile struct {
	Filename string
	Content  string
}

// Export 는 호출자가 소유한 세션만 평문 대화록으로 만든다.
// 세션이 없거나 소유자가 다르면 ErrSessionNotFound 를 반환한다.
func (s *HistoryService) Export(ctx context.Context, sessionID int64, userCode string) (ExportFile, error) {
	session, err := s.sessions.FindByIDAndOwner(ctx, sessionID, userCode)
	if errors.Is(err, repositories.ErrNotFound) {
		return ExportFile{}, ErrSessionNotFound
	}
	if err != nil {
		return ExportFile{}, fmt.Errorf("load session %d: %w", sessionID, err)
	}

	msgs, err := s.messages.ListBySession(ctx, session.ID)
	if err != nil {
		return ExportFile{}, fmt.Errorf("load messages %d: %w", sessionID, err)
	}

	return ExportFile{
		Filename: fmt.Sprintf("chat_session_%d.txt", session.ID),
		Content:  RenderTranscript(*session, msgs),
	}, nil
}

// RenderTranscript 는 세션 헤더와 메시지 한 줄씩을 이어 붙인다.
func RenderTranscript(session models.ChatSession, msgs []models.ChatMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chat Session %d (Started: %s)\n\n", session.ID, session.CreatedAt.UTC().Format(dto.TimestampLayout))
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s - %s: %s\n", m.Timestamp.UTC().Format(dto.TimestampLayout), capitalize(m.Role), m.Content)
	}
	return b.String()
}

// capitalize 는 첫 글자만 대문자, 나머지는 소문자로 만든다. ("user" -> "User")
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
