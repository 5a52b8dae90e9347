package dto

// TimestampLayout 은 히스토리/내보내기에서 쓰는 고정 시각 형식이다.
const TimestampLayout = "2006-01-02 15:04:05"

type ClearConversationResponseDTO struct {
	Status       string `json:"status" example:"Conversation cleared"`
	NewSessionID int64  `json:"new_session_id" example:"42"`
}

type HistoryMessageDTO struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp" example:"2025-03-01 12:30:00"`
}

type HistorySessionDTO struct {
	SessionID int64               `json:"session_id"`
	CreatedAt string              `json:"created_at" example:"2025-03-01 12:29:58"`
	Messages  []HistoryMessageDTO `json:"messages"`
}

type HistoryResponseDTO struct {
	History []HistorySessionDTO `json:"history"`
}
