package dto

type ChatRequestDTO struct {
	Message  string `json:"message" example:"What is Python?"`
	Language string `json:"language,omitempty" example:"Korean"`
}

type ChatResponseDTO struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions"`
}

// WSMessageDTO 는 WebSocket 프레임의 유일한 메시지 형식이다. 송수신 모두 같다.
type WSMessageDTO struct {
	Message string `json:"message"`
}
