package dto

// ErrorResponseDTO는 공통 에러 응답 형식을 통일하기 위한 DTO이다.
// Error 에는 내부 진단 문자열이 아니라 에러 코드만 담는다.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"message_empty"`
}

// StatusResponseDTO는 헬스체크 응답 형식이다.
type StatusResponseDTO struct {
	Status string `json:"status" example:"ok"`
}
