package dtos

// HistoryTurn is one earlier exchange the client still holds in memory.
type HistoryTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=4000"`
}

type ChatMessageRequest struct {
	Message   string        `json:"message" validate:"required,max=4000"`
	SessionID string        `json:"sessionId" validate:"required,max=64"`
	UserID    string        `json:"userId" validate:"required,max=64"`
	History   []HistoryTurn `json:"history" validate:"omitempty,max=50,dive"`
}

type ChatMessageResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}
