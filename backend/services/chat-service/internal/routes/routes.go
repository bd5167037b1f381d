package routes

const (
	// Health
	Health = "/health"

	// Chat endpoints
	ChatMessage = "/chat/v1/message"
)
