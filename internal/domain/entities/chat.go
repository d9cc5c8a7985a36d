package entities

// ChatRole distinguishes speakers in the assistant conversation
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of the assistant conversation
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest forwards the full history plus the newest user message
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse is the assistant's reply envelope
type ChatResponse struct {
	Response string `json:"response"`
}
