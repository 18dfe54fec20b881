package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Greeting opens every session.
const Greeting = "Hello! I'm Jarvis, your AI assistant. How can I help you today?"

// Message represents a chat message in the conversation
type Message struct {
	Role      string
	Content   string // Raw content from the backend
	Rendered  string // Cached rendered markdown, empty until rendered
	Timestamp time.Time
}

func newMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}

func greetingMessages() []Message {
	return []Message{newMessage(RoleAssistant, Greeting)}
}
