package model

// Role identifies the author of a chat message.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
	// System is used both for the empty leading system prompt injected per
	// request and for synthesized connection-error notices.
	System Role = "system"
)

// Message is a single chat turn. Messages are immutable once appended to a
// conversation; the JSON form doubles as the wire form of the completion API.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func UserMessage(content string) Message {
	return Message{Role: User, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: Assistant, Content: content}
}

func SystemMessage(content string) Message {
	return Message{Role: System, Content: content}
}
