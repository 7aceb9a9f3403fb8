package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Conversation is one independent chat thread. The ID is assigned at creation
// and never reused; DisplayNumber is assigned from a monotonic counter at
// creation and never reassigned, so numbering stays stable per conversation
// even after other conversations are deleted.
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title,omitempty"`
	DisplayNumber int       `json:"display_number"`
	Messages      []Message `json:"messages"`
}

// DisplayTitle returns the title, or the "Chat N" fallback label when the
// conversation is unnamed.
func (c *Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("Chat %d", c.DisplayNumber)
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (c *Conversation) Clone() Conversation {
	out := Conversation{
		ID:            c.ID,
		Title:         c.Title,
		DisplayNumber: c.DisplayNumber,
		Messages:      make([]Message, len(c.Messages)),
	}
	copy(out.Messages, c.Messages)
	return out
}
