package ai

import "sync"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single plain-text entry in the chat history.
type Message struct {
	Role    Role
	Content string
}

// defaultMaxMessages bounds the history sent with each chat request.
const defaultMaxMessages = 20

// ConversationContext keeps an ordered chat history, dropping the oldest
// entries after the first once the limit is reached.
type ConversationContext struct {
	mu          sync.Mutex
	messages    []Message
	maxMessages int
}

// NewConversationContext creates a history holding up to maxMessages
// entries. A non-positive limit uses the default of 20.
func NewConversationContext(maxMessages int) *ConversationContext {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}
	return &ConversationContext{
		messages:    make([]Message, 0, maxMessages),
		maxMessages: maxMessages,
	}
}

// AddMessage appends a message, trimming from the middle when over the
// limit so the opening message survives.
func (c *ConversationContext) AddMessage(role Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, Message{Role: role, Content: content})

	if len(c.messages) > c.maxMessages {
		trimmed := make([]Message, 0, c.maxMessages)
		trimmed = append(trimmed, c.messages[0])
		excess := len(c.messages) - c.maxMessages
		trimmed = append(trimmed, c.messages[1+excess:]...)
		c.messages = trimmed
	}
}

// GetMessages returns a copy of the current history.
func (c *ConversationContext) GetMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// Turns converts the history into request turns.
func (c *ConversationContext) Turns() []Turn {
	msgs := c.GetMessages()
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Blocks: []Block{TextBlock(m.Content)}})
	}
	return turns
}

// Reset clears the history.
func (c *ConversationContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = c.messages[:0]
}

// Len returns the number of messages held.
func (c *ConversationContext) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.messages)
}
