package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/types"
)

// Message is a single immutable turn within a chat session.
// Tool-role messages carry the ToolCallID of the assistant request
// they respond to.
type Message struct {
	Role       types.MessageRole `json:"role"`
	Content    string            `json:"content"`
	Timestamp  time.Time         `json:"timestamp"`
	ToolName   string            `json:"toolName,omitempty"`
	ToolCallID string            `json:"toolCallId,omitempty"`
}

// Validate checks the message invariants
func (m *Message) Validate() error {
	if err := m.Role.Validate(); err != nil {
		return goerr.Wrap(err, "message role is invalid")
	}
	if m.Role == types.RoleTool && m.ToolCallID == "" {
		return goerr.New("tool message requires a tool call ID")
	}
	return nil
}

// EstimatedTokens returns the token estimate for this message content
func (m *Message) EstimatedTokens() int {
	return EstimateTokens(m.Content)
}

// EstimateTokens approximates the token count of text as ceil(len/4).
// This is a fixed documented approximation, not a real tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// NewUserMessage creates a user-role message stamped with the current time
func NewUserMessage(content string) Message {
	return Message{Role: types.RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant-role message stamped with the current time
func NewAssistantMessage(content string) Message {
	return Message{Role: types.RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// NewSystemMessage creates a system-role message stamped with the current time
func NewSystemMessage(content string) Message {
	return Message{Role: types.RoleSystem, Content: content, Timestamp: time.Now().UTC()}
}

// NewToolMessage creates a tool-role message correlated to an assistant tool request
func NewToolMessage(toolName, toolCallID, content string) Message {
	return Message{
		Role:       types.RoleTool,
		Content:    content,
		Timestamp:  time.Now().UTC(),
		ToolName:   toolName,
		ToolCallID: toolCallID,
	}
}
