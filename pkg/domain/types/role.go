package types

import "github.com/m-mizutani/goerr/v2"

// MessageRole represents the author role of a chat message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Validate checks if the MessageRole is one of the known roles
func (r MessageRole) Validate() error {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return nil
	}
	return goerr.New("invalid message role", goerr.V("role", r))
}

// String returns the string representation of MessageRole
func (r MessageRole) String() string {
	return string(r)
}
