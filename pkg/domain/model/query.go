package model

import "github.com/stratospay/delphi/pkg/domain/types"

// Scope identifies the tenant context of a request
type Scope struct {
	OrgID  types.OrgID
	UserID types.UserID
}

// Validate checks the scope invariants
func (s Scope) Validate() error {
	return s.OrgID.Validate()
}

// QueryInput is one inbound natural-language question
type QueryInput struct {
	Query     string
	SessionID types.SessionID
	Scope     Scope
	History   []Message
	ModelHint string
}

// QueryOutput is the orchestrator response for a direct chat query
type QueryOutput struct {
	Content       string          `json:"content"`
	SessionID     types.SessionID `json:"sessionId"`
	ModelUsed     string          `json:"modelUsed"`
	TokensUsed    int             `json:"tokensUsed"`
	LatencyMs     int64           `json:"latencyMs"`
	KnowledgeUsed int             `json:"knowledgeUsed"`
}
