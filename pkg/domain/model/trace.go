package model

// TraceStep records one reasoning/acting step of the agent loop.
// Diagnostic only; returned to the caller but not persisted.
type TraceStep struct {
	Step        int    `json:"step"`
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// AgentResult is the outcome of one bounded agent run
type AgentResult struct {
	Content    string
	Trace      []TraceStep
	Confidence float64
	ToolsUsed  int
	ModelUsed  string
	TokensUsed int
	LatencyMs  int64
}
