package model

// ModelError is the sentinel ModelUsed value for a degraded reply
// produced after every configured provider failed.
const ModelError = "error"

// DegradedMessage is returned to the user when no provider could answer
const DegradedMessage = "The assistant is temporarily unavailable. Please try again in a moment."

// Reply is the uniform response of the provider gateway. Callers always
// receive a well-formed Reply, even when all providers failed.
type Reply struct {
	Content    string
	ModelUsed  string
	TokensUsed int
	LatencyMs  int64
}

// Degraded reports whether this reply is the all-providers-failed sentinel
func (r *Reply) Degraded() bool {
	return r.ModelUsed == ModelError
}

// NewDegradedReply builds the sentinel reply for exhausted providers
func NewDegradedReply(latencyMs int64) *Reply {
	return &Reply{
		Content:   DegradedMessage,
		ModelUsed: ModelError,
		LatencyMs: latencyMs,
	}
}
