package types

// MatchType indicates which retrieval path produced a search result
type MatchType string

const (
	MatchVector  MatchType = "vector"
	MatchKeyword MatchType = "keyword"
	MatchHybrid  MatchType = "hybrid"
)

// String returns the string representation of MatchType
func (m MatchType) String() string {
	return string(m)
}

// Category classifies a knowledge entry (e.g. "residuals", "chargebacks").
// Empty Category means uncategorized.
type Category string

// String returns the string representation of Category
func (c Category) String() string {
	return string(c)
}
