package domain

// Decision is one published Court of Cassation ruling, normalized from its XML document.
// ID is the document's own identifier and the natural key of the store.
type Decision struct {
	ID        string
	Title     string
	Formation string
	Content   string
}

// DecisionSummary is the listing projection of a Decision, without its content.
type DecisionSummary struct {
	ID        string
	Title     string
	Formation string
}

// ScoredDecision is a search hit together with its keyword relevance score.
type ScoredDecision struct {
	Decision
	Score int
}
