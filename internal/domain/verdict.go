package domain

// QualityVerdict is the reviewer's judgement of a single extracted item.
// Verdicts are keyed by the item's absolute position in the review
// submission order; items have no stable ID until persisted.
type QualityVerdict struct {
	Relevant   bool
	Score      int // 1..10 inclusive
	Issues     []string
	Suggestion string // optional improved definition
}

// IsValidScore reports whether a quality score is in the accepted range.
func IsValidScore(score int) bool {
	return score >= 1 && score <= 10
}
