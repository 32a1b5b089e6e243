package ports

// PatternMatcher finds every occurrence of a fixed phrase set in text.
// Matching is overlapping and byte-exact; the caller normalizes case and
// punctuation first.
// The phrase set is fixed at construction and pattern ids are its slice
// indexes. Implementations must be safe for concurrent use.
type PatternMatcher interface {
	// Occurrences returns every (pattern, start, end) hit in text. Order is
	// implementation defined; callers that care about order sort.
	Occurrences(text string) []Occurrence
}

// Occurrence is one hit with byte offsets; End is exclusive.
type Occurrence struct {
	Pattern int
	Start   int
	End     int
}
