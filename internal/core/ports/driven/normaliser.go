package driven

// TextNormaliser cleans raw headline text before it is hashed and stored,
// e.g. by stripping markup or decoding entities.
type TextNormaliser interface {
	// Normalise returns the cleaned text. It may return an empty string
	// when nothing usable remains.
	Normalise(text string) string
}
