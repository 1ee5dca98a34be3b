// Package mode defines the search execution strategies.
package mode

// Mode is the strategy that actually served a search request.
type Mode string

// Search mode constants.
const (
	// VectorOnly runs a single semantic (KNN) retrieval.
	VectorOnly Mode = "vector_only"
	// TextOnly runs a single lexical retrieval.
	TextOnly Mode = "text_only"
	// ManualHybrid runs both retrievals in parallel and fuses client-side.
	ManualHybrid Mode = "manual_hybrid"
	// NativeHybrid delegates retrieval and fusion to the store in one call.
	NativeHybrid Mode = "native_hybrid"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == VectorOnly || m == TextOnly || m == ManualHybrid || m == NativeHybrid
}

// NeedsVector reports whether the mode requires a query embedding.
func (m Mode) NeedsVector() bool {
	return m == VectorOnly || m == ManualHybrid || m == NativeHybrid
}

// Select picks the execution mode from the request shape and the store tier.
// Both query forms with a fusion-capable store give native hybrid; without
// native fusion the engine fuses client-side. A single query form picks the
// matching single retrieval. (hasQuery, hasKeywords) == (false, false) is a
// validation failure upstream and never reaches this function.
func Select(hasQuery, hasKeywords, nativeFusion bool) Mode {
	switch {
	case hasQuery && hasKeywords && nativeFusion:
		return NativeHybrid
	case hasQuery && hasKeywords:
		return ManualHybrid
	case hasKeywords:
		return TextOnly
	default:
		return VectorOnly
	}
}
