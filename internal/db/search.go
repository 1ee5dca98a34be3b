package db

// Scope restricts a search to one campaign and optionally one asset kind.
type Scope struct {
	CampaignID string
	Kind       string // empty means all kinds
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Scope        Scope
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for lexical full-text search.
type TextQuery struct {
	IndexName    string
	Query        string
	Scope        Scope
	TopK         int
	ReturnFields []string
}

// HybridQuery is the input for store-side fused search (capability-gated).
// VectorWeight/TextWeight split the contribution of the two sub-rankings;
// both zero means an even split.
type HybridQuery struct {
	IndexName    string
	Vector       []float32
	Query        string
	Scope        Scope
	TopK         int
	ReturnFields []string
	VectorWeight float64
	TextWeight   float64
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
