package domain

// Metadata is an arbitrary JSON-shaped mapping attached to a document.
// The adapter stores it opaquely; filter semantics belong to the engine.
type Metadata map[string]any

// Document is a stored record. The embedding never leaves the engine;
// the adapter keeps no local copy of anything.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Hit is one search result. Distance is ascending: smaller is closer.
type Hit struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance float32  `json:"distance"`
}
