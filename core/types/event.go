package types

// Event represents a typed notification emitted by a completed state
// transition. Attributes are string encoded for off-process indexing.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
