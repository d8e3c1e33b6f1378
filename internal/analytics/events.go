package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent describes one answered book query. Kind is the query kind
// (word, title, author, regex, suggestions, ...).
type SearchEvent struct {
	Type      EventType `json:"type"`
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Results   int       `json:"results"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// NewSearchEvent stamps an event and classifies it by result count.
func NewSearchEvent(kind, query string, results int, latency time.Duration, cacheHit bool, requestID string) SearchEvent {
	typ := EventSearch
	if results == 0 {
		typ = EventZeroResult
	}
	return SearchEvent{
		Type:      typ,
		Kind:      kind,
		Query:     query,
		Results:   results,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
