package session

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeEntityTracked
	EventTypeEntityUntracked
	EventTypeRecallRequested
	EventTypeRecallExecuted
	EventTypeRecallRejected
	EventTypeWarning // sanitized input, buffer overflow, history cleared
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the recall journal
type Event struct {
	Version     uint8     `json:"version"`     // Schema version
	Type        EventType `json:"type"`        // Event type
	Timestamp   int64     `json:"timestamp"`   // Unix nano
	Sequence    uint64    `json:"sequence"`    // Monotonic sequence
	SessionTime float64   `json:"sessionTime"` // Seconds since session start
	EntityID    string    `json:"entityId"`    // Source entity (for rate limiting)
	Payload     []byte    `json:"payload"`     // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeEntityTracked:
		return "entity_tracked"
	case EventTypeEntityUntracked:
		return "entity_untracked"
	case EventTypeRecallRequested:
		return "recall_requested"
	case EventTypeRecallExecuted:
		return "recall_executed"
	case EventTypeRecallRejected:
		return "recall_rejected"
	case EventTypeWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TrackPayload contains entity registration details
type TrackPayload struct {
	EntityID   string `json:"entityId"`
	HistoryLen int    `json:"historyLen"`
}

// RecallPayload contains the outcome of one recall request
type RecallPayload struct {
	EntityID         string  `json:"entityId"`
	Outcome          string  `json:"outcome"`
	SnapshotAge      float64 `json:"snapshotAge,omitempty"`
	RestoredVitality float64 `json:"restoredVitality,omitempty"`
}

// WarningPayload carries degraded-path notices (sanitized captures,
// overflow truncation, cleared buffers)
type WarningPayload struct {
	EntityID string `json:"entityId"`
	Message  string `json:"message"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, sessionTime float64, entityID string, payload interface{}) Event {
	return Event{
		Version:     EventVersion,
		Type:        eventType,
		Timestamp:   time.Now().UnixNano(),
		SessionTime: sessionTime,
		EntityID:    entityID,
		Payload:     EncodePayload(payload),
	}
}
