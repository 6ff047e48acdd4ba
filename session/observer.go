package session

import "github.com/tailored-agentic-units/chat/observability"

// Session event types.
const (
	EventInitializeStart    observability.EventType = "session.initialize.start"
	EventInitializeComplete observability.EventType = "session.initialize.complete"
	EventPrime              observability.EventType = "session.prime"
	EventIngestTurn         observability.EventType = "session.ingest.turn"
	EventGenerateStart      observability.EventType = "session.generate.start"
	EventGenerateComplete   observability.EventType = "session.generate.complete"
	EventSlotEvict          observability.EventType = "session.slot.evict"
	EventError              observability.EventType = "session.error"
)
