package chat

import "github.com/tailored-agentic-units/chat/observability"

// Runtime event types.
const (
	EventSessionCreate observability.EventType = "chat.session.create"
	EventSessionResume observability.EventType = "chat.session.resume"
	EventSessionSave   observability.EventType = "chat.session.save"
	EventModelMismatch observability.EventType = "chat.session.model_mismatch"
)
