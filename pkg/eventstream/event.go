package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeAnswerResolved is emitted after an answer is recorded in history.
	EventTypeAnswerResolved = "aikefu.answer.resolved"
)

// AnswerResolvedEvent is a transport-neutral event payload for a resolved question.
type AnswerResolvedEvent struct {
	SchemaVersion  int       `json:"schema_version"`
	EventType      string    `json:"event_type"`
	EventID        string    `json:"event_id"`
	EmittedAt      time.Time `json:"emitted_at"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`

	// Source is one of "cache", "knowledge", "llm" or "fallback".
	Source    string `json:"source"`
	Model     string `json:"model,omitempty"`
	Streaming bool   `json:"streaming"`
}
