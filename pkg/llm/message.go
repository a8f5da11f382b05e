// Package llm holds the OpenAI-style chat wire types shared by every
// provider client: request bodies, synchronous completions and the
// incremental delta chunks the answer pipeline extracts text from.
package llm

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage wraps a question as the only user turn of a request.
func NewUserMessage(question string) Message {
	return Message{Role: RoleUser, Content: question}
}
