package llm

// ChatRequest is the body POSTed to a chat completions endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// NewQuestionRequest builds a single-turn request for model.
func NewQuestionRequest(model, question string, stream bool) *ChatRequest {
	return &ChatRequest{
		Model:    model,
		Messages: []Message{NewUserMessage(question)},
		Stream:   stream,
	}
}
