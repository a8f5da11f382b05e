package llm

import "encoding/json"

const (
	// DataPrefix marks a sub-message inside a stream chunk.
	DataPrefix = "data:"

	// DoneSentinel is the sub-message that marks the logical end of a stream.
	DoneSentinel = "[DONE]"
)

// ChunkStream yields raw provider chunks. Next returns io.EOF once the
// upstream transport ends; the DoneSentinel is not required to finish.
type ChunkStream interface {
	Next() ([]byte, error)
	Close() error
}

// StreamChunk is one incremental chat completion delta.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
}

type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Message `json:"delta"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// FrameDelta encodes content as a "data:"-prefixed delta chunk. Clients whose
// upstream is not SSE use it so every provider yields the same chunk shape.
func FrameDelta(model, content string) ([]byte, error) {
	body, err := json.Marshal(StreamChunk{
		Model:   model,
		Choices: []StreamChoice{{Delta: Message{Role: RoleAssistant, Content: content}}},
	})
	if err != nil {
		return nil, err
	}
	return FrameData(body), nil
}

// FrameData prefixes payload with DataPrefix and terminates the event.
func FrameData(payload []byte) []byte {
	out := make([]byte, 0, len(DataPrefix)+len(payload)+3)
	out = append(out, DataPrefix...)
	out = append(out, ' ')
	out = append(out, payload...)
	return append(out, '\n', '\n')
}
