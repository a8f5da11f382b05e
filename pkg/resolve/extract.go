package resolve

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/xiaomiproject/aikefu/pkg/llm"
)

// deltaPath locates the incremental text inside an openai-style stream chunk.
const deltaPath = "choices.0.delta.content"

// ExtractFragments returns the incremental answer texts carried by one raw
// provider chunk, in order. Sentinel and malformed sub-messages yield nothing.
func ExtractFragments(chunk []byte) []string {
	fragments, _ := extractFragments(chunk)
	return fragments
}

// extractFragments also reports how many sub-messages were not valid JSON.
func extractFragments(chunk []byte) ([]string, int) {
	var (
		fragments []string
		skipped   int
	)

	for _, msg := range subMessages(chunk) {
		if msg == "" || msg == llm.DoneSentinel {
			continue
		}
		if !gjson.Valid(msg) {
			skipped++
			continue
		}

		content := gjson.Get(msg, deltaPath)
		if !content.Exists() || content.Type == gjson.Null {
			continue
		}
		text := content.String()
		if text == "" || text == "null" {
			continue
		}
		fragments = append(fragments, text)
	}

	return fragments, skipped
}

// subMessages splits a chunk into the payloads of its "data:" lines. A chunk
// with no SSE lines at all is a single bare payload; one carrying only other
// fields or comments has no payload.
func subMessages(chunk []byte) []string {
	var (
		msgs   []string
		sawSSE bool
	)

	for _, line := range bytes.Split(chunk, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if bytes.HasPrefix(line, []byte(llm.DataPrefix)) {
			sawSSE = true
			msgs = append(msgs, strings.TrimSpace(string(line[len(llm.DataPrefix):])))
			continue
		}
		if isSSEField(line) {
			sawSSE = true
		}
	}

	if !sawSSE {
		if bare := strings.TrimSpace(string(chunk)); bare != "" {
			msgs = append(msgs, bare)
		}
	}

	return msgs
}

var sseFields = [][]byte{[]byte("event:"), []byte("id:"), []byte("retry:"), []byte(":")}

func isSSEField(line []byte) bool {
	for _, f := range sseFields {
		if bytes.HasPrefix(line, f) {
			return true
		}
	}
	return false
}
