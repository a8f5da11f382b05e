package testutils

import (
	"context"
	"io"
	"sync"

	"github.com/xiaomiproject/aikefu/pkg/llm"
)

// MockProvider is a scripted LLM provider that counts its calls.
type MockProvider struct {
	ModelID string

	// Answer is returned by Complete unless CompleteErr is set.
	Answer      string
	CompleteErr error

	// Chunks are replayed by Stream. StreamErr, when set, is returned after
	// the last chunk instead of io.EOF. OpenErr fails Stream itself.
	Chunks    [][]byte
	StreamErr error
	OpenErr   error

	mu            sync.Mutex
	completeCalls int
	streamCalls   int
	questions     []string
}

func NewMockProvider(model, answer string) *MockProvider {
	return &MockProvider{ModelID: model, Answer: answer}
}

func (m *MockProvider) Name() string  { return "mock" }
func (m *MockProvider) Model() string { return m.ModelID }

func (m *MockProvider) Complete(_ context.Context, question string) (string, error) {
	m.mu.Lock()
	m.completeCalls++
	m.questions = append(m.questions, question)
	m.mu.Unlock()

	if m.CompleteErr != nil {
		return "", m.CompleteErr
	}
	return m.Answer, nil
}

func (m *MockProvider) Stream(_ context.Context, question string) (llm.ChunkStream, error) {
	m.mu.Lock()
	m.streamCalls++
	m.questions = append(m.questions, question)
	m.mu.Unlock()

	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	return NewSliceStream(m.StreamErr, m.Chunks...), nil
}

// CompleteCalls returns how many times Complete ran.
func (m *MockProvider) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// StreamCalls returns how many times Stream ran.
func (m *MockProvider) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}

// Calls returns the total number of upstream calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls + m.streamCalls
}

// SliceStream replays fixed chunks as an llm.ChunkStream.
type SliceStream struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	closed bool
}

// NewSliceStream returns a stream over chunks ending with err, or io.EOF when err is nil.
func NewSliceStream(err error, chunks ...[]byte) *SliceStream {
	return &SliceStream{chunks: chunks, err: err}
}

func (s *SliceStream) Next() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, io.ErrClosedPipe
	}
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}

	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *SliceStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
