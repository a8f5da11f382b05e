package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/xiaomiproject/aikefu/pkg/worker"
)

// EventType distinguishes stream events.
type EventType string

const (
	// EventFragment carries one piece of answer text.
	EventFragment EventType = "fragment"

	// EventDone ends a stream whose answer was recorded.
	EventDone EventType = "done"

	// EventError ends a failed stream. Nothing was recorded.
	EventError EventType = "error"
)

// Event is one item of a Stream.
type Event struct {
	Type           EventType
	Text           string
	ConversationID string
	Err            error
}

// Stream is the caller's handle on a streaming resolution. Events yields
// fragments in provider order followed by exactly one done or error event,
// then closes. Callers must either drain Events or call Close.
type Stream struct {
	conversationID string
	events         chan Event

	gone      chan struct{}
	closeOnce sync.Once
}

func newStream(conversationID string) *Stream {
	return &Stream{
		conversationID: conversationID,
		events:         make(chan Event),
		gone:           make(chan struct{}),
	}
}

// ConversationID returns the conversation this stream records into.
func (s *Stream) ConversationID() string {
	return s.conversationID
}

// Events returns the event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Close tells the pipeline the caller has gone away. Remaining events are
// dropped, but the provider is still drained and the answer still recorded.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.gone) })
}

// emit delivers ev unless the caller has gone away.
func (s *Stream) emit(ev Event) bool {
	ev.ConversationID = s.conversationID
	select {
	case s.events <- ev:
		return true
	case <-s.gone:
		return false
	}
}

// ResolveStream starts a streaming resolution on the worker pool and returns
// at once. It fails with ErrBusy when the pool cannot take more work.
func (p *Pipeline) ResolveStream(ctx context.Context, req Request) (*Stream, error) {
	req, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if p.pool == nil {
		return nil, errors.New("resolve: no stream worker pool configured")
	}

	s := newStream(req.ConversationID)

	// the lifecycle outlives the request that started it
	bg := context.WithoutCancel(ctx)

	ok := p.pool.Enqueue(worker.Job{
		Name: "stream " + req.ConversationID,
		Run:  func() { p.runStream(bg, req, s) },
	})
	if !ok {
		return nil, ErrBusy
	}

	return s, nil
}

func (p *Pipeline) runStream(ctx context.Context, req Request, s *Stream) {
	defer close(s.events)

	log := p.logger.With("conversation_id", req.ConversationID, "user_id", req.UserID)

	fail := func(err error) {
		log.Error("stream failed", "error", err)
		s.emit(Event{Type: EventError, Err: err})
	}

	text, source, err := p.lookupLocal(ctx, req.Question)
	if err != nil {
		fail(err)
		return
	}
	if source != "" {
		s.emit(Event{Type: EventFragment, Text: text})
		if err := p.record(ctx, req, text, source, "", true); err != nil {
			fail(err)
			return
		}
		log.Info("question resolved", "source", source, "streaming", true)
		s.emit(Event{Type: EventDone})
		return
	}

	prov := p.registry.Resolve(req.ModelID)
	log = log.With("model", prov.Model(), "provider", prov.Name())

	chunks, err := prov.Stream(ctx, req.Question)
	if err != nil {
		fail(fmt.Errorf("opening provider stream: %w", err))
		return
	}
	defer chunks.Close()

	var answer strings.Builder
	for {
		chunk, err := chunks.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(fmt.Errorf("reading provider stream: %w", err))
			return
		}

		fragments, skipped := extractFragments(chunk)
		if skipped > 0 {
			p.skipped.Add(uint64(skipped))
			log.Debug("skipped malformed stream chunk", "skipped", skipped)
		}
		for _, f := range fragments {
			answer.WriteString(f)
			s.emit(Event{Type: EventFragment, Text: f})
		}
	}

	full := answer.String()
	if full != "" {
		if err := p.cache.Store(ctx, req.Question, full); err != nil {
			fail(fmt.Errorf("caching answer: %w", err))
			return
		}
	}
	if err := p.record(ctx, req, full, SourceLLM, prov.Model(), true); err != nil {
		fail(err)
		return
	}

	log.Info("question resolved", "source", SourceLLM, "streaming", true)
	s.emit(Event{Type: EventDone})
}
