// Package resolve answers questions by consulting progressively more
// expensive sources: the answer cache, then the knowledge store, then an LLM
// provider. Every resolution is recorded in the history store.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xiaomiproject/aikefu/pkg/cache"
	"github.com/xiaomiproject/aikefu/pkg/eventstream"
	"github.com/xiaomiproject/aikefu/pkg/eventstream/nop"
	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
	"github.com/xiaomiproject/aikefu/pkg/llm"
	"github.com/xiaomiproject/aikefu/pkg/llm/provider"
	"github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/utils"
	"github.com/xiaomiproject/aikefu/pkg/worker"
)

var (
	// ErrUnauthenticated is returned when a request carries no user.
	ErrUnauthenticated = errors.New("unauthenticated request")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question must not be empty")

	// ErrBusy is returned when no stream worker can accept the request.
	ErrBusy = errors.New("too many concurrent streams, try again later")
)

// Answer sources.
const (
	SourceCache     = "cache"
	SourceKnowledge = "knowledge"
	SourceLLM       = "llm"
	SourceFallback  = "fallback"
)

// Scheduler runs stream lifecycles in the background. *worker.Pool satisfies it.
type Scheduler interface {
	Enqueue(job worker.Job) bool
}

// Config wires a Pipeline to its collaborators.
type Config struct {
	Cache     cache.Cache
	Knowledge knowledge.Finder
	History   history.Store
	Registry  *provider.Registry

	// Pool runs streaming resolutions. Required for ResolveStream.
	Pool Scheduler

	// Publisher receives an event per recorded answer. Defaults to a nop publisher.
	Publisher eventstream.Publisher

	Logger *slog.Logger

	// UnavailableAnswer replaces a failed synchronous completion.
	UnavailableAnswer string

	// EmptyAnswer replaces a completion without choices.
	EmptyAnswer string
}

// Request is one question from an authenticated user.
type Request struct {
	Question       string
	ConversationID string
	UserID         string

	// ModelID selects a provider. Blank or unknown ids use the default.
	ModelID string
}

// Answer is the result of a synchronous resolution.
type Answer struct {
	Text           string `json:"answer"`
	ConversationID string `json:"conversationId"`
	Source         string `json:"source"`
	Model          string `json:"model,omitempty"`
}

// Pipeline resolves questions. It is safe for concurrent use.
type Pipeline struct {
	cache     cache.Cache
	knowledge knowledge.Finder
	history   history.Store
	registry  *provider.Registry
	pool      Scheduler
	publisher eventstream.Publisher
	logger    *slog.Logger

	unavailableAnswer string
	emptyAnswer       string

	skipped atomic.Uint64
}

// New validates cfg and returns a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Cache == nil:
		return nil, errors.New("resolve: cache is required")
	case cfg.Knowledge == nil:
		return nil, errors.New("resolve: knowledge store is required")
	case cfg.History == nil:
		return nil, errors.New("resolve: history store is required")
	case cfg.Registry == nil:
		return nil, errors.New("resolve: provider registry is required")
	}

	pub := cfg.Publisher
	if pub == nil {
		pub = nop.NewPublisher()
	}

	return &Pipeline{
		cache:             cfg.Cache,
		knowledge:         cfg.Knowledge,
		history:           cfg.History,
		registry:          cfg.Registry,
		pool:              cfg.Pool,
		publisher:         pub,
		logger:            logger.OrNop(cfg.Logger),
		unavailableAnswer: cfg.UnavailableAnswer,
		emptyAnswer:       cfg.EmptyAnswer,
	}, nil
}

// Resolve answers req synchronously. Provider failures never surface as
// errors: they are replaced by the configured fallback answer. Storage
// failures are returned.
func (p *Pipeline) Resolve(ctx context.Context, req Request) (*Answer, error) {
	req, err := p.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	log := p.logger.With("conversation_id", req.ConversationID, "user_id", req.UserID)

	text, source, err := p.lookupLocal(ctx, req.Question)
	if err != nil {
		return nil, err
	}

	var model string
	if source == "" {
		prov := p.registry.Resolve(req.ModelID)
		model = prov.Model()

		started := time.Now()
		completion, err := prov.Complete(ctx, req.Question)
		switch {
		case errors.Is(err, llm.ErrEmptyCompletion):
			log.Warn("provider returned no choices", "model", model)
			text, source = p.emptyAnswer, SourceFallback
		case err != nil:
			log.Error("provider completion failed",
				"model", model,
				"provider", prov.Name(),
				"error", err,
			)
			text, source = p.unavailableAnswer, SourceFallback
		default:
			log.Debug("provider completion",
				"model", model,
				"duration_ms", time.Since(started).Milliseconds(),
			)
			text, source = completion, SourceLLM
			if err := p.cache.Store(ctx, req.Question, text); err != nil {
				return nil, fmt.Errorf("caching answer: %w", err)
			}
		}
	}

	if err := p.record(ctx, req, text, source, model, false); err != nil {
		return nil, err
	}

	log.Info("question resolved",
		"source", source,
		"model", model,
		"question", utils.Truncate(req.Question, 80),
	)

	return &Answer{
		Text:           text,
		ConversationID: req.ConversationID,
		Source:         source,
		Model:          model,
	}, nil
}

// SkippedChunks returns how many streamed sub-messages were discarded as malformed.
func (p *Pipeline) SkippedChunks() uint64 {
	return p.skipped.Load()
}

// Models returns the registered model ids and the default.
func (p *Pipeline) Models() ([]string, string) {
	return p.registry.Models(), p.registry.Default()
}

// prepare validates req and assigns a conversation id when it has none. A
// supplied conversation id must belong to the requesting user.
func (p *Pipeline) prepare(ctx context.Context, req Request) (Request, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return req, ErrUnauthenticated
	}
	if strings.TrimSpace(req.Question) == "" {
		return req, ErrEmptyQuestion
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		req.ConversationID = uuid.NewString()
		return req, nil
	}
	if err := history.CheckOwner(ctx, p.history, req.ConversationID, req.UserID); err != nil {
		return req, err
	}
	return req, nil
}

// lookupLocal consults the cache, then the knowledge store. A knowledge hit
// is copied into the cache. source is empty on a miss.
func (p *Pipeline) lookupLocal(ctx context.Context, question string) (string, string, error) {
	answer, ok, err := p.cache.Lookup(ctx, question)
	if err != nil {
		return "", "", fmt.Errorf("reading cache: %w", err)
	}
	if ok {
		return answer, SourceCache, nil
	}

	answer, ok, err = p.knowledge.FindExact(ctx, question)
	if err != nil {
		return "", "", fmt.Errorf("reading knowledge store: %w", err)
	}
	if !ok {
		return "", "", nil
	}

	if err := p.cache.Store(ctx, question, answer); err != nil {
		return "", "", fmt.Errorf("caching answer: %w", err)
	}
	return answer, SourceKnowledge, nil
}

// record appends the history record and publishes the answer event.
func (p *Pipeline) record(ctx context.Context, req Request, answer, source, model string, streaming bool) error {
	rec := history.NewRecord(req.UserID, req.ConversationID, req.Question, answer)
	if err := p.history.AppendHistory(ctx, rec); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}

	event := &eventstream.AnswerResolvedEvent{
		SchemaVersion:  eventstream.SchemaVersionV1,
		EventType:      eventstream.EventTypeAnswerResolved,
		EventID:        rec.ID,
		EmittedAt:      rec.CreatedAt,
		ConversationID: rec.ConversationID,
		UserID:         rec.UserID,
		Question:       rec.Question,
		Answer:         rec.Answer,
		Source:         source,
		Model:          model,
		Streaming:      streaming,
	}
	if err := p.publisher.PublishAnswer(ctx, event); err != nil {
		p.logger.Warn("publishing answer event failed",
			"conversation_id", rec.ConversationID,
			"error", err,
		)
	}

	return nil
}
