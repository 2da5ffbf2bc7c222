// Package session holds the per-session state of one chat: the transcript,
// the live model and knowledge base handles, and the queue of web searches
// deferred while offline.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/avoss/lantern/internal/models"
	"github.com/avoss/lantern/internal/types"
)

type Config struct {
	Responder types.Responder
	Retriever types.Retriever // may be nil when the knowledge base failed to load
	Searcher  types.Searcher
	TopK      int
	Logger    *zap.Logger
}

// Session is single-threaded by design: one user action runs to completion
// before the next is accepted, so no locking is needed.
type Session struct {
	responder types.Responder
	retriever types.Retriever
	searcher  types.Searcher
	topK      int
	history   []models.ChatMessage
	pending   []string
	logger    *zap.Logger
}

func New(cfg Config) *Session {
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		responder: cfg.Responder,
		retriever: cfg.Retriever,
		searcher:  cfg.Searcher,
		topK:      cfg.TopK,
		logger:    cfg.Logger,
	}
}

// SetResponder swaps in a freshly installed model handle.
func (s *Session) SetResponder(r types.Responder) {
	if r != nil {
		s.responder = r
	}
}

// SetRetriever swaps in a freshly built knowledge base.
func (s *Session) SetRetriever(r types.Retriever) {
	if r != nil {
		s.retriever = r
	}
}

// History returns a copy of the transcript.
func (s *Session) History() []models.ChatMessage {
	return append([]models.ChatMessage(nil), s.history...)
}

// HandleChat runs one chat turn: retrieve knowledge snippets, generate a
// reply, record both turns. Retrieval failures degrade to an answer without
// snippets; generation failures render as an inline error message.
func (s *Session) HandleChat(ctx context.Context, input string) string {
	prior := s.History()
	s.history = append(s.history, models.ChatMessage{Role: models.RoleUser, Content: input})

	var snippets []string
	if s.retriever != nil {
		results, err := s.retriever.Search(ctx, input, s.topK)
		if err != nil {
			s.logger.Warn("knowledge retrieval failed", zap.Error(err))
		} else {
			for _, res := range results {
				snippets = append(snippets, res.Text)
			}
		}
	}

	var reply string
	if s.responder == nil {
		reply = "(Error generating response: no model loaded)"
	} else {
		generated, err := s.responder.GenerateReply(ctx, prior, input, snippets)
		if err != nil {
			reply = fmt.Sprintf("(Error generating response: %v)", err)
		} else {
			reply = generated
		}
	}

	s.history = append(s.history, models.ChatMessage{Role: models.RoleAssistant, Content: reply})
	return reply
}

// HandleSearch runs a web search when online, or queues it for the next
// online transition. The returned text is what the assistant shows.
func (s *Session) HandleSearch(ctx context.Context, input, query string, online bool) string {
	s.history = append(s.history, models.ChatMessage{Role: models.RoleUser, Content: input})

	var text string
	if online {
		text = s.runSearch(ctx, query)
	} else {
		s.pending = append(s.pending, query)
		text = fmt.Sprintf("Search query queued: %q (will run when online)", query)
	}

	s.history = append(s.history, models.ChatMessage{Role: models.RoleAssistant, Content: text})
	return text
}

// PendingSearches returns a copy of the queued queries in enqueue order.
func (s *Session) PendingSearches() []string {
	return append([]string(nil), s.pending...)
}

// DrainPending attempts every queued query once, in order, and removes each
// after the attempt whether it succeeded or errored. Call it once per
// online transition.
func (s *Session) DrainPending(ctx context.Context) []string {
	if len(s.pending) == 0 {
		return nil
	}

	queued := s.pending
	s.pending = nil

	var texts []string
	for _, query := range queued {
		text := s.runSearch(ctx, query)
		s.history = append(s.history, models.ChatMessage{Role: models.RoleAssistant, Content: text})
		texts = append(texts, text)
	}
	return texts
}

func (s *Session) runSearch(ctx context.Context, query string) string {
	if s.searcher == nil {
		return "Error during search: no search client configured"
	}
	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error during search: %v", err)
	}
	return FormatResults(results)
}

// FormatResults renders web search hits as a numbered markdown list.
func FormatResults(results []models.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}
	lines := make([]string, 0, len(results)+1)
	lines = append(lines, "Search results:")
	for n, res := range results {
		lines = append(lines, fmt.Sprintf("%d. [%s](%s): %s", n+1, res.Title, res.Link, res.Snippet))
	}
	return strings.Join(lines, "\n")
}
