package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoss/lantern/internal/models"
)

type stubResponder struct {
	reply string
	err   error

	gotHistory  []models.ChatMessage
	gotSnippets []string
}

func (s *stubResponder) GenerateReply(_ context.Context, history []models.ChatMessage, input string, snippets []string) (string, error) {
	s.gotHistory = history
	s.gotSnippets = snippets
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type stubRetriever struct {
	snippets []models.Snippet
	err      error
}

func (s *stubRetriever) Search(context.Context, string, int) ([]models.Snippet, error) {
	return s.snippets, s.err
}

type stubSearcher struct {
	results []models.SearchResult
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]models.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func TestHandleChatWithSnippets(t *testing.T) {
	responder := &stubResponder{reply: "the answer"}
	retriever := &stubRetriever{snippets: []models.Snippet{
		{Text: "fact one"},
		{Text: "fact two"},
	}}
	s := New(Config{Responder: responder, Retriever: retriever})

	reply := s.HandleChat(context.Background(), "question?")

	assert.Equal(t, "the answer", reply)
	assert.Equal(t, []string{"fact one", "fact two"}, responder.gotSnippets)

	// The responder sees the transcript as it was before this turn.
	assert.Empty(t, responder.gotHistory)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "question?"}, history[0])
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "the answer"}, history[1])
}

func TestHandleChatPriorHistoryPassed(t *testing.T) {
	responder := &stubResponder{reply: "second answer"}
	s := New(Config{Responder: responder})

	s.HandleChat(context.Background(), "first")
	s.HandleChat(context.Background(), "second")

	require.Len(t, responder.gotHistory, 2)
	assert.Equal(t, "first", responder.gotHistory[0].Content)
}

func TestHandleChatRetrievalFailureDegrades(t *testing.T) {
	responder := &stubResponder{reply: "no-context answer"}
	retriever := &stubRetriever{err: errors.New("index gone")}
	s := New(Config{Responder: responder, Retriever: retriever})

	reply := s.HandleChat(context.Background(), "question?")

	assert.Equal(t, "no-context answer", reply)
	assert.Empty(t, responder.gotSnippets)
}

func TestHandleChatNoResponder(t *testing.T) {
	s := New(Config{})

	reply := s.HandleChat(context.Background(), "question?")

	assert.Equal(t, "(Error generating response: no model loaded)", reply)
	assert.Len(t, s.History(), 2)
}

func TestHandleChatGenerationError(t *testing.T) {
	responder := &stubResponder{err: errors.New("connection refused")}
	s := New(Config{Responder: responder})

	reply := s.HandleChat(context.Background(), "question?")

	assert.Equal(t, "(Error generating response: connection refused)", reply)
	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, reply, history[1].Content)
}

func TestHandleSearchOnline(t *testing.T) {
	searcher := &stubSearcher{results: []models.SearchResult{
		{Title: "Hit", Link: "http://x.example", Snippet: "snip"},
	}}
	s := New(Config{Searcher: searcher})

	text := s.HandleSearch(context.Background(), "/search weather", "weather", true)

	assert.Equal(t, []string{"weather"}, searcher.queries)
	assert.Contains(t, text, "Search results:")
	assert.Contains(t, text, "[Hit](http://x.example): snip")
	assert.Empty(t, s.PendingSearches())
}

func TestHandleSearchOfflineQueues(t *testing.T) {
	searcher := &stubSearcher{}
	s := New(Config{Searcher: searcher})

	text := s.HandleSearch(context.Background(), "/search weather", "weather", false)

	assert.Equal(t, `Search query queued: "weather" (will run when online)`, text)
	assert.Equal(t, []string{"weather"}, s.PendingSearches())
	assert.Empty(t, searcher.queries, "offline search must not hit the client")

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "/search weather", history[0].Content)
	assert.Equal(t, text, history[1].Content)
}

func TestDrainPendingRunsOnceInOrder(t *testing.T) {
	searcher := &stubSearcher{results: []models.SearchResult{{Title: "Hit"}}}
	s := New(Config{Searcher: searcher})

	s.HandleSearch(context.Background(), "/search a", "a", false)
	s.HandleSearch(context.Background(), "/search b", "b", false)
	require.Equal(t, []string{"a", "b"}, s.PendingSearches())

	texts := s.DrainPending(context.Background())

	assert.Len(t, texts, 2)
	assert.Equal(t, []string{"a", "b"}, searcher.queries)
	assert.Empty(t, s.PendingSearches())

	// A second drain is a no-op.
	assert.Nil(t, s.DrainPending(context.Background()))
	assert.Equal(t, []string{"a", "b"}, searcher.queries)
}

func TestDrainPendingRemovesErroredQueries(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("quota exceeded")}
	s := New(Config{Searcher: searcher})

	s.HandleSearch(context.Background(), "/search a", "a", false)

	texts := s.DrainPending(context.Background())

	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Error during search")
	assert.Empty(t, s.PendingSearches(), "an errored query is not retried")
}

func TestSetResponderIgnoresNil(t *testing.T) {
	responder := &stubResponder{reply: "kept"}
	s := New(Config{Responder: responder})

	s.SetResponder(nil)
	assert.Equal(t, "kept", s.HandleChat(context.Background(), "q"))

	s.SetResponder(&stubResponder{reply: "swapped"})
	assert.Equal(t, "swapped", s.HandleChat(context.Background(), "q"))
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, "No results found.", FormatResults(nil))

	got := FormatResults([]models.SearchResult{
		{Title: "One", Link: "http://a.example", Snippet: "first"},
		{Title: "Two", Link: "http://b.example", Snippet: "second"},
	})
	want := fmt.Sprintf("Search results:\n%s\n%s",
		"1. [One](http://a.example): first",
		"2. [Two](http://b.example): second")
	assert.Equal(t, want, got)
}
