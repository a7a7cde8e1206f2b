package librarian

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/librarian/internal/corpus"
	"github.com/felixgeelhaar/librarian/internal/guard"
	"github.com/felixgeelhaar/librarian/internal/index"
	"github.com/felixgeelhaar/librarian/internal/observe"
	"github.com/felixgeelhaar/librarian/internal/provider"
)

const toolGetSummary = "get_summary_by_title"

// historyLimit caps how many prior turns ride along on each request.
const historyLimit = 6

const defaultTopK = 3

const systemPrompt = `You are a smart AI librarian assistant that helps users find books based on their interests.

Your capabilities:
1. You have access to a database of book summaries through semantic search
2. You can get detailed summaries of specific books using the get_summary_by_title function
3. You should be conversational, helpful, and enthusiastic about books

Instructions:
- When a user asks for book recommendations, search the database using the provided context
- Always recommend specific books from your database, not general suggestions
- After recommending a book, automatically call get_summary_by_title to provide detailed information
- Be conversational and ask follow-up questions to help users find their perfect book
- If a user asks about a specific book title, use get_summary_by_title to provide detailed information
- Keep responses engaging and personal, like a friendly librarian would`

// Turn is one prior entry of the conversation as the client carries it.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCallRecord captures one executed tool invocation for the response body.
type ToolCallRecord struct {
	Function  string            `json:"function"`
	Arguments map[string]string `json:"arguments"`
	Result    string            `json:"result"`
}

// SearchResult is one retrieval hit surfaced to the client.
type SearchResult struct {
	Title      string  `json:"title"`
	Similarity float32 `json:"similarity"`
}

// Result is the structured outcome of one chat request.
type Result struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message"`
	Filtered      bool             `json:"filtered"`
	FunctionCalls []ToolCallRecord `json:"function_calls"`
	SearchResults []SearchResult   `json:"search_results"`
	Error         string           `json:"error,omitempty"`
}

// Library is the retrieval surface the service depends on.
type Library interface {
	WouldPopulate(ctx context.Context) (bool, error)
	Populate(ctx context.Context, entries []corpus.Entry) error
	Search(ctx context.Context, query string, k int) []index.Hit
	Info(ctx context.Context) index.Info
	Reset(ctx context.Context) error
}

// Catalog is the flat-file corpus surface the service depends on.
type Catalog interface {
	Lookup(title string) (string, bool)
	MissMessage(title string) string
	Titles() []string
	Entries() []corpus.Entry
	Append(title, summary string) error
	FileInfo() corpus.FileInfo
}

// Service orchestrates moderation, retrieval, and the tool-calling chat loop.
type Service struct {
	guard   *guard.Guard
	library Library
	catalog Catalog
	llm     provider.Provider
	obs     *observe.Observer
	tools   *ToolRegistry
	topK    int
}

func NewService(g *guard.Guard, library Library, catalog Catalog, llm provider.Provider, obs *observe.Observer, topK int) *Service {
	if topK <= 0 {
		topK = defaultTopK
	}
	s := &Service{
		guard:   g,
		library: library,
		catalog: catalog,
		llm:     llm,
		obs:     obs,
		tools:   NewToolRegistry(),
		topK:    topK,
	}
	s.tools.Register(provider.ToolDefinition{
		Name:        toolGetSummary,
		Description: "Get a detailed summary of a book by its exact title. Use this after recommending a book or when a user asks about a specific book.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "The exact title of the book to get the summary for",
				},
			},
			"required": []string{"title"},
		},
	}, s.getSummaryByTitle)
	return s
}

func (s *Service) getSummaryByTitle(_ context.Context, args map[string]string) string {
	title := args["title"]
	if summary, ok := s.catalog.Lookup(title); ok {
		return summary
	}
	return s.catalog.MissMessage(title)
}

// Chat runs one user message through the full pipeline. It never returns an
// error: failures downstream of moderation collapse into an apologetic
// Result with Success false.
func (s *Service) Chat(ctx context.Context, message string, history []Turn) Result {
	ctx, span := s.obs.StartSpan(ctx, "librarian.Chat")
	defer span.End()

	if s.guard.Classify(ctx, message) {
		s.obs.Log().Info().Msg("message flagged by moderation")
		return Result{
			Success:       true,
			Message:       s.guard.Refusal(),
			Filtered:      true,
			FunctionCalls: []ToolCallRecord{},
			SearchResults: []SearchResult{},
		}
	}

	result, err := s.converse(ctx, message, history)
	if err != nil {
		detail := err.Error()
		s.obs.Log().Error().Err(err).Msg("chat pipeline failed")
		return Result{
			Success:       false,
			Message:       fmt.Sprintf("I apologize, but I encountered an error: %s. Please try again.", detail),
			FunctionCalls: []ToolCallRecord{},
			SearchResults: []SearchResult{},
			Error:         detail,
		}
	}
	return result
}

func (s *Service) converse(ctx context.Context, message string, history []Turn) (Result, error) {
	hits := s.library.Search(ctx, message, s.topK)

	msgs := make([]provider.Message, 0, len(history)+2)
	msgs = append(msgs, provider.Message{Role: "system", Content: systemPrompt})
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, turn := range history {
		msgs = append(msgs, provider.Message{Role: turn.Role, Content: turn.Content})
	}
	msgs = append(msgs, provider.Message{
		Role:    "user",
		Content: fmt.Sprintf("User query: %s\n\n%s\n\nBased on the relevant books above, please provide a helpful response and recommendation.", message, formatContext(hits)),
	})

	resp, err := s.llm.Chat(ctx, msgs, s.tools.Definitions())
	if err != nil {
		return Result{}, err
	}

	records := []ToolCallRecord{}
	final := resp.Content
	if len(resp.ToolCalls) > 0 {
		msgs = append(msgs, provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			args, err := decodeArgs(call.Args)
			if err != nil {
				return Result{}, fmt.Errorf("decode arguments for %s: %w", call.Name, err)
			}
			out := s.tools.Execute(ctx, call.Name, args)
			s.obs.Log().Debug().Str("function", call.Name).Msg("executed tool call")
			records = append(records, ToolCallRecord{
				Function:  call.Name,
				Arguments: args,
				Result:    out,
			})
			msgs = append(msgs, provider.Message{
				Role:       "tool",
				Content:    out,
				ToolCallID: call.ID,
			})
		}

		followup, err := s.llm.Chat(ctx, msgs, nil)
		if err != nil {
			return Result{}, err
		}
		final = followup.Content
	}

	searchResults := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		searchResults = append(searchResults, SearchResult{Title: h.Title, Similarity: h.Similarity})
	}

	return Result{
		Success:       true,
		Message:       final,
		FunctionCalls: records,
		SearchResults: searchResults,
	}, nil
}

// formatContext renders retrieval hits as the context block embedded in the
// user turn.
func formatContext(hits []index.Hit) string {
	if len(hits) == 0 {
		return "No relevant books found in the database."
	}
	var sb strings.Builder
	sb.WriteString("Relevant books from the database:\n\n")
	for _, h := range hits {
		fmt.Fprintf(&sb, "**%s**\n", h.Title)
		fmt.Fprintf(&sb, "Summary: %s\n", h.Summary)
		fmt.Fprintf(&sb, "Relevance Score: %.2f\n\n", h.Similarity)
	}
	return sb.String()
}

// Books lists every title the corpus currently holds.
func (s *Service) Books() []string {
	return s.catalog.Titles()
}

// Lookup returns the stored summary for an exact title.
func (s *Service) Lookup(title string) (string, bool) {
	return s.catalog.Lookup(title)
}

// MissMessage explains a failed lookup and suggests available titles.
func (s *Service) MissMessage(title string) string {
	return s.catalog.MissMessage(title)
}

// AddBook appends a new entry to the corpus file.
func (s *Service) AddBook(title, summary string) error {
	return s.catalog.Append(title, summary)
}

// DatabaseInfo reports the state of the vector index.
func (s *Service) DatabaseInfo(ctx context.Context) index.Info {
	return s.library.Info(ctx)
}

// CorpusInfo reports the state of the backing corpus file.
func (s *Service) CorpusInfo() corpus.FileInfo {
	return s.catalog.FileInfo()
}

// InitializeIndex populates the vector index from the corpus. Populating is
// a no-op when the index already holds documents.
func (s *Service) InitializeIndex(ctx context.Context) error {
	return s.library.Populate(ctx, s.catalog.Entries())
}

// ReinitializeIndex drops the index and rebuilds it from the current corpus.
func (s *Service) ReinitializeIndex(ctx context.Context) error {
	if err := s.library.Reset(ctx); err != nil {
		return err
	}
	return s.library.Populate(ctx, s.catalog.Entries())
}
