package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/ollama/ollama/api"
)

type OllamaProvider struct {
	client *api.Client
	model  string
	opts   Options
}

func NewOllamaProvider(model string, opts Options) (*OllamaProvider, error) {
	if model == "" {
		model = "llama3.2"
	}

	baseURL := "http://localhost:11434"
	if envURL := os.Getenv("OLLAMA_HOST"); envURL != "" {
		baseURL = envURL
	}
	uri, _ := url.Parse(baseURL)
	client := api.NewClient(uri, http.DefaultClient)

	return &OllamaProvider{
		client: client,
		model:  model,
		opts:   opts,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	var apiMsgs []api.Message
	for _, m := range messages {
		apiMsgs = append(apiMsgs, api.Message{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	req := &api.ChatRequest{
		Model:    p.model,
		Messages: apiMsgs,
		Stream:   new(bool), // false
		Tools:    ollamaTools(tools),
		Options:  ollamaOptions(p.opts),
	}

	var respContent string
	var totalTokens int
	var toolCalls []ToolCall

	err := p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		respContent += resp.Message.Content
		if resp.Done {
			totalTokens = resp.EvalCount + resp.PromptEvalCount
		}

		for _, tc := range resp.Message.ToolCalls {
			argsBytes, _ := json.Marshal(tc.Function.Arguments)
			toolCalls = append(toolCalls, ToolCall{
				ID:   ollamaCallID(tc.Function.Name, len(toolCalls)),
				Name: tc.Function.Name,
				Args: string(argsBytes),
			})
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	return &Response{
		Content:   respContent,
		ToolCalls: toolCalls,
		Usage:     usageFromTokens(totalTokens),
	}, nil
}

func ollamaTools(tools []ToolDefinition) []api.Tool {
	var out []api.Tool
	for _, td := range tools {
		props := api.NewToolPropertiesMap()
		if raw, ok := td.Parameters["properties"].(map[string]interface{}); ok {
			for name, spec := range raw {
				prop := api.ToolProperty{}
				if m, ok := spec.(map[string]interface{}); ok {
					if t, ok := m["type"].(string); ok {
						prop.Type = api.PropertyType{t}
					}
					if d, ok := m["description"].(string); ok {
						prop.Description = d
					}
				}
				props.Set(name, prop)
			}
		}
		var required []string
		if raw, ok := td.Parameters["required"].([]string); ok {
			required = raw
		}

		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        td.Name,
				Description: td.Description,
				Parameters: api.ToolFunctionParameters{
					Type:       "object",
					Properties: props,
					Required:   required,
				},
			},
		})
	}
	return out
}

func ollamaOptions(opts Options) map[string]interface{} {
	out := map[string]interface{}{}
	if opts.Temperature > 0 {
		out["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		out["num_predict"] = opts.MaxTokens
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ollamaCallID synthesizes an id for a tool call; the API has none. The
// positional suffix keeps repeated calls to the same function distinct.
func ollamaCallID(name string, n int) string {
	return fmt.Sprintf("call_%d_%s", n, name)
}

func usageFromTokens(total int) Usage {
	return Usage{
		TotalTokens:      total,
		PromptTokens:     0,
		CompletionTokens: total,
	}
}

func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := &api.EmbeddingRequest{
		Model:  p.model,
		Prompt: text,
	}
	resp, err := p.client.Embeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
