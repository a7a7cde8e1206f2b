package librarian

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/librarian/internal/provider"
)

// ToolExecutor runs one tool invocation against decoded arguments. Results
// always fold back into the conversation, so executors return text, not
// errors.
type ToolExecutor func(ctx context.Context, args map[string]string) string

// ToolRegistry manages the tools offered to the model and their execution.
type ToolRegistry struct {
	mu        sync.RWMutex
	tools     map[string]provider.ToolDefinition
	executors map[string]ToolExecutor
	order     []string
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:     make(map[string]provider.ToolDefinition),
		executors: make(map[string]ToolExecutor),
	}
}

// Register adds a tool to the registry.
func (tr *ToolRegistry) Register(tool provider.ToolDefinition, executor ToolExecutor) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}

	tr.tools[tool.Name] = tool
	tr.executors[tool.Name] = executor
	tr.order = append(tr.order, tool.Name)
	return nil
}

// Definitions returns all registered tools in registration order.
func (tr *ToolRegistry) Definitions() []provider.ToolDefinition {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]provider.ToolDefinition, 0, len(tr.order))
	for _, name := range tr.order {
		out = append(out, tr.tools[name])
	}
	return out
}

// Execute dispatches an invocation by name. An unrecognized name produces a
// literal "Unknown function" result rather than failing the request.
func (tr *ToolRegistry) Execute(ctx context.Context, name string, args map[string]string) string {
	tr.mu.RLock()
	executor, ok := tr.executors[name]
	tr.mu.RUnlock()

	if !ok {
		return fmt.Sprintf("Unknown function: %s", name)
	}
	return executor(ctx, args)
}

// decodeArgs parses a model-emitted JSON argument object into string form.
// A malformed object is an error; it fails the whole request.
func decodeArgs(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	args := make(map[string]string, len(decoded))
	for k, v := range decoded {
		switch val := v.(type) {
		case string:
			args[k] = val
		default:
			args[k] = fmt.Sprint(val)
		}
	}
	return args, nil
}
