package provider

import (
	"context"
	"errors"
)

// StubProvider is a scripted provider for testing. Each Chat call pops the
// next response; Embed returns a fixed vector. It records what it was asked
// so tests can assert on call shapes.
type StubProvider struct {
	Responses []Response
	ChatErr   error
	EmbedVec  []float32
	EmbedErr  error

	// Moderation script; zero value means "not flagged".
	Verdict     *Verdict
	ModerateErr error

	ChatCalls     [][]Message
	ToolsOffered  [][]ToolDefinition
	EmbedCalls    []string
	ModerateCalls []string
}

func NewStubProvider(responses ...Response) *StubProvider {
	return &StubProvider{
		Responses: responses,
		EmbedVec:  []float32{0.1, 0.2, 0.3},
	}
}

func (m *StubProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	msgs := make([]Message, len(messages))
	copy(msgs, messages)
	m.ChatCalls = append(m.ChatCalls, msgs)
	m.ToolsOffered = append(m.ToolsOffered, tools)

	if m.ChatErr != nil {
		return nil, m.ChatErr
	}
	if len(m.Responses) == 0 {
		return nil, errors.New("stub provider: no scripted responses left")
	}

	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return &resp, nil
}

func (m *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	m.EmbedCalls = append(m.EmbedCalls, text)
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	return m.EmbedVec, nil
}

func (m *StubProvider) Moderate(ctx context.Context, text string) (*Verdict, error) {
	m.ModerateCalls = append(m.ModerateCalls, text)
	if m.ModerateErr != nil {
		return nil, m.ModerateErr
	}
	if m.Verdict != nil {
		return m.Verdict, nil
	}
	return &Verdict{Flagged: false}, nil
}

func (m *StubProvider) Name() string {
	return "stub"
}
