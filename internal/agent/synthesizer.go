package agent

import (
	"context"
	"fmt"
	"strings"

	"docgate/internal/ai"
)

const (
	generalSystemPrompt = "You are a helpful AI assistant. Be concise and direct in your responses."

	// The retrieved excerpts come from documents the user uploaded, so the
	// model must treat them as authoritative rather than claim it has no
	// access to the user's files.
	documentSystemPrompt = "You are a helpful AI assistant answering questions about the user's documents. " +
		"The document excerpts below were retrieved from content the user uploaded. " +
		"They are authoritative: answer from them, and never deny having access to the document content. " +
		"If the excerpts do not contain the answer, say so."

	answerMaxTokens = 1024
)

// Synthesizer produces the final answer, deciding via its policy whether to
// condition the generation on retrieved chunks.
type Synthesizer struct {
	provider ai.Provider
	policy   Policy
}

// NewSynthesizer creates a synthesizer over the given provider and policy.
func NewSynthesizer(provider ai.Provider, policy Policy) *Synthesizer {
	return &Synthesizer{provider: provider, policy: policy}
}

// Synthesize fills in state.Answer and state.Source. With no retrieved
// chunks the answer is always general; otherwise the policy arbitrates. A
// generation failure is fatal to the request.
func (s *Synthesizer) Synthesize(ctx context.Context, state *State) error {
	useContext := false
	if len(state.Retrieved) > 0 {
		useContext = s.policy.UseContext(state.Question, state.Retrieved[0].Score)
	}

	var messages []ai.ChatMessage
	if useContext {
		state.Source = SourceDocument
		messages = []ai.ChatMessage{
			{Role: "system", Content: documentSystemPrompt},
			{Role: "user", Content: buildContextPrompt(state)},
		}
	} else {
		state.Source = SourceGeneral
		messages = []ai.ChatMessage{
			{Role: "system", Content: generalSystemPrompt},
			{Role: "user", Content: state.Question},
		}
	}

	resp, err := s.provider.GenerateResponse(ctx, &ai.GenerateRequest{
		Messages:  messages,
		MaxTokens: answerMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("agent: synthesize answer: %w", err)
	}

	state.Answer = resp.Content
	return nil
}

func buildContextPrompt(state *State) string {
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for i, sc := range state.Retrieved {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, sc.Chunk.Text)
	}
	b.WriteString("Question:\n")
	b.WriteString(state.Question)
	return b.String()
}
