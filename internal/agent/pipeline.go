package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"docgate/internal/retrieval"
)

// Retriever is the owner-scoped search the pipeline consumes.
type Retriever interface {
	OwnerIndex
	SearchForOwner(ctx context.Context, query string, ownerID int64, k int) ([]retrieval.ScoredChunk, error)
	TopK() int
}

// Response is the terminal output of one pipeline pass.
type Response struct {
	Answer string `json:"answer"`
	Source Source `json:"source"`
}

// Pipeline sequences intent routing, retrieval and synthesis. One pass per
// request, no branch re-entry, no loops; a general_query intent skips
// retrieval entirely.
type Pipeline struct {
	router      *IntentRouter
	retriever   Retriever
	synthesizer *Synthesizer
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(retriever Retriever, synthesizer *Synthesizer) *Pipeline {
	return &Pipeline{
		router:      NewIntentRouter(retriever),
		retriever:   retriever,
		synthesizer: synthesizer,
	}
}

// Answer runs one question through the pipeline. Any stage failure aborts
// the request; a fabricated answer is never returned.
func (p *Pipeline) Answer(ctx context.Context, question string, ownerID int64) (*Response, error) {
	state := &State{
		RequestID: uuid.NewString(),
		Question:  question,
		OwnerID:   ownerID,
		Intent:    IntentUnknown,
	}

	state.Intent = p.router.Route(ownerID)

	if state.Intent == IntentDocumentQuery {
		retrieved, err := p.retriever.SearchForOwner(ctx, question, ownerID, p.retriever.TopK())
		if err != nil {
			return nil, fmt.Errorf("agent: retrieve for request %s: %w", state.RequestID, err)
		}
		state.Retrieved = retrieved
	}

	if err := p.synthesizer.Synthesize(ctx, state); err != nil {
		return nil, fmt.Errorf("agent: request %s: %w", state.RequestID, err)
	}

	log.Printf("[Pipeline] request %s owner=%d intent=%s retrieved=%d source=%s",
		state.RequestID, ownerID, state.Intent, len(state.Retrieved), state.Source)

	return &Response{Answer: state.Answer, Source: state.Source}, nil
}
