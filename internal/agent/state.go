// Package agent implements the question-answering pipeline: intent routing,
// owner-scoped retrieval and answer synthesis, run as one sequential pass
// per request.
package agent

import "docgate/internal/retrieval"

// Intent is the routing decision of whether a question should attempt
// document-grounded retrieval. Fixed once set, never revisited.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentDocumentQuery
	IntentGeneralQuery
)

func (i Intent) String() string {
	switch i {
	case IntentDocumentQuery:
		return "document_query"
	case IntentGeneralQuery:
		return "general_query"
	default:
		return "unknown"
	}
}

// Source tags whether an answer was grounded in retrieved document content.
type Source string

const (
	SourceDocument Source = "document"
	SourceGeneral  Source = "general"
)

// State carries one request through the pipeline. It is created at pipeline
// entry, mutated in place by each stage, and discarded at exit; never shared
// between requests.
type State struct {
	RequestID string
	Question  string
	OwnerID   int64
	Intent    Intent
	Retrieved []retrieval.ScoredChunk
	Answer    string
	Source    Source
}
