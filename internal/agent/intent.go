package agent

// OwnerIndex answers whether an owner has any indexed content.
type OwnerIndex interface {
	HasAnyChunks(ownerID int64) bool
}

// IntentRouter decides whether a question should attempt retrieval at all.
// Keyword heuristics are unreliable for this call, so the router only checks
// whether retrieval could possibly produce anything: owners with indexed
// content always attempt it, and the decision to actually use the retrieved
// context is deferred to the answer policy.
type IntentRouter struct {
	index OwnerIndex
}

// NewIntentRouter creates a router over the given owner index.
func NewIntentRouter(index OwnerIndex) *IntentRouter {
	return &IntentRouter{index: index}
}

// Route returns the intent for a question from the given owner.
func (r *IntentRouter) Route(ownerID int64) Intent {
	if !r.index.HasAnyChunks(ownerID) {
		return IntentGeneralQuery
	}
	return IntentDocumentQuery
}
