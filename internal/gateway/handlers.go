package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"docgate/internal/ai"
	"docgate/internal/database"
	"docgate/internal/embedding"
	"docgate/internal/extract"
)

// handleCreateUser handles POST /api/users
// Request: {"name": "Ada", "email": "ada@example.com"}
func (g *Gateway) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Email == "" {
		writeJSONError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := g.store.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			writeJSONError(w, http.StatusConflict, "email already registered")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "create user failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleListDocuments handles GET /api/users/{id}/documents
func (g *Gateway) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ownerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if _, err := g.store.GetUser(r.Context(), ownerID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "lookup failed: "+err.Error())
		return
	}

	docs, err := g.store.ListDocumentsByOwner(r.Context(), ownerID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "list failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

// handleCreateDocument handles POST /api/documents
// Request: {"owner_id": 1, "title": "notes.html", "content_type": "text/html",
// "content": "<html>...</html>", "index": true}
// Content is run through text extraction before storage. When index is set
// the extracted text is also chunked and embedded in the same request.
func (g *Gateway) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		OwnerID     int64  `json:"owner_id"`
		Title       string `json:"title"`
		ContentType string `json:"content_type,omitempty"`
		Content     string `json:"content"`
		Index       bool   `json:"index,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Content == "" {
		writeJSONError(w, http.StatusBadRequest, "content is required")
		return
	}

	text, err := extract.Text(req.ContentType, []byte(req.Content))
	if err != nil {
		writeJSONError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if text == "" {
		writeJSONError(w, http.StatusBadRequest, "no extractable text in content")
		return
	}

	doc, err := g.store.CreateDocument(r.Context(), req.Title, text, req.OwnerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "owner not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "create document failed: "+err.Error())
		return
	}

	chunks := 0
	if req.Index {
		chunks, err = g.retrieval.Ingest(r.Context(), doc.ID, doc.OwnerID, text)
		if err != nil {
			log.Printf("[Gateway] index after create failed for document %d: %v", doc.ID, err)
			writeJSONError(w, indexErrorStatus(err), "index failed: "+err.Error())
			return
		}
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"document": doc,
		"chunks":   chunks,
	})
}

// handleIndexDocument handles POST /api/documents/index
// Request: {"document_id": 1}
// Response: {"status": "indexed", "chunks": 4}
func (g *Gateway) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		DocumentID int64 `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	doc, err := g.store.GetDocument(r.Context(), req.DocumentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "lookup failed: "+err.Error())
		return
	}

	chunks, err := g.retrieval.Ingest(r.Context(), doc.ID, doc.OwnerID, doc.Content)
	if err != nil {
		writeJSONError(w, indexErrorStatus(err), "index failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "indexed",
		"chunks": chunks,
	})
}

// searchResult is one matching chunk in the /api/search response.
type searchResult struct {
	DocumentID int64   `json:"document_id"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// handleSearch handles POST /api/search
// Request: {"query": "quarterly revenue", "owner_id": 1, "top_k": 5}
// Response: {"results": [{"document_id": 1, "text": "...", "score": 0.42}]}
func (g *Gateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Query   string `json:"query"`
		OwnerID int64  `json:"owner_id"`
		TopK    int    `json:"top_k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Query == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := g.retrieval.SearchForOwner(r.Context(), req.Query, req.OwnerID, req.TopK)
	if err != nil {
		writeJSONError(w, indexErrorStatus(err), "search failed: "+err.Error())
		return
	}

	results := make([]searchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, searchResult{
			DocumentID: m.Chunk.DocumentID,
			Text:       m.Chunk.Text,
			Score:      m.Score,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// handleAsk handles POST /api/ask
// Request: {"question": "what does the report say?", "owner_id": 1}
// Response: {"answer": "...", "source": "document"}
func (g *Gateway) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Question string `json:"question"`
		OwnerID  int64  `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Question == "" {
		writeJSONError(w, http.StatusBadRequest, "question is required")
		return
	}

	resp, err := g.pipeline.Answer(r.Context(), req.Question, req.OwnerID)
	if err != nil {
		writeJSONError(w, askErrorStatus(err), "answer failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// indexErrorStatus maps ingest failures to HTTP status codes.
func indexErrorStatus(err error) int {
	if errors.Is(err, embedding.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// askErrorStatus maps answering failures to HTTP status codes.
func askErrorStatus(err error) int {
	switch {
	case errors.Is(err, embedding.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ai.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
