package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgate/internal/agent"
	"docgate/internal/ai"
	"docgate/internal/chunker"
	"docgate/internal/database"
	"docgate/internal/embedding"
	"docgate/internal/retrieval"
	"docgate/internal/vector"
)

func newTestGateway(t *testing.T) (*Gateway, *ai.MockProvider) {
	t.Helper()

	store, err := database.Open(filepath.Join(t.TempDir(), "docgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	emb := embedding.NewHashing(64)
	vstore := vector.NewStore(emb.Dimensions())
	svc := retrieval.NewService(vstore, emb, chunker.NewSplitter(200, 40), retrieval.Config{TopK: 3})

	provider := ai.NewMockProvider("mock")
	synth := agent.NewSynthesizer(provider, agent.DefaultPolicy())
	pipeline := agent.NewPipeline(svc, synth)

	return New(0, store, svc, pipeline), provider
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createUser(t *testing.T, h http.Handler, email string) int64 {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/users", map[string]string{
		"name":  "Test User",
		"email": email,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user database.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	return user.ID
}

func TestCreateUser(t *testing.T) {
	g, _ := newTestGateway(t)
	h := g.Handler()

	id := createUser(t, h, "ada@example.com")
	assert.NotZero(t, id)

	rec := doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/users", map[string]string{"name": "no email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUserRejectsBadJSON(t *testing.T) {
	g, _ := newTestGateway(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDocumentAndList(t *testing.T) {
	g, _ := newTestGateway(t)
	h := g.Handler()
	owner := createUser(t, h, "ada@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/documents", map[string]interface{}{
		"owner_id": owner,
		"title":    "notes.txt",
		"content":  "The quarterly report shows revenue grew by twelve percent.",
		"index":    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Document database.Document `json:"document"`
		Chunks   int               `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Positive(t, created.Chunks)
	assert.Equal(t, owner, created.Document.OwnerID)

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/users/%d/documents", owner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Documents []database.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Documents, 1)
	assert.Equal(t, "notes.txt", listed.Documents[0].Title)
}

func TestCreateDocumentUnknownOwner(t *testing.T) {
	g, _ := newTestGateway(t)
	rec := doJSON(t, g.Handler(), http.MethodPost, "/api/documents", map[string]interface{}{
		"owner_id": 999,
		"title":    "ghost.txt",
		"content":  "content for nobody",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateDocumentStripsHTML(t *testing.T) {
	g, _ := newTestGateway(t)
	h := g.Handler()
	owner := createUser(t, h, "ada@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/documents", map[string]interface{}{
		"owner_id":     owner,
		"title":        "page.html",
		"content_type": "text/html",
		"content":      "<html><body><script>alert(1)</script><p>Visible text.</p></body></html>",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Document database.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Visible text.", created.Document.Content)
}

func TestCreateDocumentUnsupportedType(t *testing.T) {
	g, _ := newTestGateway(t)
	h := g.Handler()
	owner := createUser(t, h, "ada@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/documents", map[string]interface{}{
		"owner_id":     owner,
		"title":        "scan.pdf",
		"content_type": "application/pdf",
		"content":      "%PDF-1.4",
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestIndexDocumentEndpoint(t *testing.T) {
	g, _ := newTestGateway(t)
	h := g.Handler()
	owner := createUser(t, h, "ada@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/documents", map[string]interface{}{
		"owner_id": owner,
		"title":    "notes.txt",
		"content":  "Solar output peaked in July. Wind output peaked in March.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Document database.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPost, "/api/documents/index", map[string]int64{
		"document_id": created.Document.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var indexed struct {
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &indexed))
	assert.Equal(t, "indexed", indexed.Status)
	assert.Positive(t, indexed.Chunks)

	rec = doJSON(t, h, http.MethodPost, "/api/documents/index", map[string]int64{"document_id": 999})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	g, _ := newTestGateway(t)
	h := g.Handler()
	owner := createUser(t, h, "ada@example.com")

	rec := doJSON(t, h, http.MethodPost, "/api/documents", map[string]interface{}{
		"owner_id": owner,
		"title":    "energy.txt",
		"content":  "Solar output peaked in July. Hydro generation stayed flat all year.",
		"index":    true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Document database.Document `json:"document"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPost, "/api/search", map[string]interface{}{
		"query":    "solar output in July",
		"owner_id": owner,
		"top_k":    3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var found struct {
		Results []struct {
			DocumentID int64   `json:"document_id"`
			Text       string  `json:"text"`
			Score      float32 `json:"score"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.NotEmpty(t, found.Results)
	for _, r := range found.Results {
		assert.Equal(t, created.Document.ID, r.DocumentID)
		assert.NotEmpty(t, r.Text)
	}

	// Another owner never sees these chunks.
	rec = doJSON(t, h, http.MethodPost, "/api/search", map[string]interface{}{
		"query":    "solar output in July",
		"owner_id": owner + 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Empty(t, found.Results)

	rec = doJSON(t, h, http.MethodPost, "/api/search", map[string]interface{}{"owner_id": owner})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk(t *testing.T) {
	g, provider := newTestGateway(t)
	h := g.Handler()
	provider.AddResponse(ai.MockResponse{Content: "General knowledge answer."})

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]interface{}{
		"question": "What is the capital of France?",
		"owner_id": int64(1),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp agent.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "General knowledge answer.", resp.Answer)
	assert.Equal(t, agent.SourceGeneral, resp.Source)

	rec = doJSON(t, h, http.MethodPost, "/api/ask", map[string]interface{}{"owner_id": int64(1)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskGenerationFailure(t *testing.T) {
	g, provider := newTestGateway(t)
	provider.AddResponse(ai.MockResponse{Error: fmt.Errorf("%w: upstream down", ai.ErrGenerationFailed)})

	rec := doJSON(t, g.Handler(), http.MethodPost, "/api/ask", map[string]interface{}{
		"question": "anything",
		"owner_id": int64(1),
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealth(t *testing.T) {
	g, _ := newTestGateway(t)
	rec := doJSON(t, g.Handler(), http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
}

func TestWebSocketAsk(t *testing.T) {
	g, provider := newTestGateway(t)
	provider.AddResponse(ai.MockResponse{Content: "Socket answer."})

	server := httptest.NewServer(g.Handler())
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsQuestion{Question: "hello?", OwnerID: 1}))
	var answer wsAnswer
	require.NoError(t, conn.ReadJSON(&answer))
	assert.Equal(t, "Socket answer.", answer.Answer)
	assert.Equal(t, "general", answer.Source)

	require.NoError(t, conn.WriteJSON(wsQuestion{OwnerID: 1}))
	require.NoError(t, conn.ReadJSON(&answer))
	assert.Contains(t, answer.Error, "question is required")
}
