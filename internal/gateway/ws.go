package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// wsQuestion is one inbound message on the /api/ws channel.
type wsQuestion struct {
	Question string `json:"question"`
	OwnerID  int64  `json:"owner_id"`
}

// wsAnswer is one outbound message on the /api/ws channel.
type wsAnswer struct {
	Answer string `json:"answer,omitempty"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleWebSocket upgrades /api/ws and answers questions over the socket,
// one request and one response per message.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := g.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	log.Printf("[Gateway] websocket client connected: %s", r.RemoteAddr)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Gateway] websocket read error: %v", err)
			}
			return
		}

		var q wsQuestion
		if err := json.Unmarshal(data, &q); err != nil {
			g.sendWS(conn, wsAnswer{Error: "invalid JSON: " + err.Error()})
			continue
		}
		if q.Question == "" {
			g.sendWS(conn, wsAnswer{Error: "question is required"})
			continue
		}

		resp, err := g.pipeline.Answer(ctx, q.Question, q.OwnerID)
		if err != nil {
			g.sendWS(conn, wsAnswer{Error: "answer failed: " + err.Error()})
			continue
		}
		g.sendWS(conn, wsAnswer{Answer: resp.Answer, Source: string(resp.Source)})
	}
}

func (g *Gateway) sendWS(conn *websocket.Conn, msg wsAnswer) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[Gateway] websocket write failed: %v", err)
	}
}
