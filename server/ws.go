package server

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/memchat/memchat/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Single-user local app; no origin restrictions.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the first (and only) frame the client sends.
type wsRequest struct {
	Message  string `json:"message"`
	ChatName string `json:"chat_name"`
}

type wsChunk struct {
	Type    string `json:"type"` // "chunk"
	Content string `json:"content"`
}

type wsDone struct {
	Type     string `json:"type"` // "done"
	Response string `json:"response"`
	ChatName string `json:"chat_name"`
}

type wsError struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// handleWS runs one chat turn over a WebSocket, streaming reply chunks as
// the model produces them. The connection serves a single turn and closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var req wsRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(wsError{Type: "error", Error: "Invalid request frame"})
		return
	}
	if req.Message == "" || req.ChatName == "" {
		conn.WriteJSON(wsError{Type: "error", Error: "message and chat_name are required"})
		return
	}

	// Chunks are written from the LLM streaming callback; gorilla
	// connections allow one concurrent writer, and Respond does not
	// return until streaming is finished, so writes never interleave.
	reply, err := s.chat.Respond(r.Context(), chat.Request{
		ChatName: req.ChatName,
		Message:  req.Message,
		OnChunk: func(text string) {
			if err := conn.WriteJSON(wsChunk{Type: "chunk", Content: text}); err != nil {
				log.Printf("[WS] Chunk write failed: %v", err)
			}
		},
	})
	if err != nil {
		conn.WriteJSON(wsError{Type: "error", Error: err.Error()})
		return
	}

	conn.WriteJSON(wsDone{Type: "done", Response: reply, ChatName: req.ChatName})
}
