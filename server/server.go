// Package server exposes the chat pipeline, chat store, memories, and web
// search over a JSON HTTP API, plus a WebSocket endpoint for streaming
// replies.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/memchat/memchat/chat"
	"github.com/memchat/memchat/chatstore"
	"github.com/memchat/memchat/memory"
	"github.com/memchat/memchat/websearch"
)

// Server holds the handlers' dependencies. Build one with New and mount
// Handler on an http.Server.
type Server struct {
	chat     *chat.Service
	store    *chatstore.Store
	memories *memory.Gateway
	search   *websearch.Client
}

// New wires a server. All dependencies are required.
func New(chatSvc *chat.Service, store *chatstore.Store, memories *memory.Gateway, search *websearch.Client) *Server {
	return &Server{
		chat:     chatSvc,
		store:    store,
		memories: memories,
		search:   search,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /chats", s.handleListChats)
	mux.HandleFunc("POST /chats", s.handleCreateChat)
	mux.HandleFunc("DELETE /chats", s.handleDeleteChat)
	mux.HandleFunc("GET /chats/{chat_name}/messages", s.handleGetMessages)
	mux.HandleFunc("GET /memories", s.handleListMemories)
	mux.HandleFunc("POST /memories", s.handleAddMemory)
	mux.HandleFunc("DELETE /memories", s.handleDeleteMemory)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message  string `json:"message"`
		ChatName string `json:"chat_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Message is required"})
		return
	}
	if req.ChatName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Chat name is required"})
		return
	}

	reply, err := s.chat.Respond(r.Context(), chat.Request{ChatName: req.ChatName, Message: req.Message})
	if err != nil {
		log.Printf("[CHAT] Request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to process chat",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response":  reply,
		"chat_name": req.ChatName,
	})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := s.store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to list chats",
			"details": err.Error(),
		})
		return
	}
	if chats == nil {
		chats = []chatstore.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Chat name is required"})
		return
	}

	name, err := s.store.Create(req.Name)
	switch {
	case errors.Is(err, chatstore.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid chat name"})
	case errors.Is(err, chatstore.ErrChatExists):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Chat already exists"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to create chat",
			"details": err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"chat_name": name,
			"message":   "Chat created successfully",
		})
	}
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Chat name is required"})
		return
	}

	switch err := s.store.Delete(name); {
	case errors.Is(err, chatstore.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Chat not found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to delete chat",
			"details": err.Error(),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Chat deleted successfully",
		})
	}
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("chat_name")

	msgs, err := s.store.Get(name)
	switch {
	case errors.Is(err, chatstore.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Chat not found"})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to get messages",
			"details": err.Error(),
		})
	default:
		if msgs == nil {
			msgs = []chatstore.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	records := s.memories.ListAll(r.Context())
	if records == nil {
		records = []memory.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": records})
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Memory string `json:"memory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Memory == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Memory text is required"})
		return
	}

	rec, err := s.memories.Add(r.Context(), req.Memory, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to add memory",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Memory added",
		"id":      rec.ID,
	})
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		deleted, err := s.memories.ClearAll(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Failed to clear memories",
				"details": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Memories cleared",
			"deleted": deleted,
		})
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Memory ID is required"})
		return
	}

	if err := s.memories.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to delete memory",
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Memory deleted",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := s.memories.Healthy(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"qdrant":    "disconnected",
			"error":     err.Error(),
			"timestamp": now,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"qdrant":    "connected",
		"timestamp": now,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Query is required"})
		return
	}

	if !websearch.ShouldSearch(req.Query) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"should_search": false,
			"message":       "Query does not require real-time search",
		})
		return
	}

	formatted, raw, err := s.search.Search(r.Context(), req.Query)
	if err != nil {
		log.Printf("[SEARCH] Failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"should_search": true,
		"results":       formatted,
		"raw_results":   raw,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[SERVER] Failed to encode response: %v", err)
	}
}
