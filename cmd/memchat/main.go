// memchat is a single-user chat server with persistent chats, semantic
// memory, and real-time web search.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/memchat/memchat/chat"
	"github.com/memchat/memchat/chatstore"
	"github.com/memchat/memchat/config"
	"github.com/memchat/memchat/llm"
	"github.com/memchat/memchat/memory"
	chromemstore "github.com/memchat/memchat/memory/store/chromem"
	qdrantstore "github.com/memchat/memchat/memory/store/qdrant"
	"github.com/memchat/memchat/server"
	"github.com/memchat/memchat/websearch"
)

const embeddingCacheEntries = 4096

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	embedder, err := newEmbedder()
	if err != nil {
		log.Fatalf("❌ Failed to set up embedder: %v", err)
	}

	store, err := newVectorStore(cfg, embedder.Dimensions())
	if err != nil {
		log.Fatalf("❌ Failed to set up vector store: %v", err)
	}

	engine := memory.NewEngine(store, embedder)
	defer engine.Close()
	memories := memory.NewGateway(engine)
	log.Println("✅ Memory system configured")

	client := llm.NewAnthropicClient(cfg.AnthropicKey, cfg.Model)
	log.Printf("✅ Anthropic client configured (model %s)", cfg.Model)

	chats := chatstore.New(cfg.DataDir)
	search := websearch.New(cfg.TavilyKey)
	if cfg.TavilyKey == "" {
		log.Println("⚠️  TAVILY_API_KEY not set, /search will return errors")
	}

	extractor := chat.NewExtractor(client, memories)
	defer extractor.Close()
	go logExtractionErrors(extractor)

	svc := chat.NewService(client, chats, memories, extractor)
	srv := server.New(svc, chats, memories, search)

	log.Println("=============================================================")
	log.Println("  memchat running")
	log.Println("=============================================================")
	log.Printf("Chat API:  http://localhost:%s/chat", cfg.Port)
	log.Printf("WebSocket: ws://localhost:%s/ws", cfg.Port)
	log.Printf("Health:    http://localhost:%s/health", cfg.Port)
	log.Printf("Chats dir: %s", cfg.DataDir)
	log.Println("Press Ctrl+C to stop")
	log.Println("=============================================================")

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func newVectorStore(cfg *config.Config, dims int) (memory.Store, error) {
	if !cfg.UseQdrant {
		log.Println("📦 QDRANT_URL empty, using embedded vector store")
		return chromemstore.New()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return qdrantstore.New(ctx, cfg.QdrantHost, cfg.QdrantPort, dims)
}

func logExtractionErrors(e *chat.Extractor) {
	for err := range e.Errors() {
		log.Printf("[EXTRACT] Background error: %v", err)
	}
}
