// Package chat runs the conversation pipeline: recall memories, load
// history, call the model, persist the turn, and hand the finished turn
// to the background fact extractor.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/memchat/memchat/chatstore"
	"github.com/memchat/memchat/llm"
	"github.com/memchat/memchat/memory"
)

const (
	chatTemperature   = 0.8
	chatMaxTokens     = 2000
	memorySearchLimit = 5
)

// ErrEmptyMessage and ErrEmptyChatName reject incomplete requests before
// any work happens.
var (
	ErrEmptyMessage  = errors.New("message is required")
	ErrEmptyChatName = errors.New("chat name is required")
)

// Request is one user turn.
type Request struct {
	ChatName string
	Message  string

	// OnChunk, when set, streams the reply as it is generated.
	OnChunk func(text string)
}

// Service wires the pipeline's dependencies together. All of them are
// passed in explicitly; nothing is constructed lazily.
type Service struct {
	llm       llm.Client
	store     *chatstore.Store
	memories  *memory.Gateway
	extractor *Extractor
}

// NewService builds the orchestrator. extractor may be nil, in which case
// no facts are extracted.
func NewService(client llm.Client, store *chatstore.Store, memories *memory.Gateway, extractor *Extractor) *Service {
	return &Service{
		llm:       client,
		store:     store,
		memories:  memories,
		extractor: extractor,
	}
}

// Respond runs one full conversation turn and returns the assistant reply.
//
// Memory recall is best-effort: a failing memory backend degrades to "no
// memories" rather than failing the chat. Persistence and the LLM call
// are not; their errors propagate.
func (s *Service) Respond(ctx context.Context, req Request) (string, error) {
	if req.Message == "" {
		return "", ErrEmptyMessage
	}
	if req.ChatName == "" {
		return "", ErrEmptyChatName
	}

	memories := s.memories.Search(ctx, req.Message, memorySearchLimit)
	if len(memories) > 0 {
		log.Printf("[CHAT] Recalled %d memories for %q", len(memories), req.ChatName)
	}

	history, err := s.store.Get(req.ChatName)
	if err != nil {
		if !errors.Is(err, chatstore.ErrNotFound) {
			return "", fmt.Errorf("load history: %w", err)
		}
		history = nil
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: req.Message})

	reply, err := s.llm.Complete(ctx, llm.Request{
		System:      buildSystemPrompt(memories),
		Messages:    messages,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		OnChunk:     req.OnChunk,
	})
	if err != nil {
		return "", fmt.Errorf("complete chat: %w", err)
	}

	err = s.store.Append(req.ChatName,
		chatstore.Message{Role: "user", Content: req.Message},
		chatstore.Message{Role: "assistant", Content: reply},
	)
	if err != nil {
		return "", fmt.Errorf("persist turn: %w", err)
	}

	if s.extractor != nil {
		s.extractor.Enqueue(req.Message, reply)
	}

	return reply, nil
}
