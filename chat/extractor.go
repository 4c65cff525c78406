package chat

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/memchat/memchat/llm"
	"github.com/memchat/memchat/memory"
)

const (
	// extractQueueSize bounds the pending-job channel. When the queue is
	// full new jobs are shed, not blocked on.
	extractQueueSize = 16

	// memoryCap stops extraction once this many memories exist. Advisory:
	// in-flight jobs may still push the total slightly past it.
	memoryCap = 50

	// minFactLength drops trivially short extractions ("likes X" noise).
	minFactLength = 10

	extractTemperature = 0.3
	extractMaxTokens   = 1000
	extractTimeout     = 60 * time.Second
)

// extractJob is one conversation turn awaiting fact extraction.
type extractJob struct {
	userMessage string
	reply       string
}

// Extractor pulls durable facts out of finished conversation turns and
// stores them as memories. Jobs run on a single background goroutine so
// extraction never delays a chat response; failed jobs are logged and
// reported on Errors, never retried.
type Extractor struct {
	llm      llm.Client
	memories *memory.Gateway

	mu     sync.Mutex // guards jobs against Enqueue/Close racing
	jobs   chan extractJob
	errs   chan error
	done   bool
	closed chan struct{}
}

// NewExtractor starts the worker goroutine.
func NewExtractor(client llm.Client, memories *memory.Gateway) *Extractor {
	e := &Extractor{
		llm:      client,
		memories: memories,
		jobs:     make(chan extractJob, extractQueueSize),
		errs:     make(chan error, extractQueueSize),
		closed:   make(chan struct{}),
	}
	go e.run()
	return e
}

// Enqueue submits a turn for extraction. Returns false when the queue is
// full or the extractor is closed; the job is dropped either way.
func (e *Extractor) Enqueue(userMessage, reply string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return false
	}

	select {
	case e.jobs <- extractJob{userMessage: userMessage, reply: reply}:
		return true
	default:
		log.Printf("[EXTRACT] Queue full, dropping extraction job")
		return false
	}
}

// Errors exposes extraction failures. The channel is buffered and never
// blocks the worker; unread errors beyond the buffer are dropped.
func (e *Extractor) Errors() <-chan error {
	return e.errs
}

// Close stops accepting jobs, drains the queue, and waits for the worker
// to finish.
func (e *Extractor) Close() {
	e.mu.Lock()
	if !e.done {
		e.done = true
		close(e.jobs)
	}
	e.mu.Unlock()
	<-e.closed
}

func (e *Extractor) run() {
	defer close(e.closed)
	for job := range e.jobs {
		if err := e.process(job); err != nil {
			log.Printf("[EXTRACT] Extraction failed: %v", err)
			select {
			case e.errs <- err:
			default:
			}
		}
	}
}

func (e *Extractor) process(job extractJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	if n := e.memories.Count(ctx); n >= memoryCap {
		log.Printf("[EXTRACT] Memory cap reached (%d), skipping extraction", n)
		return nil
	}

	reply, err := e.llm.Complete(ctx, llm.Request{
		System: extractionPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: "User: " + job.userMessage + "\nAI: " + job.reply},
		},
		Temperature: extractTemperature,
		MaxTokens:   extractMaxTokens,
	})
	if err != nil {
		return err
	}

	facts := parseFacts(reply)
	saved := 0
	for _, fact := range facts {
		if len(strings.TrimSpace(fact)) <= minFactLength {
			continue
		}
		if _, err := e.memories.Add(ctx, fact, time.Now()); err != nil {
			log.Printf("[EXTRACT] Failed to save fact %q: %v", fact, err)
			continue
		}
		saved++
	}
	if saved > 0 {
		log.Printf("[EXTRACT] Saved %d facts", saved)
	}
	return nil
}

// parseFacts pulls the {"facts": [...]} object out of the model reply.
// Models sometimes wrap JSON in prose or code fences, so parsing falls
// back to the first balanced object in the text.
func parseFacts(reply string) []string {
	var parsed struct {
		Facts []string `json:"facts"`
	}
	if err := json.Unmarshal([]byte(reply), &parsed); err == nil {
		return parsed.Facts
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		log.Printf("[EXTRACT] No JSON object in extraction reply")
		return nil
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		log.Printf("[EXTRACT] Failed to parse extraction reply: %v", err)
		return nil
	}
	return parsed.Facts
}
