// Package chatstore persists chat transcripts as one JSON file per chat.
//
// The file name is the sanitized chat name; file existence is the sole
// source of truth for chat existence. Appends are read-modify-write cycles
// guarded by a per-chat mutex so concurrent turns on the same chat cannot
// lose updates within this process.
package chatstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no file exists for a chat name.
	ErrNotFound = errors.New("chat not found")

	// ErrChatExists is returned by Create for an already-existing chat.
	ErrChatExists = errors.New("chat already exists")

	// ErrInvalidName is returned when a name sanitizes to nothing usable.
	ErrInvalidName = errors.New("invalid chat name")
)

// Message is one transcript entry. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Summary describes one chat for listings.
type Summary struct {
	Name         string    `json:"name"`
	MessageCount int       `json:"message_count"`
	LastMessage  *string   `json:"last_message"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store reads and writes chat files under a single flat directory.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per sanitized chat name
}

// New creates a store rooted at dir. The directory is created lazily.
func New(dir string) *Store {
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

// Sanitize replaces every character outside [A-Za-z0-9_-] with an
// underscore. Sanitizing an already-sanitized name is a no-op.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// validName requires at least one character the caller actually chose:
// names made entirely of replacement underscores are rejected rather than
// silently creating a "____" file.
func validName(original, sanitized string) bool {
	if sanitized == "" {
		return false
	}
	for _, r := range original {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return true
		}
	}
	return false
}

// List enumerates all chats sorted by modification time, newest first.
// An absent storage directory yields an empty list and is created.
func (s *Store) List() ([]Summary, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(s.dir, 0o755); err != nil {
				return nil, fmt.Errorf("create chat dir: %w", err)
			}
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("read chat dir: %w", err)
	}

	summaries := make([]Summary, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")

		info, err := e.Info()
		if err != nil {
			continue
		}
		msgs, err := s.readFile(name)
		if err != nil {
			continue
		}

		sum := Summary{
			Name:         name,
			MessageCount: len(msgs),
			UpdatedAt:    info.ModTime().UTC(),
		}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1].Content
			sum.LastMessage = &last
		}
		summaries = append(summaries, sum)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Create writes an empty transcript for the sanitized name and returns it.
func (s *Store) Create(name string) (string, error) {
	sanitized := Sanitize(name)
	if !validName(name, sanitized) {
		return "", ErrInvalidName
	}

	unlock := s.lock(sanitized)
	defer unlock()

	if _, err := os.Stat(s.path(sanitized)); err == nil {
		return "", ErrChatExists
	}
	if err := s.writeFile(sanitized, []Message{}); err != nil {
		return "", err
	}
	return sanitized, nil
}

// Get returns the full message sequence for a chat.
func (s *Store) Get(name string) ([]Message, error) {
	msgs, err := s.readFile(Sanitize(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msgs, nil
}

// Append adds messages to the end of a chat, creating the file if needed.
// The per-chat lock makes the read-modify-write atomic within the process.
func (s *Store) Append(name string, msgs ...Message) error {
	sanitized := Sanitize(name)
	if !validName(name, sanitized) {
		return ErrInvalidName
	}

	unlock := s.lock(sanitized)
	defer unlock()

	existing, err := s.readFile(sanitized)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return s.writeFile(sanitized, append(existing, msgs...))
}

// Delete removes a chat file.
func (s *Store) Delete(name string) error {
	sanitized := Sanitize(name)

	unlock := s.lock(sanitized)
	defer unlock()

	if err := os.Remove(s.path(sanitized)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

func (s *Store) path(sanitized string) string {
	return filepath.Join(s.dir, sanitized+".json")
}

// lock returns an unlock func for the chat's mutex, creating it on demand.
func (s *Store) lock(sanitized string) func() {
	s.mu.Lock()
	m, ok := s.locks[sanitized]
	if !ok {
		m = &sync.Mutex{}
		s.locks[sanitized] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Store) readFile(sanitized string) ([]Message, error) {
	b, err := os.ReadFile(s.path(sanitized))
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("parse chat %s: %w", sanitized, err)
	}
	return msgs, nil
}

// writeFile writes the full sequence via a temp file and rename so a crash
// mid-write cannot leave a truncated transcript.
func (s *Store) writeFile(sanitized string, msgs []Message) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create chat dir: %w", err)
	}

	b, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chat %s: %w", sanitized, err)
	}
	b = append(b, '\n')

	tmp := s.path(sanitized) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write chat %s: %w", sanitized, err)
	}
	if err := os.Rename(tmp, s.path(sanitized)); err != nil {
		return fmt.Errorf("rename chat %s: %w", sanitized, err)
	}
	return nil
}
