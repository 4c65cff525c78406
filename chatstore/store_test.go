package chatstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data"))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean name unchanged", "my-chat_1", "my-chat_1"},
		{"spaces replaced", "my chat", "my_chat"},
		{"punctuation replaced", "a.b/c!", "a_b_c_"},
		{"unicode replaced", "café", "caf_"},
		{"empty stays empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{"my chat!", "a/b/c", "weird\tname", "plain"}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestCreateThenGetEmpty(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Create("t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", name)

	msgs, err := s.Get("t1")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCreateSanitizesName(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Create("hello world!")
	require.NoError(t, err)
	assert.Equal(t, "hello_world_", name)

	_, err = s.Get("hello_world_")
	require.NoError(t, err)
}

func TestCreateRejectsInvalidNames(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("")
	assert.ErrorIs(t, err, ErrInvalidName)

	// Only disallowed characters: rejected, not turned into an
	// underscore-only file.
	_, err = s.Create("!!! ???")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("dup")
	require.NoError(t, err)

	_, err = s.Create("dup")
	assert.ErrorIs(t, err, ErrChatExists)

	// Different raw names that sanitize to the same file also collide.
	_, err = s.Create("d.u.p")
	assert.NoError(t, err)
	_, err = s.Create("d_u_p")
	assert.ErrorIs(t, err, ErrChatExists)
}

func TestAppendPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("order")
	require.NoError(t, err)

	require.NoError(t, s.Append("order",
		Message{Role: "user", Content: "one"},
		Message{Role: "assistant", Content: "two"},
	))
	require.NoError(t, s.Append("order", Message{Role: "user", Content: "three"}))

	msgs, err := s.Get("order")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.Equal(t, "three", msgs[2].Content)
}

func TestAppendCreatesMissingFile(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Append("fresh", Message{Role: "user", Content: "hi"}))

	msgs, err := s.Get("fresh")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("busy")
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append("busy", Message{Role: "user", Content: "x"})
		}()
	}
	wg.Wait()

	msgs, err := s.Get("busy")
	require.NoError(t, err)
	assert.Len(t, msgs, writers)
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	err := s.Delete("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Create("gone")
	require.NoError(t, err)
	require.NoError(t, s.Delete("gone"))

	_, err = s.Get("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEmptyDirCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := New(dir)

	chats, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, chats)

	// The directory is lazily created by the listing.
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestListOrderAndSummaries(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Create("older")
	require.NoError(t, err)
	require.NoError(t, s.Append("older", Message{Role: "user", Content: "first"}))

	_, err = s.Create("newer")
	require.NoError(t, err)
	require.NoError(t, s.Append("newer",
		Message{Role: "user", Content: "hi"},
		Message{Role: "assistant", Content: "hello there"},
	))

	// Force a distinct, newer mtime on the second chat.
	require.NoError(t, os.Chtimes(filepath.Join(s.dir, "older.json"),
		mustStatTime(t, s, "newer").Add(-time.Minute),
		mustStatTime(t, s, "newer").Add(-time.Minute)))

	chats, err := s.List()
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, "newer", chats[0].Name)
	assert.Equal(t, 2, chats[0].MessageCount)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "hello there", *chats[0].LastMessage)

	assert.Equal(t, "older", chats[1].Name)
}

func TestListEmptyChatHasNilLastMessage(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("blank")
	require.NoError(t, err)

	chats, err := s.List()
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Nil(t, chats[0].LastMessage)
}

func mustStatTime(t *testing.T, s *Store, name string) time.Time {
	t.Helper()
	info, err := os.Stat(filepath.Join(s.dir, name+".json"))
	require.NoError(t, err)
	return info.ModTime()
}
