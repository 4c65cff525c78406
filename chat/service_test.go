package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memchat/memchat/chatstore"
	"github.com/memchat/memchat/llm"
	"github.com/memchat/memchat/memory"
	"github.com/memchat/memchat/memory/embedder/mock"
	"github.com/memchat/memchat/memory/store/chromem"
)

// fakeLLM records requests and plays back canned replies.
type fakeLLM struct {
	mu       sync.Mutex
	requests []llm.Request
	reply    string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if req.OnChunk != nil {
		for _, word := range strings.SplitAfter(f.reply, " ") {
			req.OnChunk(word)
		}
	}
	return f.reply, nil
}

func (f *fakeLLM) lastRequest(t *testing.T) llm.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestGateway(t *testing.T) *memory.Gateway {
	t.Helper()
	store, err := chromem.New()
	require.NoError(t, err)
	return memory.NewGateway(memory.NewEngine(store, mock.New()))
}

func newTestService(t *testing.T, client llm.Client) (*Service, *chatstore.Store) {
	t.Helper()
	store := chatstore.New(t.TempDir())
	return NewService(client, store, newTestGateway(t), nil), store
}

func TestRespondPersistsTurn(t *testing.T) {
	fake := &fakeLLM{reply: "hello there"}
	svc, store := newTestService(t, fake)

	reply, err := svc.Respond(context.Background(), Request{ChatName: "t1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	msgs, err := store.Get("t1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chatstore.Message{Role: "user", Content: "hi"}, msgs[0])
	assert.Equal(t, chatstore.Message{Role: "assistant", Content: "hello there"}, msgs[1])
}

func TestRespondValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakeLLM{reply: "x"})

	_, err := svc.Respond(context.Background(), Request{ChatName: "t1"})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.Respond(context.Background(), Request{Message: "hi"})
	assert.ErrorIs(t, err, ErrEmptyChatName)
}

func TestRespondIncludesHistory(t *testing.T) {
	fake := &fakeLLM{reply: "second answer"}
	svc, store := newTestService(t, fake)

	require.NoError(t, store.Append("t1",
		chatstore.Message{Role: "user", Content: "first question"},
		chatstore.Message{Role: "assistant", Content: "first answer"},
	))

	_, err := svc.Respond(context.Background(), Request{ChatName: "t1", Message: "second question"})
	require.NoError(t, err)

	req := fake.lastRequest(t)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "first question", req.Messages[0].Content)
	assert.Equal(t, "first answer", req.Messages[1].Content)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "second question", req.Messages[2].Content)
}

func TestRespondSystemPromptWithoutMemories(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	svc, _ := newTestService(t, fake)

	_, err := svc.Respond(context.Background(), Request{ChatName: "t1", Message: "hi"})
	require.NoError(t, err)

	req := fake.lastRequest(t)
	assert.Contains(t, req.System, "No memories yet.")
	assert.Contains(t, req.System, "ELON-ADJACENT TECH FOUNDER BRO")
	assert.Equal(t, 0.8, req.Temperature)
	assert.Equal(t, 2000, req.MaxTokens)
}

func TestRespondSystemPromptWithMemories(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	store := chatstore.New(t.TempDir())
	gw := newTestGateway(t)
	_, err := gw.Add(context.Background(), "User lives in Austin Texas", time.Now())
	require.NoError(t, err)

	svc := NewService(fake, store, gw, nil)
	_, err = svc.Respond(context.Background(), Request{ChatName: "t1", Message: "where do I live in Austin"})
	require.NoError(t, err)

	req := fake.lastRequest(t)
	assert.Contains(t, req.System, "1. User lives in Austin Texas")
	assert.NotContains(t, req.System, "No memories yet.")
}

func TestRespondStreamsChunks(t *testing.T) {
	fake := &fakeLLM{reply: "streamed reply here"}
	svc, _ := newTestService(t, fake)

	var chunks []string
	reply, err := svc.Respond(context.Background(), Request{
		ChatName: "t1",
		Message:  "hi",
		OnChunk:  func(s string) { chunks = append(chunks, s) },
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed reply here", reply)
	assert.Equal(t, reply, strings.Join(chunks, ""))
}

func TestRespondLLMFailureDoesNotPersist(t *testing.T) {
	fake := &fakeLLM{err: context.DeadlineExceeded}
	svc, store := newTestService(t, fake)

	_, err := svc.Respond(context.Background(), Request{ChatName: "t1", Message: "hi"})
	require.Error(t, err)

	_, err = store.Get("t1")
	assert.ErrorIs(t, err, chatstore.ErrNotFound)
}

func TestExtractorSavesFacts(t *testing.T) {
	fake := &fakeLLM{reply: `{"facts": ["User is a software engineer in Calgary", "ok"]}`}
	gw := newTestGateway(t)
	ex := NewExtractor(fake, gw)

	require.True(t, ex.Enqueue("I'm a software engineer in Calgary", "Nice!"))
	ex.Close()

	records := gw.ListAll(context.Background())
	require.Len(t, records, 1) // "ok" is too short to keep
	assert.Equal(t, "User is a software engineer in Calgary", records[0].Text)
}

func TestExtractorRespectsCap(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()
	for i := 0; i < memoryCap; i++ {
		_, err := gw.Add(ctx, strings.Repeat("x", 12)+string(rune('a'+i%26)), time.Now())
		require.NoError(t, err)
	}

	fake := &fakeLLM{reply: `{"facts": ["User has a brand new fact to store"]}`}
	ex := NewExtractor(fake, gw)
	require.True(t, ex.Enqueue("msg", "reply"))
	ex.Close()

	assert.Equal(t, memoryCap, gw.Count(ctx))
	// the LLM was never called: the cap check short-circuits the job
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Empty(t, fake.requests)
}

func TestExtractorSurfacesErrors(t *testing.T) {
	fake := &fakeLLM{err: context.DeadlineExceeded}
	ex := NewExtractor(fake, newTestGateway(t))

	require.True(t, ex.Enqueue("msg", "reply"))
	ex.Close()

	select {
	case err := <-ex.Errors():
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	default:
		t.Fatal("expected an error on the channel")
	}
}

func TestExtractorRejectsAfterClose(t *testing.T) {
	ex := NewExtractor(&fakeLLM{reply: `{"facts": []}`}, newTestGateway(t))
	ex.Close()
	assert.False(t, ex.Enqueue("msg", "reply"))
}

func TestParseFacts(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"plain object", `{"facts": ["a fact"]}`, []string{"a fact"}},
		{"empty", `{"facts": []}`, []string{}},
		{"fenced", "```json\n{\"facts\": [\"fenced fact\"]}\n```", []string{"fenced fact"}},
		{"prose wrapped", `Here you go: {"facts": ["wrapped fact"]} hope that helps`, []string{"wrapped fact"}},
		{"garbage", "no json at all", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFacts(tt.reply)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
