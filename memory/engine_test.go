package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/memchat/memchat/memory"
	"github.com/memchat/memchat/memory/embedder/mock"
	"github.com/memchat/memchat/memory/store/chromem"
)

func newTestEngine(t *testing.T) *memory.Engine {
	t.Helper()
	store, err := chromem.New()
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return memory.NewEngine(store, mock.New())
}

func TestEngine_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	facts := []string{
		"User is building a startup in the robotics space",
		"User prefers dark roast coffee",
		"User lives in Austin Texas",
	}
	for _, f := range facts {
		if _, err := engine.Add(ctx, "user1", f, time.Now()); err != nil {
			t.Fatalf("add %q: %v", f, err)
		}
	}

	results, err := engine.Search(ctx, "user1", "robotics startup", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].Text != facts[0] {
		t.Errorf("top result = %q, want %q", results[0].Text, facts[0])
	}
}

func TestEngine_AddSetsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("CST", -6*3600))
	rec, err := engine.Add(ctx, "user1", "some fact", created)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.ID == "" {
		t.Error("expected a generated ID")
	}
	if rec.UserID != "user1" {
		t.Errorf("UserID = %q, want user1", rec.UserID)
	}
	if rec.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt not normalized to UTC: %v", rec.CreatedAt)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, created)
	}
}

func TestEngine_SearchDefaultLimit(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	for i := 0; i < 10; i++ {
		if _, err := engine.Add(ctx, "user1", "fact number "+string(rune('a'+i)), time.Now()); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	results, err := engine.Search(ctx, "user1", "fact", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) > memory.DefaultSearchLimit {
		t.Errorf("got %d results, want at most %d", len(results), memory.DefaultSearchLimit)
	}
}

func TestEngine_SearchEmptyStore(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	results, err := engine.Search(ctx, "user1", "anything", 5)
	if err != nil {
		t.Fatalf("search on empty store: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestEngine_UserIsolation(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	if _, err := engine.Add(ctx, "alice", "alice likes sailing", time.Now()); err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := engine.Search(ctx, "bob", "sailing", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("bob sees alice's memories: %v", results)
	}
}

func TestEngine_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	rec1, err := engine.Add(ctx, "user1", "first fact", time.Now())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := engine.Add(ctx, "user1", "second fact", time.Now()); err != nil {
		t.Fatalf("add: %v", err)
	}

	records, err := engine.List(ctx, "user1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if err := engine.Delete(ctx, "user1", rec1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	records, err = engine.List(ctx, "user1")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records after delete, want 1", len(records))
	}
	if records[0].Text != "second fact" {
		t.Errorf("remaining record = %q, want %q", records[0].Text, "second fact")
	}
}

func TestEngine_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t)

	if err := engine.Delete(ctx, "user1", "no-such-id"); err == nil {
		t.Error("expected error deleting missing record")
	}
}

func TestGateway_FixedUserAndBestEffortReads(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(newTestEngine(t))

	rec, err := gw.Add(ctx, "user enjoys hiking in the mountains", time.Now())
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.UserID != memory.DefaultUserID {
		t.Errorf("UserID = %q, want %q", rec.UserID, memory.DefaultUserID)
	}

	results := gw.Search(ctx, "hiking", 5)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := gw.Count(ctx); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestGateway_ClearAll(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(newTestEngine(t))

	for _, text := range []string{"fact one here", "fact two here", "fact three here"} {
		if _, err := gw.Add(ctx, text, time.Now()); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	deleted, err := gw.ClearAll(ctx)
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	if got := gw.Count(ctx); got != 0 {
		t.Errorf("Count after clear = %d, want 0", got)
	}
}
