package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	_ = store.GetOrCreate("sess-1", "quiz-1")
	if !mr.Exists("game:session:sess-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("game:session:sess-1"); got != "quiz-1" {
		t.Fatalf("expected liveness value quiz-1, got %q", got)
	}

	store.DeleteIfEmpty("sess-1")
	if mr.Exists("game:session:sess-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreReusesLiveSessions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	first := store.GetOrCreate("sess-1", "quiz-1")
	second := store.GetOrCreate("sess-1", "quiz-1")
	if first != second {
		t.Fatal("expected one session instance per ID")
	}

	got, ok := store.Get("sess-1")
	if !ok || got != first {
		t.Fatal("get must return the created session")
	}
}
