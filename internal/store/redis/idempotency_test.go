package redis

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCacheKey_ScopedPerUserAndConversation(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	convA, convB := uuid.New(), uuid.New()
	if cacheKey(a, convA, "k1") == cacheKey(b, convA, "k1") {
		t.Fatalf("cacheKey() collides across users")
	}
	if cacheKey(a, convA, "k1") == cacheKey(a, convB, "k1") {
		t.Fatalf("cacheKey() collides across conversations")
	}
	want := keyPrefix + ":" + a.String() + ":" + convA.String() + ":k1"
	if got := cacheKey(a, convA, "k1"); got != want {
		t.Fatalf("cacheKey() = %q, want %q", got, want)
	}
}

func TestNewClient(t *testing.T) {
	rdb, err := NewClient("redis://:secret@localhost:6380/2")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer rdb.Close()
	opts := rdb.Options()
	if opts.Addr != "localhost:6380" || opts.DB != 2 || opts.Password != "secret" {
		t.Fatalf("options = addr %q db %d, want localhost:6380 db 2", opts.Addr, opts.DB)
	}
	if opts.DialTimeout != 10*time.Second {
		t.Fatalf("DialTimeout = %s, want 10s", opts.DialTimeout)
	}

	if _, err := NewClient("not a url"); err == nil {
		t.Fatalf("NewClient(invalid) error = nil")
	}
}
