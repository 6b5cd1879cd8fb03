package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	sess, err := New("tok-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.AccessToken != "tok-1" {
		t.Fatalf("Get() = %+v, want token tok-1", got)
	}

	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, sess.ID); got != nil {
		t.Errorf("Get() after Delete = %+v, want nil", got)
	}
	if err := store.Delete(ctx, sess.ID); err != nil {
		t.Errorf("second Delete() = %v, want nil", err)
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	expired := &Session{ID: "old", AccessToken: "x", ExpiresAt: time.Now().Add(-time.Minute)}
	forever := &Session{ID: "forever", AccessToken: "y"}
	for _, s := range []*Session{expired, forever} {
		if err := store.Set(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	if got, _ := store.Get(ctx, "old"); got != nil {
		t.Errorf("expired session returned: %+v", got)
	}
	if _, err := os.Stat(store.sessionPath("old")); !os.IsNotExist(err) {
		t.Errorf("expired session file still present")
	}

	store.now = func() time.Time { return time.Now().Add(100 * 365 * 24 * time.Hour) }
	if err := store.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := store.Get(ctx, "forever"); got == nil {
		t.Error("session without expiry was cleaned up")
	}
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	tokens, err := NewTokenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tokens.Token(ctx); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("Token() = %v, want ErrNotLoggedIn", err)
	}
	if _, err := tokens.Save(ctx, "", time.Hour); err == nil {
		t.Error("Save(\"\") should fail")
	}

	if _, err := tokens.Save(ctx, "bearer-abc", 0); err != nil {
		t.Fatal(err)
	}
	got, err := tokens.Token(ctx)
	if err != nil || got != "bearer-abc" {
		t.Fatalf("Token() = %q, %v", got, err)
	}
	if _, err := os.Stat(tokens.Path()); err != nil {
		t.Errorf("token file missing: %v", err)
	}

	if err := tokens.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Token(ctx); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("Token() after Delete = %v, want ErrNotLoggedIn", err)
	}
}

func TestNewTTL(t *testing.T) {
	s, err := New("t", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !s.ExpiresAt.IsZero() || s.IsExpired() {
		t.Errorf("ttl 0: ExpiresAt = %v, IsExpired = %v", s.ExpiresAt, s.IsExpired())
	}
	s, _ = New("t", time.Hour)
	if s.IsExpired() || s.ID == "" {
		t.Errorf("fresh session: %+v", s)
	}
}

func TestTokenStorePrune(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tokens, err := NewTokenStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.Save(ctx, "live", time.Hour); err != nil {
		t.Fatal(err)
	}
	files, _ := NewFileStore(dir)
	if err := files.Set(ctx, &Session{ID: "stale", AccessToken: "x", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatal(err)
	}

	if err := tokens.Prune(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(files.sessionPath("stale")); !os.IsNotExist(err) {
		t.Error("expired session survived Prune")
	}
	if got, err := tokens.Token(ctx); err != nil || got != "live" {
		t.Errorf("Token() = %q, %v after Prune", got, err)
	}
}
