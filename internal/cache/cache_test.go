package cache

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestKeyDeterminism(t *testing.T) {
	p1 := url.Values{}
	p1.Set("city", "bern")
	p1.Set("app", "aareguru-mcp")
	p1.Set("version", "0.1.0")

	p2 := url.Values{}
	p2.Set("version", "0.1.0")
	p2.Set("app", "aareguru-mcp")
	p2.Set("city", "bern")

	k1 := Key("/v2018/today", p1)
	k2 := Key("/v2018/today", p2)
	if k1 != k2 {
		t.Errorf("insertion order changed the key: %q vs %q", k1, k2)
	}
}

func TestKeyDistinguishesEndpointsAndParams(t *testing.T) {
	params := url.Values{"city": {"bern"}}

	if Key("/v2018/today", params) == Key("/v2018/current", params) {
		t.Error("different endpoints produced the same key")
	}

	other := url.Values{"city": {"thun"}}
	if Key("/v2018/today", params) == Key("/v2018/today", other) {
		t.Error("different params produced the same key")
	}
}

func TestKeyWithoutParams(t *testing.T) {
	if got := Key("/v2018/cities", nil); got != "/v2018/cities" {
		t.Errorf("expected bare endpoint key, got %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSetRoundTrip", func(t *testing.T) {
		s := NewMemoryStore(120 * time.Second)

		if _, ok := s.Get(ctx, "k"); ok {
			t.Fatal("expected miss on empty store")
		}

		if err := s.Set(ctx, "k", []byte(`{"aare":17.2}`)); err != nil {
			t.Fatalf("unexpected error on set: %v", err)
		}

		v, ok := s.Get(ctx, "k")
		if !ok {
			t.Fatal("expected hit after set")
		}
		if string(v) != `{"aare":17.2}` {
			t.Errorf("unexpected value %q", v)
		}
	})

	t.Run("LazyExpiry", func(t *testing.T) {
		s := NewMemoryStore(120 * time.Second)
		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		s.now = func() time.Time { return now }

		if err := s.Set(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("unexpected error on set: %v", err)
		}

		// Fresh at t=50s.
		now = base.Add(50 * time.Second)
		if _, ok := s.Get(ctx, "k"); !ok {
			t.Fatal("expected hit within TTL")
		}

		// Stale at t=130s: miss, and the entry is evicted on the read.
		now = base.Add(130 * time.Second)
		if _, ok := s.Get(ctx, "k"); ok {
			t.Fatal("expected miss after TTL")
		}
		if s.Len() != 0 {
			t.Errorf("expected lazy eviction to remove the entry, have %d", s.Len())
		}
	})

	t.Run("NoProactiveSweep", func(t *testing.T) {
		s := NewMemoryStore(120 * time.Second)
		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		s.now = func() time.Time { return now }

		s.Set(ctx, "a", []byte("1"))
		s.Set(ctx, "b", []byte("2"))

		now = base.Add(10 * time.Minute)
		// Only "a" is touched; "b" stays resident although stale.
		s.Get(ctx, "a")
		if s.Len() != 1 {
			t.Errorf("expected 1 resident entry, have %d", s.Len())
		}
	})

	t.Run("OverwriteResetsAge", func(t *testing.T) {
		s := NewMemoryStore(120 * time.Second)
		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		s.now = func() time.Time { return now }

		s.Set(ctx, "k", []byte("old"))

		now = base.Add(100 * time.Second)
		s.Set(ctx, "k", []byte("new"))

		// 150s after the first store but only 50s after the overwrite.
		now = base.Add(150 * time.Second)
		v, ok := s.Get(ctx, "k")
		if !ok {
			t.Fatal("expected hit: overwrite should reset storedAt")
		}
		if string(v) != "new" {
			t.Errorf("expected overwritten value, got %q", v)
		}
	})

	t.Run("ZeroTTLDisablesCaching", func(t *testing.T) {
		s := NewMemoryStore(0)
		s.Set(ctx, "k", []byte("v"))
		if _, ok := s.Get(ctx, "k"); ok {
			t.Error("expected ttl=0 to disable caching")
		}
		if s.Len() != 0 {
			t.Errorf("expected no resident entries, have %d", s.Len())
		}
	})
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				s.Set(ctx, "shared", []byte("v"))
				s.Get(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if _, ok := s.Get(ctx, "shared"); !ok {
		t.Error("expected value to survive concurrent writers")
	}
}
