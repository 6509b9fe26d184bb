package redisad

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(mr.Addr(), "", 0), mr
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var out payload
	ok, err := cache.Get(ctx, "stats:l1", &out)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("cold cache must miss")
	}

	if err := cache.Set(ctx, "stats:l1", payload{Name: "a", Count: 3}, 60); err != nil {
		t.Fatal(err)
	}
	ok, err = cache.Get(ctx, "stats:l1", &out)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || out.Name != "a" || out.Count != 3 {
		t.Fatalf("got ok=%v %+v", ok, out)
	}
}

func TestTTLIsApplied(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "stats:l1", payload{}, 60); err != nil {
		t.Fatal(err)
	}
	if ttl := mr.TTL("stats:l1"); ttl <= 0 {
		t.Fatalf("ttl: %v", ttl)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	for _, k := range []string{"stats:l1", "stats:l1:extra", "stats:l2", "listings:abc"} {
		if err := cache.Set(ctx, k, payload{}, 60); err != nil {
			t.Fatal(err)
		}
	}

	if err := cache.InvalidatePrefix(ctx, "stats:l1"); err != nil {
		t.Fatal(err)
	}

	for _, gone := range []string{"stats:l1", "stats:l1:extra"} {
		if mr.Exists(gone) {
			t.Errorf("%s must be evicted", gone)
		}
	}
	for _, kept := range []string{"stats:l2", "listings:abc"} {
		if !mr.Exists(kept) {
			t.Errorf("%s must survive", kept)
		}
	}
}

func TestInvalidatePrefix_ManyKeys(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	// more than one SCAN/DEL batch
	for i := 0; i < 250; i++ {
		mr.Set("listings:"+string(rune('a'+i%26))+string(rune('a'+i/26)), "{}")
	}
	if err := cache.InvalidatePrefix(ctx, "listings:"); err != nil {
		t.Fatal(err)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("keys left: %d", len(keys))
	}
}
