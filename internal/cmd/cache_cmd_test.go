package cmd

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/imbo/imbo-cli/internal/cache"
)

func TestCacheClear(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/users/alice/images.json", jsonResponse(200, imageListBody))
	setupTestEnv(t, handler)

	client, err := newClientFactory().account()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resolveImageIdentifier(context.Background(), client, "fedc"); err != nil {
		t.Fatal(err)
	}
	path := cache.NewStore(os.Getenv("IMBO_CACHE_DIR"), "images", client.Hosts, client.User()).Path()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("listing was not cached: %v", err)
	}

	out := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"cache", "clear", "-o", "json"}); err != nil {
			t.Fatalf("cache clear failed: %v", err)
		}
	})
	if m := decodeJSON(t, out); m["removed"] != float64(1) {
		t.Errorf("output = %v", m)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("cache file still present: %v", err)
	}
}

func TestCachePath(t *testing.T) {
	isolateConfig(t)
	dir := os.Getenv("IMBO_CACHE_DIR")

	out := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"cache", "path"}); err != nil {
			t.Fatalf("cache path failed: %v", err)
		}
	})
	if strings.TrimSpace(out) != dir {
		t.Errorf("output = %q, want %q", out, dir)
	}
}

func TestCacheRedisBackend(t *testing.T) {
	handler := newRouteHandler().
		On("GET", "/users/alice/images.json", jsonResponse(200, imageListBody))
	setupTestEnv(t, handler)
	mr := miniredis.RunT(t)
	t.Setenv("IMBO_CACHE_REDIS_URL", "redis://"+mr.Addr())

	client, err := newClientFactory().account()
	if err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if got, err := resolveImageIdentifier(context.Background(), client, "fedc"); err != nil || got != testImageID2 {
			t.Fatalf("prefix = %q, %v", got, err)
		}
	}
	if got := len(handler.Requests("GET", "/users/alice/images.json")); got != 1 {
		t.Fatalf("list requests = %d, want 1", got)
	}
	if keys := mr.Keys(); len(keys) != 1 || !strings.HasPrefix(keys[0], cache.KeyPrefix) {
		t.Fatalf("redis keys = %v", keys)
	}

	out := captureStdout(t, func() {
		if err := Execute(context.Background(), []string{"cache", "clear"}); err != nil {
			t.Fatalf("cache clear failed: %v", err)
		}
	})
	if !strings.Contains(out, "redis (1 entries)") {
		t.Errorf("output = %q", out)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("redis keys after clear = %v", keys)
	}
}
