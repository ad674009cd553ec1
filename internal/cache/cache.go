// Package cache keeps short-lived JSON snapshots of server listings on disk.
//
// Files are scoped per resource, host set and user. The default TTL is five
// minutes. Set IMBO_NO_CACHE=1 to disable it.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultTTL = 5 * time.Minute

type entry struct {
	CachedAt time.Time       `json:"cached_at"`
	Items    json.RawMessage `json:"items"`
}

// Store reads and writes a single cache file.
type Store struct {
	path string
	ttl  time.Duration
}

// NewStore creates a Store with DefaultTTL. key names the resource, e.g.
// "images"; hosts and user identify the account the listing belongs to.
func NewStore(dir, key string, hosts []string, user string) *Store {
	return NewStoreWithTTL(dir, key, hosts, user, DefaultTTL)
}

func NewStoreWithTTL(dir, key string, hosts []string, user string, ttl time.Duration) *Store {
	hash := sha1.Sum([]byte(strings.Join(hosts, ",") + "\x00" + user))
	filename := fmt.Sprintf("%s_%s.json", sanitizeKey(key), hex.EncodeToString(hash[:6]))
	return &Store{
		path: filepath.Join(dir, filename),
		ttl:  ttl,
	}
}

// Path returns the cache file location.
func (s *Store) Path() string { return s.path }

// Get loads cached items into dst. It returns false on a miss: no file, an
// expired entry or a disabled cache.
func (s *Store) Get(dst any) bool {
	if disabled() {
		return false
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return false
	}
	if time.Since(e.CachedAt) > s.ttl {
		return false
	}
	return json.Unmarshal(e.Items, dst) == nil
}

// Put writes items to the cache. Errors are ignored.
func (s *Store) Put(items any) {
	if disabled() {
		return
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	data, err := json.Marshal(entry{CachedAt: time.Now(), Items: raw})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return
	}
	_ = os.Rename(tmp, s.path)
}

// Clear removes this cache file.
func (s *Store) Clear() {
	_ = os.Remove(s.path)
}

// ClearAll removes every cache file in dir and returns how many were
// removed. Files not matching the cache naming scheme are left alone.
func ClearAll(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !isCacheFilename(e.Name()) {
			continue
		}
		if os.Remove(filepath.Join(dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

// DefaultDir returns $IMBO_CACHE_DIR, or an imbo-cli directory under the
// user cache directory.
func DefaultDir() (string, error) {
	if dir := os.Getenv("IMBO_CACHE_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "imbo-cli"), nil
}

func disabled() bool {
	return os.Getenv("IMBO_NO_CACHE") != ""
}

func sanitizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "cache"
	}
	return strings.NewReplacer("/", "-", "\\", "-", "_", "-").Replace(key)
}

// isCacheFilename matches "<key>_<12 hex>.json".
func isCacheFilename(name string) bool {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return false
	}
	key, hash, ok := strings.Cut(base, "_")
	if !ok || key == "" || len(hash) != 12 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
