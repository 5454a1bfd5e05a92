// Package cache short-circuits check runs whose inputs have not changed.
// Keys digest the step's command, the tool configuration, and the content
// of every input file; a hit means the previous check succeeded on
// identical inputs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hkdev/hk/pkg/logger"
)

var cacheLog = logger.New("cache:checks")

// Cache stores check results under the cache directory.
type Cache struct {
	dir string
}

// New opens (and lazily creates) the cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{dir: filepath.Join(dir, "checks")}
}

// Key digests the given parts plus the content of each file into a stable
// hex key. Unreadable files poison the key so the check re-runs.
func (c *Cache) Key(root string, parts []string, files []string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "part:%s\n", p)
	}
	for _, f := range files {
		fmt.Fprintf(h, "file:%s:", f)
		if err := hashFile(h, filepath.Join(root, filepath.FromSlash(f))); err != nil {
			fmt.Fprintf(h, "unreadable:%v", err)
		}
		fmt.Fprint(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

// HitCheck reports whether a passing check with this key is recorded.
func (c *Cache) HitCheck(key string) bool {
	if key == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(c.dir, key))
	return err == nil
}

// PutCheck records a passing check.
func (c *Cache) PutCheck(key string) {
	if key == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		cacheLog.Warnf("cannot create cache dir: %v", err)
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, key), nil, 0o644); err != nil {
		cacheLog.Warnf("cannot record check result: %v", err)
	}
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
