// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// DirName is the subdirectory of a root directory that holds cache files.
const DirName = "__cached"

// ExtJSON is the extension of JSON cache object files.
const ExtJSON = "json"

// ErrNotDir is returned when a root directory does not exist or is not a
// directory.
var ErrNotDir = errors.New("not a directory")

// Entry represents a cached artifact on disk.
type Entry struct {
	Name      string
	Path      string
	SizeBytes int64
	ModTime   time.Time
}

// Dir resolves the base cache directory.
// Precedence:
//  1. CACHEFETCH_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/cachefetch
//
// Returns ("", false) if a base cannot be resolved (treat as disabled).
func Dir() (string, bool) {
	if c, ok := os.LookupEnv("CACHEFETCH_CACHE_DIR"); ok && c != "" {
		return c, true
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "cachefetch"), true
	}
	return "", false
}

// Enabled returns true unless CACHEFETCH_CACHE explicitly disables it
// ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("CACHEFETCH_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// EnsureBaseDir creates the base cache directory if caching is enabled and
// a base path can be resolved. Returns the path, whether it is usable, and an
// error if creation failed.
func EnsureBaseDir() (string, bool, error) {
	if !Enabled() {
		return "", false, nil
	}
	base, ok := Dir()
	if !ok {
		return "", false, nil
	}
	if err := os.MkdirAll(base, 0o755); err != nil { //nolint:mnd
		return base, false, fmt.Errorf("failed to create cache base directory: %w", err)
	}
	return base, true, nil
}

// CachePath joins segments beneath the cache subdirectory of root.
func CachePath(root string, segments ...string) string {
	return filepath.Join(append([]string{root, DirName}, segments...)...)
}

// WriteObject writes v as tab-indented JSON to <root>/__cached/<key>.json,
// creating the cache subdirectory as needed, and returns the file path. root
// must be an existing directory.
func WriteObject(v any, key, root string) (string, error) {
	if v == nil {
		return "", errors.New("cache object is nil")
	}
	if err := isDir(root); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return "", fmt.Errorf("failed to encode cache object: %w", err)
	}

	p := CachePath(root, key+"."+ExtJSON)
	if err := writeFile(p, data); err != nil {
		return "", err
	}
	return p, nil
}

// ReadObject decodes <root>/__cached/<key>.json into v. It returns false if
// the file does not exist or cannot be decoded, so a damaged cache file never
// blocks recomputation.
func ReadObject(key, root string, v any) (bool, error) {
	if err := isDir(root); err != nil {
		return false, err
	}

	p := CachePath(root, key+"."+ExtJSON)
	b, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).Debugf("unreadable cache file %s", p)
		}
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		log.WithError(err).Debugf("undecodable cache file %s", p)
		return false, nil
	}
	return true, nil
}

// URLBasename derives a stable file name stem for u: its host without a
// leading "www." followed by the hash of the full URL.
func URLBasename(u string) string {
	var host string
	if parsed, err := url.Parse(u); err == nil {
		host = strings.TrimPrefix(parsed.Hostname(), "www.")
	}
	return host + "." + encodeKey(u)
}

// URLFilename is URLBasename plus the extension of u's path, ignoring any
// query string or fragment.
func URLFilename(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return URLBasename(u) + path.Ext(p)
}

// List returns the files beneath dir, sorted by name. A missing dir yields no
// entries.
func List(dir string) ([]Entry, error) {
	var entries []Entry
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".cache-") {
			return nil
		}
		rel, _ := filepath.Rel(dir, p)
		entries = append(entries, Entry{
			Name:      rel,
			Path:      p,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Purge removes files beneath dir older than the provided number of hours.
// If hours <= 0 it is a no-op. It returns the number of files removed.
func Purge(dir string, hours int) (int, error) {
	if hours <= 0 {
		log.Debug("cache cleaning disabled")
		return 0, nil
	}
	maxAge := time.Duration(hours) * time.Hour
	removed := 0
	if err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err == nil {
				removed++
				log.Debugf("removed cache file %s", path)
			} else {
				log.WithError(err).Warnf("failed to remove cache file %s", path)
			}
		}
		return nil
	}); err != nil {
		return removed, fmt.Errorf("failed to purge cache: %w", err)
	}
	return removed, nil
}

func isDir(p string) error {
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDir, p)
	}
	return nil
}

// encodeKey hashes k with MD5 and returns the hex string.
func encodeKey(k string) string {
	h := md5.New()
	_, _ = h.Write([]byte(k))
	return hex.EncodeToString(h.Sum(nil))
}
