package cache

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/gateway"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/logger"
)

// fingerprintSep joins fingerprint parts; "|" cannot appear in a URL.
const fingerprintSep = "|"

// SubtitleCache is the persisted response cache: one JSON document mapping
// request fingerprints to previously produced artifacts. The whole document
// is loaded at startup and rewritten on every mutation, so a crash right
// after a download still leaves a usable cache image. One coarse mutex
// serializes every read-check-write sequence.
type SubtitleCache struct {
	path    string
	storage gateway.StorageGateway

	mu      sync.Mutex
	entries map[string]*entity.CacheEntry
}

// NewSubtitleCache loads the cache document at path. A corrupt or missing
// file degrades silently to an empty cache.
func NewSubtitleCache(path string, storage gateway.StorageGateway) *SubtitleCache {
	c := &SubtitleCache{
		path:    path,
		storage: storage,
		entries: make(map[string]*entity.CacheEntry),
	}
	c.load()
	return c
}

// Get returns the cached entry for the request, or nil. A hit whose artifact
// no longer exists on disk is deleted, persisted, and treated as a miss.
func (c *SubtitleCache) Get(req *vo.SubtitleRequest) *entity.CacheEntry {
	key := Fingerprint(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !c.storage.Exists(cached.SubtitleFile) {
		// 文件已被清理，移除过期条目
		delete(c.entries, key)
		c.persistLocked()
		return nil
	}
	cp := *cached
	return &cp
}

// Put upserts the entry and writes the document through to disk immediately.
func (c *SubtitleCache) Put(req *vo.SubtitleRequest, e *entity.CacheEntry) {
	key := Fingerprint(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	cp := *e
	c.entries[key] = &cp
	c.persistLocked()
}

// Len reports the number of cached entries.
func (c *SubtitleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *SubtitleCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	entries := make(map[string]*entity.CacheEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warnf("subtitle cache unreadable, starting empty file=%s error=%v", c.path, err)
		return
	}
	c.entries = entries
}

// persistLocked writes the whole document. Persistence failures are logged
// and swallowed so they never fail a download that already succeeded.
func (c *SubtitleCache) persistLocked() {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		logger.Warnf("subtitle cache marshal failed error=%v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		logger.Warnf("subtitle cache dir create failed error=%v", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		logger.Warnf("subtitle cache write failed file=%s error=%v", c.path, err)
	}
}

// Fingerprint builds the cache key: normalized URL, format, sorted-deduped
// languages and the auto-subs flag.
func Fingerprint(req *vo.SubtitleRequest) string {
	return strings.Join([]string{
		NormalizeVideoURL(req.VideoURL),
		req.Format.String(),
		strings.Join(req.SortedLanguages(), ","),
		strconv.FormatBool(req.PreferAutoSubs),
	}, fingerprintSep)
}

// NormalizeVideoURL collapses known URL variants of the same video to one
// canonical form so short links and full watch URLs share a cache entry.
// Deterministic and idempotent; unparseable input passes through unchanged.
func NormalizeVideoURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	host := strings.ToLower(parsed.Host)
	if strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be") {
		videoID := ""
		if strings.Contains(host, "youtu.be") {
			// 短链接：https://youtu.be/VIDEO_ID
			videoID = strings.Trim(parsed.Path, "/")
		} else {
			videoID = parsed.Query().Get("v")
			if videoID == "" {
				// 无v参数时尝试 /watch/VIDEO_ID 路径形式
				parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
				if len(parts) >= 2 && parts[0] == "watch" {
					videoID = parts[1]
				}
			}
		}
		if videoID != "" {
			return "https://www.youtube.com/watch?v=" + videoID
		}
	}

	// 其他站点：仅保留主标识参数v，丢弃list等附加参数
	if parsed.RawQuery != "" {
		if v := parsed.Query().Get("v"); v != "" {
			return parsed.Scheme + "://" + parsed.Host + parsed.Path + "?v=" + v
		}
	}
	return parsed.Scheme + "://" + parsed.Host + parsed.Path
}
