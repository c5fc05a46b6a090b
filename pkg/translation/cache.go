package translation

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryCacheSize 内存缓存默认容量（条目数）
const DefaultMemoryCacheSize = 10000

// Cache 翻译结果缓存
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Delete(key string) error
	Clear() error
	Stats() CacheStats
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// cacheEntry 缓存条目，TTL 为 0 表示不过期
type cacheEntry struct {
	Value     string        `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl,omitempty"`
}

func (e cacheEntry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.Timestamp) > e.TTL
}

// MemoryCache 容量有限的 LRU 内存缓存
type MemoryCache struct {
	entries *lru.Cache[string, cacheEntry]

	mu     sync.Mutex
	hits   int64
	misses int64
}

// NewMemoryCache 创建默认容量的内存缓存
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithSize(DefaultMemoryCacheSize)
}

// NewMemoryCacheWithSize 创建指定容量的内存缓存，超出时淘汰最久未用的条目
func NewMemoryCacheWithSize(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	entries, _ := lru.New[string, cacheEntry](size)
	return &MemoryCache{entries: entries}
}

func (c *MemoryCache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Get 获取缓存，过期条目按未命中处理并删除
func (c *MemoryCache) Get(key string) (string, bool) {
	entry, ok := c.entries.Get(key)
	if ok && entry.expired(time.Now()) {
		c.entries.Remove(key)
		ok = false
	}
	c.count(ok)
	return entry.Value, ok
}

// Set 写入不过期的条目
func (c *MemoryCache) Set(key string, value string) error {
	return c.SetWithTTL(key, value, 0)
}

// SetWithTTL 写入带过期时间的条目
func (c *MemoryCache) SetWithTTL(key string, value string, ttl time.Duration) error {
	c.entries.Add(key, cacheEntry{Value: value, Timestamp: time.Now(), TTL: ttl})
	return nil
}

// Delete 删除条目
func (c *MemoryCache) Delete(key string) error {
	c.entries.Remove(key)
	return nil
}

// Clear 清空缓存和统计
func (c *MemoryCache) Clear() error {
	c.entries.Purge()
	c.mu.Lock()
	c.hits, c.misses = 0, 0
	c.mu.Unlock()
	return nil
}

// Stats 获取统计信息
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: int64(c.entries.Len())}
}

// FileCache 持久化到目录的缓存，内存 LRU 作为一级缓存
//
// 条目按键哈希的前两位分目录保存为 JSON 文件，写入先落临时文件再改名。
type FileCache struct {
	dir    string
	memory *MemoryCache

	mu     sync.Mutex
	hits   int64
	misses int64
}

// cacheFileExt 缓存文件扩展名
const cacheFileExt = ".cache"

// NewFileCache 创建文件缓存，目录不可用时退化为纯内存缓存
func NewFileCache(dir string) *FileCache {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = ""
		}
	}
	return &FileCache{dir: dir, memory: NewMemoryCache()}
}

// Dir 返回缓存目录，纯内存模式下为空
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(key string) string {
	sum := md5.Sum([]byte(key))
	name := hex.EncodeToString(sum[:])
	return filepath.Join(c.dir, name[:2], name+cacheFileExt)
}

func (c *FileCache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Get 先查内存再查磁盘，磁盘命中会回填内存
func (c *FileCache) Get(key string) (string, bool) {
	if entry, ok := c.memory.entries.Get(key); ok && !entry.expired(time.Now()) {
		c.count(true)
		return entry.Value, true
	}
	if c.dir == "" {
		c.count(false)
		return "", false
	}

	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		c.count(false)
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.expired(time.Now()) {
		_ = os.Remove(path)
		c.count(false)
		return "", false
	}

	c.memory.entries.Add(key, entry)
	c.count(true)
	return entry.Value, true
}

// Set 写入内存并持久化
func (c *FileCache) Set(key string, value string) error {
	entry := cacheEntry{Value: value, Timestamp: time.Now()}
	c.memory.entries.Add(key, entry)
	if c.dir == "" {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheFailed, err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), path)
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrCacheFailed, werr)
	}
	return nil
}

// Delete 删除条目
func (c *FileCache) Delete(key string) error {
	c.memory.entries.Remove(key)
	if c.dir == "" {
		return nil
	}
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear 删除所有缓存文件
func (c *FileCache) Clear() error {
	_ = c.memory.Clear()
	c.mu.Lock()
	c.hits, c.misses = 0, 0
	c.mu.Unlock()

	_, err := c.walk(func(string, os.FileInfo) bool { return true })
	return err
}

// Prune 删除修改时间早于 maxAge 的缓存文件，返回删除的数量和字节数
func (c *FileCache) Prune(maxAge time.Duration) (int, int64, error) {
	cutoff := time.Now().Add(-maxAge)
	var size int64
	n, err := c.walk(func(_ string, info os.FileInfo) bool {
		if info.ModTime().Before(cutoff) {
			size += info.Size()
			return true
		}
		return false
	})
	if n > 0 {
		// 内存中的条目可能已被删除
		c.memory.entries.Purge()
	}
	return n, size, err
}

// DiskUsage 统计缓存文件数量、总大小和修改时间范围
type DiskUsage struct {
	Entries int
	Bytes   int64
	Oldest  time.Time
	Newest  time.Time
}

// Usage 返回磁盘占用
func (c *FileCache) Usage() (DiskUsage, error) {
	var u DiskUsage
	_, err := c.walk(func(_ string, info os.FileInfo) bool {
		u.Entries++
		u.Bytes += info.Size()
		mod := info.ModTime()
		if u.Oldest.IsZero() || mod.Before(u.Oldest) {
			u.Oldest = mod
		}
		if mod.After(u.Newest) {
			u.Newest = mod
		}
		return false
	})
	return u, err
}

// walk 遍历缓存文件，remove 返回 true 的文件被删除
func (c *FileCache) walk(remove func(path string, info os.FileInfo) bool) (int, error) {
	if c.dir == "" {
		return 0, nil
	}

	removed := 0
	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || filepath.Ext(path) != cacheFileExt {
			return nil
		}
		if remove(path, info) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// Stats 获取统计信息，Size 为一级缓存的条目数
func (c *FileCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Size: int64(c.memory.entries.Len())}
}

// NewCache 根据配置创建缓存实例，未启用时返回 nil
func NewCache(useCache bool, cacheDir string) Cache {
	if !useCache {
		return nil
	}
	if cacheDir != "" {
		return NewFileCache(cacheDir)
	}
	return NewMemoryCache()
}

// CacheKey 生成缓存键，提供商名称不区分大小写
func CacheKey(provider, from, to, text string) string {
	keyData := fmt.Sprintf("provider:%s|src:%s|tgt:%s|text:%s",
		strings.ToLower(provider), from, to, text)
	sum := md5.Sum([]byte(keyData))
	return hex.EncodeToString(sum[:])
}

// CachedTranslateFunc 为翻译函数加上缓存，只缓存成功且非空的结果
//
// 近似结果（ApproximateError）连同错误原样返回，不写入缓存。
func CachedTranslateFunc(fn TranslateFunc, cache Cache, provider string) TranslateFunc {
	if cache == nil {
		return fn
	}

	return func(ctx context.Context, text, from, to string) (string, error) {
		key := CacheKey(provider, from, to, text)
		if cached, ok := cache.Get(key); ok {
			return cached, nil
		}

		out, err := fn(ctx, text, from, to)
		if err != nil {
			return out, err
		}
		if strings.TrimSpace(out) != "" {
			_ = cache.Set(key, out)
		}
		return out, nil
	}
}
