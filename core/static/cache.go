package static

import (
	"container/list"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File is a resolved file ready to be served. Data is set when the file is
// small enough to be cached; larger files are reopened per request.
type File struct {
	Path        string
	Size        int64
	ModTime     time.Time
	ContentType string
	Data        []byte
}

// FileCache keeps the most recently served small files in memory.
type FileCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
	maxFiles int
	maxSize  int64

	hits   uint64
	misses uint64
}

// NewFileCache caches up to maxFiles files of at most maxSize bytes each.
func NewFileCache(maxFiles int, maxSize int64) *FileCache {
	return &FileCache{
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		maxFiles: maxFiles,
		maxSize:  maxSize,
	}
}

// Get returns the file at path, from memory when its modification time is
// unchanged. Directories report fs.ErrNotExist.
func (fc *FileCache) Get(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}

	fc.mu.Lock()
	if el, ok := fc.entries[path]; ok {
		f := el.Value.(*File)
		if f.ModTime.Equal(info.ModTime()) && f.Size == info.Size() {
			fc.lru.MoveToFront(el)
			fc.hits++
			fc.mu.Unlock()
			return f, nil
		}
		fc.lru.Remove(el)
		delete(fc.entries, path)
	}
	fc.misses++
	fc.mu.Unlock()

	f := &File{
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentType: ContentType(path),
	}
	if fc.maxFiles <= 0 || info.Size() > fc.maxSize {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f.Data = data

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if _, ok := fc.entries[path]; !ok {
		fc.entries[path] = fc.lru.PushFront(f)
	}
	for fc.lru.Len() > fc.maxFiles {
		oldest := fc.lru.Back()
		fc.lru.Remove(oldest)
		delete(fc.entries, oldest.Value.(*File).Path)
	}
	return f, nil
}

// Len returns the number of cached files.
func (fc *FileCache) Len() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.lru.Len()
}

// Stats returns cache hits and misses.
func (fc *FileCache) Stats() (hits, misses uint64) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.hits, fc.misses
}

// Purge drops every cached file.
func (fc *FileCache) Purge() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	clear(fc.entries)
	fc.lru.Init()
}

var fallbackTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".json": "application/json",
	".svg":  "image/svg+xml",
	".txt":  "text/plain; charset=utf-8",
	".wasm": "application/wasm",
}

// ContentType guesses a file's media type from its extension.
func ContentType(name string) string {
	ext := filepath.Ext(name)
	if ct, ok := fallbackTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
