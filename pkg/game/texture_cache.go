package game

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decker502/sparkfx/pkg/descriptor"
)

var (
	// ErrInvalidTexturePath is returned for absolute paths, paths escaping the
	// texture root and unsupported image extensions.
	ErrInvalidTexturePath = errors.New("invalid texture path")

	// ErrTextureNotFound is returned when the texture file system has no such file.
	ErrTextureNotFound = errors.New("texture not found")
)

var textureExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// TextureCache interns texture paths into handles.
//
// Every distinct cleaned path gets one handle for the lifetime of the cache,
// starting at 1 (descriptor.NoTexture is 0). When fsys is set the file must
// exist in it; a nil fsys only checks the path syntax, and the renderer
// decides what to draw for files it cannot open.
//
// TextureCache is safe for concurrent use.
type TextureCache struct {
	fsys fs.FS

	mu      sync.RWMutex
	handles map[string]descriptor.TextureHandle
	paths   []string // handle-1 -> path
}

// NewTextureCache creates a cache over fsys, which may be nil.
func NewTextureCache(fsys fs.FS) *TextureCache {
	return &TextureCache{
		fsys:    fsys,
		handles: make(map[string]descriptor.TextureHandle),
	}
}

// CleanTexturePath validates p and returns its canonical slash-separated form.
func CleanTexturePath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" || path.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidTexturePath, p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q escapes the texture root", ErrInvalidTexturePath, p)
	}
	if !textureExts[strings.ToLower(path.Ext(clean))] {
		return "", fmt.Errorf("%w: %q is not a png or jpeg", ErrInvalidTexturePath, p)
	}
	return clean, nil
}

// Resolve implements descriptor.TextureResolver.
func (c *TextureCache) Resolve(p string) (descriptor.TextureHandle, error) {
	clean, err := CleanTexturePath(p)
	if err != nil {
		return descriptor.NoTexture, err
	}

	c.mu.RLock()
	h, ok := c.handles[clean]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	if c.fsys != nil {
		if _, err := fs.Stat(c.fsys, clean); err != nil {
			return descriptor.NoTexture, fmt.Errorf("%w: %s: %v", ErrTextureNotFound, clean, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[clean]; ok {
		return h, nil
	}
	c.paths = append(c.paths, clean)
	h = descriptor.TextureHandle(len(c.paths))
	c.handles[clean] = h
	return h, nil
}

// Path returns the cleaned path behind a handle.
func (c *TextureCache) Path(h descriptor.TextureHandle) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if h == descriptor.NoTexture || int(h) > len(c.paths) {
		return "", false
	}
	return c.paths[h-1], true
}

// Len returns the number of interned textures.
func (c *TextureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.paths)
}
