package game

import (
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/decker502/sparkfx/pkg/descriptor"
)

func TestCleanTexturePath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plus.png", "plus.png", false},
		{"./fx/../fx/spark.PNG", "fx/spark.PNG", false},
		{`fx\smoke.jpg`, "fx/smoke.jpg", false},
		{"", "", true},
		{"/etc/spark.png", "", true},
		{"../outside.png", "", true},
		{"fx/../../outside.png", "", true},
		{"sprite.gif", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanTexturePath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTexturePath) {
					t.Errorf("CleanTexturePath(%q) error = %v, want ErrInvalidTexturePath", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("CleanTexturePath(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestTextureCache_Interns(t *testing.T) {
	c := NewTextureCache(nil)

	a, err := c.Resolve("plus.png")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := c.Resolve("./plus.png")
	other, _ := c.Resolve("spark.png")

	if a == descriptor.NoTexture || a != b {
		t.Errorf("handles = %d, %d, want the same non-zero handle", a, b)
	}
	if other == a {
		t.Error("distinct paths share a handle")
	}
	if p, ok := c.Path(other); !ok || p != "spark.png" {
		t.Errorf("Path(%d) = %q, %v", other, p, ok)
	}
	if _, ok := c.Path(descriptor.NoTexture); ok {
		t.Error("Path(NoTexture) succeeded")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestTextureCache_ChecksFileSystem(t *testing.T) {
	c := NewTextureCache(fstest.MapFS{"fx/plus.png": {Data: []byte("png")}})

	if _, err := c.Resolve("fx/plus.png"); err != nil {
		t.Errorf("Resolve(existing) error = %v", err)
	}
	if _, err := c.Resolve("fx/missing.png"); !errors.Is(err, ErrTextureNotFound) {
		t.Errorf("Resolve(missing) error = %v, want ErrTextureNotFound", err)
	}
}

func TestTextureCache_Concurrent(t *testing.T) {
	c := NewTextureCache(nil)
	paths := []string{"a.png", "b.png", "c.png", "d.png"}

	var wg sync.WaitGroup
	results := make([][]descriptor.TextureHandle, 8)
	for g := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, p := range paths {
				h, err := c.Resolve(p)
				if err != nil {
					t.Error(err)
					return
				}
				results[g] = append(results[g], h)
			}
		}()
	}
	wg.Wait()

	for g := 1; g < len(results); g++ {
		for i := range paths {
			if results[g][i] != results[0][i] {
				t.Fatalf("goroutine %d got handle %d for %s, goroutine 0 got %d", g, results[g][i], paths[i], results[0][i])
			}
		}
	}
	if c.Len() != len(paths) {
		t.Errorf("Len() = %d, want %d", c.Len(), len(paths))
	}
}
