// Package images decodes and caches raster images for the writer. Every
// image is normalized to an 8-bit RGB plane plus an optional alpha plane so
// the PDF backend never has to understand source pixel formats.
package images

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrImageNotFound is returned when a reference was never loaded.
var ErrImageNotFound = errors.New("images: image not found")

// Raster is a decoded image normalized to straight 8-bit channels.
type Raster struct {
	ID     string
	Width  int
	Height int
	RGB    []byte // 3 bytes per pixel, row major
	Alpha  []byte // 1 byte per pixel; nil when fully opaque
}

// PointSize returns the image's natural display size in points, one point
// per pixel.
func (r *Raster) PointSize() (w, h float64) {
	return float64(r.Width), float64(r.Height)
}

// Cache holds decoded rasters keyed by reference. It is append-only: entries
// are never replaced, and Freeze makes the cache immutable so concurrent
// layout passes can read it without locking discipline on the caller's side.
type Cache struct {
	mu      sync.RWMutex
	rasters map[string]*Raster
	frozen  bool
}

// NewCache returns an empty image cache.
func NewCache() *Cache {
	return &Cache{rasters: make(map[string]*Raster)}
}

// Load decodes the image file at path and caches it under the path itself as
// reference. Loading the same path twice reuses the cached raster.
func (c *Cache) Load(path string) (string, error) {
	c.mu.RLock()
	_, ok := c.rasters[path]
	c.mu.RUnlock()
	if ok {
		return path, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("images: open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("images: decode %s: %w", path, err)
	}
	if err := c.Add(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// Add normalizes img and caches it under id. Adding an id twice or adding to
// a frozen cache is an error.
func (c *Cache) Add(id string, img image.Image) error {
	raster := normalize(id, img)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return fmt.Errorf("images: cache is frozen, cannot add %q", id)
	}
	if _, ok := c.rasters[id]; ok {
		return fmt.Errorf("images: %q already cached", id)
	}
	c.rasters[id] = raster
	return nil
}

// Get returns the raster cached under ref.
func (c *Cache) Get(ref string) (*Raster, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rasters[ref]
	if !ok {
		return nil, fmt.Errorf("images: %q: %w", ref, ErrImageNotFound)
	}
	return r, nil
}

// Freeze makes the cache immutable.
func (c *Cache) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// normalize converts any decoded image to straight RGB plus alpha planes.
func normalize(id string, img image.Image) *Raster {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)

	n := bounds.Dx() * bounds.Dy()
	rgb := make([]byte, 0, n*3)
	alpha := make([]byte, 0, n)
	opaque := true
	for i := 0; i < len(dst.Pix); i += 4 {
		rgb = append(rgb, dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2])
		a := dst.Pix[i+3]
		alpha = append(alpha, a)
		if a != 0xff {
			opaque = false
		}
	}
	if opaque {
		alpha = nil
	}
	return &Raster{ID: id, Width: bounds.Dx(), Height: bounds.Dy(), RGB: rgb, Alpha: alpha}
}
