package asset

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Disposable is anything the Tracker can release.
type Disposable interface {
	Dispose() error
}

// Texture is a decoded image plus the release hooks GPU-backed sinks attach.
type Texture struct {
	path     string
	img      image.Image
	w, h     int
	disposed bool
	release  []func()
}

// DecodeTexture reads and decodes an image file. rel is kept as the
// texture's display path.
func DecodeTexture(full, rel string) (*Texture, error) {
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return NewTexture(rel, img), nil
}

// NewTexture wraps an already decoded image.
func NewTexture(path string, img image.Image) *Texture {
	b := img.Bounds()
	return &Texture{path: path, img: img, w: b.Dx(), h: b.Dy()}
}

func (t *Texture) Path() string       { return t.path }
func (t *Texture) Image() image.Image { return t.img }
func (t *Texture) Size() (int, int)   { return t.w, t.h }
func (t *Texture) Disposed() bool     { return t.disposed }

// OnRelease registers fn to run when the texture is disposed. Registering on
// a disposed texture runs fn at once.
func (t *Texture) OnRelease(fn func()) {
	if t.disposed {
		fn()
		return
	}
	t.release = append(t.release, fn)
}

// Dispose runs the release hooks and drops the pixels. Repeated calls are
// no-ops.
func (t *Texture) Dispose() error {
	if t.disposed {
		return nil
	}
	t.disposed = true
	hooks := t.release
	t.release = nil
	t.img = nil
	for _, fn := range hooks {
		fn()
	}
	return nil
}
