package texture

import (
	"image"
	"io"
	"log"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
)

// Handle identifies a decoded texture. Zero means no texture.
type Handle uint32

type entry struct {
	path string
	img  *image.RGBA
}

// Store keeps decoded textures for the lifetime of the process. It does not
// deduplicate, callers decide when to load.
type Store struct {
	MaxSize int

	entries []entry
}

func NewStore(maxSize int) *Store {
	return &Store{MaxSize: maxSize}
}

func (s *Store) Load(path string) (Handle, error) {
	img, err := DecodeFile(path, s.MaxSize)
	if err != nil {
		return 0, err
	}
	s.entries = append(s.entries, entry{path: path, img: img})
	h := Handle(len(s.entries))
	log.Printf("[texture] Loaded %q as %d (%dx%d)", path, h, img.Bounds().Dx(), img.Bounds().Dy())
	return h, nil
}

func (s *Store) get(h Handle) (*entry, bool) {
	if h == 0 || int(h) > len(s.entries) {
		return nil, false
	}
	return &s.entries[h-1], true
}

func (s *Store) Image(h Handle) (*image.RGBA, bool) {
	e, ok := s.get(h)
	if !ok {
		return nil, false
	}
	return e.img, true
}

func (s *Store) Path(h Handle) string {
	if e, ok := s.get(h); ok {
		return e.path
	}
	return ""
}

func (s *Store) Len() int { return len(s.entries) }

// EncodeWebP writes a lossless webp preview of the texture.
func (s *Store) EncodeWebP(w io.Writer, h Handle) error {
	e, ok := s.get(h)
	if !ok {
		return errors.Errorf("Unknown texture %d", h)
	}
	if err := nativewebp.Encode(w, e.img, nil); err != nil {
		return errors.Wrapf(err, "Failed to encode texture %d", h)
	}
	return nil
}
