package texture

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/ioutil"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// tga has no magic, so it is the decoder for unrecognized data
var decoders = map[string]func(io.Reader) (image.Image, error){
	"png": png.Decode,
	"jpg": jpeg.Decode,
	"bmp": bmp.Decode,
}

// Decode returns the image flipped to bottom-up row order, clamped so that
// neither side exceeds maxSize when maxSize > 0.
func Decode(data []byte, maxSize int) (*image.RGBA, error) {
	kind, _ := filetype.Match(data)
	decode := tga.Decode
	if kind != filetype.Unknown {
		var ok bool
		if decode, ok = decoders[kind.Extension]; !ok {
			return nil, errors.Errorf("Unsupported texture type: %s", kind.MIME.Value)
		}
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode %s image", kindName(kind))
	}

	rgba := clone.AsRGBA(img)
	if maxSize > 0 {
		w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
		if w > maxSize || h > maxSize {
			scale := float64(maxSize) / float64(w)
			if h > w {
				scale = float64(maxSize) / float64(h)
			}
			nw, nh := int(float64(w)*scale), int(float64(h)*scale)
			if nw < 1 {
				nw = 1
			}
			if nh < 1 {
				nh = 1
			}
			rgba = transform.Resize(rgba, nw, nh, transform.Linear)
		}
	}
	return transform.FlipV(rgba), nil
}

func DecodeFile(path string, maxSize int) (*image.RGBA, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read texture %q", path)
	}
	img, err := Decode(data, maxSize)
	if err != nil {
		return nil, errors.Wrapf(err, "Texture %q", path)
	}
	return img, nil
}

func kindName(kind types.Type) string {
	if kind == filetype.Unknown {
		return "tga"
	}
	return kind.Extension
}
