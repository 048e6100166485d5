// Package imaging decodes uploaded images and renders the fixed derivative set
// with github.com/disintegration/imaging.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/catalog/backend/internal/domain/media"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used for JPEG derivatives
const DefaultJPEGQuality = 85

// Processor implements the decode and render steps of derivative generation
type Processor struct {
	jpegQuality int
	filter      imaging.ResampleFilter
}

// Option configures a Processor
type Option func(*Processor)

// WithJPEGQuality sets the JPEG encoding quality (1-100)
func WithJPEGQuality(q int) Option {
	return func(p *Processor) {
		if q >= 1 && q <= 100 {
			p.jpegQuality = q
		}
	}
}

// NewProcessor creates a Processor
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		jpegQuality: DefaultJPEGQuality,
		filter:      imaging.Lanczos,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type decoded struct {
	img    image.Image
	format string
}

func (d *decoded) Width() int     { return d.img.Bounds().Dx() }
func (d *decoded) Height() int    { return d.img.Bounds().Dy() }
func (d *decoded) Format() string { return d.format }

// Decode reads the image once. EXIF orientation is applied so reported
// dimensions match what a browser displays.
func (p *Processor) Decode(data []byte) (media.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read image metadata: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}
	return &decoded{img: img, format: format}, nil
}

// Render resizes src according to spec and encodes the result. The output
// dimensions are read back from the encoded buffer.
func (p *Processor) Render(src media.Image, spec media.DerivativeSpec) (*media.Rendition, error) {
	d, ok := src.(*decoded)
	if !ok {
		return nil, fmt.Errorf("image was not decoded by this processor")
	}

	var out image.Image
	switch {
	case spec.Fit == media.FitCover:
		out = imaging.Fill(d.img, spec.Width, spec.Height, imaging.Center, p.filter)
	case spec.ShortSide > 0:
		out = p.fitShortSide(d.img, spec.ShortSide)
	case spec.Fit == media.FitInside:
		out = imaging.Fit(d.img, spec.Width, spec.Height, p.filter)
	default:
		return nil, fmt.Errorf("derivative %s has no resize target", spec.Variant)
	}

	format, contentType, ext := outputFormat(d.format)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode %s derivative: %w", spec.Variant, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("read back %s derivative: %w", spec.Variant, err)
	}

	return &media.Rendition{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Ext:         ext,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// fitShortSide scales so the shorter side equals target. Sources whose short
// side is already within target are re-encoded at their own size.
func (p *Processor) fitShortSide(img image.Image, target int) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if min(w, h) <= target {
		return imaging.Clone(img)
	}
	if w <= h {
		return imaging.Resize(img, target, 0, p.filter)
	}
	return imaging.Resize(img, 0, target, p.filter)
}

// outputFormat maps a source format to the derivative encoding. GIF
// derivatives become a still PNG frame and WEBP derivatives become JPEG
// because neither animated GIF nor WEBP encoding is supported.
func outputFormat(source string) (imaging.Format, string, string) {
	switch source {
	case "png":
		return imaging.PNG, "image/png", ".png"
	case "gif":
		return imaging.PNG, "image/png", ".png"
	default:
		return imaging.JPEG, "image/jpeg", ".jpg"
	}
}
