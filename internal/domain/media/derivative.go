package media

import (
	"path"
	"strings"
)

// Variant names a slot in the derivative set
type Variant string

const (
	VariantOriginal Variant = "original"
	VariantLarge    Variant = "large"
	VariantMedium   Variant = "medium"
	VariantThumb    Variant = "thumb"
)

// IsValid checks if the variant is one of the four known slots
func (v Variant) IsValid() bool {
	switch v {
	case VariantOriginal, VariantLarge, VariantMedium, VariantThumb:
		return true
	default:
		return false
	}
}

// Fit describes how a derivative is sized against its target
type Fit string

const (
	// FitNone keeps the source dimensions
	FitNone Fit = "none"
	// FitInside scales to fit within the target, preserving aspect ratio
	FitInside Fit = "inside"
	// FitCover scales and center-crops to fill the target exactly
	FitCover Fit = "cover"
)

// DerivativeSpec is one entry of the fixed derivative table.
// A spec either targets a box (Width x Height) or a short side.
type DerivativeSpec struct {
	Variant   Variant
	Fit       Fit
	Width     int
	Height    int
	ShortSide int
	Suffix    string
}

var derivativeSpecs = []DerivativeSpec{
	{Variant: VariantOriginal, Fit: FitNone},
	{Variant: VariantLarge, Fit: FitInside, Width: 1920, Height: 1920, Suffix: "_large"},
	{Variant: VariantMedium, Fit: FitInside, ShortSide: 500, Suffix: "_medium"},
	{Variant: VariantThumb, Fit: FitCover, Width: 300, Height: 300, Suffix: "_thumb"},
}

// DerivativeSpecs returns the ordered derivative table. The returned slice is a copy.
func DerivativeSpecs() []DerivativeSpec {
	specs := make([]DerivativeSpec, len(derivativeSpecs))
	copy(specs, derivativeSpecs)
	return specs
}

// SpecFor returns the spec for a variant
func SpecFor(v Variant) (DerivativeSpec, bool) {
	for _, s := range derivativeSpecs {
		if s.Variant == v {
			return s, true
		}
	}
	return DerivativeSpec{}, false
}

// Applies reports whether a source of the given dimensions gets this derivative.
// Each axis is compared with a strict greater-than, so a source never gets a
// derivative it would have to be enlarged for.
func (s DerivativeSpec) Applies(width, height int) bool {
	switch {
	case s.Fit == FitNone:
		return true
	case s.ShortSide > 0:
		return width > s.ShortSide || height > s.ShortSide
	default:
		return width > s.Width || height > s.Height
	}
}

// ObjectKey returns the bucket-relative key for filename under this variant.
// ext replaces the filename extension when the derivative is re-encoded in
// another format; pass "" to keep the source extension.
func (s DerivativeSpec) ObjectKey(filename, ext string) string {
	prefix := string(s.Variant) + "/"
	if s.Fit == FitNone {
		return prefix + filename
	}
	srcExt := path.Ext(filename)
	if ext == "" {
		ext = srcExt
	}
	return prefix + strings.TrimSuffix(filename, srcExt) + s.Suffix + ext
}
