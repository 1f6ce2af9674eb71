package geometry

import "math"

const (
	UnitPx      = "px"
	UnitPercent = "percent"
)

// Bounds is a requested rectangle in either pixel or percent-of-image units.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Section is one detected layout section as submitted by the upstream
// analysis step. Index drives the ordering of generated crop assets.
type Section struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Bounds Bounds `json:"bounds"`
	Unit   string `json:"unit,omitempty"`
}

// Rect is a resolved pixel rectangle, guaranteed in-image and non-zero-area
// once produced by Clamp.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Normalize converts bounds to pixel space. Percent values map to
// round(value/100 * dimension) per axis; pixel values pass through unchanged.
// Unknown units are treated as pixels.
func Normalize(b Bounds, unit string, imgW, imgH int) Bounds {
	if unit != UnitPercent {
		return b
	}
	return Bounds{
		X:      math.Round(b.X / 100 * float64(imgW)),
		Y:      math.Round(b.Y / 100 * float64(imgH)),
		Width:  math.Round(b.Width / 100 * float64(imgW)),
		Height: math.Round(b.Height / 100 * float64(imgH)),
	}
}

// Clamp fits pixel bounds into an imgW x imgH image. The result never
// exceeds the image and is never zero-area: degenerate requests are coerced
// to a 1-pixel minimum instead of failing the batch.
func Clamp(b Bounds, imgW, imgH int) Rect {
	left := clampInt(int(math.Round(b.X)), 0, imgW-1)
	top := clampInt(int(math.Round(b.Y)), 0, imgH-1)
	width := clampInt(int(math.Round(b.Width)), 1, imgW-left)
	height := clampInt(int(math.Round(b.Height)), 1, imgH-top)
	return Rect{Left: left, Top: top, Width: width, Height: height}
}

// Resolve normalizes and clamps a section against the image dimensions.
func Resolve(s Section, imgW, imgH int) Rect {
	return Clamp(Normalize(s.Bounds, s.Unit, imgW, imgH), imgW, imgH)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
