package document

import "fmt"

// BoundingBox is an axis-aligned rectangle in the pixel space of the page it
// was detected on. Invariant: X0 < X1 and Y0 < Y1 after Clamp.
type BoundingBox struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Valid reports whether the box has positive extent on both axes.
func (b BoundingBox) Valid() bool { return b.X0 < b.X1 && b.Y0 < b.Y1 }

// Width returns the horizontal extent.
func (b BoundingBox) Width() int { return b.X1 - b.X0 }

// Height returns the vertical extent.
func (b BoundingBox) Height() int { return b.Y1 - b.Y0 }

// Area returns the covered pixel count.
func (b BoundingBox) Area() int {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Clamp constrains the box to a w x h page. Out-of-bounds detections are
// clamped before redaction rather than rejected.
func (b BoundingBox) Clamp(w, h int) BoundingBox {
	if b.X0 < 0 {
		b.X0 = 0
	}
	if b.Y0 < 0 {
		b.Y0 = 0
	}
	if b.X1 > w {
		b.X1 = w
	}
	if b.Y1 > h {
		b.Y1 = h
	}
	return b
}

// Expand grows the box by margin pixels on every side.
func (b BoundingBox) Expand(margin int) BoundingBox {
	return BoundingBox{X0: b.X0 - margin, Y0: b.Y0 - margin, X1: b.X1 + margin, Y1: b.Y1 + margin}
}

// Union returns the smallest box covering both boxes.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if o.X0 < b.X0 {
		b.X0 = o.X0
	}
	if o.Y0 < b.Y0 {
		b.Y0 = o.Y0
	}
	if o.X1 > b.X1 {
		b.X1 = o.X1
	}
	if o.Y1 > b.Y1 {
		b.Y1 = o.Y1
	}
	return b
}

// Intersect returns the overlapping region; the result may be invalid when the
// boxes are disjoint.
func (b BoundingBox) Intersect(o BoundingBox) BoundingBox {
	if o.X0 > b.X0 {
		b.X0 = o.X0
	}
	if o.Y0 > b.Y0 {
		b.Y0 = o.Y0
	}
	if o.X1 < b.X1 {
		b.X1 = o.X1
	}
	if o.Y1 < b.Y1 {
		b.Y1 = o.Y1
	}
	return b
}

// OverlapRatio returns intersection area over the smaller box's area, so a box
// fully contained in a larger one always scores 1.0.
func (b BoundingBox) OverlapRatio(o BoundingBox) float64 {
	inter := b.Intersect(o).Area()
	if inter == 0 {
		return 0
	}
	smaller := b.Area()
	if oa := o.Area(); oa < smaller {
		smaller = oa
	}
	if smaller == 0 {
		return 0
	}
	return float64(inter) / float64(smaller)
}

// String formats the box for logs and record locations.
func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X0, b.Y0, b.X1, b.Y1)
}
