package region

import (
	"image"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// mask is a dense binary image where true marks an ink pixel.
type mask struct {
	w, h int
	bits []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, bits: make([]bool, w*h)}
}

func (m *mask) at(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.bits[y*m.w+x]
}

func (m *mask) set(x, y int, v bool) { m.bits[y*m.w+x] = v }

// binarize converts the image to an ink mask with an Otsu threshold over the
// grayscale histogram. Ink is the dark side of the threshold.
func binarize(img image.Image) *mask {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	gray := make([]uint8, w*h)
	var hist [256]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R BT.601 luma from 16-bit channels
			v := uint8((299*r + 587*g + 114*b) / 1000 >> 8)
			gray[y*w+x] = v
			hist[v]++
		}
	}

	threshold := otsu(hist, w*h)

	m := newMask(w, h)
	for i, v := range gray {
		if v < threshold {
			m.bits[i] = true
		}
	}
	return m
}

// otsu picks the threshold maximizing inter-class variance.
func otsu(hist [256]int, total int) uint8 {
	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}

	var sumB, wB float64
	var maxVar float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// closeMorph applies one morphological close (3x3 dilate then 3x3 erode) to
// bridge the gaps between barcode bars and adjacent glyphs.
func closeMorph(m *mask) *mask {
	dilated := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if neighborhoodAny(m, x, y) {
				dilated.set(x, y, true)
			}
		}
	}
	eroded := newMask(m.w, m.h)
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if neighborhoodAll(dilated, x, y) {
				eroded.set(x, y, true)
			}
		}
	}
	return eroded
}

func neighborhoodAny(m *mask, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if m.at(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

func neighborhoodAll(m *mask, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			// Pixels beyond the border count as set so edge regions survive.
			if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
				continue
			}
			if !m.at(nx, ny) {
				return false
			}
		}
	}
	return true
}

// components labels 8-connected ink regions and returns their bounding boxes.
func components(m *mask) []document.BoundingBox {
	visited := make([]bool, m.w*m.h)
	var boxes []document.BoundingBox
	var stack []int

	for start := 0; start < len(m.bits); start++ {
		if !m.bits[start] || visited[start] {
			continue
		}
		box := document.BoundingBox{X0: m.w, Y0: m.h, X1: 0, Y1: 0}
		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%m.w, idx/m.w

			if x < box.X0 {
				box.X0 = x
			}
			if y < box.Y0 {
				box.Y0 = y
			}
			if x+1 > box.X1 {
				box.X1 = x + 1
			}
			if y+1 > box.Y1 {
				box.Y1 = y + 1
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
						continue
					}
					nidx := ny*m.w + nx
					if m.bits[nidx] && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, nidx)
					}
				}
			}
		}
		boxes = append(boxes, box)
	}
	return boxes
}
