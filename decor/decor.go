// Package decor resolves block decorations into paint geometry. Borders of
// consecutive blocks with an identical border and shading specification merge
// into one enclosing stroke, so stacked paragraphs sharing a border spec do
// not draw a doubled line between them. Shading is painted per block, and
// shadows pass through from style unchanged.
package decor

import (
	"math"

	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
)

// Block is one laid-out block frame with its decoration attributes.
type Block struct {
	Frame   geo.Rect
	Borders model.Borders
	Shading model.Shading
	Shadow  model.Shadow
}

// Fill is one background rectangle.
type Fill struct {
	Rect  geo.Rect
	Color model.Color
}

// ShadowBox is one drop-shadow rectangle, already offset from its block.
type ShadowBox struct {
	Rect  geo.Rect
	Color model.Color
}

// Stroke is one border outline. For a merged group the rect encloses every
// frame of the group.
type Stroke struct {
	Rect    geo.Rect
	Borders model.Borders
}

// Result is the paint list for one run of blocks, in paint order: shadows
// first, then fills, then strokes.
type Result struct {
	Shadows []ShadowBox
	Fills   []Fill
	Strokes []Stroke
}

// alignEps is the horizontal tolerance below which two frames count as
// sharing the same left and right extents.
const alignEps = 0.01

// Resolve computes the paint geometry for an ordered run of blocks, top to
// bottom. Borders merge only between consecutive blocks whose border and
// shading specifications are identical and whose frames share the same
// horizontal extent; vertical spacing between merged blocks is enclosed by
// the merged stroke. Shading and shadows never merge.
func Resolve(blocks []Block) Result {
	var res Result
	for _, b := range blocks {
		if b.Shadow.Set {
			res.Shadows = append(res.Shadows, ShadowBox{
				Rect:  b.Frame.Translate(b.Shadow.OffsetX, b.Shadow.OffsetY),
				Color: b.Shadow.Color,
			})
		}
		if b.Shading.Set {
			res.Fills = append(res.Fills, Fill{Rect: b.Frame, Color: b.Shading.Fill})
		}
	}

	for start := 0; start < len(blocks); {
		if blocks[start].Borders.IsZero() {
			start++
			continue
		}
		end := start + 1
		rect := blocks[start].Frame
		for end < len(blocks) && mergeable(blocks[end-1], blocks[end]) {
			rect = rect.Union(blocks[end].Frame)
			end++
		}
		res.Strokes = append(res.Strokes, Stroke{Rect: rect, Borders: blocks[start].Borders})
		start = end
	}
	return res
}

// mergeable reports whether b extends a's border group.
func mergeable(a, b Block) bool {
	if b.Borders.IsZero() || a.Borders != b.Borders || a.Shading != b.Shading {
		return false
	}
	return math.Abs(a.Frame.X-b.Frame.X) <= alignEps &&
		math.Abs(a.Frame.Right()-b.Frame.Right()) <= alignEps
}
