// Package geo provides the measurement primitives shared by the layout
// pipeline: lengths in points, rectangles with a top-left origin, margins,
// and standard paper sizes.
package geo

// Conversion factors to points (1/72 inch).
const (
	PtPerInch = 72.0
	PtPerMM   = 72.0 / 25.4
	PtPerCM   = 72.0 / 2.54
	TwipPerPt = 20.0
)

// FromMM converts millimeters to points.
func FromMM(v float64) float64 { return v * PtPerMM }

// FromCM converts centimeters to points.
func FromCM(v float64) float64 { return v * PtPerCM }

// FromInch converts inches to points.
func FromInch(v float64) float64 { return v * PtPerInch }

// FromTwips converts twips (twentieths of a point) to points.
func FromTwips(v float64) float64 { return v / TwipPerPt }

// Size is a width/height pair in points.
type Size struct {
	W, H float64
}

// Standard paper sizes in points.
var (
	A4     = Size{W: 595.28, H: 841.89}
	A3     = Size{W: 841.89, H: 1190.55}
	A5     = Size{W: 419.53, H: 595.28}
	Letter = Size{W: 612, H: 792}
	Legal  = Size{W: 612, H: 1008}
)

// Margins defines the distance from each page edge to the content area.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Rect is a rectangle in points with the origin at the top-left corner of
// the page content area. Width and height are never negative.
type Rect struct {
	X, Y, W, H float64
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.W <= 0 || r.H <= 0 }

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge (y grows downward).
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Translate returns a copy of r shifted by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// Inset returns a copy of r shrunk by the given margins. Width and height
// are clamped at zero.
func (r Rect) Inset(m Margins) Rect {
	out := Rect{
		X: r.X + m.Left,
		Y: r.Y + m.Top,
		W: r.W - m.Left - m.Right,
		H: r.H - m.Top - m.Bottom,
	}
	if out.W < 0 {
		out.W = 0
	}
	if out.H < 0 {
		out.H = 0
	}
	return out
}

// Union returns the smallest rectangle containing both r and o. Empty
// rectangles are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.Right(), o.Right())
	y1 := max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ContentArea returns the rectangle left inside a page of the given size
// after applying margins.
func ContentArea(page Size, m Margins) Rect {
	return Rect{W: page.W, H: page.H}.Inset(m)
}
