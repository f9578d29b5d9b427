// Package tablegrid computes table geometry: column widths, row heights and
// the merged-cell map, given a table model and an available width. Cell
// content is sized through a measurer callback so the package stays
// independent of the text engine driving it.
package tablegrid

import (
	"fmt"

	"github.com/wudi/docpress/model"
)

// OverflowError reports that the available width cannot hold the table's
// explicit and minimum column widths. The caller decides whether to clip or
// to reduce the font size; the geometry is never silently shrunk below its
// minima.
type OverflowError struct {
	Required  float64
	Available float64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("tablegrid: table requires %.2fpt but only %.2fpt is available", e.Required, e.Available)
}

// CellMeasurer sizes cell content for the geometry computation.
type CellMeasurer interface {
	// ContentHeight returns the height of the cell's content laid out at
	// the given width (padding excluded).
	ContentHeight(cell *model.TableCell, width float64) (float64, error)
	// MinContentWidth returns the width of the cell's least-wrappable
	// content token (padding excluded).
	MinContentWidth(cell *model.TableCell) (float64, error)
}

// CellRef addresses a grid position.
type CellRef struct {
	Row, Col int
}

// Span is the extent of a merged cell in grid units; 1x1 for plain cells.
type Span struct {
	Rows, Cols int
}

// PlacedCell is a cell resolved to its grid origin.
type PlacedCell struct {
	Cell *model.TableCell
	Ref  CellRef
	Span Span
}

// Geometry is the computed table layout. Invariants: the column widths sum
// to at most the available width, and every grid position is covered by
// exactly one span origin.
type Geometry struct {
	ColWidths  []float64
	RowHeights []float64
	Placed     []PlacedCell
	cover      map[CellRef]CellRef // every position -> its origin
}

// Cols returns the number of grid columns.
func (g *Geometry) Cols() int { return len(g.ColWidths) }

// Rows returns the number of grid rows.
func (g *Geometry) Rows() int { return len(g.RowHeights) }

// OriginOf returns the span origin covering the given position.
func (g *Geometry) OriginOf(row, col int) (CellRef, bool) {
	ref, ok := g.cover[CellRef{row, col}]
	return ref, ok
}

// ColOffset returns the x offset of column c from the table's left edge.
func (g *Geometry) ColOffset(c int) float64 {
	var x float64
	for i := 0; i < c && i < len(g.ColWidths); i++ {
		x += g.ColWidths[i]
	}
	return x
}

// RowOffset returns the y offset of row r from the table's top edge.
func (g *Geometry) RowOffset(r int) float64 {
	var y float64
	for i := 0; i < r && i < len(g.RowHeights); i++ {
		y += g.RowHeights[i]
	}
	return y
}

// SpanWidth returns the total width covered by a placed cell.
func (g *Geometry) SpanWidth(p PlacedCell) float64 {
	var w float64
	for c := p.Ref.Col; c < p.Ref.Col+p.Span.Cols && c < len(g.ColWidths); c++ {
		w += g.ColWidths[c]
	}
	return w
}

// SpanHeight returns the total height covered by a placed cell.
func (g *Geometry) SpanHeight(p PlacedCell) float64 {
	var h float64
	for r := p.Ref.Row; r < p.Ref.Row+p.Span.Rows && r < len(g.RowHeights); r++ {
		h += g.RowHeights[r]
	}
	return h
}

// Width returns the sum of all column widths.
func (g *Geometry) Width() float64 { return g.ColOffset(len(g.ColWidths)) }

// Height returns the sum of all row heights.
func (g *Geometry) Height() float64 { return g.RowOffset(len(g.RowHeights)) }

// RowsHeight sums the heights of rows [start, end).
func (g *Geometry) RowsHeight(start, end int) float64 {
	var h float64
	for r := start; r < end && r < len(g.RowHeights); r++ {
		h += g.RowHeights[r]
	}
	return h
}

// Compute lays out the table grid inside the available width.
func Compute(t *model.Table, avail float64, m CellMeasurer) (*Geometry, error) {
	g, err := buildGrid(t)
	if err != nil {
		return nil, err
	}
	if err := g.computeColumns(avail, m); err != nil {
		return nil, err
	}
	if err := g.computeRows(t, m); err != nil {
		return nil, err
	}
	return g.Geometry, nil
}

type grid struct {
	*Geometry
	explicit []float64 // per-column explicit width, 0 = auto
	minimum  []float64 // per-column minimum content width
}

// buildGrid resolves spans into grid positions. Each position is claimed by
// exactly one origin; overlapping spans are rejected as a model error.
func buildGrid(t *model.Table) (*grid, error) {
	geo := &Geometry{cover: make(map[CellRef]CellRef)}
	cols := 0
	for r := range t.Rows {
		c := 0
		for i := range t.Rows[r].Cells {
			cell := &t.Rows[r].Cells[i]
			for {
				if _, taken := geo.cover[CellRef{r, c}]; !taken {
					break
				}
				c++
			}
			span := Span{Rows: max(1, cell.RowSpan), Cols: max(1, cell.ColSpan)}
			origin := CellRef{r, c}
			for rr := r; rr < r+span.Rows; rr++ {
				for cc := c; cc < c+span.Cols; cc++ {
					pos := CellRef{rr, cc}
					if prev, taken := geo.cover[pos]; taken {
						return nil, fmt.Errorf("tablegrid: cell (%d,%d) covered by both (%d,%d) and (%d,%d)",
							rr, cc, prev.Row, prev.Col, origin.Row, origin.Col)
					}
					geo.cover[pos] = origin
				}
			}
			geo.Placed = append(geo.Placed, PlacedCell{Cell: cell, Ref: origin, Span: span})
			c += span.Cols
		}
		if c > cols {
			cols = c
		}
	}
	geo.ColWidths = make([]float64, cols)
	geo.RowHeights = make([]float64, len(t.Rows))
	return &grid{Geometry: geo, explicit: make([]float64, cols), minimum: make([]float64, cols)}, nil
}

func (g *grid) computeColumns(avail float64, m CellMeasurer) error {
	// Explicit widths and content minima from single-column cells.
	for _, p := range g.Placed {
		if p.Span.Cols != 1 {
			continue
		}
		c := p.Ref.Col
		if p.Cell.Width > g.explicit[c] {
			g.explicit[c] = p.Cell.Width
		}
		minW, err := m.MinContentWidth(p.Cell)
		if err != nil {
			return err
		}
		minW += p.Cell.Padding.Left + p.Cell.Padding.Right
		if minW > g.minimum[c] {
			g.minimum[c] = minW
		}
	}

	// A merged cell's requirement folds into the minima of the auto columns
	// it covers, so the overflow check below sees span minima too. When every
	// covered column is fixed the deficit still counts toward the total.
	var spanExtra float64
	for _, p := range g.Placed {
		if p.Span.Cols == 1 {
			continue
		}
		needed := p.Cell.Width
		minW, err := m.MinContentWidth(p.Cell)
		if err != nil {
			return err
		}
		minW += p.Cell.Padding.Left + p.Cell.Padding.Right
		if minW > needed {
			needed = minW
		}
		var have float64
		targets := make([]int, 0, p.Span.Cols)
		for c := p.Ref.Col; c < p.Ref.Col+p.Span.Cols && c < len(g.ColWidths); c++ {
			if g.explicit[c] > 0 {
				have += g.explicit[c]
			} else {
				have += g.minimum[c]
				targets = append(targets, c)
			}
		}
		if needed <= have {
			continue
		}
		deficit := needed - have
		if len(targets) == 0 {
			spanExtra += deficit
			continue
		}
		per := deficit / float64(len(targets))
		for _, c := range targets {
			g.minimum[c] += per
		}
	}

	required := spanExtra
	for c := range g.ColWidths {
		if g.explicit[c] > 0 {
			required += g.explicit[c]
		} else {
			required += g.minimum[c]
		}
	}
	if required > avail {
		return &OverflowError{Required: required, Available: avail}
	}

	// Fixed columns keep their explicit width; the rest of the available
	// width is split evenly among auto columns, lifting each to its
	// content minimum.
	var fixedSum float64
	auto := make([]int, 0, len(g.ColWidths))
	for c := range g.ColWidths {
		if g.explicit[c] > 0 {
			g.ColWidths[c] = g.explicit[c]
			fixedSum += g.explicit[c]
		} else {
			auto = append(auto, c)
		}
	}
	distributeEven(g.ColWidths, auto, avail-fixedSum, g.minimum)

	// Spans folded into auto minima above are satisfied by distributeEven;
	// a span covering only fixed columns still needs widening here, with the
	// overshoot reclaimed from unrelated auto columns.
	for _, p := range g.Placed {
		if p.Span.Cols == 1 {
			continue
		}
		needed := p.Cell.Width
		minW, err := m.MinContentWidth(p.Cell)
		if err != nil {
			return err
		}
		minW += p.Cell.Padding.Left + p.Cell.Padding.Right
		if minW > needed {
			needed = minW
		}
		current := g.SpanWidth(p)
		if current >= needed {
			continue
		}
		g.widenSpan(p, needed-current, avail)
	}
	return nil
}

// distributeEven splits total evenly across the given columns, lifting any
// column below its minimum and re-splitting the remainder.
func distributeEven(widths []float64, cols []int, total float64, minimum []float64) {
	if len(cols) == 0 {
		return
	}
	remaining := total
	open := append([]int(nil), cols...)
	for len(open) > 0 {
		share := remaining / float64(len(open))
		next := open[:0]
		lifted := false
		for _, c := range open {
			if minimum[c] > share {
				widths[c] = minimum[c]
				remaining -= minimum[c]
				lifted = true
			} else {
				next = append(next, c)
			}
		}
		open = next
		if !lifted {
			for _, c := range open {
				widths[c] = share
			}
			return
		}
	}
}

// widenSpan grows the auto columns covered by p, reclaiming width from
// uncovered auto columns so the table never exceeds the available width.
func (g *grid) widenSpan(p PlacedCell, deficit, avail float64) {
	covered := make(map[int]bool, p.Span.Cols)
	grow := make([]int, 0, p.Span.Cols)
	for c := p.Ref.Col; c < p.Ref.Col+p.Span.Cols && c < len(g.ColWidths); c++ {
		covered[c] = true
		if g.explicit[c] == 0 {
			grow = append(grow, c)
		}
	}
	if len(grow) == 0 {
		// All covered columns are fixed; grow them all equally.
		for c := p.Ref.Col; c < p.Ref.Col+p.Span.Cols && c < len(g.ColWidths); c++ {
			grow = append(grow, c)
		}
	}
	per := deficit / float64(len(grow))
	for _, c := range grow {
		g.ColWidths[c] += per
	}

	// Reclaim the overshoot from uncovered auto columns, never below
	// their minima.
	excess := g.Width() - avail
	for c := range g.ColWidths {
		if excess <= 0 {
			break
		}
		if covered[c] || g.explicit[c] > 0 {
			continue
		}
		slack := g.ColWidths[c] - g.minimum[c]
		if slack <= 0 {
			continue
		}
		take := min(slack, excess)
		g.ColWidths[c] -= take
		excess -= take
	}
}

func (g *grid) computeRows(t *model.Table, m CellMeasurer) error {
	// Plain rows first; a row containing a row-span origin does not drive
	// height until the span's terminal row.
	contentOnly := make([]float64, len(g.RowHeights))
	for _, p := range g.Placed {
		if p.Span.Rows != 1 {
			continue
		}
		h, err := g.cellHeight(p, m)
		if err != nil {
			return err
		}
		r := p.Ref.Row
		if h > g.RowHeights[r] {
			g.RowHeights[r] = h
		}
		if h > contentOnly[r] {
			contentOnly[r] = h
		}
	}
	for r := range t.Rows {
		if t.Rows[r].ExactHeight > 0 {
			g.RowHeights[r] = t.Rows[r].ExactHeight
		}
	}

	// Row spans: at the terminal row, distribute any missing height across
	// the covered rows proportionally to their content-only heights.
	for _, p := range g.Placed {
		if p.Span.Rows == 1 {
			continue
		}
		needed, err := g.cellHeight(p, m)
		if err != nil {
			return err
		}
		have := g.RowsHeight(p.Ref.Row, p.Ref.Row+p.Span.Rows)
		if have >= needed {
			continue
		}
		deficit := needed - have
		var weight float64
		for r := p.Ref.Row; r < p.Ref.Row+p.Span.Rows; r++ {
			weight += contentOnly[r]
		}
		for r := p.Ref.Row; r < p.Ref.Row+p.Span.Rows; r++ {
			if weight > 0 {
				g.RowHeights[r] += deficit * contentOnly[r] / weight
			} else {
				g.RowHeights[r] += deficit / float64(p.Span.Rows)
			}
		}
	}
	return nil
}

func (g *grid) cellHeight(p PlacedCell, m CellMeasurer) (float64, error) {
	width := g.SpanWidth(p) - p.Cell.Padding.Left - p.Cell.Padding.Right
	if width < 0 {
		width = 0
	}
	h, err := m.ContentHeight(p.Cell, width)
	if err != nil {
		return 0, err
	}
	return h + p.Cell.Padding.Top + p.Cell.Padding.Bottom, nil
}
