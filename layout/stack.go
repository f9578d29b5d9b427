package layout

import (
	"strconv"

	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/linebreak"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/tablegrid"
)

// fieldSubst substitutes page-number fields into run text. The page count is
// the dry-run hint; on the dry-run pass itself it falls back to the current
// page number so both passes measure stable text.
type fieldSubst struct {
	page  int
	count int
}

func (s fieldSubst) apply(runs []model.Run) []model.Run {
	out := make([]model.Run, len(runs))
	copy(out, runs)
	for i := range out {
		r := &out[i]
		switch r.Field {
		case model.FieldPageNumber:
			r.Text = strconv.Itoa(s.page)
		case model.FieldPageCount:
			n := s.count
			if n <= 0 {
				n = s.page
			}
			r.Text = strconv.Itoa(n)
		}
		if r.Footnote != nil && r.Text == "" {
			r.Text = r.Footnote.Marker
		}
	}
	return out
}

// measuredPara is one paragraph broken into lines, with per-line advance
// heights and x offsets resolved but no page position yet.
type measuredPara struct {
	style    *model.BlockStyle
	sourceID string
	runs     []model.Run
	lines    []linebreak.Line
	advances []float64 // line-spacing-adjusted heights
	xs       []float64 // per-line x offset from the container's left edge
	x        float64   // frame x offset from the container's left edge
	width    float64   // frame width
	total    float64   // sum of advances
}

func measureParagraph(m *measurer, sub fieldSubst, para *model.Paragraph, availW float64) (*measuredPara, error) {
	st := para.Style()
	width := availW - st.LeftIndent - st.RightIndent
	if width < 0 {
		width = 0
	}
	runs := sub.apply(para.Runs)
	lines, err := linebreak.Break(runs, linebreak.Options{
		Width:       width,
		FirstIndent: st.FirstLineIndent,
		HangIndent:  st.HangingIndent,
		Align:       st.Alignment,
	}, m)
	if err != nil {
		return nil, err
	}

	mp := &measuredPara{
		style:    st,
		sourceID: para.SourceID,
		runs:     runs,
		lines:    lines,
		x:        st.LeftIndent,
		width:    width,
	}
	if len(lines) == 0 {
		// An empty paragraph still occupies one line.
		style := defaultRunStyle(runs)
		asc, desc, err := m.LineMetrics(style)
		if err != nil {
			return nil, err
		}
		adv := lineAdvance(st.LineSpacing, asc+desc)
		mp.advances = []float64{adv}
		mp.xs = []float64{st.LeftIndent + st.FirstLineIndent}
		mp.lines = []linebreak.Line{{Ascent: asc, Height: asc + desc, Last: true}}
		mp.total = adv
		return mp, nil
	}
	for i, l := range lines {
		adv := lineAdvance(st.LineSpacing, l.Height)
		mp.advances = append(mp.advances, adv)
		indent := st.HangingIndent
		if i == 0 {
			indent = st.FirstLineIndent
		}
		mp.xs = append(mp.xs, st.LeftIndent+indent+l.Offset)
		mp.total += adv
	}
	return mp, nil
}

func defaultRunStyle(runs []model.Run) model.RunStyle {
	for _, r := range runs {
		if r.Text != "" || r.Image == nil {
			return r.Style
		}
	}
	return model.RunStyle{}
}

// emit builds the layout block for lines [from, to) with the block's top
// edge at y. originX is the container's left edge in content coordinates.
func (mp *measuredPara) emit(originX, y float64, from, to int, seq *int) *LayoutBlock {
	lb := &LayoutBlock{
		Type:     TypeParagraph,
		SourceID: mp.sourceID,
		Seq:      *seq,
		Style:    mp.style,
		Runs:     mp.runs,
	}
	*seq++
	cursor := y
	for i := from; i < to; i++ {
		adv := mp.advances[i]
		line := mp.lines[i]
		descent := line.Height - line.Ascent
		lb.Lines = append(lb.Lines, PlacedLine{
			Line:     line,
			X:        originX + mp.xs[i],
			Baseline: cursor + adv - descent,
		})
		cursor += adv
	}
	lb.Frame = geo.Rect{X: originX + mp.x, Y: y, W: mp.width, H: cursor - y}
	return lb
}

// cellMeasurer adapts the stacked layout to the table engine's sizing
// callback.
type cellMeasurer struct {
	m   *measurer
	sub fieldSubst
}

func (c cellMeasurer) MinContentWidth(cell *model.TableCell) (float64, error) {
	return c.m.MinContentWidth(cell)
}

func (c cellMeasurer) ContentHeight(cell *model.TableCell, width float64) (float64, error) {
	seq := 0
	_, h, err := layoutStack(c.m, c.sub, cell.Blocks, geo.Rect{W: width}, &seq)
	return h, err
}

// layoutStack lays out blocks stacked inside rect without pagination. It is
// the layout path for table cells, textboxes, footnotes and headers/footers.
// The returned height may exceed rect.H; the caller decides how to clip.
func layoutStack(m *measurer, sub fieldSubst, blocks []model.Block, rect geo.Rect, seq *int) ([]*LayoutBlock, float64, error) {
	var out []*LayoutBlock
	y := rect.Y
	for _, b := range blocks {
		st := b.Style()
		if len(out) > 0 {
			y += st.SpaceBefore
		}
		switch blk := b.(type) {
		case *model.Paragraph:
			mp, err := measureParagraph(m, sub, blk, rect.W)
			if err != nil {
				return nil, 0, err
			}
			lb := mp.emit(rect.X, y, 0, len(mp.lines), seq)
			out = append(out, lb)
			y = lb.Frame.Bottom()
		case *model.Image:
			w, h, err := m.ObjectSize(&model.InlineImage{Ref: blk.Ref, Width: blk.Width, Height: blk.Height})
			if err != nil {
				return nil, 0, err
			}
			w, h = fitWithin(w, h, rect.W, 0)
			lb := &LayoutBlock{
				Type:     TypeImage,
				SourceID: blk.SourceID,
				Seq:      *seq,
				Style:    st,
				ImageRef: blk.Ref,
				Frame:    geo.Rect{X: rect.X + alignOffset(st.Alignment, rect.W, w), Y: y, W: w, H: h},
			}
			*seq++
			out = append(out, lb)
			y += h
		case *model.Textbox:
			lb, err := buildTextbox(m, sub, blk, rect.X, y, rect.W, seq)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, lb)
			y = lb.Frame.Bottom()
		case *model.Table:
			g, err := tablegrid.Compute(blk, rect.W-st.LeftIndent-st.RightIndent, cellMeasurer{m, sub})
			if err != nil {
				return nil, 0, err
			}
			lb, err := buildTableSegment(m, sub, blk, g, segmentSpec{r0: 0, r1: g.Rows()}, rect.X+st.LeftIndent, y, seq)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, lb)
			y = lb.Frame.Bottom()
		}
		y += st.SpaceAfter
	}
	return out, y - rect.Y, nil
}

// buildTextbox lays out a textbox as one unsplittable unit at (x, y).
func buildTextbox(m *measurer, sub fieldSubst, tb *model.Textbox, x, y, availW float64, seq *int) (*LayoutBlock, error) {
	st := tb.Style()
	width := tb.Width
	if width <= 0 || width > availW {
		width = availW
	}
	inner := geo.Rect{X: x + alignOffset(st.Alignment, availW, width), Y: y, W: width}
	lb := &LayoutBlock{
		Type:     TypeTextbox,
		SourceID: tb.SourceID,
		Seq:      *seq,
		Style:    st,
	}
	*seq++
	children, h, err := layoutStack(m, sub, tb.Blocks, inner, seq)
	if err != nil {
		return nil, err
	}
	if tb.Height > 0 {
		h = tb.Height
	}
	lb.Children = children
	lb.Frame = geo.Rect{X: inner.X, Y: y, W: width, H: h}
	return lb, nil
}

// segmentSpec selects which grid rows one table segment shows. Continuation
// segments restate the leading header rows before their body rows.
type segmentSpec struct {
	headerRows int // leading rows restated before r0; 0 on the first segment
	r0, r1     int // body rows [r0, r1)
}

// buildTableSegment materializes one on-page slice of a table: cell boxes
// for every visible span origin plus the cells' laid-out content.
func buildTableSegment(m *measurer, sub fieldSubst, tbl *model.Table, g *tablegrid.Geometry, spec segmentSpec, x0, yTop float64, seq *int) (*LayoutBlock, error) {
	lb := &LayoutBlock{
		Type:     TypeTable,
		SourceID: tbl.SourceID,
		Seq:      *seq,
		Style:    tbl.Style(),
		Table: &TableContent{
			ColWidths: g.ColWidths,
			RowStart:  spec.r0,
			RowEnd:    spec.r1,
		},
	}
	*seq++

	// Map each visible grid row to its y offset within the segment.
	rowTop := make(map[int]float64)
	var h float64
	for r := 0; r < spec.headerRows; r++ {
		rowTop[r] = h
		h += g.RowHeights[r]
	}
	for r := spec.r0; r < spec.r1; r++ {
		rowTop[r] = h
		h += g.RowHeights[r]
	}

	for _, p := range g.Placed {
		top, visible := rowTop[p.Ref.Row]
		if !visible {
			continue
		}
		frame := geo.Rect{
			X: x0 + g.ColOffset(p.Ref.Col),
			Y: yTop + top,
			W: g.SpanWidth(p),
			H: g.SpanHeight(p),
		}
		lb.Table.Boxes = append(lb.Table.Boxes, CellBox{
			Frame:   frame,
			Borders: p.Cell.Borders,
			Shading: p.Cell.Shading,
		})
		inner := frame.Inset(p.Cell.Padding)
		children, _, err := layoutStack(m, sub, p.Cell.Blocks, inner, seq)
		if err != nil {
			return nil, err
		}
		lb.Children = append(lb.Children, children...)
	}
	lb.Frame = geo.Rect{X: x0, Y: yTop, W: g.Width(), H: h}
	return lb, nil
}

// fitWithin scales (w, h) down proportionally to fit the given bounds; a
// bound of 0 is unconstrained.
func fitWithin(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if maxW > 0 && w > maxW {
		h *= maxW / w
		w = maxW
	}
	if maxH > 0 && h > maxH {
		w *= maxH / h
		h = maxH
	}
	return w, h
}

func alignOffset(a model.Alignment, avail, used float64) float64 {
	slack := avail - used
	if slack <= 0 {
		return 0
	}
	switch a {
	case model.AlignCenter:
		return slack / 2
	case model.AlignRight:
		return slack
	}
	return 0
}
