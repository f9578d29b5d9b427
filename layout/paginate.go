package layout

import (
	"errors"

	"github.com/wudi/docpress/decor"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/observability"
	"github.com/wudi/docpress/tablegrid"
)

// fitEps absorbs floating-point noise in fit comparisons.
const fitEps = 1e-6

// footnoteSepGap is the vertical space reserved for the separator rule above
// the first footnote of a page.
const footnoteSepGap = 8.0

// placeholderHeight is the fixed height of a block that failed measurement.
const placeholderHeight = 14.0

var placeholderStyle = &model.BlockStyle{
	Borders: model.Borders{
		Top:    model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
		Bottom: model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
		Left:   model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
		Right:  model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
	},
	Shading: model.Shading{Set: true, Fill: model.Color{R: 0.93, G: 0.93, B: 0.93}},
}

type pendingFootnote struct {
	blocks []model.Block
	height float64
}

// paginator runs one pagination pass. All cursor positions are in content
// coordinates: y grows downward from the top of the page's content area.
// Each page moves through three phases in turn: blocks are placed until one
// no longer fits, the page boundary is resolved (keep-with-next pull-back),
// and finishPage flushes the footnote queue before the next page starts.
type paginator struct {
	eng     *Engine
	opts    Options
	m       *measurer
	hint    int
	doc     *model.Document
	content geo.Rect // {0, 0, contentW, contentH}

	layout    *UnifiedLayout
	cur       *LayoutPage
	y         float64
	footnotes []pendingFootnote
	footnoteH float64
	seq       int
}

func newPaginator(e *Engine, opts Options, hint int) *paginator {
	area := geo.ContentArea(opts.PageSize, opts.Margins)
	return &paginator{
		eng:     e,
		opts:    opts,
		m:       newMeasurer(e, opts),
		hint:    hint,
		content: geo.Rect{W: area.W, H: area.H},
		layout:  &UnifiedLayout{},
	}
}

func (p *paginator) run(doc *model.Document) (*UnifiedLayout, error) {
	p.doc = doc
	p.startPage()
	for _, b := range doc.Blocks {
		if err := p.placeBlock(b); err != nil {
			return nil, err
		}
	}
	p.finishPage()
	return p.layout, nil
}

func (p *paginator) sub() fieldSubst {
	return fieldSubst{page: p.cur.Number, count: p.hint}
}

// avail returns the content height still open on the current page, after the
// space reserved for enqueued footnotes.
func (p *paginator) avail() float64 {
	return p.content.H - p.y - p.footnoteH
}

func (p *paginator) pageEmpty() bool {
	return len(p.cur.Blocks) == 0
}

func (p *paginator) startPage() {
	p.cur = &LayoutPage{
		Number:  len(p.layout.Pages) + 1,
		Size:    p.opts.PageSize,
		Margins: p.opts.Margins,
	}
	p.y = 0
	p.footnotes = nil
	p.footnoteH = 0

	if p.doc.Header != nil {
		rect := geo.Rect{X: 0, Y: -p.opts.Margins.Top * 0.75, W: p.content.W}
		blocks, _, err := layoutStack(p.m, p.sub(), p.doc.Header.Blocks, rect, &p.seq)
		if err != nil {
			p.eng.log.Warn("header skipped", observability.Error("error", err))
		} else {
			p.cur.Header = blocks
		}
	}
	if p.doc.Footer != nil {
		rect := geo.Rect{X: 0, Y: p.content.H + p.opts.Margins.Bottom*0.25, W: p.content.W}
		blocks, _, err := layoutStack(p.m, p.sub(), p.doc.Footer.Blocks, rect, &p.seq)
		if err != nil {
			p.eng.log.Warn("footer skipped", observability.Error("error", err))
		} else {
			p.cur.Footer = blocks
		}
	}
}

// finishPage flushes the page's footnote queue to the bottom of the content
// area, resolves decorations and appends the page to the layout.
func (p *paginator) finishPage() {
	var sepY float64
	if len(p.footnotes) > 0 {
		sepY = p.content.H - p.footnoteH
		y := sepY + footnoteSepGap
		for _, fn := range p.footnotes {
			blocks, h, err := layoutStack(p.m, p.sub(), fn.blocks, geo.Rect{X: 0, Y: y, W: p.content.W}, &p.seq)
			if err != nil {
				p.eng.log.Warn("footnote skipped", observability.Error("error", err))
				continue
			}
			p.cur.Footnotes = append(p.cur.Footnotes, blocks...)
			y += h
		}
	}

	res := collectDecor(p.cur.Blocks)
	appendDecor(&res, collectDecor(p.cur.Header))
	appendDecor(&res, collectDecor(p.cur.Footer))
	appendDecor(&res, collectDecor(p.cur.Footnotes))
	if len(p.cur.Footnotes) > 0 {
		res.Strokes = append(res.Strokes, decor.Stroke{
			Rect: geo.Rect{X: 0, Y: sepY, W: p.content.W / 3},
			Borders: model.Borders{
				Top: model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
			},
		})
	}
	p.cur.Decor = res
	p.layout.Pages = append(p.layout.Pages, p.cur)
}

func (p *paginator) breakPage() {
	p.finishPage()
	p.startPage()
}

// breakPagePulling breaks the page, first pulling any trailing run of
// keep-with-next blocks forward so they land on the same page as the block
// that triggered the break. A page consisting entirely of keep-with-next
// blocks is left intact to guarantee progress.
func (p *paginator) breakPagePulling() {
	n := len(p.cur.Blocks)
	pull := 0
	for pull < n {
		st := p.cur.Blocks[n-1-pull].Style
		if st == nil || !st.KeepWithNext {
			break
		}
		pull++
	}
	if pull == 0 || pull == n {
		p.breakPage()
		return
	}
	moved := p.cur.Blocks[n-pull:]
	p.cur.Blocks = p.cur.Blocks[:n-pull]
	p.breakPage()
	dy := p.y - moved[0].Frame.Y
	for _, lb := range moved {
		translateBlock(lb, dy)
		p.cur.Blocks = append(p.cur.Blocks, lb)
	}
	last := moved[len(moved)-1]
	p.y = last.Frame.Bottom()
	if last.Style != nil {
		p.y += last.Style.SpaceAfter
	}
}

func translateBlock(lb *LayoutBlock, dy float64) {
	lb.Frame.Y += dy
	for i := range lb.Lines {
		lb.Lines[i].Baseline += dy
	}
	if lb.Table != nil {
		for i := range lb.Table.Boxes {
			lb.Table.Boxes[i].Frame.Y += dy
		}
	}
	for _, c := range lb.Children {
		translateBlock(c, dy)
	}
}

func (p *paginator) placeBlock(b model.Block) error {
	if b.Style().PageBreakBefore && !p.pageEmpty() {
		p.breakPage()
	}
	var err error
	switch blk := b.(type) {
	case *model.Paragraph:
		err = p.placeParagraph(blk)
	case *model.Table:
		err = p.placeTable(blk)
	case *model.Image:
		err = p.placeImage(blk)
	case *model.Textbox:
		err = p.placeTextbox(blk)
	default:
		return nil
	}
	var merr *MeasurementError
	if errors.As(err, &merr) {
		p.eng.log.Warn("block replaced with placeholder",
			observability.String("source_id", b.ID()),
			observability.Error("error", merr),
		)
		p.placePlaceholder(b)
		return nil
	}
	return err
}

func (p *paginator) placeParagraph(para *model.Paragraph) error {
	mp, err := measureParagraph(p.m, p.sub(), para, p.content.W)
	if err != nil {
		return err
	}
	fns, fnH, err := p.measureFootnotes(para)
	if err != nil {
		return err
	}
	st := mp.style
	var sb float64
	if !p.pageEmpty() {
		sb = st.SpaceBefore
	}
	reserve := fnH
	if len(fns) > 0 && len(p.footnotes) == 0 {
		reserve += footnoteSepGap
	}

	if sb+mp.total+reserve <= p.avail()+fitEps {
		p.y += sb
		lb := mp.emit(0, p.y, 0, len(mp.lines), &p.seq)
		p.cur.Blocks = append(p.cur.Blocks, lb)
		p.y = lb.Frame.Bottom() + st.SpaceAfter
		p.enqueueFootnotes(fns)
		return nil
	}

	// The paragraph does not fit whole. Count the lines that do.
	budget := p.avail() - sb - reserve
	k, used := 0, 0.0
	for _, adv := range mp.advances {
		if used+adv > budget+fitEps {
			break
		}
		used += adv
		k++
	}

	deferWhole := st.KeepTogether || k < 2
	if !deferWhole && len(mp.lines)-k == 1 {
		// Never push a single widow line alone to the next page.
		k--
		if k < 2 {
			deferWhole = true
		}
	}
	if deferWhole {
		if !p.pageEmpty() || p.footnoteH > 0 {
			p.breakPagePulling()
			return p.placeParagraph(para)
		}
		// The page is already empty: the paragraph is taller than a full
		// page and must split after all.
		if k == 0 {
			k = 1
		}
	}

	p.y += sb
	lb := mp.emit(0, p.y, 0, k, &p.seq)
	p.cur.Blocks = append(p.cur.Blocks, lb)
	p.y = lb.Frame.Bottom()
	p.enqueueFootnotes(fns)

	for from := k; from < len(mp.lines); {
		p.breakPage()
		budget := p.avail()
		n, used := 0, 0.0
		for i := from; i < len(mp.lines); i++ {
			if used+mp.advances[i] > budget+fitEps {
				break
			}
			used += mp.advances[i]
			n++
		}
		if n == 0 {
			n = 1
		}
		if rest := len(mp.lines) - (from + n); rest == 1 && n > 1 {
			n--
		}
		lb := mp.emit(0, p.y, from, from+n, &p.seq)
		p.cur.Blocks = append(p.cur.Blocks, lb)
		p.y = lb.Frame.Bottom()
		from += n
	}
	p.y += st.SpaceAfter
	return nil
}

// measureFootnotes collects and pre-measures the footnote bodies referenced
// by a paragraph, so their heights can be reserved before the paragraph's
// own fit check.
func (p *paginator) measureFootnotes(para *model.Paragraph) ([]pendingFootnote, float64, error) {
	var fns []pendingFootnote
	var total float64
	for _, run := range para.Runs {
		if run.Footnote == nil || len(run.Footnote.Blocks) == 0 {
			continue
		}
		blocks := footnoteBlocks(run.Footnote)
		scratch := 0
		_, h, err := layoutStack(p.m, p.sub(), blocks, geo.Rect{W: p.content.W}, &scratch)
		if err != nil {
			return nil, 0, err
		}
		fns = append(fns, pendingFootnote{blocks: blocks, height: h})
		total += h
	}
	return fns, total, nil
}

func (p *paginator) enqueueFootnotes(fns []pendingFootnote) {
	for _, fn := range fns {
		if len(p.footnotes) == 0 {
			p.footnoteH += footnoteSepGap
		}
		p.footnotes = append(p.footnotes, fn)
		p.footnoteH += fn.height
	}
}

// footnoteBlocks returns a footnote body with its marker prepended to the
// first paragraph.
func footnoteBlocks(fn *model.Footnote) []model.Block {
	blocks := make([]model.Block, len(fn.Blocks))
	copy(blocks, fn.Blocks)
	if fn.Marker == "" {
		return blocks
	}
	if first, ok := blocks[0].(*model.Paragraph); ok {
		cp := *first
		style := defaultRunStyle(first.Runs)
		cp.Runs = append([]model.Run{{Text: fn.Marker + " ", Style: style}}, first.Runs...)
		blocks[0] = &cp
	}
	return blocks
}

func (p *paginator) placeTable(tbl *model.Table) error {
	st := tbl.Style()
	availW := p.content.W - st.LeftIndent - st.RightIndent
	g, err := tablegrid.Compute(tbl, availW, cellMeasurer{p.m, p.sub()})
	if err != nil {
		return err
	}
	if g.Rows() == 0 {
		return nil
	}
	headerRows := 0
	for headerRows < len(tbl.Rows) && tbl.Rows[headerRows].RepeatAsHeader {
		headerRows++
	}

	r := 0
	first := true
	for r < g.Rows() {
		var sb float64
		if first && !p.pageEmpty() {
			sb = st.SpaceBefore
		}
		hdr := 0
		if !first {
			hdr = min(headerRows, r)
		}
		budget := p.avail() - sb - g.RowsHeight(0, hdr)

		end := r
		var used float64
		for end < g.Rows() && used+g.RowHeights[end] <= budget+fitEps {
			used += g.RowHeights[end]
			end++
		}
		if end == r {
			if p.pageEmpty() && p.footnoteH == 0 {
				// A single row taller than the page overflows rather
				// than being clipped.
				end = r + 1
			} else if first {
				p.breakPagePulling()
				continue
			} else {
				p.breakPage()
				continue
			}
		}

		p.y += sb
		lb, err := buildTableSegment(p.m, p.sub(), tbl, g, segmentSpec{headerRows: hdr, r0: r, r1: end}, st.LeftIndent, p.y, &p.seq)
		if err != nil {
			return err
		}
		p.cur.Blocks = append(p.cur.Blocks, lb)
		p.y = lb.Frame.Bottom()
		r = end
		first = false
		if r < g.Rows() {
			p.breakPage()
		}
	}
	p.y += st.SpaceAfter
	return nil
}

func (p *paginator) placeImage(img *model.Image) error {
	w, h, err := p.m.ObjectSize(&model.InlineImage{Ref: img.Ref, Width: img.Width, Height: img.Height})
	if err != nil {
		return err
	}
	st := img.Style()
	availW := p.content.W - st.LeftIndent - st.RightIndent
	w, h = fitWithin(w, h, availW, p.content.H)

	var sb float64
	if !p.pageEmpty() {
		sb = st.SpaceBefore
	}
	if sb+h > p.avail()+fitEps && (!p.pageEmpty() || p.footnoteH > 0) {
		p.breakPagePulling()
		return p.placeImage(img)
	}
	p.y += sb
	lb := &LayoutBlock{
		Type:     TypeImage,
		SourceID: img.SourceID,
		Seq:      p.seq,
		Style:    st,
		ImageRef: img.Ref,
		Frame:    geo.Rect{X: st.LeftIndent + alignOffset(st.Alignment, availW, w), Y: p.y, W: w, H: h},
	}
	p.seq++
	p.cur.Blocks = append(p.cur.Blocks, lb)
	p.y += h + st.SpaceAfter
	return nil
}

func (p *paginator) placeTextbox(tb *model.Textbox) error {
	st := tb.Style()
	// Probe the height first; textboxes place as one unsplittable unit.
	scratch := 0
	probe, err := buildTextbox(p.m, p.sub(), tb, 0, 0, p.content.W, &scratch)
	if err != nil {
		return err
	}
	var sb float64
	if !p.pageEmpty() {
		sb = st.SpaceBefore
	}
	if sb+probe.Frame.H > p.avail()+fitEps && (!p.pageEmpty() || p.footnoteH > 0) {
		p.breakPagePulling()
		return p.placeTextbox(tb)
	}
	p.y += sb
	lb, err := buildTextbox(p.m, p.sub(), tb, 0, p.y, p.content.W, &p.seq)
	if err != nil {
		return err
	}
	p.cur.Blocks = append(p.cur.Blocks, lb)
	p.y = lb.Frame.Bottom() + st.SpaceAfter
	return nil
}

func (p *paginator) placePlaceholder(b model.Block) {
	if placeholderHeight > p.avail()+fitEps && !p.pageEmpty() {
		p.breakPage()
	}
	lb := &LayoutBlock{
		Type:     TypePlaceholder,
		SourceID: b.ID(),
		Seq:      p.seq,
		Style:    placeholderStyle,
		Frame:    geo.Rect{X: 0, Y: p.y, W: p.content.W, H: placeholderHeight},
	}
	p.seq++
	p.cur.Blocks = append(p.cur.Blocks, lb)
	p.y += placeholderHeight
}

// collectDecor resolves decorations for one sibling group and, recursively,
// for every block's nested children.
func collectDecor(blocks []*LayoutBlock) decor.Result {
	group := make([]decor.Block, 0, len(blocks))
	for _, lb := range blocks {
		if lb.Style == nil {
			continue
		}
		group = append(group, decor.Block{
			Frame:   lb.Frame,
			Borders: lb.Style.Borders,
			Shading: lb.Style.Shading,
			Shadow:  lb.Style.Shadow,
		})
	}
	res := decor.Resolve(group)
	for _, lb := range blocks {
		if len(lb.Children) > 0 {
			appendDecor(&res, collectDecor(lb.Children))
		}
	}
	return res
}

func appendDecor(dst *decor.Result, src decor.Result) {
	dst.Shadows = append(dst.Shadows, src.Shadows...)
	dst.Fills = append(dst.Fills, src.Fills...)
	dst.Strokes = append(dst.Strokes, src.Strokes...)
}
