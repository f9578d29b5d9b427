package writer

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wudi/docpress/decor"
	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/layout"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/pdfobj"
)

// linkAnnot is one link annotation collected while emitting text, with its
// rectangle already in PDF coordinates.
type linkAnnot struct {
	rect [4]float64 // llx, lly, urx, ury
	uri  string
}

// pageWriter emits the content stream of one page. Layout coordinates have
// their origin at the top-left of the content area with y growing downward;
// PDF coordinates grow upward from the page's bottom-left corner.
type pageWriter struct {
	w    *Writer
	res  *resources
	page *layout.LayoutPage
	buf  bytes.Buffer

	annots []linkAnnot

	// Resources this page references, in first-use order; the page's
	// resource dictionary lists only these.
	fonts  []*fontRes
	images []*imageRes

	curFont  string
	curSize  float64
	curColor model.Color
	colorSet bool
}

func (p *pageWriter) useFont(face *fonts.Face) *fontRes {
	fr := p.res.font(face)
	for _, f := range p.fonts {
		if f == fr {
			return fr
		}
	}
	p.fonts = append(p.fonts, fr)
	return fr
}

func (p *pageWriter) useImage(raster *images.Raster) *imageRes {
	ir := p.res.image(raster)
	for _, img := range p.images {
		if img == ir {
			return ir
		}
	}
	p.images = append(p.images, ir)
	return ir
}

func fnum(v float64) string { return pdfobj.FormatReal(v) }

func (p *pageWriter) cx(x float64) float64 { return p.page.Margins.Left + x }
func (p *pageWriter) cy(y float64) float64 { return p.page.Size.H - p.page.Margins.Top - y }

func (p *pageWriter) opf(format string, args ...interface{}) {
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *pageWriter) build() ([]byte, []linkAnnot, error) {
	p.emitDecor(p.page.Decor)
	for _, group := range [][]*layout.LayoutBlock{p.page.Header, p.page.Blocks, p.page.Footnotes, p.page.Footer} {
		for _, lb := range group {
			if err := p.block(lb); err != nil {
				return nil, nil, err
			}
		}
	}
	return p.buf.Bytes(), p.annots, nil
}

func (p *pageWriter) block(lb *layout.LayoutBlock) error {
	switch lb.Type {
	case layout.TypeParagraph:
		if err := p.paragraph(lb); err != nil {
			return err
		}
	case layout.TypeImage:
		if err := p.imageBlock(lb); err != nil {
			return err
		}
	case layout.TypeTable:
		p.cellBoxes(lb.Table)
	case layout.TypeTextbox, layout.TypePlaceholder:
		// Frame decoration is painted via the page's decor; only the
		// children carry content.
	}
	for _, c := range lb.Children {
		if err := p.block(c); err != nil {
			return err
		}
	}
	return nil
}

func (p *pageWriter) emitDecor(d decor.Result) {
	for _, s := range d.Shadows {
		p.fillRect(s.Rect, s.Color)
	}
	for _, f := range d.Fills {
		p.fillRect(f.Rect, f.Color)
	}
	for _, s := range d.Strokes {
		p.strokeBorders(s.Rect, s.Borders)
	}
}

func (p *pageWriter) cellBoxes(tc *layout.TableContent) {
	for _, box := range tc.Boxes {
		if box.Shading.Set {
			p.fillRect(box.Frame, box.Shading.Fill)
		}
	}
	for _, box := range tc.Boxes {
		p.strokeBorders(box.Frame, box.Borders)
	}
}

func (p *pageWriter) fillRect(r geo.Rect, c model.Color) {
	if r.IsEmpty() {
		return
	}
	p.opf("%s %s %s rg", fnum(c.R), fnum(c.G), fnum(c.B))
	p.opf("%s %s %s %s re f", fnum(p.cx(r.X)), fnum(p.cy(r.Bottom())), fnum(r.W), fnum(r.H))
	p.colorSet = false
}

func (p *pageWriter) strokeBorders(r geo.Rect, b model.Borders) {
	if e := b.Top; !e.IsZero() {
		p.edge(e, r.X, r.Y, r.Right(), r.Y, 0, 1)
	}
	if e := b.Bottom; !e.IsZero() {
		p.edge(e, r.X, r.Bottom(), r.Right(), r.Bottom(), 0, -1)
	}
	if e := b.Left; !e.IsZero() {
		p.edge(e, r.X, r.Y, r.X, r.Bottom(), 1, 0)
	}
	if e := b.Right; !e.IsZero() {
		p.edge(e, r.Right(), r.Y, r.Right(), r.Bottom(), -1, 0)
	}
}

// edge strokes one border edge. (inx, iny) points into the rectangle so a
// double border can offset its inner line.
func (p *pageWriter) edge(e model.BorderEdge, x1, y1, x2, y2, inx, iny float64) {
	p.opf("q")
	p.opf("%s w", fnum(e.Width))
	p.opf("%s %s %s RG", fnum(e.Color.R), fnum(e.Color.G), fnum(e.Color.B))
	if e.Style == model.BorderDashed {
		p.opf("[3 2] 0 d")
	}
	p.line(x1, y1, x2, y2)
	if e.Style == model.BorderDouble {
		off := 2 * e.Width
		p.line(x1+inx*off, y1+iny*off, x2+inx*off, y2+iny*off)
	}
	p.opf("Q")
}

func (p *pageWriter) line(x1, y1, x2, y2 float64) {
	p.opf("%s %s m %s %s l S", fnum(p.cx(x1)), fnum(p.cy(y1)), fnum(p.cx(x2)), fnum(p.cy(y2)))
}

// textDeco is an underline or strikethrough rectangle deferred until the
// text object is closed.
type textDeco struct {
	rect  geo.Rect
	color model.Color
}

// objectDraw is an inline image deferred until the text object is closed.
type objectDraw struct {
	frame geo.Rect
	ref   string
}

func (p *pageWriter) paragraph(lb *layout.LayoutBlock) error {
	if len(lb.Lines) == 0 {
		return nil
	}
	var decos []textDeco
	var objects []objectDraw

	p.curFont = ""
	p.curSize = 0
	p.colorSet = false
	p.opf("BT")
	for _, line := range lb.Lines {
		p.opf("%s Tw", fnum(line.WordSpacing))
		for _, span := range line.Spans {
			run := lb.Runs[span.Run]
			x := line.X + span.X
			if span.Object {
				w, h, err := p.objectDims(run.Image, span.Width)
				if err != nil {
					return err
				}
				objects = append(objects, objectDraw{
					frame: geo.Rect{X: x, Y: line.Baseline - h, W: w, H: h},
					ref:   run.Image.Ref,
				})
				continue
			}
			if span.Text == "" {
				continue
			}
			face, size, err := p.face(run.Style)
			if err != nil {
				return err
			}
			fr := p.useFont(face)
			if fr.name != p.curFont || size != p.curSize {
				p.opf("/%s %s Tf", fr.name, fnum(size))
				p.curFont, p.curSize = fr.name, size
			}
			if !p.colorSet || run.Style.Color != p.curColor {
				c := run.Style.Color
				p.opf("%s %s %s rg", fnum(c.R), fnum(c.G), fnum(c.B))
				p.curColor, p.colorSet = c, true
			}
			p.opf("1 0 0 1 %s %s Tm", fnum(p.cx(x)), fnum(p.cy(line.Baseline)))
			p.buf.Write(pdfobj.Serialize(pdfobj.Str(encodeWinAnsi(span.Text))))
			p.buf.WriteString(" Tj\n")

			if run.Style.Link != "" && span.Width > 0 {
				descent := line.Height - line.Ascent
				p.annots = append(p.annots, linkAnnot{
					rect: [4]float64{
						p.cx(x), p.cy(line.Baseline + descent),
						p.cx(x + span.Width), p.cy(line.Baseline - line.Ascent),
					},
					uri: run.Style.Link,
				})
			}
			if span.Width > 0 {
				if run.Style.Underline {
					decos = append(decos, textDeco{
						rect:  geo.Rect{X: x, Y: line.Baseline + 0.08*size, W: span.Width, H: 0.05 * size},
						color: run.Style.Color,
					})
				}
				if run.Style.Strikethrough {
					decos = append(decos, textDeco{
						rect:  geo.Rect{X: x, Y: line.Baseline - 0.27*size, W: span.Width, H: 0.05 * size},
						color: run.Style.Color,
					})
				}
			}
		}
	}
	p.opf("ET")

	for _, d := range decos {
		p.fillRect(d.rect, d.color)
	}
	for _, o := range objects {
		if err := p.drawImage(o.ref, o.frame); err != nil {
			return err
		}
	}
	return nil
}

func (p *pageWriter) imageBlock(lb *layout.LayoutBlock) error {
	return p.drawImage(lb.ImageRef, lb.Frame)
}

func (p *pageWriter) drawImage(ref string, frame geo.Rect) error {
	raster, err := p.w.images.Get(ref)
	if err != nil {
		return &MalformedOutputError{Reason: fmt.Sprintf("image %q missing from cache", ref), Err: err}
	}
	ir := p.useImage(raster)
	p.opf("q %s 0 0 %s %s %s cm /%s Do Q",
		fnum(frame.W), fnum(frame.H), fnum(p.cx(frame.X)), fnum(p.cy(frame.Bottom())), ir.name)
	return nil
}

// objectDims resolves an inline image's display size; the placed width comes
// from the line breaker, the height falls back to the natural aspect ratio.
func (p *pageWriter) objectDims(img *model.InlineImage, placedW float64) (float64, float64, error) {
	if img == nil {
		return 0, 0, &MalformedOutputError{Reason: "object span without an inline image"}
	}
	if img.Height > 0 {
		return placedW, img.Height, nil
	}
	raster, err := p.w.images.Get(img.Ref)
	if err != nil {
		return 0, 0, &MalformedOutputError{Reason: fmt.Sprintf("inline image %q missing from cache", img.Ref), Err: err}
	}
	w, h := raster.PointSize()
	return placedW, h * placedW / w, nil
}

// face mirrors the layout engine's font resolution. A family that resolved
// during layout must resolve here too; failure is an internal invariant
// violation, not an input error.
func (p *pageWriter) face(style model.RunStyle) (*fonts.Face, float64, error) {
	family := style.Family
	if family == "" {
		family = p.w.cfg.DefaultFamily
	}
	size := style.Size
	if size <= 0 {
		size = p.w.cfg.DefaultSize
	}
	fstyle := fonts.Style{Bold: style.Bold, Italic: style.Italic}
	face, err := p.w.fonts.Resolve(family, fstyle)
	if err == nil {
		return face, size, nil
	}
	if errors.Is(err, fonts.ErrFontNotFound) {
		for _, fb := range p.w.cfg.Fallback {
			if face, ferr := p.w.fonts.Resolve(fb, fstyle); ferr == nil {
				return face, size, nil
			}
		}
	}
	return nil, 0, &MalformedOutputError{
		Reason: fmt.Sprintf("font %q reached the writer unresolved", family),
		Err:    err,
	}
}
