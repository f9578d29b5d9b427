// Package layout paginates a document model into positioned pages. The
// pagination algorithm is a pure function of the document, the options and a
// page-count hint; the engine runs it twice — a dry-run pass to learn the
// final page count, then a final pass with that count available for
// page-count fields in headers and footers.
package layout

import (
	"context"
	"fmt"
	"time"

	"github.com/wudi/docpress/decor"
	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/linebreak"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/observability"
)

// Options is the engine's only configuration surface.
type Options struct {
	PageSize      geo.Size
	Margins       geo.Margins
	DefaultFamily string
	DefaultSize   float64
	Fallback      []string // font families tried when a run's family fails
}

func (o Options) withDefaults() Options {
	if o.PageSize.W <= 0 || o.PageSize.H <= 0 {
		o.PageSize = geo.A4
	}
	if o.Margins == (geo.Margins{}) {
		in := geo.FromInch(1)
		o.Margins = geo.Margins{Top: in, Bottom: in, Left: in, Right: in}
	}
	if o.DefaultFamily == "" {
		o.DefaultFamily = "Helvetica"
	}
	if o.DefaultSize <= 0 {
		o.DefaultSize = 11
	}
	if len(o.Fallback) == 0 {
		o.Fallback = []string{"Helvetica"}
	}
	return o
}

// BlockType discriminates the positioned block variants.
type BlockType int

const (
	TypeParagraph BlockType = iota
	TypeTable
	TypeImage
	TypeTextbox
	// TypePlaceholder replaces a block whose measurement failed even with
	// the fallback font.
	TypePlaceholder
)

// PlacedLine is one line positioned on a page. X is the line's left edge and
// Baseline the text baseline, both in content-area coordinates.
type PlacedLine struct {
	linebreak.Line
	X        float64
	Baseline float64
}

// CellBox is the painted box of one visible table cell.
type CellBox struct {
	Frame   geo.Rect
	Borders model.Borders
	Shading model.Shading
}

// TableContent is the per-segment table payload of a layout block. A table
// split across pages yields one segment per page; continuation segments
// restate the header rows.
type TableContent struct {
	ColWidths []float64
	RowStart  int // first body row of the segment
	RowEnd    int // one past the last body row
	Boxes     []CellBox
}

// LayoutBlock is one positioned block on one page. A block split across
// pages yields one LayoutBlock per page, sharing SourceID.
type LayoutBlock struct {
	Frame    geo.Rect
	Type     BlockType
	SourceID string
	Seq      int
	Style    *model.BlockStyle

	// Paragraph payload. Lines reference Runs by index.
	Runs  []model.Run
	Lines []PlacedLine

	// Table payload.
	Table *TableContent

	// Image payload.
	ImageRef string

	// Nested content: table cell blocks and textbox blocks, with absolute
	// frames.
	Children []*LayoutBlock
}

// LayoutPage is one finished page. Block frames use the content area's
// top-left corner as origin; header and footer frames extend into the
// margins with negative or past-the-content y values.
type LayoutPage struct {
	Number    int
	Size      geo.Size
	Margins   geo.Margins
	Blocks    []*LayoutBlock
	Header    []*LayoutBlock
	Footer    []*LayoutBlock
	Footnotes []*LayoutBlock
	Decor     decor.Result
}

// UnifiedLayout is the ordered page sequence of one pagination pass.
type UnifiedLayout struct {
	Pages []*LayoutPage
}

// PageCount returns the number of pages.
func (u *UnifiedLayout) PageCount() int { return len(u.Pages) }

// MeasurementError reports that a block could not be measured, typically
// because no font resolves even through the fallback chain. The engine
// recovers from it by placing a fixed-height placeholder.
type MeasurementError struct {
	SourceID string
	Err      error
}

func (e *MeasurementError) Error() string {
	return fmt.Sprintf("layout: cannot measure block %q: %v", e.SourceID, e.Err)
}

func (e *MeasurementError) Unwrap() error { return e.Err }

// Engine drives pagination against shared font and image caches.
type Engine struct {
	fonts  *fonts.Provider
	images *images.Cache
	log    observability.Logger
	tracer observability.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l observability.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithTracer sets the engine's tracer.
func WithTracer(t observability.Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine returns an engine using the given caches.
func NewEngine(f *fonts.Provider, img *images.Cache, opts ...EngineOption) *Engine {
	e := &Engine{
		fonts:  f,
		images: img,
		log:    observability.NopLogger{},
		tracer: observability.NopTracer(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Paginate runs one pagination pass. It is deterministic for a given
// document, options and hint; the hint supplies the value of page-count
// fields and is 0 on the dry-run pass.
func (e *Engine) Paginate(doc *model.Document, opts Options, hint int) (*UnifiedLayout, error) {
	opts = opts.withDefaults()
	p := newPaginator(e, opts, hint)
	return p.run(doc)
}

// Render performs the two-pass layout: a dry-run pass to learn the page
// count, a cache freeze, then the final pass. Both passes execute the same
// algorithm, so their page boundaries are identical.
func (e *Engine) Render(ctx context.Context, doc *model.Document, opts Options) (*UnifiedLayout, error) {
	start := time.Now()

	_, span := e.tracer.StartSpan(ctx, "layout.dry_run")
	dry, err := e.Paginate(doc, opts, 0)
	if err != nil {
		span.SetError(err)
		span.Finish()
		return nil, err
	}
	span.SetTag("pages", dry.PageCount())
	span.Finish()

	// The dry-run pass warmed every font and image the document touches;
	// freeze the caches so the final pass (and any parallel consumer of
	// the layout) reads them without mutation.
	e.fonts.Freeze()
	e.images.Freeze()

	_, span = e.tracer.StartSpan(ctx, "layout.final")
	final, err := e.Paginate(doc, opts, dry.PageCount())
	if err != nil {
		span.SetError(err)
		span.Finish()
		return nil, err
	}
	span.Finish()

	if dry.PageCount() != final.PageCount() {
		return nil, fmt.Errorf("layout: dry-run produced %d pages but final pass produced %d", dry.PageCount(), final.PageCount())
	}

	blocks := 0
	for _, pg := range final.Pages {
		blocks += len(pg.Blocks)
	}
	e.log.Info("layout complete",
		observability.Int(observability.MetricPageCount, final.PageCount()),
		observability.Int(observability.MetricBlockCount, blocks),
		observability.Float64(observability.MetricLayoutTime, time.Since(start).Seconds()),
	)
	return final, nil
}
