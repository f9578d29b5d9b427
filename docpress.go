// Package docpress renders document models to PDF. It wires the layout
// engine and the PDF writer over shared font and image caches; most callers
// only need NewRenderer, the caches' registration methods and Render.
package docpress

import (
	"bytes"
	"context"
	"io"

	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/layout"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/observability"
	"github.com/wudi/docpress/writer"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithPageSize sets the page size in points. The default is A4.
func WithPageSize(s geo.Size) Option {
	return func(r *Renderer) { r.opts.PageSize = s }
}

// WithMargins sets the page margins. The default is one inch on every side.
func WithMargins(m geo.Margins) Option {
	return func(r *Renderer) { r.opts.Margins = m }
}

// WithDefaultFont sets the font applied to runs that specify no family or
// size of their own.
func WithDefaultFont(family string, size float64) Option {
	return func(r *Renderer) {
		r.opts.DefaultFamily = family
		r.opts.DefaultSize = size
	}
}

// WithFallbackFonts sets the families tried, in order, when a run's family
// cannot be resolved.
func WithFallbackFonts(families ...string) Option {
	return func(r *Renderer) { r.opts.Fallback = families }
}

// WithCompression toggles Flate compression of page content streams. It is
// on by default; turning it off makes output inspectable with a text editor.
func WithCompression(on bool) Option {
	return func(r *Renderer) { r.compress = on }
}

// WithLogger sets the logger used by both layout and writing.
func WithLogger(l observability.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

// WithTracer sets the tracer used by the layout engine.
func WithTracer(t observability.Tracer) Option {
	return func(r *Renderer) { r.tracer = t }
}

// Renderer owns the caches shared between layout and writing. A renderer is
// single-use: Render freezes its caches, so register every font and image
// before calling it and build a new renderer for the next document.
type Renderer struct {
	fonts  *fonts.Provider
	images *images.Cache

	opts     layout.Options
	compress bool
	log      observability.Logger
	tracer   observability.Tracer
}

// NewRenderer returns a renderer with empty caches.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		fonts:    fonts.NewProvider(),
		images:   images.NewCache(),
		compress: true,
		log:      observability.NopLogger{},
		tracer:   observability.NopTracer(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Fonts exposes the font provider for registering font files.
func (r *Renderer) Fonts() *fonts.Provider { return r.fonts }

// Images exposes the image cache for registering document images.
func (r *Renderer) Images() *images.Cache { return r.images }

// Render lays out the document and writes it to w.
func (r *Renderer) Render(ctx context.Context, doc *model.Document, w io.Writer) error {
	eng := layout.NewEngine(r.fonts, r.images,
		layout.WithLogger(r.log),
		layout.WithTracer(r.tracer),
	)
	ul, err := eng.Render(ctx, doc, r.opts)
	if err != nil {
		return err
	}
	pw := writer.New(r.fonts, r.images, writer.Config{
		Compress:      r.compress,
		Info:          doc.Info,
		DefaultFamily: r.opts.DefaultFamily,
		DefaultSize:   r.opts.DefaultSize,
		Fallback:      r.opts.Fallback,
	}, writer.WithLogger(r.log))
	return pw.Write(w, ul)
}

// RenderBytes is Render into a fresh buffer.
func (r *Renderer) RenderBytes(ctx context.Context, doc *model.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(ctx, doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render is the one-shot entry point for documents that only use the
// standard fonts and no images.
func Render(doc *model.Document, opts ...Option) ([]byte, error) {
	return NewRenderer(opts...).RenderBytes(context.Background(), doc)
}
