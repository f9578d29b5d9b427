// Package writer serializes a finished layout into a PDF byte stream. It
// maintains an append-only list of indirect objects and their byte offsets
// while streaming pages, then emits the cross-reference table and trailer.
// The writer has no fallback rendering path: upstream measurement problems
// must already have been converted to placeholder blocks.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/layout"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/observability"
	"github.com/wudi/docpress/pdfobj"
)

// MalformedOutputError reports a writer-internal invariant violation. It is
// fatal: it indicates a programming error, not bad input.
type MalformedOutputError struct {
	Reason string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("writer: malformed output: %s: %v", e.Reason, e.Err)
	}
	return "writer: malformed output: " + e.Reason
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Config controls output production. The font defaults and fallback chain
// must match the layout options the pages were produced with.
type Config struct {
	// Compress applies the Flate filter to page content streams.
	Compress bool
	// Info fills the document information dictionary.
	Info model.DocumentInfo

	DefaultFamily string
	DefaultSize   float64
	Fallback      []string
}

func (c Config) withDefaults() Config {
	if c.DefaultFamily == "" {
		c.DefaultFamily = "Helvetica"
	}
	if c.DefaultSize <= 0 {
		c.DefaultSize = 11
	}
	if len(c.Fallback) == 0 {
		c.Fallback = []string{"Helvetica"}
	}
	if c.Info.Producer == "" {
		c.Info.Producer = "docpress"
	}
	return c
}

// Writer serializes layouts against shared font and image caches.
type Writer struct {
	fonts  *fonts.Provider
	images *images.Cache
	cfg    Config
	log    observability.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the writer's logger.
func WithLogger(l observability.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// New returns a writer using the given caches.
func New(f *fonts.Provider, img *images.Cache, cfg Config, opts ...Option) *Writer {
	w := &Writer{
		fonts:  f,
		images: img,
		cfg:    cfg.withDefaults(),
		log:    observability.NopLogger{},
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// objDef pairs an allocated reference with its object, for resources whose
// definitions are emitted after the pages that use them.
type objDef struct {
	ref pdfobj.ObjectRef
	obj pdfobj.Object
}

// offsetWriter counts bytes so object offsets are known while streaming.
type offsetWriter struct {
	w io.Writer
	n int64
}

func (o *offsetWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.n += int64(n)
	return n, err
}

// Bytes renders the layout into an in-memory PDF.
func (w *Writer) Bytes(ul *layout.UnifiedLayout) ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf, ul); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the layout as a PDF. Output is deterministic: the same
// layout and caches always produce identical bytes. A failure while building
// a page propagates before any of that page's objects are written, so
// already-written pages are never corrupted.
func (w *Writer) Write(out io.Writer, ul *layout.UnifiedLayout) error {
	start := time.Now()
	ow := &offsetWriter{w: out}
	offsets := make(map[int]int64)
	nextNum := 0
	alloc := func() pdfobj.ObjectRef {
		nextNum++
		return pdfobj.ObjectRef{Num: nextNum}
	}
	emit := func(ref pdfobj.ObjectRef, obj pdfobj.Object) error {
		if _, dup := offsets[ref.Num]; dup {
			return &MalformedOutputError{Reason: fmt.Sprintf("object %d written twice", ref.Num)}
		}
		offsets[ref.Num] = ow.n
		_, err := ow.Write(pdfobj.SerializeIndirect(ref, obj))
		return err
	}

	if _, err := io.WriteString(ow, "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"); err != nil {
		return err
	}

	catalogRef := alloc()
	pagesRef := alloc()
	infoRef := alloc()
	res := newResources(alloc)

	catalog := pdfobj.NewDict()
	catalog.Set("Type", pdfobj.Name("Catalog"))
	catalog.Set("Pages", pdfobj.Ref(pagesRef))
	if err := emit(catalogRef, catalog); err != nil {
		return err
	}
	if err := emit(infoRef, infoDict(w.cfg.Info)); err != nil {
		return err
	}

	var pageRefs []pdfobj.ObjectRef
	for _, page := range ul.Pages {
		pw := &pageWriter{w: w, res: res, page: page}
		content, annots, err := pw.build()
		if err != nil {
			return err
		}

		contentRef := alloc()
		sd := pdfobj.NewDict()
		if w.cfg.Compress {
			sd.Set("Filter", pdfobj.Name("FlateDecode"))
			content = deflate(content)
		}
		if err := emit(contentRef, pdfobj.NewStream(sd, content)); err != nil {
			return err
		}

		var annotRefs []pdfobj.ObjectRef
		for _, a := range annots {
			ref := alloc()
			if err := emit(ref, linkDict(a)); err != nil {
				return err
			}
			annotRefs = append(annotRefs, ref)
		}

		pageRef := alloc()
		if err := emit(pageRef, w.pageDict(page, pagesRef, contentRef, annotRefs, pw)); err != nil {
			return err
		}
		pageRefs = append(pageRefs, pageRef)
	}

	for _, def := range res.fontObjects() {
		if err := emit(def.ref, def.obj); err != nil {
			return err
		}
	}
	for _, def := range res.imageObjects() {
		if err := emit(def.ref, def.obj); err != nil {
			return err
		}
	}

	kids := pdfobj.NewArray()
	for _, ref := range pageRefs {
		kids.Append(pdfobj.Ref(ref))
	}
	pages := pdfobj.NewDict()
	pages.Set("Type", pdfobj.Name("Pages"))
	pages.Set("Count", pdfobj.Integer(len(pageRefs)))
	pages.Set("Kids", kids)
	if err := emit(pagesRef, pages); err != nil {
		return err
	}

	// Cross-reference table and trailer.
	xrefOffset := ow.n
	var xref bytes.Buffer
	fmt.Fprintf(&xref, "xref\n0 %d\n", nextNum+1)
	xref.WriteString("0000000000 65535 f \n")
	for i := 1; i <= nextNum; i++ {
		off, ok := offsets[i]
		if !ok {
			return &MalformedOutputError{Reason: fmt.Sprintf("object %d allocated but never written", i)}
		}
		fmt.Fprintf(&xref, "%010d 00000 n \n", off)
	}
	trailer := pdfobj.NewDict()
	trailer.Set("Size", pdfobj.Integer(nextNum+1))
	trailer.Set("Root", pdfobj.Ref(catalogRef))
	trailer.Set("Info", pdfobj.Ref(infoRef))
	xref.WriteString("trailer\n")
	xref.Write(pdfobj.Serialize(trailer))
	fmt.Fprintf(&xref, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	if _, err := ow.Write(xref.Bytes()); err != nil {
		return err
	}

	w.log.Info("pdf written",
		observability.Int(observability.MetricObjectCount, nextNum),
		observability.Int(observability.MetricOutputBytes, int(ow.n)),
		observability.Float64(observability.MetricWriteTime, time.Since(start).Seconds()),
	)
	return nil
}

// pageDict builds one page dictionary. Its resource dictionary names only
// the fonts and images the page's own content stream references.
func (w *Writer) pageDict(page *layout.LayoutPage, parent, content pdfobj.ObjectRef, annots []pdfobj.ObjectRef, pw *pageWriter) *pdfobj.Dict {
	d := pdfobj.NewDict()
	d.Set("Type", pdfobj.Name("Page"))
	d.Set("Parent", pdfobj.Ref(parent))
	d.Set("MediaBox", pdfobj.NewArray(
		pdfobj.Integer(0), pdfobj.Integer(0),
		pdfobj.Real(page.Size.W), pdfobj.Real(page.Size.H),
	))
	d.Set("Contents", pdfobj.Ref(content))

	resDict := pdfobj.NewDict()
	if len(pw.fonts) > 0 {
		fd := pdfobj.NewDict()
		for _, f := range pw.fonts {
			fd.Set(f.name, pdfobj.Ref(f.ref))
		}
		resDict.Set("Font", fd)
	}
	if len(pw.images) > 0 {
		xd := pdfobj.NewDict()
		for _, img := range pw.images {
			xd.Set(img.name, pdfobj.Ref(img.ref))
		}
		resDict.Set("XObject", xd)
	}
	d.Set("Resources", resDict)

	if len(annots) > 0 {
		arr := pdfobj.NewArray()
		for _, ref := range annots {
			arr.Append(pdfobj.Ref(ref))
		}
		d.Set("Annots", arr)
	}
	return d
}

func linkDict(a linkAnnot) *pdfobj.Dict {
	d := pdfobj.NewDict()
	d.Set("Type", pdfobj.Name("Annot"))
	d.Set("Subtype", pdfobj.Name("Link"))
	d.Set("Rect", pdfobj.NewArray(
		pdfobj.Real(a.rect[0]), pdfobj.Real(a.rect[1]),
		pdfobj.Real(a.rect[2]), pdfobj.Real(a.rect[3]),
	))
	d.Set("Border", pdfobj.NewArray(pdfobj.Integer(0), pdfobj.Integer(0), pdfobj.Integer(0)))
	action := pdfobj.NewDict()
	action.Set("S", pdfobj.Name("URI"))
	action.Set("URI", pdfobj.Str(a.uri))
	d.Set("A", action)
	return d
}

func infoDict(info model.DocumentInfo) *pdfobj.Dict {
	d := pdfobj.NewDict()
	set := func(key, val string) {
		if val != "" {
			d.Set(key, pdfobj.Str(val))
		}
	}
	set("Title", info.Title)
	set("Author", info.Author)
	set("Subject", info.Subject)
	set("Creator", info.Creator)
	set("Producer", info.Producer)
	return d
}
