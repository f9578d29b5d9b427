package writer

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/layout"
	"github.com/wudi/docpress/model"
)

func textDoc(texts ...string) *model.Document {
	doc := &model.Document{}
	for _, s := range texts {
		doc.Blocks = append(doc.Blocks, &model.Paragraph{
			Runs: []model.Run{{Text: s}},
		})
	}
	return doc
}

func renderPDF(t *testing.T, doc *model.Document, cfg Config) []byte {
	t.Helper()
	fp := fonts.NewProvider()
	ic := images.NewCache()
	eng := layout.NewEngine(fp, ic)
	ul, err := eng.Render(context.Background(), doc, layout.Options{})
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	w := New(fp, ic, cfg)
	out, err := w.Bytes(ul)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	return out
}

func TestHeaderTrailerStructure(t *testing.T) {
	out := renderPDF(t, textDoc("hello world"), Config{})

	if !bytes.HasPrefix(out, []byte("%PDF-1.7\n")) {
		t.Fatalf("missing PDF header, got %q", out[:16])
	}
	if !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Fatalf("missing %%EOF terminator")
	}
	for _, want := range []string{"/Type /Catalog", "/Type /Pages", "/Type /Page", "trailer", "/Root 1 0 R", "/Info 3 0 R"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestXrefOffsetsPointAtObjects(t *testing.T) {
	out := renderPDF(t, textDoc("offsets"), Config{})

	m := regexp.MustCompile(`startxref\n(\d+)\n%%EOF\n$`).FindSubmatch(out)
	if m == nil {
		t.Fatal("startxref not found")
	}
	xrefOff, _ := strconv.Atoi(string(m[1]))
	if !bytes.HasPrefix(out[xrefOff:], []byte("xref\n")) {
		t.Fatalf("startxref %d does not point at the xref table", xrefOff)
	}

	section := out[xrefOff:]
	head := regexp.MustCompile(`xref\n0 (\d+)\n`).FindSubmatch(section)
	if head == nil {
		t.Fatal("xref subsection header not found")
	}
	count, _ := strconv.Atoi(string(head[1]))
	entries := regexp.MustCompile(`(\d{10}) 00000 n \n`).FindAllSubmatch(section, -1)
	if len(entries) != count-1 {
		t.Fatalf("xref has %d in-use entries, want %d", len(entries), count-1)
	}
	for i, e := range entries {
		off, _ := strconv.Atoi(string(e[1]))
		wantPrefix := []byte(strconv.Itoa(i+1) + " 0 obj\n")
		if !bytes.HasPrefix(out[off:], wantPrefix) {
			t.Errorf("xref entry %d: offset %d does not start object %d", i+1, off, i+1)
		}
	}
}

func TestOutputIsDeterministic(t *testing.T) {
	doc := textDoc("alpha", "beta", "gamma")
	fp := fonts.NewProvider()
	ic := images.NewCache()
	eng := layout.NewEngine(fp, ic)
	ul, err := eng.Render(context.Background(), doc, layout.Options{})
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	w := New(fp, ic, Config{})
	first, err := w.Bytes(ul)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := w.Bytes(ul)
		if err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("write %d produced different bytes", i)
		}
	}
}

func TestFontSharedAcrossPages(t *testing.T) {
	// Enough identical paragraphs to force a second page.
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = "repeated body text that fills the page"
	}
	out := renderPDF(t, textDoc(texts...), Config{})

	if got := bytes.Count(out, []byte("/Type /Pages")); got != 1 {
		t.Fatalf("got %d pages-tree objects, want 1", got)
	}
	if pages := bytes.Count(out, []byte("/Type /Page>>")) + bytes.Count(out, []byte("/Type /Page/")); pages < 2 {
		t.Fatalf("expected at least 2 pages, structure suggests %d", pages)
	}
	if got := bytes.Count(out, []byte("/BaseFont /Helvetica")); got != 1 {
		t.Fatalf("Helvetica defined %d times, want 1", got)
	}
}

func TestPageResourcesListOnlyOwnFonts(t *testing.T) {
	// Page 1 uses Helvetica only, page 2 Courier only; each page's resource
	// dictionary must name just the font its own content stream uses.
	doc := &model.Document{Blocks: []model.Block{
		&model.Paragraph{Runs: []model.Run{{Text: "first page"}}},
		&model.Paragraph{
			BlockStyle: model.BlockStyle{PageBreakBefore: true},
			Runs:       []model.Run{{Text: "second page", Style: model.RunStyle{Family: "Courier"}}},
		},
	}}
	out := renderPDF(t, doc, Config{})

	fontDicts := regexp.MustCompile(`/Font <<[^>]*>>`).FindAll(out, -1)
	if len(fontDicts) != 2 {
		t.Fatalf("got %d font resource dicts, want 2", len(fontDicts))
	}
	if !regexp.MustCompile(`^/Font <</F1 \d+ 0 R>>$`).Match(fontDicts[0]) {
		t.Errorf("page 1 fonts %q, want F1 only", fontDicts[0])
	}
	if !regexp.MustCompile(`^/Font <</F2 \d+ 0 R>>$`).Match(fontDicts[1]) {
		t.Errorf("page 2 fonts %q, want F2 only", fontDicts[1])
	}
}

func TestCompressedContentRoundTrips(t *testing.T) {
	out := renderPDF(t, textDoc("compressed stream body"), Config{Compress: true})

	if !bytes.Contains(out, []byte("/Filter /FlateDecode")) {
		t.Fatal("compressed output carries no FlateDecode filter")
	}
	start := bytes.Index(out, []byte("stream\n"))
	if start < 0 {
		t.Fatal("no stream found")
	}
	start += len("stream\n")
	end := bytes.Index(out[start:], []byte("\nendstream"))
	if end < 0 {
		t.Fatal("stream not terminated")
	}
	zr, err := zlib.NewReader(bytes.NewReader(out[start : start+end]))
	if err != nil {
		t.Fatalf("content stream is not zlib data: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("inflate failed: %v", err)
	}
	text := string(plain)
	for _, op := range []string{"BT", "ET", "Tf", "Tj"} {
		if !strings.Contains(text, op) {
			t.Errorf("inflated content missing %s operator", op)
		}
	}
}

func TestLinkAnnotationEmitted(t *testing.T) {
	doc := &model.Document{Blocks: []model.Block{
		&model.Paragraph{Runs: []model.Run{
			{Text: "visit "},
			{Text: "the site", Style: model.RunStyle{Link: "https://example.com/docs"}},
		}},
	}}
	out := renderPDF(t, doc, Config{})

	for _, want := range []string{"/Subtype /Link", "/S /URI", "(https://example.com/docs)", "/Border [0 0 0]"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if !bytes.Contains(out, []byte("/Annots")) {
		t.Error("page dictionary carries no /Annots")
	}
}

func TestInfoDictionary(t *testing.T) {
	doc := textDoc("metadata")
	doc.Info = model.DocumentInfo{Title: "Quarterly Report", Author: "Ada"}
	fp := fonts.NewProvider()
	ic := images.NewCache()
	eng := layout.NewEngine(fp, ic)
	ul, err := eng.Render(context.Background(), doc, layout.Options{})
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	out, err := New(fp, ic, Config{Info: doc.Info}).Bytes(ul)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	for _, want := range []string{"/Title (Quarterly Report)", "/Author (Ada)", "/Producer (docpress)"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("info dictionary missing %q", want)
		}
	}
}

func TestMissingImageIsMalformedOutput(t *testing.T) {
	page := &layout.LayoutPage{
		Number:  1,
		Size:    geo.A4,
		Margins: geo.Margins{Top: 72, Bottom: 72, Left: 72, Right: 72},
		Blocks: []*layout.LayoutBlock{{
			Type:     layout.TypeImage,
			Frame:    geo.Rect{X: 0, Y: 0, W: 100, H: 80},
			ImageRef: "never-registered",
		}},
	}
	ul := &layout.UnifiedLayout{Pages: []*layout.LayoutPage{page}}

	w := New(fonts.NewProvider(), images.NewCache(), Config{})
	_, err := w.Bytes(ul)
	var moe *MalformedOutputError
	if !errors.As(err, &moe) {
		t.Fatalf("got %v, want MalformedOutputError", err)
	}
}

func TestContentStreamUsesWinAnsi(t *testing.T) {
	out := renderPDF(t, textDoc("café — naïve"), Config{})

	// U+00E9 and U+00EF map to single WinAnsi bytes; the em dash maps to 0x97.
	if !bytes.Contains(out, []byte{'c', 'a', 'f', 0xe9}) {
		t.Error("é not encoded as WinAnsi 0xE9")
	}
	if !bytes.Contains(out, []byte{'n', 'a', 0xef, 'v', 'e'}) {
		t.Error("ï not encoded as WinAnsi 0xEF")
	}
	if !bytes.Contains(out, []byte{'(', 0x97, ')'}) {
		t.Error("em dash not encoded as WinAnsi 0x97")
	}
}
