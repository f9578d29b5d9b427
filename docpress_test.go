package docpress

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/wudi/docpress/convert"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
)

func TestRenderMarkdownEndToEnd(t *testing.T) {
	doc, err := convert.Markdown([]byte("# Title\n\nSome **body** text with a [link](https://example.com).\n\n- one\n- two\n"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(doc, WithCompression(false))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-1.7\n")) {
		t.Fatal("output is not a PDF")
	}
	if !bytes.HasSuffix(out, []byte("%%EOF\n")) {
		t.Fatal("output is not terminated")
	}
	for _, want := range []string{"Title", "/Subtype /Link", "(https://example.com)"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRendererWithImage(t *testing.T) {
	r := NewRenderer(
		WithPageSize(geo.Letter),
		WithMargins(geo.Margins{Top: 36, Bottom: 36, Left: 36, Right: 36}),
		WithCompression(false),
	)
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	if err := r.Images().Add("white", img); err != nil {
		t.Fatal(err)
	}
	doc := &model.Document{Blocks: []model.Block{
		&model.Image{Ref: "white", Width: 96, Height: 96},
		&model.Paragraph{Runs: []model.Run{{Text: "caption"}}},
	}}
	out, err := r.RenderBytes(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"/Subtype /Image", "/ColorSpace /DeviceRGB", "/Im1 Do"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %q", want)
		}
	}
	if !bytes.Contains(out, []byte("[0 0 612 792]")) {
		t.Error("letter media box missing")
	}
}

func TestRenderHonorsDefaultFont(t *testing.T) {
	doc := &model.Document{Blocks: []model.Block{
		&model.Paragraph{Runs: []model.Run{{Text: "typewriter"}}},
	}}
	out, err := Render(doc, WithDefaultFont("Courier", 12), WithCompression(false))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, []byte("/BaseFont /Courier")) {
		t.Error("default family not applied")
	}
	if bytes.Contains(out, []byte("/BaseFont /Helvetica")) {
		t.Error("unexpected Helvetica font object")
	}
}
