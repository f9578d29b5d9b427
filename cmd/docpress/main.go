// Command docpress converts a markdown or HTML file to PDF.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/wudi/docpress"
	"github.com/wudi/docpress/convert"
	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
)

type options struct {
	input    string
	output   string
	pageSize geo.Size
	title    string
	compress bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docpress: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "docpress: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	var size string
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: docpress [flags] <input.md|input.html>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.output, "o", "", "output PDF path (default: input with .pdf extension)")
	flag.StringVar(&size, "size", "a4", "page size: a4, letter or legal")
	flag.StringVar(&opts.title, "title", "", "document title")
	flag.BoolVar(&opts.compress, "compress", true, "compress content streams")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return opts, fmt.Errorf("exactly one input file required")
	}
	opts.input = flag.Arg(0)
	if opts.output == "" {
		base := strings.TrimSuffix(opts.input, filepath.Ext(opts.input))
		opts.output = base + ".pdf"
	}
	switch strings.ToLower(size) {
	case "a4":
		opts.pageSize = geo.A4
	case "letter":
		opts.pageSize = geo.Letter
	case "legal":
		opts.pageSize = geo.Legal
	default:
		return opts, fmt.Errorf("unknown page size %q", size)
	}
	return opts, nil
}

func run(opts options) error {
	source, err := os.ReadFile(opts.input)
	if err != nil {
		return err
	}

	var doc *model.Document
	switch strings.ToLower(filepath.Ext(opts.input)) {
	case ".md", ".markdown":
		doc, err = convert.Markdown(source)
	case ".html", ".htm":
		doc, err = convert.HTML(source)
	default:
		return fmt.Errorf("unsupported input type %q", filepath.Ext(opts.input))
	}
	if err != nil {
		return err
	}
	if opts.title != "" {
		doc.Info.Title = opts.title
	}

	r := docpress.NewRenderer(
		docpress.WithPageSize(opts.pageSize),
		docpress.WithCompression(opts.compress),
	)
	// Register images referenced by relative path next to the input file.
	registerImages(r, doc.Blocks, filepath.Dir(opts.input))

	out, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := r.Render(context.Background(), doc, out); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", opts.output)
	return nil
}

// registerImages walks the block tree and loads every referenced image file
// into the renderer's cache under its reference name. Missing files are left
// unregistered; layout degrades them to placeholder blocks.
func registerImages(r *docpress.Renderer, blocks []model.Block, dir string) {
	for _, b := range blocks {
		switch n := b.(type) {
		case *model.Image:
			registerImage(r, n.Ref, dir)
		case *model.Paragraph:
			for _, run := range n.Runs {
				if run.Image != nil {
					registerImage(r, run.Image.Ref, dir)
				}
			}
		case *model.Table:
			for _, row := range n.Rows {
				for _, cell := range row.Cells {
					registerImages(r, cell.Blocks, dir)
				}
			}
		case *model.Textbox:
			registerImages(r, n.Blocks, dir)
		}
	}
}

func registerImage(r *docpress.Renderer, ref, dir string) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	// Decoders for the common formats are registered by the images package.
	img, _, err := image.Decode(f)
	if err != nil {
		return
	}
	_ = r.Images().Add(ref, img)
}
