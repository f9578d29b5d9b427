package convert

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/wudi/docpress/model"
)

// Markdown converts CommonMark source into a document model.
func Markdown(source []byte) (*model.Document, error) {
	root := goldmark.New().Parser().Parse(text.NewReader(source))
	c := &mdConverter{src: source}
	blocks, err := c.blocks(root, 0)
	if err != nil {
		return nil, err
	}
	return &model.Document{Blocks: blocks}, nil
}

type mdConverter struct {
	src []byte
}

// blocks converts the block-level children of node. depth is the list
// nesting level of the surrounding context.
func (c *mdConverter) blocks(node ast.Node, depth int) ([]model.Block, error) {
	var out []model.Block
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		converted, err := c.block(child, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, converted...)
	}
	return out, nil
}

func (c *mdConverter) block(node ast.Node, depth int) ([]model.Block, error) {
	switch n := node.(type) {
	case *ast.Heading:
		bs, rs := headingBlock(n.Level)
		return []model.Block{&model.Paragraph{
			BlockStyle: bs,
			Runs:       c.inline(n, rs),
		}}, nil

	case *ast.Paragraph:
		return []model.Block{&model.Paragraph{
			BlockStyle: model.BlockStyle{SpaceAfter: blockSpacing},
			Runs:       c.inline(n, bodyStyle()),
		}}, nil

	case *ast.TextBlock:
		// Tight list items wrap their text in a TextBlock instead of a
		// Paragraph.
		return []model.Block{&model.Paragraph{
			Runs: c.inline(n, bodyStyle()),
		}}, nil

	case *ast.List:
		return c.list(n, depth)

	case *ast.Blockquote:
		inner, err := c.blocks(n, depth)
		if err != nil {
			return nil, err
		}
		for _, b := range inner {
			quoteStyle(b.Style())
		}
		return inner, nil

	case *ast.FencedCodeBlock:
		return []model.Block{c.codeBlock(n)}, nil
	case *ast.CodeBlock:
		return []model.Block{c.codeBlock(n)}, nil

	case *ast.ThematicBreak:
		return []model.Block{ruleBlock()}, nil

	case *ast.HTMLBlock:
		// Raw HTML has no model representation.
		return nil, nil

	default:
		return c.blocks(node, depth)
	}
}

// list converts one list; ordered lists count from the list's start number.
func (c *mdConverter) list(n *ast.List, depth int) ([]model.Block, error) {
	var out []model.Block
	num := n.Start
	if num == 0 {
		num = 1
	}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		first := true
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			if nested, ok := child.(*ast.List); ok {
				blocks, err := c.list(nested, depth+1)
				if err != nil {
					return nil, err
				}
				out = append(out, blocks...)
				continue
			}
			converted, err := c.block(child, depth)
			if err != nil {
				return nil, err
			}
			for _, b := range converted {
				st := b.Style()
				st.LeftIndent += float64(depth) * listIndent
				if first {
					ms := listMarkerBlock(depth)
					st.LeftIndent = ms.LeftIndent
					st.HangingIndent = ms.HangingIndent
					st.SpaceAfter = ms.SpaceAfter
					if p, ok := b.(*model.Paragraph); ok {
						p.Runs = append([]model.Run{{Text: marker, Style: bodyStyle()}}, p.Runs...)
					}
					first = false
				} else {
					st.LeftIndent += markerHang
				}
			}
			out = append(out, converted...)
		}
	}
	return out, nil
}

// codeBlock renders a code block verbatim: one run per source line joined by
// explicit line breaks.
func (c *mdConverter) codeBlock(n ast.Node) *model.Paragraph {
	style := model.RunStyle{Family: monoFamily, Size: codeSize}
	p := &model.Paragraph{BlockStyle: codeBlockStyle()}
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		if i > 0 {
			p.Runs = append(p.Runs, model.Run{Break: true})
		}
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(c.src)), "\n")
		p.Runs = append(p.Runs, model.Run{Text: line, Style: style})
	}
	return p
}

// inline flattens the inline children of node into styled runs.
func (c *mdConverter) inline(node ast.Node, style model.RunStyle) []model.Run {
	var runs []model.Run
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Text:
			t := string(n.Segment.Value(c.src))
			if n.SoftLineBreak() {
				t += " "
			}
			runs = append(runs, model.Run{Text: t, Style: style})
			if n.HardLineBreak() {
				runs = append(runs, model.Run{Break: true})
			}

		case *ast.String:
			runs = append(runs, model.Run{Text: string(n.Value), Style: style})

		case *ast.Emphasis:
			s := style
			if n.Level >= 2 {
				s.Bold = true
			} else {
				s.Italic = true
			}
			runs = append(runs, c.inline(n, s)...)

		case *ast.CodeSpan:
			s := style
			s.Family = monoFamily
			runs = append(runs, c.inline(n, s)...)

		case *ast.Link:
			runs = append(runs, c.inline(n, linkStyle(style, string(n.Destination)))...)

		case *ast.AutoLink:
			url := string(n.URL(c.src))
			runs = append(runs, model.Run{Text: url, Style: linkStyle(style, url)})

		case *ast.Image:
			runs = append(runs, model.Run{Image: &model.InlineImage{Ref: string(n.Destination)}})

		case *ast.RawHTML:
			// dropped

		default:
			runs = append(runs, c.inline(n, style)...)
		}
	}
	return runs
}
