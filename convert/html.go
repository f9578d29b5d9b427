package convert

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
)

// HTML converts an HTML fragment or document into a document model. Unknown
// elements contribute their text content; script and style elements are
// dropped.
func HTML(source []byte) (*model.Document, error) {
	root, err := html.Parse(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("convert: parse html: %w", err)
	}
	c := &htmlConverter{}
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	return &model.Document{Blocks: c.blocks(body, 0)}, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

type htmlConverter struct{}

func (c *htmlConverter) blocks(node *html.Node, depth int) []model.Block {
	var out []model.Block
	// Loose inline content between block elements accumulates into an
	// implicit paragraph.
	var loose []model.Run
	flush := func() {
		if p := makeParagraph(loose, model.BlockStyle{SpaceAfter: blockSpacing}); p != nil {
			out = append(out, p)
		}
		loose = nil
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			if t := collapseSpace(child.Data); t != "" {
				loose = append(loose, model.Run{Text: t, Style: bodyStyle()})
			}
			continue
		}
		if child.Type != html.ElementNode {
			continue
		}
		switch child.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			flush()
			level := int(child.Data[1] - '0')
			bs, rs := headingBlock(level)
			if p := makeParagraph(c.inline(child, rs), bs); p != nil {
				out = append(out, p)
			}

		case atom.P:
			flush()
			if p := makeParagraph(c.inline(child, bodyStyle()), model.BlockStyle{SpaceAfter: blockSpacing}); p != nil {
				out = append(out, p)
			}

		case atom.Ul, atom.Ol:
			flush()
			out = append(out, c.list(child, depth)...)

		case atom.Blockquote:
			flush()
			inner := c.blocks(child, depth)
			for _, b := range inner {
				quoteStyle(b.Style())
			}
			out = append(out, inner...)

		case atom.Pre:
			flush()
			out = append(out, c.preBlock(child))

		case atom.Table:
			flush()
			if t := c.table(child); t != nil {
				out = append(out, t)
			}

		case atom.Hr:
			flush()
			out = append(out, ruleBlock())

		case atom.Img:
			flush()
			if src := attr(child, "src"); src != "" {
				out = append(out, &model.Image{
					BlockStyle: model.BlockStyle{SpaceAfter: blockSpacing},
					Ref:        src,
					Width:      dimAttr(child, "width"),
					Height:     dimAttr(child, "height"),
				})
			}

		case atom.Script, atom.Style, atom.Head:
			// dropped

		case atom.Div, atom.Section, atom.Article, atom.Main:
			flush()
			out = append(out, c.blocks(child, depth)...)

		default:
			loose = append(loose, c.inline(child, bodyStyle())...)
		}
	}
	flush()
	return out
}

func dimAttr(n *html.Node, name string) float64 {
	v, err := strconv.ParseFloat(attr(n, name), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func (c *htmlConverter) list(node *html.Node, depth int) []model.Block {
	var out []model.Block
	num := 1
	ordered := node.DataAtom == atom.Ol
	for item := node.FirstChild; item != nil; item = item.NextSibling {
		if item.Type != html.ElementNode || item.DataAtom != atom.Li {
			continue
		}
		marker := "• "
		if ordered {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		runs := append([]model.Run{{Text: marker, Style: bodyStyle()}}, c.inline(item, bodyStyle())...)
		if p := makeParagraph(runs, listMarkerBlock(depth)); p != nil {
			out = append(out, p)
		}
		// Nested lists indent one level deeper.
		for sub := item.FirstChild; sub != nil; sub = sub.NextSibling {
			if sub.Type == html.ElementNode && (sub.DataAtom == atom.Ul || sub.DataAtom == atom.Ol) {
				out = append(out, c.list(sub, depth+1)...)
			}
		}
	}
	return out
}

// preBlock renders preformatted text verbatim with explicit line breaks.
func (c *htmlConverter) preBlock(node *html.Node) *model.Paragraph {
	style := model.RunStyle{Family: monoFamily, Size: codeSize}
	text := strings.Trim(rawText(node), "\n")
	p := &model.Paragraph{BlockStyle: codeBlockStyle()}
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			p.Runs = append(p.Runs, model.Run{Break: true})
		}
		p.Runs = append(p.Runs, model.Run{Text: line, Style: style})
	}
	return p
}

func rawText(node *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)
	return b.String()
}

func (c *htmlConverter) table(node *html.Node) *model.Table {
	t := &model.Table{BlockStyle: model.BlockStyle{SpaceAfter: blockSpacing}}
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, header bool) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch child.DataAtom {
			case atom.Thead:
				walk(child, true)
			case atom.Tbody, atom.Tfoot:
				walk(child, false)
			case atom.Tr:
				if row, ok := c.tableRow(child, header); ok {
					t.Rows = append(t.Rows, row)
				}
			}
		}
	}
	walk(node, false)
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func (c *htmlConverter) tableRow(tr *html.Node, header bool) (model.TableRow, bool) {
	row := model.TableRow{RepeatAsHeader: header}
	allHeaderCells := true
	for cell := tr.FirstChild; cell != nil; cell = cell.NextSibling {
		if cell.Type != html.ElementNode {
			continue
		}
		var style model.RunStyle
		switch cell.DataAtom {
		case atom.Th:
			style = bodyStyle()
			style.Bold = true
		case atom.Td:
			style = bodyStyle()
			allHeaderCells = false
		default:
			continue
		}
		tc := model.TableCell{
			ColSpan: spanAttr(cell, "colspan"),
			RowSpan: spanAttr(cell, "rowspan"),
			Padding: geo.Margins{Top: 4, Bottom: 4, Left: 4, Right: 4},
			Borders: cellBorders(),
		}
		if p := makeParagraph(c.inline(cell, style), model.BlockStyle{}); p != nil {
			tc.Blocks = []model.Block{p}
		}
		row.Cells = append(row.Cells, tc)
	}
	if len(row.Cells) == 0 {
		return row, false
	}
	// A row made entirely of th cells repeats as a header even outside thead.
	if allHeaderCells {
		row.RepeatAsHeader = true
	}
	return row, true
}

func spanAttr(n *html.Node, name string) int {
	v, err := strconv.Atoi(attr(n, name))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

func cellBorders() model.Borders {
	edge := model.BorderEdge{Style: model.BorderSingle, Width: 0.5, Color: model.Color{R: 0.3, G: 0.3, B: 0.3}}
	return model.Borders{Top: edge, Bottom: edge, Left: edge, Right: edge}
}

// inline flattens the inline content of node into styled runs.
func (c *htmlConverter) inline(node *html.Node, style model.RunStyle) []model.Run {
	var runs []model.Run
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			if t := collapseSpace(child.Data); t != "" {
				runs = append(runs, model.Run{Text: t, Style: style})
			}
		case html.ElementNode:
			switch child.DataAtom {
			case atom.B, atom.Strong:
				s := style
				s.Bold = true
				runs = append(runs, c.inline(child, s)...)
			case atom.I, atom.Em:
				s := style
				s.Italic = true
				runs = append(runs, c.inline(child, s)...)
			case atom.U:
				s := style
				s.Underline = true
				runs = append(runs, c.inline(child, s)...)
			case atom.S, atom.Del, atom.Strike:
				s := style
				s.Strikethrough = true
				runs = append(runs, c.inline(child, s)...)
			case atom.Code:
				s := style
				s.Family = monoFamily
				runs = append(runs, c.inline(child, s)...)
			case atom.A:
				runs = append(runs, c.inline(child, linkStyle(style, attr(child, "href")))...)
			case atom.Br:
				runs = append(runs, model.Run{Break: true})
			case atom.Img:
				if src := attr(child, "src"); src != "" {
					runs = append(runs, model.Run{Image: &model.InlineImage{
						Ref:    src,
						Width:  dimAttr(child, "width"),
						Height: dimAttr(child, "height"),
					}})
				}
			case atom.Script, atom.Style:
				// dropped
			case atom.Ul, atom.Ol:
				// nested lists are converted as blocks by the caller
			default:
				runs = append(runs, c.inline(child, style)...)
			}
		}
	}
	return runs
}

// makeParagraph trims boundary whitespace and drops paragraphs that carry no
// content at all.
func makeParagraph(runs []model.Run, bs model.BlockStyle) *model.Paragraph {
	for len(runs) > 0 && runs[0].Image == nil && !runs[0].Break {
		runs[0].Text = strings.TrimLeftFunc(runs[0].Text, unicode.IsSpace)
		if runs[0].Text != "" {
			break
		}
		runs = runs[1:]
	}
	for len(runs) > 0 {
		last := &runs[len(runs)-1]
		if last.Image != nil || last.Break {
			break
		}
		last.Text = strings.TrimRightFunc(last.Text, unicode.IsSpace)
		if last.Text != "" {
			break
		}
		runs = runs[:len(runs)-1]
	}
	if len(runs) == 0 {
		return nil
	}
	return &model.Paragraph{BlockStyle: bs, Runs: runs}
}

// collapseSpace folds whitespace runs into single spaces, keeping boundary
// spaces so adjacent inline elements stay separated.
func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}
