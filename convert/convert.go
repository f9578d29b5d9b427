// Package convert builds document models from markup sources. Converters
// resolve every style to concrete values; the layout engine never sees the
// source markup.
package convert

import "github.com/wudi/docpress/model"

const (
	bodyFamily = "Helvetica"
	monoFamily = "Courier"
	bodySize   = 11.0
	codeSize   = 10.0

	listIndent   = 18.0 // per nesting level
	markerHang   = 14.0 // marker column width
	quoteIndent  = 12.0
	blockSpacing = 6.0
)

// headingSizes maps heading level 1..6 to point size.
var headingSizes = [...]float64{24, 18, 14, 12, 11, 10}

var (
	linkColor   = model.Color{B: 0.8}
	codeFill    = model.Color{R: 0.95, G: 0.95, B: 0.95}
	ruleColor   = model.Color{R: 0.6, G: 0.6, B: 0.6}
	quoteStripe = model.Color{R: 0.75, G: 0.75, B: 0.75}
)

func bodyStyle() model.RunStyle {
	return model.RunStyle{Family: bodyFamily, Size: bodySize}
}

func headingBlock(level int) (model.BlockStyle, model.RunStyle) {
	if level < 1 {
		level = 1
	}
	if level > len(headingSizes) {
		level = len(headingSizes)
	}
	rs := model.RunStyle{Family: bodyFamily, Size: headingSizes[level-1], Bold: true}
	bs := model.BlockStyle{
		SpaceBefore:  2 * blockSpacing,
		SpaceAfter:   blockSpacing,
		KeepWithNext: true,
	}
	return bs, rs
}

func codeBlockStyle() model.BlockStyle {
	return model.BlockStyle{
		LeftIndent:  blockSpacing,
		SpaceBefore: blockSpacing,
		SpaceAfter:  blockSpacing,
		Shading:     model.Shading{Set: true, Fill: codeFill},
	}
}

// quoteStyle marks a block as quoted: indented with a left stripe.
func quoteStyle(bs *model.BlockStyle) {
	bs.LeftIndent += quoteIndent
	bs.Borders.Left = model.BorderEdge{Style: model.BorderSingle, Width: 2, Color: quoteStripe}
}

func ruleBlock() *model.Paragraph {
	return &model.Paragraph{
		BlockStyle: model.BlockStyle{
			SpaceBefore: blockSpacing,
			SpaceAfter:  blockSpacing,
			Borders: model.Borders{
				Bottom: model.BorderEdge{Style: model.BorderSingle, Width: 0.5, Color: ruleColor},
			},
		},
	}
}

func linkStyle(base model.RunStyle, uri string) model.RunStyle {
	base.Link = uri
	base.Color = linkColor
	base.Underline = true
	return base
}

// listMarkerBlock styles a list item paragraph: the marker occupies a hanging
// column so continuation lines align under the item text.
func listMarkerBlock(depth int) model.BlockStyle {
	return model.BlockStyle{
		LeftIndent:    float64(depth) * listIndent,
		HangingIndent: markerHang,
		SpaceAfter:    2,
	}
}
