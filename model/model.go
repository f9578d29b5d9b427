// Package model defines the read-only document model consumed by the layout
// engine. All style attributes are fully resolved before a document reaches
// this package; there is no cascading or inheritance here. Optional fields
// default to their zero value, never to an error.
package model

import "github.com/wudi/docpress/geo"

// Kind discriminates the block-level variants.
type Kind int

const (
	KindParagraph Kind = iota
	KindTable
	KindImage
	KindTextbox
)

// Block is one block-level node of the document: a paragraph, table, image
// or textbox. Implementations are immutable once handed to the layout engine.
type Block interface {
	Kind() Kind
	Style() *BlockStyle
	ID() string
}

// Alignment is the horizontal alignment of paragraph content.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
	AlignJustify
)

// LineSpacingMode selects how LineSpacing.Value is interpreted.
type LineSpacingMode int

const (
	// SpacingMultiple scales the natural line height; 0 means single spacing.
	SpacingMultiple LineSpacingMode = iota
	// SpacingExact forces every line to exactly Value points.
	SpacingExact
	// SpacingAtLeast uses the natural height but never less than Value points.
	SpacingAtLeast
)

// LineSpacing is a paragraph's line spacing rule.
type LineSpacing struct {
	Mode  LineSpacingMode
	Value float64
}

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Common colors.
var (
	Black = Color{}
	White = Color{R: 1, G: 1, B: 1}
)

// BorderStyle selects the stroke pattern of a border edge.
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderSingle
	BorderDouble
	BorderDashed
)

// BorderEdge describes one edge of a block border. A zero edge draws nothing.
type BorderEdge struct {
	Style BorderStyle
	Width float64
	Color Color
}

// IsZero reports whether the edge draws nothing.
func (e BorderEdge) IsZero() bool { return e.Style == BorderNone || e.Width <= 0 }

// Borders holds the four edges of a block or cell border.
type Borders struct {
	Top, Bottom, Left, Right BorderEdge
}

// IsZero reports whether no edge draws anything.
func (b Borders) IsZero() bool {
	return b.Top.IsZero() && b.Bottom.IsZero() && b.Left.IsZero() && b.Right.IsZero()
}

// Shading is a block background fill. Set distinguishes "no shading" from
// an explicit white fill.
type Shading struct {
	Set  bool
	Fill Color
}

// Shadow is a drop shadow resolved from style; the layout engine passes it
// through unchanged.
type Shadow struct {
	Set     bool
	OffsetX float64
	OffsetY float64
	Color   Color
}

// BlockStyle carries the resolved block-level attributes shared by all
// block variants. Lengths are in points.
type BlockStyle struct {
	Alignment       Alignment
	LeftIndent      float64
	RightIndent     float64
	FirstLineIndent float64 // additional indent of the first line
	HangingIndent   float64 // additional indent of every line but the first
	SpaceBefore     float64
	SpaceAfter      float64
	LineSpacing     LineSpacing
	Borders         Borders
	Shading         Shading
	Shadow          Shadow
	KeepWithNext    bool
	KeepTogether    bool
	PageBreakBefore bool
}

// FieldKind marks a run whose text is substituted during layout.
type FieldKind int

const (
	FieldNone FieldKind = iota
	// FieldPageNumber is replaced with the current page number.
	FieldPageNumber
	// FieldPageCount is replaced with the document's total page count,
	// known after the dry-run pagination pass.
	FieldPageCount
)

// RunStyle is the resolved character style of a run.
type RunStyle struct {
	Family        string
	Size          float64
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Color         Color
	Link          string // target URI; empty for plain text
}

// Run is one styled fragment inside a paragraph. Exactly one of Text,
// Image, Footnote or Break is meaningful; Field applies to Text runs.
type Run struct {
	Text     string
	Style    RunStyle
	Field    FieldKind
	Image    *InlineImage // occupies one unbreakable slot in the line
	Footnote *Footnote    // reference anchored at this run
	Break    bool         // explicit line break
}

// InlineImage is an image flowing inside a line of text.
type InlineImage struct {
	Ref    string // identifier resolved by the image cache
	Width  float64
	Height float64
}

// Footnote is a footnote body anchored to a run. The marker is rendered at
// the reference position and again in front of the body.
type Footnote struct {
	Marker string
	Blocks []Block
}

// Paragraph is an ordered sequence of runs with one block style.
type Paragraph struct {
	BlockStyle BlockStyle
	Runs       []Run
	SourceID   string
}

func (p *Paragraph) Kind() Kind         { return KindParagraph }
func (p *Paragraph) Style() *BlockStyle { return &p.BlockStyle }
func (p *Paragraph) ID() string         { return p.SourceID }

// Text returns the concatenated text of all runs.
func (p *Paragraph) Text() string {
	var out []byte
	for _, r := range p.Runs {
		out = append(out, r.Text...)
	}
	return string(out)
}

// Table is a grid of rows and cells.
type Table struct {
	BlockStyle BlockStyle
	Rows       []TableRow
	SourceID   string
}

func (t *Table) Kind() Kind         { return KindTable }
func (t *Table) Style() *BlockStyle { return &t.BlockStyle }
func (t *Table) ID() string         { return t.SourceID }

// TableRow is one row of a table. RepeatAsHeader marks the row for
// repetition when the table splits across pages.
type TableRow struct {
	Cells          []TableCell
	RepeatAsHeader bool
	ExactHeight    float64 // 0 means auto
}

// TableCell is one grid cell. Width 0 means auto; ColSpan/RowSpan values
// below 1 are treated as 1.
type TableCell struct {
	Blocks  []Block
	Width   float64
	ColSpan int
	RowSpan int
	Padding geo.Margins
	Borders Borders
	Shading Shading
}

// Image is a block-level image.
type Image struct {
	BlockStyle BlockStyle
	Ref        string
	Width      float64 // display size in points; 0 means natural size
	Height     float64
	SourceID   string
}

func (i *Image) Kind() Kind         { return KindImage }
func (i *Image) Style() *BlockStyle { return &i.BlockStyle }
func (i *Image) ID() string         { return i.SourceID }

// Textbox is a fixed-width container of nested blocks, placed as a single
// unsplittable unit.
type Textbox struct {
	BlockStyle BlockStyle
	Blocks     []Block
	Width      float64
	Height     float64 // 0 means sized by content
	SourceID   string
}

func (t *Textbox) Kind() Kind         { return KindTextbox }
func (t *Textbox) Style() *BlockStyle { return &t.BlockStyle }
func (t *Textbox) ID() string         { return t.SourceID }

// HeaderFooter is the block list rendered in the top or bottom page margin.
type HeaderFooter struct {
	Blocks []Block
}

// DocumentInfo carries the PDF info dictionary fields.
type DocumentInfo struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
}

// Document is the root of the model: an ordered block stream plus optional
// header, footer and metadata.
type Document struct {
	Blocks []Block
	Header *HeaderFooter
	Footer *HeaderFooter
	Info   DocumentInfo
}
