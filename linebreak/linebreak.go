// Package linebreak turns one paragraph's run sequence into wrapped lines of
// bounded width. Lines carry their exact source mapping: concatenating every
// span's text across all lines reproduces the paragraph text byte for byte.
package linebreak

import (
	"fmt"

	"github.com/wudi/docpress/model"
)

// Metrics supplies measurements for run content. The layout engine
// implements it on top of the font provider.
type Metrics interface {
	// TextWidth measures s rendered with the run's style.
	TextWidth(style model.RunStyle, s string) (float64, error)
	// LineMetrics returns the ascent and descent (both positive) of the
	// run's style at its size.
	LineMetrics(style model.RunStyle) (ascent, descent float64, err error)
	// ObjectSize returns the footprint of an inline image slot.
	ObjectSize(img *model.InlineImage) (w, h float64, err error)
}

// Span is a slice of one run placed on a line.
type Span struct {
	Run    int     // index into the paragraph's run slice
	Text   string  // exact source text covered by the span
	X      float64 // offset from the line's left edge
	Width  float64 // measured width; trailing line-end whitespace measures zero
	Object bool    // true when the span is an inline object slot
}

// Line is one wrapped line of a paragraph.
type Line struct {
	Spans       []Span
	Width       float64 // natural content width, excluding trailing whitespace
	Ascent      float64
	Height      float64 // natural height: max ascent + max descent
	Gaps        int     // breaking space characters eligible for justification
	WordSpacing float64 // extra width per breaking space on justified lines
	Offset      float64 // leading offset for centered/right-aligned lines
	Last        bool    // the paragraph's final line
	HardBreak   bool    // ended by an explicit line break
}

// Options configures one breaking pass.
type Options struct {
	Width       float64 // available width in points
	FirstIndent float64 // extra indent of the first line
	HangIndent  float64 // extra indent of every line after the first
	Align       model.Alignment
}

// lineWidth returns the usable width of line index i.
func (o Options) lineWidth(i int) float64 {
	w := o.Width
	if i == 0 {
		w -= o.FirstIndent
	} else {
		w -= o.HangIndent
	}
	if w < 0 {
		w = 0
	}
	return w
}

type tokenKind int

const (
	wordTok tokenKind = iota
	spaceTok
	breakTok
	objectTok
)

type token struct {
	kind   tokenKind
	run    int
	text   string
	width  float64
	height float64 // objects only
	gaps   int     // breaking space characters, spaces only
}

// Break wraps the runs into lines no wider than the available width, except
// for a single unbreakable token that exceeds it: such a token overflows on
// its own line instead of being truncated.
func Break(runs []model.Run, opts Options, m Metrics) ([]Line, error) {
	tokens, err := tokenize(runs, m)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	b := &breaker{opts: opts, metrics: m, runs: runs}
	for _, tok := range tokens {
		switch tok.kind {
		case spaceTok:
			b.pending = append(b.pending, tok)
		case breakTok:
			b.commitPendingTrailing()
			if tok.text != "" {
				// Keep the break marker's source text in the mapping
				// without giving it any width.
				b.cur = append(b.cur, token{kind: spaceTok, run: tok.run, text: tok.text})
			}
			b.closeLine(true)
		default:
			if err := b.placeWord(tok); err != nil {
				return nil, err
			}
		}
	}
	b.commitPendingTrailing()
	b.closeLine(false)

	lines := b.lines
	if len(lines) == 0 {
		return nil, nil
	}
	lines[len(lines)-1].Last = true
	for i := range lines {
		applyAlignment(&lines[i], opts.lineWidth(i), opts.Align)
	}
	return lines, nil
}

type breaker struct {
	opts    Options
	metrics Metrics
	runs    []model.Run

	lines   []Line
	cur     []token // committed tokens of the open line
	curW    float64
	pending []token // spaces waiting for the next word
}

func (b *breaker) pendingWidth() float64 {
	var w float64
	for _, t := range b.pending {
		w += t.width
	}
	return w
}

func (b *breaker) placeWord(tok token) error {
	avail := b.opts.lineWidth(len(b.lines))
	if len(b.cur) > 0 && b.curW+b.pendingWidth()+tok.width > avail {
		// Wrap: the pending whitespace stays on the closed line with
		// zero measured width.
		b.commitPendingTrailing()
		b.closeLine(false)
	}
	// Commit inter-word spaces, then the word. A word wider than the
	// whole line is placed alone and overflows.
	b.cur = append(b.cur, b.pending...)
	for _, t := range b.pending {
		b.curW += t.width
	}
	b.pending = nil
	b.cur = append(b.cur, tok)
	b.curW += tok.width
	return nil
}

// commitPendingTrailing attaches pending spaces to the open line as
// zero-width trailing spans.
func (b *breaker) commitPendingTrailing() {
	for _, t := range b.pending {
		t.width = 0
		t.gaps = 0
		b.cur = append(b.cur, t)
	}
	b.pending = nil
}

func (b *breaker) closeLine(hard bool) {
	if len(b.cur) == 0 && !hard && len(b.lines) > 0 {
		return
	}
	line := Line{HardBreak: hard}
	var x float64
	for _, t := range b.cur {
		line.Spans = append(line.Spans, Span{
			Run:    t.run,
			Text:   t.text,
			X:      x,
			Width:  t.width,
			Object: t.kind == objectTok,
		})
		x += t.width
		line.Gaps += t.gaps
	}
	// Trailing committed spaces measure zero, so x is the content width.
	line.Width = x
	line.Ascent, line.Height = b.lineExtent(b.cur)
	b.lines = append(b.lines, line)
	b.cur = nil
	b.curW = 0
}

// lineExtent computes the natural vertical extent from every style on the
// line; an empty line falls back to the first run's style.
func (b *breaker) lineExtent(tokens []token) (ascent, height float64) {
	var maxAsc, maxDesc float64
	seen := false
	for _, t := range tokens {
		if t.kind == objectTok {
			if t.height > maxAsc {
				maxAsc = t.height
			}
			seen = true
			continue
		}
		asc, desc, err := b.metrics.LineMetrics(b.runs[t.run].Style)
		if err != nil {
			continue
		}
		if asc > maxAsc {
			maxAsc = asc
		}
		if desc > maxDesc {
			maxDesc = desc
		}
		seen = true
	}
	if !seen && len(b.runs) > 0 {
		if asc, desc, err := b.metrics.LineMetrics(b.runs[0].Style); err == nil {
			maxAsc, maxDesc = asc, desc
		}
	}
	return maxAsc, maxAsc + maxDesc
}

func applyAlignment(line *Line, avail float64, align model.Alignment) {
	slack := avail - line.Width
	if slack <= 0 {
		return
	}
	switch align {
	case model.AlignJustify:
		// The final line and lines ended by an explicit break keep
		// their natural spacing.
		if line.Last || line.HardBreak || line.Gaps == 0 {
			return
		}
		line.WordSpacing = slack / float64(line.Gaps)
		redistribute(line)
	case model.AlignCenter:
		line.Offset = slack / 2
	case model.AlignRight:
		line.Offset = slack
	}
}

// redistribute shifts span offsets so that every breaking space widens by
// the line's word spacing. Non-breaking spaces are part of word spans and
// are unaffected.
func redistribute(line *Line) {
	var shift float64
	for i := range line.Spans {
		s := &line.Spans[i]
		s.X += shift
		if !s.Object && s.Width > 0 && isBreakingSpace(s.Text) {
			extra := line.WordSpacing * float64(countBreakingSpaces(s.Text))
			s.Width += extra
			shift += extra
		}
	}
	line.Width += shift
}

func tokenize(runs []model.Run, m Metrics) ([]token, error) {
	var tokens []token
	for i, run := range runs {
		switch {
		case run.Break:
			tokens = append(tokens, token{kind: breakTok, run: i, text: run.Text})
			continue
		case run.Image != nil:
			w, h, err := m.ObjectSize(run.Image)
			if err != nil {
				return nil, fmt.Errorf("linebreak: inline image %q: %w", run.Image.Ref, err)
			}
			tokens = append(tokens, token{kind: objectTok, run: i, text: run.Text, width: w, height: h})
			continue
		}
		if run.Text == "" {
			continue
		}
		start := 0
		text := run.Text
		inSpace := isBreakingSpaceRune(firstRune(text))
		for pos, r := range text {
			space := isBreakingSpaceRune(r)
			if space == inSpace {
				continue
			}
			tok, err := makeToken(run.Style, i, text[start:pos], inSpace, m)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			start = pos
			inSpace = space
		}
		tok, err := makeToken(run.Style, i, text[start:], inSpace, m)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func makeToken(style model.RunStyle, run int, text string, space bool, m Metrics) (token, error) {
	w, err := m.TextWidth(style, text)
	if err != nil {
		return token{}, fmt.Errorf("linebreak: measure %q: %w", text, err)
	}
	tok := token{kind: wordTok, run: run, text: text, width: w}
	if space {
		tok.kind = spaceTok
		tok.gaps = countBreakingSpaces(text)
	}
	return tok, nil
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// isBreakingSpaceRune reports whether r offers a break opportunity. The
// non-breaking space (U+00A0) does not.
func isBreakingSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}

func isBreakingSpace(s string) bool {
	for _, r := range s {
		if !isBreakingSpaceRune(r) {
			return false
		}
	}
	return s != ""
}

func countBreakingSpaces(s string) int {
	n := 0
	for _, r := range s {
		if isBreakingSpaceRune(r) {
			n++
		}
	}
	return n
}
