package linebreak

import (
	"math"
	"strings"
	"testing"

	"github.com/wudi/docpress/model"
)

// fixedMetrics measures every rune at a fixed width so tests can reason
// about breaks exactly.
type fixedMetrics struct {
	runeWidth float64
}

func (m fixedMetrics) TextWidth(_ model.RunStyle, s string) (float64, error) {
	return float64(len([]rune(s))) * m.runeWidth, nil
}

func (m fixedMetrics) LineMetrics(_ model.RunStyle) (float64, float64, error) {
	return 8, 2, nil
}

func (m fixedMetrics) ObjectSize(img *model.InlineImage) (float64, float64, error) {
	return img.Width, img.Height, nil
}

func run(text string) model.Run {
	return model.Run{Text: text, Style: model.RunStyle{Family: "Helvetica", Size: 10}}
}

func joinSpans(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		for _, s := range l.Spans {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

func TestRoundTripExact(t *testing.T) {
	runs := []model.Run{
		run("The quick  brown "),
		run("fox jumps\tover"),
		run(" the lazy dog  "),
	}
	var want strings.Builder
	for _, r := range runs {
		want.WriteString(r.Text)
	}
	lines, err := Break(runs, Options{Width: 120, Align: model.AlignLeft}, fixedMetrics{10})
	if err != nil {
		t.Fatalf("Break: %v", err)
	}
	if got := joinSpans(lines); got != want.String() {
		t.Fatalf("round trip mismatch:\n got %q\nwant %q", got, want.String())
	}
}

func TestGreedyWrap(t *testing.T) {
	// Each word is 30 wide, a space 10; at width 100 two words plus a
	// space fit, the third word does not.
	lines, err := Break([]model.Run{run("aaa bbb ccc ddd")}, Options{Width: 100}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Width != 70 {
		t.Errorf("line 0 width: got %v, want 70", lines[0].Width)
	}
	if !lines[1].Last {
		t.Error("final line not flagged Last")
	}
	if lines[0].Last {
		t.Error("first line flagged Last")
	}
}

func TestTrailingWhitespaceZeroWidth(t *testing.T) {
	lines, err := Break([]model.Run{run("aaa bbb ccc")}, Options{Width: 70}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	last := lines[0].Spans[len(lines[0].Spans)-1]
	if last.Text != " " || last.Width != 0 {
		t.Fatalf("trailing space span: got %+v", last)
	}
	if lines[0].Width != 70 {
		t.Errorf("line width should exclude trailing space: got %v", lines[0].Width)
	}
}

func TestJustifyFillsLine(t *testing.T) {
	lines, err := Break([]model.Run{run("aa bb cc dd ee")}, Options{Width: 100, Align: model.AlignJustify}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected a wrapped paragraph, got %d lines", len(lines))
	}
	for i, l := range lines {
		if l.Last {
			if l.WordSpacing != 0 {
				t.Errorf("last line must keep natural spacing, got %v", l.WordSpacing)
			}
			continue
		}
		if math.Abs(l.Width-100) > 1e-6 {
			t.Errorf("justified line %d width: got %v, want 100", i, l.Width)
		}
		if l.WordSpacing <= 0 {
			t.Errorf("justified line %d missing word spacing", i)
		}
	}
}

func TestJustifySkipsNonBreakingSpace(t *testing.T) {
	// "aa<NBSP>bb" is one unbreakable token; only the ordinary space is a gap.
	lines, err := Break([]model.Run{run("aa\u00a0bb cc dd")}, Options{Width: 90, Align: model.AlignJustify}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if lines[0].Gaps != 1 {
		t.Fatalf("line 0 gaps: got %d, want 1 (NBSP excluded)", lines[0].Gaps)
	}
}

func TestOversizedTokenOverflows(t *testing.T) {
	lines, err := Break([]model.Run{run("a unbreakabletoken b")}, Options{Width: 50}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1].Width <= 50 {
		t.Fatalf("oversized token should overflow its own line, width %v", lines[1].Width)
	}
	if got := joinSpans(lines); got != "a unbreakabletoken b" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestHardBreakNotJustified(t *testing.T) {
	runs := []model.Run{
		run("aa bb"),
		{Break: true},
		run("cc dd ee ff gg hh"),
	}
	lines, err := Break(runs, Options{Width: 90, Align: model.AlignJustify}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if !lines[0].HardBreak {
		t.Fatal("expected hard-break flag on line 0")
	}
	if lines[0].WordSpacing != 0 {
		t.Fatal("hard-break line must not be justified")
	}
	if lines[1].WordSpacing <= 0 {
		t.Fatal("wrapped line after the break should be justified")
	}
}

func TestCenterAndRightOffsets(t *testing.T) {
	center, err := Break([]model.Run{run("abc")}, Options{Width: 100, Align: model.AlignCenter}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(center[0].Offset-35) > 1e-9 {
		t.Errorf("center offset: got %v, want 35", center[0].Offset)
	}
	right, err := Break([]model.Run{run("abc")}, Options{Width: 100, Align: model.AlignRight}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(right[0].Offset-70) > 1e-9 {
		t.Errorf("right offset: got %v, want 70", right[0].Offset)
	}
}

func TestInlineObjectSlot(t *testing.T) {
	runs := []model.Run{
		run("before "),
		{Image: &model.InlineImage{Ref: "img", Width: 40, Height: 20}},
		run(" after"),
	}
	lines, err := Break(runs, Options{Width: 200}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	var obj *Span
	for i := range lines[0].Spans {
		if lines[0].Spans[i].Object {
			obj = &lines[0].Spans[i]
		}
	}
	if obj == nil || obj.Width != 40 {
		t.Fatalf("missing inline object span: %+v", lines[0].Spans)
	}
	if lines[0].Height != 22 {
		t.Fatalf("line height should grow to the object: got %v, want 22", lines[0].Height)
	}
}

func TestFirstLineIndentNarrowsFirstLine(t *testing.T) {
	lines, err := Break([]model.Run{run("aaa bbb ccc")}, Options{Width: 110, FirstIndent: 40}, fixedMetrics{10})
	if err != nil {
		t.Fatal(err)
	}
	// First line usable width is 70: "aaa bbb" fits, "ccc" wraps.
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Width != 70 {
		t.Errorf("first line width: got %v, want 70", lines[0].Width)
	}
}
