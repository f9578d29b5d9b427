package tablegrid

import (
	"errors"
	"math"
	"testing"

	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
)

// stubMeasurer returns canned sizes keyed by the cell's first paragraph text.
type stubMeasurer struct {
	heights map[string]float64
	minima  map[string]float64
}

func cellText(c *model.TableCell) string {
	if len(c.Blocks) == 0 {
		return ""
	}
	if p, ok := c.Blocks[0].(*model.Paragraph); ok {
		return p.Text()
	}
	return ""
}

func (m stubMeasurer) ContentHeight(c *model.TableCell, _ float64) (float64, error) {
	return m.heights[cellText(c)], nil
}

func (m stubMeasurer) MinContentWidth(c *model.TableCell) (float64, error) {
	return m.minima[cellText(c)], nil
}

func cell(text string, width float64) model.TableCell {
	return model.TableCell{
		Width:  width,
		Blocks: []model.Block{&model.Paragraph{Runs: []model.Run{{Text: text}}}},
	}
}

func simpleMeasurer() stubMeasurer {
	return stubMeasurer{heights: map[string]float64{}, minima: map[string]float64{}}
}

func TestAutoColumnsShareRemainingWidth(t *testing.T) {
	// Three rows, columns [auto, 100pt, auto], 300pt available: both auto
	// columns receive 100pt.
	tbl := &model.Table{}
	for i := 0; i < 3; i++ {
		tbl.Rows = append(tbl.Rows, model.TableRow{Cells: []model.TableCell{
			cell("a", 0), cell("b", 100), cell("c", 0),
		}})
	}
	g, err := Compute(tbl, 300, simpleMeasurer())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	want := []float64{100, 100, 100}
	for c, w := range g.ColWidths {
		if math.Abs(w-want[c]) > 1e-9 {
			t.Errorf("col %d: got %v, want %v", c, w, want[c])
		}
	}
}

func TestWidthInvariantAndCoverage(t *testing.T) {
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{
			{ColSpan: 2, Blocks: []model.Block{&model.Paragraph{Runs: []model.Run{{Text: "span"}}}}},
			cell("x", 0),
		}},
		{Cells: []model.TableCell{cell("a", 50), cell("b", 0), cell("c", 0)}},
	}}
	avail := 240.0
	g, err := Compute(tbl, avail, simpleMeasurer())
	if err != nil {
		t.Fatal(err)
	}
	if g.Width() > avail+1e-9 {
		t.Fatalf("column widths %v exceed available %v", g.ColWidths, avail)
	}
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			if _, ok := g.OriginOf(r, c); !ok {
				t.Errorf("cell (%d,%d) has no span origin", r, c)
			}
		}
	}
}

func TestExplicitOverflowFails(t *testing.T) {
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{cell("a", 200), cell("b", 200)}},
	}}
	_, err := Compute(tbl, 300, simpleMeasurer())
	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if overflow.Required != 400 || overflow.Available != 300 {
		t.Fatalf("unexpected overflow payload: %+v", overflow)
	}
}

func TestMinimumLiftsAutoColumn(t *testing.T) {
	m := simpleMeasurer()
	m.minima["wide"] = 120
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{cell("wide", 0), cell("a", 0), cell("b", 0)}},
	}}
	g, err := Compute(tbl, 300, m)
	if err != nil {
		t.Fatal(err)
	}
	if g.ColWidths[0] < 120 {
		t.Fatalf("col 0 below content minimum: %v", g.ColWidths[0])
	}
	if math.Abs(g.ColWidths[1]-90) > 1e-9 || math.Abs(g.ColWidths[2]-90) > 1e-9 {
		t.Fatalf("remaining columns should split the rest evenly: %v", g.ColWidths)
	}
}

func TestMergedCellRebalanceKeepsUnrelatedColumn(t *testing.T) {
	m := simpleMeasurer()
	m.minima["span"] = 250
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{
			{ColSpan: 2, Blocks: []model.Block{&model.Paragraph{Runs: []model.Run{{Text: "span"}}}}},
			cell("free", 0),
		}},
		{Cells: []model.TableCell{cell("a", 0), cell("b", 0), cell("c", 0)}},
	}}
	avail := 300.0
	g, err := Compute(tbl, avail, m)
	if err != nil {
		t.Fatal(err)
	}
	// The span's covered columns grow to 125 each; the overshoot is
	// reclaimed from the uncovered auto column.
	want := []float64{125, 125, 50}
	for c, w := range g.ColWidths {
		if math.Abs(w-want[c]) > 1e-9 {
			t.Errorf("col %d: got %v, want %v", c, w, want[c])
		}
	}
	if g.Width() > avail+1e-9 {
		t.Fatalf("widths %v exceed available", g.ColWidths)
	}
}

func TestMergedCellMinimumOverflowFails(t *testing.T) {
	// A colspan cell whose minimum exceeds the available width must raise
	// an overflow instead of silently growing the grid past the limit.
	m := simpleMeasurer()
	m.minima["span"] = 150
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{
			{ColSpan: 2, Blocks: []model.Block{&model.Paragraph{Runs: []model.Run{{Text: "span"}}}}},
		}},
		{Cells: []model.TableCell{cell("a", 0), cell("b", 0)}},
	}}
	_, err := Compute(tbl, 100, m)
	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if overflow.Required != 150 || overflow.Available != 100 {
		t.Fatalf("unexpected overflow payload: %+v", overflow)
	}
}

func TestMergedCellMinimumOverFixedColumnsFails(t *testing.T) {
	// Both covered columns are fixed, so the span's deficit cannot be
	// absorbed by raising auto minima; it still counts against the total.
	m := simpleMeasurer()
	m.minima["span"] = 180
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{
			{ColSpan: 2, Blocks: []model.Block{&model.Paragraph{Runs: []model.Run{{Text: "span"}}}}},
		}},
		{Cells: []model.TableCell{cell("a", 60), cell("b", 60)}},
	}}
	_, err := Compute(tbl, 150, m)
	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected OverflowError, got %v", err)
	}
	if overflow.Required != 180 || overflow.Available != 150 {
		t.Fatalf("unexpected overflow payload: %+v", overflow)
	}
}

func TestRowHeightsFromContent(t *testing.T) {
	m := simpleMeasurer()
	m.heights["tall"] = 60
	m.heights["short"] = 20
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{cell("tall", 0), cell("short", 0)}},
		{Cells: []model.TableCell{cell("short", 0), cell("short", 0)}},
	}}
	g, err := Compute(tbl, 200, m)
	if err != nil {
		t.Fatal(err)
	}
	if g.RowHeights[0] != 60 {
		t.Errorf("row 0: got %v, want 60", g.RowHeights[0])
	}
	if g.RowHeights[1] != 20 {
		t.Errorf("row 1: got %v, want 20", g.RowHeights[1])
	}
}

func TestCellPaddingAddsToRowHeight(t *testing.T) {
	m := simpleMeasurer()
	m.heights["padded"] = 30
	c := cell("padded", 0)
	c.Padding = geo.Margins{Top: 4, Bottom: 6}
	tbl := &model.Table{Rows: []model.TableRow{{Cells: []model.TableCell{c}}}}
	g, err := Compute(tbl, 100, m)
	if err != nil {
		t.Fatal(err)
	}
	if g.RowHeights[0] != 40 {
		t.Fatalf("row height: got %v, want 40 (content 30 + padding 10)", g.RowHeights[0])
	}
}

func TestRowSpanDistributesDeficit(t *testing.T) {
	m := simpleMeasurer()
	m.heights["spanner"] = 90
	m.heights["r0"] = 20
	m.heights["r1"] = 40
	tbl := &model.Table{Rows: []model.TableRow{
		{Cells: []model.TableCell{
			{RowSpan: 2, Blocks: []model.Block{&model.Paragraph{Runs: []model.Run{{Text: "spanner"}}}}},
			cell("r0", 0),
		}},
		{Cells: []model.TableCell{cell("r1", 0)}},
	}}
	g, err := Compute(tbl, 200, m)
	if err != nil {
		t.Fatal(err)
	}
	total := g.RowHeights[0] + g.RowHeights[1]
	if math.Abs(total-90) > 1e-9 {
		t.Fatalf("rows covered by span should total 90, got %v (%v)", total, g.RowHeights)
	}
	// Deficit distributes proportionally to content-only heights (20:40).
	if math.Abs(g.RowHeights[0]-30) > 1e-9 || math.Abs(g.RowHeights[1]-60) > 1e-9 {
		t.Fatalf("deficit not proportional: %v", g.RowHeights)
	}
}

func TestExactRowHeightWins(t *testing.T) {
	m := simpleMeasurer()
	m.heights["x"] = 50
	tbl := &model.Table{Rows: []model.TableRow{
		{ExactHeight: 25, Cells: []model.TableCell{cell("x", 0)}},
	}}
	g, err := Compute(tbl, 100, m)
	if err != nil {
		t.Fatal(err)
	}
	if g.RowHeights[0] != 25 {
		t.Fatalf("exact height ignored: %v", g.RowHeights[0])
	}
}
