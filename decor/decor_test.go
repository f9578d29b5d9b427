package decor

import (
	"testing"

	"github.com/wudi/docpress/geo"
	"github.com/wudi/docpress/model"
)

var thinBlack = model.Borders{
	Top:    model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
	Bottom: model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
	Left:   model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
	Right:  model.BorderEdge{Style: model.BorderSingle, Width: 0.5},
}

func frame(y, h float64) geo.Rect {
	return geo.Rect{X: 72, Y: y, W: 400, H: h}
}

func TestIdenticalBordersMergeIntoOneStroke(t *testing.T) {
	res := Resolve([]Block{
		{Frame: frame(100, 40), Borders: thinBlack},
		{Frame: frame(140, 60), Borders: thinBlack},
	})
	if len(res.Strokes) != 1 {
		t.Fatalf("expected 1 merged stroke, got %d", len(res.Strokes))
	}
	want := geo.Rect{X: 72, Y: 100, W: 400, H: 100}
	if res.Strokes[0].Rect != want {
		t.Fatalf("merged rect: got %+v, want %+v", res.Strokes[0].Rect, want)
	}
}

func TestMergedStrokeEnclosesSpacingBetweenBlocks(t *testing.T) {
	// 12pt of paragraph spacing between the frames still merges; the
	// enclosing stroke covers the gap.
	res := Resolve([]Block{
		{Frame: frame(100, 40), Borders: thinBlack},
		{Frame: frame(152, 40), Borders: thinBlack},
	})
	if len(res.Strokes) != 1 {
		t.Fatalf("expected 1 merged stroke, got %d", len(res.Strokes))
	}
	if res.Strokes[0].Rect.H != 92 {
		t.Fatalf("merged stroke height: got %v, want 92", res.Strokes[0].Rect.H)
	}
}

func TestMismatchedBordersStayIndependent(t *testing.T) {
	thick := thinBlack
	thick.Top.Width = 2
	res := Resolve([]Block{
		{Frame: frame(100, 40), Borders: thinBlack},
		{Frame: frame(140, 40), Borders: thick},
	})
	if len(res.Strokes) != 2 {
		t.Fatalf("expected 2 independent strokes, got %d", len(res.Strokes))
	}
}

func TestMisalignedFramesDoNotMerge(t *testing.T) {
	res := Resolve([]Block{
		{Frame: geo.Rect{X: 72, Y: 100, W: 400, H: 40}, Borders: thinBlack},
		{Frame: geo.Rect{X: 90, Y: 140, W: 382, H: 40}, Borders: thinBlack},
	})
	if len(res.Strokes) != 2 {
		t.Fatalf("indented block must not join the border group, got %d strokes", len(res.Strokes))
	}
}

func TestShadingPaintedPerBlockEvenWhenBordersMerge(t *testing.T) {
	grey := model.Shading{Set: true, Fill: model.Color{R: 0.9, G: 0.9, B: 0.9}}
	res := Resolve([]Block{
		{Frame: frame(100, 40), Borders: thinBlack, Shading: grey},
		{Frame: frame(140, 40), Borders: thinBlack, Shading: grey},
	})
	if len(res.Strokes) != 1 {
		t.Fatalf("expected merged stroke, got %d", len(res.Strokes))
	}
	if len(res.Fills) != 2 {
		t.Fatalf("shading must stay per block, got %d fills", len(res.Fills))
	}
	if res.Fills[0].Rect != frame(100, 40) || res.Fills[1].Rect != frame(140, 40) {
		t.Fatalf("fill rects track block frames: %+v", res.Fills)
	}
}

func TestShadingMismatchSplitsBorderGroup(t *testing.T) {
	grey := model.Shading{Set: true, Fill: model.Color{R: 0.9, G: 0.9, B: 0.9}}
	res := Resolve([]Block{
		{Frame: frame(100, 40), Borders: thinBlack, Shading: grey},
		{Frame: frame(140, 40), Borders: thinBlack},
	})
	if len(res.Strokes) != 2 {
		t.Fatalf("differing shading spec must split the group, got %d strokes", len(res.Strokes))
	}
}

func TestShadowOffsetsFrame(t *testing.T) {
	res := Resolve([]Block{
		{
			Frame:  frame(100, 40),
			Shadow: model.Shadow{Set: true, OffsetX: 3, OffsetY: 3, Color: model.Color{R: 0.5, G: 0.5, B: 0.5}},
		},
	})
	if len(res.Shadows) != 1 {
		t.Fatalf("expected 1 shadow, got %d", len(res.Shadows))
	}
	want := geo.Rect{X: 75, Y: 103, W: 400, H: 40}
	if res.Shadows[0].Rect != want {
		t.Fatalf("shadow rect: got %+v, want %+v", res.Shadows[0].Rect, want)
	}
}

func TestZeroBordersProduceNoStrokes(t *testing.T) {
	res := Resolve([]Block{
		{Frame: frame(100, 40)},
		{Frame: frame(140, 40)},
	})
	if len(res.Strokes) != 0 || len(res.Fills) != 0 || len(res.Shadows) != 0 {
		t.Fatalf("undecorated blocks must paint nothing: %+v", res)
	}
}
