package geo

import (
	"math"
	"testing"
)

func TestUnitConversions(t *testing.T) {
	cases := []struct {
		name string
		got  float64
		want float64
	}{
		{"inch", FromInch(1), 72},
		{"mm", FromMM(25.4), 72},
		{"cm", FromCM(2.54), 72},
		{"twips", FromTwips(20), 1},
	}
	for _, c := range cases {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestRectInset(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 100, H: 200}
	in := r.Inset(Margins{Top: 10, Bottom: 20, Left: 5, Right: 15})
	want := Rect{X: 5, Y: 10, W: 80, H: 170}
	if in != want {
		t.Fatalf("Inset: got %+v, want %+v", in, want)
	}
}

func TestRectInsetClampsNegative(t *testing.T) {
	r := Rect{W: 10, H: 10}
	in := r.Inset(Margins{Left: 8, Right: 8, Top: 12})
	if in.W != 0 || in.H != 0 {
		t.Fatalf("expected clamped zero size, got %+v", in)
	}
	if !in.IsEmpty() {
		t.Fatal("expected empty rect")
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	b := Rect{X: 5, Y: 20, W: 10, H: 10}
	u := a.Union(b)
	want := Rect{X: 0, Y: 0, W: 15, H: 30}
	if u != want {
		t.Fatalf("Union: got %+v, want %+v", u, want)
	}
	if got := a.Union(Rect{}); got != a {
		t.Fatalf("union with empty: got %+v", got)
	}
}

func TestContentArea(t *testing.T) {
	area := ContentArea(A4, Margins{Top: 72, Bottom: 72, Left: 72, Right: 72})
	if math.Abs(area.W-(A4.W-144)) > 1e-9 || math.Abs(area.H-(A4.H-144)) > 1e-9 {
		t.Fatalf("unexpected content area: %+v", area)
	}
}
