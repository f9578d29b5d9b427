package fonts

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestResolveBuiltin(t *testing.T) {
	p := NewProvider()
	face, err := p.Resolve("Helvetica", Style{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !face.Builtin() {
		t.Fatal("expected builtin face")
	}
	if got := face.PostScriptName(); got != "Helvetica" {
		t.Fatalf("PostScriptName: got %q", got)
	}
	// 'H' is 722/1000 em wide in Helvetica.
	if w := face.Advance('H', 10); math.Abs(w-7.22) > 1e-9 {
		t.Fatalf("Advance('H', 10): got %v, want 7.22", w)
	}
	if a := face.Ascent(10); math.Abs(a-7.18) > 1e-9 {
		t.Fatalf("Ascent: got %v", a)
	}
}

func TestResolveVariants(t *testing.T) {
	p := NewProvider()
	cases := []struct {
		family string
		style  Style
		want   string
	}{
		{"helvetica", Style{Bold: true}, "Helvetica-Bold"},
		{"Arial", Style{Italic: true}, "Helvetica-Oblique"},
		{"Times New Roman", Style{Bold: true, Italic: true}, "Times-BoldItalic"},
		{"courier", Style{}, "Courier"},
	}
	for _, c := range cases {
		face, err := p.Resolve(c.family, c.style)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", c.family, err)
		}
		if face.PostScriptName() != c.want {
			t.Errorf("Resolve(%q, %+v): got %q, want %q", c.family, c.style, face.PostScriptName(), c.want)
		}
	}
}

func TestResolveNotFound(t *testing.T) {
	p := NewProvider()
	_, err := p.Resolve("No Such Family", Style{})
	if !errors.Is(err, ErrFontNotFound) {
		t.Fatalf("expected ErrFontNotFound, got %v", err)
	}
}

func TestResolveCachesFaces(t *testing.T) {
	p := NewProvider()
	a, err := p.Resolve("Helvetica", Style{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Resolve("helvetica", Style{})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("expected the same cached face for equivalent family names")
	}
}

func TestRegisterTrueType(t *testing.T) {
	p := NewProvider()
	if err := p.Register("Go Regular", Style{}, goregular.TTF); err != nil {
		t.Fatalf("Register: %v", err)
	}
	face, err := p.Resolve("Go Regular", Style{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if face.Builtin() {
		t.Fatal("expected embedded face")
	}
	if len(face.Program()) == 0 {
		t.Fatal("expected font program bytes")
	}
	if w := face.Advance('m', 12); w <= 0 {
		t.Fatalf("Advance('m'): got %v", w)
	}
	if asc := face.Ascent(12); asc <= 0 {
		t.Fatalf("Ascent: got %v", asc)
	}
	// Kerning may legitimately be zero, but must be finite and stable.
	k1 := face.Kern('A', 'V', 12)
	k2 := face.Kern('A', 'V', 12)
	if k1 != k2 {
		t.Fatalf("Kern not stable: %v vs %v", k1, k2)
	}
}

func TestTextWidthMonotonic(t *testing.T) {
	p := NewProvider()
	face, err := p.Resolve("Times", Style{})
	if err != nil {
		t.Fatal(err)
	}
	short := face.TextWidth("fox", 12)
	long := face.TextWidth("foxes", 12)
	if long <= short {
		t.Fatalf("TextWidth not monotonic: %v vs %v", short, long)
	}
}

func TestFreezeStopsCaching(t *testing.T) {
	p := NewProvider()
	face, err := p.Resolve("Helvetica", Style{})
	if err != nil {
		t.Fatal(err)
	}
	p.Freeze()
	if !p.Frozen() {
		t.Fatal("expected frozen provider")
	}
	before := len(face.advances)
	w1 := face.Advance('Q', 10)
	w2 := face.Advance('Q', 10)
	if w1 != w2 {
		t.Fatalf("frozen advance not stable: %v vs %v", w1, w2)
	}
	if len(face.advances) != before {
		t.Fatal("frozen face cached a new advance")
	}
	if err := p.Register("Late", Style{}, goregular.TTF); err == nil {
		t.Fatal("expected registration after Freeze to fail")
	}
}
