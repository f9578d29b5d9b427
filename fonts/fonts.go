// Package fonts resolves font families to measurable faces. It carries the
// fourteen built-in PDF base fonts (Helvetica, Times and Courier families)
// with AFM-derived metrics and loads TrueType programs for everything else.
//
// The provider caches parsed font programs keyed by their source path. The
// cache fills lazily on first use and is append-only for the lifetime of a
// render pass; Freeze switches it to read-only so pages could later be
// rendered from multiple goroutines.
package fonts

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrFontNotFound is returned when no registered or built-in font resolves
// the requested family. The caller substitutes its configured fallback
// family; the provider never substitutes on its own.
var ErrFontNotFound = errors.New("fonts: font not found")

// Style selects the weight/slant variant of a family.
type Style struct {
	Bold   bool
	Italic bool
}

type faceKey struct {
	family string
	style  Style
}

// Provider resolves (family, style) pairs to faces and owns the font caches.
type Provider struct {
	registered map[faceKey]*source
	programs   map[string]*ttfProgram // parsed font programs keyed by path
	faces      map[faceKey]*Face
	frozen     bool
}

type source struct {
	path string
	data []byte // set when registered from memory
}

// NewProvider returns an empty provider with the built-in base fonts
// available.
func NewProvider() *Provider {
	return &Provider{
		registered: make(map[faceKey]*source),
		programs:   make(map[string]*ttfProgram),
		faces:      make(map[faceKey]*Face),
	}
}

// RegisterFile maps a family/style to a TrueType font file. The file is
// parsed lazily on first resolution.
func (p *Provider) RegisterFile(family string, style Style, path string) error {
	if p.frozen {
		return errors.New("fonts: provider is frozen")
	}
	if family == "" || path == "" {
		return errors.New("fonts: family and path are required")
	}
	p.registered[faceKey{normalizeFamily(family), style}] = &source{path: path}
	return nil
}

// Register maps a family/style to an in-memory TrueType program.
func (p *Provider) Register(family string, style Style, data []byte) error {
	if p.frozen {
		return errors.New("fonts: provider is frozen")
	}
	if family == "" || len(data) == 0 {
		return errors.New("fonts: family and data are required")
	}
	key := faceKey{normalizeFamily(family), style}
	p.registered[key] = &source{path: "mem:" + family + styleSuffix(style), data: data}
	return nil
}

// Freeze makes all caches read-only. Faces resolved afterwards are still
// usable but are not retained, and measurement results are computed without
// being cached.
func (p *Provider) Freeze() { p.frozen = true }

// Frozen reports whether Freeze has been called.
func (p *Provider) Frozen() bool { return p.frozen }

// Resolve returns the face for the given family and style. Registered
// TrueType fonts take precedence over the built-in base fonts. It fails
// with ErrFontNotFound when neither resolves the family.
func (p *Provider) Resolve(family string, style Style) (*Face, error) {
	key := faceKey{normalizeFamily(family), style}
	if f, ok := p.faces[key]; ok {
		return f, nil
	}

	var face *Face
	if src, ok := p.registered[key]; ok {
		prog, err := p.program(src)
		if err != nil {
			return nil, fmt.Errorf("fonts: load %q: %w", family, err)
		}
		face = &Face{Family: family, FaceStyle: style, ttf: prog, provider: p}
	} else if std := builtinFont(key.family, style); std != nil {
		face = &Face{Family: family, FaceStyle: style, std: std, provider: p}
	} else {
		return nil, fmt.Errorf("fonts: %q: %w", family, ErrFontNotFound)
	}

	face.advances = make(map[rune]float64)
	face.kerns = make(map[runePair]float64)
	if !p.frozen {
		p.faces[key] = face
	}
	return face, nil
}

func (p *Provider) program(src *source) (*ttfProgram, error) {
	if prog, ok := p.programs[src.path]; ok {
		return prog, nil
	}
	data := src.data
	if data == nil {
		var err error
		data, err = os.ReadFile(src.path)
		if err != nil {
			return nil, err
		}
	}
	prog, err := parseTrueType(data)
	if err != nil {
		return nil, err
	}
	if !p.frozen {
		p.programs[src.path] = prog
	}
	return prog, nil
}

type runePair struct{ a, b rune }

// Face is a resolved font variant at an unspecified size. All metric
// methods take the size in points and return points.
type Face struct {
	Family    string
	FaceStyle Style

	std      *stdFont
	ttf      *ttfProgram
	provider *Provider

	advances map[rune]float64 // per-rune advance in 1/1000 em
	kerns    map[runePair]float64
}

// Builtin reports whether the face is one of the fourteen base fonts and
// therefore needs no embedded font program.
func (f *Face) Builtin() bool { return f.std != nil }

// PostScriptName returns the name used in PDF font dictionaries.
func (f *Face) PostScriptName() string {
	if f.std != nil {
		return f.std.name
	}
	return f.ttf.psName
}

// Program returns the raw TrueType program, or nil for built-in fonts.
func (f *Face) Program() []byte {
	if f.ttf == nil {
		return nil
	}
	return f.ttf.data
}

// Ascent returns the distance from the baseline to the top of the em box.
func (f *Face) Ascent(size float64) float64 {
	if f.std != nil {
		return f.std.ascent * size / 1000
	}
	return f.ttf.ascent * size / 1000
}

// Descent returns the distance from the baseline to the bottom of the em
// box as a positive value.
func (f *Face) Descent(size float64) float64 {
	if f.std != nil {
		return f.std.descent * size / 1000
	}
	return f.ttf.descent * size / 1000
}

// CapHeight returns the height of flat capital letters.
func (f *Face) CapHeight(size float64) float64 {
	if f.std != nil {
		return f.std.capHeight * size / 1000
	}
	return f.ttf.capHeight * size / 1000
}

// LineHeight returns the natural (single-spaced) line height.
func (f *Face) LineHeight(size float64) float64 {
	return f.Ascent(size) + f.Descent(size)
}

// Advance returns the horizontal advance of a single rune.
func (f *Face) Advance(r rune, size float64) float64 {
	return f.advance(r) * size / 1000
}

func (f *Face) advance(r rune) float64 {
	if w, ok := f.advances[r]; ok {
		return w
	}
	var w float64
	if f.std != nil {
		w = f.std.advance(r)
	} else {
		w = f.ttf.advance(r)
	}
	if f.provider == nil || !f.provider.frozen {
		f.advances[r] = w
	}
	return w
}

// Kern returns the kerning adjustment applied between prev and next, in
// points. It is zero for fonts without kerning data.
func (f *Face) Kern(prev, next rune, size float64) float64 {
	if f.ttf == nil || prev == 0 {
		return 0
	}
	pair := runePair{prev, next}
	if k, ok := f.kerns[pair]; ok {
		return k * size / 1000
	}
	k := f.ttf.kern(prev, next)
	if f.provider == nil || !f.provider.frozen {
		f.kerns[pair] = k
	}
	return k * size / 1000
}

// TextWidth measures a string including kerning.
func (f *Face) TextWidth(s string, size float64) float64 {
	var total float64
	var prev rune
	for _, r := range s {
		total += f.Advance(r, size)
		if prev != 0 {
			total += f.Kern(prev, r, size)
		}
		prev = r
	}
	return total
}

func normalizeFamily(family string) string {
	return strings.ToLower(strings.TrimSpace(family))
}

func styleSuffix(s Style) string {
	switch {
	case s.Bold && s.Italic:
		return "-bolditalic"
	case s.Bold:
		return "-bold"
	case s.Italic:
		return "-italic"
	}
	return ""
}
