package fonts

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ttfProgram is a parsed TrueType/OpenType font program. Metric values are
// normalized to 1/1000 em.
type ttfProgram struct {
	data       []byte
	font       *sfnt.Font
	buf        sfnt.Buffer
	unitsPerEm sfnt.Units
	ppem       fixed.Int26_6

	psName    string
	ascent    float64
	descent   float64
	capHeight float64

	shapeFace *gofont.Face
	shaper    shaping.HarfbuzzShaper
}

// parseTrueType extracts metrics from a TrueType font and prepares a
// shaping face for kerning lookups.
func parseTrueType(data []byte) (*ttfProgram, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("truetype font data is empty")
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := font.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}

	p := &ttfProgram{
		data:       data,
		font:       font,
		unitsPerEm: unitsPerEm,
		ppem:       fixed.Int26_6(unitsPerEm << 6),
	}

	if ps, _ := font.Name(&p.buf, sfnt.NameIDPostScript); len(ps) > 0 {
		p.psName = strings.ReplaceAll(ps, " ", "")
	}
	if p.psName == "" {
		p.psName = "CustomTT"
	}

	metrics, err := font.Metrics(&p.buf, p.ppem, xfont.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("font metrics: %w", err)
	}
	p.ascent = scaleFixed(metrics.Ascent, unitsPerEm)
	p.descent = scaleFixed(metrics.Descent, unitsPerEm)
	p.capHeight = scaleFixed(metrics.CapHeight, unitsPerEm)
	if p.capHeight == 0 {
		p.capHeight = p.ascent
	}

	// Kerning comes from shaping; a face that fails to parse just means
	// all pair adjustments are zero.
	if face, err := gofont.ParseTTF(bytes.NewReader(data)); err == nil {
		p.shapeFace = face
	}
	return p, nil
}

// advance returns the horizontal advance of r in 1/1000 em, using the
// .notdef glyph for unmapped runes.
func (p *ttfProgram) advance(r rune) float64 {
	gi, err := p.font.GlyphIndex(&p.buf, r)
	if err != nil {
		gi = 0
	}
	adv, err := p.font.GlyphAdvance(&p.buf, gi, p.ppem, xfont.HintingNone)
	if err != nil {
		return 0
	}
	return scaleFixed(adv, p.unitsPerEm)
}

// kern returns the pair adjustment between two runes in 1/1000 em. The pair
// is shaped and the combined advance compared against the isolated
// advances; fonts without kerning data shape to exactly the sum.
func (p *ttfProgram) kern(a, b rune) float64 {
	if p.shapeFace == nil {
		return 0
	}
	pair := p.shapedAdvance([]rune{a, b})
	solo := p.shapedAdvance([]rune{a}) + p.shapedAdvance([]rune{b})
	return pair - solo
}

func (p *ttfProgram) shapedAdvance(runes []rune) float64 {
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      p.shapeFace,
		// 1 em = 1000 units, so advances come back in 1/1000 em.
		Size:     fixed.Int26_6(1000 * 64),
		Script:   language.Latin,
		Language: language.DefaultLanguage(),
	}
	out := p.shaper.Shape(input)
	var total fixed.Int26_6
	for _, g := range out.Glyphs {
		total += g.XAdvance
	}
	return float64(total) / 64.0
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}
