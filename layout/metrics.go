package layout

import (
	"errors"
	"fmt"

	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/model"
	"github.com/wudi/docpress/observability"
)

// measurer adapts the font provider and image cache to the measurement
// interfaces of the line breaker and the table engine. Font resolution
// applies the configured fallback chain exactly once per failing family;
// when the fallback chain also fails the error surfaces as a
// MeasurementError for the paginator to recover from.
type measurer struct {
	fonts         *fonts.Provider
	images        *images.Cache
	defaultFamily string
	defaultSize   float64
	fallback      []string
	log           observability.Logger

	substitutions int
}

func newMeasurer(e *Engine, opts Options) *measurer {
	return &measurer{
		fonts:         e.fonts,
		images:        e.images,
		defaultFamily: opts.DefaultFamily,
		defaultSize:   opts.DefaultSize,
		fallback:      opts.Fallback,
		log:           e.log,
	}
}

func (m *measurer) face(style model.RunStyle) (*fonts.Face, float64, error) {
	family := style.Family
	if family == "" {
		family = m.defaultFamily
	}
	size := style.Size
	if size <= 0 {
		size = m.defaultSize
	}
	fstyle := fonts.Style{Bold: style.Bold, Italic: style.Italic}

	face, err := m.fonts.Resolve(family, fstyle)
	if err == nil {
		return face, size, nil
	}
	if !errors.Is(err, fonts.ErrFontNotFound) {
		return nil, 0, err
	}
	for _, fb := range m.fallback {
		face, ferr := m.fonts.Resolve(fb, fstyle)
		if ferr != nil {
			continue
		}
		m.substitutions++
		m.log.Warn("font substituted",
			observability.String("family", family),
			observability.String("fallback", fb),
		)
		return face, size, nil
	}
	return nil, 0, &MeasurementError{Err: fmt.Errorf("no font for family %q and no working fallback: %w", family, err)}
}

// TextWidth implements linebreak.Metrics.
func (m *measurer) TextWidth(style model.RunStyle, s string) (float64, error) {
	face, size, err := m.face(style)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(s, size), nil
}

// LineMetrics implements linebreak.Metrics.
func (m *measurer) LineMetrics(style model.RunStyle) (float64, float64, error) {
	face, size, err := m.face(style)
	if err != nil {
		return 0, 0, err
	}
	return face.Ascent(size), face.Descent(size), nil
}

// ObjectSize implements linebreak.Metrics. Explicit display dimensions win;
// otherwise the image's natural size is used at one point per pixel.
func (m *measurer) ObjectSize(img *model.InlineImage) (float64, float64, error) {
	if img.Width > 0 && img.Height > 0 {
		return img.Width, img.Height, nil
	}
	raster, err := m.images.Get(img.Ref)
	if err != nil {
		return 0, 0, &MeasurementError{SourceID: img.Ref, Err: err}
	}
	w, h := raster.PointSize()
	if img.Width > 0 {
		return img.Width, h * img.Width / w, nil
	}
	if img.Height > 0 {
		return w * img.Height / h, img.Height, nil
	}
	return w, h, nil
}

// lineAdvance applies a paragraph's line-spacing rule to a line's natural
// height.
func lineAdvance(spacing model.LineSpacing, natural float64) float64 {
	switch spacing.Mode {
	case model.SpacingExact:
		if spacing.Value > 0 {
			return spacing.Value
		}
		return natural
	case model.SpacingAtLeast:
		if natural < spacing.Value {
			return spacing.Value
		}
		return natural
	default:
		if spacing.Value > 0 {
			return natural * spacing.Value
		}
		return natural
	}
}

// MinContentWidth implements tablegrid.CellMeasurer: the widest unbreakable
// token of the cell's content.
func (m *measurer) MinContentWidth(cell *model.TableCell) (float64, error) {
	var widest float64
	for _, b := range cell.Blocks {
		switch blk := b.(type) {
		case *model.Paragraph:
			for _, run := range blk.Runs {
				if run.Image != nil {
					w, _, err := m.ObjectSize(run.Image)
					if err != nil {
						return 0, err
					}
					if w > widest {
						widest = w
					}
					continue
				}
				for _, word := range splitWords(run.Text) {
					w, err := m.TextWidth(run.Style, word)
					if err != nil {
						return 0, err
					}
					if w > widest {
						widest = w
					}
				}
			}
		case *model.Image:
			if blk.Width > widest {
				widest = blk.Width
			}
		case *model.Textbox:
			if blk.Width > widest {
				widest = blk.Width
			}
		}
	}
	return widest, nil
}

// splitWords splits on breaking whitespace. The non-breaking space stays
// inside its word, matching the line breaker's tokenizer.
func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}
