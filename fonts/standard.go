package fonts

// Built-in base font metrics derived from the Adobe AFM files. Widths cover
// the printable ASCII range; everything else falls back to the font's
// default width. Values are in 1/1000 em.

type stdFont struct {
	name         string
	ascent       float64
	descent      float64
	capHeight    float64
	widths       [95]int // runes 0x20..0x7E
	defaultWidth int
}

func (s *stdFont) advance(r rune) float64 {
	if r == '\u00a0' { // non-breaking space measures like a space
		r = ' '
	}
	if r >= 0x20 && r <= 0x7e {
		return float64(s.widths[r-0x20])
	}
	return float64(s.defaultWidth)
}

// builtinFont maps a normalized family name and style to one of the
// fourteen base fonts, or nil.
func builtinFont(family string, style Style) *stdFont {
	switch family {
	case "helvetica", "arial", "sans", "sans-serif":
		switch {
		case style.Bold && style.Italic:
			return &helveticaBoldOblique
		case style.Bold:
			return &helveticaBold
		case style.Italic:
			return &helveticaOblique
		}
		return &helvetica
	case "times", "times new roman", "times-roman", "serif":
		switch {
		case style.Bold && style.Italic:
			return &timesBoldItalic
		case style.Bold:
			return &timesBold
		case style.Italic:
			return &timesItalic
		}
		return &timesRoman
	case "courier", "courier new", "monospace", "mono":
		switch {
		case style.Bold && style.Italic:
			return &courierBoldOblique
		case style.Bold:
			return &courierBold
		case style.Italic:
			return &courierOblique
		}
		return &courier
	}
	return nil
}

var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333,
	278, 278, 556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278,
	584, 584, 584, 556, 1015, 667, 667, 722, 722, 667, 611, 778, 722, 278,
	500, 667, 556, 833, 722, 778, 667, 778, 722, 667, 611, 722, 667, 944,
	667, 667, 611, 278, 278, 278, 469, 556, 333, 556, 556, 500, 556, 556,
	278, 556, 556, 222, 222, 500, 222, 833, 556, 556, 556, 556, 333, 500,
	278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = [95]int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333,
	278, 278, 556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333,
	584, 584, 584, 611, 975, 722, 722, 722, 722, 667, 611, 778, 722, 278,
	556, 722, 611, 833, 722, 778, 667, 778, 722, 667, 611, 722, 667, 944,
	667, 667, 611, 333, 278, 333, 584, 556, 333, 556, 611, 556, 611, 556,
	333, 611, 611, 278, 278, 556, 278, 889, 611, 611, 611, 611, 389, 556,
	333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
}

var timesRomanWidths = [95]int{
	250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333,
	250, 278, 500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278,
	564, 564, 564, 444, 921, 722, 667, 667, 722, 611, 556, 722, 722, 333,
	389, 722, 611, 889, 722, 722, 556, 722, 667, 556, 611, 722, 722, 944,
	722, 722, 611, 333, 278, 333, 469, 500, 333, 444, 500, 444, 500, 444,
	333, 500, 500, 278, 278, 500, 278, 778, 500, 500, 500, 500, 333, 389,
	278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
}

var timesBoldWidths = [95]int{
	250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333,
	250, 278, 500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333,
	570, 570, 570, 500, 930, 722, 667, 722, 722, 667, 611, 778, 778, 389,
	500, 778, 667, 944, 722, 778, 611, 778, 722, 556, 667, 722, 722, 1000,
	722, 722, 667, 333, 278, 333, 581, 500, 333, 500, 556, 444, 556, 444,
	333, 500, 556, 278, 333, 556, 278, 833, 556, 500, 556, 556, 444, 389,
	333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
}

var timesItalicWidths = [95]int{
	250, 333, 420, 500, 500, 833, 778, 214, 333, 333, 500, 675, 250, 333,
	250, 278, 500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333,
	675, 675, 675, 500, 920, 611, 611, 667, 722, 611, 611, 722, 722, 333,
	444, 667, 556, 833, 667, 722, 611, 722, 611, 500, 556, 722, 611, 833,
	611, 556, 556, 389, 278, 389, 422, 500, 333, 500, 500, 444, 500, 444,
	278, 500, 500, 278, 278, 444, 278, 722, 500, 500, 500, 500, 389, 389,
	278, 500, 444, 667, 444, 444, 389, 400, 275, 400, 541,
}

var timesBoldItalicWidths = [95]int{
	250, 389, 555, 500, 500, 833, 778, 278, 333, 333, 500, 570, 250, 333,
	250, 278, 500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333,
	570, 570, 570, 500, 832, 667, 667, 667, 722, 667, 667, 722, 778, 389,
	500, 667, 611, 889, 722, 722, 611, 722, 667, 556, 611, 722, 667, 889,
	667, 611, 611, 333, 278, 333, 570, 500, 333, 500, 500, 444, 500, 444,
	333, 500, 556, 278, 278, 500, 278, 778, 556, 500, 500, 500, 389, 389,
	278, 556, 444, 667, 500, 444, 389, 348, 220, 348, 570,
}

var courierWidths = func() [95]int {
	var w [95]int
	for i := range w {
		w[i] = 600
	}
	return w
}()

var (
	helvetica = stdFont{
		name: "Helvetica", ascent: 718, descent: 207, capHeight: 718,
		widths: helveticaWidths, defaultWidth: 556,
	}
	helveticaBold = stdFont{
		name: "Helvetica-Bold", ascent: 718, descent: 207, capHeight: 718,
		widths: helveticaBoldWidths, defaultWidth: 556,
	}
	// Oblique variants share the upright widths.
	helveticaOblique = stdFont{
		name: "Helvetica-Oblique", ascent: 718, descent: 207, capHeight: 718,
		widths: helveticaWidths, defaultWidth: 556,
	}
	helveticaBoldOblique = stdFont{
		name: "Helvetica-BoldOblique", ascent: 718, descent: 207, capHeight: 718,
		widths: helveticaBoldWidths, defaultWidth: 556,
	}
	timesRoman = stdFont{
		name: "Times-Roman", ascent: 683, descent: 217, capHeight: 662,
		widths: timesRomanWidths, defaultWidth: 500,
	}
	timesBold = stdFont{
		name: "Times-Bold", ascent: 683, descent: 217, capHeight: 676,
		widths: timesBoldWidths, defaultWidth: 500,
	}
	timesItalic = stdFont{
		name: "Times-Italic", ascent: 683, descent: 217, capHeight: 653,
		widths: timesItalicWidths, defaultWidth: 500,
	}
	timesBoldItalic = stdFont{
		name: "Times-BoldItalic", ascent: 683, descent: 217, capHeight: 669,
		widths: timesBoldItalicWidths, defaultWidth: 500,
	}
	courier = stdFont{
		name: "Courier", ascent: 629, descent: 157, capHeight: 562,
		widths: courierWidths, defaultWidth: 600,
	}
	courierBold = stdFont{
		name: "Courier-Bold", ascent: 629, descent: 157, capHeight: 562,
		widths: courierWidths, defaultWidth: 600,
	}
	courierOblique = stdFont{
		name: "Courier-Oblique", ascent: 629, descent: 157, capHeight: 562,
		widths: courierWidths, defaultWidth: 600,
	}
	courierBoldOblique = stdFont{
		name: "Courier-BoldOblique", ascent: 629, descent: 157, capHeight: 562,
		widths: courierWidths, defaultWidth: 600,
	}
)
