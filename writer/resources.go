package writer

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"fmt"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/docpress/fonts"
	"github.com/wudi/docpress/images"
	"github.com/wudi/docpress/pdfobj"
)

// fontRes is one font resource shared across pages.
type fontRes struct {
	name string // resource name, /F1, /F2, ...
	ref  pdfobj.ObjectRef
	face *fonts.Face
}

// imageRes is one image XObject shared across pages.
type imageRes struct {
	name   string // resource name, /Im1, /Im2, ...
	ref    pdfobj.ObjectRef
	smask  pdfobj.ObjectRef // zero when the image is opaque
	raster *images.Raster
}

// resources deduplicates fonts and images across the whole document by
// content hash, assigning resource names in first-use order so output stays
// deterministic.
type resources struct {
	alloc func() pdfobj.ObjectRef

	fonts    []*fontRes
	fontIdx  map[[32]byte]*fontRes
	images   []*imageRes
	imageIdx map[[32]byte]*imageRes
}

func newResources(alloc func() pdfobj.ObjectRef) *resources {
	return &resources{
		alloc:    alloc,
		fontIdx:  make(map[[32]byte]*fontRes),
		imageIdx: make(map[[32]byte]*imageRes),
	}
}

func (r *resources) font(face *fonts.Face) *fontRes {
	var key [32]byte
	if face.Builtin() {
		key = sha256.Sum256([]byte("std:" + face.PostScriptName()))
	} else {
		key = sha256.Sum256(face.Program())
	}
	if f, ok := r.fontIdx[key]; ok {
		return f
	}
	f := &fontRes{
		name: fmt.Sprintf("F%d", len(r.fonts)+1),
		ref:  r.alloc(),
		face: face,
	}
	r.fonts = append(r.fonts, f)
	r.fontIdx[key] = f
	return f
}

func (r *resources) image(raster *images.Raster) *imageRes {
	h := sha256.New()
	h.Write(raster.RGB)
	h.Write(raster.Alpha)
	var key [32]byte
	copy(key[:], h.Sum(nil))
	if img, ok := r.imageIdx[key]; ok {
		return img
	}
	img := &imageRes{
		name:   fmt.Sprintf("Im%d", len(r.images)+1),
		ref:    r.alloc(),
		raster: raster,
	}
	if raster.Alpha != nil {
		img.smask = r.alloc()
	}
	r.images = append(r.images, img)
	r.imageIdx[key] = img
	return img
}

// fontObjects builds the indirect objects for every registered font. A
// builtin face becomes a standard Type1 dictionary; an embedded face becomes
// a TrueType font with descriptor and compressed font program.
func (r *resources) fontObjects() []objDef {
	var defs []objDef
	for _, f := range r.fonts {
		if f.face.Builtin() {
			d := pdfobj.NewDict()
			d.Set("Type", pdfobj.Name("Font"))
			d.Set("Subtype", pdfobj.Name("Type1"))
			d.Set("BaseFont", pdfobj.Name(f.face.PostScriptName()))
			d.Set("Encoding", pdfobj.Name("WinAnsiEncoding"))
			defs = append(defs, objDef{f.ref, d})
			continue
		}
		fileRef := r.alloc()
		descRef := r.alloc()

		d := pdfobj.NewDict()
		d.Set("Type", pdfobj.Name("Font"))
		d.Set("Subtype", pdfobj.Name("TrueType"))
		d.Set("BaseFont", pdfobj.Name(f.face.PostScriptName()))
		d.Set("Encoding", pdfobj.Name("WinAnsiEncoding"))
		d.Set("FirstChar", pdfobj.Integer(32))
		d.Set("LastChar", pdfobj.Integer(255))
		d.Set("Widths", winAnsiWidths(f.face))
		d.Set("FontDescriptor", pdfobj.Ref(descRef))
		defs = append(defs, objDef{f.ref, d})

		desc := pdfobj.NewDict()
		desc.Set("Type", pdfobj.Name("FontDescriptor"))
		desc.Set("FontName", pdfobj.Name(f.face.PostScriptName()))
		desc.Set("Flags", pdfobj.Integer(32))
		asc := f.face.Ascent(1000)
		dsc := f.face.Descent(1000)
		desc.Set("Ascent", pdfobj.Real(asc))
		desc.Set("Descent", pdfobj.Real(-dsc))
		desc.Set("CapHeight", pdfobj.Real(f.face.CapHeight(1000)))
		desc.Set("StemV", pdfobj.Integer(80))
		desc.Set("ItalicAngle", pdfobj.Integer(0))
		desc.Set("FontBBox", pdfobj.NewArray(
			pdfobj.Integer(-600), pdfobj.Real(-dsc),
			pdfobj.Integer(1300), pdfobj.Real(asc),
		))
		desc.Set("FontFile2", pdfobj.Ref(fileRef))
		defs = append(defs, objDef{descRef, desc})

		program := f.face.Program()
		sd := pdfobj.NewDict()
		sd.Set("Filter", pdfobj.Name("FlateDecode"))
		sd.Set("Length1", pdfobj.Integer(len(program)))
		defs = append(defs, objDef{fileRef, pdfobj.NewStream(sd, deflate(program))})
	}
	return defs
}

// imageObjects builds the XObject (and SMask) definitions for every
// registered image.
func (r *resources) imageObjects() []objDef {
	var defs []objDef
	for _, img := range r.images {
		d := pdfobj.NewDict()
		d.Set("Type", pdfobj.Name("XObject"))
		d.Set("Subtype", pdfobj.Name("Image"))
		d.Set("Width", pdfobj.Integer(img.raster.Width))
		d.Set("Height", pdfobj.Integer(img.raster.Height))
		d.Set("ColorSpace", pdfobj.Name("DeviceRGB"))
		d.Set("BitsPerComponent", pdfobj.Integer(8))
		d.Set("Filter", pdfobj.Name("FlateDecode"))
		if img.raster.Alpha != nil {
			d.Set("SMask", pdfobj.Ref(img.smask))
		}
		defs = append(defs, objDef{img.ref, pdfobj.NewStream(d, deflate(img.raster.RGB))})

		if img.raster.Alpha != nil {
			sm := pdfobj.NewDict()
			sm.Set("Type", pdfobj.Name("XObject"))
			sm.Set("Subtype", pdfobj.Name("Image"))
			sm.Set("Width", pdfobj.Integer(img.raster.Width))
			sm.Set("Height", pdfobj.Integer(img.raster.Height))
			sm.Set("ColorSpace", pdfobj.Name("DeviceGray"))
			sm.Set("BitsPerComponent", pdfobj.Integer(8))
			sm.Set("Filter", pdfobj.Name("FlateDecode"))
			defs = append(defs, objDef{img.smask, pdfobj.NewStream(sm, deflate(img.raster.Alpha))})
		}
	}
	return defs
}

// winAnsiWidths builds the Widths array for characters 32..255 under
// WinAnsi encoding, in thousandths of an em.
func winAnsiWidths(face *fonts.Face) *pdfobj.Array {
	arr := pdfobj.NewArray()
	for b := 32; b <= 255; b++ {
		r := charmap.Windows1252.DecodeByte(byte(b))
		if r == '�' {
			arr.Append(pdfobj.Integer(0))
			continue
		}
		arr.Append(pdfobj.Real(face.Advance(r, 1000)))
	}
	return arr
}

// encodeWinAnsi maps text to the WinAnsi single-byte encoding; runes outside
// the code page degrade to '?'.
func encodeWinAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}
