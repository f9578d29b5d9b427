// Package pdfobj implements the low-level PDF object model: names, numbers,
// strings, arrays, dictionaries, streams and indirect references, with
// deterministic byte serialization. Dictionary keys serialize in sorted
// order so the same object graph always yields the same bytes.
package pdfobj

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any serializable PDF value.
type Object interface {
	writeTo(b *bytes.Buffer)
}

// ObjectRef identifies an indirect object.
type ObjectRef struct {
	Num int
	Gen int
}

// Name is a PDF name object, serialized with a leading slash.
type Name string

func (n Name) writeTo(b *bytes.Buffer) {
	b.WriteByte('/')
	b.WriteString(string(n))
}

// Integer is a PDF integer.
type Integer int64

func (i Integer) writeTo(b *bytes.Buffer) {
	b.WriteString(strconv.FormatInt(int64(i), 10))
}

// Real is a PDF real number, serialized in fixed notation with trailing
// zeros trimmed.
type Real float64

func (r Real) writeTo(b *bytes.Buffer) {
	b.WriteString(formatReal(float64(r)))
}

// FormatReal renders a number exactly the way Real serializes it; content
// stream operators use it so operands and object values never disagree.
func FormatReal(v float64) string { return formatReal(v) }

func formatReal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = trimZeros(s)
	if s == "-0" {
		s = "0"
	}
	return s
}

func trimZeros(s string) string {
	if !strings.ContainsRune(s, '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

// Bool is a PDF boolean.
type Bool bool

func (v Bool) writeTo(b *bytes.Buffer) {
	if v {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

// Null is the PDF null object.
type Null struct{}

func (Null) writeTo(b *bytes.Buffer) { b.WriteString("null") }

// Str is a PDF literal string. Parentheses, backslashes and control bytes
// are escaped on serialization.
type Str []byte

func (s Str) writeTo(b *bytes.Buffer) {
	b.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				fmt.Fprintf(b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte(')')
}

// Array is an ordered PDF array.
type Array struct {
	Items []Object
}

// NewArray returns an array of the given items.
func NewArray(items ...Object) *Array { return &Array{Items: items} }

// Append adds items to the array.
func (a *Array) Append(items ...Object) { a.Items = append(a.Items, items...) }

func (a *Array) writeTo(b *bytes.Buffer) {
	b.WriteByte('[')
	for i, it := range a.Items {
		if i > 0 {
			b.WriteByte(' ')
		}
		it.writeTo(b)
	}
	b.WriteByte(']')
}

// Dict is a PDF dictionary. Keys serialize in sorted order.
type Dict struct {
	kv map[string]Object
}

// NewDict returns an empty dictionary.
func NewDict() *Dict { return &Dict{kv: make(map[string]Object)} }

// Set stores value under key, replacing any previous value.
func (d *Dict) Set(key string, value Object) {
	if d.kv == nil {
		d.kv = make(map[string]Object)
	}
	d.kv[key] = value
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (Object, bool) {
	v, ok := d.kv[key]
	return v, ok
}

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.kv) }

func (d *Dict) writeTo(b *bytes.Buffer) {
	b.WriteString("<<")
	keys := make([]string, 0, len(d.kv))
	for k := range d.kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte('/')
		b.WriteString(k)
		b.WriteByte(' ')
		d.kv[k].writeTo(b)
	}
	b.WriteString(">>")
}

// Stream is a PDF stream: a dictionary plus raw data. The Length entry is
// set automatically on serialization.
type Stream struct {
	Dict *Dict
	Data []byte
}

// NewStream returns a stream over the given dictionary and data.
func NewStream(dict *Dict, data []byte) *Stream {
	if dict == nil {
		dict = NewDict()
	}
	return &Stream{Dict: dict, Data: data}
}

func (s *Stream) writeTo(b *bytes.Buffer) {
	s.Dict.Set("Length", Integer(len(s.Data)))
	s.Dict.writeTo(b)
	b.WriteString("\nstream\n")
	b.Write(s.Data)
	b.WriteString("\nendstream")
}

// Ref is an indirect reference to another object.
type Ref ObjectRef

func (r Ref) writeTo(b *bytes.Buffer) {
	fmt.Fprintf(b, "%d %d R", r.Num, r.Gen)
}

// Serialize renders an object to its byte form.
func Serialize(o Object) []byte {
	var b bytes.Buffer
	o.writeTo(&b)
	return b.Bytes()
}

// SerializeIndirect renders a full indirect object definition.
func SerializeIndirect(ref ObjectRef, o Object) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %d obj\n", ref.Num, ref.Gen)
	o.writeTo(&b)
	b.WriteString("\nendobj\n")
	return b.Bytes()
}
