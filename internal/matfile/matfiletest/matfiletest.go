// Package matfiletest builds small level-5 MAT-files for tests.
package matfiletest

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

const (
	miINT8       = 1
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15

	fieldNameWidth = 32
	flagComplex    = 0x0800
)

// Node is an array to encode.
type Node interface {
	matrix(w *writer, name string) []byte
}

// Var is a named top-level variable.
type Var struct {
	Name  string
	Value Node
}

// Field is a named struct field.
type Field struct {
	Name  string
	Value Node
}

// Options control the file layout.
type Options struct {
	BigEndian bool
	Compress  bool
}

// Build returns the bytes of a MAT-file holding vars.
func Build(opts Options, vars ...Var) []byte {
	w := &writer{order: binary.ByteOrder(binary.LittleEndian)}
	if opts.BigEndian {
		w.order = binary.BigEndian
	}

	var buf bytes.Buffer
	header := bytes.Repeat([]byte{' '}, 116)
	copy(header, "MATLAB 5.0 MAT-file, created by matfiletest")
	buf.Write(header)
	buf.Write(make([]byte, 8))
	buf.Write(w.u16(0x0100))
	buf.Write(w.u16('M'<<8 | 'I'))

	for _, v := range vars {
		el := v.Value.matrix(w, v.Name)
		if opts.Compress {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			_, _ = zw.Write(el)
			_ = zw.Close()
			buf.Write(w.u32(miCOMPRESSED))
			buf.Write(w.u32(uint32(z.Len())))
			buf.Write(z.Bytes())
			continue
		}
		buf.Write(el)
	}
	return buf.Bytes()
}

type writer struct {
	order binary.ByteOrder
}

func (w *writer) u16(v uint16) []byte {
	b := make([]byte, 2)
	w.order.PutUint16(b, v)
	return b
}

func (w *writer) u32(v uint32) []byte {
	b := make([]byte, 4)
	w.order.PutUint32(b, v)
	return b
}

// element encodes one data element, using the small format for payloads
// of up to four bytes.
func (w *writer) element(typ uint32, data []byte) []byte {
	var buf bytes.Buffer
	if len(data) > 0 && len(data) <= 4 && typ != miMATRIX {
		buf.Write(w.u32(uint32(len(data))<<16 | typ))
		buf.Write(data)
		buf.Write(make([]byte, 4-len(data)))
		return buf.Bytes()
	}
	buf.Write(w.u32(typ))
	buf.Write(w.u32(uint32(len(data))))
	buf.Write(data)
	if pad := (8 - len(data)%8) % 8; pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}

func (w *writer) header(class uint8, flags uint32, dims []int32, name string) []byte {
	var buf bytes.Buffer
	fl := make([]byte, 8)
	w.order.PutUint32(fl, flags|uint32(class))
	buf.Write(w.element(miUINT32, fl))

	d := make([]byte, 4*len(dims))
	for i, v := range dims {
		w.order.PutUint32(d[4*i:], uint32(v))
	}
	buf.Write(w.element(miINT32, d))
	buf.Write(w.element(miINT8, []byte(name)))
	return buf.Bytes()
}

func (w *writer) wrap(body ...[]byte) []byte {
	return w.element(miMATRIX, bytes.Join(body, nil))
}

type doubles []float64

// Double is a 1xN double array.
func Double(vals ...float64) Node { return doubles(vals) }

func (n doubles) matrix(w *writer, name string) []byte {
	data := make([]byte, 8*len(n))
	for i, f := range n {
		w.order.PutUint64(data[8*i:], math.Float64bits(f))
	}
	return w.wrap(w.header(6, 0, []int32{1, int32(len(n))}, name), w.element(miDOUBLE, data))
}

type int64s []int64

// Int64 is a 1xN int64 array.
func Int64(vals ...int64) Node { return int64s(vals) }

func (n int64s) matrix(w *writer, name string) []byte {
	data := make([]byte, 8*len(n))
	for i, v := range n {
		w.order.PutUint64(data[8*i:], uint64(v))
	}
	return w.wrap(w.header(14, 0, []int32{1, int32(len(n))}, name), w.element(miINT64, data))
}

type text string

// Char is a 1xN char array.
func Char(s string) Node { return text(s) }

func (n text) matrix(w *writer, name string) []byte {
	units := utf16.Encode([]rune(string(n)))
	data := make([]byte, 2*len(units))
	for i, u := range units {
		w.order.PutUint16(data[2*i:], u)
	}
	return w.wrap(w.header(4, 0, []int32{1, int32(len(units))}, name), w.element(miUINT16, data))
}

type uint64s []uint64

// Uint64 is a 1xN uint64 array.
func Uint64(vals ...uint64) Node { return uint64s(vals) }

func (n uint64s) matrix(w *writer, name string) []byte {
	data := make([]byte, 8*len(n))
	for i, v := range n {
		w.order.PutUint64(data[8*i:], v)
	}
	return w.wrap(w.header(15, 0, []int32{1, int32(len(n))}, name), w.element(miUINT64, data))
}

type complexes struct {
	re, im []float64
}

// Complex is a 1xN complex double array, N being len(re). The parts are
// written as given, so mismatched lengths produce a malformed array.
func Complex(re, im []float64) Node { return complexes{re: re, im: im} }

func (n complexes) matrix(w *writer, name string) []byte {
	part := func(vals []float64) []byte {
		data := make([]byte, 8*len(vals))
		for i, f := range vals {
			w.order.PutUint64(data[8*i:], math.Float64bits(f))
		}
		return w.element(miDOUBLE, data)
	}
	return w.wrap(w.header(6, flagComplex, []int32{1, int32(len(n.re))}, name), part(n.re), part(n.im))
}

type structure struct {
	dims   []int32
	fields []Field
}

// Struct is a 1x1 struct.
func Struct(fields ...Field) Node { return structure{dims: []int32{1, 1}, fields: fields} }

// StructOf declares a struct array of the given dimensions but encodes
// the fields only once, as for a single element.
func StructOf(dims []int32, fields ...Field) Node { return structure{dims: dims, fields: fields} }

func (n structure) matrix(w *writer, name string) []byte {
	width := make([]byte, 4)
	w.order.PutUint32(width, fieldNameWidth)

	names := make([]byte, fieldNameWidth*len(n.fields))
	body := [][]byte{
		w.header(2, 0, n.dims, name),
		w.element(miINT32, width),
		nil,
	}
	for i, f := range n.fields {
		copy(names[i*fieldNameWidth:(i+1)*fieldNameWidth-1], f.Name)
		body = append(body, f.Value.matrix(w, ""))
	}
	body[2] = w.element(miINT8, names)
	return w.wrap(body...)
}

type cells struct {
	dims []int32
	vals []Node
}

// Cell is a 1xN cell array.
func Cell(vals ...Node) Node { return cells{dims: []int32{1, int32(len(vals))}, vals: vals} }

// CellOf declares a cell array of the given dimensions holding vals.
func CellOf(dims []int32, vals ...Node) Node { return cells{dims: dims, vals: vals} }

func (n cells) matrix(w *writer, name string) []byte {
	body := [][]byte{w.header(1, 0, n.dims, name)}
	for _, c := range n.vals {
		body = append(body, c.matrix(w, ""))
	}
	return w.wrap(body...)
}

type empty struct{}

// Empty is an empty array.
func Empty() Node { return empty{} }

func (empty) matrix(w *writer, _ string) []byte {
	return w.element(miMATRIX, nil)
}

type sparse struct{}

// Sparse is a sparse array header, enough to be rejected by decoders.
func Sparse() Node { return sparse{} }

func (sparse) matrix(w *writer, name string) []byte {
	return w.wrap(w.header(5, 0, []int32{1, 1}, name))
}
