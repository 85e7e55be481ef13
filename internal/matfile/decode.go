package matfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/klauspost/compress/zlib"
)

var (
	// ErrNotMATFile is returned when the input lacks a level-5 header.
	ErrNotMATFile = errors.New("not a level-5 MAT-file")
	// ErrUnsupported is returned for array classes this package cannot decode.
	ErrUnsupported = errors.New("unsupported MAT-file content")
	// ErrCorrupt is returned when an element overruns its container.
	ErrCorrupt = errors.New("corrupt MAT-file")
)

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17
	miUTF32      = 18
)

const (
	headerSize  = 128
	version5    = 0x0100
	flagComplex = 0x0800
	flagLogical = 0x0200

	// tagSize is the smallest encoding of a data element.
	tagSize = 8
	// maxFieldless bounds struct arrays without fields, whose elements
	// occupy no bytes in the file.
	maxFieldless = 1 << 16
)

// File is a decoded MAT-file.
type File struct {
	// Description is the text field of the header.
	Description string
	// Names lists the top-level variables in file order.
	Names     []string
	variables map[string]*Array
}

// Variable returns a top-level variable by name.
func (f *File) Variable(name string) (*Array, bool) {
	a, ok := f.variables[name]
	return a, ok
}

// Decode reads a whole MAT-file from r.
func Decode(r io.Reader) (*File, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read MAT-file: %w", err)
	}
	return DecodeBytes(raw)
}

// DecodeBytes decodes an in-memory MAT-file.
func DecodeBytes(raw []byte) (*File, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotMATFile, len(raw))
	}

	var order binary.ByteOrder
	switch string(raw[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad endian indicator", ErrNotMATFile)
	}
	if v := order.Uint16(raw[124:126]); v != version5 {
		return nil, fmt.Errorf("%w: version %#04x", ErrNotMATFile, v)
	}

	d := decoder{order: order}
	f := &File{
		Description: strings.TrimRight(string(raw[:116]), " \x00"),
		variables:   map[string]*Array{},
	}
	if err := d.top(raw[headerSize:], f); err != nil {
		return nil, err
	}
	return f, nil
}

type decoder struct {
	order binary.ByteOrder
}

type element struct {
	typ  uint32
	data []byte
}

// next splits the first data element off buf.
func (d decoder) next(buf []byte) (element, []byte, error) {
	if len(buf) < 8 {
		return element{}, nil, fmt.Errorf("%w: truncated tag", ErrCorrupt)
	}

	w0 := d.order.Uint32(buf[0:4])
	if n := w0 >> 16; n != 0 {
		if n > 4 {
			return element{}, nil, fmt.Errorf("%w: small element of %d bytes", ErrCorrupt, n)
		}
		return element{typ: w0 & 0xffff, data: buf[4 : 4+n]}, buf[8:], nil
	}

	n := int(d.order.Uint32(buf[4:8]))
	if n < 0 || 8+n > len(buf) {
		return element{}, nil, fmt.Errorf("%w: element of %d bytes overruns %d", ErrCorrupt, n, len(buf)-8)
	}
	el := element{typ: w0, data: buf[8 : 8+n]}

	consumed := 8 + n
	if w0 != miCOMPRESSED {
		consumed = 8 + (n+7)/8*8
	}
	if consumed > len(buf) {
		consumed = len(buf)
	}
	return el, buf[consumed:], nil
}

func (d decoder) top(buf []byte, f *File) error {
	for len(buf) > 0 {
		el, rest, err := d.next(buf)
		if err != nil {
			return err
		}
		buf = rest

		switch el.typ {
		case miCOMPRESSED:
			inflated, err := inflate(el.data)
			if err != nil {
				return err
			}
			if err := d.top(inflated, f); err != nil {
				return err
			}
		case miMATRIX:
			a, err := d.matrix(el.data)
			if err != nil {
				return err
			}
			if _, dup := f.variables[a.Name]; !dup {
				f.Names = append(f.Names, a.Name)
			}
			f.variables[a.Name] = a
		}
	}
	return nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

// matrix decodes the body of a miMATRIX element.
func (d decoder) matrix(buf []byte) (*Array, error) {
	if len(buf) == 0 {
		return &Array{Class: ClassDouble, Dims: []int{0, 0}}, nil
	}

	flags, buf, err := d.next(buf)
	if err != nil {
		return nil, err
	}
	if len(flags.data) < 4 {
		return nil, fmt.Errorf("%w: short array flags", ErrCorrupt)
	}
	fw := d.order.Uint32(flags.data[0:4])
	a := &Array{
		Class:   Class(fw & 0xff),
		Complex: fw&flagComplex != 0,
		Logical: fw&flagLogical != 0,
	}

	dims, buf, err := d.next(buf)
	if err != nil {
		return nil, err
	}
	_, ints, err := d.numbers(dims)
	if err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}
	for _, n := range ints {
		if n < 0 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%w: dimension %d", ErrCorrupt, n)
		}
		a.Dims = append(a.Dims, int(n))
	}

	name, buf, err := d.next(buf)
	if err != nil {
		return nil, err
	}
	a.Name = string(name.data)

	switch {
	case a.Class.IsNumeric():
		err = d.numeric(a, buf)
	case a.Class == ClassChar:
		err = d.char(a, buf)
	case a.Class == ClassStruct || a.Class == ClassObject:
		err = d.structure(a, buf)
	case a.Class == ClassCell:
		err = d.cell(a, buf)
	default:
		err = fmt.Errorf("%w: %s array %q", ErrUnsupported, a.Class, a.Name)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (d decoder) numeric(a *Array, buf []byte) error {
	re, buf, err := d.next(buf)
	if err != nil {
		return err
	}
	a.Real, a.Ints, err = d.numbers(re)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	if !a.Class.IsInteger() {
		a.Ints = nil
	} else if a.Ints == nil {
		a.Ints = make([]int64, len(a.Real))
		for i, f := range a.Real {
			a.Ints[i] = int64(f)
		}
	}

	if a.Complex {
		im, _, err := d.next(buf)
		if err != nil {
			return err
		}
		if a.Imag, _, err = d.numbers(im); err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
		if len(a.Imag) != len(a.Real) {
			return fmt.Errorf("%w: %s has %d real and %d imaginary parts", ErrCorrupt, a.Name, len(a.Real), len(a.Imag))
		}
	}
	return nil
}

// numbers converts a numeric element to float64, and also to int64 when
// the storage type is an integer type.
func (d decoder) numbers(el element) ([]float64, []int64, error) {
	size := map[uint32]int{
		miINT8: 1, miUINT8: 1, miINT16: 2, miUINT16: 2, miINT32: 4, miUINT32: 4,
		miSINGLE: 4, miDOUBLE: 8, miINT64: 8, miUINT64: 8,
	}[el.typ]
	if size == 0 {
		return nil, nil, fmt.Errorf("%w: numeric data of type %d", ErrUnsupported, el.typ)
	}
	n := len(el.data) / size
	floats := make([]float64, n)
	var ints []int64
	if el.typ != miSINGLE && el.typ != miDOUBLE {
		ints = make([]int64, n)
	}

	for i := 0; i < n; i++ {
		b := el.data[i*size : (i+1)*size]
		switch el.typ {
		case miDOUBLE:
			floats[i] = math.Float64frombits(d.order.Uint64(b))
		case miSINGLE:
			floats[i] = float64(math.Float32frombits(d.order.Uint32(b)))
		case miINT8:
			ints[i] = int64(int8(b[0]))
		case miUINT8:
			ints[i] = int64(b[0])
		case miINT16:
			ints[i] = int64(int16(d.order.Uint16(b)))
		case miUINT16:
			ints[i] = int64(d.order.Uint16(b))
		case miINT32:
			ints[i] = int64(int32(d.order.Uint32(b)))
		case miUINT32:
			ints[i] = int64(d.order.Uint32(b))
		case miINT64:
			ints[i] = int64(d.order.Uint64(b))
		case miUINT64:
			// Saturates; floats keeps the magnitude.
			u := d.order.Uint64(b)
			if u > math.MaxInt64 {
				u = math.MaxInt64
			}
			ints[i] = int64(u)
		}
		if ints != nil {
			floats[i] = float64(ints[i])
			if el.typ == miUINT64 {
				floats[i] = float64(d.order.Uint64(b))
			}
		}
	}
	return floats, ints, nil
}

func (d decoder) char(a *Array, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	el, _, err := d.next(buf)
	if err != nil {
		return err
	}

	var runes []rune
	switch el.typ {
	case miUTF8:
		runes = []rune(string(el.data))
	case miUINT16, miUTF16:
		units := make([]uint16, len(el.data)/2)
		for i := range units {
			units[i] = d.order.Uint16(el.data[2*i:])
		}
		runes = utf16.Decode(units)
	case miUINT8, miINT8:
		runes = make([]rune, len(el.data))
		for i, b := range el.data {
			runes[i] = rune(b)
		}
	case miUTF32, miUINT32, miINT32:
		runes = make([]rune, len(el.data)/4)
		for i := range runes {
			runes[i] = rune(d.order.Uint32(el.data[4*i:]))
		}
	default:
		return fmt.Errorf("%w: char data of type %d", ErrUnsupported, el.typ)
	}

	a.Text = charRows(runes, a.Dims)
	return nil
}

// charRows turns column-major char data into newline separated rows.
func charRows(runes []rune, dims []int) string {
	if len(dims) < 2 || dims[0] <= 1 || dims[1] < 1 || len(runes) != dims[0]*dims[1] {
		return string(runes)
	}
	rows, cols := dims[0], dims[1]
	lines := make([]string, rows)
	for r := 0; r < rows; r++ {
		line := make([]rune, cols)
		for c := 0; c < cols; c++ {
			line[c] = runes[c*rows+r]
		}
		lines[r] = strings.TrimRight(string(line), " ")
	}
	return strings.Join(lines, "\n")
}

func (d decoder) structure(a *Array, buf []byte) error {
	var err error
	if a.Class == ClassObject {
		var cn element
		if cn, buf, err = d.next(buf); err != nil {
			return err
		}
		a.ClassName = string(cn.data)
	}

	nameLen, buf, err := d.next(buf)
	if err != nil {
		return err
	}
	_, lens, err := d.numbers(nameLen)
	if err != nil || len(lens) == 0 || lens[0] <= 0 {
		return fmt.Errorf("%w: field name length of %s", ErrCorrupt, a.Name)
	}
	width := int(lens[0])

	names, buf, err := d.next(buf)
	if err != nil {
		return err
	}
	for i := 0; i+width <= len(names.data); i += width {
		a.FieldOrder = append(a.FieldOrder, string(bytes.TrimRight(names.data[i:i+width], "\x00")))
	}

	limit := maxFieldless
	if len(a.FieldOrder) > 0 {
		limit = len(buf) / (tagSize * len(a.FieldOrder))
	}
	n, err := elementCount(a, limit)
	if err != nil {
		return err
	}
	a.Fields = make([]map[string]*Array, n)
	for e := 0; e < n; e++ {
		fields := make(map[string]*Array, len(a.FieldOrder))
		for _, fname := range a.FieldOrder {
			var el element
			if el, buf, err = d.next(buf); err != nil {
				return fmt.Errorf("%s.%s: %w", a.Name, fname, err)
			}
			if el.typ != miMATRIX {
				return fmt.Errorf("%w: field %s.%s has element type %d", ErrCorrupt, a.Name, fname, el.typ)
			}
			f, err := d.matrix(el.data)
			if err != nil {
				return fmt.Errorf("%s.%s: %w", a.Name, fname, err)
			}
			f.Name = fname
			fields[fname] = f
		}
		a.Fields[e] = fields
	}
	return nil
}

func (d decoder) cell(a *Array, buf []byte) error {
	n, err := elementCount(a, len(buf)/tagSize)
	if err != nil {
		return err
	}
	a.Cells = make([]*Array, n)
	for i := 0; i < n; i++ {
		el, rest, err := d.next(buf)
		if err != nil {
			return fmt.Errorf("%s{%d}: %w", a.Name, i+1, err)
		}
		buf = rest
		c, err := d.matrix(el.data)
		if err != nil {
			return fmt.Errorf("%s{%d}: %w", a.Name, i+1, err)
		}
		a.Cells[i] = c
	}
	return nil
}

// elementCount returns the number of elements of a container array, or
// ErrCorrupt when its dimensions promise more elements than limit.
func elementCount(a *Array, limit int) (int, error) {
	if len(a.Dims) == 0 {
		return 0, nil
	}
	n := 1
	for _, d := range a.Dims {
		if d != 0 && n > limit/d {
			return 0, fmt.Errorf("%w: %s dimensions %v exceed the %d elements its data can hold", ErrCorrupt, a.Name, a.Dims, limit)
		}
		n *= d
	}
	if n > limit {
		return 0, fmt.Errorf("%w: %s dimensions %v exceed the %d elements its data can hold", ErrCorrupt, a.Name, a.Dims, limit)
	}
	return n, nil
}
