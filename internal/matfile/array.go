// Package matfile decodes MATLAB level-5 MAT-files into a tree of arrays.
//
// Numeric, logical, char, struct, object and cell arrays are supported,
// compressed or not, in either byte order. Sparse arrays, function handles
// and opaque objects are rejected with ErrUnsupported.
//
// Fields are addressed with dotted paths. A missing path is reported as
// absent, never as an error:
//
//	f, err := matfile.Decode(r)
//	if err != nil {
//	    return err
//	}
//	rec, _ := f.Variable("myDataStruct")
//	if v, ok := rec.Lookup("BLM.signal"); ok {
//	    ...
//	}
package matfile

import (
	"fmt"
	"strings"
)

// Class is the MATLAB array class.
type Class uint8

const (
	ClassCell   Class = 1
	ClassStruct Class = 2
	ClassObject Class = 3
	ClassChar   Class = 4
	ClassSparse Class = 5
	ClassDouble Class = 6
	ClassSingle Class = 7
	ClassInt8   Class = 8
	ClassUint8  Class = 9
	ClassInt16  Class = 10
	ClassUint16 Class = 11
	ClassInt32  Class = 12
	ClassUint32 Class = 13
	ClassInt64  Class = 14
	ClassUint64 Class = 15
)

var classNames = map[Class]string{
	ClassCell:   "cell",
	ClassStruct: "struct",
	ClassObject: "object",
	ClassChar:   "char",
	ClassSparse: "sparse",
	ClassDouble: "double",
	ClassSingle: "single",
	ClassInt8:   "int8",
	ClassUint8:  "uint8",
	ClassInt16:  "int16",
	ClassUint16: "uint16",
	ClassInt32:  "int32",
	ClassUint32: "uint32",
	ClassInt64:  "int64",
	ClassUint64: "uint64",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// IsNumeric reports whether c holds numbers.
func (c Class) IsNumeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// IsInteger reports whether c is an integer class.
func (c Class) IsInteger() bool {
	return c >= ClassInt8 && c <= ClassUint64
}

// Array is one decoded MATLAB array. Which fields are set depends on
// Class: numeric arrays fill Real (and Imag when Complex, Ints for integer
// classes), char arrays fill Text, struct and object arrays fill Fields
// with one map per element, and cell arrays fill Cells. Element data is
// column-major, as stored.
type Array struct {
	Name       string
	Class      Class
	Dims       []int
	Complex    bool
	Logical    bool
	Real       []float64
	Imag       []float64
	Ints       []int64
	Text       string
	ClassName  string
	FieldOrder []string
	Fields     []map[string]*Array
	Cells      []*Array
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if len(a.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// IsStruct reports whether a is a struct or object array.
func (a *Array) IsStruct() bool {
	return a.Class == ClassStruct || a.Class == ClassObject
}

// Field returns the named field of the first element of a struct array.
func (a *Array) Field(name string) (*Array, bool) {
	if a == nil || !a.IsStruct() || len(a.Fields) == 0 {
		return nil, false
	}
	f, ok := a.Fields[0][name]
	return f, ok
}

// Lookup resolves a dotted field path, descending through the first
// element of each struct on the way.
func (a *Array) Lookup(path string) (*Array, bool) {
	cur := a
	for _, seg := range strings.Split(path, ".") {
		next, ok := cur.Field(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Value converts a into plain Go values: float64, int64, bool, complex128
// or string for single elements, slices of those for larger arrays,
// map[string]any for a single struct, []map[string]any for struct arrays
// and []any for cells. Empty numeric arrays yield an empty slice.
func (a *Array) Value() any {
	switch {
	case a.Class == ClassChar:
		return a.Text
	case a.IsStruct():
		elems := make([]map[string]any, len(a.Fields))
		for i, fields := range a.Fields {
			m := make(map[string]any, len(fields))
			for name, f := range fields {
				if f != nil {
					m[name] = f.Value()
				} else {
					m[name] = nil
				}
			}
			elems[i] = m
		}
		if len(elems) == 1 {
			return elems[0]
		}
		return elems
	case a.Class == ClassCell:
		out := make([]any, len(a.Cells))
		for i, c := range a.Cells {
			if c != nil {
				out[i] = c.Value()
			}
		}
		return out
	case a.Logical:
		out := make([]bool, len(a.Real))
		for i, f := range a.Real {
			out[i] = f != 0
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	case a.Complex:
		out := make([]complex128, len(a.Real))
		for i := range a.Real {
			out[i] = complex(a.Real[i], a.Imag[i])
		}
		if len(out) == 1 {
			return out[0]
		}
		return out
	case a.Class.IsInteger():
		if len(a.Ints) == 1 {
			return a.Ints[0]
		}
		return append([]int64{}, a.Ints...)
	default:
		if len(a.Real) == 1 {
			return a.Real[0]
		}
		return append([]float64{}, a.Real...)
	}
}

func (a *Array) String() string {
	dims := make([]string, len(a.Dims))
	for i, d := range a.Dims {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%s %s[%s]", a.Name, a.Class, strings.Join(dims, "x"))
}
