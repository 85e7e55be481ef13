package table

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies what a cell holds.
type Kind uint8

const (
	Null Kind = iota
	Scalar
	Vector
	Text
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case Text:
		return "text"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one table cell. The zero Value is null.
type Value struct {
	kind Kind
	num  float64
	vec  []float64
	text string
	obj  any
}

// NullValue returns the null cell.
func NullValue() Value {
	return Value{}
}

// ScalarValue returns a numeric cell.
func ScalarValue(f float64) Value {
	return Value{kind: Scalar, num: f}
}

// VectorValue returns a cell holding a copy of v.
func VectorValue(v []float64) Value {
	c := make([]float64, len(v))
	copy(c, v)
	return Value{kind: Vector, vec: c}
}

// TextValue returns a string cell.
func TextValue(s string) Value {
	return Value{kind: Text, text: s}
}

// ObjectValue wraps an arbitrary decoded value. A nil o is null.
func ObjectValue(o any) Value {
	if o == nil {
		return Value{}
	}
	return Value{kind: Object, obj: o}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

// Float returns the scalar held by v.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == Scalar
}

// Floats returns the vector held by v. The slice must not be modified.
func (v Value) Floats() ([]float64, bool) {
	return v.vec, v.kind == Vector
}

// Text returns the string held by v.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == Text
}

// Object returns the object held by v.
func (v Value) Object() (any, bool) {
	return v.obj, v.kind == Object
}

// Interface returns v as nil, float64, []float64, string or the object.
func (v Value) Interface() any {
	switch v.kind {
	case Scalar:
		return v.num
	case Vector:
		return v.vec
	case Text:
		return v.text
	case Object:
		return v.obj
	default:
		return nil
	}
}

// Equal compares kind and content. NaN scalars compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Scalar:
		return sameFloat(v.num, o.num)
	case Vector:
		if len(v.vec) != len(o.vec) {
			return false
		}
		for i := range v.vec {
			if !sameFloat(v.vec[i], o.vec[i]) {
				return false
			}
		}
		return true
	case Text:
		return v.text == o.text
	default:
		return reflect.DeepEqual(v.obj, o.obj)
	}
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Scalar:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Vector:
		parts := make([]string, len(v.vec))
		for i, f := range v.vec {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Text:
		return v.text
	default:
		return fmt.Sprint(v.obj)
	}
}
