// Package matfile reads Level 5 MAT-file binary containers: the layout
// produced by MATLAB save() and consumed by scipy.io.loadmat. Only the
// subset needed for structured battery datasets is implemented: numeric,
// char, cell and struct arrays, plus zlib-compressed elements. Sparse
// matrices, objects and imaginary parts are skipped.
package matfile

import (
	"fmt"
	"strings"
)

// Class identifies the MATLAB array class of an element.
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

func (c Class) String() string {
	switch c {
	case ClassCell:
		return "cell"
	case ClassStruct:
		return "struct"
	case ClassObject:
		return "object"
	case ClassChar:
		return "char"
	case ClassSparse:
		return "sparse"
	case ClassDouble, ClassSingle,
		ClassInt8, ClassUint8, ClassInt16, ClassUint16,
		ClassInt32, ClassUint32, ClassInt64, ClassUint64:
		return "numeric"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// File is a parsed MAT container: an ordered set of named top-level arrays.
type File struct {
	Header string

	vars  map[string]*Array
	order []string
}

// Var returns the top-level array with the given name.
func (f *File) Var(name string) (*Array, bool) {
	a, ok := f.vars[name]
	return a, ok
}

// Names returns top-level variable names in file order.
func (f *File) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

func (f *File) add(a *Array) {
	if a == nil || a.Name == "" {
		return
	}
	if _, dup := f.vars[a.Name]; !dup {
		f.order = append(f.order, a.Name)
	}
	f.vars[a.Name] = a
}

// NewFile assembles a File from top-level arrays. Intended for tests and
// callers that synthesize containers without going through binary decode.
func NewFile(vars ...*Array) *File {
	f := &File{vars: make(map[string]*Array)}
	for _, v := range vars {
		f.add(v)
	}
	return f
}

// Array is one MATLAB array: numeric data, characters, cells or a struct
// array, depending on Class. Numeric data is promoted to float64 in
// column-major order, matching the on-disk layout.
type Array struct {
	Name  string
	Class Class
	Dims  []int

	// Re holds numeric data (real part), flattened.
	Re []float64
	// Chars holds character data.
	Chars string
	// Cells holds cell array elements, column-major.
	Cells []*Array

	fieldNames []string
	elems      []map[string]*Array
}

// IsNumeric reports whether the array holds numeric data.
func (a *Array) IsNumeric() bool {
	return a.Class >= ClassDouble && a.Class <= ClassUint64
}

// IsStruct reports whether the array is a struct array.
func (a *Array) IsStruct() bool {
	return a.Class == ClassStruct
}

// NumElements returns the number of elements (product of dimensions).
func (a *Array) NumElements() int {
	if a.Class == ClassStruct {
		return len(a.elems)
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	if len(a.Dims) == 0 {
		return 0
	}
	return n
}

// FieldNames returns struct field names in declaration order.
func (a *Array) FieldNames() []string {
	out := make([]string, len(a.fieldNames))
	copy(out, a.fieldNames)
	return out
}

// NumFields returns the number of struct fields.
func (a *Array) NumFields() int {
	return len(a.fieldNames)
}

// Field returns the named field of struct element i.
func (a *Array) Field(i int, name string) (*Array, bool) {
	if a.Class != ClassStruct || i < 0 || i >= len(a.elems) {
		return nil, false
	}
	v, ok := a.elems[i][name]
	return v, ok
}

// FieldByIndex returns field j (declaration order) of struct element i.
func (a *Array) FieldByIndex(i, j int) (*Array, bool) {
	if a.Class != ClassStruct || i < 0 || i >= len(a.elems) {
		return nil, false
	}
	if j < 0 || j >= len(a.fieldNames) {
		return nil, false
	}
	v, ok := a.elems[i][a.fieldNames[j]]
	return v, ok
}

// Scalar returns the first numeric value. ok is false for empty or
// non-numeric arrays.
func (a *Array) Scalar() (float64, bool) {
	if !a.IsNumeric() || len(a.Re) == 0 {
		return 0, false
	}
	return a.Re[0], true
}

// String returns character data with trailing NULs removed.
func (a *Array) String() string {
	return strings.TrimRight(a.Chars, "\x00")
}

// NewNumeric builds a double array.
func NewNumeric(name string, dims []int, values []float64) *Array {
	return &Array{Name: name, Class: ClassDouble, Dims: dims, Re: values}
}

// NewChar builds a 1xN char array.
func NewChar(name, s string) *Array {
	return &Array{Name: name, Class: ClassChar, Dims: []int{1, len(s)}, Chars: s}
}

// NewCell builds a cell array.
func NewCell(name string, dims []int, cells []*Array) *Array {
	return &Array{Name: name, Class: ClassCell, Dims: dims, Cells: cells}
}

// NewStruct builds a struct array. elems holds one field map per element.
func NewStruct(name string, dims []int, fields []string, elems []map[string]*Array) *Array {
	return &Array{Name: name, Class: ClassStruct, Dims: dims, fieldNames: fields, elems: elems}
}
