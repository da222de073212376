// Package matfiletest builds small MAT-file v5 containers in memory so
// decoder and parser tests can run against real bytes instead of live
// dataset files.
package matfiletest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
)

const (
	miINT8       = 1
	miINT32      = 5
	miUINT16     = 4
	miUINT32     = 6
	miDOUBLE     = 9
	miMATRIX     = 14
	miCOMPRESSED = 15

	classCell   = 1
	classStruct = 2
	classChar   = 4
	classDouble = 6

	fieldNameLen = 32
)

// Value is any writable MATLAB array value.
type Value interface{ matValue() }

// Numeric is a double array. Dims defaults to 1xlen(Data).
type Numeric struct {
	Dims []int
	Data []float64
}

// Char is a 1xN character row vector.
type Char struct {
	S string
}

// Cell is a cell array. Dims defaults to 1xlen(Items).
type Cell struct {
	Dims  []int
	Items []Value
}

// Struct is a struct array; Elems[e][f] is field f of element e, in
// Fields order. Dims defaults to 1xlen(Elems).
type Struct struct {
	Dims   []int
	Fields []string
	Elems  [][]Value
}

func (Numeric) matValue() {}
func (Char) matValue()    {}
func (Cell) matValue()    {}
func (Struct) matValue()  {}

// Var is a named top-level array.
type Var struct {
	Name string
	V    Value
}

// Build writes a little-endian MAT5 container holding the given variables.
func Build(vars ...Var) []byte {
	var out bytes.Buffer
	writeHeader(&out)
	for _, v := range vars {
		body := matrixBody(v.Name, v.V)
		writeTag(&out, miMATRIX, len(body))
		out.Write(body)
	}
	return out.Bytes()
}

// BuildCompressed is Build with every variable wrapped in a miCOMPRESSED
// element, matching what MATLAB writes by default since R14.
func BuildCompressed(vars ...Var) []byte {
	var out bytes.Buffer
	writeHeader(&out)
	for _, v := range vars {
		var plain bytes.Buffer
		body := matrixBody(v.Name, v.V)
		writeTag(&plain, miMATRIX, len(body))
		plain.Write(body)

		var packed bytes.Buffer
		zw := zlib.NewWriter(&packed)
		_, _ = zw.Write(plain.Bytes())
		_ = zw.Close()

		// Compressed elements are not padded, matching MATLAB output.
		writeTag(&out, miCOMPRESSED, packed.Len())
		out.Write(packed.Bytes())
	}
	return out.Bytes()
}

func writeHeader(out *bytes.Buffer) {
	text := make([]byte, 116)
	copy(text, []byte("MATLAB 5.0 MAT-file, written by matfiletest"))
	for i := len("MATLAB 5.0 MAT-file, written by matfiletest"); i < 116; i++ {
		text[i] = ' '
	}
	out.Write(text)
	out.Write(make([]byte, 8)) // subsystem data offset
	_ = binary.Write(out, binary.LittleEndian, uint16(0x0100))
	out.WriteString("IM")
}

func writeTag(out *bytes.Buffer, typ, size int) {
	_ = binary.Write(out, binary.LittleEndian, uint32(typ))
	_ = binary.Write(out, binary.LittleEndian, uint32(size))
}

// writeElement writes a full (padded) data element.
func writeElement(out *bytes.Buffer, typ int, data []byte) {
	writeTag(out, typ, len(data))
	out.Write(data)
	pad(out, len(data))
}

// writeSmallElement writes a compact element with payload inside the tag.
func writeSmallElement(out *bytes.Buffer, typ int, data []byte) {
	_ = binary.Write(out, binary.LittleEndian, uint32(typ)|uint32(len(data))<<16)
	out.Write(data)
	out.Write(make([]byte, 4-len(data)))
}

func pad(out *bytes.Buffer, n int) {
	if rem := n % 8; rem != 0 {
		out.Write(make([]byte, 8-rem))
	}
}

func matrixBody(name string, v Value) []byte {
	var out bytes.Buffer

	switch val := v.(type) {
	case Numeric:
		dims := orDefault(val.Dims, len(val.Data))
		writeFlags(&out, classDouble)
		writeDims(&out, dims)
		writeName(&out, name)
		data := make([]byte, 8*len(val.Data))
		for i, f := range val.Data {
			binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(f))
		}
		writeElement(&out, miDOUBLE, data)

	case Char:
		writeFlags(&out, classChar)
		writeDims(&out, []int{1, len(val.S)})
		writeName(&out, name)
		data := make([]byte, 2*len(val.S))
		for i, r := range []byte(val.S) {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(r))
		}
		writeElement(&out, miUINT16, data)

	case Cell:
		dims := orDefault(val.Dims, len(val.Items))
		writeFlags(&out, classCell)
		writeDims(&out, dims)
		writeName(&out, name)
		for _, item := range val.Items {
			body := matrixBody("", item)
			writeTag(&out, miMATRIX, len(body))
			out.Write(body)
		}

	case Struct:
		dims := orDefault(val.Dims, len(val.Elems))
		writeFlags(&out, classStruct)
		writeDims(&out, dims)
		writeName(&out, name)

		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, fieldNameLen)
		writeSmallElement(&out, miINT32, lenBuf)

		names := make([]byte, fieldNameLen*len(val.Fields))
		for i, f := range val.Fields {
			copy(names[i*fieldNameLen:], f)
		}
		writeElement(&out, miINT8, names)

		for _, elem := range val.Elems {
			for _, field := range elem {
				body := matrixBody("", field)
				writeTag(&out, miMATRIX, len(body))
				out.Write(body)
			}
		}
	}

	return out.Bytes()
}

func writeFlags(out *bytes.Buffer, class int) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, uint32(class))
	writeElement(out, miUINT32, data)
}

func writeDims(out *bytes.Buffer, dims []int) {
	data := make([]byte, 4*len(dims))
	for i, d := range dims {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(d))
	}
	writeElement(out, miINT32, data)
}

func writeName(out *bytes.Buffer, name string) {
	if len(name) <= 4 {
		writeSmallElement(out, miINT8, []byte(name))
		return
	}
	writeElement(out, miINT8, []byte(name))
}

func orDefault(dims []int, n int) []int {
	if len(dims) > 0 {
		return dims
	}
	return []int{1, n}
}

// Cycle describes one battery test cycle for BatteryFile.
type Cycle struct {
	Type     string
	Temp     float64
	Time     []float64 // datevec; first element is what the parser keeps
	Channels map[string][]float64
	// ChannelOrder fixes the channel field order, since map iteration
	// would not.
	ChannelOrder []string
}

// BatteryFile builds a container with the canonical NASA battery layout:
// one top-level struct named stem whose first field "cycle" is a 1xN
// struct array with fields (type, ambient_temperature, time, data).
func BatteryFile(stem string, cycles []Cycle) []byte {
	return Build(batteryVar(stem, cycles))
}

// BatteryFileCompressed is BatteryFile with zlib-wrapped variables.
func BatteryFileCompressed(stem string, cycles []Cycle) []byte {
	return BuildCompressed(batteryVar(stem, cycles))
}

func batteryVar(stem string, cycles []Cycle) Var {
	elems := make([][]Value, 0, len(cycles))
	for _, c := range cycles {
		channels := Struct{
			Dims:   []int{1, 1},
			Fields: c.ChannelOrder,
			Elems:  [][]Value{make([]Value, 0, len(c.ChannelOrder))},
		}
		for _, name := range c.ChannelOrder {
			channels.Elems[0] = append(channels.Elems[0], Numeric{Data: c.Channels[name]})
		}

		elems = append(elems, []Value{
			Char{S: c.Type},
			Numeric{Dims: []int{1, 1}, Data: []float64{c.Temp}},
			Numeric{Data: c.Time},
			channels,
		})
	}

	cycleList := Struct{
		Fields: []string{"type", "ambient_temperature", "time", "data"},
		Elems:  elems,
	}

	top := Struct{
		Dims:   []int{1, 1},
		Fields: []string{"cycle"},
		Elems:  [][]Value{{cycleList}},
	}

	return Var{Name: stem, V: top}
}
