package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"
)

// MAT-file v5 data element types.
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
	headerSize    = 128
	headerTextLen = 116
	versionMAT5   = 0x0100

	flagComplex = 0x0800
)

// ErrFormat marks any container-level decode failure: truncated input,
// bad magic, unsupported versions, or corrupt elements.
var ErrFormat = errors.New("matfile: invalid container")

// Parse reads a complete MAT container from r.
func Parse(r io.Reader) (*File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("matfile: read: %w", err)
	}
	return ParseBytes(b)
}

// ParseBytes decodes a complete MAT container. All decode failures wrap
// ErrFormat.
func ParseBytes(b []byte) (*File, error) {
	f, err := parseBytes(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return f, nil
}

func parseBytes(b []byte) (*File, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("matfile: truncated header: %d bytes", len(b))
	}

	var order binary.ByteOrder
	switch string(b[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("matfile: bad endian indicator %q", b[126:128])
	}

	if v := order.Uint16(b[124:126]); v != versionMAT5 {
		return nil, fmt.Errorf("matfile: unsupported version 0x%04x", v)
	}

	f := NewFile()
	f.Header = strings.TrimRight(string(b[:headerTextLen]), " \x00")

	d := &decoder{order: order}
	off := headerSize
	for off < len(b) {
		typ, data, next, err := d.element(b, off)
		if err != nil {
			return nil, err
		}

		switch typ {
		case miCOMPRESSED:
			inner, err := inflate(data)
			if err != nil {
				return nil, err
			}
			ityp, idata, _, err := d.element(inner, 0)
			if err != nil {
				return nil, err
			}
			if ityp != miMATRIX {
				return nil, fmt.Errorf("matfile: compressed element holds type %d, want matrix", ityp)
			}
			a, err := d.matrix(idata)
			if err != nil {
				return nil, err
			}
			f.add(a)
		case miMATRIX:
			a, err := d.matrix(data)
			if err != nil {
				return nil, err
			}
			f.add(a)
		default:
			// Subsystem data and other top-level elements are skipped.
		}

		off = next
	}

	return f, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("matfile: zlib: %w", err)
	}
	defer zr.Close()
	inner, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("matfile: inflate: %w", err)
	}
	return inner, nil
}

type decoder struct {
	order binary.ByteOrder
}

// element reads one tagged data element at off, handling the compact
// small-data-element format (type and size packed into the first word).
func (d *decoder) element(b []byte, off int) (typ uint32, data []byte, next int, err error) {
	if off+8 > len(b) {
		return 0, nil, 0, fmt.Errorf("matfile: truncated element tag at offset %d", off)
	}

	raw := d.order.Uint32(b[off : off+4])
	if raw&0xFFFF0000 != 0 {
		// Small data element: size in high 16 bits, payload inside the tag.
		sz := int(raw >> 16)
		if sz > 4 {
			return 0, nil, 0, fmt.Errorf("matfile: small element size %d at offset %d", sz, off)
		}
		return raw & 0xFFFF, b[off+4 : off+4+sz], off + 8, nil
	}

	sz := int(d.order.Uint32(b[off+4 : off+8]))
	if off+8+sz > len(b) {
		return 0, nil, 0, fmt.Errorf("matfile: element of %d bytes overruns input at offset %d", sz, off)
	}
	data = b[off+8 : off+8+sz]

	next = off + 8 + sz
	if raw != miCOMPRESSED {
		// Payloads are padded to 8-byte boundaries; compressed streams are not.
		next = off + 8 + ((sz + 7) &^ 7)
	}
	if next > len(b) {
		next = len(b)
	}
	return raw, data, next, nil
}

func (d *decoder) matrix(b []byte) (*Array, error) {
	off := 0

	typ, flagsData, off, err := d.element(b, off)
	if err != nil {
		return nil, err
	}
	if typ != miUINT32 || len(flagsData) < 8 {
		return nil, fmt.Errorf("matfile: bad array flags element (type %d, %d bytes)", typ, len(flagsData))
	}
	flags := d.order.Uint32(flagsData[0:4])
	class := Class(flags & 0xFF)
	isComplex := flags&flagComplex != 0

	typ, dimsData, off, err := d.element(b, off)
	if err != nil {
		return nil, err
	}
	if typ != miINT32 {
		return nil, fmt.Errorf("matfile: bad dimensions element type %d", typ)
	}
	dims := make([]int, len(dimsData)/4)
	for i := range dims {
		dims[i] = int(int32(d.order.Uint32(dimsData[i*4 : i*4+4])))
	}

	typ, nameData, off, err := d.element(b, off)
	if err != nil {
		return nil, err
	}
	if typ != miINT8 {
		return nil, fmt.Errorf("matfile: bad name element type %d", typ)
	}
	name := string(nameData)

	a := &Array{Name: name, Class: class, Dims: dims}

	switch {
	case class == ClassCell:
		n := a.NumElements()
		a.Cells = make([]*Array, 0, n)
		for i := 0; i < n; i++ {
			typ, cellData, noff, err := d.element(b, off)
			if err != nil {
				return nil, err
			}
			if typ != miMATRIX {
				return nil, fmt.Errorf("matfile: cell %d of %q holds type %d, want matrix", i, name, typ)
			}
			cell, err := d.matrix(cellData)
			if err != nil {
				return nil, err
			}
			a.Cells = append(a.Cells, cell)
			off = noff
		}

	case class == ClassStruct:
		if err := d.structArray(a, b, off); err != nil {
			return nil, err
		}

	case class == ClassChar:
		typ, charData, _, err := d.element(b, off)
		if err != nil {
			return nil, err
		}
		s, err := decodeChars(typ, charData, d.order)
		if err != nil {
			return nil, fmt.Errorf("matfile: char array %q: %w", name, err)
		}
		a.Chars = s

	case a.IsNumeric():
		typ, numData, noff, err := d.element(b, off)
		if err != nil {
			return nil, err
		}
		re, err := d.numeric(typ, numData)
		if err != nil {
			return nil, fmt.Errorf("matfile: numeric array %q: %w", name, err)
		}
		a.Re = re
		if isComplex {
			// Imaginary part present but unused; consume it for alignment.
			if _, _, _, err := d.element(b, noff); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("matfile: unsupported array class %s for %q", class, name)
	}

	return a, nil
}

func (d *decoder) structArray(a *Array, b []byte, off int) (err error) {
	typ, lenData, off, err := d.element(b, off)
	if err != nil {
		return err
	}
	if typ != miINT32 || len(lenData) < 4 {
		return fmt.Errorf("matfile: bad field name length element for %q", a.Name)
	}
	maxLen := int(int32(d.order.Uint32(lenData[0:4])))
	if maxLen <= 0 {
		return fmt.Errorf("matfile: field name length %d for %q", maxLen, a.Name)
	}

	typ, namesData, off, err := d.element(b, off)
	if err != nil {
		return err
	}
	if typ != miINT8 {
		return fmt.Errorf("matfile: bad field names element type %d for %q", typ, a.Name)
	}

	numFields := len(namesData) / maxLen
	a.fieldNames = make([]string, 0, numFields)
	for i := 0; i < numFields; i++ {
		raw := namesData[i*maxLen : (i+1)*maxLen]
		a.fieldNames = append(a.fieldNames, string(bytes.TrimRight(raw, "\x00")))
	}

	n := 1
	for _, dim := range a.Dims {
		n *= dim
	}

	// Field matrices are stored element-major: all fields of element 0,
	// then element 1, and so on.
	a.elems = make([]map[string]*Array, n)
	for e := 0; e < n; e++ {
		fields := make(map[string]*Array, numFields)
		for _, fname := range a.fieldNames {
			typ, fieldData, noff, err := d.element(b, off)
			if err != nil {
				return err
			}
			if typ != miMATRIX {
				return fmt.Errorf("matfile: field %q of %q holds type %d, want matrix", fname, a.Name, typ)
			}
			fv, err := d.matrix(fieldData)
			if err != nil {
				return err
			}
			fields[fname] = fv
			off = noff
		}
		a.elems[e] = fields
	}

	return nil
}

func (d *decoder) numeric(typ uint32, data []byte) ([]float64, error) {
	sz, ok := elementSize(typ)
	if !ok {
		return nil, fmt.Errorf("unsupported numeric element type %d", typ)
	}
	n := len(data) / sz
	out := make([]float64, n)

	for i := 0; i < n; i++ {
		chunk := data[i*sz : (i+1)*sz]
		switch typ {
		case miINT8:
			out[i] = float64(int8(chunk[0]))
		case miUINT8:
			out[i] = float64(chunk[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(chunk)))
		case miUINT16:
			out[i] = float64(d.order.Uint16(chunk))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(chunk)))
		case miUINT32:
			out[i] = float64(d.order.Uint32(chunk))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(chunk)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(chunk))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(chunk)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(chunk))
		}
	}
	return out, nil
}

func elementSize(typ uint32) (int, bool) {
	switch typ {
	case miINT8, miUINT8:
		return 1, true
	case miINT16, miUINT16:
		return 2, true
	case miINT32, miUINT32, miSINGLE:
		return 4, true
	case miINT64, miUINT64, miDOUBLE:
		return 8, true
	}
	return 0, false
}

func decodeChars(typ uint32, data []byte, order binary.ByteOrder) (string, error) {
	switch typ {
	case miINT8, miUINT8, miUTF8:
		return string(data), nil
	case miUINT16, miUTF16:
		units := make([]uint16, len(data)/2)
		for i := range units {
			units[i] = order.Uint16(data[i*2 : i*2+2])
		}
		return string(utf16.Decode(units)), nil
	case miUINT32, miUTF32:
		var sb strings.Builder
		for i := 0; i+4 <= len(data); i += 4 {
			sb.WriteRune(rune(order.Uint32(data[i : i+4])))
		}
		return sb.String(), nil
	}
	return "", fmt.Errorf("unsupported char element type %d", typ)
}
