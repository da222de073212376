// Package parser turns a decoded MAT container holding the canonical NASA
// battery-cycle layout into a flat list of discharge cycles.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"BattPulse/internal/domain/models"
	"BattPulse/pkg/matfile"
	"BattPulse/pkg/util"
)

var (
	// ErrMissingVariable means the container has no top-level variable
	// matching the file's base name.
	ErrMissingVariable = errors.New("parser: top-level variable not found")

	// ErrMalformedStructure means the fixed nesting assumptions of the
	// battery layout were violated. The parse aborts with no partial
	// results.
	ErrMalformedStructure = errors.New("parser: malformed dataset structure")
)

// Stem returns the file's base name without extension; it names the
// top-level variable the container must carry.
func Stem(filename string) string {
	base := filepath.Base(filename)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// Positions of the fixed cycle sub-fields.
const (
	fieldType = iota
	fieldTemperature
	fieldTimestamp
	fieldChannels
	cycleArity
)

// Parse extracts every discharge cycle from the container. The top-level
// variable named stem must hold the battery layout: a 1x1 struct whose
// first field is the cycle struct array with positional fields
// (type, ambient_temperature, time, data). Cycles of any other type are
// dropped silently. Parsing is deterministic: identical input bytes yield
// structurally identical output, so results are safe to cache by content.
func Parse(f *matfile.File, stem string) ([]models.CycleRecord, error) {
	top, ok := f.Var(stem)
	if !ok {
		return nil, fmt.Errorf("%w: %q (file has %v)", ErrMissingVariable, stem, f.Names())
	}

	cycles, err := cycleList(top)
	if err != nil {
		return nil, err
	}

	out := make([]models.CycleRecord, 0, cycles.NumElements())
	for i := 0; i < cycles.NumElements(); i++ {
		if cycles.NumFields() < cycleArity {
			return nil, fmt.Errorf("%w: cycle entries have %d fields, want %d", ErrMalformedStructure, cycles.NumFields(), cycleArity)
		}

		typeArr, ok := cycles.FieldByIndex(i, fieldType)
		if !ok || typeArr.Class != matfile.ClassChar {
			return nil, fmt.Errorf("%w: cycle %d type field is not char", ErrMalformedStructure, i)
		}
		ctype := models.ParseCycleType(typeArr.String())
		if ctype != models.CycleDischarge {
			continue
		}

		rec, err := decodeCycle(cycles, i)
		if err != nil {
			return nil, err
		}
		rec.Type = ctype
		out = append(out, *rec)
	}

	return out, nil
}

// cycleList walks stem -> first field -> cycle struct array, mirroring the
// container's fixed nesting.
func cycleList(top *matfile.Array) (*matfile.Array, error) {
	if !top.IsStruct() || top.NumElements() < 1 || top.NumFields() < 1 {
		return nil, fmt.Errorf("%w: top-level variable %q is not a record", ErrMalformedStructure, top.Name)
	}
	cycles, ok := top.FieldByIndex(0, 0)
	if !ok || !cycles.IsStruct() {
		return nil, fmt.Errorf("%w: %q has no cycle list", ErrMalformedStructure, top.Name)
	}
	return cycles, nil
}

func decodeCycle(cycles *matfile.Array, i int) (*models.CycleRecord, error) {
	tempArr, ok := cycles.FieldByIndex(i, fieldTemperature)
	if !ok {
		return nil, fmt.Errorf("%w: cycle %d has no temperature field", ErrMalformedStructure, i)
	}
	temp, ok := tempArr.Scalar()
	if !ok {
		return nil, fmt.Errorf("%w: cycle %d temperature is not numeric", ErrMalformedStructure, i)
	}

	timeArr, ok := cycles.FieldByIndex(i, fieldTimestamp)
	if !ok {
		return nil, fmt.Errorf("%w: cycle %d has no time field", ErrMalformedStructure, i)
	}
	ts, err := stringifyTimestamp(timeArr)
	if err != nil {
		return nil, fmt.Errorf("%w: cycle %d: %v", ErrMalformedStructure, i, err)
	}

	channels, ok := cycles.FieldByIndex(i, fieldChannels)
	if !ok || !channels.IsStruct() || channels.NumElements() < 1 {
		return nil, fmt.Errorf("%w: cycle %d channel data is not a record", ErrMalformedStructure, i)
	}

	series, err := decodeChannels(channels, i)
	if err != nil {
		return nil, err
	}

	return &models.CycleRecord{
		Temperature: int(temp),
		Timestamp:   ts,
		Series:      series,
	}, nil
}

// decodeChannels discovers channel names from the data record at parse
// time rather than assuming a fixed schema, then checks the minimal set
// every battery cycle must carry.
func decodeChannels(channels *matfile.Array, cycle int) (models.SeriesData, error) {
	series := make(models.SeriesData, channels.NumFields())
	for _, name := range channels.FieldNames() {
		field, ok := channels.Field(0, name)
		if !ok {
			return nil, fmt.Errorf("%w: cycle %d channel %q missing", ErrMalformedStructure, cycle, name)
		}
		samples, err := seriesOf(field)
		if err != nil {
			return nil, fmt.Errorf("%w: cycle %d channel %q: %v", ErrMalformedStructure, cycle, name, err)
		}
		series[name] = samples
	}

	for _, required := range models.RequiredChannels() {
		if _, ok := series[required]; !ok {
			return nil, fmt.Errorf("%w: cycle %d lacks required channel %q", ErrMalformedStructure, cycle, required)
		}
	}

	return series, nil
}

// seriesOf flattens a channel into samples, unwrapping one level of
// per-sample singleton arrays when the channel arrives as a cell list.
func seriesOf(a *matfile.Array) ([]float64, error) {
	switch {
	case a.IsNumeric():
		out := make([]float64, len(a.Re))
		copy(out, a.Re)
		return out, nil
	case a.Class == matfile.ClassCell:
		out := make([]float64, 0, len(a.Cells))
		for i, cell := range a.Cells {
			v, ok := cell.Scalar()
			if !ok {
				return nil, fmt.Errorf("sample %d is not a numeric singleton", i)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("channel class %s is not a series", a.Class)
}

// stringifyTimestamp keeps the source behavior: the time field is a
// date vector and only its first element is retained, stringified.
func stringifyTimestamp(a *matfile.Array) (string, error) {
	if a.Class == matfile.ClassChar {
		return a.String(), nil
	}
	v, ok := a.Scalar()
	if !ok {
		return "", fmt.Errorf("time field is empty")
	}
	return util.FormatFloat(v), nil
}
