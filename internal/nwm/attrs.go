package nwm

import (
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

type number interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// packing holds the CF mask-and-scale attributes of a variable.
type packing struct {
	fill       float64
	hasFill    bool
	missing    float64
	hasMissing bool
	scale      float64
	offset     float64
	// bits is 32 when the scale or offset is stored as float32, 64 when stored
	// as float64 and 0 when the variable is not packed.
	bits int
}

func newPacking(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if attrs == nil {
		return p
	}
	p.fill, p.hasFill = attrFloat(attrs, "_FillValue")
	p.missing, p.hasMissing = attrFloat(attrs, "missing_value")
	for _, key := range []string{"scale_factor", "add_offset"} {
		raw, ok := attrs.Get(key)
		if !ok {
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			continue
		}
		if key == "scale_factor" {
			p.scale = v
		} else {
			p.offset = v
		}
		switch raw.(type) {
		case float32, []float32:
			if p.bits == 0 {
				p.bits = 32
			}
		default:
			p.bits = 64
		}
	}
	return p
}

// decode returns the physical value of raw, or NaN when raw is masked.
func (p packing) decode(raw float64) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return math.NaN()
	}
	if (p.hasFill && raw == p.fill) || (p.hasMissing && raw == p.missing) {
		return math.NaN()
	}
	return raw*p.scale + p.offset
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// toFloat converts a numeric attribute value to float64. Attributes holding
// a vector yield their first element.
func toFloat(v any) (float64, bool) {
	if vs, ok := toFloats(v); ok {
		if len(vs) == 0 {
			return 0, false
		}
		return vs[0], true
	}
	switch n := v.(type) {
	case int8:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int16:
		return float64(n), true
	case uint16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toFloats converts a one-dimensional numeric slice to []float64.
func toFloats(v any) ([]float64, bool) {
	switch vs := v.(type) {
	case []int8:
		return floats(vs), true
	case []uint8:
		return floats(vs), true
	case []int16:
		return floats(vs), true
	case []uint16:
		return floats(vs), true
	case []int32:
		return floats(vs), true
	case []uint32:
		return floats(vs), true
	case []int64:
		return floats(vs), true
	case []uint64:
		return floats(vs), true
	case []float32:
		return floats(vs), true
	case []float64:
		return vs, true
	}
	return nil, false
}

func floats[T number](vs []T) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}
