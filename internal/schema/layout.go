package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var ErrFieldNotFound = errors.New("field not found")

// Layout is the flattened, byte-exact description of one declaration.
type Layout struct {
	Name   string
	Fields []Field
	Size   int
	Align  int
}

// Field looks a field up by its dotted name.
func (l Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Values lists the data-carrying fields.
func (l Layout) Values() []Field {
	out := make([]Field, 0, len(l.Fields))
	for _, f := range l.Fields {
		if f.IsValue() {
			out = append(out, f)
		}
	}
	return out
}

// Encode builds a zeroed buffer of l.Size bytes and writes the given values.
// Fields missing from values stay zero.
func (l Layout) Encode(values map[string]any) ([]byte, error) {
	buf := make([]byte, l.Size)
	for name, v := range values {
		if err := l.Set(buf, name, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode reads every value field of buf.
func (l Layout) Decode(buf []byte) (map[string]any, error) {
	if len(buf) != l.Size {
		return nil, fmt.Errorf("decode %s: want %d bytes, got %d", l.Name, l.Size, len(buf))
	}
	out := make(map[string]any, len(l.Fields))
	for _, f := range l.Values() {
		out[f.Name] = read(buf[f.Offset:f.Offset+f.Size], f.Type)
	}
	return out, nil
}

// Get reads one field. Integers come back as int64 or uint64, floats as
// float64, vectors as []float64.
func (l Layout) Get(buf []byte, name string) (any, error) {
	f, err := l.valueField(buf, name)
	if err != nil {
		return nil, err
	}
	return read(buf[f.Offset:f.Offset+f.Size], f.Type), nil
}

// Set writes one field in place.
func (l Layout) Set(buf []byte, name string, v any) error {
	f, err := l.valueField(buf, name)
	if err != nil {
		return err
	}
	if err := write(buf[f.Offset:f.Offset+f.Size], f.Type, v); err != nil {
		return fmt.Errorf("%s.%s: %w", l.Name, name, err)
	}
	return nil
}

func (l Layout) valueField(buf []byte, name string) (Field, error) {
	if len(buf) != l.Size {
		return Field{}, fmt.Errorf("%s: want %d bytes, got %d", l.Name, l.Size, len(buf))
	}
	f, ok := l.Field(name)
	if !ok || !f.IsValue() {
		return Field{}, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, l.Name, name)
	}
	return f, nil
}

// Component bytes are stored in host order; every supported target is
// little-endian.
var order = binary.LittleEndian

func read(b []byte, t FieldType) any {
	switch t {
	case Bool:
		return b[0] != 0
	case Int8:
		return int64(int8(b[0]))
	case Int16:
		return int64(int16(order.Uint16(b)))
	case Int32:
		return int64(int32(order.Uint32(b)))
	case Int64:
		return int64(order.Uint64(b))
	case UInt8:
		return uint64(b[0])
	case UInt16:
		return uint64(order.Uint16(b))
	case UInt32:
		return uint64(order.Uint32(b))
	case UInt64:
		return order.Uint64(b)
	case Float:
		return float64(math.Float32frombits(order.Uint32(b)))
	case Double:
		return math.Float64frombits(order.Uint64(b))
	case Vector3, Vector4:
		n := t.Size() / 4
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(math.Float32frombits(order.Uint32(b[i*4:])))
		}
		return out
	default:
		return nil
	}
}

func write(b []byte, t FieldType, v any) error {
	switch t {
	case Bool:
		bv, ok := v.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", v)
		}
		b[0] = 0
		if bv {
			b[0] = 1
		}
		return nil
	case Float, Double:
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("want number, got %T", v)
		}
		if t == Float {
			order.PutUint32(b, math.Float32bits(float32(f)))
		} else {
			order.PutUint64(b, math.Float64bits(f))
		}
		return nil
	case Vector3, Vector4:
		vec, ok := toVector(v)
		if !ok || len(vec) != t.Size()/4 {
			return fmt.Errorf("want %d numbers, got %v", t.Size()/4, v)
		}
		for i, f := range vec {
			order.PutUint32(b[i*4:], math.Float32bits(float32(f)))
		}
		return nil
	}

	if u, ok := v.(uint64); ok && t == UInt64 {
		order.PutUint64(b, u)
		return nil
	}
	n, ok := toInt(v)
	if !ok {
		return fmt.Errorf("want integer, got %T", v)
	}
	if u, ok := v.(uint64); ok && u > math.MaxInt64 {
		return fmt.Errorf("%d out of range for %s", u, t)
	}
	lo, hi, ok := intRange(t)
	if !ok {
		return fmt.Errorf("cannot write %s", t)
	}
	if n < lo || n > hi {
		return fmt.Errorf("%d out of range for %s", n, t)
	}
	switch t {
	case Int8, UInt8:
		b[0] = byte(n)
	case Int16, UInt16:
		order.PutUint16(b, uint16(n))
	case Int32, UInt32:
		order.PutUint32(b, uint32(n))
	case Int64, UInt64:
		order.PutUint64(b, uint64(n))
	}
	return nil
}

// intRange is the inclusive range an int64 may take for t. UInt64 values
// above MaxInt64 are written from a uint64 directly.
func intRange(t FieldType) (lo, hi int64, ok bool) {
	switch t {
	case Int8:
		return math.MinInt8, math.MaxInt8, true
	case UInt8:
		return 0, math.MaxUint8, true
	case Int16:
		return math.MinInt16, math.MaxInt16, true
	case UInt16:
		return 0, math.MaxUint16, true
	case Int32:
		return math.MinInt32, math.MaxInt32, true
	case UInt32:
		return 0, math.MaxUint32, true
	case Int64:
		return math.MinInt64, math.MaxInt64, true
	case UInt64:
		return 0, math.MaxInt64, true
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

// toInt accepts integral floats too, since scripts only have float numbers.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func toVector(v any) ([]float64, bool) {
	switch vec := v.(type) {
	case []float64:
		return vec, true
	case []float32:
		out := make([]float64, len(vec))
		for i, f := range vec {
			out[i] = float64(f)
		}
		return out, true
	case [3]float32:
		return []float64{float64(vec[0]), float64(vec[1]), float64(vec[2])}, true
	case [4]float32:
		return []float64{float64(vec[0]), float64(vec[1]), float64(vec[2]), float64(vec[3])}, true
	case []any:
		out := make([]float64, len(vec))
		for i, e := range vec {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
