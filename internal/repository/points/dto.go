package points

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain"
)

// fieldMulti lists the multi-vector fields a point carries.
const fieldMulti = "__multi"

// Point is one stored record: payload plus named dense and multi vectors.
type Point struct {
	ID           string
	Payload      map[string]any
	Vectors      map[string][]float32
	MultiVectors map[string][][]float32
}

func (p *Point) validate() error {
	if p.ID == "" {
		return fmt.Errorf("point id is required: %w", domain.ErrInvalidRequest)
	}
	if strings.ContainsAny(p.ID, " \t\n*") {
		return fmt.Errorf("point id %q contains invalid characters: %w", p.ID, domain.ErrInvalidRequest)
	}
	for k := range p.Payload {
		if strings.HasPrefix(k, "__") {
			return fmt.Errorf("payload key %q is reserved: %w", k, domain.ErrInvalidRequest)
		}
	}
	for name := range p.MultiVectors {
		if _, ok := p.Vectors[name]; ok {
			return fmt.Errorf("vector %q is both dense and multi: %w", name, domain.ErrInvalidRequest)
		}
	}
	return nil
}

// buildHashFields flattens a point into HSET fields. Scalar payload values
// are copied next to the JSON payload so the index can filter on them.
func buildHashFields(p *Point) (map[string]string, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	m := make(map[string]string, 3+len(p.Payload)+len(p.Vectors)+len(p.MultiVectors))
	m[db.FieldID] = p.ID
	m[db.FieldPayload] = string(payload)

	for k, v := range p.Payload {
		if s, ok := flatten(v); ok {
			m[k] = s
		}
	}
	for name, v := range p.Vectors {
		m[name] = vectorToBytes(v)
	}
	if len(p.MultiVectors) > 0 {
		names := make([]string, 0, len(p.MultiVectors))
		for name, rows := range p.MultiVectors {
			m[name] = multiToBytes(rows)
			names = append(names, name)
		}
		sort.Strings(names)
		m[fieldMulti] = strings.Join(names, ",")
	}
	return m, nil
}

func flatten(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case []string:
		return strings.Join(x, ","), true
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			s, ok := flatten(e)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	}
	return "", false
}

// storedPoint is a point hash read back from the store.
type storedPoint struct {
	id     string
	fields map[string]string
}

func (s storedPoint) payload() map[string]any {
	raw, ok := s.fields[db.FieldPayload]
	if !ok || raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}

// point decodes the full record. Fields that are neither reserved nor
// flattened payload keys hold vectors.
func (s storedPoint) point() Point {
	p := Point{
		ID:           s.id,
		Payload:      s.payload(),
		Vectors:      map[string][]float32{},
		MultiVectors: map[string][][]float32{},
	}
	for name := range s.fields {
		if strings.HasPrefix(name, "__") {
			continue
		}
		if _, ok := p.Payload[name]; ok {
			continue
		}
		if m, ok := s.multi(name); ok {
			p.MultiVectors[name] = m
		} else if v, ok := s.dense(name); ok {
			p.Vectors[name] = v
		}
	}
	return p
}

func (s storedPoint) isMulti(name string) bool {
	for _, n := range strings.Split(s.fields[fieldMulti], ",") {
		if n == name {
			return true
		}
	}
	return false
}

// dense returns the dense vector stored under name.
func (s storedPoint) dense(name string) ([]float32, bool) {
	raw, ok := s.fields[name]
	if !ok || s.isMulti(name) {
		return nil, false
	}
	v := bytesToVector(raw)
	return v, v != nil
}

// multi returns the multi-vector stored under name.
func (s storedPoint) multi(name string) ([][]float32, bool) {
	raw, ok := s.fields[name]
	if !ok || !s.isMulti(name) {
		return nil, false
	}
	m, err := bytesToMulti(raw)
	return m, err == nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// multiToBytes writes rows as a uint32 row count, a uint32 dimension, then
// the rows back to back.
func multiToBytes(rows [][]float32) string {
	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	buf := make([]byte, 8, 8+len(rows)*dim*4)
	binary.LittleEndian.PutUint32(buf[0:], uint32(len(rows)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(dim))
	for _, r := range rows {
		buf = append(buf, vectorToBytes(r)...)
	}
	return string(buf)
}

func bytesToMulti(s string) ([][]float32, error) {
	b := []byte(s)
	if len(b) < 8 {
		return nil, fmt.Errorf("multi-vector header truncated")
	}
	n := int(binary.LittleEndian.Uint32(b[0:]))
	dim := int(binary.LittleEndian.Uint32(b[4:]))
	if n == 0 || dim == 0 || len(b) != 8+n*dim*4 {
		return nil, fmt.Errorf("multi-vector size mismatch: %d rows of %d in %d bytes", n, dim, len(b))
	}
	rows := make([][]float32, n)
	for i := range rows {
		off := 8 + i*dim*4
		rows[i] = bytesToVector(s[off : off+dim*4])
	}
	return rows, nil
}
