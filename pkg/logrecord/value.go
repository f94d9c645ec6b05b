package logrecord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a size- and depth-bounded JSON value used for the metrics and
// trace payloads. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Limits bounds the shape of a decoded Value.
type Limits struct {
	MaxDepth     int
	MaxNodes     int
	MaxStringLen int
}

// DefaultLimits is applied by UnmarshalJSON.
var DefaultLimits = Limits{
	MaxDepth:     32,
	MaxNodes:     10000,
	MaxStringLen: 64 << 10,
}

// LimitError reports which bound a payload exceeded.
type LimitError struct {
	Limit string
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("payload exceeds %s limit of %d", e.Limit, e.Max)
}

func Null() Value            { return Value{} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: items}
}

// Object builds an object value. The map is used as-is.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) AsBool() bool      { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsString() string  { return v.s }
func (v Value) Items() []Value    { return v.arr }

// Fields returns the members of an object value, nil for other kinds.
func (v Value) Fields() map[string]Value { return v.obj }

// IsScalar reports whether v is null, bool, number or string.
func (v Value) IsScalar() bool {
	return v.kind != KindArray && v.kind != KindObject
}

// Get returns the member key of an object value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	m, ok := v.obj[key]
	return m, ok
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := o.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes v with object keys sorted. Non-finite numbers encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.Write(strconv.AppendFloat(nil, v.n, 'g', -1, 64))
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.obj[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("logrecord: unknown value kind %d", v.kind)
	}
	return nil
}

// UnmarshalJSON decodes data under DefaultLimits.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data, DefaultLimits)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a JSON document into a Value, rejecting documents that
// exceed lim. Zero fields in lim mean no bound.
func Parse(data []byte, lim Limits) (Value, error) {
	var p fastjson.Parser
	root, err := p.ParseBytes(data)
	if err != nil {
		return Value{}, fmt.Errorf("invalid JSON: %w", err)
	}
	c := converter{lim: lim}
	return c.convert(root, 1)
}

type converter struct {
	lim   Limits
	nodes int
}

func (c *converter) convert(jv *fastjson.Value, depth int) (Value, error) {
	if c.lim.MaxDepth > 0 && depth > c.lim.MaxDepth {
		return Value{}, &LimitError{Limit: "depth", Max: c.lim.MaxDepth}
	}
	c.nodes++
	if c.lim.MaxNodes > 0 && c.nodes > c.lim.MaxNodes {
		return Value{}, &LimitError{Limit: "node count", Max: c.lim.MaxNodes}
	}

	switch jv.Type() {
	case fastjson.TypeNull:
		return Null(), nil
	case fastjson.TypeTrue:
		return Bool(true), nil
	case fastjson.TypeFalse:
		return Bool(false), nil
	case fastjson.TypeNumber:
		n, err := jv.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number: %w", err)
		}
		return Number(n), nil
	case fastjson.TypeString:
		sb, err := jv.StringBytes()
		if err != nil {
			return Value{}, err
		}
		if err := c.checkString(len(sb)); err != nil {
			return Value{}, err
		}
		return String(string(sb)), nil
	case fastjson.TypeArray:
		items, err := jv.Array()
		if err != nil {
			return Value{}, err
		}
		out := make([]Value, 0, len(items))
		for _, item := range items {
			cv, err := c.convert(item, depth+1)
			if err != nil {
				return Value{}, err
			}
			out = append(out, cv)
		}
		return Array(out...), nil
	case fastjson.TypeObject:
		o, err := jv.Object()
		if err != nil {
			return Value{}, err
		}
		fields := make(map[string]Value, o.Len())
		var visitErr error
		o.Visit(func(key []byte, member *fastjson.Value) {
			if visitErr != nil {
				return
			}
			if err := c.checkString(len(key)); err != nil {
				visitErr = err
				return
			}
			cv, err := c.convert(member, depth+1)
			if err != nil {
				visitErr = err
				return
			}
			fields[string(key)] = cv
		})
		if visitErr != nil {
			return Value{}, visitErr
		}
		return Object(fields), nil
	}
	return Value{}, fmt.Errorf("unsupported JSON type %s", jv.Type())
}

func (c *converter) checkString(n int) error {
	if c.lim.MaxStringLen > 0 && n > c.lim.MaxStringLen {
		return &LimitError{Limit: "string length", Max: c.lim.MaxStringLen}
	}
	return nil
}

// Truncated replaces subtrees cut off by FromAny.
const Truncated = "[truncated]"

// FromAny converts plain Go values into a Value. Nodes deeper than maxDepth
// become the string Truncated; unknown types are rendered with fmt.
func FromAny(x any, maxDepth int) Value {
	return fromAny(x, 1, maxDepth)
}

func fromAny(x any, depth, maxDepth int) Value {
	if maxDepth > 0 && depth > maxDepth {
		return String(Truncated)
	}
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = fromAny(item, depth+1, maxDepth)
		}
		return Array(out...)
	case []string:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = String(item)
		}
		return Array(out...)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = fromAny(item, depth+1, maxDepth)
		}
		return Object(fields)
	case map[string]string:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = String(item)
		}
		return Object(fields)
	}
	return String(fmt.Sprint(x))
}

// Clamp returns a copy of v that fits lim. Subtrees deeper than MaxDepth
// become Truncated, strings are cut to MaxStringLen bytes on a rune boundary,
// object members with oversized keys are dropped, and once MaxNodes nodes
// have been kept the remaining array items and object members are dropped.
// Object members are visited in key order, so the result is deterministic.
func Clamp(v Value, lim Limits) Value {
	c := clamper{lim: lim}
	return c.clamp(v, 1)
}

type clamper struct {
	lim   Limits
	nodes int
}

func (c *clamper) full() bool {
	return c.lim.MaxNodes > 0 && c.nodes >= c.lim.MaxNodes
}

func (c *clamper) clamp(v Value, depth int) Value {
	c.nodes++
	if c.lim.MaxDepth > 0 && depth > c.lim.MaxDepth {
		return String(Truncated)
	}

	switch v.kind {
	case KindString:
		return String(c.cut(v.s))
	case KindArray:
		out := make([]Value, 0, len(v.arr))
		for _, item := range v.arr {
			if c.full() {
				break
			}
			out = append(out, c.clamp(item, depth+1))
		}
		return Array(out...)
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			if c.lim.MaxStringLen > 0 && len(k) > c.lim.MaxStringLen {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]Value, len(keys))
		for _, k := range keys {
			if c.full() {
				break
			}
			out[k] = c.clamp(v.obj[k], depth+1)
		}
		return Object(out)
	}
	return v
}

func (c *clamper) cut(s string) string {
	if c.lim.MaxStringLen <= 0 || len(s) <= c.lim.MaxStringLen {
		return s
	}
	end := c.lim.MaxStringLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
