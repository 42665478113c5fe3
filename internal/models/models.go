// Package models holds the generic JSON value tree shared by the parser,
// extractor, coercer and template generator.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// String returns the name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Boolean"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Member is one key/value pair of a Map value.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is Null.
//
// Maps keep insertion order for rendering and error messages; it carries no
// meaning for equality.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	str     string
	items   []Value
	members []Member
	index   map[string]int
}

// Null returns the null value.
func Null() Value {
	return Value{}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// List returns a list holding a copy of items.
func List(items ...Value) Value {
	copied := make([]Value, len(items))
	copy(copied, items)
	return Value{kind: KindList, items: copied}
}

// Map returns a map built from members. A repeated key keeps the position of
// its first occurrence and the value of its last.
func Map(members ...Member) Value {
	v := Value{kind: KindMap, members: make([]Member, 0, len(members)), index: make(map[string]int, len(members))}
	for _, m := range members {
		if i, ok := v.index[m.Key]; ok {
			v.members[i].Value = m.Value
			continue
		}
		v.index[m.Key] = len(v.members)
		v.members = append(v.members, m)
	}
	return v
}

// Kind returns the variant of v.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) {
	return v.number, v.kind == KindNumber
}

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// Items returns a copy of the elements of a list, or nil for other kinds.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	copied := make([]Value, len(v.items))
	copy(copied, v.items)
	return copied
}

// Members returns a copy of the members of a map in insertion order, or nil
// for other kinds.
func (v Value) Members() []Member {
	if v.kind != KindMap {
		return nil
	}
	copied := make([]Member, len(v.members))
	copy(copied, v.members)
	return copied
}

// Keys returns the keys of a map in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Get looks up key in a map.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	i, ok := v.index[key]
	if !ok {
		return Value{}, false
	}
	return v.members[i].Value, true
}

// Len returns the number of list elements, map members or string bytes.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindMap:
		return len(v.members)
	case KindString:
		return len(v.str)
	default:
		return 0
	}
}

// Equal reports structural equality. Map member order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolean == b.boolean
	case KindNumber:
		return a.number == b.number
	case KindString:
		return a.str == b.str
	case KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FormatNumber renders a number in its shortest decimal form without an
// exponent for ordinary magnitudes, so 42 renders as "42".
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Describe returns a short rendering used in diagnostics, e.g. `String "abc"`.
func (v Value) Describe() string {
	switch v.kind {
	case KindNull:
		return "Null"
	case KindBool:
		return fmt.Sprintf("Boolean %t", v.boolean)
	case KindNumber:
		return "Number " + FormatNumber(v.number)
	case KindString:
		s := v.str
		if len(s) > 40 {
			cut := 40
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			s = s[:cut] + "..."
		}
		return "String " + strconv.Quote(s)
	case KindList:
		return fmt.Sprintf("List of %d", len(v.items))
	case KindMap:
		return fmt.Sprintf("Map with %d keys", len(v.members))
	default:
		return v.kind.String()
	}
}

// ToAny converts v into the shapes produced by encoding/json: nil, bool,
// float64, string, []any and map[string]any.
func (v Value) ToAny() any {
	switch v.kind {
	case KindBool:
		return v.boolean
	case KindNumber:
		return v.number
	case KindString:
		return v.str
	case KindList:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.ToAny()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.ToAny()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts encoding/json shaped data into a Value. Map keys are
// sorted since Go maps carry no order. Unsupported types yield an error.
func FromAny(data any) (Value, error) {
	switch d := data.(type) {
	case nil:
		return Null(), nil
	case Value:
		return d, nil
	case bool:
		return Bool(d), nil
	case string:
		return String(d), nil
	case float64:
		return Number(d), nil
	case float32:
		return Number(float64(d)), nil
	case int:
		return Number(float64(d)), nil
	case int64:
		return Number(float64(d)), nil
	case int32:
		return Number(float64(d)), nil
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", d.String(), err)
		}
		return Number(f), nil
	case []any:
		items := make([]Value, len(d))
		for i, item := range d {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = converted
		}
		return Value{kind: KindList, items: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(d))
		for _, k := range keys {
			converted, err := FromAny(d[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			members = append(members, Member{Key: k, Value: converted})
		}
		return Map(members...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", data)
	}
}

// MarshalJSON renders v as compact JSON, keeping map member order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
			return fmt.Errorf("cannot encode non-finite number %v", v.number)
		}
		buf.WriteString(FormatNumber(v.number))
	case KindString:
		if err := writeQuoted(buf, v.str); err != nil {
			return err
		}
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeQuoted(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// writeQuoted writes s as a JSON string without HTML escaping, so template
// placeholders such as "<string>" stay readable in prompts.
func writeQuoted(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// String renders v as compact JSON. Non-finite numbers render as their Go
// form since they cannot be encoded.
func (v Value) String() string {
	encoded, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s %v>", v.kind, v.number)
	}
	return string(encoded)
}
