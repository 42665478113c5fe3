// Package schema describes the target shape of structured model output.
//
// A Node is a finite tree of scalar, object and list descriptors. Nodes are
// immutable: builder methods return new nodes and accessors return copies,
// so a Node may be shared freely between goroutines.
package schema

import (
	"fmt"
	"strings"
)

// Kind identifies the variant held by a Node.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindObject
	KindList
)

// String returns the name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindObject:
		return "Object"
	case KindList:
		return "List"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is one declared member of an object node.
type Field struct {
	Name        string
	Node        *Node
	Required    bool
	Description string
}

// Required declares a field that must be present.
func Required(name string, node *Node) Field {
	return Field{Name: name, Node: orString(node), Required: true}
}

// Optional declares a field that may be absent.
func Optional(name string, node *Node) Field {
	return Field{Name: name, Node: orString(node)}
}

// WithDescription returns a copy of f carrying a description.
func (f Field) WithDescription(description string) Field {
	f.Description = description
	return f
}

// Node is a schema tree node. The zero Node is a String scalar.
type Node struct {
	kind        Kind
	description string
	enum        []string
	integer     bool
	fields      []Field
	elem        *Node
}

// String returns a String scalar.
func String() *Node {
	return &Node{kind: KindString}
}

// Number returns a Number scalar.
func Number() *Node {
	return &Node{kind: KindNumber}
}

// Integer returns a Number scalar flagged as integral.
func Integer() *Node {
	return &Node{kind: KindNumber, integer: true}
}

// Boolean returns a Boolean scalar.
func Boolean() *Node {
	return &Node{kind: KindBoolean}
}

// Enum returns a String scalar restricted to the given literals. Duplicates
// are dropped; the first literal is the default.
func Enum(values ...string) *Node {
	seen := make(map[string]bool, len(values))
	literals := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		literals = append(literals, v)
	}
	return &Node{kind: KindString, enum: literals}
}

// Object returns an object node with fields in declaration order. A repeated
// field name keeps the position of its first declaration and the definition
// of its last.
func Object(fields ...Field) *Node {
	n := &Node{kind: KindObject, fields: make([]Field, 0, len(fields))}
	index := make(map[string]int, len(fields))
	for _, f := range fields {
		f.Node = orString(f.Node)
		if i, ok := index[f.Name]; ok {
			n.fields[i] = f
			continue
		}
		index[f.Name] = len(n.fields)
		n.fields = append(n.fields, f)
	}
	return n
}

// List returns a list node whose elements follow elem. A nil elem means
// String.
func List(elem *Node) *Node {
	return &Node{kind: KindList, elem: orString(elem)}
}

func orString(n *Node) *Node {
	if n == nil {
		return String()
	}
	return n
}

// WithDescription returns a copy of n carrying a description.
func (n *Node) WithDescription(description string) *Node {
	c := n.clone()
	c.description = description
	return c
}

func (n *Node) clone() *Node {
	c := *n
	if n.enum != nil {
		c.enum = append([]string(nil), n.enum...)
	}
	if n.fields != nil {
		c.fields = append([]Field(nil), n.fields...)
	}
	return &c
}

// Kind returns the variant of n.
func (n *Node) Kind() Kind {
	return n.kind
}

// IsScalar reports whether n is a String, Number or Boolean node.
func (n *Node) IsScalar() bool {
	return n.kind == KindString || n.kind == KindNumber || n.kind == KindBoolean
}

// Description returns the node's description, if any.
func (n *Node) Description() string {
	return n.description
}

// Enum returns a copy of the allowed literals of a String node, or nil.
func (n *Node) Enum() []string {
	if len(n.enum) == 0 {
		return nil
	}
	return append([]string(nil), n.enum...)
}

// IsEnum reports whether n restricts its values to a literal set.
func (n *Node) IsEnum() bool {
	return n.kind == KindString && len(n.enum) > 0
}

// IsInteger reports whether n is a Number node flagged as integral.
func (n *Node) IsInteger() bool {
	return n.kind == KindNumber && n.integer
}

// Fields returns a copy of the fields of an object node in declaration order.
func (n *Node) Fields() []Field {
	if n.kind != KindObject {
		return nil
	}
	return append([]Field(nil), n.fields...)
}

// Field looks up a declared field by name.
func (n *Node) Field(name string) (Field, bool) {
	for _, f := range n.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Elem returns the element schema of a list node, or nil.
func (n *Node) Elem() *Node {
	if n.kind != KindList {
		return nil
	}
	return n.elem
}

// TypeName returns a short type label such as "Number", "Integer",
// "List<String>" or "Enum('a' | 'b')".
func (n *Node) TypeName() string {
	switch {
	case n.IsEnum():
		quoted := make([]string, len(n.enum))
		for i, v := range n.enum {
			quoted[i] = "'" + v + "'"
		}
		return "Enum(" + strings.Join(quoted, " | ") + ")"
	case n.IsInteger():
		return "Integer"
	case n.kind == KindList:
		return "List<" + n.elem.TypeName() + ">"
	default:
		return n.kind.String()
	}
}

// String renders n as a compact type expression, e.g.
// {name: String, age?: Integer, tags: List<String>}.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	switch n.kind {
	case KindObject:
		b.WriteByte('{')
		for i, f := range n.fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Name)
			if !f.Required {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			f.Node.write(b)
		}
		b.WriteByte('}')
	case KindList:
		b.WriteString("List<")
		n.elem.write(b)
		b.WriteByte('>')
	default:
		b.WriteString(n.TypeName())
	}
}
