// Package sanitize turns the analyzer's loosely typed payload into a typed
// tree and normalizes it into a model.Analysis. Every step returns a new
// tree; inputs are never modified.
package sanitize

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// Kind is the type of a Node.
type Kind int

// Node kinds.
const (
	Null Kind = iota
	Bool
	Number
	String
	List
	Object
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return "null"
	}
}

// Node is one value of the payload tree.
type Node struct {
	Kind   Kind
	Bool   bool
	Num    float64
	Str    string
	Items  []Node
	Fields map[string]Node
}

// Constructors.
func NullNode() Node { return Node{Kind: Null} }
func BoolNode(b bool) Node { return Node{Kind: Bool, Bool: b} }
func NumberNode(f float64) Node { return Node{Kind: Number, Num: f} }
func StringNode(s string) Node { return Node{Kind: String, Str: s} }
func ListNode(items ...Node) Node { return Node{Kind: List, Items: items} }

// ObjectNode builds an object from fields.
func ObjectNode(fields map[string]Node) Node {
	if fields == nil {
		fields = map[string]Node{}
	}
	return Node{Kind: Object, Fields: fields}
}

// Get returns the field named key, or Null when n is not an object or the
// field is missing.
func (n Node) Get(key string) Node {
	if n.Kind != Object {
		return NullNode()
	}
	if v, ok := n.Fields[key]; ok {
		return v
	}
	return NullNode()
}

// FromAny builds a tree from a decoded JSON-like value. Values of other Go
// types are passed through encoding/json first; anything that cannot be
// encoded becomes Null.
func FromAny(v any) Node {
	switch t := v.(type) {
	case nil:
		return NullNode()
	case bool:
		return BoolNode(t)
	case float64:
		return NumberNode(t)
	case float32:
		return NumberNode(float64(t))
	case int:
		return NumberNode(float64(t))
	case int64:
		return NumberNode(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return StringNode(t.String())
		}
		return NumberNode(f)
	case string:
		return StringNode(t)
	case []any:
		items := make([]Node, 0, len(t))
		for _, it := range t {
			items = append(items, FromAny(it))
		}
		return ListNode(items...)
	case map[string]any:
		fields := make(map[string]Node, len(t))
		for k, it := range t {
			fields[k] = FromAny(it)
		}
		return ObjectNode(fields)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return NullNode()
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return NullNode()
		}
		return FromAny(generic)
	}
}

// ToAny converts the tree back to plain Go values.
func (n Node) ToAny() any {
	switch n.Kind {
	case Bool:
		return n.Bool
	case Number:
		return n.Num
	case String:
		return n.Str
	case List:
		out := make([]any, 0, len(n.Items))
		for _, it := range n.Items {
			out = append(out, it.ToAny())
		}
		return out
	case Object:
		out := make(map[string]any, len(n.Fields))
		for k, it := range n.Fields {
			out[k] = it.ToAny()
		}
		return out
	default:
		return nil
	}
}

// Text renders a scalar as a string; lists and objects become JSON text and
// Null becomes "".
func (n Node) Text() string {
	switch n.Kind {
	case Null:
		return ""
	case Bool:
		return strconv.FormatBool(n.Bool)
	case Number:
		return strconv.FormatFloat(n.Num, 'f', -1, 64)
	case String:
		return n.Str
	default:
		b, err := json.Marshal(n.ToAny())
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Clone returns a deep copy.
func (n Node) Clone() Node {
	c := n
	if n.Items != nil {
		c.Items = make([]Node, len(n.Items))
		for i, it := range n.Items {
			c.Items[i] = it.Clone()
		}
	}
	if n.Fields != nil {
		c.Fields = make(map[string]Node, len(n.Fields))
		for k, it := range n.Fields {
			c.Fields[k] = it.Clone()
		}
	}
	return c
}

// Keys returns the sorted field names of an object.
func (n Node) Keys() []string {
	return slices.Sorted(maps.Keys(n.Fields))
}
