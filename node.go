package subdoc

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strconv"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{"null", "bool", "number", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind" + strconv.Itoa(int(k))
}

// Node is a decoded JSON value. A nil *Node is not a valid node; JSON null is
// a Node with KindNull.
//
// Numbers keep their literal text so that documents survive a decode/encode
// round trip byte for byte. Objects remember key insertion order.
type Node struct {
	kind Kind
	b    bool
	s    string // string value or number literal
	arr  []*Node
	keys []string
	obj  map[string]*Node
}

func NewNull() *Node           { return &Node{kind: KindNull} }
func NewBool(v bool) *Node     { return &Node{kind: KindBool, b: v} }
func NewString(v string) *Node { return &Node{kind: KindString, s: v} }
func NewInt(v int64) *Node     { return &Node{kind: KindNumber, s: strconv.FormatInt(v, 10)} }

func NewFloat(v float64) *Node {
	return &Node{kind: KindNumber, s: strconv.FormatFloat(v, 'g', -1, 64)}
}

func newNumberLiteral(lit string) *Node { return &Node{kind: KindNumber, s: lit} }

func NewArray(elems ...*Node) *Node {
	return &Node{kind: KindArray, arr: elems}
}

func NewObject() *Node {
	return &Node{kind: KindObject, obj: make(map[string]*Node)}
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) Bool() bool { return n.b }

// Str returns the value of a string node.
func (n *Node) Str() string {
	if n.kind != KindString {
		return ""
	}
	return n.s
}

// Int returns the value of an integral number node. ok is false for
// non-numbers, fractional or exponent literals, and integers outside int64.
func (n *Node) Int() (v int64, ok bool) {
	if n.kind != KindNumber {
		return 0, false
	}
	v, err := strconv.ParseInt(n.s, 10, 64)
	return v, err == nil
}

func (n *Node) isIntegralLiteral() bool {
	if n.kind != KindNumber {
		return false
	}
	for i := 0; i < len(n.s); i++ {
		if c := n.s[i]; (c < '0' || c > '9') && !(i == 0 && c == '-') {
			return false
		}
	}
	return true
}

func (n *Node) Float() float64 {
	if n.kind != KindNumber {
		return math.NaN()
	}
	v, _ := strconv.ParseFloat(n.s, 64)
	return v
}

func (n *Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.arr)
	case KindObject:
		return len(n.keys)
	default:
		return 0
	}
}

// Elem returns the i-th array element; negative i counts from the end.
func (n *Node) Elem(i int) *Node {
	if i < 0 {
		i += len(n.arr)
	}
	if i < 0 || i >= len(n.arr) {
		return nil
	}
	return n.arr[i]
}

func (n *Node) Elems() []*Node {
	return n.arr
}

func (n *Node) Keys() []string {
	return n.keys
}

func (n *Node) Get(key string) *Node {
	return n.obj[key]
}

func (n *Node) Set(key string, v *Node) {
	if _, found := n.obj[key]; !found {
		n.keys = append(n.keys, key)
	}
	n.obj[key] = v
}

func (n *Node) Delete(key string) bool {
	if _, found := n.obj[key]; !found {
		return false
	}
	delete(n.obj, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
	return true
}

func (n *Node) insertElems(i int, elems []*Node) {
	n.arr = slices.Insert(n.arr, i, elems...)
}

func (n *Node) removeElem(i int) {
	n.arr = slices.Delete(n.arr, i, i+1)
}

func (n *Node) isPrimitive() bool {
	return n.kind != KindArray && n.kind != KindObject
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	c := &Node{kind: n.kind, b: n.b, s: n.s}
	switch n.kind {
	case KindArray:
		c.arr = make([]*Node, len(n.arr))
		for i, e := range n.arr {
			c.arr[i] = e.Clone()
		}
	case KindObject:
		c.keys = slices.Clone(n.keys)
		c.obj = make(map[string]*Node, len(n.obj))
		for k, v := range n.obj {
			c.obj[k] = v.Clone()
		}
	}
	return c
}

// Equal compares two trees structurally. Numbers compare by value, objects
// ignore key order.
func (n *Node) Equal(o *Node) bool {
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindNull:
		return true
	case KindBool:
		return n.b == o.b
	case KindString:
		return n.s == o.s
	case KindNumber:
		if n.s == o.s {
			return true
		}
		a, aok := n.Int()
		b, bok := o.Int()
		if aok && bok {
			return a == b
		}
		return n.Float() == o.Float()
	case KindArray:
		if len(n.arr) != len(o.arr) {
			return false
		}
		for i := range n.arr {
			if !n.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(n.obj) != len(o.obj) {
			return false
		}
		for k, v := range n.obj {
			ov := o.obj[k]
			if ov == nil || !v.Equal(ov) {
				return false
			}
		}
		return true
	default:
		panic("unreachable")
	}
}

// Interface converts the tree into plain Go values: map[string]any, []any,
// int64 for integral numbers that fit, float64 for other numbers, string,
// bool, and nil. Numbers beyond float64 range come back as json.Number.
func (n *Node) Interface() any {
	switch n.kind {
	case KindNull:
		return nil
	case KindBool:
		return n.b
	case KindString:
		return n.s
	case KindNumber:
		if v, ok := n.Int(); ok {
			return v
		}
		f, err := strconv.ParseFloat(n.s, 64)
		if errors.Is(err, strconv.ErrRange) {
			return json.Number(n.s)
		}
		return f
	case KindArray:
		out := make([]any, len(n.arr))
		for i, e := range n.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(n.obj))
		for k, v := range n.obj {
			out[k] = v.Interface()
		}
		return out
	default:
		panic("unreachable")
	}
}
