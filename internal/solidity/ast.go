package solidity

import "sort"

// Location is a byte-offset range into the analyzed source. End is
// exclusive.
type Location struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Node is one vertex of the parsed source tree: a type tag, an optional
// source location, scalar attributes, and named child links. Child
// nodes are stored in Attrs as *Node or []*Node values. Nodes are owned
// by the Index that wraps them and are read-only after construction.
type Node struct {
	Type  string
	Loc   Location
	Attrs map[string]any
}

func NewNode(typ string, loc Location) *Node {
	return &Node{Type: typ, Loc: loc, Attrs: map[string]any{}}
}

func (n *Node) Set(key string, v any) *Node {
	n.Attrs[key] = v
	return n
}

// Str returns the string attribute under key, or "".
func (n *Node) Str(key string) string {
	s, _ := n.Attrs[key].(string)
	return s
}

// Bool returns the bool attribute under key, or false.
func (n *Node) Bool(key string) bool {
	b, _ := n.Attrs[key].(bool)
	return b
}

// Child returns the single child node stored under key, or nil.
func (n *Node) Child(key string) *Node {
	c, _ := n.Attrs[key].(*Node)
	return c
}

// ChildList returns the child slice stored under key, or nil.
func (n *Node) ChildList(key string) []*Node {
	l, _ := n.Attrs[key].([]*Node)
	return l
}

// StrList returns the string slice stored under key, or nil.
func (n *Node) StrList(key string) []string {
	switch v := n.Attrs[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// childFields lists, in canonical traversal order, every attribute that
// can hold further statements or expressions. Missing an entry here
// hides whole subtrees from every detector, so the table errs on the
// side of inclusion; attributes not listed are still walked afterwards
// in sorted key order as a safety net.
var childFields = []string{
	"nodes",
	"baseContracts",
	"parameters",
	"returnParameters",
	"modifiers",
	"modifierName",
	"body",
	"statements",
	"declarations",
	"initialValue",
	"value",
	"expression",
	"leftHandSide",
	"rightHandSide",
	"leftExpression",
	"rightExpression",
	"subExpression",
	"components",
	"arguments",
	"options",
	"baseExpression",
	"indexExpression",
	"startExpression",
	"endExpression",
	"condition",
	"trueBody",
	"falseBody",
	"trueExpression",
	"falseExpression",
	"initializationExpression",
	"loopExpression",
	"eventCall",
	"errorCall",
	"externalReferences",
	"typeName",
	"keyType",
	"valueType",
	"libraryName",
	"overrides",
}

var childFieldSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(childFields))
	for _, f := range childFields {
		m[f] = struct{}{}
	}
	return m
}()

// Children returns the node's structural children in deterministic
// pre-order position: table-listed fields first, then any remaining
// node-valued attributes in sorted key order.
func (n *Node) Children() []*Node {
	var out []*Node
	appendVal := func(v any) {
		switch c := v.(type) {
		case *Node:
			if c != nil {
				out = append(out, c)
			}
		case []*Node:
			for _, e := range c {
				if e != nil {
					out = append(out, e)
				}
			}
		}
	}
	for _, f := range childFields {
		if v, ok := n.Attrs[f]; ok {
			appendVal(v)
		}
	}
	var rest []string
	for k, v := range n.Attrs {
		if _, listed := childFieldSet[k]; listed {
			continue
		}
		switch v.(type) {
		case *Node, []*Node:
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		appendVal(n.Attrs[k])
	}
	return out
}
