package yardstick

import (
	"encoding/json"
	"fmt"
)

// NodeType identifies the shape of a condition tree node.
type NodeType string

const (
	// NodeAll is a conjunction: every child must match. An empty list is
	// vacuously true.
	NodeAll NodeType = "all"
	// NodeAny is a disjunction: at least one child must match. An empty
	// list is vacuously false.
	NodeAny NodeType = "any"
	// NodeNot negates its single child.
	NodeNot NodeType = "not"
	// NodeLeaf is an operator comparison over one or two references.
	NodeLeaf NodeType = "leaf"
)

// Operator is a leaf comparison operator.
type Operator string

const (
	OpEqual        Operator = "eq"
	OpNotEqual     Operator = "neq"
	OpLessThan     Operator = "lt"
	OpLessEqual    Operator = "lte"
	OpGreaterThan  Operator = "gt"
	OpGreaterEqual Operator = "gte"
	OpIn           Operator = "in"
	OpRegex        Operator = "regex"
	OpExists       Operator = "exists"
)

// operatorArity maps each operator to its expected argument count.
// This is also the closed set of known operators: anything absent here is
// rejected by Validate.
var operatorArity = map[Operator]int{
	OpEqual:        2,
	OpNotEqual:     2,
	OpLessThan:     2,
	OpLessEqual:    2,
	OpGreaterThan:  2,
	OpGreaterEqual: 2,
	OpIn:           2,
	OpRegex:        2,
	OpExists:       1,
}

// Node is one node of a condition tree. The JSON shape is the externally
// visible schema policy authoring tools interoperate with, and it must
// round-trip exactly:
//
//	{"all": [node, ...]}
//	{"any": [node, ...]}
//	{"not": node}
//	{"eq": [left, right]}          (any leaf operator)
//	{"exists": [left]}             (unary)
//
// Left and Right hold the raw JSON arguments: a string is a context
// reference (or the literal "now"), anything else is a literal.
type Node struct {
	Type     NodeType
	Children []*Node // all, any
	Child    *Node   // not
	Op       Operator
	Left     interface{}
	Right    interface{}
	HasRight bool
}

// Leaf builds a binary leaf node. Convenient for tests and synthesized
// policies.
func Leaf(op Operator, left, right interface{}) *Node {
	return &Node{Type: NodeLeaf, Op: op, Left: left, Right: right, HasRight: true}
}

// Exists builds a unary exists leaf.
func Exists(ref interface{}) *Node {
	return &Node{Type: NodeLeaf, Op: OpExists, Left: ref}
}

// All builds a conjunction node.
func All(children ...*Node) *Node {
	return &Node{Type: NodeAll, Children: children}
}

// Any builds a disjunction node.
func Any(children ...*Node) *Node {
	return &Node{Type: NodeAny, Children: children}
}

// Not builds a negation node.
func Not(child *Node) *Node {
	return &Node{Type: NodeNot, Child: child}
}

// MarshalJSON renders the node in its single-key wire form.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch n.Type {
	case NodeAll:
		return json.Marshal(map[string][]*Node{"all": nonNilChildren(n.Children)})
	case NodeAny:
		return json.Marshal(map[string][]*Node{"any": nonNilChildren(n.Children)})
	case NodeNot:
		return json.Marshal(map[string]*Node{"not": n.Child})
	case NodeLeaf:
		args := []interface{}{n.Left}
		if n.HasRight {
			args = append(args, n.Right)
		}
		return json.Marshal(map[string][]interface{}{string(n.Op): args})
	default:
		return nil, fmt.Errorf("cannot marshal condition node of type %q", n.Type)
	}
}

func nonNilChildren(children []*Node) []*Node {
	if children == nil {
		return []*Node{}
	}
	return children
}

// UnmarshalJSON parses the single-key wire form. Structural problems
// (non-object nodes, multiple keys, non-array arguments) are reported as
// errors here so they surface at policy-save time, never mid-evaluation.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("condition node must be a JSON object: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("condition node must have exactly one key, got %d", len(raw))
	}

	for key, body := range raw {
		switch key {
		case "all", "any":
			var children []*Node
			if err := json.Unmarshal(body, &children); err != nil {
				return fmt.Errorf("%q requires a list of conditions: %w", key, err)
			}
			if key == "all" {
				n.Type = NodeAll
			} else {
				n.Type = NodeAny
			}
			n.Children = children

		case "not":
			var child Node
			if err := json.Unmarshal(body, &child); err != nil {
				return fmt.Errorf("\"not\" requires a single condition: %w", err)
			}
			n.Type = NodeNot
			n.Child = &child

		default:
			var args []interface{}
			if err := json.Unmarshal(body, &args); err != nil {
				return fmt.Errorf("operator %q requires an argument list: %w", key, err)
			}
			n.Type = NodeLeaf
			n.Op = Operator(key)
			if len(args) > 0 {
				n.Left = args[0]
			}
			if len(args) > 1 {
				n.Right = args[1]
				n.HasRight = true
			}
			if len(args) > 2 {
				return fmt.Errorf("operator %q takes at most 2 arguments, got %d", key, len(args))
			}
		}
	}

	return nil
}

// ParseCondition decodes and structurally validates a condition tree from
// its JSON wire form.
func ParseCondition(data []byte) (*Node, error) {
	var node Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, &ValidationError{Path: "$", Message: err.Error()}
	}
	if err := Validate(&node); err != nil {
		return nil, err
	}
	return &node, nil
}
