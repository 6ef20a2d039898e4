package yardstick

import "fmt"

// Validate structurally checks a condition tree: known operators, correct
// arity, well-formed nesting. It returns a *ValidationError describing the
// first problem found, or nil when the tree is well formed.
//
// Validation runs at policy-save time. Evaluate re-checks structure as it
// recurses, but any problem found there fails the evaluation closed rather
// than surfacing an error (see Evaluator).
func Validate(node *Node) error {
	return validateNode(node, "$")
}

func validateNode(node *Node, path string) error {
	if node == nil {
		return &ValidationError{Path: path, Message: "condition node is missing"}
	}

	switch node.Type {
	case NodeAll, NodeAny:
		for i, child := range node.Children {
			childPath := fmt.Sprintf("%s.%s[%d]", path, node.Type, i)
			if err := validateNode(child, childPath); err != nil {
				return err
			}
		}
		return nil

	case NodeNot:
		return validateNode(node.Child, path+".not")

	case NodeLeaf:
		arity, ok := operatorArity[node.Op]
		if !ok {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("unknown operator %q", node.Op),
			}
		}

		got := 1
		if node.HasRight {
			got = 2
		}
		if node.Left == nil && !node.HasRight {
			got = 0
		}
		if got != arity {
			return &ValidationError{
				Path:    path,
				Message: fmt.Sprintf("operator %q takes %d argument(s), got %d", node.Op, arity, got),
			}
		}

		if err := validateArgument(node.Left); err != nil {
			return &ValidationError{Path: path, Message: fmt.Sprintf("left argument: %v", err)}
		}
		if node.HasRight {
			if err := validateArgument(node.Right); err != nil {
				return &ValidationError{Path: path, Message: fmt.Sprintf("right argument: %v", err)}
			}
		}
		return nil

	default:
		return &ValidationError{
			Path:    path,
			Message: fmt.Sprintf("unknown condition node type %q", node.Type),
		}
	}
}

// validateArgument checks a leaf argument is a representable scalar or, for
// membership tests, a list of scalars.
func validateArgument(arg interface{}) error {
	switch val := arg.(type) {
	case []interface{}:
		for i, elem := range val {
			if _, err := FromAny(elem); err != nil {
				return fmt.Errorf("list element %d: %w", i, err)
			}
		}
		return nil
	default:
		_, err := FromAny(arg)
		return err
	}
}
