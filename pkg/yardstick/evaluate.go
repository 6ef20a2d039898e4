package yardstick

import (
	"log/slog"
	"time"
)

// nowRef is the reference literal that resolves to the current UTC instant.
const nowRef = "now"

// Evaluator evaluates condition trees against record contexts.
//
// Evaluation is fail-closed: any fault encountered while evaluating (type
// mismatch, bad regex, malformed node) makes the entire evaluation return
// false. A broken condition must never accidentally match. The fault is
// logged at warn level and otherwise absorbed.
type Evaluator struct {
	logger *slog.Logger

	// now supplies the current time, overridable for tests.
	now func() time.Time
}

// NewEvaluator creates an evaluator. A nil logger falls back to
// slog.Default.
func NewEvaluator(logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		logger: logger.With("component", "yardstick"),
		now:    time.Now,
	}
}

// WithClock returns a copy of the evaluator that uses the supplied clock.
// Intended for tests that pin "now".
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	clone := *e
	clone.now = now
	return &clone
}

// Evaluate evaluates the condition tree against the context. It never
// returns an error: evaluation faults fail closed to false.
func (e *Evaluator) Evaluate(node *Node, ctx Context) bool {
	matched, err := e.eval(node, ctx, e.now().UTC())
	if err != nil {
		e.logger.Warn("condition evaluation fault, failing closed",
			"error", err,
		)
		return false
	}
	return matched
}

// eval is the recursive core. all/any short-circuit as an optimization;
// leaves are pure, so short-circuiting is not observable behavior. Any
// fault anywhere in the tree fails the whole evaluation.
func (e *Evaluator) eval(node *Node, ctx Context, now time.Time) (bool, error) {
	if node == nil {
		return false, faultf("", "nil condition node")
	}

	switch node.Type {
	case NodeAll:
		for _, child := range node.Children {
			matched, err := e.eval(child, ctx, now)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		// Empty conjunction is vacuously true.
		return true, nil

	case NodeAny:
		for _, child := range node.Children {
			matched, err := e.eval(child, ctx, now)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		// Empty disjunction is vacuously false.
		return false, nil

	case NodeNot:
		matched, err := e.eval(node.Child, ctx, now)
		if err != nil {
			return false, err
		}
		return !matched, nil

	case NodeLeaf:
		return e.evalLeaf(node, ctx, now)

	default:
		return false, faultf("", "unknown condition node type %q", node.Type)
	}
}

// evalLeaf evaluates a single operator comparison.
func (e *Evaluator) evalLeaf(node *Node, ctx Context, now time.Time) (bool, error) {
	arity, known := operatorArity[node.Op]
	if !known {
		return false, faultf(node.Op, "unknown operator")
	}

	left := resolveRef(node.Left, ctx, now)

	switch node.Op {
	case OpExists:
		return !left.IsNull(), nil

	case OpIn:
		collection, ok := node.Right.([]interface{})
		if !ok {
			return false, faultf(OpIn, "right argument must be a collection, got %T", node.Right)
		}
		return matchIn(left, collection)
	}

	if arity == 2 && !node.HasRight {
		return false, faultf(node.Op, "missing right argument")
	}
	right := resolveLiteral(node.Right, ctx, now)

	switch node.Op {
	case OpEqual:
		return compareEqual(left, right), nil
	case OpNotEqual:
		return !compareEqual(left, right), nil
	case OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		return compareOrder(node.Op, left, right)
	case OpRegex:
		return matchRegex(left, right)
	default:
		return false, faultf(node.Op, "unknown operator")
	}
}

// resolveRef resolves a left-hand reference: the literal "now" becomes the
// current UTC instant, any other string is a context lookup (missing keys
// resolve to null), and non-string values are literals.
func resolveRef(ref interface{}, ctx Context, now time.Time) Value {
	if s, ok := ref.(string); ok {
		if s == nowRef {
			return Time(now)
		}
		if v, present := ctx[s]; present {
			return v
		}
		return Null()
	}

	v, err := FromAny(ref)
	if err != nil {
		return Null()
	}
	return v
}

// resolveLiteral resolves a right-hand argument. "now" becomes the current
// instant, and a string that names a context field resolves to that field's
// value so two fields can be compared; any other string is a plain string
// literal. Non-strings are literals.
func resolveLiteral(arg interface{}, ctx Context, now time.Time) Value {
	if s, ok := arg.(string); ok {
		if s == nowRef {
			return Time(now)
		}
		if v, present := ctx[s]; present {
			return v
		}
		return String(s)
	}

	v, err := FromAny(arg)
	if err != nil {
		return Null()
	}
	return v
}
