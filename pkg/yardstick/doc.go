// Package yardstick implements the declarative condition language that
// drives Steward's rule matching.
//
// A condition is a small JSON boolean expression evaluated against a flat
// record context:
//
//	{"all": [
//	  {"eq": ["category", "promotions"]},
//	  {"lt": ["expires_at", "now"]}
//	]}
//
// Combinators are "all" (AND, empty list true), "any" (OR, empty list
// false), and "not". Leaves apply one of a closed set of operators: eq,
// neq, lt, lte, gt, gte, in, regex, and the unary exists. A string
// argument is a context reference ("now" resolves to the current UTC
// instant); any other value is a literal.
//
// The language is deliberately small: no loops, no user-defined functions,
// no external data access. Structural problems are caught by Validate at
// policy-save time; at evaluation time every fault fails closed to false,
// so a broken condition can never accidentally match.
package yardstick
