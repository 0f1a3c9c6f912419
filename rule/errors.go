package rule

import "errors"

// Sentinel errors for rule loading and parsing.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrRuleInvalid indicates a structurally malformed rule: missing
	// fields, an ill-formed condition tree, an unknown operator, a
	// reference to a relation or node the graph does not have, or a
	// type mismatch between an operator and its literal. Rule
	// validation always fails at load time, never during evaluation.
	ErrRuleInvalid = errors.New("rule: invalid rule")

	// ErrDuplicateRule indicates two rules in one set share an ID.
	ErrDuplicateRule = errors.New("rule: duplicate rule ID")

	// ErrExprInvalid indicates a CEL condition expression failed to
	// compile or used a construct that cannot be lowered into the
	// condition tree.
	ErrExprInvalid = errors.New("rule: invalid condition expression")
)
