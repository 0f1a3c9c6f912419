package rule

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"

	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
)

// Graph predicate function names available in condition expressions.
const (
	exprFnConnected  = "connected"
	exprFnPathExists = "path_exists"
	exprFnAttribute  = "attribute"
)

// ParseExpr compiles a CEL expression into a Condition tree. The
// expression language is deliberately small: feature names are bare
// identifiers compared against literals, graph predicates are the
// functions connected(relation, type), path_exists(target, max_hops)
// and attribute(ref, name) used on the left of a comparison, and
// conditions compose with &&, || and !.
//
//	engagement == "low" && connected("belongs_to", "cohort")
//	score <= 2 || !path_exists("act-training", 2)
//	attribute("self", "level") == "Senior"
//	engagement in ["low", "medium"]
//
// The expression is parsed, never evaluated: ParseExpr lowers the CEL
// AST into the same tagged Condition tree the YAML form produces, so
// load-time validation and sandboxed evaluation apply identically.
func ParseExpr(src string) (Condition, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return Condition{}, fmt.Errorf("%w: create environment: %v", ErrExprInvalid, err)
	}
	parsed, issues := env.Parse(src)
	if issues != nil && issues.Err() != nil {
		return Condition{}, fmt.Errorf("%w: %v", ErrExprInvalid, issues.Err())
	}
	cond, err := lowerExpr(parsed.NativeRep().Expr())
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %q: %v", ErrExprInvalid, src, err)
	}
	return cond, nil
}

func lowerExpr(e ast.Expr) (Condition, error) {
	if e.Kind() != ast.CallKind {
		return Condition{}, fmt.Errorf("expected a boolean expression, got %v", e.Kind())
	}
	call := e.AsCall()
	switch call.FunctionName() {
	case operators.LogicalAnd:
		branches, err := flatten(e, operators.LogicalAnd)
		if err != nil {
			return Condition{}, err
		}
		return Condition{All: branches}, nil
	case operators.LogicalOr:
		branches, err := flatten(e, operators.LogicalOr)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Any: branches}, nil
	case operators.LogicalNot:
		inner, err := lowerExpr(call.Args()[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Not: &inner}, nil
	case operators.Equals, operators.NotEquals, operators.Less, operators.LessEquals,
		operators.Greater, operators.GreaterEquals:
		return lowerComparison(call)
	case operators.In:
		return lowerIn(call)
	case exprFnConnected, exprFnPathExists:
		return lowerGraphCall(call)
	default:
		return Condition{}, fmt.Errorf("unsupported operator or function %q", call.FunctionName())
	}
}

// flatten collapses a left-leaning chain of one logical operator into a
// single branch list, so "a && b && c" becomes one three-way All.
func flatten(e ast.Expr, op string) ([]Condition, error) {
	if e.Kind() == ast.CallKind && e.AsCall().FunctionName() == op {
		var out []Condition
		for _, arg := range e.AsCall().Args() {
			sub, err := flatten(arg, op)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	cond, err := lowerExpr(e)
	if err != nil {
		return nil, err
	}
	return []Condition{cond}, nil
}

func lowerComparison(call ast.CallExpr) (Condition, error) {
	op, err := ParseOp(comparisonSymbol(call.FunctionName()))
	if err != nil {
		return Condition{}, err
	}
	lhs, rhs := call.Args()[0], call.Args()[1]

	literal, err := lowerLiteral(rhs)
	if err != nil {
		return Condition{}, fmt.Errorf("right-hand side of %s: %w", op, err)
	}

	switch lhs.Kind() {
	case ast.IdentKind:
		return Condition{Feature: &FeaturePredicate{
			Name:    lhs.AsIdent(),
			Op:      op,
			Literal: literal,
		}}, nil
	case ast.CallKind:
		inner := lhs.AsCall()
		if inner.FunctionName() != exprFnAttribute {
			return Condition{}, fmt.Errorf("cannot compare call %q", inner.FunctionName())
		}
		ref, name, err := attributeArgs(inner)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Graph: &GraphPredicate{
			Kind:     PredicateAttribute,
			Relation: ref,
			Attr:     name,
			Op:       op,
			Literal:  literal,
		}}, nil
	default:
		return Condition{}, fmt.Errorf("left-hand side of %s must be a feature name or attribute()", op)
	}
}

func lowerIn(call ast.CallExpr) (Condition, error) {
	lhs, rhs := call.Args()[0], call.Args()[1]
	if lhs.Kind() != ast.IdentKind {
		return Condition{}, fmt.Errorf("left-hand side of 'in' must be a feature name")
	}
	if rhs.Kind() != ast.ListKind {
		return Condition{}, fmt.Errorf("right-hand side of 'in' must be a list literal")
	}
	var set []feature.Value
	for _, el := range rhs.AsList().Elements() {
		v, err := lowerLiteral(el)
		if err != nil {
			return Condition{}, fmt.Errorf("'in' set element: %w", err)
		}
		set = append(set, v)
	}
	return Condition{Feature: &FeaturePredicate{
		Name: lhs.AsIdent(),
		Op:   OpIn,
		Set:  set,
	}}, nil
}

func lowerGraphCall(call ast.CallExpr) (Condition, error) {
	args := call.Args()
	switch call.FunctionName() {
	case exprFnConnected:
		if len(args) != 2 {
			return Condition{}, fmt.Errorf("connected() takes (relation, type)")
		}
		relation, err := stringArg(args[0])
		if err != nil {
			return Condition{}, fmt.Errorf("connected() relation: %w", err)
		}
		typeName, err := stringArg(args[1])
		if err != nil {
			return Condition{}, fmt.Errorf("connected() type: %w", err)
		}
		targetType, err := graph.ParseNodeType(typeName)
		if err != nil {
			return Condition{}, fmt.Errorf("connected(): %w", err)
		}
		return Condition{Graph: &GraphPredicate{
			Kind:       PredicateConnected,
			Relation:   relation,
			TargetType: targetType,
		}}, nil
	default: // exprFnPathExists
		if len(args) != 2 {
			return Condition{}, fmt.Errorf("path_exists() takes (target, max_hops)")
		}
		target, err := stringArg(args[0])
		if err != nil {
			return Condition{}, fmt.Errorf("path_exists() target: %w", err)
		}
		hops, err := intArg(args[1])
		if err != nil {
			return Condition{}, fmt.Errorf("path_exists() max_hops: %w", err)
		}
		return Condition{Graph: &GraphPredicate{
			Kind:     PredicatePathExists,
			TargetID: target,
			MaxHops:  hops,
		}}, nil
	}
}

func attributeArgs(call ast.CallExpr) (ref, name string, err error) {
	args := call.Args()
	if len(args) != 2 {
		return "", "", fmt.Errorf("attribute() takes (ref, name)")
	}
	ref, err = stringArg(args[0])
	if err != nil {
		return "", "", fmt.Errorf("attribute() ref: %w", err)
	}
	name, err = stringArg(args[1])
	if err != nil {
		return "", "", fmt.Errorf("attribute() name: %w", err)
	}
	if ref == "self" {
		ref = ""
	}
	return ref, name, nil
}

func lowerLiteral(e ast.Expr) (feature.Value, error) {
	if e.Kind() != ast.LiteralKind {
		return feature.Value{}, fmt.Errorf("expected a literal, got %v", e.Kind())
	}
	switch v := e.AsLiteral().Value().(type) {
	case string:
		return feature.Text(v), nil
	case int64:
		return feature.Number(float64(v)), nil
	case uint64:
		return feature.Number(float64(v)), nil
	case float64:
		return feature.Number(v), nil
	case bool:
		return feature.FromAny(v)
	default:
		return feature.Value{}, fmt.Errorf("unsupported literal type %T", v)
	}
}

func stringArg(e ast.Expr) (string, error) {
	v, err := lowerLiteral(e)
	if err != nil {
		return "", err
	}
	s, ok := v.Text()
	if !ok {
		return "", fmt.Errorf("expected a string literal")
	}
	return s, nil
}

func intArg(e ast.Expr) (int, error) {
	v, err := lowerLiteral(e)
	if err != nil {
		return 0, err
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("expected an integer literal")
	}
	return int(f), nil
}

func comparisonSymbol(fn string) string {
	switch fn {
	case operators.Equals:
		return "=="
	case operators.NotEquals:
		return "!="
	case operators.Less:
		return "<"
	case operators.LessEquals:
		return "<="
	case operators.Greater:
		return ">"
	case operators.GreaterEquals:
		return ">="
	default:
		return fn
	}
}
