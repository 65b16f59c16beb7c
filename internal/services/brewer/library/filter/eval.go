package filter

import (
	"fmt"
	"strings"

	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Resolver returns the value of a field.
type Resolver func(name string) (string, bool)

// Evaluate evaluates a parsed expression. A nil expression matches.
func Evaluate(e *expr.Expr, resolve Resolver) (bool, error) {
	if e == nil {
		return true, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return evalCall(kind.CallExpr, resolve)
	default:
		return false, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func evalCall(call *expr.Expr_Call, resolve Resolver) (bool, error) {
	switch call.Function {
	case "AND", "_&&_":
		return evalAnd(call.Args, resolve)
	case "OR", "_||_":
		return evalOr(call.Args, resolve)
	case "NOT", "-":
		return evalNot(call.Args, resolve)
	case ":":
		return evalHas(call.Args, resolve)
	case "=", "!=", "<", "<=", ">", ">=":
		return evalCompare(call.Args, resolve, call.Function)
	default:
		return false, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func evalAnd(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) < 2 {
		return false, fmt.Errorf("AND requires at least 2 arguments")
	}
	for _, arg := range args {
		value, err := Evaluate(arg, resolve)
		if err != nil || !value {
			return false, err
		}
	}
	return true, nil
}

func evalOr(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) < 2 {
		return false, fmt.Errorf("OR requires at least 2 arguments")
	}
	for _, arg := range args {
		value, err := Evaluate(arg, resolve)
		if err != nil {
			return false, err
		}
		if value {
			return true, nil
		}
	}
	return false, nil
}

func evalNot(args []*expr.Expr, resolve Resolver) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("NOT requires 1 argument")
	}
	value, err := Evaluate(args[0], resolve)
	if err != nil {
		return false, err
	}
	return !value, nil
}

func evalHas(args []*expr.Expr, resolve Resolver) (bool, error) {
	left, right, err := operands(args, resolve)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(left), strings.ToLower(right)), nil
}

func evalCompare(args []*expr.Expr, resolve Resolver, op string) (bool, error) {
	left, right, err := operands(args, resolve)
	if err != nil {
		return false, err
	}

	cmp := strings.Compare(left, right)
	switch op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", op)
	}
}

func operands(args []*expr.Expr, resolve Resolver) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("comparison requires 2 arguments")
	}
	field, err := extractFieldName(args[0])
	if err != nil {
		return "", "", err
	}
	left, ok := resolve(field)
	if !ok {
		return "", "", fmt.Errorf("unknown field: %s", field)
	}
	right, err := extractValue(args[1])
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		if value, ok := kind.ConstExpr.GetConstantKind().(*expr.Constant_StringValue); ok {
			return value.StringValue, nil
		}
		return "", fmt.Errorf("expected string constant, got %T", kind.ConstExpr.GetConstantKind())
	default:
		return "", fmt.Errorf("expected constant, got %T", kind)
	}
}
