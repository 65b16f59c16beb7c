// Package filter parses and evaluates AIP-160 filters over library results.
//
// Only string fields are supported. Besides comparisons, the has operator
// (name:"wolf") matches case-insensitive substrings, which mirrors the
// free-text search of the library.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Filter is a parsed filter expression. A nil Filter matches everything.
type Filter struct {
	raw  string
	expr *expr.Expr
}

// Parse parses filterStr, accepting identifiers from fields. An empty
// string yields a nil Filter.
func Parse(filterStr string, fields []string) (*Filter, error) {
	if strings.TrimSpace(filterStr) == "" {
		return nil, nil
	}

	decls, err := declarations(fields)
	if err != nil {
		return nil, err
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr == nil {
		return nil, nil
	}
	return &Filter{raw: filterStr, expr: parsed.CheckedExpr.Expr}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.raw
}

// Match evaluates the filter against the field values in values.
func (f *Filter) Match(values map[string]string) (bool, error) {
	if f == nil {
		return true, nil
	}
	return Evaluate(f.expr, func(name string) (string, bool) {
		value, ok := values[name]
		return value, ok
	})
}

func declarations(fields []string) (*filtering.Declarations, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one filter field is required")
	}
	names := append([]string(nil), fields...)
	sort.Strings(names)

	decls := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("filter field name is required")
		}
		decls = append(decls, filtering.DeclareIdent(name, filtering.TypeString))
	}
	return filtering.NewDeclarations(decls...)
}
