package sqlite

import (
	"fmt"
	"strings"

	"github.com/example/bulkcase/internal/core/query"
)

// CompileSearch builds the WHERE clause selecting records of caseType that
// match p. Values and JSON paths are always bound as parameters.
func CompileSearch(caseType string, p query.Predicate) (string, []any, error) {
	if err := query.Validate(p); err != nil {
		return "", nil, err
	}
	if p == nil {
		return "case_type = ?", []any{caseType}, nil
	}

	clause, args, err := compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return "case_type = ? AND " + clause, append([]any{caseType}, args...), nil
}

func compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case query.StateIn:
		if len(pred.States) == 0 {
			return "0 = 1", nil, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(pred.States)), ", ")
		args := make([]any, len(pred.States))
		for i, s := range pred.States {
			args[i] = s
		}
		return "state IN (" + placeholders + ")", args, nil

	case query.FieldEquals:
		return "json_extract(data, ?) = ?", []any{jsonPath(pred.Field), pred.Value}, nil

	case query.FieldRange:
		var parts []string
		var args []any
		bounds := []struct {
			op    string
			value any
		}{{">", pred.Gt}, {">=", pred.Gte}, {"<", pred.Lt}, {"<=", pred.Lte}}
		for _, b := range bounds {
			if b.value == nil {
				continue
			}
			parts = append(parts, "json_extract(data, ?) "+b.op+" ?")
			args = append(args, jsonPath(pred.Field), b.value)
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, nil

	case query.FieldExists:
		return "json_extract(data, ?) IS NOT NULL", []any{jsonPath(pred.Field)}, nil

	case query.FieldNotEmpty:
		return "COALESCE(json_array_length(data, ?), 0) > 0", []any{jsonPath(pred.Field)}, nil

	case query.Not:
		inner, args, err := compilePredicate(pred.Predicate)
		if err != nil {
			return "", nil, err
		}
		// NULL from a missing field must count as false before negation
		return "NOT COALESCE((" + inner + "), 0)", args, nil

	case query.And:
		return compileJunction(pred.Predicates, " AND ", "1 = 1")

	case query.Or:
		return compileJunction(pred.Predicates, " OR ", "0 = 1")

	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileJunction(preds []query.Predicate, sep, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var args []any
	for _, sub := range preds {
		clause, subArgs, err := compilePredicate(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, clause)
		args = append(args, subArgs...)
	}
	return "(" + strings.Join(parts, sep) + ")", args, nil
}

func jsonPath(field string) string {
	return "$." + field
}
