package tools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

type CalculatorInput struct {
	Expression string `json:"expression" jsonschema_description:"Arithmetic expression to evaluate, e.g. (3 + 4) * 2 / 7. Supports + - * / % ^ and abs, ceil, floor, round, min, max."`
}

var CalculatorDefinition = NewTool("calculator",
	"Evaluate an arithmetic expression and return the numeric result.",
	Calculate)

// Calculate evaluates in.Expression without any variables in scope.
func Calculate(_ context.Context, in CalculatorInput) (string, error) {
	src := strings.TrimSpace(in.Expression)
	if src == "" {
		return "", InvalidParams(errors.New("expression is empty"))
	}
	program, err := expr.Compile(src)
	if err != nil {
		return "", InvalidParams(fmt.Errorf("parse expression: %w", err))
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	return formatResult(out), nil
}

func formatResult(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	case string:
		return n
	}
	return fmt.Sprint(v)
}
