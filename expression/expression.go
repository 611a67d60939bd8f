// Package expression evaluates boundary value formulas such as
// "sin(pi*y)*exp(-t)" over named coordinates and parameters.
package expression

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
)

var ErrEval = errors.New("expression evaluation failed")

// Expression satisfies spectralbase.Evaluator.
type Expression struct {
	source string
	expr   *govaluate.EvaluableExpression
	vars   []string
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument, have %d", name, len(args))
		}
		x, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("%s: argument %v is not a number", name, args[0])
		}
		return f(x), nil
	}
}

var functions = map[string]govaluate.ExpressionFunction{
	"sin":  unary("sin", math.Sin),
	"cos":  unary("cos", math.Cos),
	"tan":  unary("tan", math.Tan),
	"sinh": unary("sinh", math.Sinh),
	"cosh": unary("cosh", math.Cosh),
	"tanh": unary("tanh", math.Tanh),
	"exp":  unary("exp", math.Exp),
	"log":  unary("log", math.Log),
	"sqrt": unary("sqrt", math.Sqrt),
	"abs":  unary("abs", math.Abs),
	"pow": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("pow takes 2 arguments, have %d", len(args))
		}
		x, ok1 := args[0].(float64)
		y, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("pow: arguments %v are not numbers", args)
		}
		return math.Pow(x, y), nil
	},
}

func New(source string) (ex *Expression, err error) {
	var expr *govaluate.EvaluableExpression
	if expr, err = govaluate.NewEvaluableExpressionWithFunctions(source, functions); err != nil {
		err = fmt.Errorf("%w: parse %q: %v", ErrEval, source, err)
		return
	}
	ex = &Expression{source: source, expr: expr}
	seen := make(map[string]bool)
	for _, v := range expr.Vars() {
		if _, ok := constants[v]; ok || seen[v] {
			continue
		}
		seen[v] = true
		ex.vars = append(ex.vars, v)
	}
	sort.Strings(ex.vars)
	return
}

// MustNew panics on a malformed expression, for literals in tests and tables.
func MustNew(source string) *Expression {
	ex, err := New(source)
	if err != nil {
		panic(err)
	}
	return ex
}

// Symbols returns the free variables, sorted, without the constants pi and e.
func (ex *Expression) Symbols() []string {
	s := make([]string, len(ex.vars))
	copy(s, ex.vars)
	return s
}

func (ex *Expression) Eval(vars map[string]float64) (val float64, err error) {
	params := make(map[string]interface{}, len(vars)+len(constants))
	for key, c := range constants {
		params[key] = c
	}
	for key, v := range vars {
		params[key] = v
	}
	for _, v := range ex.vars {
		if _, ok := params[v]; !ok {
			return 0, fmt.Errorf("%w: %q has no value for %q", ErrEval, ex.source, v)
		}
	}
	var res interface{}
	if res, err = ex.expr.Evaluate(params); err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrEval, ex.source, err)
	}
	switch r := res.(type) {
	case float64:
		val = r
	case bool:
		if r {
			val = 1
		}
	default:
		err = fmt.Errorf("%w: %q gave %T", ErrEval, ex.source, res)
	}
	return
}

func (ex *Expression) String() string { return ex.source }
