package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownVariable is returned when an expression names a variable that
// was not supplied.
var ErrUnknownVariable = errors.New("unknown variable")

// Program is a parsed expression, safe to evaluate repeatedly.
type Program struct {
	src  string
	root node
}

// Compile parses src.
func Compile(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("lexing expression: %w", err)
	}
	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, fmt.Errorf("parsing expression: %w", err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("parsing expression: trailing %q at %d", t.text, t.pos)
	}
	return &Program{src: src, root: root}, nil
}

// String returns the source text.
func (p *Program) String() string { return p.src }

// Eval runs the program against vars. Results are float64, string, bool,
// []any or nil.
func (p *Program) Eval(vars map[string]any) (any, error) {
	return eval(p.root, vars)
}

// Eval compiles and runs src with the single variable "value".
func Eval(src string, value any) (any, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Eval(map[string]any{"value": value})
}

func eval(n node, vars map[string]any) (any, error) {
	switch n := n.(type) {
	case numberLit:
		return n.v, nil
	case stringLit:
		return n.v, nil
	case boolLit:
		return n.v, nil
	case nullLit:
		return nil, nil
	case ident:
		v, ok := vars[n.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownVariable, n.name)
		}
		return Normalize(v), nil
	case arrayLit:
		out := make([]any, len(n.elems))
		for i, e := range n.elems {
			v, err := eval(e, vars)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case index:
		return evalIndex(n, vars)
	case member:
		target, err := eval(n.target, vars)
		if err != nil {
			return nil, err
		}
		if n.name != "length" {
			return nil, fmt.Errorf("unsupported property %q", n.name)
		}
		switch t := target.(type) {
		case []any:
			return float64(len(t)), nil
		case string:
			return float64(len(t)), nil
		}
		return nil, nil
	case unary:
		x, err := eval(n.x, vars)
		if err != nil {
			return nil, err
		}
		switch n.op {
		case "!":
			return !truthy(x), nil
		case "-":
			return -number(x), nil
		default:
			return number(x), nil
		}
	case binary:
		return evalBinary(n, vars)
	case ternary:
		c, err := eval(n.cond, vars)
		if err != nil {
			return nil, err
		}
		if truthy(c) {
			return eval(n.then, vars)
		}
		return eval(n.els, vars)
	case call:
		return evalCall(n, vars)
	}
	return nil, fmt.Errorf("unsupported expression node %T", n)
}

func evalIndex(n index, vars map[string]any) (any, error) {
	target, err := eval(n.target, vars)
	if err != nil {
		return nil, err
	}
	idx, err := eval(n.idx, vars)
	if err != nil {
		return nil, err
	}
	i := int(number(idx))
	switch t := target.(type) {
	case []any:
		if i < 0 || i >= len(t) {
			return nil, nil
		}
		return t[i], nil
	case string:
		if i < 0 || i >= len(t) {
			return nil, nil
		}
		return t[i : i+1], nil
	}
	return nil, nil
}

func evalBinary(n binary, vars map[string]any) (any, error) {
	l, err := eval(n.l, vars)
	if err != nil {
		return nil, err
	}
	// logical operators short-circuit and yield an operand
	switch n.op {
	case "&&":
		if !truthy(l) {
			return l, nil
		}
		return eval(n.r, vars)
	case "||":
		if truthy(l) {
			return l, nil
		}
		return eval(n.r, vars)
	}

	r, err := eval(n.r, vars)
	if err != nil {
		return nil, err
	}
	switch n.op {
	case "+":
		ls, lok := l.(string)
		rs, rok := r.(string)
		if lok || rok {
			if !lok {
				ls = toString(l)
			}
			if !rok {
				rs = toString(r)
			}
			return ls + rs, nil
		}
		return number(l) + number(r), nil
	case "-":
		return number(l) - number(r), nil
	case "*":
		return number(l) * number(r), nil
	case "/":
		return number(l) / number(r), nil
	case "%":
		return math.Mod(number(l), number(r)), nil
	case "==", "===":
		return equal(l, r), nil
	case "!=", "!==":
		return !equal(l, r), nil
	case "<", "<=", ">", ">=":
		return compare(n.op, l, r), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", n.op)
}

func evalCall(n call, vars map[string]any) (any, error) {
	args := make([]float64, len(n.args))
	for i, a := range n.args {
		v, err := eval(a, vars)
		if err != nil {
			return nil, err
		}
		args[i] = number(v)
	}
	arity := func(want int) error {
		if len(args) != want {
			return fmt.Errorf("%s takes %d arguments, got %d", n.fn, want, len(args))
		}
		return nil
	}
	switch n.fn {
	case "abs", "round", "floor", "ceil":
		if err := arity(1); err != nil {
			return nil, err
		}
		switch n.fn {
		case "abs":
			return math.Abs(args[0]), nil
		case "round":
			return math.Floor(args[0] + 0.5), nil
		case "floor":
			return math.Floor(args[0]), nil
		default:
			return math.Ceil(args[0]), nil
		}
	case "min", "max":
		if len(args) == 0 {
			return nil, fmt.Errorf("%s needs at least one argument", n.fn)
		}
		out := args[0]
		for _, a := range args[1:] {
			if n.fn == "min" {
				out = math.Min(out, a)
			} else {
				out = math.Max(out, a)
			}
		}
		return out, nil
	case "clamp":
		if err := arity(3); err != nil {
			return nil, err
		}
		return math.Min(math.Max(args[0], args[1]), args[2]), nil
	}
	return nil, fmt.Errorf("unknown function %q", n.fn)
}

// Normalize converts numeric and slice inputs to the interpreter's value set.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case fmt.Stringer:
		return t.String()
	}
	return v
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	}
	return true
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case nil:
		return 0
	}
	return math.NaN()
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return t
	}
	return fmt.Sprint(v)
}

func equal(l, r any) bool {
	switch lt := l.(type) {
	case string:
		rt, ok := r.(string)
		return ok && lt == rt
	case float64:
		rt, ok := r.(float64)
		return ok && lt == rt
	case bool:
		rt, ok := r.(bool)
		return ok && lt == rt
	case nil:
		return r == nil
	}
	return false
}

func compare(op string, l, r any) bool {
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			switch op {
			case "<":
				return ls < rs
			case "<=":
				return ls <= rs
			case ">":
				return ls > rs
			default:
				return ls >= rs
			}
		}
	}
	a, b := number(l), number(r)
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}
