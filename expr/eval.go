package expr

import "fmt"

// Context supplies values for variables referenced during evaluation.
type Context interface {
	// Get looks up a named variable.
	Get(name string) (Value, bool)
	// Rand returns a fresh random draw in [0, 1).
	Rand() Value
	// Rank returns the current difficulty, in [0, 1].
	Rank() Value
}

// UndefinedVariableError is returned by Eval when a named variable has no
// binding in the given context.
type UndefinedVariableError struct {
	Name string
}

func (e *UndefinedVariableError) Error() string {
	return fmt.Sprintf("undefined variable %q", e.Name)
}

// Eval evaluates a parsed expression against ctx. Every call against the
// same Expr and a context with stable Get/Rank yields the same result,
// except for $rand draws.
func Eval(e *Expr, ctx Context) (Value, error) {
	switch e.Kind {
	case ExprFloat:
		return e.Float, nil
	case ExprVar:
		switch e.VarKind {
		case VarRank:
			return ctx.Rank(), nil
		case VarRand:
			return ctx.Rand(), nil
		default:
			if v, ok := ctx.Get(e.Name); ok {
				return v, nil
			}
			return 0, &UndefinedVariableError{Name: e.Name}
		}
	case ExprUnaryNeg:
		x, err := Eval(e.X, ctx)
		if err != nil {
			return 0, err
		}
		return -x, nil
	case ExprBinary:
		x, err := Eval(e.X, ctx)
		if err != nil {
			return 0, err
		}
		y, err := Eval(e.Y, ctx)
		if err != nil {
			return 0, err
		}
		return evalBinary(e.Op, x, y), nil
	case ExprCall:
		x, err := Eval(e.X, ctx)
		if err != nil {
			return 0, err
		}
		return evalCall(e.Func, x), nil
	default:
		return 0, fmt.Errorf("unreachable expression kind %d", e.Kind)
	}
}
