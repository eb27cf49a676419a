package runner

import (
	"strconv"

	"github.com/tsujio/bulletml-core/expr"
)

// scope is the expr.Context active at one point in a Process's tree
// walk: a chain of positional-parameter bindings (and, inside a repeat,
// $loop.index) pushed by CallStep and RepeatStep, falling back to the
// enclosing scope and finally to the BulletManager for any name this
// action never bound itself.
type scope struct {
	parent  *scope
	vars    map[string]expr.Value
	manager BulletManager
}

func newScope(parent *scope, manager BulletManager, vars map[string]expr.Value) *scope {
	return &scope{parent: parent, vars: vars, manager: manager}
}

func (s *scope) Get(name string) (expr.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return s.manager.Get(name)
}

func (s *scope) Rand() expr.Value { return s.manager.Rand() }
func (s *scope) Rank() expr.Value { return s.manager.Rank() }

// eval evaluates e against s, translating an undefined reference
// parameter ($1, $2, ... or $loop.index) into a MissingParameterError;
// an undefined plain name is left as expr.UndefinedVariableError since
// it names a host variable, not a parameter.
func eval(e *expr.Expr, s *scope) (expr.Value, error) {
	v, err := expr.Eval(e, s)
	if err == nil {
		return v, nil
	}
	if uerr, ok := err.(*expr.UndefinedVariableError); ok && isParamName(uerr.Name) {
		return 0, &MissingParameterError{Name: uerr.Name}
	}
	return 0, err
}

func isParamName(name string) bool {
	if name == "loop.index" {
		return true
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return len(name) > 0
}

// bindParams evaluates each of exprs in s and returns them keyed "1",
// "2", ... for a callee scope, matching BulletML's 1-based $1, $2, ...
// parameter convention.
func bindParams(exprs []*expr.Expr, s *scope) (map[string]expr.Value, error) {
	vars := make(map[string]expr.Value, len(exprs))
	for i, e := range exprs {
		v, err := eval(e, s)
		if err != nil {
			return nil, err
		}
		vars[paramKey(i)] = v
	}
	return vars, nil
}

func paramKey(i int) string {
	// i is zero-based internally; BulletML parameters are 1-based ($1, $2, ...).
	return strconv.Itoa(i + 1)
}
