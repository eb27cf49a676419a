// Package expr implements the arithmetic expression language used throughout
// BulletML scripts: literals, named variables, the $rand/$rank builtins, and
// the sin()/cos() functions, with operator precedence and constant folding.
package expr

// Value is the numeric type expressions evaluate to.
type Value float32

// VarKind distinguishes the built-in variables from named ones.
type VarKind int

const (
	// VarRank is the $rank built-in: the current difficulty, in [0, 1].
	VarRank VarKind = iota
	// VarRand is the $rand built-in: a fresh draw in [0, 1) per evaluation.
	VarRand
	// VarNamed is any other $-prefixed identifier, looked up by name.
	VarNamed
)

// BinaryOp is a binary arithmetic operator.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Func is a builtin function name.
type Func int

const (
	FuncSin Func = iota
	FuncCos
)

// Expr is the expression AST. Exactly one of the fields is meaningful,
// selected by Kind.
type Expr struct {
	Kind ExprKind

	// Kind == ExprFloat
	Float Value

	// Kind == ExprVar
	VarKind VarKind
	Name    string // only set when VarKind == VarNamed

	// Kind == ExprUnaryNeg
	// Kind == ExprCall (argument)
	X *Expr

	// Kind == ExprBinary
	Op BinaryOp
	Y  *Expr

	// Kind == ExprCall
	Func Func
}

// ExprKind tags which variant of Expr is populated.
type ExprKind int

const (
	ExprFloat ExprKind = iota
	ExprVar
	ExprUnaryNeg
	ExprBinary
	ExprCall
)

func litFloat(v Value) *Expr {
	return &Expr{Kind: ExprFloat, Float: v}
}

func varRank() *Expr {
	return &Expr{Kind: ExprVar, VarKind: VarRank}
}

func varRand() *Expr {
	return &Expr{Kind: ExprVar, VarKind: VarRand}
}

func varNamed(name string) *Expr {
	return &Expr{Kind: ExprVar, VarKind: VarNamed, Name: name}
}

func unaryNeg(x *Expr) *Expr {
	return &Expr{Kind: ExprUnaryNeg, X: x}
}

func binary(op BinaryOp, x, y *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, X: x, Y: y}
}

func call(fn Func, x *Expr) *Expr {
	return &Expr{Kind: ExprCall, Func: fn, X: x}
}

// isConstant reports whether the subtree contains no variable reference at
// all, including $rand and $rank: a subtree mentioning either is never
// folded, since their value is not fixed at parse time.
func (e *Expr) isConstant() bool {
	switch e.Kind {
	case ExprFloat:
		return true
	case ExprVar:
		return false
	case ExprUnaryNeg:
		return e.X.isConstant()
	case ExprBinary:
		return e.X.isConstant() && e.Y.isConstant()
	case ExprCall:
		return e.X.isConstant()
	default:
		return false
	}
}
