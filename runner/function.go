package runner

import "github.com/tsujio/bulletml-core/expr"

// function is a linear interpolation from Start at MinTurn to End at
// MaxTurn, the runtime shape behind changeSpeed, changeDirection and
// accel: each evaluates its target once when the command starts, then
// this carries the value forward one tick at a time until Term ticks
// have elapsed, landing on End exactly rather than drifting from
// compounding rounding error.
type function struct {
	MinTurn, MaxTurn int
	Start, End       expr.Value
	step             expr.Value
}

func newFunction(minTurn, maxTurn int, start, end expr.Value) function {
	f := function{MinTurn: minTurn, MaxTurn: maxTurn, Start: start, End: end}
	if ticks := maxTurn - minTurn; ticks > 0 {
		f.step = (end - start) / expr.Value(ticks)
	}
	return f
}

// valueAt returns the interpolated value at turn and whether turn has
// reached or passed MaxTurn, meaning this is the function's final tick.
func (f function) valueAt(turn int) (expr.Value, bool) {
	if turn >= f.MaxTurn {
		return f.End, true
	}
	if turn <= f.MinTurn {
		return f.Start, false
	}
	return f.Start + f.step*expr.Value(turn-f.MinTurn), false
}
