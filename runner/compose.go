package runner

import (
	"math"

	"github.com/tsujio/bulletml-core"
	"github.com/tsujio/bulletml-core/expr"
)

// resolveDirection converts a compiled direction value into an absolute
// screen-space angle, reduced modulo 360. lastSet reports whether this
// process has a Sequence baseline yet (set by a prior fire or change);
// Sequence ignores val entirely until one exists, falling back to aim
// instead (§8 S6).
func resolveDirection(kind bulletml.DirectionKind, val expr.Value, o bulletml.Orientation, current, aim, last expr.Value, lastSet bool) expr.Value {
	var result expr.Value
	switch kind {
	case bulletml.DirectionAbsolute:
		result = val + o.Up()
	case bulletml.DirectionRelative:
		result = val + current
	case bulletml.DirectionSequence:
		if lastSet {
			result = val + last
		} else {
			result = aim
		}
	default: // DirectionAim
		result = val + aim
	}
	return normalizeDegrees(result)
}

// resolveSpeed converts a compiled speed value into an absolute speed.
// Sequence falls back to 1.0, not DefaultSpeed, until a baseline exists.
func resolveSpeed(kind bulletml.SpeedKind, val, current, last expr.Value, lastSet bool) expr.Value {
	switch kind {
	case bulletml.SpeedRelative:
		return val + current
	case bulletml.SpeedSequence:
		if lastSet {
			return val + last
		}
		return 1.0
	default: // SpeedAbsolute
		return val
	}
}

// resolveAxis converts a compiled accel term into an absolute per-axis
// velocity. Sequence falls back to 0 until a baseline exists: an axis
// has no aim-like host-supplied default to fall back to.
func resolveAxis(kind bulletml.AxisKind, val, current, last expr.Value, lastSet bool) expr.Value {
	switch kind {
	case bulletml.AxisRelative:
		return val + current
	case bulletml.AxisSequence:
		if lastSet {
			return val + last
		}
		return 0
	default: // AxisAbsolute
		return val
	}
}

func normalizeDegrees(v expr.Value) expr.Value {
	d := math.Mod(float64(v), 360)
	if d < 0 {
		d += 360
	}
	return expr.Value(d)
}

// durationTicks turns a duration expression's value into a tick count:
// NaN or negative clamps to 0, then rounds up, so any positive duration
// spans at least one tick.
func durationTicks(d expr.Value) int {
	f := float64(d)
	if math.IsNaN(f) || f < 0 {
		f = 0
	}
	return int(math.Ceil(f))
}

// repeatCount turns a times expression's value into an iteration count:
// NaN or less than 1 means zero iterations, otherwise truncated (never
// rounded) to an integer.
func repeatCount(v expr.Value) int {
	f := float64(v)
	if math.IsNaN(f) || f < 1 {
		return 0
	}
	return int(f)
}
