package runner

import (
	"github.com/tsujio/bulletml-core"
	"github.com/tsujio/bulletml-core/compile"
	"github.com/tsujio/bulletml-core/expr"
	"github.com/tsujio/bulletml-core/zipper"
)

// Runner drives every top-level action process attached to one bullet,
// one tick at a time. A Fire step that spawns a bullet with its own
// action tree produces a further Runner for that bullet, collected in
// Spawned for the host to pick up and drive on its own schedule; this
// package never drives a bullet its caller didn't ask it to.
type Runner struct {
	orientation bulletml.Orientation
	manager     BulletManager
	processes   []*process
	Spawned     []*Runner
}

// New starts a Runner for every root action in compiled, all driving the
// single bullet manager represents.
func New(compiled *compile.BulletML, manager BulletManager) *Runner {
	r := &Runner{orientation: compiled.Orientation, manager: manager}
	for _, root := range compiled.Roots {
		r.processes = append(r.processes, newProcess(r, root.Root, manager, nil))
	}
	return r
}

// Update advances every live process by one tick. It returns the first
// error encountered; a partially-updated Runner should be discarded.
func (r *Runner) Update() error {
	turn := r.manager.Turn()

	live := r.processes[:0]
	for _, p := range r.processes {
		if err := p.update(turn); err != nil {
			return err
		}
		if !p.done {
			live = append(live, p)
		}
	}
	r.processes = live

	return nil
}

// Done reports whether every process this Runner started has finished
// (reached the end of its action, or the bullet vanished).
func (r *Runner) Done() bool {
	return len(r.processes) == 0
}

// Manager returns the BulletManager this Runner drives, so a host that
// only holds onto Spawned runners can still reach the manager each one
// was built around.
func (r *Runner) Manager() BulletManager {
	return r.manager
}

// scopeFrame marks a point in the tree walk where a CallStep or
// RepeatStep pushed a child scope: once the cursor's depth drops back to
// depth or shallower, the walk has left that step's injected subtree and
// the scope it installed goes out of effect. loopScope is set only for a
// RepeatStep frame, naming the scope whose $loop.index this frame bumps
// each time the walk re-enters at depth+1 (the point where the next
// injected iteration body starts).
type scopeFrame struct {
	depth     int
	prevScope *scope
	loopScope *scope
	iterSeen  int
}

// process interprets one compiled action tree against one bullet,
// walking it with a zipper.Iter cursor that the walk itself extends:
// a Repeat or actionRef reference injects its body as children of the
// node currently focused, and the cursor descends into them on its next
// step, exactly as it would any other child.
type process struct {
	owner   *Runner
	manager BulletManager
	scope   *scope

	iter       *zipper.Iter[compile.Step]
	scopeStack []scopeFrame
	done       bool

	waiting   bool
	waitUntil int

	speedFn, directionFn *function
	accelXFn, accelYFn   *function

	lastFireDirection    expr.Value
	lastFireDirectionSet bool
	lastSpeed            expr.Value
	lastSpeedSet         bool
	lastAxisX, lastAxisY expr.Value
	lastAxisXSet         bool
	lastAxisYSet         bool
}

func newProcess(owner *Runner, root *zipper.Node[compile.Step], manager BulletManager, vars map[string]expr.Value) *process {
	p := &process{
		owner:   owner,
		manager: manager,
		iter:    root.Clone().Zipper().Iter(),
	}
	p.scope = newScope(nil, manager, vars)
	return p
}

func (p *process) orientation() bulletml.Orientation {
	return p.owner.orientation
}

// update walks the action tree cursor forward from wherever it stopped
// last tick, interpreting nodes until one pauses execution (Wait) or the
// cursor runs out of tree, applying any in-flight tween functions either
// way.
func (p *process) update(turn int) error {
	if p.waiting {
		// The observed semantics are asymmetric: a Wait keeps pausing
		// through and including its own deadline turn, only releasing
		// the tick after (see §9's Wait-polarity note; reproduced here
		// rather than the naive "release at the deadline" reading so
		// existing scripts time out exactly as before).
		if turn <= p.waitUntil {
			p.applyTweens(turn)
			return nil
		}
		p.waiting = false
	}

	for {
		step := p.iter.Next()
		if step == nil {
			break
		}
		depth := p.iter.Depth()

		for len(p.scopeStack) > 0 && depth <= p.scopeStack[len(p.scopeStack)-1].depth {
			top := p.scopeStack[len(p.scopeStack)-1]
			p.scopeStack = p.scopeStack[:len(p.scopeStack)-1]
			p.scope = top.prevScope
		}

		switch v := (*step).(type) {
		case compile.Sequence:
			// Root/Action nodes are purely structural, save one case: the
			// Sequence wrapping a Repeat's injected iteration body is how
			// startRepeat marks the start of a fresh iteration, since the
			// cursor visits it exactly once per copy.
			if n := len(p.scopeStack); n > 0 {
				top := &p.scopeStack[n-1]
				if top.loopScope != nil && depth == top.depth+1 {
					top.loopScope.vars["loop.index"] = expr.Value(top.iterSeen)
					top.iterSeen++
				}
			}

		case compile.Wait:
			ticks, err := eval(v.Ticks, p.scope)
			if err != nil {
				return err
			}
			p.waitUntil = turn + durationTicks(ticks)
			p.waiting = true
			p.applyTweens(turn)
			return nil

		case compile.VanishStep:
			p.manager.Vanish()
			p.done = true
			return nil

		case compile.FireStep:
			if err := p.handleFire(v); err != nil {
				return err
			}

		case compile.ChangeSpeedStep:
			if err := p.startChangeSpeed(v, turn); err != nil {
				return err
			}

		case compile.ChangeDirectionStep:
			if err := p.startChangeDirection(v, turn); err != nil {
				return err
			}

		case compile.AccelStep:
			if err := p.startAccel(v, turn); err != nil {
				return err
			}

		case compile.RepeatStep:
			if err := p.startRepeat(v, depth); err != nil {
				return err
			}

		case compile.CallStep:
			if err := p.startCall(v, depth); err != nil {
				return err
			}
		}
	}

	// The cursor has exhausted the tree. The bullet is only done once its
	// tweens have run out too: a changeSpeed/changeDirection/accel with no
	// trailing wait would otherwise be cut off mid-interpolation the same
	// tick its owning action finishes.
	p.done = p.speedFn == nil && p.directionFn == nil && p.accelXFn == nil && p.accelYFn == nil
	p.applyTweens(turn)
	return nil
}

// startCall pushes a fresh scope binding Params as $1, $2, ... and
// injects the called action's body as a child of the actionRef node, for
// the cursor to descend into on its next step.
func (p *process) startCall(cs compile.CallStep, depth int) error {
	vars, err := bindParams(cs.Params, p.scope)
	if err != nil {
		return err
	}
	prev := p.scope
	p.scope = newScope(prev, p.manager, vars)

	p.iter.AddChild(cs.Body.Clone())
	p.scopeStack = append(p.scopeStack, scopeFrame{depth: depth, prevScope: prev})
	return nil
}

// startRepeat evaluates times and injects that many clones of the
// repeat's body as children of the repeat node in one step, matching the
// cursor's injection model: the walk will visit each copy in turn as it
// descends. A single scope is pushed for the whole repeat and its
// $loop.index is bumped in place each time the walk reaches a fresh
// copy (see the compile.Sequence case in update), since the copies run
// strictly one after another and never need independent scopes.
func (p *process) startRepeat(rs compile.RepeatStep, depth int) error {
	times, err := eval(rs.Times, p.scope)
	if err != nil {
		return err
	}
	vars, err := bindParams(rs.Params, p.scope)
	if err != nil {
		return err
	}
	vars["loop.index"] = 0

	prev := p.scope
	loopScope := newScope(prev, p.manager, vars)
	p.scope = loopScope

	for i, count := 0, repeatCount(times); i < count; i++ {
		p.iter.AddChild(rs.Body.Clone())
	}

	p.scopeStack = append(p.scopeStack, scopeFrame{depth: depth, prevScope: prev, loopScope: loopScope})
	return nil
}

func (p *process) handleFire(f compile.FireStep) error {
	bullet := f.Bullet

	dirChange := f.Direction
	if dirChange == nil {
		dirChange = bullet.Direction
	}
	speedChange := f.Speed
	if speedChange == nil {
		speedChange = bullet.Speed
	}

	direction, err := p.resolveFireDirection(dirChange)
	if err != nil {
		return err
	}
	speed, err := p.resolveFireSpeed(speedChange)
	if err != nil {
		return err
	}

	p.lastFireDirection, p.lastFireDirectionSet = direction, true
	p.lastSpeed, p.lastSpeedSet = speed, true

	if bullet.Action == nil || len(bullet.Action.Children) == 0 {
		p.manager.NewSimple(direction, speed)
		return nil
	}

	child := p.manager.New(direction, speed)
	vars, err := bindParams(f.Params, p.scope)
	if err != nil {
		return err
	}

	childRunner := &Runner{orientation: p.orientation(), manager: child}
	childRunner.processes = []*process{newProcess(childRunner, bullet.Action, child, vars)}
	p.owner.Spawned = append(p.owner.Spawned, childRunner)

	return nil
}

// resolveFireDirection implements §4.4's Fire rule: if no direction is
// supplied at all (neither fire-level nor bullet-level), the bullet
// aims straight at aim_direction(), bypassing the kind composition
// entirely (no orientation offset, no addition).
func (p *process) resolveFireDirection(d *compile.DirectionChange) (expr.Value, error) {
	if d == nil {
		return p.manager.AimDirection(), nil
	}
	val, err := eval(d.Expr, p.scope)
	if err != nil {
		return 0, err
	}
	return resolveDirection(d.Kind, val, p.orientation(), p.manager.Direction(), p.manager.AimDirection(), p.lastFireDirection, p.lastFireDirectionSet), nil
}

func (p *process) resolveFireSpeed(s *compile.SpeedChange) (expr.Value, error) {
	if s == nil {
		return p.manager.DefaultSpeed(), nil
	}
	val, err := eval(s.Expr, p.scope)
	if err != nil {
		return 0, err
	}
	return resolveSpeed(s.Kind, val, p.manager.Speed(), p.lastSpeed, p.lastSpeedSet), nil
}

// startChangeSpeed implements §4.4's ChangeSpeed rule: Sequence kind has
// its own formula (duration * change + current speed), distinct from
// the general target_speed composition Absolute/Relative share with Fire.
func (p *process) startChangeSpeed(c compile.ChangeSpeedStep, turn int) error {
	term, err := eval(c.Term, p.scope)
	if err != nil {
		return err
	}
	change, err := eval(c.Target.Expr, p.scope)
	if err != nil {
		return err
	}
	current := p.manager.Speed()

	var resolved expr.Value
	if c.Target.Kind == bulletml.SpeedSequence {
		resolved = term*change + current
	} else {
		resolved = resolveSpeed(c.Target.Kind, change, current, 0, false)
	}

	f := newFunction(turn, turn+durationTicks(term), current, resolved)
	p.speedFn = &f
	p.lastSpeed, p.lastSpeedSet = resolved, true
	return nil
}

// startChangeDirection mirrors startChangeSpeed's Sequence special case
// for direction (duration * degrees + current direction).
func (p *process) startChangeDirection(c compile.ChangeDirectionStep, turn int) error {
	term, err := eval(c.Term, p.scope)
	if err != nil {
		return err
	}
	degrees, err := eval(c.Target.Expr, p.scope)
	if err != nil {
		return err
	}
	current := p.manager.Direction()

	var resolved expr.Value
	if c.Target.Kind == bulletml.DirectionSequence {
		resolved = normalizeDegrees(term*degrees + current)
	} else {
		resolved = resolveDirection(c.Target.Kind, degrees, p.orientation(), current, p.manager.AimDirection(), 0, false)
	}

	f := newFunction(turn, turn+durationTicks(term), current, resolved)
	p.directionFn = &f
	p.lastFireDirection, p.lastFireDirectionSet = resolved, true
	return nil
}

// startAccel implements §4.4's axis swap: in Horizontal game
// orientation the document's horizontal channel drives accel_y and the
// vertical channel drives accel_x; every other orientation leaves them
// unswapped (§8 S5).
func (p *process) startAccel(a compile.AccelStep, turn int) error {
	term, err := eval(a.Term, p.scope)
	if err != nil {
		return err
	}
	end := turn + durationTicks(term)
	swapped := p.orientation() == bulletml.Horizontal

	if a.Horizontal != nil {
		val, err := eval(a.Horizontal.Expr, p.scope)
		if err != nil {
			return err
		}
		if swapped {
			current := p.manager.SpeedY()
			resolved := resolveAxis(a.Horizontal.Kind, val, current, p.lastAxisY, p.lastAxisYSet)
			f := newFunction(turn, end, current, resolved)
			p.accelYFn = &f
			p.lastAxisY, p.lastAxisYSet = resolved, true
		} else {
			current := p.manager.SpeedX()
			resolved := resolveAxis(a.Horizontal.Kind, val, current, p.lastAxisX, p.lastAxisXSet)
			f := newFunction(turn, end, current, resolved)
			p.accelXFn = &f
			p.lastAxisX, p.lastAxisXSet = resolved, true
		}
	}
	if a.Vertical != nil {
		val, err := eval(a.Vertical.Expr, p.scope)
		if err != nil {
			return err
		}
		if swapped {
			current := p.manager.SpeedX()
			resolved := resolveAxis(a.Vertical.Kind, val, current, p.lastAxisX, p.lastAxisXSet)
			f := newFunction(turn, end, current, resolved)
			p.accelXFn = &f
			p.lastAxisX, p.lastAxisXSet = resolved, true
		} else {
			current := p.manager.SpeedY()
			resolved := resolveAxis(a.Vertical.Kind, val, current, p.lastAxisY, p.lastAxisYSet)
			f := newFunction(turn, end, current, resolved)
			p.accelYFn = &f
			p.lastAxisY, p.lastAxisYSet = resolved, true
		}
	}
	return nil
}

// applyTweens advances any in-flight changeSpeed/changeDirection/accel
// interpolations for this tick, independent of where the tree walk
// currently is: once started these run in the background every tick,
// the same way a wait timer counts down regardless of nesting depth.
func (p *process) applyTweens(turn int) {
	if p.speedFn != nil {
		v, done := p.speedFn.valueAt(turn)
		p.manager.ChangeSpeed(v)
		if done {
			p.speedFn = nil
		}
	}
	if p.directionFn != nil {
		v, done := p.directionFn.valueAt(turn)
		p.manager.ChangeDirection(v)
		if done {
			p.directionFn = nil
		}
	}
	if p.accelXFn != nil {
		v, done := p.accelXFn.valueAt(turn)
		p.manager.AccelX(v)
		if done {
			p.accelXFn = nil
		}
	}
	if p.accelYFn != nil {
		v, done := p.accelYFn.valueAt(turn)
		p.manager.AccelY(v)
		if done {
			p.accelYFn = nil
		}
	}
}
