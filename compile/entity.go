// Package compile resolves the named cross-references in a parsed
// bulletml.BulletML document (action/bullet/fire labels referenced via
// <actionRef>/<bulletRef>/<fireRef>) into a self-contained executable
// tree with no further name lookups, ready for package runner to walk.
package compile

import (
	"fmt"

	"github.com/tsujio/bulletml-core"
	"github.com/tsujio/bulletml-core/expr"
	"github.com/tsujio/bulletml-core/zipper"
)

// EntityNotFoundError is returned when a *Ref element names a label with
// no matching definition anywhere in the document.
type EntityNotFoundError struct {
	Kind string
	Name string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// DuplicateEntityError is returned when two top-level definitions of the
// same kind share a label.
type DuplicateEntityError struct {
	Kind string
	Name string
}

func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("duplicate %s label %q", e.Kind, e.Name)
}

// Step is the compiled form of a single action command. Concrete types
// are Sequence, Wait, VanishStep, FireStep, RepeatStep, CallStep,
// ChangeSpeedStep, ChangeDirectionStep and AccelStep; package runner switches on the
// concrete type the way bulletml.Action.Commands does on its elements.
type Step interface {
	isStep()
}

// Sequence is the root payload of every compiled action body: a node
// whose children are the Steps to run, in order. It carries no data of
// its own; it only exists so an action's Step tree has somewhere to hang
// its first level of children off of.
type Sequence struct{}

func (Sequence) isStep() {}

// Wait pauses the action for Ticks ticks.
type Wait struct {
	Ticks *expr.Expr
}

func (Wait) isStep() {}

// VanishStep removes the running bullet.
type VanishStep struct{}

func (VanishStep) isStep() {}

// DirectionChange is a compiled <direction> or <change*> direction value.
type DirectionChange struct {
	Kind bulletml.DirectionKind
	Expr *expr.Expr
}

// SpeedChange is a compiled <speed> or <change*> speed value.
type SpeedChange struct {
	Kind bulletml.SpeedKind
	Expr *expr.Expr
}

// AxisChange is a compiled <horizontal> or <vertical> accel term.
type AxisChange struct {
	Kind bulletml.AxisKind
	Expr *expr.Expr
}

// Bullet is the compiled form of a <bullet> or <bulletRef>: the optional
// direction/speed overrides and the action tree it runs once spawned.
type Bullet struct {
	Direction *DirectionChange
	Speed     *SpeedChange
	Action    *zipper.Node[Step]
}

// FireStep spawns a Bullet, optionally overriding its direction/speed
// again, and binds Params into the bullet's action scope as $1, $2, ....
type FireStep struct {
	Direction *DirectionChange
	Speed     *SpeedChange
	Bullet    *Bullet
	Params    []*expr.Expr
}

func (FireStep) isStep() {}

// RepeatStep runs Body Times times. Params and $loop.index are bound in
// one scope for the whole repeat, with $loop.index updated as each
// iteration starts. Body is the shared, compiled
// template of the action being repeated; each iteration clones it rather
// than walking it directly, since a Node's Children are consumed as the
// tree is walked.
type RepeatStep struct {
	Times  *expr.Expr
	Body   *zipper.Node[Step]
	Params []*expr.Expr
}

func (RepeatStep) isStep() {}

// CallStep invokes a named action from within an already-running action
// body (a bare <actionRef>, or one naming a <bullet>'s behavior). Body is
// the shared, compiled template; Params are evaluated in the caller's
// scope and bound as $1, $2, ... in a fresh scope pushed for the
// duration of the call.
type CallStep struct {
	Body   *zipper.Node[Step]
	Params []*expr.Expr
}

func (CallStep) isStep() {}

// ChangeSpeedStep linearly moves speed to Target over Term ticks.
type ChangeSpeedStep struct {
	Target *SpeedChange
	Term   *expr.Expr
}

func (ChangeSpeedStep) isStep() {}

// ChangeDirectionStep linearly moves direction to Target over Term ticks.
type ChangeDirectionStep struct {
	Target *DirectionChange
	Term   *expr.Expr
}

func (ChangeDirectionStep) isStep() {}

// AccelStep linearly moves per-axis velocity over Term ticks.
type AccelStep struct {
	Horizontal *AxisChange
	Vertical   *AxisChange
	Term       *expr.Expr
}

func (AccelStep) isStep() {}

// Action is a top-level, runnable compiled action: a root the runner can
// spawn an action process from directly. Only document actions whose
// label starts with "top" become roots; everything else is reachable
// only by reference from a root.
type Action struct {
	Label string
	Root  *zipper.Node[Step]
}

// BulletML is the compiled, self-contained form of a document: every
// named cross-reference has already been resolved and inlined, so
// running it never needs to look anything up by name again.
type BulletML struct {
	Orientation bulletml.Orientation
	Roots       []*Action
}
