package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bulletml "github.com/tsujio/bulletml-core"
	"github.com/tsujio/bulletml-core/compile"
	"github.com/tsujio/bulletml-core/expr"
	"github.com/tsujio/bulletml-core/zipper"
)

// mockManager is a BulletManager whose command methods just record their
// calls, for asserting exactly what a process told its host to do.
type mockManager struct {
	turn         int
	direction    expr.Value
	aimDirection expr.Value
	speed        expr.Value
	speedX       expr.Value
	speedY       expr.Value
	defaultSpeed expr.Value
	vars         map[string]expr.Value

	newSimpleCalls []call
	newCalls       []call
	changeSpeed    []expr.Value
	changeDir      []expr.Value
	accelXCalls    []expr.Value
	accelYCalls    []expr.Value
	vanished       bool
}

type call struct{ direction, speed expr.Value }

func (m *mockManager) Turn() int                { return m.turn }
func (m *mockManager) Direction() expr.Value    { return m.direction }
func (m *mockManager) AimDirection() expr.Value { return m.aimDirection }
func (m *mockManager) Speed() expr.Value        { return m.speed }
func (m *mockManager) SpeedX() expr.Value       { return m.speedX }
func (m *mockManager) SpeedY() expr.Value       { return m.speedY }
func (m *mockManager) DefaultSpeed() expr.Value { return m.defaultSpeed }
func (m *mockManager) Rank() expr.Value         { return 0 }
func (m *mockManager) Rand() expr.Value         { return 0 }

func (m *mockManager) Get(name string) (expr.Value, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m *mockManager) Vanish()                     { m.vanished = true }
func (m *mockManager) ChangeDirection(d expr.Value) { m.direction = d; m.changeDir = append(m.changeDir, d) }
func (m *mockManager) ChangeSpeed(s expr.Value)     { m.speed = s; m.changeSpeed = append(m.changeSpeed, s) }
func (m *mockManager) AccelX(ax expr.Value)         { m.speedX = ax; m.accelXCalls = append(m.accelXCalls, ax) }
func (m *mockManager) AccelY(ay expr.Value)         { m.speedY = ay; m.accelYCalls = append(m.accelYCalls, ay) }

func (m *mockManager) New(direction, speed expr.Value) BulletManager {
	m.newCalls = append(m.newCalls, call{direction, speed})
	return &mockManager{aimDirection: m.aimDirection, defaultSpeed: m.defaultSpeed}
}

func (m *mockManager) NewSimple(direction, speed expr.Value) {
	m.newSimpleCalls = append(m.newSimpleCalls, call{direction, speed})
}

// constExpr builds a literal float expression directly from the AST,
// sidestepping the parser for test fixtures.
func constExpr(v float32) *expr.Expr {
	return &expr.Expr{Kind: expr.ExprFloat, Float: expr.Value(v)}
}

func seqNode(steps ...compile.Step) *zipper.Node[compile.Step] {
	root := zipper.NewNode[compile.Step](compile.Sequence{})
	for _, s := range steps {
		n := zipper.NewNode[compile.Step](s)
		root.AddChild(n)
	}
	return &root
}

func runOneTop(t *testing.T, root *zipper.Node[compile.Step], orientation bulletml.Orientation, mgr *mockManager) *Runner {
	t.Helper()
	compiled := &compile.BulletML{
		Orientation: orientation,
		Roots:       []*compile.Action{{Label: "top", Root: root}},
	}
	return New(compiled, mgr)
}

// S1 — fire once with defaults.
func TestFireOnceWithDefaults(t *testing.T) {
	bullet := &compile.Bullet{Action: seqNode()}
	root := seqNode(compile.FireStep{Bullet: bullet})
	mgr := &mockManager{aimDirection: 42, defaultSpeed: 3}

	r := runOneTop(t, root, bulletml.Vertical, mgr)
	require.NoError(t, r.Update())

	require.Len(t, mgr.newSimpleCalls, 1)
	assert.Equal(t, expr.Value(42), mgr.newSimpleCalls[0].direction)
	assert.Equal(t, expr.Value(3), mgr.newSimpleCalls[0].speed)
	assert.True(t, r.Done())
}

// S2 — wait then vanish.
func TestWaitThenVanish(t *testing.T) {
	root := seqNode(compile.Wait{Ticks: constExpr(3)}, compile.VanishStep{})
	mgr := &mockManager{}
	r := runOneTop(t, root, bulletml.Vertical, mgr)

	for turn := 0; turn < 4; turn++ {
		mgr.turn = turn
		require.NoError(t, r.Update())
		assert.False(t, mgr.vanished, "should not vanish before turn 4, got vanish at turn %d", turn)
	}

	mgr.turn = 4
	require.NoError(t, r.Update())
	assert.True(t, mgr.vanished)
	assert.True(t, r.Done())
}

// S3 — repeat 3 times with fire.
func TestRepeatThreeTimesWithFire(t *testing.T) {
	bullet := &compile.Bullet{Action: seqNode()}
	fire := compile.FireStep{
		Direction: &compile.DirectionChange{Kind: bulletml.DirectionAbsolute, Expr: constExpr(0)},
		Bullet:    bullet,
	}
	body := seqNode(fire)
	root := seqNode(compile.RepeatStep{Times: constExpr(3), Body: body})
	mgr := &mockManager{defaultSpeed: 5}

	r := runOneTop(t, root, bulletml.Vertical, mgr)
	require.NoError(t, r.Update())

	require.Len(t, mgr.newSimpleCalls, 3)
	for _, c := range mgr.newSimpleCalls {
		assert.Equal(t, expr.Value(0), c.direction)
		assert.Equal(t, expr.Value(5), c.speed)
	}
}

// S4 — change speed over 10 ticks, sequence kind.
func TestChangeSpeedSequenceOverTicks(t *testing.T) {
	target := &compile.SpeedChange{Kind: bulletml.SpeedSequence, Expr: constExpr(0.5)}
	root := seqNode(compile.ChangeSpeedStep{Target: target, Term: constExpr(10)}, compile.Wait{Ticks: constExpr(1000)})
	mgr := &mockManager{speed: 1}

	r := runOneTop(t, root, bulletml.Vertical, mgr)

	for turn := 0; turn < 10; turn++ {
		mgr.turn = turn
		require.NoError(t, r.Update())
	}
	require.Len(t, mgr.changeSpeed, 10)
	assert.InDelta(t, 1.0, mgr.changeSpeed[0], 1e-5)
	assert.InDelta(t, 5.5, mgr.changeSpeed[9], 1e-5)

	mgr.turn = 10
	require.NoError(t, r.Update())
	assert.InDelta(t, 6.0, mgr.changeSpeed[10], 1e-5)
}

// S5 — horizontal orientation swap.
func TestAccelHorizontalOrientationSwap(t *testing.T) {
	accel := compile.AccelStep{
		Horizontal: &compile.AxisChange{Kind: bulletml.AxisAbsolute, Expr: constExpr(1)},
		Term:       constExpr(1),
	}
	root := seqNode(accel, compile.Wait{Ticks: constExpr(1000)})
	mgr := &mockManager{}

	r := runOneTop(t, root, bulletml.Horizontal, mgr)
	require.NoError(t, r.Update())
	mgr.turn++
	require.NoError(t, r.Update())

	require.NotEmpty(t, mgr.accelYCalls)
	assert.Equal(t, expr.Value(1), mgr.accelYCalls[len(mgr.accelYCalls)-1])
	assert.Empty(t, mgr.accelXCalls)
}

// S6 — sequence direction seeds from aim.
func TestSequenceDirectionSeedsFromAim(t *testing.T) {
	bullet := &compile.Bullet{Action: seqNode()}
	dir := &compile.DirectionChange{Kind: bulletml.DirectionSequence, Expr: constExpr(10)}
	fire1 := compile.FireStep{Direction: dir, Bullet: bullet}
	fire2 := compile.FireStep{Direction: dir, Bullet: bullet}
	root := seqNode(fire1, fire2)
	mgr := &mockManager{aimDirection: 90}

	r := runOneTop(t, root, bulletml.Vertical, mgr)
	require.NoError(t, r.Update())

	require.Len(t, mgr.newSimpleCalls, 2)
	assert.Equal(t, expr.Value(90), mgr.newSimpleCalls[0].direction)
	assert.Equal(t, expr.Value(100), mgr.newSimpleCalls[1].direction)
}

func TestMissingParameterError(t *testing.T) {
	dollarOne, err := expr.Parse("$1")
	require.NoError(t, err)
	bullet := &compile.Bullet{Action: seqNode()}
	fire := compile.FireStep{
		Direction: &compile.DirectionChange{Kind: bulletml.DirectionAbsolute, Expr: dollarOne},
		Bullet:    bullet,
	}
	root := seqNode(fire)
	mgr := &mockManager{}

	r := runOneTop(t, root, bulletml.Vertical, mgr)
	err = r.Update()
	require.Error(t, err)
	var missing *MissingParameterError
	assert.ErrorAs(t, err, &missing)
}
