// Package headless implements a minimal runner.BulletManager with no
// rendering or input, the "host game" the core library leaves external.
// It exists for cmd/bulletml-run and for tests that want to drive a
// compiled action tree against a concrete, inspectable bullet.
package headless

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/tsujio/bulletml-core/expr"
	"github.com/tsujio/bulletml-core/runner"
)

// Target supplies the position a Manager's bullet aims at, the
// headless analogue of the teacher's CurrentTargetPosition callback.
type Target interface {
	Position() (x, y float64)
}

// FixedTarget is a Target that never moves.
type FixedTarget struct {
	X, Y float64
}

func (t FixedTarget) Position() (float64, float64) { return t.X, t.Y }

// Manager tracks one bullet's position, direction, speed and turn
// count, and logs the Vanish, New and NewSimple commands the runner
// issues against it through the given zerolog.Logger; direction, speed
// and accel changes are applied without logging. Position advances once per Tick, mirroring
// how the teacher's bulletModel is advanced by its own runner loop
// between action-tree updates.
type Manager struct {
	log zerolog.Logger
	rng *rand.Rand

	target       Target
	defaultSpeed expr.Value
	rank         expr.Value

	x, y             float64
	turn             int
	direction, speed expr.Value
	speedX, speedY   expr.Value
	vars             map[string]expr.Value
	vanished         bool

	// Fired collects bullets spawned via New this manager has not yet
	// had drained by its owner; NewSimple bullets never appear here
	// since they carry no runner for the host to drive.
	Fired []*Manager
}

// Options configures a new Manager. Zero values are valid: a nil Rng
// falls back to a source seeded with 1, and a nil Target to a
// FixedTarget at the origin.
type Options struct {
	Log          zerolog.Logger
	Rng          *rand.Rand
	Target       Target
	DefaultSpeed expr.Value
	Rank         expr.Value
	X, Y         float64
	Vars         map[string]expr.Value
}

// New builds a Manager at rest at the origin, aiming at opts.Target.
func New(opts Options) *Manager {
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	target := opts.Target
	if target == nil {
		target = FixedTarget{}
	}
	return &Manager{
		log:          opts.Log,
		rng:          rng,
		target:       target,
		defaultSpeed: opts.DefaultSpeed,
		rank:         opts.Rank,
		x:            opts.X,
		y:            opts.Y,
		vars:         opts.Vars,
	}
}

// Tick advances the turn counter and, at the host's discretion, the
// bullet's position by its current velocity. The core never calls this
// itself: turn progression is the host's to drive (§6 of the spec this
// package backs).
func (m *Manager) Tick() {
	m.turn++
	rad := float64(m.direction) * math.Pi / 180
	m.x += float64(m.speed)*math.Sin(rad) + float64(m.speedX)
	m.y -= float64(m.speed)*math.Cos(rad) - float64(m.speedY)
}

// Position returns the bullet's current coordinates.
func (m *Manager) Position() (float64, float64) { return m.x, m.y }

// Vanished reports whether Vanish has been called on this bullet.
func (m *Manager) Vanished() bool { return m.vanished }

func (m *Manager) Turn() int                { return m.turn }
func (m *Manager) Direction() expr.Value    { return m.direction }
func (m *Manager) Speed() expr.Value        { return m.speed }
func (m *Manager) SpeedX() expr.Value       { return m.speedX }
func (m *Manager) SpeedY() expr.Value       { return m.speedY }
func (m *Manager) DefaultSpeed() expr.Value { return m.defaultSpeed }
func (m *Manager) Rank() expr.Value         { return m.rank }

// AimDirection returns the angle, in degrees with 0 pointing up, from
// this bullet toward its target.
func (m *Manager) AimDirection() expr.Value {
	tx, ty := m.target.Position()
	rad := math.Atan2(tx-m.x, -(ty - m.y))
	return expr.Value(rad * 180 / math.Pi)
}

// Rand returns a fresh draw in [0, 1) from the manager's own random
// source, so two managers seeded alike produce identical runs.
func (m *Manager) Rand() expr.Value {
	return expr.Value(m.rng.Float64())
}

// Get looks up a host-defined variable, the headless stand-in for
// whatever named values a real game would expose to $rank-like lookups.
func (m *Manager) Get(name string) (expr.Value, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m *Manager) Vanish() {
	m.vanished = true
	m.log.Debug().Msg("vanish")
}

func (m *Manager) ChangeDirection(direction expr.Value) {
	m.direction = direction
}

func (m *Manager) ChangeSpeed(speed expr.Value) {
	m.speed = speed
}

func (m *Manager) AccelX(ax expr.Value) {
	m.speedX = ax
}

func (m *Manager) AccelY(ay expr.Value) {
	m.speedY = ay
}

// New spawns a bullet with its own action tree: a new Manager, seeded
// from this one's random source so the whole run stays deterministic,
// tracked in Fired for the host to pick up.
func (m *Manager) New(direction, speed expr.Value) runner.BulletManager {
	child := &Manager{
		log:          m.log,
		rng:          rand.New(rand.NewSource(m.rng.Int63())),
		target:       m.target,
		defaultSpeed: m.defaultSpeed,
		rank:         m.rank,
		x:            m.x,
		y:            m.y,
		direction:    direction,
		speed:        speed,
		vars:         m.vars,
	}
	m.log.Debug().Float32("direction", float32(direction)).Float32("speed", float32(speed)).Msg("new")
	m.Fired = append(m.Fired, child)
	return child
}

// NewSimple spawns a bullet with no action of its own: headlessly,
// there is nothing further to track, so this only logs the event.
func (m *Manager) NewSimple(direction, speed expr.Value) {
	m.log.Debug().Float32("direction", float32(direction)).Float32("speed", float32(speed)).Msg("new_simple")
}
