// Package runner interprets a compiled bulletml tree tick by tick
// against a host-supplied BulletManager, the contract between this
// library and whatever game loop owns bullet positions and rendering.
package runner

import "github.com/tsujio/bulletml-core/expr"

// BulletManager is the host game's side of the runtime contract: it
// answers queries about the bullet a Process is driving and carries out
// the commands that Process issues.
//
// Queries read the current state of the bullet the implementing value
// represents. Commands mutate it. New and NewSimple spawn a second
// bullet; only New returns a BulletManager for it. New is used when the new
// bullet runs its own action tree and needs its own Process, NewSimple
// when it has no action of its own and the host can manage it directly.
type BulletManager interface {
	Turn() int
	Direction() expr.Value
	AimDirection() expr.Value
	Speed() expr.Value
	SpeedX() expr.Value
	SpeedY() expr.Value
	DefaultSpeed() expr.Value
	Rank() expr.Value
	Rand() expr.Value
	Get(name string) (expr.Value, bool)

	Vanish()
	ChangeDirection(direction expr.Value)
	ChangeSpeed(speed expr.Value)
	AccelX(ax expr.Value)
	AccelY(ay expr.Value)

	New(direction, speed expr.Value) BulletManager
	NewSimple(direction, speed expr.Value)
}
