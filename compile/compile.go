package compile

import (
	"strings"

	"github.com/tsujio/bulletml-core"
	"github.com/tsujio/bulletml-core/expr"
	"github.com/tsujio/bulletml-core/zipper"
)

// library holds the two lookup tables the original document and its
// compiled counterpart are keyed by during a single Compile call: one
// over the source entities (to resolve a *Ref the first time it's seen),
// one over already-compiled entities (so a label referenced from two
// places is compiled once and its tree shared).
type library struct {
	bulletSrc map[string]*bulletml.Bullet
	actionSrc map[string]*bulletml.Action
	fireSrc   map[string]*bulletml.Fire

	actionCompiled map[string]*zipper.Node[Step]
	bulletCompiled map[string]*Bullet
}

func newLibrary(doc *bulletml.BulletML) (*library, error) {
	lib := &library{
		bulletSrc:      map[string]*bulletml.Bullet{},
		actionSrc:      map[string]*bulletml.Action{},
		fireSrc:        map[string]*bulletml.Fire{},
		actionCompiled: map[string]*zipper.Node[Step]{},
		bulletCompiled: map[string]*Bullet{},
	}

	for _, b := range doc.Bullets {
		if b.Label == "" {
			continue
		}
		if _, exists := lib.bulletSrc[b.Label]; exists {
			return nil, &DuplicateEntityError{Kind: "bullet", Name: b.Label}
		}
		lib.bulletSrc[b.Label] = b
	}
	for _, a := range doc.Actions {
		if a.Label == "" {
			continue
		}
		if _, exists := lib.actionSrc[a.Label]; exists {
			return nil, &DuplicateEntityError{Kind: "action", Name: a.Label}
		}
		lib.actionSrc[a.Label] = a
	}
	for _, f := range doc.Fires {
		if f.Label == "" {
			continue
		}
		if _, exists := lib.fireSrc[f.Label]; exists {
			return nil, &DuplicateEntityError{Kind: "fire", Name: f.Label}
		}
		lib.fireSrc[f.Label] = f
	}

	return lib, nil
}

// Compile resolves every named cross-reference in doc and produces a
// self-contained tree. Only actions whose label starts with "top" become
// runnable roots; other named actions exist only to be referenced.
func Compile(doc *bulletml.BulletML) (*BulletML, error) {
	lib, err := newLibrary(doc)
	if err != nil {
		return nil, err
	}

	out := &BulletML{Orientation: doc.Type.Orientation()}

	for _, b := range doc.Bullets {
		if _, err := lib.compileBullet(b); err != nil {
			return nil, err
		}
	}
	for _, f := range doc.Fires {
		if _, err := lib.compileFire(f.Direction, f.Speed, f.Bullet, f.BulletRef); err != nil {
			return nil, err
		}
	}
	for _, a := range doc.Actions {
		if _, err := lib.compileAction(a); err != nil {
			return nil, err
		}
	}

	for _, a := range doc.Actions {
		if !strings.HasPrefix(a.Label, "top") {
			continue
		}
		root, err := lib.compileAction(a)
		if err != nil {
			return nil, err
		}
		out.Roots = append(out.Roots, &Action{Label: a.Label, Root: root})
	}

	return out, nil
}

func (lib *library) compileAction(a *bulletml.Action) (*zipper.Node[Step], error) {
	if a.Label != "" {
		if cached, ok := lib.actionCompiled[a.Label]; ok {
			return cached, nil
		}
	}

	root := zipper.NewNode[Step](Sequence{})
	for _, cmd := range a.Commands {
		child, err := lib.compileCommand(cmd)
		if err != nil {
			return nil, err
		}
		if child != nil {
			root.AddChild(*child)
		}
	}

	if a.Label != "" {
		lib.actionCompiled[a.Label] = &root
	}

	return &root, nil
}

func (lib *library) compileCommand(cmd any) (*zipper.Node[Step], error) {
	switch c := cmd.(type) {
	case *bulletml.Wait:
		n := zipper.NewNode[Step](Wait{Ticks: c.Expression()})
		return &n, nil

	case *bulletml.Vanish:
		n := zipper.NewNode[Step](VanishStep{})
		return &n, nil

	case *bulletml.ChangeSpeed:
		n := zipper.NewNode[Step](ChangeSpeedStep{
			Target: compileSpeed(c.Speed),
			Term:   c.Term.Expression(),
		})
		return &n, nil

	case *bulletml.ChangeDirection:
		n := zipper.NewNode[Step](ChangeDirectionStep{
			Target: compileDirection(c.Direction),
			Term:   c.Term.Expression(),
		})
		return &n, nil

	case *bulletml.Accel:
		step := AccelStep{Term: c.Term.Expression()}
		if h, ok := c.Horizontal.Get(); ok {
			step.Horizontal = &AxisChange{Kind: h.Type, Expr: h.Expression()}
		}
		if v, ok := c.Vertical.Get(); ok {
			step.Vertical = &AxisChange{Kind: v.Type, Expr: v.Expression()}
		}
		n := zipper.NewNode[Step](step)
		return &n, nil

	case *bulletml.Fire:
		step, err := lib.compileFire(c.Direction, c.Speed, c.Bullet, c.BulletRef)
		if err != nil {
			return nil, err
		}
		n := zipper.NewNode[Step](*step)
		return &n, nil

	case *bulletml.FireRef:
		src, ok := lib.fireSrc[c.RefLabel()]
		if !ok {
			return nil, &EntityNotFoundError{Kind: "fire", Name: c.RefLabel()}
		}
		step, err := lib.compileFire(src.Direction, src.Speed, src.Bullet, src.BulletRef)
		if err != nil {
			return nil, err
		}
		step.Params = paramExprs(c.RefParams())
		n := zipper.NewNode[Step](*step)
		return &n, nil

	case *bulletml.Repeat:
		return lib.compileRepeat(c)

	case *bulletml.Action:
		return lib.compileAction(c)

	case *bulletml.ActionRef:
		src, ok := lib.actionSrc[c.RefLabel()]
		if !ok {
			return nil, &EntityNotFoundError{Kind: "action", Name: c.RefLabel()}
		}
		body, err := lib.compileAction(src)
		if err != nil {
			return nil, err
		}
		n := zipper.NewNode[Step](CallStep{Body: body, Params: paramExprs(c.RefParams())})
		return &n, nil

	default:
		return nil, nil
	}
}

func (lib *library) compileRepeat(r *bulletml.Repeat) (*zipper.Node[Step], error) {
	step := RepeatStep{Times: r.Times.Expression()}

	if a, ok := r.Action.Get(); ok {
		body, err := lib.compileAction(a)
		if err != nil {
			return nil, err
		}
		step.Body = body
	} else if ar, ok := r.ActionRef.Get(); ok {
		src, found := lib.actionSrc[ar.RefLabel()]
		if !found {
			return nil, &EntityNotFoundError{Kind: "action", Name: ar.RefLabel()}
		}
		body, err := lib.compileAction(src)
		if err != nil {
			return nil, err
		}
		step.Body = body
		step.Params = paramExprs(ar.RefParams())
	} else {
		return nil, &EntityNotFoundError{Kind: "action", Name: "(missing repeat body)"}
	}

	n := zipper.NewNode[Step](step)
	return &n, nil
}

func compileDirection(d *bulletml.Direction) *DirectionChange {
	if d == nil {
		return nil
	}
	return &DirectionChange{Kind: d.Type, Expr: d.Expression()}
}

func compileSpeed(s *bulletml.Speed) *SpeedChange {
	if s == nil {
		return nil
	}
	return &SpeedChange{Kind: s.Type, Expr: s.Expression()}
}

func (lib *library) compileBullet(b *bulletml.Bullet) (*Bullet, error) {
	if b.Label != "" {
		if cached, ok := lib.bulletCompiled[b.Label]; ok {
			return cached, nil
		}
	}

	out := &Bullet{}

	if d, ok := b.Direction.Get(); ok {
		out.Direction = &DirectionChange{Kind: d.Type, Expr: d.Expression()}
	}
	if s, ok := b.Speed.Get(); ok {
		out.Speed = &SpeedChange{Kind: s.Type, Expr: s.Expression()}
	}

	root := zipper.NewNode[Step](Sequence{})
	for _, a := range b.ActionOrRefs {
		switch v := a.(type) {
		case *bulletml.Action:
			child, err := lib.compileAction(v)
			if err != nil {
				return nil, err
			}
			root.AddChild(*child)
		case *bulletml.ActionRef:
			src, ok := lib.actionSrc[v.RefLabel()]
			if !ok {
				return nil, &EntityNotFoundError{Kind: "action", Name: v.RefLabel()}
			}
			child, err := lib.compileAction(src)
			if err != nil {
				return nil, err
			}
			root.AddChild(zipper.NewNode[Step](CallStep{Body: child, Params: paramExprs(v.RefParams())}))
		}
	}
	out.Action = &root

	if b.Label != "" {
		lib.bulletCompiled[b.Label] = out
	}

	return out, nil
}

// compileFire assembles a FireStep from a fire's own direction/speed
// overrides and its bullet (inline or by reference), independent of
// whether the fire itself was reached directly or through a fireRef.
func (lib *library) compileFire(
	dir *bulletml.Option[bulletml.Direction],
	spd *bulletml.Option[bulletml.Speed],
	bullet *bulletml.Option[bulletml.Bullet],
	bulletRef *bulletml.Option[bulletml.BulletRef],
) (*FireStep, error) {
	step := &FireStep{}

	if d, ok := dir.Get(); ok {
		step.Direction = &DirectionChange{Kind: d.Type, Expr: d.Expression()}
	}
	if s, ok := spd.Get(); ok {
		step.Speed = &SpeedChange{Kind: s.Type, Expr: s.Expression()}
	}

	if b, ok := bullet.Get(); ok {
		compiled, err := lib.compileBullet(b)
		if err != nil {
			return nil, err
		}
		step.Bullet = compiled
	} else if br, ok := bulletRef.Get(); ok {
		src, found := lib.bulletSrc[br.RefLabel()]
		if !found {
			return nil, &EntityNotFoundError{Kind: "bullet", Name: br.RefLabel()}
		}
		compiled, err := lib.compileBullet(src)
		if err != nil {
			return nil, err
		}
		step.Bullet = compiled
		step.Params = paramExprs(br.RefParams())
	} else {
		return nil, &EntityNotFoundError{Kind: "bullet", Name: "(missing)"}
	}

	return step, nil
}

func paramExprs(params []*bulletml.Param) []*expr.Expr {
	out := make([]*expr.Expr, len(params))
	for i, p := range params {
		out[i] = p.Expression()
	}
	return out
}
