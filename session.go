package brickyard

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gekko3d/brickyard/brickrt/lattice"
	"github.com/gekko3d/brickyard/brickrt/picking"
	"github.com/gekko3d/brickyard/brickrt/placement"
	"github.com/gekko3d/brickyard/brickrt/registry"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrNoSelection = errors.New("brickyard: nothing selected")
	ErrNoTarget    = errors.New("brickyard: no brick under pointer")
	ErrUnknownMode = errors.New("brickyard: unknown mode")
)

type Mode uint8

const (
	ModePlace Mode = iota
	ModeSelect
	ModeRemove
)

func (m Mode) String() string {
	switch m {
	case ModePlace:
		return "place"
	case ModeSelect:
		return "select"
	case ModeRemove:
		return "remove"
	default:
		return fmt.Sprintf("mode(%d)", m)
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "place", "build":
		return ModePlace, nil
	case "select":
		return ModeSelect, nil
	case "remove", "delete":
		return ModeRemove, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Preview is hover feedback. In place mode it carries the would-be placement;
// in the other modes it names the brick under the pointer.
type Preview struct {
	Mode      Mode
	Valid     bool
	Reason    placement.Reason
	Placement placement.Result
	Color     string
	Target    registry.Brick
	HasTarget bool
}

// Outcome is the result of a click. Err is nil on success; rejected
// placements set Reason and carry the *placement.Rejection in Err.
type Outcome struct {
	Mode   Mode
	Brick  registry.Brick
	Reason placement.Reason
	Err    error
}

func (o Outcome) OK() bool { return o.Err == nil }

type SessionOption func(*Session)

func WithSessionLogger(l Logger) SessionOption {
	return func(s *Session) { s.logger = loggerOrNop(l) }
}

func WithMetrics(m *Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session holds the interaction state of one user: mode, brush and selection.
type Session struct {
	reg     *registry.Registry
	logger  Logger
	metrics *Metrics
	cancel  func()

	mu           sync.Mutex
	mode         Mode
	brickType    lattice.BrickType
	color        string
	quarterTurns int
	selected     registry.BrickID
	hasSelection bool

	pickMu      sync.Mutex
	tree        *picking.BVH
	treeBricks  []registry.Brick
	treeVersion uint64
}

func NewSession(reg *registry.Registry, opts ...SessionOption) *Session {
	s := &Session{
		reg:       reg,
		logger:    NewNopLogger(),
		mode:      ModePlace,
		brickType: lattice.Brick1x1,
		color:     lattice.Brick1x1.DefaultColor(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cancel = reg.Subscribe(s.onChange)
	return s
}

// Open builds the registry described by cfg and a session on top of it.
func Open(cfg Config, logger Logger, metrics *Metrics) (*Session, error) {
	logger = loggerOrNop(logger)
	res, err := cfg.Resolver()
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(res, registry.WithLogger(logger), registry.WithStrict(cfg.Placement.Strict))
	if err != nil {
		return nil, err
	}
	opts := []SessionOption{WithSessionLogger(logger)}
	if metrics != nil {
		opts = append(opts, WithMetrics(metrics))
	}
	s := NewSession(reg, opts...)
	if metrics != nil {
		detach := metrics.Attach(reg)
		unsubscribe := s.cancel
		s.cancel = func() {
			unsubscribe()
			detach()
		}
	}
	return s, nil
}

// Close detaches the session from its registry.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) Registry() *registry.Registry { return s.reg }

// onChange drops the selection once the selected brick is gone.
func (s *Session) onChange(c registry.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSelection {
		return
	}
	if c.Kind == registry.ChangeCleared || (c.Kind == registry.ChangeRemoved && c.Brick.ID == s.selected) {
		s.selected, s.hasSelection = "", false
	}
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches the click action. Leaving select mode clears the selection.
func (s *Session) SetMode(m Mode) error {
	if m > ModeRemove {
		return fmt.Errorf("%w: %d", ErrUnknownMode, m)
	}
	s.mu.Lock()
	prev := s.mode
	s.mode = m
	if prev == ModeSelect && m != ModeSelect {
		s.selected, s.hasSelection = "", false
	}
	s.mu.Unlock()
	s.logger.Debugf("mode %s -> %s", prev, m)
	return nil
}

// SetBrickType changes the brush type and resets the colour to its default.
func (s *Session) SetBrickType(t lattice.BrickType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", lattice.ErrUnknownBrickType, string(t))
	}
	s.mu.Lock()
	s.brickType = t
	s.color = t.DefaultColor()
	s.mu.Unlock()
	return nil
}

func (s *Session) BrickType() lattice.BrickType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brickType
}

func (s *Session) SetColor(color string) {
	s.mu.Lock()
	s.color = color
	s.mu.Unlock()
}

func (s *Session) Color() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

func (s *Session) SetRotation(quarterTurns int) {
	s.mu.Lock()
	s.quarterTurns = lattice.NormalizeQuarterTurns(quarterTurns)
	s.mu.Unlock()
}

// SetRotationDegrees snaps an arbitrary angle to the nearest quarter turn.
func (s *Session) SetRotationDegrees(deg float64) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return
	}
	s.SetRotation(lattice.QuarterTurns(deg))
}

// Rotate advances the brush by one quarter turn and returns the new value.
func (s *Session) Rotate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarterTurns = lattice.NormalizeQuarterTurns(s.quarterTurns + 1)
	return s.quarterTurns
}

func (s *Session) Rotation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quarterTurns
}

type brush struct {
	mode         Mode
	brickType    lattice.BrickType
	color        string
	quarterTurns int
}

func (s *Session) brush() brush {
	s.mu.Lock()
	defer s.mu.Unlock()
	return brush{mode: s.mode, brickType: s.brickType, color: s.color, quarterTurns: s.quarterTurns}
}

func (s *Session) Hover(pick mgl64.Vec3) Preview {
	b := s.brush()
	p := Preview{Mode: b.mode, Color: b.color}
	if b.mode != ModePlace {
		p.Target, p.HasTarget = s.reg.TopAt(pick)
		p.Valid = p.HasTarget
		return p
	}
	res, err := s.reg.Preview(b.brickType, b.quarterTurns, pick)
	if err != nil {
		s.logger.Warnf("preview %s: %v", b.brickType, err)
		return p
	}
	p.Placement = res
	p.Valid = res.Valid
	p.Reason = res.Reason
	return p
}

// Click performs the current mode's action at pick.
func (s *Session) Click(pick mgl64.Vec3) Outcome {
	b := s.brush()
	switch b.mode {
	case ModeSelect:
		target, ok := s.reg.TopAt(pick)
		if !ok {
			s.clearSelection()
			return Outcome{Mode: b.mode, Err: ErrNoTarget}
		}
		return s.selectBrick(target)
	case ModeRemove:
		target, ok := s.reg.TopAt(pick)
		if !ok {
			return Outcome{Mode: b.mode, Err: ErrNoTarget}
		}
		return s.remove(target.ID)
	default:
		return s.place(b, pick)
	}
}

// PointerRay performs the current mode's action on whatever the ray points
// at. Select and remove act on the brick the ray enters first; place builds
// against the face it enters, or on the baseplate when no brick is hit.
func (s *Session) PointerRay(ray picking.Ray) Outcome {
	b := s.brush()
	switch b.mode {
	case ModeSelect:
		target, ok := s.HitBrick(ray)
		if !ok {
			s.clearSelection()
			return Outcome{Mode: b.mode, Err: ErrNoTarget}
		}
		return s.selectBrick(target)
	case ModeRemove:
		target, ok := s.HitBrick(ray)
		if !ok {
			return Outcome{Mode: b.mode, Err: ErrNoTarget}
		}
		return s.remove(target.ID)
	default:
		pick, ok := s.pick(b, ray)
		if !ok {
			return Outcome{Mode: b.mode, Err: ErrNoTarget}
		}
		return s.place(b, pick)
	}
}

// HitBrick returns the brick the ray enters first.
func (s *Session) HitBrick(ray picking.Ray) (registry.Brick, bool) {
	tree, bricks := s.pickTree()
	hit, ok := tree.Raycast(ray)
	if !ok {
		return registry.Brick{}, false
	}
	// the cached snapshot may be stale by now
	return s.reg.Get(bricks[hit.Box.Index].ID)
}

// Pick returns the placement point for the current brush under ray.
func (s *Session) Pick(ray picking.Ray) (mgl64.Vec3, bool) {
	return s.pick(s.brush(), ray)
}

// pick pushes a brick hit out through the entered face by half the brush
// footprint so side hits land in the neighbouring column. Top and bottom hits
// keep their column and stack. Without a brick hit the ray meets the
// baseplate surface.
func (s *Session) pick(b brush, ray picking.Ray) (mgl64.Vec3, bool) {
	g := s.reg.Resolver().Geometry
	tree, _ := s.pickTree()
	hit, ok := tree.Raycast(ray)
	if !ok {
		return picking.IntersectPlaneY(ray, g.SurfaceY)
	}
	base, err := b.brickType.Footprint()
	if err != nil {
		return hit.Point, true
	}
	fp := lattice.EffectiveFootprint(base, b.quarterTurns)
	offset := mgl64.Vec3{
		hit.Normal.X() * float64(fp.Width) * g.UnitSize / 2,
		0,
		hit.Normal.Z() * float64(fp.Depth) * g.UnitSize / 2,
	}
	return hit.Point.Add(offset), true
}

// pickTree returns the brick BVH and the bricks its boxes index, rebuilt
// when the registry version moves.
func (s *Session) pickTree() (*picking.BVH, []registry.Brick) {
	v := s.reg.Version()
	s.pickMu.Lock()
	defer s.pickMu.Unlock()
	if s.tree != nil && s.treeVersion == v {
		return s.tree, s.treeBricks
	}
	g := s.reg.Resolver().Geometry
	bricks := s.reg.All()
	boxes := make([]picking.Box, 0, len(bricks))
	for i, b := range bricks {
		fp := b.EffectiveFootprint()
		half := mgl64.Vec3{
			float64(fp.Width) * g.UnitSize / 2,
			float64(fp.Height) * g.UnitHeight / 2,
			float64(fp.Depth) * g.UnitSize / 2,
		}
		boxes = append(boxes, picking.Box{Min: b.Position.Sub(half), Max: b.Position.Add(half), Index: i})
	}
	s.tree, s.treeBricks, s.treeVersion = picking.BuildBVH(boxes), bricks, v
	return s.tree, s.treeBricks
}

func (s *Session) place(b brush, pick mgl64.Vec3) Outcome {
	brick, err := s.reg.Place(registry.PlaceRequest{
		Type:         b.brickType,
		QuarterTurns: b.quarterTurns,
		Pick:         pick,
		Color:        b.color,
	})
	if s.metrics != nil {
		s.metrics.ObservePlacement(err)
	}
	out := Outcome{Mode: ModePlace, Brick: brick, Err: err}
	log := WithFields(s.logger, "type", b.brickType)
	var rej *placement.Rejection
	switch {
	case err == nil:
		WithFields(log, "brick", brick.ID).Debugf("placed at layer %d", brick.Layer)
	case errors.As(err, &rej):
		out.Reason = rej.Reason
		log.Debugf("placement declined: %v", err)
	default:
		log.Errorf("place: %v", err)
	}
	return out
}

func (s *Session) selectBrick(b registry.Brick) Outcome {
	s.mu.Lock()
	s.selected, s.hasSelection = b.ID, true
	s.mu.Unlock()
	return Outcome{Mode: ModeSelect, Brick: b}
}

func (s *Session) clearSelection() {
	s.mu.Lock()
	s.selected, s.hasSelection = "", false
	s.mu.Unlock()
}

// Select marks id as the selected brick.
func (s *Session) Select(id registry.BrickID) error {
	b, ok := s.reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, id)
	}
	s.selectBrick(b)
	return nil
}

func (s *Session) Selected() (registry.Brick, bool) {
	s.mu.Lock()
	id, ok := s.selected, s.hasSelection
	s.mu.Unlock()
	if !ok {
		return registry.Brick{}, false
	}
	return s.reg.Get(id)
}

func (s *Session) RemoveSelected() Outcome {
	s.mu.Lock()
	id, ok := s.selected, s.hasSelection
	s.mu.Unlock()
	if !ok {
		return Outcome{Mode: ModeRemove, Err: ErrNoSelection}
	}
	return s.remove(id)
}

func (s *Session) Remove(id registry.BrickID) Outcome {
	return s.remove(id)
}

func (s *Session) remove(id registry.BrickID) Outcome {
	b, _ := s.reg.Get(id)
	err := s.reg.Remove(id)
	if s.metrics != nil {
		s.metrics.ObserveRemoval(err)
	}
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		WithFields(s.logger, "brick", id).Errorf("remove: %v", err)
	}
	return Outcome{Mode: ModeRemove, Brick: b, Err: err}
}

// Recolor changes the colour of a placed brick.
func (s *Session) Recolor(id registry.BrickID, color string) error {
	if err := s.reg.Recolor(id, color); err != nil {
		return err
	}
	WithFields(s.logger, "brick", id).Debugf("recolored to %s", color)
	return nil
}

// SetSelectedColor recolors the selected brick.
func (s *Session) SetSelectedColor(color string) error {
	s.mu.Lock()
	id, ok := s.selected, s.hasSelection
	s.mu.Unlock()
	if !ok {
		return ErrNoSelection
	}
	return s.Recolor(id, color)
}

func (s *Session) Bricks() []registry.Brick {
	return s.reg.All()
}

// Clear removes every brick.
func (s *Session) Clear() {
	s.reg.Clear()
}
