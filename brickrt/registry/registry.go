package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gekko3d/brickyard/brickrt/lattice"
	"github.com/gekko3d/brickyard/brickrt/occupancy"
	"github.com/gekko3d/brickyard/brickrt/placement"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrNotFound  = errors.New("registry: brick not found")
	ErrInvariant = errors.New("registry: invariant violation")
)

// Logger is the subset of the engine logger the registry writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Errorf(string, ...any) {}

type PlaceRequest struct {
	Type         lattice.BrickType
	QuarterTurns int
	Pick         mgl64.Vec3
	Color        string
}

type Option func(*Registry)

func WithLogger(l Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIDSource overrides brick id generation.
func WithIDSource(next func() BrickID) Option {
	return func(r *Registry) {
		if next != nil {
			r.newID = next
		}
	}
}

// WithStrict makes invariant violations panic instead of returning an error.
func WithStrict(strict bool) Option {
	return func(r *Registry) { r.strict = strict }
}

// Registry owns the placed bricks and the occupancy index derived from them.
// Every mutation runs under one lock covering resolve, reserve and commit.
type Registry struct {
	mu       sync.Mutex
	resolver placement.Resolver
	index    *occupancy.Index[BrickID]
	bricks   map[BrickID]*Brick
	order    []BrickID
	version  uint64

	pending []Change // guarded by mu, in version order

	deliverMu sync.Mutex // held by the goroutine draining pending
	obsMu     sync.Mutex
	observers map[int]func(Change)
	obsOrder  []int
	nextObs   int

	logger Logger
	newID  func() BrickID
	strict bool
}

func New(resolver placement.Resolver, opts ...Option) (*Registry, error) {
	if err := resolver.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{
		resolver:  resolver,
		index:     occupancy.NewIndex[BrickID](),
		bricks:    make(map[BrickID]*Brick),
		observers: make(map[int]func(Change)),
		logger:    nopLogger{},
		newID:     NewBrickID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) Resolver() placement.Resolver {
	return r.resolver
}

// Place resolves the request and commits the brick. A declined placement is
// returned as a *placement.Rejection.
func (r *Registry) Place(req PlaceRequest) (Brick, error) {
	r.mu.Lock()
	res, err := r.resolver.Resolve(req.Pick, req.Type, req.QuarterTurns, r.index)
	if err != nil {
		r.mu.Unlock()
		return Brick{}, err
	}
	if !res.Valid {
		r.mu.Unlock()
		return Brick{}, res.Rejection()
	}

	id := r.newID()
	if _, dup := r.bricks[id]; dup {
		r.mu.Unlock()
		return Brick{}, r.violation(fmt.Errorf("%w: duplicate brick id %s", ErrInvariant, id))
	}
	base, _ := req.Type.Footprint()
	b := &Brick{
		ID:           id,
		Type:         req.Type,
		Footprint:    base,
		Position:     res.Position,
		QuarterTurns: res.QuarterTurns,
		Color:        req.Color,
		Layer:        res.Layer,
		cells:        res.Cells,
	}
	// commit exactly the cells the resolver decided on
	if err := r.index.Reserve(res.Cells, id); err != nil {
		r.mu.Unlock()
		return Brick{}, r.violation(err)
	}
	r.bricks[id] = b
	r.order = append(r.order, id)
	r.version++
	change := Change{Kind: ChangeAdded, Brick: b.clone(), Version: r.version}
	r.enqueue(change)
	r.mu.Unlock()

	r.logger.Debugf("placed %s %s at layer %d stud (%d,%d)", id, req.Type, res.Layer, res.StudX, res.StudZ)
	r.flush()
	return change.Brick, nil
}

// Preview resolves a placement against the current state without committing.
func (r *Registry) Preview(brickType lattice.BrickType, quarterTurns int, pick mgl64.Vec3) (placement.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolver.Resolve(pick, brickType, quarterTurns, r.index)
}

// Remove frees the brick's cells and deletes it. Either both happen or
// neither does.
func (r *Registry) Remove(id BrickID) error {
	r.mu.Lock()
	b, ok := r.bricks[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.index.Release(b.cells, id); err != nil {
		r.mu.Unlock()
		return r.violation(err)
	}
	delete(r.bricks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.version++
	r.enqueue(Change{Kind: ChangeRemoved, Brick: b.clone(), Version: r.version})
	r.mu.Unlock()

	r.logger.Debugf("removed %s %s from layer %d", id, b.Type, b.Layer)
	r.flush()
	return nil
}

// Recolor changes a placed brick's display colour. Occupancy is untouched.
func (r *Registry) Recolor(id BrickID, color string) error {
	r.mu.Lock()
	b, ok := r.bricks[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b.Color = color
	r.version++
	r.enqueue(Change{Kind: ChangeUpdated, Brick: b.clone(), Version: r.version})
	r.mu.Unlock()

	r.logger.Debugf("recolored %s to %s", id, color)
	r.flush()
	return nil
}

// Clear removes every brick.
func (r *Registry) Clear() {
	r.mu.Lock()
	if len(r.bricks) == 0 {
		r.mu.Unlock()
		return
	}
	n := len(r.bricks)
	r.index.Clear()
	clear(r.bricks)
	r.order = r.order[:0]
	r.version++
	r.enqueue(Change{Kind: ChangeCleared, Version: r.version, Count: n})
	r.mu.Unlock()

	r.logger.Debugf("cleared %d bricks", n)
	r.flush()
}

func (r *Registry) Get(id BrickID) (Brick, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bricks[id]
	if !ok {
		return Brick{}, false
	}
	return b.clone(), true
}

// All returns the bricks in insertion order.
func (r *Registry) All() []Brick {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Brick, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.bricks[id].clone())
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bricks)
}

// Version increases by one on every committed change.
func (r *Registry) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

func (r *Registry) OwnerAt(c occupancy.Cell) (BrickID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Owner(c)
}

// OccupiedCells returns a sorted snapshot of the occupancy index.
func (r *Registry) OccupiedCells() []occupancy.Cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.Cells()
}

// TopAt returns the highest brick in the stud column under pick.
func (r *Registry) TopAt(pick mgl64.Vec3) (Brick, bool) {
	g := r.resolver.Geometry
	x, z := g.WorldToStud(pick.X()), g.WorldToStud(pick.Z())

	r.mu.Lock()
	defer r.mu.Unlock()
	_, id, ok := r.index.ColumnTop(x, z, r.resolver.MaxStackLayers)
	if !ok {
		return Brick{}, false
	}
	return r.bricks[id].clone(), true
}

// Verify audits the registry against the occupancy index: brick cell sets
// must be pairwise disjoint and their union must equal the index exactly.
func (r *Registry) Verify() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := make(map[occupancy.Cell]BrickID)
	for _, id := range r.order {
		b, ok := r.bricks[id]
		if !ok {
			return fmt.Errorf("%w: order lists missing brick %s", ErrInvariant, id)
		}
		if len(b.cells) != b.Footprint.Cells() {
			return fmt.Errorf("%w: brick %s holds %d cells, footprint needs %d", ErrInvariant, id, len(b.cells), b.Footprint.Cells())
		}
		for _, c := range b.cells {
			if other, dup := claimed[c]; dup {
				return fmt.Errorf("%w: cell %v claimed by %s and %s", ErrInvariant, c, other, id)
			}
			claimed[c] = id
			owner, ok := r.index.Owner(c)
			if !ok || owner != id {
				return fmt.Errorf("%w: index does not map %v to %s", ErrInvariant, c, id)
			}
		}
	}
	if len(r.order) != len(r.bricks) {
		return fmt.Errorf("%w: %d ordered ids for %d bricks", ErrInvariant, len(r.order), len(r.bricks))
	}
	if r.index.Len() != len(claimed) {
		return fmt.Errorf("%w: index holds %d cells, bricks claim %d", ErrInvariant, r.index.Len(), len(claimed))
	}
	return nil
}

func (r *Registry) violation(err error) error {
	r.logger.Errorf("invariant violation: %v", err)
	if r.strict {
		panic(err)
	}
	return err
}
