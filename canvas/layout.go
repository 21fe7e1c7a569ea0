package canvas

import (
	"fmt"
	"sync"

	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/stage"
)

// Default canvas geometry. The grid unit is the snap spacing; bounds are
// the visible canvas size in pixels.
const (
	DefaultGridUnit = 32
	DefaultWidth    = 1920
	DefaultHeight   = 1080
)

// Auto-arrange geometry: fixed offsets for the canonical two-row layout,
// all multiples of the default grid unit.
const (
	arrangeMarginX  = 64
	arrangeMarginY  = 64
	arrangeSpacingX = 288
	arrangeSpacingY = 224
)

// Position is a stage's canvas coordinate. Coordinates are kept
// non-negative and on the snap grid by every mutation path.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// PlacedStage pairs a stage kind with its canvas position. Kind doubles as
// the identity: the canvas holds at most one instance per kind.
type PlacedStage struct {
	Kind     stage.Kind `json:"kind"`
	Position Position   `json:"position"`
}

// Layout tracks which stages are on the canvas and where. Placement order
// is preserved so serialized documents round-trip byte-identically.
type Layout struct {
	mu       sync.RWMutex
	gridUnit int
	width    int
	height   int
	placed   []PlacedStage
	index    map[stage.Kind]int
}

// LayoutOption configures a Layout.
type LayoutOption func(*Layout)

// WithGridUnit overrides the snap spacing. Non-positive values are ignored.
func WithGridUnit(unit int) LayoutOption {
	return func(l *Layout) {
		if unit > 0 {
			l.gridUnit = unit
		}
	}
}

// WithBounds overrides the canvas size. Dimensions smaller than one grid
// unit are ignored.
func WithBounds(width, height int) LayoutOption {
	return func(l *Layout) {
		if width >= l.gridUnit && height >= l.gridUnit {
			l.width = width
			l.height = height
		}
	}
}

// NewLayout creates an empty canvas layout.
func NewLayout(opts ...LayoutOption) *Layout {
	l := &Layout{
		gridUnit: DefaultGridUnit,
		width:    DefaultWidth,
		height:   DefaultHeight,
		index:    make(map[stage.Kind]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snap rounds each axis to the nearest grid multiple and clamps the result
// into the canvas, so the returned position is always a non-negative grid
// multiple even for wildly out-of-range input.
func (l *Layout) Snap(p Position) Position {
	return Position{
		X: l.snapAxis(p.X, l.width),
		Y: l.snapAxis(p.Y, l.height),
	}
}

func (l *Layout) snapAxis(v, extent int) int {
	snapped := ((v + l.gridUnit/2) / l.gridUnit) * l.gridUnit
	if snapped < 0 {
		return 0
	}
	// largest grid multiple that leaves one cell visible
	max := ((extent - l.gridUnit) / l.gridUnit) * l.gridUnit
	if snapped > max {
		return max
	}
	return snapped
}

// Place adds a stage to the canvas at the snapped position. Placing a kind
// that is already on the canvas is a conflict, not a move.
func (l *Layout) Place(kind stage.Kind, pos Position) (Position, error) {
	if !kind.Valid() {
		return Position{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrUnknownStage, string(kind)),
			"Layout", "Place", "validate stage kind")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[kind]; ok {
		return Position{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrDuplicateStage, kind),
			"Layout", "Place", "placement conflict")
	}

	snapped := l.Snap(pos)
	l.index[kind] = len(l.placed)
	l.placed = append(l.placed, PlacedStage{Kind: kind, Position: snapped})
	return snapped, nil
}

// Move repositions a placed stage and returns the snapped position.
func (l *Layout) Move(kind stage.Kind, pos Position) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[kind]
	if !ok {
		return Position{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrStageNotPlaced, kind),
			"Layout", "Move", "lookup placed stage")
	}

	snapped := l.Snap(pos)
	l.placed[i].Position = snapped
	return snapped, nil
}

// Remove takes a stage off the canvas, preserving the placement order of
// the rest.
func (l *Layout) Remove(kind stage.Kind) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[kind]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrStageNotPlaced, kind),
			"Layout", "Remove", "lookup placed stage")
	}

	l.placed = append(l.placed[:i], l.placed[i+1:]...)
	delete(l.index, kind)
	for j := i; j < len(l.placed); j++ {
		l.index[l.placed[j].Kind] = j
	}
	return nil
}

// Has reports whether the kind is on the canvas.
func (l *Layout) Has(kind stage.Kind) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[kind]
	return ok
}

// Position returns the placed position for a kind.
func (l *Layout) Position(kind stage.Kind) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[kind]
	if !ok {
		return Position{}, false
	}
	return l.placed[i].Position, true
}

// Placed returns the placed stages in placement order.
func (l *Layout) Placed() []PlacedStage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]PlacedStage, len(l.placed))
	copy(out, l.placed)
	return out
}

// PlacedKinds returns the kinds currently on the canvas in placement order.
func (l *Layout) PlacedKinds() []stage.Kind {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]stage.Kind, len(l.placed))
	for i, p := range l.placed {
		out[i] = p.Kind
	}
	return out
}

// Count returns the number of placed stages.
func (l *Layout) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.placed)
}

// AutoArrange moves every placed stage to its canonical slot in the
// two-row reading layout: dataset, preprocess and feature across the top
// row, split, model and results across the bottom. Placement order is
// untouched; only positions change.
func (l *Layout) AutoArrange() []PlacedStage {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, p := range l.placed {
		l.placed[i].Position = canonicalSlot(p.Kind)
	}

	out := make([]PlacedStage, len(l.placed))
	copy(out, l.placed)
	return out
}

// canonicalSlot maps a stage kind to its fixed auto-arrange coordinate.
func canonicalSlot(kind stage.Kind) Position {
	order := kind.Order()
	row := order / 3
	col := order % 3
	return Position{
		X: arrangeMarginX + col*arrangeSpacingX,
		Y: arrangeMarginY + row*arrangeSpacingY,
	}
}

// Clear removes every stage from the canvas.
func (l *Layout) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.placed = nil
	l.index = make(map[stage.Kind]int)
}

// Restore replaces the whole layout at once. The incoming stages are
// validated first (known kinds, no duplicates) and positions snapped; on
// any violation the current layout is left untouched.
func (l *Layout) Restore(stages []PlacedStage) error {
	next := make([]PlacedStage, 0, len(stages))
	nextIndex := make(map[stage.Kind]int, len(stages))
	for _, p := range stages {
		if !p.Kind.Valid() {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %q", errors.ErrUnknownStage, string(p.Kind)),
				"Layout", "Restore", "validate stage kind")
		}
		if _, ok := nextIndex[p.Kind]; ok {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrDuplicateStage, p.Kind),
				"Layout", "Restore", "placement conflict")
		}
		nextIndex[p.Kind] = len(next)
		next = append(next, PlacedStage{Kind: p.Kind, Position: l.Snap(p.Position)})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.placed = next
	l.index = nextIndex
	return nil
}
