package phase

import (
	"sync"

	"github.com/tessera-engine/tessera/common"
)

// ViewPhases holds the per-view render phases for one frame. Prepare
// creates phase storage for the frame's views up front; queuing then
// mutates each view's phases without further locking, so views may be
// queued on separate worker goroutines.
type ViewPhases struct {
	mu          sync.Mutex
	opaque      map[common.Entity]*Opaque2D
	transparent map[common.Entity]*Transparent2D
}

// NewViewPhases creates empty per-view phase storage.
func NewViewPhases() *ViewPhases {
	return &ViewPhases{
		opaque:      make(map[common.Entity]*Opaque2D),
		transparent: make(map[common.Entity]*Transparent2D),
	}
}

// Prepare clears all phases and ensures storage exists for the given views.
// Views not listed are dropped. Called once per frame before queuing.
//
// Parameters:
//   - views: the view entities rendering this frame
func (v *ViewPhases) Prepare(views []common.Entity) {
	v.mu.Lock()
	defer v.mu.Unlock()

	live := make(map[common.Entity]bool, len(views))
	for _, view := range views {
		live[view] = true
		if p, ok := v.opaque[view]; ok {
			p.Clear()
		} else {
			v.opaque[view] = NewOpaque2D()
		}
		if p, ok := v.transparent[view]; ok {
			p.Clear()
		} else {
			v.transparent[view] = NewTransparent2D()
		}
	}
	for view := range v.opaque {
		if !live[view] {
			delete(v.opaque, view)
			delete(v.transparent, view)
		}
	}
}

// Opaque returns the opaque phase for a view.
//
// Parameters:
//   - view: the view entity
//
// Returns:
//   - *Opaque2D: the view's opaque phase
//   - bool: false when the view was not prepared this frame
func (v *ViewPhases) Opaque(view common.Entity) (*Opaque2D, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.opaque[view]
	return p, ok
}

// Transparent returns the transparent phase for a view.
//
// Parameters:
//   - view: the view entity
//
// Returns:
//   - *Transparent2D: the view's transparent phase
//   - bool: false when the view was not prepared this frame
func (v *ViewPhases) Transparent(view common.Entity) (*Transparent2D, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.transparent[view]
	return p, ok
}

// SortAll sorts every view's transparent phase. Called after queuing and
// before phase execution.
func (v *ViewPhases) SortAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.transparent {
		p.Sort()
	}
}
