// Package game_object implements the main-side 2D entities the scene
// manages: a mesh asset, a material asset, a world transform, and a
// visibility flag. Extraction snapshots visible objects into the render-side
// instance map each frame.
package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/tessera-engine/tessera/common"
)

// objectCount is an atomic counter used to assign entities to objects
// created without an explicit one.
var objectCount atomic.Uint64

type gameObject struct {
	mu *sync.Mutex

	entity  common.Entity
	visible atomic.Bool

	materialID common.AssetID
	meshID     common.AssetID

	transform common.Transform2D

	automaticBatching bool
}

// GameObject defines the interface for a 2D scene entity. An object pairs a
// mesh asset with a material asset; only objects that are visible at
// extraction time reach the render phases for that frame.
type GameObject interface {
	// Entity returns the object's entity identifier.
	//
	// Returns:
	//   - common.Entity: the entity, never zero
	Entity() common.Entity

	// Visible returns whether this object is visible for rendering. Hidden
	// objects are skipped during extraction and draw nothing.
	//
	// Returns:
	//   - bool: true if visible
	Visible() bool

	// MaterialID returns the material asset this object draws with.
	//
	// Returns:
	//   - common.AssetID: the material asset id, or zero if unset
	MaterialID() common.AssetID

	// MeshID returns the mesh asset this object draws.
	//
	// Returns:
	//   - common.AssetID: the mesh asset id, or zero if unset
	MeshID() common.AssetID

	// Transform returns the object's world transform. Translation Z orders
	// transparent draws back to front.
	//
	// Returns:
	//   - common.Transform2D: the world transform
	Transform() common.Transform2D

	// AutomaticBatching returns whether this object may be batched with
	// adjacent compatible draws.
	//
	// Returns:
	//   - bool: true if batching is allowed
	AutomaticBatching() bool

	// SetVisible sets whether the object is visible for rendering.
	//
	// Parameters:
	//   - visible: true to render the object, false to skip it
	SetVisible(visible bool)

	// SetMaterialID assigns the material asset this object draws with. The
	// change takes effect at the next extraction.
	//
	// Parameters:
	//   - id: the material asset id
	SetMaterialID(id common.AssetID)

	// SetMeshID assigns the mesh asset this object draws.
	//
	// Parameters:
	//   - id: the mesh asset id
	SetMeshID(id common.AssetID)

	// SetTransform replaces the object's world transform.
	//
	// Parameters:
	//   - t: the new world transform
	SetTransform(t common.Transform2D)

	// SetPosition updates the object's world position, preserving rotation
	// and scale.
	//
	// Parameters:
	//   - x, y, z: position components; z orders transparent draws
	SetPosition(x, y, z float32)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new visible GameObject with an identity transform,
// configured with the given options.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:                &sync.Mutex{},
		entity:            common.Entity(objectCount.Add(1)),
		transform:         common.IdentityTransform2D(),
		automaticBatching: true,
	}
	obj.visible.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) Entity() common.Entity {
	return g.entity
}

func (g *gameObject) Visible() bool {
	return g.visible.Load()
}

func (g *gameObject) MaterialID() common.AssetID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.materialID
}

func (g *gameObject) MeshID() common.AssetID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.meshID
}

func (g *gameObject) Transform() common.Transform2D {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transform
}

func (g *gameObject) AutomaticBatching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.automaticBatching
}

func (g *gameObject) SetVisible(visible bool) {
	g.visible.Store(visible)
}

func (g *gameObject) SetMaterialID(id common.AssetID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.materialID = id
}

func (g *gameObject) SetMeshID(id common.AssetID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.meshID = id
}

func (g *gameObject) SetTransform(t common.Transform2D) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transform = t
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transform.Translation = [3]float32{x, y, z}
}
