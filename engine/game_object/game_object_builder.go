package game_object

import (
	"github.com/tessera-engine/tessera/common"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithEntity sets the entity identifier of the GameObject, replacing the
// generated one.
//
// Parameters:
//   - entity: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the entity
func WithEntity(entity common.Entity) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.entity = entity
	}
}

// WithVisible sets whether the GameObject is visible for rendering.
//
// Parameters:
//   - visible: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the visibility
func WithVisible(visible bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.visible.Store(visible)
	}
}

// WithMaterialID sets the material asset the GameObject draws with.
//
// Parameters:
//   - id: the material asset id
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the material
func WithMaterialID(id common.AssetID) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.materialID = id
	}
}

// WithMeshID sets the mesh asset the GameObject draws.
//
// Parameters:
//   - id: the mesh asset id
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the mesh
func WithMeshID(id common.AssetID) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.meshID = id
	}
}

// WithTransform sets the initial world transform of the GameObject.
//
// Parameters:
//   - t: the world transform
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the transform
func WithTransform(t common.Transform2D) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.transform = t
	}
}

// WithPosition sets the initial world position of the GameObject.
//
// Parameters:
//   - x, y, z: position components; z orders transparent draws
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.transform.Translation = [3]float32{x, y, z}
	}
}

// WithAutomaticBatching sets whether the GameObject may be batched with
// adjacent compatible draws.
//
// Parameters:
//   - batching: true to allow batching
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the batching flag
func WithAutomaticBatching(batching bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.automaticBatching = batching
	}
}
