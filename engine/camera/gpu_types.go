package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUViewUniform is the GPU-aligned representation of the view uniform
// buffer bound at group 0. Matches the WGSL View struct layout exactly.
// Size: 64 bytes (std140 / WGSL aligned).
type GPUViewUniform struct {
	ViewProj [16]float32 // offset 0: combined view-projection matrix (mat4x4<f32>)
}

// Size returns the size of the GPUViewUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUViewUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUViewUniform struct into a byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUViewUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	return buf
}
