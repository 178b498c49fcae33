package binding

// BufferWrite describes a single GPU buffer write operation targeting a
// specific binding on a Provider at a given byte offset. Per-frame uniform
// updates (view matrices, mesh instance transforms) are staged as
// BufferWrites and flushed in one batch.
type BufferWrite struct {
	Provider Provider
	Binding  int
	Offset   uint64
	Data     []byte
}
