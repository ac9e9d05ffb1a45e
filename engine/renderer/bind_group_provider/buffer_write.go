package bind_group_provider

// BufferWrite is a queued write of Data into the buffer at Binding on Provider, starting at Offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
