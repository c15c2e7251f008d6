package fbstencil

// Memory gives read access to emulated memory by address.
type Memory interface {
	// Bytes returns n bytes starting at addr, or false when the range is
	// not backed by memory. The slice may alias the backing store and must
	// not be retained.
	Bytes(addr uint32, n int) ([]byte, bool)
}

// FlatMemory is a single contiguous region starting at Base.
type FlatMemory struct {
	Base uint32
	Data []byte
}

// Bytes implements Memory.
func (m *FlatMemory) Bytes(addr uint32, n int) ([]byte, bool) {
	if n < 0 || addr < m.Base {
		return nil, false
	}
	off := uint64(addr - m.Base)
	if off+uint64(n) > uint64(len(m.Data)) {
		return nil, false
	}
	return m.Data[off : off+uint64(n)], true
}
