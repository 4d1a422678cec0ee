package wasm

// linearMemory is the slice of wazero's api.Memory this package needs.
// Narrowing it here keeps the call path testable without a live module.
type linearMemory interface {
	Size() uint32
	Read(offset, count uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
}

// Memory provides bounds-checked access to a module's linear memory.
//
// Every address and length crossing the boundary comes from the guest,
// so nothing here is trusted: a read or write that does not fit inside
// linear memory yields a BoundsViolationError and the caller faults the
// instance.
type Memory struct {
	mem linearMemory
}

// NewMemory wraps a module's linear memory.
func NewMemory(mem linearMemory) *Memory {
	return &Memory{mem: mem}
}

// Read copies length bytes starting at addr out of linear memory. The
// returned slice is a copy; the guest may grow or reuse the region as
// soon as the call returns.
func (m *Memory) Read(addr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	buf, ok := m.mem.Read(addr, length)
	if !ok {
		return nil, &BoundsViolationError{Operation: "read", Address: addr, Length: length}
	}
	out := make([]byte, length)
	copy(out, buf)
	return out, nil
}

// Write copies data into linear memory at addr.
func (m *Memory) Write(addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !m.mem.Write(addr, data) {
		return &BoundsViolationError{Operation: "write", Address: addr, Length: uint32(len(data))}
	}
	return nil
}
