package backend

// Null answers every read with zeros and discards every write; RMW and
// RMWSum return zero. The CLI selects it with -mem=null, for serving the
// protocol without any local memory behind it.
type Null struct{}

// NewNull returns a ready-to-use Null handler.
func NewNull() *Null { return &Null{} }

// Read implements ipbus.MemoryHandler.
func (Null) Read(addr uint32, nwords uint8) ([]uint32, error) {
	return make([]uint32, nwords), nil
}

// NIRead implements ipbus.MemoryHandler.
func (Null) NIRead(addr uint32, nwords uint8) ([]uint32, error) {
	return make([]uint32, nwords), nil
}

// Write implements ipbus.MemoryHandler.
func (Null) Write(addr uint32, data []uint32) error { return nil }

// NIWrite implements ipbus.MemoryHandler.
func (Null) NIWrite(addr uint32, data []uint32) error { return nil }

// RMW implements ipbus.MemoryHandler.
func (Null) RMW(addr uint32, andTerm, orTerm uint32) (uint32, error) { return 0, nil }

// RMWSum implements ipbus.MemoryHandler.
func (Null) RMWSum(addr uint32, addend uint32) (uint32, error) { return 0, nil }
