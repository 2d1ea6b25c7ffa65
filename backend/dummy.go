package backend

import "github.com/cactuscore/ipbusd/logx"

// Dummy logs every operation and returns deterministic placeholder data
// instead of touching any real memory. It mirrors the original
// implementation's logging_handlers.c, used for protocol-level testing
// against no particular hardware.
type Dummy struct{}

// NewDummy returns a ready-to-use Dummy handler.
func NewDummy() *Dummy { return &Dummy{} }

func sequentialWords(n uint8) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i + 1)
	}
	return out
}

// Read implements ipbus.MemoryHandler.
func (d *Dummy) Read(addr uint32, nwords uint8) ([]uint32, error) {
	logx.Info("IPBUS_READ nwords=%d addr=%#x", nwords, addr)
	return sequentialWords(nwords), nil
}

// NIRead implements ipbus.MemoryHandler.
func (d *Dummy) NIRead(addr uint32, nwords uint8) ([]uint32, error) {
	logx.Info("IPBUS_NIREAD nwords=%d addr=%#x", nwords, addr)
	return sequentialWords(nwords), nil
}

// Write implements ipbus.MemoryHandler.
func (d *Dummy) Write(addr uint32, data []uint32) error {
	logx.Info("IPBUS_WRITE writesize=%d addr=%#x", len(data), addr)
	for i, w := range data {
		logx.Debug("datum %d: %#x", i, w)
	}
	return nil
}

// NIWrite implements ipbus.MemoryHandler.
func (d *Dummy) NIWrite(addr uint32, data []uint32) error {
	logx.Info("IPBUS_NIWRITE writesize=%d addr=%#x", len(data), addr)
	for i, w := range data {
		logx.Debug("datum %d: %#x", i, w)
	}
	return nil
}

// RMW implements ipbus.MemoryHandler. With no real memory to modify, it
// echoes the transformation applied to the address itself, matching the
// original dummy's (base_address & andterm) | orterm behavior.
func (d *Dummy) RMW(addr uint32, andTerm, orTerm uint32) (uint32, error) {
	logx.Info("IPBUS_RMW addr=%#x and=%#x or=%#x", addr, andTerm, orTerm)
	return (addr & andTerm) | orTerm, nil
}

// RMWSum implements ipbus.MemoryHandler, echoing addr+addend.
func (d *Dummy) RMWSum(addr uint32, addend uint32) (uint32, error) {
	logx.Info("IPBUS_RMWSUM addr=%#x +=%#x", addr, addend)
	return addr + addend, nil
}
