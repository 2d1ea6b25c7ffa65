// Package backend provides concrete ipbus.MemoryHandler implementations:
// an anonymous-mmap scratch region for tests, a /dev/mem-backed handler for
// real hardware, a pair of no-op/logging stubs, and a serial-forwarding
// proxy.
package backend

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cactuscore/ipbusd/logx"
)

// TestMemSize matches the original implementation's 4MB scratch region.
const TestMemSize = 4 * 1024 * 1024

// TestMem is an anonymous-mmap'd block of memory addressed by byte offset,
// seeded with 0xEF bytes. It is meant for tests and local development
// against a register map that does not exist.
type TestMem struct {
	mem []byte
}

// NewTestMem mmaps and seeds a TestMemSize scratch region.
func NewTestMem() (*TestMem, error) {
	mem, err := unix.Mmap(-1, 0, TestMemSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("backend: mmap test memory: %w", err)
	}
	for i := range mem {
		mem[i] = 0xEF
	}
	logx.Info("mapped %d bytes of test memory", TestMemSize)
	return &TestMem{mem: mem}, nil
}

// Close unmaps the scratch region.
func (t *TestMem) Close() error {
	return unix.Munmap(t.mem)
}

// wordOffset validates that the n words starting at the byte offset addr
// fit within t.mem and returns that offset unchanged: addresses are byte
// offsets into the backing store, not word indices.
func (t *TestMem) wordOffset(addr uint32, n int) (int, error) {
	off := int(addr)
	if off < 0 || off+n*4 > len(t.mem) {
		return 0, fmt.Errorf("backend: address %#x out of range", addr)
	}
	return off, nil
}

// Read implements ipbus.MemoryHandler.
func (t *TestMem) Read(addr uint32, nwords uint8) ([]uint32, error) {
	off, err := t.wordOffset(addr, int(nwords))
	if err != nil {
		return nil, err
	}
	out := make([]uint32, nwords)
	for i := range out {
		out[i] = loadWord(t.mem, off+i*4)
	}
	return out, nil
}

// NIRead implements ipbus.MemoryHandler: reads the same address repeatedly.
func (t *TestMem) NIRead(addr uint32, nwords uint8) ([]uint32, error) {
	off, err := t.wordOffset(addr, 1)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, nwords)
	for i := range out {
		out[i] = loadWord(t.mem, off)
	}
	return out, nil
}

// Write implements ipbus.MemoryHandler.
func (t *TestMem) Write(addr uint32, data []uint32) error {
	off, err := t.wordOffset(addr, len(data))
	if err != nil {
		return err
	}
	for i, w := range data {
		storeWord(t.mem, off+i*4, w)
	}
	return nil
}

// NIWrite implements ipbus.MemoryHandler: writes every datum to the same
// address, so only the last one sticks.
func (t *TestMem) NIWrite(addr uint32, data []uint32) error {
	off, err := t.wordOffset(addr, 1)
	if err != nil {
		return err
	}
	for _, w := range data {
		storeWord(t.mem, off, w)
	}
	return nil
}

// RMW implements ipbus.MemoryHandler.
func (t *TestMem) RMW(addr uint32, andTerm, orTerm uint32) (uint32, error) {
	off, err := t.wordOffset(addr, 1)
	if err != nil {
		return 0, err
	}
	current := loadWord(t.mem, off)
	storeWord(t.mem, off, (current&andTerm)|orTerm)
	return current, nil
}

// RMWSum implements ipbus.MemoryHandler.
func (t *TestMem) RMWSum(addr uint32, addend uint32) (uint32, error) {
	off, err := t.wordOffset(addr, 1)
	if err != nil {
		return 0, err
	}
	current := loadWord(t.mem, off)
	storeWord(t.mem, off, current+addend)
	return current, nil
}

func loadWord(mem []byte, off int) uint32 {
	return uint32(mem[off]) | uint32(mem[off+1])<<8 | uint32(mem[off+2])<<16 | uint32(mem[off+3])<<24
}

func storeWord(mem []byte, off int, w uint32) {
	mem[off] = byte(w)
	mem[off+1] = byte(w >> 8)
	mem[off+2] = byte(w >> 16)
	mem[off+3] = byte(w >> 24)
}
