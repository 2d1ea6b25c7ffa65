//go:build linux
// +build linux

package backend

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/cactuscore/ipbusd/logx"
)

// DevMemPageSize is the single page the original implementation mapped from
// /dev/mem; real deployments map whatever register window their hardware
// needs.
const DevMemPageSize = 4096

// DevMem addresses a single page of physical memory mapped through
// /dev/mem. It requires CAP_SYS_RAWIO (typically root) and only runs on
// Linux.
type DevMem struct {
	fd  int
	mem []byte
}

// NewDevMem opens /dev/mem and maps DevMemPageSize bytes at the given
// physical offset.
func NewDevMem(physOffset int64) (*DevMem, error) {
	fd, err := unix.Open("/dev/mem", unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("backend: open /dev/mem: %w", err)
	}
	mem, err := unix.Mmap(fd, physOffset, DevMemPageSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("backend: mmap /dev/mem: %w", err)
	}
	logx.Info("mapped /dev/mem offset %#x", physOffset)
	return &DevMem{fd: fd, mem: mem}, nil
}

// Close unmaps the page and closes /dev/mem.
func (d *DevMem) Close() error {
	if err := unix.Munmap(d.mem); err != nil {
		return err
	}
	return unix.Close(d.fd)
}

// wordOffset validates that the n words starting at the byte offset addr
// fit within the mapped page and returns that offset unchanged: addresses
// are byte offsets into the backing store, not word indices.
func (d *DevMem) wordOffset(addr uint32, n int) (int, error) {
	off := int(addr)
	if off < 0 || off+n*4 > len(d.mem) {
		return 0, fmt.Errorf("backend: address %#x out of range", addr)
	}
	return off, nil
}

// Read implements ipbus.MemoryHandler.
func (d *DevMem) Read(addr uint32, nwords uint8) ([]uint32, error) {
	off, err := d.wordOffset(addr, int(nwords))
	if err != nil {
		return nil, err
	}
	out := make([]uint32, nwords)
	for i := range out {
		out[i] = loadWord(d.mem, off+i*4)
	}
	return out, nil
}

// NIRead implements ipbus.MemoryHandler.
func (d *DevMem) NIRead(addr uint32, nwords uint8) ([]uint32, error) {
	off, err := d.wordOffset(addr, 1)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, nwords)
	for i := range out {
		out[i] = loadWord(d.mem, off)
	}
	return out, nil
}

// Write implements ipbus.MemoryHandler.
func (d *DevMem) Write(addr uint32, data []uint32) error {
	off, err := d.wordOffset(addr, len(data))
	if err != nil {
		return err
	}
	for i, w := range data {
		storeWord(d.mem, off+i*4, w)
	}
	return nil
}

// NIWrite implements ipbus.MemoryHandler.
func (d *DevMem) NIWrite(addr uint32, data []uint32) error {
	off, err := d.wordOffset(addr, 1)
	if err != nil {
		return err
	}
	for _, w := range data {
		storeWord(d.mem, off, w)
	}
	return nil
}

// RMW implements ipbus.MemoryHandler.
func (d *DevMem) RMW(addr uint32, andTerm, orTerm uint32) (uint32, error) {
	off, err := d.wordOffset(addr, 1)
	if err != nil {
		return 0, err
	}
	current := loadWord(d.mem, off)
	storeWord(d.mem, off, (current&andTerm)|orTerm)
	return current, nil
}

// RMWSum implements ipbus.MemoryHandler.
func (d *DevMem) RMWSum(addr uint32, addend uint32) (uint32, error) {
	off, err := d.wordOffset(addr, 1)
	if err != nil {
		return 0, err
	}
	current := loadWord(d.mem, off)
	storeWord(d.mem, off, current+addend)
	return current, nil
}
