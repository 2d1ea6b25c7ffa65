package ipbus

import (
	"fmt"
	"testing"

	"github.com/cactuscore/ipbusd/ringbuf"
)

// fakeHandler is a minimal in-memory MemoryHandler for exercising Dispatch
// without pulling in the backend package (which would import ipbus,
// creating a cycle).
type fakeHandler struct {
	mem map[uint32]uint32
}

func newFakeHandler() *fakeHandler { return &fakeHandler{mem: make(map[uint32]uint32)} }

func (f *fakeHandler) Read(addr uint32, nwords uint8) ([]uint32, error) {
	out := make([]uint32, nwords)
	for i := range out {
		out[i] = f.mem[addr+uint32(i)]
	}
	return out, nil
}

func (f *fakeHandler) NIRead(addr uint32, nwords uint8) ([]uint32, error) {
	out := make([]uint32, nwords)
	for i := range out {
		out[i] = f.mem[addr]
	}
	return out, nil
}

func (f *fakeHandler) Write(addr uint32, data []uint32) error {
	for i, w := range data {
		f.mem[addr+uint32(i)] = w
	}
	return nil
}

func (f *fakeHandler) NIWrite(addr uint32, data []uint32) error {
	for _, w := range data {
		f.mem[addr] = w
	}
	return nil
}

func (f *fakeHandler) RMW(addr uint32, andTerm, orTerm uint32) (uint32, error) {
	before := f.mem[addr]
	f.mem[addr] = (before & andTerm) | orTerm
	return before, nil
}

func (f *fakeHandler) RMWSum(addr uint32, addend uint32) (uint32, error) {
	before := f.mem[addr]
	f.mem[addr] = before + addend
	return before, nil
}

func TestDispatchWriteThenRead(t *testing.T) {
	h := newFakeHandler()
	in := ringbuf.NewWordRing(32)
	out := ringbuf.NewWordRing(32)

	writeReq := Transaction{ID: 1, Words: 2, Type: TypeWrite, Info: InfoRequest, Data: []uint32{0x10, 0xaa, 0xbb}}
	if err := EncodeTransaction(in, &writeReq, false); err != nil {
		t.Fatalf("encode write: %v", err)
	}
	if _, err := Dispatch(in, out, h, false); err != nil {
		t.Fatalf("dispatch write: %v", err)
	}

	writeResp := DecodeTransaction(out, false)
	out.DeleteFront(writeResp.EncodedSize())
	if writeResp.Info != InfoSuccess || len(writeResp.Data) != 0 {
		t.Fatalf("write response = %+v, want success with no payload", writeResp)
	}

	readReq := Transaction{ID: 2, Words: 2, Type: TypeRead, Info: InfoRequest, Data: []uint32{0x10}}
	if err := EncodeTransaction(in, &readReq, false); err != nil {
		t.Fatalf("encode read: %v", err)
	}
	if _, err := Dispatch(in, out, h, false); err != nil {
		t.Fatalf("dispatch read: %v", err)
	}
	readResp := DecodeTransaction(out, false)
	if readResp.Info != InfoSuccess {
		t.Fatalf("read response info = %#x, want success", readResp.Info)
	}
	if len(readResp.Data) != 2 || readResp.Data[0] != 0xaa || readResp.Data[1] != 0xbb {
		t.Fatalf("read response data = %v, want [0xaa 0xbb]", readResp.Data)
	}
}

func TestDispatchRMWReturnsPriorValue(t *testing.T) {
	h := newFakeHandler()
	h.mem[0x20] = 0xf0f0f0f0
	in := ringbuf.NewWordRing(16)
	out := ringbuf.NewWordRing(16)

	req := Transaction{ID: 5, Type: TypeRMW, Info: InfoRequest, Data: []uint32{0x20, 0xffffffff, 0x1}}
	_ = EncodeTransaction(in, &req, false)
	if _, err := Dispatch(in, out, h, false); err != nil {
		t.Fatalf("dispatch rmw: %v", err)
	}
	resp := DecodeTransaction(out, false)
	if len(resp.Data) != 1 || resp.Data[0] != 0xf0f0f0f0 {
		t.Fatalf("rmw response = %v, want [0xf0f0f0f0] (the pre-modify value)", resp.Data)
	}
	if h.mem[0x20] != 0xf0f0f0f1 {
		t.Fatalf("mem after rmw = %#x, want 0xf0f0f0f1", h.mem[0x20])
	}
}

// failingHandler always returns an error from every operation, to verify
// Dispatch never turns a handler failure into a BUSERROR_* info code.
type failingHandler struct{}

func (failingHandler) Read(addr uint32, nwords uint8) ([]uint32, error) {
	return nil, errTestHandlerFailure
}
func (failingHandler) NIRead(addr uint32, nwords uint8) ([]uint32, error) {
	return nil, errTestHandlerFailure
}
func (failingHandler) Write(addr uint32, data []uint32) error   { return errTestHandlerFailure }
func (failingHandler) NIWrite(addr uint32, data []uint32) error { return errTestHandlerFailure }
func (failingHandler) RMW(addr uint32, andTerm, orTerm uint32) (uint32, error) {
	return 0, errTestHandlerFailure
}
func (failingHandler) RMWSum(addr uint32, addend uint32) (uint32, error) {
	return 0, errTestHandlerFailure
}

var errTestHandlerFailure = fmt.Errorf("test: handler failure")

// TestDispatchHandlerFailureStillEncodesSuccess locks in spec.md §7's
// propagation policy: the dispatcher never surfaces a handler error as a
// BUSERROR_* info code, it only logs it.
func TestDispatchHandlerFailureStillEncodesSuccess(t *testing.T) {
	in := ringbuf.NewWordRing(16)
	out := ringbuf.NewWordRing(16)

	req := Transaction{ID: 9, Words: 1, Type: TypeRead, Info: InfoRequest, Data: []uint32{0x4}}
	_ = EncodeTransaction(in, &req, false)

	consumed, err := Dispatch(in, out, failingHandler{}, false)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if consumed != req.EncodedSize() {
		t.Fatalf("consumed = %d, want %d", consumed, req.EncodedSize())
	}

	resp := DecodeTransaction(out, false)
	if resp.Info != InfoSuccess {
		t.Fatalf("response info = %#x, want InfoSuccess even on handler failure", resp.Info)
	}
	if len(resp.Data) != 0 {
		t.Fatalf("response data = %v, want none (read failed)", resp.Data)
	}
}

// TestDispatchUnknownTransactionTypeLeavesRingUntouched confirms an
// unrecognized transaction type is reported as an error without draining
// the input ring, unlike a handler failure.
func TestDispatchUnknownTransactionTypeLeavesRingUntouched(t *testing.T) {
	in := ringbuf.NewWordRing(16)
	out := ringbuf.NewWordRing(16)

	req := Transaction{ID: 1, Words: 0, Type: 0x9, Info: InfoRequest}
	_ = in.PushBackNet(TransactionHeader(req.ID, req.Words, req.Type, req.Info))

	before := in.Size()
	if _, err := Dispatch(in, out, newFakeHandler(), false); err == nil {
		t.Fatal("Dispatch with unknown transaction type = nil error, want one")
	}
	if in.Size() != before {
		t.Fatalf("input ring size = %d, want unchanged %d", in.Size(), before)
	}
}

func TestDispatchNoHandler(t *testing.T) {
	in := ringbuf.NewWordRing(16)
	out := ringbuf.NewWordRing(16)
	req := Transaction{Type: TypeRead, Info: InfoRequest, Data: []uint32{0}}
	_ = EncodeTransaction(in, &req, false)
	if _, err := Dispatch(in, out, nil, false); err != ErrNoHandler {
		t.Fatalf("Dispatch with nil handler = %v, want ErrNoHandler", err)
	}
}
