package ipbus

import "testing"

// TestProcessEchoesPacketHeaderThenTransaction exercises the full stream:
// a packet header followed by one read transaction, both handled in one
// Process() call, matching how a real client sends one packet containing
// a header plus transactions.
func TestProcessEchoesPacketHeaderThenTransaction(t *testing.T) {
	h := newFakeHandler()
	h.mem[0x5] = 0x99

	c := NewClient(32, h)
	if err := c.Input.PushBackNet(PacketHeader(0, PacketControl)); err != nil {
		t.Fatalf("push packet header: %v", err)
	}
	req := Transaction{ID: 0x42, Words: 1, Type: TypeRead, Info: InfoRequest, Data: []uint32{0x5}}
	if err := EncodeTransaction(c.Input, &req, false); err != nil {
		t.Fatalf("encode request: %v", err)
	}

	consumed, err := c.Process()
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if consumed != 1+req.EncodedSize() {
		t.Fatalf("consumed = %d, want %d", consumed, 1+req.EncodedSize())
	}
	if c.Input.Size() != 0 {
		t.Fatalf("input ring not drained: size = %d", c.Input.Size())
	}

	echoedHeader := c.Output.ValueAtNet(0)
	c.Output.DeleteFront(1)
	if echoedHeader != PacketHeader(0, PacketControl) {
		t.Fatalf("echoed header = %#x, want %#x", echoedHeader, PacketHeader(0, PacketControl))
	}

	resp := DecodeTransaction(c.Output, false)
	if resp.Info != InfoSuccess || len(resp.Data) != 1 || resp.Data[0] != 0x99 {
		t.Fatalf("response = %+v, want success with data [0x99]", resp)
	}
}

// TestProcessStopsOnPartialTransaction confirms Process returns without
// error (and without touching output) when only part of a transaction has
// arrived.
func TestProcessStopsOnPartialTransaction(t *testing.T) {
	h := newFakeHandler()
	c := NewClient(16, h)
	header := TransactionHeader(1, 2, TypeRead, InfoRequest)
	_ = c.Input.PushBackNet(header) // no payload word yet

	consumed, err := c.Process()
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if consumed != 0 {
		t.Fatalf("consumed = %d, want 0 (partial transaction must not be touched)", consumed)
	}
	if c.Output.Size() != 0 {
		t.Fatalf("output size = %d, want 0", c.Output.Size())
	}
}
