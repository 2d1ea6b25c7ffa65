package ipbus

import (
	"testing"

	"github.com/cactuscore/ipbusd/ringbuf"
)

func TestClassifyEmpty(t *testing.T) {
	r := ringbuf.NewWordRing(16)
	if got := Classify(r, nil); got != StateEmpty {
		t.Fatalf("Classify(empty) = %v, want StateEmpty", got)
	}
}

func TestClassifyPacketHeaderUpdatesSwapbytes(t *testing.T) {
	r := ringbuf.NewWordRing(16)
	_ = r.PushBackNet(0xf0000020) // swapped-order packet header
	sb := false
	if got := Classify(r, &sb); got != StatePacketSwapped {
		t.Fatalf("Classify = %v, want StatePacketSwapped", got)
	}
	if !sb {
		t.Fatal("Classify did not set swapbytes=true for a swapped header")
	}
}

func TestClassifyPartialThenFullTransaction(t *testing.T) {
	r := ringbuf.NewWordRing(16)
	header := TransactionHeader(1, 2, TypeRead, InfoRequest)
	_ = r.PushBackNet(header)
	if got := Classify(r, nil); got != StatePartialTrans {
		t.Fatalf("Classify(header only) = %v, want StatePartialTrans", got)
	}
	_ = r.PushBackNet(0x1000) // the one request word: the address to read
	if got := Classify(r, nil); got != StateFullTrans {
		t.Fatalf("Classify(header+payload) = %v, want StateFullTrans", got)
	}
}
