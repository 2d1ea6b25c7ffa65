package ipbus

import "testing"

func TestDetectPacketHeader(t *testing.T) {
	cases := []struct {
		name string
		word uint32
		want int
	}{
		{"native", 0x200000f0, headerNative},
		{"swapped", 0xf0000020, headerSwapped},
		{"garbage", 0xdeadbeef, headerNotAPacket},
	}
	for _, c := range cases {
		if got := detectPacketHeader(c.word); got != c.want {
			t.Errorf("%s: detectPacketHeader(%#x) = %d, want %d", c.name, c.word, got, c.want)
		}
	}
}

func TestTransactionHeaderRoundTrip(t *testing.T) {
	word := TransactionHeader(0x123, 4, TypeRead, InfoRequest)
	h := decodeHeaderWord(word)
	if h.id != 0x123 || h.words != 4 || h.typ != TypeRead || h.info != InfoRequest {
		t.Fatalf("decoded %+v, want id=0x123 words=4 type=Read info=Request", h)
	}
}

func TestPacketHeader(t *testing.T) {
	word := PacketHeader(0, PacketControl)
	if word != 0x200000f0 {
		t.Fatalf("PacketHeader(0, control) = %#x, want 0x200000f0", word)
	}
}

func TestPayloadSize(t *testing.T) {
	cases := []struct {
		words, typ, info uint8
		want             int
	}{
		{4, TypeRead, InfoRequest, 1},
		{4, TypeRead, InfoSuccess, 4},
		{3, TypeWrite, InfoRequest, 4},
		{3, TypeWrite, InfoSuccess, 0},
		{0, TypeRMW, InfoRequest, 3},
		{0, TypeRMW, InfoSuccess, 1},
		{0, TypeRMWSum, InfoRequest, 2},
		{0, TypeRMWSum, InfoSuccess, 1},
		{0, TypeRead, InfoBusErrorRead, 0},
	}
	for _, c := range cases {
		if got := PayloadSize(c.words, c.typ, c.info); got != c.want {
			t.Errorf("PayloadSize(%d,%#x,%#x) = %d, want %d", c.words, c.typ, c.info, got, c.want)
		}
	}
}
