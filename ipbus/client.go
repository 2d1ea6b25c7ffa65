package ipbus

import "github.com/cactuscore/ipbusd/ringbuf"

// Client bundles one connection's IPbus framing state: the word rings
// feeding/draining the processor and the byte shim that aligns the raw
// transport stream onto word boundaries. It carries no fd itself — the
// server package owns the transport and hands bytes in, bytes out.
type Client struct {
	Input  *ringbuf.WordRing
	Output *ringbuf.WordRing
	Shim   *ringbuf.ByteShim

	// Swapbytes records the endianness established by the most recent
	// packet header this client sent (spec.md §4.2). It starts false and
	// is only ever updated by Classify.
	Swapbytes bool

	Handler MemoryHandler
}

// NewClient returns a Client with rings of the given word capacity, wired
// to h.
func NewClient(ringCapacity int, h MemoryHandler) *Client {
	return &Client{
		Input:   ringbuf.NewWordRing(ringCapacity),
		Output:  ringbuf.NewWordRing(ringCapacity),
		Shim:    ringbuf.NewByteShim(),
		Handler: h,
	}
}

// PromoteWords moves as many whole 32-bit words as are available in the
// byte shim into the input ring, limited by the ring's free space. It
// returns the word count promoted. Call this after appending freshly
// received bytes to c.Shim, before driving Process.
func (c *Client) PromoteWords() int {
	avail := c.Shim.Len() / 4
	room := c.Input.Freespace()
	n := avail
	if n > room {
		n = room
	}
	if n == 0 {
		return 0
	}
	raw := c.Shim.PopFront(n * 4)
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = bytesToWordLocal(raw[i*4 : i*4+4])
	}
	_ = c.Input.Append(words)
	return n
}

func bytesToWordLocal(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
