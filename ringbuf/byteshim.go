package ringbuf

import (
	"io"

	"github.com/eapache/queue"
)

// ByteShim is a growable byte-oriented staging buffer. Transports deliver
// arbitrary byte counts; IPbus is word-aligned, so the shim accumulates a
// transport read and the packet processor promotes only floor(size/4) words
// into a WordRing, leaving the 0-3 byte remainder for the next read.
//
// Internally the shim is a FIFO queue of byte-slice chunks (one chunk per
// transport read) rather than one flat, repeatedly-reallocated buffer —
// pushing a chunk is O(1) and consuming from the front only has to look at
// the chunk currently being drained. Not safe for concurrent use.
type ByteShim struct {
	chunks     *queue.Queue
	frontTaken int // bytes already consumed from the chunk at the head of chunks
	length     int // total unconsumed bytes across all chunks
}

// NewByteShim returns an empty shim.
func NewByteShim() *ByteShim {
	return &ByteShim{chunks: queue.New()}
}

// Len returns the number of unconsumed bytes.
func (b *ByteShim) Len() int { return b.length }

// Append adds data to the back of the shim. A zero-length append is a no-op.
func (b *ByteShim) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	b.chunks.Add(chunk)
	b.length += len(chunk)
}

// PopFront removes and returns up to n bytes from the front of the shim as a
// freshly allocated slice. If n exceeds Len(), the entire shim is returned.
func (b *ByteShim) PopFront(n int) []byte {
	if n > b.length {
		n = b.length
	}
	out := make([]byte, n)
	got := 0
	for got < n {
		chunk := b.chunks.Peek().([]byte)[b.frontTaken:]
		need := n - got
		if need >= len(chunk) {
			copy(out[got:], chunk)
			got += len(chunk)
			b.chunks.Remove()
			b.frontTaken = 0
		} else {
			copy(out[got:], chunk[:need])
			got += need
			b.frontTaken += need
		}
	}
	b.length -= n
	return out
}

// DeleteFront advances past up to n bytes without returning them, and
// returns the count advanced.
func (b *ByteShim) DeleteFront(n int) int {
	if n > b.length {
		n = b.length
	}
	remaining := n
	for remaining > 0 {
		chunk := b.chunks.Peek().([]byte)[b.frontTaken:]
		if remaining >= len(chunk) {
			remaining -= len(chunk)
			b.chunks.Remove()
			b.frontTaken = 0
		} else {
			b.frontTaken += remaining
			remaining = 0
		}
	}
	b.length -= n
	return n
}

// DeleteBack discards up to n bytes from the tail of the shim and returns
// the count discarded.
func (b *ByteShim) DeleteBack(n int) int {
	if n > b.length {
		n = b.length
	}
	if n == 0 {
		return 0
	}
	keep := b.length - n
	var kept [][]byte
	remaining := keep
	for b.chunks.Length() > 0 && remaining > 0 {
		chunk := b.chunks.Peek().([]byte)[b.frontTaken:]
		b.chunks.Remove()
		b.frontTaken = 0
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		kept = append(kept, chunk)
		remaining -= len(chunk)
	}
	b.chunks = queue.New()
	for _, c := range kept {
		b.chunks.Add(c)
	}
	b.frontTaken = 0
	b.length = keep
	return n
}

// ReadFromReader reserves n bytes, issues one Read against r, and appends
// only the bytes actually read (the unused portion of the reservation is
// trimmed rather than retained, per the original's realloc-then-shrink
// behavior). Returns the byte count read and any error from r.Read.
func (b *ByteShim) ReadFromReader(r io.Reader, n int) (int, error) {
	buf := make([]byte, n)
	nRead, err := r.Read(buf)
	if nRead > 0 {
		b.chunks.Add(buf[:nRead])
		b.length += nRead
	}
	return nRead, err
}
