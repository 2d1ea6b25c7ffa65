// Package ringbuf provides the word-level and byte-level staging buffers that
// sit underneath the IPbus packet engine: a fixed-capacity circular buffer of
// 32-bit words (WordRing) and a growable byte-oriented shim (ByteShim) that
// aligns arbitrary transport reads onto whole-word boundaries before they are
// promoted into a WordRing.
package ringbuf

import (
	"errors"
	"io"
)

// DefaultCapacity matches the original implementation's IO_BUFFER_SIZE.
const DefaultCapacity = 256

// PopFrontSentinel is returned by PopFront when the ring is empty.
const PopFrontSentinel = 0xDEADBEEF

// ErrNoSpace is returned by Append/PushBack when the ring cannot hold the
// requested words. On ErrNoSpace the ring is left completely unmodified.
var ErrNoSpace = errors.New("ringbuf: not enough free space")

// WordRing is a fixed-capacity circular buffer of 32-bit words. One slot is
// always reserved to disambiguate full from empty, so a ring built with
// capacity C can hold at most C-1 words. It is not safe for concurrent use;
// callers own exclusive access (spec: single-threaded per client).
//
// Words are stored exactly as they are assembled from the wire (this target
// deployment is little-endian, so a raw 4-byte wire chunk is reinterpreted
// directly as the stored word, byte for byte). ValueAtNet/PushBackNet are the
// only places a network/host byte swap happens; everything else is oblivious
// to host endianness.
type WordRing struct {
	data []uint32
	head int
	tail int
}

// NewWordRing allocates a ring with the given total capacity (usable
// capacity is cap-1). Capacity below 2 is rounded up to 2.
func NewWordRing(capacity int) *WordRing {
	if capacity < 2 {
		capacity = 2
	}
	return &WordRing{data: make([]uint32, capacity)}
}

func (r *WordRing) cap() int { return len(r.data) }

// Size returns the number of words currently stored.
func (r *WordRing) Size() int {
	if r.head <= r.tail {
		return r.tail - r.head
	}
	return r.tail + r.cap() - r.head
}

// Freespace returns how many more words can be Appended before ErrNoSpace.
func (r *WordRing) Freespace() int {
	return r.cap() - r.Size() - 1
}

// ContiguousHeadSpan returns the number of words from head up to either tail
// or the physical end of storage, whichever comes first.
func (r *WordRing) ContiguousHeadSpan() int {
	if r.head <= r.tail {
		return r.tail - r.head
	}
	return r.cap() - r.head
}

// ValueAt returns the i-th word from head without consuming it. i may be
// larger than Size(); the caller is responsible for only relying on the
// result when i < Size() (only the state machine peeks, and only when size
// permits).
func (r *WordRing) ValueAt(i int) uint32 {
	idx := (r.head + i) % r.cap()
	return r.data[idx]
}

// ValueAtNet returns ValueAt(i) converted from wire (network) byte order to
// host numeric order.
func (r *WordRing) ValueAtNet(i int) uint32 {
	return networkToHost(r.ValueAt(i))
}

// Append copies all of words onto the tail, possibly spanning the physical
// end of storage. It fails without modifying the ring if there is not enough
// free space.
func (r *WordRing) Append(words []uint32) error {
	n := len(words)
	if n == 0 {
		return nil
	}
	if r.Freespace() < n {
		return ErrNoSpace
	}
	tailLength := r.cap() - r.tail
	first := n
	if first > tailLength {
		first = tailLength
	}
	copy(r.data[r.tail:r.tail+first], words[:first])
	if first < n {
		copy(r.data[0:n-first], words[first:])
	}
	r.tail = (r.tail + n) % r.cap()
	return nil
}

// PushBack appends a single word; equivalent to Append([]uint32{word}).
func (r *WordRing) PushBack(word uint32) error {
	if r.Freespace() < 1 {
		return ErrNoSpace
	}
	r.data[r.tail] = word
	r.tail = (r.tail + 1) % r.cap()
	return nil
}

// PushBackNet applies a host-to-network conversion before pushing.
func (r *WordRing) PushBackNet(word uint32) error {
	return r.PushBack(networkToHost(word))
}

// Read copies up to len(dest) words from head into dest without advancing
// head, and returns the count copied.
func (r *WordRing) Read(dest []uint32) int {
	n := len(dest)
	if n > r.Size() {
		n = r.Size()
	}
	headSpan := n
	if headSpan > r.ContiguousHeadSpan() {
		headSpan = r.ContiguousHeadSpan()
	}
	copy(dest[:headSpan], r.data[r.head:r.head+headSpan])
	remaining := n - headSpan
	if remaining > 0 {
		copy(dest[headSpan:n], r.data[0:remaining])
	}
	return n
}

// DeleteFront advances head by min(n, Size()) and returns the count advanced.
func (r *WordRing) DeleteFront(n int) int {
	if n > r.Size() {
		n = r.Size()
	}
	r.head = (r.head + n) % r.cap()
	return n
}

// Pop reads up to n words and deletes them from the front in one step,
// returning a freshly allocated slice sized to the words actually produced.
func (r *WordRing) Pop(n int) []uint32 {
	if n > r.Size() {
		n = r.Size()
	}
	out := make([]uint32, n)
	r.Read(out)
	r.DeleteFront(n)
	return out
}

// PopFront returns value_at(0) and advances head by one, or the sentinel
// 0xDEADBEEF if the ring is empty.
func (r *WordRing) PopFront() uint32 {
	if r.Size() == 0 {
		return PopFrontSentinel
	}
	v := r.ValueAt(0)
	r.DeleteFront(1)
	return v
}

// WriteTo writes up to n words from head to w, in contiguous spans (the
// head-to-end span first, then the wrapped remainder if needed), consuming
// exactly the words successfully written. Short writes are permitted; the
// return value is the total word count actually transferred.
func (r *WordRing) WriteTo(w io.Writer, n int) (int, error) {
	if n > r.Size() {
		n = r.Size()
	}
	total := 0
	for total < n {
		span := n - total
		if span > r.ContiguousHeadSpan() {
			span = r.ContiguousHeadSpan()
		}
		if span == 0 {
			break
		}
		buf := wordsToBytes(r.data[r.head : r.head+span])
		written, err := w.Write(buf)
		wholeWords := written / 4
		if wholeWords > 0 {
			r.DeleteFront(wholeWords)
			total += wholeWords
		}
		if err != nil {
			return total, err
		}
		if wholeWords == 0 {
			break
		}
	}
	return total, nil
}

// ReadFrom reads at most one contiguous span — min(n, Freespace(),
// cap-tail) words — directly into the tail of the ring with a single Read
// call, and advances tail by the whole words actually read. To consume a
// wrapped request fully, callers invoke this twice (spec: "may be invoked
// twice per logical call").
func (r *WordRing) ReadFrom(rd io.Reader, n int) (int, error) {
	if n > r.Freespace() {
		n = r.Freespace()
	}
	if n > r.cap()-r.tail {
		n = r.cap() - r.tail
	}
	if n == 0 {
		return 0, nil
	}
	buf := make([]byte, n*4)
	nBytes, err := rd.Read(buf)
	wholeWords := nBytes / 4
	for i := 0; i < wholeWords; i++ {
		r.data[r.tail+i] = bytesToWord(buf[i*4 : i*4+4])
	}
	r.tail = (r.tail + wholeWords) % r.cap()
	return wholeWords, err
}

// Transfer moves min(src.Size(), dst.Freespace()) words from src to dst and
// returns the count transferred.
func Transfer(src, dst *WordRing) int {
	n := src.Size()
	if n > dst.Freespace() {
		n = dst.Freespace()
	}
	words := src.Pop(n)
	_ = dst.Append(words)
	return n
}

// Copy returns a deep clone of the entire storage and indices.
func (r *WordRing) Copy() *WordRing {
	out := &WordRing{
		data: make([]uint32, len(r.data)),
		head: r.head,
		tail: r.tail,
	}
	copy(out.data, r.data)
	return out
}

func networkToHost(w uint32) uint32 {
	return (w&0xff)<<24 | (w&0xff00)<<8 | (w&0xff0000)>>8 | (w&0xff000000)>>24
}

func wordsToBytes(words []uint32) []byte {
	out := make([]byte, len(words)*4)
	for i, w := range words {
		out[i*4] = byte(w)
		out[i*4+1] = byte(w >> 8)
		out[i*4+2] = byte(w >> 16)
		out[i*4+3] = byte(w >> 24)
	}
	return out
}

func bytesToWord(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
