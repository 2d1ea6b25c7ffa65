package ringbuf

import (
	"bytes"
	"testing"
)

func TestByteShimAppendAndPopFront(t *testing.T) {
	s := NewByteShim()
	s.Append([]byte{1, 2, 3})
	s.Append([]byte{4, 5})
	if s.Len() != 5 {
		t.Fatalf("len = %d, want 5", s.Len())
	}
	got := s.PopFront(4)
	want := []byte{1, 2, 3, 4}
	if !bytes.Equal(got, want) {
		t.Fatalf("PopFront = %v, want %v", got, want)
	}
	if s.Len() != 1 {
		t.Fatalf("len after pop = %d, want 1", s.Len())
	}
	rest := s.PopFront(10)
	if !bytes.Equal(rest, []byte{5}) {
		t.Fatalf("PopFront tail = %v, want [5]", rest)
	}
}

func TestByteShimDeleteFront(t *testing.T) {
	s := NewByteShim()
	s.Append([]byte{1, 2, 3, 4, 5, 6})
	n := s.DeleteFront(4)
	if n != 4 || s.Len() != 2 {
		t.Fatalf("DeleteFront(4) = %d, len = %d, want 4 and 2", n, s.Len())
	}
	got := s.PopFront(2)
	if !bytes.Equal(got, []byte{5, 6}) {
		t.Fatalf("remaining bytes = %v, want [5 6]", got)
	}
}

func TestByteShimDeleteBack(t *testing.T) {
	s := NewByteShim()
	s.Append([]byte{1, 2, 3})
	s.Append([]byte{4, 5, 6})
	n := s.DeleteBack(4)
	if n != 4 || s.Len() != 2 {
		t.Fatalf("DeleteBack(4) = %d, len = %d, want 4 and 2", n, s.Len())
	}
	got := s.PopFront(2)
	if !bytes.Equal(got, []byte{1, 2}) {
		t.Fatalf("remaining front bytes = %v, want [1 2]", got)
	}
}

func TestByteShimReadFromReader(t *testing.T) {
	s := NewByteShim()
	r := bytes.NewReader([]byte{9, 8, 7})
	n, err := s.ReadFromReader(r, 16)
	if err != nil {
		t.Fatalf("ReadFromReader: %v", err)
	}
	if n != 3 || s.Len() != 3 {
		t.Fatalf("n=%d len=%d, want 3 and 3", n, s.Len())
	}
	got := s.PopFront(3)
	if !bytes.Equal(got, []byte{9, 8, 7}) {
		t.Fatalf("bytes = %v, want [9 8 7]", got)
	}
}

// TestByteShimWordAlignment mirrors how Client.PromoteWords uses the shim:
// a read that isn't a multiple of 4 bytes must leave its remainder behind.
func TestByteShimWordAlignment(t *testing.T) {
	s := NewByteShim()
	s.Append([]byte{1, 2, 3, 4, 5, 6}) // one word plus a 2-byte remainder
	wholeWords := s.Len() / 4
	word := s.PopFront(wholeWords * 4)
	if len(word) != 4 {
		t.Fatalf("promoted %d bytes, want 4", len(word))
	}
	if s.Len() != 2 {
		t.Fatalf("remainder = %d bytes, want 2", s.Len())
	}
}
