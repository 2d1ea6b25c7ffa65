package ipbus

import (
	"fmt"

	"github.com/cactuscore/ipbusd/logx"
)

// processTransaction runs req against h and builds the response
// transaction, per spec.md §4.4/§4.6. Handler failures are logged and
// otherwise swallowed, so the response always carries InfoSuccess. A failed
// READ/NIREAD answers with words=0 and no payload, so its header still
// matches what follows it on the wire. Mapping a handler error onto
// BUSERROR_* is a protocol-legal extension this core does not implement
// (spec.md §7 item 4).
func processTransaction(h MemoryHandler, req *Transaction) Transaction {
	resp := Transaction{
		ID:    req.ID,
		Type:  req.Type,
		Info:  InfoSuccess,
		Words: req.Words,
	}

	switch req.Type {
	case TypeRead:
		data, err := h.Read(req.Data[0], req.Words)
		if err != nil {
			logx.Error("read addr=%#x words=%d: %v", req.Data[0], req.Words, err)
			resp.Words = 0
			break
		}
		resp.Data = data
	case TypeNIRead:
		data, err := h.NIRead(req.Data[0], req.Words)
		if err != nil {
			logx.Error("non-incrementing read addr=%#x words=%d: %v", req.Data[0], req.Words, err)
			resp.Words = 0
			break
		}
		resp.Data = data
	case TypeWrite:
		if err := h.Write(req.Data[0], req.Data[1:]); err != nil {
			logx.Error("write addr=%#x: %v", req.Data[0], err)
		}
	case TypeNIWrite:
		if err := h.NIWrite(req.Data[0], req.Data[1:]); err != nil {
			logx.Error("non-incrementing write addr=%#x: %v", req.Data[0], err)
		}
	case TypeRMW:
		before, err := h.RMW(req.Data[0], req.Data[1], req.Data[2])
		if err != nil {
			logx.Error("read-modify-write addr=%#x: %v", req.Data[0], err)
			break
		}
		resp.Data = []uint32{before}
	case TypeRMWSum:
		before, err := h.RMWSum(req.Data[0], req.Data[1])
		if err != nil {
			logx.Error("read-modify-write-sum addr=%#x: %v", req.Data[0], err)
			break
		}
		resp.Data = []uint32{before}
	}

	return resp
}

// Dispatch decodes one full transaction off the front of in, runs it
// against h, and encodes the response onto out. It returns the word count
// consumed from in. Callers must have already confirmed via Classify that a
// full transaction is present at the head of in.
//
// Dispatch itself never surfaces a handler error (spec.md §7: "the
// dispatcher itself never surfaces an error"). It returns ErrNoHandler or an
// unknown-transaction-type error without draining in, so the caller can
// decide how to recover. It also returns the output ring's error when the
// response does not fit in out; in that case the request has already been
// consumed from in.
func Dispatch(in decodeEncodeRing, out encodeRing, h MemoryHandler, swapbytes bool) (int, error) {
	if h == nil {
		return 0, ErrNoHandler
	}

	req := DecodeTransaction(in, swapbytes)
	if !isKnownTransactionType(req.Type) {
		return 0, fmt.Errorf("%w: %#x", ErrUnknownTransactionType, req.Type)
	}

	consumed := req.EncodedSize()
	in.DeleteFront(consumed)

	resp := processTransaction(h, &req)
	if encErr := EncodeTransaction(out, &resp, swapbytes); encErr != nil {
		return consumed, encErr
	}
	return consumed, nil
}

func isKnownTransactionType(typeID uint8) bool {
	switch typeID {
	case TypeRead, TypeNIRead, TypeWrite, TypeNIWrite, TypeRMW, TypeRMWSum:
		return true
	default:
		return false
	}
}

// decodeEncodeRing is the subset of *ringbuf.WordRing the dispatcher needs:
// it both peeks/decodes (headPeeker) and advances the front (DeleteFront).
type decodeEncodeRing interface {
	headPeeker
	DeleteFront(n int) int
}
