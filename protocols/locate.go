package protocols

import (
	"fmt"

	"github.com/brodyxchen/giop/cdr"
)

// LocateStatus is the status of a locate reply.
type LocateStatus uint32

const (
	LocateUnknownObject LocateStatus = iota
	LocateObjectHere
	LocateObjectForward
	LocateObjectForwardPerm
	LocateSystemException
	LocateNeedsAddressingMode
)

var locateStatusNames = [...]string{
	LocateUnknownObject:       "UNKNOWN_OBJECT",
	LocateObjectHere:          "OBJECT_HERE",
	LocateObjectForward:       "OBJECT_FORWARD",
	LocateObjectForwardPerm:   "OBJECT_FORWARD_PERM",
	LocateSystemException:     "LOC_SYSTEM_EXCEPTION",
	LocateNeedsAddressingMode: "LOC_NEEDS_ADDRESSING_MODE",
}

func (s LocateStatus) String() string {
	if int(s) < len(locateStatusNames) {
		return locateStatusNames[s]
	}
	return fmt.Sprintf("LocateStatus(%d)", uint32(s))
}

// LocateRequestHeader asks whether a server hosts an object.
type LocateRequestHeader struct {
	RequestID uint32
	ObjectKey []byte
}

func (h *LocateRequestHeader) Write(enc *cdr.Encoder) {
	enc.WriteULong(h.RequestID)
	if enc.Version().Before(V1_2) {
		enc.WriteOctetSeq(h.ObjectKey)
		return
	}
	writeTargetAddress(enc, h.ObjectKey)
}

func ReadLocateRequestHeader(dec *cdr.Decoder) (*LocateRequestHeader, error) {
	h := &LocateRequestHeader{}
	var err error
	if h.RequestID, err = dec.ReadULong(); err != nil {
		return nil, err
	}
	if dec.Version().Before(V1_2) {
		h.ObjectKey, err = dec.ReadOctetSeq()
	} else {
		h.ObjectKey, err = readTargetAddress(dec)
	}
	if err != nil {
		return h, err
	}
	return h, nil
}

// LocateReplyHeader answers a locate request. The body following it
// depends on the status.
type LocateReplyHeader struct {
	RequestID uint32
	Status    LocateStatus
}

func (h *LocateReplyHeader) Write(enc *cdr.Encoder) {
	enc.WriteULong(h.RequestID)
	enc.WriteULong(uint32(h.Status))
}

func ReadLocateReplyHeader(dec *cdr.Decoder) (*LocateReplyHeader, error) {
	h := &LocateReplyHeader{}
	var err error
	if h.RequestID, err = dec.ReadULong(); err != nil {
		return nil, err
	}
	status, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	h.Status = LocateStatus(status)
	return h, nil
}

// CancelRequestHeader names the request a client is no longer waiting for.
type CancelRequestHeader struct {
	RequestID uint32
}

func (h *CancelRequestHeader) Write(enc *cdr.Encoder) {
	enc.WriteULong(h.RequestID)
}

func ReadCancelRequestHeader(dec *cdr.Decoder) (*CancelRequestHeader, error) {
	id, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	return &CancelRequestHeader{RequestID: id}, nil
}
