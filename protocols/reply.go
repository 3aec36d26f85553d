package protocols

import (
	"fmt"

	"github.com/brodyxchen/giop/cdr"
)

// ReplyStatus is the status field of a reply header.
type ReplyStatus uint32

const (
	ReplyNoException ReplyStatus = iota
	ReplyUserException
	ReplySystemException
	ReplyLocationForward
	ReplyLocationForwardPerm
	ReplyNeedsAddressingMode
)

var replyStatusNames = [...]string{
	ReplyNoException:         "NO_EXCEPTION",
	ReplyUserException:       "USER_EXCEPTION",
	ReplySystemException:     "SYSTEM_EXCEPTION",
	ReplyLocationForward:     "LOCATION_FORWARD",
	ReplyLocationForwardPerm: "LOCATION_FORWARD_PERM",
	ReplyNeedsAddressingMode: "NEEDS_ADDRESSING_MODE",
}

func (s ReplyStatus) String() string {
	if int(s) < len(replyStatusNames) {
		return replyStatusNames[s]
	}
	return fmt.Sprintf("ReplyStatus(%d)", uint32(s))
}

// ReplyHeader is the version independent view of a reply header.
type ReplyHeader struct {
	RequestID       uint32
	Status          ReplyStatus
	ServiceContexts ServiceContextList
}

// Write encodes the header in the layout of the encoder's version.
func (h *ReplyHeader) Write(enc *cdr.Encoder) {
	if enc.Version().Before(V1_2) {
		h.ServiceContexts.Write(enc)
		enc.WriteULong(h.RequestID)
		enc.WriteULong(uint32(h.Status))
		return
	}
	enc.WriteULong(h.RequestID)
	enc.WriteULong(uint32(h.Status))
	h.ServiceContexts.Write(enc)
}

// ReadReplyHeader decodes a reply header positioned after the message
// header.
func ReadReplyHeader(dec *cdr.Decoder) (*ReplyHeader, error) {
	h := &ReplyHeader{}
	var err error
	if dec.Version().Before(V1_2) {
		if h.ServiceContexts, err = ReadServiceContextList(dec); err != nil {
			return nil, err
		}
	}
	if h.RequestID, err = dec.ReadULong(); err != nil {
		return nil, err
	}
	status, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	h.Status = ReplyStatus(status)
	if !dec.Version().Before(V1_2) {
		if h.ServiceContexts, err = ReadServiceContextList(dec); err != nil {
			return nil, err
		}
	}
	return h, nil
}
