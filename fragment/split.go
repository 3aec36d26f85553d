package fragment

import (
	"github.com/juju/errors"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/protocols"
)

// Split cuts a complete message into a first message and Fragment
// messages, none longer than maxSize bytes. Every part but the last
// carries a multiple of 8 payload bytes. GIOP 1.2 fragments repeat the
// request id of the first message. A message that fits is returned as is.
func Split(msg []byte, maxSize int) ([][]byte, error) {
	h, err := protocols.ParseHeader(msg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(msg) <= maxSize {
		return [][]byte{msg}, nil
	}
	if h.Version == protocols.V1_0 {
		return nil, errors.Trace(corba.ErrFragmentNotAllowed)
	}
	if !fragmentable(h.Type) {
		return nil, errors.Annotatef(corba.ErrIllegalFragment, "%v can not be fragmented", h.Type)
	}
	body := msg[protocols.HeaderSize:]

	var requestID []byte
	overhead := protocols.HeaderSize
	if h.Version == protocols.V1_2 {
		requestID = body[:4]
		overhead += 4
	}
	first := (maxSize - protocols.HeaderSize) &^ 7
	room := (maxSize - overhead) &^ 7
	if first < 8 || room < 8 {
		return nil, errors.NotValidf("fragment size %d", maxSize)
	}

	head := h
	head.Flags |= protocols.FlagFragment
	head.Length = uint32(first)
	part := make([]byte, protocols.HeaderSize+first)
	head.Put(part)
	copy(part[protocols.HeaderSize:], body[:first])
	parts := [][]byte{part}

	for rest := body[first:]; len(rest) > 0; {
		n := min(room, len(rest))
		fh := protocols.NewHeader(h.Version, protocols.MsgFragment, h.LittleEndian())
		if n < len(rest) {
			fh.Flags |= protocols.FlagFragment
		}
		fh.Length = uint32(len(requestID) + n)
		part := make([]byte, protocols.HeaderSize, overhead+n)
		fh.Put(part)
		part = append(part, requestID...)
		part = append(part, rest[:n]...)
		parts = append(parts, part)
		rest = rest[n:]
	}
	logger.Tracef("split %v into %d parts", h, len(parts))
	return parts, nil
}
