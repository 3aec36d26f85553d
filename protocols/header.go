package protocols

import (
	"encoding/binary"
	"fmt"

	"github.com/brodyxchen/giop/corba"
)

const (
	HeaderSize = 12

	FlagLittleEndian byte = 0x01
	FlagFragment     byte = 0x02
)

var Magic = [4]byte{'G', 'I', 'O', 'P'}

// MsgType is the GIOP message type octet.
type MsgType uint8

const (
	MsgRequest MsgType = iota
	MsgReply
	MsgCancelRequest
	MsgLocateRequest
	MsgLocateReply
	MsgCloseConnection
	MsgMessageError
	MsgFragment
)

var msgTypeNames = [...]string{
	MsgRequest:         "Request",
	MsgReply:           "Reply",
	MsgCancelRequest:   "CancelRequest",
	MsgLocateRequest:   "LocateRequest",
	MsgLocateReply:     "LocateReply",
	MsgCloseConnection: "CloseConnection",
	MsgMessageError:    "MessageError",
	MsgFragment:        "Fragment",
}

func (t MsgType) String() string {
	if int(t) < len(msgTypeNames) {
		return msgTypeNames[t]
	}
	return fmt.Sprintf("MsgType(%d)", uint8(t))
}

// Header is the fixed 12 byte preamble of every GIOP message.
type Header struct {
	Version Version
	Flags   byte
	Type    MsgType
	Length  uint32
}

// NewHeader returns a header in the given byte order with no length.
func NewHeader(v Version, t MsgType, littleEndian bool) Header {
	h := Header{Version: v, Type: t}
	if littleEndian {
		h.Flags |= FlagLittleEndian
	}
	return h
}

func (h Header) LittleEndian() bool {
	return h.Flags&FlagLittleEndian != 0
}

// MoreFragments reports whether further Fragment messages follow.
func (h Header) MoreFragments() bool {
	return h.Flags&FlagFragment != 0
}

func (h Header) byteOrder() binary.ByteOrder {
	if h.LittleEndian() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Put writes the header into the first HeaderSize bytes of b.
func (h Header) Put(b []byte) {
	copy(b[:4], Magic[:])
	b[4] = h.Version.Major
	b[5] = h.Version.Minor
	b[6] = h.Flags
	b[7] = byte(h.Type)
	h.byteOrder().PutUint32(b[8:12], h.Length)
}

// Marshal returns the 12 header bytes.
func (h Header) Marshal() []byte {
	b := make([]byte, HeaderSize)
	h.Put(b)
	return b
}

func (h Header) String() string {
	return fmt.Sprintf("GIOP %v %v flags=0x%02x length=%d", h.Version, h.Type, h.Flags, h.Length)
}

// ParseHeader validates and decodes a header. Errors are framing errors
// and fatal to the connection.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, corba.NewMarshal(corba.MinorReadPastEnd, corba.CompletedNo)
	}
	if b[0] != Magic[0] || b[1] != Magic[1] || b[2] != Magic[2] || b[3] != Magic[3] {
		return Header{}, corba.NewMarshal(corba.MinorBadMagic, corba.CompletedNo)
	}
	h := Header{
		Version: Version{Major: b[4], Minor: b[5]},
		Flags:   b[6],
		Type:    MsgType(b[7]),
	}
	if !Supported(h.Version) {
		return Header{}, corba.NewMarshal(corba.MinorBadVersion, corba.CompletedNo)
	}
	if h.Type > MsgFragment {
		return Header{}, corba.NewMarshal(corba.MinorBadMessageType, corba.CompletedNo)
	}
	h.Length = h.byteOrder().Uint32(b[8:12])
	return h, nil
}
