package protocols

import (
	"github.com/brodyxchen/giop/cdr"
)

// MessageWriter encodes a complete GIOP message. The header is reserved
// up front and its length patched by Finish, so body alignment is
// relative to the message start.
type MessageWriter struct {
	*cdr.Encoder
	header Header
}

// NewMessage starts a message of type t.
func NewMessage(v Version, t MsgType, littleEndian bool) *MessageWriter {
	enc := cdr.NewEncoder(v, littleEndian)
	enc.WriteOctets(make([]byte, HeaderSize))
	return &MessageWriter{
		Encoder: enc,
		header:  NewHeader(v, t, littleEndian),
	}
}

// Header returns the header as it will be written.
func (m *MessageWriter) Header() Header {
	h := m.header
	h.Length = uint32(m.Len() - HeaderSize)
	return h
}

// Finish writes the header with the final body length and returns the
// whole message.
func (m *MessageWriter) Finish() []byte {
	b := m.Bytes()
	m.Header().Put(b)
	return b
}

// AlignBody pads to 8 in front of a GIOP 1.2 body. It returns the length
// before padding so an empty body can drop it again with TrimEmptyBody.
func AlignBody(enc *cdr.Encoder) int {
	mark := enc.Len()
	if !enc.Version().Before(V1_2) {
		enc.Align(8)
	}
	return mark
}

// TrimEmptyBody removes the body padding if nothing was written after it.
func TrimEmptyBody(enc *cdr.Encoder, mark int) {
	if enc.Version().Before(V1_2) {
		return
	}
	if padded := (mark + 7) &^ 7; enc.Len() == padded {
		enc.Truncate(mark)
	}
}

// TryAlignBody skips body padding of a GIOP 1.2 message if present.
func TryAlignBody(dec *cdr.Decoder) error {
	if dec.Version().Before(V1_2) {
		return nil
	}
	return dec.TryAlign(8)
}

// NewMessageDecoder returns a decoder over a complete message, positioned
// after the header.
func NewMessageDecoder(h Header, msg []byte) (*cdr.Decoder, error) {
	dec := cdr.NewDecoder(msg, h.Version, h.LittleEndian())
	if err := dec.Skip(HeaderSize); err != nil {
		return nil, err
	}
	return dec, nil
}

// NewBodylessMessage encodes CloseConnection and MessageError messages.
func NewBodylessMessage(v Version, t MsgType) []byte {
	return NewHeader(v, t, false).Marshal()
}
