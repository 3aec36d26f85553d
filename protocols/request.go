package protocols

import (
	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/corba"
)

// Response flags of a GIOP 1.2 request.
const (
	ResponseNone     byte = 0x00
	ResponseExpected byte = 0x03
)

// Target address dispositions of GIOP 1.2. Only KeyAddr is supported.
const (
	KeyAddr       int16 = 0
	ProfileAddr   int16 = 1
	ReferenceAddr int16 = 2
)

func errBadLength() error {
	return corba.NewMarshal(corba.MinorBadLength, corba.CompletedMaybe)
}

// RequestHeader is the version independent view of a request header.
type RequestHeader struct {
	RequestID        uint32
	ResponseExpected bool
	ObjectKey        []byte
	Operation        string
	ServiceContexts  ServiceContextList
}

// Write encodes the header in the layout of the encoder's version.
func (h *RequestHeader) Write(enc *cdr.Encoder) error {
	if enc.Version().Before(V1_2) {
		h.ServiceContexts.Write(enc)
		enc.WriteULong(h.RequestID)
		enc.WriteBool(h.ResponseExpected)
		enc.WriteOctets([]byte{0, 0, 0})
		enc.WriteOctetSeq(h.ObjectKey)
		if err := enc.WriteString(h.Operation); err != nil {
			return err
		}
		// empty requesting principal
		enc.WriteULong(0)
		return nil
	}
	enc.WriteULong(h.RequestID)
	if h.ResponseExpected {
		enc.WriteOctet(ResponseExpected)
	} else {
		enc.WriteOctet(ResponseNone)
	}
	enc.WriteOctets([]byte{0, 0, 0})
	writeTargetAddress(enc, h.ObjectKey)
	if err := enc.WriteString(h.Operation); err != nil {
		return err
	}
	h.ServiceContexts.Write(enc)
	return nil
}

// ReadRequestHeader decodes a request header in the layout of the
// decoder's version. The decoder must be positioned after the message
// header.
func ReadRequestHeader(dec *cdr.Decoder) (*RequestHeader, error) {
	h := &RequestHeader{}
	var err error
	if dec.Version().Before(V1_2) {
		if h.ServiceContexts, err = ReadServiceContextList(dec); err != nil {
			return nil, err
		}
		if h.RequestID, err = dec.ReadULong(); err != nil {
			return nil, err
		}
		flags, err := dec.ReadOctet()
		if err != nil {
			return nil, err
		}
		h.ResponseExpected = flags != 0
		if h.ObjectKey, err = dec.ReadOctetSeq(); err != nil {
			return nil, err
		}
		if h.Operation, err = dec.ReadString(); err != nil {
			return nil, err
		}
		if _, err = dec.ReadOctetSeq(); err != nil {
			return nil, err
		}
		return h, nil
	}
	if h.RequestID, err = dec.ReadULong(); err != nil {
		return nil, err
	}
	flags, err := dec.ReadOctet()
	if err != nil {
		return nil, err
	}
	h.ResponseExpected = flags&0x01 != 0
	if err = dec.Skip(3); err != nil {
		return nil, err
	}
	if h.ObjectKey, err = readTargetAddress(dec); err != nil {
		return h, err
	}
	if h.Operation, err = dec.ReadString(); err != nil {
		return h, err
	}
	if h.ServiceContexts, err = ReadServiceContextList(dec); err != nil {
		return h, err
	}
	return h, nil
}

func writeTargetAddress(enc *cdr.Encoder, key []byte) {
	enc.WriteShort(KeyAddr)
	enc.WriteOctetSeq(key)
}

func readTargetAddress(dec *cdr.Decoder) ([]byte, error) {
	disposition, err := dec.ReadShort()
	if err != nil {
		return nil, err
	}
	if disposition != KeyAddr {
		return nil, corba.NewBadParam(corba.MinorUnknownTargetAddress, corba.CompletedNo)
	}
	return dec.ReadOctetSeq()
}
