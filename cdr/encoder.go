// Package cdr implements the Common Data Representation used for GIOP
// message bodies: aligned primitives in a per-stream byte order, strings
// transcoded through a negotiated char set and encapsulations.
package cdr

import (
	"encoding/binary"
	"math"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/corba"
)

// Encoder appends CDR values to a buffer. Alignment is computed from the
// first byte of the buffer, so a message encoder must start with the
// GIOP header bytes.
type Encoder struct {
	buf          []byte
	order        byteOrder
	littleEndian bool
	version      Version

	charSet  codeset.CharSet
	wcharSet codeset.CharSet
}

// NewEncoder returns an empty encoder. The char set defaults to Latin-1
// and no wchar set is installed.
func NewEncoder(version Version, littleEndian bool) *Encoder {
	e := &Encoder{
		buf:          make([]byte, 0, 256),
		littleEndian: littleEndian,
		version:      version,
		charSet:      codeset.DefaultCharSet,
	}
	e.order = orderOf(littleEndian)
	return e
}

// NewEncapsulation returns an encoder for an encapsulation body. The byte
// order flag octet is written first and counts for alignment.
func NewEncapsulation(version Version, littleEndian bool) *Encoder {
	e := NewEncoder(version, littleEndian)
	e.WriteBool(littleEndian)
	return e
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func orderOf(littleEndian bool) byteOrder {
	if littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// SetCodeSets installs the negotiated sets. An Unset char set keeps the
// default.
func (e *Encoder) SetCodeSets(charSet, wcharSet codeset.CharSet) {
	if charSet != codeset.Unset {
		e.charSet = charSet
	}
	e.wcharSet = wcharSet
}

func (e *Encoder) CodeSets() (codeset.CharSet, codeset.CharSet) {
	return e.charSet, e.wcharSet
}

func (e *Encoder) Version() Version {
	return e.version
}

func (e *Encoder) LittleEndian() bool {
	return e.littleEndian
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Bytes returns the encoded bytes. The slice aliases the encoder buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Truncate discards everything after the first n bytes.
func (e *Encoder) Truncate(n int) {
	if n < len(e.buf) {
		e.buf = e.buf[:n]
	}
}

// Align pads with zero octets up to a multiple of n.
func (e *Encoder) Align(n int) {
	for len(e.buf)%n != 0 {
		e.buf = append(e.buf, 0)
	}
}

// PutULongAt overwrites four bytes at off, used to patch lengths.
func (e *Encoder) PutULongAt(off int, v uint32) {
	e.order.PutUint32(e.buf[off:], v)
}

func (e *Encoder) WriteOctet(v byte) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

func (e *Encoder) WriteUShort(v uint16) {
	e.Align(2)
	e.buf = e.order.AppendUint16(e.buf, v)
}

func (e *Encoder) WriteShort(v int16) {
	e.WriteUShort(uint16(v))
}

func (e *Encoder) WriteULong(v uint32) {
	e.Align(4)
	e.buf = e.order.AppendUint32(e.buf, v)
}

func (e *Encoder) WriteLong(v int32) {
	e.WriteULong(uint32(v))
}

func (e *Encoder) WriteULongLong(v uint64) {
	e.Align(8)
	e.buf = e.order.AppendUint64(e.buf, v)
}

func (e *Encoder) WriteLongLong(v int64) {
	e.WriteULongLong(uint64(v))
}

func (e *Encoder) WriteFloat(v float32) {
	e.WriteULong(math.Float32bits(v))
}

func (e *Encoder) WriteDouble(v float64) {
	e.WriteULongLong(math.Float64bits(v))
}

// WriteOctets appends raw bytes without a length prefix.
func (e *Encoder) WriteOctets(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteOctetSeq writes a ulong length followed by the bytes.
func (e *Encoder) WriteOctetSeq(b []byte) {
	e.WriteULong(uint32(len(b)))
	e.WriteOctets(b)
}

func (e *Encoder) WriteULongSeq(list []uint32) {
	e.WriteULong(uint32(len(list)))
	for _, v := range list {
		e.WriteULong(v)
	}
}

// WriteEncapsulation writes the body of an encapsulation encoder as an
// octet sequence.
func (e *Encoder) WriteEncapsulation(encap *Encoder) {
	e.WriteOctetSeq(encap.Bytes())
}

// WriteChar writes one char of the negotiated char set.
func (e *Encoder) WriteChar(r rune) error {
	if !e.charSet.ValidRune(r) {
		return corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe)
	}
	e.WriteOctet(byte(r))
	return nil
}

// WriteString writes a NUL terminated string transcoded to the char set.
func (e *Encoder) WriteString(s string) error {
	b, err := encodeChars(e.charSet, s)
	if err != nil {
		return err
	}
	e.WriteULong(uint32(len(b) + 1))
	e.WriteOctets(b)
	e.WriteOctet(0)
	return nil
}

// WriteWChar writes one wide char. GIOP 1.2 prefixes the encoded bytes
// with an octet count, older versions write an aligned 2 byte unit.
func (e *Encoder) WriteWChar(r rune) error {
	if e.wcharSet == codeset.Unset {
		return corba.NewBadParam(corba.MinorWCharSetUndefined, corba.CompletedMaybe)
	}
	if !e.wcharSet.ValidRune(r) {
		return corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe)
	}
	if e.version.Before(V1_2) {
		e.WriteUShort(uint16(r))
		return nil
	}
	e.WriteOctet(2)
	e.buf = binary.BigEndian.AppendUint16(e.buf, uint16(r))
	return nil
}

// WriteWString writes a wide string. GIOP 1.2 uses an octet count without
// terminator; older versions count 2 byte units including a zero unit.
func (e *Encoder) WriteWString(s string) error {
	if e.wcharSet == codeset.Unset {
		return corba.NewBadParam(corba.MinorWCharSetUndefined, corba.CompletedMaybe)
	}
	if e.wcharSet == codeset.UCS2 {
		for _, r := range s {
			if !codeset.UCS2.ValidRune(r) {
				return corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe)
			}
		}
	}
	if e.version.Before(V1_2) {
		b, err := codeset.WideEncoding(e.littleEndian).NewEncoder().Bytes([]byte(s))
		if err != nil {
			return corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe).WithCause(err)
		}
		e.WriteULong(uint32(len(b)/2 + 1))
		e.WriteOctets(b)
		e.WriteUShort(0)
		return nil
	}
	b, err := codeset.WideEncoding(false).NewEncoder().Bytes([]byte(s))
	if err != nil {
		return corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe).WithCause(err)
	}
	e.WriteOctetSeq(b)
	return nil
}

func encodeChars(cs codeset.CharSet, s string) ([]byte, error) {
	enc, err := cs.Encoding()
	if err != nil {
		return nil, corba.NewBadParam(corba.MinorCharSetUndefined, corba.CompletedMaybe).WithCause(err)
	}
	b, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe).WithCause(err)
	}
	if cs == codeset.ISO646 {
		for _, c := range b {
			if c > 0x7f {
				return nil, corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe)
			}
		}
	}
	return b, nil
}
