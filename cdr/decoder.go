package cdr

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/brodyxchen/giop/codeset"
	"github.com/brodyxchen/giop/corba"
)

// Decoder reads CDR values from a byte slice. Like the Encoder, alignment
// is relative to the first byte of the slice.
type Decoder struct {
	buf          []byte
	pos          int
	order        binary.ByteOrder
	littleEndian bool
	version      Version

	charSet  codeset.CharSet
	wcharSet codeset.CharSet
}

// NewDecoder returns a decoder positioned at the start of buf.
func NewDecoder(buf []byte, version Version, littleEndian bool) *Decoder {
	return &Decoder{
		buf:          buf,
		order:        orderOf(littleEndian),
		littleEndian: littleEndian,
		version:      version,
		charSet:      codeset.DefaultCharSet,
	}
}

func errReadPastEnd() error {
	return corba.NewMarshal(corba.MinorReadPastEnd, corba.CompletedMaybe)
}

func errBadLength() error {
	return corba.NewMarshal(corba.MinorBadLength, corba.CompletedMaybe)
}

// SetCodeSets installs the negotiated sets. An Unset char set keeps the
// default.
func (d *Decoder) SetCodeSets(charSet, wcharSet codeset.CharSet) {
	if charSet != codeset.Unset {
		d.charSet = charSet
	}
	d.wcharSet = wcharSet
}

func (d *Decoder) CodeSets() (codeset.CharSet, codeset.CharSet) {
	return d.charSet, d.wcharSet
}

func (d *Decoder) Version() Version {
	return d.version
}

func (d *Decoder) LittleEndian() bool {
	return d.littleEndian
}

// Offset returns the current read position.
func (d *Decoder) Offset() int {
	return d.pos
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// Skip advances the read position by n bytes.
func (d *Decoder) Skip(n int) error {
	_, err := d.next(n)
	return err
}

// SkipRest consumes every unread byte.
func (d *Decoder) SkipRest() {
	d.pos = len(d.buf)
}

// Rest returns the unread bytes without consuming them.
func (d *Decoder) Rest() []byte {
	return d.buf[d.pos:]
}

func (d *Decoder) next(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, errReadPastEnd()
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) padding(n int) int {
	if r := d.pos % n; r != 0 {
		return n - r
	}
	return 0
}

// Align skips the padding up to a multiple of n.
func (d *Decoder) Align(n int) error {
	return d.Skip(d.padding(n))
}

// TryAlign aligns only if there is anything left to read. A sender may
// omit the padding in front of an empty body.
func (d *Decoder) TryAlign(n int) error {
	if d.Remaining() == 0 {
		return nil
	}
	return d.Align(n)
}

func (d *Decoder) ReadOctet() (byte, error) {
	b, err := d.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadOctet()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, corba.NewBadParam(corba.MinorBadBoolean, corba.CompletedMaybe)
}

func (d *Decoder) ReadUShort() (uint16, error) {
	if err := d.Align(2); err != nil {
		return 0, err
	}
	b, err := d.next(2)
	if err != nil {
		return 0, err
	}
	return d.order.Uint16(b), nil
}

func (d *Decoder) ReadShort() (int16, error) {
	v, err := d.ReadUShort()
	return int16(v), err
}

func (d *Decoder) ReadULong() (uint32, error) {
	if err := d.Align(4); err != nil {
		return 0, err
	}
	b, err := d.next(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

func (d *Decoder) ReadLong() (int32, error) {
	v, err := d.ReadULong()
	return int32(v), err
}

func (d *Decoder) ReadULongLong() (uint64, error) {
	if err := d.Align(8); err != nil {
		return 0, err
	}
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return d.order.Uint64(b), nil
}

func (d *Decoder) ReadLongLong() (int64, error) {
	v, err := d.ReadULongLong()
	return int64(v), err
}

func (d *Decoder) ReadFloat() (float32, error) {
	v, err := d.ReadULong()
	return math.Float32frombits(v), err
}

func (d *Decoder) ReadDouble() (float64, error) {
	v, err := d.ReadULongLong()
	return math.Float64frombits(v), err
}

// ReadOctets reads n raw bytes. The result is a copy.
func (d *Decoder) ReadOctets(n int) ([]byte, error) {
	b, err := d.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadOctetSeq reads a ulong length followed by that many bytes.
func (d *Decoder) ReadOctetSeq() ([]byte, error) {
	n, err := d.ReadULong()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(d.Remaining()) {
		return nil, errBadLength()
	}
	return d.ReadOctets(int(n))
}

func (d *Decoder) ReadULongSeq() ([]uint32, error) {
	n, err := d.ReadULong()
	if err != nil {
		return nil, err
	}
	// each element needs at least four bytes
	if int64(n)*4 > int64(d.Remaining()) {
		return nil, errBadLength()
	}
	list := make([]uint32, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := d.ReadULong()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

// ReadEncapsulation reads an encapsulation and returns a decoder over its
// content, positioned after the byte order flag. The inner decoder keeps
// the code sets of d.
func (d *Decoder) ReadEncapsulation() (*Decoder, error) {
	data, err := d.ReadOctetSeq()
	if err != nil {
		return nil, err
	}
	return OpenEncapsulation(data, d.version, d.charSet, d.wcharSet)
}

// OpenEncapsulation returns a decoder over an encapsulation body, using
// the byte order named by its first octet.
func OpenEncapsulation(data []byte, version Version, charSet, wcharSet codeset.CharSet) (*Decoder, error) {
	if len(data) == 0 {
		return nil, errBadLength()
	}
	inner := NewDecoder(data, version, data[0]&0x01 == 0x01)
	inner.pos = 1
	inner.SetCodeSets(charSet, wcharSet)
	return inner, nil
}

func (d *Decoder) ReadChar() (rune, error) {
	v, err := d.ReadOctet()
	if err != nil {
		return 0, err
	}
	if !d.charSet.ValidRune(rune(v)) {
		return 0, corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe)
	}
	return rune(v), nil
}

// ReadString reads a NUL terminated string. A zero length is tolerated
// and read as the empty string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadULong()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if int64(n) > int64(d.Remaining()) {
		return "", errBadLength()
	}
	b, err := d.next(int(n))
	if err != nil {
		return "", err
	}
	if b[n-1] != 0 {
		return "", errBadLength()
	}
	enc, err := d.charSet.Encoding()
	if err != nil {
		return "", corba.NewBadParam(corba.MinorCharSetUndefined, corba.CompletedMaybe).WithCause(err)
	}
	s, err := enc.NewDecoder().Bytes(b[:n-1])
	if err != nil {
		return "", corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe).WithCause(err)
	}
	return string(s), nil
}

func (d *Decoder) ReadWChar() (rune, error) {
	if d.wcharSet == codeset.Unset {
		return 0, corba.NewBadParam(corba.MinorWCharSetUndefined, corba.CompletedMaybe)
	}
	if d.version.Before(V1_2) {
		v, err := d.ReadUShort()
		return rune(v), err
	}
	n, err := d.ReadOctet()
	if err != nil {
		return 0, err
	}
	b, err := d.next(int(n))
	if err != nil {
		return 0, err
	}
	s, err := d.decodeWide(b, false)
	if err != nil {
		return 0, err
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, errBadLength()
	}
	return r[0], nil
}

// ReadWString reads a wide string in the layout of the stream version.
func (d *Decoder) ReadWString() (string, error) {
	if d.wcharSet == codeset.Unset {
		return "", corba.NewBadParam(corba.MinorWCharSetUndefined, corba.CompletedMaybe)
	}
	n, err := d.ReadULong()
	if err != nil {
		return "", err
	}
	if d.version.Before(V1_2) {
		if int64(n)*2 > int64(d.Remaining()) {
			return "", errBadLength()
		}
		b, err := d.next(int(n) * 2)
		if err != nil {
			return "", err
		}
		s, err := d.decodeWide(b, d.littleEndian)
		if err != nil {
			return "", err
		}
		return strings.TrimSuffix(s, "\x00"), nil
	}
	if n%2 != 0 || int64(n) > int64(d.Remaining()) {
		return "", errBadLength()
	}
	b, err := d.next(int(n))
	if err != nil {
		return "", err
	}
	return d.decodeWide(b, false)
}

// decodeWide honours a leading byte order mark in GIOP 1.2 data.
func (d *Decoder) decodeWide(b []byte, littleEndian bool) (string, error) {
	enc := codeset.WideEncoding(littleEndian)
	if !d.version.Before(V1_2) {
		var err error
		if enc, err = d.wcharSet.Encoding(); err != nil {
			return "", corba.NewBadParam(corba.MinorWCharSetUndefined, corba.CompletedMaybe).WithCause(err)
		}
	}
	s, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", corba.NewSystemException(corba.DataConversion, corba.MinorCharConversion, corba.CompletedMaybe).WithCause(err)
	}
	return string(s), nil
}
