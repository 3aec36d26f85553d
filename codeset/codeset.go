// Package codeset holds the character set registry used by CDR streams
// and the negotiation rules GIOP peers use to agree on char and wchar
// encodings.
package codeset

import (
	"fmt"

	"github.com/juju/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// CharSet is an OSF character set registry id.
type CharSet uint32

const (
	// Unset marks a char or wchar set that has not been negotiated.
	Unset CharSet = 0

	Latin1 CharSet = 0x00010001
	UTF8   CharSet = 0x05010001
	// ISO646 is the single byte ISO 646 set, compatible with ASCII.
	ISO646 CharSet = 0x00010020

	UTF16 CharSet = 0x00010109
	// UCS2 is ISO 10646 UCS-2 level 1.
	UCS2 CharSet = 0x00010100
)

// DefaultCharSet and DefaultWCharSet are the native sets of this side
// unless a Service overrides them.
const (
	DefaultCharSet  = Latin1
	DefaultWCharSet = UTF16
)

var (
	supportedCharSets  = []CharSet{Latin1, UTF8, ISO646}
	supportedWCharSets = []CharSet{UTF16, UCS2}
)

func (cs CharSet) String() string {
	switch cs {
	case Unset:
		return "unset"
	case Latin1:
		return "ISO-8859-1"
	case UTF8:
		return "UTF-8"
	case ISO646:
		return "ISO-646"
	case UTF16:
		return "UTF-16"
	case UCS2:
		return "UCS-2"
	}
	return fmt.Sprintf("0x%08x", uint32(cs))
}

// ParseCharSet returns the supported char or wchar set with the given
// name, as printed by String.
func ParseCharSet(name string) (CharSet, error) {
	for _, list := range [][]CharSet{supportedCharSets, supportedWCharSets} {
		for _, cs := range list {
			if cs.String() == name {
				return cs, nil
			}
		}
	}
	return Unset, errors.NotSupportedf("code set %q", name)
}

// IsCharSetSupported reports whether cs can be used for char and string.
func IsCharSetSupported(cs CharSet) bool {
	return contains(supportedCharSets, cs)
}

// IsWCharSetSupported reports whether cs can be used for wchar and wstring.
func IsWCharSetSupported(cs CharSet) bool {
	return contains(supportedWCharSets, cs)
}

func contains(list []CharSet, cs CharSet) bool {
	for _, v := range list {
		if v == cs {
			return true
		}
	}
	return false
}

// SingleByte reports whether every char of the set fits in one octet.
func (cs CharSet) SingleByte() bool {
	return cs == Latin1 || cs == ISO646
}

// Encoding returns the transcoder for a char set. Wide sets are returned
// big endian; GIOP 1.0 and 1.1 streams pick their own byte order through
// WideEncoding.
func (cs CharSet) Encoding() (encoding.Encoding, error) {
	switch cs {
	case Latin1, ISO646:
		return charmap.ISO8859_1, nil
	case UTF8:
		return unicode.UTF8, nil
	case UTF16, UCS2:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	}
	return nil, errors.NotSupportedf("code set %v", cs)
}

// WideEncoding returns a BOM-less UTF-16 transcoder in the given order.
func WideEncoding(littleEndian bool) encoding.Encoding {
	if littleEndian {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
}

// ValidRune reports whether r can be carried by the set as one char.
func (cs CharSet) ValidRune(r rune) bool {
	switch cs {
	case Latin1:
		return r >= 0 && r <= 0xff
	case ISO646:
		return r >= 0 && r <= 0x7f
	case UTF8:
		// a CDR char is one octet, multi-byte sequences need a string
		return r >= 0 && r <= 0x7f
	case UTF16:
		return r >= 0 && r <= 0xffff && (r < 0xd800 || r > 0xdfff)
	case UCS2:
		return r >= 0 && r <= 0xffff && (r < 0xd800 || r > 0xdfff)
	}
	return false
}
