package protocols

import "github.com/brodyxchen/giop/cdr"

// Tagged component ids carried in IIOP profiles.
const (
	TagORBType       uint32 = 0
	TagAlternateIIOP uint32 = 3
	TagSSLSecTrans   uint32 = 20
)

// TaggedComponent is an (id, opaque payload) pair attached to an object
// reference profile. Components other than the code set component are
// carried without interpretation.
type TaggedComponent struct {
	Tag  uint32
	Data []byte
}

type TaggedComponents []TaggedComponent

// Get returns the first component with the given tag.
func (l TaggedComponents) Get(tag uint32) (TaggedComponent, bool) {
	for _, tc := range l {
		if tc.Tag == tag {
			return tc, true
		}
	}
	return TaggedComponent{}, false
}

func (l TaggedComponents) Write(enc *cdr.Encoder) {
	enc.WriteULong(uint32(len(l)))
	for _, tc := range l {
		enc.WriteULong(tc.Tag)
		enc.WriteOctetSeq(tc.Data)
	}
}

func ReadTaggedComponents(dec *cdr.Decoder) (TaggedComponents, error) {
	n, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	if int64(n)*8 > int64(dec.Remaining()) {
		return nil, errBadLength()
	}
	list := make(TaggedComponents, 0, n)
	for i := uint32(0); i < n; i++ {
		tag, err := dec.ReadULong()
		if err != nil {
			return nil, err
		}
		data, err := dec.ReadOctetSeq()
		if err != nil {
			return nil, err
		}
		list = append(list, TaggedComponent{Tag: tag, Data: data})
	}
	return list, nil
}
