package protocols

import (
	"github.com/juju/loggo/v2"

	"github.com/brodyxchen/giop/cdr"
)

var logger = loggo.GetLogger("giop.protocols")

// Well known service context ids.
const (
	ServiceTransaction    uint32 = 0
	ServiceCodeSets       uint32 = 1
	ServiceBiDirIIOP      uint32 = 5
	ServiceSendingContext uint32 = 6
)

// ServiceContext is an (id, opaque payload) pair carried by requests
// and replies.
type ServiceContext struct {
	ID   uint32
	Data []byte
}

// ServiceContextList keeps at most one context per id.
type ServiceContextList []ServiceContext

// Get returns the context with the given id.
func (l ServiceContextList) Get(id uint32) (ServiceContext, bool) {
	for _, sc := range l {
		if sc.ID == id {
			return sc, true
		}
	}
	return ServiceContext{}, false
}

func (l ServiceContextList) Contains(id uint32) bool {
	_, ok := l.Get(id)
	return ok
}

// Add appends sc unless a context with the same id is present. It
// reports whether sc was added.
func (l *ServiceContextList) Add(sc ServiceContext) bool {
	if l.Contains(sc.ID) {
		return false
	}
	*l = append(*l, sc)
	return true
}

// Set adds sc, replacing any context with the same id.
func (l *ServiceContextList) Set(sc ServiceContext) {
	for i, v := range *l {
		if v.ID == sc.ID {
			(*l)[i] = sc
			return
		}
	}
	*l = append(*l, sc)
}

// Write encodes the list as a sequence of contexts.
func (l ServiceContextList) Write(enc *cdr.Encoder) {
	enc.WriteULong(uint32(len(l)))
	for _, sc := range l {
		enc.WriteULong(sc.ID)
		enc.WriteOctetSeq(sc.Data)
	}
}

// ReadServiceContextList decodes a context sequence. When an id occurs
// more than once the first entry is kept and the others are dropped.
func ReadServiceContextList(dec *cdr.Decoder) (ServiceContextList, error) {
	n, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	// id and length need eight bytes per entry
	if int64(n)*8 > int64(dec.Remaining()) {
		return nil, errBadLength()
	}
	list := make(ServiceContextList, 0, n)
	for i := uint32(0); i < n; i++ {
		id, err := dec.ReadULong()
		if err != nil {
			return nil, err
		}
		data, err := dec.ReadOctetSeq()
		if err != nil {
			return nil, err
		}
		if !list.Add(ServiceContext{ID: id, Data: data}) {
			logger.Warningf("dropping duplicate service context %d", id)
		}
	}
	return list, nil
}
