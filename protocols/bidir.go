package protocols

import (
	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/codeset"
)

// ListenPoint is an endpoint a client accepts callbacks on.
type ListenPoint struct {
	Host string
	Port uint16
}

// BiDirContext is the payload of the BI_DIR_IIOP service context.
type BiDirContext struct {
	ListenPoints []ListenPoint
}

// ServiceContext encapsulates the context.
func (b BiDirContext) ServiceContext() (ServiceContext, error) {
	encap := cdr.NewEncapsulation(V1_2, false)
	encap.WriteULong(uint32(len(b.ListenPoints)))
	for _, lp := range b.ListenPoints {
		if err := encap.WriteString(lp.Host); err != nil {
			return ServiceContext{}, err
		}
		encap.WriteUShort(lp.Port)
	}
	return ServiceContext{ID: ServiceBiDirIIOP, Data: encap.Bytes()}, nil
}

// FindBiDirContext extracts the bidirectional context from a list.
func FindBiDirContext(l ServiceContextList) (BiDirContext, bool, error) {
	sc, ok := l.Get(ServiceBiDirIIOP)
	if !ok {
		return BiDirContext{}, false, nil
	}
	dec, err := cdr.OpenEncapsulation(sc.Data, V1_2, codeset.Unset, codeset.Unset)
	if err != nil {
		return BiDirContext{}, false, err
	}
	n, err := dec.ReadULong()
	if err != nil {
		return BiDirContext{}, false, err
	}
	// a listen point needs at least a string length and a port
	if int64(n)*6 > int64(dec.Remaining()) {
		return BiDirContext{}, false, errBadLength()
	}
	var b BiDirContext
	for i := uint32(0); i < n; i++ {
		host, err := dec.ReadString()
		if err != nil {
			return BiDirContext{}, false, err
		}
		port, err := dec.ReadUShort()
		if err != nil {
			return BiDirContext{}, false, err
		}
		b.ListenPoints = append(b.ListenPoints, ListenPoint{Host: host, Port: port})
	}
	return b, true, nil
}
