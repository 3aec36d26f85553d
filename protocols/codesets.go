package protocols

import (
	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/codeset"
)

// TagCodeSets is the tagged component id of the code set component.
const TagCodeSets uint32 = 1

// CodeSetContext is the payload of the code set service context: the
// char and wchar sets a client chose for a connection.
type CodeSetContext struct {
	CharSet  codeset.CharSet
	WCharSet codeset.CharSet
}

// ServiceContext encapsulates the context.
func (c CodeSetContext) ServiceContext() ServiceContext {
	encap := cdr.NewEncapsulation(V1_2, false)
	encap.WriteULong(uint32(c.CharSet))
	encap.WriteULong(uint32(c.WCharSet))
	return ServiceContext{ID: ServiceCodeSets, Data: encap.Bytes()}
}

// FindCodeSetContext extracts the code set context from a list.
func FindCodeSetContext(l ServiceContextList) (CodeSetContext, bool, error) {
	sc, ok := l.Get(ServiceCodeSets)
	if !ok {
		return CodeSetContext{}, false, nil
	}
	dec, err := cdr.OpenEncapsulation(sc.Data, V1_2, codeset.Unset, codeset.Unset)
	if err != nil {
		return CodeSetContext{}, false, err
	}
	charSet, err := dec.ReadULong()
	if err != nil {
		return CodeSetContext{}, false, err
	}
	wcharSet, err := dec.ReadULong()
	if err != nil {
		return CodeSetContext{}, false, err
	}
	return CodeSetContext{CharSet: codeset.CharSet(charSet), WCharSet: codeset.CharSet(wcharSet)}, true, nil
}

// CodeSetComponent encodes a code set component as a tagged component.
func CodeSetComponent(c codeset.Component) TaggedComponent {
	encap := cdr.NewEncapsulation(V1_2, false)
	encap.WriteULong(uint32(c.NativeCharSet))
	encap.WriteULongSeq(charSetIDs(c.ConversionCharSets))
	encap.WriteULong(uint32(c.NativeWCharSet))
	encap.WriteULongSeq(charSetIDs(c.ConversionWCharSets))
	return TaggedComponent{Tag: TagCodeSets, Data: encap.Bytes()}
}

// ParseCodeSetComponent decodes the payload of a TAG_CODE_SETS component.
func ParseCodeSetComponent(tc TaggedComponent) (codeset.Component, error) {
	dec, err := cdr.OpenEncapsulation(tc.Data, V1_2, codeset.Unset, codeset.Unset)
	if err != nil {
		return codeset.Component{}, err
	}
	var c codeset.Component
	native, err := dec.ReadULong()
	if err != nil {
		return c, err
	}
	conv, err := dec.ReadULongSeq()
	if err != nil {
		return c, err
	}
	wnative, err := dec.ReadULong()
	if err != nil {
		return c, err
	}
	wconv, err := dec.ReadULongSeq()
	if err != nil {
		return c, err
	}
	c.NativeCharSet = codeset.CharSet(native)
	c.ConversionCharSets = charSets(conv)
	c.NativeWCharSet = codeset.CharSet(wnative)
	c.ConversionWCharSets = charSets(wconv)
	return c, nil
}

func charSetIDs(list []codeset.CharSet) []uint32 {
	ids := make([]uint32, len(list))
	for i, cs := range list {
		ids[i] = uint32(cs)
	}
	return ids
}

func charSets(ids []uint32) []codeset.CharSet {
	if len(ids) == 0 {
		return nil
	}
	list := make([]codeset.CharSet, len(ids))
	for i, id := range ids {
		list[i] = codeset.CharSet(id)
	}
	return list
}
