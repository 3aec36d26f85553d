package protocols

import (
	"github.com/brodyxchen/giop/cdr"
	"github.com/brodyxchen/giop/corba"
)

// WriteSystemException encodes a system exception body: repository id,
// minor code and completion status.
func WriteSystemException(enc *cdr.Encoder, e *corba.SystemException) error {
	if err := enc.WriteString(e.RepositoryID()); err != nil {
		return err
	}
	enc.WriteULong(e.Minor)
	enc.WriteULong(uint32(e.Completed))
	return nil
}

// ReadSystemException decodes a system exception body. Unknown
// repository ids are reported as UNKNOWN with the transmitted minor code.
func ReadSystemException(dec *cdr.Decoder) (*corba.SystemException, error) {
	id, err := dec.ReadString()
	if err != nil {
		return nil, err
	}
	minor, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	completed, err := dec.ReadULong()
	if err != nil {
		return nil, err
	}
	kind, ok := corba.KindFromRepositoryID(id)
	if !ok {
		logger.Debugf("unknown system exception %q", id)
	}
	return corba.NewSystemException(kind, minor, corba.CompletionStatus(completed)), nil
}
