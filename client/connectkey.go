package client

import (
	"strconv"

	"github.com/brodyxchen/giop/corba"
	"github.com/brodyxchen/giop/models"
)

// connectKey identifies an endpoint in the pool.
type connectKey struct {
	Network string
	Uri     string
	Port    uint32
}

func errMissingEndpoint() error {
	return corba.NewBadParam(corba.MinorMissingEndpoint, corba.CompletedMaybe)
}

// keyOf returns the pool key of addr. An address that names no endpoint
// is a BAD_PARAM.
func keyOf(addr models.Addr) (connectKey, error) {
	switch ad := addr.(type) {
	case *models.VSockAddr:
		if ad != nil {
			return connectKey{Network: ad.Network(), Uri: strconv.FormatUint(uint64(ad.ContextId), 10), Port: ad.Port}, nil
		}
	case *models.IIOPAddr:
		if ad != nil && ad.Host != "" {
			return connectKey{Network: ad.Network(), Uri: ad.Host, Port: uint32(ad.Port)}, nil
		}
	}
	return connectKey{}, errMissingEndpoint()
}

func (ck connectKey) String() string {
	return ck.Network + "://" + ck.Uri + ":" + strconv.FormatUint(uint64(ck.Port), 10)
}
