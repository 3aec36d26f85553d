package codeset

import (
	"sync"

	"github.com/juju/loggo/v2"

	"github.com/brodyxchen/giop/corba"
)

var logger = loggo.GetLogger("giop.codeset")

// Component is the content of a TAG_CODE_SETS tagged component: the
// native sets of a server plus the sets it can convert from.
type Component struct {
	NativeCharSet       CharSet
	ConversionCharSets  []CharSet
	NativeWCharSet      CharSet
	ConversionWCharSets []CharSet
}

// Choose selects the set to use against a peer. The peer's native set
// wins when it equals localDefault or when this side supports it.
// Otherwise the peer's conversion sets are searched, first for
// localDefault, then for any supported set.
func Choose(native CharSet, conversions []CharSet, localDefault CharSet, supported func(CharSet) bool) (CharSet, bool) {
	if native == localDefault {
		return native, true
	}
	if supported(native) {
		return native, true
	}
	for _, cs := range conversions {
		if cs == localDefault {
			return cs, true
		}
	}
	for _, cs := range conversions {
		if supported(cs) {
			return cs, true
		}
	}
	return Unset, false
}

// Service owns the local default sets. One Service is shared by all
// connections of an ORB.
type Service struct {
	mu         sync.Mutex
	charSet    CharSet
	wcharSet   CharSet
	used       bool
	overridden bool
}

// NewService returns a Service using DefaultCharSet and DefaultWCharSet.
func NewService() *Service {
	return &Service{
		charSet:  DefaultCharSet,
		wcharSet: DefaultWCharSet,
	}
}

// OverrideDefaults replaces the local default sets. It may be called at
// most once and only before the defaults have been used.
func (s *Service) OverrideDefaults(charSet, wcharSet CharSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used || s.overridden {
		return corba.NewBadInvOrder(corba.MinorCodeSetOverride, corba.CompletedNo)
	}
	if !IsCharSetSupported(charSet) || !IsWCharSetSupported(wcharSet) {
		return corba.NewBadParam(corba.MinorCodeSetOverride, corba.CompletedNo)
	}
	s.charSet = charSet
	s.wcharSet = wcharSet
	s.overridden = true
	return nil
}

// Defaults returns the local default char and wchar sets.
func (s *Service) Defaults() (CharSet, CharSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = true
	return s.charSet, s.wcharSet
}

// ChooseCharSet picks the char set to talk to a peer advertising c.
func (s *Service) ChooseCharSet(c Component) (CharSet, error) {
	def, _ := s.Defaults()
	cs, ok := Choose(c.NativeCharSet, c.ConversionCharSets, def, IsCharSetSupported)
	if !ok {
		return Unset, corba.NewSystemException(corba.CodesetIncompatible, corba.MinorCharSetIncompatible, corba.CompletedNo)
	}
	return cs, nil
}

// ChooseWCharSet picks the wchar set to talk to a peer advertising c.
func (s *Service) ChooseWCharSet(c Component) (CharSet, error) {
	_, def := s.Defaults()
	cs, ok := Choose(c.NativeWCharSet, c.ConversionWCharSets, def, IsWCharSetSupported)
	if !ok {
		return Unset, corba.NewSystemException(corba.CodesetIncompatible, corba.MinorWCharSetIncompatible, corba.CompletedNo)
	}
	return cs, nil
}

// Negotiate chooses both sets for a target. A target without a codeset
// component gets the default char set and no wchar set. A component that
// advertises no wchar support at all leaves wchar unset too, so that only
// wide operations fail.
func (s *Service) Negotiate(c *Component) (CharSet, CharSet, error) {
	if c == nil {
		def, _ := s.Defaults()
		return def, Unset, nil
	}
	charSet, err := s.ChooseCharSet(*c)
	if err != nil {
		return Unset, Unset, err
	}
	if c.NativeWCharSet == Unset && len(c.ConversionWCharSets) == 0 {
		logger.Debugf("peer advertises no wchar set, wide operations disabled")
		return charSet, Unset, nil
	}
	wcharSet, err := s.ChooseWCharSet(*c)
	if err != nil {
		return Unset, Unset, err
	}
	return charSet, wcharSet, nil
}

// CheckCompatible validates the sets a client chose for this server.
func (s *Service) CheckCompatible(charSet, wcharSet CharSet) error {
	if !IsCharSetSupported(charSet) {
		return corba.NewSystemException(corba.CodesetIncompatible, corba.MinorCharSetIncompatible, corba.CompletedNo)
	}
	if wcharSet != Unset && !IsWCharSetSupported(wcharSet) {
		return corba.NewSystemException(corba.CodesetIncompatible, corba.MinorWCharSetIncompatible, corba.CompletedNo)
	}
	return nil
}

// NativeComponent describes this side for inclusion in object references:
// the defaults as native sets and every other supported set as a
// conversion set.
func (s *Service) NativeComponent() Component {
	charSet, wcharSet := s.Defaults()
	c := Component{
		NativeCharSet:  charSet,
		NativeWCharSet: wcharSet,
	}
	for _, cs := range supportedCharSets {
		if cs != charSet {
			c.ConversionCharSets = append(c.ConversionCharSets, cs)
		}
	}
	for _, cs := range supportedWCharSets {
		if cs != wcharSet {
			c.ConversionWCharSets = append(c.ConversionWCharSets, cs)
		}
	}
	return c
}
