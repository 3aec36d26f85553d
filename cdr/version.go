package cdr

import "fmt"

// Version is a GIOP protocol version. It drives the wide character
// rules of a stream.
type Version struct {
	Major uint8
	Minor uint8
}

var (
	V1_0 = Version{Major: 1, Minor: 0}
	V1_1 = Version{Major: 1, Minor: 1}
	V1_2 = Version{Major: 1, Minor: 2}
)

// Before reports whether v is older than o.
func (v Version) Before(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
