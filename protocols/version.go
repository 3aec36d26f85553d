// Package protocols defines the GIOP wire structures: the message header,
// request, reply and locate headers, service contexts and tagged
// components.
package protocols

import "github.com/brodyxchen/giop/cdr"

// Version is a GIOP version. Only major version 1 exists.
type Version = cdr.Version

var (
	V1_0 = cdr.V1_0
	V1_1 = cdr.V1_1
	V1_2 = cdr.V1_2

	// MaxVersion is the newest version spoken by this engine.
	MaxVersion = cdr.V1_2
)

// Supported reports whether v can be read and written.
func Supported(v Version) bool {
	return v.Major == 1 && v.Minor <= MaxVersion.Minor
}
