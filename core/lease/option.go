package lease

import "strings"

const (
	// PlaceholderOption is used instead of an option string that has not
	// been passed by the DHCP server
	PlaceholderOption = "??"

	// ISCSIHostname is the option string (and hostname) reserved for the
	// iSCSI target host
	ISCSIHostname = "iSCSI"

	// ISCSILocation is the location code assigned to the iSCSI target host
	ISCSILocation = ".0.0.0"

	// locationPrefix is prepended to every location derived from an option
	// string
	locationPrefix = ".1"

	optionSeparator = "_"
)

// Derive returns the hostname and location encoded in option. The reserved
// option "iSCSI" maps to the iSCSI host identity. Any other option is split
// on "_": the first segment is the hostname and the second one, if present,
// is turned into a location by dropping its first and its last two bytes and
// prefixing the remainder with ".1".
func Derive(option string) (hostname, location string) {
	if option == ISCSIHostname {
		return ISCSIHostname, ISCSILocation
	}

	segments := strings.Split(option, optionSeparator)
	hostname = segments[0]
	if len(segments) > 1 {
		location = locationPrefix + trimLocationSegment(segments[1])
	}

	return hostname, location
}

// trimLocationSegment drops the first byte and the last two bytes of s.
// Segments too short to keep anything yield an empty string.
func trimLocationSegment(s string) string {
	if len(s) <= 3 {
		return ""
	}
	return s[1 : len(s)-2]
}
