package wire

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// EncodeAddr formats an endpoint for the PORT command.
// Converts 192.168.1.100:50000 to "192,168,1,100,195,80".
func EncodeAddr(ap netip.AddrPort) (string, error) {
	addr := ap.Addr().Unmap()
	if !addr.Is4() {
		return "", fmt.Errorf("%w: PORT requires an IPv4 address, got %s", ErrBadAddressEncoding, ap.Addr())
	}

	ip := addr.As4()
	port := ap.Port()
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", ip[0], ip[1], ip[2], ip[3], port>>8, port&0xff), nil
}

// DecodeAddr parses a PORT argument of the form h1,h2,h3,h4,p1,p2.
func DecodeAddr(s string) (netip.AddrPort, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return netip.AddrPort{}, fmt.Errorf("%w: want 6 fields, got %d in %q", ErrBadAddressEncoding, len(parts), s)
	}

	var b [6]byte
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return netip.AddrPort{}, fmt.Errorf("%w: field %d of %q", ErrBadAddressEncoding, i+1, s)
		}
		b[i] = byte(v)
	}

	addr := netip.AddrFrom4([4]byte{b[0], b[1], b[2], b[3]})
	port := uint16(b[4])<<8 | uint16(b[5])
	return netip.AddrPortFrom(addr, port), nil
}
