package policy

import (
	"fmt"
	"net/netip"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/idna"

	"github.com/median-kliniken/kannader/pkg/wire"
)

// HostnameKind discriminates the Hostname union. The numeric values are the
// wire discriminants and must not be reordered.
type HostnameKind uint32

const (
	// HostUTF8Domain is an internationalized domain name.
	HostUTF8Domain HostnameKind = iota
	// HostASCIIDomain is a plain ASCII domain name.
	HostASCIIDomain
	// HostIPv6 is a bracketed IPv6 address literal.
	HostIPv6
	// HostIPv4 is a bracketed IPv4 address literal.
	HostIPv4
)

// Hostname is the name a peer introduced itself with: a domain name or a
// bracketed address literal. Raw always holds the original text.
type Hostname struct {
	Kind     HostnameKind
	Raw      string
	Punycode string     // HostUTF8Domain only
	IP       netip.Addr // HostIPv4 / HostIPv6 only
}

// ParseHostname validates s and classifies it. It accepts bracketed IPv4
// and IPv6 literals, ASCII domains, and internationalized domains;
// everything else is an error.
func ParseHostname(s string) (Hostname, error) {
	if strings.HasPrefix(s, "[IPv6:") && strings.HasSuffix(s, "]") {
		ip, err := netip.ParseAddr(s[len("[IPv6:") : len(s)-1])
		if err != nil || !ip.Is6() {
			return Hostname{}, fmt.Errorf("policy: invalid IPv6 literal %q", s)
		}
		return Hostname{Kind: HostIPv6, Raw: s, IP: ip}, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		ip, err := netip.ParseAddr(s[1 : len(s)-1])
		if err != nil || !ip.Is4() {
			return Hostname{}, fmt.Errorf("policy: invalid IPv4 literal %q", s)
		}
		return Hostname{Kind: HostIPv4, Raw: s, IP: ip}, nil
	}
	if isASCIIDomain(s) {
		return Hostname{Kind: HostASCIIDomain, Raw: s}, nil
	}
	if isUTF8Domain(s) {
		puny, err := idna.Lookup.ToASCII(s)
		if err != nil {
			return Hostname{}, fmt.Errorf("policy: cannot punycode hostname %q: %w", s, err)
		}
		return Hostname{Kind: HostUTF8Domain, Raw: s, Punycode: puny}, nil
	}
	return Hostname{}, fmt.Errorf("policy: invalid hostname %q", s)
}

func isASCIIDomain(s string) bool {
	if s == "" {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			alnum := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
			if !alnum && c != '-' {
				return false
			}
			if c == '-' && (i == 0 || i == len(label)-1) {
				return false
			}
		}
	}
	return true
}

func isUTF8Domain(s string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '-' || r == '.':
		case r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		case r >= 128:
		default:
			return false
		}
	}
	return true
}

func (h Hostname) String() string { return h.Raw }

func (h Hostname) EncodedSize() int {
	size := 4 + 8 + len(h.Raw)
	switch h.Kind {
	case HostUTF8Domain:
		size += 8 + len(h.Punycode)
	case HostIPv6:
		size += 16
	case HostIPv4:
		size += 4
	}
	return size
}

func (h Hostname) Encode(e *wire.Encoder) {
	e.PutTag(uint32(h.Kind))
	e.PutString(h.Raw)
	switch h.Kind {
	case HostUTF8Domain:
		e.PutString(h.Punycode)
	case HostIPv6:
		b := h.IP.As16()
		e.PutRaw(b[:])
	case HostIPv4:
		b := h.IP.As4()
		e.PutRaw(b[:])
	}
}

func (h *Hostname) Decode(d *wire.Decoder) error {
	*h = Hostname{}
	h.Kind = HostnameKind(d.GetTag())
	h.Raw = d.GetString()
	if d.Err() != nil {
		return d.Err()
	}
	switch h.Kind {
	case HostUTF8Domain:
		h.Punycode = d.GetString()
	case HostASCIIDomain:
	case HostIPv6:
		p := d.GetRaw(16)
		if d.Err() == nil {
			h.IP = netip.AddrFrom16([16]byte(p))
		}
	case HostIPv4:
		p := d.GetRaw(4)
		if d.Err() == nil {
			h.IP = netip.AddrFrom4([4]byte(p))
		}
	default:
		return fmt.Errorf("policy: unknown Hostname discriminant %d", uint32(h.Kind))
	}
	return d.Err()
}
