package policy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/median-kliniken/kannader/pkg/wire"
)

// Email is one address as it appears in MAIL FROM / RCPT TO: a localpart
// and an optional hostname (a path without a domain is legal in SMTP).
type Email struct {
	Localpart MaybeUTF8
	Hostname  *Hostname
}

// ParseEmail validates s as localpart[@hostname]. Quoted-string localparts
// are accepted verbatim; dot-string localparts are checked character by
// character.
func ParseEmail(s string) (Email, error) {
	local := s
	var host *Hostname
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		local = s[:at]
		h, err := ParseHostname(s[at+1:])
		if err != nil {
			return Email{}, err
		}
		host = &h
	}
	if !validLocalpart(local) {
		return Email{}, fmt.Errorf("policy: invalid localpart %q", local)
	}
	lp := UTF8(local)
	if !utf8.ValidString(local) {
		lp = ASCII([]byte(local))
	}
	return Email{Localpart: lp, Hostname: host}, nil
}

const atextSpecials = "!#$%&'*+-/=?^_`{|}~"

func validLocalpart(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) && len(s) >= 2 {
		return true
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" {
			return false
		}
		for _, r := range label {
			alnum := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
			if !alnum && r < 128 && !strings.ContainsRune(atextSpecials, r) {
				return false
			}
		}
	}
	return true
}

func (m Email) String() string {
	if m.Hostname == nil {
		return m.Localpart.String()
	}
	return m.Localpart.String() + "@" + m.Hostname.String()
}

func (m Email) EncodedSize() int {
	return m.Localpart.EncodedSize() + wire.OptionSize(m.Hostname)
}

func (m Email) Encode(e *wire.Encoder) {
	m.Localpart.Encode(e)
	wire.PutOption(e, m.Hostname)
}

func (m *Email) Decode(d *wire.Decoder) error {
	*m = Email{}
	if err := m.Localpart.Decode(d); err != nil {
		return err
	}
	host, err := wire.GetOption[Hostname](d)
	if err != nil {
		return err
	}
	m.Hostname = host
	return nil
}
