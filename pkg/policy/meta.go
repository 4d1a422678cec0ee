package policy

import "github.com/median-kliniken/kannader/pkg/wire"

// HelloInfo records how a client introduced itself.
type HelloInfo struct {
	IsEhlo   bool
	Hostname Hostname
}

func (h HelloInfo) EncodedSize() int {
	return 1 + h.Hostname.EncodedSize()
}

func (h HelloInfo) Encode(e *wire.Encoder) {
	e.PutBool(h.IsEhlo)
	h.Hostname.Encode(e)
}

func (h *HelloInfo) Decode(d *wire.Decoder) error {
	*h = HelloInfo{}
	h.IsEhlo = d.GetBool()
	if d.Err() != nil {
		return d.Err()
	}
	return h.Hostname.Decode(d)
}

// ConnMeta is the per-connection state a policy sees and may rewrite.
// UserData is opaque to the server; it belongs to the policy alone.
type ConnMeta struct {
	IsEncrypted bool
	Hello       *HelloInfo
	UserData    []byte
}

func (c ConnMeta) EncodedSize() int {
	return 1 + wire.OptionSize(c.Hello) + 8 + len(c.UserData)
}

func (c ConnMeta) Encode(e *wire.Encoder) {
	e.PutBool(c.IsEncrypted)
	wire.PutOption(e, c.Hello)
	e.PutBytes(c.UserData)
}

func (c *ConnMeta) Decode(d *wire.Decoder) error {
	*c = ConnMeta{}
	c.IsEncrypted = d.GetBool()
	if d.Err() != nil {
		return d.Err()
	}
	hello, err := wire.GetOption[HelloInfo](d)
	if err != nil {
		return err
	}
	c.Hello = hello
	c.UserData = d.GetBytes()
	return d.Err()
}

// MailMeta is the per-mail state a policy sees and may rewrite.
type MailMeta struct {
	From     *Email
	To       []Email
	UserData []byte
}

func (m MailMeta) EncodedSize() int {
	return wire.OptionSize(m.From) + wire.SliceSize(m.To) + 8 + len(m.UserData)
}

func (m MailMeta) Encode(e *wire.Encoder) {
	wire.PutOption(e, m.From)
	wire.PutSlice(e, m.To)
	e.PutBytes(m.UserData)
}

func (m *MailMeta) Decode(d *wire.Decoder) error {
	*m = MailMeta{}
	from, err := wire.GetOption[Email](d)
	if err != nil {
		return err
	}
	m.From = from
	to, err := wire.GetSlice[Email](d)
	if err != nil {
		return err
	}
	m.To = to
	m.UserData = d.GetBytes()
	return d.Err()
}
