// Package policy defines the values exchanged with a sandboxed policy
// module and the ServerPolicy contract a guest implements. The call bridge
// itself treats these values as opaque payloads; only the two ends assign
// them meaning.
package policy

import (
	"fmt"

	"github.com/median-kliniken/kannader/pkg/wire"
)

// MaybeUTF8 is text that is either known-valid UTF-8 or raw bytes of
// unknown encoding. On the wire it is a tagged union: 0 carries a string,
// 1 carries a byte string.
type MaybeUTF8 struct {
	UTF8 bool
	Text string // set when UTF8
	Raw  []byte // set otherwise
}

// UTF8 wraps a known-valid UTF-8 string.
func UTF8(s string) MaybeUTF8 {
	return MaybeUTF8{UTF8: true, Text: s}
}

// ASCII wraps raw bytes of unknown encoding.
func ASCII(b []byte) MaybeUTF8 {
	return MaybeUTF8{Raw: b}
}

func (m MaybeUTF8) String() string {
	if m.UTF8 {
		return m.Text
	}
	return string(m.Raw)
}

func (m MaybeUTF8) EncodedSize() int {
	if m.UTF8 {
		return 4 + 8 + len(m.Text)
	}
	return 4 + 8 + len(m.Raw)
}

func (m MaybeUTF8) Encode(e *wire.Encoder) {
	if m.UTF8 {
		e.PutTag(0)
		e.PutString(m.Text)
	} else {
		e.PutTag(1)
		e.PutBytes(m.Raw)
	}
}

func (m *MaybeUTF8) Decode(d *wire.Decoder) error {
	*m = MaybeUTF8{}
	switch tag := d.GetTag(); {
	case d.Err() != nil:
	case tag == 0:
		m.UTF8 = true
		m.Text = d.GetString()
	case tag == 1:
		m.Raw = d.GetBytes()
	default:
		return fmt.Errorf("policy: unknown MaybeUTF8 discriminant %d", tag)
	}
	return d.Err()
}

// Reply is one SMTP reply: a three-digit code, an optional enhanced status
// code, and the reply text line by line.
type Reply struct {
	Code     uint16
	Enhanced *string
	Text     []MaybeUTF8
}

func (r Reply) EncodedSize() int {
	size := 2 + 1
	if r.Enhanced != nil {
		size += 8 + len(*r.Enhanced)
	}
	return size + wire.SliceSize(r.Text)
}

func (r Reply) Encode(e *wire.Encoder) {
	e.PutU16(r.Code)
	e.PutBool(r.Enhanced != nil)
	if r.Enhanced != nil {
		e.PutString(*r.Enhanced)
	}
	wire.PutSlice(e, r.Text)
}

func (r *Reply) Decode(d *wire.Decoder) error {
	*r = Reply{}
	r.Code = d.GetU16()
	if d.GetBool() {
		s := d.GetString()
		r.Enhanced = &s
	}
	if d.Err() != nil {
		return d.Err()
	}
	text, err := wire.GetSlice[MaybeUTF8](d)
	if err != nil {
		return err
	}
	r.Text = text
	return nil
}

func reply(code uint16, enhanced, text string) Reply {
	r := Reply{Code: code, Text: []MaybeUTF8{UTF8(text)}}
	if enhanced != "" {
		r.Enhanced = &enhanced
	}
	return r
}

// Canned replies used by the default policy bodies.

// OkayData accepts the start of a DATA payload.
func OkayData() Reply { return reply(354, "", "Start mail input; end with <CRLF>.<CRLF>") }

// OkayRset acknowledges an RSET.
func OkayRset() Reply { return reply(250, "2.0.0", "Okay") }

// OkayStartTLS accepts a STARTTLS upgrade.
func OkayStartTLS() Reply { return reply(220, "2.0.0", "Ready to start TLS") }

// OkayNoop acknowledges a NOOP.
func OkayNoop() Reply { return reply(250, "2.0.0", "Okay") }

// OkayQuit says goodbye.
func OkayQuit() Reply { return reply(221, "2.0.0", "Bye") }

// IgnoreVrfy declines to verify an address without rejecting the command.
func IgnoreVrfy() Reply { return reply(252, "2.5.2", "Cannot VRFY user, but will accept message and attempt delivery") }

// IgnoreHelp answers HELP with a pointer and nothing else.
func IgnoreHelp() Reply { return reply(214, "2.0.0", "See https://tools.ietf.org/html/rfc5321") }

// BadSequence rejects a command issued in the wrong state.
func BadSequence() Reply { return reply(503, "5.5.1", "Bad sequence of commands") }

// CommandUnrecognized rejects a command the server does not know.
func CommandUnrecognized() Reply { return reply(500, "5.5.2", "Syntax error, command unrecognized") }

// CommandUnimplemented rejects a known but unimplemented command.
func CommandUnimplemented() Reply { return reply(502, "5.5.1", "Command not implemented") }

// CommandNotSupported rejects a command the server refuses to perform.
func CommandNotSupported() Reply { return reply(502, "5.5.1", "Command not supported") }

// PipelineForbiddenAfterStartTLS rejects commands pipelined behind STARTTLS.
func PipelineForbiddenAfterStartTLS() Reply {
	return reply(503, "5.5.1", "Pipelining after STARTTLS is forbidden")
}

// LineTooLong rejects an over-long command line.
func LineTooLong() Reply { return reply(500, "5.5.2", "Line too long") }

// LocalError reports a transient local processing failure.
func LocalError() Reply { return reply(451, "4.3.0", "Local error in processing") }
