package policy

import (
	"fmt"

	"github.com/median-kliniken/kannader/pkg/wire"
)

// DecisionKind discriminates the Decision union. The numeric values are
// the wire discriminants and must not be reordered.
type DecisionKind uint32

const (
	// KindAccept carries a reply and the accepted result.
	KindAccept DecisionKind = iota
	// KindReject carries the rejection reply.
	KindReject
	// KindKill closes the connection, optionally with a goodbye reply.
	KindKill
)

// Decision is the outcome of a filtering procedure: accept with a result,
// reject with a reply, or kill the connection.
type Decision[T wire.Marshaler] struct {
	Kind  DecisionKind
	Reply Reply // Accept and Reject
	Res   T     // Accept

	KillReply *Reply // Kill, optional
	KillErr   string // Kill; empty means a clean shutdown
}

// Accepted builds an accepting decision.
func Accepted[T wire.Marshaler](reply Reply, res T) Decision[T] {
	return Decision[T]{Kind: KindAccept, Reply: reply, Res: res}
}

// Rejected builds a rejecting decision.
func Rejected[T wire.Marshaler](reply Reply) Decision[T] {
	return Decision[T]{Kind: KindReject, Reply: reply}
}

// Killed builds a connection-closing decision. reply may be nil; err is
// empty for a clean shutdown.
func Killed[T wire.Marshaler](reply *Reply, err string) Decision[T] {
	return Decision[T]{Kind: KindKill, KillReply: reply, KillErr: err}
}

func (v Decision[T]) EncodedSize() int {
	switch v.Kind {
	case KindAccept:
		return 4 + v.Reply.EncodedSize() + v.Res.EncodedSize()
	case KindReject:
		return 4 + v.Reply.EncodedSize()
	default:
		size := 4 + wire.OptionSize(v.KillReply) + 4
		if v.KillErr != "" {
			size += 8 + len(v.KillErr)
		}
		return size
	}
}

func (v Decision[T]) Encode(e *wire.Encoder) {
	e.PutTag(uint32(v.Kind))
	switch v.Kind {
	case KindAccept:
		v.Reply.Encode(e)
		v.Res.Encode(e)
	case KindReject:
		v.Reply.Encode(e)
	default:
		wire.PutOption(e, v.KillReply)
		// Result<(), String>: Ok carries nothing, Err carries the message.
		if v.KillErr == "" {
			e.PutTag(0)
		} else {
			e.PutTag(1)
			e.PutString(v.KillErr)
		}
	}
}

func (v *Decision[T]) Decode(d *wire.Decoder) error {
	var zero T
	*v = Decision[T]{Res: zero}
	v.Kind = DecisionKind(d.GetTag())
	if d.Err() != nil {
		return d.Err()
	}
	switch v.Kind {
	case KindAccept:
		if err := v.Reply.Decode(d); err != nil {
			return err
		}
		u, ok := any(&v.Res).(wire.Unmarshaler)
		if !ok {
			return fmt.Errorf("policy: decision payload %T is not decodable", v.Res)
		}
		return u.Decode(d)
	case KindReject:
		return v.Reply.Decode(d)
	case KindKill:
		reply, err := wire.GetOption[Reply](d)
		if err != nil {
			return err
		}
		v.KillReply = reply
		switch tag := d.GetTag(); {
		case d.Err() != nil:
		case tag == 0:
		case tag == 1:
			v.KillErr = d.GetString()
		default:
			return fmt.Errorf("policy: unknown kill result discriminant %d", tag)
		}
		return d.Err()
	default:
		return fmt.Errorf("policy: unknown Decision discriminant %d", uint32(v.Kind))
	}
}
