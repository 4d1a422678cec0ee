package guest

import (
	"github.com/median-kliniken/kannader/pkg/policy"
	"github.com/median-kliniken/kannader/pkg/schema"
	"github.com/median-kliniken/kannader/pkg/wire"
)

// decodeArgs reads the given fields in order from args and requires the
// whole buffer to be consumed.
func decodeArgs(args []byte, fields ...wire.Unmarshaler) error {
	d := wire.NewDecoder(args)
	for _, f := range fields {
		if err := f.Decode(d); err != nil {
			return err
		}
	}
	return d.Finish()
}

// encodeResult builds the response tuple: the procedure result followed
// by the post-call values of the mutable parameters in declaration
// order.
func encodeResult(fields ...wire.Marshaler) ([]byte, error) {
	return wire.Encode(wire.Tuple(fields))
}

// replyProc covers the procedures with shape (mut cm) -> Reply, which is
// every bad-sequence and protocol-error hook.
func replyProc(method func(policy.ServerPolicy, *policy.ConnMeta) policy.Reply) handler {
	return func(p policy.ServerPolicy, args []byte) ([]byte, error) {
		var cm policy.ConnMeta
		if err := decodeArgs(args, &cm); err != nil {
			return nil, err
		}
		r := method(p, &cm)
		return encodeResult(r, cm)
	}
}

// connDecisionProc covers (mut cm) -> Decision[()].
func connDecisionProc(method func(policy.ServerPolicy, *policy.ConnMeta) policy.Decision[wire.Unit]) handler {
	return func(p policy.ServerPolicy, args []byte) ([]byte, error) {
		var cm policy.ConnMeta
		if err := decodeArgs(args, &cm); err != nil {
			return nil, err
		}
		dec := method(p, &cm)
		return encodeResult(dec, cm)
	}
}

// textProc covers (imm text, mut cm) -> Decision[()], the VRFY-family
// hooks that receive a free-form command argument.
func textProc(method func(policy.ServerPolicy, policy.MaybeUTF8, *policy.ConnMeta) policy.Decision[wire.Unit]) handler {
	return func(p policy.ServerPolicy, args []byte) ([]byte, error) {
		var text policy.MaybeUTF8
		var cm policy.ConnMeta
		if err := decodeArgs(args, &text, &cm); err != nil {
			return nil, err
		}
		dec := method(p, text, &cm)
		return encodeResult(dec, cm)
	}
}

// u64Proc covers the nullary timeout getters. Their argument tuple is
// empty, so the payload must be zero bytes.
func u64Proc(method func(policy.ServerPolicy) uint64) handler {
	return func(p policy.ServerPolicy, args []byte) ([]byte, error) {
		if err := decodeArgs(args); err != nil {
			return nil, err
		}
		return encodeResult(wire.U64(method(p)))
	}
}

func procHandlers() map[string]handler {
	return map[string]handler{
		schema.ProcWelcomeBannerReply: replyProc(policy.ServerPolicy.WelcomeBannerReply),

		schema.ProcFilterHello: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var isEhlo wire.Bool
			var hostname policy.Hostname
			var cm policy.ConnMeta
			if err := decodeArgs(args, &isEhlo, &hostname, &cm); err != nil {
				return nil, err
			}
			dec := p.FilterHello(bool(isEhlo), hostname, &cm)
			return encodeResult(dec, cm)
		},

		schema.ProcCanDoTLS: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var cm policy.ConnMeta
			if err := decodeArgs(args, &cm); err != nil {
				return nil, err
			}
			return encodeResult(wire.Bool(p.CanDoTLS(cm)))
		},

		schema.ProcNewMail: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var cm policy.ConnMeta
			if err := decodeArgs(args, &cm); err != nil {
				return nil, err
			}
			data := p.NewMail(&cm)
			return encodeResult(wire.Bytes(data), cm)
		},

		schema.ProcFilterFrom: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var from wire.Option[policy.Email]
			var mm policy.MailMeta
			var cm policy.ConnMeta
			if err := decodeArgs(args, &from, &mm, &cm); err != nil {
				return nil, err
			}
			var fp *policy.Email
			if from.Set {
				fp = &from.Value
			}
			dec := p.FilterFrom(fp, &mm, &cm)
			return encodeResult(dec, mm, cm)
		},

		schema.ProcFilterTo: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var to policy.Email
			var mm policy.MailMeta
			var cm policy.ConnMeta
			if err := decodeArgs(args, &to, &mm, &cm); err != nil {
				return nil, err
			}
			dec := p.FilterTo(to, &mm, &cm)
			return encodeResult(dec, mm, cm)
		},

		schema.ProcFilterData: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var mm policy.MailMeta
			var cm policy.ConnMeta
			if err := decodeArgs(args, &mm, &cm); err != nil {
				return nil, err
			}
			dec := p.FilterData(&mm, &cm)
			return encodeResult(dec, mm, cm)
		},

		schema.ProcHandleRset: func(p policy.ServerPolicy, args []byte) ([]byte, error) {
			var mm wire.Option[policy.MailMeta]
			var cm policy.ConnMeta
			if err := decodeArgs(args, &mm, &cm); err != nil {
				return nil, err
			}
			dec := p.HandleRset(&mm, &cm)
			return encodeResult(dec, mm, cm)
		},

		schema.ProcHandleStartTLS: connDecisionProc(policy.ServerPolicy.HandleStartTLS),
		schema.ProcHandleExpn:     textProc(policy.ServerPolicy.HandleExpn),
		schema.ProcHandleVrfy:     textProc(policy.ServerPolicy.HandleVrfy),
		schema.ProcHandleHelp:     textProc(policy.ServerPolicy.HandleHelp),
		schema.ProcHandleNoop:     textProc(policy.ServerPolicy.HandleNoop),
		schema.ProcHandleQuit:     connDecisionProc(policy.ServerPolicy.HandleQuit),

		schema.ProcAlreadyDidHello:                replyProc(policy.ServerPolicy.AlreadyDidHello),
		schema.ProcMailBeforeHello:                replyProc(policy.ServerPolicy.MailBeforeHello),
		schema.ProcAlreadyInMail:                  replyProc(policy.ServerPolicy.AlreadyInMail),
		schema.ProcRcptBeforeMail:                 replyProc(policy.ServerPolicy.RcptBeforeMail),
		schema.ProcDataBeforeRcpt:                 replyProc(policy.ServerPolicy.DataBeforeRcpt),
		schema.ProcDataBeforeMail:                 replyProc(policy.ServerPolicy.DataBeforeMail),
		schema.ProcStartTLSUnsupported:            replyProc(policy.ServerPolicy.StartTLSUnsupported),
		schema.ProcCommandUnrecognized:            replyProc(policy.ServerPolicy.CommandUnrecognized),
		schema.ProcPipelineForbiddenAfterStartTLS: replyProc(policy.ServerPolicy.PipelineForbiddenAfterStartTLS),
		schema.ProcLineTooLong:                    replyProc(policy.ServerPolicy.LineTooLong),
		schema.ProcHandleMailDidNotCallComplete:   replyProc(policy.ServerPolicy.HandleMailDidNotCallComplete),

		schema.ProcReplyWriteTimeoutMillis:  u64Proc(policy.ServerPolicy.ReplyWriteTimeoutMillis),
		schema.ProcCommandReadTimeoutMillis: u64Proc(policy.ServerPolicy.CommandReadTimeoutMillis),
	}
}
