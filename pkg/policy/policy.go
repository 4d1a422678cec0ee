package policy

import "github.com/median-kliniken/kannader/pkg/wire"

// ServerPolicy is the full set of decisions a policy module answers for the
// SMTP server. Mutable parameters are passed as pointers; the bridge echoes
// their post-call values back to the host.
//
// Embed Defaults to get the standard behavior for everything except the
// five methods every policy must decide for itself: WelcomeBannerReply,
// FilterHello, NewMail, FilterFrom and FilterTo.
type ServerPolicy interface {
	WelcomeBannerReply(cm *ConnMeta) Reply
	FilterHello(isEhlo bool, hostname Hostname, cm *ConnMeta) Decision[HelloInfo]
	CanDoTLS(cm ConnMeta) bool
	NewMail(cm *ConnMeta) []byte
	FilterFrom(from *Email, mm *MailMeta, cm *ConnMeta) Decision[wire.Option[Email]]
	FilterTo(to Email, mm *MailMeta, cm *ConnMeta) Decision[Email]
	FilterData(mm *MailMeta, cm *ConnMeta) Decision[wire.Unit]
	HandleRset(mm *wire.Option[MailMeta], cm *ConnMeta) Decision[wire.Unit]
	HandleStartTLS(cm *ConnMeta) Decision[wire.Unit]
	HandleExpn(name MaybeUTF8, cm *ConnMeta) Decision[wire.Unit]
	HandleVrfy(name MaybeUTF8, cm *ConnMeta) Decision[wire.Unit]
	HandleHelp(subject MaybeUTF8, cm *ConnMeta) Decision[wire.Unit]
	HandleNoop(text MaybeUTF8, cm *ConnMeta) Decision[wire.Unit]
	HandleQuit(cm *ConnMeta) Decision[wire.Unit]
	AlreadyDidHello(cm *ConnMeta) Reply
	MailBeforeHello(cm *ConnMeta) Reply
	AlreadyInMail(cm *ConnMeta) Reply
	RcptBeforeMail(cm *ConnMeta) Reply
	DataBeforeRcpt(cm *ConnMeta) Reply
	DataBeforeMail(cm *ConnMeta) Reply
	StartTLSUnsupported(cm *ConnMeta) Reply
	CommandUnrecognized(cm *ConnMeta) Reply
	PipelineForbiddenAfterStartTLS(cm *ConnMeta) Reply
	LineTooLong(cm *ConnMeta) Reply
	HandleMailDidNotCallComplete(cm *ConnMeta) Reply
	ReplyWriteTimeoutMillis() uint64
	CommandReadTimeoutMillis() uint64
}

// CanUpgradeToTLS is the standard STARTTLS predicate: the connection is not
// already encrypted and the client spoke EHLO.
func CanUpgradeToTLS(cm ConnMeta) bool {
	return !cm.IsEncrypted && cm.Hello != nil && cm.Hello.IsEhlo
}

const defaultTimeoutMillis = 5 * 60 * 1000

// Defaults supplies the registry's default bodies. A policy embeds it and
// overrides whatever it cares about; the five methods without a default are
// intentionally missing so the compiler enforces them.
type Defaults struct{}

func (Defaults) CanDoTLS(cm ConnMeta) bool { return CanUpgradeToTLS(cm) }

func (Defaults) FilterData(mm *MailMeta, cm *ConnMeta) Decision[wire.Unit] {
	return Accepted(OkayData(), wire.Unit{})
}

func (Defaults) HandleRset(mm *wire.Option[MailMeta], cm *ConnMeta) Decision[wire.Unit] {
	return Accepted(OkayRset(), wire.Unit{})
}

func (Defaults) HandleStartTLS(cm *ConnMeta) Decision[wire.Unit] {
	if CanUpgradeToTLS(*cm) {
		return Accepted(OkayStartTLS(), wire.Unit{})
	}
	return Rejected[wire.Unit](CommandNotSupported())
}

func (Defaults) HandleExpn(name MaybeUTF8, cm *ConnMeta) Decision[wire.Unit] {
	return Rejected[wire.Unit](CommandUnimplemented())
}

func (Defaults) HandleVrfy(name MaybeUTF8, cm *ConnMeta) Decision[wire.Unit] {
	return Accepted(IgnoreVrfy(), wire.Unit{})
}

func (Defaults) HandleHelp(subject MaybeUTF8, cm *ConnMeta) Decision[wire.Unit] {
	return Accepted(IgnoreHelp(), wire.Unit{})
}

func (Defaults) HandleNoop(text MaybeUTF8, cm *ConnMeta) Decision[wire.Unit] {
	return Accepted(OkayNoop(), wire.Unit{})
}

func (Defaults) HandleQuit(cm *ConnMeta) Decision[wire.Unit] {
	reply := OkayQuit()
	return Killed[wire.Unit](&reply, "")
}

func (Defaults) AlreadyDidHello(cm *ConnMeta) Reply { return BadSequence() }
func (Defaults) MailBeforeHello(cm *ConnMeta) Reply { return BadSequence() }
func (Defaults) AlreadyInMail(cm *ConnMeta) Reply   { return BadSequence() }
func (Defaults) RcptBeforeMail(cm *ConnMeta) Reply  { return BadSequence() }
func (Defaults) DataBeforeRcpt(cm *ConnMeta) Reply  { return BadSequence() }
func (Defaults) DataBeforeMail(cm *ConnMeta) Reply  { return BadSequence() }

func (Defaults) StartTLSUnsupported(cm *ConnMeta) Reply { return CommandNotSupported() }
func (Defaults) CommandUnrecognized(cm *ConnMeta) Reply { return CommandUnrecognized() }

func (Defaults) PipelineForbiddenAfterStartTLS(cm *ConnMeta) Reply {
	return PipelineForbiddenAfterStartTLS()
}

func (Defaults) LineTooLong(cm *ConnMeta) Reply { return LineTooLong() }

func (Defaults) HandleMailDidNotCallComplete(cm *ConnMeta) Reply { return LocalError() }

func (Defaults) ReplyWriteTimeoutMillis() uint64  { return defaultTimeoutMillis }
func (Defaults) CommandReadTimeoutMillis() uint64 { return defaultTimeoutMillis }
