package wasm

import (
	"context"

	"github.com/median-kliniken/kannader/pkg/policy"
	"github.com/median-kliniken/kannader/pkg/schema"
	"github.com/median-kliniken/kannader/pkg/wire"
)

// Typed wrappers over the boundary protocol, one per registry
// procedure. Pointer parameters are the mutable ones: the guest's
// post-call values are decoded back into them, so callers observe the
// module's edits in place.

func (c *Client) WelcomeBannerReply(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	var reply policy.Reply
	err := c.call(ctx, schema.ProcWelcomeBannerReply, wire.Tuple{*cm}, &reply, cm)
	return reply, err
}

func (c *Client) FilterHello(ctx context.Context, isEhlo bool, hostname policy.Hostname, cm *policy.ConnMeta) (policy.Decision[policy.HelloInfo], error) {
	var dec policy.Decision[policy.HelloInfo]
	err := c.call(ctx, schema.ProcFilterHello, wire.Tuple{wire.Bool(isEhlo), hostname, *cm}, &dec, cm)
	return dec, err
}

func (c *Client) CanDoTLS(ctx context.Context, cm policy.ConnMeta) (bool, error) {
	var can wire.Bool
	err := c.call(ctx, schema.ProcCanDoTLS, wire.Tuple{cm}, &can)
	return bool(can), err
}

func (c *Client) NewMail(ctx context.Context, cm *policy.ConnMeta) ([]byte, error) {
	var data wire.Bytes
	err := c.call(ctx, schema.ProcNewMail, wire.Tuple{*cm}, &data, cm)
	return []byte(data), err
}

func (c *Client) FilterFrom(ctx context.Context, from *policy.Email, mm *policy.MailMeta, cm *policy.ConnMeta) (policy.Decision[wire.Option[policy.Email]], error) {
	opt := wire.None[policy.Email]()
	if from != nil {
		opt = wire.Some(*from)
	}
	var dec policy.Decision[wire.Option[policy.Email]]
	err := c.call(ctx, schema.ProcFilterFrom, wire.Tuple{opt, *mm, *cm}, &dec, mm, cm)
	return dec, err
}

func (c *Client) FilterTo(ctx context.Context, to policy.Email, mm *policy.MailMeta, cm *policy.ConnMeta) (policy.Decision[policy.Email], error) {
	var dec policy.Decision[policy.Email]
	err := c.call(ctx, schema.ProcFilterTo, wire.Tuple{to, *mm, *cm}, &dec, mm, cm)
	return dec, err
}

func (c *Client) FilterData(ctx context.Context, mm *policy.MailMeta, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	var dec policy.Decision[wire.Unit]
	err := c.call(ctx, schema.ProcFilterData, wire.Tuple{*mm, *cm}, &dec, mm, cm)
	return dec, err
}

func (c *Client) HandleRset(ctx context.Context, mm *wire.Option[policy.MailMeta], cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	var dec policy.Decision[wire.Unit]
	err := c.call(ctx, schema.ProcHandleRset, wire.Tuple{*mm, *cm}, &dec, mm, cm)
	return dec, err
}

func (c *Client) HandleStartTLS(ctx context.Context, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	return c.connDecision(ctx, schema.ProcHandleStartTLS, cm)
}

func (c *Client) HandleExpn(ctx context.Context, name policy.MaybeUTF8, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	return c.textDecision(ctx, schema.ProcHandleExpn, name, cm)
}

func (c *Client) HandleVrfy(ctx context.Context, name policy.MaybeUTF8, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	return c.textDecision(ctx, schema.ProcHandleVrfy, name, cm)
}

func (c *Client) HandleHelp(ctx context.Context, subject policy.MaybeUTF8, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	return c.textDecision(ctx, schema.ProcHandleHelp, subject, cm)
}

func (c *Client) HandleNoop(ctx context.Context, text policy.MaybeUTF8, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	return c.textDecision(ctx, schema.ProcHandleNoop, text, cm)
}

func (c *Client) HandleQuit(ctx context.Context, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	return c.connDecision(ctx, schema.ProcHandleQuit, cm)
}

func (c *Client) AlreadyDidHello(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcAlreadyDidHello, cm)
}

func (c *Client) MailBeforeHello(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcMailBeforeHello, cm)
}

func (c *Client) AlreadyInMail(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcAlreadyInMail, cm)
}

func (c *Client) RcptBeforeMail(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcRcptBeforeMail, cm)
}

func (c *Client) DataBeforeRcpt(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcDataBeforeRcpt, cm)
}

func (c *Client) DataBeforeMail(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcDataBeforeMail, cm)
}

func (c *Client) StartTLSUnsupported(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcStartTLSUnsupported, cm)
}

func (c *Client) CommandUnrecognized(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcCommandUnrecognized, cm)
}

func (c *Client) PipelineForbiddenAfterStartTLS(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcPipelineForbiddenAfterStartTLS, cm)
}

func (c *Client) LineTooLong(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcLineTooLong, cm)
}

func (c *Client) HandleMailDidNotCallComplete(ctx context.Context, cm *policy.ConnMeta) (policy.Reply, error) {
	return c.reply(ctx, schema.ProcHandleMailDidNotCallComplete, cm)
}

func (c *Client) ReplyWriteTimeoutMillis(ctx context.Context) (uint64, error) {
	var millis wire.U64
	err := c.call(ctx, schema.ProcReplyWriteTimeoutMillis, wire.Tuple{}, &millis)
	return uint64(millis), err
}

func (c *Client) CommandReadTimeoutMillis(ctx context.Context) (uint64, error) {
	var millis wire.U64
	err := c.call(ctx, schema.ProcCommandReadTimeoutMillis, wire.Tuple{}, &millis)
	return uint64(millis), err
}

func (c *Client) reply(ctx context.Context, export string, cm *policy.ConnMeta) (policy.Reply, error) {
	var reply policy.Reply
	err := c.call(ctx, export, wire.Tuple{*cm}, &reply, cm)
	return reply, err
}

func (c *Client) connDecision(ctx context.Context, export string, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	var dec policy.Decision[wire.Unit]
	err := c.call(ctx, export, wire.Tuple{*cm}, &dec, cm)
	return dec, err
}

func (c *Client) textDecision(ctx context.Context, export string, text policy.MaybeUTF8, cm *policy.ConnMeta) (policy.Decision[wire.Unit], error) {
	var dec policy.Decision[wire.Unit]
	err := c.call(ctx, export, wire.Tuple{text, *cm}, &dec, cm)
	return dec, err
}
