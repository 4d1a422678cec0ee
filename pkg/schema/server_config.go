package schema

// Export names of the server-config procedures. Host and guest refer to
// these constants, never to string literals.
const (
	ProcWelcomeBannerReply             = "server_config_welcome_banner_reply"
	ProcFilterHello                    = "server_config_filter_hello"
	ProcCanDoTLS                       = "server_config_can_do_tls"
	ProcNewMail                        = "server_config_new_mail"
	ProcFilterFrom                     = "server_config_filter_from"
	ProcFilterTo                       = "server_config_filter_to"
	ProcFilterData                     = "server_config_filter_data"
	ProcHandleRset                     = "server_config_handle_rset"
	ProcHandleStartTLS                 = "server_config_handle_starttls"
	ProcHandleExpn                     = "server_config_handle_expn"
	ProcHandleVrfy                     = "server_config_handle_vrfy"
	ProcHandleHelp                     = "server_config_handle_help"
	ProcHandleNoop                     = "server_config_handle_noop"
	ProcHandleQuit                     = "server_config_handle_quit"
	ProcAlreadyDidHello                = "server_config_already_did_hello"
	ProcMailBeforeHello                = "server_config_mail_before_hello"
	ProcAlreadyInMail                  = "server_config_already_in_mail"
	ProcRcptBeforeMail                 = "server_config_rcpt_before_mail"
	ProcDataBeforeRcpt                 = "server_config_data_before_rcpt"
	ProcDataBeforeMail                 = "server_config_data_before_mail"
	ProcStartTLSUnsupported            = "server_config_starttls_unsupported"
	ProcCommandUnrecognized            = "server_config_command_unrecognized"
	ProcPipelineForbiddenAfterStartTLS = "server_config_pipeline_forbidden_after_starttls"
	ProcLineTooLong                    = "server_config_line_too_long"
	ProcHandleMailDidNotCallComplete   = "server_config_handle_mail_did_not_call_complete"
	ProcReplyWriteTimeoutMillis        = "server_config_reply_write_timeout_in_millis"
	ProcCommandReadTimeoutMillis       = "server_config_command_read_timeout_in_millis"
)

// serverConfig is the registry. Order is part of the contract: it is fixed
// at build time and shared by host and guest.
var serverConfig = []Procedure{
	{
		Export: ProcWelcomeBannerReply,
		Name:   "WelcomeBannerReply",
		Params: []Param{mut("conn_meta", "ConnMeta")},
		Result: "Reply",
	},
	{
		Export: ProcFilterHello,
		Name:   "FilterHello",
		Params: []Param{imm("is_ehlo", "bool"), imm("hostname", "Hostname"), mut("conn_meta", "ConnMeta")},
		Result: "Decision[HelloInfo]",
	},
	{
		Export:     ProcCanDoTLS,
		Name:       "CanDoTLS",
		Params:     []Param{imm("conn_meta", "ConnMeta")},
		Result:     "bool",
		HasDefault: true,
	},
	{
		Export: ProcNewMail,
		Name:   "NewMail",
		Params: []Param{mut("conn_meta", "ConnMeta")},
		Result: "bytes",
	},
	{
		Export: ProcFilterFrom,
		Name:   "FilterFrom",
		Params: []Param{imm("from", "Option[Email]"), mut("mail_meta", "MailMeta"), mut("conn_meta", "ConnMeta")},
		Result: "Decision[Option[Email]]",
	},
	{
		Export: ProcFilterTo,
		Name:   "FilterTo",
		Params: []Param{imm("to", "Email"), mut("mail_meta", "MailMeta"), mut("conn_meta", "ConnMeta")},
		Result: "Decision[Email]",
	},
	{
		Export:     ProcFilterData,
		Name:       "FilterData",
		Params:     []Param{mut("mail_meta", "MailMeta"), mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleRset,
		Name:       "HandleRset",
		Params:     []Param{mut("mail_meta", "Option[MailMeta]"), mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleStartTLS,
		Name:       "HandleStartTLS",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleExpn,
		Name:       "HandleExpn",
		Params:     []Param{imm("name", "MaybeUTF8"), mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleVrfy,
		Name:       "HandleVrfy",
		Params:     []Param{imm("name", "MaybeUTF8"), mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleHelp,
		Name:       "HandleHelp",
		Params:     []Param{imm("subject", "MaybeUTF8"), mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleNoop,
		Name:       "HandleNoop",
		Params:     []Param{imm("text", "MaybeUTF8"), mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcHandleQuit,
		Name:       "HandleQuit",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Decision[Unit]",
		HasDefault: true,
	},
	{
		Export:     ProcAlreadyDidHello,
		Name:       "AlreadyDidHello",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcMailBeforeHello,
		Name:       "MailBeforeHello",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcAlreadyInMail,
		Name:       "AlreadyInMail",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcRcptBeforeMail,
		Name:       "RcptBeforeMail",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcDataBeforeRcpt,
		Name:       "DataBeforeRcpt",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcDataBeforeMail,
		Name:       "DataBeforeMail",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcStartTLSUnsupported,
		Name:       "StartTLSUnsupported",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcCommandUnrecognized,
		Name:       "CommandUnrecognized",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcPipelineForbiddenAfterStartTLS,
		Name:       "PipelineForbiddenAfterStartTLS",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcLineTooLong,
		Name:       "LineTooLong",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcHandleMailDidNotCallComplete,
		Name:       "HandleMailDidNotCallComplete",
		Params:     []Param{mut("conn_meta", "ConnMeta")},
		Result:     "Reply",
		HasDefault: true,
	},
	{
		Export:     ProcReplyWriteTimeoutMillis,
		Name:       "ReplyWriteTimeoutMillis",
		Result:     "u64",
		HasDefault: true,
	},
	{
		Export:     ProcCommandReadTimeoutMillis,
		Name:       "CommandReadTimeoutMillis",
		Result:     "u64",
		HasDefault: true,
	},
}

// ServerConfig returns the server-config procedure registry in its fixed
// order. The returned slice is a copy; callers may not mutate the table.
func ServerConfig() []Procedure {
	out := make([]Procedure, len(serverConfig))
	copy(out, serverConfig)
	return out
}

// Lookup finds a procedure by export name.
func Lookup(export string) (Procedure, bool) {
	for _, p := range serverConfig {
		if p.Export == export {
			return p, true
		}
	}
	return Procedure{}, false
}
