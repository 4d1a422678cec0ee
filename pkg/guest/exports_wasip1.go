//go:build wasip1

package guest

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/median-kliniken/kannader/pkg/schema"
)

// The host drives the module through four control exports plus one
// export per procedure. Argument buffers are allocated by the host via
// allocate, filled through linear memory, and freed here once decoded.
// Result buffers are allocated here and freed by the host via
// deallocate. Allocations are pinned in a ptr -> slice map so the GC
// cannot move or reclaim them while the host still holds the address.
var mem = struct {
	sync.Mutex
	pinned map[uint32][]byte
}{pinned: make(map[uint32][]byte)}

var active *Dispatcher

// Register installs the policy factory. Call it from the module's main
// before blocking; the host cannot invoke any procedure until it has.
func Register(factory Factory) {
	active = NewDispatcher(factory)
}

func pin(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	mem.Lock()
	mem.pinned[ptr] = buf
	mem.Unlock()
	return ptr
}

func unpin(ptr uint32) {
	mem.Lock()
	delete(mem.pinned, ptr)
	mem.Unlock()
}

// takeArgs reads an argument buffer and releases it. The buffer was
// handed over by the host, so ownership of the allocation transfers to
// this side on entry.
func takeArgs(ptr, size uint32) []byte {
	if size == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size)
	args := make([]byte, size)
	copy(args, src)
	unpin(ptr)
	return args
}

// pinResult copies out into a fresh pinned allocation and packs its
// location as (size << 32) | address. The host frees it after decoding.
func pinResult(out []byte) uint64 {
	size := uint32(len(out))
	if size == 0 {
		return 0
	}
	ptr := pin(size)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size)
	copy(dst, out)
	return uint64(size)<<32 | uint64(ptr)
}

//go:wasmexport allocate
func allocateExport(size uint32) uint32 {
	return pin(size)
}

//go:wasmexport deallocate
func deallocateExport(ptr, size uint32) {
	unpin(ptr)
}

//go:wasmexport setup
func setupExport(ptr, size uint32) {
	args := takeArgs(ptr, size)
	if active == nil {
		panic("guest: no policy factory registered")
	}
	if err := active.Setup(args); err != nil {
		panic(err)
	}
}

// invoke is the shared body of every procedure export. Any dispatch
// error traps the instance; the host treats traps as fatal and discards
// it, so there is no error channel to encode into.
func invoke(export string, ptr, size uint32) uint64 {
	args := takeArgs(ptr, size)
	if active == nil {
		panic("guest: no policy factory registered")
	}
	out, err := active.Invoke(export, args)
	if err != nil {
		panic(fmt.Sprintf("guest: %s: %v", export, err))
	}
	return pinResult(out)
}

//go:wasmexport server_config_welcome_banner_reply
func welcomeBannerReplyExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcWelcomeBannerReply, ptr, size)
}

//go:wasmexport server_config_filter_hello
func filterHelloExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcFilterHello, ptr, size)
}

//go:wasmexport server_config_can_do_tls
func canDoTLSExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcCanDoTLS, ptr, size)
}

//go:wasmexport server_config_new_mail
func newMailExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcNewMail, ptr, size)
}

//go:wasmexport server_config_filter_from
func filterFromExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcFilterFrom, ptr, size)
}

//go:wasmexport server_config_filter_to
func filterToExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcFilterTo, ptr, size)
}

//go:wasmexport server_config_filter_data
func filterDataExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcFilterData, ptr, size)
}

//go:wasmexport server_config_handle_rset
func handleRsetExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleRset, ptr, size)
}

//go:wasmexport server_config_handle_starttls
func handleStartTLSExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleStartTLS, ptr, size)
}

//go:wasmexport server_config_handle_expn
func handleExpnExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleExpn, ptr, size)
}

//go:wasmexport server_config_handle_vrfy
func handleVrfyExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleVrfy, ptr, size)
}

//go:wasmexport server_config_handle_help
func handleHelpExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleHelp, ptr, size)
}

//go:wasmexport server_config_handle_noop
func handleNoopExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleNoop, ptr, size)
}

//go:wasmexport server_config_handle_quit
func handleQuitExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleQuit, ptr, size)
}

//go:wasmexport server_config_already_did_hello
func alreadyDidHelloExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcAlreadyDidHello, ptr, size)
}

//go:wasmexport server_config_mail_before_hello
func mailBeforeHelloExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcMailBeforeHello, ptr, size)
}

//go:wasmexport server_config_already_in_mail
func alreadyInMailExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcAlreadyInMail, ptr, size)
}

//go:wasmexport server_config_rcpt_before_mail
func rcptBeforeMailExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcRcptBeforeMail, ptr, size)
}

//go:wasmexport server_config_data_before_rcpt
func dataBeforeRcptExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcDataBeforeRcpt, ptr, size)
}

//go:wasmexport server_config_data_before_mail
func dataBeforeMailExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcDataBeforeMail, ptr, size)
}

//go:wasmexport server_config_starttls_unsupported
func startTLSUnsupportedExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcStartTLSUnsupported, ptr, size)
}

//go:wasmexport server_config_command_unrecognized
func commandUnrecognizedExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcCommandUnrecognized, ptr, size)
}

//go:wasmexport server_config_pipeline_forbidden_after_starttls
func pipelineForbiddenAfterStartTLSExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcPipelineForbiddenAfterStartTLS, ptr, size)
}

//go:wasmexport server_config_line_too_long
func lineTooLongExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcLineTooLong, ptr, size)
}

//go:wasmexport server_config_handle_mail_did_not_call_complete
func handleMailDidNotCallCompleteExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcHandleMailDidNotCallComplete, ptr, size)
}

//go:wasmexport server_config_reply_write_timeout_in_millis
func replyWriteTimeoutExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcReplyWriteTimeoutMillis, ptr, size)
}

//go:wasmexport server_config_command_read_timeout_in_millis
func commandReadTimeoutExport(ptr, size uint32) uint64 {
	return invoke(schema.ProcCommandReadTimeoutMillis, ptr, size)
}
