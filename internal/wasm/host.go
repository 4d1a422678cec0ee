package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// HostModuleName is the import namespace policy modules see for host
// functions.
const HostModuleName = "kannader"

// HostFunctions implements the functions exported to policy modules.
// The protocol itself needs none, but modules may import log_message to
// route their diagnostics through the host logger instead of stderr.
type HostFunctions struct {
	logger *zap.Logger
}

// NewHostFunctions creates the host function implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctions {
	return &HostFunctions{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// logMessage is called by policy modules to log messages.
// Signature: log_message(level, ptr, length)
// level: 0 = debug, 1 = info, 2 = warn, 3 = error
func (h *HostFunctions) logMessage(ctx context.Context, mod api.Module, level, ptr, length uint32) {
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Error("failed to read log message from module memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	switch level {
	case 0:
		h.logger.Debug(string(msg))
	case 1:
		h.logger.Info(string(msg))
	case 2:
		h.logger.Warn(string(msg))
	case 3:
		h.logger.Error(string(msg))
	default:
		h.logger.Info(string(msg))
	}
}
