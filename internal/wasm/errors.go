package wasm

import (
	"fmt"
)

// CompilationError occurs when Wasm module compilation fails.
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails.
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not in cache.
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// MissingExportError occurs when the module does not export a name the
// protocol requires (memory, allocate, deallocate, setup, or one of the
// policy procedures).
type MissingExportError struct {
	Export string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("module does not export '%s'", e.Export)
}

// SignatureMismatchError occurs when an export exists but its wasm-level
// type differs from what the protocol requires.
type SignatureMismatchError struct {
	Export string
	Want   string
	Got    string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("export '%s' has signature %s, want %s", e.Export, e.Got, e.Want)
}

// BoundsViolationError occurs when a guest-reported buffer does not fit
// inside linear memory. It indicates a broken or hostile module, so the
// instance is faulted.
type BoundsViolationError struct {
	Operation string
	Address   uint32
	Length    uint32
}

func (e *BoundsViolationError) Error() string {
	return fmt.Sprintf("memory access out of bounds (op=%s, addr=%d, len=%d)",
		e.Operation, e.Address, e.Length)
}

// AllocationFailureError occurs when the guest allocator returns a null
// pointer for a non-zero request.
type AllocationFailureError struct {
	Size uint32
}

func (e *AllocationFailureError) Error() string {
	return fmt.Sprintf("guest allocator returned null for %d bytes", e.Size)
}

// SizeOverflowError occurs when an encoded payload cannot be described
// by the 32-bit sizes the boundary carries.
type SizeOverflowError struct {
	Size int
}

func (e *SizeOverflowError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds the 32-bit boundary limit", e.Size)
}

// GuestTrapError occurs when a guest call traps. The instance is faulted
// and rejects further calls.
type GuestTrapError struct {
	Export string
	Err    error
}

func (e *GuestTrapError) Error() string {
	return fmt.Sprintf("guest trapped in '%s': %v", e.Export, e.Err)
}

func (e *GuestTrapError) Unwrap() error {
	return e.Err
}

// EncodingError occurs when a guest response cannot be decoded. The
// instance stays usable; only the single call fails.
type EncodingError struct {
	Export string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("malformed response from '%s': %v", e.Export, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// StateError occurs when a call is not legal in the instance's current
// state: a procedure before setup, a second setup, or anything at all
// after a fault.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s while instance is %s", e.Op, e.State)
}
