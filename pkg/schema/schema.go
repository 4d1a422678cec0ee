// Package schema is the single source of truth for the host/guest call
// surface: the fixed export names of the memory bridge and setup entry
// points, and the ordered registry of policy procedures. Both the guest
// dispatcher and the host client are built from this table; a host and a
// guest built from different registries fail signature resolution instead
// of silently miscommunicating.
package schema

// Fixed, non-registry exports every policy module carries.
const (
	// ExportMemory names the linear memory export.
	ExportMemory = "memory"
	// ExportAllocate names the guest allocator: (size: u32) -> address: u32.
	ExportAllocate = "allocate"
	// ExportDeallocate names the guest deallocator: (address: u32, size: u32) -> ().
	ExportDeallocate = "deallocate"
	// ExportSetup names the one-shot configuration entry point:
	// (address: u32, size: u32) -> ().
	ExportSetup = "setup"
)

// Param describes one procedure parameter. Mutable parameters are passed
// by value in the argument tuple and echoed back, post-call, as trailing
// fields of the result tuple, in declaration order.
type Param struct {
	Name    string
	Type    string
	Mutable bool
}

// Procedure describes one remote procedure. Export is the wasm export
// name; its low-level shape is always (address: u32, size: u32) -> u64,
// the returned word packing (size << 32) | address of the result buffer.
type Procedure struct {
	Export string
	Name   string
	Params []Param
	Result string

	// HasDefault marks procedures a policy may leave to the standard
	// behavior (policy.Defaults). Procedures without a default must be
	// implemented by every policy.
	HasDefault bool
}

// Mutables returns the mutable parameters in declaration order.
func (p Procedure) Mutables() []Param {
	var out []Param
	for _, a := range p.Params {
		if a.Mutable {
			out = append(out, a)
		}
	}
	return out
}

func imm(name, typ string) Param { return Param{Name: name, Type: typ} }
func mut(name, typ string) Param { return Param{Name: name, Type: typ, Mutable: true} }
