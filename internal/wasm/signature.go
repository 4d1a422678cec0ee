package wasm

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// funcSig is a wasm-level function type. The protocol pins every export
// to an exact signature so a mismatched module is rejected before the
// first call instead of trapping mid-session.
type funcSig struct {
	params  []api.ValueType
	results []api.ValueType
}

var (
	// allocate: (size: i32) -> i32
	sigAllocate = funcSig{
		params:  []api.ValueType{api.ValueTypeI32},
		results: []api.ValueType{api.ValueTypeI32},
	}

	// deallocate: (addr: i32, size: i32) -> ()
	sigDeallocate = funcSig{
		params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
	}

	// setup: (addr: i32, size: i32) -> ()
	sigSetup = funcSig{
		params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
	}

	// every policy procedure: (addr: i32, size: i32) -> i64
	sigProcedure = funcSig{
		params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		results: []api.ValueType{api.ValueTypeI64},
	}
)

func (s funcSig) equal(o funcSig) bool {
	if len(s.params) != len(o.params) || len(s.results) != len(o.results) {
		return false
	}
	for i := range s.params {
		if s.params[i] != o.params[i] {
			return false
		}
	}
	for i := range s.results {
		if s.results[i] != o.results[i] {
			return false
		}
	}
	return true
}

func (s funcSig) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, t := range s.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(t))
	}
	b.WriteString(") -> (")
	for i, t := range s.results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(t))
	}
	b.WriteByte(')')
	return b.String()
}
