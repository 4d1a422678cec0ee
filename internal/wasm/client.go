package wasm

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/pkg/schema"
	"github.com/median-kliniken/kannader/pkg/wire"
)

// State tracks the lifecycle of one policy module instance.
type State int

const (
	// StateUninitialized means setup has not run; only Setup is legal.
	StateUninitialized State = iota

	// StateConfigured means setup succeeded; procedures may be called.
	StateConfigured

	// StateFaulted is terminal. A trap or a memory-safety violation
	// leaves the instance here and every further call is rejected.
	StateFaulted

	// StateClosed means the host released the instance; its module is
	// gone and every further call is rejected.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateFaulted:
		return "faulted"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// guestFunc is the slice of wazero's api.Function the call path needs.
type guestFunc interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// exports resolves the protocol surface of one instantiated module and
// releases it when the client is done. *Instance implements it over
// wazero; tests substitute fakes.
type exports interface {
	Memory() (linearMemory, error)
	Function(name string, want funcSig) (guestFunc, error)
	Close(ctx context.Context) error
}

// Client drives one policy module instance through the boundary
// protocol. It owns the instance's state machine and is safe for
// concurrent use; calls into the same instance are serialized.
type Client struct {
	logger *zap.Logger
	mod    exports
	mem    *Memory

	allocate   guestFunc
	deallocate guestFunc
	setup      guestFunc
	procs      map[string]guestFunc

	mu    sync.Mutex
	state State
}

// NewClient resolves every export the protocol requires and checks its
// wasm-level signature. Resolution is all-or-nothing: a module missing
// any procedure, or exporting one with the wrong type, is rejected
// before a single call is made.
func NewClient(mod exports, logger *zap.Logger) (*Client, error) {
	c := &Client{
		logger: logger.With(zap.String("component", "policy-client")),
		mod:    mod,
		procs:  make(map[string]guestFunc, len(schema.ServerConfig())),
	}

	var errs []error

	lm, err := mod.Memory()
	if err != nil {
		errs = append(errs, err)
	} else {
		c.mem = NewMemory(lm)
	}

	if c.allocate, err = mod.Function(schema.ExportAllocate, sigAllocate); err != nil {
		errs = append(errs, err)
	}
	if c.deallocate, err = mod.Function(schema.ExportDeallocate, sigDeallocate); err != nil {
		errs = append(errs, err)
	}
	if c.setup, err = mod.Function(schema.ExportSetup, sigSetup); err != nil {
		errs = append(errs, err)
	}
	for _, p := range schema.ServerConfig() {
		fn, err := mod.Function(p.Export, sigProcedure)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.procs[p.Export] = fn
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// State reports the instance's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close releases the underlying module instance, reclaiming its linear
// memory. A faulted instance must still be closed; faulting only stops
// calls, it does not free anything. Idempotent.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil
	}
	c.state = StateClosed
	if c.mod == nil {
		return nil
	}
	return c.mod.Close(ctx)
}

// Setup delivers the one-time configuration path to the module. It must
// be the first call on a fresh instance and is legal exactly once; a
// second call fails without touching the module.
func (c *Client) Setup(ctx context.Context, configPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUninitialized {
		return &StateError{Op: "setup", State: c.state}
	}

	buf, err := wire.Encode(wire.String(configPath))
	if err != nil {
		return &EncodingError{Export: schema.ExportSetup, Err: err}
	}
	addr, size, err := c.push(ctx, buf)
	if err != nil {
		return err
	}

	if _, err := c.setup.Call(ctx, uint64(addr), uint64(size)); err != nil {
		c.state = StateFaulted
		return &GuestTrapError{Export: schema.ExportSetup, Err: err}
	}

	c.state = StateConfigured
	c.logger.Info("policy module configured", zap.String("config_path", configPath))
	return nil
}

// push encodes nothing itself: it hands buf to the guest by asking its
// allocator for a buffer and copying buf in. Ownership transfers to the
// guest, which frees the buffer once it has decoded the arguments.
func (c *Client) push(ctx context.Context, buf []byte) (addr, size uint32, err error) {
	if len(buf) > math.MaxUint32 {
		return 0, 0, &SizeOverflowError{Size: len(buf)}
	}
	size = uint32(len(buf))

	res, err := c.allocate.Call(ctx, uint64(size))
	if err != nil {
		c.state = StateFaulted
		return 0, 0, &GuestTrapError{Export: schema.ExportAllocate, Err: err}
	}
	addr = uint32(res[0])
	if addr == 0 && size > 0 {
		return 0, 0, &AllocationFailureError{Size: size}
	}

	if err := c.mem.Write(addr, buf); err != nil {
		c.state = StateFaulted
		return 0, 0, err
	}
	return addr, size, nil
}

// call runs one procedure end to end: encode args, hand them over, run
// the export, pull the response buffer back, free it, and decode the
// result followed by the echoed mutable parameters.
func (c *Client) call(ctx context.Context, export string, args wire.Tuple, ret wire.Unmarshaler, muts ...wire.Unmarshaler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConfigured {
		return &StateError{Op: export, State: c.state}
	}
	fn, ok := c.procs[export]
	if !ok {
		return &MissingExportError{Export: export}
	}

	buf, err := wire.Encode(args)
	if err != nil {
		return &EncodingError{Export: export, Err: err}
	}
	addr, size, err := c.push(ctx, buf)
	if err != nil {
		return err
	}

	res, err := fn.Call(ctx, uint64(addr), uint64(size))
	if err != nil {
		c.state = StateFaulted
		return &GuestTrapError{Export: export, Err: err}
	}

	// The result location comes back packed as (size << 32) | address.
	packed := res[0]
	outSize := uint32(packed >> 32)
	outAddr := uint32(packed)

	var out []byte
	if outSize > 0 {
		out, err = c.mem.Read(outAddr, outSize)
		if err != nil {
			c.state = StateFaulted
			return err
		}
		if _, err := c.deallocate.Call(ctx, uint64(outAddr), uint64(outSize)); err != nil {
			c.state = StateFaulted
			return &GuestTrapError{Export: schema.ExportDeallocate, Err: err}
		}
	}

	// Mutable parameters decode into fresh values; the caller's
	// bindings are written back only after the whole tuple has been
	// verified, so a malformed response leaves them untouched.
	staged := make([]wire.Unmarshaler, len(muts))
	for i, m := range muts {
		staged[i] = reflect.New(reflect.TypeOf(m).Elem()).Interface().(wire.Unmarshaler)
	}

	d := wire.NewDecoder(out)
	if err := ret.Decode(d); err != nil {
		return &EncodingError{Export: export, Err: err}
	}
	for _, m := range staged {
		if err := m.Decode(d); err != nil {
			return &EncodingError{Export: export, Err: err}
		}
	}
	if err := d.Finish(); err != nil {
		return &EncodingError{Export: export, Err: err}
	}
	for i, m := range muts {
		reflect.ValueOf(m).Elem().Set(reflect.ValueOf(staged[i]).Elem())
	}

	c.logger.Debug("procedure completed",
		zap.String("export", export),
		zap.Uint32("args_bytes", size),
		zap.Uint32("result_bytes", outSize),
	)
	return nil
}
