package wasm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/median-kliniken/kannader/pkg/guest"
	"github.com/median-kliniken/kannader/pkg/policy"
	"github.com/median-kliniken/kannader/pkg/schema"
	"github.com/median-kliniken/kannader/pkg/wire"
)

// fakeMemory is a fixed-size linear memory.
type fakeMemory struct {
	data []byte
}

func newFakeMemory(size uint32) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.data)) }

func (m *fakeMemory) Read(offset, count uint32) ([]byte, bool) {
	if uint64(offset)+uint64(count) > uint64(len(m.data)) {
		return nil, false
	}
	return m.data[offset : offset+count], true
}

func (m *fakeMemory) Write(offset uint32, p []byte) bool {
	if uint64(offset)+uint64(len(p)) > uint64(len(m.data)) {
		return false
	}
	copy(m.data[offset:], p)
	return true
}

type fakeFunc func(ctx context.Context, params ...uint64) ([]uint64, error)

func (f fakeFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	return f(ctx, params...)
}

// fakeGuest implements the exports seam over a real dispatcher, with a
// bump allocator in a fake linear memory. It stands in for a compiled
// module so the whole call path runs without wasm.
type fakeGuest struct {
	mem  *fakeMemory
	next uint32
	d    *guest.Dispatcher

	frees    int
	closed   bool
	missing  map[string]bool
	badSig   map[string]bool
	override map[string]fakeFunc
}

func newFakeGuest(factory guest.Factory) *fakeGuest {
	return &fakeGuest{
		mem:      newFakeMemory(1 << 16),
		next:     8,
		d:        guest.NewDispatcher(factory),
		missing:  make(map[string]bool),
		badSig:   make(map[string]bool),
		override: make(map[string]fakeFunc),
	}
}

func (g *fakeGuest) alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	ptr := g.next
	g.next += size
	return ptr
}

func (g *fakeGuest) Memory() (linearMemory, error) { return g.mem, nil }

func (g *fakeGuest) Close(ctx context.Context) error {
	g.closed = true
	return nil
}

func (g *fakeGuest) Function(name string, want funcSig) (guestFunc, error) {
	if g.missing[name] {
		return nil, &MissingExportError{Export: name}
	}
	if g.badSig[name] {
		return nil, &SignatureMismatchError{Export: name, Want: want.String(), Got: "(i32) -> ()"}
	}
	// Overrides are looked up per call so tests can install them after
	// the client has resolved its exports.
	return fakeFunc(func(ctx context.Context, params ...uint64) ([]uint64, error) {
		if fn, ok := g.override[name]; ok {
			return fn(ctx, params...)
		}
		switch name {
		case schema.ExportAllocate:
			return []uint64{uint64(g.alloc(uint32(params[0])))}, nil
		case schema.ExportDeallocate:
			g.frees++
			return nil, nil
		case schema.ExportSetup:
			args, _ := g.mem.Read(uint32(params[0]), uint32(params[1]))
			if err := g.d.Setup(append([]byte(nil), args...)); err != nil {
				return nil, err
			}
			return nil, nil
		default:
			args, _ := g.mem.Read(uint32(params[0]), uint32(params[1]))
			out, err := g.d.Invoke(name, append([]byte(nil), args...))
			if err != nil {
				return nil, err
			}
			if len(out) == 0 {
				return []uint64{0}, nil
			}
			ptr := g.alloc(uint32(len(out)))
			copy(g.mem.data[ptr:], out)
			return []uint64{uint64(len(out))<<32 | uint64(ptr)}, nil
		}
	}), nil
}

// bannerPolicy stamps the connection so tests can watch the mutable
// echo travel the whole host-to-guest round trip.
type bannerPolicy struct {
	policy.Defaults
}

func (bannerPolicy) WelcomeBannerReply(cm *policy.ConnMeta) policy.Reply {
	cm.UserData = append(cm.UserData, "welcomed"...)
	return policy.Reply{Code: 220, Text: []policy.MaybeUTF8{policy.UTF8("mx ready")}}
}

func (bannerPolicy) FilterHello(isEhlo bool, hostname policy.Hostname, cm *policy.ConnMeta) policy.Decision[policy.HelloInfo] {
	return policy.Accepted(policy.Reply{Code: 250, Text: []policy.MaybeUTF8{policy.UTF8("ok")}},
		policy.HelloInfo{IsEhlo: isEhlo, Hostname: hostname})
}

func (bannerPolicy) NewMail(cm *policy.ConnMeta) []byte { return nil }

func (bannerPolicy) FilterFrom(from *policy.Email, mm *policy.MailMeta, cm *policy.ConnMeta) policy.Decision[wire.Option[policy.Email]] {
	if from == nil {
		return policy.Rejected[wire.Option[policy.Email]](policy.BadSequence())
	}
	mm.From = from
	return policy.Accepted(policy.Reply{Code: 250, Text: []policy.MaybeUTF8{policy.UTF8("sender ok")}}, wire.Some(*from))
}

func (bannerPolicy) FilterTo(to policy.Email, mm *policy.MailMeta, cm *policy.ConnMeta) policy.Decision[policy.Email] {
	mm.To = append(mm.To, to)
	return policy.Accepted(policy.Reply{Code: 250, Text: []policy.MaybeUTF8{policy.UTF8("recipient ok")}}, to)
}

func newConfiguredClient(t *testing.T) (*Client, *fakeGuest) {
	t.Helper()
	g := newFakeGuest(func(string) (policy.ServerPolicy, error) {
		return bannerPolicy{}, nil
	})
	c, err := NewClient(g, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, c.Setup(context.Background(), "/etc/kannader/policy.yaml"))
	return c, g
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := newConfiguredClient(t)
	ctx := context.Background()

	cm := policy.ConnMeta{IsEncrypted: false}
	reply, err := c.WelcomeBannerReply(ctx, &cm)
	require.NoError(t, err)
	require.Equal(t, uint16(220), reply.Code)
	require.Equal(t, []byte("welcomed"), cm.UserData)

	hostname, err := policy.ParseHostname("relay.example.com")
	require.NoError(t, err)
	dec, err := c.FilterHello(ctx, true, hostname, &cm)
	require.NoError(t, err)
	require.Equal(t, policy.KindAccept, dec.Kind)
	require.Equal(t, "relay.example.com", dec.Res.Hostname.Raw)
}

func TestClientFilterFrom(t *testing.T) {
	c, _ := newConfiguredClient(t)
	ctx := context.Background()

	from, err := policy.ParseEmail("sender@example.org")
	require.NoError(t, err)
	var mm policy.MailMeta
	var cm policy.ConnMeta

	dec, err := c.FilterFrom(ctx, &from, &mm, &cm)
	require.NoError(t, err)
	require.Equal(t, policy.KindAccept, dec.Kind)
	require.True(t, dec.Res.Set)
	require.NotNil(t, mm.From)
	require.Equal(t, "sender@example.org", mm.From.String())

	dec, err = c.FilterFrom(ctx, nil, &mm, &cm)
	require.NoError(t, err)
	require.Equal(t, policy.KindReject, dec.Kind)
	require.Equal(t, uint16(503), dec.Reply.Code)
}

func TestClientZeroSizeArgs(t *testing.T) {
	c, _ := newConfiguredClient(t)

	millis, err := c.ReplyWriteTimeoutMillis(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(5*60*1000), millis)
}

func TestClientDefaultedProcedures(t *testing.T) {
	c, _ := newConfiguredClient(t)
	ctx := context.Background()

	var cm policy.ConnMeta
	reply, err := c.RcptBeforeMail(ctx, &cm)
	require.NoError(t, err)
	require.Equal(t, uint16(503), reply.Code)

	dec, err := c.HandleQuit(ctx, &cm)
	require.NoError(t, err)
	require.Equal(t, policy.KindKill, dec.Kind)
	require.NotNil(t, dec.KillReply)
	require.Equal(t, uint16(221), dec.KillReply.Code)
}

func TestClientFreesResultBuffers(t *testing.T) {
	c, g := newConfiguredClient(t)

	var cm policy.ConnMeta
	_, err := c.WelcomeBannerReply(context.Background(), &cm)
	require.NoError(t, err)
	require.Equal(t, 1, g.frees)
}

func TestSetupLegalExactlyOnce(t *testing.T) {
	c, _ := newConfiguredClient(t)

	err := c.Setup(context.Background(), "/etc/kannader/policy.yaml")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, StateConfigured, stateErr.State)
	require.Equal(t, StateConfigured, c.State())
}

func TestProcedureBeforeSetup(t *testing.T) {
	g := newFakeGuest(func(string) (policy.ServerPolicy, error) {
		return bannerPolicy{}, nil
	})
	c, err := NewClient(g, zaptest.NewLogger(t))
	require.NoError(t, err)

	var cm policy.ConnMeta
	_, err = c.WelcomeBannerReply(context.Background(), &cm)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, StateUninitialized, stateErr.State)
}

func TestMissingExportRejectedAtBuild(t *testing.T) {
	g := newFakeGuest(func(string) (policy.ServerPolicy, error) {
		return bannerPolicy{}, nil
	})
	g.missing[schema.ProcFilterData] = true

	_, err := NewClient(g, zaptest.NewLogger(t))
	var missing *MissingExportError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, schema.ProcFilterData, missing.Export)
}

func TestSignatureMismatchRejectedAtBuild(t *testing.T) {
	g := newFakeGuest(func(string) (policy.ServerPolicy, error) {
		return bannerPolicy{}, nil
	})
	g.badSig[schema.ExportAllocate] = true

	_, err := NewClient(g, zaptest.NewLogger(t))
	var mismatch *SignatureMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, schema.ExportAllocate, mismatch.Export)
}

func TestGuestTrapFaultsInstance(t *testing.T) {
	c, g := newConfiguredClient(t)
	ctx := context.Background()

	boom := errors.New("unreachable executed")
	g.override[schema.ProcNewMail] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		return nil, boom
	}

	var cm policy.ConnMeta
	_, err := c.NewMail(ctx, &cm)
	var trap *GuestTrapError
	require.ErrorAs(t, err, &trap)
	require.Equal(t, StateFaulted, c.State())

	// Faulted is terminal: every further call is rejected without
	// touching the module.
	_, err = c.WelcomeBannerReply(ctx, &cm)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, StateFaulted, stateErr.State)
}

func TestBoundsViolationFaultsInstance(t *testing.T) {
	c, g := newConfiguredClient(t)

	// Report a result buffer far outside linear memory.
	g.override[schema.ProcCanDoTLS] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		return []uint64{uint64(16)<<32 | uint64(1<<30)}, nil
	}

	_, err := c.CanDoTLS(context.Background(), policy.ConnMeta{})
	var bounds *BoundsViolationError
	require.ErrorAs(t, err, &bounds)
	require.Equal(t, StateFaulted, c.State())
}

func TestAllocationFailure(t *testing.T) {
	g := newFakeGuest(func(string) (policy.ServerPolicy, error) {
		return bannerPolicy{}, nil
	})
	g.override[schema.ExportAllocate] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		return []uint64{0}, nil
	}
	c, err := NewClient(g, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = c.Setup(context.Background(), "/etc/kannader/policy.yaml")
	var alloc *AllocationFailureError
	require.ErrorAs(t, err, &alloc)
	// Allocation failure is recoverable: the instance is not faulted.
	require.Equal(t, StateUninitialized, c.State())
}

func TestMalformedResponseKeepsInstanceAlive(t *testing.T) {
	c, g := newConfiguredClient(t)
	ctx := context.Background()

	// Return a valid buffer holding garbage.
	g.override[schema.ProcCanDoTLS] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		ptr := g.alloc(3)
		copy(g.mem.data[ptr:], []byte{9, 9, 9})
		return []uint64{uint64(3)<<32 | uint64(ptr)}, nil
	}

	_, err := c.CanDoTLS(ctx, policy.ConnMeta{})
	var enc *EncodingError
	require.ErrorAs(t, err, &enc)
	require.Equal(t, StateConfigured, c.State())

	// The instance keeps serving other procedures.
	var cm policy.ConnMeta
	_, err = c.WelcomeBannerReply(ctx, &cm)
	require.NoError(t, err)
}

func TestAllocatorOutOfRangeFaultsInstance(t *testing.T) {
	g := newFakeGuest(func(string) (policy.ServerPolicy, error) {
		return bannerPolicy{}, nil
	})
	g.override[schema.ExportAllocate] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		return []uint64{1 << 30}, nil
	}
	c, err := NewClient(g, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = c.Setup(context.Background(), "/etc/kannader/policy.yaml")
	var bounds *BoundsViolationError
	require.ErrorAs(t, err, &bounds)
	require.Equal(t, StateFaulted, c.State())
}

func TestCloseReleasesModule(t *testing.T) {
	c, g := newConfiguredClient(t)
	ctx := context.Background()

	require.NoError(t, c.Close(ctx))
	require.True(t, g.closed)
	require.Equal(t, StateClosed, c.State())

	// Closed is terminal: further calls are rejected cleanly.
	var cm policy.ConnMeta
	_, err := c.WelcomeBannerReply(ctx, &cm)
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, StateClosed, stateErr.State)

	// Double close is a no-op.
	require.NoError(t, c.Close(ctx))
}

func TestFaultedClientStillCloses(t *testing.T) {
	c, g := newConfiguredClient(t)
	ctx := context.Background()

	g.override[schema.ProcNewMail] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		return nil, errors.New("unreachable executed")
	}
	var cm policy.ConnMeta
	_, err := c.NewMail(ctx, &cm)
	require.Error(t, err)
	require.Equal(t, StateFaulted, c.State())

	// Faulting rejects calls but frees nothing; only Close releases
	// the module and its linear memory.
	require.False(t, g.closed)
	require.NoError(t, c.Close(ctx))
	require.True(t, g.closed)
}

func TestMutablesUntouchedOnMalformedResponse(t *testing.T) {
	c, g := newConfiguredClient(t)
	ctx := context.Background()

	// Respond with a well-formed reply but no echoed connection
	// metadata, so the tuple decode fails partway through.
	g.override[schema.ProcWelcomeBannerReply] = func(ctx context.Context, params ...uint64) ([]uint64, error) {
		out, err := wire.Encode(policy.Reply{Code: 220, Text: []policy.MaybeUTF8{policy.UTF8("hi")}})
		if err != nil {
			return nil, err
		}
		ptr := g.alloc(uint32(len(out)))
		copy(g.mem.data[ptr:], out)
		return []uint64{uint64(len(out))<<32 | uint64(ptr)}, nil
	}

	cm := policy.ConnMeta{IsEncrypted: true, UserData: []byte("session-state")}
	_, err := c.WelcomeBannerReply(ctx, &cm)
	var enc *EncodingError
	require.ErrorAs(t, err, &enc)

	require.True(t, cm.IsEncrypted)
	require.Equal(t, []byte("session-state"), cm.UserData)
}
