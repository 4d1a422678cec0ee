// Package guest is the policy-module side of the call bridge. The
// Dispatcher decodes argument tuples, routes them to a ServerPolicy
// implementation, and re-encodes results together with the post-call
// values of mutable parameters. The wasm entry points themselves live in
// exports_wasip1.go and only exist when building for wasip1; everything
// else in this package is plain Go so the dispatch path is testable on
// the host.
package guest

import (
	"errors"
	"fmt"

	"github.com/median-kliniken/kannader/pkg/policy"
	"github.com/median-kliniken/kannader/pkg/schema"
	"github.com/median-kliniken/kannader/pkg/wire"
)

var (
	// ErrAlreadyConfigured is returned by Setup when the module already
	// holds a configuration. At most one Setup succeeds per instance.
	ErrAlreadyConfigured = errors.New("guest: setup already ran")

	// ErrNotConfigured is returned when a procedure is invoked before a
	// successful Setup.
	ErrNotConfigured = errors.New("guest: setup has not run")
)

// Factory builds the policy from the configuration path delivered by
// Setup. It runs exactly once per module instance.
type Factory func(path string) (policy.ServerPolicy, error)

// handler decodes one procedure's argument tuple, invokes the policy, and
// encodes the (result, mutables...) tuple.
type handler func(p policy.ServerPolicy, args []byte) ([]byte, error)

// Dispatcher routes boundary calls to a ServerPolicy.
type Dispatcher struct {
	factory  Factory
	handlers map[string]handler
	policy   policy.ServerPolicy
}

// NewDispatcher builds a dispatcher for the server-config registry.
func NewDispatcher(factory Factory) *Dispatcher {
	d := &Dispatcher{factory: factory, handlers: procHandlers()}
	for _, p := range schema.ServerConfig() {
		if _, ok := d.handlers[p.Export]; !ok {
			// Unreachable unless the registry and the handler table
			// diverge, which is a bug in this package.
			panic(fmt.Sprintf("guest: no handler for registry procedure %q", p.Export))
		}
	}
	return d
}

// Configured reports whether Setup has succeeded.
func (d *Dispatcher) Configured() bool { return d.policy != nil }

// Setup consumes the one-time configuration payload (a filesystem path)
// and constructs the policy. A second call fails without touching the
// existing configuration.
func (d *Dispatcher) Setup(args []byte) error {
	if d.policy != nil {
		return ErrAlreadyConfigured
	}
	var path wire.String
	if err := wire.Decode(args, &path); err != nil {
		return fmt.Errorf("guest: decoding setup payload: %w", err)
	}
	p, err := d.factory(string(path))
	if err != nil {
		return fmt.Errorf("guest: building policy from %q: %w", string(path), err)
	}
	d.policy = p
	return nil
}

// Invoke runs one procedure against the configured policy. args is the
// raw argument tuple; the returned bytes are the encoded result tuple.
func (d *Dispatcher) Invoke(export string, args []byte) ([]byte, error) {
	h, ok := d.handlers[export]
	if !ok {
		return nil, fmt.Errorf("guest: unknown procedure %q", export)
	}
	if d.policy == nil {
		return nil, ErrNotConfigured
	}
	out, err := h(d.policy, args)
	if err != nil {
		return nil, fmt.Errorf("guest: %s: %w", export, err)
	}
	return out, nil
}
