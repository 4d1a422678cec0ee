package bundle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/internal/wasm"
)

// PoolExhaustedError occurs when a checkout would exceed the configured
// instance limit.
type PoolExhaustedError struct {
	BundleName string
	Limit      int
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("instance pool for bundle '%s' exhausted (limit %d)", e.BundleName, e.Limit)
}

// Pool hands out configured policy clients for one bundle, capped at a
// fixed number of live instances. Clients are not reused across
// checkouts once faulted; Put discards a faulted client and frees its
// slot, so the next Get spawns a replacement.
type Pool struct {
	manager *Manager
	name    string
	limit   int
	logger  *zap.Logger

	mu     sync.Mutex
	idle   []*wasm.Client
	active int
}

// NewPool creates a pool for the named bundle. limit must be positive.
func NewPool(manager *Manager, name string, limit int, logger *zap.Logger) (*Pool, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("pool limit must be positive, got %d", limit)
	}
	if _, err := manager.GetBundle(name); err != nil {
		return nil, err
	}
	return &Pool{
		manager: manager,
		name:    name,
		limit:   limit,
		logger:  logger.With(zap.String("component", "bundle-pool"), zap.String("bundle", name)),
	}, nil
}

// Get checks out a configured client, spawning a fresh instance when no
// idle one is available.
func (p *Pool) Get(ctx context.Context) (*wasm.Client, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		client := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return client, nil
	}
	if p.active >= p.limit {
		p.mu.Unlock()
		return nil, &PoolExhaustedError{BundleName: p.name, Limit: p.limit}
	}
	p.active++
	p.mu.Unlock()

	client, err := p.manager.Spawn(ctx, p.name)
	if err != nil {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
		return nil, err
	}
	return client, nil
}

// Put returns a client to the pool. Faulted clients are closed so the
// runtime drops their module and its linear memory; their slot frees up
// for a replacement instance.
func (p *Pool) Put(client *wasm.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client.State() != wasm.StateConfigured {
		p.active--
		if err := client.Close(context.Background()); err != nil {
			p.logger.Warn("failed to close discarded instance", zap.Error(err))
		}
		p.logger.Info("discarded faulted instance", zap.Int("active", p.active))
		return
	}
	p.idle = append(p.idle, client)
}

// Close releases every idle client. Checked-out clients are closed by
// whoever holds them.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, c := range p.idle {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		p.active--
	}
	p.idle = nil
	return errors.Join(errs...)
}

// Active reports the number of live instances, idle or checked out.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
