package continuity

import (
	"fmt"
	"sync"
)

// Instance identifies one connectable endpoint within a redundancy pool.
type Instance struct {
	Name    string
	Address string
}

// Handle is returned to callers requesting a connection. It is
// invalidated (Valid becomes false) if the pool fails over away from
// the instance it points at.
type Handle struct {
	mu       *sync.Mutex
	instance *Instance
	epoch    int
	pool     *RedundancyPool
}

// Valid reports whether the handle's instance is still the pool's
// active instance.
func (h *Handle) Valid() bool {
	h.pool.mu.Lock()
	defer h.pool.mu.Unlock()
	return h.epoch == h.pool.epoch
}

// Instance returns the underlying instance this handle points at,
// regardless of validity.
func (h *Handle) Instance() Instance {
	return *h.instance
}

// RedundancyPool holds a primary/secondary instance pair and an active
// selection; existing handles are invalidated the moment the pool fails
// over, so callers must re-request a connection rather than keep using a
// stale handle.
type RedundancyPool struct {
	mu        sync.Mutex
	name      string
	primary   Instance
	secondary Instance
	active    *Instance
	epoch     int
}

// NewRedundancyPool creates a pool with the primary instance active.
func NewRedundancyPool(name string, primary, secondary Instance) *RedundancyPool {
	p := &RedundancyPool{name: name, primary: primary, secondary: secondary}
	p.active = &p.primary
	return p
}

// Connect returns a handle to the pool's currently active instance.
func (p *RedundancyPool) Connect() *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &Handle{mu: &p.mu, instance: p.active, epoch: p.epoch, pool: p}
}

// FailOver switches the active instance to whichever of primary/
// secondary isn't currently active, invalidating every handle issued
// against the old active instance.
func (p *RedundancyPool) FailOver() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == &p.secondary {
		return fmt.Errorf("continuity: pool %s is already on its secondary instance", p.name)
	}
	p.active = &p.secondary
	p.epoch++
	return nil
}

// Recover switches the active instance back to primary, invalidating
// handles issued against the secondary.
func (p *RedundancyPool) Recover() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == &p.primary {
		return fmt.Errorf("continuity: pool %s is already on its primary instance", p.name)
	}
	p.active = &p.primary
	p.epoch++
	return nil
}

// ActiveInstance reports which instance the pool currently serves
// connections from.
func (p *RedundancyPool) ActiveInstance() Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.active
}
