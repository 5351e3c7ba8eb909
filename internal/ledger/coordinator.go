package ledger

import "sync"

// Coordinator makes every mutating operation appear atomic and serialized.
// A single mutex admits one operation at a time, a whole-store snapshot taken
// before the work runs is restored if the work fails. There is no separate
// commit step: writes already applied to the store are the commit.
type Coordinator struct {
	mu    sync.Mutex
	store Store
}

func NewCoordinator(st Store) *Coordinator {
	return &Coordinator{store: st}
}

// RunExclusive runs work under the global serializer with snapshot rollback.
// Callers observe either the work's full effect or none of it. A panic
// inside work also restores the snapshot before propagating, so a defect in
// one operation cannot leave partial state for the ones queued behind it.
func (c *Coordinator) RunExclusive(work func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.store.Snapshot()

	defer func() {
		if r := recover(); r != nil {
			c.store.Restore(snap)
			panic(r)
		}
	}()

	if err := work(); err != nil {
		c.store.Restore(snap)
		return err
	}

	return nil
}

// runExclusive passes a result value through RunExclusive.
func runExclusive[T any](c *Coordinator, work func() (T, error)) (T, error) {
	var out T

	err := c.RunExclusive(func() error {
		var err error
		out, err = work()

		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return out, nil
}
