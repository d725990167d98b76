package txn

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type ctxPoolKey struct{}

// Pool is a bounded worker pool backing the cooperative scope entry point (Go) and the
// offloading of hooks declared blocking under it, grounded on errgroup.Group the way
// the teacher's task runner wraps one for its own concurrent work.
type Pool struct {
	g *errgroup.Group
}

// NewPool builds a Pool bounded to concurrency simultaneous tasks (0 means unbounded)
// and returns the context.Context its tasks should observe for cancellation. Tasks
// submitted through Submit never report an error to the group, so that context is
// cancelled only when ctx is cancelled or Wait returns.
func NewPool(ctx context.Context, concurrency int) (*Pool, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	return &Pool{g: g}, gctx
}

// Submit runs fn on the pool. When the pool is at its concurrency limit, Submit blocks
// the caller until a slot frees up.
func (p *Pool) Submit(fn func()) {
	p.g.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every task submitted to the pool has returned.
func (p *Pool) Wait() error {
	return p.g.Wait()
}

// WithPool attaches pool to ctx so nested cooperative scopes and hook offloading can
// find it via poolFromContext.
func WithPool(ctx context.Context, pool *Pool) context.Context {
	return context.WithValue(ctx, ctxPoolKey{}, pool)
}

func poolFromContext(ctx context.Context) *Pool {
	p, _ := ctx.Value(ctxPoolKey{}).(*Pool)
	return p
}

// runOffloaded runs fn on the pool attached to ctx, if any, blocking until it finishes
// or ctx is cancelled first; with no pool attached it simply runs fn inline. This is
// the offload path runHook takes for a hook declared blocking (Cooperative == false)
// while a cooperative scope is in progress, keeping the pool's scheduler unstarved.
func runOffloaded(ctx context.Context, fn func() error) error {
	pool := poolFromContext(ctx)
	if pool == nil {
		return fn()
	}
	errCh := make(chan error, 1)
	pool.Submit(func() {
		errCh <- fn()
	})
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
