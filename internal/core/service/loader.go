package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Pluto-lin/magma/internal/core/domain"
)

// CompositeLoader fans a scoped load out to the loaders registered for
// each part of the scope and merges their payloads. Parts run in
// parallel. Scope bits with no registered loader load as empty.
type CompositeLoader struct {
	parts []loaderPart
}

type loaderPart struct {
	scope  domain.Scope
	loader Loader
}

// NewCompositeLoader creates an empty CompositeLoader.
func NewCompositeLoader() *CompositeLoader {
	return &CompositeLoader{}
}

// Register routes the bits of scope to l. Later registrations win for
// overlapping bits.
func (c *CompositeLoader) Register(scope domain.Scope, l Loader) *CompositeLoader {
	for i := range c.parts {
		c.parts[i].scope &^= scope
	}
	c.parts = append(c.parts, loaderPart{scope: scope, loader: l})
	return c
}

// Load implements Loader.
func (c *CompositeLoader) Load(ctx context.Context, username string, scope domain.Scope) (*domain.Payload, error) {
	results := make([]*domain.Payload, len(c.parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range c.parts {
		want := part.scope & scope
		if want == 0 {
			continue
		}
		g.Go(func() error {
			p, err := part.loader.Load(gctx, username, want)
			if err != nil {
				return fmt.Errorf("load %s: %w", want, err)
			}
			if p != nil {
				p.Scope = want
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.Payload{}
	for _, p := range results {
		out.Merge(p)
	}
	out.Scope |= scope
	return out, nil
}

// Release implements Loader. Every registered loader is released; errors
// are joined.
func (c *CompositeLoader) Release(ctx context.Context, username string) error {
	var errs []error
	for _, part := range c.parts {
		if err := part.loader.Release(ctx, username); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
