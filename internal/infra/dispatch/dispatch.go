// Package dispatch routes checks to the runner registered for their kind.
package dispatch

import (
	"context"
	"fmt"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

type Dispatcher struct {
	runners map[domain.CheckKind]ports.CheckRunner
}

// New builds a dispatcher from kind runners. Registering two runners for
// the same kind is a wiring bug and returns an error.
func New(runners ...ports.KindRunner) (*Dispatcher, error) {
	d := &Dispatcher{runners: map[domain.CheckKind]ports.CheckRunner{}}
	for _, r := range runners {
		for _, kind := range r.Kinds() {
			if _, dup := d.runners[kind]; dup {
				return nil, fmt.Errorf("dispatch: duplicate runner for kind %q", kind)
			}
			d.runners[kind] = r
		}
	}
	return d, nil
}

var _ ports.CheckRunner = (*Dispatcher)(nil)

func (d *Dispatcher) Run(ctx context.Context, check domain.CheckSpec, vars domain.Vars) (domain.CheckResult, error) {
	r, ok := d.runners[check.Kind]
	if !ok {
		return domain.CheckResult{}, &domain.OpError{
			Op:   "dispatch.run",
			Kind: domain.KindInvalidConfig,
			Err:  fmt.Errorf("%w: %s", domain.ErrUnknownKind, check.Kind),
		}
	}
	return r.Run(ctx, check, vars)
}

// Kinds lists every kind with a registered runner.
func (d *Dispatcher) Kinds() []domain.CheckKind {
	out := make([]domain.CheckKind, 0, len(d.runners))
	for k := range d.runners {
		out = append(out, k)
	}
	return out
}
