package mqprobe

import (
	"context"

	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// Prober is the preflight probe for the broker: one connection handshake.
type Prober struct {
	connect connectFunc
	uri     string
}

func NewProber(uri string) *Prober {
	return &Prober{connect: connectAMQP, uri: uri}
}

var _ ports.ServiceProber = (*Prober)(nil)

func (p *Prober) Name() string { return "mq" }

func (p *Prober) Probe(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		b, err := p.connect(p.uri)
		if err != nil {
			done <- err
			return
		}
		done <- b.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
