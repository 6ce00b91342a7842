package sftpinbox

import (
	"context"

	"golang.org/x/crypto/ssh"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// Prober is the preflight probe for the SFTP inbox: one SSH handshake,
// no retries.
type Prober struct {
	dial   dialFunc
	cfg    *ssh.ClientConfig
	addr   string
	cfgErr error
}

func NewProber(params domain.Params) *Prober {
	cfg, addr, err := clientConfig(params)
	return &Prober{dial: dialSSH, cfg: cfg, addr: addr, cfgErr: err}
}

var _ ports.ServiceProber = (*Prober)(nil)

func (p *Prober) Name() string { return "inbox" }

func (p *Prober) Probe(ctx context.Context) error {
	if p.cfgErr != nil {
		return p.cfgErr
	}
	c, err := p.dial(ctx, p.addr, p.cfg)
	if err != nil {
		return err
	}
	return c.Close()
}
