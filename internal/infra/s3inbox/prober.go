package s3inbox

import (
	"context"
	"fmt"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// Prober is the preflight probe for the S3 inbox: one BucketExists call.
type Prober struct {
	connect connectFunc
	params  domain.Params
}

func NewProber(params domain.Params) *Prober {
	return &Prober{connect: connectMinio, params: params}
}

var _ ports.ServiceProber = (*Prober)(nil)

func (p *Prober) Name() string { return "s3" }

func (p *Prober) Probe(ctx context.Context) error {
	s, err := p.connect(p.params)
	if err != nil {
		return err
	}

	bucket := p.params["bucket"]
	ok, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", bucket)
	}
	return nil
}
