package apiprobe

import (
	"context"
	"fmt"
	"net/http"

	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// Prober is the preflight probe for an HTTP endpoint. Any response counts
// as reachable; 5xx means the service is up but unhealthy.
type Prober struct {
	client *http.Client
	url    string
}

func NewProber(client *http.Client, url string) *Prober {
	return &Prober{client: client, url: url}
}

var _ ports.ServiceProber = (*Prober)(nil)

func (p *Prober) Name() string { return "api" }

func (p *Prober) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("endpoint %s unhealthy: status %d", p.url, resp.StatusCode)
	}
	return nil
}
