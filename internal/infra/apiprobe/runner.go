// Package apiprobe runs api checks: an HTTP request followed by status,
// latency, and JSONPath assertions plus variable extraction from the body.
package apiprobe

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/httpclient"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
	"github.com/neicnordic/LocalEGA-tester/internal/usecase/assert"
	"github.com/neicnordic/LocalEGA-tester/internal/usecase/extract"
)

const defaultMaxBodyBytes = 256 * 1024 // 256KB

type Runner struct {
	client       *http.Client
	maxBodyBytes int64
	resolver     *domain.VarResolver
}

type Option func(*Runner)

func WithMaxBodyBytes(n int64) Option {
	return func(r *Runner) { r.maxBodyBytes = n }
}

func WithResolver(vr *domain.VarResolver) Option {
	return func(r *Runner) { r.resolver = vr }
}

func New(client *http.Client, opts ...Option) *Runner {
	r := &Runner{
		client:       client,
		maxBodyBytes: defaultMaxBodyBytes,
		resolver:     domain.NewVarResolver(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.KindRunner = (*Runner)(nil)

func (r *Runner) Kinds() []domain.CheckKind {
	return []domain.CheckKind{domain.CheckAPI}
}

func (r *Runner) Run(ctx context.Context, check domain.CheckSpec, vars domain.Vars) (domain.CheckResult, error) {
	rt, err := r.resolver.NewRuntime(vars)
	if err != nil {
		return domain.CheckResult{}, err
	}

	resolved, err := rt.ResolveCheck(check)
	if err != nil {
		// Config-level issue: missing var, invalid placeholder, etc.
		return domain.CheckResult{}, err
	}

	result := domain.CheckResult{
		Name:   resolved.Name,
		Kind:   resolved.Kind,
		Detail: map[string]string{},
	}

	httpReq, err := httpclient.BuildRequest(ctx, resolved)
	if err != nil {
		return domain.CheckResult{}, err
	}

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		result.Error = domain.NewRunError(err)
		return result, nil
	}
	defer resp.Body.Close()

	body, truncated, readErr := readBounded(resp.Body, r.maxBodyBytes)
	if readErr != nil {
		result.Error = domain.NewRunError(readErr)
		return result, nil
	}

	result.Detail["status"] = strconv.Itoa(resp.StatusCode)
	result.Detail["url"] = resolved.Params["url"]
	if truncated {
		result.Detail["body_truncated"] = "true"
	}

	result.Assertions = assert.Evaluate(resolved.Assert, resp.StatusCode, result.LatencyMS, body)

	if len(resolved.Extract) > 0 {
		extracted, extractResults := extract.FromJSON(body, resolved.Extract)
		result.Extracted = extracted
		result.Extracts = extractResults
	}

	return result, nil
}

func readBounded(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	lim := io.LimitReader(r, maxBytes+1)
	b, err := io.ReadAll(lim)
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}
