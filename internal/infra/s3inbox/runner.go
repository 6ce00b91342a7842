// Package s3inbox runs s3_upload and s3_remove checks against an
// S3-backed inbox bucket.
package s3inbox

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/logger"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/stager"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

const (
	defaultRetryInterval = 2 * time.Second
	defaultDeadline      = 4 * time.Hour
)

// store abstracts the object operations so tests can fake the S3 client.
type store interface {
	FPutObject(ctx context.Context, bucket, object, filePath string) (int64, error)
	RemoveObject(ctx context.Context, bucket, object string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

type connectFunc func(params domain.Params) (store, error)

type Runner struct {
	resolver      *domain.VarResolver
	connect       connectFunc
	retryInterval time.Duration
	deadline      time.Duration
}

type Option func(*Runner)

func WithResolver(vr *domain.VarResolver) Option {
	return func(r *Runner) { r.resolver = vr }
}

func WithRetryInterval(d time.Duration) Option {
	return func(r *Runner) { r.retryInterval = d }
}

func WithDeadline(d time.Duration) Option {
	return func(r *Runner) { r.deadline = d }
}

func withConnect(c connectFunc) Option {
	return func(r *Runner) { r.connect = c }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		resolver:      domain.NewVarResolver(),
		connect:       connectMinio,
		retryInterval: defaultRetryInterval,
		deadline:      defaultDeadline,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.KindRunner = (*Runner)(nil)

func (r *Runner) Kinds() []domain.CheckKind {
	return []domain.CheckKind{domain.CheckS3Upload, domain.CheckS3Remove}
}

func (r *Runner) Run(ctx context.Context, check domain.CheckSpec, vars domain.Vars) (domain.CheckResult, error) {
	rt, err := r.resolver.NewRuntime(vars)
	if err != nil {
		return domain.CheckResult{}, err
	}

	resolved, err := rt.ResolveCheck(check)
	if err != nil {
		return domain.CheckResult{}, err
	}

	result := domain.CheckResult{
		Name:   resolved.Name,
		Kind:   resolved.Kind,
		Detail: map[string]string{},
	}

	bucket := resolved.Params["bucket"]
	if bucket == "" {
		return domain.CheckResult{}, &domain.OpError{
			Op:   "s3inbox.run",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.bucket must not be empty"),
		}
	}

	s, err := r.connect(resolved.Params)
	if err != nil {
		return domain.CheckResult{}, err
	}

	// The check's timeout (when set) arrives as a context deadline from the
	// caller; otherwise the runner's own deadline bounds the retry loop.
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.deadline)
		defer cancel()
	}

	interval := r.retryInterval
	if resolved.RetryS > 0 {
		interval = time.Duration(resolved.RetryS) * time.Second
	}

	start := time.Now()
	bo := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	err = backoff.Retry(func() error {
		switch resolved.Kind {
		case domain.CheckS3Upload:
			return r.upload(ctx, s, bucket, resolved.Params, result.Detail)
		case domain.CheckS3Remove:
			return r.remove(ctx, s, bucket, resolved.Params)
		default:
			return backoff.Permanent(&domain.OpError{
				Op:   "s3inbox.run",
				Kind: domain.KindInvalidConfig,
				Err:  domain.ErrUnknownKind,
			})
		}
	}, bo)
	result.LatencyMS = time.Since(start).Milliseconds()

	result.Detail["bucket"] = bucket
	if err != nil {
		result.Error = domain.NewRunError(err)
	}
	return result, nil
}

func (r *Runner) upload(ctx context.Context, s store, bucket string, params domain.Params, detail map[string]string) error {
	source := params["source"]
	if _, err := os.Stat(source); err != nil {
		return backoff.Permanent(&domain.OpError{
			Op:   "s3inbox.upload",
			Kind: domain.KindNotFound,
			Path: source,
			Err:  err,
		})
	}

	object := objectName(params)
	n, err := s.FPutObject(ctx, bucket, object, source)
	if err != nil {
		return classify(err)
	}

	detail["remote_path"] = object
	detail["size_bytes"] = strconv.FormatInt(n, 10)
	logger.L().Info("s3inbox.uploaded", "bucket", bucket, "object", object, "bytes", n)
	return nil
}

func (r *Runner) remove(ctx context.Context, s store, bucket string, params domain.Params) error {
	object := params["remote_path"]
	if object == "" {
		return backoff.Permanent(&domain.OpError{
			Op:   "s3inbox.remove",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.remote_path must not be empty"),
		})
	}

	if err := s.RemoveObject(ctx, bucket, object); err != nil {
		return classify(err)
	}
	logger.L().Info("s3inbox.removed", "bucket", bucket, "object", object)
	return nil
}

// objectName picks the object key: the remote_path param when set, otherwise
// the source's base name with its extension swapped for the container
// extension. Ingestion matches inbox entries by that name.
func objectName(params domain.Params) string {
	if rp := params["remote_path"]; rp != "" {
		return rp
	}
	base := path.Base(filepath.ToSlash(params["source"]))
	return strings.TrimSuffix(base, path.Ext(base)) + stager.EncryptedExt
}

// S3 error codes that no amount of retrying will fix.
var permanentS3Codes = map[string]bool{
	"NoSuchBucket":          true,
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"InvalidBucketName":     true,
	"AllAccessDisabled":     true,
	"EntityTooLarge":        true,
	"MethodNotAllowed":      true,
}

// classify stops the retry loop on S3 errors that will never succeed.
func classify(err error) error {
	resp := minio.ToErrorResponse(err)
	if permanentS3Codes[resp.Code] {
		return backoff.Permanent(err)
	}
	return err
}

// minioStore adapts *minio.Client to the store interface.
type minioStore struct {
	client *minio.Client
}

func (m *minioStore) FPutObject(ctx context.Context, bucket, object, filePath string) (int64, error) {
	info, err := m.client.FPutObject(ctx, bucket, object, filePath, minio.PutObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (m *minioStore) RemoveObject(ctx context.Context, bucket, object string) error {
	return m.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{})
}

func (m *minioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func connectMinio(params domain.Params) (store, error) {
	endpoint := params["endpoint"]
	if endpoint == "" {
		return nil, &domain.OpError{
			Op:   "s3inbox.connect",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.endpoint must not be empty"),
		}
	}
	secure := strings.EqualFold(params["secure"], "true")
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(params["access_key"], params["secret_key"], ""),
		Secure: secure,
		Region: params["region"],
	}

	if caFile := params["ca_file"]; caFile != "" && secure {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, &domain.OpError{
				Op:   "s3inbox.connect",
				Kind: domain.KindNotFound,
				Path: caFile,
				Err:  err,
			}
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, &domain.OpError{
				Op:   "s3inbox.connect",
				Kind: domain.KindInvalidConfig,
				Path: caFile,
				Err:  fmt.Errorf("no PEM certificates found"),
			}
		}
		opts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "s3inbox.connect",
			Kind: domain.KindInvalidConfig,
			Err:  err,
		}
	}
	return &minioStore{client: client}, nil
}
