// Package sftpinbox runs ssh, sftp_upload, and sftp_remove checks against
// the deployment's SFTP inbox. Inbox services come up last in a fresh
// deployment, so every operation retries on a fixed interval until its
// deadline expires.
package sftpinbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/logger"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/stager"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

const (
	defaultPort          = "2222"
	defaultRetryInterval = 2 * time.Second
	defaultDeadline      = 4 * time.Hour
)

// conn abstracts an established inbox connection so tests can fake it.
type conn interface {
	Close() error
	SFTP() (*sftp.Client, error)
}

type dialFunc func(ctx context.Context, addr string, cfg *ssh.ClientConfig) (conn, error)

type Runner struct {
	resolver      *domain.VarResolver
	dial          dialFunc
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

func withDial(d dialFunc) Option {
	return func(r *Runner) { r.dial = d }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		resolver:      domain.NewVarResolver(),
		dial:          dialSSH,
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
	return []domain.CheckKind{domain.CheckSSH, domain.CheckSFTPUpload, domain.CheckSFTPRemove}
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

	cfg, addr, err := clientConfig(resolved.Params)
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
	err = r.retry(ctx, addr, interval, func(c conn) error {
		switch resolved.Kind {
		case domain.CheckSSH:
			return nil // the handshake itself is the check
		case domain.CheckSFTPUpload:
			return r.upload(c, resolved.Params, result.Detail)
		case domain.CheckSFTPRemove:
			return r.remove(c, resolved.Params)
		default:
			return &domain.OpError{
				Op:   "sftpinbox.run",
				Kind: domain.KindInvalidConfig,
				Err:  domain.ErrUnknownKind,
			}
		}
	}, cfg)
	result.LatencyMS = time.Since(start).Milliseconds()

	result.Detail["host"] = addr
	if err != nil {
		result.Error = domain.NewRunError(err)
	}
	return result, nil
}

// retry dials and runs op on a fixed interval until success or ctx expiry.
func (r *Runner) retry(ctx context.Context, addr string, interval time.Duration, op func(conn) error, cfg *ssh.ClientConfig) error {
	attempt := 0
	bo := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	return backoff.Retry(func() error {
		attempt++
		c, err := r.dial(ctx, addr, cfg)
		if err != nil {
			logger.L().Debug("inbox.dial_retry", "addr", addr, "attempt", attempt, "err", err)
			return err
		}
		defer c.Close()
		return op(c)
	}, bo)
}

func (r *Runner) upload(c conn, params domain.Params, detail map[string]string) error {
	source := params["source"]
	f, err := os.Open(source)
	if err != nil {
		return backoff.Permanent(&domain.OpError{
			Op:   "sftpinbox.upload",
			Kind: domain.KindNotFound,
			Path: source,
			Err:  err,
		})
	}
	defer f.Close()

	client, err := c.SFTP()
	if err != nil {
		return err
	}
	defer client.Close()

	remote := remoteName(params)
	dst, err := client.Create(remote)
	if err != nil {
		return err
	}

	n, err := io.Copy(dst, f)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	detail["remote_path"] = remote
	detail["size_bytes"] = strconv.FormatInt(n, 10)
	logger.L().Info("inbox.uploaded", "remote", remote, "bytes", n)
	return nil
}

func (r *Runner) remove(c conn, params domain.Params) error {
	remote := params["remote_path"]
	if remote == "" {
		return backoff.Permanent(&domain.OpError{
			Op:   "sftpinbox.remove",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.remote_path must not be empty"),
		})
	}

	client, err := c.SFTP()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Remove(remote); err != nil {
		return err
	}
	logger.L().Info("inbox.removed", "remote", remote)
	return nil
}

// remoteName picks the remote object name: the remote_path param when set,
// otherwise the source's base name with its extension swapped for the
// container extension. Ingestion matches inbox entries by that name.
func remoteName(params domain.Params) string {
	if rp := params["remote_path"]; rp != "" {
		return rp
	}
	base := path.Base(filepath.ToSlash(params["source"]))
	return strings.TrimSuffix(base, path.Ext(base)) + stager.EncryptedExt
}

// clientConfig builds the SSH client config and address from check params.
// Key and password auth may be combined; at least one is required.
func clientConfig(params domain.Params) (*ssh.ClientConfig, string, error) {
	host := params["host"]
	if host == "" {
		return nil, "", &domain.OpError{
			Op:   "sftpinbox.config",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.host must not be empty"),
		}
	}
	user := params["user"]
	if user == "" {
		return nil, "", &domain.OpError{
			Op:   "sftpinbox.config",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.user must not be empty"),
		}
	}
	port := params["port"]
	if port == "" {
		port = defaultPort
	}

	methods, err := authMethods(params)
	if err != nil {
		return nil, "", err
	}

	return &ssh.ClientConfig{
		User: user,
		Auth: methods,
		// Ephemeral test deployments regenerate host keys on every start.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}, fmt.Sprintf("%s:%s", host, port), nil
}

func authMethods(params domain.Params) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if keyPath := params["key_path"]; keyPath != "" {
		b, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, &domain.OpError{
				Op:   "sftpinbox.config",
				Kind: domain.KindNotFound,
				Path: keyPath,
				Err:  err,
			}
		}

		var signer ssh.Signer
		if pass := params["key_passphrase"]; pass != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(b, []byte(pass))
		} else {
			signer, err = ssh.ParsePrivateKey(b)
		}
		if err != nil {
			return nil, &domain.OpError{
				Op:   "sftpinbox.config",
				Kind: domain.KindInvalidConfig,
				Path: keyPath,
				Err:  err,
			}
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if pw := params["password"]; pw != "" {
		methods = append(methods, ssh.Password(pw))
	}

	if len(methods) == 0 {
		return nil, &domain.OpError{
			Op:   "sftpinbox.config",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("either params.key_path or params.password is required"),
		}
	}
	return methods, nil
}

// sshConn adapts *ssh.Client to the conn interface.
type sshConn struct {
	client *ssh.Client
}

func (c *sshConn) Close() error { return c.client.Close() }

func (c *sshConn) SFTP() (*sftp.Client, error) {
	return sftp.NewClient(c.client)
}

func dialSSH(ctx context.Context, addr string, cfg *ssh.ClientConfig) (conn, error) {
	var d net.Dialer
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(raw, addr, cfg)
	if err != nil {
		raw.Close()
		return nil, err
	}
	return &sshConn{client: ssh.NewClient(c, chans, reqs)}, nil
}
