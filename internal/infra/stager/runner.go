// Package stager runs the local preparation checks: payload generates a
// random test file, encrypt seals it into a Crypt4GH container ready for
// inbox upload.
package stager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/neicnordic/LocalEGA-tester/internal/crypt4gh"
	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/logger"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

const (
	defaultPayloadBytes = 1 << 20 // 1MB
	maxPayloadBytes     = 1 << 30

	// Uploaded containers carry this extension; ingestion services key
	// off it.
	EncryptedExt = ".c4ga"
)

type Runner struct {
	resolver *domain.VarResolver
	workDir  string
}

type Option func(*Runner)

func WithResolver(vr *domain.VarResolver) Option {
	return func(r *Runner) { r.resolver = vr }
}

// WithWorkDir sets where payloads and containers are staged. Defaults to
// the OS temp dir.
func WithWorkDir(dir string) Option {
	return func(r *Runner) { r.workDir = dir }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		resolver: domain.NewVarResolver(),
		workDir:  os.TempDir(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.KindRunner = (*Runner)(nil)

func (r *Runner) Kinds() []domain.CheckKind {
	return []domain.CheckKind{domain.CheckPayload, domain.CheckEncrypt}
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

	start := time.Now()
	switch resolved.Kind {
	case domain.CheckPayload:
		err = r.payload(resolved.Params, result.Detail)
	case domain.CheckEncrypt:
		err = r.encrypt(resolved.Params, result.Detail)
	default:
		return domain.CheckResult{}, &domain.OpError{
			Op:   "stager.run",
			Kind: domain.KindInvalidConfig,
			Err:  domain.ErrUnknownKind,
		}
	}
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		result.Error = domain.NewRunError(err)
	}
	return result, nil
}

// payload writes size_bytes of random data and publishes path and sha256.
func (r *Runner) payload(params domain.Params, detail map[string]string) error {
	size := int64(defaultPayloadBytes)
	if s := params["size_bytes"]; s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil || v <= 0 || v > maxPayloadBytes {
			return &domain.OpError{
				Op:   "stager.payload",
				Kind: domain.KindInvalidConfig,
				Err:  errors.New("params.size_bytes must be a positive byte count"),
			}
		}
		size = v
	}

	name := params["name"]
	if name == "" {
		name = "payload.bin"
	}

	path := filepath.Join(r.workDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	h := sha256.New()
	_, err = io.CopyN(io.MultiWriter(f, h), rand.Reader, size)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	detail["path"] = path
	detail["size_bytes"] = strconv.FormatInt(size, 10)
	detail["sha256"] = hex.EncodeToString(h.Sum(nil))
	logger.L().Info("stager.payload", "path", path, "bytes", size)
	return nil
}

// encrypt seals the source file for the recipient key into <source>.c4ga.
func (r *Runner) encrypt(params domain.Params, detail map[string]string) error {
	source := params["source"]
	if source == "" {
		return &domain.OpError{
			Op:   "stager.encrypt",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.source must not be empty"),
		}
	}

	keyPath := params["recipient_key"]
	if keyPath == "" {
		return &domain.OpError{
			Op:   "stager.encrypt",
			Kind: domain.KindInvalidConfig,
			Err:  errors.New("params.recipient_key must not be empty"),
		}
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return &domain.OpError{
			Op:   "stager.encrypt",
			Kind: domain.KindNotFound,
			Path: keyPath,
			Err:  err,
		}
	}
	recipient, err := crypt4gh.ParsePublicKey(keyData)
	if err != nil {
		return &domain.OpError{
			Op:   "stager.encrypt",
			Kind: domain.KindInvalidConfig,
			Path: keyPath,
			Err:  err,
		}
	}

	// Fresh ephemeral writer key per container.
	writer, err := crypt4gh.GenerateKeyPair()
	if err != nil {
		return err
	}

	src, err := os.Open(source)
	if err != nil {
		return &domain.OpError{
			Op:   "stager.encrypt",
			Kind: domain.KindNotFound,
			Path: source,
			Err:  err,
		}
	}
	defer src.Close()

	target := params["target"]
	if target == "" {
		target = encryptedName(source)
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}

	err = crypt4gh.Encrypt(dst, src, writer.Secret, recipient)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	detail["path"] = target
	detail["size_bytes"] = strconv.FormatInt(info.Size(), 10)
	logger.L().Info("stager.encrypted", "source", source, "target", target)
	return nil
}

// encryptedName swaps the source extension for the container extension.
func encryptedName(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return base + EncryptedExt
}
