// Package dbprobe runs db_status checks: polling the archive database
// until an uploaded file reaches the wanted ingestion status.
package dbprobe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq" // postgres driver

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/logger"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

const (
	defaultPollInterval = 2 * time.Second

	// Latest ingestion record for a file uploaded to the inbox.
	statusQuery = `SELECT status FROM local_ega.files WHERE inbox_path = $1 ORDER BY id DESC LIMIT 1`
)

// querier abstracts the database so tests can fake it.
type querier interface {
	FileStatus(ctx context.Context, inboxPath string) (string, error)
	Close() error
}

type openFunc func(dsn string) (querier, error)

type Runner struct {
	resolver     *domain.VarResolver
	open         openFunc
	pollInterval time.Duration
}

type Option func(*Runner)

func WithResolver(vr *domain.VarResolver) Option {
	return func(r *Runner) { r.resolver = vr }
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) { r.pollInterval = d }
}

func withOpen(o openFunc) Option {
	return func(r *Runner) { r.open = o }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		resolver:     domain.NewVarResolver(),
		open:         openPostgres,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.KindRunner = (*Runner)(nil)

func (r *Runner) Kinds() []domain.CheckKind {
	return []domain.CheckKind{domain.CheckDBStatus}
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

	dsn := resolved.Params["dsn"]
	filePath := resolved.Params["file_path"]
	wantStatus := resolved.Params["want_status"]
	switch {
	case dsn == "":
		return domain.CheckResult{}, configErr("params.dsn must not be empty")
	case filePath == "":
		return domain.CheckResult{}, configErr("params.file_path must not be empty")
	case wantStatus == "":
		return domain.CheckResult{}, configErr("params.want_status must not be empty")
	}

	result := domain.CheckResult{
		Name:   resolved.Name,
		Kind:   resolved.Kind,
		Detail: map[string]string{},
	}

	db, err := r.open(dsn)
	if err != nil {
		return domain.CheckResult{}, err
	}
	defer db.Close()

	interval := r.pollInterval
	if resolved.RetryS > 0 {
		interval = time.Duration(resolved.RetryS) * time.Second
	}

	start := time.Now()
	var lastStatus string
	bo := backoff.WithContext(backoff.NewConstantBackOff(interval), ctx)
	err = backoff.Retry(func() error {
		status, qErr := db.FileStatus(ctx, filePath)
		if qErr != nil {
			if errors.Is(qErr, sql.ErrNoRows) {
				// Ingestion has not picked the file up yet.
				return fmt.Errorf("no ingestion record for %s yet", filePath)
			}
			return qErr
		}

		lastStatus = status
		if status == "ERROR" && wantStatus != "ERROR" {
			return backoff.Permanent(fmt.Errorf("ingestion of %s failed with status ERROR", filePath))
		}
		if status != wantStatus {
			logger.L().Debug("dbprobe.poll", "file", filePath, "status", status, "want", wantStatus)
			return fmt.Errorf("status %s, want %s", status, wantStatus)
		}
		return nil
	}, bo)
	result.LatencyMS = time.Since(start).Milliseconds()

	result.Detail["file_path"] = filePath
	if lastStatus != "" {
		result.Detail["status"] = lastStatus
	}
	if err != nil {
		result.Error = domain.NewRunError(err)
	}
	return result, nil
}

func configErr(msg string) error {
	return &domain.OpError{
		Op:   "dbprobe.run",
		Kind: domain.KindInvalidConfig,
		Err:  errors.New(msg),
	}
}

// pgQuerier backs querier with a postgres connection pool.
type pgQuerier struct {
	db *sql.DB
}

func (q *pgQuerier) FileStatus(ctx context.Context, inboxPath string) (string, error) {
	var status string
	err := q.db.QueryRowContext(ctx, statusQuery, inboxPath).Scan(&status)
	return status, err
}

func (q *pgQuerier) Close() error { return q.db.Close() }

func openPostgres(dsn string) (querier, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, &domain.OpError{
			Op:   "dbprobe.open",
			Kind: domain.KindInvalidConfig,
			Err:  err,
		}
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)
	return &pgQuerier{db: db}, nil
}
