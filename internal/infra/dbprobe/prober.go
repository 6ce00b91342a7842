package dbprobe

import (
	"context"
	"database/sql"
	"time"

	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// Prober is the preflight probe for the archive database: open and ping.
type Prober struct {
	dsn string
}

func NewProber(dsn string) *Prober {
	return &Prober{dsn: dsn}
}

var _ ports.ServiceProber = (*Prober)(nil)

func (p *Prober) Name() string { return "db" }

func (p *Prober) Probe(ctx context.Context) error {
	db, err := sql.Open("postgres", p.dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	db.SetConnMaxLifetime(time.Minute)
	return db.PingContext(ctx)
}
