package ports

import "context"

// ServiceProber performs a bounded connectivity probe against one
// deployment service (inbox, bucket, broker, database, API).
type ServiceProber interface {
	Name() string
	Probe(ctx context.Context) error
}
