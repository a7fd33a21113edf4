package storage

import (
	"context"
	"time"

	"aidid-house/models"
)

// Record is anything the reconciler can track by URL across crawl runs.
type Record interface {
	// Key returns the stable URL the record is stored under.
	Key() string
	// Seen stamps the record as observed on the given run date.
	Seen(at time.Time)
}

// RecordStore is the narrow durable-storage boundary the reconciler needs.
// Any engine with an atomic single-row upsert and a bulk update-by-key-set
// suffices.
type RecordStore interface {
	// Upsert inserts the record keyed by URL; on conflict every non-key
	// column is overwritten with the new record's value.
	Upsert(ctx context.Context, rec Record) error
	// Touch updates only last_seen for an existing row. It must not create
	// a row: a touch for an absent URL is an upstream integrity bug and is
	// reported as an error.
	Touch(ctx context.Context, url string, seen time.Time) error
	// MarkStatus applies a bulk lifecycle transition to exactly the given
	// URL set.
	MarkStatus(ctx context.Context, urls []string, status models.DataStatus) error
	// ActiveURLs snapshots the URLs currently labeled ACTIVE for a source.
	ActiveURLs(ctx context.Context, source string) (map[string]struct{}, error)
	Close() error
}

// Failure is one failed write, kept queryable so delisted-sweep false
// positives caused by upstream errors can be audited and replayed.
type Failure struct {
	RunID   string
	Source  string
	URL     string
	Op      string // "upsert" or "touch"
	Err     string
	Payload interface{}
	At      time.Time
}

// FailureLog records failed writes for manual replay.
type FailureLog interface {
	Record(f Failure) error
	Close() error
}
