package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pebble "github.com/cockroachdb/pebble"
)

// Outcomes recorded per invocation.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

// Entry is one handled completion event.
type Entry struct {
	JobID     string    `json:"job_id"`
	Outcome   string    `json:"outcome"`
	RecordID  string    `json:"record_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal is a local, append-only log of handled invocations keyed by job id.
// Redeliveries of the same event produce separate entries.
type Journal struct {
	db *pebble.DB
}

// Open opens (or creates) the journal at dbPath.
func Open(dbPath string) (*Journal, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the journal
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func entryKey(jobID string, ts time.Time) []byte {
	// zero-padded so lexical order matches time order within a job
	return []byte(fmt.Sprintf("%s/%020d", jobID, ts.UnixNano()))
}

// Append stores entry, stamping it with the current time when Timestamp is zero.
func (j *Journal) Append(entry Entry) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal not initialized")
	}
	if entry.JobID == "" {
		return errors.New("journal entry requires a job id")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	return j.db.Set(entryKey(entry.JobID, entry.Timestamp), data, pebble.Sync)
}

// ListByJob returns every entry for jobID, oldest first.
func (j *Journal) ListByJob(jobID string) ([]Entry, error) {
	prefix := []byte(jobID + "/")
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	upper[len(upper)-1]++ // '/' + 1 == '0'

	return j.scan(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
}

// List returns all entries (for admin purposes)
func (j *Journal) List() ([]Entry, error) {
	return j.scan(&pebble.IterOptions{})
}

func (j *Journal) scan(opts *pebble.IterOptions) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}

	iter, err := j.db.NewIter(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var entry Entry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue // Skip invalid records
		}
		entries = append(entries, entry)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration error: %w", err)
	}

	return entries, nil
}

// CleanupOldRecords removes entries older than maxAge and returns how many were removed.
func (j *Journal) CleanupOldRecords(maxAge time.Duration) (int, error) {
	if j == nil || j.db == nil {
		return 0, fmt.Errorf("journal not initialized")
	}

	cutoff := time.Now().Add(-maxAge)
	iter, err := j.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}

	var keysToDelete [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		var entry Entry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			continue
		}
		if entry.Timestamp.Before(cutoff) {
			key := make([]byte, len(iter.Key()))
			copy(key, iter.Key())
			keysToDelete = append(keysToDelete, key)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	for _, key := range keysToDelete {
		if err := j.db.Delete(key, pebble.Sync); err != nil {
			return 0, fmt.Errorf("failed to delete old journal entry: %w", err)
		}
	}

	return len(keysToDelete), nil
}

// CheckHealth performs a basic health check on the journal database
func (j *Journal) CheckHealth() error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal not initialized")
	}

	_, closer, err := j.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}
