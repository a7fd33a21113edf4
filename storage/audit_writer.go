package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditWriter appends failed writes to a CSV file so degraded runs can be
// audited and replayed by hand. It is safe for concurrent use.
type AuditWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewAuditWriter creates (or truncates) the audit file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewAuditWriter(path string) (*AuditWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("audit: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audit: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"run_id", "source", "url", "op", "error", "payload", "at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("audit: write header: %w", err)
	}
	w.Flush()

	return &AuditWriter{file: f, writer: w}, nil
}

// Record appends one failure row and flushes immediately — rows must survive
// even if the run dies before Close.
func (a *AuditWriter) Record(f Failure) error {
	payload := ""
	if f.Payload != nil {
		if raw, err := json.Marshal(f.Payload); err == nil {
			payload = string(raw)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	row := []string{
		f.RunID,
		f.Source,
		f.URL,
		f.Op,
		f.Err,
		payload,
		f.At.Format(time.RFC3339),
	}
	if err := a.writer.Write(row); err != nil {
		return fmt.Errorf("audit: write row: %w", err)
	}
	a.writer.Flush()
	return a.writer.Error()
}

// Close flushes and closes the underlying file.
func (a *AuditWriter) Close() error {
	a.writer.Flush()
	return a.file.Close()
}
