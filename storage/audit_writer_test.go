package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAuditWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "failures.csv")

	w, err := NewAuditWriter(path)
	if err != nil {
		t.Fatalf("NewAuditWriter: %v", err)
	}

	at := time.Date(2024, 11, 2, 10, 30, 0, 0, time.UTC)
	if err := w.Record(Failure{
		RunID:   "run-1",
		Source:  "5168",
		URL:     "https://example.com/house/1",
		Op:      "upsert",
		Err:     "connection refused",
		Payload: map[string]interface{}{"house_id": "H1"},
		At:      at,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read audit csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if rows[0][0] != "run_id" || rows[0][6] != "at" {
		t.Errorf("header: got %v", rows[0])
	}

	row := rows[1]
	if row[0] != "run-1" || row[1] != "5168" || row[3] != "upsert" {
		t.Errorf("row fields: got %v", row)
	}
	if row[4] != "connection refused" {
		t.Errorf("error column: got %q", row[4])
	}
	if row[5] != `{"house_id":"H1"}` {
		t.Errorf("payload column: got %q", row[5])
	}
	if row[6] != "2024-11-02T10:30:00Z" {
		t.Errorf("timestamp column: got %q", row[6])
	}
}

func TestAuditWriterConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.csv")

	w, err := NewAuditWriter(path)
	if err != nil {
		t.Fatalf("NewAuditWriter: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Record(Failure{
				RunID:  "run-2",
				Source: "rakuya_trades",
				URL:    "https://example.com/r",
				Op:     "touch",
				Err:    "timeout",
				At:     time.Now(),
			})
		}()
	}
	wg.Wait()
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read audit csv: %v", err)
	}
	if len(rows) != 21 {
		t.Errorf("got %d rows, want header + 20", len(rows))
	}
}
