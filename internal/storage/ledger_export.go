package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LedgerExporter writes ledger records to a JSONL file. Ledger rows are
// never deleted, so the export is a complete audit trail.
type LedgerExporter struct {
	path string
	mu   sync.Mutex
}

func NewLedgerExporter(path string) *LedgerExporter {
	return &LedgerExporter{path: path}
}

// Export streams every ledger record as one JSON line. Returns the number
// of records written.
func (e *LedgerExporter) Export(ctx context.Context, ledger LedgerStore) (int, error) {
	records, err := ledger.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	dir := filepath.Dir(e.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return 0, fmt.Errorf("marshal ledger record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return 0, fmt.Errorf("write ledger record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return 0, fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}

	return len(records), nil
}
