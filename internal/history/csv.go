// Package history records price changes in an append-only log.
package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// Header is the first row of a freshly created CSV log.
var Header = []string{"timestamp", "product_name", "old_price", "new_price", "url"}

// CSVLog appends records to a CSV file.
type CSVLog struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// NewCSVLog opens path for appending, writing the header when the file is new.
func NewCSVLog(path string) (*CSVLog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat history file: %w", err)
	}

	l := &CSVLog{file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.writeRow(Header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return l, nil
}

// Append writes one record and flushes it to disk.
func (l *CSVLog) Append(_ context.Context, record monitor.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeRow([]string{
		record.Timestamp,
		record.ProductName,
		record.OldPrice,
		record.NewPrice,
		record.URL,
	})
}

func (l *CSVLog) writeRow(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("write history row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("flush history row: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *CSVLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close history file: %w", err)
	}
	return nil
}
