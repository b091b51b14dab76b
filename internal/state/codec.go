// Package state persists the monitoring snapshot between passes.
package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// ErrCorrupt marks persisted state that could not be decoded.
var ErrCorrupt = errors.New("persisted state is corrupt")

func decode(data []byte) (*monitor.Snapshot, error) {
	if len(data) == 0 {
		return monitor.NewSnapshot(), nil
	}
	var entries map[string]map[string]monitor.State
	if err := json.Unmarshal(data, &entries); err != nil {
		return monitor.NewSnapshot(), fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return monitor.SnapshotFrom(entries), nil
}

func encode(snapshot *monitor.Snapshot) ([]byte, error) {
	if snapshot == nil {
		snapshot = monitor.NewSnapshot()
	}
	data, err := json.MarshalIndent(snapshot.Entries(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}
