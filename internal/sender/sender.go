// Package sender delivers sensor snapshots to display surfaces and pipelines.
package sender

import (
	"context"
	"errors"

	"ondo/internal/collector"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("sender is closed")

// Sender defines the interface for delivering snapshots.
type Sender interface {
	// Send delivers one snapshot to the destination.
	Send(ctx context.Context, snap *collector.Snapshot) error

	// Close releases any resources held by the sender.
	Close() error
}
