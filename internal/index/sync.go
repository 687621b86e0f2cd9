package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/obvault/internal/models"
	"github.com/starford/obvault/internal/vault"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a catalog change. kind is one of
// EventCreated, EventUpdated or EventDeleted.
type EventCallback func(kind string, path string)

// SyncStats counts what a Sync changed.
type SyncStats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Sync walks the vault and brings the catalog up to date:
//   - new/changed notes are upserted
//   - notes removed from disk are deleted from the catalog
//
// If the vault cannot be enumerated nothing is deleted.
func Sync(ctx context.Context, db *DB, v *vault.Vault, logger *slog.Logger) (SyncStats, error) {
	return syncVault(ctx, db, v, logger, nil)
}

func syncVault(ctx context.Context, db *DB, v *vault.Vault, logger *slog.Logger, cb EventCallback) (SyncStats, error) {
	var stats SyncStats
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	seen := make(map[string]struct{}, len(checksums))
	for n, err := range v.Notes(ctx) {
		if err != nil {
			return stats, fmt.Errorf("sync: %w", err)
		}
		p := n.Subpath().String()
		seen[p] = struct{}{}

		old, known := checksums[p]
		if known && old == n.Checksum() {
			stats.Unchanged++
			continue
		}
		if err := indexNote(db, n); err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		kind := EventUpdated
		if known {
			stats.Updated++
		} else {
			kind = EventCreated
			stats.Added++
		}
		logger.Debug("sync: indexed", slog.String("path", p), slog.String("op", kind))
		if cb != nil {
			cb(kind, p)
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb(EventDeleted, p)
		}
	}

	return stats, nil
}

// indexNote upserts a parsed note into the DB.
func indexNote(db *DB, n *models.Note) error {
	row, body, err := NewRow(n)
	if err != nil {
		return err
	}
	return db.UpsertNote(row, body)
}
