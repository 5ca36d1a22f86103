// Package audit stores the processing timeline: one event per handled
// report, queryable per subject. Two backends are supported, PostgreSQL for
// server deployments and SQLite for single-node and test setups.
package audit

import (
	"fmt"
	"time"

	"github.com/labseries-server/internal/domain"
)

// NewStore creates the configured timeline store backend.
func NewStore(config domain.AuditConfig) (domain.TimelineStore, error) {
	switch config.Backend {
	case "postgres":
		return NewPostgresStoreFromURL(config.DatabaseURL)
	case "sqlite", "":
		path := config.SQLitePath
		if path == "" {
			path = "data/timeline.db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", config.Backend)
	}
}

// TimelineExport is the JSON envelope for exported timeline events.
type TimelineExport struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Count      int                     `json:"count"`
	Events     []*domain.TimelineEvent `json:"events"`
}
