// Package store provides embedded storage of screening records for the
// lite MCP server and the command line tool.
package store

import (
	"context"
	"io"
	"time"

	"github.com/pcos-screening-server/internal/domain"
)

// Store is a ScreeningRepository that can also export and import its
// contents.
type Store interface {
	domain.ScreeningRepository

	// Delete removes a screening and its result.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every screening to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON loads screenings from reader. Records whose ID is already
	// stored are skipped, never overwritten.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close releases resources.
	Close() error
}

// Export is the JSON document written by ExportJSON.
type Export struct {
	Version    string                    `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Count      int                       `json:"count"`
	Screenings []*domain.ScreeningRecord `json:"screenings"`
}

const exportVersion = "1.0"
