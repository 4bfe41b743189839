// Package session caches uploaded tables between requests of one client.
//
// A session holds at most one table. Uploading again replaces it. Entries
// expire after a TTL counted from the last write.
package session

import (
	"context"
	"errors"
	"time"

	"go-forecast-pipeline/internal/model"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Session is the per-client state: the last uploaded table and its mode.
type Session struct {
	ID        string          `json:"id"`
	Mode      model.Mode      `json:"mode,omitempty"`
	FileName  string          `json:"file_name,omitempty"`
	Table     *model.RawTable `json:"table,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HasTable reports whether a table has been uploaded.
func (s *Session) HasTable() bool {
	return s.Table != nil
}

// Store keeps sessions by id. Implementations are safe for concurrent use.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
