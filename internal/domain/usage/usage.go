// Package usage reads per-tenant resource counts for quota checks. Counts
// are maintained by the CRUD layer; this package only reads them.
package usage

import (
	"context"
	"errors"
)

// ErrNoSnapshot means the cached snapshot is missing; callers fall back to
// counting rows.
var ErrNoSnapshot = errors.New("usage: no snapshot")

const (
	SourceSnapshot = "snapshot"
	SourceLive     = "live"
)

// Snapshot is an approximation of live counts.
type Snapshot struct {
	Properties int64  `json:"properties"`
	Contacts   int64  `json:"contacts"`
	Users      int64  `json:"users"`
	Source     string `json:"source"`
}

type Source interface {
	Usage(ctx context.Context, tenantID string) (Snapshot, error)
}

// Fallback asks Primary first and Secondary on any Primary error.
type Fallback struct {
	Primary   Source
	Secondary Source
}

func (f Fallback) Usage(ctx context.Context, tenantID string) (Snapshot, error) {
	if f.Primary != nil {
		if snap, err := f.Primary.Usage(ctx, tenantID); err == nil {
			return snap, nil
		}
	}
	return f.Secondary.Usage(ctx, tenantID)
}

// Static serves fixed counts; used by tests and the dev server.
type Static map[string]Snapshot

func (s Static) Usage(_ context.Context, tenantID string) (Snapshot, error) {
	snap, ok := s[tenantID]
	if !ok {
		return Snapshot{Source: SourceLive}, nil
	}
	return snap, nil
}
