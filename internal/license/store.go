package license

import "context"

// Store persists the single license record for a deployment. Replace is
// the only mutation and it is conditional, so concurrent writers cannot
// interleave into a corrupted record: at most one wins a given revision.
type Store interface {
	// Read returns a copy of the current record. It returns
	// ErrRecordNotFound before first initialization and wraps any backend
	// failure in ErrStoreUnavailable.
	Read(ctx context.Context) (*Record, error)

	// Replace atomically installs rec if the stored revision equals
	// expectedRevision; expectedRevision zero means no record may exist
	// yet. On success rec.Revision is set to expectedRevision+1. A
	// mismatch returns ErrRevisionConflict.
	Replace(ctx context.Context, expectedRevision int64, rec *Record) error
}
