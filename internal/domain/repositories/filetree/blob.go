package filetree

import "context"

// BlobStore defines access to the external object store holding externalized
// file bodies. Implementations surface missing objects as domain.ErrNotFound
// and transient faults as domain.ErrStoreUnavailable.
type BlobStore interface {
	// Upload stores data under key with upsert semantics: overwriting an
	// existing key is allowed and expected for in-place saves.
	Upload(ctx context.Context, key string, data []byte) error

	// Download returns the object stored under key.
	Download(ctx context.Context, key string) ([]byte, error)

	// Move relocates the object from oldKey to newKey. Returns
	// domain.ErrNotFound if no object exists at oldKey; callers must not
	// treat that as fatal when oldKey was already known to be absent.
	Move(ctx context.Context, oldKey, newKey string) error

	// RemoveMany deletes the given keys best-effort. Partial failures are
	// logged by the implementation and never surfaced; only a total
	// transport failure returns an error.
	RemoveMany(ctx context.Context, keys []string) error
}
