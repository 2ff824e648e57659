package profile

import "context"

// NoopStore is the store used when no datastore is configured. Every read
// misses and every write is discarded, so callers need no nil checks.
type NoopStore struct{}

// NewNoopStore creates a no-op store.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

// Get always reports a miss.
func (s *NoopStore) Get(ctx context.Context, userID string) (Mapping, bool, error) {
	return Mapping{}, false, nil
}

// Put discards the mapping.
func (s *NoopStore) Put(ctx context.Context, userID string, m Mapping) error {
	return nil
}
