// Package archive stores raw fetched newsletter pages so a crawl run keeps
// an auditable snapshot of every page it extracted from. The provider
// abstraction keeps the frontier independent of where snapshots land
// (local directory, GCS bucket, or nowhere).
package archive

import "context"

// Provider saves one raw page snapshot under an object name.
type Provider interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards snapshots. Useful for dry runs and tests.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (n *NoOpProvider) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
