package contract

import "context"

// BlobStore keeps one opaque blob per scope. Load returns (nil, nil) when the
// scope has never been written.
type BlobStore interface {
	Load(ctx context.Context, scope string) ([]byte, error)
	Save(ctx context.Context, scope string, blob []byte) error
	Delete(ctx context.Context, scope string) error
	Close() error
}
