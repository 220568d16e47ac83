package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for object storage operations. Report
// exports are written server-side and fetched by clients through short-lived
// presigned links, so the interface is exactly those two halves.
type FileStorage interface {
	// UploadObject writes an object under the given key. The engine uses
	// this for rendered report files; bodies are small enough to pass as
	// byte slices.
	UploadObject(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
