package ports

import "context"

// Fetcher retrieves a remote resource, such as a repository signing key.
type Fetcher interface {
	// Fetch downloads the resource at url and returns its bytes.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
