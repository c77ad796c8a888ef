package source

import (
	"context"

	"github.com/timmy/moments/internal/domain"
)

// DefaultPageSize is used when an Iterator is created with a non-positive page size.
const DefaultPageSize = 50

// PhotoSource is a store of photos that can be read page by page in a
// stable order.
type PhotoSource interface {
	// Count returns the total number of photos.
	Count(ctx context.Context) (int64, error)

	// FetchBatch fetches a batch of photos starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of photos to fetch.
	// Returns:
	//   - photos: batch of photos in source order.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (photos []*domain.Photo, nextCursor string, err error)
}
