package source

import (
	"context"

	"github.com/timmy/moments/internal/domain"
)

// Iterator walks a PhotoSource one page at a time, optionally stopping
// after a fixed number of photos.
type Iterator struct {
	src      PhotoSource
	pageSize int
	limit    int // 0 means unbounded
	cursor   string
	fetched  int
	done     bool
}

// NewIterator creates an Iterator over src.
// Parameters:
//   - src: photo source to read.
//   - pageSize: photos per page; <= 0 uses DefaultPageSize.
//   - limit: maximum photos to yield in total; 0 means all.
//
// Returns:
//   - *Iterator: iterator positioned before the first page.
func NewIterator(src PhotoSource, pageSize, limit int) *Iterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if limit < 0 {
		limit = 0
	}
	return &Iterator{src: src, pageSize: pageSize, limit: limit}
}

// Next returns the next page. An empty page with a nil error means the
// iterator is exhausted.
func (it *Iterator) Next(ctx context.Context) ([]*domain.Photo, error) {
	if it.done {
		return nil, nil
	}

	batch := it.pageSize
	if it.limit > 0 {
		remaining := it.limit - it.fetched
		if remaining <= 0 {
			it.done = true
			return nil, nil
		}
		if batch > remaining {
			batch = remaining
		}
	}

	photos, next, err := it.src.FetchBatch(ctx, it.cursor, batch)
	if err != nil {
		return nil, err
	}
	if len(photos) > batch {
		photos = photos[:batch]
	}

	it.fetched += len(photos)
	it.cursor = next
	if next == "" || len(photos) == 0 {
		it.done = true
	}
	return photos, nil
}

// Fetched returns the number of photos yielded so far.
func (it *Iterator) Fetched() int {
	return it.fetched
}
