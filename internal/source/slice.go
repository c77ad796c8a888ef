package source

import (
	"context"
	"fmt"
	"strconv"

	"github.com/timmy/moments/internal/domain"
)

// SliceSource serves photos from memory using an index cursor. Useful for
// dry runs over an explicit list and for tests.
type SliceSource struct {
	photos []*domain.Photo
}

// NewSliceSource creates a SliceSource; photos are served in slice order.
func NewSliceSource(photos []*domain.Photo) *SliceSource {
	return &SliceSource{photos: photos}
}

// Count returns the number of photos held.
func (s *SliceSource) Count(ctx context.Context) (int64, error) {
	return int64(len(s.photos)), nil
}

// FetchBatch returns up to limit photos starting at the index in cursor.
func (s *SliceSource) FetchBatch(ctx context.Context, cursor string, limit int) ([]*domain.Photo, string, error) {
	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}
	if start >= len(s.photos) {
		return []*domain.Photo{}, "", nil
	}

	end := start + limit
	if end > len(s.photos) {
		end = len(s.photos)
	}

	next := ""
	if end < len(s.photos) {
		next = strconv.Itoa(end)
	}
	return s.photos[start:end], next, nil
}
