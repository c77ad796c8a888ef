package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/timmy/moments/internal/domain"
	"gorm.io/gorm"
)

// PhotoRepository handles photo data operations.
type PhotoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new PhotoRepository.
func NewPhotoRepository(db *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a new photo record together with its tag associations.
func (r *PhotoRepository) Create(ctx context.Context, photo *domain.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// GetByID retrieves a photo by its ID.
func (r *PhotoRepository) GetByID(ctx context.Context, id uint) (*domain.Photo, error) {
	var photo domain.Photo
	if err := r.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// Count returns the number of photos.
func (r *PhotoRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Photo{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FetchBatch returns up to limit photos in insertion (id) order, starting
// after the id encoded in cursor.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cursor: last id of the previous page, or empty for the first page.
//   - limit: maximum number of photos to return.
//
// Returns:
//   - photos: the page.
//   - nextCursor: cursor for the next page, or empty when the table is exhausted.
//   - err: non-nil if the cursor is invalid or the query fails.
func (r *PhotoRepository) FetchBatch(ctx context.Context, cursor string, limit int) ([]*domain.Photo, string, error) {
	var afterID uint64
	if cursor != "" {
		var err error
		afterID, err = strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
	}

	var photos []*domain.Photo
	if err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&photos).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(photos) == limit && limit > 0 {
		nextCursor = strconv.FormatUint(uint64(photos[len(photos)-1].ID), 10)
	}
	return photos, nextCursor, nil
}

// SaveDerived persists the ML-derived columns of photos in one transaction.
// Other columns are left untouched.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - photos: staged photos whose auto_alt_text / auto_tags_json changed.
//
// Returns:
//   - error: non-nil if any update fails; the whole batch is rolled back.
func (r *PhotoRepository) SaveDerived(ctx context.Context, photos []*domain.Photo) error {
	if len(photos) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range photos {
			err := tx.Model(&domain.Photo{}).
				Where("id = ?", p.ID).
				Updates(map[string]interface{}{
					"auto_alt_text":  p.AutoAltText,
					"auto_tags_json": p.AutoTagsJSON,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update photo %d: %w", p.ID, err)
			}
		}
		return nil
	})
}
