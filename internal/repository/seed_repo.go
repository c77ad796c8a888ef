package repository

import (
	"context"

	"github.com/timmy/moments/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedRepository bulk-inserts fake users, tags, and social rows.
type SeedRepository struct {
	db *gorm.DB
}

// NewSeedRepository creates a new SeedRepository.
func NewSeedRepository(db *gorm.DB) *SeedRepository {
	return &SeedRepository{db: db}
}

// CreateUser inserts a user. Returns gorm.ErrDuplicatedKey-style driver
// errors on username/email collisions; callers retry with new data.
func (r *SeedRepository) CreateUser(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateTagIfMissing inserts a tag unless one with the same name exists.
// Returns true when a row was inserted.
func (r *SeedRepository) CreateTagIfMissing(ctx context.Context, tag *domain.Tag) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(tag)
	return res.RowsAffected > 0, res.Error
}

// CreateFollow inserts a follow edge, ignoring duplicates.
func (r *SeedRepository) CreateFollow(ctx context.Context, follow *domain.Follow) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(follow)
	return res.RowsAffected > 0, res.Error
}

// CreateCollect inserts a collect edge, ignoring duplicates.
func (r *SeedRepository) CreateCollect(ctx context.Context, collect *domain.Collect) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(collect)
	return res.RowsAffected > 0, res.Error
}

// CreateComment inserts a comment.
func (r *SeedRepository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// IDs returns all primary keys of model's table, ascending.
func (r *SeedRepository) IDs(ctx context.Context, model interface{}) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(model).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// TagsByIDs loads tags by primary key.
func (r *SeedRepository) TagsByIDs(ctx context.Context, ids []uint) ([]*domain.Tag, error) {
	if len(ids) == 0 {
		return []*domain.Tag{}, nil
	}
	var tags []*domain.Tag
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// Count returns the number of rows of model's table.
func (r *SeedRepository) Count(ctx context.Context, model interface{}) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(model).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
