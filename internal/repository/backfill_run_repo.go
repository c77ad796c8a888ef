package repository

import (
	"context"

	"github.com/timmy/moments/internal/domain"
	"gorm.io/gorm"
)

// BackfillRunRepository stores the audit trail of backfill runs.
type BackfillRunRepository struct {
	db *gorm.DB
}

// NewBackfillRunRepository creates a new BackfillRunRepository.
func NewBackfillRunRepository(db *gorm.DB) *BackfillRunRepository {
	return &BackfillRunRepository{db: db}
}

// Create inserts a run record.
func (r *BackfillRunRepository) Create(ctx context.Context, run *domain.BackfillRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves all fields of a run record.
func (r *BackfillRunRepository) Update(ctx context.Context, run *domain.BackfillRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
func (r *BackfillRunRepository) GetByID(ctx context.Context, id string) (*domain.BackfillRun, error) {
	var run domain.BackfillRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent returns the most recent runs, newest first.
func (r *BackfillRunRepository) ListRecent(ctx context.Context, limit int) ([]domain.BackfillRun, error) {
	var runs []domain.BackfillRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
