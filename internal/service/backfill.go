package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/moments/internal/domain"
	"github.com/timmy/moments/internal/logger"
	"github.com/timmy/moments/internal/source"
	"github.com/timmy/moments/internal/storage"
)

// Generator produces the ML-derived fields for one photo.
type Generator interface {
	GenerateCaption(ctx context.Context, img ImageInput) (string, error)
	GenerateLabels(ctx context.Context, img ImageInput) ([]string, error)
}

// PhotoStore is the record store the backfill reads from and writes to.
type PhotoStore interface {
	source.PhotoSource
	SaveDerived(ctx context.Context, photos []*domain.Photo) error
}

// ImageSource resolves a photo filename to its bytes.
type ImageSource interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Locate(key string) string
}

// RunRecorder keeps the audit trail of backfill runs.
type RunRecorder interface {
	Create(ctx context.Context, run *domain.BackfillRun) error
	Update(ctx context.Context, run *domain.BackfillRun) error
}

// BackfillConfig holds job tuning.
type BackfillConfig struct {
	PageSize    int
	CommitEvery int
}

// BackfillOptions selects which photos get regenerated.
type BackfillOptions struct {
	Force bool // regenerate fields that are already set
	Limit int  // 0 means every photo
}

// BackfillStats holds statistics for a backfill run
type BackfillStats struct {
	RunID       string
	Total       int64
	Processed   int64
	Updated     int64
	Skipped     int64
	AltFailures int64
	TagFailures int64
	StartTime   time.Time
	EndTime     time.Time
}

// StepOutcome is the result of one generation step on one photo.
type StepOutcome int

const (
	StepSkipped StepOutcome = iota
	StepChanged
	StepFailed
)

func (o StepOutcome) String() string {
	switch o {
	case StepChanged:
		return "changed"
	case StepFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// StepResult describes what a generation step did.
type StepResult struct {
	Outcome StepOutcome
	Reason  string
	Err     error
}

func skipped(reason string) StepResult {
	return StepResult{Outcome: StepSkipped, Reason: reason}
}

func failed(err error) StepResult {
	return StepResult{Outcome: StepFailed, Err: err}
}

func changed() StepResult {
	return StepResult{Outcome: StepChanged}
}

// recordChanged decides whether a photo must be staged for persistence.
func recordChanged(alt, tags StepResult) bool {
	return alt.Outcome == StepChanged || tags.Outcome == StepChanged
}

// BackfillService fills auto_alt_text and auto_tags_json for existing photos.
type BackfillService struct {
	photos      PhotoStore
	images      ImageSource
	gen         Generator
	runs        RunRecorder
	logger      *logger.Logger
	pageSize    int
	commitEvery int
}

// NewBackfillService creates a new backfill service. runs may be nil to
// disable the audit trail.
func NewBackfillService(
	photos PhotoStore,
	images ImageSource,
	gen Generator,
	runs RunRecorder,
	log *logger.Logger,
	cfg *BackfillConfig,
) *BackfillService {
	s := &BackfillService{
		photos:      photos,
		images:      images,
		gen:         gen,
		runs:        runs,
		logger:      log,
		pageSize:    source.DefaultPageSize,
		commitEvery: 50,
	}
	if cfg != nil {
		if cfg.PageSize > 0 {
			s.pageSize = cfg.PageSize
		}
		if cfg.CommitEvery > 0 {
			s.commitEvery = cfg.CommitEvery
		}
	}
	return s
}

// log returns the context logger; Run seeds it with the service logger.
func (s *BackfillService) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Run walks photos in id order and generates missing derived fields.
// Parameters:
//   - ctx: context; cancellation stops the walk between photos.
//   - opts: force / limit.
//
// Returns:
//   - *BackfillStats: counters, also filled when an error is returned.
//   - error: a store failure, or ctx.Err() when cancelled. Per-photo
//     generation failures are only logged.
func (s *BackfillService) Run(ctx context.Context, opts BackfillOptions) (*BackfillStats, error) {
	stats := &BackfillStats{StartTime: time.Now()}
	if s.logger != nil && logger.FromContext(ctx) == logger.GetDefault() {
		ctx = s.logger.WithContext(ctx)
	}
	ctx = logger.SetComponent(ctx, "backfill")

	total, err := s.photos.Count(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to count photos: %w", err)
	}
	stats.Total = total

	run := s.startRun(ctx, opts, total)
	stats.RunID = run.ID
	ctx = logger.SetJobID(ctx, run.ID)

	s.log(ctx).WithFields(logger.Fields{
		"total": total,
		"limit": opts.Limit,
		"force": opts.Force,
	}).Info("Starting ml backfill")

	runErr := s.walk(ctx, opts, stats)

	stats.EndTime = time.Now()
	s.finishRun(ctx, run, stats, runErr)

	if runErr != nil {
		return stats, runErr
	}

	logger.With(logger.Fields{
		"skipped":      stats.Skipped,
		"alt_failures": stats.AltFailures,
		"tag_failures": stats.TagFailures,
	}).WithDuration(stats.EndTime.Sub(stats.StartTime).Milliseconds()).
		Info(ctx, "Done. %d processed, %d updated.", stats.Processed, stats.Updated)
	return stats, nil
}

// walk is the paging loop. Staged photos are flushed every commitEvery
// processed photos and once more on exit, even after cancellation.
func (s *BackfillService) walk(ctx context.Context, opts BackfillOptions, stats *BackfillStats) error {
	it := source.NewIterator(s.photos, s.pageSize, opts.Limit)
	staged := make([]*domain.Photo, 0, s.commitEvery)

	var loopErr error
pages:
	for {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}

		page, err := it.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				loopErr = ctx.Err()
			} else {
				loopErr = fmt.Errorf("failed to fetch photos: %w", err)
			}
			break
		}
		if len(page) == 0 {
			break
		}

		for _, photo := range page {
			if err := ctx.Err(); err != nil {
				loopErr = err
				break pages
			}

			if s.processPhoto(ctx, photo, opts.Force, stats) {
				staged = append(staged, photo)
				stats.Updated++
			}
			stats.Processed++

			if stats.Processed%int64(s.commitEvery) == 0 {
				if err := s.photos.SaveDerived(ctx, staged); err != nil {
					return fmt.Errorf("failed to commit batch: %w", err)
				}
				staged = make([]*domain.Photo, 0, s.commitEvery)
				logger.With(logger.Fields{"processed": stats.Processed, "updated": stats.Updated}).
					Info(ctx, "Progress: %d/%d processed, %d updated", stats.Processed, stats.Total, stats.Updated)
			}
		}
	}

	flushCtx := ctx
	if ctx.Err() != nil {
		flushCtx = context.WithoutCancel(ctx)
	}
	if err := s.photos.SaveDerived(flushCtx, staged); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return loopErr
}

// processPhoto runs both generation steps on one photo and reports whether
// it changed.
func (s *BackfillService) processPhoto(ctx context.Context, photo *domain.Photo, force bool, stats *BackfillStats) bool {
	ctx = logger.WithField(ctx, logger.FieldPhotoID, photo.ID)

	data, err := storage.ReadAll(ctx, s.images, photo.Filename)
	if err != nil {
		stats.Skipped++
		if errors.Is(err, storage.ErrNotFound) {
			s.log(ctx).Warnf("Skip (file missing): %s", s.images.Locate(photo.Filename))
		} else {
			s.log(ctx).WithError(err).Warnf("Skip (unreadable): %s", s.images.Locate(photo.Filename))
		}
		return false
	}
	img := ImageInput{Data: data, Name: photo.Filename}

	alt := s.altTextStep(ctx, photo, img, force)
	if alt.Outcome == StepFailed {
		stats.AltFailures++
		s.log(ctx).Errorf("[ALT] photo %d failed: %v", photo.ID, alt.Err)
	}

	tags := s.tagsStep(ctx, photo, img, force)
	if tags.Outcome == StepFailed {
		stats.TagFailures++
		s.log(ctx).Errorf("[TAGS] photo %d failed: %v", photo.ID, tags.Err)
	}

	s.log(ctx).WithFields(logger.Fields{
		"alt":  alt.Outcome.String(),
		"tags": tags.Outcome.String(),
	}).Debug("Photo handled")

	return recordChanged(alt, tags)
}

// altTextStep generates alt text when the photo has no description and
// either force is set or no alt text exists yet.
func (s *BackfillService) altTextStep(ctx context.Context, photo *domain.Photo, img ImageInput, force bool) StepResult {
	if photo.HasDescription() {
		return skipped("has description")
	}
	if !force && photo.HasAltText() {
		return skipped("already generated")
	}

	caption, err := s.gen.GenerateCaption(ctx, img)
	if err != nil {
		return failed(err)
	}
	caption = TruncateAltText(caption)
	if caption == "" {
		photo.AutoAltText = nil
	} else {
		photo.AutoAltText = &caption
	}
	return changed()
}

// tagsStep generates object tags when force is set or none exist yet.
func (s *BackfillService) tagsStep(ctx context.Context, photo *domain.Photo, img ImageInput, force bool) StepResult {
	if !force && photo.HasAutoTags() {
		return skipped("already generated")
	}

	labels, err := s.gen.GenerateLabels(ctx, img)
	if err != nil {
		return failed(err)
	}
	if err := photo.SetAutoTags(NormalizeLabels(labels)); err != nil {
		return failed(err)
	}
	return changed()
}

func (s *BackfillService) startRun(ctx context.Context, opts BackfillOptions, total int64) *domain.BackfillRun {
	run := &domain.BackfillRun{
		ID:        uuid.New().String(),
		Force:     opts.Force,
		Limit:     opts.Limit,
		Status:    domain.RunStatusRunning,
		Total:     total,
		StartedAt: time.Now(),
	}
	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to record backfill run")
		}
	}
	return run
}

func (s *BackfillService) finishRun(ctx context.Context, run *domain.BackfillRun, stats *BackfillStats, runErr error) {
	if s.runs == nil {
		return
	}
	run.Processed = stats.Processed
	run.Updated = stats.Updated
	run.Skipped = stats.Skipped
	run.AltFailures = stats.AltFailures
	run.TagFailures = stats.TagFailures
	completed := stats.EndTime
	run.CompletedAt = &completed
	run.Status = domain.RunStatusCompleted
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorLog = runErr.Error()
	}
	if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to update backfill run")
	}
}
