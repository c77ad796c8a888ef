package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/timmy/moments/internal/domain"
	"github.com/timmy/moments/internal/logger"
	"github.com/timmy/moments/internal/storage"
)

// memoryStore mimics the photo table: reads return copies, SaveDerived
// writes the derived columns back.
type memoryStore struct {
	photos  []*domain.Photo
	batches [][]uint
	saveErr error
}

func (m *memoryStore) Count(ctx context.Context) (int64, error) {
	return int64(len(m.photos)), nil
}

func (m *memoryStore) FetchBatch(ctx context.Context, cursor string, limit int) ([]*domain.Photo, string, error) {
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := start + limit
	if end > len(m.photos) {
		end = len(m.photos)
	}
	page := make([]*domain.Photo, 0, end-start)
	for _, p := range m.photos[start:end] {
		cp := *p
		page = append(page, &cp)
	}
	next := ""
	if end < len(m.photos) {
		next = strconv.Itoa(end)
	}
	return page, next, nil
}

func (m *memoryStore) SaveDerived(ctx context.Context, photos []*domain.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	if len(photos) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(photos))
	for _, p := range photos {
		ids = append(ids, p.ID)
		for _, stored := range m.photos {
			if stored.ID == p.ID {
				stored.AutoAltText = p.AutoAltText
				stored.AutoTagsJSON = p.AutoTagsJSON
			}
		}
	}
	m.batches = append(m.batches, ids)
	return nil
}

func (m *memoryStore) get(id uint) *domain.Photo {
	for _, p := range m.photos {
		if p.ID == id {
			return p
		}
	}
	return nil
}

type memoryImages map[string][]byte

func (m memoryImages) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m memoryImages) Locate(key string) string {
	return "/uploads/" + key
}

type fakeGenerator struct {
	caption      string
	labels       []string
	captionErr   error
	labelsErr    error
	captionCalls int
	labelsCalls  int
	seen         []string
	onLabels     func()
}

func (g *fakeGenerator) GenerateCaption(ctx context.Context, img ImageInput) (string, error) {
	g.captionCalls++
	if g.captionErr != nil {
		return "", g.captionErr
	}
	return g.caption, nil
}

func (g *fakeGenerator) GenerateLabels(ctx context.Context, img ImageInput) ([]string, error) {
	g.labelsCalls++
	g.seen = append(g.seen, img.Name)
	if g.onLabels != nil {
		g.onLabels()
	}
	if g.labelsErr != nil {
		return nil, g.labelsErr
	}
	return g.labels, nil
}

type fakeRuns struct {
	created []*domain.BackfillRun
	updated []domain.BackfillRun
}

func (r *fakeRuns) Create(ctx context.Context, run *domain.BackfillRun) error {
	r.created = append(r.created, run)
	return nil
}

func (r *fakeRuns) Update(ctx context.Context, run *domain.BackfillRun) error {
	r.updated = append(r.updated, *run)
	return nil
}

func strPtr(s string) *string { return &s }

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Output: io.Discard})
}

// photosWithFiles creates n description-less photos whose files exist.
func photosWithFiles(n int) ([]*domain.Photo, memoryImages) {
	photos := make([]*domain.Photo, 0, n)
	images := memoryImages{}
	for i := 1; i <= n; i++ {
		name := fmt.Sprintf("photo_%03d.jpg", i)
		photos = append(photos, &domain.Photo{ID: uint(i), Filename: name})
		images[name] = []byte("jpeg")
	}
	return photos, images
}

func TestBackfill_ThreeRecordScenario(t *testing.T) {
	tests := []struct {
		name             string
		force            bool
		wantCaptionCalls int
		wantAlt2         string
	}{
		{name: "without force", force: false, wantCaptionCalls: 0, wantAlt2: "old"},
		{name: "with force", force: true, wantCaptionCalls: 1, wantAlt2: "a sofa in a room"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{photos: []*domain.Photo{
				{ID: 1, Filename: "cat.jpg", Description: strPtr("a cat")},
				{ID: 2, Filename: "sofa.jpg", AutoAltText: strPtr("old")},
				{ID: 3, Filename: "gone.jpg"},
			}}
			images := memoryImages{"cat.jpg": []byte("jpeg"), "sofa.jpg": []byte("jpeg")}
			gen := &fakeGenerator{caption: "a sofa in a room", labels: []string{"Sofa", " cat ", "sofa", ""}}

			svc := NewBackfillService(store, images, gen, nil, quietLogger(), nil)
			stats, err := svc.Run(context.Background(), BackfillOptions{Force: tt.force})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if stats.Processed != 3 || stats.Updated != 2 || stats.Skipped != 1 {
				t.Errorf("stats = processed %d, updated %d, skipped %d; want 3, 2, 1",
					stats.Processed, stats.Updated, stats.Skipped)
			}
			if gen.captionCalls != tt.wantCaptionCalls {
				t.Errorf("caption calls = %d, want %d", gen.captionCalls, tt.wantCaptionCalls)
			}
			if gen.labelsCalls != 2 {
				t.Errorf("labels calls = %d, want 2", gen.labelsCalls)
			}

			p1, p2, p3 := store.get(1), store.get(2), store.get(3)
			if p1.AutoAltText != nil {
				t.Errorf("photo 1 alt text = %q, want unset", *p1.AutoAltText)
			}
			for _, p := range []*domain.Photo{p1, p2} {
				if p.AutoTagsJSON == nil || *p.AutoTagsJSON != `["cat","sofa"]` {
					t.Errorf("photo %d tags = %v, want [\"cat\",\"sofa\"]", p.ID, p.AutoTagsJSON)
				}
			}
			if p2.AutoAltText == nil || *p2.AutoAltText != tt.wantAlt2 {
				t.Errorf("photo 2 alt text = %v, want %q", p2.AutoAltText, tt.wantAlt2)
			}
			if p3.AutoAltText != nil || p3.AutoTagsJSON != nil {
				t.Errorf("photo 3 was modified: %+v", p3)
			}
		})
	}
}

func TestBackfill_DescriptionProtectsAltText(t *testing.T) {
	store := &memoryStore{photos: []*domain.Photo{
		{ID: 1, Filename: "a.jpg", Description: strPtr("sunset")},
		{ID: 2, Filename: "b.jpg", Description: strPtr("beach"), AutoAltText: strPtr("kept")},
	}}
	images := memoryImages{"a.jpg": []byte("x"), "b.jpg": []byte("x")}
	gen := &fakeGenerator{caption: "should not be used", labels: []string{"sun"}}

	svc := NewBackfillService(store, images, gen, nil, quietLogger(), nil)
	if _, err := svc.Run(context.Background(), BackfillOptions{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gen.captionCalls != 0 {
		t.Errorf("caption calls = %d, want 0", gen.captionCalls)
	}
	if store.get(1).AutoAltText != nil {
		t.Errorf("photo 1 alt text was set")
	}
	if got := store.get(2).AutoAltText; got == nil || *got != "kept" {
		t.Errorf("photo 2 alt text = %v, want kept", got)
	}
}

func TestBackfill_IdempotentRerun(t *testing.T) {
	photos, images := photosWithFiles(4)
	store := &memoryStore{photos: photos}
	gen := &fakeGenerator{caption: "a photo", labels: []string{"tree", "Tree", "Bird"}}
	svc := NewBackfillService(store, images, gen, nil, quietLogger(), nil)

	first, err := svc.Run(context.Background(), BackfillOptions{})
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.Updated != 4 || gen.captionCalls != 4 || gen.labelsCalls != 4 {
		t.Fatalf("first run: updated %d, caption calls %d, labels calls %d; want 4 each",
			first.Updated, gen.captionCalls, gen.labelsCalls)
	}

	snapshot := make(map[uint][2]string)
	for _, p := range store.photos {
		snapshot[p.ID] = [2]string{*p.AutoAltText, *p.AutoTagsJSON}
	}

	*gen = fakeGenerator{caption: "different", labels: []string{"other"}}
	second, err := svc.Run(context.Background(), BackfillOptions{})
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.Updated != 0 || gen.captionCalls != 0 || gen.labelsCalls != 0 {
		t.Errorf("second run: updated %d, caption calls %d, labels calls %d; want 0 each",
			second.Updated, gen.captionCalls, gen.labelsCalls)
	}
	for _, p := range store.photos {
		if got := [2]string{*p.AutoAltText, *p.AutoTagsJSON}; got != snapshot[p.ID] {
			t.Errorf("photo %d changed on rerun: %v -> %v", p.ID, snapshot[p.ID], got)
		}
	}
	if len(store.batches) != 1 {
		t.Errorf("commits = %d, want 1 (second run has nothing to write)", len(store.batches))
	}
}

func TestBackfill_Limit(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		pageSize      int
		wantProcessed int64
	}{
		{name: "below total", limit: 3, pageSize: 2, wantProcessed: 3},
		{name: "equal to total", limit: 5, pageSize: 50, wantProcessed: 5},
		{name: "above total", limit: 9, pageSize: 2, wantProcessed: 5},
		{name: "unbounded", limit: 0, pageSize: 2, wantProcessed: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photos, images := photosWithFiles(5)
			store := &memoryStore{photos: photos}
			gen := &fakeGenerator{labels: []string{"x"}}
			svc := NewBackfillService(store, images, gen, nil, quietLogger(), &BackfillConfig{PageSize: tt.pageSize})

			stats, err := svc.Run(context.Background(), BackfillOptions{Limit: tt.limit})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if stats.Processed != tt.wantProcessed {
				t.Errorf("processed = %d, want %d", stats.Processed, tt.wantProcessed)
			}
			if stats.Total != 5 {
				t.Errorf("total = %d, want 5", stats.Total)
			}
			for i, name := range gen.seen {
				if want := fmt.Sprintf("photo_%03d.jpg", i+1); name != want {
					t.Errorf("visit %d = %s, want %s", i, name, want)
				}
			}
		})
	}
}

func TestBackfill_MissingFile(t *testing.T) {
	store := &memoryStore{photos: []*domain.Photo{{ID: 1, Filename: "missing.jpg"}}}
	gen := &fakeGenerator{caption: "x", labels: []string{"y"}}
	svc := NewBackfillService(store, memoryImages{}, gen, nil, quietLogger(), nil)

	stats, err := svc.Run(context.Background(), BackfillOptions{Force: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Processed != 1 || stats.Updated != 0 || stats.Skipped != 1 {
		t.Errorf("stats = processed %d, updated %d, skipped %d; want 1, 0, 1",
			stats.Processed, stats.Updated, stats.Skipped)
	}
	if gen.captionCalls+gen.labelsCalls != 0 {
		t.Errorf("generator was called for a missing file")
	}
	if p := store.get(1); p.AutoAltText != nil || p.AutoTagsJSON != nil {
		t.Errorf("missing-file photo was modified")
	}
}

func TestBackfill_StepFailuresAreIsolated(t *testing.T) {
	tests := []struct {
		name            string
		captionErr      error
		labelsErr       error
		wantUpdated     int64
		wantAlt         bool
		wantTags        bool
		wantAltFailures int64
		wantTagFailures int64
	}{
		{name: "caption fails", captionErr: errors.New("quota"), wantUpdated: 1, wantTags: true, wantAltFailures: 1},
		{name: "labels fail", labelsErr: errors.New("timeout"), wantUpdated: 1, wantAlt: true, wantTagFailures: 1},
		{name: "both fail", captionErr: errors.New("quota"), labelsErr: errors.New("timeout"), wantUpdated: 0, wantAltFailures: 1, wantTagFailures: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photos, images := photosWithFiles(2)
			store := &memoryStore{photos: photos}
			gen := &fakeGenerator{caption: "a dog", labels: []string{"dog"}, captionErr: tt.captionErr, labelsErr: tt.labelsErr}
			svc := NewBackfillService(store, images, gen, nil, quietLogger(), nil)

			stats, err := svc.Run(context.Background(), BackfillOptions{Limit: 1})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if stats.Updated != tt.wantUpdated {
				t.Errorf("updated = %d, want %d", stats.Updated, tt.wantUpdated)
			}
			if stats.AltFailures != tt.wantAltFailures || stats.TagFailures != tt.wantTagFailures {
				t.Errorf("failures = alt %d, tags %d; want %d, %d",
					stats.AltFailures, stats.TagFailures, tt.wantAltFailures, tt.wantTagFailures)
			}
			p := store.get(1)
			if (p.AutoAltText != nil) != tt.wantAlt {
				t.Errorf("alt text set = %v, want %v", p.AutoAltText != nil, tt.wantAlt)
			}
			if (p.AutoTagsJSON != nil) != tt.wantTags {
				t.Errorf("tags set = %v, want %v", p.AutoTagsJSON != nil, tt.wantTags)
			}
		})
	}
}

func TestBackfill_EmptyOutputs(t *testing.T) {
	photos, images := photosWithFiles(1)
	store := &memoryStore{photos: photos}
	gen := &fakeGenerator{caption: "   ", labels: nil}
	svc := NewBackfillService(store, images, gen, nil, quietLogger(), nil)

	stats, err := svc.Run(context.Background(), BackfillOptions{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Updated != 1 {
		t.Errorf("updated = %d, want 1", stats.Updated)
	}
	p := store.get(1)
	if p.AutoAltText != nil {
		t.Errorf("alt text = %q, want unset for empty caption", *p.AutoAltText)
	}
	if p.AutoTagsJSON == nil || *p.AutoTagsJSON != "[]" {
		t.Errorf("tags = %v, want []", p.AutoTagsJSON)
	}
}

func TestBackfill_CommitsEveryBatch(t *testing.T) {
	photos, images := photosWithFiles(120)
	store := &memoryStore{photos: photos}
	gen := &fakeGenerator{caption: "c", labels: []string{"l"}}

	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: &buf})
	svc := NewBackfillService(store, images, gen, nil, log, &BackfillConfig{PageSize: 30, CommitEvery: 50})

	if _, err := svc.Run(context.Background(), BackfillOptions{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantSizes := []int{50, 50, 20}
	if len(store.batches) != len(wantSizes) {
		t.Fatalf("commits = %d, want %d", len(store.batches), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(store.batches[i]) != want {
			t.Errorf("commit %d size = %d, want %d", i, len(store.batches[i]), want)
		}
	}

	var messages []string
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("bad log line %q: %v", scanner.Text(), err)
		}
		if msg, ok := line["message"].(string); ok {
			messages = append(messages, msg)
		}
	}
	for _, want := range []string{
		"Progress: 50/120 processed, 50 updated",
		"Progress: 100/120 processed, 100 updated",
		"Done. 120 processed, 120 updated.",
	} {
		found := false
		for _, msg := range messages {
			if msg == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing log line %q in %v", want, messages)
		}
	}
}

func TestBackfill_CommitFailureAborts(t *testing.T) {
	photos, images := photosWithFiles(3)
	store := &memoryStore{photos: photos, saveErr: errors.New("disk full")}
	gen := &fakeGenerator{caption: "c", labels: []string{"l"}}
	runs := &fakeRuns{}
	svc := NewBackfillService(store, images, gen, runs, quietLogger(), nil)

	if _, err := svc.Run(context.Background(), BackfillOptions{}); err == nil {
		t.Fatal("Run() error = nil, want commit failure")
	}
	if len(runs.updated) != 1 || runs.updated[0].Status != domain.RunStatusFailed {
		t.Errorf("run audit = %+v, want one failed update", runs.updated)
	}
}

func TestBackfill_CancellationFlushesStaged(t *testing.T) {
	photos, images := photosWithFiles(10)
	store := &memoryStore{photos: photos}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &fakeGenerator{caption: "c", labels: []string{"l"}}
	gen.onLabels = func() {
		if gen.labelsCalls == 3 {
			cancel()
		}
	}
	svc := NewBackfillService(store, images, gen, nil, quietLogger(), nil)

	stats, err := svc.Run(ctx, BackfillOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if stats.Processed != 3 {
		t.Errorf("processed = %d, want 3", stats.Processed)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 3 {
		t.Errorf("flushed batches = %v, want one batch of 3", store.batches)
	}
	if store.get(4).AutoTagsJSON != nil {
		t.Errorf("photo 4 was processed after cancellation")
	}
}

func TestBackfill_RecordsRun(t *testing.T) {
	photos, images := photosWithFiles(2)
	photos = append(photos, &domain.Photo{ID: 3, Filename: "missing.jpg"})
	store := &memoryStore{photos: photos}
	gen := &fakeGenerator{caption: "c", labels: []string{"l"}}
	runs := &fakeRuns{}
	svc := NewBackfillService(store, images, gen, runs, quietLogger(), nil)

	stats, err := svc.Run(context.Background(), BackfillOptions{Force: true, Limit: 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(runs.created) != 1 || runs.created[0].ID != stats.RunID {
		t.Fatalf("created runs = %+v, want one with id %s", runs.created, stats.RunID)
	}
	if len(runs.updated) != 1 {
		t.Fatalf("updated runs = %d, want 1", len(runs.updated))
	}
	got := runs.updated[0]
	if got.Status != domain.RunStatusCompleted || got.Processed != 3 || got.Updated != 2 || got.Skipped != 1 {
		t.Errorf("run = %+v", got)
	}
	if !got.Force || got.Limit != 10 || got.CompletedAt == nil {
		t.Errorf("run options not recorded: %+v", got)
	}
}

func TestRecordChanged(t *testing.T) {
	tests := []struct {
		name string
		alt  StepResult
		tags StepResult
		want bool
	}{
		{"both skipped", skipped("has description"), skipped("already generated"), false},
		{"alt changed", changed(), skipped("already generated"), true},
		{"tags changed", failed(errors.New("x")), changed(), true},
		{"both failed", failed(errors.New("x")), failed(errors.New("y")), false},
		{"both changed", changed(), changed(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordChanged(tt.alt, tt.tags); got != tt.want {
				t.Errorf("recordChanged() = %v, want %v", got, tt.want)
			}
		})
	}
}
