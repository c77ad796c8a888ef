package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/timmy/moments/internal/config"
	"github.com/timmy/moments/internal/domain"
	"github.com/timmy/moments/internal/logger"
	"github.com/timmy/moments/internal/repository"
	"github.com/timmy/moments/internal/storage"
	"gorm.io/gorm"
)

const (
	loremPhotoSize  = 800
	loremSmallSize  = 400
	loremMediumSize = 800
	loremMaxTags    = 5
)

// LoremCounts is how many rows of each kind the seeder generates.
type LoremCounts struct {
	Users    int
	Follows  int
	Tags     int
	Photos   int
	Collects int
	Comments int
}

// DefaultLoremCounts returns the stock seeding volume.
func DefaultLoremCounts() LoremCounts {
	return LoremCounts{Users: 10, Follows: 30, Tags: 20, Photos: 30, Collects: 50, Comments: 100}
}

// LoremService fills a fresh database with fake users, photos and activity.
type LoremService struct {
	db      *gorm.DB
	seeds   *repository.SeedRepository
	roles   *repository.RoleRepository
	photos  *repository.PhotoRepository
	storage storage.ObjectStorage
	admin   config.AdminConfig
	faker   *gofakeit.Faker
	out     io.Writer
}

// NewLoremService creates a seeder. A zero seed picks a random one.
func NewLoremService(db *gorm.DB, objectStorage storage.ObjectStorage, admin config.AdminConfig, seed int64, out io.Writer) *LoremService {
	return &LoremService{
		db:      db,
		seeds:   repository.NewSeedRepository(db),
		roles:   repository.NewRoleRepository(db),
		photos:  repository.NewPhotoRepository(db),
		storage: objectStorage,
		admin:   admin,
		faker:   gofakeit.New(seed),
		out:     out,
	}
}

// Run drops and recreates the schema, then generates every kind of row in
// dependency order.
func (s *LoremService) Run(ctx context.Context, counts LoremCounts) error {
	ctx = logger.SetComponent(ctx, "lorem")

	if err := repository.DropAll(ctx, s.db); err != nil {
		return err
	}
	if err := repository.CreateAll(ctx, s.db); err != nil {
		return err
	}
	if err := s.roles.InitRoles(ctx); err != nil {
		return fmt.Errorf("failed to init roles: %w", err)
	}
	fmt.Fprintln(s.out, "Initialized the roles and permissions.")

	if err := s.fakeAdmin(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Generated the administrator.")

	stages := []struct {
		name  string
		count int
		fn    func(context.Context, int) error
	}{
		{"users", counts.Users, s.fakeUsers},
		{"follows", counts.Follows, s.fakeFollows},
		{"tags", counts.Tags, s.fakeTags},
		{"photos", counts.Photos, s.fakePhotos},
		{"collects", counts.Collects, s.fakeCollects},
		{"comments", counts.Comments, s.fakeComments},
	}
	for _, st := range stages {
		if err := st.fn(ctx, st.count); err != nil {
			return fmt.Errorf("failed to generate %s: %w", st.name, err)
		}
		fmt.Fprintf(s.out, "Generated %d %s.\n", st.count, st.name)
	}
	fmt.Fprintln(s.out, "Done.")
	return nil
}

func (s *LoremService) fakeAdmin(ctx context.Context) error {
	role, err := s.roles.GetByName(ctx, domain.RoleAdministrator)
	if err != nil {
		return fmt.Errorf("failed to load administrator role: %w", err)
	}
	admin := &domain.User{
		Username:    s.admin.Username,
		Name:        s.admin.Name,
		Email:       s.admin.Email,
		Bio:         s.faker.Sentence(12),
		Website:     s.faker.URL(),
		Location:    s.faker.City(),
		MemberSince: time.Now(),
		Confirmed:   true,
		Active:      true,
		RoleID:      role.ID,
	}
	if err := admin.SetPassword(s.admin.Password); err != nil {
		return err
	}
	return s.seeds.CreateUser(ctx, admin)
}

func (s *LoremService) fakeUsers(ctx context.Context, n int) error {
	role, err := s.roles.GetByName(ctx, domain.RoleUser)
	if err != nil {
		return fmt.Errorf("failed to load user role: %w", err)
	}
	for i := 0; i < n; i++ {
		// index suffix keeps username and email unique across draws
		user := &domain.User{
			Username:    fmt.Sprintf("%s%d", s.faker.Username(), i),
			Name:        s.faker.Name(),
			Email:       fmt.Sprintf("%d.%s", i, s.faker.Email()),
			Bio:         s.faker.Sentence(12),
			Website:     s.faker.URL(),
			Location:    s.faker.City(),
			MemberSince: s.pastTime(),
			Confirmed:   true,
			Active:      true,
			RoleID:      role.ID,
		}
		if err := user.SetPassword("123456"); err != nil {
			return err
		}
		if err := s.seeds.CreateUser(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// attempts bounds retry loops that draw random pairs or words.
func attempts(n int) int {
	return n*10 + 10
}

func (s *LoremService) fakeFollows(ctx context.Context, n int) error {
	users, err := s.seeds.IDs(ctx, &domain.User{})
	if err != nil {
		return err
	}
	if len(users) < 2 {
		return nil
	}
	created := 0
	for try := 0; created < n && try < attempts(n); try++ {
		follower, followed := s.pick(users), s.pick(users)
		if follower == followed {
			continue
		}
		ok, err := s.seeds.CreateFollow(ctx, &domain.Follow{
			FollowerID: follower,
			FollowedID: followed,
			Timestamp:  s.pastTime(),
		})
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	return nil
}

func (s *LoremService) fakeTags(ctx context.Context, n int) error {
	created := 0
	for try := 0; created < n && try < attempts(n); try++ {
		ok, err := s.seeds.CreateTagIfMissing(ctx, &domain.Tag{Name: s.faker.Word()})
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	return nil
}

func (s *LoremService) fakePhotos(ctx context.Context, n int) error {
	users, err := s.seeds.IDs(ctx, &domain.User{})
	if err != nil {
		return err
	}
	tagIDs, err := s.seeds.IDs(ctx, &domain.Tag{})
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}

	for i := 0; i < n; i++ {
		filename, small, medium, err := s.uploadFakeImage(ctx)
		if err != nil {
			return err
		}

		photo := &domain.Photo{
			Filename:   filename,
			FilenameS:  small,
			FilenameM:  medium,
			Timestamp:  s.pastTime(),
			CanComment: true,
			AuthorID:   s.pick(users),
		}
		// leave some photos without a description so ml-backfill has work
		if s.faker.Number(0, 2) > 0 {
			desc := s.faker.Sentence(s.faker.Number(5, 15))
			photo.Description = &desc
		}

		if len(tagIDs) > 0 {
			picked := make(map[uint]struct{})
			for j := s.faker.Number(1, loremMaxTags); j > 0; j-- {
				picked[s.pick(tagIDs)] = struct{}{}
			}
			ids := make([]uint, 0, len(picked))
			for id := range picked {
				ids = append(ids, id)
			}
			tags, err := s.seeds.TagsByIDs(ctx, ids)
			if err != nil {
				return err
			}
			photo.Tags = tags
		}

		if err := s.photos.Create(ctx, photo); err != nil {
			return err
		}
	}
	return nil
}

// uploadFakeImage renders a solid-colour photo plus its small and medium
// renditions and stores all three.
func (s *LoremService) uploadFakeImage(ctx context.Context) (string, string, string, error) {
	base := uuid.New().String()
	fill := color.NRGBA{R: s.faker.Uint8(), G: s.faker.Uint8(), B: s.faker.Uint8(), A: 255}
	img := imaging.New(loremPhotoSize, loremPhotoSize, fill)

	files := []struct {
		key   string
		image image.Image
	}{
		{base + ".jpg", img},
		{base + "_s.jpg", imaging.Resize(img, loremSmallSize, 0, imaging.Lanczos)},
		{base + "_m.jpg", imaging.Resize(img, loremMediumSize, 0, imaging.Lanczos)},
	}
	for _, f := range files {
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, f.image, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return "", "", "", fmt.Errorf("failed to encode %s: %w", f.key, err)
		}
		if err := s.storage.Upload(ctx, f.key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/jpeg"); err != nil {
			return "", "", "", fmt.Errorf("failed to store %s: %w", f.key, err)
		}
	}
	return files[0].key, files[1].key, files[2].key, nil
}

func (s *LoremService) fakeCollects(ctx context.Context, n int) error {
	users, err := s.seeds.IDs(ctx, &domain.User{})
	if err != nil {
		return err
	}
	photos, err := s.seeds.IDs(ctx, &domain.Photo{})
	if err != nil {
		return err
	}
	if len(users) == 0 || len(photos) == 0 {
		return nil
	}
	created := 0
	for try := 0; created < n && try < attempts(n); try++ {
		ok, err := s.seeds.CreateCollect(ctx, &domain.Collect{
			CollectorID: s.pick(users),
			CollectedID: s.pick(photos),
			Timestamp:   s.pastTime(),
		})
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	return nil
}

func (s *LoremService) fakeComments(ctx context.Context, n int) error {
	users, err := s.seeds.IDs(ctx, &domain.User{})
	if err != nil {
		return err
	}
	photos, err := s.seeds.IDs(ctx, &domain.Photo{})
	if err != nil {
		return err
	}
	if len(users) == 0 || len(photos) == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		comment := &domain.Comment{
			Body:      s.faker.Sentence(s.faker.Number(3, 20)),
			Timestamp: s.pastTime(),
			AuthorID:  s.pick(users),
			PhotoID:   s.pick(photos),
		}
		if err := s.seeds.CreateComment(ctx, comment); err != nil {
			return err
		}
	}
	return nil
}

func (s *LoremService) pick(ids []uint) uint {
	return ids[s.faker.Number(0, len(ids)-1)]
}

func (s *LoremService) pastTime() time.Time {
	now := time.Now()
	return s.faker.DateRange(now.AddDate(-1, 0, 0), now)
}
