package service

import (
	"context"
	"testing"
	"time"

	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/database/dbtest"
	"github.com/mantonx/streamhub/internal/modules/reviewmodule/core/repository"
	reviewerrors "github.com/mantonx/streamhub/internal/modules/reviewmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubCatalog answers ShowExists from the test database and records rating
// invalidations
type stubCatalog struct {
	services.CatalogService
	db          *gorm.DB
	invalidated []uint
}

func (s *stubCatalog) InvalidateRating(_ context.Context, showID uint) {
	s.invalidated = append(s.invalidated, showID)
}

func (s *stubCatalog) ShowExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&database.Show{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

type fixture struct {
	db      *gorm.DB
	catalog *stubCatalog
	svc     services.ReviewService
	ctx     context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	catalog := &stubCatalog{db: db}
	return &fixture{
		db:      db,
		catalog: catalog,
		svc: NewReviewService(Options{
			Repository: repository.NewReviewRepository(db),
			Catalog:    func() (services.CatalogService, error) { return catalog, nil },
		}),
		ctx: context.Background(),
	}
}

func (f *fixture) account(t *testing.T, username string) uint {
	a := &database.Account{
		Kind:         database.AccountKindSubscriber,
		Role:         database.RoleUser,
		Email:        username + "@example.com",
		Username:     &username,
		PasswordHash: "hash",
		IsActive:     true,
		DateJoined:   time.Now(),
	}
	require.NoError(t, f.db.Create(a).Error)
	return a.ID
}

func (f *fixture) show(t *testing.T) uint {
	s := &database.Show{Title: "Reviewed", Year: 2000, Genre: database.GenreDrama}
	require.NoError(t, f.db.Create(s).Error)
	return s.ID
}

func TestValidRating(t *testing.T) {
	for _, r := range []float64{0.5, 1, 2.5, 5} {
		assert.True(t, ValidRating(r), "%v", r)
	}
	for _, r := range []float64{0, 0.25, 4.75, 5.5, -1} {
		assert.False(t, ValidRating(r), "%v", r)
	}
}

func TestSubmitReviewCreatesThenUpdates(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	show := f.show(t)

	first, err := f.svc.SubmitReview(f.ctx, anna, show, types.ReviewInput{Subject: "Good", Review: "Liked it", Rating: 4}, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, MessageCreated, first.Message)
	assert.True(t, first.Review.Status)

	second, err := f.svc.SubmitReview(f.ctx, anna, show, types.ReviewInput{Subject: "Better", Review: "Grew on me", Rating: 4.5}, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, MessageUpdated, second.Message)
	assert.Equal(t, first.Review.ID, second.Review.ID)

	var rows []database.ReviewRating
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Better", rows[0].Subject)
	assert.Equal(t, 4.5, rows[0].Rating)
	assert.Equal(t, "10.0.0.2", rows[0].IP)
}

func TestSubmitReviewRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	show := f.show(t)

	_, err := f.svc.SubmitReview(f.ctx, anna, show, types.ReviewInput{Rating: 4.2}, "")
	assert.ErrorIs(t, err, reviewerrors.ErrInvalidRating)

	_, err = f.svc.SubmitReview(f.ctx, anna, 999, types.ReviewInput{Rating: 3}, "")
	assert.ErrorIs(t, err, reviewerrors.ErrShowNotFound)
}

func TestStatsAndVisibility(t *testing.T) {
	f := newFixture(t)
	show := f.show(t)

	average, err := f.svc.AverageRating(f.ctx, show)
	require.NoError(t, err)
	assert.Zero(t, average)

	var hidden uint
	for i, rating := range []float64{5, 3, 1} {
		account := f.account(t, []string{"anna", "ben", "cleo"}[i])
		result, err := f.svc.SubmitReview(f.ctx, account, show, types.ReviewInput{Rating: rating}, "")
		require.NoError(t, err)
		hidden = result.Review.ID
	}

	average, err = f.svc.AverageRating(f.ctx, show)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, average, 0.0001)

	review, err := f.svc.SetVisibility(f.ctx, hidden, false)
	require.NoError(t, err)
	assert.False(t, review.Status)

	average, err = f.svc.AverageRating(f.ctx, show)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, average, 0.0001)
	count, err := f.svc.CountReviews(f.ctx, show)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	reviews, err := f.svc.ListReviews(f.ctx, show)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	for _, r := range reviews {
		assert.NotEqual(t, "cleo", r.Author)
		assert.NotEmpty(t, r.Author)
	}

	_, err = f.svc.SetVisibility(f.ctx, 999, true)
	assert.ErrorIs(t, err, reviewerrors.ErrReviewNotFound)
}

func TestResubmittingKeepsModeration(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	show := f.show(t)

	result, err := f.svc.SubmitReview(f.ctx, anna, show, types.ReviewInput{Rating: 1}, "")
	require.NoError(t, err)
	_, err = f.svc.SetVisibility(f.ctx, result.Review.ID, false)
	require.NoError(t, err)

	result, err = f.svc.SubmitReview(f.ctx, anna, show, types.ReviewInput{Rating: 2}, "")
	require.NoError(t, err)
	assert.False(t, result.Review.Status)
}

func TestWritesInvalidateCachedRating(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	show := f.show(t)

	result, err := f.svc.SubmitReview(f.ctx, anna, show, types.ReviewInput{Rating: 4}, "")
	require.NoError(t, err)
	assert.Equal(t, []uint{show}, f.catalog.invalidated)

	_, err = f.svc.SetVisibility(f.ctx, result.Review.ID, false)
	require.NoError(t, err)
	assert.Equal(t, []uint{show, show}, f.catalog.invalidated)

	_, err = f.svc.SubmitReview(f.ctx, anna, 999, types.ReviewInput{Rating: 4}, "")
	require.Error(t, err)
	assert.Len(t, f.catalog.invalidated, 2)
}

func TestListReviewsUnknownShow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListReviews(f.ctx, 999)
	assert.ErrorIs(t, err, reviewerrors.ErrShowNotFound)

	reviews, err := f.svc.ListReviews(f.ctx, f.show(t))
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
