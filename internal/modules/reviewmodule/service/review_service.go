package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/metrics"
	"github.com/mantonx/streamhub/internal/modules/reviewmodule/core/repository"
	reviewerrors "github.com/mantonx/streamhub/internal/modules/reviewmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
	"gorm.io/gorm"
)

const (
	eventSource = "system.reviews"

	MessageCreated = "Thank you! Your review has been submitted."
	MessageUpdated = "Thank you! Your review has been updated."
)

// Options carries the collaborators of the review service
type Options struct {
	Repository *repository.ReviewRepository
	// Catalog answers whether a show exists and owns the cached rating
	// figures
	Catalog func() (services.CatalogService, error)
	Bus     events.EventBus
	Logger  hclog.Logger
}

// reviewServiceImpl implements the ReviewService interface
type reviewServiceImpl struct {
	repo    *repository.ReviewRepository
	catalog func() (services.CatalogService, error)
	bus     events.EventBus
	logger  hclog.Logger
}

// NewReviewService creates a new review service implementation
func NewReviewService(opts Options) services.ReviewService {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Catalog == nil {
		opts.Catalog = func() (services.CatalogService, error) {
			return nil, fmt.Errorf("catalog service is not available")
		}
	}
	return &reviewServiceImpl{
		repo:    opts.Repository,
		catalog: opts.Catalog,
		bus:     opts.Bus,
		logger:  opts.Logger,
	}
}

// ValidRating reports whether r is a half-star rating between 0.5 and 5
func ValidRating(r float64) bool {
	return r >= 0.5 && r <= 5 && r*2 == math.Trunc(r*2)
}

// SubmitReview creates the account's review of a show or updates the one
// it already wrote
func (s *reviewServiceImpl) SubmitReview(ctx context.Context, accountID, showID uint, input types.ReviewInput, ip string) (*types.ReviewResult, error) {
	if !ValidRating(input.Rating) {
		return nil, fmt.Errorf("%w: %v", reviewerrors.ErrInvalidRating, input.Rating)
	}
	if err := s.requireShow(ctx, showID); err != nil {
		return nil, err
	}

	var (
		review  *database.ReviewRating
		created bool
		err     error
	)
	// a concurrent first submission for the same pair loses the insert
	// race; the retry finds the winner's row and updates it
	for attempt := 0; attempt < 2; attempt++ {
		review, created, err = s.upsert(ctx, accountID, showID, input, ip)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	outcome, message := "updated", MessageUpdated
	if created {
		outcome, message = "created", MessageCreated
	}
	metrics.ReviewsSubmittedTotal.WithLabelValues(outcome).Inc()
	s.logger.Info("review "+outcome, "review_id", review.ID, "show_id", showID, "account_id", accountID)
	s.invalidateRating(ctx, showID)
	events.Emit(s.bus, events.NewEventWithData(events.EventReviewSubmitted, eventSource, "Review "+outcome, review.Subject,
		map[string]interface{}{
			"review_id":  review.ID,
			"show_id":    showID,
			"account_id": accountID,
			"rating":     review.Rating,
			"created":    created,
		}))

	return &types.ReviewResult{Review: review, Created: created, Message: message}, nil
}

func (s *reviewServiceImpl) upsert(ctx context.Context, accountID, showID uint, input types.ReviewInput, ip string) (*database.ReviewRating, bool, error) {
	var (
		review  *database.ReviewRating
		created bool
	)
	err := s.repo.Transaction(ctx, func(tx *repository.ReviewRepository) error {
		existing, err := tx.FindByAccountAndShow(ctx, accountID, showID)
		if err != nil {
			return err
		}

		if existing == nil {
			review = &database.ReviewRating{AccountID: accountID, ShowID: showID, Status: true}
			created = true
		} else {
			review = existing
		}
		review.Subject = strings.TrimSpace(input.Subject)
		review.Review = strings.TrimSpace(input.Review)
		review.Rating = input.Rating
		review.IP = ip

		if created {
			return tx.Create(ctx, review)
		}
		return tx.Save(ctx, review)
	})
	return review, created, err
}

// invalidateRating drops the catalog's cached figures before the write
// returns, so the next read sees the change even if the review event is
// dropped
func (s *reviewServiceImpl) invalidateRating(ctx context.Context, showID uint) {
	catalog, err := s.catalog()
	if err != nil {
		s.logger.Warn("cannot invalidate rating cache", "show_id", showID, "error", err)
		return
	}
	catalog.InvalidateRating(ctx, showID)
}

func (s *reviewServiceImpl) requireShow(ctx context.Context, showID uint) error {
	catalog, err := s.catalog()
	if err != nil {
		return err
	}
	exists, err := catalog.ShowExists(ctx, showID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: id %d", reviewerrors.ErrShowNotFound, showID)
	}
	return nil
}

// ListReviews returns the visible reviews of a show, newest first
func (s *reviewServiceImpl) ListReviews(ctx context.Context, showID uint) ([]database.ReviewRating, error) {
	if err := s.requireShow(ctx, showID); err != nil {
		return nil, err
	}
	return s.repo.ListVisible(ctx, showID)
}

// AverageRating is the mean of the visible ratings of a show, 0 when none
func (s *reviewServiceImpl) AverageRating(ctx context.Context, showID uint) (float64, error) {
	average, _, err := s.repo.Stats(ctx, showID)
	return average, err
}

// CountReviews is the number of visible reviews of a show
func (s *reviewServiceImpl) CountReviews(ctx context.Context, showID uint) (int64, error) {
	_, count, err := s.repo.Stats(ctx, showID)
	return count, err
}

// SetVisibility shows or hides a review
func (s *reviewServiceImpl) SetVisibility(ctx context.Context, reviewID uint, visible bool) (*database.ReviewRating, error) {
	if err := s.repo.SetStatus(ctx, reviewID, visible); err != nil {
		return nil, err
	}
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("review moderated", "review_id", reviewID, "visible", visible)
	s.invalidateRating(ctx, review.ShowID)
	events.Emit(s.bus, events.NewEventWithData(events.EventReviewModerated, eventSource, "Review moderated", "",
		map[string]interface{}{"review_id": reviewID, "show_id": review.ShowID, "visible": visible}))
	return review, nil
}
