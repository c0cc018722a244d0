// Package repository provides data access for reviews and ratings
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mantonx/streamhub/internal/database"
	reviewerrors "github.com/mantonx/streamhub/internal/modules/reviewmodule/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReviewRepository handles all database operations for reviews
type ReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Transaction runs fn with a repository bound to one transaction
func (r *ReviewRepository) Transaction(ctx context.Context, fn func(tx *ReviewRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewReviewRepository(tx))
	})
}

// FindByAccountAndShow returns the account's review of a show, or nil when
// there is none
func (r *ReviewRepository) FindByAccountAndShow(ctx context.Context, accountID, showID uint) (*database.ReviewRating, error) {
	var review database.ReviewRating
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND show_id = ?", accountID, showID).
		Take(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return &review, nil
}

// GetByID loads a review
func (r *ReviewRepository) GetByID(ctx context.Context, id uint) (*database.ReviewRating, error) {
	var review database.ReviewRating
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", reviewerrors.ErrReviewNotFound, id)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return &review, nil
}

// Create inserts a review. A concurrent insert for the same pair surfaces
// as gorm.ErrDuplicatedKey.
func (r *ReviewRepository) Create(ctx context.Context, review *database.ReviewRating) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// Save writes the review's own columns
func (r *ReviewRepository) Save(ctx context.Context, review *database.ReviewRating) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(review).Error; err != nil {
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// SetStatus shows or hides a review
func (r *ReviewRepository) SetStatus(ctx context.Context, id uint, visible bool) error {
	result := r.db.WithContext(ctx).Model(&database.ReviewRating{}).
		Where("id = ?", id).
		Update("status", visible)
	if result.Error != nil {
		return fmt.Errorf("failed to update review status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", reviewerrors.ErrReviewNotFound, id)
	}
	return nil
}

// ListVisible returns the visible reviews of a show, newest first, with
// authors filled in
func (r *ReviewRepository) ListVisible(ctx context.Context, showID uint) ([]database.ReviewRating, error) {
	var reviews []database.ReviewRating
	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("show_id = ? AND status = ?", showID, true).
		Order("updated_at DESC, id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	for i := range reviews {
		if reviews[i].Account != nil {
			reviews[i].Author = reviews[i].Account.DisplayName()
		}
	}
	return reviews, nil
}

// Stats returns the average rating and count of the visible reviews of a
// show. Both are zero when there are none.
func (r *ReviewRepository) Stats(ctx context.Context, showID uint) (average float64, count int64, err error) {
	var row struct {
		Average *float64
		Count   int64
	}
	err = r.db.WithContext(ctx).Model(&database.ReviewRating{}).
		Select("AVG(rating) AS average, COUNT(*) AS count").
		Where("show_id = ? AND status = ?", showID, true).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	if row.Average != nil {
		average = *row.Average
	}
	return average, row.Count, nil
}
