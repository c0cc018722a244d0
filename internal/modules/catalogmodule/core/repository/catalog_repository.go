// Package repository provides data access for shows, seasons, episodes and
// categories
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mantonx/streamhub/internal/database"
	catalogerrors "github.com/mantonx/streamhub/internal/modules/catalogmodule/errors"
	"github.com/mantonx/streamhub/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortOrders maps the public sort keys to ORDER BY clauses. The id
// tiebreaker keeps pages stable.
var sortOrders = map[string]string{
	"popularity":  "shows.popularity ASC, shows.id ASC",
	"-popularity": "shows.popularity DESC, shows.id ASC",
	"year":        "shows.year ASC, shows.id ASC",
	"-year":       "shows.year DESC, shows.id ASC",
	"title":       "shows.title ASC, shows.id ASC",
	"-title":      "shows.title DESC, shows.id ASC",
}

// CatalogRepository handles all database operations for the catalog
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Transaction runs fn with a repository bound to one transaction
func (r *CatalogRepository) Transaction(ctx context.Context, fn func(tx *CatalogRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewCatalogRepository(tx))
	})
}

// =============================================================================
// SHOWS
// =============================================================================

// ListShows returns one page of shows matching filter and the total match
// count. filter must already be normalized.
func (r *CatalogRepository) ListShows(ctx context.Context, filter types.ShowFilter) ([]database.Show, int64, error) {
	query := r.db.WithContext(ctx).Model(&database.Show{})

	if filter.CategorySlug != "" {
		query = query.Where("shows.category_id IN (?)",
			r.db.Model(&database.Category{}).Select("id").Where("slug = ?", filter.CategorySlug))
	}
	if filter.Genre != "" {
		genre, ok := database.ParseGenre(filter.Genre)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidGenre, filter.Genre)
		}
		query = query.Where("shows.genre = ?", genre)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
		query = query.Where("LOWER(shows.title) LIKE ? ESCAPE '\\' OR LOWER(shows.description) LIKE ? ESCAPE '\\'", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count shows: %w", err)
	}

	order, ok := sortOrders[filter.Sort]
	if !ok {
		order = sortOrders["popularity"]
	}

	var shows []database.Show
	err := query.Preload("Category").
		Order(order).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&shows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shows: %w", err)
	}
	return shows, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetShow loads a show with its category and ordered seasons and episodes
func (r *CatalogRepository) GetShow(ctx context.Context, id uint) (*database.Show, error) {
	var show database.Show
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Seasons", func(db *gorm.DB) *gorm.DB { return db.Order("seasons.number ASC") }).
		Preload("Seasons.Episodes", func(db *gorm.DB) *gorm.DB { return db.Order("episodes.number ASC") }).
		First(&show, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", catalogerrors.ErrShowNotFound, id)
		}
		return nil, fmt.Errorf("failed to get show: %w", err)
	}
	return &show, nil
}

// ShowExists reports whether a show with id exists
func (r *CatalogRepository) ShowExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&database.Show{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check show: %w", err)
	}
	return count > 0, nil
}

// CreateShow inserts a show
func (r *CatalogRepository) CreateShow(ctx context.Context, show *database.Show) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(show).Error; err != nil {
		return fmt.Errorf("failed to create show: %w", err)
	}
	return nil
}

// SaveShow writes the show's own columns
func (r *CatalogRepository) SaveShow(ctx context.Context, show *database.Show) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(show).Error; err != nil {
		return fmt.Errorf("failed to save show: %w", err)
	}
	return nil
}

// DeleteShow removes a show with its seasons, episodes, reviews, favourites
// and folder memberships
func (r *CatalogRepository) DeleteShow(ctx context.Context, id uint) error {
	return r.Transaction(ctx, func(tx *CatalogRepository) error {
		db := tx.db

		seasonIDs := db.Model(&database.Season{}).Select("id").Where("show_id = ?", id)
		steps := []struct {
			what  string
			model interface{}
			query *gorm.DB
		}{
			{"episodes", &database.Episode{}, db.Where("season_id IN (?)", seasonIDs)},
			{"seasons", &database.Season{}, db.Where("show_id = ?", id)},
			{"reviews", &database.ReviewRating{}, db.Where("show_id = ?", id)},
			{"favorites", &database.Favorite{}, db.Where("show_id = ?", id)},
		}
		for _, step := range steps {
			if err := step.query.Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to delete %s of show %d: %w", step.what, id, err)
			}
		}
		if err := db.Exec("DELETE FROM folder_shows WHERE show_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete folder entries of show %d: %w", id, err)
		}

		result := db.Delete(&database.Show{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete show: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", catalogerrors.ErrShowNotFound, id)
		}
		return nil
	})
}

// =============================================================================
// SEASONS & EPISODES
// =============================================================================

// CreateSeason inserts a season; a duplicate number yields ErrDuplicateSeason
func (r *CatalogRepository) CreateSeason(ctx context.Context, season *database.Season) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(season).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: number %d", catalogerrors.ErrDuplicateSeason, season.Number)
		}
		return fmt.Errorf("failed to create season: %w", err)
	}
	return nil
}

// GetSeason loads a season without its episodes
func (r *CatalogRepository) GetSeason(ctx context.Context, id uint) (*database.Season, error) {
	var season database.Season
	if err := r.db.WithContext(ctx).First(&season, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", catalogerrors.ErrSeasonNotFound, id)
		}
		return nil, fmt.Errorf("failed to get season: %w", err)
	}
	return &season, nil
}

// CreateEpisode inserts an episode; a duplicate number yields ErrDuplicateEpisode
func (r *CatalogRepository) CreateEpisode(ctx context.Context, episode *database.Episode) error {
	if err := r.db.WithContext(ctx).Create(episode).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: number %d", catalogerrors.ErrDuplicateEpisode, episode.Number)
		}
		return fmt.Errorf("failed to create episode: %w", err)
	}
	return nil
}

// EpisodesBySeason returns the episodes of a season ordered by number
func (r *CatalogRepository) EpisodesBySeason(ctx context.Context, seasonID uint) ([]database.Episode, error) {
	var episodes []database.Episode
	err := r.db.WithContext(ctx).
		Where("season_id = ?", seasonID).
		Order("number ASC").
		Find(&episodes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	return episodes, nil
}

// =============================================================================
// CATEGORIES
// =============================================================================

// ListCategories returns all categories ordered by name
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]database.Category, error) {
	var categories []database.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug looks a category up by slug
func (r *CatalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (*database.Category, error) {
	var category database.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", catalogerrors.ErrCategoryNotFound, slug)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// CategoryExists reports whether a category with id exists
func (r *CatalogRepository) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&database.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return count > 0, nil
}

// CategoryTaken reports whether another category uses name or slug
func (r *CatalogRepository) CategoryTaken(ctx context.Context, name, slug string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&database.Category{}).
		Where("LOWER(name) = ? OR slug = ?", strings.ToLower(name), slug)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check category uniqueness: %w", err)
	}
	return count > 0, nil
}

// SaveCategory inserts or updates a category
func (r *CatalogRepository) SaveCategory(ctx context.Context, category *database.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateCategory, category.Name)
		}
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category; its shows stay and lose the category
func (r *CatalogRepository) DeleteCategory(ctx context.Context, id uint) error {
	return r.Transaction(ctx, func(tx *CatalogRepository) error {
		if err := tx.db.Model(&database.Show{}).Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach shows from category: %w", err)
		}
		result := tx.db.Delete(&database.Category{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete category: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: id %d", catalogerrors.ErrCategoryNotFound, id)
		}
		return nil
	})
}

// =============================================================================
// RATINGS
// =============================================================================

// RatingSummaries returns the visible review average and count of each show
// in ids. Shows without reviews get a zero summary.
func (r *CatalogRepository) RatingSummaries(ctx context.Context, ids []uint) (map[uint]types.RatingSummary, error) {
	summaries := make(map[uint]types.RatingSummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}
	for _, id := range ids {
		summaries[id] = types.RatingSummary{ShowID: id}
	}

	var rows []struct {
		ShowID  uint
		Average float64
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&database.ReviewRating{}).
		Select("show_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("status = ? AND show_id IN ?", true, ids).
		Group("show_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize ratings: %w", err)
	}

	for _, row := range rows {
		summaries[row.ShowID] = types.RatingSummary{ShowID: row.ShowID, Average: row.Average, Count: row.Count}
	}
	return summaries, nil
}

// VisibleReviews returns the visible reviews of a show, newest first, with
// the author's display name filled in
func (r *CatalogRepository) VisibleReviews(ctx context.Context, showID uint) ([]database.ReviewRating, error) {
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
