package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/cache"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/modules/catalogmodule/core/repository"
	"github.com/mantonx/streamhub/internal/modules/catalogmodule/core/slug"
	catalogerrors "github.com/mantonx/streamhub/internal/modules/catalogmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

const (
	eventSource = "system.catalog"

	// PosterKind is the asset directory for show posters
	PosterKind = "posters"

	categoriesKey = "categories"
	categoriesTTL = 5 * time.Minute
	ratingTTL     = 10 * time.Minute
)

// Options carries the collaborators of the catalog service. Cache, Assets
// and Bus may be nil.
type Options struct {
	Repository *repository.CatalogRepository
	Cache      cache.Cache
	Assets     func() (services.AssetService, error)
	Bus        events.EventBus
	Logger     hclog.Logger
}

// catalogServiceImpl implements the CatalogService interface
type catalogServiceImpl struct {
	repo   *repository.CatalogRepository
	cache  cache.Cache
	assets func() (services.AssetService, error)
	bus    events.EventBus
	logger hclog.Logger
}

// NewCatalogService creates a new catalog service implementation
func NewCatalogService(opts Options) services.CatalogService {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache("catalog")
	}
	if opts.Assets == nil {
		opts.Assets = func() (services.AssetService, error) {
			return nil, fmt.Errorf("asset service is not available")
		}
	}
	return &catalogServiceImpl{
		repo:   opts.Repository,
		cache:  opts.Cache,
		assets: opts.Assets,
		bus:    opts.Bus,
		logger: opts.Logger,
	}
}

func ratingKey(showID uint) string {
	return "rating:" + strconv.FormatUint(uint64(showID), 10)
}

// ListShows returns one page of shows with their rating figures
func (s *catalogServiceImpl) ListShows(ctx context.Context, filter types.ShowFilter) (*types.ShowList, error) {
	filter.Normalize()

	shows, total, err := s.repo.ListShows(ctx, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(shows))
	for i, show := range shows {
		ids[i] = show.ID
	}
	summaries, err := s.repo.RatingSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]types.ShowSummary, len(shows))
	for i, show := range shows {
		summary := summaries[show.ID]
		items[i] = types.ShowSummary{Show: show, AverageReview: summary.Average, CountReview: summary.Count}
	}

	return &types.ShowList{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// GetShow returns a show with seasons, episodes, rating figures and its
// visible reviews. The figures are read with the reviews rather than from
// the cache so the two always agree; the fresh figures then replace the
// cached ones.
func (s *catalogServiceImpl) GetShow(ctx context.Context, id uint) (*types.ShowDetail, error) {
	show, err := s.repo.GetShow(ctx, id)
	if err != nil {
		return nil, err
	}
	summaries, err := s.repo.RatingSummaries(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	summary := summaries[id]
	reviews, err := s.repo.VisibleReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, ratingKey(id), summary, ratingTTL); err != nil {
		s.logger.Warn("rating cache write failed", "show_id", id, "error", err)
	}

	return &types.ShowDetail{
		ShowSummary: types.ShowSummary{Show: *show, AverageReview: summary.Average, CountReview: summary.Count},
		Reviews:     reviews,
	}, nil
}

// ShowExists reports whether a show exists
func (s *catalogServiceImpl) ShowExists(ctx context.Context, id uint) (bool, error) {
	return s.repo.ShowExists(ctx, id)
}

// EpisodesBySeason returns the ordered episodes of a season
func (s *catalogServiceImpl) EpisodesBySeason(ctx context.Context, seasonID uint) ([]database.Episode, error) {
	if _, err := s.repo.GetSeason(ctx, seasonID); err != nil {
		return nil, err
	}
	return s.repo.EpisodesBySeason(ctx, seasonID)
}

// ListCategories returns every category, served from cache when possible
func (s *catalogServiceImpl) ListCategories(ctx context.Context) ([]database.Category, error) {
	var categories []database.Category
	found, err := s.cache.Get(ctx, categoriesKey, &categories)
	if err != nil {
		s.logger.Warn("category cache read failed", "error", err)
	}
	if found {
		return categories, nil
	}

	categories, err = s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, categoriesKey, categories, categoriesTTL); err != nil {
		s.logger.Warn("category cache write failed", "error", err)
	}
	return categories, nil
}

// GetCategory looks a category up by slug
func (s *catalogServiceImpl) GetCategory(ctx context.Context, slug string) (*database.Category, error) {
	return s.repo.GetCategoryBySlug(ctx, slug)
}

// RatingSummary returns the visible review average and count of one show
func (s *catalogServiceImpl) RatingSummary(ctx context.Context, showID uint) (types.RatingSummary, error) {
	var summary types.RatingSummary
	found, err := s.cache.Get(ctx, ratingKey(showID), &summary)
	if err != nil {
		s.logger.Warn("rating cache read failed", "show_id", showID, "error", err)
	}
	if found {
		return summary, nil
	}

	summaries, err := s.repo.RatingSummaries(ctx, []uint{showID})
	if err != nil {
		return types.RatingSummary{}, err
	}
	summary = summaries[showID]
	if err := s.cache.Set(ctx, ratingKey(showID), summary, ratingTTL); err != nil {
		s.logger.Warn("rating cache write failed", "show_id", showID, "error", err)
	}
	return summary, nil
}

// InvalidateRating drops the cached rating figures of a show
func (s *catalogServiceImpl) InvalidateRating(ctx context.Context, showID uint) {
	if err := s.cache.Delete(ctx, ratingKey(showID)); err != nil {
		s.logger.Warn("rating cache delete failed", "show_id", showID, "error", err)
	}
}

// CreateShow adds a show to the catalog
func (s *catalogServiceImpl) CreateShow(ctx context.Context, input types.ShowInput) (*database.Show, error) {
	show := &database.Show{}
	if err := s.applyShowInput(ctx, show, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateShow(ctx, show); err != nil {
		return nil, err
	}

	s.logger.Info("show created", "show_id", show.ID, "title", show.Title)
	s.emitShow(events.EventShowCreated, "Show created", show)
	return show, nil
}

// UpdateShow replaces the editable fields of a show
func (s *catalogServiceImpl) UpdateShow(ctx context.Context, id uint, input types.ShowInput) (*database.Show, error) {
	show, err := s.repo.GetShow(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyShowInput(ctx, show, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveShow(ctx, show); err != nil {
		return nil, err
	}

	s.emitShow(events.EventShowUpdated, "Show updated", show)
	return s.repo.GetShow(ctx, id)
}

func (s *catalogServiceImpl) applyShowInput(ctx context.Context, show *database.Show, input types.ShowInput) error {
	genre, ok := database.ParseGenre(input.Genre)
	if !ok {
		return fmt.Errorf("%w: %s", catalogerrors.ErrInvalidGenre, input.Genre)
	}
	if input.CategoryID != nil {
		exists, err := s.repo.CategoryExists(ctx, *input.CategoryID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: id %d", catalogerrors.ErrCategoryNotFound, *input.CategoryID)
		}
	}

	show.Title = strings.TrimSpace(input.Title)
	show.Description = input.Description
	show.Year = input.Year
	show.Genre = genre
	show.Popularity = input.Popularity
	show.VideoPath = input.VideoPath
	show.CategoryID = input.CategoryID
	show.Category = nil
	return nil
}

// DeleteShow removes a show and everything hanging off it, then its poster
func (s *catalogServiceImpl) DeleteShow(ctx context.Context, id uint) error {
	show, err := s.repo.GetShow(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteShow(ctx, id); err != nil {
		return err
	}
	s.InvalidateRating(ctx, id)

	if show.PosterPath != "" {
		s.removeAsset(ctx, show.PosterPath)
	}

	s.logger.Info("show deleted", "show_id", id)
	s.emitShow(events.EventShowDeleted, "Show deleted", show)
	return nil
}

// UploadPoster stores a new poster image and removes the one it replaces
func (s *catalogServiceImpl) UploadPoster(ctx context.Context, id uint, filename string, r io.Reader) (*database.Show, error) {
	show, err := s.repo.GetShow(ctx, id)
	if err != nil {
		return nil, err
	}

	assets, err := s.assets()
	if err != nil {
		return nil, err
	}
	stored, err := assets.StoreImage(ctx, PosterKind, filename, r)
	if err != nil {
		return nil, err
	}

	previous := show.PosterPath
	show.PosterPath = stored.Path
	if err := s.repo.SaveShow(ctx, show); err != nil {
		s.removeAsset(ctx, stored.Path)
		return nil, err
	}
	if previous != "" && previous != stored.Path {
		s.removeAsset(ctx, previous)
	}

	s.emitShow(events.EventShowUpdated, "Poster updated", show)
	return show, nil
}

func (s *catalogServiceImpl) removeAsset(ctx context.Context, path string) {
	assets, err := s.assets()
	if err == nil {
		err = assets.Remove(ctx, path)
	}
	if err != nil {
		s.logger.Warn("failed to remove asset", "path", path, "error", err)
	}
}

// AddSeason appends a season to a show
func (s *catalogServiceImpl) AddSeason(ctx context.Context, showID uint, input types.SeasonInput) (*database.Season, error) {
	exists, err := s.repo.ShowExists(ctx, showID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: id %d", catalogerrors.ErrShowNotFound, showID)
	}

	season := &database.Season{ShowID: showID, Number: input.Number, Title: strings.TrimSpace(input.Title)}
	if err := s.repo.CreateSeason(ctx, season); err != nil {
		return nil, err
	}
	return season, nil
}

// AddEpisode appends an episode to a season
func (s *catalogServiceImpl) AddEpisode(ctx context.Context, seasonID uint, input types.EpisodeInput) (*database.Episode, error) {
	if _, err := s.repo.GetSeason(ctx, seasonID); err != nil {
		return nil, err
	}

	episode := &database.Episode{
		SeasonID:    seasonID,
		Number:      input.Number,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		VideoPath:   input.VideoPath,
		Duration:    input.Duration,
	}
	if err := s.repo.CreateEpisode(ctx, episode); err != nil {
		return nil, err
	}
	return episode, nil
}

// CreateCategory adds a category; its slug is derived from the name
func (s *catalogServiceImpl) CreateCategory(ctx context.Context, input types.CategoryInput) (*database.Category, error) {
	category := &database.Category{}
	if err := s.saveCategory(ctx, category, input); err != nil {
		return nil, err
	}
	s.emitCategory(ctx, events.EventCategoryCreated, "Category created", category)
	return category, nil
}

// UpdateCategory renames a category and recomputes its slug
func (s *catalogServiceImpl) UpdateCategory(ctx context.Context, slug string, input types.CategoryInput) (*database.Category, error) {
	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := s.saveCategory(ctx, category, input); err != nil {
		return nil, err
	}
	s.emitCategory(ctx, events.EventCategoryUpdated, "Category updated", category)
	return category, nil
}

func (s *catalogServiceImpl) saveCategory(ctx context.Context, category *database.Category, input types.CategoryInput) error {
	name := strings.TrimSpace(input.Name)
	newSlug := slug.Make(name)
	if newSlug == "" {
		return catalogerrors.ErrEmptySlug
	}

	taken, err := s.repo.CategoryTaken(ctx, name, newSlug, category.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", catalogerrors.ErrDuplicateCategory, name)
	}

	category.Name = name
	category.Slug = newSlug
	category.Description = input.Description
	return s.repo.SaveCategory(ctx, category)
}

// DeleteCategory removes a category; its shows remain uncategorised
func (s *catalogServiceImpl) DeleteCategory(ctx context.Context, slug string) error {
	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, category.ID); err != nil {
		return err
	}
	s.emitCategory(ctx, events.EventCategoryDeleted, "Category deleted", category)
	return nil
}

func (s *catalogServiceImpl) emitShow(eventType events.EventType, title string, show *database.Show) {
	events.Emit(s.bus, events.NewEventWithData(eventType, eventSource, title, show.Title,
		map[string]interface{}{"show_id": show.ID}))
}

// emitCategory also drops the cached category list
func (s *catalogServiceImpl) emitCategory(ctx context.Context, eventType events.EventType, title string, category *database.Category) {
	if err := s.cache.Delete(ctx, categoriesKey); err != nil {
		s.logger.Warn("category cache delete failed", "error", err)
	}
	events.Emit(s.bus, events.NewEventWithData(eventType, eventSource, title, category.Name,
		map[string]interface{}{"category_id": category.ID, "slug": category.Slug}))
}

// ShowIDFromEvent extracts the show id carried by review events
func ShowIDFromEvent(event events.Event) (uint, bool) {
	switch v := event.Data["show_id"].(type) {
	case uint:
		return v, true
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	case float64:
		return uint(v), v > 0
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return uint(id), err == nil && id > 0
	default:
		return 0, false
	}
}

// IsNotFound reports whether err is one of the catalog lookup misses
func IsNotFound(err error) bool {
	return errors.Is(err, catalogerrors.ErrShowNotFound) ||
		errors.Is(err, catalogerrors.ErrSeasonNotFound) ||
		errors.Is(err, catalogerrors.ErrCategoryNotFound)
}
