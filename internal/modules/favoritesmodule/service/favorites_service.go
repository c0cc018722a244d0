package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/metrics"
	"github.com/mantonx/streamhub/internal/modules/favoritesmodule/core/repository"
	favoriteerrors "github.com/mantonx/streamhub/internal/modules/favoritesmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

const eventSource = "system.favorites"

// DefaultColour is used when a folder is created without one
const DefaultColour = database.ColourYellow

// Options carries the collaborators of the favourites service
type Options struct {
	Repository *repository.FavoritesRepository
	// Catalog answers whether a show exists
	Catalog func() (services.CatalogService, error)
	Bus     events.EventBus
	Logger  hclog.Logger
}

// favoritesServiceImpl implements the FavoritesService interface
type favoritesServiceImpl struct {
	repo    *repository.FavoritesRepository
	catalog func() (services.CatalogService, error)
	bus     events.EventBus
	logger  hclog.Logger
}

// NewFavoritesService creates a new favourites service implementation
func NewFavoritesService(opts Options) services.FavoritesService {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Catalog == nil {
		opts.Catalog = func() (services.CatalogService, error) {
			return nil, fmt.Errorf("catalog service is not available")
		}
	}
	return &favoritesServiceImpl{
		repo:    opts.Repository,
		catalog: opts.Catalog,
		bus:     opts.Bus,
		logger:  opts.Logger,
	}
}

func (s *favoritesServiceImpl) requireShow(ctx context.Context, showID uint) error {
	catalog, err := s.catalog()
	if err != nil {
		return err
	}
	exists, err := catalog.ShowExists(ctx, showID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: id %d", favoriteerrors.ErrShowNotFound, showID)
	}
	return nil
}

// AddFavorite marks a show as a favourite. Adding it twice is a no-op.
func (s *favoritesServiceImpl) AddFavorite(ctx context.Context, accountID, showID uint) error {
	if err := s.requireShow(ctx, showID); err != nil {
		return err
	}
	added, err := s.repo.AddFavorite(ctx, accountID, showID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	metrics.FavoritesChangedTotal.WithLabelValues("added").Inc()
	s.logger.Debug("favourite added", "account_id", accountID, "show_id", showID)
	events.Emit(s.bus, events.NewEventWithData(events.EventFavoriteAdded, eventSource,
		"Favourite added", "", map[string]interface{}{"account_id": accountID, "show_id": showID}))
	return nil
}

// RemoveFavorite unmarks a show; removing a show that is not a favourite
// is a no-op
func (s *favoritesServiceImpl) RemoveFavorite(ctx context.Context, accountID, showID uint) error {
	removed, err := s.repo.RemoveFavorite(ctx, accountID, showID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	metrics.FavoritesChangedTotal.WithLabelValues("removed").Inc()
	events.Emit(s.bus, events.NewEventWithData(events.EventFavoriteRemoved, eventSource,
		"Favourite removed", "", map[string]interface{}{"account_id": accountID, "show_id": showID}))
	return nil
}

// ListFavorites returns favourite shows, newest first
func (s *favoritesServiceImpl) ListFavorites(ctx context.Context, accountID uint) ([]database.Show, error) {
	return s.repo.ListFavorites(ctx, accountID)
}

// IsFavorite reports whether the account has marked the show
func (s *favoritesServiceImpl) IsFavorite(ctx context.Context, accountID, showID uint) (bool, error) {
	return s.repo.IsFavorite(ctx, accountID, showID)
}

// CreateFolder adds an empty folder
func (s *favoritesServiceImpl) CreateFolder(ctx context.Context, accountID uint, input types.FolderInput) (*database.Folder, error) {
	folder := &database.Folder{AccountID: accountID, Shows: []database.Show{}}
	if err := s.applyFolderInput(ctx, folder, input); err != nil {
		return nil, err
	}
	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// ListFolders returns the account's folders with their shows
func (s *favoritesServiceImpl) ListFolders(ctx context.Context, accountID uint) ([]database.Folder, error) {
	return s.repo.ListFolders(ctx, accountID)
}

// GetFolder returns one of the account's folders
func (s *favoritesServiceImpl) GetFolder(ctx context.Context, accountID, folderID uint) (*database.Folder, error) {
	return s.repo.GetFolder(ctx, accountID, folderID)
}

// RenameFolder changes the name and, when given, the colour of a folder
func (s *favoritesServiceImpl) RenameFolder(ctx context.Context, accountID, folderID uint, input types.FolderInput) (*database.Folder, error) {
	folder, err := s.repo.GetFolder(ctx, accountID, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.applyFolderInput(ctx, folder, input); err != nil {
		return nil, err
	}
	if err := s.repo.SaveFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *favoritesServiceImpl) applyFolderInput(ctx context.Context, folder *database.Folder, input types.FolderInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return favoriteerrors.ErrFolderNameRequired
	}

	colour := folder.Colour
	if input.Colour != "" {
		parsed, ok := database.ParseColour(input.Colour)
		if !ok {
			return fmt.Errorf("%w: %s", favoriteerrors.ErrInvalidColour, input.Colour)
		}
		colour = parsed
	}
	if colour == "" {
		colour = DefaultColour
	}

	taken, err := s.repo.FolderNameTaken(ctx, folder.AccountID, name, folder.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: %s", favoriteerrors.ErrDuplicateFolder, name)
	}

	folder.Name = name
	folder.Colour = colour
	return nil
}

// DeleteFolder removes one of the account's folders
func (s *favoritesServiceImpl) DeleteFolder(ctx context.Context, accountID, folderID uint) error {
	folder, err := s.repo.GetFolder(ctx, accountID, folderID)
	if err != nil {
		return err
	}
	return s.repo.DeleteFolder(ctx, folder.ID)
}

// AddShowToFolder puts a show in a folder. Adding it twice is a no-op.
func (s *favoritesServiceImpl) AddShowToFolder(ctx context.Context, accountID, folderID, showID uint) error {
	folder, err := s.repo.GetFolder(ctx, accountID, folderID)
	if err != nil {
		return err
	}
	if err := s.requireShow(ctx, showID); err != nil {
		return err
	}
	return s.repo.AddShowToFolder(ctx, folder.ID, showID)
}

// RemoveShowFromFolder takes a show out of a folder
func (s *favoritesServiceImpl) RemoveShowFromFolder(ctx context.Context, accountID, folderID, showID uint) error {
	folder, err := s.repo.GetFolder(ctx, accountID, folderID)
	if err != nil {
		return err
	}
	return s.repo.RemoveShowFromFolder(ctx, folder.ID, showID)
}
