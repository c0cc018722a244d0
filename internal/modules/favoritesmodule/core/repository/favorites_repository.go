// Package repository provides data access for favourites and folders
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/mantonx/streamhub/internal/database"
	favoriteerrors "github.com/mantonx/streamhub/internal/modules/favoritesmodule/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const folderShowsTable = "folder_shows"

// FavoritesRepository handles all database operations for favourites and
// folders
type FavoritesRepository struct {
	db *gorm.DB
}

// NewFavoritesRepository creates a new favourites repository
func NewFavoritesRepository(db *gorm.DB) *FavoritesRepository {
	return &FavoritesRepository{db: db}
}

// Transaction runs fn with a repository bound to one transaction
func (r *FavoritesRepository) Transaction(ctx context.Context, fn func(tx *FavoritesRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewFavoritesRepository(tx))
	})
}

// =============================================================================
// FAVOURITES
// =============================================================================

// AddFavorite records the pair unless it already exists. added reports
// whether a row was inserted.
func (r *FavoritesRepository) AddFavorite(ctx context.Context, accountID, showID uint) (added bool, err error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&database.Favorite{AccountID: accountID, ShowID: showID})
	if result.Error != nil {
		return false, fmt.Errorf("failed to add favourite: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveFavorite deletes the pair. removed is false when it did not exist.
func (r *FavoritesRepository) RemoveFavorite(ctx context.Context, accountID, showID uint) (removed bool, err error) {
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND show_id = ?", accountID, showID).
		Delete(&database.Favorite{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove favourite: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListFavorites returns the favourite shows of an account, most recently
// added first
func (r *FavoritesRepository) ListFavorites(ctx context.Context, accountID uint) ([]database.Show, error) {
	var shows []database.Show
	err := r.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.show_id = shows.id").
		Where("favorites.account_id = ?", accountID).
		Preload("Category").
		Order("favorites.created_at DESC, favorites.id DESC").
		Find(&shows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list favourites: %w", err)
	}
	return shows, nil
}

// IsFavorite reports whether the account has marked the show
func (r *FavoritesRepository) IsFavorite(ctx context.Context, accountID, showID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&database.Favorite{}).
		Where("account_id = ? AND show_id = ?", accountID, showID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check favourite: %w", err)
	}
	return count > 0, nil
}

// =============================================================================
// FOLDERS
// =============================================================================

// CreateFolder inserts a folder; a name clash yields ErrDuplicateFolder
func (r *FavoritesRepository) CreateFolder(ctx context.Context, folder *database.Folder) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(folder).Error; err != nil {
		return translateFolderError(err, folder.Name)
	}
	return nil
}

// SaveFolder writes the folder's own columns
func (r *FavoritesRepository) SaveFolder(ctx context.Context, folder *database.Folder) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(folder).Error; err != nil {
		return translateFolderError(err, folder.Name)
	}
	return nil
}

func translateFolderError(err error, name string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", favoriteerrors.ErrDuplicateFolder, name)
	}
	return fmt.Errorf("failed to save folder: %w", err)
}

// FolderNameTaken reports whether another folder of the account uses name
func (r *FavoritesRepository) FolderNameTaken(ctx context.Context, accountID uint, name string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&database.Folder{}).
		Where("account_id = ? AND name = ?", accountID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check folder name: %w", err)
	}
	return count > 0, nil
}

// ListFolders returns the folders of an account ordered by name, each with
// its shows
func (r *FavoritesRepository) ListFolders(ctx context.Context, accountID uint) ([]database.Folder, error) {
	var folders []database.Folder
	err := r.db.WithContext(ctx).
		Preload("Shows", func(db *gorm.DB) *gorm.DB { return db.Order("shows.title ASC") }).
		Where("account_id = ?", accountID).
		Order("name ASC").
		Find(&folders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// GetFolder loads a folder owned by accountID. Folders of other accounts
// are reported as missing.
func (r *FavoritesRepository) GetFolder(ctx context.Context, accountID, folderID uint) (*database.Folder, error) {
	var folder database.Folder
	err := r.db.WithContext(ctx).
		Preload("Shows", func(db *gorm.DB) *gorm.DB { return db.Order("shows.title ASC") }).
		Where("id = ? AND account_id = ?", folderID, accountID).
		First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", favoriteerrors.ErrFolderNotFound, folderID)
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return &folder, nil
}

// DeleteFolder removes a folder and its memberships
func (r *FavoritesRepository) DeleteFolder(ctx context.Context, folderID uint) error {
	return r.Transaction(ctx, func(tx *FavoritesRepository) error {
		if err := tx.db.Exec("DELETE FROM "+folderShowsTable+" WHERE folder_id = ?", folderID).Error; err != nil {
			return fmt.Errorf("failed to clear folder: %w", err)
		}
		if err := tx.db.Delete(&database.Folder{}, folderID).Error; err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}
		return nil
	})
}

// AddShowToFolder links a show to a folder unless already linked
func (r *FavoritesRepository) AddShowToFolder(ctx context.Context, folderID, showID uint) error {
	err := r.db.WithContext(ctx).Table(folderShowsTable).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(map[string]interface{}{"folder_id": folderID, "show_id": showID}).Error
	if err != nil {
		return fmt.Errorf("failed to add show to folder: %w", err)
	}
	return nil
}

// RemoveShowFromFolder unlinks a show from a folder
func (r *FavoritesRepository) RemoveShowFromFolder(ctx context.Context, folderID, showID uint) error {
	err := r.db.WithContext(ctx).
		Exec("DELETE FROM "+folderShowsTable+" WHERE folder_id = ? AND show_id = ?", folderID, showID).Error
	if err != nil {
		return fmt.Errorf("failed to remove show from folder: %w", err)
	}
	return nil
}
