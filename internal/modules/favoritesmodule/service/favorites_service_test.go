package service

import (
	"context"
	"testing"
	"time"

	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/database/dbtest"
	"github.com/mantonx/streamhub/internal/modules/favoritesmodule/core/repository"
	favoriteerrors "github.com/mantonx/streamhub/internal/modules/favoritesmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubCatalog answers ShowExists from the test database; every other
// catalog method is left unimplemented
type stubCatalog struct {
	services.CatalogService
	db *gorm.DB
}

func (s stubCatalog) ShowExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&database.Show{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

type fixture struct {
	db  *gorm.DB
	svc services.FavoritesService
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	return &fixture{
		db: db,
		svc: NewFavoritesService(Options{
			Repository: repository.NewFavoritesRepository(db),
			Catalog:    func() (services.CatalogService, error) { return stubCatalog{db: db}, nil },
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

func (f *fixture) show(t *testing.T, title string) uint {
	s := &database.Show{Title: title, Year: 2000, Genre: database.GenreDrama}
	require.NoError(t, f.db.Create(s).Error)
	return s.ID
}

func showTitles(shows []database.Show) []string {
	out := make([]string, len(shows))
	for i, s := range shows {
		out[i] = s.Title
	}
	return out
}

func TestFavorites(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	ben := f.account(t, "ben")
	first := f.show(t, "First")
	second := f.show(t, "Second")

	require.NoError(t, f.svc.AddFavorite(f.ctx, anna, first))
	require.NoError(t, f.svc.AddFavorite(f.ctx, anna, second))
	require.NoError(t, f.svc.AddFavorite(f.ctx, anna, first), "adding twice is a no-op")

	shows, err := f.svc.ListFavorites(f.ctx, anna)
	require.NoError(t, err)
	assert.Equal(t, []string{"Second", "First"}, showTitles(shows), "newest first")

	others, err := f.svc.ListFavorites(f.ctx, ben)
	require.NoError(t, err)
	assert.Empty(t, others)

	is, err := f.svc.IsFavorite(f.ctx, anna, first)
	require.NoError(t, err)
	assert.True(t, is)

	require.NoError(t, f.svc.RemoveFavorite(f.ctx, anna, first))
	require.NoError(t, f.svc.RemoveFavorite(f.ctx, anna, first), "removing a non-member is a no-op")
	is, err = f.svc.IsFavorite(f.ctx, anna, first)
	require.NoError(t, err)
	assert.False(t, is)

	err = f.svc.AddFavorite(f.ctx, anna, 999)
	assert.ErrorIs(t, err, favoriteerrors.ErrShowNotFound)
}

func TestFolderLifecycle(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	show := f.show(t, "Kept")

	folder, err := f.svc.CreateFolder(f.ctx, anna, types.FolderInput{Name: " Watch later "})
	require.NoError(t, err)
	assert.Equal(t, "Watch later", folder.Name)
	assert.Equal(t, DefaultColour, folder.Colour)

	_, err = f.svc.CreateFolder(f.ctx, anna, types.FolderInput{Name: "Watch later", Colour: "blue"})
	assert.ErrorIs(t, err, favoriteerrors.ErrDuplicateFolder)
	_, err = f.svc.CreateFolder(f.ctx, anna, types.FolderInput{Name: "   "})
	assert.ErrorIs(t, err, favoriteerrors.ErrFolderNameRequired)
	_, err = f.svc.CreateFolder(f.ctx, anna, types.FolderInput{Name: "Pink", Colour: "pink"})
	assert.ErrorIs(t, err, favoriteerrors.ErrInvalidColour)

	require.NoError(t, f.svc.AddShowToFolder(f.ctx, anna, folder.ID, show))
	require.NoError(t, f.svc.AddShowToFolder(f.ctx, anna, folder.ID, show), "adding twice is a no-op")
	assert.ErrorIs(t, f.svc.AddShowToFolder(f.ctx, anna, folder.ID, 999), favoriteerrors.ErrShowNotFound)

	got, err := f.svc.GetFolder(f.ctx, anna, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Kept"}, showTitles(got.Shows))

	renamed, err := f.svc.RenameFolder(f.ctx, anna, folder.ID, types.FolderInput{Name: "Later", Colour: "GREEN"})
	require.NoError(t, err)
	assert.Equal(t, "Later", renamed.Name)
	assert.Equal(t, database.ColourGreen, renamed.Colour)

	kept, err := f.svc.RenameFolder(f.ctx, anna, folder.ID, types.FolderInput{Name: "Later"})
	require.NoError(t, err)
	assert.Equal(t, database.ColourGreen, kept.Colour, "colour is kept when omitted")

	require.NoError(t, f.svc.RemoveShowFromFolder(f.ctx, anna, folder.ID, show))
	require.NoError(t, f.svc.RemoveShowFromFolder(f.ctx, anna, folder.ID, show))

	folders, err := f.svc.ListFolders(f.ctx, anna)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Empty(t, folders[0].Shows)

	require.NoError(t, f.svc.DeleteFolder(f.ctx, anna, folder.ID))
	_, err = f.svc.GetFolder(f.ctx, anna, folder.ID)
	assert.ErrorIs(t, err, favoriteerrors.ErrFolderNotFound)
}

func TestFoldersAreScopedToTheirOwner(t *testing.T) {
	f := newFixture(t)
	anna := f.account(t, "anna")
	ben := f.account(t, "ben")
	show := f.show(t, "Private")

	folder, err := f.svc.CreateFolder(f.ctx, anna, types.FolderInput{Name: "Mine"})
	require.NoError(t, err)

	_, err = f.svc.CreateFolder(f.ctx, ben, types.FolderInput{Name: "Mine"})
	require.NoError(t, err, "names are unique per owner only")

	_, err = f.svc.GetFolder(f.ctx, ben, folder.ID)
	assert.ErrorIs(t, err, favoriteerrors.ErrFolderNotFound)
	_, err = f.svc.RenameFolder(f.ctx, ben, folder.ID, types.FolderInput{Name: "Stolen"})
	assert.ErrorIs(t, err, favoriteerrors.ErrFolderNotFound)
	assert.ErrorIs(t, f.svc.AddShowToFolder(f.ctx, ben, folder.ID, show), favoriteerrors.ErrFolderNotFound)
	assert.ErrorIs(t, f.svc.DeleteFolder(f.ctx, ben, folder.ID), favoriteerrors.ErrFolderNotFound)

	folders, err := f.svc.ListFolders(f.ctx, ben)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.NotEqual(t, folder.ID, folders[0].ID)
}
