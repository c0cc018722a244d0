package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFavoriteIgnoresDuplicates(t *testing.T) {
	db, mock := dbtest.NewMock(t)
	repo := NewFavoritesRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "favorites" ("account_id","show_id","created_at") VALUES ($1,$2,$3) ON CONFLICT DO NOTHING RETURNING "id"`)).
		WithArgs(7, 3, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	added, err := repo.AddFavorite(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFolderClearsMemberships(t *testing.T) {
	db := dbtest.New(t)
	repo := NewFavoritesRepository(db)
	ctx := context.Background()

	username := "anna"
	account := &database.Account{
		Kind: database.AccountKindSubscriber, Role: database.RoleUser, Email: "anna@example.com",
		Username: &username, PasswordHash: "hash", DateJoined: time.Now(),
	}
	require.NoError(t, db.Create(account).Error)
	show := &database.Show{Title: "Listed", Year: 2000, Genre: database.GenreComedy}
	require.NoError(t, db.Create(show).Error)

	folder := &database.Folder{AccountID: account.ID, Name: "Later", Colour: database.ColourBlue}
	require.NoError(t, repo.CreateFolder(ctx, folder))
	require.NoError(t, repo.AddShowToFolder(ctx, folder.ID, show.ID))
	require.NoError(t, repo.AddShowToFolder(ctx, folder.ID, show.ID))

	var links int64
	require.NoError(t, db.Table(folderShowsTable).Count(&links).Error)
	assert.EqualValues(t, 1, links)

	require.NoError(t, repo.DeleteFolder(ctx, folder.ID))
	require.NoError(t, db.Table(folderShowsTable).Count(&links).Error)
	assert.Zero(t, links)

	var shows int64
	require.NoError(t, db.Model(&database.Show{}).Count(&shows).Error)
	assert.EqualValues(t, 1, shows, "deleting a folder keeps its shows")
}
