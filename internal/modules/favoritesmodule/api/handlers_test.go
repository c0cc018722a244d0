package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sharedapi "github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/middleware"
	favoriteerrors "github.com/mantonx/streamhub/internal/modules/favoritesmodule/errors"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFavoritesService struct {
	mock.Mock
}

func (m *mockFavoritesService) AddFavorite(ctx context.Context, accountID, showID uint) error {
	return m.Called(ctx, accountID, showID).Error(0)
}

func (m *mockFavoritesService) RemoveFavorite(ctx context.Context, accountID, showID uint) error {
	return m.Called(ctx, accountID, showID).Error(0)
}

func (m *mockFavoritesService) ListFavorites(ctx context.Context, accountID uint) ([]database.Show, error) {
	args := m.Called(ctx, accountID)
	shows, _ := args.Get(0).([]database.Show)
	return shows, args.Error(1)
}

func (m *mockFavoritesService) IsFavorite(ctx context.Context, accountID, showID uint) (bool, error) {
	args := m.Called(ctx, accountID, showID)
	return args.Bool(0), args.Error(1)
}

func (m *mockFavoritesService) CreateFolder(ctx context.Context, accountID uint, input types.FolderInput) (*database.Folder, error) {
	args := m.Called(ctx, accountID, input)
	folder, _ := args.Get(0).(*database.Folder)
	return folder, args.Error(1)
}

func (m *mockFavoritesService) ListFolders(ctx context.Context, accountID uint) ([]database.Folder, error) {
	args := m.Called(ctx, accountID)
	folders, _ := args.Get(0).([]database.Folder)
	return folders, args.Error(1)
}

func (m *mockFavoritesService) GetFolder(ctx context.Context, accountID, folderID uint) (*database.Folder, error) {
	args := m.Called(ctx, accountID, folderID)
	folder, _ := args.Get(0).(*database.Folder)
	return folder, args.Error(1)
}

func (m *mockFavoritesService) RenameFolder(ctx context.Context, accountID, folderID uint, input types.FolderInput) (*database.Folder, error) {
	args := m.Called(ctx, accountID, folderID, input)
	folder, _ := args.Get(0).(*database.Folder)
	return folder, args.Error(1)
}

func (m *mockFavoritesService) DeleteFolder(ctx context.Context, accountID, folderID uint) error {
	return m.Called(ctx, accountID, folderID).Error(0)
}

func (m *mockFavoritesService) AddShowToFolder(ctx context.Context, accountID, folderID, showID uint) error {
	return m.Called(ctx, accountID, folderID, showID).Error(0)
}

func (m *mockFavoritesService) RemoveShowFromFolder(ctx context.Context, accountID, folderID, showID uint) error {
	return m.Called(ctx, accountID, folderID, showID).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

const annaID = 7

func newRouter(t *testing.T, svc *mockFavoritesService, authenticated bool) *gin.Engine {
	t.Helper()
	require.NoError(t, sharedapi.RegisterValidators())

	r := gin.New()
	if authenticated {
		username := "anna"
		account := &database.Account{ID: annaID, Kind: database.AccountKindSubscriber, Username: &username, IsActive: true}
		r.Use(func(c *gin.Context) {
			middleware.SetAccount(c, account, "sess-1")
			c.Next()
		})
	}
	RegisterRoutes(r, NewHandler(svc))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuth(t *testing.T) {
	svc := &mockFavoritesService{}
	r := newRouter(t, svc, false)

	for _, route := range [][2]string{
		{http.MethodGet, "/api/favorites"},
		{http.MethodPost, "/api/shows/3/favorite"},
		{http.MethodGet, "/api/folders"},
		{http.MethodDelete, "/api/folders/1/shows/3"},
	} {
		assert.Equal(t, http.StatusUnauthorized, do(r, route[0], route[1], "").Code, route[1])
	}
}

func TestFavoriteRoutes(t *testing.T) {
	svc := &mockFavoritesService{}
	svc.On("AddFavorite", mock.Anything, uint(annaID), uint(3)).Return(nil)
	svc.On("AddFavorite", mock.Anything, uint(annaID), uint(4)).Return(fmt.Errorf("%w: id 4", favoriteerrors.ErrShowNotFound))
	svc.On("RemoveFavorite", mock.Anything, uint(annaID), uint(3)).Return(nil)
	svc.On("ListFavorites", mock.Anything, uint(annaID)).Return([]database.Show{{ID: 3, Title: "Loved"}}, nil)

	r := newRouter(t, svc, true)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/shows/3/favorite", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/shows/4/favorite", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/shows/3/favorite", "").Code)

	w := do(r, http.MethodGet, "/api/favorites", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Shows []database.Show `json:"shows"`
		Count int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Loved", body.Shows[0].Title)
	svc.AssertExpectations(t)
}

func TestFolderRoutes(t *testing.T) {
	svc := &mockFavoritesService{}
	svc.On("CreateFolder", mock.Anything, uint(annaID), types.FolderInput{Name: "Later", Colour: "blue"}).
		Return(&database.Folder{ID: 1, AccountID: annaID, Name: "Later", Colour: database.ColourBlue}, nil)
	svc.On("CreateFolder", mock.Anything, uint(annaID), types.FolderInput{Name: "Later"}).
		Return(nil, favoriteerrors.ErrDuplicateFolder)
	svc.On("GetFolder", mock.Anything, uint(annaID), uint(9)).Return(nil, favoriteerrors.ErrFolderNotFound)
	svc.On("RenameFolder", mock.Anything, uint(annaID), uint(1), types.FolderInput{Name: "Soon"}).
		Return(&database.Folder{ID: 1, Name: "Soon"}, nil)
	svc.On("DeleteFolder", mock.Anything, uint(annaID), uint(1)).Return(nil)
	svc.On("AddShowToFolder", mock.Anything, uint(annaID), uint(1), uint(3)).Return(nil)
	svc.On("RemoveShowFromFolder", mock.Anything, uint(annaID), uint(1), uint(3)).Return(nil)

	r := newRouter(t, svc, true)

	w := do(r, http.MethodPost, "/api/folders", `{"name":"Later","colour":"blue"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"colour":"BLUE"`)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/api/folders", `{"name":"Later"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/folders", `{"name":"Later","colour":"pink"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/folders", `{"name":"`+strings.Repeat("x", 31)+`"}`).Code)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/folders/9", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPut, "/api/folders/1", `{"name":"Soon"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/folders/1/shows/3", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/folders/1/shows/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/api/folders/1/shows/x", "").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/folders/1", "").Code)
	svc.AssertExpectations(t)
}
