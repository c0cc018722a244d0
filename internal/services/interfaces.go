package services

import (
	"context"
	"io"

	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/types"
)

// Each module exposes one of these interfaces through the registry.
// Errors are the module's sentinel errors wrapped with context.

// AccountService manages identities, sessions and credentials
type AccountService interface {
	Register(ctx context.Context, input types.RegistrationInput) (*database.Account, error)
	Activate(ctx context.Context, uidb64, token string) (*database.Account, error)
	Login(ctx context.Context, input types.LoginInput) (*database.Account, string, error)
	Logout(ctx context.Context, sessionID string) error
	ResolveSession(ctx context.Context, sessionID string) (*database.Account, error)
	GetAccount(ctx context.Context, accountID uint) (*database.Account, error)
	UpdateAccount(ctx context.Context, accountID uint, input types.AccountUpdateInput) (*database.Account, error)
	ChangePassword(ctx context.Context, accountID uint, input types.PasswordChangeInput) error
	ForgotPassword(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, uidb64, token string) (*database.Account, error)
	ResetPassword(ctx context.Context, uidb64, token string, input types.PasswordResetInput) error
	UpdateProfilePicture(ctx context.Context, accountID uint, filename string, r io.Reader) (*database.Profile, error)
	CreateSuperuser(ctx context.Context, input types.SuperuserInput) (*database.Account, error)
}

// CatalogService serves and curates shows and categories
type CatalogService interface {
	ListShows(ctx context.Context, filter types.ShowFilter) (*types.ShowList, error)
	GetShow(ctx context.Context, id uint) (*types.ShowDetail, error)
	ShowExists(ctx context.Context, id uint) (bool, error)
	EpisodesBySeason(ctx context.Context, seasonID uint) ([]database.Episode, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
	GetCategory(ctx context.Context, slug string) (*database.Category, error)
	RatingSummary(ctx context.Context, showID uint) (types.RatingSummary, error)
	// InvalidateRating drops cached rating figures after a review changes
	InvalidateRating(ctx context.Context, showID uint)

	CreateShow(ctx context.Context, input types.ShowInput) (*database.Show, error)
	UpdateShow(ctx context.Context, id uint, input types.ShowInput) (*database.Show, error)
	DeleteShow(ctx context.Context, id uint) error
	UploadPoster(ctx context.Context, id uint, filename string, r io.Reader) (*database.Show, error)
	AddSeason(ctx context.Context, showID uint, input types.SeasonInput) (*database.Season, error)
	AddEpisode(ctx context.Context, seasonID uint, input types.EpisodeInput) (*database.Episode, error)
	CreateCategory(ctx context.Context, input types.CategoryInput) (*database.Category, error)
	UpdateCategory(ctx context.Context, slug string, input types.CategoryInput) (*database.Category, error)
	DeleteCategory(ctx context.Context, slug string) error
}

// FavoritesService manages favourites and personal folders
type FavoritesService interface {
	AddFavorite(ctx context.Context, accountID, showID uint) error
	RemoveFavorite(ctx context.Context, accountID, showID uint) error
	ListFavorites(ctx context.Context, accountID uint) ([]database.Show, error)
	IsFavorite(ctx context.Context, accountID, showID uint) (bool, error)

	CreateFolder(ctx context.Context, accountID uint, input types.FolderInput) (*database.Folder, error)
	ListFolders(ctx context.Context, accountID uint) ([]database.Folder, error)
	GetFolder(ctx context.Context, accountID, folderID uint) (*database.Folder, error)
	RenameFolder(ctx context.Context, accountID, folderID uint, input types.FolderInput) (*database.Folder, error)
	DeleteFolder(ctx context.Context, accountID, folderID uint) error
	AddShowToFolder(ctx context.Context, accountID, folderID, showID uint) error
	RemoveShowFromFolder(ctx context.Context, accountID, folderID, showID uint) error
}

// ReviewService records and moderates reviews
type ReviewService interface {
	SubmitReview(ctx context.Context, accountID, showID uint, input types.ReviewInput, ip string) (*types.ReviewResult, error)
	ListReviews(ctx context.Context, showID uint) ([]database.ReviewRating, error)
	AverageRating(ctx context.Context, showID uint) (float64, error)
	CountReviews(ctx context.Context, showID uint) (int64, error)
	SetVisibility(ctx context.Context, reviewID uint, visible bool) (*database.ReviewRating, error)
}

// AssetService stores uploaded images as webp under the media root
type AssetService interface {
	StoreImage(ctx context.Context, kind, filename string, r io.Reader) (*types.StoredAsset, error)
	Remove(ctx context.Context, relPath string) error
	URL(relPath string) string
}
