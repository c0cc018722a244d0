// Package repository provides data access for accounts and profiles
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mantonx/streamhub/internal/database"
	accounterrors "github.com/mantonx/streamhub/internal/modules/accountmodule/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository handles all database operations for accounts
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Transaction runs fn with a repository bound to one transaction
func (r *AccountRepository) Transaction(ctx context.Context, fn func(tx *AccountRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewAccountRepository(tx))
	})
}

// GetByID retrieves an account with its profile
func (r *AccountRepository) GetByID(ctx context.Context, id uint) (*database.Account, error) {
	var account database.Account
	if err := r.db.WithContext(ctx).Preload("Profile").First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", accounterrors.ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetByEmail retrieves an account by its normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*database.Account, error) {
	var account database.Account
	if err := r.db.WithContext(ctx).Preload("Profile").Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", accounterrors.ErrAccountNotFound, email)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

// EmailTaken reports whether another account uses email
func (r *AccountRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	return r.exists(ctx, "email = ?", email, excludeID)
}

// UsernameTaken reports whether another account uses username
func (r *AccountRepository) UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error) {
	return r.exists(ctx, "username = ?", username, excludeID)
}

// AdminNameTaken reports whether another account uses the admin name
func (r *AccountRepository) AdminNameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	return r.exists(ctx, "admin_name = ?", name, excludeID)
}

func (r *AccountRepository) exists(ctx context.Context, cond string, value string, excludeID uint) (bool, error) {
	query := r.db.WithContext(ctx).Model(&database.Account{}).Where(cond, value)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check account uniqueness: %w", err)
	}
	return count > 0, nil
}

// Create inserts the account and, when set, its profile
func (r *AccountRepository) Create(ctx context.Context, account *database.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Save writes the account's own columns; associations are untouched
func (r *AccountRepository) Save(ctx context.Context, account *database.Account) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(account).Error; err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// MarkLogin records a successful login time
func (r *AccountRepository) MarkLogin(ctx context.Context, id uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&database.Account{}).Where("id = ?", id).Update("last_login", at)
	if result.Error != nil {
		return fmt.Errorf("failed to record login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", accounterrors.ErrAccountNotFound, id)
	}
	return nil
}

// SetProfilePicture points the account's profile at path, creating the
// profile when missing. It returns the profile and the previous path.
func (r *AccountRepository) SetProfilePicture(ctx context.Context, accountID uint, path string) (*database.Profile, string, error) {
	var profile database.Profile
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = database.Profile{AccountID: accountID, ProfilePicture: path}
		if err := r.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return nil, "", fmt.Errorf("failed to create profile: %w", err)
		}
		return &profile, "", nil
	case err != nil:
		return nil, "", fmt.Errorf("failed to get profile: %w", err)
	}

	previous := profile.ProfilePicture
	profile.ProfilePicture = path
	if err := r.db.WithContext(ctx).Save(&profile).Error; err != nil {
		return nil, "", fmt.Errorf("failed to update profile: %w", err)
	}
	return &profile, previous, nil
}

// Count returns the number of accounts of the given kind; an empty kind counts all
func (r *AccountRepository) Count(ctx context.Context, kind database.AccountKind) (int64, error) {
	query := r.db.WithContext(ctx).Model(&database.Account{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
