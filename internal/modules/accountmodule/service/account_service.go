package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/metrics"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/mailer"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/passwords"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/repository"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/sessions"
	"github.com/mantonx/streamhub/internal/modules/accountmodule/core/tokens"
	accounterrors "github.com/mantonx/streamhub/internal/modules/accountmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
	"gorm.io/gorm"
)

const (
	eventSource = "system.accounts"

	// ProfilePictureKind is the asset directory for profile pictures
	ProfilePictureKind = "profile_pictures"

	dateLayout = "2006-01-02"
)

// Settings are the account flow parameters taken from the auth config
type Settings struct {
	BaseURL          string
	MailFrom         string
	SessionTTL       time.Duration
	ActivationTTL    time.Duration
	PasswordResetTTL time.Duration
}

// Options carries the collaborators of the account service. Assets and
// Bus may be nil.
type Options struct {
	Repository *repository.AccountRepository
	Hasher     *passwords.Hasher
	Tokens     *tokens.Generator
	Sessions   sessions.Store
	Mailer     mailer.Mailer
	Assets     func() (services.AssetService, error)
	Bus        events.EventBus
	Settings   Settings
	Logger     hclog.Logger
	Now        func() time.Time
}

// accountServiceImpl implements the AccountService interface
type accountServiceImpl struct {
	repo     *repository.AccountRepository
	hasher   *passwords.Hasher
	tokens   *tokens.Generator
	sessions sessions.Store
	mailer   mailer.Mailer
	assets   func() (services.AssetService, error)
	bus      events.EventBus
	settings Settings
	logger   hclog.Logger
	now      func() time.Time
}

// NewAccountService creates a new account service implementation
func NewAccountService(opts Options) services.AccountService {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Assets == nil {
		opts.Assets = func() (services.AssetService, error) {
			return nil, fmt.Errorf("asset service is not available")
		}
	}
	return &accountServiceImpl{
		repo:     opts.Repository,
		hasher:   opts.Hasher,
		tokens:   opts.Tokens,
		sessions: opts.Sessions,
		mailer:   opts.Mailer,
		assets:   opts.Assets,
		bus:      opts.Bus,
		settings: opts.Settings,
		logger:   opts.Logger,
		now:      opts.Now,
	}
}

// NormalizeEmail trims the address and lowercases its domain part
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// Register creates an inactive subscriber and mails the activation link
func (s *accountServiceImpl) Register(ctx context.Context, input types.RegistrationInput) (*database.Account, error) {
	email := NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)

	if err := s.checkNewPassword("password2", input.Password1, input.Password2, username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password1)
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &database.Account{
		Kind:         database.AccountKindSubscriber,
		Role:         database.RoleUser,
		Email:        email,
		PasswordHash: hash,
		Username:     &username,
		DateJoined:   now,
		Profile:      &database.Profile{ProfilePicture: database.DefaultProfilePicture},
	}

	err = s.repo.Transaction(ctx, func(tx *repository.AccountRepository) error {
		if err := checkUnique(ctx, tx, email, username, 0); err != nil {
			return err
		}
		if err := tx.Create(ctx, account); err != nil {
			return translateDuplicate(err, email, username)
		}
		// a failed send rolls the account back
		return s.sendActivation(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	metrics.AccountsRegisteredTotal.Inc()
	s.logger.Info("account registered", "account_id", account.ID)
	events.Emit(s.bus, events.NewEventWithData(
		events.EventAccountRegistered, eventSource,
		"Account registered", fmt.Sprintf("%s signed up", username),
		map[string]interface{}{"account_id": account.ID},
	))
	return account, nil
}

func (s *accountServiceImpl) sendActivation(ctx context.Context, account *database.Account) error {
	token, err := s.tokens.Make(account, tokens.PurposeActivate, s.settings.ActivationTTL)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/api/accounts/activate/%s/%s",
		strings.TrimRight(s.settings.BaseURL, "/"), tokens.EncodeUID(account.ID), token)

	err = s.mailer.Send(ctx, mailer.Message{
		From:    s.settings.MailFrom,
		To:      account.Email,
		Subject: "Activate your account.",
		Body: fmt.Sprintf("Hi %s,\n\nPlease click on the link to confirm your registration:\n%s\n",
			account.DisplayName(), link),
	})
	if err != nil {
		return fmt.Errorf("failed to send activation email: %w", err)
	}
	return nil
}

// Activate marks the account behind a valid activation link as active
func (s *accountServiceImpl) Activate(ctx context.Context, uidb64, token string) (*database.Account, error) {
	account, err := s.accountFromLink(ctx, uidb64, token, tokens.PurposeActivate)
	if err != nil {
		return nil, accounterrors.ErrInvalidActivationLink
	}

	account.IsActive = true
	if err := s.repo.Save(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account activated", "account_id", account.ID)
	events.Emit(s.bus, events.NewEventWithData(
		events.EventAccountActivated, eventSource,
		"Account activated", fmt.Sprintf("%s activated their account", account.DisplayName()),
		map[string]interface{}{"account_id": account.ID},
	))
	return account, nil
}

// accountFromLink resolves uidb64 and verifies token against the account's
// current state. Every failure is reported as tokens.ErrInvalidToken.
func (s *accountServiceImpl) accountFromLink(ctx context.Context, uidb64, token string, purpose tokens.Purpose) (*database.Account, error) {
	id, err := tokens.DecodeUID(uidb64)
	if err != nil {
		return nil, tokens.ErrInvalidToken
	}
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, accounterrors.ErrAccountNotFound) {
			s.logger.Error("failed to load account for link", "account_id", id, "error", err)
		}
		return nil, tokens.ErrInvalidToken
	}
	if err := s.tokens.Check(account, purpose, token); err != nil {
		return nil, tokens.ErrInvalidToken
	}
	return account, nil
}

// Login checks the credentials and opens a session
func (s *accountServiceImpl) Login(ctx context.Context, input types.LoginInput) (*database.Account, string, error) {
	account, err := s.repo.GetByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, accounterrors.ErrAccountNotFound) {
			metrics.RecordLogin("invalid")
			return nil, "", accounterrors.ErrInvalidLogin
		}
		return nil, "", err
	}
	if !s.hasher.Matches(account.PasswordHash, input.Password) {
		metrics.RecordLogin("invalid")
		return nil, "", accounterrors.ErrInvalidLogin
	}
	if !account.IsActive {
		metrics.RecordLogin("inactive")
		return nil, "", accounterrors.ErrAccountInactive
	}

	now := s.now()
	if err := s.repo.MarkLogin(ctx, account.ID, now); err != nil {
		return nil, "", err
	}
	account.LastLogin = &now

	session, err := s.sessions.Create(ctx, account.ID, s.settings.SessionTTL)
	if err != nil {
		return nil, "", err
	}

	metrics.RecordLogin("success")
	s.logger.Debug("account logged in", "account_id", account.ID)
	events.Emit(s.bus, events.NewEventWithData(
		events.EventAccountLoggedIn, eventSource,
		"Account logged in", fmt.Sprintf("%s logged in", account.DisplayName()),
		map[string]interface{}{"account_id": account.ID},
	))
	return account, session.ID, nil
}

// Logout ends the session; unknown sessions are ignored
func (s *accountServiceImpl) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// ResolveSession returns the active account behind sessionID, or nil when
// the session is unknown, expired or belongs to an inactive account.
// Sessions past half their lifetime are extended.
func (s *accountServiceImpl) ResolveSession(ctx context.Context, sessionID string) (*database.Account, error) {
	if sessionID == "" {
		return nil, nil
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}

	account, err := s.repo.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, accounterrors.ErrAccountNotFound) {
			_ = s.sessions.Delete(ctx, sessionID)
			return nil, nil
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, nil
	}

	if ttl := s.settings.SessionTTL; ttl > 0 && session.ExpiresAt.Sub(s.now()) < ttl/2 {
		if err := s.sessions.Touch(ctx, sessionID, ttl); err != nil {
			s.logger.Warn("failed to extend session", "account_id", account.ID, "error", err)
		}
	}
	return account, nil
}

// GetAccount returns the account with its profile
func (s *accountServiceImpl) GetAccount(ctx context.Context, accountID uint) (*database.Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// UpdateAccount changes email, username and date of birth
func (s *accountServiceImpl) UpdateAccount(ctx context.Context, accountID uint, input types.AccountUpdateInput) (*database.Account, error) {
	email := NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)

	var dateOfBirth *time.Time
	if input.DateOfBirth != nil && strings.TrimSpace(*input.DateOfBirth) != "" {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(*input.DateOfBirth))
		if err != nil {
			return nil, accounterrors.Field("date_of_birth", "Enter a valid date.", accounterrors.ErrInvalidInput)
		}
		dateOfBirth = &parsed
	}

	var account *database.Account
	err := s.repo.Transaction(ctx, func(tx *repository.AccountRepository) error {
		var err error
		account, err = tx.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := checkUnique(ctx, tx, email, username, accountID); err != nil {
			return err
		}

		account.Email = email
		account.Username = &username
		if input.DateOfBirth != nil {
			account.DateOfBirth = dateOfBirth
		}
		if err := tx.Save(ctx, account); err != nil {
			return translateDuplicate(err, email, username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Emit(s.bus, events.NewEventWithData(
		events.EventAccountUpdated, eventSource,
		"Account updated", fmt.Sprintf("%s updated their account", account.DisplayName()),
		map[string]interface{}{"account_id": account.ID},
	))
	return account, nil
}

// ChangePassword replaces the password of a logged-in account. Existing
// sessions stay valid.
func (s *accountServiceImpl) ChangePassword(ctx context.Context, accountID uint, input types.PasswordChangeInput) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(account.PasswordHash, input.OldPassword) {
		return accounterrors.Field("old_password",
			"Your old password was entered incorrectly. Please enter it again.", accounterrors.ErrWrongPassword)
	}
	if err := s.checkNewPassword("new_password2", input.NewPassword1, input.NewPassword2, account.DisplayName(), account.Email); err != nil {
		return err
	}
	if err := s.setPassword(ctx, account, input.NewPassword1); err != nil {
		return err
	}

	s.logger.Info("password changed", "account_id", account.ID)
	s.emitPasswordChanged(account)
	return nil
}

// ForgotPassword mails a reset link to the account owning email
func (s *accountServiceImpl) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, accounterrors.ErrAccountNotFound) {
			return accounterrors.Field("email", "Account does not exist", accounterrors.ErrAccountNotFound)
		}
		return err
	}

	token, err := s.tokens.Make(account, tokens.PurposeReset, s.settings.PasswordResetTTL)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/api/accounts/reset-password/%s/%s",
		strings.TrimRight(s.settings.BaseURL, "/"), tokens.EncodeUID(account.ID), token)

	err = s.mailer.Send(ctx, mailer.Message{
		From:    s.settings.MailFrom,
		To:      account.Email,
		Subject: "Password reset",
		Body: fmt.Sprintf("Hi %s,\n\nYou asked to reset your password. Follow this link to choose a new one:\n%s\n\nIf you did not ask for this, ignore this email.\n",
			account.DisplayName(), link),
	})
	if err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}

	events.Emit(s.bus, events.NewEventWithData(
		events.EventPasswordResetRequested, eventSource,
		"Password reset requested", fmt.Sprintf("%s asked for a password reset", account.DisplayName()),
		map[string]interface{}{"account_id": account.ID},
	))
	return nil
}

// ValidateResetToken returns the account a reset link belongs to
func (s *accountServiceImpl) ValidateResetToken(ctx context.Context, uidb64, token string) (*database.Account, error) {
	account, err := s.accountFromLink(ctx, uidb64, token, tokens.PurposeReset)
	if err != nil {
		return nil, accounterrors.ErrInvalidResetLink
	}
	return account, nil
}

// ResetPassword sets a new password from a reset link and ends every
// session of the account
func (s *accountServiceImpl) ResetPassword(ctx context.Context, uidb64, token string, input types.PasswordResetInput) error {
	account, err := s.ValidateResetToken(ctx, uidb64, token)
	if err != nil {
		return err
	}
	if err := s.checkNewPassword("new_password2", input.NewPassword1, input.NewPassword2, account.DisplayName(), account.Email); err != nil {
		return err
	}
	if err := s.setPassword(ctx, account, input.NewPassword1); err != nil {
		return err
	}
	if err := s.sessions.DeleteForAccount(ctx, account.ID, ""); err != nil {
		s.logger.Warn("failed to end sessions after password reset", "account_id", account.ID, "error", err)
	}

	s.logger.Info("password reset", "account_id", account.ID)
	s.emitPasswordChanged(account)
	return nil
}

func (s *accountServiceImpl) setPassword(ctx context.Context, account *database.Account, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.repo.Save(ctx, account)
}

func (s *accountServiceImpl) emitPasswordChanged(account *database.Account) {
	events.Emit(s.bus, events.NewEventWithData(
		events.EventPasswordChanged, eventSource,
		"Password changed", fmt.Sprintf("%s changed their password", account.DisplayName()),
		map[string]interface{}{"account_id": account.ID},
	))
}

// UpdateProfilePicture stores the image through the asset service and
// removes the picture it replaces
func (s *accountServiceImpl) UpdateProfilePicture(ctx context.Context, accountID uint, filename string, r io.Reader) (*database.Profile, error) {
	if _, err := s.repo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}

	assets, err := s.assets()
	if err != nil {
		return nil, err
	}

	stored, err := assets.StoreImage(ctx, ProfilePictureKind, filename, r)
	if err != nil {
		return nil, err
	}

	profile, previous, err := s.repo.SetProfilePicture(ctx, accountID, stored.Path)
	if err != nil {
		if rmErr := assets.Remove(ctx, stored.Path); rmErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "path", stored.Path, "error", rmErr)
		}
		return nil, err
	}

	if previous != "" && previous != database.DefaultProfilePicture && previous != stored.Path {
		if err := assets.Remove(ctx, previous); err != nil {
			s.logger.Warn("failed to remove replaced profile picture", "path", previous, "error", err)
		}
	}
	return profile, nil
}

// CreateSuperuser creates an active administrator
func (s *accountServiceImpl) CreateSuperuser(ctx context.Context, input types.SuperuserInput) (*database.Account, error) {
	email := NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)

	if !strings.Contains(email, "@") {
		return nil, accounterrors.Field("email", "Enter a valid email address.", accounterrors.ErrInvalidInput)
	}
	if !database.ValidUsername(username) {
		return nil, accounterrors.Field("username",
			"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.",
			accounterrors.ErrInvalidInput)
	}
	if err := s.checkNewPassword("password", input.Password, input.Password, username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	account := &database.Account{
		Kind:         database.AccountKindAdmin,
		Role:         database.RoleAdmin,
		Email:        email,
		PasswordHash: hash,
		Username:     &username,
		AdminName:    &username,
		DateJoined:   s.now(),
		IsAdmin:      true,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
		Profile:      &database.Profile{ProfilePicture: database.DefaultProfilePicture},
	}

	err = s.repo.Transaction(ctx, func(tx *repository.AccountRepository) error {
		if err := checkUnique(ctx, tx, email, username, 0); err != nil {
			return err
		}
		taken, err := tx.AdminNameTaken(ctx, username, 0)
		if err != nil {
			return err
		}
		if taken {
			return usernameInUse(username)
		}
		if err := tx.Create(ctx, account); err != nil {
			return translateDuplicate(err, email, username)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("superuser created", "account_id", account.ID, "admin_name", username)
	return account, nil
}

// checkNewPassword validates a password pair; field names the input the
// error is reported against
func (s *accountServiceImpl) checkNewPassword(field, password, confirm string, identity ...string) error {
	if password != confirm {
		return accounterrors.Field(field, "The two password fields didn't match.", accounterrors.ErrPasswordMismatch)
	}
	if err := passwords.CheckLength(password); err != nil {
		return accounterrors.Field(field, "This password is too long. It must contain at most 72 bytes.", accounterrors.ErrWeakPassword)
	}
	if problems := passwords.Validate(password, identity...); len(problems) > 0 {
		return accounterrors.Field(field, strings.Join(problems, " "), accounterrors.ErrWeakPassword)
	}
	return nil
}

func checkUnique(ctx context.Context, repo *repository.AccountRepository, email, username string, excludeID uint) error {
	taken, err := repo.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return emailInUse(email)
	}
	taken, err = repo.UsernameTaken(ctx, username, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return usernameInUse(username)
	}
	return nil
}

// translateDuplicate maps a unique-index violation that slipped past the
// checks (a concurrent insert) to the matching field error
func translateDuplicate(err error, email, username string) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if strings.Contains(strings.ToLower(err.Error()), "username") || strings.Contains(strings.ToLower(err.Error()), "admin_name") {
		return usernameInUse(username)
	}
	return emailInUse(email)
}

func emailInUse(email string) error {
	return accounterrors.Field("email", fmt.Sprintf("Email \"%s\" is already in use.", email), accounterrors.ErrDuplicateEmail)
}

func usernameInUse(username string) error {
	return accounterrors.Field("username", fmt.Sprintf("Username \"%s\" is already in use.", username), accounterrors.ErrDuplicateUsername)
}
