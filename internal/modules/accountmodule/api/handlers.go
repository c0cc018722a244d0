package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/middleware"
	accounterrors "github.com/mantonx/streamhub/internal/modules/accountmodule/errors"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

// CookieSettings describe the session cookie
type CookieSettings struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// Handler provides HTTP handlers for account operations
type Handler struct {
	service services.AccountService
	cookie  CookieSettings
}

// NewHandler creates a new API handler
func NewHandler(service services.AccountService, cookie CookieSettings) *Handler {
	return &Handler{service: service, cookie: cookie}
}

// Register handles POST /api/accounts/register
func (h *Handler) Register(c *gin.Context) {
	var input types.RegistrationInput
	if !api.BindJSON(c, &input) {
		return
	}

	account, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Please confirm your email address to complete the registration.",
		"account": account,
	})
}

// Activate handles GET /api/accounts/activate/:uidb64/:token
func (h *Handler) Activate(c *gin.Context) {
	account, err := h.service.Activate(c.Request.Context(), c.Param("uidb64"), c.Param("token"))
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Thank you for your email confirmation. Now you can login your account.",
		"account": account,
	})
}

// Login handles POST /api/accounts/login
func (h *Handler) Login(c *gin.Context) {
	if account := middleware.CurrentAccount(c); account != nil {
		c.JSON(http.StatusOK, gin.H{"message": "Already logged in.", "account": account})
		return
	}

	var input types.LoginInput
	if !api.BindJSON(c, &input) {
		return
	}

	account, sessionID, err := h.service.Login(c.Request.Context(), input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}

	h.setCookie(c, sessionID, int(h.cookie.TTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{"message": "Logged in.", "account": account})
}

// Logout handles POST /api/accounts/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		api.RespondWithError(c, err)
		return
	}
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// GetMe handles GET /api/accounts/me
func (h *Handler) GetMe(c *gin.Context) {
	account, err := h.service.GetAccount(c.Request.Context(), middleware.CurrentAccount(c).ID)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateMe handles PUT /api/accounts/me
func (h *Handler) UpdateMe(c *gin.Context) {
	var input types.AccountUpdateInput
	if !api.BindJSON(c, &input) {
		return
	}

	account, err := h.service.UpdateAccount(c.Request.Context(), middleware.CurrentAccount(c).ID, input)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your account has been updated.", "account": account})
}

// ChangePassword handles POST /api/accounts/me/password
func (h *Handler) ChangePassword(c *gin.Context) {
	var input types.PasswordChangeInput
	if !api.BindJSON(c, &input) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), middleware.CurrentAccount(c).ID, input); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Your password was successfully updated!"})
}

// UploadProfilePicture handles POST /api/accounts/me/profile-picture
func (h *Handler) UploadProfilePicture(c *gin.Context) {
	header, err := c.FormFile("profile_picture")
	if err != nil {
		api.RespondWithError(c, types.NewValidationError("no file uploaded").
			WithField("profile_picture", "This field is required."))
		return
	}

	file, err := header.Open()
	if err != nil {
		api.RespondWithInternalError(c, "failed to read upload", err)
		return
	}
	defer file.Close()

	profile, err := h.service.UpdateProfilePicture(c.Request.Context(), middleware.CurrentAccount(c).ID, header.Filename, file)
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// ForgotPassword handles POST /api/accounts/forgot-password
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input types.ForgotPasswordInput
	if !api.BindJSON(c, &input) {
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), input.Email); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "We've emailed you instructions for setting your password.",
	})
}

// ValidateReset handles GET /api/accounts/reset-password/:uidb64/:token
func (h *Handler) ValidateReset(c *gin.Context) {
	account, err := h.service.ValidateResetToken(c.Request.Context(), c.Param("uidb64"), c.Param("token"))
	if err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "email": account.Email})
}

// ResetPassword handles POST /api/accounts/reset-password/:uidb64/:token
func (h *Handler) ResetPassword(c *gin.Context) {
	var input types.PasswordResetInput
	if !api.BindJSON(c, &input) {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), c.Param("uidb64"), c.Param("token"), input); err != nil {
		api.RespondWithError(c, mapError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Your password has been set. You may go ahead and log in now.",
	})
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}

// mapError converts account sentinels into API errors. Errors that already
// carry an AppError, such as upload rejections, pass through.
func mapError(err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var fieldErr *accounterrors.FieldError
	if errors.As(err, &fieldErr) {
		var mapped *types.AppError
		switch {
		case errors.Is(err, accounterrors.ErrDuplicateEmail), errors.Is(err, accounterrors.ErrDuplicateUsername):
			mapped = types.NewConflictError(fieldErr.Message)
		default:
			mapped = types.NewValidationError(fieldErr.Message)
		}
		mapped.Cause = err
		return mapped.WithField(fieldErr.Field, fieldErr.Message)
	}

	switch {
	case errors.Is(err, accounterrors.ErrInvalidActivationLink):
		return types.NewInvalidTokenError("Activation link is invalid!")
	case errors.Is(err, accounterrors.ErrInvalidResetLink):
		return types.NewInvalidTokenError("The password reset link was invalid, possibly because it has already been used.")
	case errors.Is(err, accounterrors.ErrInvalidLogin):
		return types.NewUnauthorizedError("Invalid login")
	case errors.Is(err, accounterrors.ErrAccountInactive):
		appErr := types.NewAppError(types.ErrorCodeInactive, "This account is inactive. Check your email for the activation link.", http.StatusForbidden)
		appErr.Severity = types.SeverityInfo
		return appErr
	case errors.Is(err, accounterrors.ErrAccountNotFound):
		return types.NewNotFoundError("account", "")
	default:
		return err
	}
}
