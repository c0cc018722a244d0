package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/middleware"
)

const moduleID = "system.accounts"

// RegisterRoutes registers all account routes. limit throttles the
// credential endpoints and may be nil.
func RegisterRoutes(router gin.IRouter, handler *Handler, limit gin.HandlerFunc) {
	throttled := []gin.HandlerFunc{}
	if limit != nil {
		throttled = append(throttled, limit)
	}
	with := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, throttled...), h)
	}

	accounts := router.Group("/api/accounts")
	{
		accounts.POST("/register", with(handler.Register)...)
		accounts.GET("/activate/:uidb64/:token", handler.Activate)
		accounts.POST("/login", with(handler.Login)...)
		accounts.POST("/logout", handler.Logout)
		accounts.POST("/forgot-password", with(handler.ForgotPassword)...)
		accounts.GET("/reset-password/:uidb64/:token", handler.ValidateReset)
		accounts.POST("/reset-password/:uidb64/:token", handler.ResetPassword)
	}

	me := accounts.Group("/me", middleware.RequireAuth())
	{
		me.GET("", handler.GetMe)
		me.PUT("", handler.UpdateMe)
		me.POST("/password", handler.ChangePassword)
		me.POST("/profile-picture", handler.UploadProfilePicture)
	}

	for _, r := range []struct{ path, method, desc string }{
		{"/api/accounts/register", http.MethodPost, "Register a subscriber account"},
		{"/api/accounts/activate/:uidb64/:token", http.MethodGet, "Activate an account from the emailed link"},
		{"/api/accounts/login", http.MethodPost, "Log in and receive a session cookie"},
		{"/api/accounts/logout", http.MethodPost, "End the current session"},
		{"/api/accounts/forgot-password", http.MethodPost, "Email a password reset link"},
		{"/api/accounts/reset-password/:uidb64/:token", http.MethodGet, "Check a password reset link"},
		{"/api/accounts/reset-password/:uidb64/:token", http.MethodPost, "Set a new password from a reset link"},
		{"/api/accounts/me", http.MethodGet, "Current account"},
		{"/api/accounts/me", http.MethodPut, "Update email, username and date of birth"},
		{"/api/accounts/me/password", http.MethodPost, "Change the password"},
		{"/api/accounts/me/profile-picture", http.MethodPost, "Upload a profile picture"},
	} {
		apiroutes.RegisterFor(moduleID, r.path, r.method, r.desc)
	}
}
