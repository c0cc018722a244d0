package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/logger"
	"github.com/mantonx/streamhub/internal/types"
)

const (
	// AccountKey holds the *database.Account of an authenticated request
	AccountKey = "account"
	// SessionKey holds the session id of an authenticated request
	SessionKey = "session_id"
)

// AccountResolver maps a session id to its account. A nil account with a
// nil error means the session is unknown or expired.
type AccountResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*database.Account, error)
}

// SessionLoader reads the session cookie and, when it names a live
// session, stores the account in the context. It never rejects a request;
// RequireAuth does that. resolver is called per request so that the
// account service may be registered after the router is built.
func SessionLoader(resolver func() (AccountResolver, error), cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookieName)
		if err != nil || sessionID == "" {
			c.Next()
			return
		}

		r, err := resolver()
		if err != nil {
			logger.Warn("session lookup unavailable", "error", err)
			c.Next()
			return
		}

		account, err := r.ResolveSession(c.Request.Context(), sessionID)
		if err != nil {
			logger.Error("failed to resolve session", "error", err, "request_id", c.GetString(RequestIDKey))
		}
		if account != nil {
			c.Set(AccountKey, account)
			c.Set(SessionKey, sessionID)
		}
		c.Next()
	}
}

// CurrentAccount returns the authenticated account or nil
func CurrentAccount(c *gin.Context) *database.Account {
	value, ok := c.Get(AccountKey)
	if !ok {
		return nil
	}
	account, _ := value.(*database.Account)
	return account
}

// CurrentSession returns the session id of the authenticated request
func CurrentSession(c *gin.Context) string {
	return c.GetString(SessionKey)
}

// SetAccount marks the request as authenticated. Used after login and by tests.
func SetAccount(c *gin.Context, account *database.Account, sessionID string) {
	c.Set(AccountKey, account)
	c.Set(SessionKey, sessionID)
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentAccount(c) == nil {
			api.RespondWithError(c, types.NewUnauthorizedError("authentication required"))
			return
		}
		c.Next()
	}
}

// RequireStaff allows only accounts that may manage the catalog
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := CurrentAccount(c)
		if account == nil {
			api.RespondWithError(c, types.NewUnauthorizedError("authentication required"))
			return
		}
		if !account.CanManageCatalog() {
			api.RespondWithError(c, types.NewForbiddenError("staff access required"))
			return
		}
		c.Next()
	}
}
