package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sharedapi "github.com/mantonx/streamhub/internal/api"
	"github.com/mantonx/streamhub/internal/database"
	"github.com/mantonx/streamhub/internal/middleware"
	accounterrors "github.com/mantonx/streamhub/internal/modules/accountmodule/errors"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountService struct {
	mock.Mock
}

func (m *mockAccountService) Register(ctx context.Context, input types.RegistrationInput) (*database.Account, error) {
	args := m.Called(ctx, input)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func (m *mockAccountService) Activate(ctx context.Context, uidb64, token string) (*database.Account, error) {
	args := m.Called(ctx, uidb64, token)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func (m *mockAccountService) Login(ctx context.Context, input types.LoginInput) (*database.Account, string, error) {
	args := m.Called(ctx, input)
	account, _ := args.Get(0).(*database.Account)
	return account, args.String(1), args.Error(2)
}

func (m *mockAccountService) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockAccountService) ResolveSession(ctx context.Context, sessionID string) (*database.Account, error) {
	args := m.Called(ctx, sessionID)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func (m *mockAccountService) GetAccount(ctx context.Context, accountID uint) (*database.Account, error) {
	args := m.Called(ctx, accountID)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func (m *mockAccountService) UpdateAccount(ctx context.Context, accountID uint, input types.AccountUpdateInput) (*database.Account, error) {
	args := m.Called(ctx, accountID, input)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func (m *mockAccountService) ChangePassword(ctx context.Context, accountID uint, input types.PasswordChangeInput) error {
	return m.Called(ctx, accountID, input).Error(0)
}

func (m *mockAccountService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockAccountService) ValidateResetToken(ctx context.Context, uidb64, token string) (*database.Account, error) {
	args := m.Called(ctx, uidb64, token)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func (m *mockAccountService) ResetPassword(ctx context.Context, uidb64, token string, input types.PasswordResetInput) error {
	return m.Called(ctx, uidb64, token, input).Error(0)
}

func (m *mockAccountService) UpdateProfilePicture(ctx context.Context, accountID uint, filename string, r io.Reader) (*database.Profile, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, accountID, filename, string(data))
	profile, _ := args.Get(0).(*database.Profile)
	return profile, args.Error(1)
}

func (m *mockAccountService) CreateSuperuser(ctx context.Context, input types.SuperuserInput) (*database.Account, error) {
	args := m.Called(ctx, input)
	account, _ := args.Get(0).(*database.Account)
	return account, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func anna() *database.Account {
	username := "anna"
	return &database.Account{ID: 7, Kind: database.AccountKindSubscriber, Email: "anna@example.com", Username: &username, IsActive: true}
}

// newRouter builds the account routes; when current is set every request
// is treated as authenticated with session "sess-1"
func newRouter(t *testing.T, svc *mockAccountService, current *database.Account) *gin.Engine {
	t.Helper()
	require.NoError(t, sharedapi.RegisterValidators())

	r := gin.New()
	if current != nil {
		r.Use(func(c *gin.Context) {
			middleware.SetAccount(c, current, "sess-1")
			c.Next()
		})
	}
	RegisterRoutes(r, NewHandler(svc, CookieSettings{Name: "sessionid", TTL: time.Hour}), nil)
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

func decodeError(t *testing.T, w *httptest.ResponseRecorder) sharedapi.ErrorDetails {
	t.Helper()
	var resp sharedapi.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestRegister(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, nil)

	input := types.RegistrationInput{Email: "anna@example.com", Username: "anna", Password1: "s3cure-Passw0rd", Password2: "s3cure-Passw0rd"}
	svc.On("Register", mock.Anything, input).Return(anna(), nil).Once()

	body := `{"email":"anna@example.com","username":"anna","password1":"s3cure-Passw0rd","password2":"s3cure-Passw0rd"}`
	w := do(r, http.MethodPost, "/api/accounts/register", body)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "confirm your email")

	dup := types.RegistrationInput{Email: "anna@example.com", Username: "bob", Password1: "s3cure-Passw0rd", Password2: "s3cure-Passw0rd"}
	svc.On("Register", mock.Anything, dup).
		Return(nil, accounterrors.Field("email", `Email "anna@example.com" is already in use.`, accounterrors.ErrDuplicateEmail)).Once()

	w = do(r, http.MethodPost, "/api/accounts/register",
		`{"email":"anna@example.com","username":"bob","password1":"s3cure-Passw0rd","password2":"s3cure-Passw0rd"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	details := decodeError(t, w)
	assert.Equal(t, string(types.ErrorCodeConflict), details.Code)
	assert.Equal(t, `Email "anna@example.com" is already in use.`, details.FieldErrors["email"])

	w = do(r, http.MethodPost, "/api/accounts/register", `{"email":"not-an-email","username":"bad name"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details = decodeError(t, w)
	assert.Equal(t, string(types.ErrorCodeValidation), details.Code)
	assert.Contains(t, details.FieldErrors, "email")
	assert.Contains(t, details.FieldErrors, "username")

	svc.AssertExpectations(t)
}

func TestActivate(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, nil)

	svc.On("Activate", mock.Anything, "Nw", "good").Return(anna(), nil)
	svc.On("Activate", mock.Anything, "Nw", "bad").Return(nil, accounterrors.ErrInvalidActivationLink)

	w := do(r, http.MethodGet, "/api/accounts/activate/Nw/good", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you for your email confirmation")

	w = do(r, http.MethodGet, "/api/accounts/activate/Nw/bad", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrorCodeInvalidToken), decodeError(t, w).Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, nil)

	good := types.LoginInput{Email: "anna@example.com", Password: "s3cure-Passw0rd"}
	svc.On("Login", mock.Anything, good).Return(anna(), "sess-42", nil)
	svc.On("Login", mock.Anything, types.LoginInput{Email: "anna@example.com", Password: "wrong"}).
		Return(nil, "", accounterrors.ErrInvalidLogin)
	svc.On("Login", mock.Anything, types.LoginInput{Email: "new@example.com", Password: "s3cure-Passw0rd"}).
		Return(nil, "", accounterrors.ErrAccountInactive)

	w := do(r, http.MethodPost, "/api/accounts/login", `{"email":"anna@example.com","password":"s3cure-Passw0rd"}`)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sessionid", cookies[0].Name)
	assert.Equal(t, "sess-42", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	w = do(r, http.MethodPost, "/api/accounts/login", `{"email":"anna@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = do(r, http.MethodPost, "/api/accounts/login", `{"email":"new@example.com","password":"s3cure-Passw0rd"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(types.ErrorCodeInactive), decodeError(t, w).Code)
}

func TestLoginShortCircuitsWhenAuthenticated(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, anna())

	w := do(r, http.MethodPost, "/api/accounts/login", `{"email":"x@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Already logged in.")
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogoutClearsCookie(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, anna())
	svc.On("Logout", mock.Anything, "sess-1").Return(nil).Once()

	w := do(r, http.MethodPost, "/api/accounts/logout", "")
	assert.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
	svc.AssertExpectations(t)
}

func TestMeRequiresAuth(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, nil)

	for _, method := range []string{http.MethodGet, http.MethodPut} {
		w := do(r, method, "/api/accounts/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)
	}
	w := do(r, http.MethodPost, "/api/accounts/me/password", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateMe(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, anna())

	input := types.AccountUpdateInput{Email: "bob@example.com", Username: "anna"}
	svc.On("UpdateAccount", mock.Anything, uint(7), input).
		Return(nil, accounterrors.Field("email", `Email "bob@example.com" is already in use.`, accounterrors.ErrDuplicateEmail))

	w := do(r, http.MethodPut, "/api/accounts/me", `{"email":"bob@example.com","username":"anna"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, `Email "bob@example.com" is already in use.`, decodeError(t, w).FieldErrors["email"])

	svc.On("GetAccount", mock.Anything, uint(7)).Return(anna(), nil)
	w = do(r, http.MethodGet, "/api/accounts/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"anna@example.com"`)
}

func TestChangePassword(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, anna())

	input := types.PasswordChangeInput{OldPassword: "old", NewPassword1: "n3w-Passw0rd!", NewPassword2: "n3w-Passw0rd!"}
	svc.On("ChangePassword", mock.Anything, uint(7), input).
		Return(accounterrors.Field("old_password", "Your old password was entered incorrectly. Please enter it again.", accounterrors.ErrWrongPassword))

	w := do(r, http.MethodPost, "/api/accounts/me/password",
		`{"old_password":"old","new_password1":"n3w-Passw0rd!","new_password2":"n3w-Passw0rd!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).FieldErrors, "old_password")
}

func TestPasswordResetFlow(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, nil)

	svc.On("ForgotPassword", mock.Anything, "nobody@example.com").
		Return(accounterrors.Field("email", "Account does not exist", accounterrors.ErrAccountNotFound))
	svc.On("ForgotPassword", mock.Anything, "anna@example.com").Return(nil)
	svc.On("ValidateResetToken", mock.Anything, "Nw", "tok").Return(anna(), nil)
	svc.On("ValidateResetToken", mock.Anything, "Nw", "used").Return(nil, accounterrors.ErrInvalidResetLink)
	svc.On("ResetPassword", mock.Anything, "Nw", "tok", types.PasswordResetInput{NewPassword1: "n3w-Passw0rd!", NewPassword2: "n3w-Passw0rd!"}).Return(nil)

	w := do(r, http.MethodPost, "/api/accounts/forgot-password", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Account does not exist", decodeError(t, w).FieldErrors["email"])

	w = do(r, http.MethodPost, "/api/accounts/forgot-password", `{"email":"anna@example.com"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/accounts/reset-password/Nw/tok", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = do(r, http.MethodGet, "/api/accounts/reset-password/Nw/used", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(types.ErrorCodeInvalidToken), decodeError(t, w).Code)

	w = do(r, http.MethodPost, "/api/accounts/reset-password/Nw/tok", `{"new_password1":"n3w-Passw0rd!","new_password2":"n3w-Passw0rd!"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "You may go ahead and log in now.")
}

func TestUploadProfilePicture(t *testing.T) {
	svc := &mockAccountService{}
	r := newRouter(t, svc, anna())
	svc.On("UpdateProfilePicture", mock.Anything, uint(7), "me.png", "png-bytes").
		Return(&database.Profile{AccountID: 7, ProfilePicture: "profile_pictures/x.webp"}, nil)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("profile_picture", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/me/profile-picture", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "profile_pictures/x.webp")

	w = do(r, http.MethodPost, "/api/accounts/me/profile-picture", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapErrorPassesAppErrorsThrough(t *testing.T) {
	tooLarge := types.NewAppError(types.ErrorCodePayloadTooLarge, "file too large", http.StatusRequestEntityTooLarge)
	wrapped := fmt.Errorf("store: %w", tooLarge)
	assert.Same(t, wrapped, mapError(wrapped))

	plain := fmt.Errorf("db down")
	assert.Same(t, plain, mapError(plain))
}
