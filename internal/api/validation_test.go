package api

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

func TestUsernameValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var input types.AccountUpdateInput
		if !BindJSON(c, &input) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	ok := `{"email":"a@b.co","username":"anna.b+tv@home-1_x"}`
	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodPost, "/", ok).Code)

	for _, bad := range []string{"", "with space", "semi;colon", strings.Repeat("a", 101)} {
		body := `{"email":"a@b.co","username":"` + bad + `"}`
		assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/", body).Code, bad)
	}
}

func TestBindJSONReportsFieldErrors(t *testing.T) {
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.POST("/register", func(c *gin.Context) {
		var input types.RegistrationInput
		if !BindJSON(c, &input) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := perform(r, http.MethodPost, "/register", `{"email":"nope","username":"bad name","password1":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "Enter a valid email address.", resp.Error.FieldErrors["email"])
	assert.Contains(t, resp.Error.FieldErrors["username"], "letters, numbers")
	assert.Equal(t, "This field is required.", resp.Error.FieldErrors["password2"])

	w = perform(r, http.MethodPost, "/register", `{"email":"a@b.co","username":"anna","password1":"x","password2":"x"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGenreValidator(t *testing.T) {
	require.NoError(t, RegisterValidators())

	r := gin.New()
	r.GET("/shows", func(c *gin.Context) {
		var filter types.ShowFilter
		if !BindQuery(c, &filter) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, perform(r, http.MethodGet, "/shows?genre=horror", "").Code)
	w := perform(r, http.MethodGet, "/shows?genre=western", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.FieldErrors["genre"], "HORROR")
}

func TestMalformedBody(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var input types.LoginInput
		if !BindJSON(c, &input) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := perform(r, http.MethodPost, "/", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decode(t, w).Error.Message)
}
