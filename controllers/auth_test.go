package controllers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/utils"
)

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(http.MethodPost, "/auth/register", "", gin.H{"email": "not-an-email", "password": testPassword})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(http.MethodPost, "/auth/register", "", gin.H{"email": "short@example.com", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := env.register("alice@example.com", testPassword)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, true, body["is_active"])
	assert.Equal(t, false, body["is_verified"])
	assert.NotEmpty(t, body["id"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "password_hash")

	// Email addresses are unique regardless of case.
	w = env.doJSON(http.MethodPost, "/auth/register", "", gin.H{"email": "Alice@Example.com", "password": testPassword})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	env.register("bob@example.com", testPassword)

	form := url.Values{}
	form.Set("username", "bob@example.com")
	form.Set("password", "wrong-password")
	w := env.do(http.MethodPost, "/auth/jwt/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := env.login("bob@example.com", testPassword)

	w = env.do(http.MethodGet, "/users/me", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob@example.com", bodyMap(t, w)["email"])

	w = env.do(http.MethodGet, "/users/me", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/users/me", "garbage.token.value", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	env.register("frozen@example.com", testPassword)
	require.NoError(t, env.db.Model(&models.User{}).
		Where("email = ?", "frozen@example.com").
		Update("is_active", false).Error)

	form := url.Values{}
	form.Set("username", "frozen@example.com")
	form.Set("password", testPassword)
	w := env.do(http.MethodPost, "/auth/jwt/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup("carol@example.com")

	w := env.do(http.MethodPost, "/auth/jwt/logout", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/users/me", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyConsumesCode(t *testing.T) {
	env := newTestEnv(t)
	env.register("dave@example.com", testPassword)

	utils.SaveCode(utils.CodePurposeVerify, "dave@example.com", "123456", 10*time.Minute)

	w := env.doJSON(http.MethodPost, "/auth/verify", "", gin.H{"email": "dave@example.com", "token": "999999"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	utils.SaveCode(utils.CodePurposeVerify, "dave@example.com", "123456", 10*time.Minute)
	w = env.doJSON(http.MethodPost, "/auth/verify", "", gin.H{"email": "dave@example.com", "token": "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, bodyMap(t, w)["is_verified"])

	// The code is single-use.
	w = env.doJSON(http.MethodPost, "/auth/verify", "", gin.H{"email": "dave@example.com", "token": "123456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register("erin@example.com", testPassword)

	utils.SaveCode(utils.CodePurposeReset, "erin@example.com", "654321", 10*time.Minute)
	w := env.doJSON(http.MethodPost, "/auth/reset-password", "", gin.H{
		"email":    "erin@example.com",
		"token":    "654321",
		"password": "new-password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	form := url.Values{}
	form.Set("username", "erin@example.com")
	form.Set("password", testPassword)
	w = env.do(http.MethodPost, "/auth/jwt/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.login("erin@example.com", "new-password")
}

func TestUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup("frank@example.com")
	env.register("taken@example.com", testPassword)

	// A taken address conflicts.
	w := env.doJSON(http.MethodPatch, "/users/me", token, gin.H{"email": "taken@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Changing the email clears the verified flag.
	require.NoError(t, env.db.Model(&models.User{}).
		Where("email = ?", "frank@example.com").
		Update("is_verified", true).Error)
	w = env.doJSON(http.MethodPatch, "/users/me", token, gin.H{"email": "frank2@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	body := bodyMap(t, w)
	assert.Equal(t, "frank2@example.com", body["email"])
	assert.Equal(t, false, body["is_verified"])

	// Changing the password rotates the credential.
	w = env.doJSON(http.MethodPatch, "/users/me", token, gin.H{"password": "rotated-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	env.login("frank2@example.com", "rotated-pass")
}

func TestCaptchaEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/auth/captcha", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := bodyMap(t, w)
	assert.NotEmpty(t, body["id"])
	image, _ := body["image"].(string)
	assert.True(t, strings.HasPrefix(image, "data:image/"), "image: %.40s", image)
}
