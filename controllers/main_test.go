package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/snapfeed/snapfeed/media"
	"github.com/snapfeed/snapfeed/models"
	"github.com/snapfeed/snapfeed/routes"
)

const testPassword = "password123"

func TestMain(m *testing.M) {
	scratch := filepath.Join(os.TempDir(), "snapfeed-test")
	// Config is loaded once per process, so everything must be in the
	// environment before the first router is built.
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("RATE_LIMIT_PER_MINUTE", "100000")
	os.Setenv("GIN_LOG_PATH", filepath.Join(scratch, "gin.log"))
	os.Setenv("LOG_PATH", filepath.Join(scratch, "app.log"))
	gin.SetMode(gin.TestMode)

	code := m.Run()
	os.RemoveAll(scratch)
	os.Exit(code)
}

type testEnv struct {
	t         *testing.T
	router    *gin.Engine
	db        *gorm.DB
	mediaRoot string
}

// newTestEnv builds a full router backed by an isolated in-memory database
// and a media store rooted in a per-test temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mediaRoot := t.TempDir()
	store, err := media.NewLocalStore(mediaRoot, "/static/uploads")
	require.NoError(t, err)

	env := newTestEnvWithStore(t, store)
	env.mediaRoot = mediaRoot
	return env
}

// newTestEnvWithStore is the same but with a caller-supplied media store,
// for exercising delegate failures.
func newTestEnvWithStore(t *testing.T, store media.Store) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// An in-memory sqlite database exists per connection; pin the pool to
	// one connection so every query sees the same database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.PageView{},
	))

	return &testEnv{
		t:      t,
		router: routes.SetupRouter(db, store),
		db:     db,
	}
}

func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(e.t, err)
		body = bytes.NewReader(b)
	}
	return e.do(method, path, token, body, "application/json")
}

func bodyMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), "body: %s", w.Body.String())
	return m
}

// register creates an account and asserts the 201 response.
func (e *testEnv) register(email, password string) map[string]interface{} {
	e.t.Helper()
	w := e.doJSON(http.MethodPost, "/auth/register", "", gin.H{
		"email":    email,
		"password": password,
	})
	require.Equal(e.t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	return bodyMap(e.t, w)
}

// login performs the form-encoded credential exchange and returns the token.
func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)
	w := e.do(http.MethodPost, "/auth/jwt/login", "", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(e.t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := bodyMap(e.t, w)
	token, _ := body["access_token"].(string)
	require.NotEmpty(e.t, token)
	require.Equal(e.t, "bearer", body["token_type"])
	return token
}

// signup registers an account with the default password and returns a token.
func (e *testEnv) signup(email string) string {
	e.t.Helper()
	e.register(email, testPassword)
	return e.login(email, testPassword)
}

// uploadRequest posts a multipart file and returns the raw response.
func (e *testEnv) uploadRequest(token, filename, contentType, caption string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(e.t, err)
	_, err = part.Write(content)
	require.NoError(e.t, err)

	if caption != "" {
		require.NoError(e.t, mw.WriteField("caption", caption))
	}
	require.NoError(e.t, mw.Close())

	return e.do(http.MethodPost, "/upload", token, &buf, mw.FormDataContentType())
}

// upload posts a multipart file and returns the created post payload.
func (e *testEnv) upload(token, filename, contentType, caption string, content []byte) map[string]interface{} {
	e.t.Helper()
	w := e.uploadRequest(token, filename, contentType, caption, content)
	require.Equal(e.t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	return bodyMap(e.t, w)
}

// feed fetches /feed for the given token and returns the post entries.
func (e *testEnv) feed(token string) []map[string]interface{} {
	e.t.Helper()
	w := e.do(http.MethodGet, "/feed", token, nil, "")
	require.Equal(e.t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	body := bodyMap(e.t, w)
	raw, ok := body["posts"].([]interface{})
	require.True(e.t, ok, "body: %s", w.Body.String())
	items := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		item, ok := entry.(map[string]interface{})
		require.True(e.t, ok)
		items = append(items, item)
	}
	return items
}
