package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentCreateAndPublicListing(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.signup("author@example.com")
	tokenB := env.signup("reader@example.com")

	post := env.upload(tokenA, "topic.png", "image/png", "", pngBytes)
	postID, _ := post["id"].(string)

	w := env.doJSON(http.MethodPost, "/posts/"+postID+"/comments", tokenB, gin.H{"content": "first"})
	require.Equal(t, http.StatusOK, w.Code)
	created := bodyMap(t, w)
	assert.Equal(t, "first", created["content"])
	assert.Equal(t, postID, created["post_id"])
	assert.NotEmpty(t, created["id"])

	time.Sleep(10 * time.Millisecond)
	w = env.doJSON(http.MethodPost, "/posts/"+postID+"/comments", tokenA, gin.H{"content": "thanks"})
	require.Equal(t, http.StatusOK, w.Code)

	// Listing requires no authentication.
	w = env.do(http.MethodGet, "/posts/"+postID+"/comments", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	raw, ok := bodyMap(t, w)["comments"].([]interface{})
	require.True(t, ok)
	require.Len(t, raw, 2)

	// Oldest first, each annotated with the author's address.
	first, _ := raw[0].(map[string]interface{})
	second, _ := raw[1].(map[string]interface{})
	assert.Equal(t, "first", first["content"])
	assert.Equal(t, "reader@example.com", first["email"])
	assert.Equal(t, "thanks", second["content"])
	assert.Equal(t, "author@example.com", second["email"])
}

func TestCommentValidation(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.signup("poster@example.com")
	tokenB := env.signup("heckler@example.com")

	post := env.upload(tokenA, "pic.png", "image/png", "", pngBytes)
	postID, _ := post["id"].(string)

	w := env.doJSON(http.MethodPost, "/posts/"+postID+"/comments", tokenB, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Markup-only content sanitizes to nothing.
	w = env.doJSON(http.MethodPost, "/posts/"+postID+"/comments", tokenB, gin.H{"content": "<i></i>"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(http.MethodPost, "/posts/"+uuid.NewString()+"/comments", tokenB, gin.H{"content": "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(http.MethodPost, "/posts/"+postID+"/comments", "", gin.H{"content": "hello"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommentContentIsSanitized(t *testing.T) {
	env := newTestEnv(t)
	token := env.signup("clean@example.com")

	post := env.upload(token, "pic.png", "image/png", "", pngBytes)
	postID, _ := post["id"].(string)

	w := env.doJSON(http.MethodPost, "/posts/"+postID+"/comments", token, gin.H{"content": "<b>bold</b> claim"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bold claim", bodyMap(t, w)["content"])
}
