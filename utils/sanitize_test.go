package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStripsMarkup(t *testing.T) {
	assert.Equal(t, "hello world", Sanitize("<b>hello</b> world"))
	assert.Equal(t, "", Sanitize("<img src=x onerror=alert(1)>"))
	assert.Equal(t, "plain text", Sanitize("plain text"))
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UniqueStrings([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, UniqueStrings(nil))
}
