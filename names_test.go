package tatami_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tatami-web/tatami"
)

func TestSnakeCase(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"PostID":       "post_id",
		"ShowComments": "show_comments",
		"ID":           "id",
		"UserAgent":    "user_agent",
		"HTTPServer":   "http_server",
		"Title":        "title",
		"APIKey":       "api_key",
	}

	for in, want := range tests {
		assert.Equal(t, want, tatami.SnakeCase(in), "snakeCase(%q)", in)
	}
}

func TestHeaderKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"UserAgent":     "User-Agent",
		"user_agent":    "User-Agent",
		"ContentType":   "Content-Type",
		"XRequestID":    "X-Request-Id",
		"Authorization": "Authorization",
	}

	for in, want := range tests {
		assert.Equal(t, want, tatami.HeaderKey(in), "headerKey(%q)", in)
	}
}

func TestSplitCamel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Post", "ID"}, tatami.SplitCamel("PostID"))
	assert.Equal(t, []string{"Show", "Comments"}, tatami.SplitCamel("ShowComments"))
	assert.Equal(t, []string{"HTTP", "Server"}, tatami.SplitCamel("HTTPServer"))
}

func TestHumanizeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Get post by id", tatami.HumanizeName("GetPostByID"))
	assert.Equal(t, "List posts", tatami.HumanizeName("ListPosts"))
}
