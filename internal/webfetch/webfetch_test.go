package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Pocket Flow</title>
  <style>body { color: red; }</style>
  <script>var secret = "hidden";</script>
</head>
<body>
  <h1>Hello</h1>

  <p>A 100-line
     minimalist framework.</p>
  <script>alert("nope")</script>
</body>
</html>`

func TestParse(t *testing.T) {
	page, err := Parse(samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Pocket Flow", page.Title)
	assert.Equal(t, "Pocket Flow Hello A 100-line minimalist framework.", page.Text)
	assert.NotContains(t, page.Text, "secret")
	assert.NotContains(t, page.Text, "color")
	assert.Equal(t, samplePage, page.HTML)
}

func TestParseWithoutTitle(t *testing.T) {
	page, err := Parse("<p>just text</p>")
	require.NoError(t, err)
	assert.Empty(t, page.Title)
	assert.Equal(t, "just text", page.Text)
}

func TestFetch(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := New(time.Second, WithLogger(zaptest.NewLogger(t)))
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, UserAgent, userAgent)
	assert.Equal(t, "Pocket Flow", page.Title)
	assert.Contains(t, page.Text, "minimalist framework.")
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(time.Second).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := New(50 * time.Millisecond).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := New(0).Fetch(context.Background(), "://bad")
	assert.Error(t, err)
}
