package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSlugs(t *testing.T) {
	t.Run("Pages through the search API", func(t *testing.T) {
		var froms []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret", r.Header.Get("x-api-key"))
			from := r.URL.Query().Get("from")
			froms = append(froms, from)

			fmt.Fprintf(w, `{"status": "Success", "data": {"hits": {"items": [
				{"fields": {"slug": "scheme-%s-a"}},
				{"fields": {"slug": "scheme-%s-b"}}
			]}}}`, from, from)
		}))
		defer server.Close()

		c := NewClient("secret",
			WithSearchURL(server.URL+"/search?size="),
			WithPageSize(2),
			WithHTTPClient(server.Client()),
		)

		slugs, errs := c.FetchSlugs(context.Background(), 4)

		assert.Empty(t, errs)
		assert.Equal(t, []string{"0", "2"}, froms)
		assert.Equal(t, []string{"scheme-0-a", "scheme-0-b", "scheme-2-a", "scheme-2-b"}, slugs)
	})

	t.Run("Failed pages are skipped, not fatal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("from") == "0" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"status": "Success", "data": {"hits": {"items": [{"fields": {"slug": "survivor"}}]}}}`)
		}))
		defer server.Close()

		c := NewClient("",
			WithSearchURL(server.URL+"/search?size="),
			WithPageSize(1),
			WithHTTPClient(server.Client()),
		)

		slugs, errs := c.FetchSlugs(context.Background(), 2)

		require.Len(t, errs, 1)
		assert.Equal(t, []string{"survivor"}, slugs)
	})

	t.Run("API-level failure status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status": "Failed", "errorDescription": "quota exceeded"}`)
		}))
		defer server.Close()

		c := NewClient("",
			WithSearchURL(server.URL+"/search?size="),
			WithPageSize(10),
			WithHTTPClient(server.Client()),
		)

		slugs, errs := c.FetchSlugs(context.Background(), 10)

		assert.Empty(t, slugs)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "quota exceeded")
	})
}

func TestFetchSchemeContent(t *testing.T) {
	t.Run("Extracts visible text from the page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/pm-kisan", r.URL.Path)
			fmt.Fprint(w, `<html><head>
				<title>PM-KISAN</title>
				<script>var tracking = true;</script>
				<style>.hidden { display: none; }</style>
			</head><body>
				<h1>PM-KISAN</h1>
				<p>Income   support for
				farmer families.</p>
			</body></html>`)
		}))
		defer server.Close()

		c := NewClient("",
			WithSchemeBaseURL(server.URL+"/"),
			WithHTTPClient(server.Client()),
		)

		content, err := c.FetchSchemeContent(context.Background(), "pm-kisan")

		require.NoError(t, err)
		assert.Contains(t, content, "PM-KISAN Income support for farmer families.")
		assert.NotContains(t, content, "tracking")
		assert.NotContains(t, content, "display: none")
	})

	t.Run("Non-200 pages fail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient("",
			WithSchemeBaseURL(server.URL+"/"),
			WithHTTPClient(server.Client()),
		)

		_, err := c.FetchSchemeContent(context.Background(), "gone")
		assert.Error(t, err)
	})
}

func TestExtractText(t *testing.T) {
	t.Run("Collapses whitespace", func(t *testing.T) {
		text, err := extractText(strings.NewReader("<p>one\n\n  two\tthree</p>"))
		require.NoError(t, err)
		assert.Equal(t, "one two three", text)
	})

	t.Run("Empty document yields empty text", func(t *testing.T) {
		text, err := extractText(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, text)
	})
}
