package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	// DefaultSearchURL is the scheme search endpoint; size and from are
	// appended per page.
	DefaultSearchURL = "https://api.myscheme.gov.in/search/v4/schemes?lang=en&q=%5B%5D&keyword=&sort=&size="

	// DefaultSchemeBaseURL prefixes a slug to form the public scheme page.
	DefaultSchemeBaseURL = "https://www.myscheme.gov.in/schemes/"

	// DefaultPageSize is the maximum page size the search API accepts.
	DefaultPageSize = 100
)

// Client fetches government scheme documents from the myscheme portal.
type Client struct {
	httpClient    *http.Client
	searchURL     string
	schemeBaseURL string
	apiKey        string
	pageSize      int
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSearchURL overrides the search endpoint
func WithSearchURL(url string) ClientOption {
	return func(c *Client) {
		c.searchURL = url
	}
}

// WithSchemeBaseURL overrides the scheme page base URL
func WithSchemeBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.schemeBaseURL = url
	}
}

// WithPageSize sets the search page size
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		c.pageSize = size
	}
}

// NewClient creates a new scraper client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		searchURL:     DefaultSearchURL,
		schemeBaseURL: DefaultSchemeBaseURL,
		apiKey:        apiKey,
		pageSize:      DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Status           string `json:"status"`
	ErrorDescription string `json:"errorDescription"`
	Data             struct {
		Hits struct {
			Items []struct {
				Fields struct {
					Slug string `json:"slug"`
				} `json:"fields"`
			} `json:"items"`
		} `json:"hits"`
	} `json:"data"`
}

// FetchSlugs pages through the search API until totalResults slugs have been
// requested. Pages that fail are skipped; their errors come back alongside
// the slugs that did load.
func (c *Client) FetchSlugs(ctx context.Context, totalResults int) ([]string, []error) {
	var slugs []string
	var errs []error

	for start := 0; start < totalResults; start += c.pageSize {
		pageSlugs, err := c.fetchPage(ctx, start)
		if err != nil {
			errs = append(errs, fmt.Errorf("page at %d: %w", start, err))
			continue
		}
		slugs = append(slugs, pageSlugs...)
	}

	return slugs, errs
}

func (c *Client) fetchPage(ctx context.Context, start int) ([]string, error) {
	url := fmt.Sprintf("%s%d&from=%d", c.searchURL, c.pageSize, start)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", "https://www.myscheme.gov.in")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if parsed.Status != "Success" {
		return nil, fmt.Errorf("search API error: %s", parsed.ErrorDescription)
	}

	slugs := make([]string, 0, len(parsed.Data.Hits.Items))
	for _, item := range parsed.Data.Hits.Items {
		slugs = append(slugs, item.Fields.Slug)
	}
	return slugs, nil
}

// SchemeURL returns the public page URL for a scheme slug
func (c *Client) SchemeURL(slug string) string {
	return c.schemeBaseURL + slug
}

// FetchSchemeContent downloads a scheme page and returns its visible text,
// whitespace-collapsed to a single line.
func (c *Client) FetchSchemeContent(ctx context.Context, slug string) (string, error) {
	url := c.SchemeURL(slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("scheme page returned status %d", resp.StatusCode)
	}

	text, err := extractText(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse scheme page: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("scheme page %s had no text content", url)
	}
	return text, nil
}

// extractText walks the HTML tree collecting text nodes, skipping script and
// style elements.
func extractText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return strings.Join(strings.Fields(sb.String()), " "), nil
}
