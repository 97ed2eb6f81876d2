// Package serpapi provides a client for the SerpApi Google search endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://serpapi.com/search.json"
	defaultNum     = 5
)

// Client defines SerpApi search operations.
type Client interface {
	// Search runs a Google web search and returns the organic results.
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// SearchResponse is the subset of the SerpApi response the pipeline reads.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	Error          string          `json:"error,omitempty"`
}

// OrganicResult is a single organic hit. Only the link is read.
type OrganicResult struct {
	Link string `json:"link"`
}

// UnmarshalJSON decodes the link leniently. An entry that is not an object,
// or whose link is not a string, decodes to an empty result instead of
// failing the whole response.
func (o *OrganicResult) UnmarshalJSON(data []byte) error {
	*o = OrganicResult{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	var link string
	if err := json.Unmarshal(fields["link"], &link); err == nil {
		o.Link = link
	}
	return nil
}

// Links returns the non-empty result links in rank order.
func (r *SearchResponse) Links() []string {
	if r == nil {
		return nil
	}
	links := make([]string, 0, len(r.OrganicResults))
	for _, o := range r.OrganicResults {
		if o.Link != "" {
			links = append(links, o.Link)
		}
	}
	return links
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the search endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithNum sets the number of results requested per search.
func WithNum(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.num = n
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	num     int
	http    *http.Client
}

// NewClient creates a SerpApi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		num:     defaultNum,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(c.num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "serpapi: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("serpapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "serpapi: unmarshal response")
	}
	if result.Error != "" {
		return nil, eris.Errorf("serpapi: %s", result.Error)
	}

	return &result, nil
}
