// Package google provides a client for the Google Places web service
// (text search and place details).
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// DefaultDetailFields is the field selector used for contact lookups.
var DefaultDetailFields = []string{"formatted_phone_number", "international_phone_number", "email"}

// Client performs Google Places API operations.
type Client interface {
	// TextSearch finds places matching a free-form query.
	TextSearch(ctx context.Context, query string) (*TextSearchResponse, error)
	// Details fetches the requested fields for a single place.
	Details(ctx context.Context, placeID string, fields []string) (*DetailsResponse, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Results      []PlaceResult `json:"results"`
}

// PlaceResult is a single text search hit. Only the place id is read.
type PlaceResult struct {
	PlaceID string `json:"place_id"`
}

// UnmarshalJSON decodes the place id leniently so that unexpected shapes in
// a hit never fail the whole search.
func (p *PlaceResult) UnmarshalJSON(data []byte) error {
	fields := objectFields(data)
	*p = PlaceResult{PlaceID: stringField(fields, "place_id")}
	return nil
}

// DetailsResponse is the response from Place Details.
type DetailsResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Result       PlaceDetails `json:"result"`
}

// PlaceDetails holds the contact fields of a place.
type PlaceDetails struct {
	FormattedPhoneNumber     string `json:"formatted_phone_number"`
	InternationalPhoneNumber string `json:"international_phone_number"`
	Email                    string `json:"email"`
}

// UnmarshalJSON decodes each contact field on its own. A field of the wrong
// type is left empty.
func (d *PlaceDetails) UnmarshalJSON(data []byte) error {
	fields := objectFields(data)
	*d = PlaceDetails{
		FormattedPhoneNumber:     stringField(fields, "formatted_phone_number"),
		InternationalPhoneNumber: stringField(fields, "international_phone_number"),
		Email:                    stringField(fields, "email"),
	}
	return nil
}

// objectFields splits a JSON object into its raw members. Anything else
// yields nil.
func objectFields(data []byte) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, query string) (*TextSearchResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.apiKey)

	var result TextSearchResponse
	if err := c.get(ctx, "/textsearch/json", params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) Details(ctx context.Context, placeID string, fields []string) (*DetailsResponse, error) {
	if placeID == "" {
		return nil, eris.New("google: empty place id")
	}
	if len(fields) == 0 {
		fields = DefaultDetailFields
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(fields, ","))
	params.Set("key", c.apiKey)

	var result DetailsResponse
	if err := c.get(ctx, "/details/json", params, &result); err != nil {
		return nil, err
	}
	if err := checkStatus(result.Status, result.ErrorMessage); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "google: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "google: unmarshal response")
	}
	return nil
}

// checkStatus maps the API's in-body status to an error. An empty status is
// accepted so that minimal responses still decode.
func checkStatus(status, msg string) error {
	switch status {
	case "", "OK", "ZERO_RESULTS":
		return nil
	}
	if msg != "" {
		return eris.Errorf("google: api status %s: %s", status, msg)
	}
	return eris.Errorf("google: api status %s", status)
}
