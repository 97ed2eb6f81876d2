// Package website finds a company's likely official website by guessing
// domains and falling back to search providers.
package website

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/ratelimit"
	"github.com/sells-group/enrich-cli/pkg/serpapi"
	"github.com/sells-group/enrich-cli/pkg/websearch"
)

const defaultProbeTimeout = 8 * time.Second

// Resolver detects company websites. It owns its rate limiter, which spaces
// every outbound call (probes and searches alike).
type Resolver struct {
	limiter *ratelimit.Limiter
	probe   *http.Client
	serp    serpapi.Client
	search  websearch.Client
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProbeClient sets the HTTP client used for domain existence probes.
func WithProbeClient(hc *http.Client) Option {
	return func(r *Resolver) {
		if hc != nil {
			r.probe = hc
		}
	}
}

// WithSerpAPI enables the SerpApi search fallback.
func WithSerpAPI(c serpapi.Client) Option {
	return func(r *Resolver) {
		r.serp = c
	}
}

// WithSearch enables the generic search provider fallback.
func WithSearch(c websearch.Client) Option {
	return func(r *Resolver) {
		r.search = c
	}
}

// NewResolver creates a Resolver that waits on limiter before every call.
func NewResolver(limiter *ratelimit.Limiter, opts ...Option) *Resolver {
	r := &Resolver{
		limiter: limiter,
		probe:   &http.Client{Timeout: defaultProbeTimeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DetectWebsite runs the domain guesses, then the search providers, and
// stops at the first hit. Provider failures only mean "not confirmed"; the
// returned error is non-nil only when ctx ends during a limiter wait.
func (r *Resolver) DetectWebsite(ctx context.Context, company string) (model.WebsiteLookup, error) {
	for _, candidate := range Candidates(company) {
		if err := r.limiter.Wait(ctx); err != nil {
			return model.WebsiteLookup{}, eris.Wrap(err, "website: probe")
		}
		if r.exists(ctx, candidate) {
			return model.WebsiteLookup{Found: true, URL: candidate, Source: model.SourceDomainGuess}, nil
		}
	}

	link, err := r.searchSerpAPI(ctx, company)
	if err != nil {
		return model.WebsiteLookup{}, err
	}
	if link != "" {
		return model.WebsiteLookup{Found: true, URL: link, Source: model.SourceSearchAPI}, nil
	}

	link, err = r.searchGeneric(ctx, company)
	if err != nil {
		return model.WebsiteLookup{}, err
	}
	if link != "" {
		return model.WebsiteLookup{Found: true, URL: link, Source: model.SourceSearchAPI}, nil
	}

	return model.WebsiteLookup{}, nil
}

// exists probes url with a GET, following redirects. Any status below 400
// confirms the site.
func (r *Resolver) exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := r.probe.Do(req)
	if err != nil {
		zap.L().Debug("website: probe failed", zap.String("url", url), zap.Error(err))
		return false
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode < http.StatusBadRequest
}

func (r *Resolver) searchSerpAPI(ctx context.Context, company string) (string, error) {
	if r.serp == nil {
		return "", nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "website: serpapi search")
	}

	resp, err := r.serp.Search(ctx, company+" official website")
	if err != nil {
		zap.L().Debug("website: serpapi search failed", zap.String("company", company), zap.Error(err))
		return "", nil
	}
	for _, link := range resp.Links() {
		if LooksLikeCompanySite(link, company) {
			return link, nil
		}
	}
	return "", nil
}

func (r *Resolver) searchGeneric(ctx context.Context, company string) (string, error) {
	if r.search == nil {
		return "", nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "website: generic search")
	}

	resp, err := r.search.Lookup(ctx, company)
	if err != nil {
		zap.L().Debug("website: generic search failed", zap.String("company", company), zap.Error(err))
		return "", nil
	}
	if !resp.HasWebsite() {
		return "", nil
	}
	return resp.Website, nil
}
