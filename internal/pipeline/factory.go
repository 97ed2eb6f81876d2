package pipeline

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/contact"
	"github.com/sells-group/enrich-cli/internal/ratelimit"
	"github.com/sells-group/enrich-cli/internal/website"
	"github.com/sells-group/enrich-cli/pkg/google"
	"github.com/sells-group/enrich-cli/pkg/serpapi"
	"github.com/sells-group/enrich-cli/pkg/websearch"
)

// NewResolverFactory returns a factory that wires the website and contact
// resolvers from cfg. Each call creates one HTTP client shared by the run's
// providers and a separate rate limiter per resolver. Providers without
// credentials are left out.
func NewResolverFactory(cfg *config.Config) ResolverFactory {
	return func(_ context.Context) (*Resolvers, error) {
		hc := &http.Client{Timeout: cfg.Enrich.RequestTimeout()}

		opts := []website.Option{website.WithProbeClient(hc)}
		if cfg.SerpAPI.Key != "" {
			if err := checkURL(cfg.SerpAPI.URL); err != nil {
				return nil, eris.Wrap(err, "pipeline: serpapi.url")
			}
			opts = append(opts, website.WithSerpAPI(serpapi.NewClient(cfg.SerpAPI.Key,
				serpapi.WithBaseURL(cfg.SerpAPI.URL),
				serpapi.WithHTTPClient(hc),
			)))
		}
		if cfg.Search.Enabled() {
			if err := checkURL(cfg.Search.URL); err != nil {
				return nil, eris.Wrap(err, "pipeline: search.url")
			}
			opts = append(opts, website.WithSearch(websearch.NewClient(cfg.Search.URL, cfg.Search.Key,
				websearch.WithHTTPClient(hc),
			)))
		}

		var places google.Client
		if cfg.Google.Key != "" {
			gopts := []google.Option{google.WithHTTPClient(hc)}
			if cfg.Google.BaseURL != "" {
				if err := checkURL(cfg.Google.BaseURL); err != nil {
					return nil, eris.Wrap(err, "pipeline: google.base_url")
				}
				gopts = append(gopts, google.WithBaseURL(cfg.Google.BaseURL))
			}
			places = google.NewClient(cfg.Google.Key, gopts...)
		}

		return &Resolvers{
			Website: website.NewResolver(ratelimit.New(cfg.Enrich.RateLimitPerSecond), opts...),
			Contact: contact.NewResolver(places, ratelimit.New(cfg.Enrich.RateLimitPerSecond)),
		}, nil
	}
}

// checkURL requires an absolute http(s) URL.
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return eris.Wrap(err, "parse")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return eris.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}
