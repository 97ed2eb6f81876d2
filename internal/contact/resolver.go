// Package contact looks up a company's phone number and email through
// Google Places when no website could be found.
package contact

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/ratelimit"
	"github.com/sells-group/enrich-cli/pkg/google"
)

// Resolver runs the two-step Places lookup (text search, then details).
type Resolver struct {
	places  google.Client
	limiter *ratelimit.Limiter
}

// NewResolver creates a Resolver. A nil places client means no credential is
// configured and every lookup reports not_configured.
func NewResolver(places google.Client, limiter *ratelimit.Limiter) *Resolver {
	return &Resolver{places: places, limiter: limiter}
}

// LookupContact finds a phone and email for company. Provider failures and
// invalid values yield a not-found result; the error is non-nil only when ctx
// ends during a limiter wait.
func (r *Resolver) LookupContact(ctx context.Context, company string) (model.ContactLookup, error) {
	if r.places == nil {
		return model.ContactLookup{Source: model.SourceNotConfigured}, nil
	}

	notFound := model.ContactLookup{Source: model.SourceGooglePlaces}

	if err := r.limiter.Wait(ctx); err != nil {
		return model.ContactLookup{}, eris.Wrap(err, "contact: text search")
	}
	search, err := r.places.TextSearch(ctx, company)
	if err != nil {
		zap.L().Debug("contact: text search failed", zap.String("company", company), zap.Error(err))
		return notFound, nil
	}
	if len(search.Results) == 0 || search.Results[0].PlaceID == "" {
		return notFound, nil
	}
	placeID := search.Results[0].PlaceID

	if err := r.limiter.Wait(ctx); err != nil {
		return model.ContactLookup{}, eris.Wrap(err, "contact: details")
	}
	details, err := r.places.Details(ctx, placeID, google.DefaultDetailFields)
	if err != nil {
		zap.L().Debug("contact: details failed",
			zap.String("company", company),
			zap.String("place_id", placeID),
			zap.Error(err),
		)
		return notFound, nil
	}

	out := notFound
	phone := details.Result.FormattedPhoneNumber
	if phone == "" {
		phone = details.Result.InternationalPhoneNumber
	}
	if ValidPhone(phone) {
		out.Phone, out.PhoneFound = phone, true
	}
	if email := details.Result.Email; ValidEmail(email) {
		out.Email, out.EmailFound = email, true
	}
	return out, nil
}
