package model

// Source identifies which lookup method produced a result.
type Source string

const (
	SourceNone          Source = ""
	SourceDomainGuess   Source = "domain_guess"
	SourceSearchAPI     Source = "search_api"
	SourceGooglePlaces  Source = "google_places"
	SourceNotConfigured Source = "not_configured"
)

// ResultStatus is the terminal outcome of a single company lookup.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultFailed  ResultStatus = "FAILED"
)

// CompanyResult is the enrichment outcome for one input company.
// Empty strings stand in for absent values.
type CompanyResult struct {
	Company      string       `json:"company"`
	Website      string       `json:"website,omitempty"`
	WebsiteFound bool         `json:"website_found"`
	Phone        string       `json:"phone,omitempty"`
	PhoneFound   bool         `json:"phone_found"`
	Email        string       `json:"email,omitempty"`
	EmailFound   bool         `json:"email_found"`
	Source       Source       `json:"source,omitempty"`
	Status       ResultStatus `json:"status"`
}

// FailedResult returns the result recorded when every lookup attempt for a
// company has failed. Only the company name is populated.
func FailedResult(company string) CompanyResult {
	return CompanyResult{Company: company, Status: ResultFailed}
}

// WebsiteLookup is the outcome of website detection.
type WebsiteLookup struct {
	Found  bool   `json:"website_found"`
	URL    string `json:"website_url,omitempty"`
	Source Source `json:"source,omitempty"`
}

// ContactLookup is the outcome of a phone/email lookup.
type ContactLookup struct {
	Phone      string `json:"phone,omitempty"`
	PhoneFound bool   `json:"phone_found"`
	Email      string `json:"email,omitempty"`
	EmailFound bool   `json:"email_found"`
	Source     Source `json:"source,omitempty"`
}

// NewResult builds the success result for a company from its website lookup,
// merging contact data when the website stage found nothing. The contact
// stage's source replaces the website stage's source whenever it ran.
func NewResult(company string, site WebsiteLookup, contact *ContactLookup) CompanyResult {
	r := CompanyResult{
		Company:      company,
		Website:      site.URL,
		WebsiteFound: site.Found,
		Source:       site.Source,
		Status:       ResultSuccess,
	}
	if contact != nil {
		r.Phone = contact.Phone
		r.PhoneFound = contact.PhoneFound
		r.Email = contact.Email
		r.EmailFound = contact.EmailFound
		r.Source = contact.Source
	}
	return r
}
